package optimizer

import "github.com/paritytech/revive-sub000/internal/lir"

// pure reports whether removing an unused in cannot change behaviour.
func pure(in *lir.Instr) bool {
	switch {
	case in.Op.IsBinary(), in.Op.IsCast():
		return true
	}
	switch in.Op {
	case lir.OpICmp, lir.OpSelect, lir.OpGEP, lir.OpLoad, lir.OpAlloca:
		return true
	}
	return false
}

func countUses(f *lir.Func) []int {
	uses := make([]int, len(f.Regs))
	mark := func(v lir.Value) {
		if v.Kind == lir.ValueReg && int(v.Reg) < len(uses) {
			uses[v.Reg]++
		}
	}
	for _, b := range f.Blocks {
		for i := range b.Instrs {
			for _, a := range b.Instrs[i].Args {
				mark(a)
			}
		}
		if b.Term.HasValue {
			mark(b.Term.Value)
		}
	}
	return uses
}

// eliminateDeadCode drops pure instructions nobody uses.
func eliminateDeadCode(f *lir.Func) bool {
	changed := false
	for {
		uses := countUses(f)
		removed := false
		for _, b := range f.Blocks {
			kept := b.Instrs[:0]
			for _, in := range b.Instrs {
				if in.HasResult() && uses[in.Dst] == 0 && pure(&in) {
					removed = true
					continue
				}
				kept = append(kept, in)
			}
			b.Instrs = kept
		}
		if !removed {
			return changed
		}
		changed = true
	}
}

// eliminateDeadStores drops stack slots that are written but never read,
// together with the stores into them.
func eliminateDeadStores(f *lir.Func) bool {
	allocas := make(map[lir.Reg]bool)
	for _, b := range f.Blocks {
		for i := range b.Instrs {
			if in := &b.Instrs[i]; in.Op == lir.OpAlloca {
				allocas[in.Dst] = true
			}
		}
	}
	if len(allocas) == 0 {
		return false
	}
	escapes := func(v lir.Value) {
		if v.Kind == lir.ValueReg {
			delete(allocas, v.Reg)
		}
	}
	for _, b := range f.Blocks {
		for i := range b.Instrs {
			in := &b.Instrs[i]
			for j, a := range in.Args {
				if in.Op == lir.OpStore && j == 0 {
					continue
				}
				escapes(a)
			}
		}
		if b.Term.HasValue {
			escapes(b.Term.Value)
		}
	}
	if len(allocas) == 0 {
		return false
	}
	for _, b := range f.Blocks {
		kept := b.Instrs[:0]
		for _, in := range b.Instrs {
			switch {
			case in.Op == lir.OpAlloca && allocas[in.Dst]:
				continue
			case in.Op == lir.OpStore && in.Args[0].Kind == lir.ValueReg && allocas[in.Args[0].Reg]:
				continue
			}
			kept = append(kept, in)
		}
		b.Instrs = kept
	}
	return true
}
