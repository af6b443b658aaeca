package optimizer

import (
	"fmt"

	"github.com/paritytech/revive-sub000/internal/lir"
)

// maxCallerSize stops inlining into a function once it has grown this large.
// Mutually recursive helpers would otherwise be expanded forever.
const maxCallerSize = 1 << 14

func instrCount(f *lir.Func) int {
	n := 0
	for _, b := range f.Blocks {
		n += len(b.Instrs) + 1
	}
	return n
}

func callSites(m *lir.Module) map[string]int {
	sites := make(map[string]int)
	for _, f := range m.Funcs {
		for _, b := range f.Blocks {
			for i := range b.Instrs {
				if b.Instrs[i].Op == lir.OpCall {
					sites[b.Instrs[i].Callee]++
				}
			}
		}
	}
	return sites
}

func calls(f *lir.Func, name string) bool {
	for _, b := range f.Blocks {
		for i := range b.Instrs {
			if b.Instrs[i].Op == lir.OpCall && b.Instrs[i].Callee == name {
				return true
			}
		}
	}
	return false
}

// inlinable reports whether calls to callee may be replaced by its body at
// the given threshold.
func inlinable(callee *lir.Func, sites, threshold int) bool {
	if callee == nil || callee.IsDeclaration() || callee.NoInline || callee.Linkage != lir.LinkInternal {
		return false
	}
	if calls(callee, callee.Name) {
		return false
	}
	if sites == 1 && threshold >= 0 {
		return true
	}
	return threshold > 0 && instrCount(callee) <= threshold
}

// inlineCalls replaces calls to small internal functions by copies of their
// bodies. Each caller is scanned once; callees inlined into it are not
// revisited.
func inlineCalls(m *lir.Module, threshold int) (bool, error) {
	if threshold < 0 {
		return false, nil
	}
	sites := callSites(m)
	changed := false
	for _, caller := range m.Funcs {
		if caller.IsDeclaration() {
			continue
		}
		size := instrCount(caller)
		for bi := 0; bi < len(caller.Blocks) && size < maxCallerSize; bi++ {
			for i := 0; i < len(caller.Blocks[bi].Instrs); i++ {
				in := &caller.Blocks[bi].Instrs[i]
				if in.Op != lir.OpCall || in.Callee == caller.Name {
					continue
				}
				callee := m.Func(in.Callee)
				if !inlinable(callee, sites[in.Callee], threshold) {
					continue
				}
				if err := inlineAt(caller, lir.BlockID(bi), i, callee); err != nil {
					return changed, fmt.Errorf("inline %s into %s: %w", callee.Name, caller.Name, err)
				}
				changed = true
				size += instrCount(callee)
				// The rest of the block moved to a continuation block.
				break
			}
		}
	}
	return changed, nil
}

// inlineAt splits block bi at instruction i, a call to callee, and splices a
// renamed copy of callee in between. The result travels through a stack
// slot; returns store into it and the continuation loads it.
func inlineAt(caller *lir.Func, bi lir.BlockID, i int, callee *lir.Func) error {
	site := caller.Blocks[bi]
	call := site.Instrs[i]
	if len(call.Args) != len(callee.Params) {
		return fmt.Errorf("call passes %d arguments, want %d", len(call.Args), len(callee.Params))
	}

	regs := make([]lir.Value, len(callee.Regs))
	for r := range callee.Regs {
		if r < len(callee.Params) {
			regs[r] = call.Args[r]
			continue
		}
		regs[r] = lir.RegValue(caller.NewReg(callee.Regs[r]), callee.Regs[r])
	}
	rename := func(v lir.Value) lir.Value {
		if v.Kind == lir.ValueReg {
			return regs[v.Reg]
		}
		return v
	}

	base := lir.BlockID(len(caller.Blocks))
	cont := &lir.Block{
		ID:     base + lir.BlockID(len(callee.Blocks)),
		Name:   site.Name + ".cont",
		Instrs: append([]lir.Instr(nil), site.Instrs[i+1:]...),
		Term:   site.Term,
	}

	var slot lir.Value
	hasResult := call.HasResult()
	var hoisted []lir.Instr
	if hasResult {
		slot = lir.RegValue(caller.NewReg(lir.Ptr(lir.AddressSpaceStack)), lir.Ptr(lir.AddressSpaceStack))
		hoisted = append(hoisted, lir.Instr{Op: lir.OpAlloca, Dst: slot.Reg, Type: callee.Result, Align: callee.Result.Align()})
		load := lir.Instr{Op: lir.OpLoad, Dst: call.Dst, Type: callee.Result, Args: []lir.Value{slot}, Align: callee.Result.Align()}
		cont.Instrs = append([]lir.Instr{load}, cont.Instrs...)
	}

	for _, cb := range callee.Blocks {
		nb := &lir.Block{ID: base + cb.ID, Name: callee.Name + "." + cb.Name}
		for _, in := range cb.Instrs {
			in.Args = append([]lir.Value(nil), in.Args...)
			for j := range in.Args {
				in.Args[j] = rename(in.Args[j])
			}
			if in.HasResult() {
				in.Dst = regs[in.Dst].Reg
			}
			if in.Op == lir.OpAlloca {
				hoisted = append(hoisted, in)
				continue
			}
			nb.Instrs = append(nb.Instrs, in)
		}
		t := cb.Term
		t.Cases = append([]lir.SwitchCase(nil), t.Cases...)
		if t.HasValue {
			t.Value = rename(t.Value)
		}
		if t.Kind == lir.TermRet {
			if hasResult && t.HasValue {
				nb.Instrs = append(nb.Instrs, lir.Instr{
					Op: lir.OpStore, Dst: lir.NoReg, Type: t.Value.Type,
					Args: []lir.Value{slot, t.Value}, Align: t.Value.Type.Align(),
				})
			}
			t = lir.Terminator{Kind: lir.TermBr, Target: cont.ID}
		} else {
			retarget(&t, func(id lir.BlockID) lir.BlockID { return base + id })
		}
		nb.Term = t
		caller.Blocks = append(caller.Blocks, nb)
	}
	caller.Blocks = append(caller.Blocks, cont)

	site.Instrs = site.Instrs[:i:i]
	site.Term = lir.Terminator{Kind: lir.TermBr, Target: base}

	entry := caller.Blocks[0]
	pos := 0
	for pos < len(entry.Instrs) && entry.Instrs[pos].Op == lir.OpAlloca {
		pos++
	}
	entry.Instrs = append(entry.Instrs[:pos:pos], append(hoisted, entry.Instrs[pos:]...)...)
	return nil
}
