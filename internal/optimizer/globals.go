package optimizer

import (
	"slices"

	"github.com/paritytech/revive-sub000/internal/lir"
)

// removeDeadFunctions drops internal functions unreachable from the exports
// and renumbers the rest.
func removeDeadFunctions(m *lir.Module) bool {
	live := make(map[string]bool)
	var work []*lir.Func
	for _, f := range m.Funcs {
		if f.Linkage != lir.LinkInternal {
			live[f.Name] = true
			work = append(work, f)
		}
	}
	for len(work) > 0 {
		f := work[len(work)-1]
		work = work[:len(work)-1]
		for _, b := range f.Blocks {
			for i := range b.Instrs {
				in := &b.Instrs[i]
				if in.Op != lir.OpCall || live[in.Callee] {
					continue
				}
				live[in.Callee] = true
				if callee := m.Func(in.Callee); callee != nil {
					work = append(work, callee)
				}
			}
		}
	}
	n := len(m.Funcs)
	m.Funcs = slices.DeleteFunc(m.Funcs, func(f *lir.Func) bool { return !live[f.Name] })
	for i, f := range m.Funcs {
		f.ID = lir.FuncID(i)
	}
	return len(m.Funcs) != n
}

// removeDeadGlobals drops internal globals no instruction references.
func removeDeadGlobals(m *lir.Module) bool {
	used := make(map[string]bool)
	mark := func(v lir.Value) {
		if v.Kind == lir.ValueGlobal {
			used[v.Name] = true
		}
	}
	for _, f := range m.Funcs {
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
	}
	n := len(m.Globals)
	m.Globals = slices.DeleteFunc(m.Globals, func(g *lir.Global) bool {
		return g.Linkage == lir.LinkInternal && !used[g.Name]
	})
	return len(m.Globals) != n
}
