package runtimeabi

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/paritytech/revive-sub000/internal/lir"
)

// Link checks the declarations of m against the host ABI and drops the ones
// nothing calls. Every declaration must be a known syscall with the ABI
// signature, a builtin or a code generator intrinsic.
func Link(m *lir.Module) error {
	used := make(map[string]bool)
	for _, f := range m.Funcs {
		for _, b := range f.Blocks {
			for i := range b.Instrs {
				if b.Instrs[i].Op == lir.OpCall {
					used[b.Instrs[i].Callee] = true
				}
			}
		}
	}

	var errs []error
	m.Funcs = slices.DeleteFunc(m.Funcs, func(f *lir.Func) bool {
		if !f.IsDeclaration() {
			return false
		}
		switch f.Linkage {
		case lir.LinkImport:
			imp, ok := LookupImport(f.Name)
			if !ok {
				errs = append(errs, fmt.Errorf("unknown syscall %s", f.Name))
			} else if !slices.Equal(imp.Params, f.Params) || imp.Result != f.Result {
				errs = append(errs, fmt.Errorf("syscall %s declared with a foreign signature", f.Name))
			}
		case lir.LinkBuiltin:
			if !IsBuiltin(f.Name) {
				errs = append(errs, fmt.Errorf("unknown builtin %s", f.Name))
			}
		case lir.LinkIntrinsic:
			if !strings.HasPrefix(f.Name, "llvm.") {
				errs = append(errs, fmt.Errorf("unknown intrinsic %s", f.Name))
			}
		default:
			errs = append(errs, fmt.Errorf("function %s declared but not defined", f.Name))
		}
		return !used[f.Name]
	})
	for i, f := range m.Funcs {
		f.ID = lir.FuncID(i)
	}
	return errors.Join(errs...)
}
