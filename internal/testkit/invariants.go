// Package testkit holds invariant checks shared by tests of several
// packages.
package testkit

import (
	"errors"
	"fmt"

	"fortio.org/safecast"

	"github.com/paritytech/revive-sub000/internal/lir"
	"github.com/paritytech/revive-sub000/internal/runtimeabi"
	"github.com/paritytech/revive-sub000/internal/tac"
)

// CheckStackInfo checks the resolver invariant of one block:
// arguments plus final height equal the number of generated slots.
func CheckStackInfo(info tac.StackInfo) error {
	if info.Arguments < 0 {
		return fmt.Errorf("negative argument count: %+v", info)
	}
	if info.Arguments+info.Height != len(info.Generates) {
		return fmt.Errorf("stack invariant broken: %d arguments + height %d != %d generated",
			info.Arguments, info.Height, len(info.Generates))
	}
	return nil
}

// CheckProgram runs CheckStackInfo on every code node of p.
func CheckProgram(p *tac.Program) error {
	if p == nil {
		return fmt.Errorf("nil program")
	}
	var errs []error
	for _, n := range p.CFG.Nodes() {
		if n.Kind != tac.NodeCode {
			continue
		}
		if err := CheckStackInfo(n.Stack); err != nil {
			errs = append(errs, fmt.Errorf("node %d at %d: %w", n.ID, n.Start, err))
		}
	}
	return errors.Join(errs...)
}

// CheckModule verifies m and checks that it exports both entry points and
// that every defined function ends each block with a terminator.
func CheckModule(m *lir.Module) error {
	if m == nil {
		return fmt.Errorf("nil module")
	}
	var errs []error
	if err := lir.Verify(m); err != nil {
		errs = append(errs, err)
	}
	for _, name := range []string{runtimeabi.ExportCall, runtimeabi.ExportDeploy} {
		f := m.Func(name)
		if f == nil || f.IsDeclaration() || f.Linkage != lir.LinkExport {
			errs = append(errs, fmt.Errorf("missing export %q", name))
		}
	}
	for _, f := range m.Funcs {
		for _, b := range f.Blocks {
			if b.Term.Kind == lir.TermNone {
				errs = append(errs, fmt.Errorf("%s: block %d has no terminator", f.Name, b.ID))
			}
		}
		if _, err := safecast.Conv[int32](len(f.Regs)); err != nil {
			errs = append(errs, fmt.Errorf("%s: register count overflow: %w", f.Name, err))
		}
	}
	return errors.Join(errs...)
}
