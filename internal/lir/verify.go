package lir

import (
	"errors"
	"fmt"
)

// Verify checks module invariants. All violations are reported together.
func Verify(m *Module) error {
	if m == nil {
		return nil
	}
	var errs []error
	seen := make(map[string]bool, len(m.Funcs))
	for _, f := range m.Funcs {
		if f == nil {
			continue
		}
		if seen[f.Name] {
			errs = append(errs, fmt.Errorf("function %s: duplicate definition", f.Name))
		}
		seen[f.Name] = true
		if f.IsDeclaration() {
			if f.Linkage == LinkInternal || f.Linkage == LinkExport {
				errs = append(errs, fmt.Errorf("function %s: %s function has no body", f.Name, f.Linkage))
			}
			continue
		}
		if err := verifyFunc(m, f); err != nil {
			errs = append(errs, fmt.Errorf("function %s: %w", f.Name, err))
		}
	}
	return errors.Join(errs...)
}

func verifyFunc(m *Module, f *Func) error {
	var errs []error

	// 1. Блоки завершены, цели существуют
	for _, b := range f.Blocks {
		if b.Term.Kind == TermNone {
			errs = append(errs, fmt.Errorf("%s: unterminated block", blockLabel(f, b.ID)))
			continue
		}
		for _, s := range b.Term.Successors() {
			if f.Block(s) == nil || s == 0 {
				errs = append(errs, fmt.Errorf("%s: invalid branch target %d", blockLabel(f, b.ID), s))
			}
		}
	}

	// 2. Регистры определены ровно один раз
	defined := make([]bool, len(f.Regs))
	for i := range f.Params {
		if i < len(defined) {
			defined[i] = true
		}
	}
	for _, b := range f.Blocks {
		for i := range b.Instrs {
			in := &b.Instrs[i]
			if !in.HasResult() {
				continue
			}
			if in.Dst < 0 || int(in.Dst) >= len(f.Regs) {
				errs = append(errs, fmt.Errorf("%s: register %%r%d out of range", blockLabel(f, b.ID), in.Dst))
				continue
			}
			if defined[in.Dst] {
				errs = append(errs, fmt.Errorf("%s: register %%r%d defined twice", blockLabel(f, b.ID), in.Dst))
			}
			defined[in.Dst] = true
			if want := f.Regs[in.Dst]; want != in.resultType() {
				errs = append(errs, fmt.Errorf("%s: %%r%d has type %s, instruction yields %s", blockLabel(f, b.ID), in.Dst, want, in.resultType()))
			}
		}
	}

	// 3. Операнды и правила адресных пространств
	for _, b := range f.Blocks {
		label := blockLabel(f, b.ID)
		for i := range b.Instrs {
			in := &b.Instrs[i]
			for _, a := range in.Args {
				if err := verifyValue(m, f, defined, a); err != nil {
					errs = append(errs, fmt.Errorf("%s: %s: %w", label, in.Op, err))
				}
			}
			if err := verifyInstr(m, in); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", label, err))
			}
		}
		if b.Term.HasValue {
			if err := verifyValue(m, f, defined, b.Term.Value); err != nil {
				errs = append(errs, fmt.Errorf("%s: terminator: %w", label, err))
			}
		}
		if err := verifyTerm(f, &b.Term); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", label, err))
		}
	}

	return errors.Join(errs...)
}

func verifyValue(m *Module, f *Func, defined []bool, v Value) error {
	switch v.Kind {
	case ValueReg:
		if v.Reg < 0 || int(v.Reg) >= len(f.Regs) || !defined[v.Reg] {
			return fmt.Errorf("use of undefined register %%r%d", v.Reg)
		}
		if f.Regs[v.Reg] != v.Type {
			return fmt.Errorf("%%r%d used as %s, defined as %s", v.Reg, v.Type, f.Regs[v.Reg])
		}
	case ValueGlobal:
		g := m.Global(v.Name)
		if g == nil {
			return fmt.Errorf("use of undeclared global @%s", v.Name)
		}
		if g.Space != v.Type.Space {
			return fmt.Errorf("global @%s lives in %s, referenced as %s", v.Name, g.Space, v.Type.Space)
		}
	case ValueNone:
		return errors.New("missing operand")
	}
	return nil
}

func verifyInstr(m *Module, in *Instr) error {
	want := func(n int) error {
		if len(in.Args) != n {
			return fmt.Errorf("%s: want %d operands, got %d", in.Op, n, len(in.Args))
		}
		return nil
	}
	switch {
	case in.Op.IsBinary(), in.Op == OpICmp:
		if err := want(2); err != nil {
			return err
		}
		if !in.Args[0].Type.IsInt() || in.Args[0].Type != in.Args[1].Type {
			return fmt.Errorf("%s: operand types %s and %s", in.Op, in.Args[0].Type, in.Args[1].Type)
		}
	case in.Op == OpSelect:
		if err := want(3); err != nil {
			return err
		}
		if in.Args[0].Type != I1 || in.Args[1].Type != in.Args[2].Type {
			return fmt.Errorf("select: operand types %s, %s, %s", in.Args[0].Type, in.Args[1].Type, in.Args[2].Type)
		}
	case in.Op == OpZExt, in.Op == OpSExt:
		if err := want(1); err != nil {
			return err
		}
		if in.Args[0].Type.Bits >= in.Type.Bits {
			return fmt.Errorf("%s: %s is not narrower than %s", in.Op, in.Args[0].Type, in.Type)
		}
	case in.Op == OpTrunc:
		if err := want(1); err != nil {
			return err
		}
		if in.Args[0].Type.Bits <= in.Type.Bits {
			return fmt.Errorf("trunc: %s is not wider than %s", in.Args[0].Type, in.Type)
		}
	case in.Op == OpLoad, in.Op == OpStore:
		n := 1
		if in.Op == OpStore {
			n = 2
		}
		if err := want(n); err != nil {
			return err
		}
		p := in.Args[0].Type
		if !p.IsPtr() || p.Space != AddressSpaceStack {
			return fmt.Errorf("%s through %s pointer", in.Op, spaceOf(p))
		}
	case in.Op == OpGEP:
		if err := want(2); err != nil {
			return err
		}
		p := in.Args[0].Type
		if !p.IsPtr() || !p.Space.AllowsPointerArithmetic() {
			return fmt.Errorf("getelementptr on %s pointer", spaceOf(p))
		}
	case in.Op == OpCall:
		callee := m.Func(in.Callee)
		if callee == nil {
			return fmt.Errorf("call to unknown function %s", in.Callee)
		}
		if len(in.Args) != len(callee.Params) {
			return fmt.Errorf("call %s: want %d arguments, got %d", in.Callee, len(callee.Params), len(in.Args))
		}
		for i, a := range in.Args {
			if a.Type != callee.Params[i] {
				return fmt.Errorf("call %s: argument %d has type %s, want %s", in.Callee, i, a.Type, callee.Params[i])
			}
		}
		if in.Type != callee.Result {
			return fmt.Errorf("call %s: result %s, want %s", in.Callee, in.Type, callee.Result)
		}
	}
	return nil
}

func spaceOf(t Type) string {
	if !t.IsPtr() {
		return "non-pointer " + t.String()
	}
	return t.Space.String()
}

func verifyTerm(f *Func, t *Terminator) error {
	switch t.Kind {
	case TermRet:
		if f.Result.Kind == TypeVoid {
			if t.HasValue {
				return errors.New("ret with value in void function")
			}
			return nil
		}
		if !t.HasValue || t.Value.Type != f.Result {
			return fmt.Errorf("ret type mismatch: want %s", f.Result)
		}
	case TermCondBr:
		if t.Value.Type != I1 {
			return fmt.Errorf("conditional branch on %s", t.Value.Type)
		}
	case TermSwitch:
		if !t.Value.Type.IsInt() {
			return fmt.Errorf("switch on %s", t.Value.Type)
		}
		seen := make(map[[4]uint64]bool, len(t.Cases))
		for _, c := range t.Cases {
			key := [4]uint64(c.Value)
			if seen[key] {
				return fmt.Errorf("duplicate switch case %s", c.Value.Dec())
			}
			seen[key] = true
		}
	}
	return nil
}
