package lir

import (
	"fmt"
	"slices"
	"strings"

	"github.com/holiman/uint256"
)

// DataLayout is the RISC-V 32-bit little-endian layout PolkaVM targets.
const DataLayout = "e-m:e-p:32:32-i64:64-n32-S128"

// Print renders m as textual LLVM IR.
func Print(m *Module) string {
	if m == nil {
		return ""
	}
	p := printer{}
	p.module(m)
	return p.buf.String()
}

type printer struct {
	buf strings.Builder
}

func (p *printer) printf(format string, args ...any) {
	fmt.Fprintf(&p.buf, format, args...)
}

func (p *printer) module(m *Module) {
	p.printf("; ModuleID = '%s'\n", m.Name)
	p.printf("source_filename = \"%s\"\n", m.Name)
	p.printf("target datalayout = \"%s\"\n", DataLayout)
	if m.Triple != "" {
		p.printf("target triple = \"%s\"\n", m.Triple)
	}
	p.buf.WriteString("\n")

	for _, g := range m.Globals {
		p.global(g)
	}
	if len(m.Globals) > 0 {
		p.buf.WriteString("\n")
	}

	for _, f := range m.Funcs {
		if f.IsDeclaration() {
			p.declaration(f)
		}
	}
	for _, f := range m.Funcs {
		if !f.IsDeclaration() {
			p.buf.WriteString("\n")
			p.function(m, f)
		}
	}

	p.attributes(m)
	p.flags(m)
}

func (p *printer) global(g *Global) {
	space := ""
	if g.Space != AddressSpaceStack {
		space = fmt.Sprintf(" addrspace(%d)", g.Space)
	}
	kind := "global"
	if g.Constant {
		kind = "constant"
	}
	if g.Linkage == LinkExternal {
		p.printf("@%s = external%s %s %s\n", g.Name, space, kind, g.Type)
		return
	}
	p.printf("@%s = internal%s %s %s %s, align %d\n", g.Name, space, kind, g.Type, initializer(g), g.Type.Align())
}

func initializer(g *Global) string {
	if len(g.Init) == 0 {
		if g.Type.IsInt() {
			return "0"
		}
		return "zeroinitializer"
	}
	if g.Type.IsInt() {
		be := slices.Clone(g.Init)
		slices.Reverse(be)
		return new(uint256.Int).SetBytes(be).Dec()
	}
	var sb strings.Builder
	sb.WriteString("c\"")
	for i := 0; i < g.Type.Size(); i++ {
		var c byte
		if i < len(g.Init) {
			c = g.Init[i]
		}
		fmt.Fprintf(&sb, "\\%02X", c)
	}
	sb.WriteString("\"")
	return sb.String()
}

func (p *printer) declaration(f *Func) {
	params := make([]string, len(f.Params))
	for i, t := range f.Params {
		params[i] = t.String()
	}
	p.printf("declare %s @%s(%s)", f.Result, quoteName(f.Name), strings.Join(params, ", "))
	if f.Linkage == LinkImport {
		p.buf.WriteString(" #1")
	}
	p.buf.WriteString("\n")
}

// quoteName quotes symbol names LLVM would not accept bare.
func quoteName(name string) string {
	for _, r := range name {
		if !(r == '_' || r == '.' || r == '$' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return fmt.Sprintf("%q", name)
		}
	}
	return name
}

func blockLabel(f *Func, id BlockID) string {
	b := f.Block(id)
	if b == nil {
		return fmt.Sprintf("invalid.%d", id)
	}
	if id == 0 {
		return "entry"
	}
	name := b.Name
	if name == "" {
		name = "bb"
	}
	return fmt.Sprintf("%s.%d", name, id)
}

func (p *printer) function(m *Module, f *Func) {
	params := make([]string, len(f.Params))
	for i, t := range f.Params {
		params[i] = fmt.Sprintf("%s %s", t, f.Param(i))
	}
	linkage := "internal "
	if f.Linkage == LinkExport {
		linkage = ""
	}
	attrs := ""
	if f.NoInline {
		attrs = " #0"
	}
	p.printf("define %s%s @%s(%s)%s {\n", linkage, f.Result, quoteName(f.Name), strings.Join(params, ", "), attrs)
	for i, b := range f.Blocks {
		if i > 0 {
			p.buf.WriteString("\n")
		}
		p.printf("%s:\n", blockLabel(f, b.ID))
		for j := range b.Instrs {
			p.printf("  %s\n", FormatInstr(&b.Instrs[j]))
		}
		p.printf("  %s\n", formatTerm(f, &b.Term))
	}
	p.buf.WriteString("}\n")
}

// FormatInstr renders one instruction in LLVM syntax.
func FormatInstr(in *Instr) string {
	dst := ""
	if in.HasResult() {
		dst = fmt.Sprintf("%%r%d = ", in.Dst)
	}
	a := in.Args
	switch {
	case in.Op.IsBinary():
		return fmt.Sprintf("%s%s %s, %s", dst, in.Op, a[0].Typed(), a[1])
	case in.Op == OpICmp:
		return fmt.Sprintf("%sicmp %s %s, %s", dst, in.Pred, a[0].Typed(), a[1])
	case in.Op == OpSelect:
		return fmt.Sprintf("%sselect %s, %s, %s", dst, a[0].Typed(), a[1].Typed(), a[2].Typed())
	case in.Op.IsCast():
		return fmt.Sprintf("%s%s %s to %s", dst, in.Op, a[0].Typed(), in.Type)
	case in.Op == OpAlloca:
		return fmt.Sprintf("%salloca %s, align %d", dst, in.Type, in.Align)
	case in.Op == OpLoad:
		return fmt.Sprintf("%sload %s, %s, align %d", dst, in.Type, a[0].Typed(), in.Align)
	case in.Op == OpStore:
		return fmt.Sprintf("store %s, %s, align %d", a[1].Typed(), a[0].Typed(), in.Align)
	case in.Op == OpGEP:
		return fmt.Sprintf("%sgetelementptr inbounds %s, %s, %s", dst, in.Type, a[0].Typed(), a[1].Typed())
	case in.Op == OpCall:
		args := make([]string, len(a))
		for i, v := range a {
			args[i] = v.Typed()
		}
		return fmt.Sprintf("%scall %s @%s(%s)", dst, in.Type, quoteName(in.Callee), strings.Join(args, ", "))
	}
	return fmt.Sprintf("; unknown op %d", in.Op)
}

func formatTerm(f *Func, t *Terminator) string {
	switch t.Kind {
	case TermRet:
		if !t.HasValue {
			return "ret void"
		}
		return "ret " + t.Value.Typed()
	case TermBr:
		return fmt.Sprintf("br label %%%s", blockLabel(f, t.Target))
	case TermCondBr:
		return fmt.Sprintf("br %s, label %%%s, label %%%s", t.Value.Typed(), blockLabel(f, t.Then), blockLabel(f, t.Else))
	case TermSwitch:
		var sb strings.Builder
		fmt.Fprintf(&sb, "switch %s, label %%%s [", t.Value.Typed(), blockLabel(f, t.Default))
		for _, c := range t.Cases {
			fmt.Fprintf(&sb, "\n    %s %s, label %%%s", t.Value.Type, c.Value.Dec(), blockLabel(f, c.Target))
		}
		sb.WriteString("\n  ]")
		return sb.String()
	case TermUnreachable:
		return "unreachable"
	}
	return "; missing terminator"
}

func (p *printer) attributes(m *Module) {
	noinline, imports := false, false
	for _, f := range m.Funcs {
		noinline = noinline || (f.NoInline && !f.IsDeclaration())
		imports = imports || (f.Linkage == LinkImport)
	}
	if noinline || imports {
		p.buf.WriteString("\n")
	}
	if noinline {
		p.buf.WriteString("attributes #0 = { noinline }\n")
	}
	if imports {
		p.buf.WriteString("attributes #1 = { nounwind }\n")
	}
}

func (p *printer) flags(m *Module) {
	if len(m.Flags) == 0 {
		return
	}
	keys := make([]string, 0, len(m.Flags))
	for k := range m.Flags {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	p.buf.WriteString("\n!llvm.module.flags = !{")
	for i := range keys {
		if i > 0 {
			p.buf.WriteString(", ")
		}
		p.printf("!%d", i)
	}
	p.buf.WriteString("}\n")
	for i, k := range keys {
		p.printf("!%d = !{i32 7, !\"%s\", i32 %d}\n", i, k, m.Flags[k])
	}
}
