package lir_test

import (
	"strings"
	"testing"

	"github.com/paritytech/revive-sub000/internal/lir"
)

func TestPrintModule(t *testing.T) {
	m := lir.NewModule("Counter")
	m.Triple = "riscv32-unknown-unknown-elf"
	m.Flags["PIE Level"] = 2
	funcs := lir.NewFunctionTable(m)
	globals := lir.NewGlobalTable(m)
	b := lir.NewBuilder(m, funcs, globals)

	globals.Declare(lir.Global{Name: "__memory_size", Type: lir.I32, Init: []byte{0x20}})
	globals.Declare(lir.Global{Name: "__factory_dependency.abc", Type: lir.Array(8, 32), Linkage: lir.LinkExternal, Constant: true})
	funcs.Declare("seal_return", []lir.Type{lir.I32, lir.I32, lir.I32}, lir.Void, lir.LinkImport)

	id, err := funcs.Define("call", nil, lir.Void, lir.LinkExport)
	if err != nil {
		t.Fatal(err)
	}
	b.EnterFunc(id)
	size := b.Load(globals.Pointer("__memory_size", lir.I32))
	b.Call("seal_return", lir.Const(lir.I32, 0), lir.Const(lir.I32, 0), size)
	b.Unreachable()

	out := lir.Print(m)
	for _, want := range []string{
		"; ModuleID = 'Counter'",
		`target datalayout = "e-m:e-p:32:32-i64:64-n32-S128"`,
		`target triple = "riscv32-unknown-unknown-elf"`,
		"@__memory_size = internal global i32 32, align 4",
		"@__factory_dependency.abc = external constant [32 x i8]",
		"declare void @seal_return(i32, i32, i32) #1",
		"define void @call() {",
		"%r0 = load i32, ptr @__memory_size, align 4",
		"call void @seal_return(i32 0, i32 0, i32 %r0)",
		"unreachable",
		"attributes #1 = { nounwind }",
		`!0 = !{i32 7, !"PIE Level", i32 2}`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestFormatInstr(t *testing.T) {
	_, b := newFunc(t, "f", []lir.Type{lir.Word}, lir.Void)
	x := b.Func().Param(0)
	b.Shl(x, lir.Const(lir.Word, 8))
	b.ICmp(lir.PredEQ, x, lir.Const(lir.Word, 0))
	b.Trunc(x, lir.I32)
	b.RetVoid()

	instrs := b.Func().Blocks[0].Instrs
	want := []string{
		"%r1 = shl i256 %r0, 8",
		"%r2 = icmp eq i256 %r0, 0",
		"%r3 = trunc i256 %r0 to i32",
	}
	for i, w := range want {
		if got := lir.FormatInstr(&instrs[i]); got != w {
			t.Errorf("instr %d = %q, want %q", i, got, w)
		}
	}
}
