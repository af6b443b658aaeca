package lir_test

import (
	"strings"
	"testing"

	"github.com/paritytech/revive-sub000/internal/lir"
)

func newFunc(t *testing.T, name string, params []lir.Type, result lir.Type) (*lir.Module, *lir.Builder) {
	t.Helper()
	m := lir.NewModule("test")
	funcs := lir.NewFunctionTable(m)
	globals := lir.NewGlobalTable(m)
	b := lir.NewBuilder(m, funcs, globals)
	id, err := funcs.Define(name, params, result, lir.LinkInternal)
	if err != nil {
		t.Fatalf("define: %v", err)
	}
	b.EnterFunc(id)
	return m, b
}

func TestBuilderGEPSpaces(t *testing.T) {
	tests := []struct {
		space lir.AddressSpace
		ok    bool
	}{
		{lir.AddressSpaceStack, true},
		{lir.AddressSpaceGeneric, true},
		{lir.AddressSpaceHeap, false},
		{lir.AddressSpaceCode, false},
		{lir.AddressSpaceStorage, false},
		{lir.AddressSpaceTransientStorage, false},
	}
	for _, tt := range tests {
		t.Run(tt.space.String(), func(t *testing.T) {
			_, b := newFunc(t, "f", []lir.Type{lir.I32}, lir.Void)
			p := b.IntToPtr(b.Func().Param(0), lir.Word, tt.space)
			q, err := b.GEP(p, lir.Const(lir.I32, 1))
			if tt.ok != (err == nil) {
				t.Fatalf("GEP on %s: err=%v, want ok=%v", tt.space, err, tt.ok)
			}
			if err == nil && q.Space() != tt.space {
				t.Fatalf("GEP changed space to %s", q.Space())
			}
		})
	}
}

func TestBuilderAllocaInEntryPrologue(t *testing.T) {
	_, b := newFunc(t, "f", nil, lir.Void)
	x := b.Alloca(lir.Word)
	b.Store(x, lir.Const(lir.Word, 7))
	next := b.AppendBlock("next")
	b.Br(next)
	b.SetInsertPoint(next)
	y := b.Alloca(lir.I32)
	b.Store(y, lir.Const(lir.I32, 1))
	b.RetVoid()

	entry := b.Func().Blocks[0]
	if len(entry.Instrs) != 3 {
		t.Fatalf("entry has %d instructions, want 3", len(entry.Instrs))
	}
	for i, want := range []lir.Op{lir.OpAlloca, lir.OpAlloca, lir.OpStore} {
		if got := entry.Instrs[i].Op; got != want {
			t.Errorf("entry[%d] = %s, want %s", i, got, want)
		}
	}
}

func TestBuilderTerminateOnce(t *testing.T) {
	_, b := newFunc(t, "f", nil, lir.Void)
	b.Unreachable()
	b.RetVoid()
	if got := b.Func().Blocks[0].Term.Kind; got != lir.TermUnreachable {
		t.Fatalf("terminator = %d, want unreachable", got)
	}
	if !b.Terminated() {
		t.Fatal("block should be terminated")
	}
}

func TestBuilderCastsAreNoOpsOnSameType(t *testing.T) {
	_, b := newFunc(t, "f", []lir.Type{lir.Word}, lir.Word)
	v := b.Func().Param(0)
	if got := b.ZExtOrTrunc(v, lir.Word); got != v {
		t.Fatalf("ZExtOrTrunc on same type returned %v", got)
	}
	n := b.Trunc(v, lir.I32)
	w := b.ZExt(n, lir.Word)
	b.Ret(w)
	if got := len(b.Func().Blocks[0].Instrs); got != 2 {
		t.Fatalf("got %d instructions, want 2", got)
	}
}

func TestModuleCloneIsDeep(t *testing.T) {
	m, b := newFunc(t, "f", nil, lir.Word)
	b.Globals.Declare(lir.Global{Name: "g", Type: lir.Word, Init: []byte{1}})
	b.Ret(lir.Const(lir.Word, 3))
	m.Flags["PIE Level"] = 2

	c := m.Clone()
	c.Funcs[0].Blocks[0].Term.Value = lir.Const(lir.Word, 4)
	c.Globals[0].Init[0] = 9
	c.Flags["PIE Level"] = 0

	if got := m.Funcs[0].Blocks[0].Term.Value.Const.Uint64(); got != 3 {
		t.Errorf("original ret changed to %d", got)
	}
	if m.Globals[0].Init[0] != 1 {
		t.Errorf("original global init changed")
	}
	if m.Flags["PIE Level"] != 2 {
		t.Errorf("original flags changed")
	}
}

func TestFunctionTableDefineTwice(t *testing.T) {
	m := lir.NewModule("test")
	funcs := lir.NewFunctionTable(m)
	if _, err := funcs.Define("f", nil, lir.Void, lir.LinkInternal); err != nil {
		t.Fatal(err)
	}
	_, err := funcs.Define("f", nil, lir.Void, lir.LinkInternal)
	if err == nil || !strings.Contains(err.Error(), "already defined") {
		t.Fatalf("second Define: err=%v", err)
	}
	if id := funcs.Declare("f", nil, lir.Void, lir.LinkImport); m.Funcs[id].Linkage != lir.LinkInternal {
		t.Fatal("Declare must not override an existing function")
	}
}

func TestLoopStack(t *testing.T) {
	var s lir.LoopStack
	if _, ok := s.Top(); ok {
		t.Fatal("empty stack has a top")
	}
	s.Push(lir.Loop{Continue: 1, Break: 2})
	s.Push(lir.Loop{Continue: 3, Break: 4})
	if top, _ := s.Top(); top.Break != 4 {
		t.Fatalf("top = %+v", top)
	}
	s.Pop()
	if top, _ := s.Top(); top.Continue != 1 || s.Len() != 1 {
		t.Fatalf("after pop top = %+v len=%d", top, s.Len())
	}
}
