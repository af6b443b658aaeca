package runtimeabi_test

import (
	"strings"
	"testing"

	"github.com/paritytech/revive-sub000/internal/lir"
	"github.com/paritytech/revive-sub000/internal/runtimeabi"
)

func newModule(t *testing.T, immutables int) (*lir.Module, *lir.Builder) {
	t.Helper()
	m := lir.NewModule("test")
	b := lir.NewBuilder(m, lir.NewFunctionTable(m), lir.NewGlobalTable(m))
	rt := runtimeabi.Runtime{Memory: runtimeabi.DefaultMemoryConfig(), Immutables: immutables}
	rt.Declare(b)
	for _, code := range []string{runtimeabi.DeployCode, runtimeabi.RuntimeCode} {
		id, err := b.Funcs.Define(code, nil, lir.Void, lir.LinkInternal)
		if err != nil {
			t.Fatal(err)
		}
		b.EnterFunc(id)
		b.RetVoid()
	}
	if err := rt.Define(b); err != nil {
		t.Fatalf("Define: %v", err)
	}
	if err := rt.DefineEntry(b, runtimeabi.ExportDeploy, runtimeabi.DeployCode); err != nil {
		t.Fatal(err)
	}
	if err := rt.DefineEntry(b, runtimeabi.ExportCall, runtimeabi.RuntimeCode); err != nil {
		t.Fatal(err)
	}
	return m, b
}

func TestRuntimeModuleVerifies(t *testing.T) {
	m, _ := newModule(t, 2)
	if err := lir.Verify(m); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if err := runtimeabi.Link(m); err != nil {
		t.Fatalf("Link: %v", err)
	}
	if err := lir.Verify(m); err != nil {
		t.Fatalf("Verify after link: %v", err)
	}
	g := m.Global(runtimeabi.GlobalImmutableDataSize)
	if g == nil || g.Init[0] != 64 {
		t.Fatalf("immutable data size global = %+v", g)
	}
}

func TestRuntimeDefineTwiceFails(t *testing.T) {
	_, b := newModule(t, 0)
	rt := runtimeabi.Runtime{Memory: runtimeabi.DefaultMemoryConfig()}
	if err := rt.Define(b); err == nil || !strings.Contains(err.Error(), "already defined") {
		t.Fatalf("second Define: %v", err)
	}
}

func TestLinkDropsUnusedDeclarations(t *testing.T) {
	m, b := newModule(t, 0)
	runtimeabi.DeclareImport(b.Funcs, runtimeabi.Balance)
	if m.Func(runtimeabi.Balance) == nil {
		t.Fatal("balance not declared")
	}
	if err := runtimeabi.Link(m); err != nil {
		t.Fatal(err)
	}
	if m.Func(runtimeabi.Balance) != nil {
		t.Error("unused syscall survived linking")
	}
	if m.Func(runtimeabi.SealReturn) == nil {
		t.Error("used syscall was dropped")
	}
	if m.Func(runtimeabi.BuiltinExp) != nil {
		t.Error("unused builtin survived linking")
	}
	for i, f := range m.Funcs {
		if f.ID != lir.FuncID(i) {
			t.Fatalf("function %s has id %d at index %d", f.Name, f.ID, i)
		}
	}
}

func TestLinkRejectsForeignDeclarations(t *testing.T) {
	tests := []struct {
		name    string
		declare func(*lir.FunctionTable)
		want    string
	}{
		{"unknown syscall", func(ft *lir.FunctionTable) {
			ft.Declare("seal_terminate", []lir.Type{lir.I32}, lir.Void, lir.LinkImport)
		}, "unknown syscall seal_terminate"},
		{"wrong signature", func(ft *lir.FunctionTable) {
			ft.Declare(runtimeabi.Caller, nil, lir.Void, lir.LinkImport)
		}, "foreign signature"},
		{"unknown builtin", func(ft *lir.FunctionTable) {
			ft.Declare("__revive_sdiv", nil, lir.Word, lir.LinkBuiltin)
		}, "unknown builtin"},
		{"undefined internal", func(ft *lir.FunctionTable) {
			ft.Declare("helper", nil, lir.Void, lir.LinkInternal)
		}, "declared but not defined"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := lir.NewModule("test")
			tt.declare(lir.NewFunctionTable(m))
			err := runtimeabi.Link(m)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Link: %v, want %q", err, tt.want)
			}
		})
	}
}

func TestImportsSortedAndUnique(t *testing.T) {
	for i := 1; i < len(runtimeabi.Imports); i++ {
		if runtimeabi.Imports[i-1].Name >= runtimeabi.Imports[i].Name {
			t.Fatalf("imports out of order at %s", runtimeabi.Imports[i].Name)
		}
	}
	for _, imp := range runtimeabi.Imports {
		if got, ok := runtimeabi.LookupImport(imp.Name); !ok || got.Name != imp.Name {
			t.Errorf("LookupImport(%s) = %v, %v", imp.Name, got, ok)
		}
		if imp.Name == runtimeabi.ExportCall || imp.Name == runtimeabi.ExportDeploy {
			t.Errorf("syscall %s shadows an export", imp.Name)
		}
	}
	if _, ok := runtimeabi.LookupImport("nope"); ok {
		t.Error("LookupImport found an unknown syscall")
	}
}

func TestMemoryConfigValidate(t *testing.T) {
	if err := runtimeabi.DefaultMemoryConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	bad := runtimeabi.MemoryConfig{HeapSize: 33}
	err := bad.Validate()
	if err == nil {
		t.Fatal("expected errors")
	}
	for _, want := range []string{"multiple of 32", "stack size", "call data size"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func TestRuntimeValidateImmutables(t *testing.T) {
	cases := []struct {
		immutables int
		ok         bool
	}{
		{0, true},
		{2, true},
		{(1<<32 - 1) / runtimeabi.WordSize, true},
		{-1, false},
		{1 << 27, false},
	}
	for _, tc := range cases {
		rt := runtimeabi.Runtime{Memory: runtimeabi.DefaultMemoryConfig(), Immutables: tc.immutables}
		if err := rt.Validate(); (err == nil) != tc.ok {
			t.Errorf("Validate(%d) = %v, want ok=%v", tc.immutables, err, tc.ok)
		}
	}
}

func TestImmutableDataSizePanicsOnNegativeCount(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("no panic for a negative immutable count")
		}
	}()
	runtimeabi.Runtime{Immutables: -1}.ImmutableDataSize()
}
