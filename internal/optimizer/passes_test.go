package optimizer

import (
	"testing"

	"github.com/paritytech/revive-sub000/internal/lir"
)

func newFunc(t *testing.T, name string, params []lir.Type, result lir.Type) (*lir.Module, *lir.Builder) {
	t.Helper()
	m := lir.NewModule("test")
	funcs := lir.NewFunctionTable(m)
	b := lir.NewBuilder(m, funcs, lir.NewGlobalTable(m))
	id, err := funcs.Define(name, params, result, lir.LinkExport)
	if err != nil {
		t.Fatal(err)
	}
	b.EnterFunc(id)
	return m, b
}

func verify(t *testing.T, m *lir.Module) {
	t.Helper()
	if err := lir.Verify(m); err != nil {
		t.Fatalf("Verify:\n%v\n%s", err, lir.Print(m))
	}
}

func TestFoldConstants(t *testing.T) {
	m, b := newFunc(t, "f", []lir.Type{lir.Word}, lir.Word)
	five := b.Add(lir.Const(lir.Word, 2), lir.Const(lir.Word, 3))
	x := b.Mul(b.Func().Param(0), five)
	b.Ret(b.Add(x, lir.Const(lir.Word, 0)))

	f := b.Func()
	if !foldConstants(f) {
		t.Fatal("nothing folded")
	}
	eliminateDeadCode(f)
	verify(t, m)

	entry := f.Blocks[0]
	if len(entry.Instrs) != 1 || entry.Instrs[0].Op != lir.OpMul {
		t.Fatalf("entry:\n%s", lir.Print(m))
	}
	if got := entry.Instrs[0].Args[1]; got != lir.Const(lir.Word, 5) {
		t.Fatalf("multiplier = %v, want 5", got)
	}
	if entry.Term.Value != x {
		t.Fatalf("returns %v, want %v", entry.Term.Value, x)
	}
}

func TestFoldLeavesPoison(t *testing.T) {
	tests := []struct {
		name string
		op   lir.Op
		y    uint64
	}{
		{"udiv by zero", lir.OpUDiv, 0},
		{"srem by zero", lir.OpSRem, 0},
		{"shift past width", lir.OpShl, 256},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, b := newFunc(t, "f", nil, lir.Word)
			b.Ret(b.Binary(tt.op, lir.Const(lir.Word, 7), lir.Const(lir.Word, tt.y)))
			f := b.Func()
			foldConstants(f)
			if len(f.Blocks[0].Instrs) != 1 {
				t.Fatalf("poison folded away")
			}
		})
	}
}

func TestFoldCompare(t *testing.T) {
	_, b := newFunc(t, "f", []lir.Type{lir.Word}, lir.I1)
	x := b.Func().Param(0)
	always := b.ICmp(lir.PredULE, x, x)
	never := b.ICmp(lir.PredULT, x, lir.Const(lir.Word, 0))
	b.Ret(b.Select(always, never, always))
	f := b.Func()
	foldConstants(f)
	eliminateDeadCode(f)
	if len(f.Blocks[0].Instrs) != 0 {
		t.Fatalf("%d instructions left", len(f.Blocks[0].Instrs))
	}
	if got := f.Blocks[0].Term.Value; got != lir.Const(lir.I1, 0) {
		t.Fatalf("returns %v, want false", got)
	}
}

func TestDeadStores(t *testing.T) {
	m, b := newFunc(t, "f", []lir.Type{lir.Word}, lir.Word)
	dead := b.Alloca(lir.Word)
	live := b.Alloca(lir.Word)
	b.Store(dead, b.Func().Param(0))
	b.Store(live, b.Func().Param(0))
	b.Ret(b.Load(live))

	f := b.Func()
	if !eliminateDeadStores(f) {
		t.Fatal("no store removed")
	}
	eliminateDeadCode(f)
	verify(t, m)
	if got := len(f.Blocks[0].Instrs); got != 3 {
		t.Fatalf("%d instructions left, want 3:\n%s", got, lir.Print(m))
	}
}

func TestSimplifyCFG(t *testing.T) {
	m, b := newFunc(t, "f", []lir.Type{lir.Word}, lir.Word)
	x := b.Func().Param(0)
	then := b.AppendBlock("then")
	els := b.AppendBlock("else")
	hop := b.AppendBlock("hop")
	join := b.AppendBlock("join")
	b.CondBr(lir.Const(lir.I1, 1), then, els)

	b.SetInsertPoint(then)
	y := b.Add(x, lir.Const(lir.Word, 1))
	b.Br(hop)

	b.SetInsertPoint(els)
	b.Unreachable()

	b.SetInsertPoint(hop)
	b.Br(join)

	b.SetInsertPoint(join)
	b.Ret(y)

	f := b.Func()
	if !simplifyCFG(f) {
		t.Fatal("nothing simplified")
	}
	verify(t, m)
	if len(f.Blocks) != 1 {
		t.Fatalf("%d blocks left:\n%s", len(f.Blocks), lir.Print(m))
	}
	if f.Blocks[0].Term.Kind != lir.TermRet || len(f.Blocks[0].Instrs) != 1 {
		t.Fatalf("unexpected body:\n%s", lir.Print(m))
	}
}

func TestSimplifyCFGKeepsLoops(t *testing.T) {
	m, b := newFunc(t, "f", nil, lir.Void)
	loop := b.AppendBlock("loop")
	b.Br(loop)
	b.SetInsertPoint(loop)
	b.Br(loop)

	f := b.Func()
	simplifyCFG(f)
	verify(t, m)
	if len(f.Blocks) != 2 || f.Blocks[1].Term.Target != 1 {
		t.Fatalf("loop broken:\n%s", lir.Print(m))
	}
}

func TestInline(t *testing.T) {
	m, b := newFunc(t, "main", []lir.Type{lir.Word}, lir.Word)
	main := b.Funcs.CurrentID()
	sq, err := b.Funcs.Define("square", []lir.Type{lir.Word}, lir.Word, lir.LinkInternal)
	if err != nil {
		t.Fatal(err)
	}
	b.EnterFunc(sq)
	p := b.Func().Param(0)
	b.Ret(b.Mul(p, p))

	b.EnterFunc(main)
	x := b.Func().Param(0)
	b.Ret(b.Add(b.Call("square", x), b.Call("square", lir.Const(lir.Word, 3))))

	changed, err := inlineCalls(m, LevelAggressive.inlineThreshold())
	if err != nil || !changed {
		t.Fatalf("inline: changed=%v err=%v", changed, err)
	}
	verify(t, m)
	if n := callSites(m)["square"]; n != 0 {
		t.Fatalf("%d calls to square left:\n%s", n, lir.Print(m))
	}
	if !removeDeadFunctions(m) || m.Func("square") != nil {
		t.Fatal("square survived")
	}
	verify(t, m)
}

func TestInlineSkipsRecursionAndNoInline(t *testing.T) {
	m, b := newFunc(t, "main", nil, lir.Void)
	main := b.Funcs.CurrentID()
	rec, _ := b.Funcs.Define("rec", nil, lir.Void, lir.LinkInternal)
	keep, _ := b.Funcs.Define("keep", nil, lir.Void, lir.LinkInternal)

	b.EnterFunc(rec)
	b.Call("rec")
	b.RetVoid()

	b.EnterFunc(keep)
	b.Func().NoInline = true
	b.RetVoid()

	b.EnterFunc(main)
	b.Call("rec")
	b.Call("keep")
	b.RetVoid()

	if changed, err := inlineCalls(m, LevelAggressive.inlineThreshold()); err != nil || changed {
		t.Fatalf("inline: changed=%v err=%v", changed, err)
	}
	verify(t, m)
}

func TestRemoveDeadGlobals(t *testing.T) {
	m, b := newFunc(t, "f", nil, lir.Word)
	b.Globals.Declare(lir.Global{Name: "used", Type: lir.Word})
	b.Globals.Declare(lir.Global{Name: "unused", Type: lir.Word})
	b.Globals.Declare(lir.Global{Name: "ext", Type: lir.Word, Linkage: lir.LinkExternal})
	b.Ret(b.Load(b.Globals.Pointer("used", lir.Word)))

	if !removeDeadGlobals(m) {
		t.Fatal("nothing removed")
	}
	if m.Global("unused") != nil || m.Global("used") == nil || m.Global("ext") == nil {
		t.Fatalf("globals after removal: %d", len(m.Globals))
	}
}

func TestInlineThreshold(t *testing.T) {
	tests := []struct {
		level Level
		want  int
	}{
		{LevelNone, -1},
		{LevelLess, -1},
		{LevelDefault, 24},
		{LevelAggressive, 96},
		{LevelSize, 12},
		{LevelMinSize, 0},
	}
	for _, tt := range tests {
		if got := tt.level.inlineThreshold(); got != tt.want {
			t.Errorf("%s: threshold %d, want %d", tt.level, got, tt.want)
		}
	}
}
