package tac

import (
	"math/rand/v2"
	"testing"

	"github.com/paritytech/revive-sub000/internal/evm"
	"github.com/paritytech/revive-sub000/internal/symbol"
)

func translate(t *testing.T, code ...evm.Instruction) ([]Instr, StackInfo, *symbol.Table) {
	t.Helper()
	tbl := symbol.NewTable()
	b := NewBlockBuilder(0, tbl)
	for _, in := range code {
		b.Translate(in)
	}
	instrs, info := b.Done()
	return instrs, info, tbl
}

func dup(n int) evm.Instruction  { return evm.Op(evm.DUP1 + evm.OpCode(n-1)) }
func swap(n int) evm.Instruction { return evm.Op(evm.SWAP1 + evm.OpCode(n-1)) }

func TestStackSlot(t *testing.T) {
	s := state{tbl: symbol.NewTable(), arguments: make(map[int]symbol.ID)}

	s.push(s.tbl.Temporary(0))
	checkSlots(t, &s, -1, 0, 1)

	s.pop()
	s.pop()
	checkSlots(t, &s, 1, 2, 3)

	s.push(s.tbl.Temporary(0))
	s.push(s.tbl.Temporary(0))
	checkSlots(t, &s, -1, 0, 1)
}

func checkSlots(t *testing.T, s *state, want ...int) {
	t.Helper()
	for n, w := range want {
		if got := s.slot(n); got != w {
			t.Errorf("slot(%d) = %d, want %d", n, got, w)
		}
	}
}

func TestStackInfo(t *testing.T) {
	tests := []struct {
		name                         string
		code                         []evm.Instruction
		height, arguments, generates int
	}{
		{"push", []evm.Instruction{evm.Push(1)}, 1, 0, 1},
		{"add", []evm.Instruction{evm.Op(evm.ADD)}, -1, 2, 1},
		{"dup4", []evm.Instruction{dup(4)}, 1, 0, 1},
		{"swap4", []evm.Instruction{swap(4)}, 0, 0, 0},
		{"jump", []evm.Instruction{evm.Op(evm.JUMP)}, -1, 1, 0},
		{"pop5_push2", []evm.Instruction{
			evm.Op(evm.POP), evm.Op(evm.POP), evm.Op(evm.POP), evm.Op(evm.POP), evm.Op(evm.POP),
			evm.Push(1), evm.Push(1),
		}, -3, 5, 2},
		{"fibonacci_loop_body", []evm.Instruction{
			evm.Push(1), evm.Op(evm.ADD), swap(2), dup(1), swap(4), evm.Op(evm.ADD), swap(2),
			evm.Push(10), evm.Op(evm.JUMP),
		}, 0, 1, 1},
		{"call", []evm.Instruction{evm.Op(evm.CALL)}, -6, 7, 1},
		{"log2", []evm.Instruction{evm.Op(evm.LOG0 + 2)}, -4, 4, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, info, _ := translate(t, tt.code...)
			if info.Height != tt.height || info.Arguments != tt.arguments || len(info.Generates) != tt.generates {
				t.Fatalf("got height=%d arguments=%d generates=%d, want %d %d %d",
					info.Height, info.Arguments, len(info.Generates), tt.height, tt.arguments, tt.generates)
			}
		})
	}
}

func TestSwapOfLocalsIsFree(t *testing.T) {
	instrs, info, _ := translate(t, evm.Push(1), evm.Push(2), swap(1))
	if len(instrs) != 0 {
		t.Fatalf("expected no instructions, got %d", len(instrs))
	}
	if len(info.Generates) != 2 {
		t.Fatalf("generates = %v", info.Generates)
	}
}

func TestSwapBeyondLocalsCopiesThroughTemporary(t *testing.T) {
	instrs, _, tbl := translate(t, evm.Push(7), swap(2))
	if len(instrs) != 3 {
		t.Fatalf("expected 3 copies, got %d", len(instrs))
	}
	for i := range instrs {
		if instrs[i].Kind != InstrCopy {
			t.Fatalf("instr %d kind = %d", i, instrs[i].Kind)
		}
	}
	deep := tbl.Get(instrs[1].Copy.Y)
	if deep.Kind != symbol.KindStackArgument || deep.Slot != 1 {
		t.Fatalf("swap partner = %+v, want stack slot 1", deep)
	}
	if instrs[0].Copy.X != instrs[2].Copy.Y {
		t.Fatal("temporary not threaded through the copies")
	}
}

func TestDupCopiesNthElement(t *testing.T) {
	instrs, _, tbl := translate(t, evm.Push(1), dup(1), dup(3))
	if len(instrs) != 2 {
		t.Fatalf("expected 2 copies, got %d", len(instrs))
	}
	if src := tbl.Get(instrs[0].Copy.Y); src.Kind != symbol.KindConstant {
		t.Fatalf("DUP1 source = %+v, want the pushed constant", src)
	}
	if src := tbl.Get(instrs[1].Copy.Y); src.Kind != symbol.KindStackArgument || src.Slot != 0 {
		t.Fatalf("DUP3 source = %+v, want stack slot 0", src)
	}
}

func TestBorrowedPopsWalkDown(t *testing.T) {
	instrs, _, tbl := translate(t, evm.Op(evm.SUB))
	bin := instrs[0].Binary
	if y := tbl.Get(bin.Y); y.Slot != 0 {
		t.Fatalf("first operand slot = %d, want 0", y.Slot)
	}
	if z := tbl.Get(bin.Z); z.Slot != 1 {
		t.Fatalf("second operand slot = %d, want 1", z.Slot)
	}
}

func TestBorrowedPopReadsTheDupOneSlot(t *testing.T) {
	instrs, _, tbl := translate(t, dup(1))
	if src := tbl.Get(instrs[0].Copy.Y); src.Kind != symbol.KindStackArgument || src.Slot != 0 {
		t.Fatalf("DUP1 source = %+v, want stack slot 0", src)
	}
	instrs, _, tbl = translate(t, evm.Op(evm.ISZERO))
	if y := tbl.Get(instrs[0].Unary.Y); y.Kind != symbol.KindStackArgument || y.Slot != 0 {
		t.Fatalf("popped operand = %+v, want stack slot 0", y)
	}
}

func TestArgumentsAreCachedBySlot(t *testing.T) {
	instrs, _, _ := translate(t, dup(1), evm.Op(evm.POP), evm.Op(evm.POP), evm.Op(evm.ISZERO))
	copied := instrs[0].Copy.Y
	unary := instrs[1].Unary.Y
	if copied == unary {
		t.Fatal("ISZERO should read slot 1, not the duplicated slot 0")
	}
	instrs, _, _ = translate(t, dup(2), evm.Op(evm.POP), evm.Op(evm.POP), evm.Op(evm.ISZERO))
	if instrs[0].Copy.Y != instrs[1].Unary.Y {
		t.Fatal("slot 1 must resolve to one symbol")
	}
}

func TestUnhandledOpcodesLeaveStackUntouched(t *testing.T) {
	tbl := symbol.NewTable()
	b := NewBlockBuilder(0, tbl)
	b.Translate(evm.Push(1))
	b.Translate(evm.Instruction{Offset: 2, Op: evm.PC})
	b.Translate(evm.Instruction{Offset: 3, Op: evm.OpCode(0x0c)})
	instrs, info := b.Done()
	if len(instrs) != 0 || info.Height != 1 {
		t.Fatalf("instrs=%d height=%d", len(instrs), info.Height)
	}
	un := b.Unhandled()
	if len(un) != 2 || un[0].Op != evm.PC || un[1].Offset != 3 {
		t.Fatalf("unhandled = %v", un)
	}
}

func TestMemoryAndStorageInstructions(t *testing.T) {
	instrs, _, tbl := translate(t, evm.Op(evm.MSTORE), evm.Op(evm.SLOAD), evm.Op(evm.TSTORE))
	if instrs[0].Kind != InstrIndexedAssign || tbl.Get(instrs[0].IndexedAssign.X).Global != symbol.GlobalMemory {
		t.Fatalf("MSTORE lowered to %s", instrs[0].Format(tbl))
	}
	if instrs[1].Kind != InstrIndexedCopy || tbl.Get(instrs[1].IndexedCopy.Y).Global != symbol.GlobalStorage {
		t.Fatalf("SLOAD lowered to %s", instrs[1].Format(tbl))
	}
	if instrs[2].Kind != InstrIndexedAssign || tbl.Get(instrs[2].IndexedAssign.X).Global != symbol.GlobalTransientStorage {
		t.Fatalf("TSTORE lowered to %s", instrs[2].Format(tbl))
	}
}

var randomOpcodes = []evm.OpCode{
	evm.PUSH1, evm.PUSH0, evm.POP, evm.ADD, evm.ISZERO, evm.ADDMOD, evm.MLOAD, evm.MSTORE, evm.SSTORE,
	evm.CALL, evm.STATICCALL, evm.JUMP, evm.JUMPI, evm.JUMPDEST, evm.RETURN, evm.CALLER, evm.PC,
	evm.LOG0 + 3, evm.CREATE2, evm.OpCode(0x0c),
}

func TestStackInvariantHoldsForRandomSequences(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for round := range 500 {
		code := make([]evm.Instruction, rng.IntN(40))
		for i := range code {
			switch r := rng.IntN(len(randomOpcodes) + 2); {
			case r == len(randomOpcodes):
				code[i] = dup(1 + rng.IntN(16))
			case r == len(randomOpcodes)+1:
				code[i] = swap(1 + rng.IntN(16))
			case randomOpcodes[r] == evm.PUSH1:
				code[i] = evm.Push(byte(rng.IntN(256)))
			default:
				code[i] = evm.Op(randomOpcodes[r])
			}
		}
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Fatalf("round %d: %v", round, r)
				}
			}()
			_, info, _ := translate(t, code...)
			if info.Arguments+info.Height != len(info.Generates) {
				t.Fatalf("round %d: invariant broken: %+v", round, info)
			}
		}()
	}
}
