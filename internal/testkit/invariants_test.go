package testkit_test

import (
	"math/rand/v2"
	"testing"

	"github.com/paritytech/revive-sub000/internal/emit"
	"github.com/paritytech/revive-sub000/internal/evm"
	"github.com/paritytech/revive-sub000/internal/lir"
	"github.com/paritytech/revive-sub000/internal/runtimeabi"
	"github.com/paritytech/revive-sub000/internal/symbol"
	"github.com/paritytech/revive-sub000/internal/tac"
	"github.com/paritytech/revive-sub000/internal/testkit"
)

func TestCheckStackInfo(t *testing.T) {
	ok := tac.StackInfo{Arguments: 1, Height: 1, Generates: []symbol.ID{1, 2}}
	if err := testkit.CheckStackInfo(ok); err != nil {
		t.Fatal(err)
	}
	bad := tac.StackInfo{Arguments: 2, Height: 1, Generates: []symbol.ID{1}}
	if err := testkit.CheckStackInfo(bad); err == nil {
		t.Fatal("broken invariant accepted")
	}
}

var ops = []evm.OpCode{
	evm.ADD, evm.MUL, evm.POP, evm.DUP1, evm.DUP2, evm.SWAP1, evm.ISZERO,
	evm.MSTORE, evm.MLOAD, evm.CALLDATALOAD, evm.JUMPDEST, evm.JUMPI, evm.STOP,
}

func TestCheckProgramOnRandomCode(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for round := range 200 {
		code := make([]evm.Instruction, 1+rng.IntN(30))
		for i := range code {
			if rng.IntN(3) == 0 {
				code[i] = evm.Push(byte(rng.IntN(64)))
				continue
			}
			code[i] = evm.Op(ops[rng.IntN(len(ops))])
		}
		p := tac.NewProgram("random", evm.Decode(evm.Encode(code)))
		p.Optimize()
		if err := testkit.CheckProgram(p); err != nil {
			t.Fatalf("round %d: %v", round, err)
		}
	}
}

func TestCheckModule(t *testing.T) {
	c := emit.NewContext("test", emit.Options{Memory: runtimeabi.DefaultMemoryConfig()})
	m, err := c.Finish()
	if err != nil {
		t.Fatal(err)
	}
	if err := testkit.CheckModule(m); err != nil {
		t.Fatal(err)
	}

	call := m.Func(runtimeabi.ExportCall)
	call.Linkage = lir.LinkInternal
	if err := testkit.CheckModule(m); err == nil {
		t.Fatal("module without a call export accepted")
	}
	if err := testkit.CheckModule(nil); err == nil {
		t.Fatal("nil module accepted")
	}
}
