package tac

import (
	"fmt"

	"github.com/paritytech/revive-sub000/internal/evm"
	"github.com/paritytech/revive-sub000/internal/symbol"
)

// StackInfo describes how a block uses the EVM stack it is entered with.
// Arguments counts values consumed from below the block, Height is the net
// number of pushes minus pops and Generates are the values left on top at exit
// (bottom first).
type StackInfo struct {
	Arguments int
	Generates []symbol.ID
	Height    int
}

var binaryOps = map[evm.OpCode]Operator{
	evm.ADD:        OpAdd,
	evm.MUL:        OpMul,
	evm.SUB:        OpSub,
	evm.DIV:        OpDiv,
	evm.SDIV:       OpSDiv,
	evm.MOD:        OpMod,
	evm.SMOD:       OpSMod,
	evm.EXP:        OpExp,
	evm.SIGNEXTEND: OpSignExtend,
	evm.LT:         OpLessThan,
	evm.GT:         OpGreaterThan,
	evm.SLT:        OpSignedLessThan,
	evm.SGT:        OpSignedGreaterThan,
	evm.EQ:         OpEqual,
	evm.AND:        OpAnd,
	evm.OR:         OpOr,
	evm.XOR:        OpXor,
	evm.BYTE:       OpByte,
	evm.SHL:        OpShiftLeft,
	evm.SHR:        OpShiftRight,
	evm.SAR:        OpShiftArithmeticRight,
}

var unaryOps = map[evm.OpCode]Operator{
	evm.ISZERO: OpIsZero,
	evm.NOT:    OpNot,
}

var indexedLoads = map[evm.OpCode]symbol.Global{
	evm.MLOAD:        symbol.GlobalMemory,
	evm.CALLDATALOAD: symbol.GlobalCallData,
	evm.SLOAD:        symbol.GlobalStorage,
	evm.TLOAD:        symbol.GlobalTransientStorage,
}

var indexedStores = map[evm.OpCode]symbol.Global{
	evm.MSTORE: symbol.GlobalMemory,
	evm.SSTORE: symbol.GlobalStorage,
	evm.TSTORE: symbol.GlobalTransientStorage,
}

var routines = map[evm.OpCode]symbol.Global{
	evm.ADDMOD:         symbol.GlobalAddMod,
	evm.MULMOD:         symbol.GlobalMulMod,
	evm.KECCAK256:      symbol.GlobalSha3,
	evm.ADDRESS:        symbol.GlobalAddress,
	evm.BALANCE:        symbol.GlobalBalance,
	evm.ORIGIN:         symbol.GlobalOrigin,
	evm.CALLER:         symbol.GlobalCaller,
	evm.CALLVALUE:      symbol.GlobalCallValue,
	evm.CALLDATASIZE:   symbol.GlobalCallDataSize,
	evm.CALLDATACOPY:   symbol.GlobalCallDataCopy,
	evm.GASPRICE:       symbol.GlobalGasPrice,
	evm.EXTCODESIZE:    symbol.GlobalExtCodeSize,
	evm.EXTCODEHASH:    symbol.GlobalExtCodeHash,
	evm.RETURNDATASIZE: symbol.GlobalReturnDataSize,
	evm.RETURNDATACOPY: symbol.GlobalReturnDataCopy,
	evm.BLOCKHASH:      symbol.GlobalBlockHash,
	evm.COINBASE:       symbol.GlobalCoinbase,
	evm.TIMESTAMP:      symbol.GlobalTimestamp,
	evm.NUMBER:         symbol.GlobalBlockNumber,
	evm.GASLIMIT:       symbol.GlobalGasLimit,
	evm.CHAINID:        symbol.GlobalChainID,
	evm.SELFBALANCE:    symbol.GlobalSelfBalance,
	evm.BASEFEE:        symbol.GlobalBaseFee,
	evm.MSTORE8:        symbol.GlobalMStore8,
	evm.MSIZE:          symbol.GlobalMSize,
	evm.MCOPY:          symbol.GlobalMCopy,
	evm.GAS:            symbol.GlobalGas,
	evm.CREATE:         symbol.GlobalCreate,
	evm.CREATE2:        symbol.GlobalCreate2,
	evm.CALL:           symbol.GlobalCall,
	evm.STATICCALL:     symbol.GlobalStaticCall,
	evm.DELEGATECALL:   symbol.GlobalDelegateCall,
	evm.RETURN:         symbol.GlobalReturn,
	evm.REVERT:         symbol.GlobalRevert,
	evm.STOP:           symbol.GlobalStop,
	evm.INVALID:        symbol.GlobalInvalid,
}

// BlockBuilder lowers the opcodes of one basic block to three-address code,
// tracking which values the block borrows from the stack it is entered with.
type BlockBuilder struct {
	state     state
	instrs    []Instr
	unhandled []evm.Instruction
}

// NewBlockBuilder returns a builder that creates its symbols in scope.
func NewBlockBuilder(scope symbol.Scope, tbl *symbol.Table) *BlockBuilder {
	return &BlockBuilder{
		state: state{
			scope:     scope,
			tbl:       tbl,
			arguments: make(map[int]symbol.ID),
		},
	}
}

// Done returns the block's instructions and stack summary. It panics when the
// summary is inconsistent, which indicates a resolver bug.
func (b *BlockBuilder) Done() ([]Instr, StackInfo) {
	info := StackInfo{
		Arguments: b.state.borrows,
		Generates: b.state.stack,
		Height:    b.state.height,
	}
	if info.Arguments+info.Height != len(info.Generates) {
		panic(fmt.Sprintf("tac: stack summary broken: %d arguments + height %d != %d generated values",
			info.Arguments, info.Height, len(info.Generates)))
	}
	return b.instrs, info
}

// Unhandled lists opcodes that produced no instruction and left the stack untouched.
func (b *BlockBuilder) Unhandled() []evm.Instruction {
	return b.unhandled
}

// Translate appends the instructions for one opcode.
func (b *BlockBuilder) Translate(in evm.Instruction) {
	s := &b.state
	op := in.Op

	switch {
	case op == evm.JUMPDEST:
		return
	case op.IsPush(), op == evm.PUSH0:
		s.push(s.tbl.Constant(s.scope, in.Data))
		return
	case op == evm.POP:
		s.pop()
		return
	case op.IsSwap():
		b.emit(in, s.swap(op.SwapPosition())...)
		return
	case op.IsDup():
		y := s.nth(op.DupPosition() - 1)
		x := s.push(s.tbl.Temporary(s.scope))
		b.emit(in, Instr{Kind: InstrCopy, Copy: CopyInstr{X: x, Y: y}})
		return
	case op.IsLog():
		pops, _ := evm.StackCounts(op)
		b.emit(in, b.call(symbol.GlobalEvent, pops, false))
		return
	case op == evm.JUMP:
		target := s.pop()
		b.emit(in, Instr{Kind: InstrBranch, Branch: BranchInstr{Target: target}})
		return
	case op == evm.JUMPI:
		target := s.pop()
		cond := s.pop()
		b.emit(in, Instr{Kind: InstrCondBranch, CondBranch: CondBranchInstr{Condition: cond, Target: target}})
		return
	}

	if o, ok := binaryOps[op]; ok {
		y := s.pop()
		z := s.pop()
		x := s.push(s.tbl.Temporary(s.scope))
		b.emit(in, Instr{Kind: InstrBinary, Binary: BinaryInstr{Op: o, X: x, Y: y, Z: z}})
		return
	}
	if o, ok := unaryOps[op]; ok {
		y := s.pop()
		x := s.push(s.tbl.Temporary(s.scope))
		b.emit(in, Instr{Kind: InstrUnary, Unary: UnaryInstr{Op: o, X: x, Y: y}})
		return
	}
	if g, ok := indexedLoads[op]; ok {
		index := s.pop()
		x := s.push(s.tbl.Temporary(s.scope))
		b.emit(in, Instr{Kind: InstrIndexedCopy, IndexedCopy: IndexedCopyInstr{X: x, Y: s.tbl.Global(g), Index: index}})
		return
	}
	if g, ok := indexedStores[op]; ok {
		index := s.pop()
		y := s.pop()
		b.emit(in, Instr{Kind: InstrIndexedAssign, IndexedAssign: IndexedAssignInstr{X: s.tbl.Global(g), Index: index, Y: y}})
		return
	}
	if g, ok := routines[op]; ok {
		pops, pushes := evm.StackCounts(op)
		b.emit(in, b.call(g, pops, pushes == 1))
		return
	}

	b.unhandled = append(b.unhandled, in)
}

func (b *BlockBuilder) call(g symbol.Global, pops int, function bool) Instr {
	s := &b.state
	args := make([]symbol.ID, pops)
	for i := range args {
		args[i] = s.pop()
	}
	in := Instr{Kind: InstrProcedure, Call: CallInstr{Routine: g, X: symbol.NoID, Args: args}}
	if function {
		in.Kind = InstrFunction
		in.Call.X = s.push(s.tbl.Temporary(s.scope))
	}
	return in
}

func (b *BlockBuilder) emit(origin evm.Instruction, instrs ...Instr) {
	for i := range instrs {
		instrs[i].Offset = origin.Offset
	}
	b.instrs = append(b.instrs, instrs...)
}

type state struct {
	scope symbol.Scope
	tbl   *symbol.Table
	// Values produced inside the block, top last.
	stack []symbol.ID
	// Every pop on an empty stack counts as one more argument.
	borrows int
	// Borrowed stack values by slot.
	arguments map[int]symbol.ID
	// Pushes increase and pops decrease the height, borrowed or not.
	height int
}

func (s *state) push(id symbol.ID) symbol.ID {
	s.stack = append(s.stack, id)
	s.height++
	return id
}

func (s *state) pop() symbol.ID {
	s.height--
	if n := len(s.stack); n > 0 {
		top := s.stack[n-1]
		s.stack = s.stack[:n-1]
		return top
	}
	// The top is named before it counts as borrowed, so it is the same slot
	// DUP1 would read.
	id := s.nth(0)
	s.borrows++
	return id
}

// swap is free when both elements are local; otherwise both are named and
// exchanged through a temporary.
func (s *state) swap(n int) []Instr {
	top := max(len(s.stack)-1, 0)
	if n <= top {
		s.stack[top-n], s.stack[top] = s.stack[top], s.stack[top-n]
		return nil
	}

	tmp := s.tbl.Temporary(s.scope)
	a := s.nth(0)
	b := s.nth(n)
	return []Instr{
		{Kind: InstrCopy, Copy: CopyInstr{X: tmp, Y: a}},
		{Kind: InstrCopy, Copy: CopyInstr{X: a, Y: b}},
		{Kind: InstrCopy, Copy: CopyInstr{X: b, Y: tmp}},
	}
}

// nth returns the n-th stack element counted from the top (0 is the top).
func (s *state) nth(n int) symbol.ID {
	if n < len(s.stack) {
		return s.stack[len(s.stack)-1-n]
	}
	slot := s.slot(n)
	if id, ok := s.arguments[slot]; ok {
		return id
	}
	id := s.tbl.StackArgument(s.scope, slot)
	s.arguments[slot] = id
	return id
}

// slot maps a stack index to the depth below the block's entry stack top.
func (s *state) slot(n int) int {
	return n - (len(s.stack) - s.borrows)
}
