package emit

import (
	"fmt"

	"github.com/paritytech/revive-sub000/internal/evm"
	"github.com/paritytech/revive-sub000/internal/lir"
	"github.com/paritytech/revive-sub000/internal/runtimeabi"
	"github.com/paritytech/revive-sub000/internal/symbol"
	"github.com/paritytech/revive-sub000/internal/tac"
)

// LowerProgram emits a lifted EVM bytecode program as the body of the
// current code function. Values live on an emulated EVM stack in memory
// between blocks and in stack slots inside a block.
func (c *Context) LowerProgram(p *tac.Program) error {
	if !c.inCode {
		return fmt.Errorf("lower %s: no code function open", p.Contract)
	}
	if c.reporter != nil {
		for _, d := range p.Diags.Items() {
			c.reporter.Report(d)
		}
	}
	if len(p.Unhandled) > 0 {
		in := p.Unhandled[0]
		return &UnsupportedOpcodeError{Op: in.Op, Offset: in.Offset}
	}
	l := newLowering(c, p)
	return l.run()
}

type lowering struct {
	c    *Context
	p    *tac.Program
	ops  map[int]evm.OpCode
	defs map[symbol.ID]bool

	blocks map[tac.NodeID]lir.BlockID
	slots  map[symbol.ID]lir.Pointer

	stack      lir.Pointer
	height     lir.Pointer
	jumpTarget lir.Pointer
	jumpTable  lir.BlockID
	invalid    lir.BlockID

	// Stack height on entry to the node being lowered.
	base lir.Value
}

func newLowering(c *Context, p *tac.Program) *lowering {
	c.Globals.Declare(lir.Global{Name: runtimeabi.GlobalEVMStack, Type: lir.Array(lir.WordBits, runtimeabi.EVMStackDepth)})
	c.Globals.Declare(lir.Global{Name: runtimeabi.GlobalEVMStackHeight, Type: lir.I32})

	l := &lowering{
		c:      c,
		p:      p,
		ops:    make(map[int]evm.OpCode, len(p.Code)),
		defs:   make(map[symbol.ID]bool),
		blocks: make(map[tac.NodeID]lir.BlockID),
		slots:  make(map[symbol.ID]lir.Pointer),
		stack:  c.Globals.Pointer(runtimeabi.GlobalEVMStack, lir.Word),
		height: c.Globals.Pointer(runtimeabi.GlobalEVMStackHeight, lir.I32),
	}
	for _, in := range p.Code {
		l.ops[in.Offset] = in.Op
	}
	return l
}

func (l *lowering) run() error {
	b := l.c.Builder
	g := l.p.CFG

	b.Store(l.height, lir.Const(lir.I32, 0))
	l.jumpTarget = l.c.alloca(lir.Word)

	first, ok := l.successor(g.Start)
	if !ok {
		l.c.Stop()
		return nil
	}

	nodes := g.Nodes()
	for _, n := range nodes {
		if n.Kind != tac.NodeCode {
			continue
		}
		l.blocks[n.ID] = b.AppendBlock(fmt.Sprintf("block_%d", l.offset(n)))
		for i := range n.Instrs {
			if x := n.Instrs[i].Defs(); x != symbol.NoID {
				l.defs[x] = true
			}
		}
	}
	l.invalid = b.AppendBlock("invalid_jump")
	l.jumpTable = b.AppendBlock("jump_table")
	b.Br(l.target(first))

	for _, n := range nodes {
		if n.Kind != tac.NodeCode {
			continue
		}
		if err := l.node(n); err != nil {
			return fmt.Errorf("%s: block at %d: %w", l.p.Contract, l.offset(n), err)
		}
	}

	b.SetInsertPoint(l.invalid)
	b.Trap()
	b.Unreachable()

	b.SetInsertPoint(l.jumpTable)
	var cases []lir.SwitchCase
	for _, in := range l.p.Code {
		if in.Op != evm.JUMPDEST {
			continue
		}
		if id, ok := l.p.JumpTargets[in.Offset]; ok && g.Node(id) != nil {
			cases = append(cases, lir.Case(uint64(in.Offset), l.blocks[id]))
		}
	}
	b.Switch(b.Load(l.jumpTarget), l.invalid, cases)
	return nil
}

// offset is the bytecode offset a node starts at.
func (l *lowering) offset(n *tac.Node) int {
	if n.Start < len(l.p.Code) {
		return l.p.Code[n.Start].Offset
	}
	if k := len(l.p.Code); k > 0 {
		return l.p.Code[k-1].Offset + l.p.Code[k-1].Length()
	}
	return 0
}

// successor returns the only successor of an artificial node.
func (l *lowering) successor(id tac.NodeID) (tac.NodeID, bool) {
	for _, e := range l.p.CFG.Successors(id) {
		return e.To, true
	}
	return tac.NoNode, false
}

// target maps a CFG node to the block control enters it with.
func (l *lowering) target(id tac.NodeID) lir.BlockID {
	switch id {
	case l.p.CFG.InvalidJump:
		return l.invalid
	case l.p.CFG.JumpTable:
		return l.jumpTable
	}
	return l.blocks[id]
}

func (l *lowering) node(n *tac.Node) error {
	c, b := l.c, l.c.Builder
	b.SetInsertPoint(l.blocks[n.ID])
	l.checkStack(n)
	l.resetConstants(n)

	instrs := n.Instrs
	var branch *tac.Instr
	if k := len(instrs); k > 0 && instrs[k-1].IsBranch() {
		branch = &instrs[k-1]
		instrs = instrs[:k-1]
	}

	for i := range instrs {
		if err := l.instr(&instrs[i]); err != nil {
			return err
		}
	}

	var target, cond lir.Value
	if branch != nil {
		c.SetOffset(branch.Offset)
		target = l.value(branch.Target())
		if branch.Kind == tac.InstrCondBranch {
			cond = l.value(branch.CondBranch.Condition)
		}
	}
	l.writeBack(n)

	var jump, next *tac.Edge
	for _, e := range l.p.CFG.Successors(n.ID) {
		if e.Jump {
			jump = &e
		} else {
			next = &e
		}
	}

	switch {
	case branch == nil && next == nil:
		c.Stop()
	case branch == nil:
		l.follow(*next)
	case branch.Kind == tac.InstrBranch:
		if jump == nil {
			return fmt.Errorf("jump at %d has no edge", branch.Offset)
		}
		l.jump(*jump, target)
	default:
		if jump == nil || next == nil {
			return fmt.Errorf("conditional jump at %d lacks an edge", branch.Offset)
		}
		taken := b.AppendBlock("jump")
		fall := b.AppendBlock("no_jump")
		b.CondBr(b.ICmp(lir.PredNE, cond, Word(0)), taken, fall)
		b.SetInsertPoint(taken)
		l.jump(*jump, target)
		b.SetInsertPoint(fall)
		l.follow(*next)
	}
	return nil
}

// checkStack traps when the EVM stack cannot satisfy the block.
func (l *lowering) checkStack(n *tac.Node) {
	c, b := l.c, l.c.Builder
	l.base = b.Load(l.height)

	need := n.Stack.Arguments
	for _, id := range l.p.Symbols.Scope(symbol.Scope(n.ID)) {
		if sym := l.p.Symbols.Get(id); sym.Kind == symbol.KindStackArgument {
			need = max(need, sym.Slot+1)
		}
	}
	if need > 0 {
		c.trapIf(b.ICmp(lir.PredULT, l.base, i32(need)), "stack_underflow")
	}
	if grow := len(n.Stack.Generates) - n.Stack.Arguments; grow > 0 {
		limit := i32(max(runtimeabi.EVMStackDepth-grow, 0))
		c.trapIf(b.ICmp(lir.PredUGT, l.base, limit), "stack_overflow")
	}
}

func (l *lowering) instr(in *tac.Instr) error {
	c := l.c
	c.SetOffset(in.Offset)
	if in.Kind == tac.InstrCopy {
		l.set(in.Copy.X, l.value(in.Copy.Y))
		return nil
	}
	op, ok := l.ops[in.Offset]
	if !ok {
		return fmt.Errorf("no opcode at offset %d", in.Offset)
	}
	uses := in.Uses()
	args := make([]lir.Value, len(uses))
	for i, id := range uses {
		args[i] = l.value(id)
	}
	result, err := c.Opcode(op, args)
	if err != nil {
		return err
	}
	if x := in.Defs(); x != symbol.NoID {
		if !result.IsValid() {
			return fmt.Errorf("%s pushes no value", op)
		}
		l.set(x, result)
	}
	return nil
}

// writeBack moves the values the block leaves on the stack to the emulated
// EVM stack and records the new height. All values are read first since
// they may live in the slots being written.
func (l *lowering) writeBack(n *tac.Node) {
	b := l.c.Builder
	values := make([]lir.Value, len(n.Stack.Generates))
	for i, id := range n.Stack.Generates {
		values[i] = l.value(id)
	}
	bottom := b.Sub(l.base, i32(n.Stack.Arguments))
	for i, v := range values {
		index := b.Add(bottom, i32(i))
		b.Store(l.c.gep(l.stack, index), v)
	}
	if n.Stack.Height != 0 {
		b.Store(l.height, b.Add(bottom, i32(len(values))))
	}
}

func (l *lowering) follow(e tac.Edge) {
	b := l.c.Builder
	if e.To == l.p.CFG.Terminator {
		b.Unreachable()
		return
	}
	b.Br(l.target(e.To))
}

func (l *lowering) jump(e tac.Edge, target lir.Value) {
	b := l.c.Builder
	if e.Branch == tac.BranchDynamic || e.To == l.p.CFG.JumpTable {
		b.Store(l.jumpTarget, target)
		b.Br(l.jumpTable)
		return
	}
	l.follow(e)
}

// value reads a symbol as a word.
func (l *lowering) value(id symbol.ID) lir.Value {
	sym := l.p.Symbols.Get(id)
	switch {
	case sym.Kind == symbol.KindConstant && !l.defs[id]:
		return WordInt(&sym.Value)
	case sym.Kind == symbol.KindStackArgument:
		return l.c.Builder.Load(l.argument(sym.Slot))
	}
	return l.c.Builder.Load(l.slot(id))
}

func (l *lowering) set(id symbol.ID, v lir.Value) {
	sym := l.p.Symbols.Get(id)
	if sym.Kind == symbol.KindStackArgument {
		l.c.Builder.Store(l.argument(sym.Slot), v)
		return
	}
	l.c.Builder.Store(l.slot(id), v)
}

// argument addresses the stack slot n below the block's entry stack top.
func (l *lowering) argument(n int) lir.Pointer {
	b := l.c.Builder
	return l.c.gep(l.stack, b.Sub(l.base, i32(n+1)))
}

// resetConstants loads the immediates a swap overwrites inside n into their
// slots.
func (l *lowering) resetConstants(n *tac.Node) {
	for _, id := range l.p.Symbols.Scope(symbol.Scope(n.ID)) {
		sym := l.p.Symbols.Get(id)
		if sym.Kind == symbol.KindConstant && l.defs[id] {
			l.c.Builder.Store(l.slot(id), WordInt(&sym.Value))
		}
	}
}

// slot returns the stack slot of a block local symbol.
func (l *lowering) slot(id symbol.ID) lir.Pointer {
	if p, ok := l.slots[id]; ok {
		return p
	}
	p := l.c.alloca(lir.Word)
	l.slots[id] = p
	return p
}
