package tac

import (
	"fmt"

	"github.com/paritytech/revive-sub000/internal/diag"
	"github.com/paritytech/revive-sub000/internal/symbol"
)

// eliminateDeadCode removes nodes not reachable from the start node.
func (p *Program) eliminateDeadCode() {
	keep := make(map[NodeID]bool)
	for _, id := range p.CFG.reachable() {
		keep[id] = true
	}
	p.CFG.retain(keep)
}

func (p *Program) lift() {
	order := p.CFG.reachable()
	p.buildIR(order)
	p.resolveStaticJumps(order)
	p.propagateTypes(order)
}

func (p *Program) buildIR(order []NodeID) {
	p.Unhandled = p.Unhandled[:0]
	for _, id := range order {
		n := p.CFG.Node(id)
		if n.Kind != NodeCode {
			continue
		}
		b := NewBlockBuilder(symbol.Scope(id), p.Symbols)
		for _, in := range p.Opcodes(n) {
			b.Translate(in)
		}
		n.Instrs, n.Stack = b.Done()
		for _, in := range b.Unhandled() {
			p.Unhandled = append(p.Unhandled, in)
			p.Diags.Add(diag.New(diag.SevWarning, diag.StackUnhandledOpcode, diag.At(p.Contract, in.Offset),
				fmt.Sprintf("%s produces no instruction", in.Op)))
		}
	}
}

// resolveStaticJumps turns jump-table edges into static edges when the jump
// target is a constant the block never overwrites.
func (p *Program) resolveStaticJumps(order []NodeID) {
	type rewrite struct {
		edge int
		to   NodeID
	}
	var rewrites []rewrite

	for _, id := range order {
		n := p.CFG.Node(id)
		if n.Kind != NodeCode || len(n.Instrs) == 0 {
			continue
		}
		last := &n.Instrs[len(n.Instrs)-1]
		if !last.IsBranch() {
			continue
		}
		offset, ok := p.constantTarget(n, last.Target())
		if !ok {
			continue
		}
		dest, known := p.JumpTargets[offset]
		if !known {
			dest = p.CFG.InvalidJump
			p.Diags.Add(diag.New(diag.SevWarning, diag.StackInvalidJump, diag.At(p.Contract, last.Offset),
				fmt.Sprintf("jump to 0x%x which is not a JUMPDEST", offset)))
		}
		for i, e := range p.CFG.edges {
			if e.From == id && e.Branch == BranchDynamic {
				rewrites = append(rewrites, rewrite{edge: i, to: dest})
			}
		}
	}

	for _, r := range rewrites {
		e := &p.CFG.edges[r.edge]
		e.To = r.to
		e.Branch = BranchStatic
	}
}

func (p *Program) constantTarget(n *Node, target symbol.ID) (int, bool) {
	sym := p.Symbols.Get(target)
	if !sym.IsConstant() {
		return 0, false
	}
	for i := range n.Instrs {
		if n.Instrs[i].Defs() == target {
			return 0, false
		}
	}
	if !sym.Value.IsUint64() || sym.Value.Uint64() > uint64(len(p.Code))*33 {
		return -1, true
	}
	return int(sym.Value.Uint64()), true
}

// propagateTypes refines the type hints of operands from their use.
func (p *Program) propagateTypes(order []NodeID) {
	tbl := p.Symbols
	for _, id := range order {
		n := p.CFG.Node(id)
		for i := range n.Instrs {
			in := &n.Instrs[i]
			switch in.Kind {
			case InstrCondBranch:
				tbl.SetType(in.CondBranch.Condition, symbol.Bool)
				tbl.SetType(in.CondBranch.Target, symbol.Pointer)
			case InstrBranch:
				tbl.SetType(in.Branch.Target, symbol.Pointer)
			case InstrBinary:
				typ := tbl.Get(in.Binary.X).Type
				tbl.SetType(in.Binary.Y, typ)
				tbl.SetType(in.Binary.Z, typ)
			case InstrCopy:
				tbl.SetType(in.Copy.X, tbl.Get(in.Copy.Y).Type)
			case InstrUnary:
				tbl.SetType(in.Unary.X, tbl.Get(in.Unary.Y).Type)
			case InstrIndexedCopy:
				if p.isLinearMemory(in.IndexedCopy.Y) {
					tbl.SetType(in.IndexedCopy.Index, symbol.Pointer)
				}
			case InstrIndexedAssign:
				if p.isLinearMemory(in.IndexedAssign.X) {
					tbl.SetType(in.IndexedAssign.Index, symbol.Pointer)
				}
			}
		}
	}
}

// isLinearMemory reports whether id names a byte-addressed location; storage
// keys stay full words.
func (p *Program) isLinearMemory(id symbol.ID) bool {
	switch p.Symbols.Get(id).Global {
	case symbol.GlobalMemory, symbol.GlobalCallData:
		return true
	}
	return false
}
