package tac

import (
	"slices"

	"github.com/paritytech/revive-sub000/internal/diag"
	"github.com/paritytech/revive-sub000/internal/evm"
	"github.com/paritytech/revive-sub000/internal/symbol"
)

// NodeID identifies a node of the control flow graph.
type NodeID int32

// NoNode marks an absent node.
const NoNode NodeID = -1

// Branch classifies CFG edges.
type Branch uint8

const (
	// BranchStatic edges have a known destination.
	BranchStatic Branch = iota
	// BranchDynamic edges go through the jump table.
	BranchDynamic
)

func (b Branch) String() string {
	if b == BranchDynamic {
		return "dynamic"
	}
	return "static"
}

// NodeKind distinguishes code blocks from the artificial nodes.
type NodeKind uint8

const (
	NodeCode NodeKind = iota
	NodeStart
	NodeJumpTable
	NodeTerminator
	NodeInvalidJump
)

// Edge connects two nodes. Jump is set on edges taken when the source block's
// branch instruction fires, as opposed to fall-through and exit edges.
type Edge struct {
	From, To NodeID
	Branch   Branch
	Jump     bool
}

// Node is a basic block. Start and End delimit its opcodes in Program.Code.
type Node struct {
	ID     NodeID
	Kind   NodeKind
	Start  int
	End    int
	Instrs []Instr
	Stack  StackInfo
}

// CFG is a control flow graph with four artificial nodes.
type CFG struct {
	nodes []*Node
	edges []Edge

	Start       NodeID
	JumpTable   NodeID
	Terminator  NodeID
	InvalidJump NodeID
}

func newCFG() *CFG {
	g := &CFG{}
	g.Start = g.addNode(NodeStart, 0)
	g.JumpTable = g.addNode(NodeJumpTable, 0)
	g.Terminator = g.addNode(NodeTerminator, 0)
	g.InvalidJump = g.addNode(NodeInvalidJump, 0)
	return g
}

func (g *CFG) addNode(kind NodeKind, start int) NodeID {
	id := NodeID(len(g.nodes))
	g.nodes = append(g.nodes, &Node{ID: id, Kind: kind, Start: start, End: start})
	return id
}

func (g *CFG) addEdge(from, to NodeID, branch Branch, jump bool) {
	g.edges = append(g.edges, Edge{From: from, To: to, Branch: branch, Jump: jump})
}

// Node returns the node or nil when it was removed.
func (g *CFG) Node(id NodeID) *Node {
	if id < 0 || int(id) >= len(g.nodes) {
		return nil
	}
	return g.nodes[id]
}

// Nodes returns the live nodes in creation order.
func (g *CFG) Nodes() []*Node {
	out := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

// Edges returns all edges in insertion order.
func (g *CFG) Edges() []Edge {
	return g.edges
}

// Successors returns the outgoing edges of id.
func (g *CFG) Successors(id NodeID) []Edge {
	var out []Edge
	for _, e := range g.edges {
		if e.From == id {
			out = append(out, e)
		}
	}
	return out
}

// Predecessors returns the incoming edges of id.
func (g *CFG) Predecessors(id NodeID) []Edge {
	var out []Edge
	for _, e := range g.edges {
		if e.To == id {
			out = append(out, e)
		}
	}
	return out
}

// reachable returns the nodes reachable from Start in depth-first preorder.
func (g *CFG) reachable() []NodeID {
	seen := make([]bool, len(g.nodes))
	var order []NodeID
	stack := []NodeID{g.Start}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[id] || g.nodes[id] == nil {
			continue
		}
		seen[id] = true
		order = append(order, id)
		succ := g.Successors(id)
		for i := len(succ) - 1; i >= 0; i-- {
			if !seen[succ[i].To] {
				stack = append(stack, succ[i].To)
			}
		}
	}
	return order
}

func (g *CFG) retain(keep map[NodeID]bool) {
	for i, n := range g.nodes {
		if n != nil && !keep[NodeID(i)] {
			g.nodes[i] = nil
		}
	}
	g.edges = slices.DeleteFunc(g.edges, func(e Edge) bool {
		return !keep[e.From] || !keep[e.To]
	})
}

// Program is the control flow graph of one EVM bytecode object together with
// the symbols of its lifted three-address code.
type Program struct {
	Contract string
	Code     []evm.Instruction
	CFG      *CFG
	Symbols  *symbol.Table
	// JumpTargets maps JUMPDEST bytecode offsets to their nodes.
	JumpTargets map[int]NodeID
	// Unhandled collects opcodes of reachable blocks the resolver could not lift.
	Unhandled []evm.Instruction
	Diags     *diag.Bag
}

// NewProgram builds the control flow graph of code:
//   - dynamic jumps reach the jump table
//   - JUMPDEST, JUMP and JUMPI split up the node
//   - instructions not returning reach the terminator node
func NewProgram(contract string, code []evm.Instruction) *Program {
	g := newCFG()
	targets := make(map[int]NodeID)

	node := g.addNode(NodeCode, 0)
	g.addEdge(g.Start, node, BranchStatic, false)
	g.addEdge(g.InvalidJump, g.Terminator, BranchStatic, false)
	g.addEdge(g.JumpTable, g.InvalidJump, BranchDynamic, false)

	for index, in := range code {
		g.nodes[node].End = index + 1

		switch in.Op {
		case evm.JUMPDEST:
			if index > 0 && splitsFlow(code[index-1].Op) {
				// The preceding instruction did already split up control flow.
				g.addEdge(g.JumpTable, node, BranchDynamic, false)
				targets[in.Offset] = node
				continue
			}
			g.nodes[node].End = index
			previous := node
			node = g.addNode(NodeCode, index)
			g.nodes[node].End = index + 1
			g.addEdge(g.JumpTable, node, BranchDynamic, false)
			g.addEdge(previous, node, BranchStatic, false)
			targets[in.Offset] = node

		case evm.JUMP:
			g.addEdge(node, g.JumpTable, BranchDynamic, true)
			node = g.addNode(NodeCode, index+1)

		case evm.JUMPI:
			g.addEdge(node, g.JumpTable, BranchDynamic, true)
			previous := node
			node = g.addNode(NodeCode, index+1)
			g.addEdge(previous, node, BranchStatic, false)

		default:
			if in.Op.IsTerminator() {
				g.addEdge(node, g.Terminator, BranchStatic, false)
				node = g.addNode(NodeCode, index+1)
			}
		}
	}

	return &Program{
		Contract:    contract,
		Code:        code,
		CFG:         g,
		Symbols:     symbol.NewTable(),
		JumpTargets: targets,
		Diags:       diag.NewBag(256),
	}
}

func splitsFlow(op evm.OpCode) bool {
	return op == evm.JUMP || op == evm.JUMPI || op.IsTerminator()
}

// Opcodes returns the EVM instructions of a node.
func (p *Program) Opcodes(n *Node) []evm.Instruction {
	if n.Kind != NodeCode || n.Start >= n.End {
		return nil
	}
	return p.Code[n.Start:n.End]
}

// Optimize lifts the bytecode and removes unreachable code.
func (p *Program) Optimize() {
	p.eliminateDeadCode()
	p.lift()
	p.eliminateDeadCode()
}
