package tac

import (
	"fmt"
	"io"
	"strings"
)

// DumpFormat selects what Dump prints inside code blocks.
type DumpFormat uint8

const (
	// DumpBytecode prints the EVM opcodes of each block.
	DumpBytecode DumpFormat = iota
	// DumpIR prints the lifted three-address code and stack summaries.
	DumpIR
	// DumpEdges prints only the graph structure.
	DumpEdges
)

// ParseDumpFormat accepts "bytecode", "ir" and "edges".
func ParseDumpFormat(s string) (DumpFormat, error) {
	switch strings.ToLower(s) {
	case "bytecode", "evm":
		return DumpBytecode, nil
	case "ir", "tac":
		return DumpIR, nil
	case "edges", "cfg":
		return DumpEdges, nil
	}
	return DumpBytecode, fmt.Errorf("unknown dump format %q", s)
}

func (p *Program) nodeLabel(n *Node) string {
	switch n.Kind {
	case NodeStart:
		return "start"
	case NodeJumpTable:
		return "jump_table"
	case NodeTerminator:
		return "terminator"
	case NodeInvalidJump:
		return "invalid_jump"
	}
	begin, end := p.byteRange(n)
	return fmt.Sprintf("bytecode [0x%04x, 0x%04x)", begin, end)
}

func (p *Program) byteRange(n *Node) (int, int) {
	if n.Start >= len(p.Code) {
		end := 0
		if len(p.Code) > 0 {
			last := p.Code[len(p.Code)-1]
			end = last.Offset + last.Length()
		}
		return end, end
	}
	begin := p.Code[n.Start].Offset
	if n.End >= len(p.Code) {
		last := p.Code[len(p.Code)-1]
		return begin, last.Offset + last.Length()
	}
	return begin, p.Code[n.End].Offset
}

// Dump writes a human-readable rendering of the control flow graph.
func (p *Program) Dump(w io.Writer, format DumpFormat) error {
	if w == nil {
		return nil
	}
	var sb strings.Builder
	for _, n := range p.CFG.Nodes() {
		fmt.Fprintf(&sb, "bb%d: %s\n", n.ID, p.nodeLabel(n))
		switch format {
		case DumpBytecode:
			for _, in := range p.Opcodes(n) {
				fmt.Fprintf(&sb, "  %04x %s\n", in.Offset, in)
			}
		case DumpIR:
			for i := range n.Instrs {
				fmt.Fprintf(&sb, "  %s\n", n.Instrs[i].Format(p.Symbols))
			}
			if n.Kind == NodeCode {
				gen := make([]string, len(n.Stack.Generates))
				for i, id := range n.Stack.Generates {
					gen[i] = fmt.Sprintf("$%d", id)
				}
				fmt.Fprintf(&sb, "  ; arguments=%d height=%d generates=[%s]\n",
					n.Stack.Arguments, n.Stack.Height, strings.Join(gen, " "))
			}
		}
		for _, e := range p.CFG.Successors(n.ID) {
			fmt.Fprintf(&sb, "  -> bb%d %s\n", e.To, e.Branch)
		}
	}
	_, err := io.WriteString(w, sb.String())
	return err
}
