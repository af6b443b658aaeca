package symbol

import (
	"fmt"

	"fortio.org/safecast"
	"github.com/holiman/uint256"
)

// Table is an arena of symbols grouped by owning scope. One table exists per
// translation unit; it is not safe for concurrent use.
type Table struct {
	symbols []Symbol
	scopes  map[Scope][]ID
	globals map[Global]ID
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{
		scopes:  make(map[Scope][]ID),
		globals: make(map[Global]ID),
	}
}

// Insert adds sym to scope and returns its handle.
func (t *Table) Insert(scope Scope, sym Symbol) ID {
	id, err := safecast.Conv[ID](len(t.symbols))
	if err != nil {
		panic(fmt.Errorf("symbol table overflow: %w", err))
	}
	sym.Scope = scope
	t.symbols = append(t.symbols, sym)
	t.scopes[scope] = append(t.scopes[scope], id)
	return id
}

// Constant inserts a big-endian immediate; the hint records its byte width.
func (t *Table) Constant(scope Scope, bytes []byte) ID {
	sym := Symbol{Kind: KindConstant, Type: Bytes(len(bytes))}
	sym.Value.SetBytes(bytes)
	return t.Insert(scope, sym)
}

// ConstantValue inserts a word-typed immediate.
func (t *Table) ConstantValue(scope Scope, v *uint256.Int) ID {
	sym := Symbol{Kind: KindConstant, Type: Word}
	sym.Value.Set(v)
	return t.Insert(scope, sym)
}

// Temporary inserts a fresh word-typed temporary.
func (t *Table) Temporary(scope Scope) ID {
	return t.Insert(scope, Symbol{Kind: KindTemporary, Type: Word})
}

// Variable inserts a fresh frontend variable.
func (t *Table) Variable(scope Scope, typ Type) ID {
	return t.Insert(scope, Symbol{Kind: KindVariable, Type: typ})
}

// StackArgument inserts a reference to the caller stack at slot.
func (t *Table) StackArgument(scope Scope, slot int) ID {
	return t.Insert(scope, Symbol{Kind: KindStackArgument, Type: Word, Slot: slot})
}

// Global returns the unique symbol for g, creating it on first use.
func (t *Table) Global(g Global) ID {
	if id, ok := t.globals[g]; ok {
		return id
	}
	id := t.Insert(GlobalScope, Symbol{Kind: KindGlobal, Type: g.Type(), Global: g})
	t.globals[g] = id
	return id
}

// Get returns a copy of the symbol.
func (t *Table) Get(id ID) Symbol {
	return t.symbols[id]
}

// SetType refines the type hint of id.
func (t *Table) SetType(id ID, typ Type) {
	t.symbols[id].Type = typ
}

// Len returns the number of symbols.
func (t *Table) Len() int {
	return len(t.symbols)
}

// Scope returns the symbols owned by scope in insertion order.
func (t *Table) Scope(scope Scope) []ID {
	return t.scopes[scope]
}

// Format renders id the way dumps print operands, e.g. "word $3_tmp".
func (t *Table) Format(id ID) string {
	if id == NoID {
		return "_"
	}
	sym := t.symbols[id]
	var addr string
	switch sym.Kind {
	case KindStackArgument:
		addr = fmt.Sprintf("$%d_stack[%d]", id, sym.Slot)
	case KindGlobal:
		return fmt.Sprintf("$%d_%s", id, sym.Global)
	case KindConstant:
		return fmt.Sprintf("%s $%d := %s", sym.Type, id, sym.Value.Dec())
	default:
		addr = fmt.Sprintf("$%d_%s", id, sym.Kind)
	}
	return fmt.Sprintf("%s %s", sym.Type, addr)
}
