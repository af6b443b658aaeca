// Package symbol implements the symbol table used while lowering stack code to
// three-address instructions. Symbols live in an arena and are referenced by ID.
package symbol

import (
	"fmt"

	"github.com/holiman/uint256"
)

// PointerBits is the width of a PolkaVM pointer.
const PointerBits = 32

// ID addresses a symbol in its Table.
type ID int32

// NoID marks an absent symbol reference.
const NoID ID = -1

// Scope identifies the block (or translation unit) owning a symbol.
type Scope int32

// GlobalScope owns globals shared by every block of a program.
const GlobalScope Scope = -1

// Kind classifies what a symbol refers to.
type Kind uint8

const (
	// KindConstant is an immediate 256-bit value.
	KindConstant Kind = iota
	// KindVariable is a named value declared by the frontend.
	KindVariable
	// KindTemporary is a value produced inside a block.
	KindTemporary
	// KindStackArgument is a value living below the block on the caller's stack.
	KindStackArgument
	// KindGlobal is a well-known program-wide location or routine.
	KindGlobal
)

func (k Kind) String() string {
	switch k {
	case KindConstant:
		return "const"
	case KindVariable:
		return "var"
	case KindTemporary:
		return "tmp"
	case KindStackArgument:
		return "stack"
	case KindGlobal:
		return "global"
	default:
		return "unknown"
	}
}

// TypeKind is the coarse shape of a symbol's value.
type TypeKind uint8

const (
	TypeWord TypeKind = iota
	TypeUInt
	TypeInt
	TypeBytes
	TypeBool
)

// Type is a type hint; Size is in bits for integers and bytes for TypeBytes.
type Type struct {
	Kind TypeKind
	Size int
}

var (
	// Word is the default 256-bit EVM word.
	Word = Type{Kind: TypeWord, Size: 256}
	// Bool is a one-bit condition.
	Bool = Type{Kind: TypeBool, Size: 1}
	// Pointer is an unsigned integer of pointer width.
	Pointer = Type{Kind: TypeUInt, Size: PointerBits}
)

// Bytes returns the hint for an n-byte immediate.
func Bytes(n int) Type { return Type{Kind: TypeBytes, Size: n} }

// UInt returns an unsigned integer hint of the given width.
func UInt(bits int) Type { return Type{Kind: TypeUInt, Size: bits} }

// Int returns a signed integer hint of the given width.
func Int(bits int) Type { return Type{Kind: TypeInt, Size: bits} }

func (t Type) String() string {
	switch t.Kind {
	case TypeWord:
		return "word"
	case TypeUInt:
		return fmt.Sprintf("u%d", t.Size)
	case TypeInt:
		return fmt.Sprintf("i%d", t.Size)
	case TypeBytes:
		return fmt.Sprintf("bytes%d", t.Size)
	case TypeBool:
		return "bool"
	default:
		return "?"
	}
}

// Symbol is one value reference. Symbols are immutable once inserted, except for
// the type hint refined by type propagation.
type Symbol struct {
	Kind   Kind
	Type   Type
	Value  uint256.Int // KindConstant
	Slot   int         // KindStackArgument: depth below the block's entry stack top
	Global Global      // KindGlobal
	Scope  Scope
}

// IsConstant reports whether the symbol carries an immediate.
func (s Symbol) IsConstant() bool { return s.Kind == KindConstant }
