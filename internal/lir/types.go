// Package lir is the low-level register IR the emitter produces and the
// build pipeline verifies, optimizes and links. It mirrors the subset of LLVM
// IR needed for PolkaVM: integers up to 256 bits, address-space tagged
// pointers, allocas, calls and a handful of terminators.
package lir

import "fmt"

// TypeKind is the shape of a value type.
type TypeKind uint8

const (
	TypeVoid TypeKind = iota
	TypeInt
	TypePtr
	TypeArray
)

// Type is a comparable value type. Bits is the integer width (element width for
// arrays), Len the array length and Space the address space of pointers.
type Type struct {
	Kind  TypeKind
	Bits  int
	Len   int
	Space AddressSpace
}

// WordBits is the width of an EVM word.
const WordBits = 256

var (
	Void = Type{Kind: TypeVoid}
	I1   = Int(1)
	I8   = Int(8)
	I32  = Int(32)
	I64  = Int(64)
	Word = Int(WordBits)
)

// Int returns an integer type of the given width.
func Int(bits int) Type { return Type{Kind: TypeInt, Bits: bits} }

// Ptr returns a pointer type in space.
func Ptr(space AddressSpace) Type { return Type{Kind: TypePtr, Space: space} }

// Array returns an array of n integers of width bits.
func Array(bits, n int) Type { return Type{Kind: TypeArray, Bits: bits, Len: n} }

// IsInt reports whether t is an integer type.
func (t Type) IsInt() bool { return t.Kind == TypeInt }

// IsPtr reports whether t is a pointer type.
func (t Type) IsPtr() bool { return t.Kind == TypePtr }

// Size is the store size in bytes.
func (t Type) Size() int {
	switch t.Kind {
	case TypeInt:
		return (t.Bits + 7) / 8
	case TypePtr:
		return PointerSize
	case TypeArray:
		return t.Len * ((t.Bits + 7) / 8)
	}
	return 0
}

// Align is the ABI alignment in bytes: the store size rounded up to a power
// of two, so words align to their full size.
func (t Type) Align() int {
	switch t.Kind {
	case TypeInt:
		return alignOf(t.Size())
	case TypePtr:
		return PointerSize
	case TypeArray:
		return alignOf((t.Bits + 7) / 8)
	}
	return 1
}

func alignOf(size int) int {
	a := 1
	for a < size {
		a <<= 1
	}
	return a
}

func (t Type) String() string {
	switch t.Kind {
	case TypeVoid:
		return "void"
	case TypeInt:
		return fmt.Sprintf("i%d", t.Bits)
	case TypePtr:
		if t.Space == AddressSpaceStack {
			return "ptr"
		}
		return fmt.Sprintf("ptr addrspace(%d)", t.Space)
	case TypeArray:
		return fmt.Sprintf("[%d x i%d]", t.Len, t.Bits)
	}
	return "?"
}

// PointerSize is the size of a PolkaVM pointer in bytes.
const PointerSize = 4

// AddressSpace tags a pointer with the memory it refers to.
type AddressSpace uint8

const (
	// AddressSpaceStack is native PolkaVM memory: allocas and internal globals.
	AddressSpaceStack AddressSpace = 0
	// AddressSpaceHeap is the emulated EVM memory, addressed by offset.
	AddressSpaceHeap AddressSpace = 1
	// AddressSpaceGeneric is resolved by a cast to Stack before use.
	AddressSpaceGeneric AddressSpace = 3
	// AddressSpaceCode holds symbolic addresses for dispatch metadata.
	AddressSpaceCode AddressSpace = 4
	// AddressSpaceStorage is persistent contract storage, addressed by key.
	AddressSpaceStorage AddressSpace = 5
	// AddressSpaceTransientStorage is transaction-scoped storage.
	AddressSpaceTransientStorage AddressSpace = 6
)

func (s AddressSpace) String() string {
	switch s {
	case AddressSpaceStack:
		return "stack"
	case AddressSpaceHeap:
		return "heap"
	case AddressSpaceGeneric:
		return "generic"
	case AddressSpaceCode:
		return "code"
	case AddressSpaceStorage:
		return "storage"
	case AddressSpaceTransientStorage:
		return "transient_storage"
	}
	return fmt.Sprintf("addrspace(%d)", uint8(s))
}

// AllowsPointerArithmetic reports whether GEP may be applied to pointers in s.
func (s AddressSpace) AllowsPointerArithmetic() bool {
	return s == AddressSpaceStack || s == AddressSpaceGeneric
}
