package lir

import (
	"fmt"

	"github.com/holiman/uint256"
)

// Reg numbers a virtual register inside a function. Parameters occupy the
// first registers.
type Reg int32

// NoReg marks instructions without a result.
const NoReg Reg = -1

// ValueKind distinguishes operand kinds.
type ValueKind uint8

const (
	ValueNone ValueKind = iota
	ValueConst
	ValueReg
	ValueGlobal
)

// Value is an instruction operand. Globals are referenced by name and always
// have pointer type.
type Value struct {
	Kind  ValueKind
	Type  Type
	Reg   Reg
	Name  string
	Const uint256.Int
}

// Const returns an integer constant of type t.
func Const(t Type, v uint64) Value {
	c := Value{Kind: ValueConst, Type: t}
	c.Const.SetUint64(v)
	Truncate(&c.Const, t.Bits)
	return c
}

// ConstInt returns an integer constant of type t holding v truncated to t.
func ConstInt(t Type, v *uint256.Int) Value {
	c := Value{Kind: ValueConst, Type: t}
	c.Const.Set(v)
	Truncate(&c.Const, t.Bits)
	return c
}

// AllOnes returns the constant with every bit of t set.
func AllOnes(t Type) Value {
	c := Value{Kind: ValueConst, Type: t}
	c.Const.SetAllOne()
	Truncate(&c.Const, t.Bits)
	return c
}

// RegValue references register r of type t.
func RegValue(r Reg, t Type) Value {
	return Value{Kind: ValueReg, Type: t, Reg: r}
}

// GlobalValue references the address of a global in space.
func GlobalValue(name string, space AddressSpace) Value {
	return Value{Kind: ValueGlobal, Type: Ptr(space), Name: name}
}

// IsConst reports whether v is an integer constant.
func (v Value) IsConst() bool { return v.Kind == ValueConst }

// IsValid reports whether v references anything.
func (v Value) IsValid() bool { return v.Kind != ValueNone }

func (v Value) String() string {
	switch v.Kind {
	case ValueConst:
		if v.Type.Bits == 1 {
			if v.Const.IsZero() {
				return "false"
			}
			return "true"
		}
		if v.Type.IsPtr() {
			if v.Const.IsZero() {
				return "null"
			}
			return fmt.Sprintf("inttoptr (i32 %s to %s)", v.Const.Dec(), v.Type)
		}
		return v.Const.Dec()
	case ValueReg:
		return fmt.Sprintf("%%r%d", v.Reg)
	case ValueGlobal:
		return "@" + v.Name
	}
	return "undef"
}

// Typed renders the operand with its type, as LLVM expects in most positions.
func (v Value) Typed() string {
	return v.Type.String() + " " + v.String()
}

// Pointer is a value known to point into a specific address space together
// with the type of the pointee. The space is fixed at construction; only
// Builder.AddrSpaceCast produces a pointer in a different space.
type Pointer struct {
	value Value
	elem  Type
	space AddressSpace
}

// Value returns the pointer operand.
func (p Pointer) Value() Value { return p.value }

// Elem returns the pointee type.
func (p Pointer) Elem() Type { return p.elem }

// Space returns the address space.
func (p Pointer) Space() AddressSpace { return p.space }

// WithElem returns the same address reinterpreted as pointing to elem.
func (p Pointer) WithElem(elem Type) Pointer {
	p.elem = elem
	return p
}

func newPointer(v Value, elem Type, space AddressSpace) Pointer {
	v.Type = Ptr(space)
	return Pointer{value: v, elem: elem, space: space}
}

// GlobalPointer returns a pointer to a named global in space.
func GlobalPointer(name string, elem Type, space AddressSpace) Pointer {
	return newPointer(GlobalValue(name, space), elem, space)
}

// AsPointer views a pointer-typed value, such as a call result, as pointing to
// elem in the value's address space.
func AsPointer(v Value, elem Type) Pointer {
	return Pointer{value: v, elem: elem, space: v.Type.Space}
}
