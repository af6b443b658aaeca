package lir

import (
	"fmt"

	"github.com/holiman/uint256"
)

// Intrinsic names understood by every backend.
const (
	IntrinsicTrap    = "llvm.trap"
	IntrinsicMemCpy  = "llvm.memcpy.p0.p0.i32"
	IntrinsicMemMove = "llvm.memmove.p0.p0.i32"
	IntrinsicMemSet  = "llvm.memset.p0.i32"
)

// IntrinsicBSwap returns the byte swap intrinsic for t.
func IntrinsicBSwap(t Type) string { return "llvm.bswap." + t.String() }

// Builder appends instructions to the current block of the current function.
type Builder struct {
	Module  *Module
	Funcs   *FunctionTable
	Globals *GlobalTable
	block   BlockID
}

// NewBuilder returns a builder over m and its tables.
func NewBuilder(m *Module, funcs *FunctionTable, globals *GlobalTable) *Builder {
	return &Builder{Module: m, Funcs: funcs, Globals: globals, block: NoBlock}
}

// Func returns the current function.
func (b *Builder) Func() *Func { return b.Funcs.Current() }

// EnterFunc makes id current and positions at its entry block.
func (b *Builder) EnterFunc(id FuncID) {
	b.Funcs.SetCurrent(id)
	b.block = 0
}

// AppendBlock adds an empty block to the current function.
func (b *Builder) AppendBlock(name string) BlockID {
	f := b.Func()
	id := BlockID(len(f.Blocks))
	f.Blocks = append(f.Blocks, &Block{ID: id, Name: name})
	return id
}

// SetInsertPoint positions the builder at the end of block id.
func (b *Builder) SetInsertPoint(id BlockID) { b.block = id }

// InsertBlock returns the block the builder appends to.
func (b *Builder) InsertBlock() BlockID { return b.block }

// Terminated reports whether the insert block already has a terminator.
func (b *Builder) Terminated() bool {
	return b.Func().Block(b.block).Term.Kind != TermNone
}

func (b *Builder) cur() *Block {
	blk := b.Func().Block(b.block)
	if blk == nil {
		panic("lir: builder has no insert block")
	}
	return blk
}

func (b *Builder) append(in Instr, result Type) Value {
	f := b.Func()
	in.Dst = NoReg
	if result.Kind != TypeVoid {
		in.Dst = f.NewReg(result)
	}
	blk := b.cur()
	blk.Instrs = append(blk.Instrs, in)
	if in.Dst == NoReg {
		return Value{}
	}
	return RegValue(in.Dst, result)
}

// Binary emits a two-operand integer operation.
func (b *Builder) Binary(op Op, x, y Value) Value {
	return b.append(Instr{Op: op, Type: x.Type, Args: []Value{x, y}}, x.Type)
}

func (b *Builder) Add(x, y Value) Value  { return b.Binary(OpAdd, x, y) }
func (b *Builder) Sub(x, y Value) Value  { return b.Binary(OpSub, x, y) }
func (b *Builder) Mul(x, y Value) Value  { return b.Binary(OpMul, x, y) }
func (b *Builder) And(x, y Value) Value  { return b.Binary(OpAnd, x, y) }
func (b *Builder) Or(x, y Value) Value   { return b.Binary(OpOr, x, y) }
func (b *Builder) Xor(x, y Value) Value  { return b.Binary(OpXor, x, y) }
func (b *Builder) Shl(x, y Value) Value  { return b.Binary(OpShl, x, y) }
func (b *Builder) LShr(x, y Value) Value { return b.Binary(OpLShr, x, y) }
func (b *Builder) AShr(x, y Value) Value { return b.Binary(OpAShr, x, y) }

// Not flips every bit of x.
func (b *Builder) Not(x Value) Value { return b.Xor(x, AllOnes(x.Type)) }

// ICmp compares two integers.
func (b *Builder) ICmp(pred Pred, x, y Value) Value {
	return b.append(Instr{Op: OpICmp, Type: x.Type, Pred: pred, Args: []Value{x, y}}, I1)
}

// Select returns x when cond holds and y otherwise.
func (b *Builder) Select(cond, x, y Value) Value {
	return b.append(Instr{Op: OpSelect, Type: x.Type, Args: []Value{cond, x, y}}, x.Type)
}

// ZExt zero-extends v to t.
func (b *Builder) ZExt(v Value, t Type) Value {
	if v.Type == t {
		return v
	}
	return b.append(Instr{Op: OpZExt, Type: t, Args: []Value{v}}, t)
}

// SExt sign-extends v to t.
func (b *Builder) SExt(v Value, t Type) Value {
	if v.Type == t {
		return v
	}
	return b.append(Instr{Op: OpSExt, Type: t, Args: []Value{v}}, t)
}

// Trunc truncates v to t.
func (b *Builder) Trunc(v Value, t Type) Value {
	if v.Type == t {
		return v
	}
	return b.append(Instr{Op: OpTrunc, Type: t, Args: []Value{v}}, t)
}

// ZExtOrTrunc converts v to t by zero extension or truncation.
func (b *Builder) ZExtOrTrunc(v Value, t Type) Value {
	switch {
	case v.Type.Bits < t.Bits:
		return b.ZExt(v, t)
	case v.Type.Bits > t.Bits:
		return b.Trunc(v, t)
	}
	return v
}

// Alloca reserves a stack slot for t in the entry block.
func (b *Builder) Alloca(t Type) Pointer {
	f := b.Func()
	entry := f.Blocks[0]
	reg := f.NewReg(Ptr(AddressSpaceStack))
	in := Instr{Op: OpAlloca, Dst: reg, Type: t, Align: t.Align()}
	pos := 0
	for pos < len(entry.Instrs) && entry.Instrs[pos].Op == OpAlloca {
		pos++
	}
	entry.Instrs = append(entry.Instrs, Instr{})
	copy(entry.Instrs[pos+1:], entry.Instrs[pos:])
	entry.Instrs[pos] = in
	return newPointer(RegValue(reg, Ptr(AddressSpaceStack)), t, AddressSpaceStack)
}

// Load reads the pointee of p. Only Stack pointers may be dereferenced; other
// spaces are lowered by the emitter and rejected by the verifier.
func (b *Builder) Load(p Pointer) Value {
	return b.append(Instr{Op: OpLoad, Type: p.elem, Args: []Value{p.value}, Align: p.elem.Align()}, p.elem)
}

// Store writes v through p.
func (b *Builder) Store(p Pointer, v Value) {
	b.append(Instr{Op: OpStore, Type: v.Type, Args: []Value{p.value, v}, Align: v.Type.Align()}, Void)
}

// GEP offsets p by index elements of p's pointee type. Pointers into Heap,
// Storage, TransientStorage and Code spaces do not support arithmetic.
func (b *Builder) GEP(p Pointer, index Value) (Pointer, error) {
	if !p.space.AllowsPointerArithmetic() {
		return Pointer{}, fmt.Errorf("getelementptr on %s pointer", p.space)
	}
	v := b.append(Instr{Op: OpGEP, Type: p.elem, Args: []Value{p.value, index}}, p.value.Type)
	return newPointer(v, p.elem, p.space), nil
}

// ByteGEP offsets p by index bytes and views the result as elem.
func (b *Builder) ByteGEP(p Pointer, index Value, elem Type) (Pointer, error) {
	q, err := b.GEP(p.WithElem(I8), index)
	if err != nil {
		return Pointer{}, err
	}
	return q.WithElem(elem), nil
}

// AddrSpaceCast moves p into space.
func (b *Builder) AddrSpaceCast(p Pointer, space AddressSpace) Pointer {
	if p.space == space {
		return p
	}
	v := b.append(Instr{Op: OpAddrSpaceCast, Type: Ptr(space), Args: []Value{p.value}}, Ptr(space))
	return newPointer(v, p.elem, space)
}

// PtrToInt returns the address of p as a pointer-sized integer.
func (b *Builder) PtrToInt(p Pointer) Value {
	return b.append(Instr{Op: OpPtrToInt, Type: I32, Args: []Value{p.value}}, I32)
}

// IntToPtr turns a pointer-sized integer into a pointer in space.
func (b *Builder) IntToPtr(v Value, elem Type, space AddressSpace) Pointer {
	r := b.append(Instr{Op: OpIntToPtr, Type: Ptr(space), Args: []Value{v}}, Ptr(space))
	return newPointer(r, elem, space)
}

// Call calls a declared or defined function.
func (b *Builder) Call(callee string, args ...Value) Value {
	id, ok := b.Funcs.Lookup(callee)
	if !ok {
		panic(fmt.Sprintf("lir: call to undeclared function %s", callee))
	}
	f := b.Funcs.Get(id)
	return b.append(Instr{Op: OpCall, Type: f.Result, Callee: callee, Args: args}, f.Result)
}

// Trap aborts execution.
func (b *Builder) Trap() {
	b.Funcs.Declare(IntrinsicTrap, nil, Void, LinkIntrinsic)
	b.Call(IntrinsicTrap)
}

// BSwap reverses the bytes of v.
func (b *Builder) BSwap(v Value) Value {
	name := IntrinsicBSwap(v.Type)
	b.Funcs.Declare(name, []Type{v.Type}, v.Type, LinkIntrinsic)
	return b.Call(name, v)
}

// MemCpy copies n bytes between non-overlapping Stack pointers.
func (b *Builder) MemCpy(dst, src Pointer, n Value) {
	b.Funcs.Declare(IntrinsicMemCpy, []Type{Ptr(AddressSpaceStack), Ptr(AddressSpaceStack), I32, I1}, Void, LinkIntrinsic)
	b.Call(IntrinsicMemCpy, dst.value, src.value, n, Const(I1, 0))
}

// MemMove copies n bytes between possibly overlapping Stack pointers.
func (b *Builder) MemMove(dst, src Pointer, n Value) {
	b.Funcs.Declare(IntrinsicMemMove, []Type{Ptr(AddressSpaceStack), Ptr(AddressSpaceStack), I32, I1}, Void, LinkIntrinsic)
	b.Call(IntrinsicMemMove, dst.value, src.value, n, Const(I1, 0))
}

// MemSet fills n bytes at dst with the low byte of v.
func (b *Builder) MemSet(dst Pointer, v, n Value) {
	b.Funcs.Declare(IntrinsicMemSet, []Type{Ptr(AddressSpaceStack), I8, I32, I1}, Void, LinkIntrinsic)
	b.Call(IntrinsicMemSet, dst.value, v, n, Const(I1, 0))
}

func (b *Builder) terminate(t Terminator) {
	blk := b.cur()
	if blk.Term.Kind != TermNone {
		return
	}
	blk.Term = t
}

// Br jumps to target.
func (b *Builder) Br(target BlockID) { b.terminate(Terminator{Kind: TermBr, Target: target}) }

// CondBr branches on an i1.
func (b *Builder) CondBr(cond Value, then, els BlockID) {
	b.terminate(Terminator{Kind: TermCondBr, HasValue: true, Value: cond, Then: then, Else: els})
}

// Switch dispatches on v.
func (b *Builder) Switch(v Value, def BlockID, cases []SwitchCase) {
	b.terminate(Terminator{Kind: TermSwitch, HasValue: true, Value: v, Default: def, Cases: cases})
}

// Ret returns v from the current function.
func (b *Builder) Ret(v Value) { b.terminate(Terminator{Kind: TermRet, HasValue: true, Value: v}) }

// RetVoid returns from a void function.
func (b *Builder) RetVoid() { b.terminate(Terminator{Kind: TermRet}) }

// Unreachable marks the end of a block control never leaves.
func (b *Builder) Unreachable() { b.terminate(Terminator{Kind: TermUnreachable}) }

// Case builds a switch case for a word-sized constant.
func Case(v uint64, target BlockID) SwitchCase {
	c := SwitchCase{Target: target}
	c.Value.SetUint64(v)
	return c
}

// CaseInt builds a switch case for an arbitrary constant.
func CaseInt(v *uint256.Int, target BlockID) SwitchCase {
	c := SwitchCase{Target: target}
	c.Value.Set(v)
	return c
}
