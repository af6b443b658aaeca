package emit

import (
	"github.com/paritytech/revive-sub000/internal/lir"
	"github.com/paritytech/revive-sub000/internal/runtimeabi"
)

func (c *Context) MLoad(offset lir.Value) (lir.Value, error) {
	return c.Load(c.HeapPointer(c.SafeTruncate(offset), lir.Word))
}

func (c *Context) MStore(offset, value lir.Value) error {
	return c.Store(c.HeapPointer(c.SafeTruncate(offset), lir.Word), value)
}

// MStore8 stores the least significant byte of value.
func (c *Context) MStore8(offset, value lir.Value) error {
	return c.Store(c.HeapPointer(c.SafeTruncate(offset), lir.I8), value)
}

// MSize returns the size of the heap touched so far, in whole words.
func (c *Context) MSize() lir.Value {
	return c.Builder.ZExt(c.Builder.Call(runtimeabi.MSize), lir.Word)
}

// MCopy copies length bytes of memory from src to dst; the regions may
// overlap.
func (c *Context) MCopy(dst, src, length lir.Value) {
	n := c.SafeTruncate(length)
	d := c.Builder.Call(runtimeabi.Sbrk, c.SafeTruncate(dst), n)
	s := c.Builder.Call(runtimeabi.Sbrk, c.SafeTruncate(src), n)
	c.Builder.MemMove(lir.AsPointer(d, lir.I8), lir.AsPointer(s, lir.I8), n)
}

func (c *Context) CallDataLoad(offset lir.Value) lir.Value {
	return c.Builder.Call(runtimeabi.CallDataLoad, offset)
}

func (c *Context) CallDataSize() lir.Value {
	size := c.Builder.Load(c.Globals.Pointer(runtimeabi.GlobalCallDataSize, lir.I32))
	return c.Builder.ZExt(size, lir.Word)
}

// CallDataCopy copies call data to memory, zero padded past its end.
func (c *Context) CallDataCopy(dst, offset, length lir.Value) {
	p, n := c.HeapRegion(dst, length)
	c.Builder.Call(runtimeabi.CallDataCopy, p.Value(), offset, n)
}

func (c *Context) ReturnDataSize() lir.Value {
	size := runtimeabi.CallImport(c.Builder, runtimeabi.ReturnDataSize)
	return c.Builder.ZExt(size, lir.Word)
}

// ReturnDataCopy copies return data to memory. Reading past the end of the
// return data traps.
func (c *Context) ReturnDataCopy(dst, offset, length lir.Value) {
	b := c.Builder
	end := b.Add(offset, length)
	wrapped := b.ICmp(lir.PredULT, end, offset)
	beyond := b.ICmp(lir.PredUGT, end, c.ReturnDataSize())
	c.trapIf(b.Or(wrapped, beyond), "return_data_overflow")

	p, n := c.HeapRegion(dst, length)
	lenBuf := c.alloca(lir.I32)
	b.Store(lenBuf, n)
	runtimeabi.CallImport(b, runtimeabi.ReturnDataCopy, b.PtrToInt(p), b.PtrToInt(lenBuf), b.Trunc(offset, lir.I32))
}

// trapIf traps when cond holds and continues in a fresh block otherwise.
func (c *Context) trapIf(cond lir.Value, name string) {
	b := c.Builder
	trap := b.AppendBlock(name)
	cont := b.AppendBlock(name + "_ok")
	b.CondBr(cond, trap, cont)
	b.SetInsertPoint(trap)
	b.Trap()
	b.Unreachable()
	b.SetInsertPoint(cont)
}

func (c *Context) SLoad(key lir.Value) (lir.Value, error) {
	return c.Load(c.StoragePointer(key, false))
}

func (c *Context) SStore(key, value lir.Value) error {
	return c.Store(c.StoragePointer(key, false), value)
}

func (c *Context) TLoad(key lir.Value) (lir.Value, error) {
	return c.Load(c.StoragePointer(key, true))
}

func (c *Context) TStore(key, value lir.Value) error {
	return c.Store(c.StoragePointer(key, true), value)
}

// Keccak256 hashes length bytes of memory at offset.
func (c *Context) Keccak256(offset, length lir.Value) lir.Value {
	b := c.Builder
	p, n := c.HeapRegion(offset, length)
	out := c.alloca(lir.Word)
	runtimeabi.CallImport(b, runtimeabi.HashKeccak256, b.PtrToInt(p), n, b.PtrToInt(out))
	return b.BSwap(b.Load(out))
}
