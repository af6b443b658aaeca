package emit

import (
	"fmt"

	"github.com/paritytech/revive-sub000/internal/lir"
	"github.com/paritytech/revive-sub000/internal/runtimeabi"
)

// HeapPointer returns a pointer to offset in the emulated EVM memory.
func (c *Context) HeapPointer(offset lir.Value, elem lir.Type) lir.Pointer {
	return c.Builder.IntToPtr(c.Builder.ZExtOrTrunc(offset, lir.I32), elem, lir.AddressSpaceHeap)
}

// StoragePointer returns a pointer to the storage slot key. The key is kept
// in a native stack buffer; the pointer is that buffer tagged with the
// storage address space.
func (c *Context) StoragePointer(key lir.Value, transient bool) lir.Pointer {
	buf := c.alloca(lir.Word)
	c.Builder.Store(buf, key)
	space := lir.AddressSpaceStorage
	if transient {
		space = lir.AddressSpaceTransientStorage
	}
	return c.Builder.AddrSpaceCast(buf, space)
}

// Load reads through p according to its address space.
func (c *Context) Load(p lir.Pointer) (lir.Value, error) {
	b := c.Builder
	switch p.Space() {
	case lir.AddressSpaceStack:
		return b.Load(p), nil
	case lir.AddressSpaceGeneric:
		return b.Load(b.AddrSpaceCast(p, lir.AddressSpaceStack)), nil
	case lir.AddressSpaceHeap:
		offset := b.PtrToInt(p)
		switch p.Elem() {
		case lir.Word:
			return b.Call(runtimeabi.LoadHeapWord, offset), nil
		case lir.I8:
			q := b.Call(runtimeabi.Sbrk, offset, lir.Const(lir.I32, 1))
			return b.Load(lir.AsPointer(q, lir.I8)), nil
		}
		return lir.Value{}, fmt.Errorf("heap load of %s", p.Elem())
	case lir.AddressSpaceStorage, lir.AddressSpaceTransientStorage:
		if p.Elem() != lir.Word {
			return lir.Value{}, fmt.Errorf("%s load of %s", p.Space(), p.Elem())
		}
		return c.loadStorage(p), nil
	}
	return lir.Value{}, fmt.Errorf("load from %s address space", p.Space())
}

// Store writes v through p according to its address space.
func (c *Context) Store(p lir.Pointer, v lir.Value) error {
	b := c.Builder
	switch p.Space() {
	case lir.AddressSpaceStack:
		b.Store(p, v)
		return nil
	case lir.AddressSpaceGeneric:
		b.Store(b.AddrSpaceCast(p, lir.AddressSpaceStack), v)
		return nil
	case lir.AddressSpaceHeap:
		offset := b.PtrToInt(p)
		switch p.Elem() {
		case lir.Word:
			b.Call(runtimeabi.StoreHeapWord, offset, b.ZExtOrTrunc(v, lir.Word))
			return nil
		case lir.I8:
			q := b.Call(runtimeabi.Sbrk, offset, lir.Const(lir.I32, 1))
			b.Store(lir.AsPointer(q, lir.I8), b.ZExtOrTrunc(v, lir.I8))
			return nil
		}
		return fmt.Errorf("heap store of %s", p.Elem())
	case lir.AddressSpaceStorage, lir.AddressSpaceTransientStorage:
		if p.Elem() != lir.Word {
			return fmt.Errorf("%s store of %s", p.Space(), p.Elem())
		}
		c.storeStorage(p, v)
		return nil
	}
	return fmt.Errorf("store to %s address space", p.Space())
}

func storageFlags(p lir.Pointer) lir.Value {
	if p.Space() == lir.AddressSpaceTransientStorage {
		return lir.Const(lir.I32, runtimeabi.StorageFlagTransient)
	}
	return lir.Const(lir.I32, runtimeabi.StorageFlagDefault)
}

// loadStorage reads a storage word. Keys and values cross the ABI big
// endian; a missing key reads as zero.
func (c *Context) loadStorage(p lir.Pointer) lir.Value {
	b := c.Builder
	key := b.Load(b.AddrSpaceCast(p, lir.AddressSpaceStack))
	keyBuf := c.alloca(lir.Word)
	b.Store(keyBuf, b.BSwap(key))

	valueBuf := c.alloca(lir.Word)
	b.Store(valueBuf, Word(0))
	lenBuf := c.alloca(lir.I32)
	b.Store(lenBuf, lir.Const(lir.I32, runtimeabi.WordSize))

	runtimeabi.CallImport(b, runtimeabi.GetStorage,
		storageFlags(p),
		b.PtrToInt(keyBuf),
		lir.Const(lir.I32, runtimeabi.WordSize),
		b.PtrToInt(valueBuf),
		b.PtrToInt(lenBuf),
	)
	return b.BSwap(b.Load(valueBuf))
}

func (c *Context) storeStorage(p lir.Pointer, v lir.Value) {
	b := c.Builder
	key := b.Load(b.AddrSpaceCast(p, lir.AddressSpaceStack))
	keyBuf := c.alloca(lir.Word)
	b.Store(keyBuf, b.BSwap(key))
	valueBuf := c.alloca(lir.Word)
	b.Store(valueBuf, b.BSwap(v))

	runtimeabi.CallImport(b, runtimeabi.SetStorage,
		storageFlags(p),
		b.PtrToInt(keyBuf),
		lir.Const(lir.I32, runtimeabi.WordSize),
		b.PtrToInt(valueBuf),
		lir.Const(lir.I32, runtimeabi.WordSize),
	)
}

// SafeTruncate narrows a word to 32 bits, trapping when it does not fit.
func (c *Context) SafeTruncate(v lir.Value) lir.Value {
	return runtimeabi.SafeTruncate(c.Builder, v)
}

// HeapRegion validates [offset, offset+length) and returns a native pointer
// to its start together with the truncated length. The heap grows to cover
// the region.
func (c *Context) HeapRegion(offset, length lir.Value) (lir.Pointer, lir.Value) {
	off := c.SafeTruncate(offset)
	n := c.SafeTruncate(length)
	p := c.Builder.Call(runtimeabi.Sbrk, off, n)
	return lir.AsPointer(p, lir.I8), n
}
