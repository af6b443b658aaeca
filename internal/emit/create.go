package emit

import (
	"github.com/paritytech/revive-sub000/internal/lir"
	"github.com/paritytech/revive-sub000/internal/runtimeabi"
)

// HashSize is the size of a code hash in bytes.
const HashSize = 32

// Create instantiates a contract. The memory region holds the code hash of
// the contract followed by the constructor input. The result is the new
// address or zero on failure.
func (c *Context) Create(value, offset, length lir.Value) lir.Value {
	return c.instantiate(value, offset, length, lir.Const(lir.I32, 0))
}

// Create2 instantiates a contract at an address derived from salt. A zero
// salt pointer tells instantiate to use the plain create scheme.
func (c *Context) Create2(value, offset, length, salt lir.Value) lir.Value {
	b := c.Builder
	saltBuf := c.alloca(lir.Word)
	b.Store(saltBuf, b.BSwap(salt))
	return c.instantiate(value, offset, length, b.PtrToInt(saltBuf))
}

func (c *Context) instantiate(value, offset, length, salt lir.Value) lir.Value {
	b := c.Builder
	valueBuf := c.alloca(lir.Word)
	b.Store(valueBuf, value)
	deposit := c.alloca(lir.Word)
	b.Store(deposit, lir.AllOnes(lir.Word))
	address := c.alloca(addressType)
	b.Store(address, lir.Const(addressType, 0))

	p, n := c.HeapRegion(offset, length)
	result := runtimeabi.CallImport(b, runtimeabi.Instantiate,
		lir.AllOnes(lir.I64),
		lir.AllOnes(lir.I64),
		runtimeabi.PackHiLo(b, b.PtrToInt(deposit), b.PtrToInt(valueBuf)),
		runtimeabi.PackHiLo(b, n, b.PtrToInt(p)),
		lir.AllOnes(lir.I64),
		runtimeabi.PackHiLo(b, b.PtrToInt(address), salt),
	)
	created := b.ZExt(b.BSwap(b.Load(address)), lir.Word)
	ok := b.ICmp(lir.PredEQ, result, lir.Const(lir.I32, 0))
	return b.Select(ok, created, Word(0))
}

// DataOffset returns the code hash of the factory dependency identifier. The
// hash is resolved at link time.
func (c *Context) DataOffset(identifier string) lir.Value {
	name := runtimeabi.FactoryDependencySymbol(identifier)
	c.Globals.Declare(lir.Global{
		Name:     name,
		Type:     lir.Array(8, HashSize),
		Linkage:  lir.LinkExternal,
		Constant: true,
	})
	c.factoryDeps[identifier] = struct{}{}
	return c.Builder.BSwap(c.Builder.Load(c.Globals.Pointer(name, lir.Word)))
}

// DataSize is the size of a factory dependency reference.
func (c *Context) DataSize(string) lir.Value {
	return Word(HashSize)
}

// DataCopy stores a factory dependency reference produced by DataOffset to
// memory.
func (c *Context) DataCopy(dst, hash, _ lir.Value) error {
	return c.MStore(dst, hash)
}
