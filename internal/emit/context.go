package emit

import (
	"github.com/paritytech/revive-sub000/internal/lir"
	"github.com/paritytech/revive-sub000/internal/runtimeabi"
)

// AddressBits is the width of an EVM account address.
const AddressBits = 160

var addressType = lir.Int(AddressBits)

// addressResult calls a syscall writing a big-endian address and returns it
// as a word.
func (c *Context) addressResult(name string, args ...lir.Value) lir.Value {
	b := c.Builder
	out := c.alloca(addressType)
	runtimeabi.CallImport(b, name, append(args, b.PtrToInt(out))...)
	return b.ZExt(b.BSwap(b.Load(out)), lir.Word)
}

// wordResult calls a syscall writing a little-endian word.
func (c *Context) wordResult(name string, args ...lir.Value) lir.Value {
	b := c.Builder
	out := c.alloca(lir.Word)
	runtimeabi.CallImport(b, name, append(args, b.PtrToInt(out))...)
	return b.Load(out)
}

// hashResult calls a syscall writing a 32-byte hash.
func (c *Context) hashResult(name string, args ...lir.Value) lir.Value {
	b := c.Builder
	out := c.alloca(lir.Word)
	runtimeabi.CallImport(b, name, append(args, b.PtrToInt(out))...)
	return b.BSwap(b.Load(out))
}

// addressArgument spills the low 160 bits of a word big-endian into a stack
// buffer and returns its address.
func (c *Context) addressArgument(address lir.Value) lir.Value {
	b := c.Builder
	buf := c.alloca(addressType)
	b.Store(buf, b.BSwap(b.Trunc(address, addressType)))
	return b.PtrToInt(buf)
}

func (c *Context) Address() lir.Value  { return c.addressResult(runtimeabi.Address) }
func (c *Context) Caller() lir.Value   { return c.addressResult(runtimeabi.Caller) }
func (c *Context) Origin() lir.Value   { return c.addressResult(runtimeabi.Origin) }
func (c *Context) Coinbase() lir.Value { return c.addressResult(runtimeabi.BlockAuthor) }

func (c *Context) CallValue() lir.Value   { return c.wordResult(runtimeabi.ValueTransferred) }
func (c *Context) SelfBalance() lir.Value { return c.wordResult(runtimeabi.Balance) }
func (c *Context) ChainID() lir.Value     { return c.wordResult(runtimeabi.ChainID) }
func (c *Context) Timestamp() lir.Value   { return c.wordResult(runtimeabi.Now) }
func (c *Context) Number() lir.Value      { return c.wordResult(runtimeabi.BlockNumber) }
func (c *Context) BaseFee() lir.Value     { return c.wordResult(runtimeabi.BaseFee) }

func (c *Context) Balance(address lir.Value) lir.Value {
	return c.wordResult(runtimeabi.BalanceOf, c.addressArgument(address))
}

// BlockHash passes the block number little-endian and returns the hash.
func (c *Context) BlockHash(number lir.Value) lir.Value {
	b := c.Builder
	buf := c.alloca(lir.Word)
	b.Store(buf, number)
	return c.hashResult(runtimeabi.BlockHash, b.PtrToInt(buf))
}

func (c *Context) ExtCodeHash(address lir.Value) lir.Value {
	return c.hashResult(runtimeabi.CodeHash, c.addressArgument(address))
}

func (c *Context) ExtCodeSize(address lir.Value) lir.Value {
	size := runtimeabi.CallImport(c.Builder, runtimeabi.CodeSize, c.addressArgument(address))
	return c.Builder.ZExt(size, lir.Word)
}

func (c *Context) i64Result(name string) lir.Value {
	return c.Builder.ZExt(runtimeabi.CallImport(c.Builder, name), lir.Word)
}

func (c *Context) GasLimit() lir.Value { return c.i64Result(runtimeabi.GasLimit) }
func (c *Context) GasPrice() lir.Value { return c.i64Result(runtimeabi.GasPrice) }
func (c *Context) Gas() lir.Value      { return c.i64Result(runtimeabi.RefTimeLeft) }
