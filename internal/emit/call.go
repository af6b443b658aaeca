package emit

import (
	"github.com/paritytech/revive-sub000/internal/lir"
	"github.com/paritytech/revive-sub000/internal/runtimeabi"
)

// callBuffers holds the syscall view of a call's memory regions.
type callBuffers struct {
	input, output lir.Value // packed (length, pointer)
	lengths       lir.Value // input length | output length
}

func (c *Context) callRegions(inOff, inLen, outOff, outLen lir.Value) callBuffers {
	b := c.Builder
	in, inN := c.HeapRegion(inOff, inLen)
	out, outN := c.HeapRegion(outOff, outLen)
	outLenBuf := c.alloca(lir.I32)
	b.Store(outLenBuf, outN)
	return callBuffers{
		input:   runtimeabi.PackHiLo(b, inN, b.PtrToInt(in)),
		output:  runtimeabi.PackHiLo(b, b.PtrToInt(outLenBuf), b.PtrToInt(out)),
		lengths: b.Or(inN, outN),
	}
}

// refTimeLimit clips the EVM gas argument to the 64-bit weight limit.
func (c *Context) refTimeLimit(gas lir.Value) lir.Value {
	b := c.Builder
	limit := lir.AllOnes(lir.I64)
	wide := b.ICmp(lir.PredUGT, gas, b.ZExt(limit, lir.Word))
	return b.Select(wide, limit, b.Trunc(gas, lir.I64))
}

func (c *Context) success(result lir.Value) lir.Value {
	return c.fromBool(c.Builder.ICmp(lir.PredEQ, result, lir.Const(lir.I32, 0)))
}

// Call performs a message call and returns 1 on success and 0 otherwise.
// Calls that look like plain balance transfers are not allowed to re-enter
// and get no storage deposit.
func (c *Context) Call(gas, address, value, inOff, inLen, outOff, outLen lir.Value) lir.Value {
	b := c.Builder
	callee := c.addressArgument(address)
	valueBuf := c.alloca(lir.Word)
	b.Store(valueBuf, value)
	bufs := c.callRegions(inOff, inLen, outOff, outLen)

	deposit := c.alloca(lir.Word)
	flags := b.Call(runtimeabi.CallReentrancyProtector, deposit.Value(), gas, bufs.lengths)
	return c.sealCall(flags, callee, deposit, valueBuf, bufs)
}

// StaticCall performs a read-only message call without value.
func (c *Context) StaticCall(gas, address, inOff, inLen, outOff, outLen lir.Value) lir.Value {
	b := c.Builder
	callee := c.addressArgument(address)
	valueBuf := c.alloca(lir.Word)
	b.Store(valueBuf, Word(0))
	bufs := c.callRegions(inOff, inLen, outOff, outLen)
	deposit := c.alloca(lir.Word)
	b.Store(deposit, lir.AllOnes(lir.Word))
	flags := lir.Const(lir.I32, runtimeabi.CallFlagReentrant|runtimeabi.CallFlagStatic)
	return c.sealCall(flags, callee, deposit, valueBuf, bufs)
}

// sealCall issues seal_call with the six packed registers:
// (flags|callee), ref time, proof size, (deposit|value), input, output.
// Weight is not limited; gas only feeds the re-entrancy heuristic.
func (c *Context) sealCall(flags, callee lir.Value, deposit, value lir.Pointer, bufs callBuffers) lir.Value {
	b := c.Builder
	result := runtimeabi.CallImport(b, runtimeabi.Call,
		runtimeabi.PackHiLo(b, flags, callee),
		lir.AllOnes(lir.I64),
		lir.AllOnes(lir.I64),
		runtimeabi.PackHiLo(b, b.PtrToInt(deposit), b.PtrToInt(value)),
		bufs.input,
		bufs.output,
	)
	return c.success(result)
}

// DelegateCall runs the code of address in the current contract's context.
func (c *Context) DelegateCall(gas, address, inOff, inLen, outOff, outLen lir.Value) lir.Value {
	b := c.Builder
	callee := c.addressArgument(address)
	bufs := c.callRegions(inOff, inLen, outOff, outLen)
	result := runtimeabi.CallImport(b, runtimeabi.DelegateCall,
		lir.Const(lir.I32, 0),
		callee,
		c.refTimeLimit(gas),
		bufs.input,
		bufs.output,
	)
	return c.success(result)
}
