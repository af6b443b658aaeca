package runtimeabi

import (
	"github.com/holiman/uint256"

	"github.com/paritytech/revive-sub000/internal/lir"
)

var maxPointer = uint256.NewInt(1<<32 - 1)

// SafeTruncate narrows a word to a 32-bit pointer-sized value and traps when
// the word does not fit. Heap offsets are untrusted; truncating them
// silently could turn an invalid offset into a valid but wrong one.
func SafeTruncate(b *lir.Builder, v lir.Value) lir.Value {
	if v.Type == lir.I32 {
		return v
	}
	if v.IsConst() && !v.Const.Gt(maxPointer) {
		return lir.Const(lir.I32, v.Const.Uint64())
	}
	truncated := b.Trunc(v, lir.I32)
	extended := b.ZExt(truncated, v.Type)
	overflow := b.ICmp(lir.PredNE, v, extended)
	trap := b.AppendBlock("offset_overflow")
	ok := b.AppendBlock("offset_ok")
	b.CondBr(overflow, trap, ok)
	b.SetInsertPoint(trap)
	b.Trap()
	b.Unreachable()
	b.SetInsertPoint(ok)
	return truncated
}

// SaturatingTruncate narrows a word to 32 bits, clamping values that do not
// fit to the maximum. Used for sizes and offsets that are compared before use.
func SaturatingTruncate(b *lir.Builder, v lir.Value) lir.Value {
	if v.Type == lir.I32 {
		return v
	}
	if v.IsConst() {
		if v.Const.Gt(maxPointer) {
			return lir.AllOnes(lir.I32)
		}
		return lir.Const(lir.I32, v.Const.Uint64())
	}
	overflow := b.ICmp(lir.PredUGT, v, lir.ConstInt(v.Type, maxPointer))
	return b.Select(overflow, lir.AllOnes(lir.I32), b.Trunc(v, lir.I32))
}
