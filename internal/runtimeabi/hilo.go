package runtimeabi

import "github.com/paritytech/revive-sub000/internal/lir"

// PackHiLo combines two 32-bit values into one 64-bit syscall argument:
// (zext hi << 32) | zext lo. Syscalls with more parameters than PolkaVM has
// argument registers take (length, pointer) pairs this way.
func PackHiLo(b *lir.Builder, hi, lo lir.Value) lir.Value {
	h := b.Shl(b.ZExt(hi, lir.I64), lir.Const(lir.I64, 32))
	return b.Or(h, b.ZExt(lo, lir.I64))
}

// UnpackHiLo splits a packed argument on the host side.
func UnpackHiLo(v uint64) (hi, lo uint32) {
	return uint32(v >> 32), uint32(v)
}

// HiLo packs two values the way PackHiLo does at run time.
func HiLo(hi, lo uint32) uint64 {
	return uint64(hi)<<32 | uint64(lo)
}
