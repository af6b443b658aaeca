package emit

import (
	"github.com/holiman/uint256"

	"github.com/paritytech/revive-sub000/internal/lir"
	"github.com/paritytech/revive-sub000/internal/runtimeabi"
)

var minSigned = new(uint256.Int).Lsh(uint256.NewInt(1), 255)

func (c *Context) Add(x, y lir.Value) lir.Value { return c.Builder.Add(x, y) }
func (c *Context) Sub(x, y lir.Value) lir.Value { return c.Builder.Sub(x, y) }
func (c *Context) Mul(x, y lir.Value) lir.Value { return c.Builder.Mul(x, y) }

// safeDivisor replaces divisors the hardware division must not see by one.
// Callers select the EVM result for those cases.
func (c *Context) safeDivisor(y, bad lir.Value) lir.Value {
	return c.Builder.Select(bad, Word(1), y)
}

// Div is unsigned division; division by zero yields zero.
func (c *Context) Div(x, y lir.Value) lir.Value {
	b := c.Builder
	zero := b.ICmp(lir.PredEQ, y, Word(0))
	q := b.Binary(lir.OpUDiv, x, c.safeDivisor(y, zero))
	return b.Select(zero, Word(0), q)
}

// SDiv is signed division; division by zero yields zero and MIN / -1
// yields MIN.
func (c *Context) SDiv(x, y lir.Value) lir.Value {
	b := c.Builder
	zero := b.ICmp(lir.PredEQ, y, Word(0))
	overflow := b.And(
		b.ICmp(lir.PredEQ, x, WordInt(minSigned)),
		b.ICmp(lir.PredEQ, y, lir.AllOnes(lir.Word)),
	)
	q := b.Binary(lir.OpSDiv, x, c.safeDivisor(y, b.Or(zero, overflow)))
	return b.Select(zero, Word(0), q)
}

// Mod is the unsigned remainder; modulo zero yields zero.
func (c *Context) Mod(x, y lir.Value) lir.Value {
	b := c.Builder
	zero := b.ICmp(lir.PredEQ, y, Word(0))
	r := b.Binary(lir.OpURem, x, c.safeDivisor(y, zero))
	return b.Select(zero, Word(0), r)
}

// SMod is the signed remainder with the sign of the dividend; modulo zero
// yields zero.
func (c *Context) SMod(x, y lir.Value) lir.Value {
	b := c.Builder
	zero := b.ICmp(lir.PredEQ, y, Word(0))
	minusOne := b.ICmp(lir.PredEQ, y, lir.AllOnes(lir.Word))
	r := b.Binary(lir.OpSRem, x, c.safeDivisor(y, b.Or(zero, minusOne)))
	return b.Select(zero, Word(0), r)
}

func (c *Context) AddMod(x, y, m lir.Value) lir.Value {
	return c.Builder.Call(runtimeabi.BuiltinAddMod, x, y, m)
}

func (c *Context) MulMod(x, y, m lir.Value) lir.Value {
	return c.Builder.Call(runtimeabi.BuiltinMulMod, x, y, m)
}

func (c *Context) Exp(base, exponent lir.Value) lir.Value {
	return c.Builder.Call(runtimeabi.BuiltinExp, base, exponent)
}

// SignExtend extends the sign bit of byte i (counted from the least
// significant end) of x across the word. i > 30 leaves x unchanged.
func (c *Context) SignExtend(i, x lir.Value) lir.Value {
	b := c.Builder
	noop := b.ICmp(lir.PredUGT, i, Word(30))
	index := b.Select(noop, Word(0), i)
	shift := b.Sub(Word(248), b.Mul(index, Word(8)))
	extended := b.AShr(b.Shl(x, shift), shift)
	return b.Select(noop, x, extended)
}

func (c *Context) Lt(x, y lir.Value) lir.Value {
	return c.fromBool(c.Builder.ICmp(lir.PredULT, x, y))
}

func (c *Context) Gt(x, y lir.Value) lir.Value {
	return c.fromBool(c.Builder.ICmp(lir.PredUGT, x, y))
}

func (c *Context) Slt(x, y lir.Value) lir.Value {
	return c.fromBool(c.Builder.ICmp(lir.PredSLT, x, y))
}

func (c *Context) Sgt(x, y lir.Value) lir.Value {
	return c.fromBool(c.Builder.ICmp(lir.PredSGT, x, y))
}

func (c *Context) Eq(x, y lir.Value) lir.Value {
	return c.fromBool(c.Builder.ICmp(lir.PredEQ, x, y))
}

func (c *Context) IsZero(x lir.Value) lir.Value {
	return c.fromBool(c.Builder.ICmp(lir.PredEQ, x, Word(0)))
}
