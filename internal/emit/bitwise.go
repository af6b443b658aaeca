package emit

import "github.com/paritytech/revive-sub000/internal/lir"

func (c *Context) And(x, y lir.Value) lir.Value { return c.Builder.And(x, y) }
func (c *Context) Or(x, y lir.Value) lir.Value  { return c.Builder.Or(x, y) }
func (c *Context) Xor(x, y lir.Value) lir.Value { return c.Builder.Xor(x, y) }
func (c *Context) Not(x lir.Value) lir.Value    { return c.Builder.Not(x) }

// shiftOverflow reports shift amounts of 256 and more, and the amount to
// use in their place so the real shift stays defined.
func (c *Context) shiftOverflow(shift lir.Value) (overflow, amount lir.Value) {
	b := c.Builder
	overflow = b.ICmp(lir.PredUGT, shift, Word(255))
	return overflow, b.Select(overflow, Word(0), shift)
}

// Shl shifts value left; shifts past the word yield zero.
func (c *Context) Shl(shift, value lir.Value) lir.Value {
	overflow, amount := c.shiftOverflow(shift)
	return c.Builder.Select(overflow, Word(0), c.Builder.Shl(value, amount))
}

// Shr shifts value right logically; shifts past the word yield zero.
func (c *Context) Shr(shift, value lir.Value) lir.Value {
	overflow, amount := c.shiftOverflow(shift)
	return c.Builder.Select(overflow, Word(0), c.Builder.LShr(value, amount))
}

// Sar shifts value right arithmetically; shifts past the word fill with the
// sign bit.
func (c *Context) Sar(shift, value lir.Value) lir.Value {
	b := c.Builder
	overflow, amount := c.shiftOverflow(shift)
	fill := b.AShr(value, Word(255))
	return b.Select(overflow, fill, b.AShr(value, amount))
}

// Byte extracts byte index of value counting from the most significant end.
// Indices past 31 yield zero.
func (c *Context) Byte(index, value lir.Value) lir.Value {
	b := c.Builder
	outOfRange := b.ICmp(lir.PredUGT, index, Word(31))
	mask := b.Select(outOfRange, Word(0), Word(0xff))
	position := b.Sub(Word(248), b.Mul(index, Word(8)))
	position = b.Select(outOfRange, Word(0), position)
	return b.And(b.LShr(value, position), mask)
}
