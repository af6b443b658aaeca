package lir

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

// ErrPoison reports operations whose result LLVM leaves undefined: division
// by zero and shifts by the operand width or more.
var ErrPoison = errors.New("poison value")

func mask(bits int) *uint256.Int {
	m := new(uint256.Int)
	if bits >= WordBits {
		return m.SetAllOne()
	}
	m.Lsh(uint256.NewInt(1), uint(bits))
	return m.SubUint64(m, 1)
}

// Truncate clears the bits of x above bits.
func Truncate(x *uint256.Int, bits int) {
	if bits > 0 && bits < WordBits {
		x.And(x, mask(bits))
	}
}

// SignExtend widens a bits-wide two's complement value to 256 bits.
func SignExtend(x *uint256.Int, bits int) uint256.Int {
	out := *x
	if bits >= WordBits || bits == 0 {
		return out
	}
	if bit(&out, bits-1) {
		var high uint256.Int
		high.Not(mask(bits))
		out.Or(&out, &high)
	}
	return out
}

func bit(x *uint256.Int, n int) bool {
	return x[n/64]>>(n%64)&1 == 1
}

// EvalBinary computes a binary operation on bits-wide operands.
func EvalBinary(op Op, bits int, x, y *uint256.Int) (uint256.Int, error) {
	var out uint256.Int
	switch op {
	case OpAdd:
		out.Add(x, y)
	case OpSub:
		out.Sub(x, y)
	case OpMul:
		out.Mul(x, y)
	case OpUDiv, OpURem, OpSDiv, OpSRem:
		if y.IsZero() {
			return out, fmt.Errorf("%s by zero: %w", op, ErrPoison)
		}
		sx, sy := SignExtend(x, bits), SignExtend(y, bits)
		switch op {
		case OpUDiv:
			out.Div(x, y)
		case OpURem:
			out.Mod(x, y)
		case OpSDiv:
			out.SDiv(&sx, &sy)
		case OpSRem:
			out.SMod(&sx, &sy)
		}
	case OpAnd:
		out.And(x, y)
	case OpOr:
		out.Or(x, y)
	case OpXor:
		out.Xor(x, y)
	case OpShl, OpLShr, OpAShr:
		if !y.IsUint64() || y.Uint64() >= uint64(bits) {
			return out, fmt.Errorf("%s by %s on i%d: %w", op, y.Dec(), bits, ErrPoison)
		}
		n := uint(y.Uint64())
		switch op {
		case OpShl:
			out.Lsh(x, n)
		case OpLShr:
			out.Rsh(x, n)
		case OpAShr:
			sx := SignExtend(x, bits)
			out.SRsh(&sx, n)
		}
	default:
		return out, fmt.Errorf("unknown binary op %s", op)
	}
	Truncate(&out, bits)
	return out, nil
}

// Compare evaluates an integer comparison of values of type t.
func Compare(pred Pred, t Type, x, y *uint256.Int) bool {
	bits := t.Bits
	if t.IsPtr() {
		bits = PointerSize * 8
	}
	sx, sy := SignExtend(x, bits), SignExtend(y, bits)
	switch pred {
	case PredEQ:
		return x.Eq(y)
	case PredNE:
		return !x.Eq(y)
	case PredULT:
		return x.Lt(y)
	case PredULE:
		return !x.Gt(y)
	case PredUGT:
		return x.Gt(y)
	case PredUGE:
		return !x.Lt(y)
	case PredSLT:
		return sx.Slt(&sy)
	case PredSLE:
		return !sx.Sgt(&sy)
	case PredSGT:
		return sx.Sgt(&sy)
	case PredSGE:
		return !sx.Slt(&sy)
	}
	return false
}
