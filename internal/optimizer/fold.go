package optimizer

import "github.com/paritytech/revive-sub000/internal/lir"

// foldConstants evaluates instructions whose operands are known and rewrites
// their uses. Operations that would produce poison are left alone.
func foldConstants(f *lir.Func) bool {
	known := make(map[lir.Reg]lir.Value)
	resolve := func(v lir.Value) lir.Value {
		for range len(known) + 1 {
			if v.Kind != lir.ValueReg {
				break
			}
			k, ok := known[v.Reg]
			if !ok {
				break
			}
			v = k
		}
		return v
	}

	for changed := true; changed; {
		changed = false
		for _, b := range f.Blocks {
			for i := range b.Instrs {
				in := &b.Instrs[i]
				if !in.HasResult() {
					continue
				}
				if _, done := known[in.Dst]; done {
					continue
				}
				if v, ok := fold(in, resolve); ok {
					known[in.Dst] = v
					changed = true
				}
			}
		}
	}
	if len(known) == 0 {
		return false
	}

	for _, b := range f.Blocks {
		kept := b.Instrs[:0]
		for _, in := range b.Instrs {
			if in.HasResult() {
				if _, ok := known[in.Dst]; ok {
					continue
				}
			}
			for j := range in.Args {
				in.Args[j] = resolve(in.Args[j])
			}
			kept = append(kept, in)
		}
		b.Instrs = kept
		if b.Term.HasValue {
			b.Term.Value = resolve(b.Term.Value)
		}
	}
	return true
}

func fold(in *lir.Instr, resolve func(lir.Value) lir.Value) (lir.Value, bool) {
	args := make([]lir.Value, len(in.Args))
	for i, a := range in.Args {
		args[i] = resolve(a)
	}
	switch {
	case in.Op.IsBinary():
		return foldBinary(in.Op, args[0], args[1])
	case in.Op == lir.OpICmp:
		return foldCompare(in.Pred, args[0], args[1])
	case in.Op == lir.OpSelect:
		switch {
		case args[0].IsConst():
			if args[0].Const.IsZero() {
				return args[2], true
			}
			return args[1], true
		case args[1] == args[2]:
			return args[1], true
		}
	case in.Op == lir.OpZExt, in.Op == lir.OpTrunc:
		if args[0].IsConst() && in.Type.IsInt() {
			return lir.ConstInt(in.Type, &args[0].Const), true
		}
	case in.Op == lir.OpSExt:
		if args[0].IsConst() && in.Type.IsInt() {
			v := lir.SignExtend(&args[0].Const, args[0].Type.Bits)
			return lir.ConstInt(in.Type, &v), true
		}
	}
	return lir.Value{}, false
}

func isConst(v lir.Value, c uint64) bool {
	return v.IsConst() && v.Const.IsUint64() && v.Const.Uint64() == c
}

func isAllOnes(v lir.Value) bool {
	return v.IsConst() && v == lir.AllOnes(v.Type)
}

func foldBinary(op lir.Op, x, y lir.Value) (lir.Value, bool) {
	t := x.Type
	if x.IsConst() && y.IsConst() {
		v, err := lir.EvalBinary(op, t.Bits, &x.Const, &y.Const)
		if err != nil {
			return lir.Value{}, false
		}
		return lir.ConstInt(t, &v), true
	}
	switch op {
	case lir.OpAdd, lir.OpOr, lir.OpXor:
		if isConst(y, 0) {
			return x, true
		}
		if isConst(x, 0) {
			return y, true
		}
	case lir.OpSub, lir.OpShl, lir.OpLShr, lir.OpAShr:
		if isConst(y, 0) {
			return x, true
		}
	case lir.OpMul:
		switch {
		case isConst(x, 0), isConst(y, 0):
			return lir.Const(t, 0), true
		case isConst(y, 1):
			return x, true
		case isConst(x, 1):
			return y, true
		}
	case lir.OpAnd:
		switch {
		case isConst(x, 0), isConst(y, 0):
			return lir.Const(t, 0), true
		case isAllOnes(y):
			return x, true
		case isAllOnes(x):
			return y, true
		}
	case lir.OpUDiv, lir.OpSDiv:
		if isConst(y, 1) {
			return x, true
		}
	}
	if x == y && x.Kind == lir.ValueReg {
		switch op {
		case lir.OpSub, lir.OpXor:
			return lir.Const(t, 0), true
		case lir.OpAnd, lir.OpOr:
			return x, true
		}
	}
	return lir.Value{}, false
}

func foldCompare(pred lir.Pred, x, y lir.Value) (lir.Value, bool) {
	if x.IsConst() && y.IsConst() {
		return boolean(lir.Compare(pred, x.Type, &x.Const, &y.Const)), true
	}
	if x == y && x.Kind == lir.ValueReg {
		switch pred {
		case lir.PredEQ, lir.PredULE, lir.PredUGE, lir.PredSLE, lir.PredSGE:
			return boolean(true), true
		default:
			return boolean(false), true
		}
	}
	// Nothing is below zero or above all ones, unsigned.
	switch {
	case pred == lir.PredULT && isConst(y, 0), pred == lir.PredUGT && isAllOnes(y):
		return boolean(false), true
	case pred == lir.PredUGE && isConst(y, 0), pred == lir.PredULE && isAllOnes(y):
		return boolean(true), true
	}
	return lir.Value{}, false
}

func boolean(b bool) lir.Value {
	if b {
		return lir.Const(lir.I1, 1)
	}
	return lir.Const(lir.I1, 0)
}
