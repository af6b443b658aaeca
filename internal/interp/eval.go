package interp

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/paritytech/revive-sub000/internal/lir"
)

// frame is the activation record of one function call.
type frame struct {
	fn   *lir.Func
	bb   lir.BlockID
	regs []uint256.Int
}

func (vm *Machine) call(f *lir.Func, args []uint256.Int) (uint256.Int, error) {
	fr := &frame{fn: f, regs: make([]uint256.Int, len(f.Regs))}
	copy(fr.regs, args)
	sp := vm.sp
	defer func() { vm.sp = sp }()

	for {
		blk := f.Block(fr.bb)
		if blk == nil {
			return uint256.Int{}, &Error{Func: f.Name, Block: fmt.Sprint(fr.bb), Err: fmt.Errorf("no block %d", fr.bb)}
		}
		for i := range blk.Instrs {
			vm.steps++
			if vm.steps > vm.opts.MaxSteps {
				return uint256.Int{}, vm.fail(fr, blk, ErrStepLimit)
			}
			if err := vm.exec(fr, &blk.Instrs[i]); err != nil {
				if _, ok := err.(*Halt); ok {
					return uint256.Int{}, err
				}
				if _, ok := err.(*Error); ok {
					return uint256.Int{}, err
				}
				return uint256.Int{}, vm.fail(fr, blk, fmt.Errorf("%s: %w", lir.FormatInstr(&blk.Instrs[i]), err))
			}
		}

		vm.steps++
		if vm.steps > vm.opts.MaxSteps {
			return uint256.Int{}, vm.fail(fr, blk, ErrStepLimit)
		}
		t := &blk.Term
		switch t.Kind {
		case lir.TermRet:
			if !t.HasValue {
				return uint256.Int{}, nil
			}
			return vm.value(fr, t.Value), nil
		case lir.TermBr:
			fr.bb = t.Target
		case lir.TermCondBr:
			cond := vm.value(fr, t.Value)
			if cond.IsZero() {
				fr.bb = t.Else
			} else {
				fr.bb = t.Then
			}
		case lir.TermSwitch:
			v := vm.value(fr, t.Value)
			fr.bb = t.Default
			for _, c := range t.Cases {
				if v.Eq(&c.Value) {
					fr.bb = c.Target
					break
				}
			}
		case lir.TermUnreachable:
			return uint256.Int{}, vm.fail(fr, blk, ErrUnreachable)
		default:
			return uint256.Int{}, vm.fail(fr, blk, fmt.Errorf("block without terminator"))
		}
	}
}

func (vm *Machine) fail(fr *frame, blk *lir.Block, err error) error {
	name := blk.Name
	if blk.ID == 0 {
		name = "entry"
	}
	return &Error{Func: fr.fn.Name, Block: fmt.Sprintf("%s.%d", name, blk.ID), Err: err}
}

// value evaluates an operand.
func (vm *Machine) value(fr *frame, v lir.Value) uint256.Int {
	switch v.Kind {
	case lir.ValueConst:
		return v.Const
	case lir.ValueReg:
		return fr.regs[v.Reg]
	case lir.ValueGlobal:
		var out uint256.Int
		out.SetUint64(uint64(vm.globals[v.Name]))
		return out
	}
	return uint256.Int{}
}

func (vm *Machine) exec(fr *frame, in *lir.Instr) error {
	args := make([]uint256.Int, len(in.Args))
	for i, a := range in.Args {
		args[i] = vm.value(fr, a)
	}
	var (
		out uint256.Int
		err error
	)
	switch {
	case in.Op.IsBinary():
		out, err = lir.EvalBinary(in.Op, in.Args[0].Type.Bits, &args[0], &args[1])
	case in.Op == lir.OpICmp:
		if lir.Compare(in.Pred, in.Args[0].Type, &args[0], &args[1]) {
			out.SetOne()
		}
	case in.Op == lir.OpSelect:
		out = args[2]
		if !args[0].IsZero() {
			out = args[1]
		}
	case in.Op == lir.OpZExt:
		out = args[0]
	case in.Op == lir.OpSExt:
		out = lir.SignExtend(&args[0], in.Args[0].Type.Bits)
		lir.Truncate(&out, in.Type.Bits)
	case in.Op == lir.OpTrunc:
		out = args[0]
		lir.Truncate(&out, in.Type.Bits)
	case in.Op == lir.OpAddrSpaceCast, in.Op == lir.OpPtrToInt, in.Op == lir.OpIntToPtr:
		out = args[0]
		lir.Truncate(&out, 32)
	case in.Op == lir.OpAlloca:
		addr, aerr := vm.alloca(in.Type)
		if aerr != nil {
			return aerr
		}
		out.SetUint64(uint64(addr))
	case in.Op == lir.OpLoad:
		out, err = vm.load(&args[0], in.Type)
	case in.Op == lir.OpStore:
		return vm.store(&args[0], in.Args[1].Type, &args[1])
	case in.Op == lir.OpGEP:
		var offset uint256.Int
		offset.Mul(&args[1], uint256.NewInt(uint64(in.Type.Size())))
		out.Add(&args[0], &offset)
		lir.Truncate(&out, 32)
	case in.Op == lir.OpCall:
		out, err = vm.callee(in, args)
	default:
		return fmt.Errorf("unknown op %s", in.Op)
	}
	if err != nil {
		return err
	}
	if in.HasResult() {
		fr.regs[in.Dst] = out
	}
	return nil
}

func (vm *Machine) alloca(t lir.Type) (uint32, error) {
	addr := alignUp(uint64(vm.sp), uint64(t.Align()))
	end := addr + uint64(t.Size())
	if end > uint64(len(vm.mem)) {
		return 0, fmt.Errorf("native stack exhausted: %w", ErrOutOfBounds)
	}
	vm.sp = uint32(end)
	clear(vm.mem[addr:end])
	return uint32(addr), nil
}

func address(v *uint256.Int) (uint32, error) {
	if !v.IsUint64() || v.Uint64() > 1<<32-1 {
		return 0, fmt.Errorf("address %s: %w", v.Hex(), ErrOutOfBounds)
	}
	return uint32(v.Uint64()), nil
}

// load reads a little-endian value of type t.
func (vm *Machine) load(p *uint256.Int, t lir.Type) (uint256.Int, error) {
	addr, err := address(p)
	if err != nil {
		return uint256.Int{}, err
	}
	size := loadSize(t)
	data, err := vm.Read(addr, size)
	if err != nil {
		return uint256.Int{}, err
	}
	return fromLE(data), nil
}

func (vm *Machine) store(p *uint256.Int, t lir.Type, v *uint256.Int) error {
	addr, err := address(p)
	if err != nil {
		return err
	}
	return vm.Write(addr, toLE(v, loadSize(t)))
}

func loadSize(t lir.Type) uint32 {
	return uint32(t.Size())
}

func fromLE(data []byte) uint256.Int {
	be := make([]byte, len(data))
	for i, b := range data {
		be[len(data)-1-i] = b
	}
	var out uint256.Int
	out.SetBytes(be)
	return out
}

func toLE(v *uint256.Int, n uint32) []byte {
	be := v.Bytes32()
	out := make([]byte, n)
	for i := range out {
		out[i] = be[31-i]
	}
	return out
}
