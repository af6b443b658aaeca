package interp

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"

	"github.com/paritytech/revive-sub000/internal/lir"
	"github.com/paritytech/revive-sub000/internal/runtimeabi"
)

func (vm *Machine) callee(in *lir.Instr, args []uint256.Int) (uint256.Int, error) {
	f := vm.module.Func(in.Callee)
	if f == nil {
		return uint256.Int{}, fmt.Errorf("call to unknown function %s", in.Callee)
	}
	if !f.IsDeclaration() {
		return vm.call(f, args)
	}
	switch f.Linkage {
	case lir.LinkIntrinsic:
		return vm.intrinsic(f, args)
	case lir.LinkBuiltin:
		return builtin(f.Name, args)
	case lir.LinkImport:
		raw := make([]uint64, len(args))
		for i := range args {
			raw[i] = args[i].Uint64()
		}
		r, err := vm.host.Syscall(vm, f.Name, raw)
		var out uint256.Int
		out.SetUint64(r)
		lir.Truncate(&out, f.Result.Bits)
		return out, err
	}
	return uint256.Int{}, fmt.Errorf("call to undefined function %s", f.Name)
}

func (vm *Machine) intrinsic(f *lir.Func, args []uint256.Int) (uint256.Int, error) {
	switch {
	case f.Name == lir.IntrinsicTrap:
		return uint256.Int{}, ErrTrap
	case strings.HasPrefix(f.Name, "llvm.bswap."):
		n := uint32(f.Result.Size())
		le := toLE(&args[0], n)
		for i, j := 0, len(le)-1; i < j; i, j = i+1, j-1 {
			le[i], le[j] = le[j], le[i]
		}
		return fromLE(le), nil
	case f.Name == lir.IntrinsicMemCpy, f.Name == lir.IntrinsicMemMove:
		dst, err := address(&args[0])
		if err != nil {
			return uint256.Int{}, err
		}
		src, err := address(&args[1])
		if err != nil {
			return uint256.Int{}, err
		}
		data, err := vm.Read(src, uint32(args[2].Uint64()))
		if err != nil {
			return uint256.Int{}, err
		}
		return uint256.Int{}, vm.Write(dst, data)
	case f.Name == lir.IntrinsicMemSet:
		dst, err := address(&args[0])
		if err != nil {
			return uint256.Int{}, err
		}
		data := make([]byte, uint32(args[2].Uint64()))
		for i := range data {
			data[i] = byte(args[1].Uint64())
		}
		return uint256.Int{}, vm.Write(dst, data)
	}
	return uint256.Int{}, fmt.Errorf("unknown intrinsic %s", f.Name)
}

// builtin evaluates the routines the builtins library provides, with EVM
// semantics: a zero modulus yields zero.
func builtin(name string, args []uint256.Int) (uint256.Int, error) {
	var out uint256.Int
	switch name {
	case runtimeabi.BuiltinAddMod:
		out.AddMod(&args[0], &args[1], &args[2])
	case runtimeabi.BuiltinMulMod:
		out.MulMod(&args[0], &args[1], &args[2])
	case runtimeabi.BuiltinExp:
		out.Exp(&args[0], &args[1])
	default:
		return out, fmt.Errorf("unknown builtin %s", name)
	}
	return out, nil
}
