package emit

import (
	"fmt"

	"github.com/paritytech/revive-sub000/internal/evm"
	"github.com/paritytech/revive-sub000/internal/lir"
)

// Opcode emits op with args in pop order (args[0] was on top of the stack)
// and returns the pushed value, if any. Stack manipulation and jumps are not
// handled here.
func (c *Context) Opcode(op evm.OpCode, args []lir.Value) (lir.Value, error) {
	pops, _ := evm.StackCounts(op)
	if !op.Defined() {
		return lir.Value{}, c.unsupported(op)
	}
	if len(args) != pops {
		return lir.Value{}, fmt.Errorf("%s: want %d operands, got %d", op, pops, len(args))
	}
	a := args

	if op.IsLog() {
		c.Log(a[0], a[1], a[2:]...)
		return lir.Value{}, nil
	}

	switch op {
	case evm.ADD:
		return c.Add(a[0], a[1]), nil
	case evm.MUL:
		return c.Mul(a[0], a[1]), nil
	case evm.SUB:
		return c.Sub(a[0], a[1]), nil
	case evm.DIV:
		return c.Div(a[0], a[1]), nil
	case evm.SDIV:
		return c.SDiv(a[0], a[1]), nil
	case evm.MOD:
		return c.Mod(a[0], a[1]), nil
	case evm.SMOD:
		return c.SMod(a[0], a[1]), nil
	case evm.ADDMOD:
		return c.AddMod(a[0], a[1], a[2]), nil
	case evm.MULMOD:
		return c.MulMod(a[0], a[1], a[2]), nil
	case evm.EXP:
		return c.Exp(a[0], a[1]), nil
	case evm.SIGNEXTEND:
		return c.SignExtend(a[0], a[1]), nil

	case evm.LT:
		return c.Lt(a[0], a[1]), nil
	case evm.GT:
		return c.Gt(a[0], a[1]), nil
	case evm.SLT:
		return c.Slt(a[0], a[1]), nil
	case evm.SGT:
		return c.Sgt(a[0], a[1]), nil
	case evm.EQ:
		return c.Eq(a[0], a[1]), nil
	case evm.ISZERO:
		return c.IsZero(a[0]), nil
	case evm.AND:
		return c.And(a[0], a[1]), nil
	case evm.OR:
		return c.Or(a[0], a[1]), nil
	case evm.XOR:
		return c.Xor(a[0], a[1]), nil
	case evm.NOT:
		return c.Not(a[0]), nil
	case evm.BYTE:
		return c.Byte(a[0], a[1]), nil
	case evm.SHL:
		return c.Shl(a[0], a[1]), nil
	case evm.SHR:
		return c.Shr(a[0], a[1]), nil
	case evm.SAR:
		return c.Sar(a[0], a[1]), nil

	case evm.KECCAK256:
		return c.Keccak256(a[0], a[1]), nil

	case evm.ADDRESS:
		return c.Address(), nil
	case evm.BALANCE:
		return c.Balance(a[0]), nil
	case evm.ORIGIN:
		return c.Origin(), nil
	case evm.CALLER:
		return c.Caller(), nil
	case evm.CALLVALUE:
		return c.CallValue(), nil
	case evm.CALLDATALOAD:
		return c.CallDataLoad(a[0]), nil
	case evm.CALLDATASIZE:
		return c.CallDataSize(), nil
	case evm.CALLDATACOPY:
		c.CallDataCopy(a[0], a[1], a[2])
		return lir.Value{}, nil
	case evm.GASPRICE:
		return c.GasPrice(), nil
	case evm.EXTCODESIZE:
		return c.ExtCodeSize(a[0]), nil
	case evm.RETURNDATASIZE:
		return c.ReturnDataSize(), nil
	case evm.RETURNDATACOPY:
		c.ReturnDataCopy(a[0], a[1], a[2])
		return lir.Value{}, nil
	case evm.EXTCODEHASH:
		return c.ExtCodeHash(a[0]), nil

	case evm.BLOCKHASH:
		return c.BlockHash(a[0]), nil
	case evm.COINBASE:
		return c.Coinbase(), nil
	case evm.TIMESTAMP:
		return c.Timestamp(), nil
	case evm.NUMBER:
		return c.Number(), nil
	case evm.GASLIMIT:
		return c.GasLimit(), nil
	case evm.CHAINID:
		return c.ChainID(), nil
	case evm.SELFBALANCE:
		return c.SelfBalance(), nil
	case evm.BASEFEE:
		return c.BaseFee(), nil

	case evm.MLOAD:
		return c.MLoad(a[0])
	case evm.MSTORE:
		return lir.Value{}, c.MStore(a[0], a[1])
	case evm.MSTORE8:
		return lir.Value{}, c.MStore8(a[0], a[1])
	case evm.SLOAD:
		return c.SLoad(a[0])
	case evm.SSTORE:
		return lir.Value{}, c.SStore(a[0], a[1])
	case evm.TLOAD:
		return c.TLoad(a[0])
	case evm.TSTORE:
		return lir.Value{}, c.TStore(a[0], a[1])
	case evm.MSIZE:
		return c.MSize(), nil
	case evm.GAS:
		return c.Gas(), nil
	case evm.MCOPY:
		c.MCopy(a[0], a[1], a[2])
		return lir.Value{}, nil

	case evm.CREATE:
		return c.Create(a[0], a[1], a[2]), nil
	case evm.CREATE2:
		return c.Create2(a[0], a[1], a[2], a[3]), nil
	case evm.CALL:
		return c.Call(a[0], a[1], a[2], a[3], a[4], a[5], a[6]), nil
	case evm.STATICCALL:
		return c.StaticCall(a[0], a[1], a[2], a[3], a[4], a[5]), nil
	case evm.DELEGATECALL:
		return c.DelegateCall(a[0], a[1], a[2], a[3], a[4], a[5]), nil
	case evm.RETURN:
		c.Return(a[0], a[1])
		return lir.Value{}, nil
	case evm.REVERT:
		c.Revert(a[0], a[1])
		return lir.Value{}, nil
	case evm.STOP:
		c.Stop()
		return lir.Value{}, nil
	case evm.INVALID:
		c.Invalid()
		return lir.Value{}, nil
	}

	return lir.Value{}, c.unsupported(op)
}

func (c *Context) unsupported(op evm.OpCode) error {
	return &UnsupportedOpcodeError{Op: op, Offset: c.offset}
}
