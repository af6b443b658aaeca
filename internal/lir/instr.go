package lir

import "github.com/holiman/uint256"

// Op enumerates instruction opcodes.
type Op uint8

const (
	OpAdd Op = iota
	OpSub
	OpMul
	OpUDiv
	OpSDiv
	OpURem
	OpSRem
	OpAnd
	OpOr
	OpXor
	OpShl
	OpLShr
	OpAShr

	// OpICmp compares Args[0] and Args[1] with Pred.
	OpICmp
	// OpSelect picks Args[1] when Args[0] is true, Args[2] otherwise.
	OpSelect
	OpZExt
	OpSExt
	OpTrunc

	// OpAlloca reserves Type on the native stack; the result is a Stack pointer.
	OpAlloca
	// OpLoad reads Type through Args[0].
	OpLoad
	// OpStore writes Args[1] through Args[0].
	OpStore
	// OpGEP offsets Args[0] by Args[1] elements of Type.
	OpGEP
	// OpAddrSpaceCast moves Args[0] into address space Type.Space.
	OpAddrSpaceCast
	OpPtrToInt
	OpIntToPtr
	// OpCall calls Callee with Args; Type is the result type.
	OpCall
)

var opNames = [...]string{
	OpAdd:           "add",
	OpSub:           "sub",
	OpMul:           "mul",
	OpUDiv:          "udiv",
	OpSDiv:          "sdiv",
	OpURem:          "urem",
	OpSRem:          "srem",
	OpAnd:           "and",
	OpOr:            "or",
	OpXor:           "xor",
	OpShl:           "shl",
	OpLShr:          "lshr",
	OpAShr:          "ashr",
	OpICmp:          "icmp",
	OpSelect:        "select",
	OpZExt:          "zext",
	OpSExt:          "sext",
	OpTrunc:         "trunc",
	OpAlloca:        "alloca",
	OpLoad:          "load",
	OpStore:         "store",
	OpGEP:           "getelementptr",
	OpAddrSpaceCast: "addrspacecast",
	OpPtrToInt:      "ptrtoint",
	OpIntToPtr:      "inttoptr",
	OpCall:          "call",
}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return "op?"
}

// IsBinary reports whether o is a two-operand integer operation.
func (o Op) IsBinary() bool { return o <= OpAShr }

// IsCast reports whether o converts between integer widths or pointers.
func (o Op) IsCast() bool {
	switch o {
	case OpZExt, OpSExt, OpTrunc, OpAddrSpaceCast, OpPtrToInt, OpIntToPtr:
		return true
	}
	return false
}

// Pred is an integer comparison predicate.
type Pred uint8

const (
	PredEQ Pred = iota
	PredNE
	PredULT
	PredULE
	PredUGT
	PredUGE
	PredSLT
	PredSLE
	PredSGT
	PredSGE
)

var predNames = [...]string{"eq", "ne", "ult", "ule", "ugt", "uge", "slt", "sle", "sgt", "sge"}

func (p Pred) String() string {
	if int(p) < len(predNames) {
		return predNames[p]
	}
	return "pred?"
}

// Instr is one non-terminating instruction.
type Instr struct {
	Op     Op
	Dst    Reg
	Type   Type
	Args   []Value
	Pred   Pred
	Callee string
	Align  int
}

// HasResult reports whether the instruction defines a register.
func (in *Instr) HasResult() bool { return in.Dst != NoReg }

// Result returns the defined register as a value.
func (in *Instr) Result() Value {
	return RegValue(in.Dst, in.resultType())
}

func (in *Instr) resultType() Type {
	switch in.Op {
	case OpICmp:
		return I1
	case OpAlloca:
		return Ptr(AddressSpaceStack)
	case OpGEP:
		if len(in.Args) > 0 {
			return in.Args[0].Type
		}
	}
	return in.Type
}

// TermKind enumerates block terminators.
type TermKind uint8

const (
	TermNone TermKind = iota
	TermRet
	TermBr
	TermCondBr
	TermSwitch
	TermUnreachable
)

// SwitchCase maps one constant to a target block.
type SwitchCase struct {
	Value  uint256.Int
	Target BlockID
}

// Terminator ends a block. Value is the returned, tested or switched value.
type Terminator struct {
	Kind     TermKind
	HasValue bool
	Value    Value
	Target   BlockID
	Then     BlockID
	Else     BlockID
	Cases    []SwitchCase
	Default  BlockID
}

// Successors lists the blocks control may reach next.
func (t *Terminator) Successors() []BlockID {
	switch t.Kind {
	case TermBr:
		return []BlockID{t.Target}
	case TermCondBr:
		return []BlockID{t.Then, t.Else}
	case TermSwitch:
		out := make([]BlockID, 0, len(t.Cases)+1)
		out = append(out, t.Default)
		for _, c := range t.Cases {
			out = append(out, c.Target)
		}
		return out
	}
	return nil
}
