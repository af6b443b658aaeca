package tac

import (
	"fmt"
	"strings"

	"github.com/paritytech/revive-sub000/internal/symbol"
)

// Operator tags arithmetic, comparison and bitwise instructions.
type Operator uint8

const (
	OpAdd Operator = iota
	OpMul
	OpSub
	OpDiv
	OpSDiv
	OpMod
	OpSMod
	OpExp
	OpSignExtend

	OpLessThan
	OpGreaterThan
	OpSignedLessThan
	OpSignedGreaterThan
	OpEqual
	OpIsZero

	OpAnd
	OpOr
	OpXor
	OpNot
	OpByte
	OpShiftLeft
	OpShiftRight
	OpShiftArithmeticRight
)

var operatorNames = [...]string{
	OpAdd:                  "Add",
	OpMul:                  "Mul",
	OpSub:                  "Sub",
	OpDiv:                  "Div",
	OpSDiv:                 "SDiv",
	OpMod:                  "Mod",
	OpSMod:                 "SMod",
	OpExp:                  "Exp",
	OpSignExtend:           "SignExtend",
	OpLessThan:             "LessThan",
	OpGreaterThan:          "GreaterThan",
	OpSignedLessThan:       "SignedLessThan",
	OpSignedGreaterThan:    "SignedGreaterThan",
	OpEqual:                "Equal",
	OpIsZero:               "IsZero",
	OpAnd:                  "And",
	OpOr:                   "Or",
	OpXor:                  "Xor",
	OpNot:                  "Not",
	OpByte:                 "Byte",
	OpShiftLeft:            "ShiftLeft",
	OpShiftRight:           "ShiftRight",
	OpShiftArithmeticRight: "ShiftArithmeticRight",
}

func (o Operator) String() string {
	if int(o) < len(operatorNames) {
		return operatorNames[o]
	}
	return fmt.Sprintf("Operator(%d)", o)
}

// InstrKind enumerates three-address instruction kinds.
type InstrKind uint8

const (
	// InstrCopy is `x = y`.
	InstrCopy InstrKind = iota
	// InstrUnary is `x = op y`.
	InstrUnary
	// InstrBinary is `x = y op z`.
	InstrBinary
	// InstrIndexedAssign is `x[index] = y`.
	InstrIndexedAssign
	// InstrIndexedCopy is `x = y[index]`.
	InstrIndexedCopy
	// InstrBranch is `branch target`.
	InstrBranch
	// InstrCondBranch is `if condition branch target`.
	InstrCondBranch
	// InstrProcedure is `call(label, args...)`.
	InstrProcedure
	// InstrFunction is `x = call(label, args...)`.
	InstrFunction
)

// Instr is a three-address instruction. Only the payload matching Kind is set.
// Operands keep EVM pop order: the first popped value comes first.
type Instr struct {
	Kind   InstrKind
	Offset int // bytecode offset of the originating opcode

	Copy          CopyInstr
	Unary         UnaryInstr
	Binary        BinaryInstr
	IndexedAssign IndexedAssignInstr
	IndexedCopy   IndexedCopyInstr
	Branch        BranchInstr
	CondBranch    CondBranchInstr
	Call          CallInstr
}

type CopyInstr struct {
	X, Y symbol.ID
}

type UnaryInstr struct {
	Op   Operator
	X, Y symbol.ID
}

type BinaryInstr struct {
	Op      Operator
	X, Y, Z symbol.ID
}

// IndexedAssignInstr stores Y into the location global X at Index.
type IndexedAssignInstr struct {
	X, Index, Y symbol.ID
}

// IndexedCopyInstr loads the location global Y at Index into X.
type IndexedCopyInstr struct {
	X, Y, Index symbol.ID
}

type BranchInstr struct {
	Target symbol.ID
}

type CondBranchInstr struct {
	Condition, Target symbol.ID
}

// CallInstr is shared by procedures and functions; X is symbol.NoID for procedures.
type CallInstr struct {
	Routine symbol.Global
	X       symbol.ID
	Args    []symbol.ID
}

// IsBranch reports whether the instruction transfers control to a jump target.
func (in *Instr) IsBranch() bool {
	return in.Kind == InstrBranch || in.Kind == InstrCondBranch
}

// Target returns the jump target symbol of a branch.
func (in *Instr) Target() symbol.ID {
	switch in.Kind {
	case InstrBranch:
		return in.Branch.Target
	case InstrCondBranch:
		return in.CondBranch.Target
	}
	return symbol.NoID
}

// Defs returns the symbol written by the instruction, or symbol.NoID.
func (in *Instr) Defs() symbol.ID {
	switch in.Kind {
	case InstrCopy:
		return in.Copy.X
	case InstrUnary:
		return in.Unary.X
	case InstrBinary:
		return in.Binary.X
	case InstrIndexedCopy:
		return in.IndexedCopy.X
	case InstrFunction:
		return in.Call.X
	}
	return symbol.NoID
}

// Uses returns the symbols read by the instruction in operand order.
func (in *Instr) Uses() []symbol.ID {
	switch in.Kind {
	case InstrCopy:
		return []symbol.ID{in.Copy.Y}
	case InstrUnary:
		return []symbol.ID{in.Unary.Y}
	case InstrBinary:
		return []symbol.ID{in.Binary.Y, in.Binary.Z}
	case InstrIndexedAssign:
		return []symbol.ID{in.IndexedAssign.Index, in.IndexedAssign.Y}
	case InstrIndexedCopy:
		return []symbol.ID{in.IndexedCopy.Index}
	case InstrBranch:
		return []symbol.ID{in.Branch.Target}
	case InstrCondBranch:
		return []symbol.ID{in.CondBranch.Condition, in.CondBranch.Target}
	case InstrProcedure, InstrFunction:
		return in.Call.Args
	}
	return nil
}

// Format renders the instruction with operands resolved through tbl.
func (in *Instr) Format(tbl *symbol.Table) string {
	f := tbl.Format
	switch in.Kind {
	case InstrCopy:
		return fmt.Sprintf("%s = %s", f(in.Copy.X), f(in.Copy.Y))
	case InstrUnary:
		return fmt.Sprintf("%s = %s %s", f(in.Unary.X), in.Unary.Op, f(in.Unary.Y))
	case InstrBinary:
		return fmt.Sprintf("%s = %s %s %s", f(in.Binary.X), f(in.Binary.Y), in.Binary.Op, f(in.Binary.Z))
	case InstrIndexedAssign:
		return fmt.Sprintf("%s[%s] = %s", f(in.IndexedAssign.X), f(in.IndexedAssign.Index), f(in.IndexedAssign.Y))
	case InstrIndexedCopy:
		return fmt.Sprintf("%s = %s[%s]", f(in.IndexedCopy.X), f(in.IndexedCopy.Y), f(in.IndexedCopy.Index))
	case InstrBranch:
		return fmt.Sprintf("branch %s", f(in.Branch.Target))
	case InstrCondBranch:
		return fmt.Sprintf("if %s branch %s", f(in.CondBranch.Condition), f(in.CondBranch.Target))
	case InstrProcedure, InstrFunction:
		args := make([]string, len(in.Call.Args))
		for i, a := range in.Call.Args {
			args[i] = f(a)
		}
		call := fmt.Sprintf("%s(%s)", in.Call.Routine, strings.Join(args, ", "))
		if in.Kind == InstrFunction {
			return fmt.Sprintf("%s = %s", f(in.Call.X), call)
		}
		return call
	}
	return "no-op"
}
