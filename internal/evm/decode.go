package evm

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// Instruction is one decoded opcode together with its byte offset in the code.
type Instruction struct {
	Offset int
	Op     OpCode
	Data   []byte // PUSH immediate, zero-padded to the opcode's width
}

// Op returns an instruction without immediate. Offsets are assigned by Encode/Decode.
func Op(op OpCode) Instruction {
	return Instruction{Op: op}
}

// Push returns the smallest PUSH instruction carrying data. An empty slice yields PUSH0.
func Push(data ...byte) Instruction {
	if len(data) == 0 {
		return Instruction{Op: PUSH0}
	}
	if len(data) > 32 {
		data = data[len(data)-32:]
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	return Instruction{Op: PUSH1 + OpCode(len(data)-1), Data: buf}
}

// Length is the encoded size of the instruction.
func (in Instruction) Length() int {
	return in.Op.Length()
}

// Value returns the PUSH immediate as a word. Non-push instructions yield zero.
func (in Instruction) Value() *uint256.Int {
	return new(uint256.Int).SetBytes(in.Data)
}

func (in Instruction) String() string {
	if in.Op.IsPush() {
		return fmt.Sprintf("%s 0x%x", in.Op, in.Data)
	}
	return in.Op.String()
}

// Decode splits code into instructions. A PUSH whose immediate runs past the end of
// the code is zero-padded on the right, as the EVM reads missing bytes as zero.
func Decode(code []byte) []Instruction {
	out := make([]Instruction, 0, len(code))
	for pc := 0; pc < len(code); {
		op := OpCode(code[pc])
		in := Instruction{Offset: pc, Op: op}
		if n := op.PushBytes(); n > 0 {
			in.Data = make([]byte, n)
			start := pc + 1
			end := min(start+n, len(code))
			if start < end {
				copy(in.Data, code[start:end])
			}
		}
		out = append(out, in)
		pc += op.Length()
	}
	return out
}

// Encode serializes instructions and rewrites their offsets in place.
func Encode(instrs []Instruction) []byte {
	var out []byte
	for i := range instrs {
		instrs[i].Offset = len(out)
		out = append(out, byte(instrs[i].Op))
		if n := instrs[i].Op.PushBytes(); n > 0 {
			data := make([]byte, n)
			copy(data[n-min(n, len(instrs[i].Data)):], instrs[i].Data)
			out = append(out, data...)
		}
	}
	return out
}

// ParseHex decodes hex bytecode, tolerating a 0x prefix and whitespace.
func ParseHex(s string) ([]byte, error) {
	s = strings.Join(strings.Fields(s), "")
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	code, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid bytecode hex: %w", err)
	}
	return code, nil
}
