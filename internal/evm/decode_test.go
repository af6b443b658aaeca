package evm

import (
	"bytes"
	"testing"
)

func TestDecodeOffsetsAndPushData(t *testing.T) {
	code := []byte{0x60, 0x01, 0x61, 0x02, 0x03, 0x01, 0x5b, 0x00}
	got := Decode(code)
	want := []struct {
		offset int
		op     OpCode
		data   []byte
	}{
		{0, PUSH1, []byte{0x01}},
		{2, PUSH1 + 1, []byte{0x02, 0x03}},
		{5, ADD, nil},
		{6, JUMPDEST, nil},
		{7, STOP, nil},
	}
	if len(got) != len(want) {
		t.Fatalf("decoded %d instructions, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Offset != w.offset || got[i].Op != w.op || !bytes.Equal(got[i].Data, w.data) {
			t.Errorf("instr %d = %v@%d, want %v@%d %x", i, got[i], got[i].Offset, w.op, w.offset, w.data)
		}
	}
}

func TestDecodeTruncatedPushIsZeroPadded(t *testing.T) {
	got := Decode([]byte{0x62, 0xaa})
	if len(got) != 1 {
		t.Fatalf("got %d instructions", len(got))
	}
	if !bytes.Equal(got[0].Data, []byte{0xaa, 0x00, 0x00}) {
		t.Fatalf("data = %x", got[0].Data)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	instrs := []Instruction{Push(0x01), Push(0x12, 0x34), Op(ADD), Op(JUMPDEST), Push(), Op(RETURN)}
	code := Encode(instrs)
	if instrs[2].Offset != 5 {
		t.Fatalf("ADD offset = %d, want 5", instrs[2].Offset)
	}
	again := Encode(Decode(code))
	if !bytes.Equal(code, again) {
		t.Fatalf("re-encoded %x, want %x", again, code)
	}
}

func TestStackCounts(t *testing.T) {
	tests := []struct {
		op           OpCode
		pops, pushes int
	}{
		{ADD, 2, 1},
		{PUSH1, 0, 1},
		{PUSH0, 0, 1},
		{DUP1, 1, 2},
		{DUP16, 16, 17},
		{SWAP1, 2, 2},
		{LOG0, 2, 0},
		{LOG4, 6, 0},
		{CALL, 7, 1},
		{STATICCALL, 6, 1},
		{OpCode(0x0c), 0, 0},
	}
	for _, tt := range tests {
		pops, pushes := StackCounts(tt.op)
		if pops != tt.pops || pushes != tt.pushes {
			t.Errorf("%v: got (%d,%d), want (%d,%d)", tt.op, pops, pushes, tt.pops, tt.pushes)
		}
	}
}

func TestOpCodeString(t *testing.T) {
	tests := map[OpCode]string{
		PUSH32:       "PUSH32",
		PUSH1 + 3:    "PUSH4",
		DUP1 + 2:     "DUP3",
		SWAP16:       "SWAP16",
		LOG0 + 1:     "LOG1",
		SELFDESTRUCT: "SELFDESTRUCT",
		0x0c:         "opcode 0x0c",
	}
	for op, want := range tests {
		if got := op.String(); got != want {
			t.Errorf("String(%#x) = %q, want %q", byte(op), got, want)
		}
	}
}

func TestParseHex(t *testing.T) {
	code, err := ParseHex(" 0x6001\n6002 01 ")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(code, []byte{0x60, 0x01, 0x60, 0x02, 0x01}) {
		t.Fatalf("code = %x", code)
	}
	if _, err := ParseHex("0xzz"); err == nil {
		t.Fatal("expected error")
	}
}
