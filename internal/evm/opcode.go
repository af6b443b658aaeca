// Package evm describes the EVM instruction set as seen by the compiler:
// opcode names, immediate sizes and stack effects, plus a bytecode decoder.
package evm

import "fmt"

// OpCode is a single EVM instruction byte.
type OpCode byte

// 0x00 range: arithmetic.
const (
	STOP       OpCode = 0x00
	ADD        OpCode = 0x01
	MUL        OpCode = 0x02
	SUB        OpCode = 0x03
	DIV        OpCode = 0x04
	SDIV       OpCode = 0x05
	MOD        OpCode = 0x06
	SMOD       OpCode = 0x07
	ADDMOD     OpCode = 0x08
	MULMOD     OpCode = 0x09
	EXP        OpCode = 0x0a
	SIGNEXTEND OpCode = 0x0b
)

// 0x10 range: comparison and bitwise logic.
const (
	LT     OpCode = 0x10
	GT     OpCode = 0x11
	SLT    OpCode = 0x12
	SGT    OpCode = 0x13
	EQ     OpCode = 0x14
	ISZERO OpCode = 0x15
	AND    OpCode = 0x16
	OR     OpCode = 0x17
	XOR    OpCode = 0x18
	NOT    OpCode = 0x19
	BYTE   OpCode = 0x1a
	SHL    OpCode = 0x1b
	SHR    OpCode = 0x1c
	SAR    OpCode = 0x1d

	KECCAK256 OpCode = 0x20
)

// 0x30 range: execution environment.
const (
	ADDRESS        OpCode = 0x30
	BALANCE        OpCode = 0x31
	ORIGIN         OpCode = 0x32
	CALLER         OpCode = 0x33
	CALLVALUE      OpCode = 0x34
	CALLDATALOAD   OpCode = 0x35
	CALLDATASIZE   OpCode = 0x36
	CALLDATACOPY   OpCode = 0x37
	CODESIZE       OpCode = 0x38
	CODECOPY       OpCode = 0x39
	GASPRICE       OpCode = 0x3a
	EXTCODESIZE    OpCode = 0x3b
	EXTCODECOPY    OpCode = 0x3c
	RETURNDATASIZE OpCode = 0x3d
	RETURNDATACOPY OpCode = 0x3e
	EXTCODEHASH    OpCode = 0x3f
)

// 0x40 range: block information.
const (
	BLOCKHASH   OpCode = 0x40
	COINBASE    OpCode = 0x41
	TIMESTAMP   OpCode = 0x42
	NUMBER      OpCode = 0x43
	PREVRANDAO  OpCode = 0x44
	GASLIMIT    OpCode = 0x45
	CHAINID     OpCode = 0x46
	SELFBALANCE OpCode = 0x47
	BASEFEE     OpCode = 0x48
	BLOBHASH    OpCode = 0x49
	BLOBBASEFEE OpCode = 0x4a
)

// 0x50 range: stack, memory, storage and flow.
const (
	POP      OpCode = 0x50
	MLOAD    OpCode = 0x51
	MSTORE   OpCode = 0x52
	MSTORE8  OpCode = 0x53
	SLOAD    OpCode = 0x54
	SSTORE   OpCode = 0x55
	JUMP     OpCode = 0x56
	JUMPI    OpCode = 0x57
	PC       OpCode = 0x58
	MSIZE    OpCode = 0x59
	GAS      OpCode = 0x5a
	JUMPDEST OpCode = 0x5b
	TLOAD    OpCode = 0x5c
	TSTORE   OpCode = 0x5d
	MCOPY    OpCode = 0x5e
	PUSH0    OpCode = 0x5f
)

// 0x60 range: pushes. PUSH2..PUSH31 are PUSH1+n-1.
const (
	PUSH1  OpCode = 0x60
	PUSH32 OpCode = 0x7f
)

// 0x80 range: dups.
const (
	DUP1 OpCode = 0x80 + iota
	DUP2
	DUP3
	DUP4
	DUP5
	DUP6
	DUP7
	DUP8
	DUP9
	DUP10
	DUP11
	DUP12
	DUP13
	DUP14
	DUP15
	DUP16
)

// 0x90 range: swaps.
const (
	SWAP1 OpCode = 0x90 + iota
	SWAP2
	SWAP3
	SWAP4
	SWAP5
	SWAP6
	SWAP7
	SWAP8
	SWAP9
	SWAP10
	SWAP11
	SWAP12
	SWAP13
	SWAP14
	SWAP15
	SWAP16
)

// 0xa0 range: logs.
const (
	LOG0 OpCode = 0xa0 + iota
	LOG1
	LOG2
	LOG3
	LOG4
)

// 0xf0 range: system operations.
const (
	CREATE       OpCode = 0xf0
	CALL         OpCode = 0xf1
	CALLCODE     OpCode = 0xf2
	RETURN       OpCode = 0xf3
	DELEGATECALL OpCode = 0xf4
	CREATE2      OpCode = 0xf5
	STATICCALL   OpCode = 0xfa
	REVERT       OpCode = 0xfd
	INVALID      OpCode = 0xfe
	SELFDESTRUCT OpCode = 0xff
)

type opInfo struct {
	name   string
	pops   int
	pushes int
}

var opTable = map[OpCode]opInfo{
	STOP:       {"STOP", 0, 0},
	ADD:        {"ADD", 2, 1},
	MUL:        {"MUL", 2, 1},
	SUB:        {"SUB", 2, 1},
	DIV:        {"DIV", 2, 1},
	SDIV:       {"SDIV", 2, 1},
	MOD:        {"MOD", 2, 1},
	SMOD:       {"SMOD", 2, 1},
	ADDMOD:     {"ADDMOD", 3, 1},
	MULMOD:     {"MULMOD", 3, 1},
	EXP:        {"EXP", 2, 1},
	SIGNEXTEND: {"SIGNEXTEND", 2, 1},

	LT:        {"LT", 2, 1},
	GT:        {"GT", 2, 1},
	SLT:       {"SLT", 2, 1},
	SGT:       {"SGT", 2, 1},
	EQ:        {"EQ", 2, 1},
	ISZERO:    {"ISZERO", 1, 1},
	AND:       {"AND", 2, 1},
	OR:        {"OR", 2, 1},
	XOR:       {"XOR", 2, 1},
	NOT:       {"NOT", 1, 1},
	BYTE:      {"BYTE", 2, 1},
	SHL:       {"SHL", 2, 1},
	SHR:       {"SHR", 2, 1},
	SAR:       {"SAR", 2, 1},
	KECCAK256: {"KECCAK256", 2, 1},

	ADDRESS:        {"ADDRESS", 0, 1},
	BALANCE:        {"BALANCE", 1, 1},
	ORIGIN:         {"ORIGIN", 0, 1},
	CALLER:         {"CALLER", 0, 1},
	CALLVALUE:      {"CALLVALUE", 0, 1},
	CALLDATALOAD:   {"CALLDATALOAD", 1, 1},
	CALLDATASIZE:   {"CALLDATASIZE", 0, 1},
	CALLDATACOPY:   {"CALLDATACOPY", 3, 0},
	CODESIZE:       {"CODESIZE", 0, 1},
	CODECOPY:       {"CODECOPY", 3, 0},
	GASPRICE:       {"GASPRICE", 0, 1},
	EXTCODESIZE:    {"EXTCODESIZE", 1, 1},
	EXTCODECOPY:    {"EXTCODECOPY", 4, 0},
	RETURNDATASIZE: {"RETURNDATASIZE", 0, 1},
	RETURNDATACOPY: {"RETURNDATACOPY", 3, 0},
	EXTCODEHASH:    {"EXTCODEHASH", 1, 1},

	BLOCKHASH:   {"BLOCKHASH", 1, 1},
	COINBASE:    {"COINBASE", 0, 1},
	TIMESTAMP:   {"TIMESTAMP", 0, 1},
	NUMBER:      {"NUMBER", 0, 1},
	PREVRANDAO:  {"PREVRANDAO", 0, 1},
	GASLIMIT:    {"GASLIMIT", 0, 1},
	CHAINID:     {"CHAINID", 0, 1},
	SELFBALANCE: {"SELFBALANCE", 0, 1},
	BASEFEE:     {"BASEFEE", 0, 1},
	BLOBHASH:    {"BLOBHASH", 1, 1},
	BLOBBASEFEE: {"BLOBBASEFEE", 0, 1},

	POP:      {"POP", 1, 0},
	MLOAD:    {"MLOAD", 1, 1},
	MSTORE:   {"MSTORE", 2, 0},
	MSTORE8:  {"MSTORE8", 2, 0},
	SLOAD:    {"SLOAD", 1, 1},
	SSTORE:   {"SSTORE", 2, 0},
	JUMP:     {"JUMP", 1, 0},
	JUMPI:    {"JUMPI", 2, 0},
	PC:       {"PC", 0, 1},
	MSIZE:    {"MSIZE", 0, 1},
	GAS:      {"GAS", 0, 1},
	JUMPDEST: {"JUMPDEST", 0, 0},
	TLOAD:    {"TLOAD", 1, 1},
	TSTORE:   {"TSTORE", 2, 0},
	MCOPY:    {"MCOPY", 3, 0},
	PUSH0:    {"PUSH0", 0, 1},

	CREATE:       {"CREATE", 3, 1},
	CALL:         {"CALL", 7, 1},
	CALLCODE:     {"CALLCODE", 7, 1},
	RETURN:       {"RETURN", 2, 0},
	DELEGATECALL: {"DELEGATECALL", 6, 1},
	CREATE2:      {"CREATE2", 4, 1},
	STATICCALL:   {"STATICCALL", 6, 1},
	REVERT:       {"REVERT", 2, 0},
	INVALID:      {"INVALID", 0, 0},
	SELFDESTRUCT: {"SELFDESTRUCT", 1, 0},
}

// String returns the mnemonic, or a hex placeholder for undefined bytes.
func (op OpCode) String() string {
	switch {
	case op.IsPush():
		return fmt.Sprintf("PUSH%d", op.PushBytes())
	case op.IsDup():
		return fmt.Sprintf("DUP%d", op.DupPosition())
	case op.IsSwap():
		return fmt.Sprintf("SWAP%d", op.SwapPosition())
	case op.IsLog():
		return fmt.Sprintf("LOG%d", op.LogTopics())
	}
	if info, ok := opTable[op]; ok {
		return info.name
	}
	return fmt.Sprintf("opcode 0x%02x", byte(op))
}

// Defined reports whether op is part of the instruction set.
func (op OpCode) Defined() bool {
	if op.IsPush() || op.IsDup() || op.IsSwap() || op.IsLog() {
		return true
	}
	_, ok := opTable[op]
	return ok
}

// IsPush reports whether op carries an immediate (PUSH1..PUSH32).
func (op OpCode) IsPush() bool {
	return op >= PUSH1 && op <= PUSH32
}

// PushBytes returns the immediate size of a PUSH opcode.
func (op OpCode) PushBytes() int {
	if op.IsPush() {
		return int(op-PUSH1) + 1
	}
	return 0
}

// IsDup reports whether op is DUP1..DUP16.
func (op OpCode) IsDup() bool {
	return op >= DUP1 && op <= DUP16
}

// DupPosition returns n for DUPn.
func (op OpCode) DupPosition() int {
	if op.IsDup() {
		return int(op-DUP1) + 1
	}
	return 0
}

// IsSwap reports whether op is SWAP1..SWAP16.
func (op OpCode) IsSwap() bool {
	return op >= SWAP1 && op <= SWAP16
}

// SwapPosition returns n for SWAPn.
func (op OpCode) SwapPosition() int {
	if op.IsSwap() {
		return int(op-SWAP1) + 1
	}
	return 0
}

// IsLog reports whether op is LOG0..LOG4.
func (op OpCode) IsLog() bool {
	return op >= LOG0 && op <= LOG4
}

// LogTopics returns n for LOGn.
func (op OpCode) LogTopics() int {
	if op.IsLog() {
		return int(op - LOG0)
	}
	return 0
}

// Length is the encoded size of the instruction including its immediate.
func (op OpCode) Length() int {
	return 1 + op.PushBytes()
}

// IsTerminator reports whether op ends execution of the current frame.
func (op OpCode) IsTerminator() bool {
	switch op {
	case STOP, RETURN, REVERT, INVALID, SELFDESTRUCT:
		return true
	}
	return false
}

// StackCounts returns the number of values popped from and pushed to the stack.
// Undefined opcodes report (0, 0).
func StackCounts(op OpCode) (pops, pushes int) {
	switch {
	case op.IsPush():
		return 0, 1
	case op.IsDup():
		n := op.DupPosition()
		return n, n + 1
	case op.IsSwap():
		n := op.SwapPosition() + 1
		return n, n
	case op.IsLog():
		return 2 + op.LogTopics(), 0
	}
	info, ok := opTable[op]
	if !ok {
		return 0, 0
	}
	return info.pops, info.pushes
}
