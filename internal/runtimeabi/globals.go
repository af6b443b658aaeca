package runtimeabi

import (
	"encoding/binary"
	"strings"
)

// Globals shared by the helpers and generated code. All live in the Stack
// address space.
const (
	GlobalHeapMemory        = "__heap_memory"
	GlobalHeapSize          = "__heap_size"
	GlobalCallData          = "__call_data"
	GlobalCallDataSize      = "__call_data_size"
	GlobalImmutableData     = "__immutable_data"
	GlobalImmutableDataSize = "__immutable_data_size"
	GlobalEVMStack          = "__evm_stack"
	GlobalEVMStackHeight    = "__evm_stack_height"
)

// FactoryDependencyPrefix starts the name of the external global holding the
// code hash of a factory dependency; the linker resolves it.
const FactoryDependencyPrefix = "__factory_dependency."

// FactoryDependencySymbol returns the linker symbol for identifier.
func FactoryDependencySymbol(identifier string) string {
	return FactoryDependencyPrefix + identifier
}

// FactoryDependencyPath is the inverse of FactoryDependencySymbol.
func FactoryDependencyPath(symbol string) (string, bool) {
	return strings.CutPrefix(symbol, FactoryDependencyPrefix)
}

// Runtime helper functions.
const (
	Sbrk                    = "__sbrk_internal"
	MSize                   = "__msize"
	LoadHeapWord            = "__revive_load_heap_word"
	StoreHeapWord           = "__revive_store_heap_word"
	CallReentrancyProtector = "__revive_call_reentrancy_protector"
	LoadImmutableData       = "__revive_load_immutable_data"
	CallDataLoad            = "__revive_calldata_load"
	CallDataCopy            = "__revive_calldata_copy"
	Exit                    = "__revive_exit"
)

// Builtins come from the builtins library linked into every blob.
const (
	BuiltinAddMod = "__revive_addmod"
	BuiltinMulMod = "__revive_mulmod"
	BuiltinExp    = "__revive_exp"
)

// Code functions hold the lowered deploy and runtime code.
const (
	DeployCode  = "__deploy"
	RuntimeCode = "__runtime"
)

// EVMStackDepth is the maximum number of words on the EVM operand stack.
const EVMStackDepth = 1024

// TransferGasStipend is the gas solc attaches to transfer and send.
const TransferGasStipend = 2300

func le32(v uint32) []byte {
	return binary.LittleEndian.AppendUint32(nil, v)
}
