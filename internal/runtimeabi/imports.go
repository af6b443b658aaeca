// Package runtimeabi fixes the contract between generated code and the
// PolkaVM host: the imported syscalls, the exported entry points, the runtime
// helper functions emitted into every module and the memory layout they share.
package runtimeabi

import (
	"fmt"
	"slices"

	"github.com/paritytech/revive-sub000/internal/lir"
)

// Import describes one host syscall. Pointers are passed as 32-bit offsets
// into contract memory.
type Import struct {
	Name   string
	Params []lir.Type
	Result lir.Type
}

// Exported entry points every blob provides.
const (
	ExportDeploy = "deploy"
	ExportCall   = "call"
)

// Syscall names.
const (
	Input            = "input"
	SealReturn       = "seal_return"
	ReturnDataSize   = "return_data_size"
	ReturnDataCopy   = "return_data_copy"
	ValueTransferred = "value_transferred"
	Caller           = "caller"
	Origin           = "origin"
	Address          = "address"
	Balance          = "balance"
	BalanceOf        = "balance_of"
	ChainID          = "chain_id"
	Now              = "now"
	BlockNumber      = "block_number"
	BlockHash        = "block_hash"
	BlockAuthor      = "block_author"
	GasLimit         = "gas_limit"
	GasPrice         = "gas_price"
	BaseFee          = "base_fee"
	RefTimeLeft      = "ref_time_left"
	CodeSize         = "code_size"
	CodeHash         = "code_hash"
	GetStorage       = "get_storage"
	SetStorage       = "set_storage"
	GetImmutableData = "get_immutable_data"
	SetImmutableData = "set_immutable_data"
	HashKeccak256    = "hash_keccak_256"
	DepositEvent     = "deposit_event"
	Call             = "seal_call"
	DelegateCall     = "delegate_call"
	Instantiate      = "instantiate"
)

// Flags understood by the call and storage syscalls.
const (
	CallFlagReentrant    = 0b0000_1000
	CallFlagStatic       = 0b0001_0000
	StorageFlagDefault   = 0
	StorageFlagTransient = 1
	ReturnFlagRevert     = 1
)

var (
	i32 = lir.I32
	i64 = lir.I64
)

// Imports is the fixed host ABI, sorted by name.
var Imports = sortedImports([]Import{
	{Input, []lir.Type{i32, i32}, lir.Void},
	{SealReturn, []lir.Type{i32, i32, i32}, lir.Void},
	{ReturnDataSize, nil, i64},
	{ReturnDataCopy, []lir.Type{i32, i32, i32}, lir.Void},
	{ValueTransferred, []lir.Type{i32}, lir.Void},
	{Caller, []lir.Type{i32}, lir.Void},
	{Origin, []lir.Type{i32}, lir.Void},
	{Address, []lir.Type{i32}, lir.Void},
	{Balance, []lir.Type{i32}, lir.Void},
	{BalanceOf, []lir.Type{i32, i32}, lir.Void},
	{ChainID, []lir.Type{i32}, lir.Void},
	{Now, []lir.Type{i32}, lir.Void},
	{BlockNumber, []lir.Type{i32}, lir.Void},
	{BlockHash, []lir.Type{i32, i32}, lir.Void},
	{BlockAuthor, []lir.Type{i32}, lir.Void},
	{GasLimit, nil, i64},
	{GasPrice, nil, i64},
	{BaseFee, []lir.Type{i32}, lir.Void},
	{RefTimeLeft, nil, i64},
	{CodeSize, []lir.Type{i32}, i64},
	{CodeHash, []lir.Type{i32, i32}, lir.Void},
	{GetStorage, []lir.Type{i32, i32, i32, i32, i32}, i32},
	{SetStorage, []lir.Type{i32, i32, i32, i32, i32}, i32},
	{GetImmutableData, []lir.Type{i32, i32}, lir.Void},
	{SetImmutableData, []lir.Type{i32, i32}, lir.Void},
	{HashKeccak256, []lir.Type{i32, i32, i32}, lir.Void},
	{DepositEvent, []lir.Type{i32, i32, i32, i32}, lir.Void},
	// (flags|callee), ref time, proof size, (deposit|value), (in len|in ptr),
	// (out len ptr|out ptr)
	{Call, []lir.Type{i64, i64, i64, i64, i64, i64}, i32},
	{DelegateCall, []lir.Type{i32, i32, i64, i64, i64}, i32},
	// ref time, proof size, (deposit|value), (in len|in ptr), output,
	// (address ptr|salt ptr)
	{Instantiate, []lir.Type{i64, i64, i64, i64, i64, i64}, i32},
})

func sortedImports(in []Import) []Import {
	slices.SortFunc(in, func(a, b Import) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		}
		return 0
	})
	return in
}

// LookupImport finds a syscall by name.
func LookupImport(name string) (Import, bool) {
	i, ok := slices.BinarySearchFunc(Imports, name, func(imp Import, name string) int {
		switch {
		case imp.Name < name:
			return -1
		case imp.Name > name:
			return 1
		}
		return 0
	})
	if !ok {
		return Import{}, false
	}
	return Imports[i], true
}

// DeclareImport declares syscall name in the module behind funcs.
func DeclareImport(funcs *lir.FunctionTable, name string) {
	imp, ok := LookupImport(name)
	if !ok {
		panic(fmt.Sprintf("runtimeabi: unknown syscall %s", name))
	}
	funcs.Declare(imp.Name, imp.Params, imp.Result, lir.LinkImport)
}

// CallImport declares and calls a syscall.
func CallImport(b *lir.Builder, name string, args ...lir.Value) lir.Value {
	DeclareImport(b.Funcs, name)
	return b.Call(name, args...)
}
