package interp

import (
	"encoding/binary"
	"fmt"
	"slices"

	"github.com/holiman/uint256"
	"golang.org/x/crypto/sha3"

	"github.com/paritytech/revive-sub000/internal/runtimeabi"
)

// Host serves the syscalls of a running module. Pointer arguments address
// the machine's memory; seal_return ends execution by returning *Halt.
type Host interface {
	Syscall(vm *Machine, name string, args []uint64) (uint64, error)
}

// Address is a 20-byte account address.
type Address [20]byte

// Hash is a 32-byte hash or storage word, big endian.
type Hash [32]byte

// Event is a deposited log.
type Event struct {
	Topics []Hash
	Data   []byte
}

// CallRecord describes an outgoing call or instantiation.
type CallRecord struct {
	Syscall string
	Flags   uint32
	Callee  Address
	RefTime uint64
	Proof   uint64
	Deposit uint256.Int
	Value   uint256.Int
	Input   []byte
	Salt    *Hash
	// Registers are the raw syscall arguments.
	Registers []uint64
}

// CallResult is what the callee returns; Status zero means success.
type CallResult struct {
	Status uint32
	Output []byte
}

// keyNotFound is what get_storage reports for missing keys.
const keyNotFound = 1<<32 - 1

// MockHost is an in-memory chain sufficient to run contracts in tests.
type MockHost struct {
	CallData []byte

	Storage   map[Hash]Hash
	Transient map[Hash]Hash

	// Immutables holds what deploy code stored; runtime reads it back.
	Immutables       []byte
	ImmutableFetches int

	Self, Caller, Origin, Coinbase     Address
	Value, Balance, ChainID, Timestamp uint256.Int
	BlockNumber, BaseFee               uint256.Int
	GasLimit, GasPrice, RefTimeLeft    uint64
	Balances                           map[Address]uint256.Int
	CodeHashes                         map[Address]Hash
	CodeSizes                          map[Address]uint64
	BlockHashes                        map[uint64]Hash

	Events []Event
	Calls  []CallRecord
	// OnCall answers calls; nil answers every call with success and no data.
	OnCall func(CallRecord) CallResult
	// Created is the address instantiate reports.
	Created    Address
	ReturnData []byte
}

// NewMockHost returns a host with empty state.
func NewMockHost() *MockHost {
	return &MockHost{
		Storage:     make(map[Hash]Hash),
		Transient:   make(map[Hash]Hash),
		Balances:    make(map[Address]uint256.Int),
		CodeHashes:  make(map[Address]Hash),
		CodeSizes:   make(map[Address]uint64),
		BlockHashes: make(map[uint64]Hash),
		RefTimeLeft: 1 << 40,
	}
}

func (h *MockHost) Syscall(vm *Machine, name string, a []uint64) (uint64, error) {
	p := func(i int) uint32 { return uint32(a[i]) }
	switch name {
	case runtimeabi.Input:
		return 0, h.writeSized(vm, p(0), p(1), h.CallData)
	case runtimeabi.SealReturn:
		data, err := vm.Read(p(1), p(2))
		if err != nil {
			return 0, err
		}
		return 0, &Halt{Flags: p(0), Data: data}
	case runtimeabi.ReturnDataSize:
		return uint64(len(h.ReturnData)), nil
	case runtimeabi.ReturnDataCopy:
		n, err := readU32(vm, p(1))
		if err != nil {
			return 0, err
		}
		offset := uint64(p(2))
		if offset+uint64(n) > uint64(len(h.ReturnData)) {
			return 0, fmt.Errorf("return data [%d, %d) out of range", offset, offset+uint64(n))
		}
		return 0, vm.Write(p(0), h.ReturnData[offset:offset+uint64(n)])

	case runtimeabi.ValueTransferred:
		return 0, writeWord(vm, p(0), &h.Value)
	case runtimeabi.Balance:
		return 0, writeWord(vm, p(0), &h.Balance)
	case runtimeabi.ChainID:
		return 0, writeWord(vm, p(0), &h.ChainID)
	case runtimeabi.Now:
		return 0, writeWord(vm, p(0), &h.Timestamp)
	case runtimeabi.BlockNumber:
		return 0, writeWord(vm, p(0), &h.BlockNumber)
	case runtimeabi.BaseFee:
		return 0, writeWord(vm, p(0), &h.BaseFee)
	case runtimeabi.Address:
		return 0, vm.Write(p(0), h.Self[:])
	case runtimeabi.Caller:
		return 0, vm.Write(p(0), h.Caller[:])
	case runtimeabi.Origin:
		return 0, vm.Write(p(0), h.Origin[:])
	case runtimeabi.BlockAuthor:
		return 0, vm.Write(p(0), h.Coinbase[:])
	case runtimeabi.GasLimit:
		return h.GasLimit, nil
	case runtimeabi.GasPrice:
		return h.GasPrice, nil
	case runtimeabi.RefTimeLeft:
		return h.RefTimeLeft, nil
	case runtimeabi.BalanceOf:
		addr, err := readAddress(vm, p(0))
		if err != nil {
			return 0, err
		}
		b := h.Balances[addr]
		return 0, writeWord(vm, p(1), &b)
	case runtimeabi.CodeHash:
		addr, err := readAddress(vm, p(0))
		if err != nil {
			return 0, err
		}
		hash := h.CodeHashes[addr]
		return 0, vm.Write(p(1), hash[:])
	case runtimeabi.CodeSize:
		addr, err := readAddress(vm, p(0))
		if err != nil {
			return 0, err
		}
		return h.CodeSizes[addr], nil
	case runtimeabi.BlockHash:
		data, err := vm.Read(p(0), 32)
		if err != nil {
			return 0, err
		}
		number := fromLE(data)
		hash := h.BlockHashes[number.Uint64()]
		return 0, vm.Write(p(1), hash[:])

	case runtimeabi.GetStorage:
		return h.getStorage(vm, a)
	case runtimeabi.SetStorage:
		return h.setStorage(vm, a)
	case runtimeabi.GetImmutableData:
		h.ImmutableFetches++
		return 0, h.writeSized(vm, p(0), p(1), h.Immutables)
	case runtimeabi.SetImmutableData:
		data, err := vm.Read(p(0), p(1))
		if err != nil {
			return 0, err
		}
		h.Immutables = data
		return 0, nil
	case runtimeabi.HashKeccak256:
		data, err := vm.Read(p(0), p(1))
		if err != nil {
			return 0, err
		}
		return 0, vm.Write(p(2), Keccak256(data))
	case runtimeabi.DepositEvent:
		return 0, h.depositEvent(vm, p(0), p(1), p(2), p(3))

	case runtimeabi.Call:
		flags, callee := runtimeabi.UnpackHiLo(a[0])
		depositPtr, valuePtr := runtimeabi.UnpackHiLo(a[3])
		return h.call(vm, a, name, flags, callee, a[1], a[2], depositPtr, valuePtr, a[4], a[5])
	case runtimeabi.DelegateCall:
		return h.call(vm, a, name, p(0), p(1), a[2], 0, 0, 0, a[3], a[4])
	case runtimeabi.Instantiate:
		return h.instantiate(vm, a)
	}
	return 0, fmt.Errorf("syscall %s not supported by the mock host", name)
}

// Keccak256 hashes data.
func Keccak256(data []byte) []byte {
	d := sha3.NewLegacyKeccak256()
	d.Write(data)
	return d.Sum(nil)
}

func readU32(vm *Machine, addr uint32) (uint32, error) {
	b, err := vm.Read(addr, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func writeU32(vm *Machine, addr, v uint32) error {
	return vm.Write(addr, binary.LittleEndian.AppendUint32(nil, v))
}

func writeWord(vm *Machine, addr uint32, v *uint256.Int) error {
	return vm.Write(addr, toLE(v, 32))
}

func readAddress(vm *Machine, addr uint32) (Address, error) {
	var out Address
	b, err := vm.Read(addr, 20)
	copy(out[:], b)
	return out, err
}

func readHash(vm *Machine, addr uint32) (Hash, error) {
	var out Hash
	b, err := vm.Read(addr, 32)
	copy(out[:], b)
	return out, err
}

// writeSized copies data to a buffer whose capacity is stored at lenPtr and
// stores the number of bytes written there.
func (h *MockHost) writeSized(vm *Machine, ptr, lenPtr uint32, data []byte) error {
	capacity, err := readU32(vm, lenPtr)
	if err != nil {
		return err
	}
	n := min(uint32(len(data)), capacity)
	if err := vm.Write(ptr, data[:n]); err != nil {
		return err
	}
	return writeU32(vm, lenPtr, n)
}

func (h *MockHost) storageFor(flags uint64) map[Hash]Hash {
	if flags&runtimeabi.StorageFlagTransient != 0 {
		return h.Transient
	}
	return h.Storage
}

func (h *MockHost) getStorage(vm *Machine, a []uint64) (uint64, error) {
	if a[2] != 32 {
		return 0, fmt.Errorf("storage key of %d bytes", a[2])
	}
	key, err := readHash(vm, uint32(a[1]))
	if err != nil {
		return 0, err
	}
	value, ok := h.storageFor(a[0])[key]
	if !ok {
		return keyNotFound, nil
	}
	return 0, h.writeSized(vm, uint32(a[3]), uint32(a[4]), value[:])
}

func (h *MockHost) setStorage(vm *Machine, a []uint64) (uint64, error) {
	if a[2] != 32 || a[4] != 32 {
		return 0, fmt.Errorf("storage key/value of %d/%d bytes", a[2], a[4])
	}
	key, err := readHash(vm, uint32(a[1]))
	if err != nil {
		return 0, err
	}
	value, err := readHash(vm, uint32(a[3]))
	if err != nil {
		return 0, err
	}
	store := h.storageFor(a[0])
	_, existed := store[key]
	if value == (Hash{}) {
		delete(store, key)
	} else {
		store[key] = value
	}
	if existed {
		return 32, nil
	}
	return keyNotFound, nil
}

func (h *MockHost) depositEvent(vm *Machine, topicsPtr, topics, dataPtr, dataLen uint32) error {
	ev := Event{}
	for i := range topics {
		t, err := readHash(vm, topicsPtr+i*32)
		if err != nil {
			return err
		}
		ev.Topics = append(ev.Topics, t)
	}
	data, err := vm.Read(dataPtr, dataLen)
	if err != nil {
		return err
	}
	ev.Data = data
	h.Events = append(h.Events, ev)
	return nil
}

func (h *MockHost) call(vm *Machine, regs []uint64, name string, flags, callee uint32, refTime, proof uint64,
	depositPtr, valuePtr uint32, input, output uint64) (uint64, error) {
	rec := CallRecord{Syscall: name, Flags: flags, RefTime: refTime, Proof: proof, Registers: slices.Clone(regs)}
	var err error
	if rec.Callee, err = readAddress(vm, callee); err != nil {
		return 0, err
	}
	if depositPtr != 0 {
		deposit, err := vm.Read(depositPtr, 32)
		if err != nil {
			return 0, err
		}
		rec.Deposit = fromLE(deposit)
	}
	if valuePtr != 0 {
		value, err := vm.Read(valuePtr, 32)
		if err != nil {
			return 0, err
		}
		rec.Value = fromLE(value)
	}
	inLen, inPtr := runtimeabi.UnpackHiLo(input)
	if rec.Input, err = vm.Read(inPtr, inLen); err != nil {
		return 0, err
	}
	h.Calls = append(h.Calls, rec)

	res := CallResult{}
	if h.OnCall != nil {
		res = h.OnCall(rec)
	}
	h.ReturnData = res.Output
	outLenPtr, outPtr := runtimeabi.UnpackHiLo(output)
	if err := h.writeSized(vm, outPtr, outLenPtr, res.Output); err != nil {
		return 0, err
	}
	return uint64(res.Status), nil
}

func (h *MockHost) instantiate(vm *Machine, a []uint64) (uint64, error) {
	rec := CallRecord{Syscall: runtimeabi.Instantiate, RefTime: a[0], Proof: a[1], Registers: slices.Clone(a)}
	depositPtr, valuePtr := runtimeabi.UnpackHiLo(a[2])
	deposit, err := vm.Read(depositPtr, 32)
	if err != nil {
		return 0, err
	}
	rec.Deposit = fromLE(deposit)
	value, err := vm.Read(valuePtr, 32)
	if err != nil {
		return 0, err
	}
	rec.Value = fromLE(value)
	inLen, inPtr := runtimeabi.UnpackHiLo(a[3])
	if rec.Input, err = vm.Read(inPtr, inLen); err != nil {
		return 0, err
	}
	addressPtr, saltPtr := runtimeabi.UnpackHiLo(a[5])
	if saltPtr != 0 {
		salt, err := readHash(vm, saltPtr)
		if err != nil {
			return 0, err
		}
		rec.Salt = &salt
	}
	h.Calls = append(h.Calls, rec)

	res := CallResult{}
	if h.OnCall != nil {
		res = h.OnCall(rec)
	}
	h.ReturnData = res.Output
	if res.Status != 0 {
		return uint64(res.Status), nil
	}
	return 0, vm.Write(addressPtr, h.Created[:])
}
