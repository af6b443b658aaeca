package runtimeabi

import (
	"errors"
	"fmt"
)

// MemoryConfig sizes the fixed memory regions of a contract.
type MemoryConfig struct {
	// HeapSize bounds the emulated EVM memory in bytes.
	HeapSize uint32 `toml:"heap_size"`
	// StackSize is the native stack PolkaVM reserves for the blob.
	StackSize uint32 `toml:"stack_size"`
	// CallDataSize bounds the call data buffer filled by the entry prologue.
	CallDataSize uint32 `toml:"call_data_size"`
}

// WordSize is the size of an EVM word in bytes.
const WordSize = 32

// DefaultMemoryConfig returns the sizes used when nothing is configured.
func DefaultMemoryConfig() MemoryConfig {
	return MemoryConfig{
		HeapSize:     64 * 1024,
		StackSize:    32 * 1024,
		CallDataSize: 16 * 1024,
	}
}

// Validate rejects sizes the generated code cannot work with.
func (c MemoryConfig) Validate() error {
	var errs []error
	if c.HeapSize == 0 || c.HeapSize%WordSize != 0 {
		errs = append(errs, fmt.Errorf("heap size %d must be a positive multiple of %d", c.HeapSize, WordSize))
	}
	if c.HeapSize > 1<<30 {
		errs = append(errs, fmt.Errorf("heap size %d exceeds 1 GiB", c.HeapSize))
	}
	if c.StackSize == 0 {
		errs = append(errs, errors.New("stack size must be positive"))
	}
	if c.CallDataSize == 0 {
		errs = append(errs, errors.New("call data size must be positive"))
	}
	return errors.Join(errs...)
}
