// Package interp executes LIR modules. It stands in for PolkaVM in tests:
// memory is one flat little-endian byte array, syscalls go to a Host and
// intrinsics and builtins are evaluated directly.
package interp

import (
	"errors"
	"fmt"

	"fortio.org/safecast"

	"github.com/paritytech/revive-sub000/internal/lir"
)

var (
	// ErrTrap is reported when the program executes llvm.trap.
	ErrTrap = errors.New("trap")
	// ErrUnreachable is reported when control reaches an unreachable terminator.
	ErrUnreachable = errors.New("unreachable executed")
	// ErrOutOfBounds is reported for memory accesses outside the address space.
	ErrOutOfBounds = errors.New("memory access out of bounds")
	// ErrPoison is reported for operations LLVM leaves undefined, such as
	// over-wide shifts and division by zero.
	ErrPoison = lir.ErrPoison
	// ErrStepLimit is reported when execution exceeds Options.MaxSteps.
	ErrStepLimit = errors.New("step limit exceeded")
)

// Error locates a runtime failure.
type Error struct {
	Func  string
	Block string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Func, e.Block, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Halt ends execution with output. Hosts return it from seal_return.
type Halt struct {
	Flags uint32
	Data  []byte
}

func (h *Halt) Error() string {
	return fmt.Sprintf("halt with flags %d and %d bytes", h.Flags, len(h.Data))
}

// Result is the outcome of running an exported function.
type Result struct {
	Reverted bool
	Output   []byte
	Steps    int
}

// Options bounds execution.
type Options struct {
	// MaxSteps limits executed instructions; zero means DefaultMaxSteps.
	MaxSteps int
	// StackSize is the native stack available to allocas.
	StackSize uint32
}

const (
	DefaultMaxSteps  = 1 << 24
	DefaultStackSize = 1 << 20
	// baseAddress keeps the first page unmapped so null pointers fault.
	baseAddress = 0x1_0000
)

// Machine runs one module invocation. Memory is initialised from the module's
// globals on creation; use a fresh machine per call.
type Machine struct {
	module  *lir.Module
	host    Host
	opts    Options
	mem     []byte
	globals map[string]uint32
	sp      uint32
	steps   int
}

// New lays out the globals of m and prepares the native stack.
func New(m *lir.Module, host Host, opts Options) (*Machine, error) {
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = DefaultMaxSteps
	}
	if opts.StackSize == 0 {
		opts.StackSize = DefaultStackSize
	}
	vm := &Machine{
		module:  m,
		host:    host,
		opts:    opts,
		globals: make(map[string]uint32, len(m.Globals)),
	}
	addr := uint64(baseAddress)
	for _, g := range m.Globals {
		addr = alignUp(addr, uint64(g.Type.Align()))
		a, err := safecast.Conv[uint32](addr)
		if err != nil {
			return nil, fmt.Errorf("global %s: %w", g.Name, err)
		}
		vm.globals[g.Name] = a
		addr += uint64(g.Type.Size())
	}
	addr = alignUp(addr, 16)
	end := addr + uint64(opts.StackSize)
	if end > 1<<32 {
		return nil, fmt.Errorf("module needs %d bytes of memory", end)
	}
	vm.mem = make([]byte, end)
	vm.sp = uint32(addr)
	for _, g := range m.Globals {
		copy(vm.mem[vm.globals[g.Name]:], g.Init)
	}
	return vm, nil
}

func alignUp(v, a uint64) uint64 {
	if a <= 1 {
		return v
	}
	return (v + a - 1) &^ (a - 1)
}

// GlobalAddress returns the address of a global.
func (vm *Machine) GlobalAddress(name string) (uint32, bool) {
	a, ok := vm.globals[name]
	return a, ok
}

// Read returns a copy of n bytes at addr.
func (vm *Machine) Read(addr, n uint32) ([]byte, error) {
	end := uint64(addr) + uint64(n)
	if addr < baseAddress && n > 0 || end > uint64(len(vm.mem)) {
		return nil, fmt.Errorf("read [%#x, %#x): %w", addr, end, ErrOutOfBounds)
	}
	out := make([]byte, n)
	copy(out, vm.mem[addr:end])
	return out, nil
}

// Write stores data at addr.
func (vm *Machine) Write(addr uint32, data []byte) error {
	end := uint64(addr) + uint64(len(data))
	if addr < baseAddress && len(data) > 0 || end > uint64(len(vm.mem)) {
		return fmt.Errorf("write [%#x, %#x): %w", addr, end, ErrOutOfBounds)
	}
	copy(vm.mem[addr:end], data)
	return nil
}

// Run calls the exported function name.
func (vm *Machine) Run(name string) (*Result, error) {
	f := vm.module.Func(name)
	if f == nil || f.IsDeclaration() {
		return nil, fmt.Errorf("function %s not defined", name)
	}
	_, err := vm.call(f, nil)
	res := &Result{Steps: vm.steps}
	var halt *Halt
	switch {
	case errors.As(err, &halt):
		res.Reverted = halt.Flags&1 != 0
		res.Output = halt.Data
		return res, nil
	case err != nil:
		return res, err
	}
	return res, nil
}
