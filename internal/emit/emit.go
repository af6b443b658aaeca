// Package emit translates EVM semantics into LIR. A Context owns one
// contract module; its methods implement the EVM opcodes and Yul builtins on
// top of the address-space model and the PolkaVM runtime ABI. LowerProgram
// drives the Context from lifted EVM bytecode.
package emit

import (
	"fmt"
	"maps"
	"slices"

	"fortio.org/safecast"
	"github.com/holiman/uint256"

	"github.com/paritytech/revive-sub000/internal/diag"
	"github.com/paritytech/revive-sub000/internal/lir"
	"github.com/paritytech/revive-sub000/internal/runtimeabi"
)

// Target triple and CPU the modules are built for.
const (
	TargetTriple   = "riscv32-unknown-unknown-elf"
	TargetCPU      = "generic-rv32"
	TargetFeatures = "+e,+m"
)

// CodeType selects which of the two code functions is being emitted.
type CodeType uint8

const (
	CodeDeploy CodeType = iota
	CodeRuntime
)

func (t CodeType) String() string {
	if t == CodeDeploy {
		return "deploy"
	}
	return "runtime"
}

func (t CodeType) function() string {
	if t == CodeDeploy {
		return runtimeabi.DeployCode
	}
	return runtimeabi.RuntimeCode
}

// Options configures a Context.
type Options struct {
	Memory runtimeabi.MemoryConfig
	// Immutables is the number of immutable words the contract stores at
	// deploy time and reads at run time.
	Immutables int
	// Reporter receives the warnings of lifted programs; nil drops them.
	Reporter diag.Reporter
}

// Context accumulates the module of one contract. It composes the module
// builder with the function and global tables and a loop stack for
// structured frontends.
type Context struct {
	Module  *lir.Module
	Builder *lir.Builder
	Funcs   *lir.FunctionTable
	Globals *lir.GlobalTable
	Loops   lir.LoopStack

	runtime     runtimeabi.Runtime
	code        CodeType
	inCode      bool
	defined     map[CodeType]bool
	factoryDeps map[string]struct{}
	dead        map[deadKey]bool
	offset      int
	reporter    diag.Reporter
}

// NewContext returns a context for a module called name.
func NewContext(name string, opts Options) *Context {
	m := lir.NewModule(name)
	m.Triple = TargetTriple
	m.CPU = TargetCPU
	m.Features = TargetFeatures
	funcs := lir.NewFunctionTable(m)
	globals := lir.NewGlobalTable(m)
	c := &Context{
		Module:      m,
		Builder:     lir.NewBuilder(m, funcs, globals),
		Funcs:       funcs,
		Globals:     globals,
		runtime:     runtimeabi.Runtime{Memory: opts.Memory, Immutables: opts.Immutables},
		defined:     make(map[CodeType]bool),
		factoryDeps: make(map[string]struct{}),
		dead:        make(map[deadKey]bool),
		offset:      -1,
		reporter:    opts.Reporter,
	}
	c.runtime.Declare(c.Builder)
	return c
}

// Runtime returns the runtime configuration of the module.
func (c *Context) Runtime() runtimeabi.Runtime { return c.runtime }

// Code returns the code type being emitted.
func (c *Context) Code() CodeType { return c.code }

// SetOffset records the bytecode offset of the opcode being emitted, for
// error messages. Negative offsets mean "unknown".
func (c *Context) SetOffset(offset int) { c.offset = offset }

// BeginCode starts the deploy or runtime code function.
func (c *Context) BeginCode(code CodeType) error {
	if c.inCode {
		return fmt.Errorf("%s code started while %s code is open", code, c.code)
	}
	id, err := c.Funcs.Define(code.function(), nil, lir.Void, lir.LinkInternal)
	if err != nil {
		return fmt.Errorf("%s code: %w", code, err)
	}
	c.Builder.EnterFunc(id)
	c.code = code
	c.inCode = true
	c.defined[code] = true
	return nil
}

// EndCode closes the current code function. Falling off its end stops.
func (c *Context) EndCode() {
	if !c.inCode {
		return
	}
	c.terminateOpenBlocks()
	c.inCode = false
}

// terminateOpenBlocks stops in every block of the current function that was
// left without a terminator. Blocks following an exit are unreachable.
func (c *Context) terminateOpenBlocks() {
	b := c.Builder
	f := b.Func()
	for i := 0; i < len(f.Blocks); i++ {
		blk := f.Blocks[i]
		if blk.Term.Kind != lir.TermNone {
			continue
		}
		b.SetInsertPoint(blk.ID)
		if c.dead[deadKey{c.Funcs.CurrentID(), blk.ID}] {
			b.Unreachable()
			continue
		}
		c.Stop()
	}
}

// Finish completes the module: missing code functions stop immediately,
// runtime helpers and the exported entry points are defined.
func (c *Context) Finish() (*lir.Module, error) {
	c.EndCode()
	for _, code := range []CodeType{CodeDeploy, CodeRuntime} {
		if c.defined[code] {
			continue
		}
		if err := c.BeginCode(code); err != nil {
			return nil, err
		}
		c.EndCode()
	}
	if err := c.runtime.Define(c.Builder); err != nil {
		return nil, err
	}
	if err := c.runtime.DefineEntry(c.Builder, runtimeabi.ExportDeploy, runtimeabi.DeployCode); err != nil {
		return nil, err
	}
	if err := c.runtime.DefineEntry(c.Builder, runtimeabi.ExportCall, runtimeabi.RuntimeCode); err != nil {
		return nil, err
	}
	return c.Module, nil
}

// FactoryDependencies lists the identifiers referenced through DataOffset.
func (c *Context) FactoryDependencies() []string {
	return slices.Sorted(maps.Keys(c.factoryDeps))
}

// Word returns a word constant.
func Word(v uint64) lir.Value { return lir.Const(lir.Word, v) }

// WordInt returns a word constant.
func WordInt(v *uint256.Int) lir.Value { return lir.ConstInt(lir.Word, v) }

// i32 is a 32-bit constant for a count known at compile time.
func i32(n int) lir.Value {
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		panic(fmt.Errorf("i32 constant %d: %w", n, err))
	}
	return lir.Const(lir.I32, uint64(v))
}

func (c *Context) fromBool(v lir.Value) lir.Value {
	return c.Builder.ZExt(v, lir.Word)
}

type deadKey struct {
	fn    lir.FuncID
	block lir.BlockID
}

// deadBlock positions the builder in a fresh block without predecessors.
// Code following an exit lands there.
func (c *Context) deadBlock() {
	id := c.Builder.AppendBlock("dead")
	c.dead[deadKey{c.Funcs.CurrentID(), id}] = true
	c.Builder.SetInsertPoint(id)
}

func (c *Context) alloca(t lir.Type) lir.Pointer {
	return c.Builder.Alloca(t)
}

func (c *Context) gep(p lir.Pointer, index lir.Value) lir.Pointer {
	q, err := c.Builder.GEP(p, index)
	if err != nil {
		panic(err)
	}
	return q
}
