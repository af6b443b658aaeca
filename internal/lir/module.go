package lir

import (
	"maps"
	"slices"
)

// BlockID indexes Func.Blocks.
type BlockID int32

// NoBlock marks an absent block.
const NoBlock BlockID = -1

// FuncID indexes Module.Funcs.
type FuncID int32

// NoFunc marks an absent function.
const NoFunc FuncID = -1

// Block is a basic block.
type Block struct {
	ID     BlockID
	Name   string
	Instrs []Instr
	Term   Terminator
}

// Linkage describes where a function or global is defined.
type Linkage uint8

const (
	// LinkInternal symbols are defined and only used inside the module.
	LinkInternal Linkage = iota
	// LinkExport symbols are defined and visible to the host (deploy, call).
	LinkExport
	// LinkImport functions are host syscalls.
	LinkImport
	// LinkBuiltin functions come from the linker's builtins library.
	LinkBuiltin
	// LinkIntrinsic functions are provided by the code generator.
	LinkIntrinsic
	// LinkExternal globals are resolved by the linker (factory dependencies).
	LinkExternal
)

func (l Linkage) String() string {
	switch l {
	case LinkInternal:
		return "internal"
	case LinkExport:
		return "export"
	case LinkImport:
		return "import"
	case LinkBuiltin:
		return "builtin"
	case LinkIntrinsic:
		return "intrinsic"
	case LinkExternal:
		return "external"
	}
	return "linkage?"
}

// Func is a function definition or declaration. Declarations have no blocks.
type Func struct {
	ID      FuncID
	Name    string
	Params  []Type
	Result  Type
	Linkage Linkage
	Blocks  []*Block
	// Regs holds the type of every virtual register; parameters come first.
	Regs []Type
	// NoInline marks helpers the optimizer must keep out of line.
	NoInline bool
}

// IsDeclaration reports whether f has no body in this module.
func (f *Func) IsDeclaration() bool { return len(f.Blocks) == 0 }

// Param returns parameter i as a value.
func (f *Func) Param(i int) Value { return RegValue(Reg(i), f.Params[i]) }

// NewReg allocates a register of type t.
func (f *Func) NewReg(t Type) Reg {
	f.Regs = append(f.Regs, t)
	return Reg(len(f.Regs) - 1)
}

// Block returns block id or nil.
func (f *Func) Block(id BlockID) *Block {
	if id < 0 || int(id) >= len(f.Blocks) {
		return nil
	}
	return f.Blocks[id]
}

// Global is a module-level variable. Init, when set, holds the little-endian
// initial bytes; otherwise the global is zero-initialized.
type Global struct {
	Name     string
	Type     Type
	Space    AddressSpace
	Linkage  Linkage
	Init     []byte
	Constant bool
}

// Module is one compilation unit: a contract's deploy or runtime code.
type Module struct {
	Name     string
	Triple   string
	CPU      string
	Features string
	Flags    map[string]int
	Globals  []*Global
	Funcs    []*Func
}

// NewModule returns an empty module.
func NewModule(name string) *Module {
	return &Module{Name: name, Flags: make(map[string]int)}
}

// Func returns the function called name, or nil.
func (m *Module) Func(name string) *Func {
	for _, f := range m.Funcs {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Global returns the global called name, or nil.
func (m *Module) Global(name string) *Global {
	for _, g := range m.Globals {
		if g.Name == name {
			return g
		}
	}
	return nil
}

// Clone returns a deep copy of m. The build pipeline snapshots modules before
// optimization so a failed attempt can restart from the original.
func (m *Module) Clone() *Module {
	if m == nil {
		return nil
	}
	out := &Module{
		Name:     m.Name,
		Triple:   m.Triple,
		CPU:      m.CPU,
		Features: m.Features,
		Flags:    maps.Clone(m.Flags),
		Globals:  make([]*Global, len(m.Globals)),
		Funcs:    make([]*Func, len(m.Funcs)),
	}
	if out.Flags == nil {
		out.Flags = make(map[string]int)
	}
	for i, g := range m.Globals {
		cp := *g
		cp.Init = slices.Clone(g.Init)
		out.Globals[i] = &cp
	}
	for i, f := range m.Funcs {
		out.Funcs[i] = f.clone()
	}
	return out
}

func (f *Func) clone() *Func {
	cp := *f
	cp.Params = slices.Clone(f.Params)
	cp.Regs = slices.Clone(f.Regs)
	cp.Blocks = make([]*Block, len(f.Blocks))
	for i, b := range f.Blocks {
		nb := &Block{ID: b.ID, Name: b.Name, Term: b.Term}
		nb.Term.Cases = slices.Clone(b.Term.Cases)
		nb.Instrs = make([]Instr, len(b.Instrs))
		for j, in := range b.Instrs {
			in.Args = slices.Clone(in.Args)
			nb.Instrs[j] = in
		}
		cp.Blocks[i] = nb
	}
	return &cp
}

// Unresolved lists external globals the linker must provide.
func (m *Module) Unresolved() []string {
	var out []string
	for _, g := range m.Globals {
		if g.Linkage == LinkExternal {
			out = append(out, g.Name)
		}
	}
	return out
}

// InstrCount returns the number of instructions and terminators in defined functions.
func (m *Module) InstrCount() int {
	n := 0
	for _, f := range m.Funcs {
		for _, b := range f.Blocks {
			n += len(b.Instrs) + 1
		}
	}
	return n
}
