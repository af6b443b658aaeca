package lir

import "fmt"

// FunctionTable is the arena of a module's functions. The function being
// emitted is tracked by handle.
type FunctionTable struct {
	m       *Module
	byName  map[string]FuncID
	current FuncID
}

// NewFunctionTable indexes the functions already present in m.
func NewFunctionTable(m *Module) *FunctionTable {
	t := &FunctionTable{m: m, byName: make(map[string]FuncID), current: NoFunc}
	for i, f := range m.Funcs {
		f.ID = FuncID(i)
		t.byName[f.Name] = f.ID
	}
	return t
}

// Declare adds a function without body, or returns the existing one.
func (t *FunctionTable) Declare(name string, params []Type, result Type, linkage Linkage) FuncID {
	if id, ok := t.byName[name]; ok {
		return id
	}
	id := FuncID(len(t.m.Funcs))
	f := &Func{ID: id, Name: name, Params: params, Result: result, Linkage: linkage}
	f.Regs = append(f.Regs, params...)
	t.m.Funcs = append(t.m.Funcs, f)
	t.byName[name] = id
	return id
}

// Define adds a function with an empty entry block and makes it current.
// Defining a name twice is an error.
func (t *FunctionTable) Define(name string, params []Type, result Type, linkage Linkage) (FuncID, error) {
	id := t.Declare(name, params, result, linkage)
	f := t.m.Funcs[id]
	if !f.IsDeclaration() {
		return NoFunc, fmt.Errorf("function %s already defined", name)
	}
	f.Linkage = linkage
	f.Blocks = append(f.Blocks, &Block{ID: 0, Name: "entry"})
	t.current = id
	return id, nil
}

// Lookup finds a function by name.
func (t *FunctionTable) Lookup(name string) (FuncID, bool) {
	id, ok := t.byName[name]
	return id, ok
}

// Get returns the function for id.
func (t *FunctionTable) Get(id FuncID) *Func {
	if id < 0 || int(id) >= len(t.m.Funcs) {
		return nil
	}
	return t.m.Funcs[id]
}

// SetCurrent selects the function instructions are emitted into.
func (t *FunctionTable) SetCurrent(id FuncID) { t.current = id }

// CurrentID returns the handle of the current function.
func (t *FunctionTable) CurrentID() FuncID { return t.current }

// Current returns the current function or nil.
func (t *FunctionTable) Current() *Func { return t.Get(t.current) }

// GlobalTable owns a module's globals.
type GlobalTable struct {
	m      *Module
	byName map[string]*Global
}

// NewGlobalTable indexes the globals already present in m.
func NewGlobalTable(m *Module) *GlobalTable {
	t := &GlobalTable{m: m, byName: make(map[string]*Global)}
	for _, g := range m.Globals {
		t.byName[g.Name] = g
	}
	return t
}

// Declare adds g unless a global with the same name exists, and returns the
// module's global.
func (t *GlobalTable) Declare(g Global) *Global {
	if existing, ok := t.byName[g.Name]; ok {
		return existing
	}
	cp := g
	t.m.Globals = append(t.m.Globals, &cp)
	t.byName[g.Name] = &cp
	return &cp
}

// Get returns the global called name or nil.
func (t *GlobalTable) Get(name string) *Global {
	return t.byName[name]
}

// Pointer returns a pointer to global name viewed as elem. The global must exist.
func (t *GlobalTable) Pointer(name string, elem Type) Pointer {
	g := t.byName[name]
	if g == nil {
		panic(fmt.Sprintf("lir: undeclared global %s", name))
	}
	return GlobalPointer(name, elem, g.Space)
}

// Loop holds the jump targets of an enclosing loop.
type Loop struct {
	Continue BlockID
	Break    BlockID
}

// LoopStack tracks nested loops for break and continue.
type LoopStack struct {
	loops []Loop
}

func (s *LoopStack) Push(l Loop) { s.loops = append(s.loops, l) }

func (s *LoopStack) Pop() (Loop, bool) {
	if len(s.loops) == 0 {
		return Loop{}, false
	}
	l := s.loops[len(s.loops)-1]
	s.loops = s.loops[:len(s.loops)-1]
	return l, true
}

func (s *LoopStack) Top() (Loop, bool) {
	if len(s.loops) == 0 {
		return Loop{}, false
	}
	return s.loops[len(s.loops)-1], true
}

func (s *LoopStack) Len() int { return len(s.loops) }
