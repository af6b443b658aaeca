package emit

import (
	"github.com/paritytech/revive-sub000/internal/lir"
	"github.com/paritytech/revive-sub000/internal/runtimeabi"
)

// Return ends execution successfully with the memory region as output.
func (c *Context) Return(offset, length lir.Value) {
	c.flushImmutables()
	c.exit(0, offset, length)
}

// Revert ends execution, rolling back state, with the memory region as output.
func (c *Context) Revert(offset, length lir.Value) {
	c.exit(runtimeabi.ReturnFlagRevert, offset, length)
}

func (c *Context) Stop() {
	c.Return(Word(0), Word(0))
}

// Invalid traps.
func (c *Context) Invalid() {
	c.Builder.Trap()
	c.Builder.Unreachable()
	c.deadBlock()
}

func (c *Context) exit(flags uint64, offset, length lir.Value) {
	b := c.Builder
	b.Call(runtimeabi.Exit, lir.Const(lir.I32, flags), offset, length)
	b.Unreachable()
	c.deadBlock()
}
