package emit

import (
	"fmt"

	"github.com/paritytech/revive-sub000/internal/lir"
	"github.com/paritytech/revive-sub000/internal/runtimeabi"
)

func (c *Context) immutable(index int) (lir.Pointer, error) {
	if index < 0 || index >= c.runtime.Immutables {
		return lir.Pointer{}, fmt.Errorf("immutable %d out of range [0, %d)", index, c.runtime.Immutables)
	}
	data := c.Globals.Pointer(runtimeabi.GlobalImmutableData, lir.I8)
	offset := i32(index * runtimeabi.WordSize)
	return c.gep(data, offset).WithElem(lir.Word), nil
}

// SetImmutable assigns immutable index. Only deploy code may do that; the
// values reach the host when deploy code returns.
func (c *Context) SetImmutable(index int, value lir.Value) error {
	if c.code != CodeDeploy {
		return fmt.Errorf("immutable %d assigned in %s code", index, c.code)
	}
	p, err := c.immutable(index)
	if err != nil {
		return err
	}
	c.Builder.Store(p, value)
	return nil
}

// LoadImmutable reads immutable index. Runtime code fetches the immutable
// data from the host on first use.
func (c *Context) LoadImmutable(index int) (lir.Value, error) {
	p, err := c.immutable(index)
	if err != nil {
		return lir.Value{}, err
	}
	if c.code == CodeRuntime {
		c.Builder.Call(runtimeabi.LoadImmutableData)
	}
	return c.Builder.Load(p), nil
}

// flushImmutables hands the immutable data to the host.
func (c *Context) flushImmutables() {
	if c.code != CodeDeploy || c.runtime.Immutables == 0 {
		return
	}
	b := c.Builder
	data := c.Globals.Pointer(runtimeabi.GlobalImmutableData, lir.I8)
	runtimeabi.CallImport(b, runtimeabi.SetImmutableData,
		b.PtrToInt(data),
		lir.Const(lir.I32, uint64(c.runtime.ImmutableDataSize())),
	)
}
