package emit

import (
	"github.com/paritytech/revive-sub000/internal/lir"
	"github.com/paritytech/revive-sub000/internal/runtimeabi"
)

// MaxTopics is the number of topics LOG4 carries.
const MaxTopics = 4

// Log deposits an event with the memory region [offset, offset+length) as
// data. Topics are passed big endian in a stack buffer.
func (c *Context) Log(offset, length lir.Value, topics ...lir.Value) {
	b := c.Builder
	p, n := c.HeapRegion(offset, length)

	topicsPtr := lir.Const(lir.I32, 0)
	if len(topics) > 0 {
		buf := c.alloca(lir.Array(lir.WordBits, len(topics))).WithElem(lir.Word)
		for i, topic := range topics {
			b.Store(c.gep(buf, i32(i)), b.BSwap(topic))
		}
		topicsPtr = b.PtrToInt(buf)
	}
	runtimeabi.CallImport(b, runtimeabi.DepositEvent,
		topicsPtr,
		i32(len(topics)),
		b.PtrToInt(p),
		n,
	)
}
