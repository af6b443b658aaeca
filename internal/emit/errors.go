package emit

import (
	"fmt"

	"github.com/paritytech/revive-sub000/internal/evm"
)

// UnsupportedOpcodeError reports an opcode PolkaVM contracts cannot execute.
type UnsupportedOpcodeError struct {
	Op     evm.OpCode
	Offset int
}

func (e *UnsupportedOpcodeError) Error() string {
	if e.Offset < 0 {
		return fmt.Sprintf("unsupported opcode %s", e.Op)
	}
	return fmt.Sprintf("unsupported opcode %s at offset %d", e.Op, e.Offset)
}
