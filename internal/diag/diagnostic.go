package diag

import "fmt"

// Location points at an opcode inside a contract. Line and Column are set when
// the frontend supplies debug locations; Offset is the bytecode offset or -1.
type Location struct {
	Contract string
	Offset   int
	Line     uint32
	Column   uint32
}

// NoOffset marks locations that do not map to a bytecode position.
const NoOffset = -1

// At returns a location for a bytecode offset inside contract.
func At(contract string, offset int) Location {
	return Location{Contract: contract, Offset: offset}
}

func (l Location) String() string {
	switch {
	case l.Line > 0:
		return fmt.Sprintf("%s:%d:%d", l.Contract, l.Line, l.Column)
	case l.Offset >= 0:
		return fmt.Sprintf("%s@0x%04x", l.Contract, l.Offset)
	default:
		return l.Contract
	}
}

// Note adds context at another location.
type Note struct {
	Loc Location
	Msg string
}

// Diagnostic is a located compiler message.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  Location
	Notes    []Note
}

// New returns a diagnostic without notes.
func New(sev Severity, code Code, primary Location, msg string) Diagnostic {
	return Diagnostic{
		Severity: sev,
		Code:     code,
		Primary:  primary,
		Message:  msg,
	}
}

func NewError(code Code, primary Location, msg string) Diagnostic {
	return New(SevError, code, primary, msg)
}

func (d Diagnostic) WithNote(loc Location, msg string) Diagnostic {
	d.Notes = append(d.Notes, Note{Loc: loc, Msg: msg})
	return d
}

// Error renders the diagnostic as a single line so it can travel as an error.
func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s %s %s: %s", d.Primary, d.Severity, d.Code.ID(), d.Message)
}
