package trace

import "time"

// Kind represents the type of trace event.
type Kind uint8

const (
	KindBegin Kind = iota + 1
	KindEnd
	KindPoint
)

func (k Kind) String() string {
	switch k {
	case KindBegin:
		return "begin"
	case KindEnd:
		return "end"
	case KindPoint:
		return "point"
	}
	return "unknown"
}

// Scope is the granularity of an event; smaller is coarser.
type Scope uint8

const (
	ScopeProject Scope = iota + 1
	ScopeContract
	ScopeStage
	ScopePass
)

func (s Scope) String() string {
	switch s {
	case ScopeProject:
		return "project"
	case ScopeContract:
		return "contract"
	case ScopeStage:
		return "stage"
	case ScopePass:
		return "pass"
	}
	return "unknown"
}

// Event is a single trace record.
type Event struct {
	Time   time.Time
	Seq    uint64
	Kind   Kind
	Scope  Scope
	Span   uint64
	Parent uint64
	// Depth is the nesting of the span, 0 for roots.
	Depth    int
	Name     string
	Contract string
	Detail   string
	// Err is set on end events of failed spans.
	Err string
	// Duration is set on end events.
	Duration time.Duration
	Attrs    map[string]string
}
