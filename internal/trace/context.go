package trace

import (
	"context"
	"maps"
	"sync/atomic"
	"time"
)

var (
	seq     atomic.Uint64
	spanIDs atomic.Uint64
)

type (
	tracerKey   struct{}
	spanKey     struct{}
	contractKey struct{}
)

type spanRef struct {
	id    uint64
	depth int
}

// FromContext returns the tracer of ctx, or Nop.
func FromContext(ctx context.Context) Tracer {
	if ctx == nil {
		return Nop
	}
	if t, ok := ctx.Value(tracerKey{}).(Tracer); ok {
		return t
	}
	return Nop
}

// WithTracer attaches t to ctx.
func WithTracer(ctx context.Context, t Tracer) context.Context {
	if t == nil {
		t = Nop
	}
	return context.WithValue(ctx, tracerKey{}, t)
}

// WithContract attributes the events started under ctx to a contract.
func WithContract(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, contractKey{}, path)
}

// ContractFrom returns the contract set by WithContract.
func ContractFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	path, _ := ctx.Value(contractKey{}).(string)
	return path
}

func current(ctx context.Context) spanRef {
	if ctx == nil {
		return spanRef{depth: -1}
	}
	if ref, ok := ctx.Value(spanKey{}).(spanRef); ok {
		return ref
	}
	return spanRef{depth: -1}
}

// Span is an open interval of work. A nil *Span is valid and does nothing,
// which is what Start returns while tracing is off.
type Span struct {
	tracer   Tracer
	id       uint64
	parent   uint64
	depth    int
	scope    Scope
	name     string
	contract string
	started  time.Time
	attrs    map[string]string
}

// Start opens a span below the span of ctx and returns a context carrying
// the new span.
func Start(ctx context.Context, scope Scope, name string) (context.Context, *Span) {
	t := FromContext(ctx)
	if !t.Enabled() {
		return ctx, nil
	}
	parent := current(ctx)
	s := &Span{
		tracer:   t,
		id:       spanIDs.Add(1),
		parent:   parent.id,
		depth:    parent.depth + 1,
		scope:    scope,
		name:     name,
		contract: ContractFrom(ctx),
		started:  time.Now(),
	}
	t.Emit(s.event(KindBegin, s.started))
	return context.WithValue(ctx, spanKey{}, spanRef{id: s.id, depth: s.depth}), s
}

// Set records an attribute reported with the end event.
func (s *Span) Set(key, value string) *Span {
	if s == nil {
		return nil
	}
	if s.attrs == nil {
		s.attrs = make(map[string]string)
	}
	s.attrs[key] = value
	return s
}

// ID returns the span ID, 0 for a nil span.
func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.id
}

// End closes the span; a non-nil err marks it failed.
func (s *Span) End(err error) time.Duration {
	if s == nil {
		return 0
	}
	now := time.Now()
	ev := s.event(KindEnd, now)
	ev.Duration = now.Sub(s.started)
	ev.Attrs = maps.Clone(s.attrs)
	if err != nil {
		ev.Err = err.Error()
	}
	s.tracer.Emit(ev)
	return ev.Duration
}

func (s *Span) event(kind Kind, at time.Time) *Event {
	return &Event{
		Time:     at,
		Seq:      seq.Add(1),
		Kind:     kind,
		Scope:    s.scope,
		Span:     s.id,
		Parent:   s.parent,
		Depth:    s.depth,
		Name:     s.name,
		Contract: s.contract,
	}
}

// Point emits an instant event under the span of ctx.
func Point(ctx context.Context, scope Scope, name, detail string) {
	t := FromContext(ctx)
	if !t.Enabled() {
		return
	}
	parent := current(ctx)
	t.Emit(&Event{
		Time:     time.Now(),
		Seq:      seq.Add(1),
		Kind:     KindPoint,
		Scope:    scope,
		Parent:   parent.id,
		Depth:    parent.depth + 1,
		Name:     name,
		Contract: ContractFrom(ctx),
		Detail:   detail,
	})
}
