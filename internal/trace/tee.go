package trace

import (
	"errors"
	"io"
)

type tee []Tracer

// Tee sends every event to all tracers. Its level is the highest of theirs.
func Tee(tracers ...Tracer) Tracer {
	return tee(tracers)
}

func (t tee) Emit(ev *Event) {
	for _, tr := range t {
		// sinks may keep the event, so each gets its own copy
		cp := *ev
		tr.Emit(&cp)
	}
}

func (t tee) Flush() error {
	var errs []error
	for _, tr := range t {
		errs = append(errs, tr.Flush())
	}
	return errors.Join(errs...)
}

func (t tee) Close() error {
	var errs []error
	for _, tr := range t {
		errs = append(errs, tr.Close())
	}
	return errors.Join(errs...)
}

func (t tee) Level() Level {
	var l Level
	for _, tr := range t {
		l = max(l, tr.Level())
	}
	return l
}

func (t tee) Enabled() bool { return t.Level() > LevelOff }

// Dump dumps the first member that keeps events.
func (t tee) Dump(w io.Writer, format Format) error {
	for _, tr := range t {
		if d, ok := tr.(Dumper); ok {
			return d.Dump(w, format)
		}
	}
	return nil
}
