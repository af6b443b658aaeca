package trace

import (
	"io"
	"sync"
	"time"
)

// Stream writes events to w as they arrive.
type Stream struct {
	mu     sync.Mutex
	w      io.Writer
	level  Level
	format Format
	origin time.Time
}

// NewStream returns a stream tracer. FormatAuto means text.
func NewStream(w io.Writer, level Level, format Format) *Stream {
	if format == FormatAuto {
		format = FormatText
	}
	return &Stream{w: w, level: level, format: format, origin: time.Now()}
}

func (t *Stream) Emit(ev *Event) {
	if !t.level.accepts(ev) {
		return
	}
	data := encode(ev, t.format, t.origin)
	t.mu.Lock()
	defer t.mu.Unlock()
	// trace errors never fail a build
	_, _ = t.w.Write(data)
}

func (t *Stream) Flush() error {
	if f, ok := t.w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	if f, ok := t.w.(interface{ Sync() error }); ok && !isStdStream(t.w) {
		return f.Sync()
	}
	return nil
}

// Close flushes and closes the writer. Standard streams stay open.
func (t *Stream) Close() error {
	if err := t.Flush(); err != nil {
		return err
	}
	if isStdStream(t.w) {
		return nil
	}
	if c, ok := t.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func isStdStream(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	return ok && f.Fd() <= 2
}

func (t *Stream) Level() Level  { return t.level }
func (t *Stream) Enabled() bool { return t.level > LevelOff }
