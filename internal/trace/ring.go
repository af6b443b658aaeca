package trace

import (
	"io"
	"sync"
	"time"
)

// Ring keeps the last events in memory so a failed build can show what led
// to it.
type Ring struct {
	mu     sync.Mutex
	events []Event
	next   int
	full   bool
	level  Level
	origin time.Time
}

// NewRing returns a ring holding up to capacity events.
func NewRing(capacity int, level Level) *Ring {
	if capacity <= 0 {
		capacity = 4096
	}
	return &Ring{events: make([]Event, capacity), level: level, origin: time.Now()}
}

func (t *Ring) Emit(ev *Event) {
	if !t.level.accepts(ev) {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events[t.next] = *ev
	t.next = (t.next + 1) % len(t.events)
	if t.next == 0 {
		t.full = true
	}
}

// Snapshot returns the kept events, oldest first.
func (t *Ring) Snapshot() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.full {
		return append([]Event(nil), t.events[:t.next]...)
	}
	out := make([]Event, 0, len(t.events))
	out = append(out, t.events[t.next:]...)
	return append(out, t.events[:t.next]...)
}

// Dump writes the kept events to w.
func (t *Ring) Dump(w io.Writer, format Format) error {
	for _, ev := range t.Snapshot() {
		if _, err := w.Write(encode(&ev, format, t.origin)); err != nil {
			return err
		}
	}
	return nil
}

func (t *Ring) Flush() error  { return nil }
func (t *Ring) Close() error  { return nil }
func (t *Ring) Level() Level  { return t.level }
func (t *Ring) Enabled() bool { return t.level > LevelOff }
