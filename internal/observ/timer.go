// Package observ records how long the phases of a compilation take.
package observ

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Phase is one measured interval. Nested phases were measured inside
// another phase (a pipeline stage inside "build") and are left out of the
// total.
type Phase struct {
	Name   string
	Start  time.Time
	Dur    time.Duration
	Note   string
	Nested bool
}

// Timer collects phases. Contracts building in parallel share one timer,
// so every method locks.
type Timer struct {
	mu     sync.Mutex
	phases []Phase
}

func NewTimer() *Timer { return &Timer{} }

// Begin opens a phase; pass the returned handle to End.
func (t *Timer) Begin(name string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.phases = append(t.phases, Phase{Name: name, Start: time.Now()})
	return len(t.phases) - 1
}

// End closes the phase opened by Begin. Unknown handles are ignored.
func (t *Timer) End(handle int, note string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if handle < 0 || handle >= len(t.phases) {
		return
	}
	ph := &t.phases[handle]
	ph.Dur, ph.Note = time.Since(ph.Start), note
}

// Record adds a nested phase that was timed by someone else.
func (t *Timer) Record(name string, dur time.Duration, note string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.phases = append(t.phases, Phase{
		Name:   name,
		Start:  time.Now().Add(-dur),
		Dur:    dur,
		Note:   note,
		Nested: true,
	})
}

// PhaseReport is a phase in milliseconds, ready for JSON.
type PhaseReport struct {
	Name       string  `json:"name"`
	DurationMS float64 `json:"duration_ms"`
	Note       string  `json:"note,omitempty"`
	Nested     bool    `json:"nested,omitempty"`
}

type Report struct {
	TotalMS float64       `json:"total_ms"`
	Phases  []PhaseReport `json:"phases"`
}

// Report snapshots the phases in the order they were opened.
func (t *Timer) Report() Report {
	t.mu.Lock()
	defer t.mu.Unlock()
	var r Report
	var total time.Duration
	for _, ph := range t.phases {
		if !ph.Nested {
			total += ph.Dur
		}
		r.Phases = append(r.Phases, PhaseReport{Name: ph.Name, DurationMS: ms(ph.Dur), Note: ph.Note, Nested: ph.Nested})
	}
	r.TotalMS = ms(total)
	return r
}

// Summary renders the report as an aligned table, nested phases indented.
func (t *Timer) Summary() string {
	r := t.Report()
	var sb strings.Builder
	sb.WriteString("timings:\n")
	for _, ph := range r.Phases {
		name := ph.Name
		if ph.Nested {
			name = "  " + name
		}
		line := fmt.Sprintf("  %-32s %9.2f ms", name, ph.DurationMS)
		if ph.Note != "" {
			line += "  // " + ph.Note
		}
		sb.WriteString(line + "\n")
	}
	fmt.Fprintf(&sb, "  %-32s %9.2f ms\n", "total", r.TotalMS)
	return sb.String()
}

func ms(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }
