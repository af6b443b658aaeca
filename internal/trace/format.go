package trace

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

// Format represents the output format for trace events.
type Format uint8

const (
	FormatAuto   Format = iota // pick by output file extension
	FormatText                 // human-readable text
	FormatNDJSON               // newline-delimited JSON
)

// ParseFormat converts a string to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return FormatAuto, nil
	case "text":
		return FormatText, nil
	case "ndjson", "json":
		return FormatNDJSON, nil
	}
	return FormatAuto, fmt.Errorf("invalid trace format: %q (expected: auto|text|ndjson)", s)
}

// encode renders ev. Text timestamps are relative to origin.
func encode(ev *Event, format Format, origin time.Time) []byte {
	if format == FormatNDJSON {
		return encodeNDJSON(ev)
	}
	return encodeText(ev, origin)
}

type jsonEvent struct {
	Time     string            `json:"time"`
	Seq      uint64            `json:"seq"`
	Kind     string            `json:"kind"`
	Scope    string            `json:"scope"`
	Span     uint64            `json:"span,omitempty"`
	Parent   uint64            `json:"parent,omitempty"`
	Name     string            `json:"name"`
	Contract string            `json:"contract,omitempty"`
	Detail   string            `json:"detail,omitempty"`
	Err      string            `json:"error,omitempty"`
	Micros   int64             `json:"duration_us,omitempty"`
	Attrs    map[string]string `json:"attrs,omitempty"`
}

func encodeNDJSON(ev *Event) []byte {
	data, err := json.Marshal(jsonEvent{
		Time:     ev.Time.Format(time.RFC3339Nano),
		Seq:      ev.Seq,
		Kind:     ev.Kind.String(),
		Scope:    ev.Scope.String(),
		Span:     ev.Span,
		Parent:   ev.Parent,
		Name:     ev.Name,
		Contract: ev.Contract,
		Detail:   ev.Detail,
		Err:      ev.Err,
		Micros:   ev.Duration.Microseconds(),
		Attrs:    ev.Attrs,
	})
	if err != nil {
		return nil
	}
	return append(data, '\n')
}

// encodeText: "[  12.345ms]   → optimize [a.sol:A] (detail) 1.2ms {k=v}"
func encodeText(ev *Event, origin time.Time) []byte {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%9.3fms] ", float64(ev.Time.Sub(origin))/float64(time.Millisecond))
	sb.WriteString(strings.Repeat("  ", max(ev.Depth, 0)))
	switch ev.Kind {
	case KindBegin:
		sb.WriteString("→ ")
	case KindEnd:
		sb.WriteString("← ")
	default:
		sb.WriteString("• ")
	}
	sb.WriteString(ev.Name)
	if ev.Contract != "" && ev.Scope > ScopeContract {
		fmt.Fprintf(&sb, " [%s]", ev.Contract)
	}
	if ev.Detail != "" {
		fmt.Fprintf(&sb, " (%s)", ev.Detail)
	}
	if ev.Kind == KindEnd {
		fmt.Fprintf(&sb, " %.3fms", float64(ev.Duration)/float64(time.Millisecond))
	}
	if ev.Err != "" {
		fmt.Fprintf(&sb, " error: %s", ev.Err)
	}
	if len(ev.Attrs) > 0 {
		sb.WriteString(" {")
		for i, k := range slices.Sorted(maps.Keys(ev.Attrs)) {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(k + "=" + ev.Attrs[k])
		}
		sb.WriteString("}")
	}
	sb.WriteByte('\n')
	return []byte(sb.String())
}
