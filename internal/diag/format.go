package diag

import (
	"fmt"
	"strings"
)

// FormatShort renders diagnostics one per line in a stable order, optionally
// followed by indented notes. Used by the CLI and by tests as golden text.
func FormatShort(diags []Diagnostic, includeNotes bool) string {
	if len(diags) == 0 {
		return ""
	}
	bag := NewBag(len(diags))
	for _, d := range diags {
		bag.Add(d)
	}
	bag.Sort()

	var sb strings.Builder
	for _, d := range bag.Items() {
		fmt.Fprintf(&sb, "%s %s %s: %s\n", d.Severity, d.Code.ID(), d.Primary, d.Message)
		if !includeNotes {
			continue
		}
		for _, n := range d.Notes {
			fmt.Fprintf(&sb, "  note %s: %s\n", n.Loc, n.Msg)
		}
	}
	return sb.String()
}
