package version

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func override(t *testing.T, v, commit, llvm, date string) {
	t.Helper()
	saved := [...]string{Version, GitCommit, LLVMVersion, BuildDate}
	Version, GitCommit, LLVMVersion, BuildDate = v, commit, llvm, date
	t.Cleanup(func() {
		Version, GitCommit, LLVMVersion, BuildDate = saved[0], saved[1], saved[2], saved[3]
	})
}

func TestLong(t *testing.T) {
	tests := []struct {
		version, commit, llvm string
		want                  string
	}{
		{"1.2.3", "abc123def456", "18.1.8", "1.2.3+commit.abc123d.llvm-18.1.8"},
		{"1.2.3", "", "18.1.8", "1.2.3+llvm-18.1.8"},
		{"1.2.3", "abc", "", "1.2.3+commit.abc"},
		{"1.2.3-dev", "", "", "1.2.3-dev"},
	}
	for _, tt := range tests {
		override(t, tt.version, tt.commit, tt.llvm, "")
		if got := Long(); got != tt.want {
			t.Errorf("Long() = %q, want %q", got, tt.want)
		}
	}
}

func TestPrint(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	override(t, "0.4.0-rc1", "", "18.1.8", "2026-01-15T10:30:00Z")
	var buf bytes.Buffer
	if err := Print(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"revive version 0.4.0-rc1", "long: 0.4.0-rc1+llvm-18.1.8", "built: 2026-01-15T10:30:00Z"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q lacks %q", out, want)
		}
	}
}

func TestColoredKeepsUnusualVersions(t *testing.T) {
	override(t, "nightly", "", "", "")
	if got := Colored(); got != "nightly" {
		t.Fatalf("Colored() = %q", got)
	}
}
