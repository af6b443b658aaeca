// Package version holds build information of the revive CLI.
// The variables can be overridden at build time via -ldflags.
package version

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

var (
	// Version is the semantic version of the compiler.
	Version = "0.1.0-dev"

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// LLVMVersion names the LLVM release the external toolchain is expected to be.
	LLVMVersion = "18.1.8"

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)

var (
	majorColor = color.New(color.FgYellow, color.Bold)
	minorColor = color.New(color.FgGreen, color.Bold)
	patchColor = color.New(color.FgBlue, color.Bold)
)

// Long returns the version with build metadata, e.g.
// "0.1.0+commit.1a2b3c4.llvm-18.1.8".
func Long() string {
	var b strings.Builder
	b.WriteString(Version)
	sep := "+"
	if GitCommit != "" {
		commit := GitCommit
		if len(commit) > 7 {
			commit = commit[:7]
		}
		b.WriteString(sep + "commit." + commit)
		sep = "."
	}
	if LLVMVersion != "" {
		b.WriteString(sep + "llvm-" + LLVMVersion)
	}
	return b.String()
}

// Colored renders Version with the major, minor and patch parts highlighted.
// Pre-release suffixes are kept verbatim.
func Colored() string {
	core, suffix, _ := strings.Cut(Version, "-")
	parts := strings.SplitN(core, ".", 3)
	if len(parts) != 3 {
		return Version
	}
	out := majorColor.Sprint(parts[0]) + "." + minorColor.Sprint(parts[1]) + "." + patchColor.Sprint(parts[2])
	if suffix != "" {
		out += "-" + suffix
	}
	return out
}

// Print writes the banner shown by "revive version".
func Print(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "revive version %s\n", Colored()); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "long: %s\n", Long()); err != nil {
		return err
	}
	if BuildDate != "" {
		if _, err := fmt.Fprintf(w, "built: %s\n", BuildDate); err != nil {
			return err
		}
	}
	return nil
}
