package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/paritytech/revive-sub000/internal/buildpipeline"
	"github.com/paritytech/revive-sub000/internal/diag"
	"github.com/paritytech/revive-sub000/internal/observ"
	"github.com/paritytech/revive-sub000/internal/project"
)

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	failColor = color.New(color.FgRed, color.Bold)
	warnColor = color.New(color.FgYellow)
	dimColor  = color.New(color.Faint)
)

// outputBase maps a contract path such as "src/token.sol:Token" to the file
// name stem "src/token.sol.Token" below dir.
func outputBase(dir, contract string) string {
	name := strings.ReplaceAll(contract, ":", ".")
	return filepath.Join(dir, filepath.FromSlash(name))
}

// writeArtifacts writes the linked blob of every successful contract and the
// requested listings. It returns the blob paths by contract.
func writeArtifacts(dir string, results map[string]project.Result) (map[string]string, error) {
	written := make(map[string]string, len(results))
	var errs []error
	for _, path := range sortedPaths(results) {
		art := results[path].Artifact
		if results[path].Err != nil || art == nil || !art.Linked() {
			continue
		}
		base := outputBase(dir, path)
		if err := os.MkdirAll(filepath.Dir(base), 0o755); err != nil {
			errs = append(errs, err)
			continue
		}
		files := []struct {
			suffix string
			data   []byte
		}{
			{".pvm", art.Bytecode},
			{".ll", []byte(art.LLVMIR)},
			{".asm", []byte(art.Assembly)},
		}
		for _, f := range files {
			if len(f.data) == 0 {
				continue
			}
			if err := os.WriteFile(base+f.suffix, f.data, 0o600); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", path, err))
			}
		}
		written[path] = base + ".pvm"
	}
	return written, errors.Join(errs...)
}

func printResults(out io.Writer, results map[string]project.Result, written map[string]string) {
	for _, path := range sortedPaths(results) {
		res := results[path]
		if len(res.Warnings) > 0 {
			warnColor.Fprint(out, diag.FormatShort(res.Warnings, true))
		}
		if res.Err != nil {
			fmt.Fprintf(out, "%s %s: %v\n", failColor.Sprint("error"), path, res.Err)
			continue
		}
		art := res.Artifact
		if art == nil {
			continue
		}
		note := fmt.Sprintf("%d bytes, %s", len(art.Bytecode), art.Settings)
		if art.Attempts > 1 {
			note += ", size fallback"
		}
		if res.Cached {
			note += ", cached"
		}
		fmt.Fprintf(out, "%s %s %s\n", okColor.Sprint("   ok"), path, dimColor.Sprintf("(%s)", note))
		if dst, ok := written[path]; ok {
			fmt.Fprintf(out, "      %s %s\n", dimColor.Sprint("->"), dst)
		}
	}
}

var timedStages = []buildpipeline.Stage{
	buildpipeline.StageVerify,
	buildpipeline.StageOptimize,
	buildpipeline.StageReverify,
	buildpipeline.StageCodegen,
	buildpipeline.StageLink,
}

func printTimings(out io.Writer, timer *observ.Timer, results map[string]project.Result) {
	fmt.Fprint(out, timer.Summary())
	for _, path := range sortedPaths(results) {
		art := results[path].Artifact
		if art == nil {
			continue
		}
		parts := make([]string, 0, len(timedStages))
		for _, st := range timedStages {
			if art.Timings.Has(st) {
				parts = append(parts, fmt.Sprintf("%s %.1f ms", st, toMillis(art.Timings.Duration(st))))
			}
		}
		fmt.Fprintf(out, "%s: %s\n", path, strings.Join(parts, ", "))
	}
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func sortedPaths(results map[string]project.Result) []string {
	paths := make([]string, 0, len(results))
	for path := range results {
		paths = append(paths, path)
	}
	slices.Sort(paths)
	return paths
}
