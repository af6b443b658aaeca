package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paritytech/revive-sub000/internal/config"
	"github.com/paritytech/revive-sub000/internal/object"
	"github.com/paritytech/revive-sub000/internal/optimizer"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestReadUIMode(t *testing.T) {
	tests := []struct {
		in   string
		want uiMode
		ok   bool
	}{
		{"", uiModeAuto, true},
		{" ON ", uiModeOn, true},
		{"off", uiModeOff, true},
		{"sometimes", "", false},
	}
	for _, tt := range tests {
		got, err := readUIMode(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("readUIMode(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestOutputBase(t *testing.T) {
	got := outputBase("out", "src/token.sol:Token")
	if want := filepath.Join("out", "src", "token.sol.Token"); got != want {
		t.Fatalf("outputBase = %q, want %q", got, want)
	}
}

func TestBuildFlagsApply(t *testing.T) {
	cfg := config.Default()
	f := buildFlags{optimization: "1", noFallback: true, jobs: 2, jobsSet: true, cacheDir: "c", emitLLVM: true}
	if err := f.apply(&cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Optimizer.Level != optimizer.LevelLess || cfg.Optimizer.FallbackToSize {
		t.Errorf("optimizer %s", cfg.Optimizer)
	}
	if cfg.Jobs != 2 || !cfg.Cache.Enabled || cfg.Cache.Dir != "c" || !cfg.Output.LLVMIR {
		t.Errorf("config %+v", cfg)
	}

	cfg = config.Default()
	if err := (buildFlags{optimization: "9"}).apply(&cfg); err == nil {
		t.Error("bad level accepted")
	}
	cfg = config.Default()
	if err := (buildFlags{backend: "gcc"}).apply(&cfg); err == nil {
		t.Error("bad backend accepted")
	}
}

func TestResolveManifest(t *testing.T) {
	dir := t.TempDir()
	manifest := writeFile(t, dir, "revive.toml", "")
	nested := filepath.Join(dir, "src", "deep")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, arg := range []string{manifest, nested} {
		got, err := resolveManifest([]string{arg})
		if err != nil {
			t.Fatal(err)
		}
		if got != manifest {
			t.Errorf("resolveManifest(%s) = %s", arg, got)
		}
	}
	if _, err := resolveManifest([]string{filepath.Join(dir, "missing")}); err == nil {
		t.Error("missing path accepted")
	}
}

func TestBuildCommand(t *testing.T) {
	dir := t.TempDir()
	// PUSH1 1 PUSH1 0 MSTORE PUSH1 32 PUSH1 0 RETURN
	writeFile(t, dir, "bin/A.bin-runtime", "600160005260206000f3")
	manifest := writeFile(t, dir, "revive.toml", `
[project]
name = "demo"

[[contract]]
path = "src/a.sol:A"
runtime = "bin/A.bin-runtime"
`)
	out, err := execute(t, "build", "--ui", "off", "--color", "off", "--emit-llvm", "-O", "z", manifest)
	if err != nil {
		t.Fatalf("build: %v\n%s", err, out)
	}
	if !strings.Contains(out, "ok src/a.sol:A") {
		t.Fatalf("output:\n%s", out)
	}
	base := filepath.Join(dir, "build", "src", "a.sol.A")
	blob, err := os.ReadFile(base + ".pvm")
	if err != nil {
		t.Fatal(err)
	}
	if f, err := object.Detect(blob); err != nil || f != object.FormatPVM {
		t.Fatalf("blob format %v, %v", f, err)
	}
	if ir, err := os.ReadFile(base + ".ll"); err != nil || !strings.Contains(string(ir), "PIE Level") {
		t.Fatalf("llvm ir: %v", err)
	}
}

func TestDisasmCommand(t *testing.T) {
	out, err := execute(t, "disasm", "--format", "bytecode", "0x600160020100")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "bb0") || !strings.Contains(out, "ADD") {
		t.Fatalf("output:\n%s", out)
	}
	if _, err := execute(t, "disasm", "--format", "bytecode", "not hex"); err == nil {
		t.Fatal("garbage accepted")
	}
}
