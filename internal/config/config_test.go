package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paritytech/revive-sub000/internal/optimizer"
	"github.com/paritytech/revive-sub000/internal/runtimeabi"
)

func TestDefaults(t *testing.T) {
	cfg, err := Decode(strings.NewReader(""))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Optimizer != optimizer.Default() || !cfg.Optimizer.FallbackToSize {
		t.Fatalf("optimizer %+v", cfg.Optimizer)
	}
	if cfg.Memory != runtimeabi.DefaultMemoryConfig() {
		t.Fatalf("memory %+v", cfg.Memory)
	}
	if cfg.Memory.HeapSize != 64*1024 || cfg.Memory.StackSize != 32*1024 || cfg.Memory.CallDataSize != 16*1024 {
		t.Fatalf("memory %+v", cfg.Memory)
	}
	if cfg.Backend != BackendBuiltin || cfg.Jobs != 0 || cfg.Trace.Level != "off" {
		t.Fatalf("config %+v", cfg)
	}
}

func TestOverrides(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(t *testing.T, c Config)
	}{
		{
			name:  "speed level drives back end",
			input: "[optimizer]\nlevel = \"1\"\n",
			check: func(t *testing.T, c Config) {
				if c.Optimizer.Level != optimizer.LevelLess || c.Optimizer.BackEnd != optimizer.LevelLess {
					t.Fatalf("optimizer %+v", c.Optimizer)
				}
			},
		},
		{
			name:  "size level keeps back end",
			input: "[optimizer]\nlevel = \"z\"\nfallback_to_size = false\n",
			check: func(t *testing.T, c Config) {
				if c.Optimizer.Level != optimizer.LevelMinSize || c.Optimizer.BackEnd != optimizer.LevelAggressive || c.Optimizer.FallbackToSize {
					t.Fatalf("optimizer %+v", c.Optimizer)
				}
			},
		},
		{
			name:  "explicit back end",
			input: "[optimizer]\nlevel = \"3\"\nback_end = \"0\"\n",
			check: func(t *testing.T, c Config) {
				if c.Optimizer.BackEnd != optimizer.LevelNone {
					t.Fatalf("optimizer %+v", c.Optimizer)
				}
			},
		},
		{
			name:  "partial memory",
			input: "jobs = 4\n[memory]\nheap_size = 131072\n",
			check: func(t *testing.T, c Config) {
				if c.Memory.HeapSize != 131072 || c.Memory.StackSize != 32*1024 || c.Jobs != 4 {
					t.Fatalf("config %+v", c)
				}
			},
		},
		{
			name:  "trace and cache",
			input: "[trace]\nlevel = \"phase\"\nmode = \"ring\"\noutput = \"t.ndjson\"\n[cache]\nenabled = true\n",
			check: func(t *testing.T, c Config) {
				if c.Trace.Level != "phase" || c.Trace.Mode != "ring" || c.Trace.Format != "auto" || !c.Cache.Enabled {
					t.Fatalf("config %+v", c)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Decode(strings.NewReader(tt.input))
			if err != nil {
				t.Fatal(err)
			}
			tt.check(t, cfg)
		})
	}
}

func TestRejects(t *testing.T) {
	for _, input := range []string{
		"backend = \"gcc\"\n",
		"jobs = -1\n",
		"[trace]\nmode = \"tape\"\n",
		"[optimizer]\nlevel = \"7\"\n",
		"[optimizer]\nback_end = \"s\"\n",
		"[memory]\nheap_size = 33\n",
		"[trace]\nlevel = \"loud\"\n",
		"colour = true\n",
	} {
		if _, err := Decode(strings.NewReader(input)); err == nil {
			t.Errorf("accepted %q", input)
		}
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "revive-config.toml")
	if err := os.WriteFile(path, []byte("backend = \"builtin\"\n[output]\nassembly = true\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Output.Assembly || cfg.Output.LLVMIR {
		t.Fatalf("output %+v", cfg.Output)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("missing file accepted")
	}
	tc, err := cfg.Toolchain(os.Stdout)
	if err != nil || tc.CodeGenerator == nil {
		t.Fatalf("toolchain %+v, %v", tc, err)
	}
	tr, err := cfg.Tracer()
	if err != nil || tr.Enabled() {
		t.Fatalf("tracer enabled=%v err=%v", tr != nil && tr.Enabled(), err)
	}
}
