// Package config loads compiler settings from TOML. Values missing from the
// file keep their defaults; command line flags are applied on top by the
// caller.
package config

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/paritytech/revive-sub000/internal/buildpipeline"
	"github.com/paritytech/revive-sub000/internal/optimizer"
	"github.com/paritytech/revive-sub000/internal/runtimeabi"
	"github.com/paritytech/revive-sub000/internal/trace"
)

// Backend names a code generator.
type Backend string

const (
	BackendBuiltin Backend = "builtin"
	BackendLLVM    Backend = "llvm"
)

// Config is the full compiler configuration.
type Config struct {
	Optimizer optimizer.Settings      `toml:"optimizer"`
	Memory    runtimeabi.MemoryConfig `toml:"memory"`
	Backend   Backend                 `toml:"backend"`
	// Jobs bounds parallel contract builds; 0 means GOMAXPROCS.
	Jobs   int          `toml:"jobs"`
	Output OutputConfig `toml:"output"`
	Trace  TraceConfig  `toml:"trace"`
	Cache  CacheConfig  `toml:"cache"`
	LLVM   LLVMConfig   `toml:"llvm"`
}

// OutputConfig selects the extra artifacts written next to the blobs.
type OutputConfig struct {
	Assembly bool `toml:"assembly"`
	LLVMIR   bool `toml:"llvm_ir"`
}

// TraceConfig configures internal/trace.
type TraceConfig struct {
	Level string `toml:"level"`
	// Mode is stream, ring or both; ring keeps events for a dump after a
	// failed build.
	Mode   string `toml:"mode"`
	Format string `toml:"format"`
	Output string `toml:"output"`
}

// CacheConfig configures the artifact cache.
type CacheConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

// LLVMConfig names the external tools of the llvm backend.
type LLVMConfig struct {
	Opt       string `toml:"opt"`
	Llc       string `toml:"llc"`
	Lld       string `toml:"lld"`
	Polkatool string `toml:"polkatool"`
	KeepTmp   bool   `toml:"keep_tmp"`
	// PrintCommands echoes every external command before it runs.
	PrintCommands bool `toml:"print_commands"`
}

// Default returns the configuration used without a file.
func Default() Config {
	return Config{
		Optimizer: optimizer.Default(),
		Memory:    runtimeabi.DefaultMemoryConfig(),
		Backend:   BackendBuiltin,
		Trace:     TraceConfig{Level: "off", Mode: "stream", Format: "auto", Output: "-"},
		Cache:     CacheConfig{Enabled: false},
		LLVM:      LLVMConfig{Opt: "opt", Llc: "llc", Lld: "ld.lld", Polkatool: "polkatool"},
	}
}

// Load reads path over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	return finish(path, cfg, meta)
}

// Decode reads a configuration from r over the defaults.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	meta, err := toml.NewDecoder(r).Decode(&cfg)
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse TOML: %w", err)
	}
	return finish("config", cfg, meta)
}

func finish(name string, cfg Config, meta toml.MetaData) (Config, error) {
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("%s: unknown keys %s", name, strings.Join(keys, ", "))
	}
	// A speed level without an explicit back-end level drives both.
	if meta.IsDefined("optimizer", "level") && !meta.IsDefined("optimizer", "back_end") && !cfg.Optimizer.Level.IsSize() {
		cfg.Optimizer.BackEnd = cfg.Optimizer.Level
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", name, err)
	}
	return cfg, nil
}

// Validate checks every section.
func (c Config) Validate() error {
	var errs []error
	if err := c.Optimizer.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Memory.Validate(); err != nil {
		errs = append(errs, err)
	}
	switch c.Backend {
	case BackendBuiltin, BackendLLVM:
	default:
		errs = append(errs, fmt.Errorf("unknown backend %q (supported: builtin, llvm)", c.Backend))
	}
	if c.Jobs < 0 {
		errs = append(errs, fmt.Errorf("jobs must not be negative"))
	}
	if _, err := trace.ParseLevel(c.Trace.Level); err != nil {
		errs = append(errs, err)
	}
	if _, err := trace.ParseFormat(c.Trace.Format); err != nil {
		errs = append(errs, err)
	}
	if _, err := trace.ParseMode(c.Trace.Mode); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Tracer builds the tracer described by the trace section.
func (c Config) Tracer() (trace.Tracer, error) {
	level, err := trace.ParseLevel(c.Trace.Level)
	if err != nil {
		return nil, err
	}
	format, err := trace.ParseFormat(c.Trace.Format)
	if err != nil {
		return nil, err
	}
	mode, err := trace.ParseMode(c.Trace.Mode)
	if err != nil {
		return nil, err
	}
	return trace.New(trace.Config{Level: level, Mode: mode, Format: format, OutputPath: c.Trace.Output})
}

// Toolchain returns the build toolchain for the configured backend. Command
// echoes of the llvm backend go to stdout.
func (c Config) Toolchain(stdout io.Writer) (buildpipeline.Toolchain, error) {
	switch c.Backend {
	case BackendBuiltin, "":
		return buildpipeline.Builtin(), nil
	case BackendLLVM:
		l := buildpipeline.NewLLVM(c.Optimizer)
		l.Opt, l.Llc, l.Lld, l.Polkatool = c.LLVM.Opt, c.LLVM.Llc, c.LLVM.Lld, c.LLVM.Polkatool
		l.KeepTmp = c.LLVM.KeepTmp
		l.PrintCommands = c.LLVM.PrintCommands
		l.Stdout = stdout
		if err := l.Check(); err != nil {
			return buildpipeline.Toolchain{}, err
		}
		return l.Toolchain(), nil
	}
	return buildpipeline.Toolchain{}, fmt.Errorf("unknown backend %q", c.Backend)
}
