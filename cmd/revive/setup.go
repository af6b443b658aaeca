package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/paritytech/revive-sub000/internal/config"
	"github.com/paritytech/revive-sub000/internal/prof"
	"github.com/paritytech/revive-sub000/internal/trace"
)

// loadConfig reads --config over the defaults and applies the global
// trace flags.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	root := cmd.Root().PersistentFlags()
	path, err := root.GetString("config")
	if err != nil {
		return config.Config{}, err
	}
	cfg := config.Default()
	if path != "" {
		if cfg, err = config.Load(path); err != nil {
			return config.Config{}, err
		}
	}

	traceOutput, err := root.GetString("trace")
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to get trace flag: %w", err)
	}
	traceLevel, err := root.GetString("trace-level")
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to get trace-level flag: %w", err)
	}
	if traceOutput != "" {
		cfg.Trace.Output = traceOutput
		// an output without a level asks for the default level
		if traceLevel == "" && cfg.Trace.Level == "off" {
			cfg.Trace.Level = trace.LevelPhase.String()
		}
	}
	if traceLevel != "" {
		cfg.Trace.Level = traceLevel
	}
	traceMode, err := root.GetString("trace-mode")
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to get trace-mode flag: %w", err)
	}
	if traceMode != "" {
		cfg.Trace.Mode = traceMode
	}
	return cfg, cfg.Validate()
}

// setupTracing attaches the configured tracer to the command context. The
// returned cleanup flushes and closes it.
func setupTracing(cmd *cobra.Command, cfg config.Config) (trace.Tracer, func(), error) {
	tracer, err := cfg.Tracer()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create tracer: %w", err)
	}
	ctx := trace.WithTracer(cmd.Context(), tracer)
	cmd.SetContext(ctx)

	cleanup := func() {
		if err := tracer.Flush(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: flush error: %v\n", err)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
	}
	return tracer, cleanup, nil
}

// setupProfiling starts the profiles named by the global flags.
func setupProfiling(cmd *cobra.Command) (func(), error) {
	root := cmd.Root().PersistentFlags()
	var opts prof.Options
	var err error
	if opts.CPU, err = root.GetString("cpu-profile"); err != nil {
		return nil, fmt.Errorf("failed to get cpu-profile flag: %w", err)
	}
	if opts.Mem, err = root.GetString("mem-profile"); err != nil {
		return nil, fmt.Errorf("failed to get mem-profile flag: %w", err)
	}
	if opts.Trace, err = root.GetString("runtime-trace"); err != nil {
		return nil, fmt.Errorf("failed to get runtime-trace flag: %w", err)
	}
	if !opts.Enabled() {
		return func() {}, nil
	}
	session, err := prof.Start(opts)
	if err != nil {
		return nil, err
	}
	return func() {
		if err := session.Stop(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "profiling: %v\n", err)
		}
	}, nil
}
