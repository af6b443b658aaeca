package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/paritytech/revive-sub000/internal/cache"
	"github.com/paritytech/revive-sub000/internal/config"
	"github.com/paritytech/revive-sub000/internal/observ"
	"github.com/paritytech/revive-sub000/internal/optimizer"
	"github.com/paritytech/revive-sub000/internal/project"
	"github.com/paritytech/revive-sub000/internal/trace"
)

const noManifestMessage = "no revive.toml found; pass a manifest path or run inside a project"

var buildCmd = &cobra.Command{
	Use:   "build [flags] [manifest]",
	Short: "Build the contracts of a project",
	Long:  "Build every contract listed in revive.toml and write the PolkaVM blobs to the output directory.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  buildExecution,
}

func init() {
	buildCmd.Flags().StringP("optimization", "O", "", "optimization level (0|1|2|3|s|z)")
	buildCmd.Flags().Bool("no-fallback", false, "do not retry failed builds with size optimizations")
	buildCmd.Flags().Int("jobs", 0, "parallel contract builds (0 = GOMAXPROCS)")
	buildCmd.Flags().String("backend", "", "code generator (builtin|llvm)")
	buildCmd.Flags().String("out", "", "output directory (overrides the manifest)")
	buildCmd.Flags().String("cache-dir", "", "enable the artifact cache in this directory")
	buildCmd.Flags().Bool("no-cache", false, "disable the artifact cache")
	buildCmd.Flags().Bool("emit-llvm", false, "write the optimized LLVM IR next to each blob")
	buildCmd.Flags().Bool("emit-asm", false, "write the disassembly next to each blob")
	buildCmd.Flags().Bool("print-commands", false, "print the external commands of the llvm backend")
	buildCmd.Flags().String("ui", "auto", "progress UI (auto|on|off)")
}

// buildFlags are the build options read from the command line.
type buildFlags struct {
	optimization  string
	noFallback    bool
	jobs          int
	jobsSet       bool
	backend       string
	out           string
	cacheDir      string
	noCache       bool
	emitLLVM      bool
	emitAsm       bool
	printCommands bool
	ui            uiMode
}

func readBuildFlags(cmd *cobra.Command) (buildFlags, error) {
	var (
		f   buildFlags
		err error
		ui  string
	)
	flags := cmd.Flags()
	if f.optimization, err = flags.GetString("optimization"); err != nil {
		return f, err
	}
	if f.noFallback, err = flags.GetBool("no-fallback"); err != nil {
		return f, err
	}
	if f.jobs, err = flags.GetInt("jobs"); err != nil {
		return f, err
	}
	f.jobsSet = flags.Changed("jobs")
	if f.backend, err = flags.GetString("backend"); err != nil {
		return f, err
	}
	if f.out, err = flags.GetString("out"); err != nil {
		return f, err
	}
	if f.cacheDir, err = flags.GetString("cache-dir"); err != nil {
		return f, err
	}
	if f.noCache, err = flags.GetBool("no-cache"); err != nil {
		return f, err
	}
	if f.emitLLVM, err = flags.GetBool("emit-llvm"); err != nil {
		return f, err
	}
	if f.emitAsm, err = flags.GetBool("emit-asm"); err != nil {
		return f, err
	}
	if f.printCommands, err = flags.GetBool("print-commands"); err != nil {
		return f, err
	}
	if ui, err = flags.GetString("ui"); err != nil {
		return f, err
	}
	if f.ui, err = readUIMode(ui); err != nil {
		return f, err
	}
	if f.cacheDir != "" && f.noCache {
		return f, errors.New("--cache-dir and --no-cache are mutually exclusive")
	}
	return f, nil
}

// apply overrides cfg with the flags that were given.
func (f buildFlags) apply(cfg *config.Config) error {
	if f.optimization != "" {
		s, err := optimizer.ForLevel(f.optimization)
		if err != nil {
			return err
		}
		s.FallbackToSize = cfg.Optimizer.FallbackToSize
		cfg.Optimizer = s
	}
	if f.noFallback {
		cfg.Optimizer.FallbackToSize = false
	}
	if f.jobsSet {
		cfg.Jobs = f.jobs
	}
	if f.backend != "" {
		cfg.Backend = config.Backend(f.backend)
	}
	if f.cacheDir != "" {
		cfg.Cache.Enabled = true
		cfg.Cache.Dir = f.cacheDir
	}
	if f.noCache {
		cfg.Cache.Enabled = false
	}
	cfg.LLVM.PrintCommands = cfg.LLVM.PrintCommands || f.printCommands
	cfg.Output.LLVMIR = cfg.Output.LLVMIR || f.emitLLVM
	cfg.Output.Assembly = cfg.Output.Assembly || f.emitAsm
	return cfg.Validate()
}

func buildExecution(cmd *cobra.Command, args []string) error {
	flags, err := readBuildFlags(cmd)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := flags.apply(&cfg); err != nil {
		return err
	}
	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return err
	}
	showTimings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return err
	}

	manifestPath, err := resolveManifest(args)
	if err != nil {
		return err
	}
	manifest, err := project.LoadManifest(manifestPath)
	if err != nil {
		return err
	}
	contracts, err := manifest.Load()
	if err != nil {
		return err
	}
	outDir := manifest.OutPath()
	if flags.out != "" {
		outDir = flags.out
	}

	stopProfiling, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	defer stopProfiling()
	tracer, stopTracing, err := setupTracing(cmd, cfg)
	if err != nil {
		return err
	}
	defer stopTracing()

	toolchain, err := cfg.Toolchain(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	opts := project.Options{
		Settings:     cfg.Optimizer,
		Memory:       cfg.Memory,
		Toolchain:    toolchain,
		EmitAssembly: cfg.Output.Assembly,
		EmitLLVM:     cfg.Output.LLVMIR,
		Jobs:         cfg.Jobs,
	}
	if cfg.Cache.Enabled {
		disk, err := cache.OpenDisk(cfg.Cache.Dir, "revive")
		if err != nil {
			return fmt.Errorf("open cache: %w", err)
		}
		opts.Cache = disk
	}
	var timer *observ.Timer
	if showTimings {
		timer = observ.NewTimer()
		opts.Timer = timer
	}
	p := &project.Project{Contracts: contracts, Options: opts}

	results, buildErr := runBuild(cmd.Context(), manifest.Name, p, shouldUseTUI(flags.ui) && !quiet)

	if buildErr != nil {
		// ring tracers keep what happened before the failure
		if err := trace.Dump(tracer, cmd.ErrOrStderr(), trace.FormatText); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: dump error: %v\n", err)
		}
	}

	written, writeErr := writeArtifacts(outDir, results)
	if !quiet {
		printResults(cmd.OutOrStdout(), results, written)
	}
	if timer != nil {
		printTimings(cmd.OutOrStdout(), timer, results)
	}
	return errors.Join(buildErr, writeErr)
}

func runBuild(ctx context.Context, title string, p *project.Project, useTUI bool) (map[string]project.Result, error) {
	if title == "" {
		title = "build"
	}
	if useTUI {
		return runBuildWithUI(ctx, title, p)
	}
	return p.Build(ctx)
}

// resolveManifest finds revive.toml from the optional argument, which may be
// the manifest itself or a directory inside a project.
func resolveManifest(args []string) (string, error) {
	start := "."
	if len(args) == 1 {
		info, err := os.Stat(args[0])
		if err != nil {
			return "", err
		}
		if !info.IsDir() {
			return args[0], nil
		}
		start = args[0]
	}
	path, ok, err := project.FindManifest(start)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", errors.New(noManifestMessage)
	}
	return filepath.Clean(path), nil
}
