// Package project compiles a set of contracts. Contracts build in parallel,
// each with its own emitter context and module; a sequential pass then links
// factory dependencies once every sibling has a hash.
package project

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/paritytech/revive-sub000/internal/buildpipeline"
	"github.com/paritytech/revive-sub000/internal/cache"
	"github.com/paritytech/revive-sub000/internal/diag"
	"github.com/paritytech/revive-sub000/internal/emit"
	"github.com/paritytech/revive-sub000/internal/evm"
	"github.com/paritytech/revive-sub000/internal/observ"
	"github.com/paritytech/revive-sub000/internal/optimizer"
	"github.com/paritytech/revive-sub000/internal/runtimeabi"
	"github.com/paritytech/revive-sub000/internal/tac"
	"github.com/paritytech/revive-sub000/internal/trace"
)

// Source lowers a contract into an emitter context. Implementations emit the
// deploy and runtime code; code functions left out stop immediately.
type Source interface {
	Lower(c *emit.Context) error
}

// SourceFunc adapts a function to Source.
type SourceFunc func(c *emit.Context) error

func (f SourceFunc) Lower(c *emit.Context) error { return f(c) }

// Digester is implemented by sources that can be cached.
type Digester interface {
	Digest() Digest
}

// BytecodeSource is a contract given as EVM deploy and runtime bytecode.
type BytecodeSource struct {
	Deploy  []byte
	Runtime []byte
}

func (s BytecodeSource) Lower(c *emit.Context) error {
	for _, part := range []struct {
		code  emit.CodeType
		bytes []byte
	}{{emit.CodeDeploy, s.Deploy}, {emit.CodeRuntime, s.Runtime}} {
		if len(part.bytes) == 0 {
			continue
		}
		if err := c.BeginCode(part.code); err != nil {
			return err
		}
		p := tac.NewProgram(c.Module.Name, evm.Decode(part.bytes))
		p.Optimize()
		if err := c.LowerProgram(p); err != nil {
			return fmt.Errorf("%s code: %w", part.code, err)
		}
		c.EndCode()
	}
	return nil
}

func (s BytecodeSource) Digest() Digest {
	return Combine(DigestOf(s.Deploy), DigestOf(s.Runtime))
}

// Contract is one compilation unit.
type Contract struct {
	Path   string
	Source Source
	// Dependencies maps factory dependency identifiers used by the source to
	// contract paths. Identifiers not listed are paths themselves.
	Dependencies map[string]string
	Immutables   int
	MetadataHash []byte
}

// Options apply to every contract of a project.
type Options struct {
	Settings     optimizer.Settings
	Memory       runtimeabi.MemoryConfig
	Toolchain    buildpipeline.Toolchain
	EmitAssembly bool
	EmitLLVM     bool
	// Jobs bounds the number of parallel builds; 0 means GOMAXPROCS.
	Jobs     int
	Cache    cache.Cache
	Progress buildpipeline.ProgressSink
	// Timer, when set, records the project phases.
	Timer *observ.Timer
}

// Project is a set of contracts built together.
type Project struct {
	Contracts []Contract
	Options
}

// Result is the outcome of one contract.
type Result struct {
	Artifact *buildpipeline.Artifact
	Err      error
	// Cached is set when the artifact came from the cache.
	Cached bool
	// Warnings of lowering, sorted. Cached results have none.
	Warnings []diag.Diagnostic
}

// maxWarnings bounds the warnings kept per contract.
const maxWarnings = 256

// task is the state of one contract during Compile. Each goroutine owns
// exactly one task.
type task struct {
	contract Contract
	result   Result
	// deps maps unresolved identifiers to normalized contract paths.
	deps map[string]string
}

// Compile builds every contract and links them. The returned map holds one
// result per contract path; the error reports problems with the project
// itself, such as duplicate paths or cancellation.
func (p *Project) Compile(ctx context.Context) (map[string]Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := p.Settings.Validate(); err != nil {
		return nil, err
	}
	if err := p.Memory.Validate(); err != nil {
		return nil, err
	}
	tasks, err := p.tasks()
	if err != nil {
		return nil, err
	}

	ctx, span := trace.Start(ctx, trace.ScopeProject, "compile")
	defer span.End(nil)

	phase := p.begin("build")
	for _, t := range tasks {
		report(p.Progress, t.contract.Path, buildpipeline.StatusQueued)
	}
	if err := p.buildAll(ctx, tasks); err != nil {
		p.end(phase, err.Error())
		return nil, err
	}
	p.end(phase, fmt.Sprintf("%d contracts", len(tasks)))

	phase = p.begin("link")
	p.link(ctx, tasks)
	p.end(phase, "")

	results := make(map[string]Result, len(tasks))
	for _, t := range tasks {
		results[t.contract.Path] = t.result
	}
	return results, nil
}

// Build compiles the project and fails if any contract failed.
func (p *Project) Build(ctx context.Context) (map[string]Result, error) {
	results, err := p.Compile(ctx)
	if err != nil {
		return results, err
	}
	paths := make([]string, 0, len(results))
	for path := range results {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	var errs []error
	for _, path := range paths {
		if results[path].Err != nil {
			errs = append(errs, results[path].Err)
		}
	}
	return results, errors.Join(errs...)
}

func (p *Project) tasks() ([]*task, error) {
	tasks := make([]*task, 0, len(p.Contracts))
	seen := make(map[string]bool, len(p.Contracts))
	for _, c := range p.Contracts {
		path, err := NormalizeContractPath(c.Path)
		if err != nil {
			return nil, err
		}
		if seen[path] {
			return nil, fmt.Errorf("duplicate contract %q", path)
		}
		if c.Source == nil {
			return nil, fmt.Errorf("contract %q has no source", path)
		}
		seen[path] = true
		c.Path = path
		tasks = append(tasks, &task{contract: c})
	}
	return tasks, nil
}

func (p *Project) buildAll(ctx context.Context, tasks []*task) error {
	if len(tasks) == 0 {
		return nil
	}
	jobs := p.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(tasks)))
	for _, t := range tasks {
		g.Go(func() error {
			// Проверка отмены
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			t.result = p.compileOne(gctx, t.contract)
			// a build is only interrupted by cancellation
			if errors.Is(t.result.Err, context.Canceled) || errors.Is(t.result.Err, context.DeadlineExceeded) {
				return t.result.Err
			}
			return nil
		})
	}
	return g.Wait()
}

func (p *Project) compileOne(ctx context.Context, c Contract) Result {
	ctx, span := trace.Start(trace.WithContract(ctx, c.Path), trace.ScopeContract, c.Path)
	res := p.compileContract(ctx, c)
	if res.Cached {
		span.Set("cached", "true")
	}
	span.End(res.Err)
	return res
}

// compileContract lowers and builds c, going through the cache when the
// source supports it.
func (p *Project) compileContract(ctx context.Context, c Contract) Result {
	var key cache.Key
	cacheable := false
	if d, ok := c.Source.(Digester); ok && p.Cache != nil {
		key = cache.Key{Contract: c.Path, Source: d.Digest(), Profile: p.profile(c)}
		cacheable = true
		art, hit, err := p.Cache.Get(key)
		if err == nil && hit {
			trace.Point(ctx, trace.ScopeContract, "cache hit", key.String())
			report(p.Progress, c.Path, buildpipeline.StatusDone)
			return Result{Artifact: art, Cached: true}
		}
	}

	if err := (runtimeabi.Runtime{Memory: p.Memory, Immutables: c.Immutables}).Validate(); err != nil {
		report(p.Progress, c.Path, buildpipeline.StatusError)
		return Result{Err: fmt.Errorf("contract %s: %w", c.Path, err)}
	}

	_, lower := trace.Start(ctx, trace.ScopeStage, "lower")
	warnings := diag.NewBag(maxWarnings)
	ec := emit.NewContext(c.Path, emit.Options{
		Memory:     p.Memory,
		Immutables: c.Immutables,
		Reporter:   diag.NewDedupReporter(diag.BagReporter{Bag: warnings}),
	})
	withWarnings := func(r Result) Result {
		if warnings.Len() > 0 {
			warnings.Sort()
			r.Warnings = warnings.Items()
		}
		return r
	}
	err := c.Source.Lower(ec)
	if err != nil {
		lower.End(err)
		err = fmt.Errorf("contract %s: %w", c.Path, err)
		report(p.Progress, c.Path, buildpipeline.StatusError)
		return withWarnings(Result{Err: err})
	}
	m, err := ec.Finish()
	lower.End(err)
	if err != nil {
		err = fmt.Errorf("contract %s: %w", c.Path, err)
		report(p.Progress, c.Path, buildpipeline.StatusError)
		return withWarnings(Result{Err: err})
	}

	art, err := buildpipeline.Build(ctx, &buildpipeline.Request{
		Path:         c.Path,
		Module:       m,
		Settings:     p.Settings,
		Toolchain:    p.Toolchain,
		MetadataHash: c.MetadataHash,
		EmitAssembly: p.EmitAssembly,
		EmitLLVM:     p.EmitLLVM,
		Progress:     p.Progress,
	})
	p.record(c.Path, art)
	if err != nil {
		return withWarnings(Result{Artifact: art, Err: err})
	}
	if cacheable {
		if err := p.Cache.Put(key, art); err != nil {
			trace.Point(ctx, trace.ScopeContract, "cache put failed", err.Error())
		}
	}
	return withWarnings(Result{Artifact: art})
}

// profile renders everything besides the source that changes the output.
func (p *Project) profile(c Contract) string {
	deps := make([]string, 0, len(c.Dependencies))
	for id, path := range c.Dependencies {
		deps = append(deps, id+"="+path)
	}
	slices.Sort(deps)
	return fmt.Sprintf("O%s/B%s/fallback=%t/heap=%d/stack=%d/calldata=%d/imm=%d/asm=%t/ll=%t/meta=%x/gen=%T/deps=%v",
		p.Settings.Level, p.Settings.BackEnd, p.Settings.FallbackToSize,
		p.Memory.HeapSize, p.Memory.StackSize, p.Memory.CallDataSize,
		c.Immutables, p.EmitAssembly, p.EmitLLVM, c.MetadataHash, p.Toolchain.CodeGenerator, deps)
}

func (p *Project) begin(name string) int {
	if p.Timer == nil {
		return -1
	}
	return p.Timer.Begin(name)
}

func (p *Project) end(idx int, note string) {
	if p.Timer != nil {
		p.Timer.End(idx, note)
	}
}

var stages = []buildpipeline.Stage{
	buildpipeline.StageVerify,
	buildpipeline.StageOptimize,
	buildpipeline.StageReverify,
	buildpipeline.StageCodegen,
	buildpipeline.StageLink,
}

// record copies the stage timings of a build into the timer.
func (p *Project) record(path string, art *buildpipeline.Artifact) {
	if p.Timer == nil || art == nil {
		return
	}
	for _, st := range stages {
		if art.Timings.Has(st) {
			p.Timer.Record(path+"/"+string(st), art.Timings.Duration(st), "")
		}
	}
}

func report(sink buildpipeline.ProgressSink, path string, status buildpipeline.Status) {
	if sink == nil {
		return
	}
	sink.OnEvent(buildpipeline.Event{Contract: path, Stage: buildpipeline.StageBuild, Status: status})
}
