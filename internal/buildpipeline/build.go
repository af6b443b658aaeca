// Package buildpipeline turns a contract module into a PolkaVM blob. A build
// moves a module through verification, optimization, code generation and
// linking, and retries once at size settings when the optimizer or the code
// generator gives up.
package buildpipeline

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/paritytech/revive-sub000/internal/emit"
	"github.com/paritytech/revive-sub000/internal/lir"
	"github.com/paritytech/revive-sub000/internal/object"
	"github.com/paritytech/revive-sub000/internal/optimizer"
	"github.com/paritytech/revive-sub000/internal/runtimeabi"
	"github.com/paritytech/revive-sub000/internal/trace"
)

// PIELevel is the position independence the code generator is asked for.
const PIELevel = 2

// Request configures a build of one contract.
type Request struct {
	// Path names the contract in errors, events and factory dependencies.
	Path      string
	Module    *lir.Module
	Settings  optimizer.Settings
	Toolchain Toolchain
	// Symbols maps contract paths to the hashes of their linked blobs.
	Symbols map[string]object.Hash
	// MetadataHash is embedded into the blob when not empty.
	MetadataHash []byte
	EmitAssembly bool
	EmitLLVM     bool
	Progress     ProgressSink
}

// Artifact is the result of a build.
type Artifact struct {
	Path     string
	Bytecode []byte
	Format   object.Format
	// Hash is the keccak256 of Bytecode; zero until the blob is linked.
	Hash object.Hash
	// Unresolved lists the factory dependencies still missing.
	Unresolved []string
	// FactoryDependencies maps the hashes of the contracts this one may
	// deploy to their paths. Filled in once every sibling is linked.
	FactoryDependencies map[object.Hash]string
	MetadataHash        []byte
	Assembly            string
	LLVMIR              string
	// Settings used by the attempt that succeeded.
	Settings optimizer.Settings
	Attempts int
	State    State
	Timings  Timings
}

// Linked reports whether the artifact is a PolkaVM blob.
func (a *Artifact) Linked() bool { return a.Format == object.FormatPVM }

// Build compiles req.Module. The module is modified in place.
func Build(ctx context.Context, req *Request) (*Artifact, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if req == nil {
		return nil, fmt.Errorf("missing build request")
	}
	if req.Module == nil {
		return nil, fmt.Errorf("contract %s: missing module", req.Path)
	}
	if err := req.Settings.Validate(); err != nil {
		return nil, fmt.Errorf("contract %s: %w", req.Path, err)
	}

	if trace.ContractFrom(ctx) == "" {
		ctx = trace.WithContract(ctx, req.Path)
	}
	ctx, span := trace.Start(ctx, trace.ScopeContract, "build")
	art, err := build(ctx, req)
	if art != nil {
		span.Set("attempts", strconv.Itoa(art.Attempts)).Set("settings", art.Settings.String())
	}
	span.End(err)
	return art, err
}

func build(ctx context.Context, req *Request) (*Artifact, error) {
	started := time.Now()
	tc := req.Toolchain.withDefaults()
	art := &Artifact{Path: req.Path, MetadataHash: req.MetadataHash}
	report(req.Progress, req.Path, StageBuild, StatusWorking, 1, nil, 0)

	m := req.Module
	if err := runtimeabi.Link(m); err != nil {
		err = &VerificationError{Path: req.Path, Stage: StageVerify, Err: err}
		report(req.Progress, req.Path, StageBuild, StatusError, 1, err, time.Since(started))
		return art, err
	}
	prepare(m)
	snapshot := m.Clone()

	settings := req.Settings
	for attempt := 1; ; attempt++ {
		art.Attempts = attempt
		art.Settings = settings
		art.State = StateUnverified
		err := buildOnce(ctx, req, tc, m, settings, art)
		if err == nil {
			break
		}
		if attempt == 1 && retryable(err) && settings.FallbackToSize && !settings.IsSize() && ctx.Err() == nil {
			trace.Point(ctx, trace.ScopeContract, "fallback", err.Error())
			report(req.Progress, req.Path, StageBuild, StatusRetry, attempt+1, err, time.Since(started))
			settings = optimizer.Size()
			m = snapshot
			continue
		}
		report(req.Progress, req.Path, StageBuild, StatusError, attempt, err, time.Since(started))
		return art, err
	}
	art.State = StateBuilt
	art.Timings.Set(StageBuild, time.Since(started))
	report(req.Progress, req.Path, StageBuild, StatusDone, art.Attempts, nil, time.Since(started))
	return art, nil
}

// prepare sets the module flags and target the code generator expects.
func prepare(m *lir.Module) {
	if m.Flags == nil {
		m.Flags = make(map[string]int)
	}
	m.Flags["PIE Level"] = PIELevel
	m.Triple = emit.TargetTriple
	m.CPU = emit.TargetCPU
	m.Features = emit.TargetFeatures
}

// buildOnce runs one attempt from StateUnverified to StateLinked.
func buildOnce(ctx context.Context, req *Request, tc Toolchain, m *lir.Module, s optimizer.Settings, art *Artifact) error {
	stage := func(st Stage, run func(context.Context) error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		sctx, span := trace.Start(ctx, trace.ScopeStage, string(st))
		report(req.Progress, req.Path, st, StatusWorking, art.Attempts, nil, 0)
		begin := time.Now()
		err := run(sctx)
		elapsed := time.Since(begin)
		art.Timings.Add(st, elapsed)
		if err != nil {
			span.End(err)
			report(req.Progress, req.Path, st, StatusError, art.Attempts, err, elapsed)
			return err
		}
		span.End(nil)
		report(req.Progress, req.Path, st, StatusDone, art.Attempts, nil, elapsed)
		return nil
	}

	if err := stage(StageVerify, func(ctx context.Context) error {
		if err := tc.Verifier.Verify(ctx, m); err != nil {
			return &VerificationError{Path: req.Path, Stage: StageVerify, Err: err}
		}
		return nil
	}); err != nil {
		return err
	}

	if err := stage(StageOptimize, func(ctx context.Context) error {
		if err := tc.Optimizer.Optimize(ctx, m, s); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				return err
			}
			return &OptimizationError{Path: req.Path, Err: err}
		}
		return nil
	}); err != nil {
		return err
	}
	art.State = StateOptimized

	if err := stage(StageReverify, func(ctx context.Context) error {
		if err := tc.Verifier.Verify(ctx, m); err != nil {
			return &VerificationError{Path: req.Path, Stage: StageReverify, Err: err}
		}
		return nil
	}); err != nil {
		return err
	}
	art.State = StateVerified
	if req.EmitLLVM {
		art.LLVMIR = lir.Print(m)
	}

	var obj []byte
	if err := stage(StageCodegen, func(ctx context.Context) error {
		var err error
		obj, err = tc.CodeGenerator.Generate(ctx, m, s, req.MetadataHash)
		if err != nil {
			return &CodegenError{Path: req.Path, Err: err}
		}
		return nil
	}); err != nil {
		return err
	}
	art.State = StateCodeEmitted

	if err := stage(StageLink, func(ctx context.Context) error {
		return link(ctx, req.Path, tc.Linker, obj, req.Symbols, art)
	}); err != nil {
		return err
	}
	art.State = StateLinked

	if req.EmitAssembly {
		if d, ok := tc.CodeGenerator.(Disassembler); ok {
			text, err := d.Disassemble(ctx, art.Bytecode)
			if err != nil {
				return &DisassemblyError{Path: req.Path, Err: err}
			}
			art.Assembly = text
		}
	}
	return nil
}

// link runs the linker on obj and records the result in art.
func link(ctx context.Context, path string, l Linker, obj []byte, symbols map[string]object.Hash, art *Artifact) error {
	blob, format, err := l.Link(ctx, obj, symbols)
	if err != nil {
		return &LinkError{Path: path, Err: err}
	}
	art.Bytecode = blob
	art.Format = format
	art.Hash = object.Hash{}
	art.Unresolved = nil
	if format == object.FormatPVM {
		art.Hash = object.Keccak256(blob)
		return nil
	}
	unresolved, err := object.Unresolved(blob)
	if err != nil {
		return &LinkError{Path: path, Err: err}
	}
	art.Unresolved = unresolved
	return nil
}

// Relink links an artifact that still has unresolved factory dependencies
// against symbols. Linked artifacts are left alone.
func Relink(ctx context.Context, tc Toolchain, art *Artifact, symbols map[string]object.Hash) error {
	if art == nil || art.Linked() {
		return nil
	}
	tc = tc.withDefaults()
	begin := time.Now()
	if err := link(ctx, art.Path, tc.Linker, art.Bytecode, symbols, art); err != nil {
		return err
	}
	art.Timings.Add(StageLink, time.Since(begin))
	if art.Linked() {
		art.State = StateBuilt
	}
	return nil
}
