package buildpipeline_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/paritytech/revive-sub000/internal/buildpipeline"
	"github.com/paritytech/revive-sub000/internal/emit"
	"github.com/paritytech/revive-sub000/internal/interp"
	"github.com/paritytech/revive-sub000/internal/lir"
	"github.com/paritytech/revive-sub000/internal/object"
	"github.com/paritytech/revive-sub000/internal/optimizer"
	"github.com/paritytech/revive-sub000/internal/runtimeabi"
)

// contract returns 32 bytes: the xor of the listed factory dependency hashes
// plus 7.
func contract(t *testing.T, deps ...string) *lir.Module {
	t.Helper()
	c := emit.NewContext("test", emit.Options{Memory: runtimeabi.DefaultMemoryConfig()})
	if err := c.BeginCode(emit.CodeRuntime); err != nil {
		t.Fatal(err)
	}
	v := emit.Word(7)
	for _, d := range deps {
		v = c.Xor(v, c.DataOffset(d))
	}
	if err := c.MStore(emit.Word(0), v); err != nil {
		t.Fatal(err)
	}
	c.Return(emit.Word(0), emit.Word(32))
	c.EndCode()
	m, err := c.Finish()
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func run(t *testing.T, blob []byte) []byte {
	t.Helper()
	obj, err := object.Decode(blob)
	if err != nil {
		t.Fatal(err)
	}
	vm, err := interp.New(obj.Module, interp.NewMockHost(), interp.Options{})
	if err != nil {
		t.Fatal(err)
	}
	res, err := vm.Run(runtimeabi.ExportCall)
	if err != nil {
		t.Fatal(err)
	}
	return res.Output
}

// flakyOptimizer fails for every non-size level and records what it saw.
type flakyOptimizer struct {
	calls []optimizer.Settings
	names []string
}

func (o *flakyOptimizer) Optimize(ctx context.Context, m *lir.Module, s optimizer.Settings) error {
	o.calls = append(o.calls, s)
	o.names = append(o.names, m.Name)
	if !s.IsSize() {
		m.Name = "clobbered"
		return errors.New("pass exploded")
	}
	return optimizer.Run(ctx, m, s)
}

// reverifyFails rejects every optimized module unless it was optimized for size.
type reverifyFails struct {
	opt   *flakyOptimizer
	calls int
}

func (v *reverifyFails) Verify(_ context.Context, m *lir.Module) error {
	v.calls++
	if v.calls%2 == 0 && !v.opt.calls[len(v.opt.calls)-1].IsSize() {
		return errors.New("broken phi")
	}
	return lir.Verify(m)
}

type passOptimizer struct{ calls []optimizer.Settings }

func (o *passOptimizer) Optimize(_ context.Context, _ *lir.Module, s optimizer.Settings) error {
	o.calls = append(o.calls, s)
	return nil
}

type failingCodegen struct{ calls int }

func (g *failingCodegen) Generate(_ context.Context, m *lir.Module, s optimizer.Settings, md []byte) ([]byte, error) {
	g.calls++
	if !s.IsSize() {
		return nil, errors.New("register allocation failed")
	}
	return object.Encode(m, md)
}

type failingLinker struct{ calls int }

func (l *failingLinker) Link(context.Context, []byte, map[string]object.Hash) ([]byte, object.Format, error) {
	l.calls++
	return nil, 0, errors.New("relocation out of range")
}

// brokenDisassembler generates valid objects but cannot render them.
type brokenDisassembler struct{ generated int }

func (g *brokenDisassembler) Generate(_ context.Context, m *lir.Module, _ optimizer.Settings, md []byte) ([]byte, error) {
	g.generated++
	return object.Encode(m, md)
}

func (*brokenDisassembler) Disassemble(context.Context, []byte) (string, error) {
	return "", errors.New("unknown instruction")
}

type alwaysInvalid struct{}

func (alwaysInvalid) Verify(context.Context, *lir.Module) error { return errors.New("bad module") }

func TestBuildProducesLinkedBlob(t *testing.T) {
	sink := &buildpipeline.RecordingSink{}
	art, err := buildpipeline.Build(context.Background(), &buildpipeline.Request{
		Path:         "a.sol:A",
		Module:       contract(t),
		Settings:     optimizer.Default(),
		MetadataHash: []byte{1, 2, 3},
		EmitLLVM:     true,
		EmitAssembly: true,
		Progress:     sink,
	})
	if err != nil {
		t.Fatal(err)
	}
	if art.Format != object.FormatPVM || art.State != buildpipeline.StateBuilt || art.Attempts != 1 {
		t.Fatalf("artifact format=%s state=%s attempts=%d", art.Format, art.State, art.Attempts)
	}
	if art.Hash != object.Keccak256(art.Bytecode) {
		t.Fatalf("hash %s does not match the blob", art.Hash)
	}
	if !strings.Contains(art.LLVMIR, `!"PIE Level", i32 2`) || !strings.Contains(art.LLVMIR, emit.TargetTriple) {
		t.Fatalf("LLVM IR lacks module flags or target:\n%s", art.LLVMIR)
	}
	if !strings.Contains(art.Assembly, "format: PVM") {
		t.Fatalf("assembly:\n%s", art.Assembly)
	}
	obj, err := object.Decode(art.Bytecode)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(obj.Metadata, []byte{1, 2, 3}) {
		t.Fatalf("metadata %x", obj.Metadata)
	}
	out := run(t, art.Bytecode)
	if out[31] != 7 {
		t.Fatalf("output %x", out)
	}
	for _, st := range []buildpipeline.Stage{buildpipeline.StageVerify, buildpipeline.StageOptimize, buildpipeline.StageCodegen, buildpipeline.StageLink, buildpipeline.StageBuild} {
		if !art.Timings.Has(st) {
			t.Errorf("no timing for %s", st)
		}
	}
	events := sink.Events()
	if last := events[len(events)-1]; last.Stage != buildpipeline.StageBuild || last.Status != buildpipeline.StatusDone {
		t.Fatalf("last event %+v", last)
	}
}

func TestBuildFallback(t *testing.T) {
	tests := []struct {
		name     string
		fallback bool
		level    string
		wantErr  bool
		wantOpts []optimizer.Level
	}{
		{name: "enabled", fallback: true, level: "3", wantOpts: []optimizer.Level{optimizer.LevelAggressive, optimizer.LevelMinSize}},
		{name: "disabled", fallback: false, level: "3", wantErr: true, wantOpts: []optimizer.Level{optimizer.LevelAggressive}},
		{name: "already size", fallback: true, level: "s", wantOpts: []optimizer.Level{optimizer.LevelSize}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := optimizer.ForLevel(tt.level)
			if err != nil {
				t.Fatal(err)
			}
			s.FallbackToSize = tt.fallback
			opt := &flakyOptimizer{}
			sink := &buildpipeline.RecordingSink{}
			art, err := buildpipeline.Build(context.Background(), &buildpipeline.Request{
				Path:      "a.sol:A",
				Module:    contract(t),
				Settings:  s,
				Toolchain: buildpipeline.Toolchain{Optimizer: opt},
				Progress:  sink,
			})
			if got := err != nil; got != tt.wantErr {
				t.Fatalf("err = %v, want error %v", err, tt.wantErr)
			}
			if len(opt.calls) != len(tt.wantOpts) {
				t.Fatalf("optimizer ran %d times, want %d", len(opt.calls), len(tt.wantOpts))
			}
			for i, l := range tt.wantOpts {
				if opt.calls[i].Level != l {
					t.Errorf("attempt %d level %s, want %s", i+1, opt.calls[i].Level, l)
				}
			}
			for _, name := range opt.names {
				if name != "test" {
					t.Errorf("attempt started from a modified module %q", name)
				}
			}
			if tt.wantErr {
				var oe *buildpipeline.OptimizationError
				if !errors.As(err, &oe) || oe.Path != "a.sol:A" {
					t.Fatalf("error %v is not an optimization error", err)
				}
				return
			}
			if art.Attempts != len(tt.wantOpts) || !art.Settings.IsSize() {
				t.Fatalf("attempts=%d settings=%+v", art.Attempts, art.Settings)
			}
			retries := 0
			for _, e := range sink.Events() {
				if e.Status == buildpipeline.StatusRetry {
					retries++
					if e.Attempt != 2 {
						t.Errorf("retry event for attempt %d", e.Attempt)
					}
				}
			}
			if want := len(tt.wantOpts) - 1; retries != want {
				t.Fatalf("%d retry events, want %d", retries, want)
			}
		})
	}
}

func TestBuildRetriesReverification(t *testing.T) {
	opt := &flakyOptimizer{}
	pass := &passOptimizer{}
	ver := &reverifyFails{opt: opt}
	s := optimizer.Default()

	// reverifyFails inspects the flaky optimizer's history; feed it the
	// settings the passing optimizer sees.
	tc := buildpipeline.Toolchain{Verifier: ver, Optimizer: recordInto{pass, opt}}
	art, err := buildpipeline.Build(context.Background(), &buildpipeline.Request{Path: "p", Module: contract(t), Settings: s, Toolchain: tc})
	if err != nil {
		t.Fatal(err)
	}
	if art.Attempts != 2 || len(pass.calls) != 2 || !pass.calls[1].IsSize() {
		t.Fatalf("attempts=%d optimizer calls=%v", art.Attempts, pass.calls)
	}
	if ver.calls != 4 {
		t.Fatalf("verifier ran %d times, want 4", ver.calls)
	}
}

// recordInto runs a passOptimizer and mirrors its settings into a
// flakyOptimizer history.
type recordInto struct {
	pass *passOptimizer
	hist *flakyOptimizer
}

func (r recordInto) Optimize(ctx context.Context, m *lir.Module, s optimizer.Settings) error {
	r.hist.calls = append(r.hist.calls, s)
	return r.pass.Optimize(ctx, m, s)
}

func TestBuildRetriesCodegen(t *testing.T) {
	gen := &failingCodegen{}
	art, err := buildpipeline.Build(context.Background(), &buildpipeline.Request{
		Path:      "p",
		Module:    contract(t),
		Settings:  optimizer.Default(),
		Toolchain: buildpipeline.Toolchain{CodeGenerator: gen},
	})
	if err != nil {
		t.Fatal(err)
	}
	if gen.calls != 2 || art.Attempts != 2 {
		t.Fatalf("codegen calls=%d attempts=%d", gen.calls, art.Attempts)
	}

	gen = &failingCodegen{}
	s := optimizer.Default()
	s.FallbackToSize = false
	_, err = buildpipeline.Build(context.Background(), &buildpipeline.Request{
		Path:      "p",
		Module:    contract(t),
		Settings:  s,
		Toolchain: buildpipeline.Toolchain{CodeGenerator: gen},
	})
	var ce *buildpipeline.CodegenError
	if !errors.As(err, &ce) || gen.calls != 1 {
		t.Fatalf("err=%v calls=%d", err, gen.calls)
	}
}

func TestBuildFatalErrors(t *testing.T) {
	t.Run("verification", func(t *testing.T) {
		opt := &passOptimizer{}
		_, err := buildpipeline.Build(context.Background(), &buildpipeline.Request{
			Path:      "p",
			Module:    contract(t),
			Settings:  optimizer.Default(),
			Toolchain: buildpipeline.Toolchain{Verifier: alwaysInvalid{}, Optimizer: opt},
		})
		var ve *buildpipeline.VerificationError
		if !errors.As(err, &ve) || ve.Stage != buildpipeline.StageVerify {
			t.Fatalf("err = %v", err)
		}
		if len(opt.calls) != 0 {
			t.Fatal("optimizer ran on an invalid module")
		}
	})
	t.Run("link", func(t *testing.T) {
		l := &failingLinker{}
		art, err := buildpipeline.Build(context.Background(), &buildpipeline.Request{
			Path:      "p",
			Module:    contract(t),
			Settings:  optimizer.Default(),
			Toolchain: buildpipeline.Toolchain{Linker: l},
		})
		var le *buildpipeline.LinkError
		if !errors.As(err, &le) || l.calls != 1 || art.Attempts != 1 {
			t.Fatalf("err=%v calls=%d", err, l.calls)
		}
		if art.State != buildpipeline.StateCodeEmitted {
			t.Fatalf("state %s", art.State)
		}
	})
	t.Run("disassembly", func(t *testing.T) {
		gen := &brokenDisassembler{}
		sink := &buildpipeline.RecordingSink{}
		art, err := buildpipeline.Build(context.Background(), &buildpipeline.Request{
			Path:         "p",
			Module:       contract(t),
			Settings:     optimizer.Default(),
			EmitAssembly: true,
			Progress:     sink,
			Toolchain:    buildpipeline.Toolchain{CodeGenerator: gen},
		})
		var de *buildpipeline.DisassemblyError
		if !errors.As(err, &de) || gen.generated != 1 || art.Attempts != 1 {
			t.Fatalf("err=%v generated=%d attempts=%d", err, gen.generated, art.Attempts)
		}
		for _, e := range sink.Events() {
			if e.Status == buildpipeline.StatusRetry {
				t.Fatalf("retried after a disassembly failure: %+v", e)
			}
		}
	})
	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := buildpipeline.Build(ctx, &buildpipeline.Request{Path: "p", Module: contract(t), Settings: optimizer.Default()})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v", err)
		}
	})
	t.Run("invalid settings", func(t *testing.T) {
		_, err := buildpipeline.Build(context.Background(), &buildpipeline.Request{
			Path:     "p",
			Module:   contract(t),
			Settings: optimizer.Settings{Level: 'x', BackEnd: optimizer.LevelNone},
		})
		if err == nil {
			t.Fatal("invalid settings accepted")
		}
	})
}

func TestBuildUnresolvedThenRelink(t *testing.T) {
	art, err := buildpipeline.Build(context.Background(), &buildpipeline.Request{
		Path:     "parent.sol:P",
		Module:   contract(t, "child.sol:C"),
		Settings: optimizer.Default(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if art.Linked() || art.Hash != (object.Hash{}) {
		t.Fatalf("unresolved build is linked: format=%s hash=%s", art.Format, art.Hash)
	}
	if len(art.Unresolved) != 1 || art.Unresolved[0] != "child.sol:C" {
		t.Fatalf("unresolved %v", art.Unresolved)
	}

	child := object.Keccak256([]byte("child"))
	if err := buildpipeline.Relink(context.Background(), buildpipeline.Toolchain{}, art, map[string]object.Hash{"child.sol:C": child}); err != nil {
		t.Fatal(err)
	}
	if !art.Linked() || art.State != buildpipeline.StateBuilt || len(art.Unresolved) != 0 {
		t.Fatalf("relinked artifact format=%s state=%s", art.Format, art.State)
	}
	if art.Hash != object.Keccak256(art.Bytecode) {
		t.Fatal("hash not updated")
	}
	out := run(t, art.Bytecode)
	want := child
	want[31] ^= 7
	if !bytes.Equal(out, want[:]) {
		t.Fatalf("output %x, want %x", out, want)
	}
}

func TestBuildWithSymbols(t *testing.T) {
	child := object.Keccak256([]byte("child"))
	art, err := buildpipeline.Build(context.Background(), &buildpipeline.Request{
		Path:     "parent.sol:P",
		Module:   contract(t, "child.sol:C"),
		Settings: optimizer.None(),
		Symbols:  map[string]object.Hash{"child.sol:C": child},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !art.Linked() {
		t.Fatalf("format %s", art.Format)
	}
}
