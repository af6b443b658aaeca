package project_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/holiman/uint256"

	"github.com/paritytech/revive-sub000/internal/buildpipeline"
	"github.com/paritytech/revive-sub000/internal/cache"
	"github.com/paritytech/revive-sub000/internal/diag"
	"github.com/paritytech/revive-sub000/internal/emit"
	"github.com/paritytech/revive-sub000/internal/evm"
	"github.com/paritytech/revive-sub000/internal/interp"
	"github.com/paritytech/revive-sub000/internal/object"
	"github.com/paritytech/revive-sub000/internal/observ"
	"github.com/paritytech/revive-sub000/internal/optimizer"
	"github.com/paritytech/revive-sub000/internal/project"
	"github.com/paritytech/revive-sub000/internal/project/dag"
	"github.com/paritytech/revive-sub000/internal/runtimeabi"
)

// returning is runtime bytecode returning v as a word.
func returning(v byte) project.BytecodeSource {
	return project.BytecodeSource{Runtime: evm.Encode([]evm.Instruction{
		evm.Push(v), evm.Push(0), evm.Op(evm.MSTORE),
		evm.Push(32), evm.Push(0), evm.Op(evm.RETURN),
	})}
}

// deploying returns the xor of the code hashes of ids.
func deploying(ids ...string) project.Source {
	return project.SourceFunc(func(c *emit.Context) error {
		if err := c.BeginCode(emit.CodeRuntime); err != nil {
			return err
		}
		v := emit.Word(0)
		for _, id := range ids {
			v = c.Xor(v, c.DataOffset(id))
		}
		if err := c.MStore(emit.Word(0), v); err != nil {
			return err
		}
		c.Return(emit.Word(0), emit.Word(32))
		c.EndCode()
		return nil
	})
}

func options() project.Options {
	return project.Options{
		Settings: optimizer.Default(),
		Memory:   runtimeabi.DefaultMemoryConfig(),
		Jobs:     2,
	}
}

func call(t *testing.T, art *buildpipeline.Artifact) []byte {
	t.Helper()
	obj, err := object.Decode(art.Bytecode)
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

func word(v byte) []byte {
	b := uint256.NewInt(uint64(v)).Bytes32()
	return b[:]
}

func TestCompileBytecodeContracts(t *testing.T) {
	timer := observ.NewTimer()
	opts := options()
	opts.Timer = timer
	sink := &buildpipeline.RecordingSink{}
	opts.Progress = sink
	p := &project.Project{
		Contracts: []project.Contract{
			{Path: "a.sol:A", Source: returning(1)},
			{Path: "./b.sol:B", Source: returning(2)},
			{Path: "c.sol:C", Source: returning(3)},
		},
		Options: opts,
	}
	results, err := p.Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]byte{"a.sol:A": 1, "b.sol:B": 2, "c.sol:C": 3}
	if len(results) != len(want) {
		t.Fatalf("results for %d contracts", len(results))
	}
	for path, v := range want {
		r, ok := results[path]
		if !ok || r.Err != nil {
			t.Fatalf("%s: %+v", path, r)
		}
		if !r.Artifact.Linked() || len(r.Artifact.FactoryDependencies) != 0 {
			t.Fatalf("%s: format %s deps %v", path, r.Artifact.Format, r.Artifact.FactoryDependencies)
		}
		if got := call(t, r.Artifact); !bytes.Equal(got, word(v)) {
			t.Fatalf("%s returned %x", path, got)
		}
	}
	// build, link and five stages per contract
	if n := len(timer.Report().Phases); n != 2+3*5 {
		t.Fatalf("timer recorded %d phases", n)
	}
	queued := 0
	for _, e := range sink.Events() {
		if e.Status == buildpipeline.StatusQueued {
			queued++
		}
	}
	if queued != 3 {
		t.Fatalf("%d queued events", queued)
	}
}

func TestFactoryDependencies(t *testing.T) {
	p := &project.Project{
		Contracts: []project.Contract{
			{Path: "factory.sol:Factory", Source: deploying("Middle"), Dependencies: map[string]string{"Middle": "middle.sol:Middle"}},
			{Path: "middle.sol:Middle", Source: deploying("leaf.sol:Leaf")},
			{Path: "leaf.sol:Leaf", Source: returning(9)},
		},
		Options: options(),
	}
	results, err := p.Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	leaf := results["leaf.sol:Leaf"].Artifact
	middle := results["middle.sol:Middle"].Artifact
	factory := results["factory.sol:Factory"].Artifact
	for _, art := range []*buildpipeline.Artifact{leaf, middle, factory} {
		if !art.Linked() || art.Hash != object.Keccak256(art.Bytecode) {
			t.Fatalf("%s not linked", art.Path)
		}
	}
	if got := middle.FactoryDependencies[leaf.Hash]; got != "leaf.sol:Leaf" {
		t.Fatalf("middle factory deps %v", middle.FactoryDependencies)
	}
	if got := factory.FactoryDependencies[middle.Hash]; got != "middle.sol:Middle" || len(factory.FactoryDependencies) != 1 {
		t.Fatalf("factory deps %v", factory.FactoryDependencies)
	}
	if got := call(t, factory); !bytes.Equal(got, middle.Hash[:]) {
		t.Fatalf("factory returned %x, want middle hash %s", got, middle.Hash)
	}
}

func TestLinkFailures(t *testing.T) {
	tests := []struct {
		name      string
		contracts []project.Contract
		failed    map[string]string
	}{
		{
			name: "cycle",
			contracts: []project.Contract{
				{Path: "a.sol:A", Source: deploying("b.sol:B")},
				{Path: "b.sol:B", Source: deploying("a.sol:A")},
				{Path: "c.sol:C", Source: returning(1)},
			},
			failed: map[string]string{"a.sol:A": dag.ErrCycle.Error(), "b.sol:B": dag.ErrCycle.Error()},
		},
		{
			name: "missing",
			contracts: []project.Contract{
				{Path: "a.sol:A", Source: deploying("ghost.sol:Ghost")},
				{Path: "c.sol:C", Source: returning(1)},
			},
			failed: map[string]string{"a.sol:A": "unknown contract"},
		},
		{
			name: "failed dependency",
			contracts: []project.Contract{
				{Path: "a.sol:A", Source: deploying("broken.sol:B")},
				{Path: "broken.sol:B", Source: project.BytecodeSource{Runtime: evm.Encode([]evm.Instruction{evm.Op(evm.PC)})}},
				{Path: "c.sol:C", Source: returning(1)},
			},
			failed: map[string]string{"a.sol:A": "failed to build", "broken.sol:B": "unsupported opcode PC"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &project.Project{Contracts: tt.contracts, Options: options()}
			results, err := p.Compile(context.Background())
			if err != nil {
				t.Fatal(err)
			}
			for path, r := range results {
				want, bad := tt.failed[path]
				if !bad {
					if r.Err != nil {
						t.Errorf("%s: %v", path, r.Err)
					}
					continue
				}
				if r.Err == nil || !strings.Contains(r.Err.Error(), want) {
					t.Errorf("%s: error %v, want %q", path, r.Err, want)
				}
			}

			_, err = p.Build(context.Background())
			if err == nil {
				t.Fatal("Build succeeded with failing contracts")
			}
			for path := range tt.failed {
				if !strings.Contains(err.Error(), path) {
					t.Errorf("joined error lacks %s: %v", path, err)
				}
			}
		})
	}
}

func TestCompileUsesCache(t *testing.T) {
	opts := options()
	mem := cache.NewMemory(2)
	opts.Cache = mem
	p := &project.Project{
		Contracts: []project.Contract{
			{Path: "a.sol:A", Source: returning(1)},
			{Path: "b.sol:B", Source: deploying("a.sol:A")},
		},
		Options: opts,
	}
	first, err := p.Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if mem.Len() != 1 {
		t.Fatalf("cache holds %d entries, want only the bytecode contract", mem.Len())
	}
	second, err := p.Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !second["a.sol:A"].Cached || second["b.sol:B"].Cached {
		t.Fatalf("cached flags a=%v b=%v", second["a.sol:A"].Cached, second["b.sol:B"].Cached)
	}
	if first["a.sol:A"].Artifact.Hash != second["a.sol:A"].Artifact.Hash {
		t.Fatal("cached artifact differs")
	}
	if first["b.sol:B"].Artifact.Hash != second["b.sol:B"].Artifact.Hash {
		t.Fatal("dependent hash changed")
	}

	p.Settings = optimizer.None()
	third, err := p.Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if third["a.sol:A"].Cached {
		t.Fatal("cache hit across optimizer profiles")
	}
}

func TestCompileRejectsBadProjects(t *testing.T) {
	tests := []struct {
		name      string
		contracts []project.Contract
		mutate    func(*project.Options)
	}{
		{name: "duplicate", contracts: []project.Contract{{Path: "a.sol:A", Source: returning(1)}, {Path: "./a.sol:A", Source: returning(2)}}},
		{name: "bad path", contracts: []project.Contract{{Path: "../a.sol:A", Source: returning(1)}}},
		{name: "no source", contracts: []project.Contract{{Path: "a.sol:A"}}},
		{name: "memory", contracts: []project.Contract{{Path: "a.sol:A", Source: returning(1)}}, mutate: func(o *project.Options) { o.Memory.HeapSize = 3 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := options()
			if tt.mutate != nil {
				tt.mutate(&opts)
			}
			p := &project.Project{Contracts: tt.contracts, Options: opts}
			if _, err := p.Compile(context.Background()); err == nil {
				t.Fatal("project accepted")
			}
		})
	}
}

func TestCompileCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &project.Project{Contracts: []project.Contract{{Path: "a.sol:A", Source: returning(1)}}, Options: options()}
	if _, err := p.Compile(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}

func TestCompileReportsWarnings(t *testing.T) {
	// PUSH1 3 JUMP STOP: offset 3 is no JUMPDEST
	bad := project.BytecodeSource{Runtime: evm.Encode([]evm.Instruction{
		evm.Push(3), evm.Op(evm.JUMP), evm.Op(evm.STOP),
	})}
	p := &project.Project{
		Contracts: []project.Contract{
			{Path: "bad.sol:Bad", Source: bad},
			{Path: "good.sol:Good", Source: returning(1)},
		},
		Options: options(),
	}
	results, err := p.Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	ws := results["bad.sol:Bad"].Warnings
	if len(ws) != 1 || ws[0].Code != diag.StackInvalidJump || ws[0].Primary.Contract != "bad.sol:Bad" {
		t.Fatalf("warnings %v", ws)
	}
	if got := results["good.sol:Good"].Warnings; len(got) != 0 {
		t.Fatalf("good contract warned: %v", got)
	}
}
