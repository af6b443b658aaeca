package buildpipeline

import (
	"context"
	"strings"

	"github.com/paritytech/revive-sub000/internal/lir"
	"github.com/paritytech/revive-sub000/internal/object"
	"github.com/paritytech/revive-sub000/internal/optimizer"
)

// Verifier checks module invariants.
type Verifier interface {
	Verify(ctx context.Context, m *lir.Module) error
}

// Optimizer transforms a module in place.
type Optimizer interface {
	Optimize(ctx context.Context, m *lir.Module, s optimizer.Settings) error
}

// CodeGenerator turns a verified module into an object. The metadata hash,
// when present, is embedded into the object.
type CodeGenerator interface {
	Generate(ctx context.Context, m *lir.Module, s optimizer.Settings, metadata []byte) ([]byte, error)
}

// Linker resolves factory dependencies. The result is a PVM blob when every
// symbol is known and a relocatable object otherwise.
type Linker interface {
	Link(ctx context.Context, obj []byte, symbols map[string]object.Hash) ([]byte, object.Format, error)
}

// Disassembler renders a blob as text. Code generators may implement it.
type Disassembler interface {
	Disassemble(ctx context.Context, blob []byte) (string, error)
}

// Toolchain bundles the four build steps. Nil members use the built-in
// implementation.
type Toolchain struct {
	Verifier      Verifier
	Optimizer     Optimizer
	CodeGenerator CodeGenerator
	Linker        Linker
}

// Builtin returns the in-process toolchain.
func Builtin() Toolchain {
	return Toolchain{
		Verifier:      BuiltinVerifier{},
		Optimizer:     BuiltinOptimizer{},
		CodeGenerator: BuiltinCodeGenerator{},
		Linker:        BuiltinLinker{},
	}
}

func (t Toolchain) withDefaults() Toolchain {
	b := Builtin()
	if t.Verifier == nil {
		t.Verifier = b.Verifier
	}
	if t.Optimizer == nil {
		t.Optimizer = b.Optimizer
	}
	if t.CodeGenerator == nil {
		t.CodeGenerator = b.CodeGenerator
	}
	if t.Linker == nil {
		t.Linker = b.Linker
	}
	return t
}

// BuiltinVerifier runs lir.Verify.
type BuiltinVerifier struct{}

func (BuiltinVerifier) Verify(_ context.Context, m *lir.Module) error { return lir.Verify(m) }

// BuiltinOptimizer runs the optimizer package passes.
type BuiltinOptimizer struct{}

func (BuiltinOptimizer) Optimize(ctx context.Context, m *lir.Module, s optimizer.Settings) error {
	return optimizer.Run(ctx, m, s)
}

// BuiltinCodeGenerator writes the object container.
type BuiltinCodeGenerator struct{}

func (BuiltinCodeGenerator) Generate(_ context.Context, m *lir.Module, _ optimizer.Settings, metadata []byte) ([]byte, error) {
	return object.Encode(m, metadata)
}

// Disassemble prints the module inside a container.
func (BuiltinCodeGenerator) Disassemble(_ context.Context, blob []byte) (string, error) {
	obj, err := object.Decode(blob)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.WriteString("; format: " + obj.Format.String() + "\n")
	for _, u := range obj.Unresolved {
		sb.WriteString("; unresolved: " + u + "\n")
	}
	sb.WriteString(lir.Print(obj.Module))
	return sb.String(), nil
}

// BuiltinLinker links containers with object.Link.
type BuiltinLinker struct{}

func (BuiltinLinker) Link(_ context.Context, obj []byte, symbols map[string]object.Hash) ([]byte, object.Format, error) {
	return object.Link(obj, symbols)
}
