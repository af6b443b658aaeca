package buildpipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/paritytech/revive-sub000/internal/lir"
	"github.com/paritytech/revive-sub000/internal/object"
	"github.com/paritytech/revive-sub000/internal/optimizer"
)

// LLVM drives an external LLVM toolchain: opt, llc, ld.lld and polkatool.
// Modules are handed over as printed LLVM IR. Objects with unresolved
// factory dependencies stay in the container format until Link can resolve
// them; fully linked modules are compiled to a real PolkaVM blob.
type LLVM struct {
	Opt       string
	Llc       string
	Lld       string
	Polkatool string
	// WorkDir holds the temporary files; empty means the system default.
	WorkDir string
	// KeepTmp leaves the temporary directories behind.
	KeepTmp       bool
	PrintCommands bool
	Stdout        io.Writer
	// Settings select the levels used when Link compiles a module.
	Settings optimizer.Settings
}

// NewLLVM returns a driver using the tools found on PATH.
func NewLLVM(s optimizer.Settings) *LLVM {
	return &LLVM{Opt: "opt", Llc: "llc", Lld: "ld.lld", Polkatool: "polkatool", Stdout: os.Stdout, Settings: s}
}

// Toolchain returns a toolchain generating code with l. Verification and
// the LIR passes stay built in.
func (l *LLVM) Toolchain() Toolchain {
	return Toolchain{CodeGenerator: l, Linker: l}
}

// Check reports the first missing tool.
func (l *LLVM) Check() error {
	for _, tool := range []string{l.Opt, l.Llc, l.Lld, l.Polkatool} {
		if _, err := exec.LookPath(tool); err != nil {
			return fmt.Errorf("%s not found; install LLVM with the RISC-V target and polkatool", tool)
		}
	}
	return nil
}

func (l *LLVM) Generate(ctx context.Context, m *lir.Module, s optimizer.Settings, metadata []byte) ([]byte, error) {
	if len(m.Unresolved()) > 0 {
		return object.Encode(m, metadata)
	}
	return l.compile(ctx, m, s)
}

func (l *LLVM) Link(ctx context.Context, obj []byte, symbols map[string]object.Hash) ([]byte, object.Format, error) {
	linked, format, err := object.Link(obj, symbols)
	if err != nil || format == object.FormatELF {
		return linked, format, err
	}
	decoded, err := object.Decode(linked)
	if err != nil {
		// Already a PolkaVM blob.
		return linked, format, nil
	}
	blob, err := l.compile(ctx, decoded.Module, l.Settings)
	if err != nil {
		return nil, 0, err
	}
	return blob, object.FormatPVM, nil
}

func (l *LLVM) Disassemble(ctx context.Context, blob []byte) (string, error) {
	if _, err := object.Decode(blob); err == nil {
		return BuiltinCodeGenerator{}.Disassemble(ctx, blob)
	}
	dir, cleanup, err := l.tmpDir()
	if err != nil {
		return "", err
	}
	defer cleanup()
	in := filepath.Join(dir, "in.pvm")
	if err := os.WriteFile(in, blob, 0o600); err != nil {
		return "", err
	}
	var out strings.Builder
	if err := l.run(ctx, &out, l.Polkatool, "disassemble", "--show-raw-bytes", in); err != nil {
		return "", err
	}
	return out.String(), nil
}

func optFlag(level optimizer.Level) string {
	return "-O" + strings.TrimPrefix(level.String(), "O")
}

// compile lowers m to a linked PolkaVM blob.
func (l *LLVM) compile(ctx context.Context, m *lir.Module, s optimizer.Settings) ([]byte, error) {
	dir, cleanup, err := l.tmpDir()
	if err != nil {
		return nil, err
	}
	defer cleanup()

	ll := filepath.Join(dir, "module.ll")
	bc := filepath.Join(dir, "module.bc")
	obj := filepath.Join(dir, "module.o")
	so := filepath.Join(dir, "module.so")
	pvm := filepath.Join(dir, "module.pvm")
	if err := os.WriteFile(ll, []byte(lir.Print(m)), 0o600); err != nil {
		return nil, fmt.Errorf("failed to write LLVM IR: %w", err)
	}
	steps := [][]string{
		{l.Opt, optFlag(s.Level), ll, "-o", bc},
		{l.Llc, optFlag(s.BackEnd), "-filetype=obj", "-relocation-model=pic",
			"-mtriple=" + m.Triple, "-mcpu=" + m.CPU, "-mattr=" + m.Features, bc, "-o", obj},
		{l.Lld, "--shared", "--emit-relocs", "--no-relax", "--gc-sections", obj, "-o", so},
		{l.Polkatool, "link", "--strip", so, "-o", pvm},
	}
	for _, step := range steps {
		if err := l.run(ctx, l.Stdout, step[0], step[1:]...); err != nil {
			return nil, err
		}
	}
	// #nosec G304 -- path is inside our temporary directory
	return os.ReadFile(pvm)
}

func (l *LLVM) tmpDir() (string, func(), error) {
	dir, err := os.MkdirTemp(l.WorkDir, "revive-llvm-*")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create tmp dir: %w", err)
	}
	cleanup := func() {
		if !l.KeepTmp {
			_ = os.RemoveAll(dir)
		}
	}
	return dir, cleanup, nil
}

func (l *LLVM) run(ctx context.Context, stdout io.Writer, name string, args ...string) error {
	if l.PrintCommands && l.Stdout != nil {
		if _, err := fmt.Fprintf(l.Stdout, "%s %s\n", name, strings.Join(args, " ")); err != nil {
			return fmt.Errorf("failed to print command: %w", err)
		}
	}
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = stdout
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return fmt.Errorf("%s: %w", name, err)
		}
		return fmt.Errorf("%s: %s", name, msg)
	}
	return nil
}
