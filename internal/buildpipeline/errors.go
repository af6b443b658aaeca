package buildpipeline

import "fmt"

// VerificationError reports an invalid module. Before optimization it is
// fatal; after optimization the build may retry.
type VerificationError struct {
	Path  string
	Stage Stage
	Err   error
}

func (e *VerificationError) Error() string {
	what := "unoptimized"
	if e.Stage == StageReverify {
		what = "optimized"
	}
	return fmt.Sprintf("contract %s: %s LIR verification error: %v", e.Path, what, e.Err)
}

func (e *VerificationError) Unwrap() error { return e.Err }

// OptimizationError reports an optimizer failure.
type OptimizationError struct {
	Path string
	Err  error
}

func (e *OptimizationError) Error() string {
	return fmt.Sprintf("contract %s: optimizing error: %v", e.Path, e.Err)
}

func (e *OptimizationError) Unwrap() error { return e.Err }

// CodegenError reports a code generator failure.
type CodegenError struct {
	Path string
	Err  error
}

func (e *CodegenError) Error() string {
	return fmt.Sprintf("contract %s: code generation error: %v", e.Path, e.Err)
}

func (e *CodegenError) Unwrap() error { return e.Err }

// LinkError reports a linker failure. It is never retried.
type LinkError struct {
	Path string
	Err  error
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("contract %s: linking error: %v", e.Path, e.Err)
}

func (e *LinkError) Unwrap() error { return e.Err }

// DisassemblyError reports a failure to render the linked blob as text. The
// blob is already final, so it is never retried.
type DisassemblyError struct {
	Path string
	Err  error
}

func (e *DisassemblyError) Error() string {
	return fmt.Sprintf("contract %s: disassembling error: %v", e.Path, e.Err)
}

func (e *DisassemblyError) Unwrap() error { return e.Err }

// retryable reports whether a failed attempt may restart at size settings.
func retryable(err error) bool {
	switch e := err.(type) {
	case *VerificationError:
		return e.Stage == StageReverify
	case *OptimizationError, *CodegenError:
		return true
	}
	return false
}
