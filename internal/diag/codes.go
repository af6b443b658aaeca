package diag

import (
	"fmt"
)

type Code uint16

const (
	// Неизвестная ошибка
	UnknownCode Code = 0

	// Разбор байткода
	BytecodeInfo          Code = 1000
	BytecodeBadHex        Code = 1001
	BytecodeTruncatedPush Code = 1002
	BytecodeUndefinedOp   Code = 1003

	// Stack resolver
	StackResolverInfo    Code = 2000
	StackUnhandledOpcode Code = 2001
	StackUnreachableCode Code = 2002
	StackInvalidJump     Code = 2003

	// Emitter
	EmitInfo              Code = 3000
	EmitUnsupportedOpcode Code = 3001
	EmitGEPOnSpace        Code = 3002
	EmitCodeSpaceAccess   Code = 3003

	// Build pipeline
	BuildInfo             Code = 4000
	BuildVerification     Code = 4001
	BuildOptimization     Code = 4002
	BuildCodegen          Code = 4003
	BuildLink             Code = 4004
	BuildFallbackRetry    Code = 4005
	BuildUnresolvedFactor Code = 4006

	// Project
	ProjectInfo            Code = 5000
	ProjectManifestMissing Code = 5001
	ProjectManifestInvalid Code = 5002
	ProjectDuplicatePath   Code = 5003
	ProjectDependencyCycle Code = 5004
)

var (
	codeDescription = map[Code]string{
		UnknownCode: "Unknown error",

		BytecodeInfo:          "Bytecode information",
		BytecodeBadHex:        "Malformed bytecode hex",
		BytecodeTruncatedPush: "PUSH immediate runs past the end of code",
		BytecodeUndefinedOp:   "Undefined opcode",

		StackResolverInfo:    "Stack resolver information",
		StackUnhandledOpcode: "Opcode not handled by the stack resolver",
		StackUnreachableCode: "Unreachable code removed",
		StackInvalidJump:     "Jump to a location without JUMPDEST",

		EmitInfo:              "Emitter information",
		EmitUnsupportedOpcode: "Opcode is not supported on PolkaVM",
		EmitGEPOnSpace:        "Pointer arithmetic on a non-addressable space",
		EmitCodeSpaceAccess:   "Load or store through a code pointer",

		BuildInfo:             "Build information",
		BuildVerification:     "Module verification failed",
		BuildOptimization:     "Optimizer failed",
		BuildCodegen:          "Code generation failed",
		BuildLink:             "Linker failed",
		BuildFallbackRetry:    "Retrying with size optimizations",
		BuildUnresolvedFactor: "Unresolved factory dependency",

		ProjectInfo:            "Project information",
		ProjectManifestMissing: "Project manifest not found",
		ProjectManifestInvalid: "Invalid project manifest",
		ProjectDuplicatePath:   "Duplicate contract path",
		ProjectDependencyCycle: "Factory dependency cycle",
	}
)

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("BYT%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("STK%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("EMT%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("BLD%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("PRJ%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
