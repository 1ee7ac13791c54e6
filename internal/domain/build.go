// Package domain defines core business entities and value objects for csforge.
//
// The domain layer is independent of infrastructure concerns and represents pure
// business logic and data structures: build requests, backend choices, scaffold
// plans, run results and build outcomes.
package domain

import "context"

// Backend identifies one of the two supported compiler toolchains.
type Backend string

const (
	// BackendCsc is the legacy .NET Framework compiler (csc.exe).
	BackendCsc Backend = "csc"
	// BackendDotnet is the modern dotnet SDK (dotnet publish).
	BackendDotnet Backend = "dotnet"
)

// BackendMode is the user-requested backend selection strategy.
type BackendMode string

const (
	ModeAuto   BackendMode = "auto"
	ModeLegacy BackendMode = "csc"
	ModeModern BackendMode = "dotnet"
)

// ParseBackendMode normalizes a user-supplied mode string.
func ParseBackendMode(value string) (BackendMode, bool) {
	switch BackendMode(value) {
	case ModeAuto, "":
		return ModeAuto, true
	case ModeLegacy, "legacy":
		return ModeLegacy, true
	case ModeModern, "modern", "sdk":
		return ModeModern, true
	default:
		return ModeAuto, false
	}
}

// TargetType selects the produced executable kind.
type TargetType string

const (
	// TargetAuto derives the target kind from source classification.
	TargetAuto TargetType = "auto"
	// TargetConsole produces a console executable.
	TargetConsole TargetType = "console"
	// TargetWindows produces a GUI executable without a console window.
	TargetWindows TargetType = "windows"
)

// BuildRequest captures one build intent. Immutable once a build starts.
type BuildRequest struct {
	Context    context.Context
	SourcePath string
	OutputPath string
	Mode       BackendMode
	Target     TargetType

	// Modern backend publish toggles. Zero values mean "use config defaults".
	SelfContained *bool
	SingleFile    *bool
}

// BuildResponse is the canonical result propagated back to the CLI.
type BuildResponse struct {
	Outcome        BuildOutcome
	BackendUsed    Backend
	Attempts       int
	ExitCode       int
	Classification ClassificationResult
	RawLogPaths    []string
}

// BackendChoice is the selector's decision: a primary backend plus an ordered
// fallback list, with the signals that produced it for logging.
type BackendChoice struct {
	Primary   Backend
	Fallbacks []Backend
	Reasons   []Signal
}

// BuildService exposes the use-case boundary for running a build.
type BuildService interface {
	Run(BuildRequest) (BuildResponse, error)
}
