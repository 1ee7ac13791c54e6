package domain

// OutcomeKind tags a BuildOutcome variant.
type OutcomeKind string

const (
	OutcomeSuccess          OutcomeKind = "success"
	OutcomeCompileError     OutcomeKind = "compile-error"
	OutcomeToolchainMissing OutcomeKind = "toolchain-missing"
	OutcomeInstallRequired  OutcomeKind = "install-required"
	OutcomeCancelled        OutcomeKind = "cancelled"
	OutcomeFatal            OutcomeKind = "fatal"
)

// BuildOutcome is the structured result of one attempt (or of the whole
// orchestration). Only the fields relevant to Kind are populated. Fallback
// transitions between attempts are not an outcome; they surface as progress
// events and as Attempts/FellBack on the response and history record.
type BuildOutcome struct {
	Kind OutcomeKind

	// Success
	ExecutablePath string

	// CompileError
	Diagnostics []string

	// ToolchainMissing / InstallRequired
	Backend   Backend
	Installer string

	// Fatal
	Cause string
}

// Succeeded is a convenience accessor for the common check.
func (o BuildOutcome) Succeeded() bool {
	return o.Kind == OutcomeSuccess
}

// InstallDotnetSDK is the opaque external action identifier the orchestrator
// requests when the modern SDK must be installed.
const InstallDotnetSDK = "install-dotnet-sdk"
