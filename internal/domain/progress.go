package domain

// Phase names one orchestration state for progress reporting.
type Phase string

const (
	PhaseClassifying Phase = "classifying"
	PhaseSelecting   Phase = "selecting"
	PhaseScaffolding Phase = "scaffolding"
	PhaseRunning     Phase = "running"
	PhaseOutcome     Phase = "outcome"
	PhaseInstalling  Phase = "installing"
	PhaseDone        Phase = "done"
)

// ProgressEvent is one human-readable status line plus a 0-100 percentage.
// Percent is monotonically non-decreasing over one orchestration run.
type ProgressEvent struct {
	Phase   Phase
	Message string
	Percent int
}
