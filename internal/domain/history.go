package domain

import "time"

// BuildRecord captures one finished orchestration run for the history store.
type BuildRecord struct {
	Timestamp  time.Time   `json:"timestamp"`
	Source     string      `json:"source"`
	Output     string      `json:"output"`
	Mode       BackendMode `json:"mode"`
	Backend    Backend     `json:"backend"`
	Outcome    OutcomeKind `json:"outcome"`
	ExitCode   int         `json:"exit_code"`
	Attempts   int         `json:"attempts"`
	FellBack   bool        `json:"fell_back"`
	DurationMS int64       `json:"duration_ms"`
}
