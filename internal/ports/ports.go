// Package ports defines the interfaces (ports) for the hexagonal architecture.
//
// This package establishes the contract between the application core and external
// adapters (infrastructure). The orchestrator depends only on these abstractions,
// so toolchain discovery, subprocess execution, persistence and the progress
// consumer can all be swapped in tests.
package ports

import (
	"context"

	"github.com/zeittresor/csforge/internal/domain"
)

// ConfigProvider loads the latest configuration from persistent storage.
// Implementations typically read from ~/.csforge/config.yaml.
type ConfigProvider interface {
	Load(context.Context) (domain.Config, error)
}

// ToolchainLocator queries which compiler backends exist on the host. The
// result is a point-in-time snapshot; callers re-query instead of caching it
// across install attempts.
type ToolchainLocator interface {
	Snapshot(context.Context) domain.ToolchainSnapshot
}

// Scaffolder materializes an ephemeral project directory for the modern
// backend. The returned cleanup func deletes the directory and is safe to
// call more than once.
type Scaffolder interface {
	Materialize(ctx context.Context, plan domain.ScaffoldPlan, sourcePath string) (domain.ScaffoldPlan, func(), error)
	CollectArtifact(plan domain.ScaffoldPlan, destPath string) (string, error)
}

// ProcessRunner executes a compiler subprocess, streaming every output line
// to onLine as it is read. Expected failures (non-zero exit, missing
// executable) are encoded in the RunResult; the error return is reserved for
// unexpected spawn problems and context cancellation.
type ProcessRunner interface {
	Run(ctx context.Context, spec domain.ProcessSpec, onLine func(string)) (domain.RunResult, error)
}

// OutcomeClassifier maps a RunResult to a structured BuildOutcome using
// configurable pattern sets.
type OutcomeClassifier interface {
	Classify(destPath string, result domain.RunResult) domain.BuildOutcome
	// UnsupportedSyntax reports whether compile-error diagnostics look like
	// the legacy compiler rejecting modern syntax, which justifies a backend
	// fallback. Ordinary user compile errors do not.
	UnsupportedSyntax(diagnostics []string) bool
}

// Installer performs the opaque external "install modern SDK" action. The
// orchestrator only decides that installation is needed; it does not care how
// the SDK gets onto the host.
type Installer interface {
	Ensure(ctx context.Context, backend domain.Backend, onLine func(string)) error
}

// ProgressSink receives progress events in emission order. Delivery is
// fire-and-forget: implementations must never block the build on a slow
// consumer.
type ProgressSink interface {
	Publish(domain.ProgressEvent)
}

// LogSink persists the raw output of one build attempt. The core does not
// depend on the storage format.
type LogSink interface {
	SaveAttempt(name string, content string) (string, error)
}

// HistoryRepository persists finished build records.
type HistoryRepository interface {
	Save(domain.BuildRecord) error
	Records(limit int, search string) ([]domain.BuildRecord, error)
	Clear() error
	ExportJSON(dest string) error
}

// Logger provides structured logging abstraction for the application layer.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, err error, fields map[string]interface{})
}
