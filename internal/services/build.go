// Package services holds the use-case layer: the build orchestrator, backend
// selection and environment diagnostics.
package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/zeittresor/csforge/internal/domain"
	"github.com/zeittresor/csforge/internal/ports"
)

// BuildService orchestrates one build end-to-end: classify, select, scaffold,
// run, classify outcome, and fall back or request installation on recoverable
// failures.
type BuildService struct {
	ConfigProvider ports.ConfigProvider
	Toolchains     ports.ToolchainLocator
	Scaffolder     ports.Scaffolder
	Runner         ports.ProcessRunner
	Outcomes       ports.OutcomeClassifier
	Installer      ports.Installer
	Progress       ports.ProgressSink
	Logs           ports.LogSink
	History        ports.HistoryRepository
	Logger         ports.Logger

	mu     sync.Mutex
	active map[string]*activeRun
}

// activeRun tracks one in-flight orchestration for a destination path.
type activeRun struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Run processes a single build request. Expected failure shapes come back as
// BuildOutcome variants with a nil error; the error return is reserved for
// unsatisfied dependencies and invalid requests.
func (s *BuildService) Run(req domain.BuildRequest) (domain.BuildResponse, error) {
	if s.ConfigProvider == nil || s.Toolchains == nil || s.Scaffolder == nil ||
		s.Runner == nil || s.Outcomes == nil || s.Logger == nil {
		return domain.BuildResponse{}, errors.New("services.BuildService dependencies not satisfied")
	}
	if req.SourcePath == "" || req.OutputPath == "" {
		return domain.BuildResponse{}, errors.New("source and output paths are required")
	}

	parent := req.Context
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	// Only one run per destination: a new request supersedes the incumbent
	// and waits for its terminal state so two writers never race on the
	// output file.
	release, err := s.acquire(ctx, req.OutputPath, cancel)
	if err != nil {
		return domain.BuildResponse{}, err
	}
	defer release()

	cfg, err := s.ConfigProvider.Load(ctx)
	if err != nil {
		return domain.BuildResponse{}, fmt.Errorf("load config: %w", err)
	}
	if req.Mode == "" {
		req.Mode, _ = domain.ParseBackendMode(cfg.Build.DefaultMode)
	}
	if req.Target == "" {
		req.Target = domain.TargetAuto
	}

	tracker := &progressTracker{sink: s.Progress}
	start := time.Now()

	tracker.emit(domain.PhaseClassifying, "analyzing source "+filepath.Base(req.SourcePath), 5)
	code, err := readSource(req.SourcePath)
	if err != nil {
		return domain.BuildResponse{
			Outcome: domain.BuildOutcome{Kind: domain.OutcomeFatal, Cause: err.Error()},
		}, fmt.Errorf("read source: %w", err)
	}
	cls := domain.AnalyzeSource(code)
	s.Logger.Info("source classified", map[string]interface{}{"signals": cls.Signals})

	tracker.emit(domain.PhaseSelecting, "selecting compiler backend", 15)
	choice := SelectBackend(req.Mode, cls)
	backends := append([]domain.Backend{choice.Primary}, choice.Fallbacks...)

	resp := domain.BuildResponse{Classification: cls}
	outcome := s.runAttempts(ctx, req, cfg, cls, code, backends, tracker, &resp)

	resp.Outcome = outcome
	tracker.emit(domain.PhaseDone, doneMessage(outcome), 100)
	s.record(req, resp, cfg, time.Since(start))
	return resp, nil
}

// runAttempts drives the attempt loop: primary backend plus at most one
// fallback, with an install retry when no backend is usable.
func (s *BuildService) runAttempts(
	ctx context.Context,
	req domain.BuildRequest,
	cfg domain.Config,
	cls domain.ClassificationResult,
	code string,
	backends []domain.Backend,
	tracker *progressTracker,
	resp *domain.BuildResponse,
) domain.BuildOutcome {
	installTried := false
	var outcome domain.BuildOutcome

	for i := 0; i < len(backends) && resp.Attempts < domain.MaxAttempts; i++ {
		backend := backends[i]
		if ctx.Err() != nil {
			return domain.BuildOutcome{Kind: domain.OutcomeCancelled}
		}

		// Availability is a fresh snapshot per attempt, never stale state.
		snap := s.Toolchains.Snapshot(ctx)
		if !snap.Has(backend) {
			resp.Attempts++
			resp.BackendUsed = backend
			outcome = domain.BuildOutcome{Kind: domain.OutcomeToolchainMissing, Backend: backend}

			if i+1 < len(backends) && snap.Has(backends[i+1]) {
				tracker.emit(domain.PhaseSelecting,
					fmt.Sprintf("%s missing, falling back to %s", backend, backends[i+1]), 20)
				continue
			}
			if !installTried && s.Installer != nil {
				installTried = true
				if s.install(ctx, tracker) {
					// Re-query and retry this attempt once with fresh state.
					resp.Attempts--
					i--
					continue
				}
				outcome = domain.BuildOutcome{
					Kind:      domain.OutcomeInstallRequired,
					Backend:   backend,
					Installer: domain.InstallDotnetSDK,
				}
			}
			return outcome
		}

		resp.Attempts++
		resp.BackendUsed = backend
		outcome = s.attempt(ctx, req, cfg, cls, code, backend, snap.Path(backend), tracker, resp)

		switch outcome.Kind {
		case domain.OutcomeSuccess, domain.OutcomeCancelled, domain.OutcomeFatal:
			return outcome
		case domain.OutcomeCompileError:
			if i+1 < len(backends) && resp.Attempts < domain.MaxAttempts &&
				s.Outcomes.UnsupportedSyntax(outcome.Diagnostics) {
				tracker.emit(domain.PhaseSelecting,
					fmt.Sprintf("%s rejected modern syntax, falling back to %s", backend, backends[i+1]), 50)
				continue
			}
			return outcome
		case domain.OutcomeToolchainMissing:
			// The run itself revealed a broken toolchain; treat like the
			// availability check above.
			if i+1 < len(backends) {
				tracker.emit(domain.PhaseSelecting,
					fmt.Sprintf("%s unusable, falling back to %s", backend, backends[i+1]), 50)
				continue
			}
			return outcome
		default:
			return outcome
		}
	}
	if outcome.Kind == "" {
		outcome = domain.BuildOutcome{Kind: domain.OutcomeFatal, Cause: "no backend attempted"}
	}
	return outcome
}

// attempt runs one backend to completion: optional scaffold, subprocess run,
// raw log persistence, outcome classification.
func (s *BuildService) attempt(
	ctx context.Context,
	req domain.BuildRequest,
	cfg domain.Config,
	cls domain.ClassificationResult,
	code string,
	backend domain.Backend,
	toolPath string,
	tracker *progressTracker,
	resp *domain.BuildResponse,
) domain.BuildOutcome {
	if err := os.MkdirAll(filepath.Dir(req.OutputPath), domain.DirectoryPermissions); err != nil {
		return domain.BuildOutcome{Kind: domain.OutcomeFatal, Cause: err.Error()}
	}

	var spec domain.ProcessSpec
	var plan domain.ScaffoldPlan
	logName := "csc_compile"

	if backend == domain.BackendDotnet {
		logName = "dotnet_publish"
		tracker.emit(domain.PhaseScaffolding, "materializing temporary project", 30)
		var cleanup func()
		var err error
		plan = domain.PlanScaffold(req, cls, cfg)
		plan, cleanup, err = s.Scaffolder.Materialize(ctx, plan, req.SourcePath)
		defer cleanup()
		if err != nil {
			return domain.BuildOutcome{Kind: domain.OutcomeFatal, Cause: err.Error()}
		}
		spec = domain.ProcessSpec{Name: toolPath, Args: plan.PublishArgs(), Dir: plan.Dir}
	} else {
		args := append(CscArgs(req.OutputPath, req.Target, cls, code), req.SourcePath)
		spec = domain.ProcessSpec{Name: toolPath, Args: args}
	}

	tracker.emit(domain.PhaseRunning, fmt.Sprintf("running %s", backend), 40)
	s.Logger.Info("spawning compiler", map[string]interface{}{
		"backend": string(backend),
		"command": spec.Name,
	})

	result, runErr := s.Runner.Run(ctx, spec, func(line string) {
		tracker.emit(domain.PhaseRunning, line, 40)
	})
	result.Backend = backend
	resp.ExitCode = result.ExitCode

	s.saveRawLog(logName, result, resp)

	if runErr != nil {
		if ctx.Err() != nil {
			return domain.BuildOutcome{Kind: domain.OutcomeCancelled}
		}
		return domain.BuildOutcome{Kind: domain.OutcomeFatal, Cause: runErr.Error()}
	}

	if backend == domain.BackendDotnet && result.ExitCode == 0 {
		if _, err := s.Scaffolder.CollectArtifact(plan, req.OutputPath); err != nil {
			return domain.BuildOutcome{Kind: domain.OutcomeFatal, Cause: err.Error()}
		}
	}

	tracker.emit(domain.PhaseOutcome, "classifying result", 85)
	return s.Outcomes.Classify(req.OutputPath, result)
}

// install performs the opaque external installation step and reports whether
// a retry is worthwhile.
func (s *BuildService) install(ctx context.Context, tracker *progressTracker) bool {
	tracker.emit(domain.PhaseInstalling, "no usable backend, installing dotnet SDK", 25)
	err := s.Installer.Ensure(ctx, domain.BackendDotnet, func(line string) {
		tracker.emit(domain.PhaseInstalling, line, 25)
	})
	if err != nil {
		s.Logger.Warn("SDK installation failed", map[string]interface{}{"error": err.Error()})
		return false
	}
	return true
}

func (s *BuildService) saveRawLog(name string, result domain.RunResult, resp *domain.BuildResponse) {
	if s.Logs == nil {
		return
	}
	path, err := s.Logs.SaveAttempt(name, result.Combined())
	if err != nil {
		s.Logger.Warn("raw log not persisted", map[string]interface{}{"error": err.Error()})
		return
	}
	resp.RawLogPaths = append(resp.RawLogPaths, path)
}

func (s *BuildService) record(req domain.BuildRequest, resp domain.BuildResponse, cfg domain.Config, elapsed time.Duration) {
	if s.History == nil || !cfg.History.Enabled {
		return
	}
	rec := domain.BuildRecord{
		Timestamp:  time.Now(),
		Source:     req.SourcePath,
		Output:     req.OutputPath,
		Mode:       req.Mode,
		Backend:    resp.BackendUsed,
		Outcome:    resp.Outcome.Kind,
		ExitCode:   resp.ExitCode,
		Attempts:   resp.Attempts,
		FellBack:   resp.Attempts > 1,
		DurationMS: elapsed.Milliseconds(),
	}
	if err := s.History.Save(rec); err != nil {
		s.Logger.Warn("history not recorded", map[string]interface{}{"error": err.Error()})
	}
}

// acquire registers this run as the single writer for the destination path,
// cancelling and waiting out any incumbent first.
func (s *BuildService) acquire(ctx context.Context, dest string, cancel context.CancelFunc) (func(), error) {
	key := filepath.Clean(dest)
	for {
		s.mu.Lock()
		if s.active == nil {
			s.active = make(map[string]*activeRun)
		}
		incumbent, busy := s.active[key]
		if !busy {
			run := &activeRun{cancel: cancel, done: make(chan struct{})}
			s.active[key] = run
			s.mu.Unlock()
			return func() {
				s.mu.Lock()
				delete(s.active, key)
				s.mu.Unlock()
				close(run.done)
			}, nil
		}
		s.mu.Unlock()

		incumbent.cancel()
		select {
		case <-incumbent.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// progressTracker clamps percentages so they never decrease across attempts.
type progressTracker struct {
	sink    ports.ProgressSink
	percent int
}

func (t *progressTracker) emit(phase domain.Phase, message string, percent int) {
	if percent > t.percent {
		t.percent = percent
	}
	if t.sink == nil {
		return
	}
	t.sink.Publish(domain.ProgressEvent{Phase: phase, Message: message, Percent: t.percent})
}

func doneMessage(outcome domain.BuildOutcome) string {
	switch outcome.Kind {
	case domain.OutcomeSuccess:
		return "build succeeded: " + outcome.ExecutablePath
	case domain.OutcomeCancelled:
		return "build cancelled"
	default:
		return "build failed: " + string(outcome.Kind)
	}
}

// readSource reads the file tolerantly: BOM stripped, invalid byte sequences
// replaced rather than rejected, so classification always gets text to scan.
func readSource(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	text := strings.TrimPrefix(string(data), "\xef\xbb\xbf")
	return strings.ToValidUTF8(text, "�"), nil
}

var _ domain.BuildService = (*BuildService)(nil)
