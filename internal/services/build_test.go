package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/zeittresor/csforge/internal/domain"
	"github.com/zeittresor/csforge/internal/pkg/logger"
)

func writeTempSource(t *testing.T, code string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Program.cs")
	if err := os.WriteFile(path, []byte(code), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	return path
}

func newTestService(t *testing.T, tc *stubToolchains, runner *stubRunner, outcomes *stubOutcomes) (*BuildService, *stubScaffolder, *recordingSink) {
	t.Helper()
	scaffolder := &stubScaffolder{}
	sink := &recordingSink{}
	svc := &BuildService{
		ConfigProvider: stubConfigProvider{cfg: domain.Config{
			Build: domain.BuildSettings{DefaultMode: "auto", TargetFramework: "net8.0"},
		}},
		Toolchains: tc,
		Scaffolder: scaffolder,
		Runner:     runner,
		Outcomes:   outcomes,
		Progress:   sink,
		Logger:     logger.NewStd(false),
	}
	return svc, scaffolder, sink
}

func TestRunSucceedsWithLegacyBackend(t *testing.T) {
	src := writeTempSource(t, "class P { static void Main() { } }")
	runner := &stubRunner{results: []domain.RunResult{{ExitCode: 0}}}
	outcomes := &stubOutcomes{outcomes: []domain.BuildOutcome{
		{Kind: domain.OutcomeSuccess, ExecutablePath: "out.exe"},
	}}
	svc, _, _ := newTestService(t,
		&stubToolchains{snapshots: []domain.ToolchainSnapshot{{CscPath: "/fake/csc.exe"}}},
		runner, outcomes)

	resp, err := svc.Run(domain.BuildRequest{
		SourcePath: src,
		OutputPath: filepath.Join(t.TempDir(), "out.exe"),
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !resp.Outcome.Succeeded() {
		t.Fatalf("expected success, got %+v", resp.Outcome)
	}
	if resp.BackendUsed != domain.BackendCsc {
		t.Fatalf("expected csc backend, got %s", resp.BackendUsed)
	}
	if resp.Attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", resp.Attempts)
	}
	if len(runner.specs) != 1 || !strings.Contains(strings.Join(runner.specs[0].Args, " "), "/nologo") {
		t.Fatalf("unexpected csc invocation: %+v", runner.specs)
	}
}

func TestRunFallsBackOnUnsupportedSyntaxExactlyOnce(t *testing.T) {
	src := writeTempSource(t, "class P { static void Main() { } }")
	runner := &stubRunner{results: []domain.RunResult{
		{ExitCode: 1, Stderr: "error CS8059: feature not available"},
		{ExitCode: 0},
	}}
	outcomes := &stubOutcomes{
		outcomes: []domain.BuildOutcome{
			{Kind: domain.OutcomeCompileError, Diagnostics: []string{"error CS8059: feature not available"}},
			{Kind: domain.OutcomeSuccess, ExecutablePath: "out.exe"},
		},
		unsupported: true,
	}
	svc, scaffolder, _ := newTestService(t,
		&stubToolchains{snapshots: []domain.ToolchainSnapshot{
			{CscPath: "/fake/csc.exe", DotnetPath: "/fake/dotnet"},
		}},
		runner, outcomes)

	resp, err := svc.Run(domain.BuildRequest{
		SourcePath: src,
		OutputPath: filepath.Join(t.TempDir(), "out.exe"),
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !resp.Outcome.Succeeded() {
		t.Fatalf("expected fallback success, got %+v", resp.Outcome)
	}
	if resp.Attempts != 2 {
		t.Fatalf("expected exactly 2 attempts, got %d", resp.Attempts)
	}
	if resp.BackendUsed != domain.BackendDotnet {
		t.Fatalf("expected dotnet after fallback, got %s", resp.BackendUsed)
	}
	if scaffolder.materialized != 1 {
		t.Fatalf("expected one scaffold, got %d", scaffolder.materialized)
	}
	if scaffolder.cleanups != 1 {
		t.Fatalf("scaffold cleanup not invoked, got %d", scaffolder.cleanups)
	}
}

func TestRunOrdinaryCompileErrorDoesNotFallBack(t *testing.T) {
	src := writeTempSource(t, "class P { static void Main() { } }")
	runner := &stubRunner{results: []domain.RunResult{
		{ExitCode: 1, Stderr: "error CS1061: no such member"},
	}}
	outcomes := &stubOutcomes{
		outcomes: []domain.BuildOutcome{
			{Kind: domain.OutcomeCompileError, Diagnostics: []string{"error CS1061: no such member"}},
		},
		unsupported: false,
	}
	svc, _, _ := newTestService(t,
		&stubToolchains{snapshots: []domain.ToolchainSnapshot{
			{CscPath: "/fake/csc.exe", DotnetPath: "/fake/dotnet"},
		}},
		runner, outcomes)

	resp, err := svc.Run(domain.BuildRequest{
		SourcePath: src,
		OutputPath: filepath.Join(t.TempDir(), "out.exe"),
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if resp.Outcome.Kind != domain.OutcomeCompileError {
		t.Fatalf("expected compile error surfaced, got %+v", resp.Outcome)
	}
	if resp.Attempts != 1 {
		t.Fatalf("user compile errors must not trigger fallback, got %d attempts", resp.Attempts)
	}
}

func TestRunLegacyMissingFallsBackToModern(t *testing.T) {
	src := writeTempSource(t, "class P { static void Main() { } }")
	runner := &stubRunner{results: []domain.RunResult{{ExitCode: 0}}}
	outcomes := &stubOutcomes{outcomes: []domain.BuildOutcome{
		{Kind: domain.OutcomeSuccess, ExecutablePath: "out.exe"},
	}}
	svc, _, _ := newTestService(t,
		&stubToolchains{snapshots: []domain.ToolchainSnapshot{
			{DotnetPath: "/fake/dotnet"},
			{DotnetPath: "/fake/dotnet"},
		}},
		runner, outcomes)

	resp, err := svc.Run(domain.BuildRequest{
		SourcePath: src,
		OutputPath: filepath.Join(t.TempDir(), "out.exe"),
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !resp.Outcome.Succeeded() {
		t.Fatalf("expected success via dotnet, got %+v", resp.Outcome)
	}
	if resp.Attempts != 2 {
		t.Fatalf("missing-toolchain attempt plus fallback should be 2, got %d", resp.Attempts)
	}
	if resp.BackendUsed != domain.BackendDotnet {
		t.Fatalf("expected dotnet, got %s", resp.BackendUsed)
	}
}

func TestRunExplicitLegacyNeverFallsBack(t *testing.T) {
	// WPF markers would force dotnet in auto mode; an explicit legacy request
	// still runs csc and surfaces its failure untouched.
	src := writeTempSource(t, "using System.Windows.Controls;\nclass P { static void Main() { } }")
	runner := &stubRunner{results: []domain.RunResult{
		{ExitCode: 1, Stderr: "error CS0246: type not found"},
	}}
	outcomes := &stubOutcomes{
		outcomes: []domain.BuildOutcome{
			{Kind: domain.OutcomeCompileError, Diagnostics: []string{"error CS0246: type not found"}},
		},
		unsupported: true,
	}
	svc, _, _ := newTestService(t,
		&stubToolchains{snapshots: []domain.ToolchainSnapshot{
			{CscPath: "/fake/csc.exe", DotnetPath: "/fake/dotnet"},
		}},
		runner, outcomes)

	resp, err := svc.Run(domain.BuildRequest{
		SourcePath: src,
		OutputPath: filepath.Join(t.TempDir(), "out.exe"),
		Mode:       domain.ModeLegacy,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if resp.BackendUsed != domain.BackendCsc {
		t.Fatalf("explicit legacy mode overridden to %s", resp.BackendUsed)
	}
	if resp.Attempts != 1 {
		t.Fatalf("explicit mode must never fall back, got %d attempts", resp.Attempts)
	}
	if resp.Outcome.Kind != domain.OutcomeCompileError {
		t.Fatalf("expected compile error, got %+v", resp.Outcome)
	}
}

func TestRunNoBackendTriggersInstallAndRetry(t *testing.T) {
	src := writeTempSource(t, "using var f = Open();")
	runner := &stubRunner{results: []domain.RunResult{{ExitCode: 0}}}
	outcomes := &stubOutcomes{outcomes: []domain.BuildOutcome{
		{Kind: domain.OutcomeSuccess, ExecutablePath: "out.exe"},
	}}
	installer := &stubInstaller{}
	svc, _, sink := newTestService(t,
		&stubToolchains{snapshots: []domain.ToolchainSnapshot{
			{}, // nothing available
			{DotnetPath: "/fake/dotnet"}, // fresh snapshot after install
		}},
		runner, outcomes)
	svc.Installer = installer

	resp, err := svc.Run(domain.BuildRequest{
		SourcePath: src,
		OutputPath: filepath.Join(t.TempDir(), "out.exe"),
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if installer.calls != 1 {
		t.Fatalf("expected one install attempt, got %d", installer.calls)
	}
	if !resp.Outcome.Succeeded() {
		t.Fatalf("expected success after install, got %+v", resp.Outcome)
	}
	if !sink.sawPhase(domain.PhaseInstalling) {
		t.Fatal("expected installing progress phase")
	}
}

func TestRunFailedInstallSurfacesInstallRequired(t *testing.T) {
	src := writeTempSource(t, "using var f = Open();")
	installer := &stubInstaller{err: errStubInstall}
	svc, _, _ := newTestService(t,
		&stubToolchains{snapshots: []domain.ToolchainSnapshot{{}}},
		&stubRunner{}, &stubOutcomes{})
	svc.Installer = installer

	resp, err := svc.Run(domain.BuildRequest{
		SourcePath: src,
		OutputPath: filepath.Join(t.TempDir(), "out.exe"),
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if resp.Outcome.Kind != domain.OutcomeInstallRequired {
		t.Fatalf("expected install-required, got %+v", resp.Outcome)
	}
	if resp.Outcome.Installer != domain.InstallDotnetSDK {
		t.Fatalf("unexpected installer action %q", resp.Outcome.Installer)
	}
}

func TestRunCancellationYieldsCancelledOutcome(t *testing.T) {
	src := writeTempSource(t, "class P { static void Main() { } }")
	ctx, cancel := context.WithCancel(context.Background())
	runner := &stubRunner{
		onRun: func() { cancel() },
		err:   context.Canceled,
	}
	svc, _, _ := newTestService(t,
		&stubToolchains{snapshots: []domain.ToolchainSnapshot{{CscPath: "/fake/csc.exe"}}},
		runner, &stubOutcomes{})

	resp, err := svc.Run(domain.BuildRequest{
		Context:    ctx,
		SourcePath: src,
		OutputPath: filepath.Join(t.TempDir(), "out.exe"),
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if resp.Outcome.Kind != domain.OutcomeCancelled {
		t.Fatalf("expected cancelled outcome, got %+v", resp.Outcome)
	}
	if resp.Outcome.Succeeded() {
		t.Fatal("cancelled run must never report success")
	}
}

func TestRunRecordsFailedBuildWithExitCode(t *testing.T) {
	src := writeTempSource(t, "class P { static void Main() { } }")
	runner := &stubRunner{results: []domain.RunResult{
		{ExitCode: 1, Stderr: "error CS1061: no such member"},
	}}
	outcomes := &stubOutcomes{outcomes: []domain.BuildOutcome{
		{Kind: domain.OutcomeCompileError, Diagnostics: []string{"error CS1061: no such member"}},
	}}
	history := &stubHistory{}
	svc := &BuildService{
		ConfigProvider: stubConfigProvider{cfg: domain.Config{
			Build:   domain.BuildSettings{DefaultMode: "auto", TargetFramework: "net8.0"},
			History: domain.HistorySettings{Enabled: true},
		}},
		Toolchains: &stubToolchains{snapshots: []domain.ToolchainSnapshot{{CscPath: "/fake/csc.exe"}}},
		Scaffolder: &stubScaffolder{},
		Runner:     runner,
		Outcomes:   outcomes,
		History:    history,
		Logger:     logger.NewStd(false),
	}

	if _, err := svc.Run(domain.BuildRequest{
		SourcePath: src,
		OutputPath: filepath.Join(t.TempDir(), "out.exe"),
	}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(history.records) != 1 {
		t.Fatalf("expected one history record, got %d", len(history.records))
	}
	rec := history.records[0]
	if rec.ExitCode != 1 {
		t.Fatalf("record exit code = %d, want the compiler's 1", rec.ExitCode)
	}
	if rec.Outcome != domain.OutcomeCompileError {
		t.Fatalf("record outcome = %s, want compile-error", rec.Outcome)
	}
	if rec.Backend != domain.BackendCsc {
		t.Fatalf("record backend = %s, want csc", rec.Backend)
	}
}

func TestRunProgressPercentNeverDecreases(t *testing.T) {
	src := writeTempSource(t, "class P { static void Main() { } }")
	runner := &stubRunner{results: []domain.RunResult{
		{ExitCode: 1}, {ExitCode: 0},
	}}
	outcomes := &stubOutcomes{
		outcomes: []domain.BuildOutcome{
			{Kind: domain.OutcomeCompileError, Diagnostics: []string{"error CS8059"}},
			{Kind: domain.OutcomeSuccess, ExecutablePath: "out.exe"},
		},
		unsupported: true,
	}
	svc, _, sink := newTestService(t,
		&stubToolchains{snapshots: []domain.ToolchainSnapshot{
			{CscPath: "/fake/csc.exe", DotnetPath: "/fake/dotnet"},
		}},
		runner, outcomes)

	if _, err := svc.Run(domain.BuildRequest{
		SourcePath: src,
		OutputPath: filepath.Join(t.TempDir(), "out.exe"),
	}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	last := -1
	for _, ev := range sink.events() {
		if ev.Percent < last {
			t.Fatalf("percent regressed from %d to %d at phase %s", last, ev.Percent, ev.Phase)
		}
		last = ev.Percent
	}
	if last != 100 {
		t.Fatalf("final event should be 100%%, got %d", last)
	}
}

func TestRunSecondRequestSupersedesFirstForSameDestination(t *testing.T) {
	src := writeTempSource(t, "class P { static void Main() { } }")
	dest := filepath.Join(t.TempDir(), "out.exe")

	started := make(chan struct{})
	first := &stubRunner{started: started, blockUntilCancel: true}
	svc, _, _ := newTestService(t,
		&stubToolchains{snapshots: []domain.ToolchainSnapshot{{CscPath: "/fake/csc.exe"}}},
		first, &stubOutcomes{})

	var wg sync.WaitGroup
	var firstResp domain.BuildResponse
	wg.Add(1)
	go func() {
		defer wg.Done()
		firstResp, _ = svc.Run(domain.BuildRequest{SourcePath: src, OutputPath: dest})
	}()
	<-started

	// Share the service so the second request sees the first as incumbent.
	// The superseding acquire cancels it and waits out its terminal state.
	svc.Runner = &stubRunner{results: []domain.RunResult{{ExitCode: 0}}}
	svc.Outcomes = &stubOutcomes{outcomes: []domain.BuildOutcome{
		{Kind: domain.OutcomeSuccess, ExecutablePath: dest},
	}}

	second := make(chan domain.BuildResponse, 1)
	go func() {
		resp, _ := svc.Run(domain.BuildRequest{SourcePath: src, OutputPath: dest})
		second <- resp
	}()

	wg.Wait()
	resp := <-second

	if firstResp.Outcome.Kind != domain.OutcomeCancelled {
		t.Fatalf("superseded run should be cancelled, got %+v", firstResp.Outcome)
	}
	if !resp.Outcome.Succeeded() {
		t.Fatalf("superseding run should succeed, got %+v", resp.Outcome)
	}
}

// ---- stubs ----

type stubConfigProvider struct {
	cfg domain.Config
	err error
}

func (s stubConfigProvider) Load(context.Context) (domain.Config, error) {
	return s.cfg, s.err
}

type stubToolchains struct {
	mu        sync.Mutex
	snapshots []domain.ToolchainSnapshot
	calls     int
}

func (s *stubToolchains) Snapshot(context.Context) domain.ToolchainSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.calls
	s.calls++
	if idx >= len(s.snapshots) {
		idx = len(s.snapshots) - 1
	}
	return s.snapshots[idx]
}

type stubScaffolder struct {
	materialized int
	cleanups     int
}

func (s *stubScaffolder) Materialize(_ context.Context, plan domain.ScaffoldPlan, _ string) (domain.ScaffoldPlan, func(), error) {
	s.materialized++
	plan.Dir = "/tmp/scaffold"
	plan.ProjectFile = "/tmp/scaffold/App.csproj"
	plan.PublishDir = "/tmp/scaffold/publish"
	var once sync.Once
	return plan, func() { once.Do(func() { s.cleanups++ }) }, nil
}

func (s *stubScaffolder) CollectArtifact(_ domain.ScaffoldPlan, destPath string) (string, error) {
	return destPath, nil
}

type stubRunner struct {
	mu      sync.Mutex
	results []domain.RunResult
	specs   []domain.ProcessSpec
	err     error
	onRun   func()

	started          chan struct{}
	blockUntilCancel bool
}

func (s *stubRunner) Run(ctx context.Context, spec domain.ProcessSpec, _ func(string)) (domain.RunResult, error) {
	s.mu.Lock()
	idx := len(s.specs)
	s.specs = append(s.specs, spec)
	onRun := s.onRun
	s.mu.Unlock()

	if s.started != nil {
		close(s.started)
	}
	if s.blockUntilCancel {
		<-ctx.Done()
	}
	if onRun != nil {
		onRun()
	}
	if ctx.Err() != nil {
		return domain.RunResult{ExitCode: -1}, ctx.Err()
	}
	if s.err != nil {
		return domain.RunResult{ExitCode: -1}, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx >= len(s.results) {
		idx = len(s.results) - 1
	}
	return s.results[idx], nil
}

type stubOutcomes struct {
	mu          sync.Mutex
	outcomes    []domain.BuildOutcome
	calls       int
	unsupported bool
}

func (s *stubOutcomes) Classify(string, domain.RunResult) domain.BuildOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.calls
	s.calls++
	if idx >= len(s.outcomes) {
		return domain.BuildOutcome{Kind: domain.OutcomeFatal, Cause: "unexpected classify call"}
	}
	return s.outcomes[idx]
}

func (s *stubOutcomes) UnsupportedSyntax([]string) bool { return s.unsupported }

type stubHistory struct {
	mu      sync.Mutex
	records []domain.BuildRecord
}

func (s *stubHistory) Save(rec domain.BuildRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func (s *stubHistory) Records(int, string) ([]domain.BuildRecord, error) { return nil, nil }
func (s *stubHistory) Clear() error                                     { return nil }
func (s *stubHistory) ExportJSON(string) error                          { return nil }

type stubInstaller struct {
	calls int
	err   error
}

func (s *stubInstaller) Ensure(context.Context, domain.Backend, func(string)) error {
	s.calls++
	return s.err
}

type recordingSink struct {
	mu  sync.Mutex
	evs []domain.ProgressEvent
}

func (r *recordingSink) Publish(ev domain.ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evs = append(r.evs, ev)
}

func (r *recordingSink) events() []domain.ProgressEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.ProgressEvent, len(r.evs))
	copy(out, r.evs)
	return out
}

func (r *recordingSink) sawPhase(phase domain.Phase) bool {
	for _, ev := range r.events() {
		if ev.Phase == phase {
			return true
		}
	}
	return false
}

var errStubInstall = os.ErrPermission
