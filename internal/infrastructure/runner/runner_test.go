package runner

import (
	"context"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/zeittresor/csforge/internal/domain"
)

func requirePosixShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("test uses a POSIX shell")
	}
}

func TestRunCapturesOutputAndExitCode(t *testing.T) {
	requirePosixShell(t)

	var (
		mu    sync.Mutex
		lines []string
	)
	res, err := New().Run(context.Background(), domain.ProcessSpec{
		Name: "sh",
		Args: []string{"-c", "echo out1; echo err1 1>&2; echo out2; exit 3"},
	}, func(line string) {
		mu.Lock()
		lines = append(lines, line)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.ExitCode != 3 {
		t.Fatalf("exit code = %d, want 3", res.ExitCode)
	}
	if !strings.Contains(res.Stdout, "out1") || !strings.Contains(res.Stdout, "out2") {
		t.Fatalf("stdout missing lines: %q", res.Stdout)
	}
	if !strings.Contains(res.Stderr, "err1") {
		t.Fatalf("stderr missing line: %q", res.Stderr)
	}
	if len(lines) != 3 {
		t.Fatalf("forwarded %d lines, want 3: %v", len(lines), lines)
	}
}

func TestRunSpawnFailureBecomesResult(t *testing.T) {
	res, err := New().Run(context.Background(), domain.ProcessSpec{
		Name: "definitely-not-a-compiler-on-this-host",
	}, nil)
	if err != nil {
		t.Fatalf("Run() error = %v, want encoded result", err)
	}
	if res.ExitCode != exitCodeSpawnFailure {
		t.Fatalf("exit code = %d, want %d", res.ExitCode, exitCodeSpawnFailure)
	}
	if res.Stderr == "" {
		t.Fatal("expected spawn error text in stderr")
	}
}

func TestRunCancellationKillsProcess(t *testing.T) {
	requirePosixShell(t)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := New().Run(ctx, domain.ProcessSpec{
		Name: "sh",
		Args: []string{"-c", "sleep 30"},
	}, nil)
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Fatalf("process was not killed promptly, took %v", elapsed)
	}
}
