package runner

import (
	"bufio"
	"context"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/zeittresor/csforge/internal/domain"
	"github.com/zeittresor/csforge/internal/ports"
)

// exitCodeSpawnFailure mirrors the shell convention for "command not found";
// the outcome classifier turns the accompanying message into ToolchainMissing.
const exitCodeSpawnFailure = 127

// StreamingRunner executes compiler subprocesses with concurrent stdout and
// stderr drains so a full pipe buffer can never deadlock the child.
type StreamingRunner struct{}

// New builds a StreamingRunner.
func New() *StreamingRunner {
	return &StreamingRunner{}
}

// Run implements ports.ProcessRunner. Every line read is forwarded to onLine
// immediately and also accumulated into the RunResult. Both drain goroutines
// are joined before the result is finalized. On context cancellation the
// subprocess is killed and ctx.Err() is returned alongside the partial result.
func (r *StreamingRunner) Run(ctx context.Context, spec domain.ProcessSpec, onLine func(string)) (domain.RunResult, error) {
	cmd := exec.CommandContext(ctx, spec.Name, spec.Args...)
	cmd.Dir = spec.Dir

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return domain.RunResult{}, err
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return domain.RunResult{}, err
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		// Spawn failures (missing executable, permission) become a classifiable
		// result instead of an error, matching the rest of the failure taxonomy.
		return domain.RunResult{
			ExitCode:   exitCodeSpawnFailure,
			Stderr:     err.Error(),
			DurationMS: time.Since(start).Milliseconds(),
		}, nil
	}

	var (
		mu     sync.Mutex
		stdout strings.Builder
		stderr strings.Builder
		wg     sync.WaitGroup
	)
	drain := func(pipe *bufio.Scanner, sink *strings.Builder) {
		defer wg.Done()
		for pipe.Scan() {
			line := pipe.Text()
			mu.Lock()
			sink.WriteString(line)
			sink.WriteByte('\n')
			mu.Unlock()
			if onLine != nil {
				onLine(line)
			}
		}
	}
	wg.Add(2)
	go drain(newScanner(stdoutPipe), &stdout)
	go drain(newScanner(stderrPipe), &stderr)

	wg.Wait()
	waitErr := cmd.Wait()
	result := domain.RunResult{
		Stdout:     strings.TrimRight(stdout.String(), "\n"),
		Stderr:     strings.TrimRight(stderr.String(), "\n"),
		DurationMS: time.Since(start).Milliseconds(),
	}

	if ctx.Err() != nil {
		result.ExitCode = -1
		return result, ctx.Err()
	}
	if exitErr, ok := waitErr.(*exec.ExitError); ok {
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}
	if waitErr != nil {
		return result, waitErr
	}
	return result, nil
}

func newScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return sc
}

var _ ports.ProcessRunner = (*StreamingRunner)(nil)
