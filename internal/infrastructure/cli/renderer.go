package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/zeittresor/csforge/internal/domain"
)

// RenderOutcome prints the build result in a friendly, ASCII-only format.
func RenderOutcome(out io.Writer, resp domain.BuildResponse) {
	switch resp.Outcome.Kind {
	case domain.OutcomeSuccess:
		fmt.Fprintf(out, "Build succeeded (%s, %d attempt%s)\n",
			resp.BackendUsed, resp.Attempts, plural(resp.Attempts))
		fmt.Fprintf(out, "Executable: %s\n", resp.Outcome.ExecutablePath)

	case domain.OutcomeCompileError:
		fmt.Fprintf(out, "Build failed: compile errors (%s)\n", resp.BackendUsed)
		for _, diag := range resp.Outcome.Diagnostics {
			fmt.Fprintf(out, "  %s\n", diag)
		}

	case domain.OutcomeToolchainMissing:
		fmt.Fprintf(out, "Build failed: no usable %s toolchain found\n", resp.Outcome.Backend)

	case domain.OutcomeInstallRequired:
		fmt.Fprintf(out, "Build blocked: %s requires installation (%s)\n",
			resp.Outcome.Backend, resp.Outcome.Installer)
		fmt.Fprintln(out, "Run 'csforge install' or install the dotnet SDK manually.")

	case domain.OutcomeCancelled:
		fmt.Fprintln(out, "Build cancelled.")

	default:
		fmt.Fprintf(out, "Build failed: %s\n", resp.Outcome.Kind)
		if resp.Outcome.Cause != "" {
			fmt.Fprintln(out, indent(resp.Outcome.Cause))
		}
	}

	if len(resp.Classification.Signals) > 0 {
		fmt.Fprintf(out, "Detected: %s\n", joinSignals(resp.Classification.Signals))
	}
	for _, path := range resp.RawLogPaths {
		fmt.Fprintf(out, "Raw log: %s\n", path)
	}
}

func joinSignals(signals []domain.Signal) string {
	parts := make([]string, len(signals))
	for i, s := range signals {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}

func indent(text string) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	for i, line := range lines {
		lines[i] = "  " + line
	}
	return strings.Join(lines, "\n")
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
