package diagnostics

import (
	"fmt"
	"os"
	"strings"

	"github.com/zeittresor/csforge/internal/domain"
	"github.com/zeittresor/csforge/internal/ports"
)

// fatalTailLines bounds how much raw output a Fatal outcome carries.
const fatalTailLines = 15

// Classifier implements ports.OutcomeClassifier with regex rule sets loaded
// from a YAML file (embedded defaults when absent).
type Classifier struct {
	rules ruleSet
}

// NewClassifier loads the rules file at path ("" means the default location).
// A malformed user file must not take classification down with it: any load or
// compile problem in the user's rules degrades to the embedded defaults, so an
// error here can only mean the embedded rules themselves are broken.
func NewClassifier(path string) (*Classifier, error) {
	if rules, err := loadRules(path); err == nil {
		if set, err := compileRules(rules); err == nil {
			return &Classifier{rules: set}, nil
		}
	}

	rules, err := defaultRules()
	if err != nil {
		return nil, fmt.Errorf("load diagnostics rules: %w", err)
	}
	set, err := compileRules(rules)
	if err != nil {
		return nil, fmt.Errorf("compile diagnostics rules: %w", err)
	}
	return &Classifier{rules: set}, nil
}

// Classify implements ports.OutcomeClassifier. Classification is pattern
// matching over the captured text, not exit-code-only: both backends encode
// richer failure detail in output than in exit codes.
func (c *Classifier) Classify(destPath string, result domain.RunResult) domain.BuildOutcome {
	if result.ExitCode == 0 && executableExists(destPath) {
		return domain.BuildOutcome{Kind: domain.OutcomeSuccess, ExecutablePath: destPath}
	}

	combined := result.Combined()
	for _, pattern := range c.rules.toolchainMissing {
		if pattern.re.MatchString(combined) {
			return domain.BuildOutcome{Kind: domain.OutcomeToolchainMissing, Backend: result.Backend}
		}
	}

	if diags := c.extractDiagnostics(combined); len(diags) > 0 {
		return domain.BuildOutcome{Kind: domain.OutcomeCompileError, Diagnostics: diags}
	}

	return domain.BuildOutcome{
		Kind:  domain.OutcomeFatal,
		Cause: tail(combined, fatalTailLines),
	}
}

// UnsupportedSyntax implements ports.OutcomeClassifier.
func (c *Classifier) UnsupportedSyntax(diagnostics []string) bool {
	for _, diag := range diagnostics {
		for _, pattern := range c.rules.unsupportedSyntax {
			if pattern.re.MatchString(diag) {
				return true
			}
		}
	}
	return false
}

func (c *Classifier) extractDiagnostics(output string) []string {
	var diags []string
	for _, line := range strings.Split(output, "\n") {
		for _, pattern := range c.rules.compileError {
			if pattern.re.MatchString(line) {
				diags = append(diags, strings.TrimSpace(line))
				break
			}
		}
	}
	return diags
}

func executableExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}

func tail(output string, n int) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

var _ ports.OutcomeClassifier = (*Classifier)(nil)
