package domain

import "strings"

// Signal is one detected source feature relevant to backend selection.
type Signal string

const (
	SignalWinForms     Signal = "winforms"
	SignalWpf          Signal = "wpf"
	SignalModernSyntax Signal = "modern-syntax"
	SignalTopLevel     Signal = "top-level-statements"
	SignalAppConfig    Signal = "appconfig-init"
)

// ClassificationResult is the set of signals detected in a source file.
// Derived purely from source content, never mutated after creation.
type ClassificationResult struct {
	Signals []Signal
}

// Has reports whether a specific signal was detected.
func (c ClassificationResult) Has(signal Signal) bool {
	for _, s := range c.Signals {
		if s == signal {
			return true
		}
	}
	return false
}

// UsesUI reports whether any UI-framework signal was detected.
func (c ClassificationResult) UsesUI() bool {
	return c.Has(SignalWinForms) || c.Has(SignalWpf)
}

// RequiresModern reports whether any signal rules out the legacy compiler.
// Absence of all signals does not guarantee the legacy compiler will succeed;
// that is discovered at compile time.
func (c ClassificationResult) RequiresModern() bool {
	return len(c.Signals) > 0
}

// signalProbe pairs a signal with the markers that imply it. Keeping the set
// as an explicit table lets new signals be added without touching control flow.
type signalProbe struct {
	signal  Signal
	markers []string
}

var signalProbes = []signalProbe{
	{SignalWinForms, []string{
		"System.Windows.Forms",
		"ApplicationConfiguration.Initialize",
	}},
	{SignalWpf, []string{
		"PresentationFramework",
		"UseWPF",
		"System.Windows.Controls",
	}},
	{SignalAppConfig, []string{
		"ApplicationConfiguration.Initialize",
	}},
	{SignalModernSyntax, []string{
		"using var ",      // C# 8
		"record ",         // C# 9
		"init;",           // C# 9
		"object?",         // nullable annotations
		"string?",
		"Span<",
		"MathF.",
		"async Task Main", // C# 7.1+
		"new()",           // target-typed new
	}},
}

// AnalyzeSource inspects raw source text and detects signals implying the
// modern toolchain. Pure function, no I/O. Detection is signal-based keyword
// scanning, not a full parse.
func AnalyzeSource(code string) ClassificationResult {
	var result ClassificationResult
	for _, probe := range signalProbes {
		for _, marker := range probe.markers {
			if strings.Contains(code, marker) {
				result.Signals = append(result.Signals, probe.signal)
				break
			}
		}
	}
	if hasTopLevelStatements(code) {
		result.Signals = append(result.Signals, SignalTopLevel)
	}
	if hasFileScopedNamespace(code) {
		if !result.Has(SignalModernSyntax) {
			result.Signals = append(result.Signals, SignalModernSyntax)
		}
	}
	return result
}

// hasTopLevelStatements detects executable statements before any type or
// namespace declaration, the C# 9 top-level program shape.
func hasTopLevelStatements(code string) bool {
	for _, line := range strings.Split(code, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "using ") {
			continue
		}
		if strings.HasPrefix(trimmed, "[") {
			continue
		}
		for _, decl := range []string{"namespace", "class ", "struct ", "interface ", "enum ", "record ", "public ", "internal ", "static class"} {
			if strings.HasPrefix(trimmed, decl) {
				return false
			}
		}
		// First significant line is a statement, not a declaration.
		return strings.HasSuffix(trimmed, ";") || strings.Contains(trimmed, "(")
	}
	return false
}

// hasFileScopedNamespace matches "namespace Foo;" (C# 10).
func hasFileScopedNamespace(code string) bool {
	for _, line := range strings.Split(code, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "namespace ") && strings.HasSuffix(trimmed, ";") {
			return true
		}
	}
	return false
}
