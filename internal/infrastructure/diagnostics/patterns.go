// Package diagnostics classifies compiler output via configurable regex rule
// sets and filters noisy progress output for rendering.
package diagnostics

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	rootassets "github.com/zeittresor/csforge/assets"
	"github.com/zeittresor/csforge/internal/pkg/filesystem"
)

// Rule describes one regex-based classification rule.
type Rule struct {
	Pattern string `yaml:"pattern"`
	Message string `yaml:"message"`
}

// RulesFile is the YAML schema root.
type RulesFile struct {
	Rules struct {
		ToolchainMissing  []Rule `yaml:"toolchain_missing"`
		CompileError      []Rule `yaml:"compile_error"`
		UnsupportedSyntax []Rule `yaml:"unsupported_syntax"`
	} `yaml:"rules"`
}

type compiledPattern struct {
	re   *regexp.Regexp
	rule Rule
}

type ruleSet struct {
	toolchainMissing  []compiledPattern
	compileError      []compiledPattern
	unsupportedSyntax []compiledPattern
}

func compileRules(rules RulesFile) (ruleSet, error) {
	var set ruleSet
	var err error
	if set.toolchainMissing, err = compile(rules.Rules.ToolchainMissing); err != nil {
		return set, err
	}
	if set.compileError, err = compile(rules.Rules.CompileError); err != nil {
		return set, err
	}
	if set.unsupportedSyntax, err = compile(rules.Rules.UnsupportedSyntax); err != nil {
		return set, err
	}
	return set, nil
}

func compile(rules []Rule) ([]compiledPattern, error) {
	var compiled []compiledPattern
	for _, rule := range rules {
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, compiledPattern{re: re, rule: rule})
	}
	return compiled, nil
}

// loadRules reads the rules file, falling back to the embedded defaults when
// the file is missing or empty.
func loadRules(path string) (RulesFile, error) {
	var rules RulesFile
	data, err := os.ReadFile(expandPath(path))
	if err != nil {
		return defaultRules()
	}
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return RulesFile{}, err
	}
	if len(rules.Rules.ToolchainMissing) == 0 &&
		len(rules.Rules.CompileError) == 0 &&
		len(rules.Rules.UnsupportedSyntax) == 0 {
		return defaultRules()
	}
	return rules, nil
}

func defaultRules() (RulesFile, error) {
	var rules RulesFile
	if err := yaml.Unmarshal(rootassets.DefaultDiagnosticsYAML, &rules); err != nil {
		return RulesFile{}, err
	}
	return rules, nil
}

func expandPath(path string) string {
	if path == "" {
		return filepath.Join(filesystem.UserHomeDir(), ".csforge", "diagnostics.yaml")
	}
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(filesystem.UserHomeDir(), path[2:])
	}
	return filepath.Join(filesystem.UserHomeDir(), path)
}

var (
	spinnerLineRE = regexp.MustCompile(`^\s*[-\\|/]\s*$`)
	transferBarRE = regexp.MustCompile(`(?i)(\b\d{1,3}\s*%|\b\d+(\.\d+)?\s*(KB|MB|GB)\s*/\s*\d+(\.\d+)?\s*(KB|MB|GB))`)
)

// FilterNoise drops spinner frames and download/progress bar lines from
// rendered output while keeping lines that carry URLs or package identifiers.
// The raw log sink always receives the unfiltered text.
func FilterNoise(lines []string) []string {
	var cleaned []string
	blankRun := 0
	for _, line := range lines {
		raw := strings.TrimRight(line, "\n")
		if strings.TrimSpace(raw) == "" {
			blankRun++
			if blankRun <= 1 {
				cleaned = append(cleaned, "")
			}
			continue
		}
		blankRun = 0
		if spinnerLineRE.MatchString(raw) {
			continue
		}
		if strings.ContainsAny(raw, "█▒░") || transferBarRE.MatchString(raw) {
			lower := strings.ToLower(raw)
			if strings.Contains(lower, "http") || strings.Contains(raw, "Microsoft.DotNet") || strings.Contains(raw, "Installer") {
				cleaned = append(cleaned, raw)
			}
			continue
		}
		cleaned = append(cleaned, raw)
	}
	return cleaned
}

// Noisy reports whether one line would be dropped by FilterNoise.
func Noisy(line string) bool {
	return len(FilterNoise([]string{line})) == 0
}
