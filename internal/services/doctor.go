package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zeittresor/csforge/internal/domain"
	"github.com/zeittresor/csforge/internal/ports"
)

// DoctorService runs environment diagnostics: config, toolchains, pattern
// rules, history store and log directory.
type DoctorService struct {
	ConfigProvider ports.ConfigProvider
	Toolchains     ports.ToolchainLocator
	History        ports.HistoryRepository
}

// Run executes checks and returns a report.
func (s *DoctorService) Run(ctx context.Context) (domain.HealthReport, error) {
	var checks []domain.HealthCheck

	cfg, err := s.ConfigProvider.Load(ctx)
	if err != nil {
		checks = append(checks, fail("Config file", fmt.Sprintf("load failed: %v", err)))
		return domain.HealthReport{Checks: checks}, err
	}
	checks = append(checks, ok("Config file", fmt.Sprintf("loaded %s", cfg.ConfigFormatVersion)))

	if s.Toolchains != nil {
		snap := s.Toolchains.Snapshot(ctx)
		checks = append(checks, toolchainCheck("Legacy compiler (csc)", snap.CscPath))
		checks = append(checks, toolchainCheck("Modern SDK (dotnet)", snap.DotnetPath))
		if snap.Empty() {
			checks = append(checks, warn("Backends", "no compiler backend found; builds will request installation"))
		}
	}

	checks = append(checks, rulesFileCheck(cfg.Diagnostics.RulesFile))

	if s.History != nil {
		if records, err := s.History.Records(1, ""); err != nil {
			checks = append(checks, warn("Build history", err.Error()))
		} else if len(records) == 0 {
			checks = append(checks, ok("Build history", "store reachable, no builds yet"))
		} else {
			checks = append(checks, ok("Build history", fmt.Sprintf("latest build %s", records[0].Timestamp.Format(domain.TimestampFormat))))
		}
	}

	checks = append(checks, logDirCheck(cfg.Logs.Dir))

	return domain.HealthReport{Checks: checks}, nil
}

func toolchainCheck(name, path string) domain.HealthCheck {
	if path == "" {
		return warn(name, "not found")
	}
	return ok(name, path)
}

func rulesFileCheck(path string) domain.HealthCheck {
	if path == "" {
		return ok("Diagnostic rules", "using embedded defaults")
	}
	expanded := expandHome(path)
	if _, err := os.Stat(expanded); err != nil {
		return warn("Diagnostic rules", fmt.Sprintf("file missing at %s, embedded defaults apply", expanded))
	}
	return ok("Diagnostic rules", expanded)
}

func logDirCheck(dir string) domain.HealthCheck {
	if dir == "" {
		return warn("Raw log dir", "logs.dir not configured")
	}
	expanded := expandHome(dir)
	if info, err := os.Stat(expanded); err == nil && info.IsDir() {
		return ok("Raw log dir", expanded)
	}
	// Created lazily on the first build.
	return ok("Raw log dir", fmt.Sprintf("%s (will be created)", expanded))
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

func ok(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthOK, Details: details}
}

func warn(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthWarn, Details: details}
}

func fail(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthError, Details: details}
}
