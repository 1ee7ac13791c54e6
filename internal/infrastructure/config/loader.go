package config

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/zeittresor/csforge/internal/domain"
	"github.com/zeittresor/csforge/internal/pkg/filesystem"
	"github.com/zeittresor/csforge/internal/ports"
)

// FileLoader loads YAML configuration from ~/.csforge/config.yaml (overridable
// via CSFORGE_CONFIG).
type FileLoader struct {
	overridePath string
}

// NewFileLoader builds a new loader.
func NewFileLoader(path string) *FileLoader {
	return &FileLoader{overridePath: path}
}

// Load implements ports.ConfigProvider.
func (l *FileLoader) Load(context.Context) (domain.Config, error) {
	path := l.resolvePath()
	if err := ensureConfigDir(path); err != nil {
		return domain.Config{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := defaultConfig()
			if err := writeDefault(path, cfg); err != nil {
				return domain.Config{}, err
			}
			return cfg, nil
		}
		return domain.Config{}, err
	}

	var cfg domain.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return domain.Config{}, err
	}

	return hydrateDefaults(cfg), nil
}

// Save persists the configuration back to disk.
func (l *FileLoader) Save(cfg domain.Config) error {
	path := l.resolvePath()
	if err := ensureConfigDir(path); err != nil {
		return err
	}
	return writeDefault(path, cfg)
}

// Path returns the resolved config file path.
func (l *FileLoader) Path() string {
	return l.resolvePath()
}

func (l *FileLoader) resolvePath() string {
	if l.overridePath != "" {
		return l.overridePath
	}
	if custom := os.Getenv("CSFORGE_CONFIG"); custom != "" {
		return expandPath(custom)
	}
	return filepath.Join(filesystem.UserHomeDir(), ".csforge", "config.yaml")
}

func ensureConfigDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, domain.DirectoryPermissions)
}

func writeDefault(path string, cfg domain.Config) error {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, domain.SecureFilePermissions)
}

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() domain.Config {
	return defaultConfig()
}

func defaultConfig() domain.Config {
	home := filesystem.UserHomeDir()
	return domain.Config{
		ConfigFormatVersion: "1",
		Build: domain.BuildSettings{
			DefaultMode:     string(domain.ModeAuto),
			TargetFramework: domain.DefaultTargetFramework,
			RuntimeID:       "",
			SelfContained:   true,
			SingleFile:      true,
		},
		Diagnostics: domain.DiagnosticsSettings{
			RulesFile: filepath.Join(home, ".csforge", "diagnostics.yaml"),
		},
		History: domain.HistorySettings{
			Enabled:       true,
			RetentionDays: domain.DefaultHistoryRetainDays,
		},
		Logs: domain.LogSettings{
			Dir: filepath.Join(home, ".csforge", "logs"),
		},
	}
}

func hydrateDefaults(cfg domain.Config) domain.Config {
	if cfg.Build.DefaultMode == "" {
		cfg.Build.DefaultMode = string(domain.ModeAuto)
	}
	if cfg.Build.TargetFramework == "" {
		cfg.Build.TargetFramework = domain.DefaultTargetFramework
	}
	if cfg.History.RetentionDays == 0 {
		cfg.History.RetentionDays = domain.DefaultHistoryRetainDays
	}
	return cfg
}

func expandPath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if len(path) > 1 && path[:2] == "~/" {
		return filepath.Join(filesystem.UserHomeDir(), path[2:])
	}
	return filepath.Clean(path)
}

var _ ports.ConfigProvider = (*FileLoader)(nil)
