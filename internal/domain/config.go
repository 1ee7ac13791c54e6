package domain

// Config mirrors ~/.csforge/config.yaml.
type Config struct {
	ConfigFormatVersion string              `yaml:"config_format_version"`
	Build               BuildSettings       `yaml:"build"`
	Diagnostics         DiagnosticsSettings `yaml:"diagnostics"`
	History             HistorySettings     `yaml:"history"`
	Logs                LogSettings         `yaml:"logs"`
}

// BuildSettings captures backend and publish defaults.
type BuildSettings struct {
	DefaultMode     string `yaml:"default_mode"`
	TargetFramework string `yaml:"target_framework"`
	RuntimeID       string `yaml:"runtime_id"`
	SelfContained   bool   `yaml:"self_contained"`
	SingleFile      bool   `yaml:"single_file"`
}

// DiagnosticsSettings points at the outcome-classification rules file.
type DiagnosticsSettings struct {
	RulesFile string `yaml:"rules_file"`
}

// HistorySettings controls build history persistence.
type HistorySettings struct {
	Enabled       bool `yaml:"enabled"`
	RetentionDays int  `yaml:"retention_days"`
}

// LogSettings controls raw per-attempt log persistence.
type LogSettings struct {
	Dir string `yaml:"dir"`
}
