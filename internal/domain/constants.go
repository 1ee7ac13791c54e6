package domain

import "time"

// File permissions constants
const (
	// DirectoryPermissions is the default permission for directories (rwxr-xr-x)
	DirectoryPermissions = 0o755
	// LogFilePermissions is the permission for raw build logs (rw-r--r--)
	LogFilePermissions = 0o644
	// SecureFilePermissions is the permission for the config file (rw-------)
	SecureFilePermissions = 0o600
)

// Build defaults
const (
	// DefaultTargetFramework is the newest stable framework moniker known to
	// the tool; WinForms/WPF sources get the -windows variant appended.
	DefaultTargetFramework = "net8.0"
	// DefaultBuildTimeout bounds one compiler subprocess.
	DefaultBuildTimeout = 10 * time.Minute
	// MaxAttempts bounds one orchestration: primary plus at most one fallback.
	MaxAttempts = 2
)

// History constants
const (
	// DefaultHistoryLimit is the default number of history records to display
	DefaultHistoryLimit = 20
	// DefaultHistoryRetainDays is the default number of days to retain history
	DefaultHistoryRetainDays = 30
)

// Time formats
const (
	// TimestampFormat is the standard timestamp format
	TimestampFormat = time.RFC3339
)
