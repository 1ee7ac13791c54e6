// Package logsink persists raw compiler output, one file per build attempt.
package logsink

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/zeittresor/csforge/internal/domain"
	"github.com/zeittresor/csforge/internal/pkg/filesystem"
	"github.com/zeittresor/csforge/internal/ports"
)

// FileSink writes attempt logs under a directory (default ~/.csforge/logs).
type FileSink struct {
	dir string
	mu  sync.Mutex
}

// NewFileSink builds a sink. dir may be empty for the default location.
func NewFileSink(dir string) *FileSink {
	if dir == "" {
		dir = filepath.Join(filesystem.UserHomeDir(), ".csforge", "logs")
	}
	return &FileSink{dir: dir}
}

// SaveAttempt implements ports.LogSink. The name identifies the attempt
// (e.g. "csc_compile", "dotnet_publish"); a timestamp keeps files unique.
func (s *FileSink) SaveAttempt(name string, content string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.MkdirAll(s.dir, domain.DirectoryPermissions); err != nil {
		return "", err
	}
	path := filepath.Join(s.dir, fmt.Sprintf("%s_%s.log", time.Now().Format("20060102_150405.000"), name))
	if err := os.WriteFile(path, []byte(content), domain.LogFilePermissions); err != nil {
		return "", err
	}
	return path, nil
}

// Dir exposes the log directory path.
func (s *FileSink) Dir() string {
	return s.dir
}

var _ ports.LogSink = (*FileSink)(nil)
