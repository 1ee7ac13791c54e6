package history

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/zeittresor/csforge/internal/domain"
	"github.com/zeittresor/csforge/internal/pkg/filesystem"
	"github.com/zeittresor/csforge/internal/ports"
)

// FileStore appends build records to a jsonl file. It is the fallback when
// the sqlite database cannot be opened.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a new history store under ~/.csforge/history/builds.jsonl.
func NewFileStore() *FileStore {
	return &FileStore{
		path: filepath.Join(filesystem.UserHomeDir(), ".csforge", "history", "builds.jsonl"),
	}
}

// NewFileStoreAt creates a store using an explicit path (used in tests and by
// the sqlite fallback).
func NewFileStoreAt(path string) *FileStore {
	return &FileStore{path: path}
}

// Save implements ports.HistoryRepository.
func (f *FileStore) Save(record domain.BuildRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(f.path), domain.DirectoryPermissions); err != nil {
		return err
	}
	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, domain.LogFilePermissions)
	if err != nil {
		return err
	}
	defer file.Close()
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = file.Write(data)
	return err
}

// Records loads history entries newest first (best-effort).
func (f *FileStore) Records(limit int, search string) ([]domain.BuildRecord, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	lines := bytes.Split(bytes.TrimSpace(data), []byte("\n"))
	var records []domain.BuildRecord
	for i := len(lines) - 1; i >= 0; i-- {
		line := lines[i]
		if len(line) == 0 {
			continue
		}
		var rec domain.BuildRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		if search != "" && !strings.Contains(rec.Source, search) && !strings.Contains(rec.Output, search) {
			continue
		}
		records = append(records, rec)
		if limit > 0 && len(records) >= limit {
			break
		}
	}
	return records, nil
}

// Clear removes the history file.
func (f *FileStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// ExportJSON copies the records to a jsonl file at dest.
func (f *FileStore) ExportJSON(dest string) error {
	records, err := f.Records(0, "")
	if err != nil {
		return err
	}
	return writeJSONL(dest, records)
}

// Path returns the backing file path.
func (f *FileStore) Path() string {
	return f.path
}

func writeJSONL(dest string, records []domain.BuildRecord) error {
	file, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer file.Close()
	for _, rec := range records {
		b, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if _, err := file.Write(append(b, '\n')); err != nil {
			return err
		}
	}
	return nil
}

var _ ports.HistoryRepository = (*FileStore)(nil)
