package history

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/zeittresor/csforge/internal/domain"
	"github.com/zeittresor/csforge/internal/pkg/filesystem"
	"github.com/zeittresor/csforge/internal/ports"
)

// SQLiteStore persists build history in a SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// NewSQLiteStore creates (or opens) the ~/.csforge/history/builds.db database.
// When the database cannot be opened the store degrades to the JSONL file
// fallback transparently.
func NewSQLiteStore() *SQLiteStore {
	path := filepath.Join(filesystem.UserHomeDir(), ".csforge", "history", "builds.db")
	_ = os.MkdirAll(filepath.Dir(path), domain.DirectoryPermissions)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return &SQLiteStore{path: path}
	}
	store := &SQLiteStore{db: db, path: path}
	if err := store.init(); err != nil {
		return &SQLiteStore{path: path}
	}
	return store
}

func (s *SQLiteStore) init() error {
	if s.db == nil {
		return os.ErrInvalid
	}
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS builds (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TEXT,
		source TEXT,
		output TEXT,
		mode TEXT,
		backend TEXT,
		outcome TEXT,
		exit_code INTEGER,
		attempts INTEGER,
		fell_back INTEGER,
		duration_ms INTEGER
	);`)
	return err
}

// Save inserts a new record.
func (s *SQLiteStore) Save(record domain.BuildRecord) error {
	if s.db == nil {
		return (&FileStore{path: s.path}).Save(record)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`INSERT INTO builds
		(timestamp, source, output, mode, backend, outcome, exit_code, attempts, fell_back, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.Timestamp.Format(time.RFC3339),
		record.Source,
		record.Output,
		string(record.Mode),
		string(record.Backend),
		string(record.Outcome),
		record.ExitCode,
		record.Attempts,
		boolToInt(record.FellBack),
		record.DurationMS,
	)
	return err
}

// Records returns history entries (limit/search optional).
func (s *SQLiteStore) Records(limit int, search string) ([]domain.BuildRecord, error) {
	if s.db == nil {
		return (&FileStore{path: s.path}).Records(limit, search)
	}
	builder := strings.Builder{}
	builder.WriteString("SELECT timestamp, source, output, mode, backend, outcome, exit_code, attempts, fell_back, duration_ms FROM builds")
	var args []interface{}
	if search != "" {
		builder.WriteString(" WHERE source LIKE ? OR output LIKE ?")
		args = append(args, "%"+search+"%", "%"+search+"%")
	}
	builder.WriteString(" ORDER BY datetime(timestamp) DESC")
	if limit > 0 {
		builder.WriteString(" LIMIT ?")
		args = append(args, limit)
	}
	rows, err := s.db.Query(builder.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []domain.BuildRecord
	for rows.Next() {
		var rec domain.BuildRecord
		var ts, mode, backend, outcome string
		var fellBack int
		if err := rows.Scan(&ts, &rec.Source, &rec.Output, &mode, &backend, &outcome, &rec.ExitCode, &rec.Attempts, &fellBack, &rec.DurationMS); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			rec.Timestamp = t
		}
		rec.Mode = domain.BackendMode(mode)
		rec.Backend = domain.Backend(backend)
		rec.Outcome = domain.OutcomeKind(outcome)
		rec.FellBack = fellBack == 1
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Clear deletes all history entries.
func (s *SQLiteStore) Clear() error {
	if s.db == nil {
		return (&FileStore{path: s.path}).Clear()
	}
	_, err := s.db.Exec("DELETE FROM builds")
	return err
}

// ExportJSON writes the builds table to a jsonl file.
func (s *SQLiteStore) ExportJSON(dest string) error {
	records, err := s.Records(0, "")
	if err != nil {
		return err
	}
	return writeJSONL(dest, records)
}

// Path returns the sqlite database path.
func (s *SQLiteStore) Path() string {
	return s.path
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ ports.HistoryRepository = (*SQLiteStore)(nil)
