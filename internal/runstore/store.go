package runstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"morningcast/internal/config"
)

// DatabaseName is the history file created in the output directory.
const DatabaseName = "morningcast.db"

// Store records broadcast runs in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates the output directory if needed and opens its history file.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(filepath.Join(cfg.Paths.OutputDir, DatabaseName))
}

// OpenPath opens the database at dbPath.
func OpenPath(dbPath string) (*Store, error) {
	// WAL lets `morningcast history` read while a run writes.
	dsn := "file:" + dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	store := &Store{db: db, path: dbPath}
	if err := store.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// exec runs a write, retrying briefly while another process holds the lock
// past busy_timeout.
func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	delay := 10 * time.Millisecond
	for attempt := 1; ; attempt++ {
		res, err := s.db.ExecContext(ctx, query, args...)
		if err == nil || !isBusy(err) || attempt == 5 {
			return res, err
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		delay = min(delay*2, 200*time.Millisecond)
	}
}

const sqliteBusy = 5

func isBusy(err error) bool {
	var coded interface{ Code() int }
	if errors.As(err, &coded) && coded.Code()&0xff == sqliteBusy {
		return true
	}
	return strings.Contains(err.Error(), "database is locked")
}
