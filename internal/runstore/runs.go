package runstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Status is a run's lifecycle state.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// ErrNotFound reports an unknown run id.
var ErrNotFound = errors.New("run not found")

// Run is one recorded broadcast run.
type Run struct {
	ID           string
	Slug         string
	Status       Status
	Provider     string
	SegmentCount int
	AudioPath    string
	ErrorKind    string
	ErrorMessage string
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Duration returns how long a finished run took.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Outcome finalizes a run.
type Outcome struct {
	Provider     string
	SegmentCount int
	AudioPath    string
	ErrorKind    string
	ErrorMessage string
}

const runColumns = "id, slug, status, provider, segment_count, audio_path, error_kind, error_message, started_at, finished_at"

// Begin records a new running run.
func (s *Store) Begin(ctx context.Context, id, slug string, startedAt time.Time) error {
	_, err := s.exec(ctx,
		`INSERT INTO runs (id, slug, status, started_at) VALUES (?, ?, ?, ?)`,
		id, slug, StatusRunning, startedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Complete marks a run completed.
func (s *Store) Complete(ctx context.Context, id string, outcome Outcome) error {
	return s.finish(ctx, id, StatusCompleted, outcome)
}

// Fail marks a run failed.
func (s *Store) Fail(ctx context.Context, id string, outcome Outcome) error {
	return s.finish(ctx, id, StatusFailed, outcome)
}

func (s *Store) finish(ctx context.Context, id string, status Status, outcome Outcome) error {
	res, err := s.exec(ctx,
		`UPDATE runs SET status = ?, provider = ?, segment_count = ?, audio_path = ?,
            error_kind = ?, error_message = ?, finished_at = ?
        WHERE id = ?`,
		status,
		nullableString(outcome.Provider),
		outcome.SegmentCount,
		nullableString(outcome.AudioPath),
		nullableString(outcome.ErrorKind),
		nullableString(outcome.ErrorMessage),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// MarkInterrupted fails runs for slug still recorded as running. Callers
// hold the slug's run lock, so such runs belong to a dead process.
func (s *Store) MarkInterrupted(ctx context.Context, slug string) (int64, error) {
	res, err := s.exec(ctx,
		`UPDATE runs SET status = ?, error_kind = 'interrupted', error_message = 'process exited before the run finished', finished_at = ?
        WHERE slug = ? AND status = ?`,
		StatusFailed, time.Now().UTC().Format(time.RFC3339Nano), slug, StatusRunning,
	)
	if err != nil {
		return 0, fmt.Errorf("mark interrupted runs: %w", err)
	}
	return res.RowsAffected()
}

// Get returns one run.
func (s *Store) Get(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return run, err
}

// List returns the most recent runs first. limit <= 0 means 20.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, "SELECT "+runColumns+" FROM runs ORDER BY started_at DESC, id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()
	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (Run, error) {
	var (
		run          Run
		status       string
		provider     sql.NullString
		audioPath    sql.NullString
		errorKind    sql.NullString
		errorMessage sql.NullString
		startedRaw   string
		finishedRaw  sql.NullString
	)
	if err := scanner.Scan(
		&run.ID,
		&run.Slug,
		&status,
		&provider,
		&run.SegmentCount,
		&audioPath,
		&errorKind,
		&errorMessage,
		&startedRaw,
		&finishedRaw,
	); err != nil {
		return Run{}, err
	}
	run.Status = Status(status)
	run.Provider = provider.String
	run.AudioPath = audioPath.String
	run.ErrorKind = errorKind.String
	run.ErrorMessage = errorMessage.String
	run.StartedAt = parseTime(startedRaw)
	run.FinishedAt = parseTime(finishedRaw.String)
	return run, nil
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return parsed
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
