// Package history provides scenario run history recording backed by SQLite.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/gotodo/todo-e2e/internal/scenario"
)

const schema = `
CREATE TABLE IF NOT EXISTS scenario_runs (
	id           TEXT PRIMARY KEY,
	scenario     TEXT NOT NULL,
	driver       TEXT NOT NULL,
	base_url     TEXT NOT NULL DEFAULT '',
	started_at   TIMESTAMP NOT NULL,
	duration_ms  INTEGER NOT NULL,
	passed       BOOLEAN NOT NULL,
	failed_step  INTEGER,
	failure_kind TEXT NOT NULL DEFAULT '',
	message      TEXT NOT NULL DEFAULT '',
	screenshot   TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_scenario_runs_started_at ON scenario_runs (started_at);
`

// maxMessageLen bounds the stored failure message.
const maxMessageLen = 500

// Run is one recorded scenario run.
type Run struct {
	ID          string        `db:"id"`
	Scenario    string        `db:"scenario"`
	Driver      string        `db:"driver"`
	BaseURL     string        `db:"base_url"`
	StartedAt   time.Time     `db:"started_at"`
	DurationMS  int64         `db:"duration_ms"`
	Passed      bool          `db:"passed"`
	FailedStep  sql.NullInt64 `db:"failed_step"`
	FailureKind string        `db:"failure_kind"`
	Message     string        `db:"message"`
	Screenshot  string        `db:"screenshot"`
}

// Duration returns the recorded run duration.
func (r Run) Duration() time.Duration {
	return time.Duration(r.DurationMS) * time.Millisecond
}

// Status is "passed" or "failed".
func (r Run) Status() string {
	if r.Passed {
		return "passed"
	}
	return "failed"
}

// Recorder records scenario runs.
type Recorder struct {
	db *sqlx.DB
}

// Open opens (and if needed creates) the history database at path.
// ":memory:" gives a throwaway database.
func Open(path string) (*Recorder, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	// single writer; also keeps ":memory:" on one connection
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate history database: %w", err)
	}
	return &Recorder{db: db}, nil
}

// Close closes the database.
func (r *Recorder) Close() error {
	return r.db.Close()
}

// Record stores the outcome of res.
func (r *Recorder) Record(ctx context.Context, baseURL string, res *scenario.Result) error {
	run := Run{
		ID:         res.ID,
		Scenario:   res.Scenario,
		Driver:     res.Driver,
		BaseURL:    baseURL,
		StartedAt:  res.StartedAt.UTC(),
		DurationMS: res.Duration().Milliseconds(),
		Passed:     res.Passed(),
		Screenshot: res.Screenshot,
	}
	if res.Err != nil {
		run.Message = Excerpt(res.Err.Error(), maxMessageLen)
	}
	if se := res.Failure(); se != nil {
		run.FailedStep = sql.NullInt64{Int64: int64(se.Index), Valid: true}
		run.FailureKind = se.Kind.String()
	}

	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO scenario_runs
			(id, scenario, driver, base_url, started_at, duration_ms, passed,
			 failed_step, failure_kind, message, screenshot)
		VALUES
			(:id, :scenario, :driver, :base_url, :started_at, :duration_ms, :passed,
			 :failed_step, :failure_kind, :message, :screenshot)`, run)
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", res.ID, err)
	}
	return nil
}

// Recent returns up to limit runs, newest first.
func (r *Recorder) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []Run
	err := r.db.SelectContext(ctx, &runs,
		`SELECT * FROM scenario_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// Summary counts all recorded runs and the passing ones.
type Summary struct {
	Total  int `db:"total"`
	Passed int `db:"passed"`
}

// Summarize aggregates the whole history.
func (r *Recorder) Summarize(ctx context.Context) (Summary, error) {
	var s Summary
	err := r.db.GetContext(ctx, &s,
		`SELECT COUNT(*) AS total, COALESCE(SUM(CASE WHEN passed THEN 1 ELSE 0 END), 0) AS passed FROM scenario_runs`)
	if err != nil {
		return s, fmt.Errorf("failed to summarize runs: %w", err)
	}
	return s, nil
}

// Excerpt truncates s to at most maxLen runes, marking the cut with "...".
func Excerpt(s string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = 50
	}
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
