package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/heatwork/heatwork/internal/history"
	"github.com/heatwork/heatwork/internal/history/sqlite/migrations"
	"github.com/heatwork/heatwork/internal/log"
)

// RecorderConfig is the configuration for the SQLite history recorder.
type RecorderConfig struct {
	DBPath string
	Logger log.Logger
}

func (c *RecorderConfig) defaults() error {
	if c.DBPath == "" {
		return fmt.Errorf("db path is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "history.SQLite"})
	return nil
}

// Recorder is a SQLite implementation of history.Recorder.
type Recorder struct {
	db     *sql.DB
	logger log.Logger
}

// NewRecorder creates a new SQLite recorder, running pending migrations.
func NewRecorder(ctx context.Context, cfg RecorderConfig) (*Recorder, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	dir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("could not create db directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)", cfg.DBPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	if err := migrations.Up(db, cfg.Logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not migrate history ledger: %w", err)
	}

	cfg.Logger.Debugf("SQLite history ledger initialized at %s", cfg.DBPath)

	return &Recorder{db: db, logger: cfg.Logger}, nil
}

// Close closes the database connection.
func (r *Recorder) Close() error { return r.db.Close() }

// RecordAttempt appends a finished attempt to the ledger. A ULID is assigned
// when the attempt carries no ID.
func (r *Recorder) RecordAttempt(ctx context.Context, attempt history.Attempt) error {
	if attempt.ID == "" {
		attempt.ID = ulid.Make().String()
	}

	query := `
		INSERT INTO attempts (id, task_id, client, outcome, error, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(
		ctx,
		query,
		attempt.ID,
		attempt.TaskID,
		attempt.Client,
		string(attempt.Outcome),
		attempt.Error,
		attempt.StartedAt.UTC().Unix(),
		attempt.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("could not insert attempt: %w", err)
	}

	r.logger.Debugf("Recorded attempt %s for task %s", attempt.ID, attempt.TaskID)
	return nil
}

// ListAttempts returns the most recent attempts, newest first.
func (r *Recorder) ListAttempts(ctx context.Context, limit int) ([]history.Attempt, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, task_id, client, outcome, error, started_at, duration_ms
		FROM attempts
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("could not query attempts: %w", err)
	}
	defer rows.Close()

	var attempts []history.Attempt
	for rows.Next() {
		var a history.Attempt
		var startedAt int64
		var durationMS int64
		if err := rows.Scan(&a.ID, &a.TaskID, &a.Client, &a.Outcome, &a.Error, &startedAt, &durationMS); err != nil {
			return nil, fmt.Errorf("could not scan attempt: %w", err)
		}
		a.StartedAt = time.Unix(startedAt, 0).UTC()
		a.Duration = time.Duration(durationMS) * time.Millisecond
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not iterate attempts: %w", err)
	}

	return attempts, nil
}
