// Package store keeps a SQLite ledger of extraction runs and the outcome
// of every document in them.
package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"
)

// Outcome statuses.
const (
	StatusProcessed = "processed"
	StatusSkipped   = "skipped"
)

// ErrRunNotFound is returned when a run ID or the latest run is unknown.
var ErrRunNotFound = errors.New("run not found")

// Run represents a row in the runs table.
type Run struct {
	ID         string     `json:"id"`
	InputDir   string     `json:"input_dir"`
	TablePath  string     `json:"table_path"`
	Provider   string     `json:"provider"`
	Model      string     `json:"model"`
	Processed  int        `json:"processed"`
	Skipped    int        `json:"skipped"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Outcome represents a row in the outcomes table.
type Outcome struct {
	ID                 int64         `json:"id"`
	RunID              string        `json:"run_id"`
	FileName           string        `json:"file_name"`
	Status             string        `json:"status"`
	Reason             string        `json:"reason,omitempty"`
	Title              string        `json:"title,omitempty"`
	WordCountTrimmed   int           `json:"word_count_trimmed"`
	WordCountProcessed int           `json:"word_count_processed"`
	Mentions           int           `json:"mentions"`
	Elapsed            time.Duration `json:"elapsed"`
}

// Store wraps the SQLite ledger database.
type Store struct {
	db *sql.DB

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// New opens (or creates) the ledger at dbPath and applies pending
// migrations.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db, entropy: ulid.Monotonic(rand.Reader, 0)}
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) newID(t time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), s.entropy).String()
}

// StartRun records a new run and returns it with its ID assigned.
func (s *Store) StartRun(ctx context.Context, r Run) (*Run, error) {
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now().UTC()
	}
	r.ID = s.newID(r.StartedAt)
	r.Processed, r.Skipped, r.FinishedAt = 0, 0, nil

	query, args, err := sq.Insert("runs").
		Columns("id", "input_dir", "table_path", "provider", "model", "started_at").
		Values(r.ID, r.InputDir, r.TablePath, r.Provider, r.Model, r.StartedAt).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building run insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("inserting run: %w", err)
	}
	return &r, nil
}

// RecordOutcome stores the result of one document and bumps the run's
// counters in the same transaction.
func (s *Store) RecordOutcome(ctx context.Context, o Outcome) (int64, error) {
	counter := "skipped"
	if o.Status == StatusProcessed {
		counter = "processed"
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin outcome: %w", err)
	}
	defer tx.Rollback()

	query, args, err := sq.Insert("outcomes").
		Columns("run_id", "file_name", "status", "reason", "title",
			"word_count_trimmed", "word_count_processed", "mentions", "elapsed_ms").
		Values(o.RunID, o.FileName, o.Status, o.Reason, o.Title,
			o.WordCountTrimmed, o.WordCountProcessed, o.Mentions, o.Elapsed.Milliseconds()).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("building outcome insert: %w", err)
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("inserting outcome: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	query, args, err = sq.Update("runs").
		Set(counter, sq.Expr(counter+" + 1")).
		Where(sq.Eq{"id": o.RunID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("building run update: %w", err)
	}
	res, err = tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("updating run counters: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, fmt.Errorf("%w: %s", ErrRunNotFound, o.RunID)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing outcome: %w", err)
	}
	return id, nil
}

// FinishRun stamps the run's finish time.
func (s *Store) FinishRun(ctx context.Context, runID string) error {
	query, args, err := sq.Update("runs").
		Set("finished_at", time.Now().UTC()).
		Where(sq.Eq{"id": runID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("building run update: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("finishing run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

var runColumns = []string{
	"id", "input_dir", "table_path", "provider", "model",
	"processed", "skipped", "started_at", "finished_at",
}

func scanRun(row *sql.Row) (*Run, error) {
	var (
		r               Run
		provider, model sql.NullString
		finished        sql.NullTime
	)
	err := row.Scan(&r.ID, &r.InputDir, &r.TablePath, &provider, &model,
		&r.Processed, &r.Skipped, &r.StartedAt, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning run: %w", err)
	}
	r.Provider, r.Model = provider.String, model.String
	if finished.Valid {
		t := finished.Time
		r.FinishedAt = &t
	}
	return &r, nil
}

// GetRun retrieves a run by ID.
func (s *Store) GetRun(ctx context.Context, runID string) (*Run, error) {
	query, args, err := sq.Select(runColumns...).From("runs").
		Where(sq.Eq{"id": runID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building run query: %w", err)
	}
	return scanRun(s.db.QueryRowContext(ctx, query, args...))
}

// LatestRun returns the most recently started run. ULIDs sort by time so
// the highest ID wins.
func (s *Store) LatestRun(ctx context.Context) (*Run, error) {
	query, args, err := sq.Select(runColumns...).From("runs").
		OrderBy("id DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building run query: %w", err)
	}
	return scanRun(s.db.QueryRowContext(ctx, query, args...))
}

// ListOutcomes returns the outcomes of a run in insertion order. An empty
// status matches every outcome.
func (s *Store) ListOutcomes(ctx context.Context, runID, status string) ([]Outcome, error) {
	b := sq.Select("id", "run_id", "file_name", "status", "reason", "title",
		"word_count_trimmed", "word_count_processed", "mentions", "elapsed_ms").
		From("outcomes").
		Where(sq.Eq{"run_id": runID}).
		OrderBy("id")
	if status != "" {
		b = b.Where(sq.Eq{"status": status})
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building outcome query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing outcomes: %w", err)
	}
	defer rows.Close()

	var out []Outcome
	for rows.Next() {
		var (
			o             Outcome
			reason, title sql.NullString
			elapsedMS     int64
		)
		if err := rows.Scan(&o.ID, &o.RunID, &o.FileName, &o.Status, &reason, &title,
			&o.WordCountTrimmed, &o.WordCountProcessed, &o.Mentions, &elapsedMS); err != nil {
			return nil, fmt.Errorf("scanning outcome: %w", err)
		}
		o.Reason, o.Title = reason.String, title.String
		o.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		out = append(out, o)
	}
	return out, rows.Err()
}
