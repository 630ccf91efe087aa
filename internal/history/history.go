package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Run statuses.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Run is one generation attempt against a deck file.
type Run struct {
	ID           string
	DeckPath     string
	DeckTitle    string
	Cards        int
	AudioBuilt   int
	AudioCached  int
	SlidesBuilt  int
	SlidesCached int
	ClipsBuilt   int
	ClipsCached  int
	Duration     float64
	OutputPath   string
	Status       string
	ErrorMessage string
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Store manages run persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database and applies the
// schema.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    deck_path TEXT NOT NULL,
    deck_title TEXT NOT NULL,
    cards INTEGER NOT NULL,
    audio_built INTEGER NOT NULL,
    audio_cached INTEGER NOT NULL,
    slides_built INTEGER NOT NULL,
    slides_cached INTEGER NOT NULL,
    clips_built INTEGER NOT NULL,
    clips_cached INTEGER NOT NULL,
    duration_seconds REAL NOT NULL,
    output_path TEXT NOT NULL,
    status TEXT NOT NULL,
    error_message TEXT NOT NULL DEFAULT '',
    started_at TEXT NOT NULL,
    finished_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Record inserts a completed run. A zero ID is assigned a fresh UUID; the
// stored run (with its final ID) is returned.
func (s *Store) Record(ctx context.Context, run Run) (Run, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO runs (
            id, deck_path, deck_title, cards,
            audio_built, audio_cached, slides_built, slides_cached,
            clips_built, clips_cached, duration_seconds, output_path,
            status, error_message, started_at, finished_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.DeckPath,
		run.DeckTitle,
		run.Cards,
		run.AudioBuilt,
		run.AudioCached,
		run.SlidesBuilt,
		run.SlidesCached,
		run.ClipsBuilt,
		run.ClipsCached,
		run.Duration,
		run.OutputPath,
		run.Status,
		run.ErrorMessage,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.FinishedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// Recent returns the most recent runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, deck_path, deck_title, cards,
            audio_built, audio_cached, slides_built, slides_cached,
            clips_built, clips_cached, duration_seconds, output_path,
            status, error_message, started_at, finished_at
        FROM runs ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var started, finished string
		if err := rows.Scan(
			&run.ID,
			&run.DeckPath,
			&run.DeckTitle,
			&run.Cards,
			&run.AudioBuilt,
			&run.AudioCached,
			&run.SlidesBuilt,
			&run.SlidesCached,
			&run.ClipsBuilt,
			&run.ClipsCached,
			&run.Duration,
			&run.OutputPath,
			&run.Status,
			&run.ErrorMessage,
			&started,
			&finished,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		run.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}
