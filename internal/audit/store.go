// Package audit persists finalized beat runs to a local SQLite database
// so repairs and fallbacks can be reviewed after a batch run.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"shotsmith/internal/pipeline"
)

const schema = `
CREATE TABLE IF NOT EXISTS beat_runs (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id       TEXT NOT NULL,
	beat_id      TEXT NOT NULL,
	scene_number INTEGER NOT NULL,
	recorded_at  TEXT NOT NULL,
	fell_back    INTEGER NOT NULL,
	needs_review INTEGER NOT NULL,
	iterations   INTEGER NOT NULL,
	prompt       TEXT NOT NULL,
	pre_repair   TEXT NOT NULL,
	post_repair  TEXT NOT NULL,
	report       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_beat_runs_beat ON beat_runs(beat_id);
CREATE INDEX IF NOT EXISTS idx_beat_runs_run  ON beat_runs(run_id);
`

// Store is a SQLite-backed pipeline.Sink.
type Store struct {
	db *sql.DB
}

var _ pipeline.Sink = (*Store)(nil)

// Open creates or opens the audit database at path and ensures the
// schema exists. Use ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	// The driver serializes access; a single connection avoids
	// SQLITE_BUSY under concurrent scene runs.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create audit schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts one finalized beat run.
func (s *Store) Record(ctx context.Context, rec pipeline.AuditRecord) error {
	pre, err := json.Marshal(rec.PreRepair)
	if err != nil {
		return fmt.Errorf("marshal pre-repair spec: %w", err)
	}
	post, err := json.Marshal(rec.PostRepair)
	if err != nil {
		return fmt.Errorf("marshal post-repair spec: %w", err)
	}
	report, err := json.Marshal(rec.Report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO beat_runs
			(run_id, beat_id, scene_number, recorded_at, fell_back,
			 needs_review, iterations, prompt, pre_repair, post_repair, report)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.BeatID, rec.SceneNumber,
		time.Now().UTC().Format(time.RFC3339),
		boolInt(rec.FellBack),
		boolInt(rec.Report.MaxIterationsReached),
		rec.Report.Iterations,
		rec.Report.Output,
		string(pre), string(post), string(report),
	)
	if err != nil {
		return fmt.Errorf("insert beat run: %w", err)
	}
	return nil
}

// Entry is a review-oriented view of one stored run.
type Entry struct {
	RunID       string
	BeatID      string
	SceneNumber int
	RecordedAt  time.Time
	FellBack    bool
	NeedsReview bool
	Iterations  int
	Prompt      string
}

// ReviewQueue lists stored runs whose repair loop exhausted its bound,
// newest first.
func (s *Store) ReviewQueue(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, beat_id, scene_number, recorded_at,
		       fell_back, needs_review, iterations, prompt
		FROM beat_runs
		WHERE needs_review = 1
		ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query review queue: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// BeatHistory lists every stored run for a beat, oldest first.
func (s *Store) BeatHistory(ctx context.Context, beatID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, beat_id, scene_number, recorded_at,
		       fell_back, needs_review, iterations, prompt
		FROM beat_runs
		WHERE beat_id = ?
		ORDER BY id ASC`, beatID)
	if err != nil {
		return nil, fmt.Errorf("query beat history: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var out []Entry
	for rows.Next() {
		var e Entry
		var recorded string
		var fellBack, review int
		if err := rows.Scan(&e.RunID, &e.BeatID, &e.SceneNumber, &recorded,
			&fellBack, &review, &e.Iterations, &e.Prompt); err != nil {
			return nil, fmt.Errorf("scan beat run: %w", err)
		}
		e.RecordedAt, _ = time.Parse(time.RFC3339, recorded)
		e.FellBack = fellBack != 0
		e.NeedsReview = review != 0
		out = append(out, e)
	}
	return out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
