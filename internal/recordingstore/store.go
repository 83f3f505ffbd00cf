// Package recordingstore persists run recordings in SQLite.
package recordingstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/specialistvlad/promptgridgo/internal/graph"
	"github.com/specialistvlad/promptgridgo/internal/recording"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by Get for an unknown run id.
var ErrNotFound = errors.New("recording not found")

// Summary describes a stored recording without its events.
type Summary struct {
	RunID     string
	GraphID   graph.GraphID
	StartedAt time.Time
	State     string
}

// Store is a SQLite-backed recording store.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path. ":memory:" keeps everything in
// memory on a single connection.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	dsn := path
	if path != ":memory:" {
		dsn += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS recordings (
			run_id TEXT PRIMARY KEY,
			graph_id TEXT NOT NULL,
			started_at INTEGER NOT NULL,
			state TEXT NOT NULL,
			payload TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_recordings_graph_id ON recordings(graph_id)`,
	}
	for _, m := range migrations {
		if _, err := s.db.ExecContext(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores rec, replacing any earlier recording with the same run id.
func (s *Store) Save(ctx context.Context, rec *recording.Recording) error {
	if rec.RunID == "" {
		return fmt.Errorf("recording has no run id")
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding recording %s: %w", rec.RunID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO recordings (run_id, graph_id, started_at, state, payload)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(run_id) DO UPDATE SET
			graph_id = excluded.graph_id,
			started_at = excluded.started_at,
			state = excluded.state,
			payload = excluded.payload`,
		rec.RunID, string(rec.GraphID), rec.StartedAt.UnixNano(), rec.State, string(payload),
	)
	if err != nil {
		return fmt.Errorf("saving recording %s: %w", rec.RunID, err)
	}
	return nil
}

// Get loads the recording of runID.
func (s *Store) Get(ctx context.Context, runID string) (*recording.Recording, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM recordings WHERE run_id = ?`, runID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("loading recording %s: %w", runID, err)
	}
	var rec recording.Recording
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return nil, fmt.Errorf("decoding recording %s: %w", runID, err)
	}
	return &rec, nil
}

// List returns summaries newest first. A non-empty graphID filters by graph.
func (s *Store) List(ctx context.Context, graphID graph.GraphID) ([]Summary, error) {
	query := `SELECT run_id, graph_id, started_at, state FROM recordings`
	var args []any
	if graphID != "" {
		query += ` WHERE graph_id = ?`
		args = append(args, string(graphID))
	}
	query += ` ORDER BY started_at DESC, run_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing recordings: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			sum     Summary
			graphID string
			started int64
		)
		if err := rows.Scan(&sum.RunID, &graphID, &started, &sum.State); err != nil {
			return nil, fmt.Errorf("scanning recording: %w", err)
		}
		sum.GraphID = graph.GraphID(graphID)
		sum.StartedAt = time.Unix(0, started).UTC()
		out = append(out, sum)
	}
	return out, rows.Err()
}
