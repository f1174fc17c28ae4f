package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"

	_ "modernc.org/sqlite"

	"github.com/supersteprun/graph/graph"
)

// SQLiteStore is a graph.Store backed by a single SQLite file and a single
// checkpoints table keyed by (thread_id, step), running in WAL mode.
//
// SQLite only supports one writer at a time, so the connection pool is
// capped at a single connection; reads and writes for different threads are
// therefore serialized at the database level rather than independently, a
// deliberate simplification for a "development and testing, zero setup"
// backend.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if necessary) the SQLite database at path
// and ensures the checkpoints table exists. path may be ":memory:" for a
// throwaway in-process database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx := context.Background()
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("store: %s: %w", pragma, err)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.createTable(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) createTable(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS checkpoints (
			thread_id TEXT NOT NULL,
			step      INTEGER NOT NULL,
			state     TEXT NOT NULL,
			frontier  TEXT,
			metadata  TEXT,
			timestamp INTEGER NOT NULL,
			PRIMARY KEY (thread_id, step)
		)`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("store: create checkpoints table: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Save implements graph.Store.
func (s *SQLiteStore) Save(ctx context.Context, cp graph.Checkpoint) error {
	values, err := json.Marshal(cp.State.Values())
	if err != nil {
		return fmt.Errorf("store: marshal state: %w", err)
	}
	frontier, err := json.Marshal(toFrontierRecords(cp.Frontier))
	if err != nil {
		return fmt.Errorf("store: marshal frontier: %w", err)
	}
	meta, err := json.Marshal(cp.Metadata)
	if err != nil {
		return fmt.Errorf("store: marshal metadata: %w", err)
	}
	ts := cp.Timestamp
	if ts.IsZero() {
		ts = timeNow()
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO checkpoints (thread_id, step, state, frontier, metadata, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(thread_id, step) DO UPDATE SET state=excluded.state, frontier=excluded.frontier, metadata=excluded.metadata, timestamp=excluded.timestamp
	`, cp.ThreadID, cp.Step, string(values), string(frontier), string(meta), ts.UnixNano())
	if err != nil {
		return fmt.Errorf("store: save checkpoint: %w", err)
	}
	return nil
}

// Load implements graph.Store.
func (s *SQLiteStore) Load(ctx context.Context, thread string, step int, hasStep bool) (graph.Checkpoint, bool, error) {
	var row *sql.Row
	if hasStep {
		row = s.db.QueryRowContext(ctx, `SELECT step, state, frontier, metadata, timestamp FROM checkpoints WHERE thread_id=? AND step=?`, thread, step)
	} else {
		row = s.db.QueryRowContext(ctx, `SELECT step, state, frontier, metadata, timestamp FROM checkpoints WHERE thread_id=? ORDER BY step DESC LIMIT 1`, thread)
	}
	return scanCheckpoint(row, thread)
}

func scanCheckpoint(row *sql.Row, thread string) (graph.Checkpoint, bool, error) {
	var (
		step         int
		stateJSON    string
		frontierJSON sql.NullString
		metaJSON     sql.NullString
		timestamp    int64
	)
	if err := row.Scan(&step, &stateJSON, &frontierJSON, &metaJSON, &timestamp); err != nil {
		if err == sql.ErrNoRows {
			return graph.Checkpoint{}, false, nil
		}
		return graph.Checkpoint{}, false, fmt.Errorf("store: scan checkpoint: %w", err)
	}

	var values map[string]any
	if err := json.Unmarshal([]byte(stateJSON), &values); err != nil {
		return graph.Checkpoint{}, false, fmt.Errorf("store: unmarshal state: %w", err)
	}
	var frontierRecs []frontierRecord
	if frontierJSON.Valid && frontierJSON.String != "" {
		if err := json.Unmarshal([]byte(frontierJSON.String), &frontierRecs); err != nil {
			return graph.Checkpoint{}, false, fmt.Errorf("store: unmarshal frontier: %w", err)
		}
	}
	var meta map[string]any
	if metaJSON.Valid && metaJSON.String != "" {
		if err := json.Unmarshal([]byte(metaJSON.String), &meta); err != nil {
			return graph.Checkpoint{}, false, fmt.Errorf("store: unmarshal metadata: %w", err)
		}
	}

	return graph.Checkpoint{
		ThreadID:  thread,
		Step:      step,
		State:     graph.NewState(values, nil),
		Frontier:  fromFrontierRecords(frontierRecs),
		Timestamp: unixNanoToTime(timestamp),
		Metadata:  meta,
	}, true, nil
}

// ListThreads implements graph.Store.
func (s *SQLiteStore) ListThreads(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT thread_id FROM checkpoints`)
	if err != nil {
		return nil, fmt.Errorf("store: list threads: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	sort.Strings(out)
	return out, rows.Err()
}

// ListSteps implements graph.Store.
func (s *SQLiteStore) ListSteps(ctx context.Context, thread string) ([]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT step FROM checkpoints WHERE thread_id=? ORDER BY step ASC`, thread)
	if err != nil {
		return nil, fmt.Errorf("store: list steps: %w", err)
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var step int
		if err := rows.Scan(&step); err != nil {
			return nil, err
		}
		out = append(out, step)
	}
	return out, rows.Err()
}

// Delete implements graph.Store.
func (s *SQLiteStore) Delete(ctx context.Context, thread string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM checkpoints WHERE thread_id=?`, thread)
	if err != nil {
		return fmt.Errorf("store: delete thread: %w", err)
	}
	return nil
}
