package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"

	_ "github.com/go-sql-driver/mysql"

	"github.com/supersteprun/graph/graph"
)

// MySQLStore is a graph.Store backed by a single MySQL/MariaDB checkpoints
// table keyed by (thread_id, step).
//
// Unlike SQLiteStore, MySQLStore's connection pool is left at the driver's
// defaults: MySQL tolerates concurrent writers, so Save/Load for different
// threads genuinely run independently.
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore opens a connection pool against dsn (e.g.
// "user:pass@tcp(host:3306)/db?parseTime=true") and ensures the checkpoints
// table exists.
func NewMySQLStore(ctx context.Context, dsn string) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open mysql: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: ping mysql: %w", err)
	}

	s := &MySQLStore{db: db}
	if err := s.createTable(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *MySQLStore) createTable(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS checkpoints (
			thread_id VARCHAR(255) NOT NULL,
			step      INT NOT NULL,
			state     LONGTEXT NOT NULL,
			frontier  LONGTEXT,
			metadata  LONGTEXT,
			timestamp BIGINT NOT NULL,
			PRIMARY KEY (thread_id, step)
		) ENGINE=InnoDB`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("store: create checkpoints table: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *MySQLStore) Close() error { return s.db.Close() }

// Save implements graph.Store.
func (s *MySQLStore) Save(ctx context.Context, cp graph.Checkpoint) error {
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
		ON DUPLICATE KEY UPDATE state=VALUES(state), frontier=VALUES(frontier), metadata=VALUES(metadata), timestamp=VALUES(timestamp)
	`, cp.ThreadID, cp.Step, string(values), string(frontier), string(meta), ts.UnixNano())
	if err != nil {
		return fmt.Errorf("store: save checkpoint: %w", err)
	}
	return nil
}

// Load implements graph.Store.
func (s *MySQLStore) Load(ctx context.Context, thread string, step int, hasStep bool) (graph.Checkpoint, bool, error) {
	var row *sql.Row
	if hasStep {
		row = s.db.QueryRowContext(ctx, `SELECT step, state, frontier, metadata, timestamp FROM checkpoints WHERE thread_id=? AND step=?`, thread, step)
	} else {
		row = s.db.QueryRowContext(ctx, `SELECT step, state, frontier, metadata, timestamp FROM checkpoints WHERE thread_id=? ORDER BY step DESC LIMIT 1`, thread)
	}

	var (
		gotStep      int
		stateJSON    string
		frontierJSON sql.NullString
		metaJSON     sql.NullString
		timestamp    int64
	)
	if err := row.Scan(&gotStep, &stateJSON, &frontierJSON, &metaJSON, &timestamp); err != nil {
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
		Step:      gotStep,
		State:     graph.NewState(values, nil),
		Frontier:  fromFrontierRecords(frontierRecs),
		Timestamp: unixNanoToTime(timestamp),
		Metadata:  meta,
	}, true, nil
}

// ListThreads implements graph.Store.
func (s *MySQLStore) ListThreads(ctx context.Context) ([]string, error) {
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
func (s *MySQLStore) ListSteps(ctx context.Context, thread string) ([]int, error) {
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
func (s *MySQLStore) Delete(ctx context.Context, thread string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM checkpoints WHERE thread_id=?`, thread)
	if err != nil {
		return fmt.Errorf("store: delete thread: %w", err)
	}
	return nil
}
