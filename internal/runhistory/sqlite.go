package runhistory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/tunebench/hypertune/internal/space"
	"github.com/tunebench/hypertune/internal/tae"
)

const schema = `
CREATE TABLE IF NOT EXISTS trials (
    id TEXT PRIMARY KEY,
    experiment_id TEXT NOT NULL,
    config TEXT NOT NULL,        -- JSON
    config_key TEXT NOT NULL,
    instance TEXT,
    seed INTEGER NOT NULL,
    budget REAL NOT NULL,
    status TEXT NOT NULL,
    cost REAL NOT NULL,
    runtime_ms INTEGER NOT NULL,
    error TEXT,
    incumbent INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL  -- unix nanoseconds
);
CREATE INDEX IF NOT EXISTS idx_trials_experiment ON trials(experiment_id, created_at);
CREATE INDEX IF NOT EXISTS idx_trials_config_key ON trials(config_key);
`

// SQLiteStore persists trials to a SQLite database
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) a trial database at path
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open trial database: %w", err)
	}

	// SQLite works best with a single writer
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize trial schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Save persists a trial
func (s *SQLiteStore) Save(ctx context.Context, t *Trial) error {
	if t == nil || t.ID == "" {
		return fmt.Errorf("trial id is required")
	}

	cfgJSON, err := json.Marshal(t.Config)
	if err != nil {
		return fmt.Errorf("failed to encode trial config: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO trials (id, experiment_id, config, config_key, instance, seed,
		                    budget, status, cost, runtime_ms, error, incumbent, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.ExperimentID, string(cfgJSON), t.ConfigKey, t.Instance, t.Seed,
		t.Budget, string(t.Status), t.Cost, t.RuntimeMs, t.Error,
		boolToInt(t.Incumbent), t.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to save trial %s: %w", t.ID, err)
	}
	return nil
}

// List returns trials for an experiment in creation order. An empty
// experimentID returns trials across all experiments.
func (s *SQLiteStore) List(ctx context.Context, experimentID string, limit int) ([]*Trial, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, experiment_id, config, config_key, instance, seed,
		       budget, status, cost, runtime_ms, error, incumbent, created_at
		FROM trials`
	args := []any{}
	if experimentID != "" {
		query += ` WHERE experiment_id = ?`
		args = append(args, experimentID)
	}
	query += ` ORDER BY created_at, id LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list trials: %w", err)
	}
	defer rows.Close()

	var out []*Trial
	for rows.Next() {
		t, err := scanTrial(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Incumbents returns the persisted incumbent trajectory for an experiment
func (s *SQLiteStore) Incumbents(ctx context.Context, experimentID string) ([]*Trial, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, experiment_id, config, config_key, instance, seed,
		       budget, status, cost, runtime_ms, error, incumbent, created_at
		FROM trials
		WHERE experiment_id = ? AND incumbent = 1
		ORDER BY created_at, id`, experimentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list incumbents: %w", err)
	}
	defer rows.Close()

	var out []*Trial
	for rows.Next() {
		t, err := scanTrial(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTrial(rows *sql.Rows) (*Trial, error) {
	var (
		t         Trial
		cfgJSON   string
		status    string
		incumbent int
		createdAt int64
	)
	if err := rows.Scan(&t.ID, &t.ExperimentID, &cfgJSON, &t.ConfigKey, &t.Instance,
		&t.Seed, &t.Budget, &status, &t.Cost, &t.RuntimeMs, &t.Error,
		&incumbent, &createdAt); err != nil {
		return nil, fmt.Errorf("failed to scan trial: %w", err)
	}

	var cfg space.Configuration
	if err := json.Unmarshal([]byte(cfgJSON), &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode trial config: %w", err)
	}
	t.Config = cfg
	t.Status = tae.Status(status)
	t.Incumbent = incumbent != 0
	t.CreatedAt = time.Unix(0, createdAt).UTC()

	return &t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
