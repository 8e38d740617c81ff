// Package sqlite persists instance and run state so status queries work
// from a fresh process.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"berth/internal/orchestrator"
)

var _ orchestrator.StateStore = (*Store)(nil)

type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set state db journal mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set state db busy timeout: %w", err)
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS instances (
	project TEXT NOT NULL,
	service TEXT NOT NULL,
	container_name TEXT NOT NULL,
	run_id TEXT NOT NULL,
	phase TEXT NOT NULL,
	restarts INTEGER NOT NULL DEFAULT 0,
	last_error TEXT NOT NULL DEFAULT '',
	updated_at TEXT NOT NULL,
	PRIMARY KEY (project, service)
)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize instances schema: %w", err)
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	project TEXT NOT NULL,
	status TEXT NOT NULL,
	started_at TEXT NOT NULL,
	finished_at TEXT NOT NULL DEFAULT ''
)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize runs schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) UpsertInstance(ctx context.Context, row orchestrator.InstanceRow) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO instances (project, service, container_name, run_id, phase, restarts, last_error, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(project, service) DO UPDATE SET
	container_name = excluded.container_name,
	run_id = excluded.run_id,
	phase = excluded.phase,
	restarts = excluded.restarts,
	last_error = excluded.last_error,
	updated_at = excluded.updated_at`,
		row.Project, row.Service, row.ContainerName, row.RunID,
		row.Phase, row.Restarts, row.LastError, row.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert instance %s/%s: %w", row.Project, row.Service, err)
	}
	return nil
}

func (s *Store) ListInstances(ctx context.Context, project string) ([]orchestrator.InstanceRow, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT project, service, container_name, run_id, phase, restarts, last_error, updated_at
FROM instances WHERE project = ? ORDER BY service`, project)
	if err != nil {
		return nil, fmt.Errorf("list instances for %q: %w", project, err)
	}
	defer rows.Close()

	out := make([]orchestrator.InstanceRow, 0)
	for rows.Next() {
		var row orchestrator.InstanceRow
		if err := rows.Scan(&row.Project, &row.Service, &row.ContainerName, &row.RunID,
			&row.Phase, &row.Restarts, &row.LastError, &row.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan instance row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate instance rows: %w", err)
	}
	return out, nil
}

func (s *Store) DeleteInstances(ctx context.Context, project string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM instances WHERE project = ?`, project); err != nil {
		return fmt.Errorf("delete instances for %q: %w", project, err)
	}
	return nil
}

func (s *Store) InsertRun(ctx context.Context, row orchestrator.RunRow) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO runs (id, project, status, started_at, finished_at)
VALUES (?, ?, ?, ?, ?)`,
		row.ID, row.Project, row.Status, row.StartedAt, row.FinishedAt)
	if err != nil {
		return fmt.Errorf("insert run %q: %w", row.ID, err)
	}
	return nil
}

func (s *Store) FinishRun(ctx context.Context, id, status, finishedAt string) error {
	_, err := s.db.ExecContext(ctx, `
UPDATE runs SET status = ?, finished_at = ? WHERE id = ?`, status, finishedAt, id)
	if err != nil {
		return fmt.Errorf("finish run %q: %w", id, err)
	}
	return nil
}

func (s *Store) LatestRun(ctx context.Context, project string) (orchestrator.RunRow, bool, error) {
	var row orchestrator.RunRow
	err := s.db.QueryRowContext(ctx, `
SELECT id, project, status, started_at, finished_at
FROM runs WHERE project = ? ORDER BY started_at DESC LIMIT 1`, project).
		Scan(&row.ID, &row.Project, &row.Status, &row.StartedAt, &row.FinishedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return orchestrator.RunRow{}, false, nil
		}
		return orchestrator.RunRow{}, false, fmt.Errorf("query latest run for %q: %w", project, err)
	}
	return row, true, nil
}
