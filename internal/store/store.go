// Package store archives runs and their trajectories in SQLite.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"
	_ "modernc.org/sqlite"

	"github.com/mohammadijoo/DronePath_Go/internal/scene"
	"github.com/mohammadijoo/DronePath_Go/internal/trajectory"
)

// schema.sql creates the runs and trajectory_rows tables.
//
//go:embed schema.sql
var schemaSQL string

// startedAtLayout is fixed-width so started_at sorts as text.
const startedAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrRunNotFound is returned when a run ID is unknown or the store is empty.
var ErrRunNotFound = errors.New("store: run not found")

// Run is the metadata of one simulation run.
type Run struct {
	ID        string
	StartedAt time.Time
	Speed     float64
	Dt        float64
	Eps       float64
	MaxSteps  int
	Waypoints []r3.Vec
	Obstacles []scene.Obstacle
	Reached   bool
	Steps     int
	Reason    string
}

// Store is a SQLite run archive.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the
// schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// SaveRun inserts run and its rows in one transaction. An empty run.ID is
// replaced by a new UUID, and a zero StartedAt by the current time.
func (s *Store) SaveRun(ctx context.Context, run *Run, rows []trajectory.Row) (err error) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	wpJSON, err := scene.MarshalWaypoints(run.Waypoints)
	if err != nil {
		return fmt.Errorf("store: encode waypoints: %w", err)
	}
	obsJSON, err := scene.MarshalObstacles(run.Obstacles)
	if err != nil {
		return fmt.Errorf("store: encode obstacles: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (run_id, started_at, speed, dt, eps, max_steps,
			waypoints_json, obstacles_json, reached, steps, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.StartedAt.UTC().Format(startedAtLayout), run.Speed, run.Dt, run.Eps, run.MaxSteps,
		string(wpJSON), string(obsJSON), boolToInt(run.Reached), run.Steps, run.Reason)
	if err != nil {
		return fmt.Errorf("store: insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trajectory_rows (run_id, seq, t, x, y, z, wp_i, dist)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("store: prepare rows: %w", err)
	}
	defer stmt.Close()

	for i, r := range rows {
		if _, err = stmt.ExecContext(ctx, run.ID, i, r.T, r.Pos.X, r.Pos.Y, r.Pos.Z, r.WaypointIndex, r.Dist); err != nil {
			return fmt.Errorf("store: insert row %d: %w", i, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

// LoadRun returns the metadata of run id.
func (s *Store) LoadRun(ctx context.Context, id string) (*Run, error) {
	var (
		run       Run
		reached   int
		startedAt string
		wpJSON    string
		obsJSON   string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT run_id, started_at, speed, dt, eps, max_steps,
			waypoints_json, obstacles_json, reached, steps, reason
		FROM runs WHERE run_id = ?
	`, id).Scan(&run.ID, &startedAt, &run.Speed, &run.Dt, &run.Eps, &run.MaxSteps,
		&wpJSON, &obsJSON, &reached, &run.Steps, &run.Reason)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("store: load run %s: %w", id, err)
	}

	run.Reached = reached != 0
	if run.StartedAt, err = time.Parse(startedAtLayout, startedAt); err != nil {
		return nil, fmt.Errorf("store: run %s: started_at: %w", id, err)
	}
	if run.Waypoints, err = scene.ParseWaypoints([]byte(wpJSON)); err != nil && !errors.Is(err, scene.ErrNoWaypoints) {
		return nil, fmt.Errorf("store: run %s: %w", id, err)
	}
	if run.Obstacles, err = scene.ParseObstacles([]byte(obsJSON)); err != nil {
		return nil, fmt.Errorf("store: run %s: %w", id, err)
	}
	return &run, nil
}

// LoadRows returns the trajectory of run id in logging order.
func (s *Store) LoadRows(ctx context.Context, id string) ([]trajectory.Row, error) {
	if _, err := s.LoadRun(ctx, id); err != nil {
		return nil, err
	}
	rs, err := s.db.QueryContext(ctx, `
		SELECT t, x, y, z, wp_i, dist FROM trajectory_rows
		WHERE run_id = ? ORDER BY seq
	`, id)
	if err != nil {
		return nil, fmt.Errorf("store: query rows: %w", err)
	}
	defer rs.Close()

	var rows []trajectory.Row
	for rs.Next() {
		var r trajectory.Row
		if err := rs.Scan(&r.T, &r.Pos.X, &r.Pos.Y, &r.Pos.Z, &r.WaypointIndex, &r.Dist); err != nil {
			return nil, fmt.Errorf("store: scan row: %w", err)
		}
		rows = append(rows, r)
	}
	return rows, rs.Err()
}

// LatestRunID returns the most recently started run.
func (s *Store) LatestRunID(ctx context.Context) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT run_id FROM runs ORDER BY started_at DESC LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrRunNotFound
	}
	if err != nil {
		return "", fmt.Errorf("store: latest run: %w", err)
	}
	return id, nil
}

// ListRuns returns all runs, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]string, error) {
	rs, err := s.db.QueryContext(ctx, `SELECT run_id FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("store: list runs: %w", err)
	}
	defer rs.Close()
	var ids []string
	for rs.Next() {
		var id string
		if err := rs.Scan(&id); err != nil {
			return nil, fmt.Errorf("store: scan run id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rs.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
