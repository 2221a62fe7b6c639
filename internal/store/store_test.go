package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/mohammadijoo/DronePath_Go/internal/scene"
	"github.com/mohammadijoo/DronePath_Go/internal/trajectory"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveAndLoadRun(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	run := &Run{
		Speed:     0.6,
		Dt:        1.0 / 240.0,
		Eps:       0.05,
		MaxSteps:  12000,
		Waypoints: scene.DefaultWaypoints(),
		Obstacles: []scene.Obstacle{{Center: r3.Vec{X: 0.5, Z: 0.3}, Radius: 0.1}},
		Reached:   true,
		Steps:     3,
		Reason:    "reached",
	}
	rows := []trajectory.Row{
		{T: 0, Pos: r3.Vec{Z: 0.3}, WaypointIndex: 0, Dist: 1},
		{T: 0.1, Pos: r3.Vec{X: 0.06, Z: 0.3}, WaypointIndex: 0, Dist: 0.94},
		{T: 0.2, Pos: r3.Vec{X: 0.12, Z: 0.3}, WaypointIndex: 1, Dist: 0.88},
	}
	require.NoError(t, s.SaveRun(ctx, run, rows))
	require.NotEmpty(t, run.ID)

	got, err := s.LoadRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.Waypoints, got.Waypoints)
	assert.Equal(t, run.Obstacles, got.Obstacles)
	assert.True(t, got.Reached)
	assert.Equal(t, 3, got.Steps)
	assert.Equal(t, "reached", got.Reason)
	assert.WithinDuration(t, run.StartedAt, got.StartedAt, time.Millisecond)

	gotRows, err := s.LoadRows(ctx, run.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(rows, gotRows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestLatestRunID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.LatestRunID(ctx)
	assert.ErrorIs(t, err, ErrRunNotFound)

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	older := &Run{ID: "older", StartedAt: base, Speed: 1, Dt: 0.01, Eps: 0.05, MaxSteps: 1}
	newer := &Run{ID: "newer", StartedAt: base.Add(time.Minute), Speed: 1, Dt: 0.01, Eps: 0.05, MaxSteps: 1}
	require.NoError(t, s.SaveRun(ctx, newer, nil))
	require.NoError(t, s.SaveRun(ctx, older, nil))

	id, err := s.LatestRunID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "newer", id)

	ids, err := s.ListRuns(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"newer", "older"}, ids)
}

func TestLoadRows_UnknownRun(t *testing.T) {
	s := openTestStore(t)
	_, err := s.LoadRows(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestSaveRun_DuplicateIDRollsBack(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	run := &Run{ID: "dup", Speed: 1, Dt: 0.01, Eps: 0.05, MaxSteps: 1}
	require.NoError(t, s.SaveRun(ctx, run, []trajectory.Row{{T: 0}}))

	again := &Run{ID: "dup", Speed: 1, Dt: 0.01, Eps: 0.05, MaxSteps: 1}
	assert.Error(t, s.SaveRun(ctx, again, []trajectory.Row{{T: 0}, {T: 1}}))

	rows, err := s.LoadRows(ctx, "dup")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
