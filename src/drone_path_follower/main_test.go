package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/mohammadijoo/DronePath_Go/internal/config"
	"github.com/mohammadijoo/DronePath_Go/internal/scene"
	"github.com/mohammadijoo/DronePath_Go/internal/store"
	"github.com/mohammadijoo/DronePath_Go/internal/trajectory"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	v, err := config.NewViper("")
	require.NoError(t, err)
	cfg, err := config.Load(v)
	require.NoError(t, err)

	dir := t.TempDir()
	cfg.Paths.Waypoints = filepath.Join(dir, "missing_waypoints.json")
	cfg.Paths.Obstacles = filepath.Join(dir, "missing_obstacles.json")
	cfg.Paths.TrajOut = filepath.Join(dir, "out", "trajectory.csv")
	return cfg
}

func TestRun_DefaultScene(t *testing.T) {
	cfg := testConfig(t)
	cfg.Paths.TrajDB = filepath.Join(filepath.Dir(cfg.Paths.TrajOut), "runs.db")

	require.NoError(t, run(context.Background(), cfg, zap.NewNop()))

	rows, err := trajectory.ReadCSV(cfg.Paths.TrajOut)
	require.NoError(t, err)
	require.NotEmpty(t, rows)

	route := scene.DefaultWaypoints()
	last := rows[len(rows)-1]
	assert.Less(t, r3.Norm(r3.Sub(last.Pos, route[len(route)-1])), cfg.Sim.Eps)
	assert.Equal(t, len(route)-1, last.WaypointIndex)

	st, err := store.Open(cfg.Paths.TrajDB)
	require.NoError(t, err)
	defer st.Close()
	id, err := st.LatestRunID(context.Background())
	require.NoError(t, err)
	saved, err := st.LoadRun(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, saved.Reached)
	assert.Equal(t, route, saved.Waypoints)
	stored, err := st.LoadRows(context.Background(), id)
	require.NoError(t, err)
	assert.Len(t, stored, len(rows))
}

func TestRun_StepCapStillWritesLog(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sim.MaxSteps = 25

	require.NoError(t, run(context.Background(), cfg, zap.NewNop()))

	rows, err := trajectory.ReadCSV(cfg.Paths.TrajOut)
	require.NoError(t, err)
	assert.Len(t, rows, 25)
}

func TestRun_Wind(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sim.WindY = 0.2
	cfg.Sim.MaxSteps = 240

	require.NoError(t, run(context.Background(), cfg, zap.NewNop()))
	rows, err := trajectory.ReadCSV(cfg.Paths.TrajOut)
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	// The first leg runs along +X; the wind pushes the drone off the line.
	assert.Greater(t, rows[len(rows)-1].Pos.Y, 0.0)
}

func TestRun_UsesSceneFiles(t *testing.T) {
	cfg := testConfig(t)
	dir := filepath.Dir(cfg.Paths.Waypoints)
	require.NoError(t, os.WriteFile(cfg.Paths.Waypoints, []byte(`[[0.3, 0, 0.3]]`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "obs.json"), []byte(`[{"center": [2, 2, 0.3], "radius": 0.1}]`), 0o644))
	cfg.Paths.Obstacles = filepath.Join(dir, "obs.json")

	require.NoError(t, run(context.Background(), cfg, zap.NewNop()))
	rows, err := trajectory.ReadCSV(cfg.Paths.TrajOut)
	require.NoError(t, err)
	last := rows[len(rows)-1]
	assert.Less(t, r3.Norm(r3.Sub(last.Pos, r3.Vec{X: 0.3, Z: 0.3})), cfg.Sim.Eps)
	assert.Equal(t, 0, last.WaypointIndex)
}

func TestBindFlags(t *testing.T) {
	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--speed", "0.9", "--max-steps", "50", "--traj-out", "x.csv", "--gui"}))

	v, err := config.NewViper("")
	require.NoError(t, err)
	require.NoError(t, bindFlags(v, cmd.Flags()))
	cfg, err := config.Load(v)
	require.NoError(t, err)

	assert.InDelta(t, 0.9, cfg.Sim.Speed, 1e-12)
	assert.Equal(t, 50, cfg.Sim.MaxSteps)
	assert.Equal(t, "x.csv", cfg.Paths.TrajOut)
	assert.True(t, cfg.Sim.GUI)
	assert.InDelta(t, 0.05, cfg.Sim.Eps, 1e-12)
}

func TestRootCmd_RejectsNonFiniteParameters(t *testing.T) {
	for _, args := range [][]string{
		{"--speed", "NaN"},
		{"--influence", "NaN"},
		{"--dt", "+Inf"},
		{"--eps", "NaN"},
	} {
		out := filepath.Join(t.TempDir(), "trajectory.csv")
		cmd := newRootCmd()
		cmd.SetArgs(append(args, "--traj-out", out, "--log-level", "error"))
		err := cmd.ExecuteContext(context.Background())
		assert.ErrorContains(t, err, "invalid configuration", "%v", args)
		assert.NoFileExists(t, out)
	}
}
