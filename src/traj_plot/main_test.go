package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/mohammadijoo/DronePath_Go/internal/config"
	"github.com/mohammadijoo/DronePath_Go/internal/plotting"
	"github.com/mohammadijoo/DronePath_Go/internal/scene"
	"github.com/mohammadijoo/DronePath_Go/internal/store"
	"github.com/mohammadijoo/DronePath_Go/internal/trajectory"
)

func sampleRows() []trajectory.Row {
	rows := make([]trajectory.Row, 20)
	for i := range rows {
		x := float64(i) / 19
		rows[i] = trajectory.Row{T: float64(i) / 240, Pos: r3.Vec{X: x, Z: 0.3}, Dist: 1 - x}
	}
	return rows
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	v, err := config.NewViper("")
	require.NoError(t, err)
	cfg, err := config.Load(v)
	require.NoError(t, err)

	dir := t.TempDir()
	cfg.Plot.Traj = filepath.Join(dir, "trajectory.csv")
	cfg.Plot.OutDir = filepath.Join(dir, "plots")
	cfg.Paths.Waypoints = filepath.Join(dir, "waypoints.json")
	cfg.Paths.Obstacles = filepath.Join(dir, "obstacles.json")
	return cfg
}

func TestRun_FromCSVWithoutSceneFiles(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, trajectory.WriteCSV(cfg.Plot.Traj, sampleRows()))

	require.NoError(t, run(context.Background(), cfg, zap.NewNop()))
	for _, name := range []string{plotting.Trajectory3DFile, plotting.DistanceFile, plotting.Trajectory3DHTML} {
		_, err := os.Stat(filepath.Join(cfg.Plot.OutDir, name))
		assert.NoError(t, err, name)
	}
}

func TestLoad_CSVWithSceneFiles(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, trajectory.WriteCSV(cfg.Plot.Traj, sampleRows()))
	require.NoError(t, os.WriteFile(cfg.Paths.Waypoints, []byte(`[[1, 0, 0.3]]`), 0o644))
	require.NoError(t, os.WriteFile(cfg.Paths.Obstacles, []byte(`not json`), 0o644))

	in, err := load(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Len(t, in.Rows, 20)
	assert.Equal(t, []r3.Vec{{X: 1, Z: 0.3}}, in.Waypoints)
	assert.Empty(t, in.Obstacles)
}

func TestLoad_MissingCSV(t *testing.T) {
	cfg := testConfig(t)
	_, err := load(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestLoad_FromStore(t *testing.T) {
	cfg := testConfig(t)
	cfg.Plot.DB = filepath.Join(t.TempDir(), "runs.db")

	st, err := store.Open(cfg.Plot.DB)
	require.NoError(t, err)
	obstacles := []scene.Obstacle{{Center: r3.Vec{X: 0.5, Z: 0.3}, Radius: 0.1}}
	first := &store.Run{Waypoints: scene.DefaultWaypoints(), Reason: "reached"}
	require.NoError(t, st.SaveRun(context.Background(), first, sampleRows()[:5]))
	second := &store.Run{Waypoints: scene.DefaultWaypoints(), Obstacles: obstacles, Reason: "reached"}
	second.StartedAt = first.StartedAt.Add(1)
	require.NoError(t, st.SaveRun(context.Background(), second, sampleRows()))
	require.NoError(t, st.Close())

	in, err := load(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Len(t, in.Rows, 20)
	assert.Equal(t, obstacles, in.Obstacles)

	cfg.Plot.RunID = first.ID
	in, err = load(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Len(t, in.Rows, 5)
	assert.Empty(t, in.Obstacles)

	cfg.Plot.RunID = "nope"
	_, err = load(context.Background(), cfg, zap.NewNop())
	assert.ErrorIs(t, err, store.ErrRunNotFound)
}

func TestListRuns(t *testing.T) {
	cfg := testConfig(t)
	var buf bytes.Buffer
	assert.Error(t, listRuns(context.Background(), cfg, &buf))

	cfg.Plot.DB = filepath.Join(t.TempDir(), "runs.db")
	st, err := store.Open(cfg.Plot.DB)
	require.NoError(t, err)
	r := &store.Run{Waypoints: scene.DefaultWaypoints(), Reason: "max_steps"}
	require.NoError(t, st.SaveRun(context.Background(), r, sampleRows()))
	require.NoError(t, st.Close())

	require.NoError(t, listRuns(context.Background(), cfg, &buf))
	assert.Equal(t, r.ID+"\n", buf.String())
}

func TestBindFlags_Logging(t *testing.T) {
	cmd := newRootCmd()
	logFile := filepath.Join(t.TempDir(), "plot.log")
	require.NoError(t, cmd.ParseFlags([]string{"--log-level", "debug", "--log-file", logFile, "--log-format", "json"}))

	v, err := config.NewViper("")
	require.NoError(t, err)
	require.NoError(t, bindFlags(v, cmd.Flags()))
	cfg, err := config.Load(v)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, logFile, cfg.Logger.LogFile)
	assert.Equal(t, "json", cfg.Logger.Format)
}
