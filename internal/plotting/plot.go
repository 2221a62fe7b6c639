package plotting

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mohammadijoo/DronePath_Go/internal/trajectory"
)

// Output file names, written into the output directory.
const (
	Trajectory3DFile  = "trajectory_3d.png"
	TrajectoryXYFile  = "trajectory_xy.png"
	TrajectoryXZFile  = "trajectory_xz.png"
	DistanceFile      = "distance.png"
	WaypointIndexFile = "waypoint_index.png"
	Trajectory3DHTML  = "trajectory_3d.html"
)

type chartJob struct {
	file string
	draw func(filename string) error
}

// Render writes every chart for in into outDir and returns the written paths
// in a fixed order. Charts are drawn concurrently; the first failure cancels
// the ones not yet started.
func Render(ctx context.Context, in Input, outDir string, html bool, logger *zap.Logger) ([]string, error) {
	if len(in.Rows) == 0 {
		return nil, ErrNoRows
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("plotting: cannot create output dir: %w", err)
	}

	t, _, _, _, idx, dist := trajectory.Columns(in.Rows)
	jobs := []chartJob{
		{Trajectory3DFile, func(fn string) error { return saveTrajectory3D(in, fn) }},
		{TrajectoryXYFile, func(fn string) error {
			return saveProjection(in, fn, "Trajectory (top view)", "X (m)", "Y (m)", topView)
		}},
		{TrajectoryXZFile, func(fn string) error {
			return saveProjection(in, fn, "Trajectory (side view)", "X (m)", "Z (m)", sideView)
		}},
		{DistanceFile, func(fn string) error {
			return saveSeries(fn, "Distance to active waypoint", "distance (m)", t, dist, false)
		}},
		{WaypointIndexFile, func(fn string) error {
			return saveSeries(fn, "Active waypoint index", "waypoint index", t, idx, true)
		}},
	}
	if html {
		jobs = append(jobs, chartJob{Trajectory3DHTML, func(fn string) error { return saveHTML(in, fn) }})
	}

	g, gctx := errgroup.WithContext(ctx)
	paths := make([]string, len(jobs))
	for i, job := range jobs {
		fn := filepath.Join(outDir, job.file)
		paths[i] = fn
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := job.draw(fn); err != nil {
				return fmt.Errorf("plotting: %s: %w", job.file, err)
			}
			logger.Debug("chart written", zap.String("path", fn))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}
