// ------------------------------------------------------------
// Offline trajectory plotter
// ------------------------------------------------------------
// Reads a trajectory written by drone_path_follower, either the CSV log or a
// run from the SQLite archive, and draws it next to the waypoints and
// obstacles of the scene.
//
// Outputs (--out, default output/traj_plot):
//   trajectory_3d.png      oblique 3D view with start/end, waypoints, obstacles
//   trajectory_xy.png      top view
//   trajectory_xz.png      side view
//   distance.png           distance to the active waypoint over time
//   waypoint_index.png     active waypoint index over time
//   trajectory_3d.html     interactive 3D chart (--html)
// ------------------------------------------------------------

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/mohammadijoo/DronePath_Go/internal/config"
	"github.com/mohammadijoo/DronePath_Go/internal/observability"
	"github.com/mohammadijoo/DronePath_Go/internal/plotting"
	"github.com/mohammadijoo/DronePath_Go/internal/scene"
	"github.com/mohammadijoo/DronePath_Go/internal/store"
	"github.com/mohammadijoo/DronePath_Go/internal/trajectory"
)

var flagKeys = map[string]string{
	"traj":       "plot.traj",
	"db":         "plot.db",
	"run":        "plot.run",
	"out":        "plot.out",
	"html":       "plot.html",
	"waypoints":  "paths.waypoints",
	"obstacles":  "paths.obstacles",
	"log-level":  "logger.level",
	"log-file":   "logger.log_file",
	"log-format": "logger.format",
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for flag, key := range flagKeys {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return fmt.Errorf("bind --%s: %w", flag, err)
		}
	}
	return nil
}

func newRootCmd() *cobra.Command {
	var (
		cfgFile string
		list    bool
		cfg     *config.Config
	)

	cmd := &cobra.Command{
		Use:           "traj_plot",
		Short:         "Plot a logged drone trajectory",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v, err := config.NewViper(cfgFile)
			if err != nil {
				return err
			}
			if err := bindFlags(v, cmd.Flags()); err != nil {
				return err
			}
			if cfg, err = config.Load(v); err != nil {
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "traj_plot"})
				return err
			}
			cfg.Logger.ServiceName = "traj_plot"
			observability.InitializeLogger(cfg.Logger)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if list {
				return listRuns(ctx, cfg, cmd.OutOrStdout())
			}
			return run(ctx, cfg, observability.GetLogger())
		},
	}

	f := cmd.Flags()
	f.StringVarP(&cfgFile, "config", "c", "", "config file (default is ./drone.yaml)")
	f.String("traj", "trajectory.csv", "trajectory CSV to plot")
	f.String("db", "", "read the trajectory from this SQLite run archive instead of --traj")
	f.String("run", "", "run ID in --db (latest run if empty)")
	f.String("out", "output/traj_plot", "output directory")
	f.BoolVar(&list, "list", false, "print the run IDs in --db, newest first, and exit")
	f.Bool("html", true, "also write an interactive HTML chart")
	f.String("waypoints", "waypoints.json", "waypoint file, skipped if unreadable")
	f.String("obstacles", "obstacles.json", "obstacle file, skipped if unreadable")
	f.String("log-level", "info", "log level (debug, info, warn, error)")
	f.String("log-file", "", "optional rotated JSON log file")
	f.String("log-format", "console", "console log format (console or json)")
	return cmd
}

func main() {
	err := newRootCmd().ExecuteContext(context.Background())
	observability.Sync()
	if err != nil {
		if logger := observability.GetLogger(); logger.Core().Enabled(zap.ErrorLevel) {
			logger.Error("plot failed", zap.Error(err))
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

// load returns the rows to plot and the scene to draw them against. A run
// from the archive carries its own scene; with a CSV the scene files are read
// and silently skipped when they cannot be used.
func load(ctx context.Context, cfg *config.Config, logger *zap.Logger) (plotting.Input, error) {
	if cfg.Plot.DB != "" {
		st, err := store.Open(cfg.Plot.DB)
		if err != nil {
			return plotting.Input{}, err
		}
		defer st.Close()

		id := cfg.Plot.RunID
		if id == "" {
			if id, err = st.LatestRunID(ctx); err != nil {
				return plotting.Input{}, err
			}
		}
		meta, err := st.LoadRun(ctx, id)
		if err != nil {
			return plotting.Input{}, err
		}
		rows, err := st.LoadRows(ctx, id)
		if err != nil {
			return plotting.Input{}, err
		}
		logger.Info("loaded run", zap.String("run_id", id), zap.String("reason", meta.Reason), zap.Int("rows", len(rows)))
		return plotting.Input{Rows: rows, Waypoints: meta.Waypoints, Obstacles: meta.Obstacles}, nil
	}

	rows, err := trajectory.ReadCSV(cfg.Plot.Traj)
	if err != nil {
		return plotting.Input{}, err
	}
	in := plotting.Input{Rows: rows}
	if in.Waypoints, err = scene.ReadWaypoints(cfg.Paths.Waypoints); err != nil {
		logger.Debug("skipping waypoints", zap.String("path", cfg.Paths.Waypoints), zap.Error(err))
	}
	if in.Obstacles, err = scene.ReadObstacles(cfg.Paths.Obstacles); err != nil {
		logger.Debug("skipping obstacles", zap.String("path", cfg.Paths.Obstacles), zap.Error(err))
	}
	logger.Info("loaded trajectory", zap.String("path", cfg.Plot.Traj), zap.Int("rows", len(rows)))
	return in, nil
}

func listRuns(ctx context.Context, cfg *config.Config, w io.Writer) error {
	if cfg.Plot.DB == "" {
		return errors.New("--list needs --db")
	}
	st, err := store.Open(cfg.Plot.DB)
	if err != nil {
		return err
	}
	defer st.Close()
	ids, err := st.ListRuns(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		fmt.Fprintln(w, id)
	}
	return nil
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	in, err := load(ctx, cfg, logger)
	if err != nil {
		return err
	}
	paths, err := plotting.Render(ctx, in, cfg.Plot.OutDir, cfg.Plot.HTML, logger.Named("plotting"))
	if err != nil {
		return err
	}
	for _, p := range paths {
		logger.Info("saved", zap.String("path", p))
	}
	logger.Info("trajectory summary", zap.Object("summary", trajectory.Summarize(in.Rows, in.Obstacles)))
	return nil
}
