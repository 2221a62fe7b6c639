// ------------------------------------------------------------
// Drone waypoint follower with obstacle repulsion
// ------------------------------------------------------------
// A sphere "drone" flies through a list of 3D waypoints at constant speed
// while a potential field pushes it away from nearby obstacles.
//
// Outputs:
//   trajectory.csv                  t,x,y,z,wp_i,dist per step (--traj-out)
//   <traj-db>                       optional SQLite run archive (--traj-db)
//   assets/demo_frames/*.png        rendered frames (--record)
//   assets/demo.mp4                 if ffmpeg is in PATH (--record, --video)
// ------------------------------------------------------------

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/mohammadijoo/DronePath_Go/internal/config"
	"github.com/mohammadijoo/DronePath_Go/internal/navigation"
	"github.com/mohammadijoo/DronePath_Go/internal/observability"
	"github.com/mohammadijoo/DronePath_Go/internal/physics"
	"github.com/mohammadijoo/DronePath_Go/internal/render"
	"github.com/mohammadijoo/DronePath_Go/internal/scene"
	"github.com/mohammadijoo/DronePath_Go/internal/sim"
	"github.com/mohammadijoo/DronePath_Go/internal/store"
	"github.com/mohammadijoo/DronePath_Go/internal/trajectory"
	"github.com/mohammadijoo/DronePath_Go/internal/video"
)

// flagKeys maps command line flags to configuration keys.
var flagKeys = map[string]string{
	"gui":        "sim.gui",
	"speed":      "sim.speed",
	"dt":         "sim.dt",
	"eps":        "sim.eps",
	"max-steps":  "sim.max_steps",
	"wind-x":     "sim.wind_x",
	"wind-y":     "sim.wind_y",
	"influence":  "field.influence",
	"gain":       "field.gain",
	"waypoints":  "paths.waypoints",
	"obstacles":  "paths.obstacles",
	"traj-out":   "paths.traj_out",
	"traj-db":    "paths.traj_db",
	"record":     "video.record",
	"video":      "video.path",
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
		cfg     *config.Config
	)

	cmd := &cobra.Command{
		Use:           "drone_path_follower",
		Short:         "Fly a simulated drone through waypoints while avoiding obstacles",
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
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "drone"})
				return err
			}
			observability.InitializeLogger(cfg.Logger)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, observability.GetLogger())
		},
	}

	f := cmd.Flags()
	f.StringVarP(&cfgFile, "config", "c", "", "config file (default is ./drone.yaml)")
	f.Bool("gui", false, "pace the simulation in real time")
	f.Float64("speed", 0.6, "cruise speed (m/s)")
	f.Float64("dt", 1.0/240.0, "time step (s)")
	f.Float64("eps", 0.05, "waypoint arrival threshold (m)")
	f.Int("max-steps", 12000, "safety cap on simulation steps")
	f.Float64("wind-x", 0, "constant wind drift along X (m/s)")
	f.Float64("wind-y", 0, "constant wind drift along Y (m/s)")
	f.Float64("influence", 0.35, "obstacle influence radius (m)")
	f.Float64("gain", 0.6, "obstacle repulsion gain")
	f.String("waypoints", "waypoints.json", "waypoint file (JSON list of [x,y,z])")
	f.String("obstacles", "obstacles.json", "obstacle file (JSON list of {center, radius})")
	f.String("traj-out", "trajectory.csv", "trajectory CSV output")
	f.String("traj-db", "", "optional SQLite run archive")
	f.Bool("record", false, "render frames and encode an MP4")
	f.String("video", "assets/demo.mp4", "MP4 output path")
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
			logger.Error("run failed", zap.Error(err))
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

// run executes one simulation with cfg and writes its outputs.
func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	route := scene.LoadWaypoints(cfg.Paths.Waypoints, logger)
	obstacles := scene.LoadObstacles(cfg.Paths.Obstacles, logger)

	params := physics.DefaultParams(cfg.Sim.Dt)
	if cfg.Sim.WindX != 0 || cfg.Sim.WindY != 0 {
		params.Effects = append(params.Effects, physics.Wind{Velocity: r3.Vec{X: cfg.Sim.WindX, Y: cfg.Sim.WindY}})
	}
	world, err := physics.NewWorld(params)
	if err != nil {
		return err
	}

	var (
		recorder *video.Recorder
		sink     sim.FrameSink
	)
	if cfg.Video.Record {
		cam := render.DefaultCamera()
		cam.Width, cam.Height = cfg.Video.Width, cfg.Video.Height
		recorder, err = video.NewRecorder(cfg.Video.Path, max(1, int(1/cfg.Sim.Dt)), logger.Named("video"))
		if err != nil {
			_ = world.Close()
			return err
		}
		sink = sim.NewFrameCapture(render.NewRenderer(cam), recorder, route, obstacles, params.Radius)
	}

	driver, err := sim.NewDriver(world, route, obstacles, sim.Options{
		Speed:    cfg.Sim.Speed,
		Dt:       cfg.Sim.Dt,
		Eps:      cfg.Sim.Eps,
		MaxSteps: cfg.Sim.MaxSteps,
		Field:    navigation.Field{Influence: cfg.Field.Influence, Gain: cfg.Field.Gain},
		RealTime: cfg.Sim.GUI,
	}, sink, logger)
	if err != nil {
		_ = world.Close()
		return err
	}

	started := time.Now()
	res, runErr := driver.Run(ctx)
	rows := res.Log.Rows()

	// Outputs are written even after a failed or interrupted run.
	var errs []error
	if runErr != nil {
		errs = append(errs, runErr)
	}
	if err := res.Log.WriteCSV(cfg.Paths.TrajOut); err != nil {
		errs = append(errs, err)
	} else {
		logger.Info("wrote trajectory", zap.String("path", cfg.Paths.TrajOut), zap.Int("rows", len(rows)))
	}

	if cfg.Paths.TrajDB != "" {
		r := &store.Run{
			StartedAt: started,
			Speed:     cfg.Sim.Speed,
			Dt:        cfg.Sim.Dt,
			Eps:       cfg.Sim.Eps,
			MaxSteps:  cfg.Sim.MaxSteps,
			Waypoints: route,
			Obstacles: obstacles,
			Reached:   res.Reached,
			Steps:     res.Steps,
			Reason:    res.Reason,
		}
		if err := archive(context.WithoutCancel(ctx), cfg.Paths.TrajDB, r, rows); err != nil {
			errs = append(errs, err)
		} else {
			logger.Info("archived run", zap.String("db", cfg.Paths.TrajDB), zap.String("run_id", r.ID))
		}
	}

	if recorder != nil {
		recorder.Close(context.WithoutCancel(ctx))
	}

	logger.Info("run finished",
		zap.String("reason", res.Reason),
		zap.Bool("reached", res.Reached),
		zap.Int("steps", res.Steps),
		zap.Object("summary", trajectory.Summarize(rows, obstacles)))
	return errors.Join(errs...)
}

func archive(ctx context.Context, path string, r *store.Run, rows []trajectory.Row) error {
	st, err := store.Open(path)
	if err != nil {
		return err
	}
	defer st.Close()
	return st.SaveRun(ctx, r, rows)
}
