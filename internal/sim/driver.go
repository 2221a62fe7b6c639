// Package sim runs the waypoint-following loop against a physics engine.
package sim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/mohammadijoo/DronePath_Go/internal/navigation"
	"github.com/mohammadijoo/DronePath_Go/internal/scene"
	"github.com/mohammadijoo/DronePath_Go/internal/trajectory"
)

// Stop reasons reported in Result.Reason.
const (
	ReasonReached  = "reached"
	ReasonMaxSteps = "max_steps"
	ReasonCanceled = "canceled"
)

// Engine is the physics session the driver commands.
type Engine interface {
	Position() r3.Vec
	SetVelocity(v r3.Vec)
	Step() error
	Close() error
}

// FrameSink receives one frame request per step when recording. target is
// the camera target (the position read at the start of the step), drone the
// body position after the step.
type FrameSink interface {
	Capture(target, drone r3.Vec) error
}

// Options tunes the step loop.
type Options struct {
	Speed    float64 // m/s
	Dt       float64 // s
	Eps      float64 // arrival threshold (m)
	MaxSteps int
	Field    navigation.Field
	// RealTime sleeps Dt of wall time per step.
	RealTime bool
}

// Result describes how a run ended. Log holds every row, including the
// terminal row written on arrival.
type Result struct {
	Reached bool
	Steps   int
	Reason  string
	Log     *trajectory.Log
}

// Driver owns one run.
type Driver struct {
	engine    Engine
	nav       *navigation.Navigator
	opts      Options
	sink      FrameSink
	logger    *zap.Logger
	obstacles int
}

// NewDriver validates opts and builds the navigator for route and obstacles.
// sink may be nil.
func NewDriver(engine Engine, route []r3.Vec, obstacles []scene.Obstacle, opts Options, sink FrameSink, logger *zap.Logger) (*Driver, error) {
	if engine == nil {
		return nil, errors.New("sim: nil engine")
	}
	if !(opts.Dt > 0) || math.IsInf(opts.Dt, 1) || opts.MaxSteps <= 0 {
		return nil, fmt.Errorf("sim: dt and max steps must be positive (dt=%g, max_steps=%d)", opts.Dt, opts.MaxSteps)
	}
	nav, err := navigation.NewNavigator(route, obstacles, opts.Field, opts.Speed, opts.Eps)
	if err != nil {
		return nil, fmt.Errorf("sim: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{
		engine:    engine,
		nav:       nav,
		opts:      opts,
		sink:      sink,
		logger:    logger.Named("sim"),
		obstacles: len(obstacles),
	}, nil
}

// progressEvery is the number of steps between progress lines, about a
// quarter second of simulated time.
func progressEvery(dt float64) int {
	return max(1, int(0.25/dt))
}

// Run executes the step loop until the last waypoint is reached, MaxSteps
// steps have run, or ctx is cancelled. The engine is closed on return.
// Errors come only from the engine or the frame sink; the rows logged up to
// that point are still returned.
func (d *Driver) Run(ctx context.Context) (res *Result, err error) {
	res = &Result{Reason: ReasonMaxSteps, Log: trajectory.NewLog(min(d.opts.MaxSteps, 1<<16))}
	defer func() {
		if cerr := d.engine.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("sim: close engine: %w", cerr)
		}
	}()

	var pace *rate.Limiter
	if d.opts.RealTime {
		pace = rate.NewLimiter(rate.Every(time.Duration(d.opts.Dt*float64(time.Second))), 1)
	}

	every := progressEvery(d.opts.Dt)
	t := 0.0
	d.logger.Info("run started",
		zap.Int("waypoints", d.nav.Len()),
		zap.Int("obstacles", d.obstacles),
		zap.Float64("speed", d.opts.Speed),
		zap.Float64("dt", d.opts.Dt),
		zap.Float64("eps", d.opts.Eps),
		zap.Int("max_steps", d.opts.MaxSteps))

	for step := 0; step < d.opts.MaxSteps; step++ {
		if err := ctx.Err(); err != nil {
			res.Reason = ReasonCanceled
			return res, nil
		}

		pos := d.engine.Position()
		cmd := d.nav.Update(pos)
		if cmd.Done {
			res.Log.Append(trajectory.Row{T: t, Pos: pos, WaypointIndex: cmd.WaypointIndex, Dist: cmd.Dist})
			res.Reached = true
			res.Reason = ReasonReached
			d.logger.Info("reached final waypoint", zap.Int("step", step), zap.Float64("t", t))
			return res, nil
		}

		d.engine.SetVelocity(cmd.Velocity)
		res.Log.Append(trajectory.Row{T: t, Pos: pos, WaypointIndex: cmd.WaypointIndex, Dist: cmd.Dist})

		if pace != nil {
			// Wait also fails early when the next step would overrun ctx's deadline.
			if err := pace.Wait(ctx); err != nil {
				res.Reason = ReasonCanceled
				return res, nil
			}
		}
		if err := d.engine.Step(); err != nil {
			return res, fmt.Errorf("sim: step %d: %w", step, err)
		}
		res.Steps++
		t += d.opts.Dt

		if d.sink != nil {
			if err := d.sink.Capture(pos, d.engine.Position()); err != nil {
				return res, fmt.Errorf("sim: capture frame %d: %w", step, err)
			}
		}

		if step%every == 0 {
			d.logger.Info("progress",
				zap.Float64("t", t),
				zap.Float64s("pos", []float64{pos.X, pos.Y, pos.Z}),
				zap.Int("wp_i", cmd.WaypointIndex),
				zap.Float64s("target", []float64{cmd.Target.X, cmd.Target.Y, cmd.Target.Z}),
				zap.Float64("dist", cmd.Dist))
		}
	}

	d.logger.Warn("step cap reached before final waypoint",
		zap.Int("max_steps", d.opts.MaxSteps), zap.Int("wp_i", min(d.nav.Index(), d.nav.Len()-1)))
	return res, nil
}
