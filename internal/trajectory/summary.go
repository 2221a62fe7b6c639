package trajectory

import (
	"math"

	"go.uber.org/zap/zapcore"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"

	"github.com/mohammadijoo/DronePath_Go/internal/navigation"
	"github.com/mohammadijoo/DronePath_Go/internal/scene"
)

// Summary condenses a run into a handful of figures.
type Summary struct {
	Rows          int
	Duration      float64 // s
	PathLength    float64 // m
	MeanSpeed     float64 // m/s, path length over duration
	MeanDist      float64 // m, mean distance to the active waypoint
	FinalDist     float64 // m
	MaxIndex      int
	MinClearance  float64 // m to the nearest obstacle surface, +Inf without obstacles
	IndexMonotone bool
}

// Summarize computes a Summary. Rows must be in time order.
func Summarize(rows []Row, obstacles []scene.Obstacle) Summary {
	s := Summary{Rows: len(rows), MinClearance: math.Inf(1), IndexMonotone: true}
	if len(rows) == 0 {
		return s
	}

	steps := make([]float64, 0, len(rows)-1)
	dists := make([]float64, len(rows))
	for i, r := range rows {
		dists[i] = r.Dist
		if i > 0 {
			steps = append(steps, r3.Norm(r3.Sub(r.Pos, rows[i-1].Pos)))
			if r.WaypointIndex < rows[i-1].WaypointIndex {
				s.IndexMonotone = false
			}
		}
		if r.WaypointIndex > s.MaxIndex {
			s.MaxIndex = r.WaypointIndex
		}
		if len(obstacles) > 0 {
			s.MinClearance = math.Min(s.MinClearance, navigation.Clearance(r.Pos, obstacles))
		}
	}

	s.Duration = rows[len(rows)-1].T - rows[0].T
	s.PathLength = floats.Sum(steps)
	if s.Duration > 0 {
		s.MeanSpeed = s.PathLength / s.Duration
	}
	s.MeanDist = stat.Mean(dists, nil)
	s.FinalDist = rows[len(rows)-1].Dist
	return s
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (s Summary) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddInt("rows", s.Rows)
	enc.AddFloat64("duration_s", s.Duration)
	enc.AddFloat64("path_length_m", s.PathLength)
	enc.AddFloat64("mean_speed", s.MeanSpeed)
	enc.AddFloat64("mean_dist", s.MeanDist)
	enc.AddFloat64("final_dist", s.FinalDist)
	enc.AddInt("max_wp_i", s.MaxIndex)
	if !math.IsInf(s.MinClearance, 1) {
		enc.AddFloat64("min_clearance", s.MinClearance)
	}
	enc.AddBool("index_monotone", s.IndexMonotone)
	return nil
}
