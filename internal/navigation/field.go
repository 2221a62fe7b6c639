// Package navigation turns a position, a waypoint route and an obstacle set
// into velocity commands.
package navigation

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/mohammadijoo/DronePath_Go/internal/scene"
)

// normEpsilon is the norm below which Normalize leaves a vector unchanged.
const normEpsilon = 1e-9

// radiusSlack keeps the influence test strict when the body touches the
// obstacle surface.
const radiusSlack = 1e-6

// Normalize returns v scaled to unit length. Vectors shorter than 1e-9 are
// returned as is.
func Normalize(v r3.Vec) r3.Vec {
	n := r3.Norm(v)
	if n <= normEpsilon {
		return v
	}
	return r3.Scale(1/n, v)
}

// Field is a linear potential field around spherical obstacles.
type Field struct {
	Influence float64 // radius of influence around an obstacle centre (m)
	Gain      float64
}

// DefaultField returns the field tuning used when nothing is configured.
func DefaultField() Field {
	return Field{Influence: 0.35, Gain: 0.6}
}

// Repulsion sums, over all obstacles, a push away from the obstacle centre of
// magnitude Gain*(Influence-d)/Influence, where d is the distance to the
// centre. Obstacles are only considered when d < max(Influence, Radius), and
// the result is not normalized.
func (f Field) Repulsion(pos r3.Vec, obstacles []scene.Obstacle) r3.Vec {
	var repulse r3.Vec
	for _, obs := range obstacles {
		dvec := r3.Sub(pos, obs.Center)
		dist := r3.Norm(dvec)
		if dist >= math.Max(f.Influence, obs.Radius+radiusSlack) {
			continue
		}
		closeness := math.Max(0, (f.Influence-dist)/f.Influence)
		repulse = r3.Add(repulse, r3.Scale(f.Gain*closeness, Normalize(dvec)))
	}
	return repulse
}

// Clearance returns the smallest distance from pos to any obstacle surface,
// or +Inf when there are no obstacles. It is negative inside an obstacle.
func Clearance(pos r3.Vec, obstacles []scene.Obstacle) float64 {
	best := math.Inf(1)
	for _, obs := range obstacles {
		best = math.Min(best, r3.Norm(r3.Sub(pos, obs.Center))-obs.Radius)
	}
	return best
}
