package navigation

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/mohammadijoo/DronePath_Go/internal/scene"
)

// Command is the navigator's decision for one step.
type Command struct {
	Velocity      r3.Vec
	Target        r3.Vec
	WaypointIndex int     // active waypoint, never beyond len(route)-1
	Dist          float64 // distance from the position to Target
	Done          bool    // the final waypoint has been reached
}

// Navigator follows a waypoint route at constant speed. The active index only
// moves forward, one waypoint per Update at most.
type Navigator struct {
	route     []r3.Vec
	obstacles []scene.Obstacle
	field     Field
	speed     float64
	eps       float64
	idx       int
}

// NewNavigator copies route and obstacles. eps is the arrival threshold.
func NewNavigator(route []r3.Vec, obstacles []scene.Obstacle, field Field, speed, eps float64) (*Navigator, error) {
	if len(route) == 0 {
		return nil, scene.ErrNoWaypoints
	}
	if !positiveFinite(speed) || !positiveFinite(eps) {
		return nil, errors.New("navigation: speed and eps must be positive and finite")
	}
	if !positiveFinite(field.Influence) || !(field.Gain >= 0) || math.IsInf(field.Gain, 1) {
		return nil, errors.New("navigation: field influence must be positive and gain not negative, both finite")
	}
	n := &Navigator{
		route:     append([]r3.Vec(nil), route...),
		obstacles: append([]scene.Obstacle(nil), obstacles...),
		field:     field,
		speed:     speed,
		eps:       eps,
	}
	return n, nil
}

func positiveFinite(v float64) bool { return v > 0 && !math.IsInf(v, 1) }

// Index returns the active waypoint index. It equals len(route) once the
// route is complete.
func (n *Navigator) Index() int { return n.idx }

// Len returns the number of waypoints.
func (n *Navigator) Len() int { return len(n.route) }

// Done reports whether every waypoint has been reached.
func (n *Navigator) Done() bool { return n.idx >= len(n.route) }

// Update checks arrival at the active waypoint and returns the velocity
// command for pos. When the last waypoint is reached the returned command has
// Done set and a zero velocity.
func (n *Navigator) Update(pos r3.Vec) Command {
	if n.Done() {
		last := len(n.route) - 1
		return Command{
			Target:        n.route[last],
			WaypointIndex: last,
			Dist:          r3.Norm(r3.Sub(n.route[last], pos)),
			Done:          true,
		}
	}

	target := n.route[n.idx]
	dvec := r3.Sub(target, pos)
	dist := r3.Norm(dvec)

	if dist < n.eps {
		n.idx++
		if n.Done() {
			return Command{Target: target, WaypointIndex: n.idx - 1, Dist: dist, Done: true}
		}
		target = n.route[n.idx]
		dvec = r3.Sub(target, pos)
		dist = r3.Norm(dvec)
	}

	dir := Normalize(dvec)
	if len(n.obstacles) > 0 {
		dir = Normalize(r3.Add(dir, n.field.Repulsion(pos, n.obstacles)))
	}

	return Command{
		Velocity:      r3.Scale(n.speed, dir),
		Target:        target,
		WaypointIndex: n.idx,
		Dist:          dist,
	}
}
