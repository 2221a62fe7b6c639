// Package physics is a small fixed-step rigid sphere world: one body under
// gravity and linear damping, with velocity reset control and a chain of
// position/velocity effects applied after each integration step.
package physics

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrClosed is returned when stepping a world after Close.
var ErrClosed = errors.New("physics: world is closed")

// Body is a point-mass sphere.
type Body struct {
	Pos           r3.Vec
	Vel           r3.Vec
	Radius        float64 // m
	Mass          float64 // kg
	LinearDamping float64 // fraction of velocity lost per second
}

// Effect modifies the body state after integration, e.g. a ground contact.
// The returned string is a warning, empty when nothing happened.
type Effect interface {
	Apply(dt float64, b *Body) string
}

// Params describes the world and the body it is created with.
type Params struct {
	Gravity r3.Vec
	Dt      float64
	Start   r3.Vec
	Radius  float64
	Mass    float64
	Damping float64
	Effects []Effect
}

// DefaultParams is a 6 cm, 250 g sphere starting 30 cm above a ground plane.
func DefaultParams(dt float64) Params {
	return Params{
		Gravity: r3.Vec{Z: -9.8},
		Dt:      dt,
		Start:   r3.Vec{Z: 0.3},
		Radius:  0.06,
		Mass:    0.25,
		Damping: 0.04,
		Effects: []Effect{GroundPlane{Height: 0}},
	}
}

// World owns a single body.
type World struct {
	gravity r3.Vec
	dt      float64
	body    Body
	effects []Effect
	time    float64
	steps   int
	closed  bool
	warning string
}

// NewWorld creates a world holding one body at p.Start at rest.
func NewWorld(p Params) (*World, error) {
	if !(p.Dt > 0) || math.IsInf(p.Dt, 1) {
		return nil, errors.New("physics: time step must be positive")
	}
	if !(p.Mass > 0) || !(p.Radius > 0) {
		return nil, errors.New("physics: body mass and radius must be positive")
	}
	return &World{
		gravity: p.Gravity,
		dt:      p.Dt,
		body: Body{
			Pos:           p.Start,
			Radius:        p.Radius,
			Mass:          p.Mass,
			LinearDamping: p.Damping,
		},
		effects: append([]Effect(nil), p.Effects...),
	}, nil
}

// Position returns the body position.
func (w *World) Position() r3.Vec { return w.body.Pos }

// Velocity returns the body velocity.
func (w *World) Velocity() r3.Vec { return w.body.Vel }

// Body returns a copy of the body state.
func (w *World) Body() Body { return w.body }

// Time returns the simulated time in seconds.
func (w *World) Time() float64 { return w.time }

// Steps returns the number of completed steps.
func (w *World) Steps() int { return w.steps }

// Dt returns the time step.
func (w *World) Dt() float64 { return w.dt }

// Warning returns the last non-empty effect warning of the latest step.
func (w *World) Warning() string { return w.warning }

// SetVelocity replaces the body's linear velocity.
func (w *World) SetVelocity(v r3.Vec) { w.body.Vel = v }

// Step advances the world by one time step with semi-implicit Euler:
// gravity and damping update the velocity, which then moves the body.
func (w *World) Step() error {
	if w.closed {
		return ErrClosed
	}
	b := &w.body
	b.Vel = r3.Add(b.Vel, r3.Scale(w.dt, w.gravity))
	if b.LinearDamping > 0 {
		b.Vel = r3.Scale(math.Pow(1-b.LinearDamping, w.dt), b.Vel)
	}
	b.Pos = r3.Add(b.Pos, r3.Scale(w.dt, b.Vel))

	w.warning = ""
	for _, e := range w.effects {
		if msg := e.Apply(w.dt, b); msg != "" {
			w.warning = msg
		}
	}
	w.time += w.dt
	w.steps++
	return nil
}

// Close releases the world. Further steps fail with ErrClosed.
func (w *World) Close() error {
	w.closed = true
	return nil
}

// GroundPlane keeps the body's lowest point at or above Height.
type GroundPlane struct {
	Height float64
}

// Apply moves a penetrating body back onto the plane and cancels its
// downward velocity.
func (g GroundPlane) Apply(dt float64, b *Body) string {
	floor := g.Height + b.Radius
	if b.Pos.Z >= floor {
		return ""
	}
	b.Pos.Z = floor
	if b.Vel.Z < 0 {
		b.Vel.Z = 0
	}
	return "ground contact: body clipped to plane"
}

// Wind drifts the body position by a constant air velocity.
type Wind struct {
	Velocity r3.Vec
}

// Apply shifts the position by Velocity*dt without touching the body's own
// velocity.
func (w Wind) Apply(dt float64, b *Body) string {
	b.Pos = r3.Add(b.Pos, r3.Scale(dt, w.Velocity))
	return ""
}
