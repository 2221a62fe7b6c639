package sim

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/mohammadijoo/DronePath_Go/internal/render"
	"github.com/mohammadijoo/DronePath_Go/internal/scene"
	"github.com/mohammadijoo/DronePath_Go/internal/video"
)

// trailStride keeps one trail point per this many frames.
const trailStride = 8

// FrameCapture renders the scene each step and stores the frame.
type FrameCapture struct {
	renderer *render.Renderer
	recorder *video.Recorder
	scene    render.Scene
	frames   int
}

// NewFrameCapture draws waypoints and obstacles around a drone of the given
// radius.
func NewFrameCapture(renderer *render.Renderer, recorder *video.Recorder, route []r3.Vec, obstacles []scene.Obstacle, droneRadius float64) *FrameCapture {
	return &FrameCapture{
		renderer: renderer,
		recorder: recorder,
		scene: render.Scene{
			Waypoints:   route,
			Obstacles:   obstacles,
			DroneRadius: droneRadius,
		},
	}
}

// Capture implements FrameSink.
func (c *FrameCapture) Capture(target, drone r3.Vec) error {
	if c.frames%trailStride == 0 {
		c.scene.Trail = append(c.scene.Trail, drone)
	}
	c.frames++
	c.scene.Drone = drone
	return c.recorder.AddFrame(c.renderer.Render(c.scene, target))
}
