package render

import (
	"image"
	"image/color"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/mohammadijoo/DronePath_Go/internal/scene"
)

var (
	skyTop      = color.RGBA{205, 220, 235, 255}
	skyBottom   = color.RGBA{240, 243, 246, 255}
	gridCol     = color.RGBA{150, 155, 160, 255}
	trailCol    = color.RGBA{40, 40, 40, 255}
	waypointCol = color.RGBA{240, 150, 30, 255}
	obstacleCol = color.RGBA{220, 60, 60, 255}
	droneCol    = color.RGBA{26, 128, 230, 255} // rgba(0.1, 0.5, 0.9)
)

// Scene is what a frame shows.
type Scene struct {
	Waypoints   []r3.Vec
	Obstacles   []scene.Obstacle
	Trail       []r3.Vec
	Drone       r3.Vec
	DroneRadius float64
}

// GridExtent is the half size and spacing of the ground grid (m).
type GridExtent struct {
	Min, Max, Spacing float64
}

// Renderer draws Scenes into a reused RGBA buffer.
type Renderer struct {
	Camera Camera
	Grid   GridExtent
	img    *image.RGBA
}

// NewRenderer allocates the frame buffer for cam.
func NewRenderer(cam Camera) *Renderer {
	return &Renderer{
		Camera: cam,
		Grid:   GridExtent{Min: -1, Max: 2, Spacing: 0.25},
		img:    image.NewRGBA(image.Rect(0, 0, cam.Width, cam.Height)),
	}
}

type sprite struct {
	pos    r3.Vec
	radius float64
	col    color.RGBA
	depth  float64
}

// Render draws s with the camera aimed at target. The returned image is
// overwritten by the next call.
func (r *Renderer) Render(s Scene, target r3.Vec) *image.RGBA {
	cam := r.Camera
	cam.Target = target
	pr := cam.Projector()

	fillVerticalGradient(r.img, skyTop, skyBottom)
	r.drawGrid(pr)

	for i := 1; i < len(s.Trail); i++ {
		r.segment(pr, s.Trail[i-1], s.Trail[i], 2, trailCol)
	}

	for _, w := range s.Waypoints {
		if x, y, _, ok := pr.Project(w); ok {
			drawCross(r.img, x, y, 5, 2, waypointCol)
		}
	}

	// Painter's algorithm: far spheres first.
	sprites := make([]sprite, 0, len(s.Obstacles)+1)
	for _, o := range s.Obstacles {
		sprites = append(sprites, sprite{pos: o.Center, radius: o.Radius, col: obstacleCol})
	}
	sprites = append(sprites, sprite{pos: s.Drone, radius: s.DroneRadius, col: droneCol})
	visible := sprites[:0]
	for _, sp := range sprites {
		if _, _, d, ok := pr.Project(sp.pos); ok {
			sp.depth = d
			visible = append(visible, sp)
		}
	}
	sort.SliceStable(visible, func(i, j int) bool { return visible[i].depth > visible[j].depth })
	for _, sp := range visible {
		x, y, d, _ := pr.Project(sp.pos)
		drawSphere(r.img, x, y, pr.Radius(sp.radius, d), sp.col)
	}
	return r.img
}

func (r *Renderer) drawGrid(pr Projector) {
	g := r.Grid
	if g.Spacing <= 0 || g.Max <= g.Min {
		return
	}
	for v := g.Min; v <= g.Max+1e-9; v += g.Spacing {
		r.segment(pr, r3.Vec{X: v, Y: g.Min}, r3.Vec{X: v, Y: g.Max}, 1, gridCol)
		r.segment(pr, r3.Vec{X: g.Min, Y: v}, r3.Vec{X: g.Max, Y: v}, 1, gridCol)
	}
}

// segment draws a world-space line, split so pieces behind the camera are
// dropped instead of wrapping around.
func (r *Renderer) segment(pr Projector, a, b r3.Vec, width float64, c color.RGBA) {
	const pieceLen = 0.05
	n := max(int(r3.Norm(r3.Sub(b, a))/pieceLen), 1)
	prev := a
	px, py, _, pok := pr.Project(prev)
	for i := 1; i <= n; i++ {
		cur := r3.Add(a, r3.Scale(float64(i)/float64(n), r3.Sub(b, a)))
		cx, cy, _, cok := pr.Project(cur)
		if pok && cok {
			drawThickLine(r.img, px, py, cx, cy, width, c)
		}
		px, py, pok = cx, cy, cok
	}
}
