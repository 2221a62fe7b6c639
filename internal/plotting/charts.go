package plotting

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/mohammadijoo/DronePath_Go/internal/scene"
	"github.com/mohammadijoo/DronePath_Go/internal/trajectory"
)

// ErrNoRows is returned when there is nothing to plot.
var ErrNoRows = errors.New("plotting: trajectory has no rows")

// Input is everything a chart can show. Waypoints and Obstacles may be empty.
type Input struct {
	Rows      []trajectory.Row
	Waypoints []r3.Vec
	Obstacles []scene.Obstacle
}

// Oblique is a cabinet-style projection: X to the right, Z up and Y receding
// at Angle (radians) scaled by Depth.
type Oblique struct {
	Angle float64
	Depth float64
}

// DefaultOblique recedes Y at 45 degrees with half depth.
func DefaultOblique() Oblique {
	return Oblique{Angle: math.Pi / 4, Depth: 0.5}
}

// Project maps p onto the drawing plane.
func (o Oblique) Project(p r3.Vec) (x, y float64) {
	return p.X + o.Depth*p.Y*math.Cos(o.Angle), p.Z + o.Depth*p.Y*math.Sin(o.Angle)
}

func (o Oblique) projectAll(ps []r3.Vec) plotter.XYs {
	pts := make(plotter.XYs, len(ps))
	for i, p := range ps {
		pts[i].X, pts[i].Y = o.Project(p)
	}
	return pts
}

// bounds returns the box enclosing the rows, waypoints and obstacles.
func bounds(in Input) (lo, hi r3.Vec) {
	lo = r3.Vec{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	hi = r3.Vec{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}
	grow := func(p r3.Vec, r float64) {
		lo.X, hi.X = math.Min(lo.X, p.X-r), math.Max(hi.X, p.X+r)
		lo.Y, hi.Y = math.Min(lo.Y, p.Y-r), math.Max(hi.Y, p.Y+r)
		lo.Z, hi.Z = math.Min(lo.Z, p.Z-r), math.Max(hi.Z, p.Z+r)
	}
	for _, r := range in.Rows {
		grow(r.Pos, 0)
	}
	for _, w := range in.Waypoints {
		grow(w, 0)
	}
	for _, o := range in.Obstacles {
		grow(o.Center, o.Radius)
	}
	return lo, hi
}

func positions(rows []trajectory.Row) []r3.Vec {
	ps := make([]r3.Vec, len(rows))
	for i, r := range rows {
		ps[i] = r.Pos
	}
	return ps
}

func centres(obstacles []scene.Obstacle) []r3.Vec {
	cs := make([]r3.Vec, len(obstacles))
	for i, o := range obstacles {
		cs[i] = o.Center
	}
	return cs
}

// obstacleRadius sizes obstacle markers from the largest obstacle.
func obstacleRadius(obstacles []scene.Obstacle) float64 {
	r := 0.0
	for _, o := range obstacles {
		r = math.Max(r, o.Radius)
	}
	return math.Max(5, math.Min(14, r*80))
}

// saveTrajectory3D draws the path in an oblique projection with the X, Y and
// Z edges of the bounding box as labelled axes.
func saveTrajectory3D(in Input, filename string) error {
	if len(in.Rows) == 0 {
		return ErrNoRows
	}
	o := DefaultOblique()
	p := newPlot("Drone Trajectory", "", "")
	p.HideAxes()

	lo, hi := bounds(in)
	axes := []struct {
		end   r3.Vec
		label string
	}{
		{r3.Vec{X: hi.X, Y: lo.Y, Z: lo.Z}, "X (m)"},
		{r3.Vec{X: lo.X, Y: hi.Y, Z: lo.Z}, "Y (m)"},
		{r3.Vec{X: lo.X, Y: lo.Y, Z: hi.Z}, "Z (m)"},
	}
	labels := plotter.XYLabels{}
	for _, a := range axes {
		line, err := addLine(p, "", o.projectAll([]r3.Vec{lo, a.end}), axisColor, 1.5)
		if err != nil {
			return err
		}
		line.LineStyle.Dashes = []vg.Length{vg.Points(6), vg.Points(4)}
		x, y := o.Project(a.end)
		labels.XYs = append(labels.XYs, plotter.XY{X: x, Y: y})
		labels.Labels = append(labels.Labels, a.label)
	}
	axisLabels, err := plotter.NewLabels(labels)
	if err != nil {
		return err
	}
	for i := range axisLabels.TextStyle {
		axisLabels.TextStyle[i].Font.Size = vg.Points(14)
		axisLabels.TextStyle[i].Color = axisColor
	}
	p.Add(axisLabels)

	if err := drawPath(p, o.projectAll(positions(in.Rows)), o.projectAll(in.Waypoints), o.projectAll(centres(in.Obstacles)), obstacleRadius(in.Obstacles)); err != nil {
		return err
	}
	return savePlotPNG(p, 8.0, 7.0, filename)
}

// drawPath adds the trajectory, its start and end, waypoints and obstacles.
func drawPath(p *plot.Plot, path, waypoints, obstacles plotter.XYs, obstacleR float64) error {
	if _, err := addLine(p, "trajectory", path, trajColor, 2.5); err != nil {
		return err
	}
	if err := addMarkers(p, "waypoints", waypoints, draw.CrossGlyph{}, waypointColor, 7); err != nil {
		return err
	}
	if err := addMarkers(p, "obstacles", obstacles, draw.RingGlyph{}, obstacleColor, obstacleR); err != nil {
		return err
	}
	if err := addMarkers(p, "start", path[:1], draw.CircleGlyph{}, startColor, 6); err != nil {
		return err
	}
	return addMarkers(p, "end", path[len(path)-1:], draw.SquareGlyph{}, endColor, 6)
}

// saveProjection draws the path on two of the three axes. pick selects the
// plotted coordinates of a point.
func saveProjection(in Input, filename, title, xlabel, ylabel string, pick func(r3.Vec) (float64, float64)) error {
	if len(in.Rows) == 0 {
		return ErrNoRows
	}
	project := func(ps []r3.Vec) plotter.XYs {
		pts := make(plotter.XYs, len(ps))
		for i, q := range ps {
			pts[i].X, pts[i].Y = pick(q)
		}
		return pts
	}
	p := newPlot(title, xlabel, ylabel)
	p.Add(plotter.NewGrid())
	if err := drawPath(p, project(positions(in.Rows)), project(in.Waypoints), project(centres(in.Obstacles)), obstacleRadius(in.Obstacles)); err != nil {
		return err
	}
	return savePlotPNG(p, 8.0, 7.0, filename)
}

func topView(q r3.Vec) (float64, float64)  { return q.X, q.Y }
func sideView(q r3.Vec) (float64, float64) { return q.X, q.Z }

// saveSeries draws ys against time. step draws a staircase for discrete data.
func saveSeries(filename, title, ylabel string, t, ys []float64, step bool) error {
	if len(t) == 0 || len(t) != len(ys) {
		return ErrNoRows
	}
	p := newPlot(title, "time (s)", ylabel)
	p.Add(plotter.NewGrid())
	line, err := addLine(p, "", xys(t, ys), trajColor, 3.0)
	if err != nil {
		return err
	}
	if step {
		line.StepStyle = plotter.PostStep
		p.Y.Tick.Marker = indexTicks{n: axisTicks}
	}
	return savePlotPNG(p, 8.0, 6.0, filename)
}
