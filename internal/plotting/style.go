// Package plotting renders a logged trajectory as static PNG charts and an
// interactive HTML page.
package plotting

import (
	"bufio"
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

var (
	trajColor     = color.RGBA{31, 119, 180, 255}
	startColor    = color.RGBA{44, 160, 44, 255}
	endColor      = color.RGBA{214, 39, 40, 255}
	waypointColor = color.RGBA{255, 127, 14, 255}
	obstacleColor = color.RGBA{148, 103, 189, 255}
	axisColor     = color.RGBA{110, 110, 110, 255}
)

// spanTicks places n evenly spaced ticks from the axis minimum to its maximum.
type spanTicks struct {
	n      int
	format string
}

func (s spanTicks) Ticks(lo, hi float64) []plot.Tick {
	if !finiteRange(lo, hi) {
		return nil
	}
	if lo == hi || s.n < 2 {
		return []plot.Tick{{Value: lo, Label: fmt.Sprintf(s.format, lo)}}
	}
	step := (hi - lo) / float64(s.n-1)
	ticks := make([]plot.Tick, s.n)
	for i := range ticks {
		v := lo + float64(i)*step
		ticks[i] = plot.Tick{Value: v, Label: fmt.Sprintf(s.format, v)}
	}
	return ticks
}

// indexTicks labels whole numbers only, every stride-th one so that at most
// n labels are drawn.
type indexTicks struct {
	n int
}

func (s indexTicks) Ticks(lo, hi float64) []plot.Tick {
	if !finiteRange(lo, hi) {
		return nil
	}
	first, last := math.Ceil(lo), math.Floor(hi)
	if first > last {
		return nil
	}
	stride := math.Max(1, math.Ceil((last-first+1)/float64(max(s.n, 1))))
	var ticks []plot.Tick
	for v := first; v <= last; v += stride {
		ticks = append(ticks, plot.Tick{Value: v, Label: strconv.Itoa(int(v))})
	}
	return ticks
}

func finiteRange(lo, hi float64) bool {
	return !math.IsNaN(lo) && !math.IsNaN(hi) && !math.IsInf(lo, 0) && !math.IsInf(hi, 0)
}

// Sizes in points shared by every chart.
const (
	titleSize     = 22
	labelSize     = 18
	tickLabelSize = 14
	legendSize    = 13
	axisWidth     = 2.2
	tickWidth     = 2.0
	tickLength    = 8
	labelPad      = 10
	axisPad       = 20
	axisTicks     = 7
)

// newPlot returns a plot with the project's title and axis styling. Both axes
// get spanTicks with two decimals; callers swap in other tickers as needed.
func newPlot(title, xlabel, ylabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(titleSize)
	p.Title.Padding = vg.Points(12)

	for _, ax := range []struct {
		axis  *plot.Axis
		label string
	}{{&p.X, xlabel}, {&p.Y, ylabel}} {
		a := ax.axis
		a.Label.Text = ax.label
		a.Label.TextStyle.Font.Size = vg.Points(labelSize)
		a.Label.Padding = vg.Points(labelPad)
		a.LineStyle.Width = vg.Points(axisWidth)
		a.Padding = vg.Points(axisPad)
		a.Tick.LineStyle.Width = vg.Points(tickWidth)
		a.Tick.Length = vg.Points(tickLength)
		a.Tick.Label.Font.Size = vg.Points(tickLabelSize)
		a.Tick.Marker = spanTicks{n: axisTicks, format: "%.2f"}
	}

	p.Legend.Top = true
	p.Legend.TextStyle.Font.Size = vg.Points(legendSize)
	return p
}

func savePlotPNG(p *plot.Plot, widthIn, heightIn float64, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return fmt.Errorf("cannot create directory: %w", err)
	}
	w := vg.Length(widthIn) * vg.Inch
	h := vg.Length(heightIn) * vg.Inch

	c := vgimg.NewWith(
		vgimg.UseWH(w, h),
		vgimg.UseDPI(300),
	)
	p.Draw(draw.New(c))

	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("cannot create png: %w", err)
	}
	bw := bufio.NewWriter(f)
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(bw); err != nil {
		_ = f.Close()
		return fmt.Errorf("cannot write png: %w", err)
	}
	if err := bw.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("cannot write png: %w", err)
	}
	return f.Close()
}

func xys(xs, ys []float64) plotter.XYs {
	pts := make(plotter.XYs, len(xs))
	for i := range xs {
		pts[i].X = xs[i]
		pts[i].Y = ys[i]
	}
	return pts
}

func addLine(p *plot.Plot, name string, pts plotter.XYs, c color.Color, width float64) (*plotter.Line, error) {
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	line.LineStyle.Width = vg.Points(width)
	line.LineStyle.Color = c
	p.Add(line)
	if name != "" {
		p.Legend.Add(name, line)
	}
	return line, nil
}

func addMarkers(p *plot.Plot, name string, pts plotter.XYs, g draw.GlyphDrawer, c color.Color, radius float64) error {
	if len(pts) == 0 {
		return nil
	}
	s, err := plotter.NewScatter(pts)
	if err != nil {
		return err
	}
	s.GlyphStyle.Shape = g
	s.GlyphStyle.Color = c
	s.GlyphStyle.Radius = vg.Points(radius)
	p.Add(s)
	if name != "" {
		p.Legend.Add(name, s)
	}
	return nil
}
