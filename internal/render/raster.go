package render

import (
	"image"
	"image/color"
	"math"
)

// fillVerticalGradient shades from top to bottom.
func fillVerticalGradient(img *image.RGBA, top, bottom color.RGBA) {
	b := img.Bounds()
	h := float64(b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		t := float64(y-b.Min.Y) / h
		c := color.RGBA{
			R: lerp8(top.R, bottom.R, t),
			G: lerp8(top.G, bottom.G, t),
			B: lerp8(top.B, bottom.B, t),
			A: 255,
		}
		for x := b.Min.X; x < b.Max.X; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}

func lerp8(a, b uint8, t float64) uint8 {
	return uint8(math.Round(float64(a) + (float64(b)-float64(a))*t))
}

// shade scales a colour's brightness by k in [0, 1].
func shade(c color.RGBA, k float64) color.RGBA {
	k = math.Max(0, math.Min(1, k))
	return color.RGBA{
		R: uint8(float64(c.R) * k),
		G: uint8(float64(c.G) * k),
		B: uint8(float64(c.B) * k),
		A: c.A,
	}
}

func drawCircleFilled(img *image.RGBA, cx, cy, r float64, c color.RGBA) {
	minX := int(math.Floor(cx - r))
	maxX := int(math.Ceil(cx + r))
	minY := int(math.Floor(cy - r))
	maxY := int(math.Ceil(cy + r))

	rsq := r * r
	b := img.Bounds()
	for y := max(minY, b.Min.Y); y <= min(maxY, b.Max.Y-1); y++ {
		for x := max(minX, b.Min.X); x <= min(maxX, b.Max.X-1); x++ {
			dx := (float64(x) + 0.5) - cx
			dy := (float64(y) + 0.5) - cy
			if dx*dx+dy*dy <= rsq {
				img.SetRGBA(x, y, c)
			}
		}
	}
}

// drawSphere draws a disc lit from the upper left so it reads as a ball.
func drawSphere(img *image.RGBA, cx, cy, r float64, c color.RGBA) {
	if r < 0.5 {
		r = 0.5
	}
	minX := int(math.Floor(cx - r))
	maxX := int(math.Ceil(cx + r))
	minY := int(math.Floor(cy - r))
	maxY := int(math.Ceil(cy + r))

	lx, ly := -0.45, -0.55
	b := img.Bounds()
	for y := max(minY, b.Min.Y); y <= min(maxY, b.Max.Y-1); y++ {
		for x := max(minX, b.Min.X); x <= min(maxX, b.Max.X-1); x++ {
			dx := ((float64(x) + 0.5) - cx) / r
			dy := ((float64(y) + 0.5) - cy) / r
			d2 := dx*dx + dy*dy
			if d2 > 1 {
				continue
			}
			nz := math.Sqrt(1 - d2)
			lambert := dx*lx + dy*ly + nz*0.7
			img.SetRGBA(x, y, shade(c, 0.35+0.65*math.Max(0, lambert)))
		}
	}
}

// drawThickLine stamps discs along the segment.
func drawThickLine(img *image.RGBA, x1, y1, x2, y2, width float64, c color.RGBA) {
	dx := x2 - x1
	dy := y2 - y1
	dist := math.Hypot(dx, dy)
	if dist < 1e-6 {
		drawCircleFilled(img, x1, y1, width/2, c)
		return
	}
	steps := max(int(dist/0.8), 1)
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		drawCircleFilled(img, x1+t*dx, y1+t*dy, width/2, c)
	}
}

// drawCross draws an x-shaped marker.
func drawCross(img *image.RGBA, cx, cy, size, width float64, c color.RGBA) {
	drawThickLine(img, cx-size, cy-size, cx+size, cy+size, width, c)
	drawThickLine(img, cx-size, cy+size, cx+size, cy-size, width, c)
}
