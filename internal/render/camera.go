// Package render draws the simulated scene from an orbiting camera into RGBA
// frames for video capture.
package render

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// mat4 is a 4x4 matrix in column-major order.
type mat4 [16]float64

func (m mat4) mul(o mat4) mat4 {
	var r mat4
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			sum := 0.0
			for k := 0; k < 4; k++ {
				sum += m[k*4+row] * o[col*4+k]
			}
			r[col*4+row] = sum
		}
	}
	return r
}

// apply multiplies m by the point (p, 1) and returns the homogeneous result.
func (m mat4) apply(p r3.Vec) (x, y, z, w float64) {
	x = m[0]*p.X + m[4]*p.Y + m[8]*p.Z + m[12]
	y = m[1]*p.X + m[5]*p.Y + m[9]*p.Z + m[13]
	z = m[2]*p.X + m[6]*p.Y + m[10]*p.Z + m[14]
	w = m[3]*p.X + m[7]*p.Y + m[11]*p.Z + m[15]
	return x, y, z, w
}

func lookAt(eye, center, up r3.Vec) mat4 {
	f := r3.Unit(r3.Sub(center, eye))
	s := r3.Cross(f, up)
	if r3.Norm(s) < 1e-8 {
		s = r3.Cross(f, r3.Vec{X: 1})
	}
	s = r3.Unit(s)
	u := r3.Cross(s, f)
	return mat4{
		s.X, u.X, -f.X, 0,
		s.Y, u.Y, -f.Y, 0,
		s.Z, u.Z, -f.Z, 0,
		-r3.Dot(s, eye), -r3.Dot(u, eye), r3.Dot(f, eye), 1,
	}
}

// perspective builds a right-handed projection; fovy is in degrees.
func perspective(fovy, aspect, near, far float64) mat4 {
	f := 1.0 / math.Tan(fovy*math.Pi/360.0)
	nf := 1.0 / (near - far)
	return mat4{
		f / aspect, 0, 0, 0,
		0, f, 0, 0,
		0, 0, (far + near) * nf, -1,
		0, 0, 2 * far * near * nf, 0,
	}
}

// Camera orbits Target at Distance. Yaw turns about the vertical axis from
// +Y, Pitch tilts the view (negative looks down). Angles are in degrees.
type Camera struct {
	Target   r3.Vec
	Distance float64
	Yaw      float64
	Pitch    float64
	FOV      float64
	Width    int
	Height   int
	Near     float64
	Far      float64
}

// DefaultCamera is a 640x480 view from 1.2 m, 45° yaw, 30° down.
func DefaultCamera() Camera {
	return Camera{
		Distance: 1.2,
		Yaw:      45,
		Pitch:    -30,
		FOV:      60,
		Width:    640,
		Height:   480,
		Near:     0.01,
		Far:      10,
	}
}

// Eye returns the camera position.
func (c Camera) Eye() r3.Vec {
	yaw := c.Yaw * math.Pi / 180
	pitch := c.Pitch * math.Pi / 180
	forward := r3.Vec{
		X: math.Cos(pitch) * math.Sin(yaw),
		Y: math.Cos(pitch) * math.Cos(yaw),
		Z: math.Sin(pitch),
	}
	return r3.Sub(c.Target, r3.Scale(c.Distance, forward))
}

// Projector maps world points to pixels for one camera pose.
type Projector struct {
	view     mat4
	viewProj mat4
	width    float64
	height   float64
	focal    float64 // pixels per unit at unit depth
	near     float64
	far      float64
}

// Projector freezes the camera pose.
func (c Camera) Projector() Projector {
	view := lookAt(c.Eye(), c.Target, r3.Vec{Z: 1})
	proj := perspective(c.FOV, float64(c.Width)/float64(c.Height), c.Near, c.Far)
	return Projector{
		view:     view,
		viewProj: proj.mul(view),
		width:    float64(c.Width),
		height:   float64(c.Height),
		focal:    float64(c.Height) / 2 / math.Tan(c.FOV*math.Pi/360.0),
		near:     c.Near,
		far:      c.Far,
	}
}

// Project returns the pixel coordinates and view depth of p. ok is false when
// p lies outside the near/far range.
func (pr Projector) Project(p r3.Vec) (x, y, depth float64, ok bool) {
	_, _, vz, _ := pr.view.apply(p)
	depth = -vz
	if depth < pr.near || depth > pr.far {
		return 0, 0, depth, false
	}
	cx, cy, _, cw := pr.viewProj.apply(p)
	ndcX, ndcY := cx/cw, cy/cw
	x = (ndcX + 1) * 0.5 * pr.width
	y = (1 - ndcY) * 0.5 * pr.height
	return x, y, depth, true
}

// Radius returns the on-screen radius in pixels of a sphere of radius r at
// the given depth.
func (pr Projector) Radius(r, depth float64) float64 {
	if depth <= 0 {
		return 0
	}
	return r * pr.focal / depth
}
