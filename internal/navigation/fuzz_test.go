package navigation

import (
	"math"
	"testing"

	fuzz "github.com/AdaLogics/go-fuzz-headers"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/mohammadijoo/DronePath_Go/internal/scene"
)

type fuzzScene struct {
	Route     []float64 // x, y, z triples
	Obstacles []float64 // x, y, z, radius quadruples
	Positions []float64 // x, y, z triples
	Speed     float64
	Eps       float64
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > 1e6 {
			return false
		}
	}
	return true
}

func triples(vs []float64) []r3.Vec {
	out := make([]r3.Vec, 0, len(vs)/3)
	for i := 0; i+2 < len(vs); i += 3 {
		out = append(out, r3.Vec{X: vs[i], Y: vs[i+1], Z: vs[i+2]})
	}
	return out
}

// FuzzNavigator_IndexInvariant feeds arbitrary routes, obstacles and
// positions and checks that the active index never moves back or past the
// last waypoint, and that commands never exceed the cruise speed.
func FuzzNavigator_IndexInvariant(f *testing.F) {
	f.Fuzz(func(t *testing.T, data []byte) {
		var fs fuzzScene
		if err := fuzz.NewConsumer(data).GenerateStruct(&fs); err != nil {
			return
		}
		if !finite(fs.Route...) || !finite(fs.Obstacles...) || !finite(fs.Positions...) || !finite(fs.Speed, fs.Eps) {
			return
		}
		route := triples(fs.Route)
		var obstacles []scene.Obstacle
		for i := 0; i+3 < len(fs.Obstacles); i += 4 {
			obstacles = append(obstacles, scene.Obstacle{
				Center: r3.Vec{X: fs.Obstacles[i], Y: fs.Obstacles[i+1], Z: fs.Obstacles[i+2]},
				Radius: math.Abs(fs.Obstacles[i+3]),
			})
		}

		nav, err := NewNavigator(route, obstacles, DefaultField(), fs.Speed, fs.Eps)
		if err != nil {
			return
		}
		prev := 0
		for _, pos := range triples(fs.Positions) {
			cmd := nav.Update(pos)
			if cmd.WaypointIndex < prev || cmd.WaypointIndex > len(route)-1 {
				t.Fatalf("index %d after %d, route of %d", cmd.WaypointIndex, prev, len(route))
			}
			if n := r3.Norm(cmd.Velocity); n > fs.Speed*(1+1e-9) {
				t.Fatalf("velocity %g above speed %g", n, fs.Speed)
			}
			prev = cmd.WaypointIndex
		}
	})
}
