// Package scene loads the waypoint route and the obstacle set a run is flown
// against.
package scene

import (
	"errors"
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrNoWaypoints is returned when a waypoint file decodes to an empty route.
var ErrNoWaypoints = errors.New("scene: waypoint list is empty")

// Obstacle is a sphere the repulsion field pushes away from.
type Obstacle struct {
	Center r3.Vec
	Radius float64
}

type obstacleJSON struct {
	Center []float64 `json:"center"`
	Radius float64   `json:"radius"`
}

// DefaultWaypoints is the 1 m square flown at 0.3 m when no route file is
// usable.
func DefaultWaypoints() []r3.Vec {
	return []r3.Vec{
		{X: 1, Y: 0, Z: 0.3},
		{X: 1, Y: 1, Z: 0.3},
		{X: 0, Y: 1, Z: 0.3},
		{X: 0, Y: 0, Z: 0.3},
	}
}

// ReadWaypoints decodes a JSON array of [x, y, z] triples.
func ReadWaypoints(path string) ([]r3.Vec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseWaypoints(data)
}

// ParseWaypoints decodes a JSON array of [x, y, z] triples.
func ParseWaypoints(data []byte) ([]r3.Vec, error) {
	var raw [][]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("scene: decode waypoints: %w", err)
	}
	if len(raw) == 0 {
		return nil, ErrNoWaypoints
	}
	out := make([]r3.Vec, len(raw))
	for i, p := range raw {
		v, err := vecFrom(p)
		if err != nil {
			return nil, fmt.Errorf("scene: waypoint %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// ReadObstacles decodes a JSON array of {"center": [x, y, z], "radius": r}.
func ReadObstacles(path string) ([]Obstacle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseObstacles(data)
}

// ParseObstacles decodes a JSON array of {"center": [x, y, z], "radius": r}.
func ParseObstacles(data []byte) ([]Obstacle, error) {
	var raw []obstacleJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("scene: decode obstacles: %w", err)
	}
	out := make([]Obstacle, 0, len(raw))
	for i, o := range raw {
		c, err := vecFrom(o.Center)
		if err != nil {
			return nil, fmt.Errorf("scene: obstacle %d: %w", i, err)
		}
		if o.Radius < 0 {
			return nil, fmt.Errorf("scene: obstacle %d: negative radius %g", i, o.Radius)
		}
		out = append(out, Obstacle{Center: c, Radius: o.Radius})
	}
	return out, nil
}

// LoadWaypoints reads the route at path, falling back to DefaultWaypoints on
// any error. The fallback is only visible at debug level.
func LoadWaypoints(path string, logger *zap.Logger) []r3.Vec {
	wps, err := ReadWaypoints(path)
	if err != nil {
		logger.Debug("using default waypoints", zap.String("path", path), zap.Error(err))
		return DefaultWaypoints()
	}
	return wps
}

// LoadObstacles reads the obstacle set at path, falling back to no obstacles
// on any error.
func LoadObstacles(path string, logger *zap.Logger) []Obstacle {
	obs, err := ReadObstacles(path)
	if err != nil {
		logger.Debug("using no obstacles", zap.String("path", path), zap.Error(err))
		return nil
	}
	return obs
}

// MarshalWaypoints encodes a route in the file format ReadWaypoints accepts.
func MarshalWaypoints(wps []r3.Vec) ([]byte, error) {
	raw := make([][]float64, len(wps))
	for i, w := range wps {
		raw[i] = []float64{w.X, w.Y, w.Z}
	}
	return json.Marshal(raw)
}

// MarshalObstacles encodes obstacles in the file format ReadObstacles accepts.
func MarshalObstacles(obs []Obstacle) ([]byte, error) {
	raw := make([]obstacleJSON, len(obs))
	for i, o := range obs {
		raw[i] = obstacleJSON{Center: []float64{o.Center.X, o.Center.Y, o.Center.Z}, Radius: o.Radius}
	}
	return json.Marshal(raw)
}

func vecFrom(p []float64) (r3.Vec, error) {
	if len(p) != 3 {
		return r3.Vec{}, fmt.Errorf("want 3 coordinates, got %d", len(p))
	}
	return r3.Vec{X: p[0], Y: p[1], Z: p[2]}, nil
}
