package trajectory

import (
	"bytes"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/mohammadijoo/DronePath_Go/internal/scene"
)

func sampleRows() []Row {
	return []Row{
		{T: 0, Pos: r3.Vec{Z: 0.3}, WaypointIndex: 0, Dist: 1.0},
		{T: 0.5, Pos: r3.Vec{X: 0.3, Z: 0.3}, WaypointIndex: 0, Dist: 0.7},
		{T: 1.0, Pos: r3.Vec{X: 0.6, Z: 0.3}, WaypointIndex: 1, Dist: 0.4},
	}
}

func TestWrite_Format(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, []Row{{T: 1.0 / 3.0, Pos: r3.Vec{X: 1, Y: -0.5, Z: 0.123456789}, WaypointIndex: 2, Dist: 0.05}}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "t,x,y,z,wp_i,dist", lines[0])
	assert.Equal(t, "0.3333,1.00000,-0.50000,0.12346,2,0.05000", lines[1])
}

func TestCSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "trajectory.csv")
	l := NewLog(3)
	for _, r := range sampleRows() {
		l.Append(r)
	}
	require.NoError(t, l.WriteCSV(path))

	got, err := ReadCSV(path)
	require.NoError(t, err)
	if diff := cmp.Diff(sampleRows(), got, cmpopts.EquateApprox(0, 1e-5)); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestRead_ReorderedColumns(t *testing.T) {
	in := "wp_i,dist,t,z,y,x,extra\n3,0.1,2.5,0.3,0.2,0.1,foo\n"
	rows, err := Read(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, Row{T: 2.5, Pos: r3.Vec{X: 0.1, Y: 0.2, Z: 0.3}, WaypointIndex: 3, Dist: 0.1}, rows[0])
}

func TestRead_Errors(t *testing.T) {
	cases := map[string]string{
		"empty":          "",
		"missing column": "t,x,y,z,dist\n0,0,0,0,0\n",
		"bad float":      "t,x,y,z,wp_i,dist\n0,abc,0,0,0,0\n",
		"bad index":      "t,x,y,z,wp_i,dist\n0,0,0,0,1.5,0\n",
		"short row":      "t,x,y,z,wp_i,dist\n0,0,0\n",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Read(strings.NewReader(in))
			assert.Error(t, err)
		})
	}
}

func TestLog_Last(t *testing.T) {
	l := NewLog(0)
	_, ok := l.Last()
	assert.False(t, ok)

	l.Append(Row{T: 1})
	l.Append(Row{T: 2})
	last, ok := l.Last()
	assert.True(t, ok)
	assert.Equal(t, 2.0, last.T)
	assert.Equal(t, 2, l.Len())
}

func TestColumns(t *testing.T) {
	tt, x, _, z, idx, dist := Columns(sampleRows())
	assert.Equal(t, []float64{0, 0.5, 1.0}, tt)
	assert.Equal(t, []float64{0, 0.3, 0.6}, x)
	assert.Equal(t, []float64{0.3, 0.3, 0.3}, z)
	assert.Equal(t, []float64{0, 0, 1}, idx)
	assert.Equal(t, []float64{1.0, 0.7, 0.4}, dist)
}

func TestSummarize(t *testing.T) {
	obs := []scene.Obstacle{{Center: r3.Vec{X: 0.6, Y: 0.5, Z: 0.3}, Radius: 0.1}}
	s := Summarize(sampleRows(), obs)

	assert.Equal(t, 3, s.Rows)
	assert.InDelta(t, 1.0, s.Duration, 1e-12)
	assert.InDelta(t, 0.6, s.PathLength, 1e-12)
	assert.InDelta(t, 0.6, s.MeanSpeed, 1e-12)
	assert.InDelta(t, 0.7, s.MeanDist, 1e-12)
	assert.InDelta(t, 0.4, s.FinalDist, 1e-12)
	assert.Equal(t, 1, s.MaxIndex)
	assert.InDelta(t, 0.4, s.MinClearance, 1e-12)
	assert.True(t, s.IndexMonotone)
}

func TestSummarize_Edges(t *testing.T) {
	empty := Summarize(nil, nil)
	assert.Equal(t, 0, empty.Rows)
	assert.True(t, math.IsInf(empty.MinClearance, 1))

	rows := sampleRows()
	rows[2].WaypointIndex = 0
	rows[1].WaypointIndex = 1
	assert.False(t, Summarize(rows, nil).IndexMonotone)
}

func TestSummary_MarshalLogObject(t *testing.T) {
	enc := zapcore.NewMapObjectEncoder()
	require.NoError(t, Summarize(sampleRows(), nil).MarshalLogObject(enc))
	assert.Equal(t, 3, enc.Fields["rows"])
	assert.Equal(t, true, enc.Fields["index_monotone"])
	assert.NotContains(t, enc.Fields, "min_clearance")
}
