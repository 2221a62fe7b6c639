// Package trajectory records the per-step state of a run and reads it back.
package trajectory

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"gonum.org/v1/gonum/spatial/r3"
)

// Header is the fixed column layout of a trajectory table.
var Header = []string{"t", "x", "y", "z", "wp_i", "dist"}

// Row is one logged step: the position before the step, the active waypoint
// and the distance to it.
type Row struct {
	T             float64
	Pos           r3.Vec
	WaypointIndex int
	Dist          float64
}

// Log is an append-only sequence of rows.
type Log struct {
	rows []Row
}

// NewLog returns a log with room for capacity rows.
func NewLog(capacity int) *Log {
	return &Log{rows: make([]Row, 0, capacity)}
}

// Append adds a row at the end.
func (l *Log) Append(r Row) { l.rows = append(l.rows, r) }

// Len returns the number of rows.
func (l *Log) Len() int { return len(l.rows) }

// Rows returns the logged rows. The slice must not be modified.
func (l *Log) Rows() []Row { return l.rows }

// Last returns the most recent row.
func (l *Log) Last() (Row, bool) {
	if len(l.rows) == 0 {
		return Row{}, false
	}
	return l.rows[len(l.rows)-1], true
}

func formatRow(r Row) []string {
	return []string{
		fmt.Sprintf("%.4f", r.T),
		fmt.Sprintf("%.5f", r.Pos.X),
		fmt.Sprintf("%.5f", r.Pos.Y),
		fmt.Sprintf("%.5f", r.Pos.Z),
		strconv.Itoa(r.WaypointIndex),
		fmt.Sprintf("%.5f", r.Dist),
	}
}

// Write encodes rows as CSV with Header as the first line.
func Write(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("CSV: cannot write header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write(formatRow(r)); err != nil {
			return fmt.Errorf("CSV: cannot write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSV writes the log to filename, creating parent directories.
func (l *Log) WriteCSV(filename string) error {
	return WriteCSV(filename, l.rows)
}

// WriteCSV writes rows to filename, creating parent directories.
func WriteCSV(filename string, rows []Row) (err error) {
	if dir := filepath.Dir(filename); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("CSV: cannot create directory: %w", err)
		}
	}
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("CSV: cannot open %s: %w", filename, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("CSV: cannot close %s: %w", filename, cerr)
		}
	}()
	return Write(f, rows)
}

// Read parses a trajectory table. Columns are located by header name, so
// extra columns and reordering are tolerated.
func Read(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("CSV: empty trajectory")
		}
		return nil, fmt.Errorf("CSV: cannot read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	for _, name := range Header {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("CSV: missing column %q", name)
		}
	}

	var rows []Row
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("CSV: line %d: %w", line, err)
		}
		row, err := parseRow(rec, col)
		if err != nil {
			return nil, fmt.Errorf("CSV: line %d: %w", line, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ReadCSV reads a trajectory table from filename.
func ReadCSV(filename string) ([]Row, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("CSV: cannot open %s: %w", filename, err)
	}
	defer f.Close()
	return Read(f)
}

func parseRow(rec []string, col map[string]int) (Row, error) {
	var vals [4]float64
	for i, name := range []string{"t", "x", "y", "z"} {
		v, err := strconv.ParseFloat(rec[col[name]], 64)
		if err != nil {
			return Row{}, fmt.Errorf("column %s: %w", name, err)
		}
		vals[i] = v
	}
	idx, err := strconv.Atoi(rec[col["wp_i"]])
	if err != nil {
		return Row{}, fmt.Errorf("column wp_i: %w", err)
	}
	dist, err := strconv.ParseFloat(rec[col["dist"]], 64)
	if err != nil {
		return Row{}, fmt.Errorf("column dist: %w", err)
	}
	return Row{
		T:             vals[0],
		Pos:           r3.Vec{X: vals[1], Y: vals[2], Z: vals[3]},
		WaypointIndex: idx,
		Dist:          dist,
	}, nil
}

// Columns splits rows into parallel per-field slices for plotting.
func Columns(rows []Row) (t, x, y, z, idx, dist []float64) {
	n := len(rows)
	t, x, y, z = make([]float64, n), make([]float64, n), make([]float64, n), make([]float64, n)
	idx, dist = make([]float64, n), make([]float64, n)
	for i, r := range rows {
		t[i], x[i], y[i], z[i] = r.T, r.Pos.X, r.Pos.Y, r.Pos.Z
		idx[i], dist[i] = float64(r.WaypointIndex), r.Dist
	}
	return t, x, y, z, idx, dist
}
