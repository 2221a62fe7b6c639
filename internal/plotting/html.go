package plotting

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/spatial/r3"
)

func chart3DData(ps []r3.Vec) []opts.Chart3DData {
	data := make([]opts.Chart3DData, 0, len(ps))
	for _, p := range ps {
		data = append(data, opts.Chart3DData{Value: []interface{}{p.X, p.Y, p.Z}})
	}
	return data
}

func axes3D() []charts.GlobalOpts {
	return []charts.GlobalOpts{
		charts.WithXAxis3DOpts(opts.XAxis3D{Name: "X (m)"}),
		charts.WithYAxis3DOpts(opts.YAxis3D{Name: "Y (m)"}),
		charts.WithZAxis3DOpts(opts.ZAxis3D{Name: "Z (m)"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	}
}

// buildPage assembles the interactive page: the path as a 3D line and the
// markers (start, end, waypoints, obstacle centres) as a 3D scatter.
func buildPage(in Input) (*components.Page, error) {
	if len(in.Rows) == 0 {
		return nil, ErrNoRows
	}
	path := positions(in.Rows)
	subtitle := fmt.Sprintf("rows=%d waypoints=%d obstacles=%d", len(in.Rows), len(in.Waypoints), len(in.Obstacles))

	line := charts.NewLine3D()
	line.SetGlobalOptions(append(axes3D(),
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Drone Trajectory", Width: "900px", Height: "700px"}),
		charts.WithTitleOpts(opts.Title{Title: "Drone Trajectory", Subtitle: subtitle}),
	)...)
	line.AddSeries("trajectory", chart3DData(path),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: "#1f77b4"}))

	markers := charts.NewScatter3D()
	markers.SetGlobalOptions(append(axes3D(),
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "700px"}),
		charts.WithTitleOpts(opts.Title{Title: "Waypoints and obstacles"}),
	)...)
	markers.AddSeries("start", chart3DData(path[:1]),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: "#2ca02c"}))
	markers.AddSeries("end", chart3DData(path[len(path)-1:]),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: "#d62728"}))
	if len(in.Waypoints) > 0 {
		markers.AddSeries("waypoints", chart3DData(in.Waypoints),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: "#ff7f0e"}))
	}
	if len(in.Obstacles) > 0 {
		markers.AddSeries("obstacles", chart3DData(centres(in.Obstacles)),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: "#9467bd"}))
	}

	page := components.NewPage()
	page.PageTitle = "Drone Trajectory"
	page.AddCharts(line, markers)
	return page, nil
}

func saveHTML(in Input, filename string) error {
	page, err := buildPage(in)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return fmt.Errorf("cannot create directory: %w", err)
	}
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("cannot create html: %w", err)
	}
	bw := bufio.NewWriter(f)
	if err := page.Render(bw); err != nil {
		_ = f.Close()
		return fmt.Errorf("render error: %w", err)
	}
	if err := bw.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("cannot write html: %w", err)
	}
	return f.Close()
}
