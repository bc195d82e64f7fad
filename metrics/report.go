package metrics

import (
	"io"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/zeu5/rl-trainer/core"
	"github.com/zeu5/rl-trainer/util"
)

type Series struct {
	Steps  []int
	Values []float64
}

type SeriesSummary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Last   float64 `json:"last"`
}

// Report keeps every scalar in memory and on Flush renders one line chart
// per series to metrics.html and summary statistics to summary.json.
type Report struct {
	dir    string
	series map[string]*Series
}

var _ core.MetricsSink = &Report{}

func NewReport(dir string) *Report {
	return &Report{
		dir:    dir,
		series: make(map[string]*Series),
	}
}

func (r *Report) RecordScalar(name string, value float64, step int) error {
	s, ok := r.series[name]
	if !ok {
		s = &Series{Steps: make([]int, 0), Values: make([]float64, 0)}
		r.series[name] = s
	}
	s.Steps = append(s.Steps, step)
	s.Values = append(s.Values, value)
	return nil
}

func (r *Report) names() []string {
	names := make([]string, 0, len(r.series))
	for name := range r.series {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Report) Summary() map[string]SeriesSummary {
	out := make(map[string]SeriesSummary)
	for name, s := range r.series {
		if len(s.Values) == 0 {
			continue
		}
		mean, std := stat.MeanStdDev(s.Values, nil)
		if len(s.Values) == 1 {
			std = 0
		}
		out[name] = SeriesSummary{
			Count:  len(s.Values),
			Mean:   mean,
			StdDev: std,
			Min:    floats.Min(s.Values),
			Max:    floats.Max(s.Values),
			Last:   s.Values[len(s.Values)-1],
		}
	}
	return out
}

func (r *Report) Series(name string) (Series, bool) {
	s, ok := r.series[name]
	if !ok {
		return Series{}, false
	}
	steps := make([]int, len(s.Steps))
	copy(steps, s.Steps)
	return Series{Steps: steps, Values: util.CopyFloatSlice(s.Values)}, true
}

// Render writes the chart page for all series
func (r *Report) Render(w io.Writer) error {
	page := components.NewPage()
	page.PageTitle = "Training metrics"
	for _, name := range r.names() {
		s := r.series[name]
		line := charts.NewLine()
		line.SetGlobalOptions(
			charts.WithTitleOpts(opts.Title{
				Title: name,
			}),
			charts.WithInitializationOpts(opts.Initialization{
				Theme: "shine",
			}),
		)
		steps := make([]string, len(s.Steps))
		items := make([]opts.LineData, len(s.Values))
		for i := range s.Steps {
			steps[i] = strconv.Itoa(s.Steps[i])
			items[i] = opts.LineData{Value: s.Values[i]}
		}
		line.SetXAxis(steps).AddSeries(name, items)
		page.AddCharts(line)
	}
	return page.Render(w)
}

func (r *Report) Flush() error {
	if err := util.WriteFileAtomic(filepath.Join(r.dir, ChartFile), r.Render); err != nil {
		return err
	}
	return util.SaveJson(filepath.Join(r.dir, SummaryFile), r.Summary())
}
