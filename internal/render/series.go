package render

import (
	"fmt"
	"math"

	chart "github.com/wcharczuk/go-chart/v2"
)

// barSeries draws every value as a bar of fixed pixel width, so bars can
// share a chart with line series.
type barSeries struct {
	Name   string
	Style  chart.Style
	YAxis  chart.YAxisType
	Width  int
	Values chart.ContinuousSeries
}

func (b barSeries) GetName() string           { return b.Name }
func (b barSeries) GetStyle() chart.Style     { return b.Style }
func (b barSeries) GetYAxis() chart.YAxisType { return b.YAxis }

func (b barSeries) Validate() error {
	if len(b.Values.XValues) != len(b.Values.YValues) {
		return fmt.Errorf("bar series %q: x and y values differ in length", b.Name)
	}
	return nil
}

func (b barSeries) Render(r chart.Renderer, canvasBox chart.Box, xrange, yrange chart.Range, defaults chart.Style) {
	style := b.Style.InheritFrom(defaults)
	width := b.Width
	if width < 2 {
		width = 2
	}
	chart.Draw.HistogramSeries(r, canvasBox, xrange, yrange, style, b.Values, width)
}

// gapLine is a line series that breaks at NaN values instead of drawing
// through them.
type gapLine struct {
	Name    string
	Style   chart.Style
	YAxis   chart.YAxisType
	XValues []float64
	YValues []float64
}

func (g gapLine) GetName() string           { return g.Name }
func (g gapLine) GetStyle() chart.Style     { return g.Style }
func (g gapLine) GetYAxis() chart.YAxisType { return g.YAxis }

func (g gapLine) Validate() error {
	if len(g.XValues) != len(g.YValues) {
		return fmt.Errorf("line series %q: x and y values differ in length", g.Name)
	}
	return nil
}

func (g gapLine) Render(r chart.Renderer, canvasBox chart.Box, xrange, yrange chart.Range, defaults chart.Style) {
	style := g.Style.InheritFrom(defaults)
	for _, seg := range g.segments() {
		chart.Draw.LineSeries(r, canvasBox, xrange, yrange, style, seg)
	}
}

// segments splits the line into runs of defined values.
func (g gapLine) segments() []chart.ContinuousSeries {
	var (
		out []chart.ContinuousSeries
		cur chart.ContinuousSeries
	)
	for i, y := range g.YValues {
		if math.IsNaN(y) || math.IsInf(y, 0) {
			if len(cur.XValues) > 0 {
				out = append(out, cur)
				cur = chart.ContinuousSeries{}
			}
			continue
		}
		cur.XValues = append(cur.XValues, g.XValues[i])
		cur.YValues = append(cur.YValues, y)
	}
	if len(cur.XValues) > 0 {
		out = append(out, cur)
	}
	return out
}
