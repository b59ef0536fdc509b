// Package render draws the dashboard panels as PNG images.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/dustin/go-humanize"
	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"riskdash/internal/analytics"
	"riskdash/internal/core"
	"riskdash/internal/style"
)

// Chart names accepted by Renderer.Chart.
const (
	ChartMonthly = "monthly"
	ChartRisk    = "risk"
	ChartAge     = "age"
)

var ErrUnknownChart = errors.New("unknown chart")

// Panels is the subset of a dashboard a chart is drawn from.
type Panels struct {
	Monthly *core.MonthlySeries
	Risk    *core.RiskSeries
	Age     *core.AgeSeries
}

// Renderer draws panels with a fixed theme.
type Renderer struct {
	theme style.Theme
}

func New(theme style.Theme) *Renderer {
	return &Renderer{theme: theme}
}

// Names lists the chart names in display order.
func Names() []string {
	return []string{ChartMonthly, ChartRisk, ChartAge}
}

// Chart writes the named chart as PNG. A nil panel renders a placeholder.
func (r *Renderer) Chart(w io.Writer, name string, p Panels) error {
	switch name {
	case ChartMonthly:
		return r.Monthly(w, p.Monthly)
	case ChartRisk:
		return r.Risk(w, p.Risk)
	case ChartAge:
		return r.Age(w, p.Age)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownChart, name)
	}
}

// Monthly draws one bar per (quarter, month) bucket with the quarterly
// averages overlaid at their aligned buckets. The y axis starts at zero.
func (r *Renderer) Monthly(w io.Writer, s *core.MonthlySeries) error {
	t := r.theme
	if s == nil || s.Empty {
		return r.placeholder(w, t.MonthlyTitle, t.MonthlyHeight)
	}

	index := make(map[core.BucketKey]int, len(s.Buckets))
	xs := make([]float64, len(s.Buckets))
	ys := make([]float64, len(s.Buckets))
	ticks := make([]chart.Tick, len(s.Buckets))
	maxY := 0.0
	for i, b := range s.Buckets {
		index[b.Key] = i
		xs[i] = float64(i)
		ys[i] = b.Sum.InexactFloat64()
		ticks[i] = chart.Tick{Value: float64(i), Label: BucketLabel(b.Key)}
		maxY = math.Max(maxY, ys[i])
	}

	var ox, oy []float64
	for _, p := range s.Overlay {
		i, ok := index[p.At]
		if !ok {
			continue
		}
		ox = append(ox, float64(i))
		oy = append(oy, p.Value.InexactFloat64())
	}

	series := []chart.Series{
		barSeries{
			Name:   "Monthly total",
			Style:  chart.Style{FillColor: color(t.BarColor), StrokeColor: color(t.BarColor), StrokeWidth: 1},
			Width:  t.BarWidth,
			Values: chart.ContinuousSeries{XValues: xs, YValues: ys},
		},
	}
	if len(ox) > 0 {
		series = append(series, chart.ContinuousSeries{
			Name:    "Quarterly average",
			XValues: ox,
			YValues: oy,
			Style: chart.Style{
				StrokeColor: color(t.OverlayColor),
				StrokeWidth: t.LineWidth,
				DotColor:    color(t.OverlayColor),
				DotWidth:    t.DotSize,
			},
		})
	}

	ch := r.base(t.MonthlyTitle, t.MonthlyHeight)
	ch.XAxis = chart.XAxis{Ticks: ticks, Range: categoryRange(len(xs))}
	ch.YAxis = chart.YAxis{
		Name:           s.Field,
		Range:          &chart.ContinuousRange{Min: 0, Max: ceiling(maxY)},
		ValueFormatter: commaFormatter,
	}
	ch.Series = series
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	return ch.Render(chart.PNG, w)
}

// Risk draws class counts as grouped bars on the primary axis and the risk
// percentage on a fixed 0..100 secondary axis. Undefined percentages leave
// gaps in the line.
func (r *Renderer) Risk(w io.Writer, s *core.RiskSeries) error {
	t := r.theme
	if s == nil || s.Empty {
		return r.placeholder(w, t.RiskTitle, t.Height)
	}

	n := len(s.Rows)
	x0 := make([]float64, n)
	x1 := make([]float64, n)
	c0 := make([]float64, n)
	c1 := make([]float64, n)
	xs := make([]float64, n)
	pct := make([]float64, n)
	ticks := make([]chart.Tick, n)
	for i, row := range s.Rows {
		x := float64(i)
		x0[i], x1[i], xs[i] = x-0.2, x+0.2, x
		c0[i], c1[i] = float64(row.Class0), float64(row.Class1)
		pct[i] = float64(row.Pct)
		ticks[i] = chart.Tick{Value: x, Label: row.Label}
	}

	half := t.BarWidth / 2
	if half < 2 {
		half = 2
	}
	ch := r.base(t.RiskTitle, t.Height)
	ch.XAxis = chart.XAxis{Ticks: ticks, Range: categoryRange(n)}
	ch.YAxis = chart.YAxis{
		Name:  t.CountAxisLabel,
		Range: &chart.ContinuousRange{Min: 0, Max: math.Max(s.MaxCount, 1)},
	}
	ch.YAxisSecondary = chart.YAxis{
		Name:  t.PctAxisLabel,
		Range: &chart.ContinuousRange{Min: 0, Max: analytics.PctAxisMax},
	}
	ch.Series = []chart.Series{
		barSeries{
			Name:   "Class 0",
			Style:  chart.Style{FillColor: color(t.Class0Color), StrokeColor: color(t.Class0Color), StrokeWidth: 1},
			Width:  half,
			Values: chart.ContinuousSeries{XValues: x0, YValues: c0},
		},
		barSeries{
			Name:   "Class 1",
			Style:  chart.Style{FillColor: color(t.Class1Color), StrokeColor: color(t.Class1Color), StrokeWidth: 1},
			Width:  half,
			Values: chart.ContinuousSeries{XValues: x1, YValues: c1},
		},
		gapLine{
			Name:  "Risk %",
			YAxis: chart.YAxisSecondary,
			Style: chart.Style{
				StrokeColor: color(t.PctColor),
				StrokeWidth: t.LineWidth,
				DotColor:    color(t.PctColor),
				DotWidth:    t.DotSize,
			},
			XValues: xs,
			YValues: pct,
		},
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	return ch.Render(chart.PNG, w)
}

// Age draws the three account-age buckets.
func (r *Renderer) Age(w io.Writer, s *core.AgeSeries) error {
	t := r.theme
	if s == nil || len(s.Buckets) == 0 {
		return r.placeholder(w, t.AgeTitle, t.Height)
	}

	bars := make([]chart.Value, len(s.Buckets))
	maxY := 0.0
	for i, b := range s.Buckets {
		bars[i] = chart.Value{
			Label: b.Label,
			Value: float64(b.Count),
			Style: chart.Style{FillColor: color(t.AgeColor), StrokeColor: color(t.AgeColor), StrokeWidth: 1},
		}
		maxY = math.Max(maxY, float64(b.Count))
	}

	bc := chart.BarChart{
		Title:      t.AgeTitle,
		Width:      t.Width,
		Height:     t.Height,
		BarWidth:   t.BarWidth * 3,
		Background: chart.Style{FillColor: color(t.Background), Padding: chart.Box{Top: 40, Left: 16, Right: 12, Bottom: 16}},
		Canvas:     chart.Style{FillColor: color(t.Background)},
		YAxis: chart.YAxis{
			Name:  t.CountAxisLabel,
			Range: &chart.ContinuousRange{Min: 0, Max: ceiling(maxY)},
		},
		Bars: bars,
	}
	return bc.Render(chart.PNG, w)
}

// PNG renders the named chart into memory.
func (r *Renderer) PNG(name string, p Panels) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.Chart(&buf, name, p); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *Renderer) base(title string, height int) chart.Chart {
	t := r.theme
	return chart.Chart{
		Title:      title,
		Width:      t.Width,
		Height:     height,
		Background: chart.Style{FillColor: color(t.Background), Padding: chart.Box{Top: 40, Left: 16, Right: 12, Bottom: 16}},
		Canvas:     chart.Style{FillColor: color(t.Background)},
	}
}

// placeholder draws empty axes so callers always get an image.
func (r *Renderer) placeholder(w io.Writer, title string, height int) error {
	ch := r.base(title+" (no data)", height)
	ch.XAxis = chart.XAxis{Range: &chart.ContinuousRange{Min: 0, Max: 1}}
	ch.YAxis = chart.YAxis{Range: &chart.ContinuousRange{Min: 0, Max: 1}}
	ch.Series = []chart.Series{
		chart.ContinuousSeries{
			XValues: []float64{0, 1},
			YValues: []float64{0, 0},
			Style:   chart.Style{StrokeColor: drawing.ColorTransparent, StrokeWidth: 1},
		},
	}
	return ch.Render(chart.PNG, w)
}

// BucketLabel is the x tick of a monthly bucket, e.g. "Q1 Ene".
func BucketLabel(k core.BucketKey) string {
	return k.Quarter.Label() + " " + core.MonthLabelES(k.Month)
}

func categoryRange(n int) *chart.ContinuousRange {
	return &chart.ContinuousRange{Min: -0.5, Max: float64(n) - 0.5}
}

// ceiling leaves headroom above the tallest bar and never returns zero.
func ceiling(max float64) float64 {
	if max <= 0 {
		return 1
	}
	return max * 1.1
}

func color(hex string) drawing.Color {
	return drawing.ColorFromHex(hex)
}

func commaFormatter(v interface{}) string {
	f, ok := v.(float64)
	if !ok {
		return fmt.Sprint(v)
	}
	return humanize.Comma(int64(math.Round(f)))
}
