package render

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/shopspring/decimal"

	"riskdash/internal/core"
	"riskdash/internal/style"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func monthlySeries() *core.MonthlySeries {
	q1m1 := core.BucketKey{Quarter: 1, Month: 1}
	q1m2 := core.BucketKey{Quarter: 1, Month: 2}
	q2m4 := core.BucketKey{Quarter: 2, Month: 4}
	return &core.MonthlySeries{
		Field: core.ColAmount,
		Buckets: []core.MonthlyBucket{
			{Key: q1m1, Sum: decimal.NewFromInt(100)},
			{Key: q1m2, Sum: decimal.NewFromInt(300)},
			{Key: q2m4, Sum: decimal.NewFromInt(50)},
		},
		Overlay: []core.OverlayPoint{
			{Quarter: 1, At: q1m2, Value: decimal.NewFromInt(200)},
			{Quarter: 2, At: q2m4, Value: decimal.NewFromInt(50)},
		},
	}
}

func TestCharts(t *testing.T) {
	r := New(style.Default())
	panels := Panels{
		Monthly: monthlySeries(),
		Risk: &core.RiskSeries{
			Field: core.ColRiskFlag,
			Rows: []core.RiskMonthRow{
				{Month: 1, Label: "Jan", Class0: 3, Class1: 1, Total: 4, Pct: 25},
				{Month: 2, Label: "Feb", Class0: 0, Class1: 0, Total: 0, Pct: core.NaN()},
				{Month: 3, Label: "Mar", Class0: 1, Class1: 1, Total: 2, Pct: 50},
			},
			MaxCount: 3.3,
		},
		Age: &core.AgeSeries{
			Variant: "affiliation",
			Buckets: []core.AgeBucket{
				{Label: "< 1 year", Low: 0, High: 1, Count: 2},
				{Label: "1-3 years", Low: 1, High: 3, Count: 0},
				{Label: "> 3 years", Low: 3, High: math.Inf(1), Count: 5},
			},
		},
	}

	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			img, err := r.PNG(name, panels)
			if err != nil {
				t.Fatalf("PNG(%s) error = %v", name, err)
			}
			if !bytes.HasPrefix(img, pngMagic) {
				t.Fatalf("PNG(%s) did not produce a PNG image", name)
			}
		})
	}
}

func TestPlaceholders(t *testing.T) {
	r := New(style.Default())
	empty := Panels{
		Monthly: &core.MonthlySeries{Empty: true},
		Risk:    &core.RiskSeries{Empty: true},
	}
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			img, err := r.PNG(name, empty)
			if err != nil {
				t.Fatalf("placeholder %s error = %v", name, err)
			}
			if !bytes.HasPrefix(img, pngMagic) {
				t.Fatalf("placeholder %s is not a PNG", name)
			}
		})
	}
}

func TestUnknownChart(t *testing.T) {
	_, err := New(style.Default()).PNG("pie", Panels{})
	if !errors.Is(err, ErrUnknownChart) {
		t.Fatalf("expected ErrUnknownChart, got %v", err)
	}
}

func TestGapLineSegments(t *testing.T) {
	tests := []struct {
		name string
		ys   []float64
		want []int
	}{
		{name: "no gaps", ys: []float64{1, 2, 3}, want: []int{3}},
		{name: "gap in the middle", ys: []float64{1, math.NaN(), 3, 4}, want: []int{1, 2}},
		{name: "leading and trailing gaps", ys: []float64{math.NaN(), 2, math.NaN()}, want: []int{1}},
		{name: "all undefined", ys: []float64{math.NaN(), math.NaN()}, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			xs := make([]float64, len(tt.ys))
			for i := range xs {
				xs[i] = float64(i)
			}
			segs := gapLine{XValues: xs, YValues: tt.ys}.segments()
			if len(segs) != len(tt.want) {
				t.Fatalf("got %d segments, want %d", len(segs), len(tt.want))
			}
			for i, s := range segs {
				if len(s.XValues) != tt.want[i] {
					t.Errorf("segment %d has %d points, want %d", i, len(s.XValues), tt.want[i])
				}
			}
		})
	}
}

func TestBucketLabel(t *testing.T) {
	if got := BucketLabel(core.BucketKey{Quarter: 1, Month: 1}); got != "Q1 Ene" {
		t.Errorf("BucketLabel() = %q, want %q", got, "Q1 Ene")
	}
}
