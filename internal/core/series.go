package core

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

// Stat is a float that may be undefined (NaN). Undefined values encode as JSON null.
type Stat float64

// NaN returns the undefined Stat.
func NaN() Stat {
	return Stat(math.NaN())
}

func (s Stat) Defined() bool {
	f := float64(s)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func (s Stat) MarshalJSON() ([]byte, error) {
	if !s.Defined() {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(float64(s), 'f', -1, 64)), nil
}

func (s *Stat) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*s = NaN()
		return nil
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("stat: %w", err)
	}
	*s = Stat(f)
	return nil
}

// Format renders the value with the given precision, or "n/a" when undefined.
func (s Stat) Format(prec int) string {
	if !s.Defined() {
		return "n/a"
	}
	return strconv.FormatFloat(float64(s), 'f', prec, 64)
}

// BucketKey is the categorical x coordinate of the monthly chart.
type BucketKey struct {
	Quarter Quarter
	Month   int
}

func (k BucketKey) String() string {
	return fmt.Sprintf("%s-%d", k.Quarter.Label(), k.Month)
}

// Less orders keys by quarter, then month.
func (k BucketKey) Less(o BucketKey) bool {
	if k.Quarter != o.Quarter {
		return k.Quarter < o.Quarter
	}
	return k.Month < o.Month
}

// MonthlyBucket is the summed amount of one (quarter, month) pair present in the input.
type MonthlyBucket struct {
	Key BucketKey
	Sum decimal.Decimal
}

func (b MonthlyBucket) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Key        string          `json:"key"`
		Quarter    string          `json:"quarter"`
		Month      int             `json:"month"`
		MonthLabel string          `json:"month_label"`
		Sum        json.RawMessage `json:"sum"`
	}{
		Key:        b.Key.String(),
		Quarter:    b.Key.Quarter.Label(),
		Month:      b.Key.Month,
		MonthLabel: MonthLabelES(b.Key.Month),
		Sum:        json.RawMessage(b.Sum.String()),
	})
}

// QuarterlyAverage is the mean of a quarter's monthly sums.
type QuarterlyAverage struct {
	Quarter Quarter
	Mean    decimal.Decimal
	Months  int
}

func (a QuarterlyAverage) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Quarter string          `json:"quarter"`
		Mean    json.RawMessage `json:"mean"`
		Months  int             `json:"months"`
	}{a.Quarter.Label(), json.RawMessage(a.Mean.String()), a.Months})
}

// OverlayPoint places a quarterly average over one of the quarter's buckets.
type OverlayPoint struct {
	Quarter Quarter
	At      BucketKey
	Value   decimal.Decimal
}

func (p OverlayPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Quarter string          `json:"quarter"`
		At      string          `json:"at"`
		Value   json.RawMessage `json:"value"`
	}{p.Quarter.Label(), p.At.String(), json.RawMessage(p.Value.String())})
}

type RiskMonthRow struct {
	Month  int    `json:"month"`
	Label  string `json:"month_label"`
	Class0 int    `json:"count_class0"`
	Class1 int    `json:"count_class1"`
	Total  int    `json:"total"`
	Pct    Stat   `json:"risk_pct"`
}

// AgeBucket counts distinct accounts whose age falls in [Low, High).
type AgeBucket struct {
	Label string
	Low   float64
	High  float64
	Count int
}

// Contains reports whether age lies in the half-open range.
func (b AgeBucket) Contains(age float64) bool {
	return age >= b.Low && age < b.High
}

func (b AgeBucket) MarshalJSON() ([]byte, error) {
	var high *float64
	if !math.IsInf(b.High, 1) {
		h := b.High
		high = &h
	}
	return json.Marshal(struct {
		Label string   `json:"label"`
		Low   float64  `json:"low"`
		High  *float64 `json:"high"`
		Count int      `json:"count"`
	}{b.Label, b.Low, high, b.Count})
}

// Panels as emitted to the chart, export and terminal layers.
type (
	MonthlySeries struct {
		Field    string             `json:"field"`
		Buckets  []MonthlyBucket    `json:"buckets"`
		Averages []QuarterlyAverage `json:"averages"`
		Overlay  []OverlayPoint     `json:"overlay"`
		Empty    bool               `json:"empty"`
	}

	RiskSeries struct {
		Field string         `json:"field"`
		Rows  []RiskMonthRow `json:"rows"`
		// MaxCount is the primary axis ceiling (1.1 * largest class count).
		MaxCount float64 `json:"max_count"`
		Empty    bool    `json:"empty"`
	}

	AgeSeries struct {
		Variant string      `json:"variant"`
		Buckets []AgeBucket `json:"buckets"`
		Empty   bool        `json:"empty"`
	}
)
