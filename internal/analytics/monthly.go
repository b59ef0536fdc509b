// Package analytics turns filtered record tables into chart-ready series.
//
// Every aggregation is a pure function of its input table and parameters:
// nothing is cached and the input is never modified.
package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"riskdash/internal/core"
)

// DefaultAmountField is the column summed by the monthly chart.
const DefaultAmountField = core.ColAmount

// AggregateMonthly sums field per (quarter, month) and averages the monthly
// sums per quarter. Buckets are ordered by quarter then month; averages by
// quarter. Only pairs present in the input produce buckets. A field holding
// text or dates is a NonNumericColumnError.
func AggregateMonthly(t core.Table, field string) ([]core.MonthlyBucket, []core.QuarterlyAverage, error) {
	if field == "" {
		field = DefaultAmountField
	}
	if err := t.Require(core.ColQuarter, core.ColMonth, field); err != nil {
		return nil, nil, err
	}
	if err := t.RequireNumeric(field); err != nil {
		return nil, nil, err
	}
	if t.IsEmpty() {
		return nil, nil, nil
	}

	sums := make(map[core.BucketKey]decimal.Decimal)
	for _, r := range t.Records {
		if !r.Quarter.Valid() || r.Month < 1 || r.Month > 12 {
			continue
		}
		key := core.BucketKey{Quarter: r.Quarter, Month: r.Month}
		acc := sums[key]
		if v, ok := r.Numeric(field); ok {
			acc = acc.Add(v)
		}
		sums[key] = acc
	}

	buckets := make([]core.MonthlyBucket, 0, len(sums))
	for k, v := range sums {
		buckets = append(buckets, core.MonthlyBucket{Key: k, Sum: v})
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Key.Less(buckets[j].Key)
	})

	return buckets, quarterlyAverages(buckets), nil
}

func quarterlyAverages(buckets []core.MonthlyBucket) []core.QuarterlyAverage {
	totals := make(map[core.Quarter]decimal.Decimal)
	counts := make(map[core.Quarter]int)
	for _, b := range buckets {
		totals[b.Key.Quarter] = totals[b.Key.Quarter].Add(b.Sum)
		counts[b.Key.Quarter]++
	}

	out := make([]core.QuarterlyAverage, 0, len(counts))
	for _, q := range core.Quarters {
		n := counts[q]
		if n == 0 {
			continue
		}
		out = append(out, core.QuarterlyAverage{
			Quarter: q,
			Mean:    totals[q].Div(decimal.NewFromInt(int64(n))),
			Months:  n,
		})
	}
	return out
}

// MonthlyPanel runs AggregateMonthly and Align and packages the result.
func MonthlyPanel(t core.Table, field string) (core.MonthlySeries, error) {
	if field == "" {
		field = DefaultAmountField
	}
	buckets, averages, err := AggregateMonthly(t, field)
	if err != nil {
		return core.MonthlySeries{Field: field}, err
	}
	return core.MonthlySeries{
		Field:    field,
		Buckets:  buckets,
		Averages: averages,
		Overlay:  Align(buckets, averages),
		Empty:    len(buckets) == 0,
	}, nil
}
