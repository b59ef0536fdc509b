package analytics

import (
	"sort"

	"riskdash/internal/core"
)

// DefaultFlagField is the binary risk column.
const DefaultFlagField = core.ColRiskFlag

// PctAxisMax is the fixed ceiling of the secondary percentage axis.
const PctAxisMax = 100.0

// AggregateRisk cross-tabulates the binary flag by month. Both classes are
// always present (zero when unseen); Pct is NaN when a month has no
// classified rows. Rows are ordered by month.
//
// Records whose flag cell is empty or not 0/1 are not classified, so the
// Class0+Class1 totals sum to the number of records with a valid flag and a
// month, not to the table length.
func AggregateRisk(t core.Table, flagField string) ([]core.RiskMonthRow, error) {
	if flagField == "" {
		flagField = DefaultFlagField
	}
	if err := t.Require(core.ColMonth, flagField); err != nil {
		return nil, err
	}
	if t.IsEmpty() {
		return nil, nil
	}

	type counts struct{ c0, c1 int }
	byMonth := make(map[int]*counts)
	for _, r := range t.Records {
		if r.Month < 1 || r.Month > 12 {
			continue
		}
		flag, ok := r.Flag(flagField)
		if !ok {
			continue
		}
		c := byMonth[r.Month]
		if c == nil {
			c = &counts{}
			byMonth[r.Month] = c
		}
		if flag == 1 {
			c.c1++
		} else {
			c.c0++
		}
	}

	rows := make([]core.RiskMonthRow, 0, len(byMonth))
	for m, c := range byMonth {
		rows = append(rows, newRiskRow(m, c.c0, c.c1))
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Month < rows[j].Month })
	return rows, nil
}

func newRiskRow(month, c0, c1 int) core.RiskMonthRow {
	total := c0 + c1
	pct := core.NaN()
	if total > 0 {
		pct = core.Stat(100 * float64(c1) / float64(total))
	}
	return core.RiskMonthRow{
		Month:  month,
		Label:  core.MonthLabel(month),
		Class0: c0,
		Class1: c1,
		Total:  total,
		Pct:    pct,
	}
}

// RiskAxisMax is the primary count axis ceiling: 110% of the largest class count.
func RiskAxisMax(rows []core.RiskMonthRow) float64 {
	max := 0
	for _, r := range rows {
		if r.Class0 > max {
			max = r.Class0
		}
		if r.Class1 > max {
			max = r.Class1
		}
	}
	return float64(max) * 1.1
}

// RiskPanel runs AggregateRisk and packages the result.
func RiskPanel(t core.Table, flagField string) (core.RiskSeries, error) {
	if flagField == "" {
		flagField = DefaultFlagField
	}
	rows, err := AggregateRisk(t, flagField)
	if err != nil {
		return core.RiskSeries{Field: flagField}, err
	}
	return core.RiskSeries{
		Field:    flagField,
		Rows:     rows,
		MaxCount: RiskAxisMax(rows),
		Empty:    len(rows) == 0,
	}, nil
}
