package analytics

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"riskdash/internal/core"
)

func profileRecord(risk, approved, everDel, season int, amount int64, delinq int64, category, payment string) core.Record {
	return core.Record{
		RiskFlag: risk,
		Amount:   decimal.NewNullDecimal(decimal.NewFromInt(amount)),
		Attrs: core.Attributes{
			Numbers: map[string]decimal.Decimal{core.ColNumDelinquencies: decimal.NewFromInt(delinq)},
			Flags: map[string]int{
				core.ColApproved:       approved,
				core.ColEverDelinquent: everDel,
				core.ColHighSeason:     season,
			},
			Labels: map[string]string{
				core.ColLoanRequestID: "L",
				core.ColCategory:      category,
				core.ColPaymentMethod: payment,
			},
		},
	}
}

func profileTable() core.Table {
	return core.Table{
		Columns: core.NewColumnSet(core.ColRiskFlag, core.ColAmount, core.ColApproved, core.ColCategory),
		Records: []core.Record{
			profileRecord(0, 1, 0, 1, 100, 0, "Food", "card"),
			profileRecord(0, 0, 0, 0, 300, 2, "Tech", "cash"),
			profileRecord(1, 1, 1, 1, 50, 4, "Food", "card"),
			profileRecord(1, 1, 1, 1, 150, 2, "Food", "cash"),
		},
	}
}

func closeTo(s core.Stat, want float64) bool {
	return s.Defined() && math.Abs(float64(s)-want) < 1e-9
}

func TestBuildProfileSummary(t *testing.T) {
	p, err := BuildProfile(profileTable(), ProfileFilter{}, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if p.Records != 4 || len(p.Summary) != 2 {
		t.Fatalf("unexpected profile: %+v", p)
	}

	low, high := p.Summary[0], p.Summary[1]
	if low.Risk != 0 || low.Loans != 2 || !closeTo(low.ApprovalRate, 0.5) || !closeTo(low.AvgAmount, 200) {
		t.Fatalf("unexpected risk 0 summary: %+v", low)
	}
	if !closeTo(low.EverDelinquentRate, 0) || !closeTo(low.AvgDelinquencies, 1) {
		t.Fatalf("unexpected risk 0 delinquency: %+v", low)
	}
	if high.Risk != 1 || !closeTo(high.ApprovalRate, 1) || !closeTo(high.AvgDelinquencies, 3) {
		t.Fatalf("unexpected risk 1 summary: %+v", high)
	}
	if high.AvgTenureDays.Defined() {
		t.Fatalf("tenure should be undefined without affiliation data")
	}

	wantCats := []GroupCount{{0, "Food", 1}, {0, "Tech", 1}, {1, "Food", 2}}
	if !reflect.DeepEqual(p.Categories, wantCats) {
		t.Fatalf("unexpected categories: %+v", p.Categories)
	}
	wantPays := []GroupCount{{0, "card", 1}, {0, "cash", 1}, {1, "card", 1}, {1, "cash", 1}}
	if !reflect.DeepEqual(p.PaymentMethods, wantPays) {
		t.Fatalf("unexpected payment methods: %+v", p.PaymentMethods)
	}

	if len(p.Seasonality) != 3 {
		t.Fatalf("expected 3 season rows, got %+v", p.Seasonality)
	}
	if s := p.Seasonality[0]; s.Risk != 0 || s.Season != SeasonLow || s.Loans != 1 {
		t.Fatalf("unexpected first season row: %+v", s)
	}
	if s := p.Seasonality[2]; s.Risk != 1 || s.Season != SeasonHigh || s.Loans != 2 || !closeTo(s.AvgAmount, 100) {
		t.Fatalf("unexpected last season row: %+v", s)
	}
}

func TestBuildProfileFilters(t *testing.T) {
	yes := true
	tests := []struct {
		name    string
		filter  ProfileFilter
		records int
	}{
		{"risk levels", ProfileFilter{RiskLevels: []int{1}}, 2},
		{"ever delinquent", ProfileFilter{EverDelinquent: &yes}, 2},
		{"categories", ProfileFilter{Categories: []string{"Tech"}}, 1},
		{"combined", ProfileFilter{RiskLevels: []int{0}, Categories: []string{"Food"}}, 1},
		{"nothing matches", ProfileFilter{RiskLevels: []int{0}, EverDelinquent: &yes}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := BuildProfile(profileTable(), tt.filter, time.Now())
			if err != nil {
				t.Fatal(err)
			}
			if p.Records != tt.records {
				t.Fatalf("expected %d records, got %d", tt.records, p.Records)
			}
			if p.Empty != (tt.records == 0) {
				t.Fatalf("unexpected empty flag")
			}
		})
	}
}

func TestBuildProfileTenure(t *testing.T) {
	now := time.Date(2025, 1, 11, 0, 0, 0, 0, time.UTC)
	tbl := core.Table{
		Columns: core.NewColumnSet(core.ColRiskFlag, core.ColAffiliationDate),
		Records: []core.Record{
			{RiskFlag: 0, AffiliationDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
			{RiskFlag: 0, Attrs: core.Attributes{Numbers: map[string]decimal.Decimal{core.ColDaysSinceAffiliation: decimal.NewFromInt(30)}}},
		},
	}
	p, err := BuildProfile(tbl, ProfileFilter{}, now)
	if err != nil {
		t.Fatal(err)
	}
	if !closeTo(p.Summary[0].AvgTenureDays, 20) {
		t.Fatalf("expected 20 days, got %v", p.Summary[0].AvgTenureDays)
	}
}

func TestBuildProfileMissingRiskColumn(t *testing.T) {
	tbl := core.Table{Columns: core.NewColumnSet(core.ColAmount), Records: []core.Record{{}}}
	if _, err := BuildProfile(tbl, ProfileFilter{}, time.Now()); !errors.Is(err, core.ErrMissingColumn) {
		t.Fatalf("expected missing column, got %v", err)
	}
}

func TestOptions(t *testing.T) {
	opts := Options(profileTable())
	if !reflect.DeepEqual(opts.RiskLevels, []int{0, 1}) || !reflect.DeepEqual(opts.Categories, []string{"Food", "Tech"}) {
		t.Fatalf("unexpected options: %+v", opts)
	}
}

func TestModelReports(t *testing.T) {
	reports := ModelReports()
	if len(reports) != 3 {
		t.Fatalf("expected 3 models, got %d", len(reports))
	}
	for _, r := range reports {
		if len(r.Metrics) != 3 {
			t.Fatalf("%s: expected 3 splits", r.Model)
		}
	}
	if reports[1].Metrics[0].SMOTE != "0.6500" || reports[2].Metrics[1].AUC != "0.6417" {
		t.Fatalf("unexpected metric values")
	}
	reports[0].Metrics[0].AUC = "changed"
	if ModelReports()[0].Metrics[0].AUC != "0.5658" {
		t.Fatalf("reports must not share state")
	}
}
