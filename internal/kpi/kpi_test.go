package kpi

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const kpiJSON = `{
  "Loan Approval Rate": 0.8123,
  "Delinquency Rate": 0.0456,
  "Loan Requests per Quarter": {"2024Q2": 1520, "2024Q1": 1201},
  "Loan Repayment Rate per Quarter": {"2024Q1": 0.91, "2024Q2": 0.875},
  "Average Purchase Value by Payment Type": {"tarjeta": 1234.5, "efectivo": 87}
}`

const kpiYAML = `Loan Approval Rate: 0.8123
Delinquency Rate: 0.0456
Loan Requests per Quarter:
  2024Q2: 1520
  2024Q1: 1201
Loan Repayment Rate per Quarter:
  2024Q1: 0.91
  2024Q2: 0.875
Average Purchase Value by Payment Type:
  tarjeta: 1234.5
  efectivo: 87
`

const kpiTOML = `"Loan Approval Rate" = 0.8123
"Delinquency Rate" = 0.0456

["Loan Requests per Quarter"]
"2024Q2" = 1520
"2024Q1" = 1201

["Loan Repayment Rate per Quarter"]
"2024Q1" = 0.91
"2024Q2" = 0.875

["Average Purchase Value by Payment Type"]
tarjeta = 1234.5
efectivo = 87
`

func TestLoadFormats(t *testing.T) {
	dir := t.TempDir()
	for name, content := range map[string]string{
		"kpis.json": kpiJSON,
		"kpis.yaml": kpiYAML,
		"kpis.toml": kpiTOML,
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				t.Fatal(err)
			}
			doc, err := Load(path)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if doc.ApprovalRate != 0.8123 || doc.RequestsPerQuarter["2024Q1"] != 1201 {
				t.Errorf("Load() = %+v", doc)
			}
			if doc.AvgPurchaseByPayment["efectivo"] != 87 {
				t.Errorf("integer cells should convert, got %+v", doc.AvgPurchaseByPayment)
			}
		})
	}
}

func TestPanel(t *testing.T) {
	doc := Document{
		ApprovalRate:         0.8123,
		DelinquencyRate:      0.0456,
		RequestsPerQuarter:   map[string]float64{"2024Q2": 15200, "2024Q1": 1201},
		RepaymentPerQuarter:  map[string]float64{"2024Q2": 0.875, "2024Q1": 0.91},
		AvgPurchaseByPayment: map[string]float64{"tarjeta": 1234.5, "efectivo": 87},
	}
	p := doc.Panel()

	if p.ApprovalRate.Display != "81.23%" || p.DelinquencyRate.Display != "4.56%" {
		t.Errorf("rates = %q, %q", p.ApprovalRate.Display, p.DelinquencyRate.Display)
	}
	if p.RequestsPerQuarter[0].Key != "2024Q1" || p.RequestsPerQuarter[1].Display != "15,200" {
		t.Errorf("requests = %+v", p.RequestsPerQuarter)
	}
	if p.RepaymentPerQuarter[1].Display != "87.50%" {
		t.Errorf("repayment = %+v", p.RepaymentPerQuarter)
	}
	if p.AvgPurchaseByType[0].Key != "efectivo" || p.AvgPurchaseByType[1].Display != "$1,234.50" {
		t.Errorf("avg purchase = %+v", p.AvgPurchaseByType)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
		want string
	}{
		{name: "missing scalar", raw: map[string]any{}, want: "missing \"Loan Approval Rate\""},
		{
			name: "table is scalar",
			raw: map[string]any{
				KeyApprovalRate:       0.5,
				KeyDelinquencyRate:    0.1,
				KeyRequestsPerQuarter: 12.0,
			},
			want: "want a table",
		},
		{
			name: "non numeric cell",
			raw: map[string]any{
				KeyApprovalRate:       "0.5",
				KeyDelinquencyRate:    0.1,
				KeyRequestsPerQuarter: map[string]any{"2024Q1": true},
			},
			want: "2024Q1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.raw)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Parse() error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "kpis.json"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestCurrencyNegative(t *testing.T) {
	if got := Currency(-1500); got != "-$1,500.00" {
		t.Errorf("Currency(-1500) = %q", got)
	}
}
