// Package kpi reads the precomputed KPI document and formats it for display.
package kpi

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"riskdash/internal/config"
)

// Document keys.
const (
	KeyApprovalRate        = "Loan Approval Rate"
	KeyDelinquencyRate     = "Delinquency Rate"
	KeyRequestsPerQuarter  = "Loan Requests per Quarter"
	KeyRepaymentPerQuarter = "Loan Repayment Rate per Quarter"
	KeyAvgPurchaseByType   = "Average Purchase Value by Payment Type"
)

// Document holds the KPI values. Rates are fractions in [0, 1].
type Document struct {
	ApprovalRate         float64
	DelinquencyRate      float64
	RequestsPerQuarter   map[string]float64
	RepaymentPerQuarter  map[string]float64
	AvgPurchaseByPayment map[string]float64
}

// Row is one formatted table line.
type Row struct {
	Key     string  `json:"key"`
	Value   float64 `json:"value"`
	Display string  `json:"display"`
}

// Panel is the display form of a Document. Tables are in sorted key order.
type Panel struct {
	ApprovalRate        Row   `json:"approval_rate"`
	DelinquencyRate     Row   `json:"delinquency_rate"`
	RequestsPerQuarter  []Row `json:"requests_per_quarter"`
	RepaymentPerQuarter []Row `json:"repayment_per_quarter"`
	AvgPurchaseByType   []Row `json:"avg_purchase_by_payment_type"`
}

// Load reads a JSON, YAML or TOML KPI document.
func Load(path string) (Document, error) {
	var raw map[string]any
	if err := config.LoadFile(path, &raw); err != nil {
		return Document{}, err
	}
	return Parse(raw)
}

// Parse converts a decoded document. Every key is required.
func Parse(raw map[string]any) (Document, error) {
	var (
		doc Document
		err error
	)
	if doc.ApprovalRate, err = scalar(raw, KeyApprovalRate); err != nil {
		return Document{}, err
	}
	if doc.DelinquencyRate, err = scalar(raw, KeyDelinquencyRate); err != nil {
		return Document{}, err
	}
	if doc.RequestsPerQuarter, err = table(raw, KeyRequestsPerQuarter); err != nil {
		return Document{}, err
	}
	if doc.RepaymentPerQuarter, err = table(raw, KeyRepaymentPerQuarter); err != nil {
		return Document{}, err
	}
	if doc.AvgPurchaseByPayment, err = table(raw, KeyAvgPurchaseByType); err != nil {
		return Document{}, err
	}
	return doc, nil
}

func (d Document) Panel() Panel {
	return Panel{
		ApprovalRate:        Row{Key: KeyApprovalRate, Value: d.ApprovalRate, Display: Percent(d.ApprovalRate)},
		DelinquencyRate:     Row{Key: KeyDelinquencyRate, Value: d.DelinquencyRate, Display: Percent(d.DelinquencyRate)},
		RequestsPerQuarter:  rows(d.RequestsPerQuarter, func(v float64) string { return humanize.Comma(int64(v)) }),
		RepaymentPerQuarter: rows(d.RepaymentPerQuarter, Percent),
		AvgPurchaseByType:   rows(d.AvgPurchaseByPayment, Currency),
	}
}

// Percent formats a fraction with two decimals, 0.1234 -> "12.34%".
func Percent(v float64) string {
	return strconv.FormatFloat(v*100, 'f', 2, 64) + "%"
}

// Currency formats an amount with thousands separators, 1234.5 -> "$1,234.50".
func Currency(v float64) string {
	if v < 0 {
		return "-$" + humanize.FormatFloat("#,###.##", -v)
	}
	return "$" + humanize.FormatFloat("#,###.##", v)
}

func rows(m map[string]float64, format func(float64) string) []Row {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Row, len(keys))
	for i, k := range keys {
		out[i] = Row{Key: k, Value: m[k], Display: format(m[k])}
	}
	return out
}

func scalar(raw map[string]any, key string) (float64, error) {
	v, ok := raw[key]
	if !ok {
		return 0, fmt.Errorf("kpi document: missing %q", key)
	}
	f, err := toFloat(v)
	if err != nil {
		return 0, fmt.Errorf("kpi document: %q: %w", key, err)
	}
	return f, nil
}

func table(raw map[string]any, key string) (map[string]float64, error) {
	v, ok := raw[key]
	if !ok {
		return nil, fmt.Errorf("kpi document: missing %q", key)
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("kpi document: %q is %T, want a table", key, v)
	}
	out := make(map[string]float64, len(m))
	for k, cell := range m {
		f, err := toFloat(cell)
		if err != nil {
			return nil, fmt.Errorf("kpi document: %q[%q]: %w", key, k, err)
		}
		out[k] = f
	}
	return out, nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(n), 64)
	default:
		return 0, fmt.Errorf("unexpected value %v (%T)", v, v)
	}
}
