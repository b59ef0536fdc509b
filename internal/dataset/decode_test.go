package dataset

import (
	"errors"
	"testing"
	"time"

	"riskdash/internal/core"
)

func TestDecodeRows(t *testing.T) {
	header := []string{"\ufeffyear", "quarter", "month", "total_importe", "riskclient", "fecha_afiliacion",
		"external_account_id", "account_age_years", "approved", "num_delinquencies", "medio_pago", "score"}
	rows := [][]string{
		{"2024", "1", "2", "150,50", "1", "2022-03-15", "A1", "1.8", "1", "2", "card", "0.7"},
		{"2024.0", "Q2", "4", "", "0", "", "A2", "", "false", "0", "cash", "0.1"},
		{"", "", "", "", "", "", "", "", "", "", "", ""},
		{"2023", "3", "13", "oops", "yes", "15/03/2022", "A3", "x", "2", "", "", ""},
	}

	tbl, invalid, err := DecodeRows(header, rows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tbl.Len() != 3 {
		t.Fatalf("expected 3 records (blank row dropped), got %d", tbl.Len())
	}
	for _, col := range []string{core.ColYear, core.ColAmount, core.ColAccountAge, "score"} {
		if !tbl.Columns.Has(col) {
			t.Fatalf("expected column %q", col)
		}
	}

	r := tbl.Records[0]
	if r.Year != 2024 || r.Quarter != 1 || r.Month != 2 || r.RiskFlag != 1 || r.AccountID != "A1" {
		t.Fatalf("unexpected first record: %+v", r)
	}
	if r.Amount.Decimal.String() != "150.5" {
		t.Fatalf("expected amount 150.5, got %s", r.Amount.Decimal)
	}
	if !r.AffiliationDate.Equal(time.Date(2022, 3, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected affiliation date: %v", r.AffiliationDate)
	}
	if r.AccountAgeYears == nil || *r.AccountAgeYears != 1.8 {
		t.Fatalf("unexpected age: %v", r.AccountAgeYears)
	}
	if v, ok := r.Flag(core.ColApproved); !ok || v != 1 {
		t.Fatalf("unexpected approved flag")
	}
	if s, ok := r.Label(core.ColPaymentMethod); !ok || s != "card" {
		t.Fatalf("unexpected payment method")
	}
	if d, ok := r.Numeric("score"); !ok || d.String() != "0.7" {
		t.Fatalf("numeric unknown column should decode as number, got %v %v", d, ok)
	}

	r = tbl.Records[1]
	if r.Year != 2024 || r.Quarter != 2 || r.Amount.Valid || r.HasAffiliation() || r.AccountAgeYears != nil {
		t.Fatalf("unexpected second record: %+v", r)
	}
	if v, ok := r.Flag(core.ColApproved); !ok || v != 0 {
		t.Fatalf("false should decode as 0")
	}

	r = tbl.Records[2]
	if r.Month != 0 || r.Amount.Valid || r.RiskFlag != core.FlagMissing || r.AccountAgeYears != nil {
		t.Fatalf("unparseable cells should be missing: %+v", r)
	}
	if !r.AffiliationDate.Equal(time.Date(2022, 3, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("day-first dates should parse: %v", r.AffiliationDate)
	}
	if _, ok := r.Flag(core.ColApproved); ok {
		t.Fatalf("approved=2 is not a flag")
	}
	// month, amount, riskclient, age, approved
	if invalid != 5 {
		t.Fatalf("expected 5 invalid cells, got %d", invalid)
	}
}

func TestDecodeRowsTextColumn(t *testing.T) {
	tbl, _, err := DecodeRows([]string{"canal", "note"}, [][]string{{"web", "1"}, {"app", "late"}})
	if err != nil {
		t.Fatal(err)
	}
	if s, ok := tbl.Records[0].Label("note"); !ok || s != "1" {
		t.Fatalf("mixed column should stay a label, got %q %v", s, ok)
	}
}

func TestDecodeRowsEmptyHeader(t *testing.T) {
	if _, _, err := DecodeRows([]string{"", " "}, nil); !errors.Is(err, ErrEmptyHeader) {
		t.Fatalf("expected ErrEmptyHeader, got %v", err)
	}
	if _, _, err := DecodeValues(nil); !errors.Is(err, ErrEmptyHeader) {
		t.Fatalf("expected ErrEmptyHeader, got %v", err)
	}
}

func TestDecodeValues(t *testing.T) {
	values := [][]any{
		{"year", "month", "riskclient"},
		{float64(2024), "3", float64(1)},
		{"2024", float64(4)},
	}
	tbl, _, err := DecodeValues(values)
	if err != nil {
		t.Fatal(err)
	}
	if tbl.Len() != 2 || tbl.Records[0].Year != 2024 || tbl.Records[0].RiskFlag != 1 {
		t.Fatalf("unexpected decode: %+v", tbl.Records)
	}
	if tbl.Records[1].Month != 4 || tbl.Records[1].RiskFlag != core.FlagMissing {
		t.Fatalf("short rows should leave trailing cells missing: %+v", tbl.Records[1])
	}
}
