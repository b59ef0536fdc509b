package postgres

import (
	"database/sql"
	"errors"
	"testing"
	"time"
)

type fakeRows struct {
	cols []string
	data [][]any
	pos  int
	err  error
}

func (f *fakeRows) Columns() ([]string, error) { return f.cols, nil }
func (f *fakeRows) Err() error                 { return f.err }

func (f *fakeRows) Next() bool {
	f.pos++
	return f.pos <= len(f.data)
}

func (f *fakeRows) Scan(dest ...any) error {
	row := f.data[f.pos-1]
	for i, d := range dest {
		ns := d.(*sql.NullString)
		if err := ns.Scan(row[i]); err != nil {
			return err
		}
	}
	return nil
}

func TestReadTable(t *testing.T) {
	rows := &fakeRows{
		cols: []string{"year", "quarter", "month", "total_importe", "fecha_afiliacion", "external_account_id"},
		data: [][]any{
			{int64(2024), int64(2), int64(5), "123.45", time.Date(2021, 4, 1, 0, 0, 0, 0, time.UTC), "acc-9"},
			{int64(2024), int64(2), int64(6), nil, nil, "acc-10"},
		},
	}
	tbl, err := readTable(rows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tbl.Len() != 2 {
		t.Fatalf("expected 2 records, got %d", tbl.Len())
	}
	r := tbl.Records[0]
	if r.Year != 2024 || r.Quarter != 2 || r.Month != 5 || r.Amount.Decimal.String() != "123.45" || r.AccountID != "acc-9" {
		t.Fatalf("unexpected record: %+v", r)
	}
	if r.AffiliationDate.Year() != 2021 || r.AffiliationDate.Month() != time.April {
		t.Fatalf("timestamp should decode, got %v", r.AffiliationDate)
	}
	if tbl.Records[1].Amount.Valid || tbl.Records[1].HasAffiliation() {
		t.Fatalf("NULL cells should be missing: %+v", tbl.Records[1])
	}
}

func TestReadTableIterationError(t *testing.T) {
	broken := errors.New("conn reset")
	if _, err := readTable(&fakeRows{cols: []string{"year"}, err: broken}); !errors.Is(err, broken) {
		t.Fatalf("expected iteration error, got %v", err)
	}
}

func TestSelectAll(t *testing.T) {
	cases := map[string]string{
		"aggregated_df":      `SELECT * FROM "aggregated_df"`,
		"risk.loans":         `SELECT * FROM "risk"."loans"`,
		`bad"; DROP TABLE x`: `SELECT * FROM "bad""; DROP TABLE x"`,
	}
	for in, want := range cases {
		if got := selectAll(in); got != want {
			t.Fatalf("%q: expected %s, got %s", in, want, got)
		}
	}
}
