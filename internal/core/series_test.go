package core

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestStatJSON(t *testing.T) {
	cases := []struct {
		in   Stat
		want string
	}{
		{Stat(33.5), "33.5"},
		{Stat(0), "0"},
		{NaN(), "null"},
		{Stat(math.Inf(1)), "null"},
	}
	for _, tc := range cases {
		b, err := json.Marshal(tc.in)
		if err != nil {
			t.Fatalf("marshal %v: %v", tc.in, err)
		}
		if string(b) != tc.want {
			t.Fatalf("expected %s, got %s", tc.want, b)
		}
	}

	var s Stat
	if err := json.Unmarshal([]byte("null"), &s); err != nil || s.Defined() {
		t.Fatalf("null should decode to undefined, got %v (err=%v)", s, err)
	}
	if NaN().Format(1) != "n/a" || Stat(12.345).Format(1) != "12.3" {
		t.Fatalf("unexpected formatting")
	}
}

func TestRiskRowJSONNullPct(t *testing.T) {
	row := RiskMonthRow{Month: 2, Label: "Feb", Pct: NaN()}
	b, err := json.Marshal(row)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), `"risk_pct":null`) {
		t.Fatalf("expected null pct, got %s", b)
	}
}

func TestMonthlyBucketJSON(t *testing.T) {
	b := MonthlyBucket{Key: BucketKey{Quarter: 1, Month: 2}, Sum: decimal.RequireFromString("200.50")}
	out, err := json.Marshal(b)
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatal(err)
	}
	if got["key"] != "Q1-2" || got["quarter"] != "Q1" || got["month_label"] != "Feb" {
		t.Fatalf("unexpected bucket json: %s", out)
	}
	if got["sum"].(float64) != 200.5 {
		t.Fatalf("expected numeric sum, got %v", got["sum"])
	}
}

func TestAgeBucketJSONOpenEnded(t *testing.T) {
	b := AgeBucket{Label: "> 3 years", Low: 3, High: math.Inf(1), Count: 4}
	out, err := json.Marshal(b)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), `"high":null`) {
		t.Fatalf("expected open high bound, got %s", out)
	}
	if !b.Contains(100) || b.Contains(2.99) {
		t.Fatalf("unexpected containment")
	}
}

func TestBucketKeyOrder(t *testing.T) {
	a := BucketKey{Quarter: 1, Month: 3}
	b := BucketKey{Quarter: 2, Month: 1}
	c := BucketKey{Quarter: 2, Month: 2}
	if !a.Less(b) || !b.Less(c) || c.Less(a) {
		t.Fatalf("unexpected key order")
	}
}
