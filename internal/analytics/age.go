package analytics

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"riskdash/internal/core"
	"riskdash/internal/filter"
)

var ErrUnknownAgeVariant = errors.New("unknown age variant")

// DaysPerYear converts a day count to years for derived account ages.
const DaysPerYear = 365.25

// Age bucket edges and labels. Buckets are [low, high).
var (
	AgeEdges  = []float64{0, 1, 3, math.Inf(1)}
	AgeLabels = []string{"< 1 year", "1-3 years", "> 3 years"}
)

// AgePrecedence decides between a stored age and one derived from the affiliation date.
type AgePrecedence int

const (
	PreferStored AgePrecedence = iota
	PreferDerived
)

func (p AgePrecedence) String() string {
	if p == PreferDerived {
		return "derived"
	}
	return "stored"
}

// AgeVariant is the strategy used to pre-filter records and resolve an account age.
type AgeVariant interface {
	Name() string
	// Basis is the year a range filter compares against.
	Basis() filter.Basis
	// Require reports the first column the variant cannot work without.
	Require(cols core.ColumnSet) error
	// Age resolves the record's age in years; ok is false when unresolvable.
	Age(r core.Record, now time.Time) (float64, bool)
}

// TransactionYearVariant filters by transaction year and reads the stored age.
type TransactionYearVariant struct{}

func (TransactionYearVariant) Name() string        { return "transaction" }
func (TransactionYearVariant) Basis() filter.Basis { return filter.TransactionYear }

func (TransactionYearVariant) Require(cols core.ColumnSet) error {
	return cols.Require(core.ColAccountAge, core.ColAccountID)
}

func (TransactionYearVariant) Age(r core.Record, _ time.Time) (float64, bool) {
	return storedAge(r)
}

// AffiliationYearVariant filters by affiliation year. The age comes from the
// stored column or from the affiliation date, in the configured precedence.
type AffiliationYearVariant struct {
	Precedence AgePrecedence
}

func (AffiliationYearVariant) Name() string        { return "affiliation" }
func (AffiliationYearVariant) Basis() filter.Basis { return filter.AffiliationYear }

func (AffiliationYearVariant) Require(cols core.ColumnSet) error {
	return cols.Require(core.ColAffiliationDate, core.ColAccountID)
}

func (v AffiliationYearVariant) Age(r core.Record, now time.Time) (float64, bool) {
	first, second := storedAge, func(r core.Record) (float64, bool) { return derivedAge(r, now) }
	if v.Precedence == PreferDerived {
		first, second = second, first
	}
	if age, ok := first(r); ok {
		return age, true
	}
	return second(r)
}

func storedAge(r core.Record) (float64, bool) {
	if r.AccountAgeYears == nil {
		return 0, false
	}
	age := *r.AccountAgeYears
	if math.IsNaN(age) || age < 0 {
		return 0, false
	}
	return age, true
}

func derivedAge(r core.Record, now time.Time) (float64, bool) {
	if !r.HasAffiliation() {
		return 0, false
	}
	age := DerivedAge(r.AffiliationDate, now)
	if age < 0 {
		return 0, false
	}
	return age, true
}

// DerivedAge is the whole days between affiliation and now, in years.
func DerivedAge(affiliation, now time.Time) float64 {
	days := math.Floor(now.Sub(affiliation).Hours() / 24)
	return days / DaysPerYear
}

var ageVariants = map[string]AgeVariant{
	"transaction": TransactionYearVariant{},
	"affiliation": AffiliationYearVariant{Precedence: PreferStored},
}

// GetAgeVariant returns the registered variant for name.
func GetAgeVariant(name string) (AgeVariant, error) {
	v, ok := ageVariants[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAgeVariant, name)
	}
	return v, nil
}

// AgeVariantNames lists the registered variants in sorted order.
func AgeVariantNames() []string {
	names := make([]string, 0, len(ageVariants))
	for n := range ageVariants {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// AggregateAgeBuckets counts distinct accounts per age bucket. When rng is
// non-nil the table is first restricted on the variant's year basis.
//
// An account seen with several ages is placed once, at its largest resolvable
// age, so the buckets partition the accounts. Rows without an account id or a
// resolvable age are excluded. All three buckets are always returned.
func AggregateAgeBuckets(t core.Table, v AgeVariant, rng *filter.Range, now time.Time) ([]core.AgeBucket, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: nil", ErrUnknownAgeVariant)
	}
	if !t.Unloaded() {
		if err := v.Require(t.Columns); err != nil {
			return nil, err
		}
	}
	if rng != nil {
		var err error
		t, err = filter.ByRange(t, *rng, v.Basis())
		if err != nil {
			return nil, err
		}
	}

	ages := make(map[string]float64)
	for _, r := range t.Records {
		if r.AccountID == "" {
			continue
		}
		age, ok := v.Age(r, now)
		if !ok {
			continue
		}
		if prev, seen := ages[r.AccountID]; !seen || age > prev {
			ages[r.AccountID] = age
		}
	}

	buckets := emptyAgeBuckets()
	for _, age := range ages {
		for i := range buckets {
			if buckets[i].Contains(age) {
				buckets[i].Count++
				break
			}
		}
	}
	return buckets, nil
}

func emptyAgeBuckets() []core.AgeBucket {
	out := make([]core.AgeBucket, len(AgeLabels))
	for i, label := range AgeLabels {
		out[i] = core.AgeBucket{Label: label, Low: AgeEdges[i], High: AgeEdges[i+1]}
	}
	return out
}

// AgePanel runs AggregateAgeBuckets and packages the result.
func AgePanel(t core.Table, v AgeVariant, rng *filter.Range, now time.Time) (core.AgeSeries, error) {
	buckets, err := AggregateAgeBuckets(t, v, rng, now)
	if err != nil {
		name := ""
		if v != nil {
			name = v.Name()
		}
		return core.AgeSeries{Variant: name}, err
	}
	total := 0
	for _, b := range buckets {
		total += b.Count
	}
	return core.AgeSeries{Variant: v.Name(), Buckets: buckets, Empty: total == 0}, nil
}
