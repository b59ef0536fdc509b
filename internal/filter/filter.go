// Package filter restricts record tables by transaction or affiliation year
// before any aggregation runs. Filters never mutate the source table.
package filter

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"riskdash/internal/core"
)

var (
	ErrInvalidSelector = errors.New("invalid year selector")
	ErrInvalidRange    = errors.New("invalid year range")
	ErrInvalidBasis    = errors.New("invalid range basis")
)

// Selector picks either every record or a single transaction year.
type Selector struct {
	all  bool
	year int
}

// All is the identity selector.
func All() Selector { return Selector{all: true} }

// Year selects exactly one transaction year.
func Year(y int) Selector { return Selector{year: y} }

// ParseSelector accepts "all" (any case, or empty) or an integer year.
func ParseSelector(s string) (Selector, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "all") {
		return All(), nil
	}
	y, err := strconv.Atoi(s)
	if err != nil || y <= 0 {
		return Selector{}, fmt.Errorf("%w: %q", ErrInvalidSelector, s)
	}
	return Year(y), nil
}

func (s Selector) IsAll() bool { return s.all }

// Value returns the selected year and false for the "all" selector.
func (s Selector) Value() (int, bool) {
	return s.year, !s.all
}

func (s Selector) String() string {
	if s.all {
		return "All"
	}
	return strconv.Itoa(s.year)
}

// Basis names which year a range filter compares against.
type Basis int

const (
	TransactionYear Basis = iota
	AffiliationYear
)

func (b Basis) String() string {
	switch b {
	case TransactionYear:
		return "transaction"
	case AffiliationYear:
		return "affiliation"
	default:
		return "unknown"
	}
}

func ParseBasis(s string) (Basis, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "transaction", "year":
		return TransactionYear, nil
	case "affiliation":
		return AffiliationYear, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidBasis, s)
	}
}

// Range is an inclusive year interval.
type Range struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

func (r Range) Validate() error {
	if r.Min > r.Max {
		return fmt.Errorf("%w: %d > %d", ErrInvalidRange, r.Min, r.Max)
	}
	return nil
}

func (r Range) Contains(year int) bool {
	return year >= r.Min && year <= r.Max
}

func (r Range) String() string {
	return fmt.Sprintf("%d-%d", r.Min, r.Max)
}

// ParseRange reads "2019-2023", "2019:2023" or a single year.
func ParseRange(s string) (Range, error) {
	s = strings.TrimSpace(s)
	sep := strings.IndexAny(s, "-:")
	var lo, hi string
	if sep < 0 {
		lo, hi = s, s
	} else {
		lo, hi = s[:sep], s[sep+1:]
	}
	min, err1 := strconv.Atoi(strings.TrimSpace(lo))
	max, err2 := strconv.Atoi(strings.TrimSpace(hi))
	if err1 != nil || err2 != nil {
		return Range{}, fmt.Errorf("%w: %q", ErrInvalidRange, s)
	}
	r := Range{Min: min, Max: max}
	if err := r.Validate(); err != nil {
		return Range{}, err
	}
	return r, nil
}

// ByYear keeps the records whose transaction year matches the selector.
func ByYear(t core.Table, sel Selector) core.Table {
	year, ok := sel.Value()
	if !ok {
		return t
	}
	out := make([]core.Record, 0, len(t.Records))
	for _, r := range t.Records {
		if r.Year == year {
			out = append(out, r)
		}
	}
	return t.WithRecords(out)
}

// ByRange keeps the records whose year on the given basis lies in r.
// Records without an affiliation date never match an affiliation range.
func ByRange(t core.Table, r Range, basis Basis) (core.Table, error) {
	if err := r.Validate(); err != nil {
		return core.Table{}, err
	}
	out := make([]core.Record, 0, len(t.Records))
	for _, rec := range t.Records {
		year, ok := yearOf(rec, basis)
		if ok && r.Contains(year) {
			out = append(out, rec)
		}
	}
	return t.WithRecords(out), nil
}

func yearOf(r core.Record, basis Basis) (int, bool) {
	switch basis {
	case AffiliationYear:
		if !r.HasAffiliation() {
			return 0, false
		}
		return r.AffiliationDate.Year(), true
	default:
		return r.Year, r.Year != 0
	}
}

// Years returns the sorted distinct transaction years.
func Years(t core.Table) []int {
	seen := make(map[int]struct{})
	for _, r := range t.Records {
		if r.Year != 0 {
			seen[r.Year] = struct{}{}
		}
	}
	out := make([]int, 0, len(seen))
	for y := range seen {
		out = append(out, y)
	}
	sort.Ints(out)
	return out
}

// AffiliationBounds returns the earliest and latest affiliation years.
// ok is false when no record carries an affiliation date.
func AffiliationBounds(t core.Table) (Range, bool) {
	var r Range
	found := false
	for _, rec := range t.Records {
		if !rec.HasAffiliation() {
			continue
		}
		y := rec.AffiliationDate.Year()
		if !found {
			r = Range{Min: y, Max: y}
			found = true
			continue
		}
		if y < r.Min {
			r.Min = y
		}
		if y > r.Max {
			r.Max = y
		}
	}
	return r, found
}
