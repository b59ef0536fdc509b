package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Column names as they appear in the loan transaction exports.
const (
	ColYear                 = "year"
	ColQuarter              = "quarter"
	ColMonth                = "month"
	ColAmount               = "total_importe"
	ColRiskFlag             = "riskclient"
	ColAffiliationDate      = "fecha_afiliacion"
	ColAccountID            = "external_account_id"
	ColAccountAge           = "account_age_years"
	ColLoanRequestID        = "loan_request_id"
	ColApproved             = "approved"
	ColNumDelinquencies     = "num_delinquencies"
	ColEverDelinquent       = "ever_delinquent"
	ColCategory             = "most_purchased_category"
	ColPaymentMethod        = "medio_pago"
	ColChannel              = "canal"
	ColHighSeason           = "es_temporada_alta_real"
	ColDaysSinceAffiliation = "days_since_affiliation"
)

// FlagMissing marks a binary column whose cell was empty or not 0/1.
const FlagMissing = -1

type (
	Quarter int

	// Attributes holds the columns that have no dedicated Record field.
	Attributes struct {
		Numbers map[string]decimal.Decimal `json:"numbers,omitempty"`
		Flags   map[string]int             `json:"flags,omitempty"`
		Labels  map[string]string          `json:"labels,omitempty"`
	}

	// Record is one loan/transaction observation. Year, Quarter and Month are
	// zero when the source cell was empty; RiskFlag is FlagMissing in that case.
	Record struct {
		Year            int
		Quarter         Quarter
		Month           int
		Amount          decimal.NullDecimal
		RiskFlag        int
		AffiliationDate time.Time
		AccountID       string
		AccountAgeYears *float64
		Attrs           Attributes
	}

	ColumnSet map[string]struct{}

	// Table is an immutable record set together with the columns its loader saw.
	Table struct {
		Columns ColumnSet
		Records []Record
	}
)

var (
	ErrMissingColumn    = errors.New("missing column")
	ErrNonNumericColumn = errors.New("non-numeric column")
	ErrInvalidQuarter = errors.New("invalid quarter")
	ErrInvalidMonth   = errors.New("invalid month")
)

// MissingColumnError reports a column an aggregation needs but the table lacks.
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("missing column %q", e.Column)
}

func (e *MissingColumnError) Unwrap() error {
	return ErrMissingColumn
}

// NonNumericColumnError reports a sum requested over a text or date column.
type NonNumericColumnError struct {
	Column string
}

func (e *NonNumericColumnError) Error() string {
	return fmt.Sprintf("column %q is not numeric", e.Column)
}

func (e *NonNumericColumnError) Unwrap() error {
	return ErrNonNumericColumn
}

// Quarters is the canonical quarter order.
var Quarters = []Quarter{1, 2, 3, 4}

// ParseQuarter accepts "3", "Q3" or "q3".
func ParseQuarter(s string) (Quarter, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.ToUpper(s), "Q")
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidQuarter, s)
	}
	q := Quarter(n)
	if !q.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidQuarter, n)
	}
	return q, nil
}

func (q Quarter) Valid() bool {
	return q >= 1 && q <= 4
}

// Label returns "Q1".."Q4".
func (q Quarter) Label() string {
	return "Q" + strconv.Itoa(int(q))
}

func (q Quarter) String() string {
	return q.Label()
}

// QuarterOfMonth maps 1..12 to its calendar quarter.
func QuarterOfMonth(month int) (Quarter, error) {
	if month < 1 || month > 12 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidMonth, month)
	}
	return Quarter((month-1)/3 + 1), nil
}

// NewColumnSet builds a set from column names.
func NewColumnSet(names ...string) ColumnSet {
	cs := make(ColumnSet, len(names))
	for _, n := range names {
		cs[n] = struct{}{}
	}
	return cs
}

func (cs ColumnSet) Has(name string) bool {
	_, ok := cs[CanonicalColumn(name)]
	return ok
}

// Require returns a MissingColumnError for the first absent column.
func (cs ColumnSet) Require(names ...string) error {
	for _, n := range names {
		if !cs.Has(n) {
			return &MissingColumnError{Column: CanonicalColumn(n)}
		}
	}
	return nil
}

// Names returns the column names in no particular order.
func (cs ColumnSet) Names() []string {
	out := make([]string, 0, len(cs))
	for n := range cs {
		out = append(out, n)
	}
	return out
}

var columnAliases = map[string]string{
	"amount":           ColAmount,
	"risk_flag":        ColRiskFlag,
	"affiliation_date": ColAffiliationDate,
	"account_id":       ColAccountID,
}

// CanonicalColumn resolves the generic field names to the export's column names.
func CanonicalColumn(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	if c, ok := columnAliases[n]; ok {
		return c
	}
	return n
}

// Numeric returns a numeric field by column name.
func (r Record) Numeric(field string) (decimal.Decimal, bool) {
	switch col := CanonicalColumn(field); col {
	case ColAmount:
		return r.Amount.Decimal, r.Amount.Valid
	case ColAccountAge:
		if r.AccountAgeYears == nil {
			return decimal.Decimal{}, false
		}
		return decimal.NewFromFloat(*r.AccountAgeYears), true
	case ColYear, ColMonth, ColQuarter:
		v := r.Year
		switch col {
		case ColMonth:
			v = r.Month
		case ColQuarter:
			v = int(r.Quarter)
		}
		if v == 0 {
			return decimal.Decimal{}, false
		}
		return decimal.NewFromInt(int64(v)), true
	default:
		if d, ok := r.Attrs.Numbers[col]; ok {
			return d, true
		}
		if f, ok := r.Flag(col); ok {
			return decimal.NewFromInt(int64(f)), true
		}
		return decimal.Decimal{}, false
	}
}

// Flag returns a binary field by column name; ok is false when the cell was not 0/1.
func (r Record) Flag(field string) (int, bool) {
	var v int
	switch col := CanonicalColumn(field); col {
	case ColRiskFlag:
		v = r.RiskFlag
	default:
		f, ok := r.Attrs.Flags[col]
		if !ok {
			return 0, false
		}
		v = f
	}
	if v != 0 && v != 1 {
		return 0, false
	}
	return v, true
}

// Label returns a categorical field by column name.
func (r Record) Label(field string) (string, bool) {
	col := CanonicalColumn(field)
	if col == ColAccountID {
		return r.AccountID, r.AccountID != ""
	}
	s, ok := r.Attrs.Labels[col]
	return s, ok && s != ""
}

// HasAffiliation reports whether the affiliation date was present.
func (r Record) HasAffiliation() bool {
	return !r.AffiliationDate.IsZero()
}

// Len returns the number of records.
func (t Table) Len() int {
	return len(t.Records)
}

// IsEmpty reports whether the table holds no records.
func (t Table) IsEmpty() bool {
	return len(t.Records) == 0
}

// Unloaded reports whether t is the zero Table: no columns and no records.
func (t Table) Unloaded() bool {
	return len(t.Columns) == 0 && len(t.Records) == 0
}

// Require checks names against the table's columns, whether or not any
// records survived filtering. An unloaded table satisfies every requirement.
func (t Table) Require(names ...string) error {
	if t.Unloaded() {
		return nil
	}
	return t.Columns.Require(names...)
}

// RequireNumeric fails when field holds text or dates. Columns are typed as
// a whole at load time, so a single text cell marks the column.
func (t Table) RequireNumeric(field string) error {
	col := CanonicalColumn(field)
	switch col {
	case ColAffiliationDate, ColAccountID:
		return &NonNumericColumnError{Column: col}
	}
	for _, r := range t.Records {
		if _, ok := r.Attrs.Labels[col]; ok {
			return &NonNumericColumnError{Column: col}
		}
	}
	return nil
}

// WithRecords returns a table sharing t's columns over a different record subset.
func (t Table) WithRecords(records []Record) Table {
	return Table{Columns: t.Columns, Records: records}
}
