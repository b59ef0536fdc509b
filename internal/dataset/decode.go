package dataset

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"riskdash/internal/core"
)

// Columns decoded into Attributes by kind. Unknown columns become numbers
// when every non-empty cell parses as one, labels otherwise.
var (
	flagColumns   = map[string]bool{core.ColApproved: true, core.ColEverDelinquent: true, core.ColHighSeason: true}
	numberColumns = map[string]bool{core.ColNumDelinquencies: true, core.ColDaysSinceAffiliation: true}
	labelColumns  = map[string]bool{core.ColLoanRequestID: true, core.ColCategory: true, core.ColPaymentMethod: true, core.ColChannel: true}
)

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006/01/02",
	"02/01/2006",
}

// DecodeRows maps a header row and its data rows onto a table. Cells that
// cannot be parsed for their column are treated as missing; the number of
// such cells is returned for logging.
func DecodeRows(header []string, rows [][]string) (core.Table, int, error) {
	cols := make([]string, len(header))
	set := make(core.ColumnSet, len(header))
	nonEmpty := 0
	for i, h := range header {
		name := core.CanonicalColumn(strings.TrimPrefix(h, "\ufeff"))
		cols[i] = name
		if name != "" {
			set[name] = struct{}{}
			nonEmpty++
		}
	}
	if nonEmpty == 0 {
		return core.Table{}, 0, ErrEmptyHeader
	}

	unknownNumeric := numericUnknownColumns(cols, rows)

	records := make([]core.Record, 0, len(rows))
	invalid := 0
	for _, row := range rows {
		if blankRow(row) {
			continue
		}
		rec := core.Record{RiskFlag: core.FlagMissing}
		for i, name := range cols {
			if name == "" {
				continue
			}
			cell := ""
			if i < len(row) {
				cell = strings.TrimSpace(row[i])
			}
			if core.IsNullMarker(cell) {
				continue
			}
			if !decodeCell(&rec, name, cell, unknownNumeric[name]) {
				invalid++
			}
		}
		records = append(records, rec)
	}
	return core.Table{Columns: set, Records: records}, invalid, nil
}

// DecodeValues decodes a matrix of untyped cells such as a Sheets value range.
func DecodeValues(values [][]any) (core.Table, int, error) {
	if len(values) == 0 {
		return core.Table{}, 0, ErrEmptyHeader
	}
	header := toStrings(values[0])
	rows := make([][]string, 0, len(values)-1)
	for _, v := range values[1:] {
		rows = append(rows, toStrings(v))
	}
	return DecodeRows(header, rows)
}

// LogInvalid reports lenient decoding losses for a source.
func LogInvalid(source string, invalid int) {
	if invalid > 0 {
		slog.Warn("Unparseable cells treated as missing", "source", source, "cells", invalid)
	}
}

func decodeCell(rec *core.Record, name, cell string, numericUnknown bool) bool {
	switch {
	case name == core.ColYear:
		v, ok := parseInt(cell)
		if ok {
			rec.Year = v
		}
		return ok
	case name == core.ColQuarter:
		q, err := core.ParseQuarter(trimFloatZero(cell))
		if err == nil {
			rec.Quarter = q
		}
		return err == nil
	case name == core.ColMonth:
		v, ok := parseInt(cell)
		if ok && v >= 1 && v <= 12 {
			rec.Month = v
			return true
		}
		return false
	case name == core.ColAmount:
		d, err := core.ParseAmount(cell)
		if err == nil {
			rec.Amount = d
		}
		return err == nil
	case name == core.ColRiskFlag:
		v, ok := parseFlag(cell)
		if ok {
			rec.RiskFlag = v
		}
		return ok
	case name == core.ColAffiliationDate:
		t, ok := parseDate(cell)
		if ok {
			rec.AffiliationDate = t
		}
		return ok
	case name == core.ColAccountID:
		rec.AccountID = trimFloatZero(cell)
		return true
	case name == core.ColAccountAge:
		d, err := core.ParseAmount(cell)
		if err != nil || !d.Valid {
			return false
		}
		f := d.Decimal.InexactFloat64()
		rec.AccountAgeYears = &f
		return true
	case flagColumns[name]:
		v, ok := parseFlag(cell)
		if ok {
			setFlag(rec, name, v)
		}
		return ok
	case numberColumns[name] || (numericUnknown && !labelColumns[name]):
		d, err := core.ParseAmount(cell)
		if err == nil && d.Valid {
			setNumber(rec, name, d.Decimal)
		}
		return err == nil
	default:
		setLabel(rec, name, cell)
		return true
	}
}

func setFlag(rec *core.Record, name string, v int) {
	if rec.Attrs.Flags == nil {
		rec.Attrs.Flags = make(map[string]int)
	}
	rec.Attrs.Flags[name] = v
}

func setNumber(rec *core.Record, name string, d decimal.Decimal) {
	if rec.Attrs.Numbers == nil {
		rec.Attrs.Numbers = make(map[string]decimal.Decimal)
	}
	rec.Attrs.Numbers[name] = d
}

func setLabel(rec *core.Record, name, s string) {
	if rec.Attrs.Labels == nil {
		rec.Attrs.Labels = make(map[string]string)
	}
	rec.Attrs.Labels[name] = s
}

func numericUnknownColumns(cols []string, rows [][]string) map[string]bool {
	out := make(map[string]bool)
	for i, name := range cols {
		if name == "" || isKnownColumn(name) {
			continue
		}
		numeric, seen := true, false
		for _, row := range rows {
			if i >= len(row) || core.IsNullMarker(row[i]) {
				continue
			}
			seen = true
			if d, err := core.ParseAmount(row[i]); err != nil || !d.Valid {
				numeric = false
				break
			}
		}
		out[name] = numeric && seen
	}
	return out
}

func isKnownColumn(name string) bool {
	switch name {
	case core.ColYear, core.ColQuarter, core.ColMonth, core.ColAmount, core.ColRiskFlag,
		core.ColAffiliationDate, core.ColAccountID, core.ColAccountAge:
		return true
	}
	return flagColumns[name] || numberColumns[name] || labelColumns[name]
}

func parseInt(s string) (int, bool) {
	v, err := strconv.Atoi(trimFloatZero(s))
	return v, err == nil
}

// parseFlag accepts 0/1, 0.0/1.0 and true/false.
func parseFlag(s string) (int, bool) {
	switch strings.ToLower(trimFloatZero(s)) {
	case "0", "false":
		return 0, true
	case "1", "true":
		return 1, true
	}
	return 0, false
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// trimFloatZero turns spreadsheet-style "2024.0" into "2024".
func trimFloatZero(s string) string {
	if strings.HasSuffix(s, ".0") {
		return strings.TrimSuffix(s, ".0")
	}
	return s
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		switch x := v.(type) {
		case nil:
			out[i] = ""
		case string:
			out[i] = x
		default:
			out[i] = fmt.Sprint(x)
		}
	}
	return out
}
