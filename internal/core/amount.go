package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

// ParseAmount converts a numeric cell into a decimal.
//
// Both dot (1234.5) and comma (1234,5) decimal separators are accepted. When
// both appear, the last one is the decimal separator and the other is treated
// as a thousands grouping ("1.234,50" and "1,234.50" are both 1234.50).
// Empty cells and "nan"/"null" markers yield ok == false without an error.
func ParseAmount(s string) (decimal.NullDecimal, error) {
	s = strings.TrimSpace(s)
	if isNullMarker(s) {
		return decimal.NullDecimal{}, nil
	}
	dot := strings.LastIndex(s, ".")
	comma := strings.LastIndex(s, ",")
	switch {
	case dot >= 0 && comma >= 0 && comma > dot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case dot >= 0 && comma >= 0:
		s = strings.ReplaceAll(s, ",", "")
	case comma >= 0:
		if strings.Count(s, ",") > 1 {
			return decimal.NullDecimal{}, ErrInvalidAmount
		}
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, ErrInvalidAmount
	}
	return decimal.NewNullDecimal(d), nil
}

func isNullMarker(s string) bool {
	switch strings.ToLower(s) {
	case "", "nan", "null", "none", "na", "n/a":
		return true
	}
	return false
}

// IsNullMarker reports whether a raw cell encodes a missing value.
func IsNullMarker(s string) bool {
	return isNullMarker(strings.TrimSpace(s))
}
