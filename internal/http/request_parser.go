// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating request data:
// dashboard query parameters, profile filters and small JSON or form
// bodies.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"riskdash/internal/analytics"
	"riskdash/internal/filter"
	"riskdash/internal/middleware/security"
	"riskdash/internal/services"
)

// ErrInvalidParam marks a malformed query parameter.
var ErrInvalidParam = errors.New("invalid parameter")

// maxBodyBytes caps JSON and form bodies.
const maxBodyBytes = 64 << 10

// ParseDashboardQuery reads the panel parameters shared by the dashboard,
// series and chart endpoints:
//
//	dataset  upload id; empty targets the configured source
//	year     "All" (default) or a transaction year
//	range    age panel year range, "2019-2023" or a single year
//	amount   column summed by the monthly panel
//	flag     binary column of the risk panel
//	variant  age variant, "affiliation" or "transaction"
func ParseDashboardQuery(query url.Values) (services.Query, error) {
	q := services.Query{
		Dataset:     strings.TrimSpace(query.Get("dataset")),
		AmountField: strings.TrimSpace(query.Get("amount")),
		FlagField:   strings.TrimSpace(query.Get("flag")),
		AgeVariant:  strings.ToLower(strings.TrimSpace(query.Get("variant"))),
	}

	sel, err := filter.ParseSelector(query.Get("year"))
	if err != nil {
		return services.Query{}, err
	}
	q.Year = sel

	if v := strings.TrimSpace(query.Get("range")); v != "" {
		r, err := filter.ParseRange(v)
		if err != nil {
			return services.Query{}, err
		}
		q.Range = &r
	}
	return q, nil
}

// ParseProfileFilter reads the profile filters. Multi-valued parameters
// accept repeated keys or comma separated lists:
//
//	risk             risk levels, e.g. risk=0,1
//	ever_delinquent  true or false; absent means both
//	category         loan categories
func ParseProfileFilter(query url.Values) (analytics.ProfileFilter, error) {
	var f analytics.ProfileFilter

	for _, v := range splitList(query["risk"]) {
		n, err := strconv.Atoi(v)
		if err != nil {
			return analytics.ProfileFilter{}, fmt.Errorf("%w: risk %q", ErrInvalidParam, v)
		}
		f.RiskLevels = append(f.RiskLevels, n)
	}

	if v := strings.TrimSpace(query.Get("ever_delinquent")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return analytics.ProfileFilter{}, fmt.Errorf("%w: ever_delinquent %q", ErrInvalidParam, v)
		}
		f.EverDelinquent = &b
	}

	f.Categories = splitList(query["category"])
	return f, nil
}

// splitList flattens repeated and comma separated values, dropping blanks.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// RequestBodyParser handles JSON and form-encoded bodies.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser reads at most maxBodyBytes of the body once.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if p.err == nil && len(p.body) > maxBodyBytes {
		p.err = fmt.Errorf("%w: body exceeds %d bytes", ErrInvalidParam, maxBodyBytes)
	}
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if p.body[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = fmt.Errorf("%w: %v", ErrInvalidParam, err)
		}
		return p.err
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a sanitized string value from the parsed data.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return strings.TrimSpace(security.SanitizeText(stringValue(val)))
		}
		return ""
	}
	if p.formData != nil {
		return strings.TrimSpace(security.SanitizeText(p.formData.Get(key)))
	}
	return ""
}

func (p *RequestBodyParser) ContentType() string {
	return p.contentType
}

func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}
