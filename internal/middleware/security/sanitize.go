package security

import (
	"net/http"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy()

// SanitizeText strips every HTML tag and non-printable character from s.
func SanitizeText(s string) string {
	return StripUnprintable(strictPolicy.Sanitize(s))
}

// StripUnprintable keeps printable runes plus tab, newline and carriage return.
func StripUnprintable(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || r == '\t' || r == '\n' || r == '\r' {
			return r
		}
		return -1
	}, s)
}

// EscapeFormula prefixes text that a spreadsheet would evaluate as a
// formula with a single quote. Only use it on text cells: negative numbers
// start with '-' too.
func EscapeFormula(s string) string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return s
	}
	switch trimmed[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}

// SanitizeQuery rewrites every query parameter through SanitizeText so
// handlers and logs never see markup.
func SanitizeQuery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.RawQuery != "" {
			q := r.URL.Query()
			changed := false
			for key, values := range q {
				for i, v := range values {
					if clean := SanitizeText(v); clean != v {
						values[i] = clean
						changed = true
					}
				}
				q[key] = values
			}
			if changed {
				u := *r.URL
				u.RawQuery = q.Encode()
				r2 := r.Clone(r.Context())
				r2.URL = &u
				r = r2
			}
		}
		next.ServeHTTP(w, r)
	})
}
