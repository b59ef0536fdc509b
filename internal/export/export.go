// Package export writes a dashboard as CSV, JSON or PDF.
package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"riskdash/internal/core"
	"riskdash/internal/middleware/security"
	"riskdash/internal/render"
	"riskdash/internal/services"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatPDF  Format = "pdf"
)

var ErrUnsupportedFormat = errors.New("unsupported export format")

// ParseFormat accepts csv, json or pdf in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatJSON, FormatPDF:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatJSON:
		return "application/json"
	case FormatPDF:
		return "application/pdf"
	}
	return "application/octet-stream"
}

// Report is what gets exported. Charts maps chart names to PNG images and
// is only used by the PDF writer.
type Report struct {
	Title     string
	Dashboard services.Dashboard
	Charts    map[string][]byte
}

// Write encodes r in format f.
func Write(w io.Writer, f Format, r Report) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, r.Dashboard)
	case FormatJSON:
		return WriteJSON(w, r.Dashboard)
	case FormatPDF:
		return WritePDF(w, r)
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
}

// WriteFile writes r into dir under a timestamped name and returns the
// absolute path.
func WriteFile(dir, base string, f Format, r Report) (string, error) {
	if _, err := ParseFormat(string(f)); err != nil {
		return "", err
	}
	name, err := generateFilename(base, dir, string(f))
	if err != nil {
		return "", err
	}
	file, err := os.Create(name)
	if err != nil {
		return "", fmt.Errorf("create %s file: %w", f, err)
	}
	if err := Write(file, f, r); err != nil {
		file.Close()
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("close %s file: %w", f, err)
	}
	return filepath.Abs(name)
}

// CSVHeader is the column layout shared by every panel row.
var CSVHeader = []string{"panel", "key", "label", "count_class0", "count_class1", "value"}

// WriteCSV flattens the panels into one table. Label cells are escaped
// against spreadsheet formula injection.
func WriteCSV(w io.Writer, d services.Dashboard) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range csvRows(d) {
		row[2] = security.EscapeFormula(row[2])
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvRows(d services.Dashboard) [][]string {
	var rows [][]string
	if m := d.Monthly; m != nil {
		for _, b := range m.Buckets {
			rows = append(rows, []string{"monthly", b.Key.String(), render.BucketLabel(b.Key), "", "", b.Sum.String()})
		}
		for _, a := range m.Averages {
			rows = append(rows, []string{"quarterly_average", a.Quarter.Label(), a.Quarter.Label(), "", "", a.Mean.String()})
		}
	}
	if r := d.Risk; r != nil {
		for _, row := range r.Rows {
			rows = append(rows, []string{
				"risk",
				strconv.Itoa(row.Month),
				row.Label,
				strconv.Itoa(row.Class0),
				strconv.Itoa(row.Class1),
				statCell(row.Pct),
			})
		}
	}
	if a := d.Age; a != nil {
		for _, b := range a.Buckets {
			rows = append(rows, []string{"age", a.Variant, b.Label, "", "", strconv.Itoa(b.Count)})
		}
	}
	if k := d.KPIs; k != nil {
		rows = append(rows,
			[]string{"kpi", k.ApprovalRate.Key, k.ApprovalRate.Display, "", "", strconv.FormatFloat(k.ApprovalRate.Value, 'f', -1, 64)},
			[]string{"kpi", k.DelinquencyRate.Key, k.DelinquencyRate.Display, "", "", strconv.FormatFloat(k.DelinquencyRate.Value, 'f', -1, 64)},
		)
	}
	return rows
}

// statCell leaves undefined values empty.
func statCell(s core.Stat) string {
	if !s.Defined() {
		return ""
	}
	return s.Format(2)
}

// WriteJSON writes the dashboard as indented JSON.
func WriteJSON(w io.Writer, d services.Dashboard) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

func generateFilename(base, dir, ext string) (string, error) {
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("get working directory: %w", err)
		}
		dir = cwd
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	if base == "" {
		base = "riskdash"
	}
	stamp := time.Now().Format("20060102_1504")
	return filepath.Join(dir, fmt.Sprintf("%s_%s.%s", base, stamp, ext)), nil
}
