// Package google reads the loan transaction table from a Google Sheets tab.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"riskdash/internal/core"
	"riskdash/internal/dataset"
)

// DefaultSheetName is read when no tab is configured.
const DefaultSheetName = "aggregated_df"

// valuesReader fetches a range as a matrix of untyped cells.
type valuesReader interface {
	Values(ctx context.Context, spreadsheetID, rng string) ([][]any, error)
}

type Source struct {
	reader        valuesReader
	spreadsheetID string
	sheet         string
}

var _ dataset.Source = (*Source)(nil)

// New creates a Sheets source authenticated with a service account from
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS, falling back to an OAuth user token.
func New(ctx context.Context, spreadsheetID, sheet string) (*Source, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newSource(apiReader{svc: svc}, spreadsheetID, sheet), nil
}

func newSource(r valuesReader, spreadsheetID, sheet string) *Source {
	if strings.TrimSpace(sheet) == "" {
		sheet = DefaultSheetName
	}
	return &Source{reader: r, spreadsheetID: spreadsheetID, sheet: sheet}
}

func (s *Source) Name() string {
	return "sheets:" + s.sheet
}

func (s *Source) Load(ctx context.Context) (core.Table, error) {
	values, err := s.reader.Values(ctx, s.spreadsheetID, quoteSheet(s.sheet))
	if err != nil {
		return core.Table{}, fmt.Errorf("read sheet %q: %w", s.sheet, err)
	}
	tbl, invalid, err := dataset.DecodeValues(values)
	if err != nil {
		return core.Table{}, fmt.Errorf("decode sheet %q: %w", s.sheet, err)
	}
	dataset.LogInvalid(s.Name(), invalid)
	return tbl, nil
}

// quoteSheet wraps tab names containing spaces or punctuation for A1 notation.
func quoteSheet(name string) string {
	if strings.ContainsAny(name, " -'!") {
		return "'" + strings.ReplaceAll(name, "'", "''") + "'"
	}
	return name
}

type apiReader struct {
	svc *gsheet.Service
}

func (a apiReader) Values(ctx context.Context, spreadsheetID, rng string) ([][]any, error) {
	resp, err := a.svc.Spreadsheets.Values.Get(spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	inline := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	file := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var creds []byte
	switch {
	case inline != "":
		slog.DebugContext(ctx, "Using inline service account credentials")
		creds = []byte(inline)
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		slog.DebugContext(ctx, "Read service account credentials", "path", file, "size", len(b))
		creds = b
	case oauthConfigured():
		return newOAuthSheetsService(ctx)
	default:
		return nil, errors.New("missing Google credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, GOOGLE_APPLICATION_CREDENTIALS, or GOOGLE_OAUTH_CLIENT_FILE with a token from oauth-init)")
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}
