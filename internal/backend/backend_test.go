package backend

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"riskdash/internal/config"
	"riskdash/internal/dataset/csvfile"
	"riskdash/internal/storage"
)

func TestBackendType_IsValid(t *testing.T) {
	for _, bt := range Types() {
		if !bt.IsValid() {
			t.Errorf("%s should be valid", bt)
		}
	}
	if BackendType("memory").IsValid() {
		t.Errorf("memory should not be a valid backend")
	}
	if strings.Join(TypeStrings(), ",") != "csv,sqlite,sheets,s3,postgres" {
		t.Errorf("unexpected type strings %v", TypeStrings())
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "excel"}); err == nil {
		t.Fatalf("expected error for invalid backend")
	}

	cfg, err := FromAppConfig(&config.Config{
		DataBackend:    "s3",
		S3Bucket:       "risk",
		S3Key:          "aggregated_df.csv",
		SourceCacheTTL: time.Minute,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Type != S3Backend || cfg.S3Bucket != "risk" || cfg.CacheTTL != time.Minute {
		t.Errorf("unexpected backend config %+v", cfg)
	}
}

func TestConfig_ForLocation(t *testing.T) {
	base := Config{Type: CSVBackend, DatasetPath: "a.csv", PostgresDSN: "postgres://x", GoogleSheetName: "aggregated_df"}

	tests := []struct {
		name     string
		typ      BackendType
		location string
		check    func(Config) bool
		wantErr  bool
	}{
		{name: "csv path", typ: CSVBackend, location: "b.csv", check: func(c Config) bool { return c.DatasetPath == "b.csv" }},
		{name: "s3 url", typ: S3Backend, location: "s3://bucket/dir/file.csv", check: func(c Config) bool {
			return c.S3Bucket == "bucket" && c.S3Key == "dir/file.csv"
		}},
		{name: "s3 without key", typ: S3Backend, location: "s3://bucket", wantErr: true},
		{name: "s3 wrong scheme", typ: S3Backend, location: "https://bucket/key", wantErr: true},
		{name: "sheets id only", typ: SheetsBackend, location: "doc-1", check: func(c Config) bool {
			return c.GoogleSpreadsheetID == "doc-1" && c.GoogleSheetName == "aggregated_df"
		}},
		{name: "sheets id and tab", typ: SheetsBackend, location: "doc-1/Loans", check: func(c Config) bool {
			return c.GoogleSheetName == "Loans"
		}},
		{name: "postgres table", typ: PostgresBackend, location: "risk.loans", check: func(c Config) bool {
			return c.PostgresTable == "risk.loans" && c.PostgresDSN == "postgres://x"
		}},
		{name: "sheets missing id", typ: SheetsBackend, location: "", wantErr: true},
		{name: "unknown type", typ: BackendType("ftp"), location: "x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := base.ForLocation(tt.typ, tt.location)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ForLocation() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !tt.check(got) {
				t.Errorf("ForLocation() = %+v", got)
			}
		})
	}
}

func TestFactory_CreateSource(t *testing.T) {
	f := NewFactory(nil)
	ctx := context.Background()

	t.Run("csv", func(t *testing.T) {
		res, err := f.CreateSource(ctx, Config{Type: CSVBackend, DatasetPath: "data.csv", CacheTTL: time.Minute})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := res.Source.(csvfile.File); !ok {
			t.Errorf("local csv should not be cached, got %T", res.Source)
		}
		if err := res.Close(); err != nil {
			t.Errorf("Close() = %v", err)
		}
	})

	t.Run("sqlite", func(t *testing.T) {
		res, err := f.CreateSource(ctx, Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "r.db")})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer res.Close()
		if res.Store == nil {
			t.Fatalf("sqlite backend should expose its store")
		}
		if _, err := res.Source.Load(ctx); !errors.Is(err, storage.ErrNoImports) {
			t.Errorf("empty store should report ErrNoImports, got %v", err)
		}
	})

	t.Run("invalid config", func(t *testing.T) {
		if _, err := f.CreateSource(ctx, Config{Type: PostgresBackend}); err == nil {
			t.Errorf("expected validation error")
		}
	})
}
