package backend

import (
	"context"
	"time"

	"riskdash/internal/dataset"
	"riskdash/internal/storage"
)

// CleanupFunc releases resources held by a backend
type CleanupFunc func() error

// Result is the dataset source selected by the factory. Store is set only for
// the sqlite backend.
type Result struct {
	Source  dataset.Source
	Store   *storage.SQLiteRepository
	Cleanup CleanupFunc
}

// Close runs Cleanup when present.
func (r *Result) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates dataset sources based on configuration
type Factory interface {
	CreateSource(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for source creation
type Config struct {
	Type BackendType

	// csv
	DatasetPath string

	// sqlite
	SQLiteDBPath string

	// postgres
	PostgresDSN   string
	PostgresTable string

	// s3
	S3Bucket   string
	S3Key      string
	AWSProfile string
	AWSRegion  string

	// sheets
	GoogleSpreadsheetID string
	GoogleSheetName     string

	// CacheTTL bounds how long a remote table is reused; <= 0 disables caching.
	CacheTTL time.Duration
}

// BackendType represents the type of backend
type BackendType string

const (
	CSVBackend      BackendType = "csv"
	SQLiteBackend   BackendType = "sqlite"
	SheetsBackend   BackendType = "sheets"
	S3Backend       BackendType = "s3"
	PostgresBackend BackendType = "postgres"
)

func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case CSVBackend, SQLiteBackend, SheetsBackend, S3Backend, PostgresBackend:
		return true
	default:
		return false
	}
}

// Remote reports whether loading crosses the network.
func (bt BackendType) Remote() bool {
	return bt == SheetsBackend || bt == S3Backend || bt == PostgresBackend
}
