package backend

import (
	"errors"
	"fmt"
	"strings"

	"riskdash/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:                backendType,
		DatasetPath:         appConfig.DatasetPath,
		SQLiteDBPath:        appConfig.SQLiteDBPath,
		PostgresDSN:         appConfig.PostgresDSN,
		PostgresTable:       appConfig.PostgresTable,
		S3Bucket:            appConfig.S3Bucket,
		S3Key:               appConfig.S3Key,
		AWSProfile:          appConfig.AWSProfile,
		AWSRegion:           appConfig.AWSRegion,
		GoogleSpreadsheetID: appConfig.GoogleSpreadsheetID,
		GoogleSheetName:     appConfig.GoogleSheetName,
		CacheTTL:            appConfig.SourceCacheTTL,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case CSVBackend:
		if c.DatasetPath == "" {
			return errors.New("dataset path is required for csv backend")
		}
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return errors.New("SQLite database path is required for sqlite backend")
		}
	case PostgresBackend:
		if c.PostgresDSN == "" {
			return errors.New("postgres DSN is required for postgres backend")
		}
	case S3Backend:
		if c.S3Bucket == "" || c.S3Key == "" {
			return errors.New("S3 bucket and key are required for s3 backend")
		}
	case SheetsBackend:
		if c.GoogleSpreadsheetID == "" {
			return errors.New("Google Spreadsheet ID is required for sheets backend")
		}
	}

	return nil
}

// ForLocation returns a copy of c pointed at another source and location, as
// carried by an import request. The location format depends on the type:
//
//	csv       file path
//	s3        s3://bucket/key
//	sheets    spreadsheetID or spreadsheetID/sheet
//	postgres  table name (the DSN is kept)
//	sqlite    unused
func (c Config) ForLocation(t BackendType, location string) (Config, error) {
	out := c
	out.Type = t
	location = strings.TrimSpace(location)

	switch t {
	case CSVBackend:
		if location != "" {
			out.DatasetPath = location
		}
	case S3Backend:
		if location != "" {
			rest, ok := strings.CutPrefix(location, "s3://")
			bucket, key, found := strings.Cut(rest, "/")
			if !ok || !found || bucket == "" || key == "" {
				return Config{}, fmt.Errorf("invalid s3 location %q: want s3://bucket/key", location)
			}
			out.S3Bucket, out.S3Key = bucket, key
		}
	case SheetsBackend:
		if location != "" {
			id, sheet, _ := strings.Cut(location, "/")
			out.GoogleSpreadsheetID = id
			if sheet != "" {
				out.GoogleSheetName = sheet
			}
		}
	case PostgresBackend:
		if location != "" {
			out.PostgresTable = location
		}
	case SQLiteBackend:
	default:
		return Config{}, fmt.Errorf("invalid backend type: %s", t)
	}

	return out, out.Validate()
}

// Types returns all valid backend types
func Types() []BackendType {
	return []BackendType{CSVBackend, SQLiteBackend, SheetsBackend, S3Backend, PostgresBackend}
}

// TypeStrings returns all valid backend type strings
func TypeStrings() []string {
	types := Types()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
