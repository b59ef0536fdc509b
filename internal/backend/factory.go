package backend

import (
	"context"
	"fmt"
	"log/slog"

	"riskdash/internal/dataset"
	"riskdash/internal/dataset/csvfile"
	"riskdash/internal/dataset/google"
	"riskdash/internal/dataset/postgres"
	"riskdash/internal/dataset/s3"
	"riskdash/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateSource implements Factory.CreateSource. Remote sources are wrapped in
// a TTL cache.
func (f *DefaultFactory) CreateSource(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		res *Result
		err error
	)
	switch config.Type {
	case CSVBackend:
		res = &Result{Source: csvfile.File{Path: config.DatasetPath}}
	case SQLiteBackend:
		res, err = f.createSQLiteSource(config)
	case SheetsBackend:
		res, err = f.createSheetsSource(ctx, config)
	case S3Backend:
		res, err = f.createS3Source(ctx, config)
	case PostgresBackend:
		res, err = f.createPostgresSource(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	if config.Type.Remote() && config.CacheTTL > 0 {
		res.Source = dataset.NewCached(res.Source, config.CacheTTL)
	}
	f.logger.Info("Initialized dataset backend",
		"backend", config.Type.String(),
		"source", res.Source.Name(),
		"cache_ttl", config.CacheTTL.String())
	return res, nil
}

func (f *DefaultFactory) createSQLiteSource(config Config) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	return &Result{Source: repo, Store: repo, Cleanup: repo.Close}, nil
}

func (f *DefaultFactory) createSheetsSource(ctx context.Context, config Config) (*Result, error) {
	src, err := google.New(ctx, config.GoogleSpreadsheetID, config.GoogleSheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	return &Result{Source: src}, nil
}

func (f *DefaultFactory) createS3Source(ctx context.Context, config Config) (*Result, error) {
	src, err := s3.New(ctx, s3.Options{
		Bucket:  config.S3Bucket,
		Key:     config.S3Key,
		Profile: config.AWSProfile,
		Region:  config.AWSRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize S3 source: %w", err)
	}
	return &Result{Source: src}, nil
}

func (f *DefaultFactory) createPostgresSource(ctx context.Context, config Config) (*Result, error) {
	src, err := postgres.Open(ctx, config.PostgresDSN, config.PostgresTable)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres source: %w", err)
	}
	return &Result{Source: src, Cleanup: src.Close}, nil
}
