// Package worker imports datasets into the SQLite snapshot store, either on
// request over AMQP or on a cron schedule.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"riskdash/internal/amqp"
	"riskdash/internal/backend"
	"riskdash/internal/core"
	applog "riskdash/internal/log"
	"riskdash/internal/storage"
)

// SnapshotStore is the subset of the SQLite repository used by the worker.
type SnapshotStore interface {
	SaveImport(ctx context.Context, source, location string, t core.Table) (storage.Import, error)
	PruneImports(ctx context.Context, keep int) (int64, error)
}

// ImportWorker loads a dataset from an upstream backend and stores it as a
// new snapshot. Imports run one at a time.
type ImportWorker struct {
	store   SnapshotStore
	factory backend.Factory
	base    backend.Config
	keep    int
	log     *applog.StructuredLogger

	mu sync.Mutex
}

// NewImportWorker builds a worker whose default import is base. A sqlite base
// falls back to the csv dataset path, since the store cannot import itself.
func NewImportWorker(store SnapshotStore, factory backend.Factory, base backend.Config, keep int, logger *applog.Logger) *ImportWorker {
	if base.Type == backend.SQLiteBackend {
		base.Type = backend.CSVBackend
	}
	base.CacheTTL = 0
	if keep < 1 {
		keep = 1
	}
	return &ImportWorker{
		store:   store,
		factory: factory,
		base:    base,
		keep:    keep,
		log:     applog.NewStructuredLogger(logger),
	}
}

// HandleImportRequest processes a single import request from AMQP. Requests
// that can never succeed are marked permanent so they are not redelivered.
func (w *ImportWorker) HandleImportRequest(ctx context.Context, req *amqp.ImportRequest) error {
	bt := backend.BackendType(req.Source)
	if !bt.IsValid() || bt == backend.SQLiteBackend {
		return fmt.Errorf("unsupported import source %q: %w", req.Source, amqp.ErrPermanent)
	}
	cfg, err := w.base.ForLocation(bt, req.Location)
	if err != nil {
		return fmt.Errorf("import request %s: %v: %w", req.ID, err, amqp.ErrPermanent)
	}
	_, err = w.importFrom(ctx, cfg)
	return err
}

// ImportDefault imports the configured dataset. It is the scheduled job.
func (w *ImportWorker) ImportDefault(ctx context.Context) error {
	_, err := w.importFrom(ctx, w.base)
	return err
}

func (w *ImportWorker) importFrom(ctx context.Context, cfg backend.Config) (storage.Import, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	res, err := w.factory.CreateSource(ctx, cfg)
	if err != nil {
		return storage.Import{}, fmt.Errorf("open %s source: %w", cfg.Type, err)
	}
	defer func() {
		if err := res.Close(); err != nil {
			slog.WarnContext(ctx, "Failed to close import source", "source", res.Source.Name(), "error", err)
		}
	}()

	tbl, err := res.Source.Load(ctx)
	if err != nil {
		return storage.Import{}, fmt.Errorf("load %s: %w", res.Source.Name(), err)
	}

	imp, err := w.store.SaveImport(ctx, cfg.Type.String(), res.Source.Name(), tbl)
	if err != nil {
		return storage.Import{}, fmt.Errorf("store import: %w", err)
	}
	w.log.LogImport(ctx, res.Source.Name(), imp.Records, imp.ID)

	if pruned, err := w.store.PruneImports(ctx, w.keep); err != nil {
		slog.WarnContext(ctx, "Failed to prune old imports", "error", err)
	} else if pruned > 0 {
		slog.InfoContext(ctx, "Pruned old imports", "count", pruned, "kept", w.keep)
	}
	return imp, nil
}
