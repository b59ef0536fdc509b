package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"riskdash/internal/amqp"
	"riskdash/internal/backend"
	"riskdash/internal/core"
	"riskdash/internal/dataset"
	applog "riskdash/internal/log"
	"riskdash/internal/storage"
)

type fakeStore struct {
	saved    []storage.Import
	pruneErr error
	keep     int
}

func (f *fakeStore) SaveImport(_ context.Context, source, location string, t core.Table) (storage.Import, error) {
	imp := storage.Import{ID: int64(len(f.saved) + 1), Source: source, Location: location, Records: t.Len()}
	f.saved = append(f.saved, imp)
	return imp, nil
}

func (f *fakeStore) PruneImports(_ context.Context, keep int) (int64, error) {
	f.keep = keep
	return 0, f.pruneErr
}

type fakeFactory struct {
	got     []backend.Config
	loadErr error
	closed  int
}

func (f *fakeFactory) CreateSource(_ context.Context, cfg backend.Config) (*backend.Result, error) {
	f.got = append(f.got, cfg)
	if f.loadErr != nil {
		return &backend.Result{Source: failingSource{f.loadErr}}, nil
	}
	tbl := core.Table{
		Columns: core.NewColumnSet(core.ColYear),
		Records: []core.Record{{Year: 2023}, {Year: 2024}},
	}
	return &backend.Result{
		Source:  dataset.Static{Label: string(cfg.Type), Table: tbl},
		Cleanup: func() error { f.closed++; return nil },
	}, nil
}

type failingSource struct{ err error }

func (s failingSource) Name() string                             { return "failing" }
func (s failingSource) Load(context.Context) (core.Table, error) { return core.Table{}, s.err }

func newWorker(store *fakeStore, f *fakeFactory) *ImportWorker {
	base := backend.Config{Type: backend.SQLiteBackend, DatasetPath: "data/aggregated_df.csv", CacheTTL: time.Minute}
	return NewImportWorker(store, f, base, 3, applog.New(applog.DefaultConfig()))
}

func TestImportWorker_ImportDefault(t *testing.T) {
	store, f := &fakeStore{}, &fakeFactory{}
	w := newWorker(store, f)

	if err := w.ImportDefault(context.Background()); err != nil {
		t.Fatalf("ImportDefault() error = %v", err)
	}
	if len(f.got) != 1 || f.got[0].Type != backend.CSVBackend || f.got[0].CacheTTL != 0 {
		t.Fatalf("sqlite default should import the csv dataset uncached, got %+v", f.got)
	}
	if len(store.saved) != 1 || store.saved[0].Records != 2 || store.saved[0].Source != "csv" {
		t.Fatalf("unexpected saved imports %+v", store.saved)
	}
	if store.keep != 3 || f.closed != 1 {
		t.Errorf("keep=%d closed=%d", store.keep, f.closed)
	}
}

func TestImportWorker_HandleImportRequest(t *testing.T) {
	tests := []struct {
		name          string
		req           *amqp.ImportRequest
		wantPermanent bool
		wantErr       bool
		check         func(*testing.T, backend.Config)
	}{
		{
			name: "s3 location",
			req:  amqp.NewImportRequest("s3", "s3://risk/aggregated_df.csv"),
			check: func(t *testing.T, c backend.Config) {
				if c.S3Bucket != "risk" || c.S3Key != "aggregated_df.csv" {
					t.Errorf("unexpected config %+v", c)
				}
			},
		},
		{
			name: "csv default path",
			req:  amqp.NewImportRequest("csv", ""),
			check: func(t *testing.T, c backend.Config) {
				if c.DatasetPath != "data/aggregated_df.csv" {
					t.Errorf("unexpected path %q", c.DatasetPath)
				}
			},
		},
		{name: "unknown source", req: amqp.NewImportRequest("ftp", "x"), wantErr: true, wantPermanent: true},
		{name: "sqlite source", req: amqp.NewImportRequest("sqlite", ""), wantErr: true, wantPermanent: true},
		{name: "bad s3 location", req: amqp.NewImportRequest("s3", "bucket-only"), wantErr: true, wantPermanent: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, f := &fakeStore{}, &fakeFactory{}
			err := newWorker(store, f).HandleImportRequest(context.Background(), tt.req)
			if (err != nil) != tt.wantErr {
				t.Fatalf("HandleImportRequest() error = %v, wantErr %v", err, tt.wantErr)
			}
			if errors.Is(err, amqp.ErrPermanent) != tt.wantPermanent {
				t.Errorf("permanent = %v, want %v (%v)", !tt.wantPermanent, tt.wantPermanent, err)
			}
			if tt.check != nil {
				tt.check(t, f.got[0])
			}
		})
	}
}

func TestImportWorker_LoadFailureIsTransient(t *testing.T) {
	store, f := &fakeStore{}, &fakeFactory{loadErr: errors.New("timeout")}
	err := newWorker(store, f).HandleImportRequest(context.Background(), amqp.NewImportRequest("csv", "a.csv"))
	if err == nil || errors.Is(err, amqp.ErrPermanent) {
		t.Fatalf("load failure should be retryable, got %v", err)
	}
	if len(store.saved) != 0 {
		t.Errorf("nothing should be stored on failure")
	}
}

func TestImportWorker_PruneFailureIsLogged(t *testing.T) {
	store, f := &fakeStore{pruneErr: errors.New("locked")}, &fakeFactory{}
	if err := newWorker(store, f).ImportDefault(context.Background()); err != nil {
		t.Fatalf("prune failure should not fail the import: %v", err)
	}
}

func TestScheduler(t *testing.T) {
	if _, err := NewScheduler(context.Background(), "not a schedule", nil); err == nil {
		t.Fatalf("expected error for invalid spec")
	}

	var runs int32
	ctx, cancel := context.WithCancel(context.Background())
	s, err := NewScheduler(ctx, "@every 1s", func(context.Context) error {
		atomic.AddInt32(&runs, 1)
		cancel()
		return nil
	})
	if err != nil {
		t.Fatalf("NewScheduler() error = %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not run the job")
	}
	if atomic.LoadInt32(&runs) != 1 {
		t.Errorf("runs = %d, want 1", runs)
	}
}
