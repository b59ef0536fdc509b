// Package memory keeps uploaded tables in process, addressed by a random id.
package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"riskdash/internal/cache"
	"riskdash/internal/core"
	"riskdash/internal/dataset"
)

// Upload is a parsed dataset held for later queries.
type Upload struct {
	ID         string     `json:"id"`
	Filename   string     `json:"filename"`
	Records    int        `json:"records"`
	UploadedAt time.Time  `json:"uploaded_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	Table      core.Table `json:"-"`
}

// Store bounds uploads by count and age; the least recently queried upload
// is dropped first.
type Store struct {
	uploads *cache.LRUCache[Upload]
	newID   func() string
	now     func() time.Time
}

func New(maxUploads int, ttl time.Duration) *Store {
	return &Store{
		uploads: cache.NewLRUCache[Upload](maxUploads, ttl),
		newID:   func() string { return uuid.New().String() },
		now:     time.Now,
	}
}

// Put stores a table and returns its upload record.
func (s *Store) Put(filename string, t core.Table) Upload {
	now := s.now()
	u := Upload{
		ID:         s.newID(),
		Filename:   filename,
		Records:    t.Len(),
		UploadedAt: now,
		ExpiresAt:  now.Add(s.uploads.TTL()),
		Table:      t,
	}
	s.uploads.Set(u.ID, u)
	return u
}

func (s *Store) Get(id string) (Upload, error) {
	u, ok := s.uploads.Get(id)
	if !ok {
		return Upload{}, fmt.Errorf("%w: %q", dataset.ErrUnknownDataset, id)
	}
	return u, nil
}

func (s *Store) Delete(id string) {
	s.uploads.Delete(id)
}

func (s *Store) Len() int {
	return s.uploads.Size()
}

// Cleaner exposes the backing cache to a cache.Manager sweep.
func (s *Store) Cleaner() cache.Cleaner {
	return s.uploads
}

// Source adapts one upload to the dataset.Source port.
func (s *Store) Source(id string) dataset.Source {
	return uploadSource{store: s, id: id}
}

type uploadSource struct {
	store *Store
	id    string
}

func (u uploadSource) Name() string { return "upload:" + u.id }

func (u uploadSource) Load(ctx context.Context) (core.Table, error) {
	if err := ctx.Err(); err != nil {
		return core.Table{}, err
	}
	up, err := u.store.Get(u.id)
	if err != nil {
		return core.Table{}, err
	}
	return up.Table, nil
}
