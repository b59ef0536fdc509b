package services

import (
	"context"

	"riskdash/internal/core"
	"riskdash/internal/dataset"
	"riskdash/internal/dataset/memory"
)

// SourceResolver maps the empty id to the configured source and any other
// id to an upload.
type SourceResolver struct {
	def     dataset.Source
	uploads *memory.Store
}

// NewSourceResolver builds a resolver. uploads may be nil when uploads are
// disabled, in which case every non-empty id is unknown.
func NewSourceResolver(def dataset.Source, uploads *memory.Store) *SourceResolver {
	return &SourceResolver{def: def, uploads: uploads}
}

func (r *SourceResolver) Resolve(ctx context.Context, id string) (core.Table, error) {
	return r.Source(id).Load(ctx)
}

// Source returns the dataset.Source behind id without loading it.
func (r *SourceResolver) Source(id string) dataset.Source {
	if id == "" {
		return r.def
	}
	if r.uploads == nil {
		return unknownSource(id)
	}
	return r.uploads.Source(id)
}

type unknownSource string

func (u unknownSource) Name() string { return "upload:" + string(u) }

func (u unknownSource) Load(context.Context) (core.Table, error) {
	return core.Table{}, dataset.ErrUnknownDataset
}
