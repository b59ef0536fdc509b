// Package dataset defines the record sources that feed the dashboard and the
// header-indexed decoding they share.
package dataset

import (
	"context"
	"errors"

	"riskdash/internal/core"
)

var (
	ErrUnknownDataset = errors.New("unknown dataset")
	ErrEmptyHeader    = errors.New("dataset has no header row")
)

type (
	// Source loads a complete record table.
	Source interface {
		Load(ctx context.Context) (core.Table, error)
		Name() string
	}

	// Resolver returns the table for a dataset id. The empty id is the
	// configured default source.
	Resolver interface {
		Resolve(ctx context.Context, id string) (core.Table, error)
	}
)

// Static serves a fixed table.
type Static struct {
	Label string
	Table core.Table
}

func (s Static) Load(ctx context.Context) (core.Table, error) {
	if err := ctx.Err(); err != nil {
		return core.Table{}, err
	}
	return s.Table, nil
}

func (s Static) Name() string {
	if s.Label == "" {
		return "static"
	}
	return s.Label
}
