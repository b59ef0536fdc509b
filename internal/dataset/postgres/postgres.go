// Package postgres reads the loan transaction table from a PostgreSQL relation.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"riskdash/internal/core"
	"riskdash/internal/dataset"
)

// DefaultTable is queried when no relation is configured.
const DefaultTable = "aggregated_df"

type Source struct {
	db    *sql.DB
	table string
}

var _ dataset.Source = (*Source)(nil)

// Open connects and pings the database.
func Open(ctx context.Context, dsn, table string) (*Source, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return New(db, table), nil
}

func New(db *sql.DB, table string) *Source {
	if strings.TrimSpace(table) == "" {
		table = DefaultTable
	}
	return &Source{db: db, table: table}
}

func (s *Source) Name() string {
	return "postgres:" + s.table
}

func (s *Source) Close() error {
	return s.db.Close()
}

func (s *Source) Load(ctx context.Context) (core.Table, error) {
	rows, err := s.db.QueryContext(ctx, selectAll(s.table))
	if err != nil {
		return core.Table{}, fmt.Errorf("query %s: %w", s.table, err)
	}
	defer rows.Close()

	tbl, err := readTable(rows)
	if err != nil {
		return core.Table{}, fmt.Errorf("read %s: %w", s.table, err)
	}
	return tbl, nil
}

// selectAll quotes each part of a possibly schema-qualified name.
func selectAll(table string) string {
	parts := strings.Split(table, ".")
	for i, p := range parts {
		parts[i] = pq.QuoteIdentifier(p)
	}
	return "SELECT * FROM " + strings.Join(parts, ".")
}

type rowScanner interface {
	Columns() ([]string, error)
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func readTable(rows rowScanner) (core.Table, error) {
	cols, err := rows.Columns()
	if err != nil {
		return core.Table{}, err
	}
	var data [][]string
	for rows.Next() {
		cells := make([]sql.NullString, len(cols))
		dest := make([]any, len(cols))
		for i := range cells {
			dest[i] = &cells[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return core.Table{}, err
		}
		row := make([]string, len(cols))
		for i, c := range cells {
			if c.Valid {
				row[i] = c.String
			}
		}
		data = append(data, row)
	}
	if err := rows.Err(); err != nil {
		return core.Table{}, err
	}
	tbl, invalid, err := dataset.DecodeRows(cols, data)
	if err != nil {
		return core.Table{}, err
	}
	dataset.LogInvalid("postgres", invalid)
	return tbl, nil
}
