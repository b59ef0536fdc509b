// Package storage persists imported loan tables in SQLite so the dashboard
// can serve the last import without reaching the upstream source.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"riskdash/internal/core"
	"riskdash/internal/dataset"
)

// ErrNoImports is returned when the store has never received a table.
var ErrNoImports = errors.New("no imports stored")

const dateLayout = "2006-01-02"

// Import describes one stored table snapshot.
type Import struct {
	ID         int64     `json:"id"`
	Source     string    `json:"source"`
	Location   string    `json:"location,omitempty"`
	Columns    []string  `json:"columns"`
	Records    int       `json:"records"`
	ImportedAt time.Time `json:"imported_at"`
}

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

var _ dataset.Source = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepository) Name() string {
	return "sqlite"
}

// SaveImport stores t as a new snapshot inside a single transaction.
func (r *SQLiteRepository) SaveImport(ctx context.Context, source, location string, t core.Table) (Import, error) {
	cols := t.Columns.Names()
	colsJSON, err := json.Marshal(cols)
	if err != nil {
		return Import{}, fmt.Errorf("encode columns: %w", err)
	}
	imp := Import{
		Source:     source,
		Location:   location,
		Columns:    cols,
		Records:    t.Len(),
		ImportedAt: r.now().UTC().Truncate(time.Second),
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Import{}, fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO imports (source, location, columns, records, imported_at) VALUES (?, ?, ?, ?, ?)`,
		imp.Source, imp.Location, string(colsJSON), imp.Records, imp.ImportedAt.Format(time.RFC3339))
	if err != nil {
		return Import{}, fmt.Errorf("insert import: %w", err)
	}
	if imp.ID, err = res.LastInsertId(); err != nil {
		return Import{}, fmt.Errorf("import id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO loan_records
		(import_id, year, quarter, month, amount, risk_flag, affiliation_date, account_id, account_age_years, attrs)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return Import{}, fmt.Errorf("prepare records: %w", err)
	}
	defer stmt.Close()

	for i, rec := range t.Records {
		attrs, err := json.Marshal(rec.Attrs)
		if err != nil {
			return Import{}, fmt.Errorf("encode attrs of record %d: %w", i, err)
		}
		var amount, affiliation sql.NullString
		if rec.Amount.Valid {
			amount = sql.NullString{String: rec.Amount.Decimal.String(), Valid: true}
		}
		if rec.HasAffiliation() {
			affiliation = sql.NullString{String: rec.AffiliationDate.Format(dateLayout), Valid: true}
		}
		var age sql.NullFloat64
		if rec.AccountAgeYears != nil {
			age = sql.NullFloat64{Float64: *rec.AccountAgeYears, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, imp.ID, rec.Year, int(rec.Quarter), rec.Month,
			amount, rec.RiskFlag, affiliation, rec.AccountID, age, string(attrs)); err != nil {
			return Import{}, fmt.Errorf("insert record %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Import{}, fmt.Errorf("commit import: %w", err)
	}
	return imp, nil
}

// ListImports returns the most recent snapshots first. limit <= 0 returns all.
func (r *SQLiteRepository) ListImports(ctx context.Context, limit int) ([]Import, error) {
	q := `SELECT id, source, location, columns, records, imported_at FROM imports ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list imports: %w", err)
	}
	defer rows.Close()

	var out []Import
	for rows.Next() {
		imp, err := scanImport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, imp)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) Latest(ctx context.Context) (Import, error) {
	imps, err := r.ListImports(ctx, 1)
	if err != nil {
		return Import{}, err
	}
	if len(imps) == 0 {
		return Import{}, ErrNoImports
	}
	return imps[0], nil
}

// Load returns the latest snapshot.
func (r *SQLiteRepository) Load(ctx context.Context) (core.Table, error) {
	imp, err := r.Latest(ctx)
	if err != nil {
		return core.Table{}, err
	}
	return r.LoadImport(ctx, imp.ID)
}

func (r *SQLiteRepository) LoadImport(ctx context.Context, id int64) (core.Table, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, source, location, columns, records, imported_at FROM imports WHERE id = ?`, id)
	imp, err := scanImport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Table{}, fmt.Errorf("import %d: %w", id, dataset.ErrUnknownDataset)
	}
	if err != nil {
		return core.Table{}, err
	}

	rows, err := r.db.QueryContext(ctx, `SELECT year, quarter, month, amount, risk_flag, affiliation_date,
		account_id, account_age_years, attrs FROM loan_records WHERE import_id = ? ORDER BY id`, id)
	if err != nil {
		return core.Table{}, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	records := make([]core.Record, 0, imp.Records)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return core.Table{}, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return core.Table{}, fmt.Errorf("iterate records: %w", err)
	}
	return core.Table{Columns: core.NewColumnSet(imp.Columns...), Records: records}, nil
}

// PruneImports deletes everything except the newest keep snapshots.
func (r *SQLiteRepository) PruneImports(ctx context.Context, keep int) (int64, error) {
	if keep < 1 {
		keep = 1
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin prune: %w", err)
	}
	defer tx.Rollback()

	const stale = `SELECT id FROM imports ORDER BY id DESC LIMIT -1 OFFSET ?`
	if _, err := tx.ExecContext(ctx, `DELETE FROM loan_records WHERE import_id IN (`+stale+`)`, keep); err != nil {
		return 0, fmt.Errorf("prune records: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM imports WHERE id IN (`+stale+`)`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune imports: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, tx.Commit()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanImport(s scanner) (Import, error) {
	var (
		imp      Import
		cols, at string
	)
	if err := s.Scan(&imp.ID, &imp.Source, &imp.Location, &cols, &imp.Records, &at); err != nil {
		return Import{}, err
	}
	if err := json.Unmarshal([]byte(cols), &imp.Columns); err != nil {
		return Import{}, fmt.Errorf("decode columns of import %d: %w", imp.ID, err)
	}
	ts, err := time.Parse(time.RFC3339, at)
	if err != nil {
		return Import{}, fmt.Errorf("decode timestamp of import %d: %w", imp.ID, err)
	}
	imp.ImportedAt = ts
	return imp, nil
}

func scanRecord(s scanner) (core.Record, error) {
	var (
		rec         core.Record
		quarter     int
		amount      sql.NullString
		affiliation sql.NullString
		age         sql.NullFloat64
		attrs       string
	)
	if err := s.Scan(&rec.Year, &quarter, &rec.Month, &amount, &rec.RiskFlag, &affiliation,
		&rec.AccountID, &age, &attrs); err != nil {
		return core.Record{}, fmt.Errorf("scan record: %w", err)
	}
	rec.Quarter = core.Quarter(quarter)
	if amount.Valid {
		d, err := decimal.NewFromString(amount.String)
		if err != nil {
			return core.Record{}, fmt.Errorf("decode amount %q: %w", amount.String, err)
		}
		rec.Amount = decimal.NewNullDecimal(d)
	}
	if affiliation.Valid {
		d, err := time.Parse(dateLayout, affiliation.String)
		if err != nil {
			return core.Record{}, fmt.Errorf("decode affiliation date %q: %w", affiliation.String, err)
		}
		rec.AffiliationDate = d
	}
	if age.Valid {
		v := age.Float64
		rec.AccountAgeYears = &v
	}
	if err := json.Unmarshal([]byte(attrs), &rec.Attrs); err != nil {
		return core.Record{}, fmt.Errorf("decode attrs: %w", err)
	}
	return rec, nil
}
