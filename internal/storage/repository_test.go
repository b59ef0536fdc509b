package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"riskdash/internal/core"
	"riskdash/internal/dataset"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "nested", "riskdash.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func sampleTable() core.Table {
	age := 2.5
	return core.Table{
		Columns: core.NewColumnSet(core.ColYear, core.ColQuarter, core.ColMonth, core.ColAmount,
			core.ColRiskFlag, core.ColAffiliationDate, core.ColAccountID, core.ColAccountAge, core.ColCategory),
		Records: []core.Record{
			{
				Year:            2024,
				Quarter:         1,
				Month:           2,
				Amount:          decimal.NewNullDecimal(decimal.RequireFromString("1234.56")),
				RiskFlag:        1,
				AffiliationDate: time.Date(2021, 3, 15, 0, 0, 0, 0, time.UTC),
				AccountID:       "acc-1",
				AccountAgeYears: &age,
				Attrs: core.Attributes{
					Numbers: map[string]decimal.Decimal{"num_delinquencies": decimal.NewFromInt(3)},
					Labels:  map[string]string{core.ColCategory: "electro"},
				},
			},
			{Year: 2024, Quarter: 1, Month: 3, RiskFlag: core.FlagMissing},
		},
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	imp, err := repo.SaveImport(ctx, "csv", "data/aggregated_df.csv", sampleTable())
	if err != nil {
		t.Fatalf("save import: %v", err)
	}
	if imp.ID == 0 || imp.Records != 2 {
		t.Fatalf("unexpected import: %+v", imp)
	}

	tbl, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tbl.Len() != 2 || !tbl.Columns.Has(core.ColCategory) {
		t.Fatalf("unexpected table: %+v", tbl)
	}

	got := tbl.Records[0]
	if got.Amount.Decimal.String() != "1234.56" || got.RiskFlag != 1 || got.AccountID != "acc-1" {
		t.Fatalf("unexpected first record: %+v", got)
	}
	if got.AffiliationDate.Format(dateLayout) != "2021-03-15" {
		t.Fatalf("unexpected affiliation date %v", got.AffiliationDate)
	}
	if got.AccountAgeYears == nil || *got.AccountAgeYears != 2.5 {
		t.Fatalf("unexpected account age %v", got.AccountAgeYears)
	}
	if n, ok := got.Numeric("num_delinquencies"); !ok || !n.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("attrs not restored: %+v", got.Attrs)
	}
	if l, _ := got.Label(core.ColCategory); l != "electro" {
		t.Fatalf("label not restored: %+v", got.Attrs)
	}

	second := tbl.Records[1]
	if second.Amount.Valid || second.HasAffiliation() || second.AccountAgeYears != nil || second.RiskFlag != core.FlagMissing {
		t.Fatalf("missing cells should stay missing: %+v", second)
	}
}

func TestLoadWithoutImports(t *testing.T) {
	repo := newTestRepo(t)
	if _, err := repo.Load(context.Background()); !errors.Is(err, ErrNoImports) {
		t.Fatalf("expected ErrNoImports, got %v", err)
	}
	if _, err := repo.LoadImport(context.Background(), 42); !errors.Is(err, dataset.ErrUnknownDataset) {
		t.Fatalf("expected ErrUnknownDataset, got %v", err)
	}
}

func TestListAndPruneImports(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	for i := 0; i < 3; i++ {
		if _, err := repo.SaveImport(ctx, "sheets", "doc", sampleTable()); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}
	imps, err := repo.ListImports(ctx, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(imps) != 3 || imps[0].ID < imps[2].ID {
		t.Fatalf("expected newest first, got %+v", imps)
	}

	removed, err := repo.PruneImports(ctx, 1)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 pruned, got %d", removed)
	}
	latest, err := repo.Latest(ctx)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.ID != imps[0].ID {
		t.Fatalf("prune kept the wrong import: %d", latest.ID)
	}
	if _, err := repo.LoadImport(ctx, imps[2].ID); !errors.Is(err, dataset.ErrUnknownDataset) {
		t.Fatalf("pruned import should be gone, got %v", err)
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "riskdash.db")
	if v, dirty, err := SchemaVersion(path); err != nil || v != 0 || dirty {
		t.Fatalf("empty database: version=%d dirty=%v err=%v", v, dirty, err)
	}
	if err := RunMigrations(path); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := RunMigrations(path); err != nil {
		t.Fatalf("second run: %v", err)
	}
	v, dirty, err := SchemaVersion(path)
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if v != 2 || dirty {
		t.Errorf("version = %d dirty = %v, want 2 clean", v, dirty)
	}
}
