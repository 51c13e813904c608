package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"pricebook/internal/pricing"
)

func openFixtureDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "app.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	fx, err := ReadFixture(filepath.Join("..", "..", "testdata", "pricebook.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.LoadFixture(context.Background(), fx); err != nil {
		t.Fatal(err)
	}
	return db
}

var now = time.Date(2026, 1, 15, 12, 0, 0, 0, time.Local)

func price(v decimal.NullDecimal) string {
	if !v.Valid {
		return "null"
	}
	return v.Decimal.StringFixed(2)
}

func TestLoadFixtureCounts(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "app.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	fx, err := ReadFixture(filepath.Join("..", "..", "testdata", "pricebook.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	counts, err := db.LoadFixture(context.Background(), fx)
	if err != nil {
		t.Fatal(err)
	}
	want := FixtureCounts{Items: 4, Sections: 4, Prices: 6, Templates: 2, Drafts: 1, Versions: 1, Specs: 1}
	if counts != want {
		t.Fatalf("counts = %+v want %+v", counts, want)
	}
}

func TestListBaselineRows(t *testing.T) {
	db := openFixtureDB(t)
	ctx := context.Background()

	tests := []struct {
		name          string
		excludeFuture bool
		wantA1PP1     string
	}{
		{"latest including future", false, "11.00"},
		{"current only", true, "10.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := db.ListBaselineRows(ctx, tt.excludeFuture, now)
			if err != nil {
				t.Fatal(err)
			}
			if len(rows) != 4 {
				t.Fatalf("rows = %d want 4", len(rows))
			}
			byItem := map[string]SectionPriceRow{}
			for _, r := range rows {
				byItem[r.Item] = r
			}
			if got := price(byItem["A1"].PP1); got != tt.wantA1PP1 {
				t.Fatalf("A1 PP1 = %s want %s", got, tt.wantA1PP1)
			}
			// Two B2 rows share an effective date; the later insert wins.
			if got := price(byItem["B2"].PP1); got != "6.00" {
				t.Fatalf("B2 PP1 = %s want 6.00", got)
			}
			if byItem["A1"].Description != "Hand Sprayer, 1 Gallon" {
				t.Fatalf("A1 description = %q", byItem["A1"].Description)
			}
			if byItem["B2"].Description != "nozzle" {
				t.Fatalf("B2 description = %q", byItem["B2"].Description)
			}
		})
	}
}

func TestBaselineComparesDatesAcrossZones(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "app.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	ctx := context.Background()

	if err := db.InsertSection(ctx, Section{ComboID: "WS1-SEC1-SS1-ACC0", DisplayLabel: "A > B > C", Item: "Z1", Description: "zone"}); err != nil {
		t.Fatal(err)
	}
	// 2026-01-14 22:00 UTC.
	at := time.Date(2026, 1, 15, 12, 0, 0, 0, time.FixedZone("UTC+14", 14*3600))
	entries := []PriceEntry{
		{Item: "Z1", EffectDate: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), Values: pricing.TierValues{PP1: pricing.Price("1.00")}},
		// Later than at, even though its wall clock reads earlier.
		{Item: "Z1", EffectDate: time.Date(2026, 1, 15, 5, 0, 0, 0, time.UTC), Values: pricing.TierValues{PP1: pricing.Price("2.00")}},
	}
	for _, e := range entries {
		if err := db.InsertPrice(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		excludeFuture bool
		want          string
	}{
		{true, "1.00"},
		{false, "2.00"},
	}
	for _, tt := range tests {
		rows, err := db.ListBaselineRows(ctx, tt.excludeFuture, at)
		if err != nil {
			t.Fatal(err)
		}
		if len(rows) != 1 {
			t.Fatalf("rows = %d want 1", len(rows))
		}
		if got := price(rows[0].PP1); got != tt.want {
			t.Fatalf("exclude=%v: PP1 = %s want %s", tt.excludeFuture, got, tt.want)
		}
	}
}

func TestGetMissingReturnsNil(t *testing.T) {
	db := openFixtureDB(t)
	ctx := context.Background()

	tpl, err := db.GetTemplate(ctx, 99)
	if err != nil || tpl != nil {
		t.Fatalf("GetTemplate(99) = %v, %v", tpl, err)
	}
	draft, err := db.GetDraftHeader(ctx, 99)
	if err != nil || draft != nil {
		t.Fatalf("GetDraftHeader(99) = %v, %v", draft, err)
	}
	ver, err := db.GetVersion(ctx, 99)
	if err != nil || ver != nil {
		t.Fatalf("GetVersion(99) = %v, %v", ver, err)
	}
}

func TestGetTemplateMapping(t *testing.T) {
	db := openFixtureDB(t)
	tpl, err := db.GetTemplate(context.Background(), 2)
	if err != nil || tpl == nil {
		t.Fatalf("GetTemplate(2) = %v, %v", tpl, err)
	}
	m, err := tpl.Mapping()
	if err != nil {
		t.Fatal(err)
	}
	if m.FourK != "BM1" || m.TwelveK != "BM2" || !m.IncludeFOB {
		t.Fatalf("unexpected mapping %s", m)
	}
}

func TestUpsertTemplateRejectsBadTier(t *testing.T) {
	db := openFixtureDB(t)
	err := db.UpsertTemplate(context.Background(), Template{TemplateID: 5, TemplateName: "bad", FourKSource: "PP2", TwelveKSource: "PP2"})
	if err == nil {
		t.Fatal("expected mapping error")
	}
}

func TestListDraftPreviewRows(t *testing.T) {
	db := openFixtureDB(t)
	rows, err := db.ListDraftPreviewRows(context.Background(), 7, now)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d want 2", len(rows))
	}
	var a1 DraftPreviewRow
	for _, r := range rows {
		if r.Item == "A1" {
			a1 = r
		}
	}
	if got := price(a1.Override().PP1); got != "12.00" {
		t.Fatalf("override PP1 = %s", got)
	}
	if got := price(a1.Current().PP1); got != "10.00" {
		t.Fatalf("current PP1 = %s", got)
	}
	if got := price(a1.Latest().PP1); got != "11.00" {
		t.Fatalf("latest PP1 = %s", got)
	}
	if a1.Override().List.Valid {
		t.Fatalf("list override should be null")
	}
	if a1.ComboID.String != "WS1-SEC1-SS1-ACC0" {
		t.Fatalf("combo = %q", a1.ComboID.String)
	}
}

func TestListVersionRows(t *testing.T) {
	db := openFixtureDB(t)
	ctx := context.Background()

	v, err := db.GetVersion(ctx, 3)
	if err != nil || v == nil {
		t.Fatalf("GetVersion(3) = %v, %v", v, err)
	}
	if v.TemplateID != 2 {
		t.Fatalf("template = %d", v.TemplateID)
	}
	rows, err := db.ListVersionRows(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d want 2", len(rows))
	}
	if rows[0].Item != "A1" || price(rows[0].Price4K) != "11.00" || price(rows[0].FOBPrice) != "1.25" {
		t.Fatalf("unexpected first row %+v", rows[0])
	}
	if rows[1].AltPrice4K.Valid {
		t.Fatalf("W1 alt 4K should be null")
	}
}

func TestListItemSpecs(t *testing.T) {
	db := openFixtureDB(t)
	specs, err := db.ListItemSpecs(context.Background(), []string{"w1", " W1 ", "A1", ""})
	if err != nil {
		t.Fatal(err)
	}
	if len(specs) != 1 {
		t.Fatalf("specs = %d want 1", len(specs))
	}
	s := specs[0]
	if s.DefaultUPC != "012345678905" || s.ItemDesc != "WIDGET (6PK)" {
		t.Fatalf("unexpected spec %+v", s)
	}
	if !s.MasterPackQty.Valid || s.MasterPackQty.Int64 != 12 || s.PalletQty.Int64 != 480 {
		t.Fatalf("unexpected packaging %+v", s)
	}
	if len(s.Gtins) != 2 || s.Gtins[0].Slot != 0 || s.Gtins[1].Desc.String != "12PK" {
		t.Fatalf("unexpected gtins %+v", s.Gtins)
	}

	none, err := db.ListItemSpecs(context.Background(), nil)
	if err != nil || none != nil {
		t.Fatalf("empty lookup = %v, %v", none, err)
	}
}

func TestUpsertItemSpecSlotRange(t *testing.T) {
	db := openFixtureDB(t)
	err := db.UpsertItemSpec(context.Background(), ItemSpecEntry{Item: "A1", Gtins: []GtinSlot{{Slot: 9, Code: "1"}}})
	if err == nil {
		t.Fatal("expected slot range error")
	}
}

func TestInsertRun(t *testing.T) {
	db := openFixtureDB(t)
	ctx := context.Background()
	run := Run{
		RunID:        "run-1",
		SourceKey:    "sql",
		TemplatePath: "standard.xlsx",
		FileName:     "standard-sql-20260115.xlsx",
		Timings:      map[string]float64{"fetch": 0.01},
		Counts:       map[string]int{"rows": 4},
	}
	for i := 0; i < 2; i++ {
		if err := db.InsertRun(ctx, run); err != nil {
			t.Fatal(err)
		}
	}
	n, err := db.RunCount(ctx, "sql")
	if err != nil || n != 2 {
		t.Fatalf("RunCount = %d, %v", n, err)
	}
}
