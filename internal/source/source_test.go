package source

import (
	"bytes"
	"context"
	"errors"
	"log"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"pricebook/internal"
	"pricebook/internal/config"
	"pricebook/internal/pricing"
	"pricebook/internal/storage"
)

func fixedNow() time.Time { return time.Date(2026, 1, 15, 12, 0, 0, 0, time.Local) }

func openStore(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "app.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	fx, err := storage.ReadFixture(filepath.Join("..", "..", "testdata", "pricebook.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.LoadFixture(context.Background(), fx); err != nil {
		t.Fatal(err)
	}
	return db
}

func quietLogger() *log.Logger {
	return log.New(&bytes.Buffer{}, "", 0)
}

func byItem(rows []internal.PriceRow) map[string]internal.PriceRow {
	out := map[string]internal.PriceRow{}
	for _, r := range rows {
		out[r.Item] = r
	}
	return out
}

func str(v decimal.NullDecimal) string {
	if !v.Valid {
		return "null"
	}
	return v.Decimal.StringFixed(2)
}

func TestBaselineFetchRows(t *testing.T) {
	db := openStore(t)
	ctx := context.Background()

	tests := []struct {
		name          string
		templateID    int64
		excludeFuture bool
		wantA1FourK   string
		wantA1Twelve  string
		wantW1FOB     string
	}{
		{"default mapping latest", 0, false, "11.00", "9.50", "null"},
		{"default mapping current", 0, true, "10.00", "9.00", "null"},
		{"bm tiers with fob", 2, true, "11.00", "8.00", "3.10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := NewBaseline(db, "sql", tt.templateID, fixedNow, quietLogger())
			rows, err := src.FetchRows(ctx, tt.excludeFuture)
			if err != nil {
				t.Fatal(err)
			}
			m := byItem(rows)
			if got := str(m["A1"].FourKPrice); got != tt.wantA1FourK {
				t.Fatalf("A1 4K = %s want %s", got, tt.wantA1FourK)
			}
			if got := str(m["A1"].TwelveKPrice); got != tt.wantA1Twelve {
				t.Fatalf("A1 12.5K = %s want %s", got, tt.wantA1Twelve)
			}
			if got := str(m["W1"].FOBPrice); got != tt.wantW1FOB {
				t.Fatalf("W1 FOB = %s want %s", got, tt.wantW1FOB)
			}
			if m["B2"].Accessory != 1 || m["B2"].WS != 1 {
				t.Fatalf("B2 key = %+v", m["B2"])
			}
		})
	}
}

func TestBaselineFourKFromBM1EveryRow(t *testing.T) {
	db := openStore(t)
	rows, err := NewBaseline(db, "sql", 2, fixedNow, quietLogger()).FetchRows(context.Background(), false)
	if err != nil {
		t.Fatal(err)
	}
	raw, err := db.ListBaselineRows(context.Background(), false, fixedNow())
	if err != nil {
		t.Fatal(err)
	}
	bm1 := map[string]string{}
	for _, r := range raw {
		bm1[r.Item] = str(r.BM1)
	}
	for _, r := range rows {
		if str(r.FourKPrice) != bm1[r.Item] {
			t.Fatalf("%s: 4K = %s want BM1 %s", r.Item, str(r.FourKPrice), bm1[r.Item])
		}
	}
}

func TestBaselineUnknownTemplate(t *testing.T) {
	db := openStore(t)
	_, err := NewBaseline(db, "sql", 99, fixedNow, quietLogger()).FetchRows(context.Background(), false)
	if !errors.Is(err, internal.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestDraftLiveFetchRows(t *testing.T) {
	db := openStore(t)
	ctx := context.Background()
	src := NewDraftLive(db, 7, 1, fixedNow, quietLogger())
	if src.Key() != "draft-live-7-1" {
		t.Fatalf("key = %s", src.Key())
	}

	for _, exclude := range []bool{false, true} {
		rows, err := src.FetchRows(ctx, exclude)
		if err != nil {
			t.Fatal(err)
		}
		m := byItem(rows)

		// Override wins whichever base view is selected.
		if got := str(m["A1"].FourKPrice); got != "12.00" {
			t.Fatalf("exclude=%v: A1 4K = %s want 12.00", exclude, got)
		}
		wantTwelve := "9.50"
		if exclude {
			wantTwelve = "9.00"
		}
		if got := str(m["A1"].TwelveKPrice); got != wantTwelve {
			t.Fatalf("exclude=%v: A1 12.5K = %s want %s", exclude, got, wantTwelve)
		}

		w1 := m["W1"]
		if w1.QtyPerUnit != 6 || w1.UPC != "012345678905" {
			t.Fatalf("W1 packaging = qty %d upc %q", w1.QtyPerUnit, w1.UPC)
		}
		if w1.MasterPackQty == nil || *w1.MasterPackQty != 12 {
			t.Fatalf("W1 master pack = %v", w1.MasterPackQty)
		}
		if m["A1"].QtyPerUnit != 1 || m["A1"].UPC != "" {
			t.Fatalf("A1 packaging = %+v", m["A1"])
		}
	}
}

func TestDraftLiveNotFound(t *testing.T) {
	db := openStore(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		draft   int64
		tpl     int64
		wantMsg string
	}{
		{"missing draft", 99, 1, "draft 99"},
		{"missing template", 7, 42, "template 42"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDraftLive(db, tt.draft, tt.tpl, fixedNow, quietLogger()).FetchRows(ctx, false)
			var nf *internal.NotFoundError
			if !errors.As(err, &nf) || !errors.Is(err, internal.ErrNotFound) {
				t.Fatalf("err = %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Fatalf("err %q does not mention %q", err, tt.wantMsg)
			}
		})
	}
}

func TestVersionFetchRows(t *testing.T) {
	db := openStore(t)
	src := NewVersion(db, 3, quietLogger())
	if src.Key() != "draft-3" {
		t.Fatalf("key = %s", src.Key())
	}
	rows, err := src.FetchRows(context.Background(), true)
	if err != nil {
		t.Fatal(err)
	}
	m := byItem(rows)
	a1 := m["A1"]
	if str(a1.FourKPrice) != "11.00" || str(a1.AltFourKPrice) != "10.00" || str(a1.FOBPrice) != "1.25" {
		t.Fatalf("A1 = %+v", a1)
	}
	if m["W1"].WS != 2 {
		t.Fatalf("W1 ws = %d", m["W1"].WS)
	}

	_, err = NewVersion(db, 404, quietLogger()).FetchRows(context.Background(), false)
	if !errors.Is(err, internal.ErrNotFound) || !strings.Contains(err.Error(), "404") {
		t.Fatalf("err = %v", err)
	}
}

func TestMalformedComboFallsBack(t *testing.T) {
	db := openStore(t)
	ctx := context.Background()
	if err := db.UpsertItem(ctx, storage.Item{Item: "Z9", Description: "ODD ITEM"}); err != nil {
		t.Fatal(err)
	}
	if err := db.InsertSection(ctx, storage.Section{ComboID: "SPRAYERS", Item: "Z9"}); err != nil {
		t.Fatal(err)
	}
	if err := db.InsertPrice(ctx, storage.PriceEntry{Item: "Z9", EffectDate: fixedNow().AddDate(0, -1, 0), Values: pricing.TierValues{PP1: pricing.Price("1")}}); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	rows, err := NewBaseline(db, "sql", 0, fixedNow, log.New(&buf, "", 0)).FetchRows(ctx, true)
	if err != nil {
		t.Fatal(err)
	}
	z := byItem(rows)["Z9"]
	if z.WS != 1 || z.Section != 1 || z.Subsection != 1 || z.Accessory != 0 {
		t.Fatalf("Z9 key = %d-%d-%d-%d", z.WS, z.Section, z.Subsection, z.Accessory)
	}
	if !strings.Contains(buf.String(), "WARN:") {
		t.Fatalf("expected warning, log = %q", buf.String())
	}
}

func TestRegistryLookup(t *testing.T) {
	db := openStore(t)
	entries, err := config.LoadSources(filepath.Join("..", "..", "testdata", "sources.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	reg, err := NewRegistry(db, entries, RegistryOptions{Now: fixedNow, Logger: quietLogger()})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		key     string
		wantKey string
		wantErr error
	}{
		{"sql", "sql", nil},
		{"BASELINE", "baseline", nil},
		{"draft-live-7-1", "draft-live-7-1", nil},
		{"Draft-Live-7-2", "draft-live-7-2", nil},
		{"draft-3", "draft-3", nil},
		{"Standard", "standard", nil},
		{"buying-group-draft", "draft-live-7-2", nil},
		{"buying-group-2025", "draft-3", nil},
		{"draft-live-7", "", internal.ErrUnknownSource},
		{"mystery", "", internal.ErrUnknownSource},
		{"", "", internal.ErrUnknownSource},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			src, err := reg.Lookup(tt.key)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if src.Key() != tt.wantKey {
				t.Fatalf("key = %s want %s", src.Key(), tt.wantKey)
			}
		})
	}

	if got := len(reg.Entries()); got != 3 {
		t.Fatalf("entries = %d", got)
	}
}

func TestRegistryConfiguredBaselineUsesTemplate(t *testing.T) {
	db := openStore(t)
	reg, err := NewRegistry(db, []config.SourceEntry{{Key: "bg", Kind: "baseline", TemplateID: 2}}, RegistryOptions{Now: fixedNow, Logger: quietLogger()})
	if err != nil {
		t.Fatal(err)
	}
	src, err := reg.Lookup("BG")
	if err != nil {
		t.Fatal(err)
	}
	rows, err := src.FetchRows(context.Background(), true)
	if err != nil {
		t.Fatal(err)
	}
	if got := str(byItem(rows)["A1"].FourKPrice); got != "11.00" {
		t.Fatalf("A1 4K = %s want BM1 11.00", got)
	}
}

func TestNewRegistryRejectsBadEntries(t *testing.T) {
	cases := map[string][]config.SourceEntry{
		"no key":            {{Kind: "baseline"}},
		"duplicate":         {{Key: "a", Kind: "baseline"}, {Key: "A", Kind: "baseline"}},
		"unknown kind":      {{Key: "a", Kind: "csv"}},
		"draft without ids": {{Key: "a", Kind: "draft-live", DraftID: 7}},
		"version without id": {{Key: "a", Kind: "version"}},
	}
	for name, entries := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := NewRegistry(nil, entries, RegistryOptions{}); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
