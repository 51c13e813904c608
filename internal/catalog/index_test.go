package catalog

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"pricebook/internal"
	"pricebook/internal/storage"
)

func ns(s string) sql.NullString { return sql.NullString{String: s, Valid: s != ""} }

func widgetSpec() storage.ItemSpec {
	return storage.ItemSpec{
		Item:          "W1",
		DefaultUPC:    "012345678905",
		ItemDesc:      "WIDGET (6PK)",
		MasterPackQty: sql.NullInt64{Int64: 12, Valid: true},
		PalletQty:     sql.NullInt64{Int64: 480, Valid: true},
		Gtins: []storage.Gtin{
			{Item: "W1", Slot: 0, Code: ns("00012345678905"), Desc: ns("EACH")},
			{Item: "W1", Slot: 1, Code: ns("10012345678902"), Desc: ns("12 pk")},
		},
	}
}

// The packaging lookup is a heuristic over free-text descriptions; these
// cases pin down what it does and does not recognize.
func TestSpecPackaging(t *testing.T) {
	cases := []struct {
		name     string
		itemDesc string
		rowDesc  string
		gtins    []storage.Gtin
		wantUPC  string
		wantQty  int
	}{
		{
			name:     "six pack without matching gtin uses default upc",
			itemDesc: "WIDGET (6PK)",
			wantUPC:  "012345678905",
			wantQty:  6,
		},
		{
			name:     "token matches gtin description ignoring space and case",
			itemDesc: "WIDGET (12PK)",
			wantUPC:  "10012345678902",
			wantQty:  12,
		},
		{
			name:    "row description used when item master is blank",
			rowDesc: "Widget (12PK)",
			wantUPC: "10012345678902",
			wantQty: 12,
		},
		{
			name:     "matching slot with blank gtin is skipped",
			itemDesc: "WIDGET (24PK)",
			gtins: []storage.Gtin{
				{Slot: 0, Desc: ns("24PK")},
				{Slot: 3, Code: ns("20012345678909"), Desc: ns("24PK")},
			},
			wantUPC: "20012345678909",
			wantQty: 24,
		},
		{
			name:     "no token",
			itemDesc: "WIDGET",
			wantUPC:  "012345678905",
			wantQty:  1,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			spec := widgetSpec()
			spec.ItemDesc = tc.itemDesc
			if tc.gtins != nil {
				spec.Gtins = tc.gtins
			}
			s, ok := BuildIndex([]storage.ItemSpec{spec}).Lookup("w1")
			if !ok {
				t.Fatal("spec not found")
			}
			upc, qty := s.Packaging(tc.rowDesc)
			if upc != tc.wantUPC || qty != tc.wantQty {
				t.Fatalf("got upc=%q qty=%d want upc=%q qty=%d", upc, qty, tc.wantUPC, tc.wantQty)
			}
		})
	}
}

func TestIndexEnrich(t *testing.T) {
	rows := []internal.PriceRow{
		{Item: "W1", Description: "widget six pack"},
		{Item: "A1", Description: "SPRAYER (4PK)"},
	}
	out := BuildIndex([]storage.ItemSpec{widgetSpec()}).Enrich(rows)

	if out[0].QtyPerUnit != 6 || out[0].UPC != "012345678905" {
		t.Fatalf("W1 = %+v", out[0])
	}
	if out[0].MasterPackQty == nil || *out[0].MasterPackQty != 12 || *out[0].PalletQty != 480 {
		t.Fatalf("W1 packaging = %+v", out[0])
	}
	// No spec: defaults, and the description token is not consulted.
	if out[1].QtyPerUnit != 1 || out[1].UPC != "" || out[1].MasterPackQty != nil {
		t.Fatalf("A1 = %+v", out[1])
	}
	if rows[0].QtyPerUnit != 0 {
		t.Fatal("input rows must not be modified")
	}
}

type fakeSpecStore struct {
	specs []storage.ItemSpec
	err   error
	asked []string
}

func (f *fakeSpecStore) ListItemSpecs(_ context.Context, items []string) ([]storage.ItemSpec, error) {
	f.asked = items
	return f.specs, f.err
}

func TestEnrichBatchLookup(t *testing.T) {
	store := &fakeSpecStore{specs: []storage.ItemSpec{widgetSpec()}}
	rows := []internal.PriceRow{{Item: "W1"}, {Item: "A1"}}
	out, err := Enrich(context.Background(), store, rows)
	if err != nil {
		t.Fatal(err)
	}
	if len(store.asked) != 2 {
		t.Fatalf("asked for %v", store.asked)
	}
	if out[0].QtyPerUnit != 6 {
		t.Fatalf("W1 qty = %d", out[0].QtyPerUnit)
	}

	boom := errors.New("boom")
	if _, err := Enrich(context.Background(), &fakeSpecStore{err: boom}, rows); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}
