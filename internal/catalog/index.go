// Package catalog holds item packaging specs and derives the per-row UPC
// and pack quantity from them.
package catalog

import (
	"context"
	"strings"

	"pricebook/internal"
	"pricebook/internal/storage"
	"pricebook/internal/util"
)

type Gtin struct {
	Code string
	Desc string
	norm string
}

type Spec struct {
	Item          string
	DefaultUPC    string
	ItemDesc      string
	MasterPackQty *int
	PalletQty     *int
	Gtins         []Gtin
}

// Index keys specs by upper-cased item code.
type Index struct {
	ByItem map[string]Spec
}

func BuildIndex(specs []storage.ItemSpec) *Index {
	idx := &Index{ByItem: map[string]Spec{}}

	for _, s := range specs {
		spec := Spec{
			Item:       strings.TrimSpace(s.Item),
			DefaultUPC: strings.TrimSpace(s.DefaultUPC),
			ItemDesc:   strings.TrimSpace(s.ItemDesc),
		}
		if s.MasterPackQty.Valid {
			n := int(s.MasterPackQty.Int64)
			spec.MasterPackQty = &n
		}
		if s.PalletQty.Valid {
			n := int(s.PalletQty.Int64)
			spec.PalletQty = &n
		}
		for _, g := range s.Gtins {
			spec.Gtins = append(spec.Gtins, Gtin{
				Code: strings.TrimSpace(g.Code.String),
				Desc: g.Desc.String,
				norm: util.NormalizeToken(g.Desc.String),
			})
		}
		idx.ByItem[itemKey(s.Item)] = spec
	}

	return idx
}

func (idx *Index) Lookup(item string) (Spec, bool) {
	s, ok := idx.ByItem[itemKey(item)]
	return s, ok
}

// Packaging derives the UPC and per-unit quantity for a row described by
// rowDesc. The item master description wins over rowDesc when present. A
// packaging token matching a GTIN slot's description selects that slot's
// GTIN (first slot wins); otherwise the default UPC is used.
func (s Spec) Packaging(rowDesc string) (upc string, qty int) {
	desc := s.ItemDesc
	if desc == "" {
		desc = rowDesc
	}
	pack := util.ParsePack(desc)
	upc = s.DefaultUPC
	if !pack.HasToken() {
		return upc, pack.Qty
	}
	token := util.NormalizeToken(pack.Token)
	for _, g := range s.Gtins {
		if g.Code != "" && g.norm == token {
			return g.Code, pack.Qty
		}
	}
	return upc, pack.Qty
}

// Enrich returns copies of rows with packaging filled in. Rows without a
// spec keep quantity 1 and an empty UPC.
func (idx *Index) Enrich(rows []internal.PriceRow) []internal.PriceRow {
	out := make([]internal.PriceRow, len(rows))
	for i, row := range rows {
		spec, ok := idx.Lookup(row.Item)
		if !ok {
			out[i] = row.WithPackaging("", 1, nil, nil)
			continue
		}
		upc, qty := spec.Packaging(row.Description)
		out[i] = row.WithPackaging(upc, qty, spec.MasterPackQty, spec.PalletQty)
	}
	return out
}

type SpecStore interface {
	ListItemSpecs(ctx context.Context, items []string) ([]storage.ItemSpec, error)
}

// Enrich loads specs for every item in rows with one batch query and
// applies them.
func Enrich(ctx context.Context, store SpecStore, rows []internal.PriceRow) ([]internal.PriceRow, error) {
	items := make([]string, 0, len(rows))
	for _, r := range rows {
		items = append(items, r.Item)
	}
	specs, err := store.ListItemSpecs(ctx, items)
	if err != nil {
		return nil, err
	}
	return BuildIndex(specs).Enrich(rows), nil
}

func itemKey(item string) string {
	return strings.ToUpper(strings.TrimSpace(item))
}
