package storage

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"pricebook/internal/pricing"
)

// SectionPriceRow is one baseline row: a section mapping plus the selected
// price-history row for its item.
type SectionPriceRow struct {
	ComboID      sql.NullString `db:"combo_id"`
	DisplayLabel sql.NullString `db:"display_label"`
	Item         string         `db:"item"`
	Description  string         `db:"description"`
	pricing.TierValues
}

// ListBaselineRows returns every section item with its most recent price
// row. With excludeFuture only rows effective on or before now are eligible.
// Equal effective dates are broken by the highest price row id.
func (d *DB) ListBaselineRows(ctx context.Context, excludeFuture bool, now time.Time) ([]SectionPriceRow, error) {
	exclude := 0
	if excludeFuture {
		exclude = 1
	}
	var out []SectionPriceRow
	err := d.conn.SelectContext(ctx, &out, `
WITH ranked AS (
  SELECT p.item, p.list_price, p.pp1_price, p.pp2_price, p.bm1_price, p.bm2_price, p.fob_price,
         ROW_NUMBER() OVER (PARTITION BY TRIM(p.item) ORDER BY p.effect_date DESC, p.id DESC) AS rn
  FROM item_prices p
  WHERE (? = 0 OR p.effect_date <= ?)
)
SELECT
  s.combo_id,
  s.display_label,
  TRIM(s.item) AS item,
  COALESCE(NULLIF(TRIM(im.friendly_description), ''), s.description, '') AS description,
  lp.list_price, lp.pp1_price, lp.pp2_price, lp.bm1_price, lp.bm2_price, lp.fob_price
FROM price_book_sections s
LEFT JOIN items im ON TRIM(im.item) = TRIM(s.item)
LEFT JOIN ranked lp ON TRIM(lp.item) = TRIM(s.item) AND lp.rn = 1
ORDER BY s.combo_id, s.item
`, exclude, formatDate(now))
	return out, err
}

type Template struct {
	TemplateID    int64  `db:"template_id"`
	TemplateName  string `db:"template_name"`
	ExcelFileName string `db:"excel_file_name"`
	FourKSource   string `db:"four_k_source"`
	TwelveKSource string `db:"twelve_k_source"`
	IncludeFOB    bool   `db:"include_fob"`
}

// Mapping validates the stored slot sources.
func (t Template) Mapping() (pricing.Mapping, error) {
	return pricing.ParseMapping(t.FourKSource, t.TwelveKSource, t.IncludeFOB)
}

// GetTemplate returns nil, nil when the template does not exist.
func (d *DB) GetTemplate(ctx context.Context, id int64) (*Template, error) {
	var t Template
	err := d.conn.GetContext(ctx, &t, `
SELECT template_id, template_name, excel_file_name, four_k_source, twelve_k_source, include_fob
FROM price_book_templates WHERE template_id = ?`, id)
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (d *DB) ListTemplates(ctx context.Context) ([]Template, error) {
	var out []Template
	err := d.conn.SelectContext(ctx, &out, `
SELECT template_id, template_name, excel_file_name, four_k_source, twelve_k_source, include_fob
FROM price_book_templates ORDER BY template_id`)
	return out, err
}

type DraftHeader struct {
	DraftID             int64  `db:"draft_id"`
	Mode                string `db:"mode"`
	UseLatestInclFuture bool   `db:"use_latest_incl_future"`
	CreatedBy           string `db:"created_by"`
}

// GetDraftHeader returns nil, nil when the draft does not exist.
func (d *DB) GetDraftHeader(ctx context.Context, id int64) (*DraftHeader, error) {
	var h DraftHeader
	err := d.conn.GetContext(ctx, &h, `
SELECT draft_id, mode, use_latest_incl_future, created_by
FROM price_book_draft_headers WHERE draft_id = ?`, id)
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// DraftPreviewRow carries a draft line's overrides next to both base views
// of its item: "current" (effective on or before now) and "latest"
// (including future-dated rows).
type DraftPreviewRow struct {
	ComboID      sql.NullString `db:"combo_id"`
	DisplayLabel sql.NullString `db:"display_label"`
	Item         string         `db:"item"`
	Description  string         `db:"description"`

	NewList decimal.NullDecimal `db:"new_list_price"`
	NewPP1  decimal.NullDecimal `db:"new_pp1_price"`
	NewPP2  decimal.NullDecimal `db:"new_pp2_price"`
	NewBM1  decimal.NullDecimal `db:"new_bm1_price"`
	NewBM2  decimal.NullDecimal `db:"new_bm2_price"`
	NewFOB  decimal.NullDecimal `db:"new_fob_price"`

	CurList decimal.NullDecimal `db:"cur_list_price"`
	CurPP1  decimal.NullDecimal `db:"cur_pp1_price"`
	CurPP2  decimal.NullDecimal `db:"cur_pp2_price"`
	CurBM1  decimal.NullDecimal `db:"cur_bm1_price"`
	CurBM2  decimal.NullDecimal `db:"cur_bm2_price"`
	CurFOB  decimal.NullDecimal `db:"cur_fob_price"`

	LatList decimal.NullDecimal `db:"lat_list_price"`
	LatPP1  decimal.NullDecimal `db:"lat_pp1_price"`
	LatPP2  decimal.NullDecimal `db:"lat_pp2_price"`
	LatBM1  decimal.NullDecimal `db:"lat_bm1_price"`
	LatBM2  decimal.NullDecimal `db:"lat_bm2_price"`
	LatFOB  decimal.NullDecimal `db:"lat_fob_price"`
}

func (r DraftPreviewRow) Override() pricing.TierValues {
	return pricing.TierValues{List: r.NewList, PP1: r.NewPP1, PP2: r.NewPP2, BM1: r.NewBM1, BM2: r.NewBM2, FOB: r.NewFOB}
}

func (r DraftPreviewRow) Current() pricing.TierValues {
	return pricing.TierValues{List: r.CurList, PP1: r.CurPP1, PP2: r.CurPP2, BM1: r.CurBM1, BM2: r.CurBM2, FOB: r.CurFOB}
}

func (r DraftPreviewRow) Latest() pricing.TierValues {
	return pricing.TierValues{List: r.LatList, PP1: r.LatPP1, PP2: r.LatPP2, BM1: r.LatBM1, BM2: r.LatBM2, FOB: r.LatFOB}
}

func (d *DB) ListDraftPreviewRows(ctx context.Context, draftID int64, now time.Time) ([]DraftPreviewRow, error) {
	var out []DraftPreviewRow
	err := d.conn.SelectContext(ctx, &out, `
WITH cur AS (
  SELECT TRIM(item) AS item, list_price, pp1_price, pp2_price, bm1_price, bm2_price, fob_price,
         ROW_NUMBER() OVER (PARTITION BY TRIM(item) ORDER BY effect_date DESC, id DESC) AS rn
  FROM item_prices
  WHERE effect_date <= ?
),
lat AS (
  SELECT TRIM(item) AS item, list_price, pp1_price, pp2_price, bm1_price, bm2_price, fob_price,
         ROW_NUMBER() OVER (PARTITION BY TRIM(item) ORDER BY effect_date DESC, id DESC) AS rn
  FROM item_prices
)
SELECT
  s.combo_id,
  s.display_label,
  TRIM(l.item) AS item,
  COALESCE(NULLIF(TRIM(im.friendly_description), ''), NULLIF(TRIM(s.description), ''), l.item_desc, '') AS description,
  l.new_list_price, l.new_pp1_price, l.new_pp2_price, l.new_bm1_price, l.new_bm2_price, l.new_fob_price,
  c.list_price AS cur_list_price, c.pp1_price AS cur_pp1_price, c.pp2_price AS cur_pp2_price,
  c.bm1_price AS cur_bm1_price, c.bm2_price AS cur_bm2_price, c.fob_price AS cur_fob_price,
  t.list_price AS lat_list_price, t.pp1_price AS lat_pp1_price, t.pp2_price AS lat_pp2_price,
  t.bm1_price AS lat_bm1_price, t.bm2_price AS lat_bm2_price, t.fob_price AS lat_fob_price
FROM price_book_draft_lines l
LEFT JOIN price_book_sections s ON TRIM(s.item) = TRIM(l.item)
LEFT JOIN items im ON TRIM(im.item) = TRIM(l.item)
LEFT JOIN cur c ON c.item = TRIM(l.item) AND c.rn = 1
LEFT JOIN lat t ON t.item = TRIM(l.item) AND t.rn = 1
WHERE l.draft_id = ?
ORDER BY s.combo_id, l.item
`, formatDate(now), draftID)
	return out, err
}

type Version struct {
	VersionID  int64         `db:"version_id"`
	DraftID    sql.NullInt64 `db:"draft_id"`
	TemplateID int64         `db:"template_id"`
	Label      string        `db:"label"`
	CreatedBy  string        `db:"created_by"`
}

// GetVersion returns nil, nil when the version does not exist.
func (d *DB) GetVersion(ctx context.Context, id int64) (*Version, error) {
	var v Version
	err := d.conn.GetContext(ctx, &v, `
SELECT version_id, draft_id, template_id, label, created_by
FROM price_book_versions WHERE version_id = ?`, id)
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// VersionRow is a frozen line. Its slot values were resolved when the
// version was built and are read back verbatim.
type VersionRow struct {
	ComboID      sql.NullString      `db:"combo_id"`
	DisplayLabel sql.NullString      `db:"display_label"`
	Item         string              `db:"item"`
	Description  string              `db:"description"`
	ListPrice    decimal.NullDecimal `db:"list_price"`
	Price4K      decimal.NullDecimal `db:"price_4k"`
	Price12K     decimal.NullDecimal `db:"price_12k"`
	AltPrice4K   decimal.NullDecimal `db:"alt_price_4k"`
	AltPrice12K  decimal.NullDecimal `db:"alt_price_12k"`
	FOBPrice     decimal.NullDecimal `db:"fob_price"`
}

func (d *DB) ListVersionRows(ctx context.Context, versionID int64) ([]VersionRow, error) {
	var out []VersionRow
	err := d.conn.SelectContext(ctx, &out, `
SELECT
  s.combo_id,
  s.display_label,
  TRIM(l.item) AS item,
  COALESCE(NULLIF(TRIM(im.friendly_description), ''), l.item_desc, '') AS description,
  l.list_price, l.price_4k, l.price_12k, l.alt_price_4k, l.alt_price_12k, l.fob_price
FROM price_book_version_lines l
LEFT JOIN price_book_sections s ON TRIM(s.item) = TRIM(l.item)
LEFT JOIN items im ON TRIM(im.item) = TRIM(l.item)
WHERE l.version_id = ?
ORDER BY s.combo_id, l.item
`, versionID)
	return out, err
}

type Gtin struct {
	Item string         `db:"item"`
	Slot int            `db:"slot"`
	Code sql.NullString `db:"gtin"`
	Desc sql.NullString `db:"gtin_desc"`
}

type ItemSpec struct {
	Item          string        `db:"item"`
	DefaultUPC    string        `db:"default_upc"`
	MasterPackQty sql.NullInt64 `db:"master_pack_qty"`
	PalletQty     sql.NullInt64 `db:"pallet_qty"`
	ItemDesc      string        `db:"item_desc"`
	Gtins         []Gtin        `db:"-"`
}

// ListItemSpecs batch-loads packaging specs for the given items. Item codes
// match case-insensitively; gtins come back ordered by slot.
func (d *DB) ListItemSpecs(ctx context.Context, items []string) ([]ItemSpec, error) {
	keys := make([]string, 0, len(items))
	seen := map[string]struct{}{}
	for _, it := range items {
		k := strings.ToUpper(strings.TrimSpace(it))
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`
SELECT s.item,
       COALESCE(im.default_upc, '') AS default_upc,
       s.master_pack_qty,
       s.pallet_qty,
       COALESCE(im.description, '') AS item_desc
FROM item_specs s
LEFT JOIN items im ON UPPER(TRIM(im.item)) = UPPER(TRIM(s.item))
WHERE UPPER(TRIM(s.item)) IN (?)
ORDER BY s.item`, keys)
	if err != nil {
		return nil, err
	}
	var specs []ItemSpec
	if err := d.conn.SelectContext(ctx, &specs, d.conn.Rebind(query), args...); err != nil {
		return nil, err
	}

	query, args, err = sqlx.In(`
SELECT item, slot, gtin, gtin_desc
FROM item_gtins
WHERE UPPER(TRIM(item)) IN (?)
ORDER BY item, slot`, keys)
	if err != nil {
		return nil, err
	}
	var gtins []Gtin
	if err := d.conn.SelectContext(ctx, &gtins, d.conn.Rebind(query), args...); err != nil {
		return nil, err
	}

	bySpec := make(map[string]int, len(specs))
	for i, s := range specs {
		bySpec[strings.ToUpper(strings.TrimSpace(s.Item))] = i
	}
	for _, g := range gtins {
		if i, ok := bySpec[strings.ToUpper(strings.TrimSpace(g.Item))]; ok {
			specs[i].Gtins = append(specs[i].Gtins, g)
		}
	}
	return specs, nil
}
