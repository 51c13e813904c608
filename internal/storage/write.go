package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"pricebook/internal/pricing"
)

// The write side exists for fixtures, tests and the db:load command. Draft
// authoring and version freezing live in the pricing workflow, not here.

type Item struct {
	Item                string
	Description         string
	FriendlyDescription string
	DefaultUPC          string
}

type Section struct {
	ComboID      string
	DisplayLabel string
	Item         string
	Description  string
}

type PriceEntry struct {
	Item       string
	EffectDate time.Time
	Values     pricing.TierValues
}

type DraftLine struct {
	Item       string
	ItemDesc   string
	FamilyCode string
	Override   pricing.TierValues
}

type VersionLine struct {
	Item       string
	ItemDesc   string
	FamilyCode string
	Prices     pricing.Canonical
}

type GtinSlot struct {
	Slot int
	Code string
	Desc string
}

type ItemSpecEntry struct {
	Item          string
	MasterPackQty *int
	PalletQty     *int
	Gtins         []GtinSlot
}

type writer struct {
	ex sqlx.ExecerContext
}

func (d *DB) w() writer { return writer{ex: d.conn} }

func (d *DB) UpsertItem(ctx context.Context, it Item) error {
	return d.w().upsertItem(ctx, it)
}

func (d *DB) InsertSection(ctx context.Context, s Section) error {
	return d.w().insertSection(ctx, s)
}

func (d *DB) InsertPrice(ctx context.Context, p PriceEntry) error {
	return d.w().insertPrice(ctx, p)
}

func (d *DB) UpsertTemplate(ctx context.Context, t Template) error {
	return d.w().upsertTemplate(ctx, t)
}

func (d *DB) CreateDraft(ctx context.Context, h DraftHeader, lines []DraftLine) error {
	return d.inTx(ctx, func(w writer) error { return w.createDraft(ctx, h, lines) })
}

func (d *DB) CreateVersion(ctx context.Context, v Version, lines []VersionLine) error {
	return d.inTx(ctx, func(w writer) error { return w.createVersion(ctx, v, lines) })
}

func (d *DB) UpsertItemSpec(ctx context.Context, s ItemSpecEntry) error {
	return d.inTx(ctx, func(w writer) error { return w.upsertItemSpec(ctx, s) })
}

func (d *DB) inTx(ctx context.Context, fn func(writer) error) error {
	tx, err := d.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(writer{ex: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (w writer) upsertItem(ctx context.Context, it Item) error {
	_, err := w.ex.ExecContext(ctx, `
INSERT INTO items (item, description, friendly_description, default_upc)
VALUES (?, ?, ?, ?)
ON CONFLICT(item) DO UPDATE SET
  description = excluded.description,
  friendly_description = excluded.friendly_description,
  default_upc = excluded.default_upc`,
		strings.TrimSpace(it.Item), it.Description, nullString(it.FriendlyDescription), nullString(it.DefaultUPC))
	return err
}

func (w writer) insertSection(ctx context.Context, s Section) error {
	_, err := w.ex.ExecContext(ctx, `
INSERT INTO price_book_sections (combo_id, display_label, item, description)
VALUES (?, ?, ?, ?)`,
		nullString(s.ComboID), nullString(s.DisplayLabel), strings.TrimSpace(s.Item), nullString(s.Description))
	return err
}

func (w writer) insertPrice(ctx context.Context, p PriceEntry) error {
	v := p.Values
	_, err := w.ex.ExecContext(ctx, `
INSERT INTO item_prices (item, effect_date, list_price, pp1_price, pp2_price, bm1_price, bm2_price, fob_price)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		strings.TrimSpace(p.Item), formatDate(p.EffectDate), v.List, v.PP1, v.PP2, v.BM1, v.BM2, v.FOB)
	return err
}

func (w writer) upsertTemplate(ctx context.Context, t Template) error {
	if _, err := t.Mapping(); err != nil {
		return fmt.Errorf("template %d: %w", t.TemplateID, err)
	}
	_, err := w.ex.ExecContext(ctx, `
INSERT INTO price_book_templates (template_id, template_name, excel_file_name, four_k_source, twelve_k_source, include_fob)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(template_id) DO UPDATE SET
  template_name = excluded.template_name,
  excel_file_name = excluded.excel_file_name,
  four_k_source = excluded.four_k_source,
  twelve_k_source = excluded.twelve_k_source,
  include_fob = excluded.include_fob`,
		t.TemplateID, t.TemplateName, t.ExcelFileName,
		strings.ToUpper(strings.TrimSpace(t.FourKSource)), strings.ToUpper(strings.TrimSpace(t.TwelveKSource)), t.IncludeFOB)
	return err
}

func (w writer) createDraft(ctx context.Context, h DraftHeader, lines []DraftLine) error {
	if _, err := w.ex.ExecContext(ctx, `
INSERT INTO price_book_draft_headers (draft_id, mode, use_latest_incl_future, created_by)
VALUES (?, ?, ?, ?)`, h.DraftID, h.Mode, h.UseLatestInclFuture, h.CreatedBy); err != nil {
		return err
	}
	for _, l := range lines {
		o := l.Override
		if _, err := w.ex.ExecContext(ctx, `
INSERT INTO price_book_draft_lines (draft_id, item, item_desc, family_code,
  new_list_price, new_pp1_price, new_pp2_price, new_bm1_price, new_bm2_price, new_fob_price)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			h.DraftID, strings.TrimSpace(l.Item), nullString(l.ItemDesc), nullString(l.FamilyCode),
			o.List, o.PP1, o.PP2, o.BM1, o.BM2, o.FOB); err != nil {
			return fmt.Errorf("draft %d line %s: %w", h.DraftID, l.Item, err)
		}
	}
	return nil
}

func (w writer) createVersion(ctx context.Context, v Version, lines []VersionLine) error {
	if _, err := w.ex.ExecContext(ctx, `
INSERT INTO price_book_versions (version_id, draft_id, template_id, label, created_by)
VALUES (?, ?, ?, ?, ?)`, v.VersionID, v.DraftID, v.TemplateID, v.Label, v.CreatedBy); err != nil {
		return err
	}
	for _, l := range lines {
		p := l.Prices
		if _, err := w.ex.ExecContext(ctx, `
INSERT INTO price_book_version_lines (version_id, item, item_desc, family_code,
  list_price, price_4k, price_12k, alt_price_4k, alt_price_12k, fob_price)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			v.VersionID, strings.TrimSpace(l.Item), nullString(l.ItemDesc), nullString(l.FamilyCode),
			p.List, p.FourK, p.TwelveK, p.AltFourK, p.AltTwelveK, p.FOB); err != nil {
			return fmt.Errorf("version %d line %s: %w", v.VersionID, l.Item, err)
		}
	}
	return nil
}

func (w writer) upsertItemSpec(ctx context.Context, s ItemSpecEntry) error {
	item := strings.TrimSpace(s.Item)
	if _, err := w.ex.ExecContext(ctx, `
INSERT INTO item_specs (item, master_pack_qty, pallet_qty)
VALUES (?, ?, ?)
ON CONFLICT(item) DO UPDATE SET
  master_pack_qty = excluded.master_pack_qty,
  pallet_qty = excluded.pallet_qty`, item, s.MasterPackQty, s.PalletQty); err != nil {
		return err
	}
	if _, err := w.ex.ExecContext(ctx, `DELETE FROM item_gtins WHERE item = ?`, item); err != nil {
		return err
	}
	for _, g := range s.Gtins {
		if g.Slot < 0 || g.Slot > 8 {
			return fmt.Errorf("item %s: gtin slot %d out of range 0..8", item, g.Slot)
		}
		if _, err := w.ex.ExecContext(ctx, `
INSERT INTO item_gtins (item, slot, gtin, gtin_desc) VALUES (?, ?, ?, ?)`,
			item, g.Slot, nullString(g.Code), nullString(g.Desc)); err != nil {
			return err
		}
	}
	return nil
}

func nullString(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}
