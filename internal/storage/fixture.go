package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"pricebook/internal/pricing"
)

// Fixture is the YAML shape accepted by LoadFixture. Prices are strings so
// values like "12.50" survive without float rounding.
type Fixture struct {
	Items []struct {
		Item                string `yaml:"item"`
		Description         string `yaml:"description"`
		FriendlyDescription string `yaml:"friendly_description"`
		DefaultUPC          string `yaml:"default_upc"`
	} `yaml:"items"`

	Sections []struct {
		ComboID      string `yaml:"combo_id"`
		DisplayLabel string `yaml:"display_label"`
		Item         string `yaml:"item"`
		Description  string `yaml:"description"`
	} `yaml:"sections"`

	Prices []struct {
		Item       string `yaml:"item"`
		EffectDate string `yaml:"effect_date"`
		Tiers      fixtureTiers `yaml:",inline"`
	} `yaml:"prices"`

	Templates []struct {
		TemplateID    int64  `yaml:"template_id"`
		Name          string `yaml:"name"`
		ExcelFileName string `yaml:"excel_file_name"`
		FourKSource   string `yaml:"four_k_source"`
		TwelveKSource string `yaml:"twelve_k_source"`
		IncludeFOB    bool   `yaml:"include_fob"`
	} `yaml:"templates"`

	Drafts []struct {
		DraftID             int64  `yaml:"draft_id"`
		Mode                string `yaml:"mode"`
		UseLatestInclFuture bool   `yaml:"use_latest_incl_future"`
		CreatedBy           string `yaml:"created_by"`
		Lines               []struct {
			Item       string       `yaml:"item"`
			ItemDesc   string       `yaml:"item_desc"`
			FamilyCode string       `yaml:"family_code"`
			Tiers      fixtureTiers `yaml:",inline"`
		} `yaml:"lines"`
	} `yaml:"drafts"`

	Versions []struct {
		VersionID  int64  `yaml:"version_id"`
		DraftID    int64  `yaml:"draft_id"`
		TemplateID int64  `yaml:"template_id"`
		Label      string `yaml:"label"`
		CreatedBy  string `yaml:"created_by"`
		Lines      []struct {
			Item        string `yaml:"item"`
			ItemDesc    string `yaml:"item_desc"`
			FamilyCode  string `yaml:"family_code"`
			ListPrice   string `yaml:"list_price"`
			Price4K     string `yaml:"price_4k"`
			Price12K    string `yaml:"price_12k"`
			AltPrice4K  string `yaml:"alt_price_4k"`
			AltPrice12K string `yaml:"alt_price_12k"`
			FOBPrice    string `yaml:"fob_price"`
		} `yaml:"lines"`
	} `yaml:"versions"`

	Specs []struct {
		Item          string `yaml:"item"`
		MasterPackQty *int   `yaml:"master_pack_qty"`
		PalletQty     *int   `yaml:"pallet_qty"`
		Gtins         []struct {
			Slot int    `yaml:"slot"`
			Gtin string `yaml:"gtin"`
			Desc string `yaml:"desc"`
		} `yaml:"gtins"`
	} `yaml:"specs"`
}

type fixtureTiers struct {
	List string `yaml:"list"`
	PP1  string `yaml:"pp1"`
	PP2  string `yaml:"pp2"`
	BM1  string `yaml:"bm1"`
	BM2  string `yaml:"bm2"`
	FOB  string `yaml:"fob"`
}

func (t fixtureTiers) values() (pricing.TierValues, error) {
	var out pricing.TierValues
	var err error
	fields := []struct {
		raw string
		dst *decimal.NullDecimal
	}{
		{t.List, &out.List}, {t.PP1, &out.PP1}, {t.PP2, &out.PP2},
		{t.BM1, &out.BM1}, {t.BM2, &out.BM2}, {t.FOB, &out.FOB},
	}
	for _, f := range fields {
		if *f.dst, err = parsePrice(f.raw); err != nil {
			return pricing.TierValues{}, err
		}
	}
	return out, nil
}

func parsePrice(raw string) (decimal.NullDecimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("invalid price %q: %w", raw, err)
	}
	return decimal.NewNullDecimal(d), nil
}

// ParseDate accepts a bare date or the full stored layout.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{DateLayout, "2006-01-02", time.RFC3339} {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", raw)
}

func ReadFixture(path string) (Fixture, error) {
	var fx Fixture
	raw, err := os.ReadFile(path)
	if err != nil {
		return fx, err
	}
	if err := yaml.Unmarshal(raw, &fx); err != nil {
		return fx, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return fx, nil
}

// FixtureCounts reports how many records of each kind were written.
type FixtureCounts struct {
	Items, Sections, Prices, Templates, Drafts, Versions, Specs int
}

// LoadFixture writes every record of fx in one transaction.
func (d *DB) LoadFixture(ctx context.Context, fx Fixture) (FixtureCounts, error) {
	var counts FixtureCounts
	err := d.inTx(ctx, func(w writer) error {
		for _, it := range fx.Items {
			if err := w.upsertItem(ctx, Item{it.Item, it.Description, it.FriendlyDescription, it.DefaultUPC}); err != nil {
				return fmt.Errorf("item %s: %w", it.Item, err)
			}
			counts.Items++
		}
		for _, s := range fx.Sections {
			if err := w.insertSection(ctx, Section{s.ComboID, s.DisplayLabel, s.Item, s.Description}); err != nil {
				return fmt.Errorf("section %s: %w", s.Item, err)
			}
			counts.Sections++
		}
		for _, p := range fx.Prices {
			date, err := ParseDate(p.EffectDate)
			if err != nil {
				return fmt.Errorf("price %s: %w", p.Item, err)
			}
			values, err := p.Tiers.values()
			if err != nil {
				return fmt.Errorf("price %s: %w", p.Item, err)
			}
			if err := w.insertPrice(ctx, PriceEntry{Item: p.Item, EffectDate: date, Values: values}); err != nil {
				return fmt.Errorf("price %s: %w", p.Item, err)
			}
			counts.Prices++
		}
		for _, t := range fx.Templates {
			four, twelve := t.FourKSource, t.TwelveKSource
			if four == "" {
				four = string(pricing.TierPP1)
			}
			if twelve == "" {
				twelve = string(pricing.TierPP2)
			}
			if err := w.upsertTemplate(ctx, Template{
				TemplateID:    t.TemplateID,
				TemplateName:  t.Name,
				ExcelFileName: t.ExcelFileName,
				FourKSource:   four,
				TwelveKSource: twelve,
				IncludeFOB:    t.IncludeFOB,
			}); err != nil {
				return err
			}
			counts.Templates++
		}
		for _, dr := range fx.Drafts {
			lines := make([]DraftLine, 0, len(dr.Lines))
			for _, l := range dr.Lines {
				override, err := l.Tiers.values()
				if err != nil {
					return fmt.Errorf("draft %d line %s: %w", dr.DraftID, l.Item, err)
				}
				lines = append(lines, DraftLine{Item: l.Item, ItemDesc: l.ItemDesc, FamilyCode: l.FamilyCode, Override: override})
			}
			h := DraftHeader{DraftID: dr.DraftID, Mode: dr.Mode, UseLatestInclFuture: dr.UseLatestInclFuture, CreatedBy: dr.CreatedBy}
			if err := w.createDraft(ctx, h, lines); err != nil {
				return err
			}
			counts.Drafts++
		}
		for _, v := range fx.Versions {
			lines := make([]VersionLine, 0, len(v.Lines))
			for _, l := range v.Lines {
				var p pricing.Canonical
				for _, f := range []struct {
					raw string
					dst *decimal.NullDecimal
				}{
					{l.ListPrice, &p.List}, {l.Price4K, &p.FourK}, {l.Price12K, &p.TwelveK},
					{l.AltPrice4K, &p.AltFourK}, {l.AltPrice12K, &p.AltTwelveK}, {l.FOBPrice, &p.FOB},
				} {
					val, err := parsePrice(f.raw)
					if err != nil {
						return fmt.Errorf("version %d line %s: %w", v.VersionID, l.Item, err)
					}
					*f.dst = val
				}
				lines = append(lines, VersionLine{Item: l.Item, ItemDesc: l.ItemDesc, FamilyCode: l.FamilyCode, Prices: p})
			}
			header := Version{
				VersionID:  v.VersionID,
				DraftID:    sql.NullInt64{Int64: v.DraftID, Valid: v.DraftID != 0},
				TemplateID: v.TemplateID,
				Label:      v.Label,
				CreatedBy:  v.CreatedBy,
			}
			if err := w.createVersion(ctx, header, lines); err != nil {
				return err
			}
			counts.Versions++
		}
		for _, s := range fx.Specs {
			entry := ItemSpecEntry{Item: s.Item, MasterPackQty: s.MasterPackQty, PalletQty: s.PalletQty}
			for _, g := range s.Gtins {
				entry.Gtins = append(entry.Gtins, GtinSlot{Slot: g.Slot, Code: g.Gtin, Desc: g.Desc})
			}
			if err := w.upsertItemSpec(ctx, entry); err != nil {
				return err
			}
			counts.Specs++
		}
		return nil
	})
	return counts, err
}
