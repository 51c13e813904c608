package source

import (
	"context"
	"fmt"
	"log"

	"pricebook/internal"
	"pricebook/internal/catalog"
	"pricebook/internal/pricing"
)

// Baseline reads the live price history: the newest price row per section
// item. TemplateID selects the slot mapping; zero means PP1/PP2 without FOB.
type Baseline struct {
	SourceKey  string
	TemplateID int64

	store  Store
	now    Clock
	logger *log.Logger
}

func NewBaseline(store Store, key string, templateID int64, now Clock, logger *log.Logger) *Baseline {
	return &Baseline{SourceKey: key, TemplateID: templateID, store: store, now: defaultClock(now), logger: defaultLogger(logger)}
}

func (b *Baseline) Key() string { return b.SourceKey }

func (b *Baseline) FetchRows(ctx context.Context, excludeFuturePrices bool) ([]internal.PriceRow, error) {
	mapping := pricing.DefaultMapping()
	if b.TemplateID != 0 {
		m, err := templateMapping(ctx, b.store, b.TemplateID)
		if err != nil {
			return nil, fmt.Errorf("baseline mapping: %w", err)
		}
		mapping = m
	}

	rows, err := b.store.ListBaselineRows(ctx, excludeFuturePrices, b.now())
	if err != nil {
		return nil, fmt.Errorf("baseline rows: %w", err)
	}

	out := make([]internal.PriceRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, newRow(b.logger, r.ComboID, r.DisplayLabel, r.Item, r.Description, mapping.Apply(r.TierValues)))
	}
	return out, nil
}

// DraftLive previews a draft against live prices: per tier, the draft's
// override wins, else the current or latest price depending on the draft
// header and the caller's excludeFuturePrices.
type DraftLive struct {
	DraftID    int64
	TemplateID int64

	store  Store
	now    Clock
	logger *log.Logger
}

func NewDraftLive(store Store, draftID, templateID int64, now Clock, logger *log.Logger) *DraftLive {
	return &DraftLive{DraftID: draftID, TemplateID: templateID, store: store, now: defaultClock(now), logger: defaultLogger(logger)}
}

func (d *DraftLive) Key() string {
	return fmt.Sprintf("draft-live-%d-%d", d.DraftID, d.TemplateID)
}

func (d *DraftLive) FetchRows(ctx context.Context, excludeFuturePrices bool) ([]internal.PriceRow, error) {
	header, err := d.store.GetDraftHeader(ctx, d.DraftID)
	if err != nil {
		return nil, fmt.Errorf("draft header: %w", err)
	}
	if header == nil {
		return nil, internal.NotFound("draft", d.DraftID)
	}
	mapping, err := templateMapping(ctx, d.store, d.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("draft %d mapping: %w", d.DraftID, err)
	}
	useLatest := pricing.EffectiveUseLatest(header.UseLatestInclFuture, excludeFuturePrices)

	lines, err := d.store.ListDraftPreviewRows(ctx, d.DraftID, d.now())
	if err != nil {
		return nil, fmt.Errorf("draft %d rows: %w", d.DraftID, err)
	}

	rows := make([]internal.PriceRow, 0, len(lines))
	for _, l := range lines {
		base := pricing.SelectBase(l.Current(), l.Latest(), useLatest)
		prices := mapping.Apply(pricing.Coalesce(l.Override(), base))
		rows = append(rows, newRow(d.logger, l.ComboID, l.DisplayLabel, l.Item, l.Description, prices))
	}

	rows, err = catalog.Enrich(ctx, d.store, rows)
	if err != nil {
		return nil, fmt.Errorf("draft %d enrichment: %w", d.DraftID, err)
	}
	return rows, nil
}

// Version reads a frozen version verbatim. Future-dated pricing does not
// apply to it.
type Version struct {
	VersionID int64

	store  Store
	logger *log.Logger
}

func NewVersion(store Store, versionID int64, logger *log.Logger) *Version {
	return &Version{VersionID: versionID, store: store, logger: defaultLogger(logger)}
}

func (v *Version) Key() string {
	return fmt.Sprintf("draft-%d", v.VersionID)
}

func (v *Version) FetchRows(ctx context.Context, _ bool) ([]internal.PriceRow, error) {
	header, err := v.store.GetVersion(ctx, v.VersionID)
	if err != nil {
		return nil, fmt.Errorf("version header: %w", err)
	}
	if header == nil {
		return nil, internal.NotFound("version", v.VersionID)
	}
	mapping, err := templateMapping(ctx, v.store, header.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("version %d mapping: %w", v.VersionID, err)
	}

	lines, err := v.store.ListVersionRows(ctx, v.VersionID)
	if err != nil {
		return nil, fmt.Errorf("version %d rows: %w", v.VersionID, err)
	}

	rows := make([]internal.PriceRow, 0, len(lines))
	for _, l := range lines {
		prices := pricing.Canonical{
			List:       l.ListPrice,
			FourK:      l.Price4K,
			TwelveK:    l.Price12K,
			AltFourK:   l.AltPrice4K,
			AltTwelveK: l.AltPrice12K,
		}
		if mapping.IncludeFOB {
			prices.FOB = l.FOBPrice
		}
		rows = append(rows, newRow(v.logger, l.ComboID, l.DisplayLabel, l.Item, l.Description, prices))
	}
	return rows, nil
}
