// Package source turns stored price data into resolved price book rows.
// Each adapter reads one kind of source: the live baseline, a draft
// previewed against live prices, or a frozen version.
package source

import (
	"context"
	"database/sql"
	"log"
	"strings"
	"time"

	"pricebook/internal"
	"pricebook/internal/pricing"
	"pricebook/internal/storage"
	"pricebook/internal/util"
)

// RowSource produces the rows for one price book.
type RowSource interface {
	Key() string
	FetchRows(ctx context.Context, excludeFuturePrices bool) ([]internal.PriceRow, error)
}

// Store is the read side of storage.DB the adapters need.
type Store interface {
	ListBaselineRows(ctx context.Context, excludeFuture bool, now time.Time) ([]storage.SectionPriceRow, error)
	GetTemplate(ctx context.Context, id int64) (*storage.Template, error)
	GetDraftHeader(ctx context.Context, id int64) (*storage.DraftHeader, error)
	ListDraftPreviewRows(ctx context.Context, draftID int64, now time.Time) ([]storage.DraftPreviewRow, error)
	GetVersion(ctx context.Context, id int64) (*storage.Version, error)
	ListVersionRows(ctx context.Context, versionID int64) ([]storage.VersionRow, error)
	ListItemSpecs(ctx context.Context, items []string) ([]storage.ItemSpec, error)
}

// Clock returns the current time. Tests pin it.
type Clock func() time.Time

// newRow builds a PriceRow from a section mapping and resolved prices. A
// missing or malformed combo id falls back to the default key and is logged.
func newRow(logger *log.Logger, combo sql.NullString, label sql.NullString, item, desc string, prices pricing.Canonical) internal.PriceRow {
	comboID := strings.TrimSpace(combo.String)
	if comboID == "" {
		comboID = internal.DefaultComboID
	}
	key, ok := util.ParseComboKeyStrict(comboID)
	if !ok {
		logger.Printf("WARN: item %s: combo id %q not recognized, using %s", item, comboID, key)
	}
	return internal.PriceRow{
		ComboID:         comboID,
		WS:              key.WS,
		Section:         key.Section,
		Subsection:      key.Subsection,
		Accessory:       key.Accessory,
		DisplayLabel:    strings.TrimSpace(label.String),
		Item:            strings.TrimSpace(item),
		Description:     strings.TrimSpace(desc),
		ListPrice:       prices.List,
		FourKPrice:      prices.FourK,
		TwelveKPrice:    prices.TwelveK,
		AltFourKPrice:   prices.AltFourK,
		AltTwelveKPrice: prices.AltTwelveK,
		FOBPrice:        prices.FOB,
		QtyPerUnit:      1,
	}
}

func templateMapping(ctx context.Context, store Store, id int64) (pricing.Mapping, error) {
	tpl, err := store.GetTemplate(ctx, id)
	if err != nil {
		return pricing.Mapping{}, err
	}
	if tpl == nil {
		return pricing.Mapping{}, internal.NotFound("template", id)
	}
	return tpl.Mapping()
}

func defaultLogger(l *log.Logger) *log.Logger {
	if l != nil {
		return l
	}
	return log.Default()
}

func defaultClock(c Clock) Clock {
	if c != nil {
		return c
	}
	return time.Now
}
