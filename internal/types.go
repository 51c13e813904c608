package internal

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultComboID is what rows without a section mapping are bucketed under.
const DefaultComboID = "WS1-SEC1-SS1-ACC0"

// PriceRow is one resolved price book line. Rows are built fresh for every
// generation request and are never mutated in place.
type PriceRow struct {
	ComboID    string
	WS         int
	Section    int
	Subsection int
	Accessory  int

	DisplayLabel string
	Item         string
	Description  string

	ListPrice       decimal.NullDecimal
	FourKPrice      decimal.NullDecimal
	TwelveKPrice    decimal.NullDecimal
	AltFourKPrice   decimal.NullDecimal
	AltTwelveKPrice decimal.NullDecimal
	FOBPrice        decimal.NullDecimal

	UPC           string
	QtyPerUnit    int
	MasterPackQty *int
	PalletQty     *int
}

// IsAccessory reports whether the row belongs to the accessories block of
// its subsection.
func (r PriceRow) IsAccessory() bool {
	return r.Accessory > 0
}

// WithPackaging returns a copy of r carrying the packaging enrichment.
func (r PriceRow) WithPackaging(upc string, qty int, masterPack, pallet *int) PriceRow {
	out := r
	out.UPC = upc
	out.QtyPerUnit = qty
	out.MasterPackQty = masterPack
	out.PalletQty = pallet
	return out
}

// DisplayPath is the parsed form of a ">"-delimited display label.
type DisplayPath struct {
	Sheet       string
	Section     string
	Subsection  string
	Accessories string
}

// SplitDisplay splits a display label into its trimmed, non-empty segments.
// Missing segments come back empty.
func SplitDisplay(label string) DisplayPath {
	var parts []string
	for _, p := range strings.Split(label, ">") {
		p = strings.TrimSpace(p)
		if p != "" {
			parts = append(parts, p)
		}
	}
	at := func(i int) string {
		if i < len(parts) {
			return parts[i]
		}
		return ""
	}
	return DisplayPath{Sheet: at(0), Section: at(1), Subsection: at(2), Accessories: at(3)}
}

// Request describes one price book generation.
type Request struct {
	TemplatePath        string
	SourceKey           string
	ExcludeFuturePrices bool
	OutputFileName      string
}
