// Package pricing resolves the six canonical price book values from stored
// price tiers, draft overrides, and a per-template slot mapping.
package pricing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type Tier string

const (
	TierList Tier = "LIST"
	TierPP1  Tier = "PP1"
	TierPP2  Tier = "PP2"
	TierBM1  Tier = "BM1"
	TierBM2  Tier = "BM2"
	TierFOB  Tier = "FOB"
)

func ParseTier(s string) (Tier, error) {
	switch t := Tier(strings.ToUpper(strings.TrimSpace(s))); t {
	case TierList, TierPP1, TierPP2, TierBM1, TierBM2, TierFOB:
		return t, nil
	default:
		return "", fmt.Errorf("unknown price tier %q", s)
	}
}

// TierValues holds one optional value per stored tier.
type TierValues struct {
	List decimal.NullDecimal `db:"list_price"`
	PP1  decimal.NullDecimal `db:"pp1_price"`
	PP2  decimal.NullDecimal `db:"pp2_price"`
	BM1  decimal.NullDecimal `db:"bm1_price"`
	BM2  decimal.NullDecimal `db:"bm2_price"`
	FOB  decimal.NullDecimal `db:"fob_price"`
}

func (v TierValues) Get(t Tier) decimal.NullDecimal {
	switch t {
	case TierList:
		return v.List
	case TierPP1:
		return v.PP1
	case TierPP2:
		return v.PP2
	case TierBM1:
		return v.BM1
	case TierBM2:
		return v.BM2
	case TierFOB:
		return v.FOB
	}
	return decimal.NullDecimal{}
}

// Mapping says which stored tier feeds each logical slot for one template.
type Mapping struct {
	FourK      Tier
	TwelveK    Tier
	IncludeFOB bool
}

func DefaultMapping() Mapping {
	return Mapping{FourK: TierPP1, TwelveK: TierPP2}
}

// ParseMapping validates the stored slot sources: the "4K" slot takes PP1 or
// BM1 and the "12.5K" slot takes PP2 or BM2.
func ParseMapping(fourK, twelveK string, includeFOB bool) (Mapping, error) {
	fk, err := ParseTier(fourK)
	if err != nil {
		return Mapping{}, err
	}
	if fk != TierPP1 && fk != TierBM1 {
		return Mapping{}, fmt.Errorf("4K slot must be PP1 or BM1, got %s", fk)
	}
	tk, err := ParseTier(twelveK)
	if err != nil {
		return Mapping{}, err
	}
	if tk != TierPP2 && tk != TierBM2 {
		return Mapping{}, fmt.Errorf("12.5K slot must be PP2 or BM2, got %s", tk)
	}
	return Mapping{FourK: fk, TwelveK: tk, IncludeFOB: includeFOB}, nil
}

func (m Mapping) String() string {
	return fmt.Sprintf("4K=%s 12.5K=%s FOB=%t", m.FourK, m.TwelveK, m.IncludeFOB)
}

// altFourK is the 4K-eligible tier the mapping did not pick.
func (m Mapping) altFourK() Tier {
	if m.FourK == TierBM1 {
		return TierPP1
	}
	return TierBM1
}

func (m Mapping) altTwelveK() Tier {
	if m.TwelveK == TierBM2 {
		return TierPP2
	}
	return TierBM2
}

// Canonical is the six-slot price set written to a price book row.
type Canonical struct {
	List       decimal.NullDecimal
	FourK      decimal.NullDecimal
	TwelveK    decimal.NullDecimal
	AltFourK   decimal.NullDecimal
	AltTwelveK decimal.NullDecimal
	FOB        decimal.NullDecimal
}

// Apply projects stored tiers onto the logical slots. FOB is null unless
// the mapping includes it, whatever the stored data says.
func (m Mapping) Apply(v TierValues) Canonical {
	out := Canonical{
		List:       v.List,
		FourK:      v.Get(m.FourK),
		TwelveK:    v.Get(m.TwelveK),
		AltFourK:   v.Get(m.altFourK()),
		AltTwelveK: v.Get(m.altTwelveK()),
	}
	if m.IncludeFOB {
		out.FOB = v.FOB
	}
	return out
}

// EffectiveUseLatest folds the caller's excludeFuturePrices flag into the
// draft's own setting; excluding future prices always wins.
func EffectiveUseLatest(useLatestInclFuture, excludeFuturePrices bool) bool {
	return useLatestInclFuture && !excludeFuturePrices
}

// SelectBase picks the latest-including-future view or the current view.
func SelectBase(current, latest TierValues, useLatest bool) TierValues {
	if useLatest {
		return latest
	}
	return current
}

// Coalesce takes the override per tier and falls back to base where the
// override is null. Tiers are independent of each other.
func Coalesce(override, base TierValues) TierValues {
	pick := func(o, b decimal.NullDecimal) decimal.NullDecimal {
		if o.Valid {
			return o
		}
		return b
	}
	return TierValues{
		List: pick(override.List, base.List),
		PP1:  pick(override.PP1, base.PP1),
		PP2:  pick(override.PP2, base.PP2),
		BM1:  pick(override.BM1, base.BM1),
		BM2:  pick(override.BM2, base.BM2),
		FOB:  pick(override.FOB, base.FOB),
	}
}

// Price is a small constructor for a valid NullDecimal.
func Price(s string) decimal.NullDecimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}
