package cart

import "github.com/shopspring/decimal"

// BundleType is the pricing mode of a cart line.
type BundleType string

const (
	// BundleDiscount applies a percentage off the multi-unit price.
	BundleDiscount BundleType = "discount"
	// BundleQuantity is the "buy 2 get 1 free" promotion: every third unit is free.
	BundleQuantity BundleType = "quantity"
)

const (
	DefaultTier2Pct     = 10
	DefaultTier3PlusPct = 20
)

var hundred = decimal.NewFromInt(100)

// Valid reports whether t is a known bundle type.
func (t BundleType) Valid() bool {
	return t == BundleDiscount || t == BundleQuantity
}

// Tiers holds a product's discount rates for two units and for three or more units.
type Tiers struct {
	Tier2Pct     int `json:"tier2Pct"`
	Tier3PlusPct int `json:"tier3PlusPct"`
}

// DefaultTiers returns the storefront's standard 10% / 20% ladder.
func DefaultTiers() Tiers {
	return Tiers{Tier2Pct: DefaultTier2Pct, Tier3PlusPct: DefaultTier3PlusPct}
}

// ForUnits returns the discount percentage a discount-mode line earns at n units.
func (t Tiers) ForUnits(n int) int {
	switch {
	case n >= 3:
		return t.Tier3PlusPct
	case n == 2:
		return t.Tier2Pct
	default:
		return 0
	}
}

// Quote is the result of pricing totalUnits of a product.
type Quote struct {
	// BundleTotal is the discounted price of all units in discount mode, and the
	// rounded effective per-unit price in quantity mode.
	BundleTotal decimal.Decimal
	DiscountPct int
}

// Price computes the bundle total and effective discount for totalUnits units.
//
// Discounted amounts round up to the next whole currency unit; undiscounted
// prices are returned as is. In quantity mode the per-unit price is rounded
// before it is multiplied back by the quantity, which reproduces the
// storefront's published numbers (3 × $10 shows as $21, not $20).
func Price(unitPrice decimal.Decimal, totalUnits int, bundleType BundleType, tiers Tiers) Quote {
	if totalUnits < 1 {
		return Quote{BundleTotal: decimal.Zero}
	}
	n := decimal.NewFromInt(int64(totalUnits))

	if bundleType == BundleQuantity {
		free := totalUnits / 3
		paid := decimal.NewFromInt(int64(totalUnits - free))
		perUnit := paid.Mul(unitPrice).Div(n).Ceil()
		return Quote{BundleTotal: perUnit, DiscountPct: effectiveDiscount(perUnit, unitPrice)}
	}

	tier := tiers.ForUnits(totalUnits)
	gross := unitPrice.Mul(n)
	if tier <= 0 {
		return Quote{BundleTotal: gross, DiscountPct: 0}
	}
	net := gross.Mul(decimal.NewFromInt(int64(100 - tier))).Div(hundred).Ceil()
	return Quote{BundleTotal: net, DiscountPct: tier}
}

func effectiveDiscount(perUnit, unitPrice decimal.Decimal) int {
	if unitPrice.Sign() <= 0 {
		return 0
	}
	pct := decimal.NewFromInt(1).Sub(perUnit.Div(unitPrice)).Mul(hundred).Round(0)
	return int(pct.IntPart())
}
