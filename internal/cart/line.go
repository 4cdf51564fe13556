package cart

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const centPlaces = 2

// MaxUnits caps the unit count of a single cart line. Request bindings in
// the HTTP layer carry the same limit.
const MaxUnits = 999

// Key identifies a cart line: one row per product and pack size.
type Key struct {
	ProductID  string
	BundleSize int
}

// LineKey builds the identity key for a product/pack-size pair.
func LineKey(productID string, bundleSize int) Key {
	return Key{ProductID: productID, BundleSize: bundleSize}
}

// String renders the key as "<productId>-<bundleSize>". The size is always the
// last dash-separated segment, so the encoding stays injective for product IDs
// that contain dashes themselves.
func (k Key) String() string {
	return fmt.Sprintf("%s-%d", k.ProductID, k.BundleSize)
}

// ParseKey is the inverse of Key.String.
func ParseKey(s string) (Key, error) {
	idx := strings.LastIndex(s, "-")
	if idx <= 0 || idx == len(s)-1 {
		return Key{}, fmt.Errorf("malformed line key %q", s)
	}
	size, err := strconv.Atoi(s[idx+1:])
	if err != nil || size < 1 {
		return Key{}, fmt.Errorf("malformed line key %q", s)
	}
	return Key{ProductID: s[:idx], BundleSize: size}, nil
}

// Line is one purchasable configuration of a product within the cart.
type Line struct {
	ProductID   string           `json:"productId"`
	Name        string           `json:"name,omitempty"`
	ImageURL    string           `json:"imageUrl,omitempty"`
	UnitPrice   decimal.Decimal  `json:"unitPrice"`
	BundleSize  int              `json:"bundleSize"`
	BundleSets  int              `json:"bundleSets"`
	BundleType  BundleType       `json:"bundleType"`
	DiscountPct int              `json:"discountPct"`
	BundleTotal *decimal.Decimal `json:"bundleTotal,omitempty"` // nil: not computed
	Tiers       *Tiers           `json:"tiers,omitempty"`
}

func (l Line) Key() Key {
	return LineKey(l.ProductID, l.BundleSize)
}

// TotalUnits is bundleSize × bundleSets.
func (l Line) TotalUnits() int {
	return l.BundleSize * l.BundleSets
}

// SetTotal is the price of one set, falling back to unitPrice × bundleSize
// for lines that were stored without a computed bundle total. An explicit
// zero total is kept.
func (l Line) SetTotal() decimal.Decimal {
	if l.BundleTotal == nil {
		return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.BundleSize)))
	}
	return *l.BundleTotal
}

// LineTotal is the set total × bundleSets, rounded to cents.
func (l Line) LineTotal() decimal.Decimal {
	return l.SetTotal().Mul(decimal.NewFromInt(int64(l.BundleSets))).Round(centPlaces)
}

// Label describes the line for order summaries, e.g. "3 unidades (-20%)".
func (l Line) Label() string {
	units := l.TotalUnits()
	noun := "unidades"
	if units == 1 {
		noun = "unidad"
	}
	if l.BundleSets > 1 && l.BundleSize > 1 {
		return fmt.Sprintf("%d x pack de %d (%d %s, -%d%%)", l.BundleSets, l.BundleSize, units, noun, l.DiscountPct)
	}
	switch {
	case l.BundleType == BundleQuantity && units >= 3:
		return fmt.Sprintf("%d %s (%d gratis)", units, noun, units/3)
	case l.DiscountPct > 0:
		return fmt.Sprintf("%d %s (-%d%%)", units, noun, l.DiscountPct)
	default:
		return fmt.Sprintf("%d %s", units, noun)
	}
}

// tiers returns the line's discount ladder, or the default ladder for lines
// stored before tiers were captured.
func (l Line) tiers() Tiers {
	if l.Tiers == nil {
		return DefaultTiers()
	}
	return *l.Tiers
}
