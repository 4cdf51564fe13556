package cart

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Product is the catalog data the cart needs to add a line.
type Product struct {
	ID       string
	Name     string
	ImageURL string
	Price    decimal.Decimal
	// Tiers overrides the cart's default discount ladder for this product.
	Tiers *Tiers
}

// BundleInfo is the bundle the shopper picked on the product page. Zero
// values fall back to defaults:
//   - BundleSize: the requested unit count
//   - BundleType: BundleDiscount
//   - DiscountPct: derived from the pricing rules for BundleSize units
//   - BundleTotal: derived from the pricing rules for BundleSize units
type BundleInfo struct {
	BundleSize  int
	BundleType  BundleType
	DiscountPct *int
	BundleTotal *decimal.Decimal
}

// Cart owns an ordered list of lines plus the "panel open" flag. It is not
// safe for concurrent use; Manager serialises access per session.
type Cart struct {
	lines        []Line
	open         bool
	defaultTiers Tiers
}

// New returns an empty cart using tiers for products that carry no ladder of their own.
func New(tiers Tiers) *Cart {
	return &Cart{defaultTiers: tiers}
}

// Lines returns a copy of the cart lines in insertion order.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) IsOpen() bool { return c.open }

// Find returns the line stored under key.
func (c *Cart) Find(key Key) (Line, bool) {
	if i := c.indexOf(key); i >= 0 {
		return c.lines[i], true
	}
	return Line{}, false
}

// AddItem adds one set of the chosen bundle. Adding a bundle whose
// (product, size) already exists increments that line's set count instead of
// creating a second row. Invalid prices are not rejected; they simply produce
// zero-priced lines. An add that would push the line past MaxUnits is ignored.
func (c *Cart) AddItem(p Product, requestedUnits int, info BundleInfo) {
	if requestedUnits < 1 {
		requestedUnits = 1
	}
	size := info.BundleSize
	if size < 1 {
		size = requestedUnits
	}
	if requestedUnits > MaxUnits || size > MaxUnits {
		return
	}
	key := LineKey(p.ID, size)
	existing := c.indexOf(key)
	if existing >= 0 && c.lines[existing].TotalUnits()+size > MaxUnits {
		return
	}
	bundleType := info.BundleType
	if !bundleType.Valid() {
		bundleType = BundleDiscount
	}
	tiers := c.defaultTiers
	if p.Tiers != nil {
		tiers = *p.Tiers
	}

	quote := QuoteBundle(p.Price, size, bundleType, tiers)
	if info.DiscountPct != nil {
		quote.DiscountPct = *info.DiscountPct
	}
	if info.BundleTotal != nil {
		quote.BundleTotal = *info.BundleTotal
	}

	c.open = true

	if existing >= 0 {
		c.lines[existing].BundleSets++
		return
	}

	t := tiers
	bundleTotal := quote.BundleTotal
	c.lines = append(c.lines, Line{
		ProductID:   p.ID,
		Name:        p.Name,
		ImageURL:    p.ImageURL,
		UnitPrice:   p.Price,
		BundleSize:  size,
		BundleSets:  1,
		BundleType:  bundleType,
		DiscountPct: quote.DiscountPct,
		BundleTotal: &bundleTotal,
		Tiers:       &t,
	})
}

// QuoteBundle prices one set of size units. Quantity-mode quotes are per
// unit, so a set is that unit price times the pack size.
func QuoteBundle(unitPrice decimal.Decimal, size int, bundleType BundleType, tiers Tiers) Quote {
	q := Price(unitPrice, size, bundleType, tiers)
	if bundleType == BundleQuantity {
		q.BundleTotal = q.BundleTotal.Mul(decimal.NewFromInt(int64(size)))
	}
	return q
}

// quotePerUnit prices n units for a line normalised to bundleSize 1, where
// one set is one unit. Discount-mode totals are spread evenly over the units
// so that the line total equals the discounted price of all n units.
func quotePerUnit(unitPrice decimal.Decimal, n int, bundleType BundleType, tiers Tiers) Quote {
	q := Price(unitPrice, n, bundleType, tiers)
	if bundleType != BundleQuantity {
		q.BundleTotal = q.BundleTotal.Div(decimal.NewFromInt(int64(n)))
	}
	return q
}

// RemoveItem deletes the line under key. Unknown keys are ignored.
func (c *Cart) RemoveItem(key Key) {
	if i := c.indexOf(key); i >= 0 {
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
	}
}

// UpdateUnits sets the total unit count of the line under key, re-prices it
// and normalises it to a single-unit bundle (bundleSize 1, bundleSets n).
// If the product already has a separate single-unit line, the two are merged
// into that line. Counts below 1 or above MaxUnits (merged count included)
// and unknown keys are ignored; removal is only done through RemoveItem.
func (c *Cart) UpdateUnits(key Key, newTotalUnits int) {
	if newTotalUnits < 1 || newTotalUnits > MaxUnits {
		return
	}
	src := c.indexOf(key)
	if src < 0 {
		return
	}
	line := c.lines[src]
	dst := c.indexOf(LineKey(line.ProductID, 1))

	if dst >= 0 && dst != src {
		target := &c.lines[dst]
		merged := newTotalUnits + target.BundleSets
		if merged > MaxUnits {
			return
		}
		quote := quotePerUnit(line.UnitPrice, merged, line.BundleType, line.tiers())
		target.BundleSets = merged
		target.UnitPrice = line.UnitPrice
		target.BundleType = line.BundleType
		target.Tiers = line.Tiers
		target.DiscountPct = quote.DiscountPct
		target.BundleTotal = &quote.BundleTotal
		c.lines = append(c.lines[:src], c.lines[src+1:]...)
		return
	}

	quote := quotePerUnit(line.UnitPrice, newTotalUnits, line.BundleType, line.tiers())
	target := &c.lines[src]
	target.BundleSize = 1
	target.BundleSets = newTotalUnits
	target.DiscountPct = quote.DiscountPct
	target.BundleTotal = &quote.BundleTotal
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.lines = nil
}

// Total is the sum of every line total.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.LineTotal())
	}
	return total
}

// Count is the sum of every line's unit count.
func (c *Cart) Count() int {
	count := 0
	for _, l := range c.lines {
		count += l.TotalUnits()
	}
	return count
}

func (c *Cart) indexOf(key Key) int {
	for i := range c.lines {
		if c.lines[i].ProductID == key.ProductID && c.lines[i].BundleSize == key.BundleSize {
			return i
		}
	}
	return -1
}

// MarshalJSON encodes the cart in its durable form: a JSON array of lines.
func (c *Cart) MarshalJSON() ([]byte, error) {
	if c.lines == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(c.lines)
}

// Hydrate rebuilds a cart from its durable form. Empty or corrupt data yields
// an empty cart, as do entries that violate the line invariants.
func Hydrate(data []byte, tiers Tiers) *Cart {
	c := New(tiers)
	if len(data) == 0 {
		return c
	}
	var lines []Line
	if err := json.Unmarshal(data, &lines); err != nil {
		return c
	}
	for _, l := range lines {
		if l.ProductID == "" || l.BundleSize < 1 || l.BundleSets < 1 {
			continue
		}
		if l.BundleSize > MaxUnits || l.BundleSets > MaxUnits || l.TotalUnits() > MaxUnits {
			continue
		}
		if !l.BundleType.Valid() {
			l.BundleType = BundleDiscount
		}
		if c.indexOf(l.Key()) >= 0 {
			continue
		}
		c.lines = append(c.lines, l)
	}
	return c
}
