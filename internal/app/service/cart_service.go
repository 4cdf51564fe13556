package service

import (
	"context"
	"errors"

	"github.com/kiplystart/kiplystart-backend/internal/cart"
	"github.com/kiplystart/kiplystart-backend/internal/metrics"
	"github.com/kiplystart/kiplystart-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

var ErrInvalidLineKey = errors.New("invalid cart line key")

// AddItemInput is what the product page sends when the shopper picks a
// bundle. Prices and discounts are always resolved server side.
type AddItemInput struct {
	ProductID  string `json:"product_id" binding:"required"`
	Units      int    `json:"units" binding:"max=999"`
	BundleSize int    `json:"bundle_size" binding:"max=999"`
}

type CartLineView struct {
	Key string `json:"key"`
	cart.Line
	TotalUnits int             `json:"totalUnits"`
	LineTotal  decimal.Decimal `json:"lineTotal"`
	Label      string          `json:"label"`
}

type CartView struct {
	Lines []CartLineView  `json:"lines"`
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
	// Open tells the storefront to slide the cart panel in. It is only set on
	// the response to an add and is never stored.
	Open bool `json:"open"`
}

type CartService interface {
	GetCart(ctx context.Context, sessionID string) *CartView
	AddItem(ctx context.Context, sessionID string, input AddItemInput) (*CartView, error)
	UpdateUnits(ctx context.Context, sessionID, key string, units int) (*CartView, error)
	RemoveItem(ctx context.Context, sessionID, key string) (*CartView, error)
	Clear(ctx context.Context, sessionID string) *CartView
	// Consume passes the session's lines to fn and drops the stored cart if
	// fn succeeds. The session is locked until fn returns.
	Consume(ctx context.Context, sessionID string, fn func(lines []cart.Line) error) error
}

type cartService struct {
	carts    *cart.Manager
	products ProductService
	metrics  *metrics.Metrics
}

func NewCartService(carts *cart.Manager, products ProductService, m *metrics.Metrics) CartService {
	return &cartService{
		carts:    carts,
		products: products,
		metrics:  m,
	}
}

func (s *cartService) GetCart(ctx context.Context, sessionID string) *CartView {
	return newCartView(s.carts.View(ctx, sessionID))
}

func (s *cartService) AddItem(ctx context.Context, sessionID string, input AddItemInput) (*CartView, error) {
	logger.Info("Adding item to cart", map[string]interface{}{
		"session_id":  sessionID,
		"product_id":  input.ProductID,
		"units":       input.Units,
		"bundle_size": input.BundleSize,
	})

	product, bundleType, err := s.products.CartProduct(input.ProductID)
	if err != nil {
		logger.Warn("Cannot add to cart", map[string]interface{}{
			"session_id": sessionID,
			"product_id": input.ProductID,
			"error":      err.Error(),
		})
		return nil, err
	}

	c := s.carts.Update(ctx, sessionID, func(c *cart.Cart) {
		c.AddItem(product, input.Units, cart.BundleInfo{
			BundleSize: input.BundleSize,
			BundleType: bundleType,
		})
	})
	s.metrics.CartOperation("add")
	return newCartView(c), nil
}

// UpdateUnits re-prices a line at units total units. Unknown keys and counts
// below one leave the cart unchanged.
func (s *cartService) UpdateUnits(ctx context.Context, sessionID, key string, units int) (*CartView, error) {
	k, err := cart.ParseKey(key)
	if err != nil {
		return nil, ErrInvalidLineKey
	}

	logger.Debug("Updating cart line units", map[string]interface{}{
		"session_id": sessionID,
		"key":        key,
		"units":      units,
	})

	c := s.carts.Update(ctx, sessionID, func(c *cart.Cart) {
		c.UpdateUnits(k, units)
	})
	s.metrics.CartOperation("update")
	return newCartView(c), nil
}

func (s *cartService) RemoveItem(ctx context.Context, sessionID, key string) (*CartView, error) {
	k, err := cart.ParseKey(key)
	if err != nil {
		return nil, ErrInvalidLineKey
	}

	c := s.carts.Update(ctx, sessionID, func(c *cart.Cart) {
		c.RemoveItem(k)
	})
	s.metrics.CartOperation("remove")
	return newCartView(c), nil
}

func (s *cartService) Clear(ctx context.Context, sessionID string) *CartView {
	c := s.carts.Update(ctx, sessionID, func(c *cart.Cart) {
		c.Clear()
	})
	s.metrics.CartOperation("clear")
	return newCartView(c)
}

func (s *cartService) Consume(ctx context.Context, sessionID string, fn func(lines []cart.Line) error) error {
	return s.carts.Consume(ctx, sessionID, fn)
}

func newCartView(c *cart.Cart) *CartView {
	lines := c.Lines()
	view := &CartView{
		Lines: make([]CartLineView, 0, len(lines)),
		Total: c.Total(),
		Count: c.Count(),
		Open:  c.IsOpen(),
	}
	for _, l := range lines {
		view.Lines = append(view.Lines, CartLineView{
			Key:        l.Key().String(),
			Line:       l,
			TotalUnits: l.TotalUnits(),
			LineTotal:  l.LineTotal(),
			Label:      l.Label(),
		})
	}
	return view
}
