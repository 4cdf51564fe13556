package service

import (
	"context"
	"testing"

	"github.com/kiplystart/kiplystart-backend/internal/app/repository"
	"github.com/kiplystart/kiplystart-backend/internal/cart"
	"github.com/kiplystart/kiplystart-backend/internal/metrics"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cartServiceFixture struct {
	carts    CartService
	products ProductService
	store    *cart.MemoryStore
	serum    string
	brush    string
}

func setupCartServiceTest(t *testing.T) *cartServiceFixture {
	testDB := setupServiceDB(t)
	products := NewProductService(repository.NewProductRepository(testDB), cart.DefaultTiers())

	serum, err := products.CreateProduct(ProductInput{Name: "Sérum facial", Price: decimal.NewFromInt(10)})
	require.NoError(t, err)
	brush, err := products.CreateProduct(ProductInput{Name: "Cepillo alisador", Price: decimal.NewFromInt(25)})
	require.NoError(t, err)

	store := cart.NewMemoryStore()
	return &cartServiceFixture{
		carts:    NewCartService(cart.NewManager(store, cart.DefaultTiers()), products, metrics.New()),
		products: products,
		store:    store,
		serum:    idString(serum.ID),
		brush:    idString(brush.ID),
	}
}

func TestCartService_AddItem(t *testing.T) {
	f := setupCartServiceTest(t)
	ctx := context.Background()

	view, err := f.carts.AddItem(ctx, "s1", AddItemInput{ProductID: f.serum, Units: 3})
	require.NoError(t, err)
	assert.True(t, view.Open)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, f.serum+"-3", view.Lines[0].Key)
	assert.Equal(t, 20, view.Lines[0].DiscountPct)
	assert.Equal(t, "24", view.Lines[0].LineTotal.String())
	assert.Equal(t, "3 unidades (-20%)", view.Lines[0].Label)

	view, err = f.carts.AddItem(ctx, "s1", AddItemInput{ProductID: f.serum, Units: 3})
	require.NoError(t, err)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, 2, view.Lines[0].BundleSets)
	assert.Equal(t, 6, view.Count)
	assert.Equal(t, "48", view.Total.String())

	stored, err := f.store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Contains(t, string(stored), `"bundleSets":2`)

	// The open flag belongs to the add response only.
	assert.False(t, f.carts.GetCart(ctx, "s1").Open)
}

func TestCartService_AddItem_UnknownProduct(t *testing.T) {
	f := setupCartServiceTest(t)

	_, err := f.carts.AddItem(context.Background(), "s1", AddItemInput{ProductID: "9999", Units: 1})
	assert.ErrorIs(t, err, ErrProductNotFound)

	hidden, err := f.products.CreateProduct(ProductInput{Name: "Oculto", Price: decimal.NewFromInt(5), IsActive: boolPtr(false)})
	require.NoError(t, err)
	_, err = f.carts.AddItem(context.Background(), "s1", AddItemInput{ProductID: idString(hidden.ID), Units: 1})
	assert.ErrorIs(t, err, ErrProductInactive)

	assert.Empty(t, f.carts.GetCart(context.Background(), "s1").Lines)
}

func TestCartService_UpdateUnitsMergesIntoSingleUnitLine(t *testing.T) {
	f := setupCartServiceTest(t)
	ctx := context.Background()

	_, err := f.carts.AddItem(ctx, "s1", AddItemInput{ProductID: f.serum, Units: 1})
	require.NoError(t, err)
	_, err = f.carts.AddItem(ctx, "s1", AddItemInput{ProductID: f.serum, Units: 2, BundleSize: 2})
	require.NoError(t, err)

	view, err := f.carts.UpdateUnits(ctx, "s1", f.serum+"-2", 3)
	require.NoError(t, err)
	require.Len(t, view.Lines, 1)

	line := view.Lines[0]
	assert.Equal(t, f.serum+"-1", line.Key)
	assert.Equal(t, 4, line.TotalUnits)
	assert.Equal(t, 20, line.DiscountPct)
	assert.Equal(t, "32", line.LineTotal.String())
}

func TestCartService_NoOps(t *testing.T) {
	f := setupCartServiceTest(t)
	ctx := context.Background()

	_, err := f.carts.AddItem(ctx, "s1", AddItemInput{ProductID: f.brush, Units: 1})
	require.NoError(t, err)

	tests := []struct {
		name string
		run  func() (*CartView, error)
	}{
		{"zero units", func() (*CartView, error) { return f.carts.UpdateUnits(ctx, "s1", f.brush+"-1", 0) }},
		{"unknown line", func() (*CartView, error) { return f.carts.UpdateUnits(ctx, "s1", "424242-1", 5) }},
		{"remove unknown line", func() (*CartView, error) { return f.carts.RemoveItem(ctx, "s1", "424242-1") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view, err := tt.run()
			require.NoError(t, err)
			require.Len(t, view.Lines, 1)
			assert.Equal(t, 1, view.Count)
			assert.Equal(t, "25", view.Total.String())
		})
	}
}

func TestCartService_MalformedKey(t *testing.T) {
	f := setupCartServiceTest(t)
	ctx := context.Background()

	_, err := f.carts.UpdateUnits(ctx, "s1", "sin-tamano", 2)
	assert.ErrorIs(t, err, ErrInvalidLineKey)
	_, err = f.carts.RemoveItem(ctx, "s1", "")
	assert.ErrorIs(t, err, ErrInvalidLineKey)
}

func TestCartService_RemoveAndClear(t *testing.T) {
	f := setupCartServiceTest(t)
	ctx := context.Background()

	_, err := f.carts.AddItem(ctx, "s1", AddItemInput{ProductID: f.serum, Units: 2})
	require.NoError(t, err)
	_, err = f.carts.AddItem(ctx, "s1", AddItemInput{ProductID: f.brush, Units: 1})
	require.NoError(t, err)

	view, err := f.carts.RemoveItem(ctx, "s1", f.serum+"-2")
	require.NoError(t, err)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, f.brush+"-1", view.Lines[0].Key)

	view = f.carts.Clear(ctx, "s1")
	assert.Empty(t, view.Lines)
	assert.True(t, view.Total.IsZero())
	assert.Empty(t, f.carts.GetCart(ctx, "s1").Lines)
}

func TestCartService_SessionsAreIsolated(t *testing.T) {
	f := setupCartServiceTest(t)
	ctx := context.Background()

	_, err := f.carts.AddItem(ctx, "s1", AddItemInput{ProductID: f.serum, Units: 1})
	require.NoError(t, err)

	assert.Len(t, f.carts.GetCart(ctx, "s1").Lines, 1)
	assert.Empty(t, f.carts.GetCart(ctx, "s2").Lines)
}
