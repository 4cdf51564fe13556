package service

import (
	"errors"
	"strconv"
	"strings"
	"unicode"

	"github.com/kiplystart/kiplystart-backend/internal/app/model"
	"github.com/kiplystart/kiplystart-backend/internal/app/repository"
	"github.com/kiplystart/kiplystart-backend/internal/cart"
	"github.com/kiplystart/kiplystart-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrProductInactive = errors.New("product is not available")
	ErrSlugExists      = errors.New("slug already exists")
	ErrInvalidProduct  = errors.New("invalid product data")
)

const (
	defaultProductPageSize = 24
	maxProductPageSize     = 100
)

// offerSizes are the bundle options shown on every product page.
var offerSizes = []int{1, 2, 3}

// ProductInput carries the editable fields of a product. Nil pointers keep
// the current value on update and fall back to defaults on create.
type ProductInput struct {
	Name           string           `json:"name"`
	Slug           string           `json:"slug"`
	Description    string           `json:"description"`
	Price          decimal.Decimal  `json:"price"`
	CompareAtPrice *decimal.Decimal `json:"compare_at_price"`
	BundleType     model.BundleType `json:"bundle_type"`
	Tier2Pct       *int             `json:"tier2_pct"`
	Tier3PlusPct   *int             `json:"tier3plus_pct"`
	StockQuantity  *int             `json:"stock_quantity"`
	ImageURL       string           `json:"image_url"`
	Gallery        []string         `json:"gallery"`
	IsActive       *bool            `json:"is_active"`
}

// BundleOffer is one entry of the product page bundle selector.
type BundleOffer struct {
	Units       int             `json:"units"`
	DiscountPct int             `json:"discount_pct"`
	Total       decimal.Decimal `json:"total"`
	Savings     decimal.Decimal `json:"savings"`
	Label       string          `json:"label"`
}

type ProductView struct {
	model.Product
	Offers []BundleOffer `json:"offers"`
}

type ProductListOptions struct {
	Search        string
	IncludeHidden bool
	Page          int
	PageSize      int
}

type ProductService interface {
	ListProducts(opts ProductListOptions) ([]ProductView, int64, error)
	GetProductBySlug(slug string) (*ProductView, error)
	GetProductByID(id uint) (*ProductView, error)
	CreateProduct(input ProductInput) (*model.Product, error)
	UpdateProduct(id uint, input ProductInput) (*model.Product, error)
	DeleteProduct(id uint) error
	CartProduct(productID string) (cart.Product, cart.BundleType, error)
}

type productService struct {
	productRepo  repository.ProductRepository
	defaultTiers cart.Tiers
}

func NewProductService(productRepo repository.ProductRepository, defaultTiers cart.Tiers) ProductService {
	return &productService{
		productRepo:  productRepo,
		defaultTiers: defaultTiers,
	}
}

func (s *productService) ListProducts(opts ProductListOptions) ([]ProductView, int64, error) {
	limit, offset := paginate(opts.Page, opts.PageSize, defaultProductPageSize, maxProductPageSize)

	products, total, err := s.productRepo.FindWithFilter(repository.ProductFilter{
		Search:     opts.Search,
		ActiveOnly: !opts.IncludeHidden,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		logger.Error("Failed to list products", err, map[string]interface{}{
			"search": opts.Search,
			"page":   opts.Page,
		})
		return nil, 0, err
	}

	views := make([]ProductView, 0, len(products))
	for _, p := range products {
		views = append(views, s.view(p))
	}
	return views, total, nil
}

// GetProductBySlug serves the storefront product page; hidden products are
// reported as inactive.
func (s *productService) GetProductBySlug(slug string) (*ProductView, error) {
	product, err := s.productRepo.FindBySlug(slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Product not found by slug", map[string]interface{}{
				"slug": slug,
			})
			return nil, ErrProductNotFound
		}
		logger.Error("Failed to fetch product by slug", err, map[string]interface{}{
			"slug": slug,
		})
		return nil, err
	}
	if !product.IsActive {
		return nil, ErrProductInactive
	}

	v := s.view(*product)
	return &v, nil
}

func (s *productService) GetProductByID(id uint) (*ProductView, error) {
	product, err := s.findByID(id)
	if err != nil {
		return nil, err
	}
	v := s.view(*product)
	return &v, nil
}

func (s *productService) CreateProduct(input ProductInput) (*model.Product, error) {
	logger.Info("Creating product", map[string]interface{}{
		"name": input.Name,
	})

	product := &model.Product{
		BundleType:   model.BundleDiscount,
		Tier2Pct:     s.defaultTiers.Tier2Pct,
		Tier3PlusPct: s.defaultTiers.Tier3PlusPct,
		IsActive:     true,
	}
	applyProductInput(product, input)
	if product.Slug == "" {
		product.Slug = Slugify(product.Name)
	}
	if err := validateProduct(product); err != nil {
		return nil, err
	}

	if err := s.productRepo.Create(product); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			logger.Warn("Product slug already exists", map[string]interface{}{
				"slug": product.Slug,
			})
			return nil, ErrSlugExists
		}
		return nil, err
	}

	logger.Info("Product created successfully", map[string]interface{}{
		"product_id": product.ID,
		"slug":       product.Slug,
	})
	return product, nil
}

func (s *productService) UpdateProduct(id uint, input ProductInput) (*model.Product, error) {
	product, err := s.findByID(id)
	if err != nil {
		return nil, err
	}

	applyProductInput(product, input)
	if err := validateProduct(product); err != nil {
		return nil, err
	}

	if err := s.productRepo.Update(product); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrSlugExists
		}
		return nil, err
	}

	logger.Info("Product updated successfully", map[string]interface{}{
		"product_id": product.ID,
	})
	return product, nil
}

func (s *productService) DeleteProduct(id uint) error {
	if err := s.productRepo.Delete(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProductNotFound
		}
		return err
	}

	logger.Info("Product deleted successfully", map[string]interface{}{
		"product_id": id,
	})
	return nil
}

// CartProduct resolves the catalog data and pricing mode the cart needs for
// a storefront product ID. Only active products can be added to a cart.
func (s *productService) CartProduct(productID string) (cart.Product, cart.BundleType, error) {
	id, err := strconv.ParseUint(productID, 10, 64)
	if err != nil {
		return cart.Product{}, "", ErrProductNotFound
	}
	product, err := s.findByID(uint(id))
	if err != nil {
		return cart.Product{}, "", err
	}
	if !product.IsActive {
		return cart.Product{}, "", ErrProductInactive
	}

	tiers := productTiers(product)
	return cart.Product{
		ID:       strconv.FormatUint(uint64(product.ID), 10),
		Name:     product.Name,
		ImageURL: product.ImageURL,
		Price:    product.Price,
		Tiers:    &tiers,
	}, cart.BundleType(product.BundleType), nil
}

func (s *productService) findByID(id uint) (*model.Product, error) {
	product, err := s.productRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Product not found", map[string]interface{}{
				"product_id": id,
			})
			return nil, ErrProductNotFound
		}
		logger.Error("Failed to fetch product", err, map[string]interface{}{
			"product_id": id,
		})
		return nil, err
	}
	return product, nil
}

func (s *productService) view(p model.Product) ProductView {
	return ProductView{Product: p, Offers: BundleOffers(p)}
}

// BundleOffers prices one set of 1, 2 and 3 units of p with the same rules
// the cart applies when the shopper adds that bundle.
func BundleOffers(p model.Product) []BundleOffer {
	bundleType := cart.BundleType(p.BundleType)
	if !bundleType.Valid() {
		bundleType = cart.BundleDiscount
	}
	tiers := productTiers(&p)

	offers := make([]BundleOffer, 0, len(offerSizes))
	for _, n := range offerSizes {
		q := cart.QuoteBundle(p.Price, n, bundleType, tiers)
		line := cart.Line{BundleSize: n, BundleSets: 1, BundleType: bundleType, DiscountPct: q.DiscountPct}
		offers = append(offers, BundleOffer{
			Units:       n,
			DiscountPct: q.DiscountPct,
			Total:       q.BundleTotal,
			Savings:     p.Price.Mul(decimal.NewFromInt(int64(n))).Sub(q.BundleTotal),
			Label:       line.Label(),
		})
	}
	return offers
}

func productTiers(p *model.Product) cart.Tiers {
	return cart.Tiers{Tier2Pct: p.Tier2Pct, Tier3PlusPct: p.Tier3PlusPct}
}

func applyProductInput(p *model.Product, in ProductInput) {
	if name := strings.TrimSpace(in.Name); name != "" {
		p.Name = name
	}
	if slug := strings.TrimSpace(in.Slug); slug != "" {
		p.Slug = Slugify(slug)
	}
	if in.Description != "" {
		p.Description = in.Description
	}
	if !in.Price.IsZero() {
		p.Price = in.Price
	}
	if in.CompareAtPrice != nil {
		p.CompareAtPrice = *in.CompareAtPrice
	}
	if in.BundleType != "" {
		p.BundleType = in.BundleType
	}
	if in.Tier2Pct != nil {
		p.Tier2Pct = *in.Tier2Pct
	}
	if in.Tier3PlusPct != nil {
		p.Tier3PlusPct = *in.Tier3PlusPct
	}
	if in.StockQuantity != nil {
		p.StockQuantity = *in.StockQuantity
	}
	if in.ImageURL != "" {
		p.ImageURL = in.ImageURL
	}
	if in.Gallery != nil {
		p.Gallery = in.Gallery
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
}

func validateProduct(p *model.Product) error {
	switch {
	case p.Name == "", p.Slug == "":
		return ErrInvalidProduct
	case p.Price.Sign() <= 0:
		return ErrInvalidProduct
	case !cart.BundleType(p.BundleType).Valid():
		return ErrInvalidProduct
	case p.Tier2Pct < 0 || p.Tier2Pct > 100 || p.Tier3PlusPct < 0 || p.Tier3PlusPct > 100:
		return ErrInvalidProduct
	case p.StockQuantity < 0:
		return ErrInvalidProduct
	}
	return nil
}

// Slugify turns a product name into a URL slug: "Sérum Facial 30ml" becomes
// "serum-facial-30ml".
func Slugify(s string) string {
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(stripMarks, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
