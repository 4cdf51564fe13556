package model

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type BundleType string

const (
	BundleDiscount BundleType = "discount" // percentage off multi-unit packs
	BundleQuantity BundleType = "quantity" // every third unit free
)

type Product struct {
	ID             uint            `gorm:"primarykey" json:"id"`
	Name           string          `gorm:"not null" json:"name"`
	Slug           string          `gorm:"uniqueIndex;not null" json:"slug"`
	Description    string          `gorm:"type:text" json:"description"`
	Price          decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	CompareAtPrice decimal.Decimal `gorm:"type:decimal(12,2)" json:"compare_at_price"` // crossed-out price shown next to Price
	BundleType     BundleType      `gorm:"type:varchar(20);not null" json:"bundle_type"`
	Tier2Pct       int             `gorm:"not null" json:"tier2_pct"`     // discount for 2 units
	Tier3PlusPct   int             `gorm:"not null" json:"tier3plus_pct"` // discount for 3+ units
	StockQuantity  int             `gorm:"default:0" json:"stock_quantity"`
	ImageURL       string          `json:"image_url"`
	Gallery        pq.StringArray  `gorm:"type:text" json:"gallery"` // array literal, e.g. {a.jpg,b.jpg}
	IsActive       bool            `gorm:"index" json:"is_active"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	DeletedAt      gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (Product) TableName() string {
	return "products"
}
