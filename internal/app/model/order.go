package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"   // placed, waiting for a phone confirmation
	OrderStatusConfirmed OrderStatus = "confirmed" // confirmed with the customer
	OrderStatusShipped   OrderStatus = "shipped"   // handed to the courier
	OrderStatusDelivered OrderStatus = "delivered" // paid on delivery
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// Order is one cart line of a checkout. All rows of the same checkout share
// OrderCode.
type Order struct {
	ID           uint            `gorm:"primarykey" json:"id"`
	OrderCode    string          `gorm:"type:varchar(32);not null;index" json:"order_code"`
	CustomerName string          `gorm:"not null" json:"customer_name"`
	IDNumber     string          `gorm:"type:varchar(32)" json:"id_number"` // cédula
	Phone        string          `gorm:"type:varchar(32);not null;index" json:"phone"`
	Email        string          `json:"email,omitempty"`
	ProductID    string          `gorm:"type:varchar(64);index" json:"product_id"`
	ProductName  string          `json:"product_name"`
	Quantity     int             `gorm:"not null" json:"quantity"` // total units of the line
	BundleLabel  string          `json:"bundle_label"`
	DiscountPct  int             `json:"discount_pct"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	LineTotal    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"line_total"`
	State        string          `json:"state"`
	City         string          `json:"city"`
	Address      string          `gorm:"type:text" json:"address"`
	Reference    string          `json:"reference,omitempty"`
	Status       OrderStatus     `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	CreatedAt    time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	DeletedAt    gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (Order) TableName() string {
	return "orders"
}
