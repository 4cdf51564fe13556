package model

import "time"

// Customer is upserted by phone number every time an order is placed.
type Customer struct {
	ID          uint       `gorm:"primarykey" json:"id"`
	Name        string     `gorm:"not null" json:"name"`
	IDNumber    string     `gorm:"type:varchar(32)" json:"id_number"`
	Phone       string     `gorm:"type:varchar(32);uniqueIndex;not null" json:"phone"`
	Email       string     `json:"email,omitempty"`
	State       string     `json:"state"`
	City        string     `json:"city"`
	Address     string     `gorm:"type:text" json:"address"`
	OrderCount  int        `gorm:"default:0" json:"order_count"`
	LastOrderAt *time.Time `json:"last_order_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (Customer) TableName() string {
	return "customers"
}
