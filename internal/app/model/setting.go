package model

import "time"

const (
	SettingWhatsAppNumber  = "whatsapp_number"
	SettingStoreName       = "store_name"
	SettingCheckoutEnabled = "checkout_enabled"
)

type Setting struct {
	Key       string    `gorm:"primaryKey;type:varchar(64)" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Setting) TableName() string {
	return "settings"
}
