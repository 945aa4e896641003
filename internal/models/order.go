package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Order is a shop-scoped order record ingested from a marketplace. Status is
// free text: each platform has its own vocabulary and we store what it sends.
type Order struct {
	ID              uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ShopID          uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:idx_orders_shop_external" json:"shop_id"`
	ShopeeOrderID   string          `gorm:"size:64;not null;uniqueIndex:idx_orders_shop_external" json:"shopee_order_id"`
	Platform        string          `gorm:"size:20;not null;index" json:"platform"`
	Total           decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"`
	Currency        string          `gorm:"size:3;default:'THB'" json:"currency"`
	Status          string          `gorm:"size:50;index" json:"status"`
	CustomerName    string          `gorm:"size:255" json:"customer_name,omitempty"`
	CustomerPhone   string          `gorm:"size:32" json:"customer_phone,omitempty"`
	CustomerAddress string          `gorm:"size:500" json:"customer_address,omitempty"`
	Items           datatypes.JSON  `gorm:"type:jsonb;default:'[]'" json:"items"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`

	Shop Shop `gorm:"foreignKey:ShopID" json:"-"`
}
