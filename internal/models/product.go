package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Marketplace platforms a catalog item or order can originate from.
const (
	PlatformShopee = "SHOPEE"
	PlatformLazada = "LAZADA"
	PlatformTiktok = "TIKTOK"
)

func ValidPlatform(p string) bool {
	switch p {
	case PlatformShopee, PlatformLazada, PlatformTiktok:
		return true
	}
	return false
}

// Product is a shop-scoped catalog item. ShopeeProductID is nil until the
// item is linked to its marketplace listing; when set it is unique per shop.
type Product struct {
	ID              uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ShopID          uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:idx_products_shop_external" json:"shop_id"`
	Platform        string          `gorm:"size:20;not null;index" json:"platform"`
	Name            string          `gorm:"not null;size:255" json:"name"`
	SKU             string          `gorm:"size:100" json:"sku,omitempty"`
	ShopeeProductID *int64          `gorm:"uniqueIndex:idx_products_shop_external" json:"shopee_product_id,omitempty"`
	Stock           int             `gorm:"not null;default:0" json:"stock"`
	Price           decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Currency        string          `gorm:"size:3;default:'THB'" json:"currency"`
	Status          string          `gorm:"size:20;default:'ACTIVE'" json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	DeletedAt       gorm.DeletedAt  `gorm:"index" json:"-"`

	Shop Shop `gorm:"foreignKey:ShopID" json:"-"`
}
