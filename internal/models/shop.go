package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Shop is the tenancy boundary: every product, order, webhook payload and
// membership hangs off one shop.
type Shop struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name       string         `gorm:"not null;size:255" json:"name"`
	TaxID      string         `gorm:"size:32" json:"tax_id,omitempty"`
	Address    string         `gorm:"size:500" json:"address,omitempty"`
	City       string         `gorm:"size:100" json:"city,omitempty"`
	Province   string         `gorm:"size:100" json:"province,omitempty"`
	PostalCode string         `gorm:"size:16" json:"postal_code,omitempty"`
	Currency   string         `gorm:"size:3;default:'THB'" json:"currency"`
	OwnerID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"owner_id"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`

	Owner       User              `gorm:"foreignKey:OwnerID" json:"-"`
	Members     []ShopUser        `gorm:"foreignKey:ShopID" json:"-"`
	Integration *ShopeeIntegration `gorm:"foreignKey:ShopID" json:"-"`
}
