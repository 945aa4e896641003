package models

import (
	"time"

	"github.com/google/uuid"
)

// Integration health. DISCONNECTED means the refresh token is no longer
// accepted and the seller must re-authorize by hand; the refresh job skips
// those rows.
const (
	IntegrationHealthy      = "HEALTHY"
	IntegrationUnhealthy    = "UNHEALTHY"
	IntegrationDisconnected = "DISCONNECTED"
)

// Consecutive API failures before a HEALTHY integration is marked UNHEALTHY.
const IntegrationFailureThreshold = 5

// ShopeeIntegration holds the OAuth credential set and health bookkeeping
// for one shop's Shopee connection. One row per shop.
type ShopeeIntegration struct {
	ID           uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ShopID       uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex" json:"shop_id"`
	ShopeeShopID int64      `gorm:"not null;index" json:"shopee_shop_id"`
	AccessToken  string     `gorm:"type:text" json:"-"`
	RefreshToken string     `gorm:"type:text" json:"-"`
	ExpiresAt    time.Time  `gorm:"not null;index" json:"expires_at"`
	Status       string     `gorm:"size:20;not null;default:'HEALTHY';index" json:"status"`
	FailureCount int        `gorm:"default:0" json:"failure_count"`
	LastSyncAt   *time.Time `json:"last_sync_at,omitempty"`
	LastError    string     `gorm:"size:1000" json:"last_error,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	Shop Shop `gorm:"foreignKey:ShopID" json:"-"`
}
