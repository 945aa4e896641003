package dto

import (
	"time"

	"github.com/google/uuid"
)

type ConnectIntegrationRequest struct {
	Code         string `json:"code"`
	ShopeeShopID int64  `json:"shopee_shop_id"`
}

type IntegrationResponse struct {
	ID           uuid.UUID  `json:"id"`
	ShopID       uuid.UUID  `json:"shop_id"`
	ShopeeShopID int64      `json:"shopee_shop_id"`
	Status       string     `json:"status"`
	FailureCount int        `json:"failure_count"`
	ExpiresAt    time.Time  `json:"expires_at"`
	LastSyncAt   *time.Time `json:"last_sync_at,omitempty"`
	LastError    string     `json:"last_error,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

type SyncResultResponse struct {
	OrdersSynced   int `json:"orders_synced"`
	ProductsSynced int `json:"products_synced"`
}
