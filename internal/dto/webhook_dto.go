package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ShopeePush is the envelope Shopee posts to the push callback URL.
// Code identifies the event kind; Data carries the event-specific body.
type ShopeePush struct {
	ShopID    int64           `json:"shop_id"`
	Code      int             `json:"code"`
	Timestamp int64           `json:"timestamp"`
	MsgID     string          `json:"msg_id"`
	Data      json.RawMessage `json:"data"`
}

type ShopeeOrderStatusData struct {
	OrderSN      string `json:"ordersn"`
	Status       string `json:"status"`
	UpdateTime   int64  `json:"update_time"`
	CompleteTime int64  `json:"completed_scenario,omitempty"`
}

type ShopeeItemUpdateData struct {
	ItemID     int64  `json:"item_id"`
	ItemName   string `json:"item_name"`
	ItemSKU    string `json:"item_sku"`
	Stock      int    `json:"stock"`
	Price      string `json:"price"`
	Status     string `json:"item_status"`
	UpdateTime int64  `json:"update_time"`
}

type WebhookResponse struct {
	ID          uuid.UUID  `json:"id"`
	ShopID      uuid.UUID  `json:"shop_id"`
	Platform    string     `json:"platform"`
	EventType   string     `json:"event_type"`
	Status      string     `json:"status"`
	RetryCount  int        `json:"retry_count"`
	ErrorMsg    string     `json:"error_message,omitempty"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type WebhookListResponse struct {
	Webhooks   []WebhookResponse `json:"webhooks"`
	Total      int64             `json:"total"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
	TotalPages int               `json:"total_pages"`
}
