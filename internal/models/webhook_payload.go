package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Webhook processing states. PENDING rows are claimed by the processor
// (PENDING -> PROCESSING); terminal success is COMPLETED; FAILED rows are
// requeued by the retry dispatcher until MaxWebhookRetries is reached.
const (
	WebhookPending    = "PENDING"
	WebhookProcessing = "PROCESSING"
	WebhookCompleted  = "COMPLETED"
	WebhookFailed     = "FAILED"
)

const MaxWebhookRetries = 5

// WebhookPayload is the durable record of one inbound webhook delivery.
type WebhookPayload struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ShopID       uuid.UUID      `gorm:"type:uuid;not null;index" json:"shop_id"`
	Platform     string         `gorm:"size:20;not null;index" json:"platform"`
	EventType    string         `gorm:"size:100;not null;index" json:"event_type"`
	Payload      datatypes.JSON `gorm:"type:jsonb;not null" json:"payload"`
	Signature    string         `gorm:"size:128" json:"-"`
	Status       string         `gorm:"size:20;not null;default:'PENDING';index" json:"status"`
	ErrorMessage string         `gorm:"size:1000" json:"error_message,omitempty"`
	RetryCount   int            `gorm:"default:0" json:"retry_count"`
	ProcessedAt  *time.Time     `json:"processed_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`

	Shop Shop `gorm:"foreignKey:ShopID" json:"-"`
}
