package models

import (
	"time"

	"github.com/google/uuid"
)

// Invitation is a pending membership offer for an email address. AcceptedAt
// stays nil until the invitee redeems the token.
type Invitation struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ShopID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"shop_id"`
	Email       string     `gorm:"size:255;not null;index" json:"email"`
	Role        string     `gorm:"size:20;not null" json:"role"`
	Token       string     `gorm:"uniqueIndex;not null;size:64" json:"-"`
	ExpiresAt   time.Time  `gorm:"not null" json:"expires_at"`
	AcceptedAt  *time.Time `json:"accepted_at,omitempty"`
	InvitedByID uuid.UUID  `gorm:"type:uuid;not null" json:"invited_by_id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Shop      Shop `gorm:"foreignKey:ShopID" json:"-"`
	InvitedBy User `gorm:"foreignKey:InvitedByID" json:"-"`
}

func (i *Invitation) Expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

func (i *Invitation) Pending(now time.Time) bool {
	return i.AcceptedAt == nil && !i.Expired(now)
}
