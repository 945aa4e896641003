package models

import (
	"time"

	"github.com/google/uuid"
)

// Account links a User to a federated identity provider.
type Account struct {
	ID                uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID            uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Provider          string    `gorm:"size:50;not null;uniqueIndex:idx_accounts_provider_account" json:"provider"`
	ProviderAccountID string    `gorm:"size:255;not null;uniqueIndex:idx_accounts_provider_account" json:"provider_account_id"`
	AccessToken       string    `gorm:"type:text" json:"-"`
	RefreshToken      string    `gorm:"type:text" json:"-"`
	IDToken           string    `gorm:"type:text" json:"-"`
	TokenType         string    `gorm:"size:50" json:"-"`
	Scope             string    `gorm:"size:500" json:"-"`
	ExpiresAt         *time.Time `json:"-"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
	User              User      `gorm:"foreignKey:UserID" json:"-"`
}
