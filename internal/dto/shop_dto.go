package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateShopRequest struct {
	Name       string `json:"name"`
	TaxID      string `json:"tax_id"`
	Address    string `json:"address"`
	City       string `json:"city"`
	Province   string `json:"province"`
	PostalCode string `json:"postal_code"`
	Currency   string `json:"currency"`
}

type UpdateShopRequest struct {
	Name       *string `json:"name"`
	TaxID      *string `json:"tax_id"`
	Address    *string `json:"address"`
	City       *string `json:"city"`
	Province   *string `json:"province"`
	PostalCode *string `json:"postal_code"`
	Currency   *string `json:"currency"`
}

type ShopResponse struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	TaxID      string    `json:"tax_id,omitempty"`
	Address    string    `json:"address,omitempty"`
	City       string    `json:"city,omitempty"`
	Province   string    `json:"province,omitempty"`
	PostalCode string    `json:"postal_code,omitempty"`
	Currency   string    `json:"currency"`
	OwnerID    uuid.UUID `json:"owner_id"`
	Role       string    `json:"role,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type MemberResponse struct {
	UserID   uuid.UUID `json:"user_id"`
	Email    string    `json:"email"`
	Name     string    `json:"name"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

type UpdateMemberRoleRequest struct {
	Role string `json:"role"`
}
