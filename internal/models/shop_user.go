package models

import (
	"time"

	"github.com/google/uuid"
)

// Shop membership roles.
const (
	RoleOwner      = "OWNER"
	RoleAdmin      = "ADMIN"
	RoleAccountant = "ACCOUNTANT"
	RolePacker     = "PACKER"
)

// ValidMemberRole reports whether role can be granted to a member. OWNER is
// excluded: it exists only for the shop creator.
func ValidMemberRole(role string) bool {
	switch role {
	case RoleAdmin, RoleAccountant, RolePacker:
		return true
	}
	return false
}

// ShopUser binds a User to a Shop with a role. One membership per (user, shop).
type ShopUser struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ShopID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_shop_users_shop_user" json:"shop_id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_shop_users_shop_user;index" json:"user_id"`
	Role      string    `gorm:"size:20;not null" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Shop Shop `gorm:"foreignKey:ShopID" json:"-"`
	User User `gorm:"foreignKey:UserID" json:"-"`
}
