package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sellerdesk/sellerdesk-backend/internal/dto"
	"github.com/sellerdesk/sellerdesk-backend/internal/models"
	"github.com/sellerdesk/sellerdesk-backend/internal/tenant"
)

var (
	ErrInviteExists       = errors.New("a pending invitation for this email already exists")
	ErrAlreadyMember      = errors.New("user is already a member of this shop")
	ErrInvitationInvalid  = errors.New("invitation is invalid, expired or already used")
	ErrInvitationMismatch = errors.New("invitation was issued for a different email")
)

const invitationExpiry = 7 * 24 * time.Hour

type InvitationService struct {
	db *gorm.DB
}

func NewInvitationService(db *gorm.DB) *InvitationService {
	return &InvitationService{db: db}
}

// Create issues an invitation token for an email. At most one pending
// invitation per (shop, email), and none for someone already in the shop.
func (s *InvitationService) Create(shopID, inviterID uuid.UUID, req *dto.CreateInvitationRequest) (*models.Invitation, error) {
	email := normalizeEmail(req.Email)
	if email == "" {
		return nil, errors.New("email is required")
	}
	if !models.ValidMemberRole(req.Role) {
		return nil, ErrInvalidRole
	}

	var memberCount int64
	err := s.db.Model(&models.ShopUser{}).
		Joins("JOIN users ON users.id = shop_users.user_id").
		Where("shop_users.shop_id = ? AND users.email = ?", shopID, email).
		Count(&memberCount).Error
	if err != nil {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	if memberCount > 0 {
		return nil, ErrAlreadyMember
	}

	var pendingCount int64
	err = s.db.Model(&models.Invitation{}).
		Scopes(tenant.ForShop(shopID)).
		Where("email = ? AND accepted_at IS NULL AND expires_at > ?", email, time.Now()).
		Count(&pendingCount).Error
	if err != nil {
		return nil, fmt.Errorf("failed to check pending invitations: %w", err)
	}
	if pendingCount > 0 {
		return nil, ErrInviteExists
	}

	token, err := randomHexToken()
	if err != nil {
		return nil, err
	}

	invitation := models.Invitation{
		ID:          uuid.New(),
		ShopID:      shopID,
		Email:       email,
		Role:        req.Role,
		Token:       token,
		ExpiresAt:   time.Now().Add(invitationExpiry),
		InvitedByID: inviterID,
	}
	if err := s.db.Create(&invitation).Error; err != nil {
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}
	return &invitation, nil
}

func (s *InvitationService) ListPending(shopID uuid.UUID) ([]models.Invitation, error) {
	var invitations []models.Invitation
	err := s.db.Scopes(tenant.ForShop(shopID)).
		Where("accepted_at IS NULL AND expires_at > ?", time.Now()).
		Order("created_at DESC").
		Find(&invitations).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	return invitations, nil
}

// Revoke deletes a pending invitation. Accepted ones stay for the record.
func (s *InvitationService) Revoke(shopID, invitationID uuid.UUID) error {
	var invitation models.Invitation
	err := s.db.Scopes(tenant.ForShop(shopID)).
		Where("id = ? AND accepted_at IS NULL", invitationID).
		First(&invitation).Error
	if err != nil {
		return ErrInvitationInvalid
	}
	return s.db.Delete(&invitation).Error
}

// Accept consumes an invitation token for the authenticated user. The token
// must match the caller's email and still be pending.
func (s *InvitationService) Accept(userID uuid.UUID, userEmail, token string) (*models.ShopUser, error) {
	var invitation models.Invitation
	if err := s.db.Where("token = ?", token).First(&invitation).Error; err != nil {
		return nil, ErrInvitationInvalid
	}
	if !invitation.Pending(time.Now()) {
		return nil, ErrInvitationInvalid
	}
	if invitation.Email != normalizeEmail(userEmail) {
		return nil, ErrInvitationMismatch
	}

	member := models.ShopUser{
		ID:     uuid.New(),
		ShopID: invitation.ShopID,
		UserID: userID,
		Role:   invitation.Role,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.ShopUser{}).
			Where("shop_id = ? AND user_id = ?", invitation.ShopID, userID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrAlreadyMember
		}
		if err := tx.Create(&member).Error; err != nil {
			return fmt.Errorf("failed to create membership: %w", err)
		}
		return tx.Model(&invitation).Update("accepted_at", time.Now()).Error
	})
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// InvitationResponse maps an invitation row to its API shape. The token is
// included only for the inviter, never on listings.
func InvitationResponse(inv *models.Invitation, includeToken bool) dto.InvitationResponse {
	resp := dto.InvitationResponse{
		ID:        inv.ID,
		ShopID:    inv.ShopID,
		Email:     inv.Email,
		Role:      inv.Role,
		ExpiresAt: inv.ExpiresAt,
		Accepted:  inv.AcceptedAt != nil,
		CreatedAt: inv.CreatedAt,
	}
	if includeToken {
		resp.Token = inv.Token
	}
	return resp
}
