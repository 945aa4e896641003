package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sellerdesk/sellerdesk-backend/internal/dto"
	"github.com/sellerdesk/sellerdesk-backend/internal/models"
	"github.com/sellerdesk/sellerdesk-backend/internal/tenant"
)

var (
	ErrShopNotFound   = errors.New("shop not found")
	ErrMemberNotFound = errors.New("member not found")
	ErrInvalidRole    = errors.New("invalid member role")
	ErrOwnerImmutable = errors.New("the shop owner's membership cannot be changed")
	ErrNotAllowed     = errors.New("insufficient role for this action")
)

type ShopService struct {
	db *gorm.DB
}

func NewShopService(db *gorm.DB) *ShopService {
	return &ShopService{db: db}
}

// Create opens a shop and seeds the creator's OWNER membership in the same
// transaction, so a shop can never exist without its owner row.
func (s *ShopService) Create(ownerID uuid.UUID, req *dto.CreateShopRequest) (*models.Shop, error) {
	if req.Name == "" {
		return nil, errors.New("shop name is required")
	}

	currency := req.Currency
	if currency == "" {
		currency = "THB"
	}

	shop := models.Shop{
		ID:         uuid.New(),
		Name:       req.Name,
		TaxID:      req.TaxID,
		Address:    req.Address,
		City:       req.City,
		Province:   req.Province,
		PostalCode: req.PostalCode,
		Currency:   currency,
		OwnerID:    ownerID,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&shop).Error; err != nil {
			return fmt.Errorf("failed to create shop: %w", err)
		}
		member := models.ShopUser{
			ID:     uuid.New(),
			ShopID: shop.ID,
			UserID: ownerID,
			Role:   models.RoleOwner,
		}
		return tx.Create(&member).Error
	})
	if err != nil {
		return nil, err
	}

	return &shop, nil
}

func (s *ShopService) Get(shopID uuid.UUID) (*models.Shop, error) {
	var shop models.Shop
	if err := s.db.First(&shop, "id = ?", shopID).Error; err != nil {
		return nil, ErrShopNotFound
	}
	return &shop, nil
}

func (s *ShopService) Update(shopID uuid.UUID, req *dto.UpdateShopRequest) (*models.Shop, error) {
	shop, err := s.Get(shopID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		if *req.Name == "" {
			return nil, errors.New("shop name cannot be empty")
		}
		updates["name"] = *req.Name
	}
	if req.TaxID != nil {
		updates["tax_id"] = *req.TaxID
	}
	if req.Address != nil {
		updates["address"] = *req.Address
	}
	if req.City != nil {
		updates["city"] = *req.City
	}
	if req.Province != nil {
		updates["province"] = *req.Province
	}
	if req.PostalCode != nil {
		updates["postal_code"] = *req.PostalCode
	}
	if req.Currency != nil {
		updates["currency"] = *req.Currency
	}

	if len(updates) > 0 {
		if err := s.db.Model(shop).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update shop: %w", err)
		}
	}
	return shop, nil
}

// Delete tears down the shop and every tenant-scoped record under it.
func (s *ShopService) Delete(shopID uuid.UUID) error {
	shop, err := s.Get(shopID)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		tx.Scopes(tenant.ForShop(shopID)).Delete(&models.WebhookPayload{})
		tx.Scopes(tenant.ForShop(shopID)).Delete(&models.Order{})
		tx.Scopes(tenant.ForShop(shopID)).Delete(&models.Product{})
		tx.Scopes(tenant.ForShop(shopID)).Delete(&models.ShopeeIntegration{})
		tx.Scopes(tenant.ForShop(shopID)).Delete(&models.Invitation{})
		tx.Scopes(tenant.ForShop(shopID)).Delete(&models.ShopUser{})
		return tx.Delete(shop).Error
	})
}

// ListMine returns every shop the user belongs to, with the user's role.
func (s *ShopService) ListMine(userID uuid.UUID) ([]dto.ShopResponse, error) {
	var rows []struct {
		models.Shop
		Role string
	}
	err := s.db.Model(&models.Shop{}).
		Select("shops.*, shop_users.role").
		Joins("JOIN shop_users ON shop_users.shop_id = shops.id").
		Where("shop_users.user_id = ?", userID).
		Order("shops.created_at DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list shops: %w", err)
	}

	out := make([]dto.ShopResponse, len(rows))
	for i, r := range rows {
		resp := ShopResponse(&r.Shop)
		resp.Role = r.Role
		out[i] = resp
	}
	return out, nil
}

func (s *ShopService) ListMembers(shopID uuid.UUID) ([]dto.MemberResponse, error) {
	var members []models.ShopUser
	err := s.db.Scopes(tenant.ForShop(shopID)).
		Preload("User").
		Order("created_at ASC").
		Find(&members).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}

	out := make([]dto.MemberResponse, len(members))
	for i := range members {
		out[i] = MemberResponse(&members[i])
	}
	return out, nil
}

// UpdateMemberRole reassigns a member's role. The owner's row is immutable
// and OWNER cannot be granted; ownership does not move through this path.
func (s *ShopService) UpdateMemberRole(shopID, targetUserID uuid.UUID, role string) (*models.ShopUser, error) {
	if !models.ValidMemberRole(role) {
		return nil, ErrInvalidRole
	}

	var member models.ShopUser
	err := s.db.Scopes(tenant.ForShop(shopID)).
		Preload("User").
		Where("user_id = ?", targetUserID).
		First(&member).Error
	if err != nil {
		return nil, ErrMemberNotFound
	}

	if member.Role == models.RoleOwner {
		return nil, ErrOwnerImmutable
	}

	if err := s.db.Model(&member).Update("role", role).Error; err != nil {
		return nil, fmt.Errorf("failed to update member role: %w", err)
	}
	member.Role = role
	return &member, nil
}

// RemoveMember drops a membership. Any member may remove themself (leave);
// removing someone else takes OWNER or ADMIN. The owner can do neither.
func (s *ShopService) RemoveMember(shopID, targetUserID, actorUserID uuid.UUID, actorRole string) error {
	var member models.ShopUser
	err := s.db.Scopes(tenant.ForShop(shopID)).
		Where("user_id = ?", targetUserID).
		First(&member).Error
	if err != nil {
		return ErrMemberNotFound
	}

	if member.Role == models.RoleOwner {
		return ErrOwnerImmutable
	}
	if targetUserID != actorUserID && actorRole != models.RoleOwner && actorRole != models.RoleAdmin {
		return ErrNotAllowed
	}

	return s.db.Delete(&member).Error
}

// MemberResponse maps a membership row to its API shape. The User
// relation must be loaded.
func MemberResponse(m *models.ShopUser) dto.MemberResponse {
	return dto.MemberResponse{
		UserID:   m.UserID,
		Email:    m.User.Email,
		Name:     m.User.Name,
		Role:     m.Role,
		JoinedAt: m.CreatedAt,
	}
}

// ShopResponse maps a shop row to its API shape.
func ShopResponse(shop *models.Shop) dto.ShopResponse {
	return dto.ShopResponse{
		ID:         shop.ID,
		Name:       shop.Name,
		TaxID:      shop.TaxID,
		Address:    shop.Address,
		City:       shop.City,
		Province:   shop.Province,
		PostalCode: shop.PostalCode,
		Currency:   shop.Currency,
		OwnerID:    shop.OwnerID,
		CreatedAt:  shop.CreatedAt,
	}
}
