package services

import (
	"errors"
	"testing"

	"github.com/sellerdesk/sellerdesk-backend/internal/dto"
	"github.com/sellerdesk/sellerdesk-backend/internal/models"
)

func TestCreateShopSeedsOwnerMembership(t *testing.T) {
	db := setupTestDB(t)
	svc := NewShopService(db)
	owner := createTestUser(t, db, "owner@example.com")

	shop, err := svc.Create(owner.ID, &dto.CreateShopRequest{Name: "My Shop"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if shop.Currency != "THB" {
		t.Errorf("currency = %s, want THB default", shop.Currency)
	}
	if shop.OwnerID != owner.ID {
		t.Errorf("owner_id = %s, want %s", shop.OwnerID, owner.ID)
	}

	var member models.ShopUser
	if err := db.Where("shop_id = ? AND user_id = ?", shop.ID, owner.ID).First(&member).Error; err != nil {
		t.Fatalf("owner membership missing: %v", err)
	}
	if member.Role != models.RoleOwner {
		t.Errorf("role = %s, want OWNER", member.Role)
	}
}

func TestCreateShopRequiresName(t *testing.T) {
	db := setupTestDB(t)
	svc := NewShopService(db)
	owner := createTestUser(t, db, "owner@example.com")

	if _, err := svc.Create(owner.ID, &dto.CreateShopRequest{}); err == nil {
		t.Error("expected error for empty shop name")
	}
}

func TestUpdateShopPatchesOnlyGivenFields(t *testing.T) {
	db := setupTestDB(t)
	svc := NewShopService(db)
	owner := createTestUser(t, db, "owner@example.com")
	shop := createTestShop(t, db, owner.ID)

	newName := "Renamed"
	city := "Bangkok"
	if _, err := svc.Update(shop.ID, &dto.UpdateShopRequest{Name: &newName, City: &city}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	var reloaded models.Shop
	db.First(&reloaded, "id = ?", shop.ID)
	if reloaded.Name != "Renamed" {
		t.Errorf("name = %s, want Renamed", reloaded.Name)
	}
	if reloaded.City != "Bangkok" {
		t.Errorf("city = %s, want Bangkok", reloaded.City)
	}
	if reloaded.Currency != "THB" {
		t.Errorf("currency = %s, untouched field changed", reloaded.Currency)
	}

	empty := ""
	if _, err := svc.Update(shop.ID, &dto.UpdateShopRequest{Name: &empty}); err == nil {
		t.Error("expected error for empty name")
	}
}

func TestDeleteShopCascades(t *testing.T) {
	db := setupTestDB(t)
	svc := NewShopService(db)
	owner := createTestUser(t, db, "owner@example.com")
	shop := createTestShop(t, db, owner.ID)

	products := NewProductService(db, &capturingPublisher{})
	if _, err := products.Create(shop.ID, &dto.CreateProductRequest{Name: "Widget"}); err != nil {
		t.Fatalf("seed product: %v", err)
	}

	if err := svc.Delete(shop.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := svc.Get(shop.ID); !errors.Is(err, ErrShopNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrShopNotFound", err)
	}

	var memberships int64
	db.Model(&models.ShopUser{}).Where("shop_id = ?", shop.ID).Count(&memberships)
	if memberships != 0 {
		t.Errorf("memberships left = %d, want 0", memberships)
	}

	var liveProducts int64
	db.Model(&models.Product{}).Where("shop_id = ?", shop.ID).Count(&liveProducts)
	if liveProducts != 0 {
		t.Errorf("products left = %d, want 0", liveProducts)
	}
}

func TestListMineReturnsRolePerShop(t *testing.T) {
	db := setupTestDB(t)
	svc := NewShopService(db)
	owner := createTestUser(t, db, "owner@example.com")
	packer := createTestUser(t, db, "packer@example.com")

	shop := createTestShop(t, db, owner.ID)
	addTestMember(t, db, shop.ID, packer.ID, models.RolePacker)

	ownerShops, err := svc.ListMine(owner.ID)
	if err != nil {
		t.Fatalf("ListMine() error = %v", err)
	}
	if len(ownerShops) != 1 {
		t.Fatalf("owner shops = %d, want 1", len(ownerShops))
	}
	if ownerShops[0].Role != models.RoleOwner {
		t.Errorf("owner role = %s, want OWNER", ownerShops[0].Role)
	}

	packerShops, err := svc.ListMine(packer.ID)
	if err != nil {
		t.Fatalf("ListMine() error = %v", err)
	}
	if len(packerShops) != 1 || packerShops[0].Role != models.RolePacker {
		t.Errorf("packer shops = %+v, want one PACKER membership", packerShops)
	}

	stranger := createTestUser(t, db, "stranger@example.com")
	none, err := svc.ListMine(stranger.ID)
	if err != nil {
		t.Fatalf("ListMine() error = %v", err)
	}
	if len(none) != 0 {
		t.Errorf("stranger shops = %d, want 0", len(none))
	}
}

func TestListMembers(t *testing.T) {
	db := setupTestDB(t)
	svc := NewShopService(db)
	owner := createTestUser(t, db, "owner@example.com")
	admin := createTestUser(t, db, "admin@example.com")

	shop := createTestShop(t, db, owner.ID)
	addTestMember(t, db, shop.ID, admin.ID, models.RoleAdmin)

	members, err := svc.ListMembers(shop.ID)
	if err != nil {
		t.Fatalf("ListMembers() error = %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("members = %d, want 2", len(members))
	}

	byEmail := map[string]string{}
	for _, m := range members {
		byEmail[m.Email] = m.Role
	}
	if byEmail["owner@example.com"] != models.RoleOwner {
		t.Errorf("owner role = %s", byEmail["owner@example.com"])
	}
	if byEmail["admin@example.com"] != models.RoleAdmin {
		t.Errorf("admin role = %s", byEmail["admin@example.com"])
	}
}

func TestUpdateMemberRole(t *testing.T) {
	db := setupTestDB(t)
	svc := NewShopService(db)
	owner := createTestUser(t, db, "owner@example.com")
	member := createTestUser(t, db, "member@example.com")

	shop := createTestShop(t, db, owner.ID)
	addTestMember(t, db, shop.ID, member.ID, models.RolePacker)

	updated, err := svc.UpdateMemberRole(shop.ID, member.ID, models.RoleAdmin)
	if err != nil {
		t.Fatalf("UpdateMemberRole() error = %v", err)
	}
	if updated.Role != models.RoleAdmin {
		t.Errorf("role = %s, want ADMIN", updated.Role)
	}

	if _, err := svc.UpdateMemberRole(shop.ID, member.ID, "SUPERUSER"); !errors.Is(err, ErrInvalidRole) {
		t.Errorf("bogus role error = %v, want ErrInvalidRole", err)
	}
	if _, err := svc.UpdateMemberRole(shop.ID, member.ID, models.RoleOwner); !errors.Is(err, ErrInvalidRole) {
		t.Errorf("granting OWNER error = %v, want ErrInvalidRole", err)
	}
	if _, err := svc.UpdateMemberRole(shop.ID, owner.ID, models.RoleAdmin); !errors.Is(err, ErrOwnerImmutable) {
		t.Errorf("changing owner error = %v, want ErrOwnerImmutable", err)
	}
}

func TestRemoveMember(t *testing.T) {
	db := setupTestDB(t)
	svc := NewShopService(db)
	owner := createTestUser(t, db, "owner@example.com")
	admin := createTestUser(t, db, "admin@example.com")
	packer := createTestUser(t, db, "packer@example.com")

	shop := createTestShop(t, db, owner.ID)
	addTestMember(t, db, shop.ID, admin.ID, models.RoleAdmin)
	addTestMember(t, db, shop.ID, packer.ID, models.RolePacker)

	// A packer cannot remove someone else.
	if err := svc.RemoveMember(shop.ID, admin.ID, packer.ID, models.RolePacker); !errors.Is(err, ErrNotAllowed) {
		t.Errorf("packer removing admin error = %v, want ErrNotAllowed", err)
	}

	// The owner row is untouchable even for the owner.
	if err := svc.RemoveMember(shop.ID, owner.ID, owner.ID, models.RoleOwner); !errors.Is(err, ErrOwnerImmutable) {
		t.Errorf("removing owner error = %v, want ErrOwnerImmutable", err)
	}

	// Anyone may leave on their own.
	if err := svc.RemoveMember(shop.ID, packer.ID, packer.ID, models.RolePacker); err != nil {
		t.Errorf("self-leave error = %v", err)
	}

	// Admins remove other members.
	if err := svc.RemoveMember(shop.ID, admin.ID, owner.ID, models.RoleOwner); err != nil {
		t.Errorf("owner removing admin error = %v", err)
	}

	var left int64
	db.Model(&models.ShopUser{}).Where("shop_id = ?", shop.ID).Count(&left)
	if left != 1 {
		t.Errorf("memberships = %d, want only the owner", left)
	}

	if err := svc.RemoveMember(shop.ID, admin.ID, owner.ID, models.RoleOwner); !errors.Is(err, ErrMemberNotFound) {
		t.Errorf("removing twice error = %v, want ErrMemberNotFound", err)
	}
}
