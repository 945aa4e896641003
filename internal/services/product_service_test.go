package services

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/sellerdesk/sellerdesk-backend/internal/dto"
	"github.com/sellerdesk/sellerdesk-backend/internal/events"
	"github.com/sellerdesk/sellerdesk-backend/internal/models"
)

func TestCreateProductDefaults(t *testing.T) {
	db := setupTestDB(t)
	svc := NewProductService(db, &capturingPublisher{})
	owner := createTestUser(t, db, "owner@example.com")
	shop := createTestShop(t, db, owner.ID)

	product, err := svc.Create(shop.ID, &dto.CreateProductRequest{
		Name:  "Ceramic Mug",
		SKU:   "MUG-001",
		Stock: 10,
		Price: decimal.NewFromFloat(129.50),
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if product.Platform != models.PlatformShopee {
		t.Errorf("platform = %s, want SHOPEE default", product.Platform)
	}
	if product.Status != "ACTIVE" {
		t.Errorf("status = %s, want ACTIVE", product.Status)
	}
	if product.ShopeeProductID != nil {
		t.Error("manual product should not carry a marketplace id")
	}
}

func TestCreateProductValidation(t *testing.T) {
	db := setupTestDB(t)
	svc := NewProductService(db, &capturingPublisher{})
	owner := createTestUser(t, db, "owner@example.com")
	shop := createTestShop(t, db, owner.ID)

	if _, err := svc.Create(shop.ID, &dto.CreateProductRequest{}); err == nil {
		t.Error("expected error for missing name")
	}
	if _, err := svc.Create(shop.ID, &dto.CreateProductRequest{Name: "X", Platform: "EBAY"}); err == nil {
		t.Error("expected error for unknown platform")
	}
	if _, err := svc.Create(shop.ID, &dto.CreateProductRequest{Name: "X", Stock: -1}); !errors.Is(err, ErrStockUnderflow) {
		t.Errorf("negative stock error = %v, want ErrStockUnderflow", err)
	}
	if _, err := svc.Create(shop.ID, &dto.CreateProductRequest{Name: "X", Price: decimal.NewFromInt(-5)}); err == nil {
		t.Error("expected error for negative price")
	}
}

func TestGetProductScopedToShop(t *testing.T) {
	db := setupTestDB(t)
	svc := NewProductService(db, &capturingPublisher{})
	owner := createTestUser(t, db, "owner@example.com")
	shopA := createTestShop(t, db, owner.ID)
	shopB := createTestShop(t, db, owner.ID)

	product, err := svc.Create(shopA.ID, &dto.CreateProductRequest{Name: "Widget"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if _, err := svc.Get(shopA.ID, product.ID); err != nil {
		t.Errorf("Get() in own shop error = %v", err)
	}
	if _, err := svc.Get(shopB.ID, product.ID); !errors.Is(err, ErrProductNotFound) {
		t.Errorf("Get() across shops error = %v, want ErrProductNotFound", err)
	}
}

func TestAdjustStock(t *testing.T) {
	db := setupTestDB(t)
	pub := &capturingPublisher{}
	svc := NewProductService(db, pub)
	owner := createTestUser(t, db, "owner@example.com")
	shop := createTestShop(t, db, owner.ID)

	product, err := svc.Create(shop.ID, &dto.CreateProductRequest{Name: "Widget", Stock: 5})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	updated, err := svc.AdjustStock(shop.ID, product.ID, -3)
	if err != nil {
		t.Fatalf("AdjustStock(-3) error = %v", err)
	}
	if updated.Stock != 2 {
		t.Errorf("stock = %d, want 2", updated.Stock)
	}

	// The guard refuses a delta that would go negative, keeping stock as is.
	if _, err := svc.AdjustStock(shop.ID, product.ID, -3); !errors.Is(err, ErrStockUnderflow) {
		t.Errorf("underflow error = %v, want ErrStockUnderflow", err)
	}
	current, _ := svc.Get(shop.ID, product.ID)
	if current.Stock != 2 {
		t.Errorf("stock after refused adjust = %d, want 2", current.Stock)
	}

	if _, err := svc.AdjustStock(shop.ID, product.ID, -2); err != nil {
		t.Fatalf("AdjustStock(-2) error = %v", err)
	}
	current, _ = svc.Get(shop.ID, product.ID)
	if current.Stock != 0 {
		t.Errorf("stock = %d, want 0", current.Stock)
	}

	if got := pub.ofType(events.TypeProductStockChanged); len(got) != 2 {
		t.Errorf("stock events = %d, want 2", len(got))
	}
}

func TestAdjustStockUnknownProduct(t *testing.T) {
	db := setupTestDB(t)
	svc := NewProductService(db, &capturingPublisher{})
	owner := createTestUser(t, db, "owner@example.com")
	shop := createTestShop(t, db, owner.ID)
	other := createTestShop(t, db, owner.ID)

	product, err := svc.Create(shop.ID, &dto.CreateProductRequest{Name: "Widget", Stock: 5})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Wrong shop looks like a missing product, not an underflow.
	if _, err := svc.AdjustStock(other.ID, product.ID, -1); !errors.Is(err, ErrProductNotFound) {
		t.Errorf("cross-shop adjust error = %v, want ErrProductNotFound", err)
	}
}

func TestListProducts(t *testing.T) {
	db := setupTestDB(t)
	svc := NewProductService(db, &capturingPublisher{})
	owner := createTestUser(t, db, "owner@example.com")
	shop := createTestShop(t, db, owner.ID)

	seed := []dto.CreateProductRequest{
		{Name: "Blue Mug", Stock: 3},
		{Name: "Red Mug", Stock: 1},
		{Name: "Desk Lamp", Platform: models.PlatformLazada},
	}
	for i := range seed {
		if _, err := svc.Create(shop.ID, &seed[i]); err != nil {
			t.Fatalf("seed %q: %v", seed[i].Name, err)
		}
	}

	all, err := svc.List(shop.ID, ProductFilter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if all.Total != 3 || len(all.Products) != 3 {
		t.Errorf("total = %d, rows = %d, want 3 and 3", all.Total, len(all.Products))
	}
	if all.Page != 1 || all.Limit != defaultPageLimit {
		t.Errorf("page = %d limit = %d, want defaults", all.Page, all.Limit)
	}

	mugs, err := svc.List(shop.ID, ProductFilter{Search: "mug"})
	if err != nil {
		t.Fatalf("List(search) error = %v", err)
	}
	if mugs.Total != 2 {
		t.Errorf("search total = %d, want 2", mugs.Total)
	}

	lazada, err := svc.List(shop.ID, ProductFilter{Platform: models.PlatformLazada})
	if err != nil {
		t.Fatalf("List(platform) error = %v", err)
	}
	if lazada.Total != 1 || lazada.Products[0].Name != "Desk Lamp" {
		t.Errorf("platform filter returned %+v", lazada.Products)
	}

	paged, err := svc.List(shop.ID, ProductFilter{Page: 2, Limit: 2})
	if err != nil {
		t.Fatalf("List(paged) error = %v", err)
	}
	if len(paged.Products) != 1 || paged.TotalPages != 2 {
		t.Errorf("page 2 rows = %d total_pages = %d, want 1 and 2", len(paged.Products), paged.TotalPages)
	}
}

func TestUpdateProduct(t *testing.T) {
	db := setupTestDB(t)
	svc := NewProductService(db, &capturingPublisher{})
	owner := createTestUser(t, db, "owner@example.com")
	shop := createTestShop(t, db, owner.ID)

	product, err := svc.Create(shop.ID, &dto.CreateProductRequest{Name: "Widget", Stock: 5})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	newPrice := decimal.NewFromFloat(42.00)
	status := "INACTIVE"
	updated, err := svc.Update(shop.ID, product.ID, &dto.UpdateProductRequest{
		Price:  &newPrice,
		Status: &status,
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if !updated.Price.Equal(newPrice) {
		t.Errorf("price = %s, want %s", updated.Price, newPrice)
	}
	if updated.Status != "INACTIVE" {
		t.Errorf("status = %s, want INACTIVE", updated.Status)
	}
	if updated.Name != "Widget" || updated.Stock != 5 {
		t.Error("untouched fields changed")
	}

	negStock := -1
	if _, err := svc.Update(shop.ID, product.ID, &dto.UpdateProductRequest{Stock: &negStock}); !errors.Is(err, ErrStockUnderflow) {
		t.Errorf("negative stock error = %v, want ErrStockUnderflow", err)
	}
}

func TestDeleteProduct(t *testing.T) {
	db := setupTestDB(t)
	svc := NewProductService(db, &capturingPublisher{})
	owner := createTestUser(t, db, "owner@example.com")
	shop := createTestShop(t, db, owner.ID)

	product, err := svc.Create(shop.ID, &dto.CreateProductRequest{Name: "Widget"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := svc.Delete(shop.ID, product.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := svc.Get(shop.ID, product.ID); !errors.Is(err, ErrProductNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrProductNotFound", err)
	}
}

func TestUpsertExternalProduct(t *testing.T) {
	db := setupTestDB(t)
	svc := NewProductService(db, &capturingPublisher{})
	owner := createTestUser(t, db, "owner@example.com")
	shop := createTestShop(t, db, owner.ID)

	ext := ExternalProduct{
		ShopeeProductID: 778899,
		Name:            "Imported Mug",
		SKU:             "IMP-01",
		Stock:           12,
		Price:           decimal.NewFromFloat(99.00),
		Currency:        "THB",
	}
	if err := svc.UpsertExternal(shop.ID, ext); err != nil {
		t.Fatalf("first UpsertExternal() error = %v", err)
	}

	ext.Stock = 7
	ext.Name = "Imported Mug v2"
	if err := svc.UpsertExternal(shop.ID, ext); err != nil {
		t.Fatalf("second UpsertExternal() error = %v", err)
	}

	var count int64
	db.Model(&models.Product{}).Where("shop_id = ?", shop.ID).Count(&count)
	if count != 1 {
		t.Fatalf("products = %d, want 1 after upsert", count)
	}

	var product models.Product
	db.Where("shop_id = ? AND shopee_product_id = ?", shop.ID, 778899).First(&product)
	if product.Stock != 7 || product.Name != "Imported Mug v2" {
		t.Errorf("upsert left stock = %d name = %q", product.Stock, product.Name)
	}
	if product.Status != "ACTIVE" {
		t.Errorf("status = %s, want ACTIVE default", product.Status)
	}
}

func TestSetStockAndStatusByExternalID(t *testing.T) {
	db := setupTestDB(t)
	svc := NewProductService(db, &capturingPublisher{})
	owner := createTestUser(t, db, "owner@example.com")
	shop := createTestShop(t, db, owner.ID)

	if err := svc.UpsertExternal(shop.ID, ExternalProduct{
		ShopeeProductID: 12345,
		Name:            "Tracked Item",
		Stock:           10,
		Price:           decimal.NewFromInt(50),
	}); err != nil {
		t.Fatalf("UpsertExternal() error = %v", err)
	}

	if err := svc.SetStockByExternalID(shop.ID, 12345, 4); err != nil {
		t.Fatalf("SetStockByExternalID() error = %v", err)
	}
	if err := svc.SetStatusByExternalID(shop.ID, 12345, "BANNED"); err != nil {
		t.Fatalf("SetStatusByExternalID() error = %v", err)
	}

	var product models.Product
	db.Where("shop_id = ? AND shopee_product_id = ?", shop.ID, 12345).First(&product)
	if product.Stock != 4 {
		t.Errorf("stock = %d, want 4", product.Stock)
	}
	if product.Status != "BANNED" {
		t.Errorf("status = %s, want BANNED", product.Status)
	}

	// Unknown marketplace ids are ignored without error.
	if err := svc.SetStockByExternalID(shop.ID, 99999, 1); err != nil {
		t.Errorf("unknown item error = %v, want nil", err)
	}
}
