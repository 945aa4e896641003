package services

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sellerdesk/sellerdesk-backend/internal/dto"
	"github.com/sellerdesk/sellerdesk-backend/internal/events"
	"github.com/sellerdesk/sellerdesk-backend/internal/models"
	"github.com/sellerdesk/sellerdesk-backend/internal/tenant"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrStockUnderflow  = errors.New("stock cannot go below zero")
)

type ProductService struct {
	db        *gorm.DB
	publisher events.Publisher
}

func NewProductService(db *gorm.DB, publisher events.Publisher) *ProductService {
	return &ProductService{db: db, publisher: publisher}
}

type ProductFilter struct {
	Platform string
	Status   string
	Search   string
	Page     int
	Limit    int
}

func (s *ProductService) Create(shopID uuid.UUID, req *dto.CreateProductRequest) (*models.Product, error) {
	if req.Name == "" {
		return nil, errors.New("product name is required")
	}
	platform := req.Platform
	if platform == "" {
		platform = models.PlatformShopee
	}
	if !models.ValidPlatform(platform) {
		return nil, fmt.Errorf("unknown platform %q", platform)
	}
	if req.Stock < 0 {
		return nil, ErrStockUnderflow
	}
	if req.Price.IsNegative() {
		return nil, errors.New("price cannot be negative")
	}

	product := models.Product{
		ID:       uuid.New(),
		ShopID:   shopID,
		Platform: platform,
		Name:     req.Name,
		SKU:      req.SKU,
		Stock:    req.Stock,
		Price:    req.Price,
		Currency: req.Currency,
		Status:   "ACTIVE",
	}
	if err := s.db.Create(&product).Error; err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return &product, nil
}

func (s *ProductService) Get(shopID, productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := s.db.Scopes(tenant.ForShop(shopID)).
		First(&product, "id = ?", productID).Error
	if err != nil {
		return nil, ErrProductNotFound
	}
	return &product, nil
}

func (s *ProductService) List(shopID uuid.UUID, filter ProductFilter) (*dto.ProductListResponse, error) {
	page, limit, offset := normalizePage(filter.Page, filter.Limit)

	query := s.db.Model(&models.Product{}).Scopes(tenant.ForShop(shopID))
	if filter.Platform != "" {
		query = query.Where("platform = ?", filter.Platform)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Search != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(filter.Search)+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	var products []models.Product
	err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	out := &dto.ProductListResponse{
		Products:   make([]dto.ProductResponse, len(products)),
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages(total, limit),
	}
	for i := range products {
		out.Products[i] = ProductResponse(&products[i])
	}
	return out, nil
}

// ProductResponse maps a product row to its API shape.
func ProductResponse(p *models.Product) dto.ProductResponse {
	return dto.ProductResponse{
		ID:              p.ID,
		ShopID:          p.ShopID,
		ShopeeProductID: p.ShopeeProductID,
		Platform:        p.Platform,
		Name:            p.Name,
		SKU:             p.SKU,
		Stock:           p.Stock,
		Price:           p.Price,
		Currency:        p.Currency,
		Status:          p.Status,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func (s *ProductService) Update(shopID, productID uuid.UUID, req *dto.UpdateProductRequest) (*models.Product, error) {
	product, err := s.Get(shopID, productID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		if *req.Name == "" {
			return nil, errors.New("product name cannot be empty")
		}
		updates["name"] = *req.Name
	}
	if req.SKU != nil {
		updates["sku"] = *req.SKU
	}
	if req.Stock != nil {
		if *req.Stock < 0 {
			return nil, ErrStockUnderflow
		}
		updates["stock"] = *req.Stock
	}
	if req.Price != nil {
		if req.Price.IsNegative() {
			return nil, errors.New("price cannot be negative")
		}
		updates["price"] = *req.Price
	}
	if req.Currency != nil {
		updates["currency"] = *req.Currency
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}

	if len(updates) > 0 {
		if err := s.db.Model(product).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update product: %w", err)
		}
	}
	return s.Get(shopID, productID)
}

func (s *ProductService) Delete(shopID, productID uuid.UUID) error {
	product, err := s.Get(shopID, productID)
	if err != nil {
		return err
	}
	return s.db.Delete(product).Error
}

// AdjustStock applies a delta with a guarded update so concurrent
// adjustments cannot drive stock negative.
func (s *ProductService) AdjustStock(shopID, productID uuid.UUID, delta int) (*models.Product, error) {
	result := s.db.Model(&models.Product{}).
		Scopes(tenant.ForShop(shopID)).
		Where("id = ? AND stock + ? >= 0", productID, delta).
		Update("stock", gorm.Expr("stock + ?", delta))
	if result.Error != nil {
		return nil, fmt.Errorf("failed to adjust stock: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		if _, err := s.Get(shopID, productID); err != nil {
			return nil, err
		}
		return nil, ErrStockUnderflow
	}

	product, err := s.Get(shopID, productID)
	if err != nil {
		return nil, err
	}
	s.publishStockChanged(product, delta)
	return product, nil
}

// ExternalProduct is the normalized shape of a marketplace item used by sync
// and webhook processing.
type ExternalProduct struct {
	ShopeeProductID int64
	Name            string
	SKU             string
	Stock           int
	Price           decimal.Decimal
	Currency        string
	Status          string
}

// UpsertExternal writes a marketplace item keyed by (shop_id,
// shopee_product_id), updating the mutable fields on conflict.
func (s *ProductService) UpsertExternal(shopID uuid.UUID, ext ExternalProduct) error {
	if ext.Status == "" {
		ext.Status = "ACTIVE"
	}
	product := models.Product{
		ID:              uuid.New(),
		ShopID:          shopID,
		ShopeeProductID: &ext.ShopeeProductID,
		Platform:        models.PlatformShopee,
		Name:            ext.Name,
		SKU:             ext.SKU,
		Stock:           ext.Stock,
		Price:           ext.Price,
		Currency:        ext.Currency,
		Status:          ext.Status,
	}

	err := s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "shop_id"}, {Name: "shopee_product_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"name":       ext.Name,
			"sku":        ext.SKU,
			"stock":      ext.Stock,
			"price":      ext.Price,
			"status":     ext.Status,
			"updated_at": time.Now(),
		}),
	}).Create(&product).Error
	if err != nil {
		return fmt.Errorf("failed to upsert product %d: %w", ext.ShopeeProductID, err)
	}
	return nil
}

// SetStockByExternalID updates stock for a marketplace item already known
// locally. Unknown items are ignored; the next full sync picks them up.
func (s *ProductService) SetStockByExternalID(shopID uuid.UUID, shopeeProductID int64, stock int) error {
	result := s.db.Model(&models.Product{}).
		Scopes(tenant.ForShop(shopID)).
		Where("shopee_product_id = ?", shopeeProductID).
		Update("stock", stock)
	if result.Error != nil {
		return fmt.Errorf("failed to set stock for item %d: %w", shopeeProductID, result.Error)
	}
	return nil
}

// SetStatusByExternalID flips the local status of a marketplace item, used
// for ban/unlist pushes.
func (s *ProductService) SetStatusByExternalID(shopID uuid.UUID, shopeeProductID int64, status string) error {
	result := s.db.Model(&models.Product{}).
		Scopes(tenant.ForShop(shopID)).
		Where("shopee_product_id = ?", shopeeProductID).
		Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("failed to set status for item %d: %w", shopeeProductID, result.Error)
	}
	return nil
}

func (s *ProductService) publishStockChanged(product *models.Product, delta int) {
	event := events.New(events.TypeProductStockChanged, product.ShopID, map[string]interface{}{
		"product_id": product.ID,
		"stock":      product.Stock,
		"delta":      delta,
	})
	if err := s.publisher.Publish(event); err != nil {
		slog.Warn("Failed to publish stock event", "error", err, "product_id", product.ID.String())
	}
}
