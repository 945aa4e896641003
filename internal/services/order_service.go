package services

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sellerdesk/sellerdesk-backend/internal/dto"
	"github.com/sellerdesk/sellerdesk-backend/internal/events"
	"github.com/sellerdesk/sellerdesk-backend/internal/models"
	"github.com/sellerdesk/sellerdesk-backend/internal/tenant"
)

var ErrOrderNotFound = errors.New("order not found")

type OrderService struct {
	db        *gorm.DB
	publisher events.Publisher
}

func NewOrderService(db *gorm.DB, publisher events.Publisher) *OrderService {
	return &OrderService{db: db, publisher: publisher}
}

type OrderFilter struct {
	Status   string
	Platform string
	Search   string
	From     *time.Time
	To       *time.Time
	Page     int
	Limit    int
}

func (s *OrderService) Create(shopID uuid.UUID, req *dto.CreateOrderRequest) (*models.Order, error) {
	if req.ShopeeOrderID == "" {
		return nil, errors.New("order reference is required")
	}
	platform := req.Platform
	if platform == "" {
		platform = models.PlatformShopee
	}
	if !models.ValidPlatform(platform) {
		return nil, fmt.Errorf("unknown platform %q", platform)
	}
	if req.Total.IsNegative() {
		return nil, errors.New("total cannot be negative")
	}

	items := req.Items
	if items == nil {
		items = datatypes.JSON("[]")
	}
	status := req.Status
	if status == "" {
		status = "UNPAID"
	}

	order := models.Order{
		ID:              uuid.New(),
		ShopID:          shopID,
		ShopeeOrderID:   req.ShopeeOrderID,
		Platform:        platform,
		Total:           req.Total,
		Currency:        req.Currency,
		Status:          status,
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		CustomerAddress: req.CustomerAddress,
		Items:           items,
	}
	if err := s.db.Create(&order).Error; err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	s.publishOrderEvent(events.TypeOrderCreated, &order)
	return &order, nil
}

func (s *OrderService) Get(shopID, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := s.db.Scopes(tenant.ForShop(shopID)).
		First(&order, "id = ?", orderID).Error
	if err != nil {
		return nil, ErrOrderNotFound
	}
	return &order, nil
}

func (s *OrderService) List(shopID uuid.UUID, filter OrderFilter) (*dto.OrderListResponse, error) {
	page, limit, offset := normalizePage(filter.Page, filter.Limit)

	query := s.db.Model(&models.Order{}).Scopes(tenant.ForShop(shopID))
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Platform != "" {
		query = query.Where("platform = ?", filter.Platform)
	}
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(customer_name) LIKE ? OR customer_phone LIKE ? OR LOWER(shopee_order_id) LIKE ?",
			pattern, pattern, pattern)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at <= ?", *filter.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	var orders []models.Order
	err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	out := &dto.OrderListResponse{
		Orders:     make([]dto.OrderResponse, len(orders)),
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages(total, limit),
	}
	for i := range orders {
		out.Orders[i] = OrderResponse(&orders[i])
	}
	return out, nil
}

// UpdateStatus writes a new status. The value is free text because each
// marketplace ships its own vocabulary; only emptiness is rejected.
func (s *OrderService) UpdateStatus(shopID, orderID uuid.UUID, status string) (*models.Order, error) {
	status = strings.TrimSpace(status)
	if status == "" {
		return nil, errors.New("status is required")
	}
	if len(status) > 50 {
		return nil, errors.New("status is too long")
	}

	order, err := s.Get(shopID, orderID)
	if err != nil {
		return nil, err
	}

	if err := s.db.Model(order).Update("status", status).Error; err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	order.Status = status

	s.publishOrderEvent(events.TypeOrderStatusChanged, order)
	return order, nil
}

// ExternalOrder is the normalized shape of a marketplace order used by sync
// and webhook processing.
type ExternalOrder struct {
	ShopeeOrderID   string
	Status          string
	Total           decimal.Decimal
	Currency        string
	CustomerName    string
	CustomerPhone   string
	CustomerAddress string
	Items           datatypes.JSON
}

// UpsertExternal writes a marketplace order keyed by (shop_id,
// shopee_order_id). New rows emit order.created, known ones
// order.status_changed.
func (s *OrderService) UpsertExternal(shopID uuid.UUID, ext ExternalOrder) (*models.Order, error) {
	if ext.ShopeeOrderID == "" {
		return nil, errors.New("external order id is required")
	}

	var existing int64
	err := s.db.Model(&models.Order{}).
		Scopes(tenant.ForShop(shopID)).
		Where("shopee_order_id = ?", ext.ShopeeOrderID).
		Count(&existing).Error
	if err != nil {
		return nil, fmt.Errorf("failed to check order %s: %w", ext.ShopeeOrderID, err)
	}

	items := ext.Items
	if items == nil {
		items = datatypes.JSON("[]")
	}

	order := models.Order{
		ID:              uuid.New(),
		ShopID:          shopID,
		ShopeeOrderID:   ext.ShopeeOrderID,
		Platform:        models.PlatformShopee,
		Total:           ext.Total,
		Currency:        ext.Currency,
		Status:          ext.Status,
		CustomerName:    ext.CustomerName,
		CustomerPhone:   ext.CustomerPhone,
		CustomerAddress: ext.CustomerAddress,
		Items:           items,
	}

	err = s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "shop_id"}, {Name: "shopee_order_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"status":           ext.Status,
			"total":            ext.Total,
			"currency":         ext.Currency,
			"customer_name":    ext.CustomerName,
			"customer_phone":   ext.CustomerPhone,
			"customer_address": ext.CustomerAddress,
			"items":            items,
			"updated_at":       time.Now(),
		}),
	}).Create(&order).Error
	if err != nil {
		return nil, fmt.Errorf("failed to upsert order %s: %w", ext.ShopeeOrderID, err)
	}

	var stored models.Order
	err = s.db.Scopes(tenant.ForShop(shopID)).
		Where("shopee_order_id = ?", ext.ShopeeOrderID).
		First(&stored).Error
	if err != nil {
		return nil, fmt.Errorf("failed to reload order %s: %w", ext.ShopeeOrderID, err)
	}

	if existing == 0 {
		s.publishOrderEvent(events.TypeOrderCreated, &stored)
	} else {
		s.publishOrderEvent(events.TypeOrderStatusChanged, &stored)
	}
	return &stored, nil
}

// SetStatusByExternalID updates the status of a known marketplace order.
// Returns ErrOrderNotFound when the order has not been ingested yet, so the
// caller can fall back to a detail fetch.
func (s *OrderService) SetStatusByExternalID(shopID uuid.UUID, shopeeOrderID, status string) error {
	result := s.db.Model(&models.Order{}).
		Scopes(tenant.ForShop(shopID)).
		Where("shopee_order_id = ?", shopeeOrderID).
		Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("failed to set status for order %s: %w", shopeeOrderID, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrOrderNotFound
	}

	var stored models.Order
	if err := s.db.Scopes(tenant.ForShop(shopID)).
		Where("shopee_order_id = ?", shopeeOrderID).
		First(&stored).Error; err == nil {
		s.publishOrderEvent(events.TypeOrderStatusChanged, &stored)
	}
	return nil
}

// OrderResponse maps an order row to its API shape.
func OrderResponse(o *models.Order) dto.OrderResponse {
	return dto.OrderResponse{
		ID:              o.ID,
		ShopID:          o.ShopID,
		ShopeeOrderID:   o.ShopeeOrderID,
		Platform:        o.Platform,
		Total:           o.Total,
		Currency:        o.Currency,
		Status:          o.Status,
		CustomerName:    o.CustomerName,
		CustomerPhone:   o.CustomerPhone,
		CustomerAddress: o.CustomerAddress,
		Items:           o.Items,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

func (s *OrderService) publishOrderEvent(eventType string, order *models.Order) {
	event := events.New(eventType, order.ShopID, map[string]interface{}{
		"order_id":        order.ID,
		"shopee_order_id": order.ShopeeOrderID,
		"status":          order.Status,
		"total":           order.Total,
	})
	if err := s.publisher.Publish(event); err != nil {
		slog.Warn("Failed to publish order event", "error", err, "order_id", order.ID.String())
	}
}
