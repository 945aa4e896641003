package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/sellerdesk/sellerdesk-backend/internal/dto"
	"github.com/sellerdesk/sellerdesk-backend/internal/events"
	"github.com/sellerdesk/sellerdesk-backend/internal/models"
	"github.com/sellerdesk/sellerdesk-backend/internal/shopee"
)

var (
	ErrIntegrationExists       = errors.New("shop already has a Shopee integration")
	ErrIntegrationNotFound     = errors.New("integration not found")
	ErrIntegrationDisconnected = errors.New("integration is disconnected, re-authorization required")
)

// syncWindow bounds how far back a sync pulls orders. Shopee caps a single
// list window at 15 days.
const syncWindow = 7 * 24 * time.Hour

const detailBatchSize = 50

type IntegrationService struct {
	db        *gorm.DB
	client    *shopee.Client
	products  *ProductService
	orders    *OrderService
	publisher events.Publisher
}

func NewIntegrationService(db *gorm.DB, client *shopee.Client, products *ProductService, orders *OrderService, publisher events.Publisher) *IntegrationService {
	return &IntegrationService{
		db:        db,
		client:    client,
		products:  products,
		orders:    orders,
		publisher: publisher,
	}
}

// Connect exchanges the seller's authorization code and stores the token
// pair. One integration per shop; reconnecting a DISCONNECTED one reuses
// the existing row.
func (s *IntegrationService) Connect(shopID uuid.UUID, req *dto.ConnectIntegrationRequest) (*models.ShopeeIntegration, error) {
	if req.Code == "" || req.ShopeeShopID == 0 {
		return nil, errors.New("authorization code and shopee shop id are required")
	}

	var existing models.ShopeeIntegration
	err := s.db.Where("shop_id = ?", shopID).First(&existing).Error
	if err == nil && existing.Status != models.IntegrationDisconnected {
		return nil, ErrIntegrationExists
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	token, err := s.client.GetAccessToken(context.Background(), req.Code, req.ShopeeShopID)
	if err != nil {
		return nil, fmt.Errorf("shopee authorization failed: %w", err)
	}

	expiresAt := time.Now().Add(time.Duration(token.ExpireIn) * time.Second)

	if existing.ID != uuid.Nil {
		updates := map[string]interface{}{
			"shopee_shop_id": req.ShopeeShopID,
			"access_token":   token.AccessToken,
			"refresh_token":  token.RefreshToken,
			"expires_at":     expiresAt,
			"status":         models.IntegrationHealthy,
			"failure_count":  0,
			"last_error":     "",
		}
		if err := s.db.Model(&existing).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update integration: %w", err)
		}
		s.publishStatusChanged(&existing, models.IntegrationHealthy)
		return s.Get(shopID)
	}

	integration := models.ShopeeIntegration{
		ID:           uuid.New(),
		ShopID:       shopID,
		ShopeeShopID: req.ShopeeShopID,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    expiresAt,
		Status:       models.IntegrationHealthy,
	}
	if err := s.db.Create(&integration).Error; err != nil {
		return nil, fmt.Errorf("failed to store integration: %w", err)
	}
	return &integration, nil
}

func (s *IntegrationService) Get(shopID uuid.UUID) (*models.ShopeeIntegration, error) {
	var integration models.ShopeeIntegration
	if err := s.db.Where("shop_id = ?", shopID).First(&integration).Error; err != nil {
		return nil, ErrIntegrationNotFound
	}
	return &integration, nil
}

// Disconnect clears the stored tokens and parks the integration. The row
// stays so the status endpoint can report DISCONNECTED.
func (s *IntegrationService) Disconnect(shopID uuid.UUID) error {
	integration, err := s.Get(shopID)
	if err != nil {
		return err
	}

	updates := map[string]interface{}{
		"status":        models.IntegrationDisconnected,
		"access_token":  "",
		"refresh_token": "",
	}
	if err := s.db.Model(integration).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to disconnect integration: %w", err)
	}
	s.publishStatusChanged(integration, models.IntegrationDisconnected)
	return nil
}

// SyncNow pulls recent orders and the product catalog from Shopee and
// upserts them locally. Health bookkeeping runs on every outcome.
func (s *IntegrationService) SyncNow(shopID uuid.UUID) (*dto.SyncResultResponse, error) {
	integration, err := s.Get(shopID)
	if err != nil {
		return nil, err
	}
	if integration.Status == models.IntegrationDisconnected {
		return nil, ErrIntegrationDisconnected
	}
	if err := s.ensureFreshToken(integration); err != nil {
		return nil, err
	}

	ordersSynced, err := s.syncOrders(integration)
	if err != nil {
		s.recordFailure(integration, err)
		return nil, fmt.Errorf("order sync failed: %w", err)
	}

	productsSynced, err := s.syncProducts(integration)
	if err != nil {
		s.recordFailure(integration, err)
		return nil, fmt.Errorf("product sync failed: %w", err)
	}

	s.recordSuccess(integration, true)
	return &dto.SyncResultResponse{
		OrdersSynced:   ordersSynced,
		ProductsSynced: productsSynced,
	}, nil
}

// FetchOrderDetail pulls one order body from Shopee on behalf of webhook
// processing, with the same health bookkeeping as a sync.
func (s *IntegrationService) FetchOrderDetail(shopID uuid.UUID, orderSN string) (*shopee.OrderDetail, error) {
	integration, err := s.Get(shopID)
	if err != nil {
		return nil, err
	}
	if integration.Status == models.IntegrationDisconnected {
		return nil, ErrIntegrationDisconnected
	}
	if err := s.ensureFreshToken(integration); err != nil {
		return nil, err
	}

	details, err := s.client.GetOrderDetail(context.Background(), integration.AccessToken, integration.ShopeeShopID, []string{orderSN})
	if err != nil {
		s.recordFailure(integration, err)
		return nil, err
	}
	if len(details) == 0 {
		return nil, fmt.Errorf("order %s not found on Shopee", orderSN)
	}

	s.recordSuccess(integration, false)
	return &details[0], nil
}

// RefreshExpiring rotates tokens for integrations expiring inside the
// window. DISCONNECTED integrations are skipped; they need a seller re-auth.
func (s *IntegrationService) RefreshExpiring(window time.Duration) {
	var integrations []models.ShopeeIntegration
	err := s.db.
		Where("expires_at < ? AND status <> ?", time.Now().Add(window), models.IntegrationDisconnected).
		Find(&integrations).Error
	if err != nil {
		slog.Error("Failed to load integrations for token refresh", "error", err)
		return
	}

	for i := range integrations {
		integration := &integrations[i]
		if err := s.refreshToken(integration); err != nil {
			slog.Error("Token refresh failed",
				"error", err,
				"shop_id", integration.ShopID.String(),
				"shopee_shop_id", integration.ShopeeShopID)
			continue
		}
		slog.Info("Token refreshed",
			"shop_id", integration.ShopID.String(),
			"shopee_shop_id", integration.ShopeeShopID)
	}
}

// ensureFreshToken refreshes inline when the stored token is about to
// lapse, so a sync never starts with a token that dies mid-flight.
func (s *IntegrationService) ensureFreshToken(integration *models.ShopeeIntegration) error {
	if time.Now().Before(integration.ExpiresAt.Add(-2 * time.Minute)) {
		return nil
	}
	return s.refreshToken(integration)
}

// refreshToken rotates the token pair. Shopee invalidates the presented
// refresh token on success, so both values are persisted together. A
// rejection that means dead credentials parks the integration.
func (s *IntegrationService) refreshToken(integration *models.ShopeeIntegration) error {
	token, err := s.client.RefreshAccessToken(context.Background(), integration.RefreshToken, integration.ShopeeShopID)
	if err != nil {
		var apiErr *shopee.APIError
		if errors.As(err, &apiErr) && apiErr.AuthInvalid() {
			s.transition(integration, models.IntegrationDisconnected, apiErr.Error())
			return fmt.Errorf("refresh token rejected: %w", err)
		}
		s.recordFailure(integration, err)
		return err
	}

	updates := map[string]interface{}{
		"access_token":  token.AccessToken,
		"refresh_token": token.RefreshToken,
		"expires_at":    time.Now().Add(time.Duration(token.ExpireIn) * time.Second),
		"failure_count": 0,
		"status":        models.IntegrationHealthy,
		"last_error":    "",
	}
	if err := s.db.Model(integration).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to store refreshed tokens: %w", err)
	}

	if integration.Status != models.IntegrationHealthy {
		s.publishStatusChanged(integration, models.IntegrationHealthy)
	}
	integration.AccessToken = token.AccessToken
	integration.RefreshToken = token.RefreshToken
	integration.Status = models.IntegrationHealthy
	integration.FailureCount = 0
	return nil
}

func (s *IntegrationService) syncOrders(integration *models.ShopeeIntegration) (int, error) {
	ctx := context.Background()
	to := time.Now()
	from := to.Add(-syncWindow)

	var orderSNs []string
	cursor := ""
	for {
		page, err := s.client.GetOrderList(ctx, integration.AccessToken, integration.ShopeeShopID, from, to, cursor)
		if err != nil {
			return 0, err
		}
		for _, o := range page.Response.OrderList {
			orderSNs = append(orderSNs, o.OrderSN)
		}
		if !page.Response.More || page.Response.NextCursor == "" {
			break
		}
		cursor = page.Response.NextCursor
	}

	synced := 0
	for start := 0; start < len(orderSNs); start += detailBatchSize {
		end := start + detailBatchSize
		if end > len(orderSNs) {
			end = len(orderSNs)
		}
		details, err := s.client.GetOrderDetail(ctx, integration.AccessToken, integration.ShopeeShopID, orderSNs[start:end])
		if err != nil {
			return synced, err
		}
		for i := range details {
			if _, err := s.orders.UpsertExternal(integration.ShopID, externalOrderFromDetail(&details[i])); err != nil {
				return synced, err
			}
			synced++
		}
	}
	return synced, nil
}

func (s *IntegrationService) syncProducts(integration *models.ShopeeIntegration) (int, error) {
	ctx := context.Background()

	var itemIDs []int64
	offset := 0
	for {
		page, err := s.client.GetItemList(ctx, integration.AccessToken, integration.ShopeeShopID, offset)
		if err != nil {
			return 0, err
		}
		for _, item := range page.Response.Item {
			itemIDs = append(itemIDs, item.ItemID)
		}
		if !page.Response.HasNextPage {
			break
		}
		offset = page.Response.NextOffset
	}

	synced := 0
	for start := 0; start < len(itemIDs); start += detailBatchSize {
		end := start + detailBatchSize
		if end > len(itemIDs) {
			end = len(itemIDs)
		}
		infos, err := s.client.GetItemBaseInfo(ctx, integration.AccessToken, integration.ShopeeShopID, itemIDs[start:end])
		if err != nil {
			return synced, err
		}
		for i := range infos {
			if err := s.products.UpsertExternal(integration.ShopID, externalProductFromInfo(&infos[i])); err != nil {
				return synced, err
			}
			synced++
		}
	}
	return synced, nil
}

// recordSuccess resets the failure bookkeeping. touchSync additionally
// stamps last_sync_at for operations that moved catalog or order data.
func (s *IntegrationService) recordSuccess(integration *models.ShopeeIntegration, touchSync bool) {
	updates := map[string]interface{}{
		"failure_count": 0,
		"status":        models.IntegrationHealthy,
		"last_error":    "",
	}
	if touchSync {
		updates["last_sync_at"] = time.Now()
	}
	if err := s.db.Model(integration).Updates(updates).Error; err != nil {
		slog.Error("Failed to record integration success", "error", err, "shop_id", integration.ShopID.String())
		return
	}
	if integration.Status != models.IntegrationHealthy {
		s.publishStatusChanged(integration, models.IntegrationHealthy)
	}
	integration.Status = models.IntegrationHealthy
	integration.FailureCount = 0
}

// recordFailure bumps the failure counter and flips UNHEALTHY at the
// threshold. Auth rejections park the integration outright.
func (s *IntegrationService) recordFailure(integration *models.ShopeeIntegration, cause error) {
	var apiErr *shopee.APIError
	if errors.As(cause, &apiErr) && apiErr.AuthInvalid() {
		s.transition(integration, models.IntegrationDisconnected, cause.Error())
		return
	}

	count := integration.FailureCount + 1
	status := integration.Status
	if count >= models.IntegrationFailureThreshold {
		status = models.IntegrationUnhealthy
	}

	updates := map[string]interface{}{
		"failure_count": count,
		"last_error":    cause.Error(),
		"status":        status,
	}
	if err := s.db.Model(integration).Updates(updates).Error; err != nil {
		slog.Error("Failed to record integration failure", "error", err, "shop_id", integration.ShopID.String())
		return
	}
	if status != integration.Status {
		s.publishStatusChanged(integration, status)
	}
	integration.FailureCount = count
	integration.Status = status
}

func (s *IntegrationService) transition(integration *models.ShopeeIntegration, status, lastError string) {
	updates := map[string]interface{}{
		"status":     status,
		"last_error": lastError,
	}
	if err := s.db.Model(integration).Updates(updates).Error; err != nil {
		slog.Error("Failed to transition integration", "error", err, "shop_id", integration.ShopID.String())
		return
	}
	if integration.Status != status {
		s.publishStatusChanged(integration, status)
	}
	integration.Status = status
}

func (s *IntegrationService) publishStatusChanged(integration *models.ShopeeIntegration, status string) {
	event := events.New(events.TypeIntegrationStatusChanged, integration.ShopID, map[string]interface{}{
		"integration_id": integration.ID,
		"shopee_shop_id": integration.ShopeeShopID,
		"status":         status,
	})
	if err := s.publisher.Publish(event); err != nil {
		slog.Warn("Failed to publish integration event", "error", err, "shop_id", integration.ShopID.String())
	}
}

// AuthorizationURL returns the Shopee consent link a seller visits to start
// the connect flow.
func (s *IntegrationService) AuthorizationURL(redirectURL string) string {
	return s.client.AuthorizationURL(redirectURL)
}

// IntegrationResponse maps an integration row to its API shape. Tokens never
// leave the service layer.
func IntegrationResponse(i *models.ShopeeIntegration) dto.IntegrationResponse {
	return dto.IntegrationResponse{
		ID:           i.ID,
		ShopID:       i.ShopID,
		ShopeeShopID: i.ShopeeShopID,
		Status:       i.Status,
		FailureCount: i.FailureCount,
		ExpiresAt:    i.ExpiresAt,
		LastSyncAt:   i.LastSyncAt,
		LastError:    i.LastError,
		CreatedAt:    i.CreatedAt,
	}
}

func externalOrderFromDetail(d *shopee.OrderDetail) ExternalOrder {
	items, err := orderItemsJSON(d.ItemList)
	if err != nil {
		items = nil
	}
	return ExternalOrder{
		ShopeeOrderID:   d.OrderSN,
		Status:          d.OrderStatus,
		Total:           d.TotalAmount,
		Currency:        d.Currency,
		CustomerName:    d.RecipientAddress.Name,
		CustomerPhone:   d.RecipientAddress.Phone,
		CustomerAddress: d.RecipientAddress.FullAddress,
		Items:           items,
	}
}

func externalProductFromInfo(info *shopee.ItemInfo) ExternalProduct {
	ext := ExternalProduct{
		ShopeeProductID: info.ItemID,
		Name:            info.ItemName,
		SKU:             info.ItemSKU,
		Stock:           info.StockInfoV2.SummaryInfo.TotalAvailableStock,
		Status:          productStatusFromShopee(info.ItemStatus),
	}
	if len(info.PriceInfo) > 0 {
		ext.Price = info.PriceInfo[0].CurrentPrice
		ext.Currency = info.PriceInfo[0].Currency
	}
	return ext
}

func orderItemsJSON(items []shopee.OrderItem) (datatypes.JSON, error) {
	raw, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

func productStatusFromShopee(itemStatus string) string {
	switch itemStatus {
	case "NORMAL":
		return "ACTIVE"
	case "BANNED", "REVIEWING":
		return "BANNED"
	case "DELETED", "UNLIST":
		return "INACTIVE"
	}
	return "ACTIVE"
}
