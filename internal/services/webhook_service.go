package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sellerdesk/sellerdesk-backend/internal/config"
	"github.com/sellerdesk/sellerdesk-backend/internal/dto"
	"github.com/sellerdesk/sellerdesk-backend/internal/events"
	"github.com/sellerdesk/sellerdesk-backend/internal/models"
	"github.com/sellerdesk/sellerdesk-backend/internal/shopee"
	"github.com/sellerdesk/sellerdesk-backend/internal/tenant"
)

var (
	ErrWebhookNotFound  = errors.New("webhook payload not found")
	ErrSignatureInvalid = errors.New("webhook signature mismatch")
	ErrNotRetryable     = errors.New("webhook is not in a failed state")
)

const (
	webhookDedupTTL      = 24 * time.Hour
	stuckProcessingAfter = 10 * time.Minute
	retryBaseBackoff     = time.Minute
)

// dedupStore is the slice of the Redis client webhook ingestion needs.
type dedupStore interface {
	MarkWebhookSeen(ctx context.Context, platform, deliveryID string, ttl time.Duration) (bool, error)
}

// orderDetailFetcher pulls a full order from the marketplace when a push
// payload does not carry enough to upsert locally.
type orderDetailFetcher interface {
	FetchOrderDetail(shopID uuid.UUID, orderSN string) (*shopee.OrderDetail, error)
}

type WebhookService struct {
	db        *gorm.DB
	cfg       *config.Config
	dedup     dedupStore
	fetcher   orderDetailFetcher
	orders    *OrderService
	products  *ProductService
	publisher events.Publisher
}

func NewWebhookService(db *gorm.DB, cfg *config.Config, dedup dedupStore, fetcher orderDetailFetcher, orders *OrderService, products *ProductService, publisher events.Publisher) *WebhookService {
	return &WebhookService{
		db:        db,
		cfg:       cfg,
		dedup:     dedup,
		fetcher:   fetcher,
		orders:    orders,
		products:  products,
		publisher: publisher,
	}
}

// Ingest validates and stores a marketplace push. It returns the stored row,
// or duplicate=true when the delivery id was already seen. The caller must
// respond fast; processing happens asynchronously.
func (s *WebhookService) Ingest(shopID uuid.UUID, raw []byte, signature string) (*models.WebhookPayload, bool, error) {
	if !shopee.VerifyPushSignature(s.cfg.ShopeePartnerKey, s.cfg.ShopeePushURL, raw, signature) {
		return nil, false, ErrSignatureInvalid
	}

	var push dto.ShopeePush
	if err := json.Unmarshal(raw, &push); err != nil {
		return nil, false, fmt.Errorf("malformed push body: %w", err)
	}

	deliveryID := push.MsgID
	if deliveryID == "" {
		sum := sha256.Sum256(raw)
		deliveryID = hex.EncodeToString(sum[:])
	}

	fresh, err := s.dedup.MarkWebhookSeen(context.Background(), models.PlatformShopee, deliveryID, webhookDedupTTL)
	if err != nil {
		// Dedup is best-effort; losing Redis must not drop deliveries.
		slog.Warn("Webhook dedup check failed, accepting delivery", "error", err, "delivery_id", deliveryID)
		fresh = true
	}
	if !fresh {
		return nil, true, nil
	}

	payload := models.WebhookPayload{
		ID:        uuid.New(),
		ShopID:    shopID,
		Platform:  models.PlatformShopee,
		EventType: eventTypeFromCode(push.Code),
		Payload:   raw,
		Signature: signature,
		Status:    models.WebhookPending,
	}
	if err := s.db.Create(&payload).Error; err != nil {
		return nil, false, fmt.Errorf("failed to store webhook payload: %w", err)
	}
	return &payload, false, nil
}

// ProcessAsync kicks processing of a stored payload off the request path.
func (s *WebhookService) ProcessAsync(payloadID uuid.UUID) {
	go func() {
		if err := s.Process(payloadID); err != nil {
			slog.Error("Webhook processing failed", "error", err, "payload_id", payloadID.String())
		}
	}()
}

// Process claims a PENDING payload and runs its handler. The claim is a
// guarded update, so two workers racing on the same row cannot both win.
func (s *WebhookService) Process(payloadID uuid.UUID) error {
	claim := s.db.Model(&models.WebhookPayload{}).
		Where("id = ? AND status = ?", payloadID, models.WebhookPending).
		Update("status", models.WebhookProcessing)
	if claim.Error != nil {
		return fmt.Errorf("failed to claim webhook %s: %w", payloadID, claim.Error)
	}
	if claim.RowsAffected == 0 {
		return nil
	}

	var payload models.WebhookPayload
	if err := s.db.First(&payload, "id = ?", payloadID).Error; err != nil {
		return fmt.Errorf("claimed webhook %s vanished: %w", payloadID, err)
	}

	if err := s.dispatch(&payload); err != nil {
		s.markFailed(&payload, err)
		return err
	}

	now := time.Now()
	err := s.db.Model(&payload).Updates(map[string]interface{}{
		"status":        models.WebhookCompleted,
		"processed_at":  now,
		"error_message": "",
	}).Error
	if err != nil {
		return fmt.Errorf("failed to complete webhook %s: %w", payloadID, err)
	}

	slog.Info("Webhook processed",
		"payload_id", payload.ID.String(),
		"shop_id", payload.ShopID.String(),
		"event_type", payload.EventType)
	return nil
}

func (s *WebhookService) dispatch(payload *models.WebhookPayload) error {
	var push dto.ShopeePush
	if err := json.Unmarshal(payload.Payload, &push); err != nil {
		return fmt.Errorf("malformed stored payload: %w", err)
	}

	switch payload.EventType {
	case "order_status_update":
		return s.handleOrderStatus(payload.ShopID, push.Data)
	case "item_banned":
		return s.handleItemBanned(payload.ShopID, push.Data)
	case "stock_update", "item_update":
		return s.handleItemUpdate(payload.ShopID, push.Data)
	case "test_push":
		return nil
	default:
		// Unknown events are acknowledged, not failed; Shopee adds codes
		// faster than this switch grows.
		slog.Info("Ignoring unhandled webhook event",
			"event_type", payload.EventType,
			"shop_id", payload.ShopID.String())
		return nil
	}
}

// handleOrderStatus applies a status push to a known order, falling back to
// a detail fetch when the order has never been ingested.
func (s *WebhookService) handleOrderStatus(shopID uuid.UUID, data json.RawMessage) error {
	var event dto.ShopeeOrderStatusData
	if err := json.Unmarshal(data, &event); err != nil {
		return fmt.Errorf("malformed order status data: %w", err)
	}
	if event.OrderSN == "" {
		return errors.New("order status push carries no order sn")
	}

	err := s.orders.SetStatusByExternalID(shopID, event.OrderSN, event.Status)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrOrderNotFound) {
		return err
	}

	detail, err := s.fetcher.FetchOrderDetail(shopID, event.OrderSN)
	if err != nil {
		return fmt.Errorf("order %s unknown locally and detail fetch failed: %w", event.OrderSN, err)
	}
	_, err = s.orders.UpsertExternal(shopID, externalOrderFromDetail(detail))
	return err
}

func (s *WebhookService) handleItemBanned(shopID uuid.UUID, data json.RawMessage) error {
	var event dto.ShopeeItemUpdateData
	if err := json.Unmarshal(data, &event); err != nil {
		return fmt.Errorf("malformed item banned data: %w", err)
	}
	return s.products.SetStatusByExternalID(shopID, event.ItemID, "BANNED")
}

func (s *WebhookService) handleItemUpdate(shopID uuid.UUID, data json.RawMessage) error {
	var event dto.ShopeeItemUpdateData
	if err := json.Unmarshal(data, &event); err != nil {
		return fmt.Errorf("malformed item update data: %w", err)
	}

	if event.ItemName == "" {
		// Bare stock pushes carry only the id and the new quantity.
		return s.products.SetStockByExternalID(shopID, event.ItemID, event.Stock)
	}

	price, err := decimal.NewFromString(event.Price)
	if err != nil {
		price = decimal.Zero
	}
	return s.products.UpsertExternal(shopID, ExternalProduct{
		ShopeeProductID: event.ItemID,
		Name:            event.ItemName,
		SKU:             event.ItemSKU,
		Stock:           event.Stock,
		Price:           price,
		Status:          productStatusFromShopee(event.Status),
	})
}

func (s *WebhookService) markFailed(payload *models.WebhookPayload, cause error) {
	retryCount := payload.RetryCount + 1
	err := s.db.Model(payload).Updates(map[string]interface{}{
		"status":        models.WebhookFailed,
		"error_message": cause.Error(),
		"retry_count":   retryCount,
	}).Error
	if err != nil {
		slog.Error("Failed to mark webhook failed", "error", err, "payload_id", payload.ID.String())
		return
	}
	payload.RetryCount = retryCount

	if retryCount >= models.MaxWebhookRetries {
		slog.Error("Webhook exhausted retries",
			"payload_id", payload.ID.String(),
			"shop_id", payload.ShopID.String(),
			"event_type", payload.EventType,
			"last_error", cause.Error())
		event := events.New(events.TypeWebhookFailed, payload.ShopID, map[string]interface{}{
			"payload_id": payload.ID,
			"event_type": payload.EventType,
			"error":      cause.Error(),
		})
		if err := s.publisher.Publish(event); err != nil {
			slog.Warn("Failed to publish webhook dead-letter event", "error", err)
		}
	}
}

// retryBackoff returns how long a payload waits after its n-th failure
// before it is eligible again: 1m, 2m, 4m, 8m, 16m.
func retryBackoff(retryCount int) time.Duration {
	if retryCount < 1 {
		return 0
	}
	return retryBaseBackoff << (retryCount - 1)
}

// RetryDue requeues FAILED payloads whose backoff has elapsed and rescues
// PROCESSING rows orphaned by a crash. Called from the retry cron tick.
func (s *WebhookService) RetryDue() {
	now := time.Now()

	var failed []models.WebhookPayload
	err := s.db.
		Where("status = ? AND retry_count < ?", models.WebhookFailed, models.MaxWebhookRetries).
		Find(&failed).Error
	if err != nil {
		slog.Error("Failed to load failed webhooks", "error", err)
		return
	}

	for i := range failed {
		payload := &failed[i]
		if now.Sub(payload.UpdatedAt) < retryBackoff(payload.RetryCount) {
			continue
		}
		if !s.requeue(payload.ID, models.WebhookFailed) {
			continue
		}
		if err := s.Process(payload.ID); err != nil {
			slog.Error("Webhook retry failed", "error", err, "payload_id", payload.ID.String())
		}
	}

	var stuck []models.WebhookPayload
	err = s.db.
		Where("status = ? AND updated_at < ?", models.WebhookProcessing, now.Add(-stuckProcessingAfter)).
		Find(&stuck).Error
	if err != nil {
		slog.Error("Failed to load stuck webhooks", "error", err)
		return
	}

	for i := range stuck {
		payload := &stuck[i]
		slog.Warn("Requeueing stuck webhook", "payload_id", payload.ID.String())
		if !s.requeue(payload.ID, models.WebhookProcessing) {
			continue
		}
		if err := s.Process(payload.ID); err != nil {
			slog.Error("Webhook requeue processing failed", "error", err, "payload_id", payload.ID.String())
		}
	}
}

// requeue flips a row back to PENDING, guarded on its current status so a
// concurrent worker cannot be raced.
func (s *WebhookService) requeue(payloadID uuid.UUID, fromStatus string) bool {
	result := s.db.Model(&models.WebhookPayload{}).
		Where("id = ? AND status = ?", payloadID, fromStatus).
		Update("status", models.WebhookPending)
	if result.Error != nil {
		slog.Error("Failed to requeue webhook", "error", result.Error, "payload_id", payloadID.String())
		return false
	}
	return result.RowsAffected > 0
}

type WebhookFilter struct {
	Status string
	Page   int
	Limit  int
}

func (s *WebhookService) List(shopID uuid.UUID, filter WebhookFilter) (*dto.WebhookListResponse, error) {
	page, limit, offset := normalizePage(filter.Page, filter.Limit)

	query := s.db.Model(&models.WebhookPayload{}).Scopes(tenant.ForShop(shopID))
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count webhooks: %w", err)
	}

	var payloads []models.WebhookPayload
	err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&payloads).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list webhooks: %w", err)
	}

	out := &dto.WebhookListResponse{
		Webhooks:   make([]dto.WebhookResponse, len(payloads)),
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages(total, limit),
	}
	for i := range payloads {
		out.Webhooks[i] = WebhookResponse(&payloads[i])
	}
	return out, nil
}

func (s *WebhookService) Get(shopID, payloadID uuid.UUID) (*models.WebhookPayload, error) {
	var payload models.WebhookPayload
	err := s.db.Scopes(tenant.ForShop(shopID)).
		First(&payload, "id = ?", payloadID).Error
	if err != nil {
		return nil, ErrWebhookNotFound
	}
	return &payload, nil
}

// Retry manually requeues a FAILED payload, max-retry count notwithstanding,
// and processes it inline.
func (s *WebhookService) Retry(shopID, payloadID uuid.UUID) (*models.WebhookPayload, error) {
	payload, err := s.Get(shopID, payloadID)
	if err != nil {
		return nil, err
	}
	if payload.Status != models.WebhookFailed {
		return nil, ErrNotRetryable
	}

	if !s.requeue(payloadID, models.WebhookFailed) {
		return nil, ErrNotRetryable
	}
	if err := s.Process(payloadID); err != nil {
		slog.Error("Manual webhook retry failed", "error", err, "payload_id", payloadID.String())
	}
	return s.Get(shopID, payloadID)
}

func eventTypeFromCode(code int) string {
	switch code {
	case 0:
		return "test_push"
	case 3:
		return "order_status_update"
	case 6:
		return "item_banned"
	case 8:
		return "stock_update"
	default:
		return fmt.Sprintf("code_%d", code)
	}
}

// WebhookResponse maps a payload row to its API shape. The raw body stays
// internal.
func WebhookResponse(p *models.WebhookPayload) dto.WebhookResponse {
	return dto.WebhookResponse{
		ID:          p.ID,
		ShopID:      p.ShopID,
		Platform:    p.Platform,
		EventType:   p.EventType,
		Status:      p.Status,
		RetryCount:  p.RetryCount,
		ErrorMsg:    p.ErrorMessage,
		ProcessedAt: p.ProcessedAt,
		CreatedAt:   p.CreatedAt,
	}
}
