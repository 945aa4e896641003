package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/sellerdesk/sellerdesk-backend/internal/dto"
	"github.com/sellerdesk/sellerdesk-backend/internal/services"
	"github.com/sellerdesk/sellerdesk-backend/internal/tenant"
)

type WebhookHandler struct {
	webhookService *services.WebhookService
}

func NewWebhookHandler(webhookService *services.WebhookService) *WebhookHandler {
	return &WebhookHandler{webhookService: webhookService}
}

// IngestShopee receives marketplace pushes. Shopee expects a fast 2xx;
// anything slow gets retried on their side, so processing happens off
// the request path.
func (h *WebhookHandler) IngestShopee(c *fiber.Ctx) error {
	shopID, err := uuid.Parse(c.Params("shop_id"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: true, Message: "Unknown shop",
		})
	}

	payload, duplicate, err := h.webhookService.Ingest(shopID, c.Body(), c.Get("Authorization"))
	if err != nil {
		if errors.Is(err, services.ErrSignatureInvalid) {
			slog.Warn("Webhook signature rejected", "shop_id", shopID.String())
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Invalid signature",
			})
		}
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid webhook payload",
		})
	}
	if duplicate {
		return c.JSON(fiber.Map{"received": true, "duplicate": true})
	}

	h.webhookService.ProcessAsync(payload.ID)

	slog.Info("Webhook accepted", "shop_id", shopID.String(), "event_type", payload.EventType, "payload_id", payload.ID.String())
	return c.JSON(fiber.Map{"received": true})
}

func (h *WebhookHandler) List(c *fiber.Ctx) error {
	shopID := tenant.GetShopID(c)

	filter := services.WebhookFilter{
		Status: c.Query("status"),
		Page:   c.QueryInt("page"),
		Limit:  c.QueryInt("limit"),
	}

	result, err := h.webhookService.List(shopID, filter)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to list webhooks",
		})
	}

	return c.JSON(result)
}

func (h *WebhookHandler) Get(c *fiber.Ctx) error {
	shopID := tenant.GetShopID(c)

	payloadID, err := uuid.Parse(c.Params("webhook_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid webhook id",
		})
	}

	payload, err := h.webhookService.Get(shopID, payloadID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: true, Message: "Webhook not found",
		})
	}

	return c.JSON(services.WebhookResponse(payload))
}

func (h *WebhookHandler) Retry(c *fiber.Ctx) error {
	shopID := tenant.GetShopID(c)

	payloadID, err := uuid.Parse(c.Params("webhook_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid webhook id",
		})
	}

	payload, err := h.webhookService.Retry(shopID, payloadID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrWebhookNotFound):
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		case errors.Is(err, services.ErrNotRetryable):
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to retry webhook",
		})
	}

	return c.JSON(services.WebhookResponse(payload))
}
