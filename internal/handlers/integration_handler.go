package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/sellerdesk/sellerdesk-backend/internal/config"
	"github.com/sellerdesk/sellerdesk-backend/internal/dto"
	"github.com/sellerdesk/sellerdesk-backend/internal/services"
	"github.com/sellerdesk/sellerdesk-backend/internal/tenant"
)

type IntegrationHandler struct {
	integrationService *services.IntegrationService
	cfg                *config.Config
}

func NewIntegrationHandler(integrationService *services.IntegrationService, cfg *config.Config) *IntegrationHandler {
	return &IntegrationHandler{integrationService: integrationService, cfg: cfg}
}

// AuthURL returns the Shopee consent page URL the seller must visit to
// authorize this shop. The code query param Shopee appends on redirect
// is what Connect exchanges for tokens.
func (h *IntegrationHandler) AuthURL(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"auth_url": h.integrationService.AuthorizationURL(h.cfg.ShopeeRedirectURL),
	})
}

func (h *IntegrationHandler) Connect(c *fiber.Ctx) error {
	shopID := tenant.GetShopID(c)

	var req dto.ConnectIntegrationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	integration, err := h.integrationService.Connect(shopID, &req)
	if err != nil {
		if errors.Is(err, services.ErrIntegrationExists) {
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(services.IntegrationResponse(integration))
}

func (h *IntegrationHandler) Get(c *fiber.Ctx) error {
	shopID := tenant.GetShopID(c)

	integration, err := h.integrationService.Get(shopID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: true, Message: "Integration not found",
		})
	}

	return c.JSON(services.IntegrationResponse(integration))
}

func (h *IntegrationHandler) Disconnect(c *fiber.Ctx) error {
	shopID := tenant.GetShopID(c)

	if err := h.integrationService.Disconnect(shopID); err != nil {
		if errors.Is(err, services.ErrIntegrationNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to disconnect integration",
		})
	}

	return c.JSON(dto.MessageResponse{Message: "Integration disconnected"})
}

func (h *IntegrationHandler) SyncNow(c *fiber.Ctx) error {
	shopID := tenant.GetShopID(c)

	result, err := h.integrationService.SyncNow(shopID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrIntegrationNotFound):
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		case errors.Is(err, services.ErrIntegrationDisconnected):
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(),
		})
	}

	return c.JSON(result)
}
