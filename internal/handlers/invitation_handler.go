package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/sellerdesk/sellerdesk-backend/internal/dto"
	"github.com/sellerdesk/sellerdesk-backend/internal/services"
	"github.com/sellerdesk/sellerdesk-backend/internal/tenant"
)

type InvitationHandler struct {
	invitationService *services.InvitationService
}

func NewInvitationHandler(invitationService *services.InvitationService) *InvitationHandler {
	return &InvitationHandler{invitationService: invitationService}
}

func (h *InvitationHandler) Create(c *fiber.Ctx) error {
	shopID := tenant.GetShopID(c)

	inviterID, err := tenant.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	var req dto.CreateInvitationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	inv, err := h.invitationService.Create(shopID, inviterID, &req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInviteExists), errors.Is(err, services.ErrAlreadyMember):
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		case errors.Is(err, services.ErrInvalidRole):
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(),
		})
	}

	// The inviter gets the token back so they can pass it on themselves;
	// there is no outbound mail here.
	return c.Status(fiber.StatusCreated).JSON(services.InvitationResponse(inv, true))
}

func (h *InvitationHandler) List(c *fiber.Ctx) error {
	shopID := tenant.GetShopID(c)

	invites, err := h.invitationService.ListPending(shopID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to list invitations",
		})
	}

	out := make([]dto.InvitationResponse, len(invites))
	for i := range invites {
		out[i] = services.InvitationResponse(&invites[i], false)
	}
	return c.JSON(out)
}

func (h *InvitationHandler) Revoke(c *fiber.Ctx) error {
	shopID := tenant.GetShopID(c)

	invitationID, err := uuid.Parse(c.Params("invitation_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid invitation id",
		})
	}

	if err := h.invitationService.Revoke(shopID, invitationID); err != nil {
		if errors.Is(err, services.ErrInvitationInvalid) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to revoke invitation",
		})
	}

	return c.JSON(dto.MessageResponse{Message: "Invitation revoked"})
}

func (h *InvitationHandler) Accept(c *fiber.Ctx) error {
	userID, err := tenant.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}
	userEmail, err := tenant.GetUserEmail(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	var req dto.AcceptInvitationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}
	if req.Token == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invitation token is required",
		})
	}

	member, err := h.invitationService.Accept(userID, userEmail, req.Token)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvitationMismatch):
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		case errors.Is(err, services.ErrAlreadyMember):
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		case errors.Is(err, services.ErrInvitationInvalid):
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to accept invitation",
		})
	}

	return c.JSON(fiber.Map{
		"shop_id": member.ShopID,
		"role":    member.Role,
	})
}
