package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/sellerdesk/sellerdesk-backend/internal/dto"
	"github.com/sellerdesk/sellerdesk-backend/internal/services"
	"github.com/sellerdesk/sellerdesk-backend/internal/tenant"
)

type OrderHandler struct {
	orderService *services.OrderService
}

func NewOrderHandler(orderService *services.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

func (h *OrderHandler) Create(c *fiber.Ctx) error {
	shopID := tenant.GetShopID(c)

	var req dto.CreateOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	order, err := h.orderService.Create(shopID, &req)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(services.OrderResponse(order))
}

func (h *OrderHandler) List(c *fiber.Ctx) error {
	shopID := tenant.GetShopID(c)

	filter := services.OrderFilter{
		Status:   c.Query("status"),
		Platform: c.Query("platform"),
		Search:   c.Query("search"),
		Page:     c.QueryInt("page"),
		Limit:    c.QueryInt("limit"),
	}
	if from := c.Query("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: "Invalid 'from' timestamp, expected RFC 3339",
			})
		}
		filter.From = &t
	}
	if to := c.Query("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: "Invalid 'to' timestamp, expected RFC 3339",
			})
		}
		filter.To = &t
	}

	result, err := h.orderService.List(shopID, filter)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to list orders",
		})
	}

	return c.JSON(result)
}

func (h *OrderHandler) Get(c *fiber.Ctx) error {
	shopID := tenant.GetShopID(c)

	orderID, err := uuid.Parse(c.Params("order_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid order id",
		})
	}

	order, err := h.orderService.Get(shopID, orderID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: true, Message: "Order not found",
		})
	}

	return c.JSON(services.OrderResponse(order))
}

func (h *OrderHandler) UpdateStatus(c *fiber.Ctx) error {
	shopID := tenant.GetShopID(c)

	orderID, err := uuid.Parse(c.Params("order_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid order id",
		})
	}

	var req dto.UpdateOrderStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	order, err := h.orderService.UpdateStatus(shopID, orderID, req.Status)
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(),
		})
	}

	return c.JSON(services.OrderResponse(order))
}
