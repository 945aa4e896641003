package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/sellerdesk/sellerdesk-backend/internal/cache"
	"github.com/sellerdesk/sellerdesk-backend/internal/database"
	"github.com/sellerdesk/sellerdesk-backend/internal/dto"
)

type HealthHandler struct {
	cache     *cache.Client
	startedAt time.Time
}

func NewHealthHandler(cacheClient *cache.Client) *HealthHandler {
	return &HealthHandler{cache: cacheClient, startedAt: time.Now()}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	dbStatus := "ok"
	if err := database.Ping(); err != nil {
		dbStatus = "unhealthy: " + err.Error()
	}

	redisStatus := "ok"
	if err := h.cache.Ping(c.Context()); err != nil {
		redisStatus = "unhealthy: " + err.Error()
	}

	return c.JSON(dto.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(h.startedAt).Round(time.Second).String(),
		DB:        dbStatus,
		Redis:     redisStatus,
	})
}
