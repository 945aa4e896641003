package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sellerdesk/sellerdesk-backend/internal/dto"
	"github.com/sellerdesk/sellerdesk-backend/internal/tenant"
)

// RequireShopRole gates a route to members holding one of the given roles.
// Must run after ShopAccess.
func RequireShopRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role := tenant.GetShopRole(c)
		for _, allowed := range roles {
			if role == allowed {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
			Error: true, Message: "Insufficient role for this action",
		})
	}
}
