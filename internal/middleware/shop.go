package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sellerdesk/sellerdesk-backend/internal/dto"
	"github.com/sellerdesk/sellerdesk-backend/internal/models"
	"github.com/sellerdesk/sellerdesk-backend/internal/tenant"
	"gorm.io/gorm"
)

// ShopAccess resolves the :shop_id path param, loads the caller's membership
// and stores shop id + role in context locals. A shop the caller is not a
// member of reads as not found, so membership cannot be probed.
func ShopAccess(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		shopID, err := uuid.Parse(c.Params("shop_id"))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: "Invalid shop id",
			})
		}

		userID, err := tenant.GetUserID(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Unauthorized",
			})
		}

		var membership models.ShopUser
		err = db.Where("shop_id = ? AND user_id = ?", shopID, userID).First(&membership).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
					Error: true, Message: "Shop not found",
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
				Error: true, Message: "Internal server error",
			})
		}

		c.Locals(tenant.LocalShopID, shopID)
		c.Locals(tenant.LocalShopRole, membership.Role)
		return c.Next()
	}
}
