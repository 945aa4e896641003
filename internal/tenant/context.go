package tenant

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Locals keys set by the shop-access middleware.
const (
	LocalShopID   = "shop_id"
	LocalShopRole = "shop_role"
)

// GetShopID extracts the shop UUID from Fiber context locals.
func GetShopID(c *fiber.Ctx) uuid.UUID {
	if id, ok := c.Locals(LocalShopID).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}

// GetShopRole extracts the caller's membership role for the current shop.
func GetShopRole(c *fiber.Ctx) string {
	if role, ok := c.Locals(LocalShopRole).(string); ok {
		return role
	}
	return ""
}

// GetUserID extracts the user UUID from JWT claims in context.
func GetUserID(c *fiber.Ctx) (uuid.UUID, error) {
	claims, err := tokenClaims(c)
	if err != nil {
		return uuid.Nil, err
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return uuid.Nil, errors.New("missing sub claim")
	}

	return uuid.Parse(sub)
}

// GetUserEmail extracts the email claim from the JWT in context.
func GetUserEmail(c *fiber.Ctx) (string, error) {
	claims, err := tokenClaims(c)
	if err != nil {
		return "", err
	}

	email, ok := claims["email"].(string)
	if !ok || email == "" {
		return "", errors.New("missing email claim")
	}
	return email, nil
}

func tokenClaims(c *fiber.Ctx) (jwt.MapClaims, error) {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok {
		return nil, errors.New("invalid token in context")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid claims")
	}
	return claims, nil
}
