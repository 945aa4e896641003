package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"gorm.io/gorm"

	"github.com/sellerdesk/sellerdesk-backend/internal/config"
	"github.com/sellerdesk/sellerdesk-backend/internal/handlers"
	"github.com/sellerdesk/sellerdesk-backend/internal/middleware"
	"github.com/sellerdesk/sellerdesk-backend/internal/models"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	db *gorm.DB,
	authHandler *handlers.AuthHandler,
	shopHandler *handlers.ShopHandler,
	invitationHandler *handlers.InvitationHandler,
	productHandler *handlers.ProductHandler,
	orderHandler *handlers.OrderHandler,
	integrationHandler *handlers.IntegrationHandler,
	webhookHandler *handlers.WebhookHandler,
	healthHandler *handlers.HealthHandler,
) {
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	// Health (no auth required)
	api.Get("/health", healthHandler.Check)

	// Public auth routes, with a stricter limit: 10 req/min per IP
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/refresh", authHandler.Refresh)
	auth.Post("/google", authHandler.GoogleSignIn)
	auth.Post("/verify-email", authHandler.VerifyEmail)
	auth.Post("/password-reset/request", authHandler.RequestPasswordReset)
	auth.Post("/password-reset/confirm", authHandler.ConfirmPasswordReset)

	// Protected auth routes get JWT middleware individually so the
	// public ones above stay public.
	api.Get("/auth/me", middleware.JWTProtected(cfg), authHandler.Me)
	api.Post("/auth/logout", middleware.JWTProtected(cfg), authHandler.Logout)
	api.Delete("/auth/account", middleware.JWTProtected(cfg), authHandler.DeleteAccount)

	// Webhook ingest is signature-authenticated, no JWT
	webhooks := api.Group("/webhooks")
	webhooks.Post("/shopee/:shop_id", webhookHandler.IngestShopee)

	// Invitation acceptance happens before the caller is a member, so it
	// cannot live under the shop-scoped group.
	api.Post("/invitations/accept", middleware.JWTProtected(cfg), invitationHandler.Accept)

	// Shops
	shops := api.Group("/shops", middleware.JWTProtected(cfg))
	shops.Post("/", shopHandler.Create)
	shops.Get("/", shopHandler.ListMine)

	// Everything below requires membership of :shop_id
	shop := shops.Group("/:shop_id", middleware.ShopAccess(db))
	shop.Get("/", shopHandler.Get)
	shop.Put("/", middleware.RequireShopRole(models.RoleOwner, models.RoleAdmin), shopHandler.Update)
	shop.Delete("/", middleware.RequireShopRole(models.RoleOwner), shopHandler.Delete)

	shop.Get("/members", shopHandler.ListMembers)
	shop.Put("/members/:user_id", middleware.RequireShopRole(models.RoleOwner), shopHandler.UpdateMemberRole)
	// Any member may remove themself; removing others is checked in the service.
	shop.Delete("/members/:user_id", shopHandler.RemoveMember)

	invitations := shop.Group("/invitations", middleware.RequireShopRole(models.RoleOwner, models.RoleAdmin))
	invitations.Post("/", invitationHandler.Create)
	invitations.Get("/", invitationHandler.List)
	invitations.Delete("/:invitation_id", invitationHandler.Revoke)

	products := shop.Group("/products")
	products.Get("/", productHandler.List)
	products.Get("/:product_id", productHandler.Get)
	products.Post("/", middleware.RequireShopRole(models.RoleOwner, models.RoleAdmin), productHandler.Create)
	products.Put("/:product_id", middleware.RequireShopRole(models.RoleOwner, models.RoleAdmin), productHandler.Update)
	products.Delete("/:product_id", middleware.RequireShopRole(models.RoleOwner, models.RoleAdmin), productHandler.Delete)
	products.Post("/:product_id/stock", middleware.RequireShopRole(models.RoleOwner, models.RoleAdmin, models.RolePacker), productHandler.AdjustStock)

	orders := shop.Group("/orders")
	orders.Get("/", orderHandler.List)
	orders.Get("/:order_id", orderHandler.Get)
	orders.Post("/", middleware.RequireShopRole(models.RoleOwner, models.RoleAdmin), orderHandler.Create)
	orders.Put("/:order_id/status", middleware.RequireShopRole(models.RoleOwner, models.RoleAdmin, models.RolePacker), orderHandler.UpdateStatus)

	integration := shop.Group("/integration", middleware.RequireShopRole(models.RoleOwner, models.RoleAdmin))
	integration.Get("/auth-url", integrationHandler.AuthURL)
	integration.Post("/", integrationHandler.Connect)
	integration.Get("/", integrationHandler.Get)
	integration.Delete("/", integrationHandler.Disconnect)
	integration.Post("/sync", integrationHandler.SyncNow)

	shopWebhooks := shop.Group("/webhooks", middleware.RequireShopRole(models.RoleOwner, models.RoleAdmin))
	shopWebhooks.Get("/", webhookHandler.List)
	shopWebhooks.Get("/:webhook_id", webhookHandler.Get)
	shopWebhooks.Post("/:webhook_id/retry", webhookHandler.Retry)
}
