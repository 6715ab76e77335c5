package routes

import (
	"time"

	"github.com/aslammaulana/yt-manager-backend/internal/config"
	"github.com/aslammaulana/yt-manager-backend/internal/handlers"
	"github.com/aslammaulana/yt-manager-backend/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"gorm.io/gorm"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	db *gorm.DB,
	authHandler *handlers.AuthHandler,
	googleHandler *handlers.GoogleHandler,
	accountHandler *handlers.AccountHandler,
	statsHandler *handlers.StatsHandler,
	txHandler *handlers.TransactionHandler,
	adminHandler *handlers.AdminHandler,
	uploadHandler *handlers.UploadHandler,
	healthHandler *handlers.HealthHandler,
) {
	api := app.Group("/api")

	// General API rate limiter: 120 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               120,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	// Health (public)
	api.Get("/health", healthHandler.Check)

	// Auth — public, with a stricter limit: 10 req/min per IP
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

	jwtProtected := middleware.JWTProtected(cfg)
	membership := middleware.MembershipRequired(db)

	// Session routes (JWT required, but no membership gate: an expired
	// user must still reach their profile and logout)
	api.Get("/auth/me", jwtProtected, authHandler.Me)
	api.Post("/auth/logout", jwtProtected, authHandler.Logout)
	api.Delete("/auth/account", jwtProtected, authHandler.DeleteAccount)

	// Transactions stay reachable for expired users so they can renew
	api.Post("/transactions", jwtProtected, txHandler.Create)
	api.Get("/transactions", jwtProtected, txHandler.List)

	// Dashboard routes: JWT + active membership
	api.Get("/google/connect", jwtProtected, membership, googleHandler.Connect)
	api.Post("/google/callback", jwtProtected, membership, googleHandler.Callback)
	api.Get("/stats", jwtProtected, membership, statsHandler.Get)
	api.Get("/accounts", jwtProtected, membership, accountHandler.List)
	api.Get("/accounts/:gmail/token", jwtProtected, membership, accountHandler.Token)
	api.Delete("/accounts/:gmail", jwtProtected, membership, accountHandler.Delete)
	api.Post("/videos", jwtProtected, membership, uploadHandler.UploadVideo)
	api.Post("/videos/:id/thumbnail", jwtProtected, membership, uploadHandler.SetThumbnail)

	// Admin panel (JWT + admin required)
	admin := api.Group("/admin", jwtProtected, middleware.AdminRequired(db, cfg))
	admin.Get("/users", adminHandler.ListUsers)
	admin.Put("/users/:id/role", adminHandler.SetRole)
	admin.Get("/transactions", txHandler.List)
	admin.Post("/transactions/:id/approve", txHandler.Approve)
	admin.Post("/transactions/:id/reject", txHandler.Reject)
	admin.Post("/accounts/import", accountHandler.Import)
}
