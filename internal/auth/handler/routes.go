package handler

import (
	"strings"

	authconstant "github.com/AnthoniusHendriyanto/auth-core/pkg/constant"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// NewApp builds the fiber app with the shared middleware stack and all
// routes mounted. A nil throttler disables request throttling.
func NewApp(h *AuthHandler, throttler Throttler, corsOrigins []string) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "auth-core",
		ErrorHandler: ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	if len(corsOrigins) > 0 {
		app.Use(cors.New(cors.Config{
			AllowOrigins:     strings.Join(corsOrigins, ","),
			AllowCredentials: true,
		}))
	}

	RegisterRoutes(app, h, throttler)
	return app
}

func RegisterRoutes(app *fiber.App, h *AuthHandler, throttler Throttler) {
	limit := func(route string) fiber.Handler {
		return Throttle(throttler, route, h.logger)
	}

	app.Get("/health", h.Health)

	auth := app.Group("/api/v1/auth")
	auth.Post("/signup", limit("signup"), h.Signup)
	auth.Post("/verify-email", h.VerifyEmail)
	auth.Post("/resend-verification", limit("resend-verification"), h.ResendVerification)
	auth.Post("/login", limit("login"), h.Login)
	auth.Post("/refresh", limit("refresh"), h.Refresh)
	auth.Post("/logout", h.Logout)
	auth.Post("/forgot-password", limit("forgot-password"), h.ForgotPassword)
	auth.Post("/reset-password", h.ResetPassword)
	auth.Get("/sessions", h.RequireAuth(), h.ListSessions)
	auth.Post("/admin/unlock-account/:userId", h.RequireAuth(), h.UnlockAccount)

	admin := app.Group("/api/v1/admin", h.RequireAuth(), h.RequireRole(authconstant.RoleAdmin, authconstant.RoleSuperAdmin))
	admin.Delete("/user/:id/sessions", h.ForceLogout)
	admin.Get("/user/:id/sessions", h.GetUserSessions)
}
