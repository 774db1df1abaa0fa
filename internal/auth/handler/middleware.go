package handler

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/AnthoniusHendriyanto/auth-core/internal/auth/domain"
	autherror "github.com/AnthoniusHendriyanto/auth-core/internal/errors"
	"github.com/AnthoniusHendriyanto/auth-core/internal/ratelimit"
	"github.com/gofiber/fiber/v2"
)

const principalKey = "principal"

// Throttler is satisfied by *ratelimit.Limiter.
type Throttler interface {
	Allow(ctx context.Context, key string) error
}

// RequireAuth verifies the Bearer access token and stores the caller's
// principal in the request locals.
func (h *AuthHandler) RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			return h.respondError(c, autherror.ErrAuthenticationNeeded)
		}

		principal, err := h.authService.Authenticate(c.UserContext(), strings.TrimSpace(token))
		if err != nil {
			return h.respondError(c, err)
		}

		c.Locals(principalKey, *principal)
		return c.Next()
	}
}

// RequireRole must run after RequireAuth.
func (h *AuthHandler) RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := principalFrom(c)
		if !p.HasAnyRole(roles...) {
			h.logger.WarnContext(c.UserContext(), "role check failed",
				"user_id", p.UserID, "path", c.Path(), "required", roles)
			return h.respondError(c, autherror.ErrInsufficientPermissions)
		}
		return c.Next()
	}
}

// Throttle limits requests per route and client IP. A nil throttler disables
// it, and a Redis outage lets requests through.
func Throttle(t Throttler, route string, logger *slog.Logger) fiber.Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return func(c *fiber.Ctx) error {
		if t == nil {
			return c.Next()
		}

		err := t.Allow(c.UserContext(), route+":"+c.IP())
		switch {
		case err == nil:
			return c.Next()
		case errors.Is(err, ratelimit.ErrRateLimited):
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": autherror.ErrTooManyRequests.Message,
			})
		default:
			logger.WarnContext(c.UserContext(), "throttle unavailable, allowing request", "route", route, "error", err)
			return c.Next()
		}
	}
}

func principalFrom(c *fiber.Ctx) domain.Principal {
	p, _ := c.Locals(principalKey).(domain.Principal)
	return p
}
