package handler

import (
	"log/slog"
	"time"

	"github.com/AnthoniusHendriyanto/auth-core/internal/auth/dto"
	"github.com/AnthoniusHendriyanto/auth-core/internal/auth/service"
	authconstant "github.com/AnthoniusHendriyanto/auth-core/pkg/constant"
	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	authService   *service.AuthService
	logger        *slog.Logger
	secureCookies bool
	refreshTTL    time.Duration
}

func NewAuthHandler(authService *service.AuthService, logger *slog.Logger, secureCookies bool) *AuthHandler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &AuthHandler{
		authService:   authService,
		logger:        logger.With("component", "auth_handler"),
		secureCookies: secureCookies,
		refreshTTL:    authService.Policy().RefreshTokenTTL,
	}
}

func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var input dto.SignupInput
	if err := c.BodyParser(&input); err != nil {
		return badInput(c)
	}

	resp, err := h.authService.Signup(c.UserContext(), input)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

func (h *AuthHandler) VerifyEmail(c *fiber.Ctx) error {
	var input dto.TokenInput
	if err := c.BodyParser(&input); err != nil {
		return badInput(c)
	}

	resp, err := h.authService.VerifyEmail(c.UserContext(), input)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(resp)
}

func (h *AuthHandler) ResendVerification(c *fiber.Ctx) error {
	var input dto.EmailInput
	if err := c.BodyParser(&input); err != nil {
		return badInput(c)
	}

	resp, err := h.authService.ResendVerification(c.UserContext(), input)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(resp)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var input dto.LoginInput
	if err := c.BodyParser(&input); err != nil {
		return badInput(c)
	}

	input.IPAddress = c.IP()
	input.UserAgent = string(c.Request().Header.UserAgent())

	resp, err := h.authService.Login(c.UserContext(), input)
	if err != nil {
		return h.respondError(c, err)
	}

	h.setRefreshCookie(c, resp.RefreshToken)
	return c.JSON(resp)
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var input dto.RefreshInput
	if err := parseOptionalBody(c, &input); err != nil {
		return badInput(c)
	}
	if input.RefreshToken == "" {
		input.RefreshToken = c.Cookies(authconstant.RefreshTokenCookie)
	}

	input.IPAddress = c.IP()
	input.UserAgent = string(c.Request().Header.UserAgent())

	resp, err := h.authService.Refresh(c.UserContext(), input)
	if err != nil {
		return h.respondError(c, err)
	}

	h.setRefreshCookie(c, resp.RefreshToken)
	return c.JSON(resp)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var input dto.LogoutInput
	if err := parseOptionalBody(c, &input); err != nil {
		return badInput(c)
	}
	if input.RefreshToken == "" {
		input.RefreshToken = c.Cookies(authconstant.RefreshTokenCookie)
	}

	resp, err := h.authService.Logout(c.UserContext(), input)
	if err != nil {
		return h.respondError(c, err)
	}

	h.clearRefreshCookie(c)
	return c.JSON(resp)
}

func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var input dto.EmailInput
	if err := c.BodyParser(&input); err != nil {
		return badInput(c)
	}

	resp, err := h.authService.ForgotPassword(c.UserContext(), input)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(resp)
}

func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var input dto.ResetPasswordInput
	if err := c.BodyParser(&input); err != nil {
		return badInput(c)
	}

	resp, err := h.authService.ResetPassword(c.UserContext(), input)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(resp)
}

func (h *AuthHandler) UnlockAccount(c *fiber.Ctx) error {
	resp, err := h.authService.UnlockAccount(c.UserContext(), principalFrom(c), c.Params("userId"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(resp)
}

// ListSessions returns the caller's own active sessions.
func (h *AuthHandler) ListSessions(c *fiber.Ctx) error {
	p := principalFrom(c)
	sessions, err := h.authService.ListSessions(c.UserContext(), p, p.UserID)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(fiber.Map{"sessions": sessions})
}

func (h *AuthHandler) GetUserSessions(c *fiber.Ctx) error {
	sessions, err := h.authService.ListSessions(c.UserContext(), principalFrom(c), c.Params("id"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(fiber.Map{"sessions": sessions})
}

func (h *AuthHandler) ForceLogout(c *fiber.Ctx) error {
	resp, err := h.authService.ForceLogout(c.UserContext(), principalFrom(c), c.Params("id"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(resp)
}

func (h *AuthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *AuthHandler) setRefreshCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     authconstant.RefreshTokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.refreshTTL / time.Second),
		HTTPOnly: true,
		Secure:   h.secureCookies,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}

func (h *AuthHandler) clearRefreshCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     authconstant.RefreshTokenCookie,
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   h.secureCookies,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}

// parseOptionalBody allows an empty body for endpoints that fall back to the
// refresh token cookie.
func parseOptionalBody(c *fiber.Ctx, out any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	return c.BodyParser(out)
}

func badInput(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "invalid input",
	})
}
