package handler

import (
	"errors"

	autherror "github.com/AnthoniusHendriyanto/auth-core/internal/errors"
	"github.com/gofiber/fiber/v2"
)

func statusFor(kind autherror.Kind) int {
	switch kind {
	case autherror.KindValidation, autherror.KindBadRequest:
		return fiber.StatusBadRequest
	case autherror.KindUnauthorized:
		return fiber.StatusUnauthorized
	case autherror.KindForbidden:
		return fiber.StatusForbidden
	case autherror.KindNotFound:
		return fiber.StatusNotFound
	case autherror.KindConflict:
		return fiber.StatusConflict
	case autherror.KindTooManyRequests:
		return fiber.StatusTooManyRequests
	default:
		return fiber.StatusInternalServerError
	}
}

// respondError writes err as JSON. Untagged errors are logged and hidden
// behind a generic message.
func (h *AuthHandler) respondError(c *fiber.Ctx, err error) error {
	var authErr *autherror.Error
	if !errors.As(err, &authErr) {
		h.logger.ErrorContext(c.UserContext(), "request failed",
			"method", c.Method(), "path", c.Path(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal server error",
		})
	}

	body := fiber.Map{"error": authErr.Message}
	if len(authErr.Fields) > 0 {
		body["fields"] = authErr.Fields
	}
	return c.Status(statusFor(authErr.Kind)).JSON(body)
}

// ErrorHandler renders errors that escape a handler, such as unknown routes
// and recovered panics.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}
	return c.Status(code).JSON(fiber.Map{"error": message})
}
