package serverutils

import (
	"errors"

	"own-ai-chat/pkg/apperr"

	"github.com/gofiber/fiber/v2"
)

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.Unauthorized:
		return fiber.StatusUnauthorized
	case apperr.NotFound:
		return fiber.StatusNotFound
	case apperr.Validation, apperr.InvalidPayload:
		return fiber.StatusBadRequest
	case apperr.RemoteUnavailable:
		return fiber.StatusServiceUnavailable
	case apperr.Generation, apperr.Embedding:
		return fiber.StatusBadGateway
	case apperr.RateLimited:
		return fiber.StatusTooManyRequests
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorHandlerMiddleware turns errors returned by handlers into the JSON error envelope.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var fe *fiber.Error
		if errors.As(err, &fe) {
			return ctx.Status(fe.Code).JSON(ErrorResponse(fe.Code, fe.Message))
		}

		var ae *apperr.Error
		if errors.As(err, &ae) {
			code := StatusFor(ae.Kind)
			message := apperr.Message(err)
			if code == fiber.StatusInternalServerError {
				// Storage and internal details stay in the logs.
				message = string(ae.Kind)
			}
			return ctx.Status(code).JSON(ErrorResponse(code, message))
		}

		return ctx.Status(fiber.StatusInternalServerError).JSON(ErrorResponse(fiber.StatusInternalServerError, "internal server error"))
	}
}
