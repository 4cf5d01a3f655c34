package serverutils

import (
	"strings"

	"own-ai-chat/pkg/apperr"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// TokenFromRequest reads the bearer token, then the token cookie.
func TokenFromRequest(ctx *fiber.Ctx) string {
	authHeader := ctx.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ctx.Cookies(TokenCookieName)
}

// NewJwtMiddleware rejects requests without a valid token and stores the
// user id as a string in Locals("user_id").
func NewJwtMiddleware(secret string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		tokenStr := TokenFromRequest(ctx)
		if tokenStr == "" {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Missing token"))
		}

		userId, err := ParseUserToken(tokenStr, secret)
		if err != nil {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Invalid token"))
		}

		ctx.Locals("user_id", userId.String())
		return ctx.Next()
	}
}

// UserIdFromLocals returns the caller set by the JWT middleware.
func UserIdFromLocals(ctx *fiber.Ctx) (uuid.UUID, error) {
	userIdStr, ok := ctx.Locals("user_id").(string)
	if !ok {
		return uuid.Nil, apperr.New(apperr.Unauthorized, "auth", "unauthorized")
	}
	userId, err := uuid.Parse(userIdStr)
	if err != nil {
		return uuid.Nil, apperr.New(apperr.Unauthorized, "auth", "unauthorized")
	}
	return userId, nil
}
