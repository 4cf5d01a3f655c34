package controller

import (
	"time"

	"own-ai-chat/internal/dto"
	"own-ai-chat/internal/pkg/serverutils"
	"own-ai-chat/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IAuthController interface {
	RegisterRoutes(r fiber.Router)
	Register(ctx *fiber.Ctx) error
	Login(ctx *fiber.Ctx) error
	Logout(ctx *fiber.Ctx) error
}

type authController struct {
	service      service.IAuthService
	tokenTTL     time.Duration
	secureCookie bool
}

func NewAuthController(service service.IAuthService, tokenTTL time.Duration, secureCookie bool) IAuthController {
	return &authController{service: service, tokenTTL: tokenTTL, secureCookie: secureCookie}
}

func (c *authController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/auth")
	h.Post("/register", c.Register)
	h.Post("/login", c.Login)
	h.Post("/logout", c.Logout)
}

func (c *authController) Register(ctx *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Register(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("User registered successfully", res))
}

func (c *authController) Login(ctx *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Login(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	// Browsers open the websocket with the cookie; other clients use the token.
	ctx.Cookie(&fiber.Cookie{
		Name:     serverutils.TokenCookieName,
		Value:    res.Token,
		Expires:  time.Now().Add(c.tokenTTL),
		HTTPOnly: true,
		Secure:   c.secureCookie,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return ctx.JSON(serverutils.SuccessResponse("Login successful", res))
}

// Logout is stateless: it only clears the cookie.
func (c *authController) Logout(ctx *fiber.Ctx) error {
	ctx.Cookie(&fiber.Cookie{
		Name:     serverutils.TokenCookieName,
		Value:    "",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   c.secureCookie,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return ctx.JSON(serverutils.SuccessResponse[any]("Logged out successfully", nil))
}
