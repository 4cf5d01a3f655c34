package controller

import (
	"own-ai-chat/internal/dto"
	"own-ai-chat/internal/pkg/serverutils"
	"own-ai-chat/internal/service"
	"own-ai-chat/pkg/apperr"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router, auth fiber.Handler)
	ListChats(ctx *fiber.Ctx) error
	GetHistory(ctx *fiber.Ctx) error
	CreateChat(ctx *fiber.Ctx) error
	DeleteChat(ctx *fiber.Ctx) error
}

type chatController struct {
	chatService service.IChatService
}

func NewChatController(chatService service.IChatService) IChatController {
	return &chatController{chatService: chatService}
}

func (c *chatController) RegisterRoutes(r fiber.Router, auth fiber.Handler) {
	h := r.Group("/chats")
	h.Use(auth)
	h.Get("", c.ListChats)
	h.Post("", c.CreateChat)
	h.Get(":id/messages", c.GetHistory)
	h.Delete(":id", c.DeleteChat)
}

func (c *chatController) ListChats(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserIdFromLocals(ctx)
	if err != nil {
		return err
	}

	res, err := c.chatService.ListChats(ctx.UserContext(), userId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success list chats", res))
}

func (c *chatController) GetHistory(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserIdFromLocals(ctx)
	if err != nil {
		return err
	}
	chatId, err := chatIdParam(ctx)
	if err != nil {
		return err
	}

	res, err := c.chatService.GetHistory(ctx.UserContext(), userId, chatId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get chat history", res))
}

func (c *chatController) CreateChat(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserIdFromLocals(ctx)
	if err != nil {
		return err
	}

	var req dto.CreateChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.chatService.CreateChat(ctx.UserContext(), userId, &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success create chat", res))
}

func (c *chatController) DeleteChat(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserIdFromLocals(ctx)
	if err != nil {
		return err
	}
	chatId, err := chatIdParam(ctx)
	if err != nil {
		return err
	}

	if err := c.chatService.DeleteChat(ctx.UserContext(), userId, chatId); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Success delete chat", nil))
}

// A malformed id cannot name an existing chat.
func chatIdParam(ctx *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return uuid.Nil, apperr.New(apperr.NotFound, "chat", "chat not found")
	}
	return id, nil
}
