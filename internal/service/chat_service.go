package service

import (
	"context"
	"strings"

	"own-ai-chat/internal/constant"
	"own-ai-chat/internal/dto"
	"own-ai-chat/internal/entity"
	"own-ai-chat/internal/pkg/logger"
	"own-ai-chat/internal/repository/specification"
	"own-ai-chat/internal/repository/unitofwork"
	"own-ai-chat/pkg/apperr"
	"own-ai-chat/pkg/events"

	"github.com/google/uuid"
)

type IChatService interface {
	ListChats(ctx context.Context, userId uuid.UUID) (*dto.ListChatsResponse, error)
	GetHistory(ctx context.Context, userId uuid.UUID, chatId uuid.UUID) (*dto.ChatHistoryResponse, error)
	CreateChat(ctx context.Context, userId uuid.UUID, req *dto.CreateChatRequest) (*dto.ChatResponse, error)
	DeleteChat(ctx context.Context, userId uuid.UUID, chatId uuid.UUID) error
	// CheckOwnership guards room joins: NotFound or Unauthorized when userId may not watch chatId.
	CheckOwnership(ctx context.Context, userId uuid.UUID, chatId uuid.UUID) error
}

type chatService struct {
	uowFactory unitofwork.RepositoryFactory
	access     *ChatAccess
	bus        events.Publisher
	logger     logger.ILogger
}

func NewChatService(uowFactory unitofwork.RepositoryFactory, access *ChatAccess, bus events.Publisher, log logger.ILogger) IChatService {
	if bus == nil {
		bus = events.NopPublisher{}
	}
	return &chatService{
		uowFactory: uowFactory,
		access:     access,
		bus:        bus,
		logger:     log,
	}
}

func (s *chatService) ListChats(ctx context.Context, userId uuid.UUID) (*dto.ListChatsResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	chats, err := uow.ChatRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, apperr.Wrap(apperr.Persistence, "chat.list", err)
	}

	res := &dto.ListChatsResponse{Chats: make([]*dto.ChatResponse, 0, len(chats))}
	for _, c := range chats {
		res.Chats = append(res.Chats, toChatResponse(c))
	}
	return res, nil
}

// GetHistory treats a chat owned by someone else as missing.
func (s *chatService) GetHistory(ctx context.Context, userId uuid.UUID, chatId uuid.UUID) (*dto.ChatHistoryResponse, error) {
	if err := s.access.Authorize(ctx, chatId, userId); err != nil {
		if apperr.KindOf(err) == apperr.Unauthorized {
			return nil, apperr.New(apperr.NotFound, "chat.history", "chat not found")
		}
		return nil, err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	messages, err := uow.MessageRepository().FindAll(ctx,
		specification.ByChatID{ChatID: chatId},
		specification.InAppendOrder{},
	)
	if err != nil {
		return nil, apperr.Wrap(apperr.Persistence, "chat.history", err)
	}

	res := &dto.ChatHistoryResponse{Messages: make([]*dto.MessageResponse, 0, len(messages))}
	for _, m := range messages {
		res.Messages = append(res.Messages, &dto.MessageResponse{
			Id:        m.Id,
			Role:      string(m.Role),
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
		})
	}
	return res, nil
}

func (s *chatService) CreateChat(ctx context.Context, userId uuid.UUID, req *dto.CreateChatRequest) (*dto.ChatResponse, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, apperr.New(apperr.Validation, "chat.create", "title is required")
	}

	chat := &entity.Chat{UserId: userId, Title: title}
	if err := s.uowFactory.NewUnitOfWork(ctx).ChatRepository().Create(ctx, chat); err != nil {
		return nil, apperr.Wrap(apperr.Persistence, "chat.create", err)
	}

	s.publish(ctx, events.New(constant.EventChatCreated, map[string]interface{}{
		"chat_id": chat.Id.String(),
		"user_id": userId.String(),
		"title":   chat.Title,
	}))
	return toChatResponse(chat), nil
}

func (s *chatService) DeleteChat(ctx context.Context, userId uuid.UUID, chatId uuid.UUID) error {
	if err := s.access.Authorize(ctx, chatId, userId); err != nil {
		if apperr.KindOf(err) == apperr.Unauthorized {
			return apperr.New(apperr.NotFound, "chat.delete", "chat not found")
		}
		return err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return apperr.Wrap(apperr.Persistence, "chat.delete", err)
	}
	defer uow.Rollback()

	// The chat goes first: its row lock orders the delete against in-flight appends.
	if err := uow.ChatRepository().Delete(ctx, chatId); err != nil {
		return apperr.Wrap(apperr.Persistence, "chat.delete", err)
	}
	if err := uow.MessageRepository().DeleteByChatId(ctx, chatId); err != nil {
		return apperr.Wrap(apperr.Persistence, "chat.delete", err)
	}
	if err := uow.Commit(); err != nil {
		return apperr.Wrap(apperr.Persistence, "chat.delete", err)
	}

	s.access.Forget(chatId)
	s.publish(ctx, events.New(constant.EventChatDeleted, map[string]interface{}{
		"chat_id": chatId.String(),
		"user_id": userId.String(),
	}))
	return nil
}

func (s *chatService) CheckOwnership(ctx context.Context, userId uuid.UUID, chatId uuid.UUID) error {
	return s.access.Authorize(ctx, chatId, userId)
}

func (s *chatService) publish(ctx context.Context, event events.Event) {
	ctx, cancel := context.WithTimeout(ctx, eventPublishTimeout)
	defer cancel()
	if err := s.bus.Publish(ctx, event); err != nil {
		s.logger.Warn("ChatService", "Failed to publish domain event", map[string]interface{}{"type": event.EventType(), "error": err})
	}
}

func toChatResponse(c *entity.Chat) *dto.ChatResponse {
	return &dto.ChatResponse{Id: c.Id, Title: c.Title, CreatedAt: c.CreatedAt}
}
