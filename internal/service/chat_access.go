package service

import (
	"context"

	"own-ai-chat/internal/repository/memory"
	"own-ai-chat/internal/repository/specification"
	"own-ai-chat/internal/repository/unitofwork"
	"own-ai-chat/pkg/apperr"

	"github.com/google/uuid"
)

// ChatAccess answers "may this user act on this chat", caching the owner of
// every chat it has looked up.
type ChatAccess struct {
	uowFactory unitofwork.RepositoryFactory
	owners     *memory.OwnershipCache
}

func NewChatAccess(uowFactory unitofwork.RepositoryFactory, owners *memory.OwnershipCache) *ChatAccess {
	return &ChatAccess{uowFactory: uowFactory, owners: owners}
}

// Authorize fails with NotFound when the chat does not exist and with
// Unauthorized when it belongs to someone else.
func (a *ChatAccess) Authorize(ctx context.Context, chatID, userID uuid.UUID) error {
	if owner, ok := a.owners.Owner(chatID); ok {
		if owner != userID {
			return apperr.New(apperr.Unauthorized, "chat.authorize", "chat belongs to another user")
		}
		return nil
	}

	chat, err := a.uowFactory.NewUnitOfWork(ctx).ChatRepository().FindOne(ctx, specification.ByID{ID: chatID})
	if err != nil {
		return apperr.Wrap(apperr.Persistence, "chat.authorize", err)
	}
	if chat == nil {
		return apperr.New(apperr.NotFound, "chat.authorize", "chat not found")
	}

	a.owners.Remember(chat.Id, chat.UserId)
	if !chat.OwnedBy(userID) {
		return apperr.New(apperr.Unauthorized, "chat.authorize", "chat belongs to another user")
	}
	return nil
}

func (a *ChatAccess) Forget(chatID uuid.UUID) {
	a.owners.Forget(chatID)
}
