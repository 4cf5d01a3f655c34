package contract

import (
	"context"
	"errors"

	"own-ai-chat/internal/entity"
	"own-ai-chat/internal/repository/specification"

	"github.com/google/uuid"
)

// ErrChatGone is returned by Append when the chat is missing or deleted.
var ErrChatGone = errors.New("chat does not exist")

// MessageRepository is append-only apart from attaching an embedding after the fact.
type MessageRepository interface {
	Append(ctx context.Context, message *entity.Message) error
	UpdateEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error
	DeleteByChatId(ctx context.Context, chatId uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Message, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Message, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
