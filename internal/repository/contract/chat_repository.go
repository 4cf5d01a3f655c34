package contract

import (
	"context"

	"own-ai-chat/internal/entity"
	"own-ai-chat/internal/repository/specification"

	"github.com/google/uuid"
)

type ChatRepository interface {
	Create(ctx context.Context, chat *entity.Chat) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Chat, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Chat, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
