package contract

import (
	"context"

	"own-ai-chat/internal/entity"
	"own-ai-chat/internal/repository/specification"
)

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.User, error)
}
