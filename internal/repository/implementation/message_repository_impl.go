package implementation

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"own-ai-chat/internal/entity"
	"own-ai-chat/internal/mapper"
	"own-ai-chat/internal/model"
	"own-ai-chat/internal/repository/contract"
	"own-ai-chat/internal/repository/specification"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var lastSeq atomic.Int64

// nextSeq is wall-clock nanoseconds, bumped so that it never repeats or goes
// backwards inside one process.
func nextSeq() int64 {
	for {
		last := lastSeq.Load()
		next := time.Now().UnixNano()
		if next <= last {
			next = last + 1
		}
		if lastSeq.CompareAndSwap(last, next) {
			return next
		}
	}
}

type MessageRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChatMapper
}

func NewMessageRepository(db *gorm.DB) contract.MessageRepository {
	return &MessageRepositoryImpl{
		db:     db,
		mapper: mapper.NewChatMapper(),
	}
}

// Append stores message if its chat still exists. The chat row is locked for
// the insert, so a concurrent delete either waits for it or wins and the
// append fails with contract.ErrChatGone.
func (r *MessageRepositoryImpl) Append(ctx context.Context, message *entity.Message) error {
	m := r.mapper.MessageToModel(message)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var chat model.Chat
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			Where("id = ?", m.ChatId).
			First(&chat).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return contract.ErrChatGone
		}
		if err != nil {
			return err
		}

		m.Seq = nextSeq()
		return tx.Create(m).Error
	})
	if err != nil {
		return err
	}
	*message = *r.mapper.MessageToEntity(m)
	return nil
}

func (r *MessageRepositoryImpl) UpdateEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error {
	vec := pgvector.NewVector(embedding)
	res := r.db.WithContext(ctx).Model(&model.Message{}).Where("id = ?", id).Update("embedding", &vec)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *MessageRepositoryImpl) DeleteByChatId(ctx context.Context, chatId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("chat_id = ?", chatId).Delete(&model.Message{}).Error
}

func (r *MessageRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Message, error) {
	var m model.Message
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.MessageToEntity(&m), nil
}

func (r *MessageRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Message, error) {
	var models []*model.Message
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.MessagesToEntities(models), nil
}

func (r *MessageRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := applySpecifications(r.db.WithContext(ctx).Model(&model.Message{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
