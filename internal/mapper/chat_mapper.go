package mapper

import (
	"encoding/json"
	"time"

	"own-ai-chat/internal/entity"
	"own-ai-chat/internal/model"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ChatMapper struct{}

func NewChatMapper() *ChatMapper {
	return &ChatMapper{}
}

// Chat Mappers

func (m *ChatMapper) ChatToEntity(c *model.Chat) *entity.Chat {
	if c == nil {
		return nil
	}

	var deletedAt *time.Time
	if c.DeletedAt.Valid {
		t := c.DeletedAt.Time
		deletedAt = &t
	}

	var updatedAt *time.Time
	if !c.UpdatedAt.IsZero() {
		t := c.UpdatedAt
		updatedAt = &t
	}

	return &entity.Chat{
		Id:        c.Id,
		UserId:    c.UserId,
		Title:     c.Title,
		CreatedAt: c.CreatedAt,
		UpdatedAt: updatedAt,
		DeletedAt: deletedAt,
		IsDeleted: c.DeletedAt.Valid,
	}
}

func (m *ChatMapper) ChatToModel(c *entity.Chat) *model.Chat {
	if c == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if c.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *c.DeletedAt, Valid: true}
	} else if c.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	var updatedAt time.Time
	if c.UpdatedAt != nil {
		updatedAt = *c.UpdatedAt
	}

	return &model.Chat{
		Id:        c.Id,
		UserId:    c.UserId,
		Title:     c.Title,
		CreatedAt: c.CreatedAt,
		UpdatedAt: updatedAt,
		DeletedAt: deletedAt,
	}
}

// Message Mappers

func (m *ChatMapper) MessageToEntity(msg *model.Message) *entity.Message {
	if msg == nil {
		return nil
	}

	var embedding []float32
	if msg.Embedding != nil {
		embedding = msg.Embedding.Slice()
	}

	var metadata map[string]interface{}
	if len(msg.Metadata) > 0 {
		// Metadata is written by this mapper only, a decode failure leaves it empty.
		_ = json.Unmarshal(msg.Metadata, &metadata)
	}

	return &entity.Message{
		Id:        msg.Id,
		ChatId:    msg.ChatId,
		Seq:       msg.Seq,
		Role:      entity.MessageRole(msg.Role),
		Content:   msg.Content,
		Embedding: embedding,
		Metadata:  metadata,
		CreatedAt: msg.CreatedAt,
	}
}

func (m *ChatMapper) MessageToModel(msg *entity.Message) *model.Message {
	if msg == nil {
		return nil
	}

	var embedding *pgvector.Vector
	if len(msg.Embedding) > 0 {
		v := pgvector.NewVector(msg.Embedding)
		embedding = &v
	}

	var metadata datatypes.JSON
	if len(msg.Metadata) > 0 {
		if raw, err := json.Marshal(msg.Metadata); err == nil {
			metadata = datatypes.JSON(raw)
		}
	}

	return &model.Message{
		Id:        msg.Id,
		ChatId:    msg.ChatId,
		Seq:       msg.Seq,
		Role:      string(msg.Role),
		Content:   msg.Content,
		Embedding: embedding,
		Metadata:  metadata,
		CreatedAt: msg.CreatedAt,
	}
}

func (m *ChatMapper) MessagesToEntities(models []*model.Message) []*entity.Message {
	entities := make([]*entity.Message, len(models))
	for i, msg := range models {
		entities[i] = m.MessageToEntity(msg)
	}
	return entities
}
