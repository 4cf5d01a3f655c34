package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Message is one append-only turn. Seq orders turns inside a chat.
type Message struct {
	Id        uuid.UUID        `gorm:"type:uuid;primaryKey"`
	ChatId    uuid.UUID        `gorm:"type:uuid;not null;index:idx_messages_chat_seq,priority:1"`
	Seq       int64            `gorm:"not null;index:idx_messages_chat_seq,priority:2"`
	Role      string           `gorm:"type:varchar(16);not null"`
	Content   string           `gorm:"type:text;not null"`
	Embedding *pgvector.Vector `gorm:"type:vector(768)"` // gemini-embedding-001 at 768 output dimensions
	Metadata  datatypes.JSON   `gorm:"type:jsonb"`
	CreatedAt time.Time        `gorm:"autoCreateTime"`
}

func (Message) TableName() string {
	return "messages"
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.Id == uuid.Nil {
		m.Id = uuid.New()
	}
	return nil
}
