package entity

import (
	"time"

	"github.com/google/uuid"
)

type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

type Message struct {
	Id        uuid.UUID
	ChatId    uuid.UUID
	Seq       int64
	Role      MessageRole
	Content   string
	Embedding []float32
	Metadata  map[string]interface{}
	CreatedAt time.Time
}
