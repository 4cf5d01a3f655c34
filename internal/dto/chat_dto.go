package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateChatRequest struct {
	Title string `json:"title" validate:"required,max=200"`
}

type ChatResponse struct {
	Id        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

type ListChatsResponse struct {
	Chats []*ChatResponse `json:"chats"`
}

type MessageResponse struct {
	Id        uuid.UUID `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type ChatHistoryResponse struct {
	Messages []*MessageResponse `json:"messages"`
}

// PublishEmbedMessage is the payload of an embedding job.
type PublishEmbedMessage struct {
	MessageId uuid.UUID `json:"message_id"`
	ChatId    uuid.UUID `json:"chat_id"`
}
