package implementation

import (
	"context"
	"os"
	"testing"

	"own-ai-chat/internal/entity"
	"own-ai-chat/internal/model"
	"own-ai-chat/internal/repository/specification"
	"own-ai-chat/pkg/database"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a disposable Postgres with pgvector installed.
func TestPostgresMessageEmbeddingRoundTrip(t *testing.T) {
	dsn := os.Getenv("TEST_DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: TEST_DB_CONNECTION_STRING not set")
	}

	db, err := database.NewGormDBFromDSN(dsn)
	require.NoError(t, err)
	require.NoError(t, model.AutoMigrate(db))

	ctx := context.Background()
	chats := NewChatRepository(db)
	messages := NewMessageRepository(db)

	chat := &entity.Chat{UserId: uuid.New(), Title: "integration"}
	require.NoError(t, chats.Create(ctx, chat))
	t.Cleanup(func() {
		_ = messages.DeleteByChatId(ctx, chat.Id)
		db.Unscoped().Delete(&model.Chat{}, "id = ?", chat.Id)
	})

	msg := &entity.Message{
		ChatId:   chat.Id,
		Role:     entity.RoleAssistant,
		Content:  "stored on postgres",
		Metadata: map[string]interface{}{"model": "integration"},
	}
	require.NoError(t, messages.Append(ctx, msg))

	vector := make([]float32, 768)
	vector[0] = 1
	require.NoError(t, messages.UpdateEmbedding(ctx, msg.Id, vector))

	stored, err := messages.FindOne(ctx, specification.ByID{ID: msg.Id})
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Len(t, stored.Embedding, 768)
	assert.Equal(t, float32(1), stored.Embedding[0])
	assert.Equal(t, "integration", stored.Metadata["model"])
}
