package implementation

import (
	"context"
	"fmt"
	"testing"

	"own-ai-chat/internal/entity"
	"own-ai-chat/internal/model"
	"own-ai-chat/internal/repository/contract"
	"own-ai-chat/internal/repository/specification"
	"own-ai-chat/pkg/database"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.NewSQLiteDB(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	require.NoError(t, model.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func newChat(t *testing.T, db *gorm.DB) uuid.UUID {
	t.Helper()
	chat := &entity.Chat{UserId: uuid.New(), Title: "test"}
	require.NoError(t, NewChatRepository(db).Create(context.Background(), chat))
	return chat.Id
}

func TestChatRepositoryOwnership(t *testing.T) {
	ctx := context.Background()
	repo := NewChatRepository(newTestDB(t))

	alice, bob := uuid.New(), uuid.New()
	demo := &entity.Chat{UserId: alice, Title: "Demo"}
	require.NoError(t, repo.Create(ctx, demo))
	require.NoError(t, repo.Create(ctx, &entity.Chat{UserId: bob, Title: "Bob's"}))
	assert.NotEqual(t, uuid.Nil, demo.Id)

	chats, err := repo.FindAll(ctx, specification.UserOwnedBy{UserID: alice})
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Equal(t, "Demo", chats[0].Title)

	missing, err := repo.FindOne(ctx, specification.ByID{ID: uuid.New()})
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, repo.Delete(ctx, demo.Id))
	gone, err := repo.FindOne(ctx, specification.ByID{ID: demo.Id})
	require.NoError(t, err)
	assert.Nil(t, gone, "soft deleted chats are hidden")
}

func TestMessageRepositoryAppendOrder(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewMessageRepository(db)
	chatID, otherChat := newChat(t, db), newChat(t, db)

	contents := []string{"first", "second", "third", "fourth"}
	for i, c := range contents {
		role := entity.RoleUser
		if i%2 == 1 {
			role = entity.RoleAssistant
		}
		require.NoError(t, repo.Append(ctx, &entity.Message{ChatId: chatID, Role: role, Content: c}))
	}
	require.NoError(t, repo.Append(ctx, &entity.Message{ChatId: otherChat, Role: entity.RoleUser, Content: "elsewhere"}))

	history, err := repo.FindAll(ctx, specification.ByChatID{ChatID: chatID}, specification.InAppendOrder{})
	require.NoError(t, err)
	require.Len(t, history, len(contents))
	for i, msg := range history {
		assert.Equal(t, contents[i], msg.Content)
		if i > 0 {
			assert.Greater(t, msg.Seq, history[i-1].Seq)
		}
	}

	latest, err := repo.FindAll(ctx, specification.ByChatID{ChatID: chatID}, specification.LatestTurns{Limit: 2})
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "fourth", latest[0].Content)
	assert.Equal(t, "third", latest[1].Content)
}

func TestMessageRepositoryUpdateEmbedding(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewMessageRepository(db)

	msg := &entity.Message{ChatId: newChat(t, db), Role: entity.RoleUser, Content: "embed me"}
	require.NoError(t, repo.Append(ctx, msg))
	assert.Nil(t, msg.Embedding)

	require.NoError(t, repo.UpdateEmbedding(ctx, msg.Id, []float32{0.6, 0.8}))

	stored, err := repo.FindOne(ctx, specification.ByID{ID: msg.Id})
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, []float32{0.6, 0.8}, stored.Embedding)

	err = repo.UpdateEmbedding(ctx, uuid.New(), []float32{1})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestAppendRequiresLiveChat(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	chats := NewChatRepository(db)
	repo := NewMessageRepository(db)

	err := repo.Append(ctx, &entity.Message{ChatId: uuid.New(), Role: entity.RoleUser, Content: "nowhere"})
	assert.ErrorIs(t, err, contract.ErrChatGone)

	chatID := newChat(t, db)
	require.NoError(t, repo.Append(ctx, &entity.Message{ChatId: chatID, Role: entity.RoleUser, Content: "before"}))

	require.NoError(t, chats.Delete(ctx, chatID))
	err = repo.Append(ctx, &entity.Message{ChatId: chatID, Role: entity.RoleAssistant, Content: "after"})
	assert.ErrorIs(t, err, contract.ErrChatGone)

	count, err := repo.Count(ctx, specification.ByChatID{ChatID: chatID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestUserRepositoryFindByUsername(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestDB(t))

	require.NoError(t, repo.Create(ctx, &entity.User{Username: "ravi", PasswordHash: "hash"}))

	found, err := repo.FindOne(ctx, specification.ByUsername{Username: "ravi"})
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "hash", found.PasswordHash)

	err = repo.Create(ctx, &entity.User{Username: "ravi", PasswordHash: "other"})
	assert.Error(t, err, "usernames are unique")
}

func TestNextSeqIsStrictlyIncreasing(t *testing.T) {
	prev := nextSeq()
	for i := 0; i < 1000; i++ {
		next := nextSeq()
		assert.Greater(t, next, prev)
		prev = next
	}
}
