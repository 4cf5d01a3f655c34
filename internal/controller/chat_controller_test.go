package controller

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"own-ai-chat/internal/model"
	"own-ai-chat/internal/pkg/logger"
	"own-ai-chat/internal/pkg/serverutils"
	"own-ai-chat/internal/repository/memory"
	"own-ai-chat/internal/repository/unitofwork"
	"own-ai-chat/internal/service"
	"own-ai-chat/pkg/database"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "controller-secret"

type envelope struct {
	Success bool            `json:"success"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	db, err := database.NewSQLiteDB(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	require.NoError(t, model.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	factory := unitofwork.NewRepositoryFactory(db)
	log := logger.NewNopLogger()
	access := service.NewChatAccess(factory, memory.NewOwnershipCache(time.Minute))

	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware())
	api := app.Group("/api")
	NewAuthController(service.NewAuthService(factory, testSecret, time.Hour, nil), time.Hour, false).RegisterRoutes(api)
	NewChatController(service.NewChatService(factory, access, nil, log)).RegisterRoutes(api, serverutils.NewJwtMiddleware(testSecret))
	return app
}

func call(t *testing.T, app *fiber.App, method, path, token string, body interface{}) (int, envelope, *http.Response) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	return resp.StatusCode, env, resp
}

func signup(t *testing.T, app *fiber.App, username string) string {
	t.Helper()
	status, _, _ := call(t, app, http.MethodPost, "/api/auth/register", "", map[string]string{"username": username, "password": "password123"})
	require.Equal(t, fiber.StatusCreated, status)

	status, env, resp := call(t, app, http.MethodPost, "/api/auth/login", "", map[string]string{"username": username, "password": "password123"})
	require.Equal(t, fiber.StatusOK, status)

	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &login))
	require.NotEmpty(t, login.Token)

	var cookieSet bool
	for _, c := range resp.Cookies() {
		if c.Name == serverutils.TokenCookieName && c.HttpOnly {
			cookieSet = true
		}
	}
	assert.True(t, cookieSet)
	return login.Token
}

func TestChatEndpointsRequireAuth(t *testing.T) {
	app := newTestApp(t)

	status, env, _ := call(t, app, http.MethodGet, "/api/chats", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.False(t, env.Success)

	status, _, _ = call(t, app, http.MethodPost, "/api/chats", "", map[string]string{"title": "Demo"})
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestCreateListAndFetchChat(t *testing.T) {
	app := newTestApp(t)
	alice := signup(t, app, "alice")
	bob := signup(t, app, "bob")

	status, env, _ := call(t, app, http.MethodPost, "/api/chats", alice, map[string]string{"title": "Demo"})
	require.Equal(t, fiber.StatusCreated, status)
	var chat struct {
		Id    uuid.UUID `json:"id"`
		Title string    `json:"title"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &chat))
	assert.Equal(t, "Demo", chat.Title)

	status, env, _ = call(t, app, http.MethodGet, "/api/chats", alice, nil)
	require.Equal(t, fiber.StatusOK, status)
	var list struct {
		Chats []struct {
			Id    uuid.UUID `json:"id"`
			Title string    `json:"title"`
		} `json:"chats"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list.Chats, 1)
	assert.Equal(t, chat.Id, list.Chats[0].Id)

	status, env, _ = call(t, app, http.MethodGet, "/api/chats/"+chat.Id.String()+"/messages", alice, nil)
	require.Equal(t, fiber.StatusOK, status)
	var history struct {
		Messages []json.RawMessage `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &history))
	assert.Empty(t, history.Messages)

	status, env, _ = call(t, app, http.MethodGet, "/api/chats", bob, nil)
	require.Equal(t, fiber.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Empty(t, list.Chats)

	status, _, _ = call(t, app, http.MethodGet, "/api/chats/"+chat.Id.String()+"/messages", bob, nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _, _ = call(t, app, http.MethodDelete, "/api/chats/"+chat.Id.String(), bob, nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _, _ = call(t, app, http.MethodDelete, "/api/chats/"+chat.Id.String(), alice, nil)
	assert.Equal(t, fiber.StatusOK, status)

	status, _, _ = call(t, app, http.MethodGet, "/api/chats/"+chat.Id.String()+"/messages", alice, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestCreateChatWithEmptyTitleIsValidationError(t *testing.T) {
	app := newTestApp(t)
	token := signup(t, app, "carol")

	for _, title := range []string{"", "   "} {
		status, env, _ := call(t, app, http.MethodPost, "/api/chats", token, map[string]string{"title": title})
		assert.Equal(t, fiber.StatusBadRequest, status, "title %q", title)
		assert.False(t, env.Success)
	}
}

func TestHistoryOfUnknownOrMalformedChat(t *testing.T) {
	app := newTestApp(t)
	token := signup(t, app, "dave")

	status, _, _ := call(t, app, http.MethodGet, "/api/chats/"+uuid.NewString()+"/messages", token, nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _, _ = call(t, app, http.MethodGet, "/api/chats/not-a-uuid/messages", token, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestLoginFailureAndLogout(t *testing.T) {
	app := newTestApp(t)
	signup(t, app, "erin")

	status, _, _ := call(t, app, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "erin", "password": "wrong-password"})
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _, _ = call(t, app, http.MethodPost, "/api/auth/register", "", map[string]string{"username": "x", "password": "short"})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, env, _ := call(t, app, http.MethodPost, "/api/auth/logout", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.True(t, env.Success)
}
