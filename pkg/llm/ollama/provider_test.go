package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"own-ai-chat/pkg/apperr"
	"own-ai-chat/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaChat(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(chatResponse{Model: got.Model, Message: message{Role: "assistant", Content: " namaste "}, Done: true})
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL+"/", "llama3")
	out, err := p.Chat(context.Background(), []llm.Message{
		{Role: llm.RoleSystem, Content: "persona"},
		{Role: "model", Content: "earlier reply"},
		{Role: llm.RoleUser, Content: "hello"},
	}, llm.WithTemperature(0.3))

	require.NoError(t, err)
	assert.Equal(t, "namaste", out)
	assert.Equal(t, "llama3", got.Model)
	assert.False(t, got.Stream)
	assert.InDelta(t, 0.3, got.Options.Temperature, 1e-9)
	require.Len(t, got.Messages, 3)
	assert.Equal(t, "assistant", got.Messages[1].Role)
	assert.Equal(t, "ollama/llama3", p.Name())
}

func TestOllamaErrorKinds(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind apperr.Kind
	}{
		{name: "model missing", status: http.StatusNotFound, body: `{"error":"model not found"}`, wantKind: apperr.Generation},
		{name: "overloaded", status: http.StatusServiceUnavailable, body: `busy`, wantKind: apperr.RemoteUnavailable},
		{name: "malformed body", status: http.StatusOK, body: `not json`, wantKind: apperr.Generation},
		{name: "empty completion", status: http.StatusOK, body: `{"message":{"role":"assistant","content":""}}`, wantKind: apperr.Generation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewOllamaProvider(srv.URL, "llama3").Generate(context.Background(), "hi")
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, apperr.KindOf(err))
		})
	}
}

func TestOllamaUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewOllamaProvider(url, "llama3").Generate(context.Background(), "hi")
	require.Error(t, err)
	assert.Equal(t, apperr.RemoteUnavailable, apperr.KindOf(err))
}
