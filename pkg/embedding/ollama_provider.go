package embedding

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"own-ai-chat/pkg/apperr"
	"own-ai-chat/pkg/llm"
)

// OllamaProvider implements EmbeddingProvider for local Ollama models (e.g., nomic-embed-text)
type OllamaProvider struct {
	BaseURL string
	Model   string
	Client  *http.Client
}

func NewOllamaProvider(baseURL string, model string) *OllamaProvider {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "nomic-embed-text"
	}
	return &OllamaProvider{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Model:   model,
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type ollamaEmbeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

// Generate ignores taskType; nomic style models take no task hint.
func (p *OllamaProvider) Generate(ctx context.Context, text string, taskType string) (*EmbeddingResponse, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperr.New(apperr.Embedding, "ollama.embed", "text is empty")
	}

	var resp ollamaEmbeddingResponse
	req := ollamaEmbeddingRequest{Model: p.Model, Prompt: text}
	if err := llm.PostJSON(ctx, p.Client, "ollama.embed", p.BaseURL+"/api/embeddings", nil, req, &resp, apperr.Embedding); err != nil {
		return nil, err
	}
	if len(resp.Embedding) == 0 {
		return nil, apperr.Wrap(apperr.Embedding, "ollama.embed", fmt.Errorf("model %s returned no vector", p.Model))
	}

	values := make([]float32, len(resp.Embedding))
	for i, v := range resp.Embedding {
		values[i] = float32(v)
	}

	return &EmbeddingResponse{
		Embedding: EmbeddingResponseEmbedding{Values: normalizeVector(values)},
	}, nil
}
