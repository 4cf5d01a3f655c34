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

const DefaultDimensions = 768

type EmbeddingRequestContentPart struct {
	Text string `json:"text"`
}

type EmbeddingRequestContent struct {
	Parts []EmbeddingRequestContentPart `json:"parts"`
}

type EmbeddingRequest struct {
	Model                string                  `json:"model"`
	Content              EmbeddingRequestContent `json:"content"`
	TaskType             string                  `json:"taskType,omitempty"`
	OutputDimensionality int                     `json:"outputDimensionality,omitempty"`
}

type GeminiProvider struct {
	BaseURL    string
	ApiKey     string
	Model      string
	Dimensions int
	Client     *http.Client
}

func NewGeminiProvider(apiKey, model string) *GeminiProvider {
	if model == "" {
		model = "gemini-embedding-001"
	}
	return &GeminiProvider{
		BaseURL:    "https://generativelanguage.googleapis.com/v1beta",
		ApiKey:     apiKey,
		Model:      model,
		Dimensions: DefaultDimensions,
		Client:     &http.Client{Timeout: 30 * time.Second},
	}
}

// Generate asks for a truncated vector and renormalizes it; only the full
// 3072-dimension output comes back unit length.
func (p *GeminiProvider) Generate(ctx context.Context, text string, taskType string) (*EmbeddingResponse, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperr.New(apperr.Embedding, "gemini.embed", "text is empty")
	}

	req := EmbeddingRequest{
		Model:                "models/" + p.Model,
		Content:              EmbeddingRequestContent{Parts: []EmbeddingRequestContentPart{{Text: text}}},
		TaskType:             taskType,
		OutputDimensionality: p.Dimensions,
	}
	url := fmt.Sprintf("%s/models/%s:embedContent", strings.TrimRight(p.BaseURL, "/"), p.Model)

	var resp EmbeddingResponse
	if err := llm.PostJSON(ctx, p.Client, "gemini.embed", url, map[string]string{"x-goog-api-key": p.ApiKey}, req, &resp, apperr.Embedding); err != nil {
		return nil, err
	}

	values := resp.Embedding.Values
	if len(values) == 0 {
		return nil, apperr.New(apperr.Embedding, "gemini.embed", "response has no values")
	}
	if p.Dimensions > 0 && len(values) != p.Dimensions {
		return nil, apperr.New(apperr.Embedding, "gemini.embed",
			fmt.Sprintf("expected %d dimensions, got %d", p.Dimensions, len(values)))
	}

	resp.Embedding.Values = normalizeVector(values)
	return &resp, nil
}
