package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"own-ai-chat/pkg/apperr"
	"own-ai-chat/pkg/llm"
)

type OllamaProvider struct {
	BaseURL   string
	ModelName string
	Client    *http.Client
}

var _ llm.LLMProvider = &OllamaProvider{}

func NewOllamaProvider(baseURL, modelName string) *OllamaProvider {
	if modelName == "" {
		modelName = "llama3"
	}
	return &OllamaProvider{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		ModelName: modelName,
		Client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
	Stream   bool      `json:"stream"`
	Options  *options  `json:"options,omitempty"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type options struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type chatResponse struct {
	Model   string  `json:"model"`
	Message message `json:"message"`
	Done    bool    `json:"done"`
}

func (o *OllamaProvider) Name() string {
	return "ollama/" + o.ModelName
}

func (o *OllamaProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	options := llm.ApplyOptions(llm.Options{Temperature: 0.7, Model: o.ModelName}, opts...)

	msgs := make([]message, len(history))
	for i, m := range history {
		role := m.Role
		if role == "model" {
			role = llm.RoleAssistant
		}
		msgs[i] = message{Role: role, Content: m.Content}
	}

	req := chatRequest{
		Model:    options.Model,
		Messages: msgs,
		Stream:   false,
		Options:  optionsFor(options),
	}

	var resp chatResponse
	if err := llm.PostJSON(ctx, o.Client, "ollama.chat", o.BaseURL+"/api/chat", nil, req, &resp, apperr.Generation); err != nil {
		return "", err
	}

	content := strings.TrimSpace(resp.Message.Content)
	if content == "" {
		return "", apperr.Wrap(apperr.Generation, "ollama.chat", fmt.Errorf("empty completion from %s", options.Model))
	}
	return content, nil
}

func (o *OllamaProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return o.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, opts...)
}

func optionsFor(o llm.Options) *options {
	out := &options{Temperature: o.Temperature}
	if o.MaxTokens > 0 {
		out.NumPredict = o.MaxTokens
	}
	return out
}
