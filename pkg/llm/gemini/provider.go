package gemini

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"own-ai-chat/pkg/apperr"
	"own-ai-chat/pkg/llm"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

type GeminiProvider struct {
	BaseURL   string
	ApiKey    string
	ModelName string
	Client    *http.Client
}

var _ llm.LLMProvider = &GeminiProvider{}

func NewGeminiProvider(apiKey, modelName string) *GeminiProvider {
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}
	return &GeminiProvider{
		BaseURL:   defaultBaseURL,
		ApiKey:    apiKey,
		ModelName: modelName,
		Client:    &http.Client{Timeout: 120 * time.Second},
	}
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type generateRequest struct {
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	Contents          []content        `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
}

func (p *GeminiProvider) Name() string {
	return "gemini/" + p.ModelName
}

// Chat maps system turns onto systemInstruction and assistant turns onto the "model" role.
func (p *GeminiProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	options := llm.ApplyOptions(llm.Options{Temperature: 0.3, Model: p.ModelName}, opts...)

	req := generateRequest{
		GenerationConfig: generationConfig{
			Temperature:     options.Temperature,
			MaxOutputTokens: options.MaxTokens,
		},
	}

	var system []string
	for _, m := range history {
		switch m.Role {
		case llm.RoleSystem:
			system = append(system, m.Content)
		case llm.RoleAssistant, "model":
			req.Contents = append(req.Contents, content{Role: "model", Parts: []part{{Text: m.Content}}})
		default:
			req.Contents = append(req.Contents, content{Role: "user", Parts: []part{{Text: m.Content}}})
		}
	}
	if len(system) > 0 {
		req.SystemInstruction = &content{Parts: []part{{Text: strings.Join(system, "\n\n")}}}
	}
	if len(req.Contents) == 0 {
		return "", apperr.New(apperr.Generation, "gemini.generate", "no conversation turns to send")
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", strings.TrimRight(p.BaseURL, "/"), options.Model)
	headers := map[string]string{"x-goog-api-key": p.ApiKey}

	var resp generateResponse
	if err := llm.PostJSON(ctx, p.Client, "gemini.generate", url, headers, req, &resp, apperr.Generation); err != nil {
		return "", err
	}

	if len(resp.Candidates) == 0 {
		return "", apperr.New(apperr.Generation, "gemini.generate", "response has no candidates")
	}
	var sb strings.Builder
	for _, pt := range resp.Candidates[0].Content.Parts {
		sb.WriteString(pt.Text)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", apperr.New(apperr.Generation, "gemini.generate",
			fmt.Sprintf("empty completion (finish reason %q)", resp.Candidates[0].FinishReason))
	}
	return text, nil
}

func (p *GeminiProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, opts...)
}
