package service

import (
	"context"
	"strings"

	"own-ai-chat/internal/constant"
	"own-ai-chat/pkg/apperr"
	"own-ai-chat/pkg/embedding"
	"own-ai-chat/pkg/llm"
)

// IAIGateway hides the remote model behind the two calls the chat pipeline needs.
// Neither call retries.
type IAIGateway interface {
	// Generate answers the conversation with the OWN AI persona prepended.
	Generate(ctx context.Context, history []llm.Message) (string, error)
	// Embed returns a unit-length vector for text.
	Embed(ctx context.Context, text string) ([]float32, error)
	ModelName() string
}

type aiGateway struct {
	llmProvider       llm.LLMProvider
	embeddingProvider embedding.EmbeddingProvider
	persona           string
	temperature       float64
}

func NewAIGateway(llmProvider llm.LLMProvider, embeddingProvider embedding.EmbeddingProvider, temperature float64) IAIGateway {
	return &aiGateway{
		llmProvider:       llmProvider,
		embeddingProvider: embeddingProvider,
		persona:           constant.OwnAIPersona,
		temperature:       temperature,
	}
}

func (g *aiGateway) ModelName() string {
	return g.llmProvider.Name()
}

func (g *aiGateway) Generate(ctx context.Context, history []llm.Message) (string, error) {
	if len(history) == 0 {
		return "", apperr.New(apperr.Generation, "gateway.generate", "empty context")
	}

	prompt := make([]llm.Message, 0, len(history)+1)
	prompt = append(prompt, llm.Message{Role: llm.RoleSystem, Content: g.persona})
	prompt = append(prompt, history...)

	text, err := g.llmProvider.Chat(ctx, prompt, llm.WithTemperature(g.temperature))
	if err != nil {
		if apperr.KindOf(err) == apperr.RemoteUnavailable || ctx.Err() != nil {
			return "", apperr.Wrap(apperr.RemoteUnavailable, "gateway.generate", err)
		}
		return "", apperr.Wrap(apperr.Generation, "gateway.generate", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", apperr.New(apperr.Generation, "gateway.generate", "empty completion")
	}
	return text, nil
}

func (g *aiGateway) Embed(ctx context.Context, text string) ([]float32, error) {
	if g.embeddingProvider == nil {
		return nil, apperr.New(apperr.Embedding, "gateway.embed", "no embedding provider configured")
	}
	if strings.TrimSpace(text) == "" {
		return nil, apperr.New(apperr.Embedding, "gateway.embed", "text is empty")
	}

	res, err := g.embeddingProvider.Generate(ctx, text, embedding.TaskRetrievalDocument)
	if err != nil {
		if apperr.KindOf(err) == apperr.RemoteUnavailable || ctx.Err() != nil {
			return nil, apperr.Wrap(apperr.RemoteUnavailable, "gateway.embed", err)
		}
		return nil, apperr.Wrap(apperr.Embedding, "gateway.embed", err)
	}
	return res.Embedding.Values, nil
}
