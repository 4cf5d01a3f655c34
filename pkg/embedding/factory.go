package embedding

import "fmt"

func NewEmbeddingProvider(providerType, model, ollamaBaseURL, apiKey string) (EmbeddingProvider, error) {
	switch providerType {
	case "ollama":
		return NewOllamaProvider(ollamaBaseURL, model), nil
	case "gemini":
		if apiKey == "" {
			return nil, fmt.Errorf("gemini embeddings need GEMINI_API_KEY")
		}
		return NewGeminiProvider(apiKey, model), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", providerType)
	}
}
