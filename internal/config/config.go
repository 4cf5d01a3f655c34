package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Ai       AIConfig
	Chat     ChatConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	RealtimeLogPath    string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Driver     string // "postgres" or "sqlite"
	Connection string
}

type AuthConfig struct {
	JwtSecret string
	TokenTTL  time.Duration
}

type AIConfig struct {
	LLMProvider       string // "gemini" or "ollama"
	LLMModel          string
	EmbeddingProvider string // "gemini" or "ollama"
	EmbeddingModel    string
	OllamaBaseURL     string
	GeminiApiKey      string
	Temperature       float64
	Timeout           time.Duration
	EmbedMessages     bool
}

type ChatConfig struct {
	// Newest N turns sent to the model; 0 sends the whole history.
	ContextLimit     int
	SerializePerChat bool
	SendsPerMinute   int
	OwnershipTTL     time.Duration
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			RealtimeLogPath:    getEnv("REALTIME_LOG_PATH", "logs/realtime.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Driver:     getEnv("DB_DRIVER", "postgres"),
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Auth: AuthConfig{
			JwtSecret: getEnv("JWT_SECRET", ""),
			TokenTTL:  getEnvAsDuration("JWT_TTL", 72*time.Hour),
		},
		Ai: AIConfig{
			LLMProvider:       getEnv("LLM_PROVIDER", "gemini"),
			LLMModel:          getEnv("LLM_MODEL", ""),
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "gemini"),
			EmbeddingModel:    getEnv("EMBEDDING_MODEL", ""),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			GeminiApiKey:      getEnv("GEMINI_API_KEY", ""),
			Temperature:       getEnvAsFloat("AI_TEMPERATURE", 0.3),
			Timeout:           getEnvAsDuration("AI_TIMEOUT", 90*time.Second),
			EmbedMessages:     getEnvAsBool("EMBED_MESSAGES", true),
		},
		Chat: ChatConfig{
			ContextLimit:     getEnvAsInt("CHAT_CONTEXT_LIMIT", 0),
			SerializePerChat: getEnvAsBool("CHAT_SERIALIZE_PER_CHAT", false),
			SendsPerMinute:   getEnvAsInt("CHAT_SENDS_PER_MINUTE", 20),
			OwnershipTTL:     getEnvAsDuration("CHAT_OWNERSHIP_TTL", 5*time.Minute),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	if value, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}
