package bootstrap

import (
	"context"
	"log"
	"time"

	"own-ai-chat/internal/config"
	"own-ai-chat/internal/constant"
	"own-ai-chat/internal/controller"
	"own-ai-chat/internal/handler"
	"own-ai-chat/internal/pkg/logger"
	"own-ai-chat/internal/pkg/ratelimit"
	"own-ai-chat/internal/repository/memory"
	"own-ai-chat/internal/repository/unitofwork"
	"own-ai-chat/internal/service"
	"own-ai-chat/internal/websocket"
	"own-ai-chat/pkg/embedding"
	"own-ai-chat/pkg/events"
	"own-ai-chat/pkg/llm/factory"

	pktNats "own-ai-chat/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	AuthController controller.IAuthController
	ChatController controller.IChatController

	// Realtime
	RealtimeHandler *handler.RealtimeHandler
	WebSocketHub    *websocket.Hub

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService
	Orchestrator    service.IOrchestrator

	Logger logger.ILogger

	closers []func()
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	wsLogger := logger.NewIsolatedLogger(cfg.App.RealtimeLogPath)

	c := &Container{Logger: sysLogger}

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		watermillLogger,
	)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	// 3. AI Providers
	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		cfg.Ai.GeminiApiKey,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s", llmProvider.Name())

	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbedMessages {
		embeddingProvider, err = embedding.NewEmbeddingProvider(
			cfg.Ai.EmbeddingProvider,
			cfg.Ai.EmbeddingModel,
			cfg.Ai.OllamaBaseURL,
			cfg.Ai.GeminiApiKey,
		)
		if err != nil {
			log.Printf("[WARN] Embeddings disabled: %v", err)
			embeddingProvider = nil
		}
	}
	gateway := service.NewAIGateway(llmProvider, embeddingProvider, cfg.Ai.Temperature)

	// 4. Infrastructure
	// NATS
	var bus events.Publisher = events.NopPublisher{}
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v. Domain events are dropped", err)
	} else {
		bus = natsPub
		c.closers = append(c.closers, natsPub.Close)
	}

	// Redis
	var rdb *redis.Client
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Send rate limiting is off", err)
	} else {
		rdb = redis.NewClient(opt)
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v", err)
		}
		cancel()
		c.closers = append(c.closers, func() { _ = rdb.Close() })
	}
	limiter := ratelimit.New(rdb, "chat_send", cfg.Chat.SendsPerMinute, time.Minute)

	// WebSocket Hub
	wsHub := websocket.NewHub(wsLogger)
	go wsHub.Run()
	c.WebSocketHub = wsHub

	// 5. Services
	owners := memory.NewOwnershipCache(cfg.Chat.OwnershipTTL)
	access := service.NewChatAccess(uowFactory, owners)

	jobs := service.NewPublisherService(constant.TopicEmbedMessage, pubSub)
	if !cfg.Ai.EmbedMessages || embeddingProvider == nil {
		jobs = nil
	}

	c.Orchestrator = service.NewOrchestrator(
		uowFactory,
		access,
		gateway,
		wsHub,
		jobs,
		bus,
		sysLogger,
		service.OrchestratorConfig{
			ContextLimit:     cfg.Chat.ContextLimit,
			GenerateTimeout:  cfg.Ai.Timeout,
			SerializePerChat: cfg.Chat.SerializePerChat,
		},
	)

	if jobs != nil {
		c.ConsumerService = service.NewEmbeddingConsumer(
			pubSub,
			constant.TopicEmbedMessage,
			uowFactory,
			gateway,
			sysLogger,
		)
	}

	chatService := service.NewChatService(uowFactory, access, bus, sysLogger)
	authService := service.NewAuthService(uowFactory, cfg.Auth.JwtSecret, cfg.Auth.TokenTTL, bus)

	// 6. Controllers
	c.AuthController = controller.NewAuthController(authService, cfg.Auth.TokenTTL, cfg.IsProduction())
	c.ChatController = controller.NewChatController(chatService)
	c.RealtimeHandler = handler.NewRealtimeHandler(
		wsHub,
		chatService,
		c.Orchestrator,
		limiter,
		cfg.Auth.JwtSecret,
		wsLogger,
	)

	return c
}

// Close waits for in-flight turns, then releases brokers and caches.
func (c *Container) Close() {
	if c.Orchestrator != nil {
		c.Orchestrator.Wait()
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	_ = c.Logger.Sync()
}
