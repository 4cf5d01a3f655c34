package service

import (
	"context"
	"encoding/json"

	"own-ai-chat/internal/dto"
	"own-ai-chat/internal/pkg/logger"
	"own-ai-chat/internal/repository/specification"
	"own-ai-chat/internal/repository/unitofwork"

	"github.com/ThreeDotsLabs/watermill/message"
)

// IConsumerService attaches embeddings to persisted messages in the background.
type IConsumerService interface {
	Consume(ctx context.Context) error
}

type embeddingConsumer struct {
	subscriber message.Subscriber
	topicName  string
	uowFactory unitofwork.RepositoryFactory
	gateway    IAIGateway
	logger     logger.ILogger
}

func NewEmbeddingConsumer(
	subscriber message.Subscriber,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	gateway IAIGateway,
	log logger.ILogger,
) IConsumerService {
	return &embeddingConsumer{
		subscriber: subscriber,
		topicName:  topicName,
		uowFactory: uowFactory,
		gateway:    gateway,
		logger:     log,
	}
}

func (cs *embeddingConsumer) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

// processMessage always acks: an embedding is an enrichment, and redelivering
// on an in-process bus would spin while the provider is down.
func (cs *embeddingConsumer) processMessage(ctx context.Context, msg *message.Message) {
	defer msg.Ack()

	var payload dto.PublishEmbedMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error("EmbeddingConsumer", "Failed to unmarshal job", map[string]interface{}{"error": err})
		return
	}

	uow := cs.uowFactory.NewUnitOfWork(ctx)
	stored, err := uow.MessageRepository().FindOne(ctx, specification.ByID{ID: payload.MessageId})
	if err != nil {
		cs.logger.Error("EmbeddingConsumer", "Failed to load message", map[string]interface{}{"message_id": payload.MessageId, "error": err})
		return
	}
	if stored == nil {
		// Chat deleted before the job ran.
		return
	}

	vector, err := cs.gateway.Embed(ctx, stored.Content)
	if err != nil {
		cs.logger.Warn("EmbeddingConsumer", "Embedding failed", map[string]interface{}{"message_id": stored.Id, "error": err})
		return
	}

	if err := uow.MessageRepository().UpdateEmbedding(ctx, stored.Id, vector); err != nil {
		cs.logger.Error("EmbeddingConsumer", "Failed to store embedding", map[string]interface{}{"message_id": stored.Id, "error": err})
		return
	}
	cs.logger.Debug("EmbeddingConsumer", "Message embedded", map[string]interface{}{"message_id": stored.Id, "dims": len(vector)})
}
