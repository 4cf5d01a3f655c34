package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"own-ai-chat/internal/constant"
	"own-ai-chat/internal/dto"
	"own-ai-chat/internal/entity"
	"own-ai-chat/internal/pkg/logger"
	"own-ai-chat/internal/repository/contract"
	"own-ai-chat/internal/repository/specification"
	"own-ai-chat/internal/repository/unitofwork"
	"own-ai-chat/pkg/apperr"
	"own-ai-chat/pkg/events"
	"own-ai-chat/pkg/llm"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const eventPublishTimeout = 3 * time.Second

// Broadcaster delivers an event to every connection watching a chat and
// reports how many it reached.
type Broadcaster interface {
	Broadcast(chatID uuid.UUID, event interface{}) (int, error)
}

// TurnResult describes how far a user message got.
type TurnResult struct {
	ChatId           uuid.UUID
	State            TurnState
	Trail            []TurnState
	UserMessage      *entity.Message
	AssistantMessage *entity.Message
	// Delivered is the number of connections that received the final event.
	Delivered int
	// RoomNotified is set once an event about this turn went to the room.
	RoomNotified bool
}

type OrchestratorConfig struct {
	// Newest N turns sent to the model; 0 sends the whole history.
	ContextLimit     int
	GenerateTimeout  time.Duration
	SerializePerChat bool
}

type IOrchestrator interface {
	// HandleUserMessage runs one turn to completion on the calling goroutine.
	HandleUserMessage(ctx context.Context, chatID, userID uuid.UUID, content string) (*TurnResult, error)
	// Submit runs the turn as its own task and hands the outcome to done.
	Submit(chatID, userID uuid.UUID, content string, done func(*TurnResult, error))
	// Wait blocks until every submitted turn has finished.
	Wait()
}

type orchestrator struct {
	uowFactory unitofwork.RepositoryFactory
	access     *ChatAccess
	gateway    IAIGateway
	rooms      Broadcaster
	jobs       IPublisherService
	bus        events.Publisher
	logger     logger.ILogger
	cfg        OrchestratorConfig

	lanes  *chatLanes
	tracer trace.Tracer
	wg     sync.WaitGroup
}

func NewOrchestrator(
	uowFactory unitofwork.RepositoryFactory,
	access *ChatAccess,
	gateway IAIGateway,
	rooms Broadcaster,
	jobs IPublisherService,
	bus events.Publisher,
	log logger.ILogger,
	cfg OrchestratorConfig,
) IOrchestrator {
	if bus == nil {
		bus = events.NopPublisher{}
	}
	o := &orchestrator{
		uowFactory: uowFactory,
		access:     access,
		gateway:    gateway,
		rooms:      rooms,
		jobs:       jobs,
		bus:        bus,
		logger:     log,
		cfg:        cfg,
		tracer:     otel.Tracer("own-ai-chat/orchestrator"),
	}
	if cfg.SerializePerChat {
		o.lanes = newChatLanes()
	}
	return o
}

func (o *orchestrator) Submit(chatID, userID uuid.UUID, content string, done func(*TurnResult, error)) {
	o.wg.Add(1)
	task := func() {
		defer o.wg.Done()

		var (
			res *TurnResult
			err error
		)
		func() {
			defer func() {
				if r := recover(); r != nil {
					err = apperr.Wrap(apperr.Internal, "orchestrator.submit", fmt.Errorf("panic: %v", r))
					o.logger.Error("Orchestrator", "Turn panicked", map[string]interface{}{"chat_id": chatID, "error": err})
				}
			}()
			res, err = o.HandleUserMessage(context.Background(), chatID, userID, content)
		}()

		if done != nil {
			done(res, err)
		}
	}

	if o.lanes != nil {
		o.lanes.Submit(chatID, task)
		return
	}
	go task()
}

func (o *orchestrator) Wait() {
	o.wg.Wait()
}

func (o *orchestrator) HandleUserMessage(ctx context.Context, chatID, userID uuid.UUID, content string) (*TurnResult, error) {
	ctx, span := o.tracer.Start(ctx, "chat.turn", trace.WithAttributes(
		attribute.String("chat.id", chatID.String()),
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	turn := newTurnMachine()
	res := &TurnResult{ChatId: chatID}

	finish := func() {
		res.State = turn.State()
		res.Trail = turn.Trail()
	}
	fail := func(err error) (*TurnResult, error) {
		turn.fail(ctx)
		finish()
		span.RecordError(err)
		span.SetStatus(codes.Error, string(apperr.KindOf(err)))
		o.logger.Warn("Orchestrator", "Turn failed", map[string]interface{}{
			"chat_id": chatID,
			"user_id": userID,
			"kind":    apperr.KindOf(err),
			"error":   err,
		})
		if res.UserMessage != nil {
			o.publishEvent(ctx, events.New(constant.EventTurnFailed, map[string]interface{}{
				"chat_id": chatID.String(),
				"kind":    string(apperr.KindOf(err)),
			}))
		}
		return res, err
	}
	// failRoom is for failures after the user turn is stored: the room is told
	// so that clients stop waiting for a reply.
	failRoom := func(err error) (*TurnResult, error) {
		delivered, bErr := o.rooms.Broadcast(chatID, dto.ErrorEvent{
			Type:    constant.EventError,
			ChatId:  chatID.String(),
			Reason:  apperr.Reason(err),
			Message: apperr.Message(err),
		})
		if bErr != nil {
			o.logger.Error("Orchestrator", "Error event broadcast failed", map[string]interface{}{"chat_id": chatID, "error": bErr})
		} else {
			res.RoomNotified = true
			res.Delivered = delivered
		}
		return fail(err)
	}
	step := func(trigger turnTrigger) error {
		return turn.fire(ctx, trigger)
	}

	if strings.TrimSpace(content) == "" {
		return fail(apperr.New(apperr.Validation, "orchestrator.handle", "content is required"))
	}
	if err := o.access.Authorize(ctx, chatID, userID); err != nil {
		return fail(err)
	}

	uow := o.uowFactory.NewUnitOfWork(ctx)
	messages := uow.MessageRepository()

	userTurn := &entity.Message{ChatId: chatID, Role: entity.RoleUser, Content: content}
	if err := messages.Append(ctx, userTurn); err != nil {
		return fail(appendError("orchestrator.persist_user_turn", err))
	}
	res.UserMessage = userTurn
	if err := step(triggerUserPersisted); err != nil {
		return failRoom(err)
	}
	o.afterPersist(ctx, userTurn)

	history, err := o.loadContext(ctx, uow, chatID)
	if err != nil {
		return failRoom(apperr.Wrap(apperr.Persistence, "orchestrator.load_context", err))
	}

	if err := step(triggerGenerate); err != nil {
		return failRoom(err)
	}
	// Generation and the assistant write outlive the request: a client that
	// disconnects does not cancel them.
	detached := context.WithoutCancel(ctx)
	genCtx, cancel := context.WithTimeout(detached, o.generateTimeout())
	started := time.Now()
	reply, err := o.gateway.Generate(genCtx, history)
	cancel()
	latency := time.Since(started)
	span.SetAttributes(attribute.Int64("ai.latency_ms", latency.Milliseconds()))
	if err != nil {
		return failRoom(apperr.Wrap(apperr.Generation, "orchestrator.generate", err))
	}

	assistantTurn := &entity.Message{
		ChatId:  chatID,
		Role:    entity.RoleAssistant,
		Content: reply,
		Metadata: map[string]interface{}{
			"model":      o.gateway.ModelName(),
			"latency_ms": latency.Milliseconds(),
		},
	}
	if err := messages.Append(detached, assistantTurn); err != nil {
		return failRoom(appendError("orchestrator.persist_assistant_turn", err))
	}
	res.AssistantMessage = assistantTurn
	if err := step(triggerAssistantPersisted); err != nil {
		return failRoom(err)
	}
	o.afterPersist(ctx, assistantTurn)

	delivered, err := o.rooms.Broadcast(chatID, dto.AssistantReplyEvent{
		Type:    constant.EventAssistantReply,
		ChatId:  chatID.String(),
		Content: reply,
	})
	if err != nil {
		return fail(apperr.Wrap(apperr.Internal, "orchestrator.broadcast", err))
	}
	res.RoomNotified = true
	res.Delivered = delivered
	if err := step(triggerBroadcast); err != nil {
		return fail(err)
	}

	finish()
	o.logger.Info("Orchestrator", "Turn completed", map[string]interface{}{
		"chat_id":    chatID,
		"delivered":  delivered,
		"latency_ms": latency.Milliseconds(),
	})
	return res, nil
}

// appendError reports a chat deleted mid-turn as NotFound.
func appendError(op string, err error) error {
	if errors.Is(err, contract.ErrChatGone) {
		return apperr.Wrap(apperr.NotFound, op, err)
	}
	return apperr.Wrap(apperr.Persistence, op, err)
}

func (o *orchestrator) generateTimeout() time.Duration {
	if o.cfg.GenerateTimeout > 0 {
		return o.cfg.GenerateTimeout
	}
	return 90 * time.Second
}

// loadContext returns the chat's turns in append order, trimmed to the newest
// ContextLimit turns when a limit is set.
func (o *orchestrator) loadContext(ctx context.Context, uow unitofwork.UnitOfWork, chatID uuid.UUID) ([]llm.Message, error) {
	var (
		turns []*entity.Message
		err   error
	)
	if o.cfg.ContextLimit > 0 {
		turns, err = uow.MessageRepository().FindAll(ctx, specification.ByChatID{ChatID: chatID}, specification.LatestTurns{Limit: o.cfg.ContextLimit})
		for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
			turns[i], turns[j] = turns[j], turns[i]
		}
	} else {
		turns, err = uow.MessageRepository().FindAll(ctx, specification.ByChatID{ChatID: chatID}, specification.InAppendOrder{})
	}
	if err != nil {
		return nil, err
	}

	history := make([]llm.Message, 0, len(turns))
	for _, t := range turns {
		role := llm.RoleUser
		if t.Role == entity.RoleAssistant {
			role = llm.RoleAssistant
		}
		history = append(history, llm.Message{Role: role, Content: t.Content})
	}
	return history, nil
}

// afterPersist queues the embedding job and announces the turn. Neither can
// change the outcome of the turn.
func (o *orchestrator) afterPersist(ctx context.Context, msg *entity.Message) {
	if o.jobs != nil {
		err := o.jobs.SendMessage(ctx, dto.PublishEmbedMessage{MessageId: msg.Id, ChatId: msg.ChatId})
		if err != nil {
			o.logger.Warn("Orchestrator", "Failed to queue embedding job", map[string]interface{}{"message_id": msg.Id, "error": err})
		}
	}

	o.publishEvent(ctx, events.New(constant.EventMessagePersisted, map[string]interface{}{
		"chat_id":    msg.ChatId.String(),
		"message_id": msg.Id.String(),
		"role":       string(msg.Role),
		"seq":        msg.Seq,
	}))
}

func (o *orchestrator) publishEvent(ctx context.Context, event events.Event) {
	go func() {
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), eventPublishTimeout)
		defer cancel()
		if err := o.bus.Publish(pubCtx, event); err != nil {
			o.logger.Warn("Orchestrator", "Failed to publish domain event", map[string]interface{}{"type": event.EventType(), "error": err})
		}
	}()
}
