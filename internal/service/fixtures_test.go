package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"own-ai-chat/internal/entity"
	"own-ai-chat/internal/model"
	"own-ai-chat/internal/pkg/logger"
	"own-ai-chat/internal/repository/contract"
	"own-ai-chat/internal/repository/memory"
	"own-ai-chat/internal/repository/specification"
	"own-ai-chat/internal/repository/unitofwork"
	"own-ai-chat/pkg/database"
	"own-ai-chat/pkg/events"
	"own-ai-chat/pkg/llm"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.NewSQLiteDB(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	require.NoError(t, model.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// fakeGateway answers every Generate with reply or err and records what it was asked.
type fakeGateway struct {
	mu        sync.Mutex
	reply     string
	err       error
	calls     int
	histories [][]llm.Message
	// onGenerate runs before the answer is returned.
	onGenerate func(ctx context.Context, history []llm.Message)
}

func (g *fakeGateway) Generate(ctx context.Context, history []llm.Message) (string, error) {
	g.mu.Lock()
	g.calls++
	g.histories = append(g.histories, append([]llm.Message(nil), history...))
	hook, reply, err := g.onGenerate, g.reply, g.err
	g.mu.Unlock()

	if hook != nil {
		hook(ctx, history)
	}
	if err != nil {
		return "", err
	}
	if reply == "" {
		reply = "Hi there! How can I help?"
	}
	return reply, nil
}

func (g *fakeGateway) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.6, 0.8}, nil
}

func (g *fakeGateway) ModelName() string {
	return "fake/model"
}

func (g *fakeGateway) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func (g *fakeGateway) LastHistory() []llm.Message {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.histories) == 0 {
		return nil
	}
	return g.histories[len(g.histories)-1]
}

type recordedEvent struct {
	ChatID uuid.UUID
	Frame  map[string]interface{}
}

// recordingBroadcaster keeps every broadcast and pretends one connection received it.
type recordingBroadcaster struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (b *recordingBroadcaster) Broadcast(chatID uuid.UUID, event interface{}) (int, error) {
	raw, err := json.Marshal(event)
	if err != nil {
		return 0, err
	}
	var frame map[string]interface{}
	if err := json.Unmarshal(raw, &frame); err != nil {
		return 0, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, recordedEvent{ChatID: chatID, Frame: frame})
	return 1, nil
}

func (b *recordingBroadcaster) Events() []recordedEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]recordedEvent(nil), b.events...)
}

type recordingJobs struct {
	mu       sync.Mutex
	payloads []interface{}
}

func (r *recordingJobs) SendMessage(ctx context.Context, payload interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads = append(r.payloads, payload)
	return nil
}

func (r *recordingJobs) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.payloads)
}

type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingBus) Publish(ctx context.Context, event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingBus) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType())
	}
	return out
}

var errStoreDown = errors.New("store unavailable")

// failingFactory wraps a real factory and makes appends of one role fail.
type failingFactory struct {
	inner    unitofwork.RepositoryFactory
	failRole entity.MessageRole
}

func (f *failingFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &failingUoW{UnitOfWork: f.inner.NewUnitOfWork(ctx), failRole: f.failRole}
}

type failingUoW struct {
	unitofwork.UnitOfWork
	failRole entity.MessageRole
}

func (u *failingUoW) MessageRepository() contract.MessageRepository {
	return &failingMessages{MessageRepository: u.UnitOfWork.MessageRepository(), failRole: u.failRole}
}

type failingMessages struct {
	contract.MessageRepository
	failRole entity.MessageRole
}

func (m *failingMessages) Append(ctx context.Context, message *entity.Message) error {
	if message.Role == m.failRole {
		return errStoreDown
	}
	return m.MessageRepository.Append(ctx, message)
}

type fixture struct {
	factory unitofwork.RepositoryFactory
	access  *ChatAccess
	gateway *fakeGateway
	rooms   *recordingBroadcaster
	jobs    *recordingJobs
	bus     *recordingBus
	chats   IChatService
	orch    IOrchestrator

	alice, bob uuid.UUID
}

type fixtureOption func(*fixtureSettings)

type fixtureSettings struct {
	cfg     OrchestratorConfig
	factory func(unitofwork.RepositoryFactory) unitofwork.RepositoryFactory
	rooms   Broadcaster
}

func withConfig(cfg OrchestratorConfig) fixtureOption {
	return func(s *fixtureSettings) { s.cfg = cfg }
}

func withFailingAppend(role entity.MessageRole) fixtureOption {
	return func(s *fixtureSettings) {
		s.factory = func(inner unitofwork.RepositoryFactory) unitofwork.RepositoryFactory {
			return &failingFactory{inner: inner, failRole: role}
		}
	}
}

func withRooms(rooms Broadcaster) fixtureOption {
	return func(s *fixtureSettings) { s.rooms = rooms }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	settings := &fixtureSettings{cfg: OrchestratorConfig{GenerateTimeout: 5 * time.Second}}
	for _, opt := range opts {
		opt(settings)
	}

	f := &fixture{
		factory: unitofwork.NewRepositoryFactory(newTestDB(t)),
		gateway: &fakeGateway{},
		rooms:   &recordingBroadcaster{},
		jobs:    &recordingJobs{},
		bus:     &recordingBus{},
		alice:   uuid.New(),
		bob:     uuid.New(),
	}
	f.access = NewChatAccess(f.factory, memory.NewOwnershipCache(time.Minute))

	orchFactory := f.factory
	if settings.factory != nil {
		orchFactory = settings.factory(f.factory)
	}
	var rooms Broadcaster = f.rooms
	if settings.rooms != nil {
		rooms = settings.rooms
	}

	log := logger.NewNopLogger()
	f.chats = NewChatService(f.factory, f.access, f.bus, log)
	f.orch = NewOrchestrator(orchFactory, f.access, f.gateway, rooms, f.jobs, f.bus, log, settings.cfg)
	return f
}

func (f *fixture) createChat(t *testing.T, owner uuid.UUID, title string) uuid.UUID {
	t.Helper()
	chat := &entity.Chat{UserId: owner, Title: title}
	require.NoError(t, f.factory.NewUnitOfWork(context.Background()).ChatRepository().Create(context.Background(), chat))
	return chat.Id
}

func (f *fixture) history(t *testing.T, chatID uuid.UUID) []*entity.Message {
	t.Helper()
	msgs, err := f.factory.NewUnitOfWork(context.Background()).MessageRepository().FindAll(
		context.Background(), specification.ByChatID{ChatID: chatID}, specification.InAppendOrder{})
	require.NoError(t, err)
	return msgs
}
