package websocket

import (
	"testing"
	"time"

	"own-ai-chat/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestDisconnectLeavesRoom(t *testing.T) {
	hub := NewHub(logger.NewNopLogger())
	go hub.Run()

	c := NewClient(hub, nil, uuid.New())
	hub.Register(c)
	assert.Eventually(t, func() bool { return hub.Connected() == 1 }, time.Second, 5*time.Millisecond)

	chatID := uuid.New()
	hub.Rooms.Join(c, chatID)
	assert.Equal(t, 1, hub.Rooms.Members(chatID))

	hub.Disconnect(c)
	assert.Eventually(t, func() bool { return hub.Connected() == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, hub.Rooms.Members(chatID))

	_, open := <-c.Send
	assert.False(t, open)

	n, err := hub.Broadcast(chatID, map[string]string{"type": "assistant_reply"})
	assert.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestEvictedClientCannotRejoinAfterDisconnect(t *testing.T) {
	hub := NewHub(logger.NewNopLogger())
	go hub.Run()

	c := NewClient(hub, nil, uuid.New())
	hub.Register(c)
	assert.Eventually(t, func() bool { return hub.Connected() == 1 }, time.Second, 5*time.Millisecond)

	x, y := uuid.New(), uuid.New()
	assert.True(t, hub.Rooms.Join(c, x))
	for c.Deliver([]byte("{}")) {
	}

	n, err := hub.Broadcast(x, map[string]string{"type": "assistant_reply"})
	assert.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Eventually(t, func() bool { return hub.Connected() == 0 }, time.Second, 5*time.Millisecond)

	// The read loop of an evicted client can still deliver a join frame.
	assert.False(t, hub.Rooms.Join(c, y))
	assert.Equal(t, 0, hub.Rooms.Members(y))

	hub.Disconnect(c)
	assert.Eventually(t, func() bool { return hub.Rooms.Rooms() == 0 }, time.Second, 5*time.Millisecond)
	_, inRoom := hub.Rooms.RoomOf(c)
	assert.False(t, inRoom)
}

func TestUnregisterClearsRoomOfUnknownClient(t *testing.T) {
	hub := NewHub(logger.NewNopLogger())
	go hub.Run()

	// Never registered with the hub, only with a room.
	c := NewClient(hub, nil, uuid.New())
	chatID := uuid.New()
	assert.True(t, hub.Rooms.Join(c, chatID))

	hub.Disconnect(c)
	assert.Eventually(t, func() bool { return hub.Rooms.Members(chatID) == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(0), hub.Connected())
}
