package websocket

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type frame struct {
	Type    string `json:"type"`
	ChatId  string `json:"chatId"`
	Content string `json:"content"`
}

func newTestClient() *Client {
	return NewClient(nil, nil, uuid.New())
}

func TestJoinIsIdempotent(t *testing.T) {
	r := NewRegistry()
	c := newTestClient()
	chatID := uuid.New()

	r.Join(c, chatID)
	r.Join(c, chatID)

	assert.Equal(t, 1, r.Members(chatID))
	assert.Equal(t, 1, r.Rooms())
	room, ok := r.RoomOf(c)
	assert.True(t, ok)
	assert.Equal(t, chatID, room)
}

func TestJoinReplacesPreviousRoom(t *testing.T) {
	r := NewRegistry()
	c := newTestClient()
	x, y := uuid.New(), uuid.New()

	r.Join(c, x)
	r.Join(c, y)

	assert.Equal(t, 0, r.Members(x))
	assert.Equal(t, 1, r.Members(y))
	assert.Equal(t, 1, r.Rooms())

	n, err := r.Broadcast(x, frame{Type: "assistant_reply"})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Len(t, c.Send, 0)
}

func TestLeave(t *testing.T) {
	r := NewRegistry()
	c := newTestClient()
	chatID := uuid.New()

	// Leaving without a room is a no-op.
	r.Leave(c)

	r.Join(c, chatID)
	r.Leave(c)
	r.Leave(c)

	_, ok := r.RoomOf(c)
	assert.False(t, ok)
	assert.Equal(t, 0, r.Members(chatID))
	assert.Equal(t, 0, r.Rooms())
}

func TestBroadcastToEmptyRoomIsDropped(t *testing.T) {
	r := NewRegistry()
	other := newTestClient()
	busy := uuid.New()
	r.Join(other, busy)

	n, err := r.Broadcast(uuid.New(), frame{Type: "assistant_reply", Content: "nobody listens"})
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	assert.Equal(t, 1, r.Members(busy))
	assert.Equal(t, 1, r.Rooms())
	assert.Len(t, other.Send, 0)
}

func TestBroadcastRoundTrip(t *testing.T) {
	r := NewRegistry()
	a, b := newTestClient(), newTestClient()
	x, y := uuid.New(), uuid.New()
	r.Join(a, x)
	r.Join(b, y)

	content := "exact content ✓ with \"quotes\" and\nnewlines"
	n, err := r.Broadcast(x, frame{Type: "assistant_reply", ChatId: x.String(), Content: content})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.Len(t, a.Send, 1)
	var got frame
	require.NoError(t, json.Unmarshal(<-a.Send, &got))
	assert.Equal(t, content, got.Content)
	assert.Equal(t, x.String(), got.ChatId)
	assert.Len(t, b.Send, 0)
}

func TestSlowConsumerIsEvicted(t *testing.T) {
	r := NewRegistry()
	var evicted []*Client
	r.onEvict = func(c *Client) { evicted = append(evicted, c) }

	slow, fast := newTestClient(), newTestClient()
	slow.Send = make(chan []byte) // never drained
	chatID := uuid.New()
	r.Join(slow, chatID)
	r.Join(fast, chatID)

	n, err := r.Broadcast(chatID, frame{Type: "assistant_reply"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []*Client{slow}, evicted)
	assert.Equal(t, 1, r.Members(chatID))
	_, ok := r.RoomOf(slow)
	assert.False(t, ok)
}

func TestClosedClientReceivesNothing(t *testing.T) {
	c := newTestClient()
	c.close()
	c.close()

	assert.False(t, c.Deliver([]byte("{}")))
}

func TestJoinRefusesClosedClient(t *testing.T) {
	r := NewRegistry()
	c := newTestClient()
	chatID := uuid.New()
	c.close()

	assert.False(t, r.Join(c, chatID))
	assert.Equal(t, 0, r.Members(chatID))
	assert.Equal(t, 0, r.Rooms())
}

func TestConcurrentMembershipChanges(t *testing.T) {
	r := NewRegistry()
	rooms := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	clients := make([]*Client, 50)
	for i := range clients {
		clients[i] = newTestClient()
	}

	var wg sync.WaitGroup
	for i, c := range clients {
		wg.Add(1)
		go func(i int, c *Client) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				r.Join(c, rooms[(i+j)%len(rooms)])
				_, _ = r.Broadcast(rooms[j%len(rooms)], frame{Type: "assistant_reply"})
				if j%7 == 0 {
					r.Leave(c)
				}
			}
		}(i, c)
	}
	wg.Wait()

	total := 0
	for _, room := range rooms {
		total += r.Members(room)
	}
	joined := 0
	for _, c := range clients {
		if _, ok := r.RoomOf(c); ok {
			joined++
		}
	}
	assert.Equal(t, joined, total)
}
