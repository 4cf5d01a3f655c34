package websocket

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
)

// Registry tracks which connection is watching which chat. A connection is in
// at most one room; its current room lives on the Client and is only touched
// under the registry lock.
type Registry struct {
	mu    sync.Mutex
	rooms map[uuid.UUID]map[*Client]struct{}

	// onEvict is called outside the lock for clients dropped because their
	// send buffer was full.
	onEvict func(*Client)
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[uuid.UUID]map[*Client]struct{})}
}

// Join moves c into chatID's room, leaving any other room first.
// Joining the room c is already in changes nothing. A closed connection is
// never added and Join reports false.
func (r *Registry) Join(c *Client, chatID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c.isClosed() {
		r.removeLocked(c)
		return false
	}
	if c.room == chatID {
		return true
	}
	r.removeLocked(c)

	members, ok := r.rooms[chatID]
	if !ok {
		members = make(map[*Client]struct{})
		r.rooms[chatID] = members
	}
	members[c] = struct{}{}
	c.room = chatID
	return true
}

// Leave removes c from its room, if any.
func (r *Registry) Leave(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(c)
}

func (r *Registry) removeLocked(c *Client) {
	if c.room == uuid.Nil {
		return
	}
	if members, ok := r.rooms[c.room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(r.rooms, c.room)
		}
	}
	c.room = uuid.Nil
}

// Broadcast sends event as one JSON frame to every member of chatID and returns
// how many connections it reached. An empty room is not an error: the event is dropped.
func (r *Registry) Broadcast(chatID uuid.UUID, event interface{}) (int, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return 0, err
	}

	var evicted []*Client
	delivered := 0

	r.mu.Lock()
	for c := range r.rooms[chatID] {
		if c.trySend(data) {
			delivered++
			continue
		}
		evicted = append(evicted, c)
	}
	for _, c := range evicted {
		r.removeLocked(c)
	}
	r.mu.Unlock()

	if r.onEvict != nil {
		for _, c := range evicted {
			r.onEvict(c)
		}
	}
	return delivered, nil
}

// Members returns the number of connections in chatID's room.
func (r *Registry) Members(chatID uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms[chatID])
}

// RoomOf returns the room c is in.
func (r *Registry) RoomOf(c *Client) (uuid.UUID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return c.room, c.room != uuid.Nil
}

// Rooms returns the number of non-empty rooms.
func (r *Registry) Rooms() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}
