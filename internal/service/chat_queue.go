package service

import (
	"sync"

	"github.com/google/uuid"
)

// chatLanes runs tasks for one chat one at a time, in submission order.
// Different chats never wait for each other.
type chatLanes struct {
	mu      sync.Mutex
	pending map[uuid.UUID][]func()
}

func newChatLanes() *chatLanes {
	return &chatLanes{pending: make(map[uuid.UUID][]func())}
}

func (q *chatLanes) Submit(chatID uuid.UUID, task func()) {
	q.mu.Lock()
	queued, draining := q.pending[chatID]
	q.pending[chatID] = append(queued, task)
	q.mu.Unlock()

	if !draining {
		go q.drain(chatID)
	}
}

// drain owns the lane while its key is present in pending.
func (q *chatLanes) drain(chatID uuid.UUID) {
	for {
		q.mu.Lock()
		queued := q.pending[chatID]
		if len(queued) == 0 {
			delete(q.pending, chatID)
			q.mu.Unlock()
			return
		}
		task := queued[0]
		q.pending[chatID] = queued[1:]
		q.mu.Unlock()

		task()
	}
}

// Active returns the number of chats with queued or running work.
func (q *chatLanes) Active() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
