// Package history keeps the rolling window of recent chat messages shared by
// every connection.
package history

import (
	"sync"

	"github.com/erilali/chatrelay/internal/message"
)

const DefaultCapacity = 20

// History is an insertion-ordered buffer holding at most Capacity messages.
// Appending past the bound evicts from the front.
type History struct {
	mu       sync.RWMutex
	messages []message.Message
	capacity int
}

func New(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &History{
		messages: make([]message.Message, 0, capacity),
		capacity: capacity,
	}
}

// Append stores msg and returns how many entries were evicted.
func (h *History) Append(msg message.Message) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.messages = append(h.messages, msg)
	evicted := len(h.messages) - h.capacity
	if evicted <= 0 {
		return 0
	}
	// Shift in place so the backing array does not grow without bound.
	n := copy(h.messages, h.messages[evicted:])
	clear(h.messages[n:])
	h.messages = h.messages[:n]
	return evicted
}

// Snapshot returns a copy of the current window, oldest first.
func (h *History) Snapshot() []message.Message {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]message.Message, len(h.messages))
	copy(out, h.messages)
	return out
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.messages)
}

func (h *History) Capacity() int { return h.capacity }
