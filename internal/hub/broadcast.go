// internal/hub/broadcast.go
package hub

import (
	"github.com/erilali/chatrelay/internal/message"
)

// broadcast delivers one event to every open connection except the given
// one (nil means everyone). Delivery is best effort: a recipient whose buffer
// is full is dropped and the rest still receive the event.
func (h *Hub) broadcast(event string, payload interface{}, except *Client) int {
	frame, err := message.Encode(event, payload)
	if err != nil {
		h.logger.Errorf("Failed to encode %s event: %v", event, err)
		return 0
	}

	// Only this goroutine mutates the map, so iterating without the lock is safe.
	delivered := 0
	for _, c := range h.clients {
		if c == except {
			continue
		}
		if h.deliver(c, frame) {
			delivered++
		}
	}
	return delivered
}

// sendTo delivers one event to a single connection.
func (h *Hub) sendTo(c *Client, event string, payload interface{}) bool {
	frame, err := message.Encode(event, payload)
	if err != nil {
		h.logger.Errorf("Failed to encode %s event: %v", event, err)
		return false
	}
	return h.deliver(c, frame)
}

func (h *Hub) sendError(c *Client, err error) {
	h.sendTo(c, message.EventErrorMessage, message.Reason(err))
}

func (h *Hub) deliver(c *Client, frame []byte) bool {
	if c.closed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		h.logger.WithField("client", c.ID).Warn("Send buffer full, dropping client")
		h.markClosed(c)
		return false
	}
}
