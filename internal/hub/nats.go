// internal/hub/nats.go
package hub

import (
	"encoding/json"

	"github.com/erilali/chatrelay/internal/message"
)

// Publisher mirrors relay events to an external bus. *nats.Conn satisfies it.
type Publisher interface {
	Publish(subject string, data []byte) error
}

type systemEvent struct {
	Action    string `json:"action"`
	Username  string `json:"username"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// publishMessage mirrors an accepted chat message to <prefix>.message
func (h *Hub) publishMessage(msg message.Message) {
	h.publish(h.subjectPrefix+".message", msg)
}

// publishSystem mirrors a presence notice to <prefix>.system
func (h *Hub) publishSystem(action, username, text string) {
	h.publish(h.subjectPrefix+".system", systemEvent{
		Action:    action,
		Username:  username,
		Text:      text,
		Timestamp: message.FormatTimestamp(h.now()),
	})
}

func (h *Hub) publish(subject string, payload interface{}) {
	if h.publisher == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Errorf("Failed to marshal %s payload: %v", subject, err)
		return
	}
	if err := h.publisher.Publish(subject, data); err != nil {
		h.logger.Errorf("Failed to publish to NATS subject %s: %v", subject, err)
	}
}
