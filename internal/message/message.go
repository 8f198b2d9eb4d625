// internal/message/message.go
// Contains the chat message type and the event envelope exchanged between
// clients and the relay.
package message

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimestampLayout is fixed width so timestamps sort lexically.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Client to server events.
const (
	EventJoin       = "join"
	EventMessage    = "message"
	EventTyping     = "typing"
	EventStopTyping = "stopTyping"
	EventLeave      = "leave"
)

// Server to client events. message, typing and stopTyping reuse the names above.
const (
	EventHistory      = "history"
	EventSystem       = "system"
	EventErrorMessage = "error-message"
)

type Message struct {
	Username  string `json:"username"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// New stamps a message with t in UTC.
func New(username, text string, t time.Time) Message {
	return Message{
		Username:  username,
		Text:      text,
		Timestamp: FormatTimestamp(t),
	}
}

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Envelope is one WebSocket frame: a named event and its JSON payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Encode marshals an outbound event.
func Encode(event string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: data})
}

// Decode parses an inbound frame. The payload is left raw for the handler
// to validate.
func Decode(frame []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Event == "" {
		return Envelope{}, ErrMissingEvent
	}
	return env, nil
}
