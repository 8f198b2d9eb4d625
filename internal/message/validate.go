package message

import (
	"encoding/json"
	"errors"
	"strings"
	"unicode/utf8"
)

const (
	// MaxTextLength is the largest max_message_length the relay accepts.
	MaxTextLength = 100_000

	// A rune written as a \uXXXX escape takes six bytes on the wire.
	bytesPerRune  = 6
	frameOverhead = 1024
	minFrameSize  = 64 * 1024
)

// FrameLimit is the largest inbound frame, in bytes, that can carry a
// message of maxLen runes. Zero maxLen means unlimited and is capped at
// MaxTextLength. The floor keeps overlong pastes readable so they are
// answered with ErrTextTooLong instead of a dropped connection.
func FrameLimit(maxLen int) int64 {
	if maxLen <= 0 || maxLen > MaxTextLength {
		maxLen = MaxTextLength
	}
	limit := int64(maxLen)*bytesPerRune + frameOverhead
	if limit < minFrameSize {
		return minFrameSize
	}
	return limit
}

var (
	ErrMalformed    = errors.New("malformed frame")
	ErrMissingEvent = errors.New("missing event name")
	ErrNotString    = errors.New("payload must be a string")
	ErrEmptyName    = errors.New("username must not be empty")
	ErrEmptyText    = errors.New("message must not be empty")
	ErrTextTooLong  = errors.New("message is too long")
	ErrNotJoined    = errors.New("join the chat before sending messages")
	ErrUnknownEvent = errors.New("unknown event")
)

// ParseString decodes a JSON string payload and trims it. Anything other
// than a JSON string, including null, is ErrNotString.
func ParseString(raw json.RawMessage) (string, error) {
	trimmed := strings.TrimSpace(string(raw))
	if len(trimmed) == 0 || trimmed[0] != '"' {
		return "", ErrNotString
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", ErrNotString
	}
	return strings.TrimSpace(s), nil
}

// ParseName validates a join payload.
func ParseName(raw json.RawMessage) (string, error) {
	name, err := ParseString(raw)
	if err != nil {
		return "", err
	}
	if name == "" {
		return "", ErrEmptyName
	}
	return name, nil
}

// ParseText validates a message payload. maxLen counts runes; zero means
// unlimited.
func ParseText(raw json.RawMessage, maxLen int) (string, error) {
	text, err := ParseString(raw)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", ErrEmptyText
	}
	if maxLen > 0 && utf8.RuneCountInString(text) > maxLen {
		return "", ErrTextTooLong
	}
	return text, nil
}

// Reason maps a validation error to the text sent in an error-message event.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrNotString):
		return "Invalid payload: expected a string"
	case errors.Is(err, ErrEmptyName):
		return "Username cannot be empty"
	case errors.Is(err, ErrEmptyText):
		return "Message cannot be empty"
	case errors.Is(err, ErrTextTooLong):
		return "Message is too long"
	case errors.Is(err, ErrNotJoined):
		return "Join the chat before sending messages"
	case errors.Is(err, ErrUnknownEvent):
		return "Unknown event"
	case errors.Is(err, ErrMalformed), errors.Is(err, ErrMissingEvent):
		return "Invalid message format"
	default:
		return "Something went wrong"
	}
}
