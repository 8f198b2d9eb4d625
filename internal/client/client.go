// Package client is a Go consumer of the relay's event contract. It mirrors
// what the mobile app does: join with a name, send messages and announce
// typing with a local debounce timer.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/erilali/chatrelay/internal/logger"
	"github.com/erilali/chatrelay/internal/message"
	"github.com/gorilla/websocket"
)

const DefaultTypingTimeout = 2 * time.Second

var ErrNotJoined = errors.New("client has not joined")

type Option func(*Client)

// WithTypingTimeout sets how long after the last keystroke stopTyping is sent.
func WithTypingTimeout(d time.Duration) Option {
	return func(c *Client) { c.typingTimeout = d }
}

func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.logger = l }
}

type Client struct {
	conn          *websocket.Conn
	writeMu       sync.Mutex
	events        chan message.Envelope
	done          chan struct{}
	typing        *Debouncer
	typingTimeout time.Duration
	logger        *logger.Logger

	mu       sync.Mutex
	username string

	closeOnce sync.Once
}

// Dial connects to a relay WebSocket URL such as ws://localhost:3005/ws.
func Dial(ctx context.Context, url string, opts ...Option) (*Client, error) {
	c := &Client{
		events:        make(chan message.Envelope, 64),
		done:          make(chan struct{}),
		typingTimeout: DefaultTypingTimeout,
		logger:        logger.NewLogger("client"),
	}
	for _, opt := range opts {
		opt(c)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	c.conn = conn
	c.typing = NewDebouncer(c.typingTimeout, c.sendTyping, c.sendStopTyping)

	go c.readLoop()
	return c, nil
}

// Events delivers every event from the relay. It is closed when the
// connection ends or Close is called, even if nobody is draining it.
func (c *Client) Events() <-chan message.Envelope { return c.events }

func (c *Client) readLoop() {
	defer close(c.events)
	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Warnf("Connection closed: %v", err)
			}
			return
		}
		env, err := message.Decode(frame)
		if err != nil {
			c.logger.Warnf("Ignoring bad frame: %v", err)
			continue
		}
		select {
		case c.events <- env:
		case <-c.done:
			return
		}
	}
}

func (c *Client) emit(event string, payload interface{}) error {
	frame, err := message.Encode(event, payload)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteMessage(websocket.TextMessage, frame)
}

// Join announces the display name. The relay answers with a history event.
func (c *Client) Join(name string) error {
	c.mu.Lock()
	c.username = name
	c.mu.Unlock()
	return c.emit(message.EventJoin, name)
}

func (c *Client) Username() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.username
}

// Send ends any typing burst and sends a chat message. The message comes
// back through Events once the relay accepts it.
func (c *Client) Send(text string) error {
	c.typing.Cancel()
	return c.emit(message.EventMessage, text)
}

// Keystroke reports local input activity. The first keystroke of a burst
// emits typing; stopTyping follows once input goes quiet.
func (c *Client) Keystroke() error {
	if c.Username() == "" {
		return ErrNotJoined
	}
	c.typing.Touch()
	return nil
}

// StopTyping ends a typing burst immediately.
func (c *Client) StopTyping() {
	c.typing.Cancel()
}

func (c *Client) sendTyping() {
	if err := c.emit(message.EventTyping, c.Username()); err != nil {
		c.logger.Warnf("Failed to send typing: %v", err)
	}
}

func (c *Client) sendStopTyping() {
	if err := c.emit(message.EventStopTyping, c.Username()); err != nil {
		c.logger.Warnf("Failed to send stopTyping: %v", err)
	}
}

// Leave asks the relay to close the session.
func (c *Client) Leave() error {
	c.typing.Stop()
	return c.emit(message.EventLeave, nil)
}

// Close tears down the connection without a leave event.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		c.typing.Stop()
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}

// DecodeString is a helper for string payloads such as system and typing.
func DecodeString(env message.Envelope) (string, error) {
	var s string
	err := json.Unmarshal(env.Data, &s)
	return s, err
}

// DecodeMessage decodes a message event payload.
func DecodeMessage(env message.Envelope) (message.Message, error) {
	var m message.Message
	err := json.Unmarshal(env.Data, &m)
	return m, err
}

// DecodeHistory decodes a history event payload.
func DecodeHistory(env message.Envelope) ([]message.Message, error) {
	var h []message.Message
	err := json.Unmarshal(env.Data, &h)
	return h, err
}
