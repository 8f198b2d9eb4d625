// internal/hub/messaging.go
package hub

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/erilali/chatrelay/internal/message"
)

type handlerFunc func(h *Hub, c *Client, data json.RawMessage) error

// handlers maps inbound event names to their handlers. A returned error is
// reported to the sender as an error-message and nothing else happens.
var handlers = map[string]handlerFunc{
	message.EventJoin:       (*Hub).handleJoin,
	message.EventMessage:    (*Hub).handleMessage,
	message.EventTyping:     (*Hub).handleTyping,
	message.EventStopTyping: (*Hub).handleStopTyping,
	message.EventLeave:      (*Hub).handleLeave,
}

// dispatch decodes one frame and runs its handler. A panic in a handler is
// contained to the offending connection.
func (h *Hub) dispatch(ev inboundEvent) {
	client, ok := h.lookup(ev.clientID)
	if !ok || client.closed {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			h.logger.WithField("client", client.ID).Errorf("Recovered from panic handling event: %v", r)
			h.sendError(client, errors.New("internal error"))
		}
	}()

	env, err := message.Decode(ev.frame)
	if err != nil {
		h.logger.WithField("client", client.ID).Debugf("Rejected frame: %v", err)
		h.sendError(client, err)
		return
	}

	handle, ok := handlers[env.Event]
	if !ok {
		h.sendError(client, fmt.Errorf("%w: %q", message.ErrUnknownEvent, env.Event))
		return
	}
	if err := handle(h, client, env.Data); err != nil {
		h.logger.LogEvent("debug", "rejected_"+env.Event, client.Username, err.Error())
		h.sendError(client, err)
	}
}

func (h *Hub) lookup(id string) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[id]
	return c, ok
}

// handleJoin sets the session's display name, hands it the current history
// and announces it to everyone else. A second join overwrites the name.
func (h *Hub) handleJoin(c *Client, data json.RawMessage) error {
	name, err := message.ParseName(data)
	if err != nil {
		return err
	}

	h.mu.Lock()
	c.Username = name
	h.mu.Unlock()

	h.sendTo(c, message.EventHistory, h.history.Snapshot())

	notice := name + " joined the chat"
	h.broadcast(message.EventSystem, notice, c)
	h.publishSystem("join", name, notice)
	h.logger.LogEvent("info", "join", name, "")
	return nil
}

// handleMessage accepts a chat line, records it and sends it to every
// connection, the sender included.
func (h *Hub) handleMessage(c *Client, data json.RawMessage) error {
	text, err := message.ParseText(data, h.maxMessageLen)
	if err != nil {
		return err
	}
	if !c.joined() {
		return message.ErrNotJoined
	}

	msg := message.New(c.Username, text, h.now())
	if evicted := h.history.Append(msg); evicted > 0 {
		h.logger.Debugf("History full, evicted %d message(s)", evicted)
	}
	h.broadcast(message.EventMessage, msg, nil)
	h.publishMessage(msg)
	h.logger.LogEvent("debug", "message", msg.Username, msg.Text)
	return nil
}

func (h *Hub) handleTyping(c *Client, data json.RawMessage) error {
	return h.relayTyping(message.EventTyping, c, data)
}

func (h *Hub) handleStopTyping(c *Client, data json.RawMessage) error {
	return h.relayTyping(message.EventStopTyping, c, data)
}

// relayTyping forwards a typing notice to everyone but the originator. The
// relay keeps no typing state. An empty name falls back to the session's own.
func (h *Hub) relayTyping(event string, c *Client, data json.RawMessage) error {
	name, err := message.ParseString(data)
	if err != nil {
		return err
	}
	if name == "" {
		name = c.Username
	}
	if name == "" {
		return nil
	}
	h.broadcast(event, name, c)
	return nil
}

// handleLeave closes the transport. The departure notice is sent by the
// disconnect that follows.
func (h *Hub) handleLeave(c *Client, _ json.RawMessage) error {
	h.markClosed(c)
	return nil
}
