// internal/hub/hub.go
// Provides the Hub: the connection registry and the single event loop that
// serializes joins, messages, typing relays and disconnects.
package hub

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/erilali/chatrelay/internal/history"
	"github.com/erilali/chatrelay/internal/logger"
	"github.com/erilali/chatrelay/internal/message"
	"github.com/gorilla/websocket"
)

const defaultSendBuffer = 256

// Options configure a Hub. Zero values fall back to defaults.
type Options struct {
	HistorySize      int
	MaxMessageLength int
	SendBuffer       int
	CheckOrigin      func(r *http.Request) bool
	Publisher        Publisher
	SubjectPrefix    string
	Logger           *logger.Logger
	Now              func() time.Time
}

type inboundEvent struct {
	clientID string
	frame    []byte
}

// Hub owns every Client and the shared History. All mutation happens on the
// goroutine running Run, which gives every observer the same event order.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan string
	inbound    chan inboundEvent
	mu         sync.RWMutex

	history       *history.History
	maxMessageLen int
	readLimit     int64
	sendBuffer    int
	upgrader      websocket.Upgrader
	publisher     Publisher
	subjectPrefix string
	now           func() time.Time
	logger        *logger.Logger

	lifeMu sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewHub creates a Hub ready to Run.
func NewHub(opts Options) *Hub {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = defaultSendBuffer
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewLogger("hub")
	}
	if opts.SubjectPrefix == "" {
		opts.SubjectPrefix = "chat"
	}
	checkOrigin := opts.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan string),
		inbound:    make(chan inboundEvent, 64),
		history:    history.New(opts.HistorySize),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		maxMessageLen: opts.MaxMessageLength,
		readLimit:     message.FrameLimit(opts.MaxMessageLength),
		sendBuffer:    opts.SendBuffer,
		publisher:     opts.Publisher,
		subjectPrefix: opts.SubjectPrefix,
		now:           opts.Now,
		logger:        opts.Logger,
		ctx:           ctx,
		cancel:        cancel,
		done:          make(chan struct{}),
	}
}

// Run is the hub's event loop. It returns after Shutdown.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.WithFields(map[string]interface{}{
				"client": client.ID,
				"addr":   client.Addr,
				"total":  total,
			}).Debug("Client connected")

		case id := <-h.unregister:
			h.handleDisconnect(id)

		case ev := <-h.inbound:
			h.dispatch(ev)
		}
	}
}

// handleDisconnect drops the client and, if it had joined, tells everyone
// still connected that it left.
func (h *Hub) handleDisconnect(id string) {
	h.mu.Lock()
	client, ok := h.clients[id]
	if ok {
		delete(h.clients, id)
	}
	total := len(h.clients)
	h.mu.Unlock()
	if !ok {
		return
	}

	h.markClosed(client)
	h.logger.WithFields(map[string]interface{}{
		"client":   client.ID,
		"total":    total,
		"duration": time.Since(client.ConnectedAt).Round(time.Millisecond).String(),
	}).Debug("Client disconnected")

	if !client.joined() {
		return
	}
	notice := client.Username + " left the chat"
	h.broadcast(message.EventSystem, notice, nil)
	h.publishSystem("leave", client.Username, notice)
	h.logger.LogEvent("info", "leave", client.Username, "")
}

// markClosed stops delivery to c. Closing the send channel makes the write
// pump send a close frame and tear down the transport.
func (h *Hub) markClosed(c *Client) {
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[string]*Client)
	h.mu.Unlock()

	for _, c := range clients {
		h.markClosed(c)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	}
	h.logger.Infof("Closed %d client connections", len(clients))
}

// Shutdown stops the event loop, closes every connection and waits for the
// per-connection goroutines, up to timeout.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.lifeMu.Lock()
	h.cancel()
	h.lifeMu.Unlock()
	<-h.done

	finished := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-time.After(timeout):
		h.logger.Warn("Hub shutdown timed out waiting for connections")
		return context.DeadlineExceeded
	}
}

// ClientCount returns the number of open connections, joined or not.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// JoinedCount returns the number of connections that have joined.
func (h *Hub) JoinedCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, c := range h.clients {
		if c.joined() {
			n++
		}
	}
	return n
}

// History exposes the rolling window for read-only use.
func (h *Hub) History() []message.Message {
	return h.history.Snapshot()
}

func (h *Hub) HistoryCapacity() int {
	return h.history.Capacity()
}
