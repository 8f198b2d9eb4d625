// internal/hub/websocket.go
package hub

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	webSocketReadDeadline  = 60 * time.Second
	webSocketWriteDeadline = 10 * time.Second
	webSocketPingPeriod    = (webSocketReadDeadline * 9) / 10 // Must be less than readDeadline
)

// ServeWs upgrades the HTTP connection to a WebSocket and registers an
// unjoined client. The client picks its name later with a join event.
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.ctx.Err() != nil {
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Errorf("WebSocket upgrade error: %v", err)
		return
	}

	// Shutdown cancels under lifeMu, so once it is waiting on wg no new
	// pumps can be added.
	h.lifeMu.Lock()
	if h.ctx.Err() != nil {
		h.lifeMu.Unlock()
		_ = conn.Close()
		return
	}
	h.wg.Add(2)
	h.lifeMu.Unlock()

	client := newClient(conn, r.RemoteAddr, h.sendBuffer)
	select {
	case h.register <- client:
	case <-h.ctx.Done():
		h.wg.Add(-2)
		_ = conn.Close()
		return
	}
	go h.readPump(client)
	go h.writePump(client)
}

// readPump forwards every frame from the connection to the hub loop until
// the transport fails, then reports the disconnect.
func (h *Hub) readPump(client *Client) {
	defer func() {
		select {
		case h.unregister <- client.ID:
		case <-h.done:
		}
		_ = client.conn.Close()
		h.wg.Done()
	}()

	client.conn.SetReadLimit(h.readLimit)
	_ = client.conn.SetReadDeadline(time.Now().Add(webSocketReadDeadline))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(webSocketReadDeadline))
	})

	for {
		_, frame, err := client.conn.ReadMessage()
		if err != nil {
			h.logReadError(client, err)
			return
		}
		select {
		case h.inbound <- inboundEvent{clientID: client.ID, frame: frame}:
		case <-h.done:
			return
		}
	}
}

func (h *Hub) logReadError(client *Client, err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		h.logger.WithField("client", client.ID).Warnf("Frame exceeded %d bytes", h.readLimit)
	case websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived):
		h.logger.WithField("client", client.ID).Debugf("WebSocket closed unexpectedly: %v", err)
	}
}

// writePump drains the client's send channel onto the connection, one frame
// per event, and keeps the connection alive with pings. Every write is
// bounded by webSocketWriteDeadline.
func (h *Hub) writePump(client *Client) {
	ticker := time.NewTicker(webSocketPingPeriod)
	defer func() {
		ticker.Stop()
		_ = client.conn.Close()
		h.wg.Done()
	}()

	for {
		select {
		case frame, ok := <-client.send:
			_ = client.conn.SetWriteDeadline(time.Now().Add(webSocketWriteDeadline))
			if !ok {
				// The hub closed the channel.
				_ = client.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(webSocketWriteDeadline))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
