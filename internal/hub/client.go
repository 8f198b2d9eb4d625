// internal/hub/client.go
package hub

import (
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Client is one connected session. Username stays empty until a successful
// join. Username, closed and the send channel's lifecycle are owned by the
// hub goroutine.
type Client struct {
	ID          string
	Username    string
	Addr        string
	ConnectedAt time.Time

	conn   *websocket.Conn
	send   chan []byte
	closed bool
}

func newClient(conn *websocket.Conn, addr string, buffer int) *Client {
	return &Client{
		ID:          uuid.NewString(),
		Addr:        addr,
		ConnectedAt: time.Now(),
		conn:        conn,
		send:        make(chan []byte, buffer),
	}
}

func (c *Client) joined() bool { return c.Username != "" }
