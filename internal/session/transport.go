package session

import (
	"context"
	"sync"

	"github.com/gorilla/websocket"
)

// transport is the minimal frame surface the session needs from its
// connection. Production sessions wrap a gorilla websocket; tests inject an
// in-memory fake.
type transport interface {
	WriteText(data []byte) error
	WriteBinary(data []byte) error
	// Read blocks until the next inbound frame or a connection error.
	Read() ([]byte, error)
	Close() error
}

type wsConn struct {
	conn *websocket.Conn
	// gorilla allows at most one concurrent writer.
	mu sync.Mutex
}

func dialBackend(ctx context.Context, url string) (transport, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return &wsConn{conn: conn}, nil
}

func (c *wsConn) WriteText(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) WriteBinary(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.BinaryMessage, data)
}

func (c *wsConn) Read() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	return data, err
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}
