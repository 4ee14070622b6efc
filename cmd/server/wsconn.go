package main

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/opd-ai/landkeep/pkg/transport"
)

// wsConnection adapts a *websocket.Conn to transport.Connection, guarding
// concurrent writes with a mutex since gorilla/websocket forbids concurrent
// writers on the same connection.
type wsConnection struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func newWSConnection(conn *websocket.Conn) *wsConnection {
	return &wsConnection{conn: conn}
}

func (c *wsConnection) Send(ctx context.Context, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConnection) Close(reason transport.ConnectionCloseReason) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	code := websocket.CloseNormalClosure
	if reason == transport.CloseError {
		code = websocket.CloseInternalServerErr
	}
	msg := websocket.FormatCloseMessage(code, reason.String())
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return c.conn.Close()
}
