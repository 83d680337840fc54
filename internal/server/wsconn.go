package server

import (
	"context"

	"nhooyr.io/websocket"
)

// wsConn adapts a nhooyr.io/websocket connection to broker.Conn, so the
// broker package never needs to import a transport library directly.
type wsConn struct {
	c *websocket.Conn
}

func (w *wsConn) WriteMessage(ctx context.Context, data []byte) error {
	return w.c.Write(ctx, websocket.MessageText, data)
}

func (w *wsConn) Close() error {
	return w.c.Close(websocket.StatusNormalClosure, "")
}
