package server

import (
	"context"
	"errors"
	"fmt"
	"io"

	"nhooyr.io/websocket"
)

// wsConn adapts a websocket connection to session.Conn.
type wsConn struct {
	c *websocket.Conn
}

// ReadMessage returns the next frame. A close from the peer is reported
// as io.EOF.
func (w *wsConn) ReadMessage(ctx context.Context) ([]byte, error) {
	_, data, err := w.c.Read(ctx)
	if err != nil {
		switch websocket.CloseStatus(err) {
		case websocket.StatusNormalClosure, websocket.StatusGoingAway, websocket.StatusNoStatusRcvd:
			return nil, io.EOF
		}
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("failed to read frame: %w", err)
	}
	return data, nil
}

// WriteMessage sends data as one text frame.
func (w *wsConn) WriteMessage(ctx context.Context, data []byte) error {
	return w.c.Write(ctx, websocket.MessageText, data)
}

func (w *wsConn) Close(reason string) error {
	return w.c.Close(websocket.StatusNormalClosure, reason)
}
