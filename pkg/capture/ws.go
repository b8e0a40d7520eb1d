package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gorilla/websocket"
)

const wsHandshakeTimeout = 10 * time.Second

// WebSocketSource adapts a websocket connection into a chunk Source. The
// peer is expected to send one binary message per chunk; a close frame or
// any text message ends the stream.
type WebSocketSource struct {
	conn *websocket.Conn
}

// NewWebSocketSource wraps an established connection.
func NewWebSocketSource(conn *websocket.Conn) (*WebSocketSource, error) {
	if conn == nil {
		return nil, fmt.Errorf("websocket connection is required")
	}
	return &WebSocketSource{conn: conn}, nil
}

// Next blocks until the peer delivers the next binary chunk.
func (s *WebSocketSource) Next(ctx context.Context) ([]byte, error) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = s.conn.SetReadDeadline(deadline)
	} else {
		_ = s.conn.SetReadDeadline(time.Time{})
	}

	msgType, data, err := s.conn.ReadMessage()
	if err != nil {
		var closeErr *websocket.CloseError
		if errors.As(err, &closeErr) {
			return nil, io.EOF
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}

	if msgType != websocket.BinaryMessage {
		return nil, io.EOF
	}

	return data, nil
}

// Close sends a close frame and tears the connection down.
func (s *WebSocketSource) Close() error {
	deadline := time.Now().Add(time.Second)
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	return s.conn.Close()
}

// DialSource connects to a capture stream endpoint, retrying through the
// supervisor, and returns the connection wrapped as a Source.
func DialSource(ctx context.Context, supervisor *Supervisor, url string) (*WebSocketSource, error) {
	dialer := websocket.Dialer{HandshakeTimeout: wsHandshakeTimeout}

	var conn *websocket.Conn
	err := supervisor.Connect(ctx, func(ctx context.Context) error {
		c, _, dialErr := dialer.DialContext(ctx, url, nil)
		if dialErr != nil {
			return dialErr
		}
		conn = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	return NewWebSocketSource(conn)
}
