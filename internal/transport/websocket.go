package transport

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"CampusChat/internal/backend"
	"CampusChat/internal/chaterr"
)

// WebSocketTransport exchanges chat frames over a single WebSocket connection
type WebSocketTransport struct {
	url    string
	conn   *websocket.Conn
	logger *slog.Logger

	mu        sync.Mutex // serializes request/reply pairs
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// NewWebSocketTransport dials the chat server's WebSocket endpoint
func NewWebSocketTransport(ctx context.Context, url string, logger *slog.Logger) (*WebSocketTransport, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to WebSocket: %w", err)
	}

	logger.Info("created WebSocket chat transport", "url", url)
	return &WebSocketTransport{
		url:    url,
		conn:   conn,
		logger: logger,
	}, nil
}

// Chat sends one request frame and waits for its reply frame. Calls are serialized.
// A failed read or write, including one interrupted by ctx, closes the transport
// since a late reply could otherwise be paired with the next request.
func (t *WebSocketTransport) Chat(ctx context.Context, message string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed.Load() {
		return "", chaterr.ErrTransportClosed
	}

	deadline, _ := ctx.Deadline()
	_ = t.conn.SetWriteDeadline(deadline)
	_ = t.conn.SetReadDeadline(deadline)

	done := make(chan struct{})
	watching := make(chan struct{})
	go func() {
		defer close(watching)
		select {
		case <-ctx.Done():
			now := time.Now()
			_ = t.conn.SetWriteDeadline(now)
			_ = t.conn.SetReadDeadline(now)
		case <-done:
		}
	}()
	defer func() {
		close(done)
		<-watching
	}()

	if err := t.conn.WriteJSON(backend.ChatRequest{Message: message}); err != nil {
		return "", t.fail(ctx, fmt.Errorf("failed to send request: %w", err))
	}

	_, data, err := t.conn.ReadMessage()
	if err != nil {
		return "", t.fail(ctx, fmt.Errorf("failed to read response: %w", err))
	}

	reply, err := extractReply(data)
	if err != nil {
		t.logger.Warn("chat exchange failed", "url", t.url, "error", err)
		return "", err
	}
	return reply, nil
}

// fail closes the broken connection and prefers the context error when ctx ended
func (t *WebSocketTransport) fail(ctx context.Context, err error) error {
	t.shutdown(false)
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = fmt.Errorf("chat cancelled: %w", ctxErr)
	}
	t.logger.Warn("chat exchange failed", "url", t.url, "error", err)
	return err
}

// Close sends a close frame and closes the connection. It does not wait for an
// in-flight Chat, which fails once the connection is gone.
func (t *WebSocketTransport) Close() error {
	return t.shutdown(true)
}

func (t *WebSocketTransport) shutdown(sendClose bool) error {
	t.closeOnce.Do(func() {
		t.closed.Store(true)
		if sendClose {
			_ = t.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
		}
		t.closeErr = t.conn.Close()
	})
	return t.closeErr
}
