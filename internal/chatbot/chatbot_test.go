package chatbot

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CampusChat/internal/config"
	"CampusChat/internal/responder"
	"CampusChat/internal/server"
)

func testConfig(t *testing.T, mode string) config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Mode = mode
	cfg.Log.Dir = filepath.Join(dir, "logs")
	cfg.Server.Addr = "127.0.0.1:0"
	cfg.Server.DBPath = filepath.Join(dir, "campuschat.db")
	return cfg
}

func startChatServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	resp, err := responder.New(responder.DefaultKnowledge(), logger)
	require.NoError(t, err)
	srv, err := server.New(config.Default().Server, resp, logger)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestNewChatBotRejectsUnknownMode(t *testing.T) {
	cfg := testConfig(t, "dance")
	_, err := NewChatBot(cfg)
	assert.Error(t, err)
}

func TestChatModeOverTransports(t *testing.T) {
	ts := startChatServer(t)

	for _, tr := range []string{config.TransportHTTP, config.TransportWebSocket} {
		t.Run(tr, func(t *testing.T) {
			cfg := testConfig(t, config.ModeChat)
			cfg.Client.URL = ts.URL
			cfg.Client.Transport = tr
			cfg.Client.Timeout = 5 * time.Second

			cb, err := NewChatBot(cfg)
			require.NoError(t, err)

			var out bytes.Buffer
			cb.in = strings.NewReader("hi\nfees\n/quit\n")
			cb.out = &out

			require.NoError(t, cb.Run(context.Background()))

			s := out.String()
			assert.Contains(t, s, "=== Campus Chat ===")
			assert.Contains(t, s, "Hello, how can I help you!")
			assert.Contains(t, s, "Fee Payment Dates")
			assert.Contains(t, s, "Goodbye!")
		})
	}
}

func TestChatModeStopsOnCancelWhileAwaitingReply(t *testing.T) {
	upgrader := websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer ts.Close()

	cfg := testConfig(t, config.ModeChat)
	cfg.Client.URL = ts.URL
	cfg.Client.Transport = config.TransportWebSocket

	cb, err := NewChatBot(cfg)
	require.NoError(t, err)

	pr, pw := io.Pipe()
	defer pw.Close()
	go func() { _, _ = pw.Write([]byte("hi\n")) }()
	cb.in = pr
	cb.out = io.Discard

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- cb.Run(ctx) }()

	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("chat mode did not stop")
	}
}

func TestServeModeStopsOnCancel(t *testing.T) {
	cb, err := NewChatBot(testConfig(t, config.ModeServe))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- cb.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve mode did not stop")
	}
}
