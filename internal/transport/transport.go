package transport

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"CampusChat/internal/chaterr"
)

// Transport performs one message/reply exchange with the chat endpoint
type Transport interface {
	Chat(ctx context.Context, message string) (string, error)
	Close() error
}

// extractReply pulls the reply string out of a response body
func extractReply(body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("%w: %s", chaterr.ErrInvalidResponse, snippet(body))
	}
	reply := gjson.GetBytes(body, "reply")
	if !reply.Exists() || reply.Type != gjson.String {
		return "", chaterr.ErrMissingReply
	}
	return reply.String(), nil
}

// errorMessage prefers the server's {"error": ...} field over the raw body
func errorMessage(body []byte) string {
	if gjson.ValidBytes(body) {
		if msg := gjson.GetBytes(body, "error"); msg.Type == gjson.String {
			return msg.String()
		}
	}
	return snippet(body)
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 120 {
		return s[:120] + "..."
	}
	return s
}

// WebSocketURL derives the ws:// endpoint from an http:// base URL
func WebSocketURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("failed to parse url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme: %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws/chat"
	return u.String(), nil
}
