package chaterr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAPIErrorMessage(t *testing.T) {
	err := NewAPIError(502, "/api/chat", "bad gateway")
	assert.Equal(t, "API error [502] at /api/chat: bad gateway", err.Error())

	err = NewAPIError(0, "/api/chat", "no status")
	assert.Equal(t, "API error at /api/chat: no status", err.Error())
}

func TestAPIErrorMatchesSentinelThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("failed to send request: %w", NewAPIError(500, "/api/chat", "boom"))

	assert.True(t, errors.Is(wrapped, ErrAPI))
	assert.False(t, errors.Is(wrapped, ErrMissingReply))
	assert.Equal(t, 500, StatusCode(wrapped))
	assert.Equal(t, 0, StatusCode(ErrMissingReply))
}
