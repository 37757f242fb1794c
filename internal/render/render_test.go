package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CampusChat/internal/session"
)

func TestHTMLEscapesText(t *testing.T) {
	out, err := HTML(session.Message{Role: session.RoleUser, Text: `<script>alert("x")</script>`})
	require.NoError(t, err)

	assert.NotContains(t, string(out), "<script>")
	assert.Contains(t, string(out), "&lt;script&gt;")
	assert.True(t, strings.HasPrefix(string(out), `<div class="user">`))
}

func TestHTMLBotClass(t *testing.T) {
	out, err := HTML(session.Message{Role: session.RoleBot, Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, `<div class="bot">hello</div>`, string(out))
}

func TestHTMLUnknownRoleIsConstrained(t *testing.T) {
	out, err := HTML(session.Message{Role: session.Role(`x" onclick="y`), Text: "t"})
	require.NoError(t, err)
	assert.Equal(t, `<div class="unknown">t</div>`, string(out))
}

func TestTerminalStripsControlSequences(t *testing.T) {
	out := Terminal(session.Message{Role: session.RoleBot, Text: "line1\n\x1b[31mred\x1b[0m"})

	assert.Contains(t, out, "Bot")
	assert.Contains(t, out, "line1")
	assert.Contains(t, out, "[31mred")
	assert.NotContains(t, sanitizeTerminal("\x1b[31m"), "\x1b")
}

func TestTerminalUserLabel(t *testing.T) {
	out := Terminal(session.Message{Role: session.RoleUser, Text: "hi"})
	assert.Contains(t, out, "You")
	assert.Contains(t, out, "hi")
}
