package session

import (
	"sync"
	"time"
)

// Role identifies who authored a message
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// Message represents a single chat message
type Message struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage stamps a message with the current time
func NewMessage(role Role, text string) Message {
	return Message{Role: role, Text: text, Timestamp: time.Now()}
}

// Session represents a persisted conversation
type Session struct {
	ID        string    `json:"id"`
	StartTime time.Time `json:"start_time"`
	Source    string    `json:"source"`
	Messages  []Message `json:"messages"`
}

// Transcript is an ordered, append-only log of messages. Safe for concurrent use.
type Transcript struct {
	mu       sync.RWMutex
	messages []Message
}

// Append adds a message to the end of the transcript
func (t *Transcript) Append(msg Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = append(t.messages, msg)
}

// Messages returns a copy of the entries in append order
func (t *Transcript) Messages() []Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Len returns the number of entries
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}
