package widget

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CampusChat/internal/chaterr"
	"CampusChat/internal/session"
)

type fakeInput struct {
	mu    sync.Mutex
	value string
}

func (f *fakeInput) Value() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value
}

func (f *fakeInput) SetValue(v string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.value = v
}

type fakeView struct {
	session.Transcript
	mu       sync.Mutex
	scrolled int
}

func (f *fakeView) ScrollToBottom() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scrolled = f.Len()
}

func (f *fakeView) scrollPos() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scrolled
}

func (f *fakeView) entries() []string {
	var out []string
	for _, m := range f.Messages() {
		out = append(out, string(m.Role)+":"+m.Text)
	}
	return out
}

// gatedTransport holds each message until its gate is released
type gatedTransport struct {
	mu      sync.Mutex
	calls   []string
	gates   map[string]chan struct{}
	replies map[string]string
	errs    map[string]error
}

func newGatedTransport() *gatedTransport {
	return &gatedTransport{
		gates:   map[string]chan struct{}{},
		replies: map[string]string{},
		errs:    map[string]error{},
	}
}

func (g *gatedTransport) gate(message string) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.gates[message]
	if !ok {
		ch = make(chan struct{})
		g.gates[message] = ch
	}
	return ch
}

func (g *gatedTransport) Chat(ctx context.Context, message string) (string, error) {
	g.mu.Lock()
	g.calls = append(g.calls, message)
	g.mu.Unlock()

	select {
	case <-g.gate(message):
	case <-ctx.Done():
		return "", ctx.Err()
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.errs[message]; err != nil {
		return "", err
	}
	return g.replies[message], nil
}

func (g *gatedTransport) Close() error { return nil }

func (g *gatedTransport) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestController(t *testing.T, tr *gatedTransport, opts ...Option) (*Controller, *fakeInput, *fakeView) {
	t.Helper()
	input := &fakeInput{}
	view := &fakeView{}
	c, err := NewController(input, view, tr, testLogger(), opts...)
	require.NoError(t, err)
	return c, input, view
}

func waitResult(t *testing.T, ex *Exchange) Result {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := ex.Wait(ctx)
	require.NoError(t, err)
	return res
}

func TestSendMessageAppendsUserEntryBeforeReply(t *testing.T) {
	tr := newGatedTransport()
	tr.replies["hi"] = "hello"
	c, input, view := newTestController(t, tr)

	input.SetValue("hi")
	ex := c.SendMessage(context.Background())
	require.NotNil(t, ex)

	// The exchange is still gated, so only the user entry exists.
	assert.Equal(t, "", input.Value())
	assert.Equal(t, []string{"user:hi"}, view.entries())

	close(tr.gate("hi"))
	res := waitResult(t, ex)

	assert.True(t, res.OK())
	assert.Equal(t, "hello", res.Reply)
	assert.Equal(t, []string{"user:hi", "bot:hello"}, view.entries())
	assert.Equal(t, 2, view.scrollPos())
}

func TestSendMessageEmptyInputIsNoop(t *testing.T) {
	tr := newGatedTransport()
	c, input, view := newTestController(t, tr)

	input.SetValue("")
	assert.Nil(t, c.SendMessage(context.Background()))

	c.Wait()
	assert.Equal(t, 0, view.Len())
	assert.Equal(t, 0, tr.callCount())
	assert.Equal(t, "", input.Value())
}

func TestSendMessageWhitespaceIsSent(t *testing.T) {
	tr := newGatedTransport()
	tr.replies[" "] = "Sorry"
	c, input, view := newTestController(t, tr)

	input.SetValue(" ")
	ex := c.SendMessage(context.Background())
	require.NotNil(t, ex)
	close(tr.gate(" "))
	waitResult(t, ex)

	assert.Equal(t, []string{"user: ", "bot:Sorry"}, view.entries())
}

func TestSendMessageFailureLeavesUserEntryOnly(t *testing.T) {
	tr := newGatedTransport()
	tr.errs["hi"] = chaterr.ErrMissingReply

	var hooked []Result
	var mu sync.Mutex
	c, input, view := newTestController(t, tr, WithResultHook(func(r Result) {
		mu.Lock()
		defer mu.Unlock()
		hooked = append(hooked, r)
	}))

	input.SetValue("hi")
	ex := c.SendMessage(context.Background())
	close(tr.gate("hi"))
	res := waitResult(t, ex)

	assert.False(t, res.OK())
	assert.True(t, errors.Is(res.Err, chaterr.ErrMissingReply))
	assert.Equal(t, []string{"user:hi"}, view.entries())
	assert.Equal(t, 0, view.scrollPos())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, hooked, 1)
	assert.Equal(t, "hi", hooked[0].Message)
}

func TestSendMessageFailureLogsStatus(t *testing.T) {
	tr := newGatedTransport()
	tr.errs["hi"] = chaterr.NewAPIError(503, "/api/chat", "busy")

	var logs bytes.Buffer
	c, err := NewController(&fakeInput{value: "hi"}, &fakeView{}, tr, slog.New(slog.NewTextHandler(&logs, nil)))
	require.NoError(t, err)

	ex := c.SendMessage(context.Background())
	close(tr.gate("hi"))
	res := waitResult(t, ex)

	assert.True(t, errors.Is(res.Err, chaterr.ErrAPI))
	assert.Contains(t, logs.String(), "status=503")
}

func TestOverlappingSendsAppendInArrivalOrder(t *testing.T) {
	tr := newGatedTransport()
	tr.replies["A"] = "reply A"
	tr.replies["B"] = "reply B"
	c, input, view := newTestController(t, tr)

	input.SetValue("A")
	exA := c.SendMessage(context.Background())
	input.SetValue("B")
	exB := c.SendMessage(context.Background())

	close(tr.gate("B"))
	waitResult(t, exB)
	close(tr.gate("A"))
	waitResult(t, exA)

	assert.Equal(t, []string{"user:A", "user:B", "bot:reply B", "bot:reply A"}, view.entries())
}

func TestSendMessageCancelledContext(t *testing.T) {
	tr := newGatedTransport()
	c, input, view := newTestController(t, tr)

	ctx, cancel := context.WithCancel(context.Background())
	input.SetValue("hi")
	ex := c.SendMessage(ctx)
	cancel()

	res := waitResult(t, ex)
	assert.True(t, errors.Is(res.Err, context.Canceled))
	assert.Equal(t, []string{"user:hi"}, view.entries())
}

func TestNewControllerValidation(t *testing.T) {
	tr := newGatedTransport()
	_, err := NewController(nil, &fakeView{}, tr, testLogger())
	assert.Error(t, err)
	_, err = NewController(&fakeInput{}, &fakeView{}, nil, testLogger())
	assert.Error(t, err)
	_, err = NewController(&fakeInput{}, &fakeView{}, tr, nil)
	assert.Error(t, err)
}
