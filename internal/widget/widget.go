// Package widget implements the chat widget controller: it reads the input field,
// appends the user's message to the transcript view, exchanges it with the chat
// endpoint and appends the reply when it arrives.
package widget

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"CampusChat/internal/chaterr"
	"CampusChat/internal/session"
	"CampusChat/internal/transport"
)

// Input is a readable and writable text field
type Input interface {
	Value() string
	SetValue(string)
}

// View is the transcript display
type View interface {
	Append(session.Message)
	ScrollToBottom()
}

// Result is the outcome of one exchange. Exactly one of Reply or Err is meaningful.
type Result struct {
	Message string
	Reply   string
	Err     error
}

// OK reports whether the exchange produced a reply
func (r Result) OK() bool {
	return r.Err == nil
}

// Exchange is a handle on one in-flight send
type Exchange struct {
	done   chan struct{}
	result Result
}

// Wait blocks until the exchange completes or ctx ends
func (e *Exchange) Wait(ctx context.Context) (Result, error) {
	select {
	case <-e.done:
		return e.result, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Controller binds an input field and a transcript view to a chat transport
type Controller struct {
	input     Input
	view      View
	transport transport.Transport
	logger    *slog.Logger
	onResult  func(Result)

	// mu serializes every mutation of input and view
	mu       sync.Mutex
	inflight sync.WaitGroup
}

// Option configures a Controller
type Option func(*Controller)

// WithResultHook registers fn to receive every completed result, success or failure
func WithResultHook(fn func(Result)) Option {
	return func(c *Controller) { c.onResult = fn }
}

// NewController creates a controller bound to its UI targets once
func NewController(input Input, view View, tr transport.Transport, logger *slog.Logger, opts ...Option) (*Controller, error) {
	if input == nil || view == nil {
		return nil, fmt.Errorf("input and view are required")
	}
	if tr == nil {
		return nil, fmt.Errorf("transport cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	c := &Controller{
		input:     input,
		view:      view,
		transport: tr,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SendMessage renders the current input as a user entry, clears the input and
// dispatches the exchange without waiting for it. It returns nil when the input
// is empty, in which case nothing else happens.
//
// Overlapping sends are allowed; replies are appended in arrival order.
func (c *Controller) SendMessage(ctx context.Context) *Exchange {
	c.mu.Lock()
	message := c.input.Value()
	if message == "" {
		c.mu.Unlock()
		return nil
	}
	c.view.Append(session.NewMessage(session.RoleUser, message))
	c.input.SetValue("")
	c.mu.Unlock()

	ex := &Exchange{done: make(chan struct{})}
	c.inflight.Add(1)
	go c.exchange(ctx, message, ex)
	return ex
}

func (c *Controller) exchange(ctx context.Context, message string, ex *Exchange) {
	defer c.inflight.Done()

	reply, err := c.transport.Chat(ctx, message)
	res := Result{Message: message, Reply: reply, Err: err}

	if err != nil {
		c.logger.Error("failed to send message", "error", err, "status", chaterr.StatusCode(err))
	} else {
		c.mu.Lock()
		c.view.Append(session.NewMessage(session.RoleBot, reply))
		c.view.ScrollToBottom()
		c.mu.Unlock()
	}

	ex.result = res
	if c.onResult != nil {
		c.onResult(res)
	}
	close(ex.done)
}

// Wait blocks until every dispatched exchange has completed
func (c *Controller) Wait() {
	c.inflight.Wait()
}
