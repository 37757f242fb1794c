package terminal

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"CampusChat/internal/render"
	"CampusChat/internal/session"
	"CampusChat/internal/widget"
)

// LineInput holds the line currently typed at the prompt
type LineInput struct {
	mu    sync.Mutex
	value string
}

// Value returns the current line
func (l *LineInput) Value() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.value
}

// SetValue replaces the current line
func (l *LineInput) SetValue(v string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.value = v
}

// View prints transcript entries to a writer as they are appended
type View struct {
	out        io.Writer
	transcript session.Transcript

	mu     sync.Mutex
	scroll int
}

// NewView creates a view writing to out
func NewView(out io.Writer) *View {
	return &View{out: out}
}

// Append records msg and prints it
func (v *View) Append(msg session.Message) {
	v.transcript.Append(msg)
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintln(v.out, render.Terminal(msg))
}

// ScrollToBottom moves the scroll position to the last entry
func (v *View) ScrollToBottom() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.scroll = v.transcript.Len()
}

// ScrollPosition returns the index the view is scrolled to
func (v *View) ScrollPosition() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.scroll
}

// Transcript returns the entries shown so far
func (v *View) Transcript() []session.Message {
	return v.transcript.Messages()
}

// Notice prints a line that is not part of the transcript
func (v *View) Notice(s string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintln(v.out, s)
}

// REPL drives a widget controller from line-oriented input
type REPL struct {
	controller *widget.Controller
	input      *LineInput
	view       *View
}

// NewREPL wires a controller to its terminal targets
func NewREPL(controller *widget.Controller, input *LineInput, view *View) *REPL {
	return &REPL{controller: controller, input: input, view: view}
}

// Run reads lines until EOF, /quit or ctx ends. Each line is sent and its reply
// awaited before the next prompt; pending exchanges are drained before returning.
func (r *REPL) Run(ctx context.Context, in io.Reader) error {
	defer r.controller.Wait()

	r.view.Notice(render.Hint("Type /help for commands, /quit to exit"))

	lines := make(chan string)
	readErr := make(chan error, 1)
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-stop:
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		var line string
		var ok bool
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok = <-lines:
		}
		if !ok {
			break
		}

		if strings.HasPrefix(strings.TrimSpace(line), "/") {
			if r.handleCommand(strings.TrimSpace(line)) {
				return nil
			}
			continue
		}

		r.input.SetValue(line)
		ex := r.controller.SendMessage(ctx)
		if ex == nil {
			continue
		}
		if _, err := ex.Wait(ctx); err != nil {
			return err
		}
	}

	select {
	case err := <-readErr:
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}
	default:
	}
	return nil
}

// handleCommand handles special commands and reports whether to quit
func (r *REPL) handleCommand(cmd string) bool {
	parts := strings.Fields(cmd)
	switch parts[0] {
	case "/quit", "/exit":
		return true

	case "/history":
		msgs := r.view.Transcript()
		r.view.Notice(render.Hint(fmt.Sprintf("%d messages", len(msgs))))
		for _, msg := range msgs {
			r.view.Notice(render.Terminal(msg))
		}

	case "/help":
		r.view.Notice(render.Hint(strings.Join([]string{
			"Available commands:",
			"  /quit, /exit   - Exit the chat",
			"  /history       - Reprint the transcript",
			"  /help          - Show this help message",
			"Type 'help' to see what the assistant can answer.",
		}, "\n")))

	default:
		r.view.Notice(render.Error("unknown command: " + parts[0]))
	}
	return false
}

// FailureNotice returns a result hook that prints failed exchanges to the view
func FailureNotice(view *View) func(widget.Result) {
	return func(res widget.Result) {
		if !res.OK() {
			view.Notice(render.Error("Error: " + res.Err.Error()))
		}
	}
}
