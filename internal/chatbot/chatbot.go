package chatbot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"CampusChat/internal/config"
	"CampusChat/internal/render"
	"CampusChat/internal/responder"
	"CampusChat/internal/server"
	"CampusChat/internal/store"
	"CampusChat/internal/telemetry"
	"CampusChat/internal/terminal"
	"CampusChat/internal/transport"
	"CampusChat/internal/widget"
)

// ChatBot represents the main application
type ChatBot struct {
	config  config.Config
	logger  *slog.Logger
	tracer  trace.Tracer
	meter   metric.Meter
	cleanup func()

	in  io.Reader
	out io.Writer
}

// NewChatBot creates a new ChatBot instance
func NewChatBot(cfg config.Config) (*ChatBot, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// The server also logs to stderr; the terminal client keeps stdout for the chat.
	logger, err := telemetry.InitLogger(cfg.Log, cfg.Mode == config.ModeServe)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	tracer, meter, cleanup, err := telemetry.InitTelemetry(context.Background(), cfg.Log.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	if cfg.Debug {
		logger.Info("Debug mode enabled")
	}

	return &ChatBot{
		config:  cfg,
		logger:  logger,
		tracer:  tracer,
		meter:   meter,
		cleanup: cleanup,
		in:      os.Stdin,
		out:     os.Stdout,
	}, nil
}

// Run starts the configured mode and blocks until ctx ends or the mode finishes
func (cb *ChatBot) Run(ctx context.Context) error {
	defer cb.cleanup()

	switch cb.config.Mode {
	case config.ModeServe:
		return cb.serve(ctx)
	case config.ModeChat:
		return cb.chat(ctx)
	default:
		return fmt.Errorf("unknown mode: %s", cb.config.Mode)
	}
}

func (cb *ChatBot) serve(ctx context.Context) error {
	kb, err := responder.LoadKnowledge(cb.config.Server.KnowledgeFile)
	if err != nil {
		return err
	}

	resp, err := responder.New(kb, cb.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize responder: %w", err)
	}

	opts := []server.Option{server.WithTelemetry(cb.tracer, cb.meter)}
	if cb.config.Server.DBPath != "" {
		st, err := store.Open(cb.config.Server.DBPath)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer st.Close()
		opts = append(opts, server.WithStore(st))
	}

	srv, err := server.New(cb.config.Server, resp, cb.logger, opts...)
	if err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}
	return srv.Run(ctx)
}

func (cb *ChatBot) chat(ctx context.Context) error {
	tr, err := cb.newTransport(ctx)
	if err != nil {
		return err
	}
	defer tr.Close()

	input := &terminal.LineInput{}
	view := terminal.NewView(cb.out)
	controller, err := widget.NewController(input, view, tr, cb.logger,
		widget.WithResultHook(terminal.FailureNotice(view)))
	if err != nil {
		return fmt.Errorf("failed to initialize widget: %w", err)
	}

	fmt.Fprintln(cb.out, "=== Campus Chat ===")
	fmt.Fprintln(cb.out, render.Hint(fmt.Sprintf("Server: %s (%s)", cb.config.Client.URL, cb.config.Client.Transport)))

	if err := terminal.NewREPL(controller, input, view).Run(ctx, cb.in); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	fmt.Fprintln(cb.out, "Goodbye!")
	return nil
}

func (cb *ChatBot) newTransport(ctx context.Context) (transport.Transport, error) {
	client := cb.config.Client
	switch client.Transport {
	case config.TransportWebSocket:
		url, err := transport.WebSocketURL(client.URL)
		if err != nil {
			return nil, err
		}
		return transport.NewWebSocketTransport(ctx, url, cb.logger)
	default:
		return transport.NewHTTPTransport(client.URL, client.Timeout, cb.logger,
			transport.WithTelemetry(cb.tracer, cb.meter))
	}
}
