package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"CampusChat/internal/backend"
	"CampusChat/internal/chaterr"
)

// HTTPTransport posts messages to the chat endpoint as JSON
type HTTPTransport struct {
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
	tracer     trace.Tracer
	duration   metric.Float64Histogram
}

// Option configures an HTTPTransport
type Option func(*HTTPTransport)

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(c *http.Client) Option {
	return func(t *HTTPTransport) { t.httpClient = c }
}

// WithTelemetry sets the tracer and meter used for outbound calls
func WithTelemetry(tracer trace.Tracer, meter metric.Meter) Option {
	return func(t *HTTPTransport) {
		t.tracer = tracer
		t.duration = newDurationHistogram(meter)
	}
}

// NewHTTPTransport creates a transport for baseURL. A zero timeout never gives up.
func NewHTTPTransport(baseURL string, timeout time.Duration, logger *slog.Logger, opts ...Option) (*HTTPTransport, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if baseURL == "" {
		return nil, fmt.Errorf("base url cannot be empty")
	}

	t := &HTTPTransport{
		endpoint:   strings.TrimRight(baseURL, "/") + backend.PathChat,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		tracer:     otel.Tracer("campuschat"),
		duration:   newDurationHistogram(otel.Meter("campuschat")),
	}
	for _, opt := range opts {
		opt(t)
	}

	logger.Info("created HTTP chat transport", "endpoint", t.endpoint, "timeout", timeout)
	return t, nil
}

func newDurationHistogram(meter metric.Meter) metric.Float64Histogram {
	histogram, err := meter.Float64Histogram(
		"http.client.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
	)
	if err != nil {
		return nil
	}
	return histogram
}

// Chat posts {"message": message} and returns the reply field of the response
func (t *HTTPTransport) Chat(ctx context.Context, message string) (string, error) {
	ctx, span := t.tracer.Start(ctx, "chat_api_call")
	defer span.End()

	start := time.Now()

	reply, err := t.post(ctx, message)

	if t.duration != nil {
		t.duration.Record(ctx, float64(time.Since(start).Milliseconds()),
			metric.WithAttributes(attribute.Bool("error", err != nil)))
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		t.logger.Warn("chat exchange failed", "endpoint", t.endpoint, "error", err)
		return "", err
	}
	return reply, nil
}

func (t *HTTPTransport) post(ctx context.Context, message string) (string, error) {
	jsonData, err := json.Marshal(backend.ChatRequest{Message: message})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", chaterr.NewAPIError(resp.StatusCode, t.endpoint, errorMessage(body))
	}

	return extractReply(body)
}

// Close releases idle connections
func (t *HTTPTransport) Close() error {
	t.httpClient.CloseIdleConnections()
	return nil
}
