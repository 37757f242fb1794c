package telemetry

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"CampusChat/internal/config"
)

const serviceName = "campuschat"

func rotatingFile(dir, name string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   filepath.Join(dir, name),
		MaxSize:    10, // 10 MB
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}
}

// InitLogger initializes structured logging with rotation.
// When console is set, records are also written to stderr.
func InitLogger(cfg config.LogConfig, console bool) (*slog.Logger, error) {
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	var out io.Writer = rotatingFile(cfg.Dir, "campuschat.log")
	if console {
		out = io.MultiWriter(os.Stderr, out)
	}

	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger, nil
}

// ParseLevel maps a config string to a slog level, defaulting to info
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// InitTelemetry initializes OpenTelemetry tracing and metrics.
// Traces and metrics (every metricInterval) are exported to rotating files under dir.
func InitTelemetry(ctx context.Context, dir string) (trace.Tracer, metric.Meter, func(), error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion("1.0.0"),
		),
	)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create resource: %w", err)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	tp, traces, err := newTraceSink(res, rotatingFile(dir, "campuschat_traces.log"))
	if err != nil {
		return nil, nil, nil, err
	}
	mp, metrics, err := newMetricSink(res, rotatingFile(dir, "campuschat_metrics.log"))
	if err != nil {
		traces.close()
		return nil, nil, nil, err
	}

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)

	cleanup := func() {
		traces.close()
		metrics.close()
	}
	return tp.Tracer(serviceName), mp.Meter(serviceName), cleanup, nil
}

const metricInterval = 10 * time.Second

// sink is an exporting provider and the file its exporter writes to
type sink struct {
	kind     string
	provider interface{ Shutdown(context.Context) error }
	file     io.Closer
}

// close flushes the provider, then closes its file
func (s sink) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.provider.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown provider", "kind", s.kind, "error", err)
	}
	if err := s.file.Close(); err != nil {
		slog.Error("failed to close export file", "kind", s.kind, "error", err)
	}
}

func newTraceSink(res *resource.Resource, file *lumberjack.Logger) (*sdktrace.TracerProvider, sink, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(file), stdouttrace.WithPrettyPrint())
	if err != nil {
		file.Close()
		return nil, sink{}, fmt.Errorf("failed to create trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter), sdktrace.WithResource(res))
	return tp, sink{kind: "traces", provider: tp, file: file}, nil
}

func newMetricSink(res *resource.Resource, file *lumberjack.Logger) (*sdkmetric.MeterProvider, sink, error) {
	exporter, err := stdoutmetric.New(stdoutmetric.WithWriter(file), stdoutmetric.WithPrettyPrint())
	if err != nil {
		file.Close()
		return nil, sink{}, fmt.Errorf("failed to create metric exporter: %w", err)
	}
	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(metricInterval))
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader), sdkmetric.WithResource(res))
	return mp, sink{kind: "metrics", provider: mp, file: file}, nil
}
