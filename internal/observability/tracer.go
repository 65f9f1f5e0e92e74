package observability

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	serviceName         = "chatlog-notifier"
	defaultGRPCEndpoint = "localhost:4317"
	defaultHTTPEndpoint = "localhost:4318"
)

// TracerConfig configures span export for item lookups
type TracerConfig struct {
	Enabled   bool
	Endpoint  string // host:port; http also accepts a full URL
	Protocol  string // "grpc" (default) or "http"
	Version   string
	SessionID string // reported as service.instance.id
}

// InitTracer installs the global tracer provider. When disabled a no-op provider
// is installed so spans in the resolver cost nothing.
func InitTracer(cfg TracerConfig) (func(context.Context) error, error) {
	if !cfg.Enabled {
		otel.SetTracerProvider(noop.NewTracerProvider())
		return func(context.Context) error { return nil }, nil
	}

	client, err := newTraceClient(cfg)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(cfg.Version),
			semconv.ServiceInstanceIDKey.String(cfg.SessionID),
		),
		resource.WithFromEnv(),
		resource.WithHost(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := otlptrace.New(context.Background(), client)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	// Lookups are rare, a short batch timeout keeps spans timely
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(2*time.Second)),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

func newTraceClient(cfg TracerConfig) (otlptrace.Client, error) {
	switch cfg.Protocol {
	case "", "grpc":
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = defaultGRPCEndpoint
		}
		return otlptracegrpc.NewClient(
			otlptracegrpc.WithEndpoint(endpoint),
			otlptracegrpc.WithInsecure(),
		), nil

	case "http":
		opts := []otlptracehttp.Option{otlptracehttp.WithInsecure()}
		switch {
		case cfg.Endpoint == "":
			opts = append(opts, otlptracehttp.WithEndpoint(defaultHTTPEndpoint))
		case strings.Contains(cfg.Endpoint, "://"):
			opts = append(opts, otlptracehttp.WithEndpointURL(cfg.Endpoint))
		default:
			opts = append(opts, otlptracehttp.WithEndpoint(cfg.Endpoint))
		}
		return otlptracehttp.NewClient(opts...), nil

	default:
		return nil, fmt.Errorf("unsupported tracing protocol %q (use grpc or http)", cfg.Protocol)
	}
}
