package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	// Service information
	ServiceName    = "sharpline"
	ServiceVersion = "1.0.0"
)

// TelemetryConfig holds configuration for telemetry
type TelemetryConfig struct {
	Enabled     bool
	Endpoint    string
	Environment string
	Release     string
	SampleRate  float64
}

// DefaultConfig returns default telemetry configuration
func DefaultConfig() *TelemetryConfig {
	return &TelemetryConfig{
		Enabled:     false,
		Endpoint:    "localhost:4318",
		Environment: "development",
		Release:     ServiceVersion,
		SampleRate:  1.0,
	}
}

var (
	providerMu sync.Mutex
	provider   *sdktrace.TracerProvider
)

// InitTelemetry initializes the global OpenTelemetry tracer provider.
// In development a stdout exporter is used; elsewhere spans go to the
// configured OTLP HTTP endpoint.
func InitTelemetry(config TelemetryConfig) error {
	if !config.Enabled {
		return nil
	}

	ctx := context.Background()

	var exporter sdktrace.SpanExporter
	var err error
	if config.Environment == "development" {
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	} else {
		endpoint := config.Endpoint
		if endpoint == "" {
			endpoint = "localhost:4318"
		}
		exporter, err = otlptracehttp.New(ctx,
			otlptracehttp.WithEndpoint(endpoint),
			otlptracehttp.WithInsecure(),
		)
	}
	if err != nil {
		return fmt.Errorf("trace exporter init: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(ServiceName),
			semconv.ServiceVersion(config.Release),
			semconv.DeploymentEnvironment(config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("trace resource init: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(config.SampleRate)),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	providerMu.Lock()
	provider = tp
	providerMu.Unlock()

	return nil
}

// Shutdown flushes and stops the global tracer provider
func Shutdown(ctx context.Context) error {
	providerMu.Lock()
	tp := provider
	provider = nil
	providerMu.Unlock()

	if tp == nil {
		return nil
	}
	return tp.Shutdown(ctx)
}

// GetTracer returns a named tracer from the global provider
func GetTracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// GetHTTPTracer returns the tracer used for inbound HTTP handling
func GetHTTPTracer() trace.Tracer {
	return GetTracer("sharpline/http")
}

// GetDatabaseTracer returns the tracer used for database queries
func GetDatabaseTracer() trace.Tracer {
	return GetTracer("sharpline/database")
}

// GetBusinessTracer returns the tracer used for domain operations
func GetBusinessTracer() trace.Tracer {
	return GetTracer("sharpline/business")
}

// GetCacheTracer returns the tracer used for cache operations
func GetCacheTracer() trace.Tracer {
	return GetTracer("sharpline/cache")
}

// GetExternalTracer returns the tracer used for upstream provider calls
func GetExternalTracer() trace.Tracer {
	return GetTracer("sharpline/external")
}

// StartSpan starts a span on the given tracer
func StartSpan(ctx context.Context, tracer trace.Tracer, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, opts...)
}

// SetSpanAttributes sets attributes on a span
func SetSpanAttributes(span trace.Span, attrs ...attribute.KeyValue) {
	span.SetAttributes(attrs...)
}

// RecordError records an error on a span
func RecordError(span trace.Span, err error) {
	span.RecordError(err)
}

// SetSpanStatus sets the status of a span
func SetSpanStatus(span trace.Span, code codes.Code, message string) {
	span.SetStatus(code, message)
}

// StringAttribute creates a string attribute
func StringAttribute(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// StringSliceAttribute creates a string slice attribute
func StringSliceAttribute(key string, value []string) attribute.KeyValue {
	return attribute.StringSlice(key, value)
}

// Int64Attribute creates an int64 attribute
func Int64Attribute(key string, value int64) attribute.KeyValue {
	return attribute.Int64(key, value)
}

// Float64Attribute creates a float64 attribute
func Float64Attribute(key string, value float64) attribute.KeyValue {
	return attribute.Float64(key, value)
}

// BoolAttribute creates a bool attribute
func BoolAttribute(key string, value bool) attribute.KeyValue {
	return attribute.Bool(key, value)
}

// Logger returns the global slog.Logger instance for application logging
func Logger() *slog.Logger {
	return slog.Default()
}

// GetLogger is an alias for Logger, kept for compatibility
func GetLogger() *slog.Logger {
	return Logger()
}
