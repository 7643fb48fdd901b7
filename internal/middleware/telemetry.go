package middleware

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/sharpline/sharpline-go/internal/telemetry"
)

// Request spans come from otelgin on the router. These helpers let
// handlers annotate the active span or open child spans for multi-step
// work without touching the OTel API directly.

// RecordError records an error on the current span
func RecordError(c *gin.Context, err error, description string) {
	span := trace.SpanFromContext(c.Request.Context())
	if span.IsRecording() {
		span.RecordError(err)
		span.SetStatus(codes.Error, description)
	}
}

// AddSpanAttribute adds an attribute to the current span
func AddSpanAttribute(c *gin.Context, key string, value interface{}) {
	span := trace.SpanFromContext(c.Request.Context())
	if !span.IsRecording() {
		return
	}

	switch v := value.(type) {
	case string:
		span.SetAttributes(attribute.String(key, v))
	case int:
		span.SetAttributes(attribute.Int(key, v))
	case int64:
		span.SetAttributes(attribute.Int64(key, v))
	case float64:
		span.SetAttributes(attribute.Float64(key, v))
	case bool:
		span.SetAttributes(attribute.Bool(key, v))
	default:
		span.SetAttributes(attribute.String(key, fmt.Sprintf("%v", value)))
	}
}

// StartSpan opens a child span under the request context and rebinds the
// request so later helpers see it.
func StartSpan(c *gin.Context, name string) (context.Context, trace.Span) {
	tracer := telemetry.GetHTTPTracer()
	ctx, span := tracer.Start(c.Request.Context(), name, trace.WithSpanKind(trace.SpanKindInternal))
	c.Request = c.Request.WithContext(ctx)
	return ctx, span
}
