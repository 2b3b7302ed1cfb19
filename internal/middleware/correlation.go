package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const correlationKey = "correlation_id"

// CorrelationMiddleware propagates X-Correlation-ID, defaulting to the
// request id, and stores it in the trace baggage so background work started
// from the request can log it. Runs after RequestIDMiddleware.
func CorrelationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := c.GetHeader("X-Correlation-ID")
		if correlationID == "" {
			correlationID = c.GetString("request_id")
		}
		if correlationID == "" {
			c.Next()
			return
		}

		c.Set(correlationKey, correlationID)
		c.Header("X-Correlation-ID", correlationID)

		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			span.SetAttributes(attribute.String("trace.correlation_id", correlationID))
		}

		if member, err := baggage.NewMember(correlationKey, correlationID); err == nil {
			ctx := c.Request.Context()
			if b, err := baggage.FromContext(ctx).SetMember(member); err == nil {
				c.Request = c.Request.WithContext(baggage.ContextWithBaggage(ctx, b))
			}
		}

		c.Next()
	}
}

// SpanEnrichmentMiddleware sets the span status from the final HTTP status
func SpanEnrichmentMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			span.SetStatus(codes.Error, "server error")
		case status == 404:
			span.SetStatus(codes.Unset, "not found")
		case status >= 400:
			span.SetStatus(codes.Error, "client error")
		default:
			span.SetStatus(codes.Ok, "")
		}

		if size := c.Writer.Size(); size > 0 {
			span.SetAttributes(attribute.Int64("http.response.size_bytes", int64(size)))
		}
		if cacheStatus := c.Writer.Header().Get("X-Cache"); cacheStatus != "" {
			span.SetAttributes(attribute.String("http.cache", cacheStatus))
		}
	}
}

// CorrelationIDFromContext extracts the correlation id from the baggage
func CorrelationIDFromContext(ctx context.Context) string {
	return baggage.FromContext(ctx).Member(correlationKey).Value()
}
