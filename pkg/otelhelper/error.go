package otelhelper

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SetError fails a pipeline span. The failure event carries the Go type of
// err and whether the request context was cancelled, so shutdown-cancelled
// polls can be told apart from engine failures.
func SetError(span trace.Span, err error, attrs ...attribute.KeyValue) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	attrs = append(attrs,
		attribute.String(ErrorTypeKey, fmt.Sprintf("%T", err)),
		attribute.Bool(CancelledKey, errors.Is(err, context.Canceled)),
	)

	span.AddEvent("oneapi.failure", trace.WithAttributes(attrs...))
}
