package cmd

import (
	"context"

	"go.opentelemetry.io/otel/trace"

	"github.com/dukex/oneapi/pkg/otelhelper"
)

// NewTracer exports spans over OTLP when enabled and discards them otherwise.
func NewTracer(ctx context.Context, enabled bool, serviceName string) (trace.Tracer, otelhelper.ShutdownFunc, error) {
	if !enabled {
		return otelhelper.NoopTracer(), func(context.Context) error { return nil }, nil
	}

	return otelhelper.NewTracer(ctx, serviceName)
}
