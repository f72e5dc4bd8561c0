package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dukex/oneapi/pkg/broker"
	"github.com/dukex/oneapi/pkg/config"
	"github.com/dukex/oneapi/pkg/graph"
	"github.com/dukex/oneapi/pkg/otelhelper"
	"github.com/dukex/oneapi/pkg/outputs"
)

// QueuedMessage is returned with a queued result.
const QueuedMessage = "Workflow submitted"

type Converter interface {
	Convert(ctx context.Context, interactive *graph.InteractiveGraph) (graph.LinearGraph, error)
}

type Binder interface {
	Bind(ctx context.Context, g graph.LinearGraph, params map[string]any) (graph.LinearGraph, error)
}

type Broker interface {
	Submit(ctx context.Context, prompt graph.LinearGraph, extra map[string]any) (broker.Submission, error)
	Wait(ctx context.Context, promptID string, opts broker.WaitOptions) (*broker.Result, error)
}

// ExecuteRequest is one execute call after transport decoding.
type ExecuteRequest struct {
	Owner           string
	Workflow        json.RawMessage
	Params          map[string]any
	WaitForResult   bool
	Timeout         time.Duration
	PromptExtParams map[string]any
	// BaseURL prefixes artifact view URLs in the result.
	BaseURL string
}

type Execution struct {
	source    *Source
	converter Converter
	binder    Binder
	broker    Broker
	policy    config.Policy
	tracer    trace.Tracer
	logger    *slog.Logger
}

func NewExecution(
	source *Source,
	converter Converter,
	binder Binder,
	broker Broker,
	policy config.Policy,
	tracer trace.Tracer,
	logger *slog.Logger,
) *Execution {
	if tracer == nil {
		tracer = otelhelper.NoopTracer()
	}

	return &Execution{
		source:    source,
		converter: converter,
		binder:    binder,
		broker:    broker,
		policy:    policy,
		tracer:    tracer,
		logger:    logger.With("module", "execution"),
	}
}

// Execute resolves, converts, binds and submits a workflow. With
// WaitForResult it then follows the prompt to a terminal status.
// Nothing is submitted unless every step before submission succeeds.
func (e *Execution) Execute(ctx context.Context, req ExecuteRequest) (*broker.Result, error) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "services.execute")
	defer span.End()

	linear, err := e.prepare(ctx, req)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	registry, err := outputs.Register(linear, e.policy.OutputNodeTypes)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to register outputs: %w", err)
	}

	bound, err := e.binder.Bind(ctx, linear, req.Params)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to apply params: %w", err)
	}

	submission, err := e.broker.Submit(ctx, bound, req.PromptExtParams)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	span.SetAttributes(
		attribute.String(otelhelper.PromptIDKey, submission.PromptID),
		attribute.String(otelhelper.ClientIDKey, submission.ClientID),
	)

	e.logger.InfoContext(ctx, "Workflow submitted", "prompt_id", submission.PromptID, "nodes", len(bound))

	if !req.WaitForResult {
		return &broker.Result{
			Status:   broker.StatusQueued,
			PromptID: submission.PromptID,
			Message:  QueuedMessage,
		}, nil
	}

	result, err := e.broker.Wait(ctx, submission.PromptID, broker.WaitOptions{
		Timeout:   req.Timeout,
		Variables: registry,
		BaseURL:   req.BaseURL,
	})
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	return result, nil
}

// prepare loads the workflow and returns it as a linear graph.
func (e *Execution) prepare(ctx context.Context, req ExecuteRequest) (graph.LinearGraph, error) {
	data, err := e.source.Load(ctx, req.Owner, req.Workflow)
	if err != nil {
		return nil, err
	}

	if isEmptyObject(data) {
		return nil, NewValidationError("execute", "validation_error", "Workflow data is missing", ErrRequestMalformed)
	}

	decoded, err := graph.Decode(data)
	if err != nil {
		return nil, NewValidationError("execute", "invalid_format", "Invalid workflow format", err)
	}

	trace.SpanFromContext(ctx).SetAttributes(attribute.String(otelhelper.GraphFormatKey, string(decoded.Format)))

	if decoded.Format == graph.FormatLinear {
		return decoded.Linear, nil
	}

	if !e.policy.InteractiveAllowed() {
		return nil, NewValidationError("execute", "unsupported_format",
			"UI format workflow is not supported. Please convert to API format and try again.", ErrFormatUnsupported)
	}

	linear, err := e.converter.Convert(ctx, decoded.Interactive)
	if err != nil {
		return nil, fmt.Errorf("failed to convert interactive graph: %w", err)
	}

	e.logger.DebugContext(ctx, "Converted interactive graph", "nodes", len(linear))

	return linear, nil
}

func isEmptyObject(data []byte) bool {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return false
	}

	return len(doc) == 0
}
