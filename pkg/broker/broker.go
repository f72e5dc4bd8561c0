// Package broker submits linear graphs to the job engine and follows them to
// a terminal status.
package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dukex/oneapi/pkg/artifact"
	"github.com/dukex/oneapi/pkg/comfy"
	"github.com/dukex/oneapi/pkg/eventbus"
	"github.com/dukex/oneapi/pkg/events"
	"github.com/dukex/oneapi/pkg/graph"
	"github.com/dukex/oneapi/pkg/otelhelper"
)

// Status of an execution. Processing is internal to the poll loop and is
// never a terminal result.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusTimeout    Status = "timeout"
	StatusError      Status = "error"
)

// DefaultPollInterval is the delay between history polls.
const DefaultPollInterval = time.Second

// UnknownErrorMessage is reported when a failed execution carries no
// exception text.
const UnknownErrorMessage = "Unknown error"

var (
	ErrSubmissionFailed = errors.New("failed to submit workflow")
	ErrPollCancelled    = errors.New("polling cancelled")
)

// IsSubmissionFailed checks if an error indicates the engine did not accept a prompt.
func IsSubmissionFailed(err error) bool {
	return errors.Is(err, ErrSubmissionFailed)
}

// IsPollCancelled checks if an error indicates the caller abandoned the wait.
func IsPollCancelled(err error) bool {
	return errors.Is(err, ErrPollCancelled)
}

// Engine is the part of the job engine the broker drives.
type Engine interface {
	QueuePrompt(ctx context.Context, prompt graph.LinearGraph, clientID string, extra map[string]any) (string, error)
	History(ctx context.Context, promptID string) (*comfy.HistoryEntry, bool, error)
}

// Recorder observes submissions and terminal statuses.
type Recorder interface {
	ObserveSubmission(result string)
	ObserveExecution(status string, wait time.Duration)
}

type Broker struct {
	engine    Engine
	publisher eventbus.EventPublisher
	recorder  Recorder
	tracer    trace.Tracer
	interval  time.Duration
	logger    *slog.Logger
}

type Option func(*Broker)

func WithPublisher(publisher eventbus.EventPublisher) Option {
	return func(b *Broker) { b.publisher = publisher }
}

func WithRecorder(recorder Recorder) Option {
	return func(b *Broker) { b.recorder = recorder }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(b *Broker) { b.tracer = tracer }
}

func WithPollInterval(interval time.Duration) Option {
	return func(b *Broker) {
		if interval > 0 {
			b.interval = interval
		}
	}
}

func New(engine Engine, logger *slog.Logger, opts ...Option) *Broker {
	b := &Broker{
		engine:   engine,
		tracer:   otelhelper.NoopTracer(),
		interval: DefaultPollInterval,
		logger:   logger.With("module", "broker"),
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Submission identifies a queued prompt.
type Submission struct {
	PromptID string
	ClientID string
}

// Submit queues a graph under a fresh client id. Failures wrap
// ErrSubmissionFailed and never start an execution.
func (b *Broker) Submit(ctx context.Context, prompt graph.LinearGraph, extra map[string]any) (Submission, error) {
	clientID := uuid.NewString()

	promptID, err := b.engine.QueuePrompt(ctx, prompt, clientID, extra)
	if err != nil {
		b.observeSubmission("failure")
		b.logger.ErrorContext(ctx, "Failed to submit workflow", "client_id", clientID, "error", err)

		return Submission{}, fmt.Errorf("%w: %w", ErrSubmissionFailed, err)
	}

	b.observeSubmission("success")
	b.publish(ctx, promptID, events.ExecutionQueued{
		BaseEvent: events.NewBaseEvent(events.ExecutionQueuedEvent, promptID),
		ClientID:  clientID,
		NodeCount: len(prompt),
	})

	return Submission{PromptID: promptID, ClientID: clientID}, nil
}

// WaitOptions controls one poll cycle.
type WaitOptions struct {
	// Timeout bounds the wait. Zero waits until a terminal status.
	Timeout time.Duration
	// Variables names the output variable of each node.
	Variables artifact.VariableResolver
	// BaseURL prefixes artifact view URLs.
	BaseURL string
}

// Result is the outcome of a poll cycle.
type Result struct {
	Status   Status  `json:"status"`
	PromptID string  `json:"prompt_id"`
	Error    string  `json:"error,omitempty"`
	Message  string  `json:"message,omitempty"`
	Duration float64 `json:"duration,omitempty"`

	artifact.Result
}

// Wait polls the engine history until the prompt completes, fails, the
// timeout elapses or ctx is cancelled. Transport errors while polling are
// retried. Cancellation returns an error wrapping ErrPollCancelled; every
// other outcome is a Result.
func (b *Broker) Wait(ctx context.Context, promptID string, opts WaitOptions) (*Result, error) {
	ctx, span := otelhelper.StartSpan(ctx, b.tracer, "broker.wait", attribute.String(otelhelper.PromptIDKey, promptID))
	defer span.End()

	start := time.Now()

	waitCtx := ctx

	if opts.Timeout > 0 {
		var cancel context.CancelFunc

		waitCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	result := &Result{Status: StatusProcessing, PromptID: promptID}

	timer := time.NewTimer(0)
	defer timer.Stop()

	polls := 0

	for {
		select {
		case <-waitCtx.Done():
			span.SetAttributes(attribute.Int(otelhelper.PollCountKey, polls))

			if ctx.Err() != nil {
				b.finishCancelled(ctx, result, start)

				return nil, fmt.Errorf("%w: %w", ErrPollCancelled, ctx.Err())
			}

			b.finishTimeout(ctx, result, start, opts.Timeout)
			span.SetAttributes(attribute.String(otelhelper.ExecutionStatus, string(result.Status)))

			return result, nil
		case <-timer.C:
		}

		polls++

		if done := b.poll(waitCtx, result, opts); done {
			span.SetAttributes(
				attribute.Int(otelhelper.PollCountKey, polls),
				attribute.String(otelhelper.ExecutionStatus, string(result.Status)),
			)
			b.finish(ctx, result, start)

			return result, nil
		}

		timer.Reset(b.interval)
	}
}

// poll fetches history once and reports whether a terminal status was reached.
func (b *Broker) poll(ctx context.Context, result *Result, opts WaitOptions) bool {
	entry, ok, err := b.engine.History(ctx, result.PromptID)
	if err != nil {
		if ctx.Err() == nil {
			b.logger.DebugContext(ctx, "History poll failed, retrying", "prompt_id", result.PromptID, "error", err)
		}

		return false
	}

	if !ok {
		return false
	}

	if entry.Status.Failed() {
		result.Status = StatusError
		result.Error = errorMessage(entry.Status.Messages)

		return true
	}

	if entry.Outputs == nil {
		return false
	}

	variables := opts.Variables
	if variables == nil {
		variables = nodeIDs{}
	}

	result.Status = StatusCompleted
	result.Result = artifact.Aggregate(entry.Outputs, variables, opts.BaseURL)

	return true
}

func errorMessage(messages []comfy.Message) string {
	var texts []string

	for _, message := range messages {
		if message.Type != comfy.MessageTypeExecutionError {
			continue
		}

		if text := message.ExceptionMessage(); text != "" {
			texts = append(texts, text)
		}
	}

	if len(texts) == 0 {
		return UnknownErrorMessage
	}

	return strings.Join(texts, "\n")
}

func (b *Broker) finish(ctx context.Context, result *Result, start time.Time) {
	elapsed := time.Since(start)
	b.observeExecution(result.Status, elapsed)

	switch result.Status {
	case StatusCompleted:
		b.logger.InfoContext(ctx, "Execution completed", "prompt_id", result.PromptID, "duration", elapsed)
		b.publish(ctx, result.PromptID, events.ExecutionCompleted{
			BaseEvent: events.NewBaseEvent(events.ExecutionCompletedEvent, result.PromptID),
			Duration:  elapsed,
			Images:    len(result.Images),
			Videos:    len(result.Videos),
			Audios:    len(result.Audios),
			Texts:     len(result.Texts),
		})
	case StatusError:
		b.logger.WarnContext(ctx, "Execution failed", "prompt_id", result.PromptID, "error", result.Error)
		b.publish(ctx, result.PromptID, events.ExecutionFailed{
			BaseEvent: events.NewBaseEvent(events.ExecutionFailedEvent, result.PromptID),
			Error:     result.Error,
			Duration:  elapsed,
		})
	case StatusQueued, StatusProcessing, StatusTimeout:
	}
}

func (b *Broker) finishTimeout(ctx context.Context, result *Result, start time.Time, timeout time.Duration) {
	elapsed := time.Since(start)

	result.Status = StatusTimeout
	result.Duration = elapsed.Seconds()

	b.observeExecution(StatusTimeout, elapsed)
	b.logger.WarnContext(ctx, "Execution timed out", "prompt_id", result.PromptID, "timeout", timeout)
	b.publish(ctx, result.PromptID, events.ExecutionTimeout{
		BaseEvent: events.NewBaseEvent(events.ExecutionTimeoutEvent, result.PromptID),
		Timeout:   timeout,
		Duration:  elapsed,
	})
}

func (b *Broker) finishCancelled(ctx context.Context, result *Result, start time.Time) {
	elapsed := time.Since(start)

	b.observeExecution("cancelled", elapsed)
	b.logger.InfoContext(ctx, "Stopped waiting for execution", "prompt_id", result.PromptID, "reason", ctx.Err())
	b.publish(ctx, result.PromptID, events.ExecutionCancelled{
		BaseEvent: events.NewBaseEvent(events.ExecutionCancelledEvent, result.PromptID),
		Duration:  elapsed,
	})
}

// publish never fails the execution; the request context may already be done.
func (b *Broker) publish(ctx context.Context, promptID string, event eventbus.Event) {
	if b.publisher == nil {
		return
	}

	if err := b.publisher.Publish(context.WithoutCancel(ctx), promptID, event); err != nil {
		b.logger.WarnContext(ctx, "Failed to publish execution event", "prompt_id", promptID, "event_type", event.GetType(), "error", err)
	}
}

func (b *Broker) observeSubmission(result string) {
	if b.recorder != nil {
		b.recorder.ObserveSubmission(result)
	}
}

func (b *Broker) observeExecution(status Status, wait time.Duration) {
	if b.recorder != nil {
		b.recorder.ObserveExecution(string(status), wait)
	}
}

type nodeIDs struct{}

func (nodeIDs) Variable(nodeID string) string { return nodeID }
