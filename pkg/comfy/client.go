// Package comfy is the HTTP client of the job engine: prompt queue, history,
// media upload and node catalog.
package comfy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dukex/oneapi/pkg/graph"
	"github.com/dukex/oneapi/pkg/otelhelper"
)

// DefaultBaseURL is the engine's loopback address.
const DefaultBaseURL = "http://127.0.0.1:8188"

// HistoryMode selects how history is polled.
type HistoryMode string

const (
	// HistoryByID fetches /history/{prompt_id}.
	HistoryByID HistoryMode = "by_id"
	// HistoryFull fetches /history and picks the prompt from the full map.
	HistoryFull HistoryMode = "full"
)

// Client talks to one engine instance. Prompt submission and uploads go
// through a circuit breaker; reads do not.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	breaker     *gobreaker.CircuitBreaker
	historyMode HistoryMode
	tracer      trace.Tracer
	logger      *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

func WithHistoryMode(mode HistoryMode) Option {
	return func(c *Client) {
		if mode != "" {
			c.historyMode = mode
		}
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(c *Client) { c.tracer = tracer }
}

func WithBreaker(config BreakerConfig) Option {
	return func(c *Client) { c.breaker = newBreaker("engine", config, c.logger) }
}

func NewClient(baseURL string, logger *slog.Logger, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	client := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		historyMode: HistoryByID,
		tracer:      otelhelper.NoopTracer(),
		logger:      logger.With("module", "engine_client"),
	}

	client.breaker = newBreaker("engine", DefaultBreakerConfig(), client.logger)

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// BaseURL returns the engine address without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type queueResponse struct {
	PromptID string `json:"prompt_id"`
}

// QueuePrompt submits a linear graph. Extra parameters are merged into the
// request body but never replace prompt or client_id.
func (c *Client) QueuePrompt(ctx context.Context, prompt graph.LinearGraph, clientID string, extra map[string]any) (string, error) {
	ctx, span := otelhelper.StartSpan(ctx, c.tracer, "engine.queue_prompt",
		attribute.String(otelhelper.ClientIDKey, clientID),
		attribute.Int(otelhelper.NodeCountKey, len(prompt)),
	)
	defer span.End()

	body := make(map[string]any, len(extra)+2)
	for key, value := range extra {
		body[key] = value
	}

	body["prompt"] = prompt
	body["client_id"] = clientID

	payload, err := json.Marshal(body)
	if err != nil {
		otelhelper.SetError(span, err)

		return "", fmt.Errorf("failed to encode prompt: %w", err)
	}

	result, err := c.breaker.Execute(func() (any, error) {
		var response queueResponse
		if err := c.doJSON(ctx, "queue prompt", http.MethodPost, "/prompt", bytes.NewReader(payload), "application/json", &response); err != nil {
			return "", err
		}

		return response.PromptID, nil
	})
	if err != nil {
		otelhelper.SetError(span, err)

		return "", err
	}

	promptID, _ := result.(string)
	if promptID == "" {
		otelhelper.SetError(span, ErrMissingPromptID)

		return "", ErrMissingPromptID
	}

	span.SetAttributes(attribute.String(otelhelper.PromptIDKey, promptID))
	c.logger.InfoContext(ctx, "Prompt queued", "prompt_id", promptID, "client_id", clientID)

	return promptID, nil
}

// History returns the history entry of a prompt. The boolean is false while
// the engine has no record of it yet.
func (c *Client) History(ctx context.Context, promptID string) (*HistoryEntry, bool, error) {
	path := "/history"
	if c.historyMode == HistoryByID {
		path += "/" + url.PathEscape(promptID)
	}

	var history map[string]*HistoryEntry
	if err := c.doJSON(ctx, "fetch history", http.MethodGet, path, nil, "", &history); err != nil {
		return nil, false, err
	}

	entry, ok := history[promptID]
	if !ok || entry == nil {
		return nil, false, nil
	}

	return entry, true, nil
}

type uploadResponse struct {
	Name      string `json:"name"`
	Subfolder string `json:"subfolder"`
	Type      string `json:"type"`
}

// UploadImage posts media to the engine's input store and returns the
// name the engine assigned.
func (c *Client) UploadImage(ctx context.Context, filename, contentType string, content io.Reader) (string, error) {
	ctx, span := otelhelper.StartSpan(ctx, c.tracer, "engine.upload_image")
	defer span.End()

	var buf bytes.Buffer

	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="%s"`, escapeQuotes(filename)))
	header.Set("Content-Type", contentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("failed to create upload form: %w", err)
	}

	if _, err := io.Copy(part, content); err != nil {
		return "", fmt.Errorf("failed to write upload form: %w", err)
	}

	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close upload form: %w", err)
	}

	result, err := c.breaker.Execute(func() (any, error) {
		var response uploadResponse
		if err := c.doJSON(ctx, "upload image", http.MethodPost, "/upload/image", bytes.NewReader(buf.Bytes()), writer.FormDataContentType(), &response); err != nil {
			return "", err
		}

		return response.Name, nil
	})
	if err != nil {
		otelhelper.SetError(span, err)

		return "", err
	}

	name, _ := result.(string)
	c.logger.DebugContext(ctx, "Media uploaded", "filename", filename, "name", name)

	return name, nil
}

// ObjectInfo returns the raw node catalog document.
func (c *Client) ObjectInfo(ctx context.Context) ([]byte, error) {
	return c.get(ctx, "fetch object info", "/api/object_info")
}

// Ping checks the engine is reachable.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.get(ctx, "ping", "/system_stats")

	return err
}

func (c *Client) get(ctx context.Context, op, path string) ([]byte, error) {
	resp, err := c.do(ctx, op, http.MethodGet, path, nil, "")
	if err != nil {
		return nil, err
	}

	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read response: %w", op, err)
	}

	return data, nil
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, body io.Reader, contentType string, out any) error {
	resp, err := c.do(ctx, op, method, path, body, contentType)
	if err != nil {
		return err
	}

	defer func() { _ = resp.Body.Close() }()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: failed to decode response: %w", op, err)
	}

	return nil
}

// do sends the request and turns non-2xx responses into *StatusError.
func (c *Client) do(ctx context.Context, op, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create request: %w", op, err)
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		defer func() { _ = resp.Body.Close() }()

		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

		return nil, &StatusError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(text))}
	}

	return resp, nil
}

// IsBreakerOpen reports whether err came from an open circuit breaker.
func IsBreakerOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
