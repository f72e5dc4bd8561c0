package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dukex/oneapi/pkg/media"
	"github.com/dukex/oneapi/pkg/persistence"
)

const (
	defaultDownloadTimeout = 30 * time.Second
	maxWorkflowSize        = 32 << 20
)

// Source resolves the workflow field of a request into graph JSON.
// An object is used as is, a http(s) URL string is downloaded and any
// other string names a saved graph of the caller.
type Source struct {
	store      persistence.Persistence
	httpClient *http.Client
}

func NewSource(store persistence.Persistence, httpClient *http.Client) *Source {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultDownloadTimeout}
	}

	return &Source{store: store, httpClient: httpClient}
}

func (s *Source) Load(ctx context.Context, owner string, workflow json.RawMessage) ([]byte, error) {
	trimmed := bytes.TrimSpace(workflow)
	if len(trimmed) == 0 {
		return nil, NewValidationError("load_workflow", "validation_error", "Workflow is required", ErrRequestMalformed)
	}

	switch trimmed[0] {
	case '{':
		return trimmed, nil
	case '"':
		var reference string
		if err := json.Unmarshal(trimmed, &reference); err != nil {
			return nil, NewValidationError("load_workflow", "validation_error", "Invalid workflow parameter", ErrRequestMalformed)
		}

		if media.IsRemote(reference) {
			return s.download(ctx, reference)
		}

		return s.saved(ctx, owner, reference)
	default:
		return nil, NewValidationError("load_workflow", "validation_error", "Invalid workflow parameter", ErrRequestMalformed)
	}
}

func (s *Source) saved(ctx context.Context, owner, name string) ([]byte, error) {
	if s.store == nil {
		return nil, persistence.NewWorkflowError("Load", owner, name, persistence.ErrWorkflowNotFound)
	}

	data, err := s.store.Workflow(ctx, owner, name)
	if err != nil {
		return nil, err
	}

	return data, nil
}

func (s *Source) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, NewValidationError("download_workflow", "validation_error", "Invalid workflow URL", ErrRequestMalformed)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWorkflowDownload, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %d", ErrWorkflowDownload, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxWorkflowSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWorkflowDownload, err)
	}

	if !json.Valid(data) {
		return nil, NewValidationError("download_workflow", "validation_error", "Invalid workflow JSON from url", ErrRequestMalformed)
	}

	return data, nil
}
