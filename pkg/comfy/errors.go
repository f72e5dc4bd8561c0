package comfy

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrMissingPromptID indicates the engine accepted a prompt without returning its id.
var ErrMissingPromptID = errors.New("engine response has no prompt_id")

// StatusError is a non-2xx response from the engine.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: HTTP %d", e.Op, e.StatusCode)
	}

	return fmt.Sprintf("%s: [%d] %s", e.Op, e.StatusCode, e.Body)
}

// IsClientError reports whether err is a 4xx engine response.
func IsClientError(err error) bool {
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		return false
	}

	return statusErr.StatusCode >= http.StatusBadRequest && statusErr.StatusCode < http.StatusInternalServerError
}
