package services

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/dukex/oneapi/pkg/graph"
	"github.com/dukex/oneapi/pkg/persistence"
)

// SavedMessage is returned after a successful save.
const SavedMessage = "Workflow saved successfully"

type Workflow struct {
	persistence persistence.Persistence
	logger      *slog.Logger
}

// NewWorkflow creates a new saved-graph service.
func NewWorkflow(persistence persistence.Persistence, logger *slog.Logger) *Workflow {
	return &Workflow{
		persistence: persistence,
		logger:      logger.With("module", "workflow_service"),
	}
}

// HealthCheck checks the health of the persistence layer.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := w.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// SaveRequest stores a linear graph for later execution by name.
type SaveRequest struct {
	Owner     string
	Name      string
	Workflow  json.RawMessage
	Overwrite bool
}

// Save validates and stores a linear graph. It returns the stored filename.
func (w *Workflow) Save(ctx context.Context, req SaveRequest) (string, error) {
	if req.Name == "" {
		return "", NewValidationError("save_workflow", "validation_error", "Name is required", ErrRequestMalformed)
	}

	if isMissing(req.Workflow) {
		return "", NewValidationError("save_workflow", "validation_error", "Workflow is required", ErrRequestMalformed)
	}

	switch graph.ClassifyJSON(req.Workflow) {
	case graph.FormatInvalid:
		return "", NewValidationError("save_workflow", "invalid_format", "Invalid workflow format", graph.ErrFormatInvalid)
	case graph.FormatInteractive:
		return "", NewValidationError("save_workflow", "unsupported_format",
			"UI format workflow is not supported. Please convert to API format and try again.", ErrFormatUnsupported)
	}

	filename, err := w.persistence.SaveWorkflow(ctx, req.Owner, req.Name, req.Workflow, req.Overwrite)
	if err != nil {
		if persistence.IsWorkflowAlreadyExists(err) {
			return "", NewValidationError("save_workflow", "conflict",
				"File already exists. Use overwrite=true to overwrite.", err)
		}

		return "", err
	}

	w.logger.InfoContext(ctx, "Workflow saved", "owner", persistence.Owner(req.Owner), "filename", filename)

	return filename, nil
}

// Workflows lists the saved graph filenames of owner.
func (w *Workflow) Workflows(ctx context.Context, owner string) ([]string, error) {
	return w.persistence.Workflows(ctx, owner)
}

func isMissing(raw json.RawMessage) bool {
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return len(raw) == 0
	}

	switch v := value.(type) {
	case nil:
		return true
	case map[string]any:
		return len(v) == 0
	case string:
		return v == ""
	case []any:
		return len(v) == 0
	case bool:
		return !v
	default:
		return false
	}
}
