package services_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/oneapi/pkg/config"
	"github.com/dukex/oneapi/pkg/graph"
	"github.com/dukex/oneapi/pkg/services"
)

func TestWorkflow_Save(t *testing.T) {
	t.Parallel()

	s := newStack(t, newFakeEngine(t, ""), config.DefaultPolicy())

	filename, err := s.workflows.Save(t.Context(), services.SaveRequest{
		Name:     "portrait",
		Workflow: json.RawMessage(scenarioGraph),
	})
	require.NoError(t, err)
	assert.Equal(t, "portrait.json", filename)

	_, err = s.workflows.Save(t.Context(), services.SaveRequest{
		Name:     "portrait.json",
		Workflow: json.RawMessage(scenarioGraph),
	})
	require.Error(t, err)
	assert.True(t, services.IsConflictError(err))
	assert.Equal(t, "File already exists. Use overwrite=true to overwrite.", services.Detail(err))

	_, err = s.workflows.Save(t.Context(), services.SaveRequest{
		Name:      "portrait",
		Workflow:  json.RawMessage(scenarioGraph),
		Overwrite: true,
	})
	require.NoError(t, err)

	names, err := s.workflows.Workflows(t.Context(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"portrait.json"}, names)

	message, ok := s.workflows.HealthCheck(t.Context())
	assert.True(t, ok)
	assert.Equal(t, "Persistence layer is healthy", message)
}

func TestWorkflow_SaveValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		request services.SaveRequest
		check   func(error) bool
		detail  string
	}{
		{
			name:    "missing name",
			request: services.SaveRequest{Workflow: json.RawMessage(scenarioGraph)},
			check:   services.IsRequestMalformed,
			detail:  "Name is required",
		},
		{
			name:    "missing workflow",
			request: services.SaveRequest{Name: "a"},
			check:   services.IsRequestMalformed,
			detail:  "Workflow is required",
		},
		{
			name:    "empty workflow",
			request: services.SaveRequest{Name: "a", Workflow: json.RawMessage(`{}`)},
			check:   services.IsRequestMalformed,
			detail:  "Workflow is required",
		},
		{
			name:    "invalid format",
			request: services.SaveRequest{Name: "a", Workflow: json.RawMessage(`{"foo": 1}`)},
			check:   graph.IsFormatInvalid,
			detail:  "Invalid workflow format",
		},
		{
			name:    "interactive graph",
			request: services.SaveRequest{Name: "a", Workflow: json.RawMessage(`{"nodes": [], "links": []}`)},
			check:   services.IsFormatUnsupported,
			detail:  "UI format workflow is not supported. Please convert to API format and try again.",
		},
		{
			name:    "path traversal",
			request: services.SaveRequest{Name: "../a", Workflow: json.RawMessage(scenarioGraph)},
			check:   services.IsRequestMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := newStack(t, newFakeEngine(t, ""), config.DefaultPolicy())

			_, err := s.workflows.Save(t.Context(), tt.request)
			require.Error(t, err)
			assert.True(t, tt.check(err), err.Error())
			assert.True(t, services.IsValidationError(err))

			if tt.detail != "" {
				assert.Equal(t, tt.detail, services.Detail(err))
			}
		})
	}
}
