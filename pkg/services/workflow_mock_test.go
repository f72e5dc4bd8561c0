package services_test

import (
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dukex/oneapi/pkg/mocks"
	"github.com/dukex/oneapi/pkg/services"
)

func TestWorkflow_HealthCheckUnhealthy(t *testing.T) {
	t.Parallel()

	store := &mocks.MockPersistence{}
	store.On("HealthCheck", mock.Anything).Return(errors.New("disk gone"))

	w := services.NewWorkflow(store, slog.New(slog.DiscardHandler))

	message, ok := w.HealthCheck(t.Context())
	assert.False(t, ok)
	assert.Equal(t, "Persistence layer is unhealthy: disk gone", message)
	store.AssertExpectations(t)
}

func TestWorkflow_SaveStoreError(t *testing.T) {
	t.Parallel()

	storeErr := errors.New("write failed")

	store := &mocks.MockPersistence{}
	store.On("SaveWorkflow", mock.Anything, "alice", "portrait", mock.Anything, false).Return("", storeErr)

	w := services.NewWorkflow(store, slog.New(slog.DiscardHandler))

	_, err := w.Save(t.Context(), services.SaveRequest{
		Owner:    "alice",
		Name:     "portrait",
		Workflow: json.RawMessage(scenarioGraph),
	})
	require.ErrorIs(t, err, storeErr)
	assert.False(t, services.IsValidationError(err))
	store.AssertExpectations(t)
}

func TestWorkflow_WorkflowsDelegates(t *testing.T) {
	t.Parallel()

	store := &mocks.MockPersistence{}
	store.On("Workflows", mock.Anything, "bob").Return([]string{"a.json", "b.json"}, nil)

	w := services.NewWorkflow(store, slog.New(slog.DiscardHandler))

	names, err := w.Workflows(t.Context(), "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.json", "b.json"}, names)
	store.AssertExpectations(t)
}
