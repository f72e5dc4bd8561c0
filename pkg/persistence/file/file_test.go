package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/dukex/oneapi/pkg/persistence"
	"github.com/dukex/oneapi/pkg/persistence/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const linearGraph = `{"1":{"class_type":"SaveImage","inputs":{}}}`

func TestPersistence_SaveAndLoad(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	p := file.NewPersistence("file://" + root)
	ctx := context.Background()

	filename, err := p.SaveWorkflow(ctx, "", "portrait", []byte(linearGraph), false)
	require.NoError(t, err)
	assert.Equal(t, "portrait.json", filename)

	_, err = os.Stat(filepath.Join(root, "default", "api_workflows", "portrait.json"))
	require.NoError(t, err)

	data, err := p.Workflow(ctx, "default", "portrait.json")
	require.NoError(t, err)
	assert.JSONEq(t, linearGraph, string(data))
	assert.Contains(t, string(data), "\n  \"1\"")
}

func TestPersistence_SaveWithoutOverwrite(t *testing.T) {
	t.Parallel()

	p := file.NewPersistence(t.TempDir())
	ctx := context.Background()

	_, err := p.SaveWorkflow(ctx, "alice", "a", []byte(linearGraph), false)
	require.NoError(t, err)

	_, err = p.SaveWorkflow(ctx, "alice", "a.json", []byte(`{}`), false)
	require.Error(t, err)
	assert.True(t, persistence.IsWorkflowAlreadyExists(err))

	_, err = p.SaveWorkflow(ctx, "alice", "a", []byte(`{}`), true)
	require.NoError(t, err)

	data, err := p.Workflow(ctx, "alice", "a")
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(data))
}

func TestPersistence_OwnersAreIsolated(t *testing.T) {
	t.Parallel()

	p := file.NewPersistence(t.TempDir())
	ctx := context.Background()

	_, err := p.SaveWorkflow(ctx, "alice", "a", []byte(linearGraph), false)
	require.NoError(t, err)

	_, err = p.Workflow(ctx, "bob", "a")
	require.Error(t, err)
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestPersistence_InvalidInput(t *testing.T) {
	t.Parallel()

	p := file.NewPersistence(t.TempDir())
	ctx := context.Background()

	_, err := p.SaveWorkflow(ctx, "alice", "../escape", []byte(linearGraph), false)
	assert.True(t, persistence.IsInvalidName(err))

	_, err = p.SaveWorkflow(ctx, "alice", "broken", []byte(`{`), false)
	require.Error(t, err)

	_, err = p.Workflow(ctx, "alice", "broken")
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestPersistence_Workflows(t *testing.T) {
	t.Parallel()

	p := file.NewPersistence(t.TempDir())
	ctx := context.Background()

	names, err := p.Workflows(ctx, "alice")
	require.NoError(t, err)
	assert.NotNil(t, names)
	assert.Empty(t, names)

	for _, name := range []string{"b", "a"} {
		_, err = p.SaveWorkflow(ctx, "alice", name, []byte(linearGraph), false)
		require.NoError(t, err)
	}

	names, err = p.Workflows(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.json", "b.json"}, names)
}

func TestPersistence_WorkflowsRejectsTraversal(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	outside := filepath.Join(base, "secret", persistence.Directory)
	require.NoError(t, os.MkdirAll(outside, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(outside, "leak.json"), []byte(linearGraph), 0o600))

	p := file.NewPersistence(filepath.Join(base, "store"))
	ctx := context.Background()

	for _, owner := range []string{"../secret", "..", "a/b", `a\b`, ".hidden"} {
		names, err := p.Workflows(ctx, owner)
		require.Error(t, err, owner)
		assert.True(t, persistence.IsInvalidName(err), owner)
		assert.Nil(t, names)
	}
}

func TestPersistence_HealthCheck(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, file.NewPersistence(root).HealthCheck(context.Background()))
	require.Error(t, file.NewPersistence(filepath.Join(root, "missing")).HealthCheck(context.Background()))
}
