// Package file provides file-based persistence for saved graphs.
package file

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dukex/oneapi/pkg/persistence"
)

// Persistence stores graphs as <root>/<owner>/api_workflows/<name>.json.
type Persistence struct {
	root string
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
func NewPersistence(root string) *Persistence {
	return &Persistence{root: strings.Replace(root, "file://", "", 1)}
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) SaveWorkflow(_ context.Context, owner, name string, data []byte, overwrite bool) (string, error) {
	owner, filename, err := persistence.Key(owner, name)
	if err != nil {
		return "", persistence.NewWorkflowError("Save", owner, name, err)
	}

	dir := fp.dir(owner)

	err = os.MkdirAll(dir, 0o750)
	if err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	var formatted bytes.Buffer

	err = json.Indent(&formatted, data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to format workflow %s: %w", filename, err)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}

	file, err := os.OpenFile(filepath.Join(dir, filename), flags, 0o600)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", persistence.NewWorkflowError("Save", owner, filename, persistence.ErrWorkflowAlreadyExists)
		}

		return "", fmt.Errorf("failed to open workflow file %s: %w", filename, err)
	}

	_, err = file.Write(formatted.Bytes())
	if err != nil {
		_ = file.Close()

		return "", fmt.Errorf("failed to write workflow file %s: %w", filename, err)
	}

	err = file.Close()
	if err != nil {
		return "", fmt.Errorf("failed to close workflow file %s: %w", filename, err)
	}

	return filename, nil
}

func (fp *Persistence) Workflow(_ context.Context, owner, name string) ([]byte, error) {
	owner, filename, err := persistence.Key(owner, name)
	if err != nil {
		return nil, persistence.NewWorkflowError("Load", owner, name, err)
	}

	data, err := os.ReadFile(filepath.Join(fp.dir(owner), filename))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, persistence.NewWorkflowError("Load", owner, filename, persistence.ErrWorkflowNotFound)
		}

		return nil, fmt.Errorf("failed to read workflow file %s: %w", filename, err)
	}

	return data, nil
}

// Workflows lists the saved filenames of owner in lexical order. An owner
// without saved graphs gets an empty, non-nil slice.
func (fp *Persistence) Workflows(_ context.Context, header string) ([]string, error) {
	owner, err := persistence.CheckOwner(header)
	if err != nil {
		return nil, persistence.NewWorkflowError("List", header, "", err)
	}

	matches, err := fs.Glob(os.DirFS(fp.dir(owner)), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow files: %w", err)
	}

	if matches == nil {
		return []string{}, nil
	}

	sort.Strings(matches)

	return matches, nil
}

func (fp *Persistence) dir(owner string) string {
	return filepath.Join(fp.root, owner, persistence.Directory)
}
