// Package persistence provides the caller-scoped store for saved linear graphs.
package persistence

import (
	"context"
	"fmt"
	"strings"
)

const (
	// DefaultOwner is used when a request carries no user header.
	DefaultOwner = "default"

	// Directory is the logical folder saved graphs live in, per owner.
	Directory = "api_workflows"

	extension = ".json"
)

type Persistence interface {
	// SaveWorkflow stores data under owner/name and returns the normalized filename.
	SaveWorkflow(ctx context.Context, owner, name string, data []byte, overwrite bool) (string, error)
	Workflow(ctx context.Context, owner, name string) ([]byte, error)
	Workflows(ctx context.Context, owner string) ([]string, error)
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}

// Filename appends the .json suffix when missing.
func Filename(name string) string {
	if strings.HasSuffix(name, extension) {
		return name
	}

	return name + extension
}

// Owner returns header, or DefaultOwner when it is blank.
func Owner(header string) string {
	owner := strings.TrimSpace(header)
	if owner == "" {
		return DefaultOwner
	}

	return owner
}

// CheckOwner resolves header with Owner and rejects values that are not a
// single path segment.
func CheckOwner(header string) (string, error) {
	owner := Owner(header)

	if err := checkSegment(owner); err != nil {
		return "", fmt.Errorf("owner %q: %w", owner, err)
	}

	return owner, nil
}

// Key validates owner and name and returns the owner and the normalized filename.
func Key(owner, name string) (string, string, error) {
	owner, err := CheckOwner(owner)
	if err != nil {
		return "", "", err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", fmt.Errorf("empty name: %w", ErrInvalidName)
	}

	filename := Filename(name)
	if err := checkSegment(filename); err != nil {
		return "", "", fmt.Errorf("name %q: %w", name, err)
	}

	return owner, filename, nil
}

func checkSegment(segment string) error {
	if segment == "." || segment == ".." || strings.HasPrefix(segment, ".") {
		return ErrInvalidName
	}

	if strings.ContainsAny(segment, `/\`) || strings.ContainsRune(segment, 0) {
		return ErrInvalidName
	}

	return nil
}
