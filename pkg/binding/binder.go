// Package binding applies caller parameters to a linear graph through the
// binding markers in node titles.
package binding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/oneapi/pkg/graph"
	"github.com/dukex/oneapi/pkg/marker"
	"github.com/dukex/oneapi/pkg/media"
)

// ErrMediaUploadFailed indicates a bound media locator could not be re-hosted.
var ErrMediaUploadFailed = errors.New("media upload failed")

// IsMediaUploadFailed checks if an error indicates a media re-hosting failure.
func IsMediaUploadFailed(err error) bool {
	return errors.Is(err, ErrMediaUploadFailed)
}

// MediaResolver re-hosts a remote locator and returns the engine's name for it.
type MediaResolver interface {
	Resolve(ctx context.Context, remoteURL string) (string, error)
}

type Binder struct {
	uploadTypes map[string]struct{}
	resolver    MediaResolver
	logger      *slog.Logger
}

// NewBinder creates a binder. Values bound on nodes whose class type is in
// uploadTypes are re-hosted through resolver when they are remote URLs.
func NewBinder(uploadTypes []string, resolver MediaResolver, logger *slog.Logger) *Binder {
	types := make(map[string]struct{}, len(uploadTypes))
	for _, t := range uploadTypes {
		types[t] = struct{}{}
	}

	return &Binder{
		uploadTypes: types,
		resolver:    resolver,
		logger:      logger.With("module", "binder"),
	}
}

// Bind returns a copy of g with params applied. g is never modified. Markers
// naming parameters absent from params are skipped. Any media failure fails
// the whole bind and no graph is returned.
func (b *Binder) Bind(ctx context.Context, g graph.LinearGraph, params map[string]any) (graph.LinearGraph, error) {
	bound := g.Clone()
	if len(params) == 0 {
		return bound, nil
	}

	// The same locator bound to several nodes is uploaded once.
	resolved := map[string]string{}

	for _, id := range bound.IDs() {
		node := bound[id]
		if node == nil || node.Meta.Title == "" {
			continue
		}

		directives, err := marker.Parse(node.Meta.Title)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", id, err)
		}

		for _, warning := range directives.Warnings {
			b.logger.WarnContext(ctx, "Skipping malformed binding marker", "node_id", id, "segment", warning.Segment, "reason", warning.Reason)
		}

		for _, binding := range directives.Bindings {
			value, ok := params[binding.Param]
			if !ok {
				continue
			}

			value, err := b.resolveValue(ctx, node.ClassType, value, resolved)
			if err != nil {
				return nil, fmt.Errorf("%w: node %s field %s: %w", ErrMediaUploadFailed, id, binding.Field, err)
			}

			if node.Inputs == nil {
				node.Inputs = map[string]any{}
			}

			node.Inputs[binding.Field] = value
		}
	}

	return bound, nil
}

func (b *Binder) resolveValue(ctx context.Context, classType string, value any, resolved map[string]string) (any, error) {
	if _, ok := b.uploadTypes[classType]; !ok {
		return value, nil
	}

	locator, ok := value.(string)
	if !ok || !media.IsRemote(locator) {
		return value, nil
	}

	if name, ok := resolved[locator]; ok {
		return name, nil
	}

	if b.resolver == nil {
		return nil, errors.New("no media resolver configured")
	}

	name, err := b.resolver.Resolve(ctx, locator)
	if err != nil {
		return nil, err
	}

	resolved[locator] = name

	return name, nil
}
