// Package convert turns editor graphs into executable linear graphs using the
// engine's node catalog.
package convert

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/dukex/oneapi/pkg/graph"
	"github.com/dukex/oneapi/pkg/schema"
)

// controlTokens are the values the editor stores after a field carrying a
// regenerate-after-use control. They have no schema field of their own.
var controlTokens = []string{"randomize", "increment", "decrement", "fixed"}

// SnapshotSource provides the node catalog.
type SnapshotSource interface {
	Snapshot(ctx context.Context) (schema.Snapshot, error)
}

type Converter struct {
	catalog SnapshotSource
	logger  *slog.Logger
}

func NewConverter(catalog SnapshotSource, logger *slog.Logger) *Converter {
	return &Converter{
		catalog: catalog,
		logger:  logger.With("module", "converter"),
	}
}

// Convert fetches a catalog snapshot and converts the graph against it.
// A catalog failure fails the whole conversion.
func (c *Converter) Convert(ctx context.Context, interactive *graph.InteractiveGraph) (graph.LinearGraph, error) {
	snapshot, err := c.catalog.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	linear := Apply(interactive, snapshot)

	c.logger.DebugContext(ctx, "Converted interactive graph", "nodes", len(linear))

	return linear, nil
}

// Apply converts every node of an editor graph against a catalog snapshot.
// Node types missing from the snapshot take their inputs from links only.
func Apply(interactive *graph.InteractiveGraph, snapshot schema.Snapshot) graph.LinearGraph {
	linear := make(graph.LinearGraph, len(interactive.Nodes))

	for _, node := range interactive.Nodes {
		entry, _ := snapshot.Lookup(node.Type)

		linear[string(node.ID)] = &graph.LinearNode{
			ClassType: node.Type,
			Inputs:    convertInputs(interactive, node, entry),
			Meta:      graph.Meta{Title: title(node, entry)},
		}
	}

	return linear
}

func convertInputs(interactive *graph.InteractiveGraph, node graph.InteractiveNode, entry schema.Entry) map[string]any {
	inputs := map[string]any{}
	linked := map[string]bool{}

	// Links first. A dangling link id still marks the field as covered.
	for _, input := range node.Inputs {
		if input.Link == nil {
			continue
		}

		linked[input.Name] = true

		link, ok := interactive.LinkByID(*input.Link)
		if !ok {
			continue
		}

		inputs[input.Name] = []any{string(link.FromNode), link.FromSlot}
	}

	// Widget values fill the remaining required fields in declared order.
	widgets := node.WidgetValues
	cursor := 0

	for _, field := range entry.RequiredOrder {
		if linked[field] {
			continue
		}

		if cursor >= len(widgets) {
			break
		}

		inputs[field] = widgets[cursor]
		cursor++

		if entry.Required[field].RegenerateControl && cursor < len(widgets) && isControlToken(widgets[cursor]) {
			cursor++
		}
	}

	for _, field := range entry.RequiredOrder {
		if _, ok := inputs[field]; ok {
			continue
		}

		if spec := entry.Required[field]; spec.HasDefault {
			inputs[field] = spec.Default
		}
	}

	return inputs
}

func isControlToken(value any) bool {
	token, ok := value.(string)

	return ok && slices.Contains(controlTokens, token)
}

func title(node graph.InteractiveNode, entry schema.Entry) string {
	switch {
	case node.Title != "":
		return node.Title
	case node.SearchName() != "":
		return node.SearchName()
	case entry.DisplayName != "":
		return entry.DisplayName
	default:
		return node.Type
	}
}

// ConvertDocument converts raw JSON of either format. Linear documents are
// returned as parsed.
func (c *Converter) ConvertDocument(ctx context.Context, data []byte) (graph.LinearGraph, error) {
	decoded, err := graph.Decode(data)
	if err != nil {
		return nil, err
	}

	if decoded.Format == graph.FormatLinear {
		return decoded.Linear, nil
	}

	linear, err := c.Convert(ctx, decoded.Interactive)
	if err != nil {
		return nil, fmt.Errorf("failed to convert interactive graph: %w", err)
	}

	return linear, nil
}
