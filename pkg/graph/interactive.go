package graph

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// NodeID is an editor node id. The editor writes numbers; some documents use strings.
type NodeID string

func (id *NodeID) UnmarshalJSON(data []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var raw any
	if err := decoder.Decode(&raw); err != nil {
		return err
	}

	switch v := raw.(type) {
	case json.Number:
		*id = NodeID(v.String())
	case string:
		*id = NodeID(v)
	default:
		return fmt.Errorf("node id must be a number or string, got %s", string(data))
	}

	return nil
}

// WidgetValues is the ordered widget value sequence of a node. Editor
// extensions sometimes store a keyed object instead; those carry no positional
// values and decode as empty. Numbers stay json.Number so 64-bit seeds survive.
type WidgetValues []any

func (w *WidgetValues) UnmarshalJSON(data []byte) error {
	var values []any
	if err := Unmarshal(data, &values); err != nil {
		*w = nil

		return nil //nolint:nilerr // non-list widget values are not positional
	}

	*w = values

	return nil
}

// NodeInput is one declared input slot. Link is nil when the slot is unconnected.
type NodeInput struct {
	Name string `json:"name"`
	Link *int64 `json:"link"`
}

// InteractiveNode is a node as stored by the graph editor.
type InteractiveNode struct {
	ID           NodeID         `json:"id"`
	Type         string         `json:"type"`
	Title        string         `json:"title,omitempty"`
	WidgetValues WidgetValues   `json:"widgets_values"`
	Inputs       []NodeInput    `json:"inputs"`
	Properties   map[string]any `json:"properties,omitempty"`
}

// SearchName returns the "Node name for S&R" property, if set.
func (n InteractiveNode) SearchName() string {
	name, _ := n.Properties["Node name for S&R"].(string)

	return name
}

// Link connects an output slot of one node to an input slot of another.
type Link struct {
	ID       int64
	FromNode NodeID
	FromSlot int
	ToNode   NodeID
	ToSlot   int
	Type     string
}

// UnmarshalJSON accepts the positional form [id, from, fromSlot, to, toSlot, type?]
// and the keyed form {id, origin_id, origin_slot, target_id, target_slot, type}.
func (l *Link) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var keyed struct {
			ID         int64  `json:"id"`
			OriginID   NodeID `json:"origin_id"`
			OriginSlot int    `json:"origin_slot"`
			TargetID   NodeID `json:"target_id"`
			TargetSlot int    `json:"target_slot"`
			Type       any    `json:"type"`
		}

		if err := json.Unmarshal(trimmed, &keyed); err != nil {
			return err
		}

		*l = Link{
			ID:       keyed.ID,
			FromNode: keyed.OriginID,
			FromSlot: keyed.OriginSlot,
			ToNode:   keyed.TargetID,
			ToSlot:   keyed.TargetSlot,
		}
		l.Type, _ = keyed.Type.(string)

		return nil
	}

	var parts []json.RawMessage
	if err := json.Unmarshal(trimmed, &parts); err != nil {
		return err
	}

	if len(parts) < 5 {
		return fmt.Errorf("link must have at least 5 elements, got %d", len(parts))
	}

	var link Link

	if err := json.Unmarshal(parts[0], &link.ID); err != nil {
		return fmt.Errorf("link id: %w", err)
	}

	if err := json.Unmarshal(parts[1], &link.FromNode); err != nil {
		return fmt.Errorf("link origin: %w", err)
	}

	if err := json.Unmarshal(parts[2], &link.FromSlot); err != nil {
		return fmt.Errorf("link origin slot: %w", err)
	}

	if err := json.Unmarshal(parts[3], &link.ToNode); err != nil {
		return fmt.Errorf("link target: %w", err)
	}

	if err := json.Unmarshal(parts[4], &link.ToSlot); err != nil {
		return fmt.Errorf("link target slot: %w", err)
	}

	if len(parts) > 5 {
		_ = json.Unmarshal(parts[5], &link.Type)
	}

	*l = link

	return nil
}

// InteractiveGraph is the editor document.
type InteractiveGraph struct {
	Nodes []InteractiveNode `json:"nodes"`
	Links []Link            `json:"links"`
}

// LinkByID looks up a link in the link table.
func (g *InteractiveGraph) LinkByID(id int64) (Link, bool) {
	for _, link := range g.Links {
		if link.ID == id {
			return link, true
		}
	}

	return Link{}, false
}

var errMissingNodeType = errors.New("node has no type")

// ParseInteractive decodes an editor document.
func ParseInteractive(data []byte) (*InteractiveGraph, error) {
	var interactive InteractiveGraph
	if err := json.Unmarshal(data, &interactive); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormatInvalid, err)
	}

	for _, node := range interactive.Nodes {
		if node.Type == "" {
			return nil, fmt.Errorf("%w: node %s: %v", ErrFormatInvalid, node.ID, errMissingNodeType)
		}
	}

	return &interactive, nil
}
