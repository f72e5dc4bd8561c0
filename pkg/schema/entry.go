// Package schema exposes the job engine's node catalog: for every node type,
// the ordered required inputs, their defaults, and which of them carry a
// regenerate-after-use control widget.
package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// FieldSpec describes one required input field.
type FieldSpec struct {
	Default           any
	HasDefault        bool
	RegenerateControl bool
}

// Entry is the catalog record of one node type.
type Entry struct {
	DisplayName   string
	RequiredOrder []string
	Required      map[string]FieldSpec
}

// Snapshot is a point-in-time view of the catalog keyed by node type.
type Snapshot map[string]Entry

// Lookup returns the entry for a node type. Unknown types yield an empty entry.
func (s Snapshot) Lookup(nodeType string) (Entry, bool) {
	entry, ok := s[nodeType]

	return entry, ok
}

type rawEntry struct {
	DisplayName string `json:"display_name"`
	Input       struct {
		Required json.RawMessage `json:"required"`
	} `json:"input"`
	InputOrder struct {
		Required []string `json:"required"`
	} `json:"input_order"`
}

// ParseObjectInfo decodes the engine's object-info document. Only a document
// that is not a JSON object fails; node types whose record cannot be used
// are kept with no required fields known.
func ParseObjectInfo(data []byte) (Snapshot, error) {
	snapshot, _, err := parseObjectInfo(data)

	return snapshot, err
}

// parseObjectInfo also reports the node types that were degraded to an
// empty entry.
func parseObjectInfo(data []byte) (Snapshot, map[string]error, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("failed to decode object info: %w", err)
	}

	snapshot := make(Snapshot, len(raw))
	degraded := map[string]error{}

	for nodeType, message := range raw {
		entry, err := parseEntry(message)
		if err != nil {
			degraded[nodeType] = err
		}

		snapshot[nodeType] = entry
	}

	return snapshot, degraded, nil
}

// parseEntry never fails outright: on error it returns what could be read,
// with no required fields.
func parseEntry(message json.RawMessage) (Entry, error) {
	var raw rawEntry
	if err := json.Unmarshal(message, &raw); err != nil {
		return Entry{Required: map[string]FieldSpec{}}, err
	}

	entry := Entry{
		DisplayName:   raw.DisplayName,
		RequiredOrder: raw.InputOrder.Required,
		Required:      map[string]FieldSpec{},
	}

	required := bytes.TrimSpace(raw.Input.Required)
	if len(required) == 0 || string(required) == "null" {
		return entry, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(required, &fields); err != nil {
		entry.RequiredOrder = nil

		return entry, fmt.Errorf("required inputs: %w", err)
	}

	for name, spec := range fields {
		entry.Required[name] = parseFieldSpec(spec)
	}

	// Engines predating input_order still declare required inputs in order.
	if entry.RequiredOrder == nil {
		order, err := objectKeys(required)
		if err != nil {
			return Entry{DisplayName: raw.DisplayName, Required: map[string]FieldSpec{}}, fmt.Errorf("required input order: %w", err)
		}

		entry.RequiredOrder = order
	}

	return entry, nil
}

// parseFieldSpec reads a [type, options] pair. Any other shape has no
// default and no control.
func parseFieldSpec(raw json.RawMessage) FieldSpec {
	var field FieldSpec

	var spec []json.RawMessage
	if err := json.Unmarshal(raw, &spec); err != nil || len(spec) < 2 {
		return field
	}

	var options map[string]any
	if err := json.Unmarshal(spec[1], &options); err != nil {
		return field
	}

	if value, ok := options["default"]; ok {
		field.Default = value
		field.HasDefault = true
	}

	switch control := options["control_after_generate"].(type) {
	case bool:
		field.RegenerateControl = control
	case string:
		field.RegenerateControl = control != ""
	}

	return field
}

var errNotObject = errors.New("expected a JSON object")

// objectKeys returns the top-level keys of a JSON object in document order.
func objectKeys(data json.RawMessage) ([]string, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))

	token, err := decoder.Token()
	if err != nil {
		return nil, err
	}

	if delim, ok := token.(json.Delim); !ok || delim != '{' {
		return nil, errNotObject
	}

	var keys []string

	for decoder.More() {
		token, err := decoder.Token()
		if err != nil {
			return nil, err
		}

		key, ok := token.(string)
		if !ok {
			return nil, errNotObject
		}

		keys = append(keys, key)

		var skip json.RawMessage
		if err := decoder.Decode(&skip); err != nil {
			return nil, err
		}
	}

	return keys, nil
}
