package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Meta carries the display metadata of a linear node.
type Meta struct {
	Title string `json:"title"`
}

// LinearNode is one executable node: its type, resolved inputs and title.
// An input value is either a literal or a [fromNodeID, fromSlot] reference.
type LinearNode struct {
	ClassType string         `json:"class_type"`
	Inputs    map[string]any `json:"inputs"`
	Meta      Meta           `json:"_meta"`
}

// MarshalJSON always emits an inputs object so the engine never sees null.
// HTML characters are left unescaped; callers encoding with json.Marshal
// still get them escaped by the outer encoder.
func (n LinearNode) MarshalJSON() ([]byte, error) {
	type alias LinearNode

	out := alias(n)
	if out.Inputs == nil {
		out.Inputs = map[string]any{}
	}

	var buf bytes.Buffer

	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)

	if err := encoder.Encode(out); err != nil {
		return nil, err
	}

	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Unmarshal decodes JSON keeping numbers as json.Number. Graph values are
// relayed to the engine, and float64 would round large integers such as seeds.
func Unmarshal(data []byte, v any) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	return decoder.Decode(v)
}

// LinearGraph maps node id to node.
type LinearGraph map[string]*LinearNode

// ParseLinear validates the document shape and decodes it.
func ParseLinear(data []byte) (LinearGraph, error) {
	if err := ValidateLinear(data); err != nil {
		return nil, err
	}

	var linear LinearGraph
	if err := Unmarshal(data, &linear); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormatInvalid, err)
	}

	return linear, nil
}

// IDs returns the node ids in ascending numeric order.
func (g LinearGraph) IDs() []string {
	ids := make([]string, 0, len(g))
	for id := range g {
		ids = append(ids, id)
	}

	slices.SortFunc(ids, CompareIDs)

	return ids
}

// Clone returns a deep copy. Nested input values are copied too.
func (g LinearGraph) Clone() LinearGraph {
	if g == nil {
		return nil
	}

	out := make(LinearGraph, len(g))

	for id, node := range g {
		if node == nil {
			out[id] = nil

			continue
		}

		copied := &LinearNode{
			ClassType: node.ClassType,
			Meta:      node.Meta,
		}

		if node.Inputs != nil {
			copied.Inputs = make(map[string]any, len(node.Inputs))
			for field, value := range node.Inputs {
				copied.Inputs[field] = cloneValue(value)
			}
		}

		out[id] = copied
	}

	return out
}

// CompareIDs orders numeric ids by value and falls back to string order.
func CompareIDs(a, b string) int {
	left, errA := strconv.ParseInt(a, 10, 64)
	right, errB := strconv.ParseInt(b, 10, 64)

	if errA == nil && errB == nil {
		switch {
		case left < right:
			return -1
		case left > right:
			return 1
		}
	}

	return strings.Compare(a, b)
}

func cloneValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, inner := range v {
			out[key] = cloneValue(inner)
		}

		return out
	case []any:
		out := make([]any, len(v))
		for i, inner := range v {
			out[i] = cloneValue(inner)
		}

		return out
	default:
		return v
	}
}
