package graph

import (
	"encoding/json"
	"fmt"
)

// Format is the result of classifying a submitted graph.
type Format string

const (
	FormatInteractive Format = "interactive"
	FormatLinear      Format = "linear"
	FormatInvalid     Format = "invalid"
)

// Classify labels a decoded JSON value. A mapping whose "nodes" value is a
// list is interactive; a non-empty mapping keyed only by decimal digit
// strings is linear; anything else is invalid.
func Classify(raw any) Format {
	doc, ok := raw.(map[string]any)
	if !ok {
		return FormatInvalid
	}

	if nodes, ok := doc["nodes"]; ok {
		if _, isList := nodes.([]any); isList {
			return FormatInteractive
		}
	}

	if len(doc) == 0 {
		return FormatInvalid
	}

	for key := range doc {
		if !isDigits(key) {
			return FormatInvalid
		}
	}

	return FormatLinear
}

// ClassifyJSON classifies raw JSON bytes. Undecodable input is invalid.
func ClassifyJSON(data []byte) Format {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return FormatInvalid
	}

	return Classify(raw)
}

// Graph is a classified graph. Exactly one of Interactive or Linear is set,
// matching Format.
type Graph struct {
	Format      Format
	Interactive *InteractiveGraph
	Linear      LinearGraph
}

// Decode classifies data and parses it into the matching typed shape.
func Decode(data []byte) (*Graph, error) {
	switch format := ClassifyJSON(data); format {
	case FormatInteractive:
		interactive, err := ParseInteractive(data)
		if err != nil {
			return nil, err
		}

		return &Graph{Format: format, Interactive: interactive}, nil
	case FormatLinear:
		linear, err := ParseLinear(data)
		if err != nil {
			return nil, err
		}

		return &Graph{Format: format, Linear: linear}, nil
	default:
		return nil, fmt.Errorf("%w: expected an interactive graph or a linear graph", ErrFormatInvalid)
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}

	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}

	return true
}
