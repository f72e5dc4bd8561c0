package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dukex/oneapi/pkg/graph"
)

// DocumentConverter turns raw graph JSON of either format into a linear graph.
type DocumentConverter interface {
	ConvertDocument(ctx context.Context, data []byte) (graph.LinearGraph, error)
}

type Conversion struct {
	converter DocumentConverter
}

func NewConversion(converter DocumentConverter) *Conversion {
	return &Conversion{converter: converter}
}

// Convert returns the linear form of workflow. Linear input is returned unchanged.
func (c *Conversion) Convert(ctx context.Context, workflow json.RawMessage) (graph.LinearGraph, error) {
	if isMissing(workflow) {
		return nil, NewValidationError("convert", "validation_error", "Workflow is required", ErrRequestMalformed)
	}

	linear, err := c.converter.ConvertDocument(ctx, workflow)
	if err != nil {
		if graph.IsFormatInvalid(err) {
			return nil, NewValidationError("convert", "invalid_format", "Invalid workflow format", err)
		}

		return nil, fmt.Errorf("convert: %w", err)
	}

	return linear, nil
}
