package graph

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const linearSchemaJSON = `{
	"type": "object",
	"minProperties": 1,
	"patternProperties": {
		"^[0-9]+$": {
			"type": "object",
			"required": ["class_type"],
			"properties": {
				"class_type": {"type": "string", "minLength": 1},
				"inputs": {"type": ["object", "null"]},
				"_meta": {
					"type": "object",
					"properties": {
						"title": {"type": "string"}
					}
				}
			}
		}
	},
	"additionalProperties": false
}`

var linearSchema = mustSchema(linearSchemaJSON)

func mustSchema(source string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(source))
	if err != nil {
		panic(fmt.Sprintf("graph: invalid embedded schema: %v", err))
	}

	return schema
}

// ValidateLinear checks that every node of a linear document is an object
// with a class_type and well-typed inputs and _meta members.
func ValidateLinear(data []byte) error {
	result, err := linearSchema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFormatInvalid, err)
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}

		return fmt.Errorf("%w: %s", ErrFormatInvalid, strings.Join(details, "; "))
	}

	return nil
}
