// Package marker parses the directives embedded in node titles.
//
// A title is a comma separated list of free-text segments. Segments starting
// with '$' are directives:
//
//	$param.field   bind caller parameter "param" to input "field"
//	$output.name   surface this node's artifacts under "name"
//
// "output" is reserved. A bare "$output" or "$output." is fatal for the
// request; any other malformed directive is reported as a warning and skipped.
package marker

import (
	"errors"
	"fmt"
	"strings"
)

// OutputKeyword is the reserved directive name for output markers.
const OutputKeyword = "output"

// ErrMarkerMalformed indicates an output directive that names no variable.
var ErrMarkerMalformed = errors.New("malformed output marker")

// IsMarkerMalformed checks if an error indicates a fatal marker error.
func IsMarkerMalformed(err error) bool {
	return errors.Is(err, ErrMarkerMalformed)
}

// Binding routes the caller parameter Param into the node input Field.
type Binding struct {
	Param string
	Field string
}

// Output names the result variable of a node.
type Output struct {
	Variable string
}

// Warning describes a directive that was skipped.
type Warning struct {
	Segment string
	Reason  string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Segment, w.Reason)
}

// Directives is everything found in one title, in title order.
type Directives struct {
	Bindings []Binding
	Outputs  []Output
	Warnings []Warning
}

// Output returns the variable of the last output marker, if any.
func (d Directives) Output() (string, bool) {
	if len(d.Outputs) == 0 {
		return "", false
	}

	return d.Outputs[len(d.Outputs)-1].Variable, true
}

// Segments splits a title on commas and returns the trimmed segments that
// start with '$'.
func Segments(title string) []string {
	var segments []string

	for part := range strings.SplitSeq(title, ",") {
		part = strings.TrimSpace(part)
		if strings.HasPrefix(part, "$") {
			segments = append(segments, part)
		}
	}

	return segments
}

// Parse extracts the directives of a title. The returned error wraps
// ErrMarkerMalformed; warnings never produce an error.
func Parse(title string) (Directives, error) {
	var directives Directives

	for _, segment := range Segments(title) {
		tok := tokenize(segment)

		if tok.name == OutputKeyword {
			if !tok.dotted || tok.field == "" {
				return Directives{}, fmt.Errorf("%w: '%s', use $output.name", ErrMarkerMalformed, segment)
			}

			directives.Outputs = append(directives.Outputs, Output{Variable: tok.field})

			continue
		}

		switch {
		case !tok.dotted:
			directives.Warnings = append(directives.Warnings, Warning{Segment: segment, Reason: "expected $param.field"})
		case tok.name == "":
			directives.Warnings = append(directives.Warnings, Warning{Segment: segment, Reason: "missing parameter name"})
		case tok.field == "":
			directives.Warnings = append(directives.Warnings, Warning{Segment: segment, Reason: "missing field name"})
		default:
			directives.Bindings = append(directives.Bindings, Binding{Param: tok.name, Field: tok.field})
		}
	}

	return directives, nil
}

type token struct {
	name   string
	dotted bool
	field  string
}

// tokenize splits "$name.field" at the first dot. Everything after the dot
// belongs to the field, so field names may themselves contain dots.
func tokenize(segment string) token {
	body := strings.TrimPrefix(segment, "$")

	name, field, dotted := strings.Cut(body, ".")

	return token{name: name, dotted: dotted, field: field}
}
