package graph

import "errors"

var (
	// ErrFormatInvalid indicates the document is neither an interactive nor a linear graph.
	ErrFormatInvalid = errors.New("invalid workflow format")
)

// IsFormatInvalid checks if an error indicates an unclassifiable graph.
func IsFormatInvalid(err error) bool {
	return errors.Is(err, ErrFormatInvalid)
}
