package comfy

import (
	"encoding/json"
	"fmt"
)

// StatusStrError is the status_str the engine reports for a failed execution.
const StatusStrError = "error"

// MessageTypeExecutionError is the history message type carrying node failures.
const MessageTypeExecutionError = "execution_error"

// HistoryEntry is the engine's record of one prompt. Outputs is nil until the
// engine has written an outputs section.
type HistoryEntry struct {
	Outputs map[string]json.RawMessage `json:"outputs"`
	Status  *ExecutionStatus           `json:"status,omitempty"`
}

// ExecutionStatus is the status section of a history entry.
type ExecutionStatus struct {
	StatusStr string    `json:"status_str"`
	Completed bool      `json:"completed"`
	Messages  []Message `json:"messages"`
}

// Failed reports whether the engine marked the execution as failed.
func (s *ExecutionStatus) Failed() bool {
	return s != nil && s.StatusStr == StatusStrError
}

// Message is one (type, body) pair of the status message log.
type Message struct {
	Type string
	Body map[string]any
}

func (m *Message) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}

	if len(pair) != 2 {
		return fmt.Errorf("status message must be a [type, body] pair, got %d elements", len(pair))
	}

	if err := json.Unmarshal(pair[0], &m.Type); err != nil {
		return fmt.Errorf("status message type: %w", err)
	}

	// Bodies of message types we never read may be any shape.
	var body map[string]any
	if err := json.Unmarshal(pair[1], &body); err == nil {
		m.Body = body
	}

	return nil
}

// ExceptionMessage returns the body's exception_message, if it is a string.
func (m Message) ExceptionMessage() string {
	text, _ := m.Body["exception_message"].(string)

	return text
}
