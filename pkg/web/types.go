package web

import "encoding/json"

// ExecuteRequest is the body of POST /oneapi/v1/execute.
type ExecuteRequest struct {
	// Workflow is a graph object, a saved graph name or a http(s) URL.
	Workflow        json.RawMessage `json:"workflow"          validate:"required"`
	Params          map[string]any  `json:"params"`
	WaitForResult   *bool           `json:"wait_for_result"`
	Timeout         *float64        `json:"timeout"           validate:"omitempty,gte=0"`
	PromptExtParams map[string]any  `json:"prompt_ext_params"`
}

// SaveWorkflowRequest is the body of POST /oneapi/v1/save-api-workflow.
type SaveWorkflowRequest struct {
	Name      string          `json:"name"      validate:"required"`
	Workflow  json.RawMessage `json:"workflow"  validate:"required"`
	Overwrite bool            `json:"overwrite"`
}

type SaveWorkflowResponse struct {
	Message  string `json:"message"`
	Filename string `json:"filename"`
}

// ConvertRequest is the body of POST /oneapi/v1/convert.
type ConvertRequest struct {
	Workflow json.RawMessage `json:"workflow" validate:"required"`
}

type WorkflowListResponse struct {
	Workflows []string `json:"workflows"`
}
