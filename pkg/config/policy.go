// Package config loads the deployment policy file.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dukex/oneapi/pkg/comfy"
)

// DefaultMediaUploadTypes are the loader nodes whose bound URLs are re-hosted.
var DefaultMediaUploadTypes = []string{"LoadImage", "VHS_LoadAudioUpload", "VHS_LoadVideo"}

// Policy is the per-deployment behavior of the execution pipeline.
type Policy struct {
	// MediaUploadTypes lists node types whose remote media values are
	// uploaded to the engine before binding.
	MediaUploadTypes []string `yaml:"media_upload_types"`
	// OutputNodeTypes restricts which nodes report artifacts. Empty means
	// every node is eligible.
	OutputNodeTypes []string `yaml:"output_node_types"`
	// AllowInteractive converts editor graphs on execute instead of
	// rejecting them.
	AllowInteractive *bool `yaml:"allow_interactive"`
	// HistoryMode selects per-prompt or full history polling.
	HistoryMode comfy.HistoryMode `yaml:"history_mode"`
}

var ErrInvalidHistoryMode = errors.New("invalid history mode")

// DefaultPolicy returns the policy used when no file is configured.
func DefaultPolicy() Policy {
	allow := true

	return Policy{
		MediaUploadTypes: append([]string(nil), DefaultMediaUploadTypes...),
		AllowInteractive: &allow,
		HistoryMode:      comfy.HistoryByID,
	}
}

// InteractiveAllowed reports whether editor graphs are converted on execute.
func (p Policy) InteractiveAllowed() bool {
	return p.AllowInteractive == nil || *p.AllowInteractive
}

// LoadPolicy reads a YAML policy file. Keys missing from the file keep
// their defaults.
func LoadPolicy(filepath string) (Policy, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return Policy{}, fmt.Errorf("failed to read policy file %s: %w", filepath, err)
	}

	return ParsePolicy(data)
}

// ParsePolicy decodes and validates policy YAML.
func ParsePolicy(data []byte) (Policy, error) {
	var file Policy
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Policy{}, fmt.Errorf("failed to parse policy YAML: %w", err)
	}

	policy := DefaultPolicy()

	if file.MediaUploadTypes != nil {
		policy.MediaUploadTypes = file.MediaUploadTypes
	}

	if file.OutputNodeTypes != nil {
		policy.OutputNodeTypes = file.OutputNodeTypes
	}

	if file.AllowInteractive != nil {
		policy.AllowInteractive = file.AllowInteractive
	}

	if file.HistoryMode != "" {
		policy.HistoryMode = file.HistoryMode
	}

	if err := policy.Validate(); err != nil {
		return Policy{}, err
	}

	return policy, nil
}

// LoadPolicyOrDefault loads filepath, or returns DefaultPolicy when filepath is empty.
func LoadPolicyOrDefault(filepath string) (Policy, error) {
	if filepath == "" {
		return DefaultPolicy(), nil
	}

	return LoadPolicy(filepath)
}

func (p Policy) Validate() error {
	switch p.HistoryMode {
	case comfy.HistoryByID, comfy.HistoryFull:
		return nil
	default:
		return fmt.Errorf("%w: '%s' (expected %s or %s)", ErrInvalidHistoryMode, p.HistoryMode, comfy.HistoryByID, comfy.HistoryFull)
	}
}
