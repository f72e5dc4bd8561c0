package artifact

import (
	"bytes"
	"encoding/json"
	"slices"

	"github.com/dukex/oneapi/pkg/graph"
)

// VariableResolver names the output variable of a node.
type VariableResolver interface {
	Variable(nodeID string) string
}

// Result is the artifact section of an execution response. Kinds without
// artifacts are nil and omitted from JSON.
type Result struct {
	Images      []string            `json:"images,omitempty"`
	ImagesByVar map[string][]string `json:"images_by_var,omitempty"`
	Videos      []string            `json:"videos,omitempty"`
	VideosByVar map[string][]string `json:"videos_by_var,omitempty"`
	Audios      []string            `json:"audios,omitempty"`
	AudiosByVar map[string][]string `json:"audios_by_var,omitempty"`
	Texts       []string            `json:"texts,omitempty"`
	TextsByVar  map[string][]string `json:"texts_by_var,omitempty"`
}

// Empty reports whether no artifacts were collected.
func (r Result) Empty() bool {
	return len(r.Images) == 0 && len(r.Videos) == 0 && len(r.Audios) == 0 && len(r.Texts) == 0
}

type nodeArtifacts struct {
	images []string
	videos []string
	audios []string
	texts  []string
}

// Aggregate classifies every node output record and groups the resulting
// URLs and texts by output variable. Nodes are visited in ascending id order;
// nodes sharing a variable have their artifacts concatenated.
func Aggregate(outputs map[string]json.RawMessage, variables VariableResolver, baseURL string) Result {
	ids := make([]string, 0, len(outputs))
	for id := range outputs {
		ids = append(ids, id)
	}

	slices.SortFunc(ids, graph.CompareIDs)

	var result Result

	for _, id := range ids {
		collected := collect(outputs[id], baseURL)
		variable := variables.Variable(id)

		result.Images, result.ImagesByVar = group(result.Images, result.ImagesByVar, variable, collected.images)
		result.Videos, result.VideosByVar = group(result.Videos, result.VideosByVar, variable, collected.videos)
		result.Audios, result.AudiosByVar = group(result.Audios, result.AudiosByVar, variable, collected.audios)
		result.Texts, result.TextsByVar = group(result.Texts, result.TextsByVar, variable, collected.texts)
	}

	return result
}

func group(flat []string, byVar map[string][]string, variable string, items []string) ([]string, map[string][]string) {
	if len(items) == 0 {
		return flat, byVar
	}

	if byVar == nil {
		byVar = map[string][]string{}
	}

	byVar[variable] = append(byVar[variable], items...)

	return append(flat, items...), byVar
}

func collect(raw json.RawMessage, baseURL string) nodeArtifacts {
	var record map[string]json.RawMessage
	if err := json.Unmarshal(raw, &record); err != nil {
		return nodeArtifacts{}
	}

	var collected nodeArtifacts

	for _, key := range MediaKeys {
		var entries []json.RawMessage
		if err := json.Unmarshal(record[key], &entries); err != nil {
			continue
		}

		for _, entry := range entries {
			artifact, ok := Normalize(entry)
			if !ok {
				continue
			}

			switch artifact.Kind {
			case KindImage:
				collected.images = append(collected.images, ViewURL(baseURL, artifact))
			case KindVideo:
				collected.videos = append(collected.videos, ViewURL(baseURL, artifact))
			case KindAudio:
				collected.audios = append(collected.audios, ViewURL(baseURL, artifact))
			case KindText, KindUnknown:
			}
		}
	}

	if text, ok := record["text"]; ok {
		collected.texts = texts(text)
	}

	return collected
}

// texts accepts a string, a list, or any other scalar. Non-string values
// are reported as their JSON text; null values are dropped.
func texts(raw json.RawMessage) []string {
	if isNull(raw) {
		return nil
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return []string{single}
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		out := make([]string, 0, len(list))
		for _, item := range list {
			if isNull(item) {
				continue
			}

			out = append(out, textOf(item))
		}

		return out
	}

	return []string{textOf(raw)}
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)

	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func textOf(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return string(raw)
	}

	return compact.String()
}
