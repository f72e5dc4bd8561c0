// Package artifact classifies engine output records and regroups them under
// the caller's output variables.
package artifact

import (
	"bytes"
	"encoding/json"
	"net/url"
	"path"
	"strings"
)

// Kind is the media class of an artifact.
type Kind string

const (
	KindImage   Kind = "image"
	KindVideo   Kind = "video"
	KindAudio   Kind = "audio"
	KindText    Kind = "text"
	KindUnknown Kind = "unknown"
)

// DefaultStorageClass is assumed for mapping records without a type.
const DefaultStorageClass = "output"

// MediaKeys are the node output fields carrying file artifacts.
var MediaKeys = []string{"images", "gifs", "audio"}

var kindsByExtension = map[string]Kind{
	".png": KindImage, ".jpg": KindImage, ".jpeg": KindImage, ".webp": KindImage, ".bmp": KindImage, ".tiff": KindImage,
	".mp4": KindVideo, ".mov": KindVideo, ".avi": KindVideo, ".webm": KindVideo, ".gif": KindVideo,
	".mp3": KindAudio, ".wav": KindAudio, ".flac": KindAudio, ".ogg": KindAudio, ".aac": KindAudio,
	".m4a": KindAudio, ".wma": KindAudio, ".opus": KindAudio,
}

// Artifact is one file produced by the engine.
type Artifact struct {
	Filename     string
	Subfolder    string
	StorageClass string
	Kind         Kind
}

// Classify returns the kind of a file by its lowercase extension.
func Classify(filename string) Kind {
	if kind, ok := kindsByExtension[strings.ToLower(path.Ext(filename))]; ok {
		return kind
	}

	return KindUnknown
}

type mappingRecord struct {
	Filename  string  `json:"filename"`
	Subfolder string  `json:"subfolder"`
	Type      *string `json:"type"`
}

// Normalize decodes a file record in either the positional form
// [filename, storageClass] or the mapping form {filename, subfolder, type}.
func Normalize(raw json.RawMessage) (Artifact, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return Artifact{}, false
	}

	var artifact Artifact

	switch trimmed[0] {
	case '[':
		var pair []string
		if err := json.Unmarshal(trimmed, &pair); err != nil || len(pair) != 2 {
			return Artifact{}, false
		}

		artifact = Artifact{Filename: pair[0], StorageClass: pair[1]}
	case '{':
		var record mappingRecord
		if err := json.Unmarshal(trimmed, &record); err != nil {
			return Artifact{}, false
		}

		artifact = Artifact{Filename: record.Filename, Subfolder: record.Subfolder, StorageClass: DefaultStorageClass}
		if record.Type != nil {
			artifact.StorageClass = *record.Type
		}
	default:
		return Artifact{}, false
	}

	if artifact.Filename == "" {
		return Artifact{}, false
	}

	artifact.Kind = Classify(artifact.Filename)

	return artifact, true
}

// ViewURL builds the engine URL serving an artifact. Empty subfolder and
// storage class are omitted.
func ViewURL(baseURL string, artifact Artifact) string {
	var b strings.Builder

	b.WriteString(strings.TrimRight(baseURL, "/"))
	b.WriteString("/view?filename=")
	b.WriteString(url.QueryEscape(artifact.Filename))

	if artifact.Subfolder != "" {
		b.WriteString("&subfolder=")
		b.WriteString(url.QueryEscape(artifact.Subfolder))
	}

	if artifact.StorageClass != "" {
		b.WriteString("&type=")
		b.WriteString(url.QueryEscape(artifact.StorageClass))
	}

	return b.String()
}
