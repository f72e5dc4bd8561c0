package artifact

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type variables map[string]string

func (v variables) Variable(nodeID string) string {
	if name, ok := v[nodeID]; ok {
		return name
	}

	return nodeID
}

func decodeOutputs(t *testing.T, doc string) map[string]json.RawMessage {
	t.Helper()

	var outputs map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(doc), &outputs))

	return outputs
}

const base = "http://127.0.0.1:8188"

func TestAggregate_SingleImage(t *testing.T) {
	t.Parallel()

	outputs := decodeOutputs(t, `{"2": {"images": [{"filename": "ComfyUI_00001_.png", "subfolder": "", "type": "output"}]}}`)

	result := Aggregate(outputs, variables{"2": "final"}, base)

	url := base + "/view?filename=ComfyUI_00001_.png&type=output"
	assert.Equal(t, []string{url}, result.Images)
	assert.Equal(t, map[string][]string{"final": {url}}, result.ImagesByVar)

	data, err := json.Marshal(result)
	require.NoError(t, err)
	assert.JSONEq(t, `{"images": ["`+url+`"], "images_by_var": {"final": ["`+url+`"]}}`, string(data))
}

func TestAggregate_MixedKinds(t *testing.T) {
	t.Parallel()

	outputs := decodeOutputs(t, `{
		"10": {"gifs": [{"filename": "clip.mp4", "subfolder": "vid", "type": "output"}, {"filename": "preview.gif", "type": "temp"}]},
		"9": {"images": [["a.png", "output"], ["b.latent", "output"], "junk"], "audio": [{"filename": "voice.flac"}]},
		"4": {"text": "hello"},
		"5": {"text": ["one", 2, {"k": "v"}]},
		"6": {"text": 3.5},
		"7": {"text": null},
		"8": {"ui": {"unrelated": true}}
	}`)

	result := Aggregate(outputs, variables{"10": "clip", "4": "caption"}, base)

	assert.Equal(t, []string{base + "/view?filename=a.png&type=output"}, result.Images)
	assert.Equal(t, map[string][]string{"9": {base + "/view?filename=a.png&type=output"}}, result.ImagesByVar)

	assert.Equal(t, []string{
		base + "/view?filename=clip.mp4&subfolder=vid&type=output",
		base + "/view?filename=preview.gif&type=temp",
	}, result.Videos)
	assert.Len(t, result.VideosByVar["clip"], 2)

	assert.Equal(t, []string{base + "/view?filename=voice.flac&type=output"}, result.Audios)
	assert.Contains(t, result.AudiosByVar, "9")

	assert.Equal(t, []string{"hello", "one", "2", `{"k":"v"}`, "3.5"}, result.Texts)
	assert.Equal(t, map[string][]string{
		"caption": {"hello"},
		"5":       {"one", "2", `{"k":"v"}`},
		"6":       {"3.5"},
	}, result.TextsByVar)
}

func TestAggregate_NullTextsAreOmitted(t *testing.T) {
	t.Parallel()

	outputs := decodeOutputs(t, `{
		"1": {"text": null},
		"2": {"text": [null, null]},
		"3": {"text": ["kept", null]}
	}`)

	result := Aggregate(outputs, variables{}, base)

	assert.Equal(t, []string{"kept"}, result.Texts)
	assert.Equal(t, map[string][]string{"3": {"kept"}}, result.TextsByVar)

	only := Aggregate(decodeOutputs(t, `{"7": {"text": null}}`), variables{}, base)
	assert.True(t, only.Empty())

	data, err := json.Marshal(only)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "texts")
}

func TestAggregate_SharedVariableConcatenates(t *testing.T) {
	t.Parallel()

	outputs := decodeOutputs(t, `{
		"12": {"images": [{"filename": "b.png", "type": "output"}]},
		"3": {"images": [{"filename": "a.png", "type": "output"}]}
	}`)

	result := Aggregate(outputs, variables{"3": "out", "12": "out"}, base)

	assert.Equal(t, map[string][]string{"out": {
		base + "/view?filename=a.png&type=output",
		base + "/view?filename=b.png&type=output",
	}}, result.ImagesByVar)
	assert.Equal(t, result.ImagesByVar["out"], result.Images)
}

func TestAggregate_OmitsEmptyKinds(t *testing.T) {
	t.Parallel()

	outputs := decodeOutputs(t, `{"2": {"images": [{"filename": "a.png", "type": "output"}]}, "3": {"gifs": []}}`)

	result := Aggregate(outputs, variables{}, base)

	data, err := json.Marshal(result)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))

	assert.Contains(t, fields, "images")
	assert.NotContains(t, fields, "videos")
	assert.NotContains(t, fields, "videos_by_var")
	assert.NotContains(t, fields, "audios")
	assert.NotContains(t, fields, "texts")
}

func TestAggregate_NoOutputs(t *testing.T) {
	t.Parallel()

	result := Aggregate(map[string]json.RawMessage{}, variables{}, base)
	assert.True(t, result.Empty())

	data, err := json.Marshal(result)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(data))
}
