package graph

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLinear_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		doc     string
		wantErr bool
	}{
		{name: "minimal", doc: `{"1": {"class_type": "SaveImage"}}`},
		{name: "null inputs", doc: `{"1": {"class_type": "SaveImage", "inputs": null}}`},
		{name: "missing class_type", doc: `{"1": {"inputs": {}}}`, wantErr: true},
		{name: "empty class_type", doc: `{"1": {"class_type": ""}}`, wantErr: true},
		{name: "inputs not object", doc: `{"1": {"class_type": "SaveImage", "inputs": []}}`, wantErr: true},
		{name: "title not string", doc: `{"1": {"class_type": "SaveImage", "_meta": {"title": 4}}}`, wantErr: true},
		{name: "non digit key", doc: `{"a": {"class_type": "SaveImage"}}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := ParseLinear([]byte(tt.doc))
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsFormatInvalid(err))

				return
			}

			require.NoError(t, err)
		})
	}
}

func TestLinearGraph_IDs(t *testing.T) {
	t.Parallel()

	g := LinearGraph{"10": {}, "2": {}, "1": {}, "33": {}}
	assert.Equal(t, []string{"1", "2", "10", "33"}, g.IDs())
}

func TestLinearGraph_Clone(t *testing.T) {
	t.Parallel()

	original := LinearGraph{
		"1": {
			ClassType: "KSampler",
			Inputs: map[string]any{
				"model": []any{"4", float64(0)},
				"opts":  map[string]any{"a": []any{"x"}},
			},
			Meta: Meta{Title: "Sampler"},
		},
		"2": {ClassType: "SaveImage"},
	}

	copied := original.Clone()
	require.Equal(t, original, copied)

	copied["1"].Inputs["model"].([]any)[0] = "9"
	copied["1"].Inputs["opts"].(map[string]any)["a"] = "changed"
	copied["1"].Meta.Title = "other"
	copied["2"].Inputs = map[string]any{"images": []any{"1", 0}}

	assert.Equal(t, "4", original["1"].Inputs["model"].([]any)[0])
	assert.Equal(t, []any{"x"}, original["1"].Inputs["opts"].(map[string]any)["a"])
	assert.Equal(t, "Sampler", original["1"].Meta.Title)
	assert.Nil(t, original["2"].Inputs)
}

func TestLinearNode_MarshalJSON(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(LinearGraph{"1": {ClassType: "SaveImage"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"1": {"class_type": "SaveImage", "inputs": {}, "_meta": {"title": ""}}}`, string(data))
}

func TestLinearNode_MarshalJSONKeepsHTML(t *testing.T) {
	t.Parallel()

	node := LinearNode{ClassType: "CLIPTextEncode", Inputs: map[string]any{"text": "a <red> fox & friends"}}

	var buf bytes.Buffer

	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	require.NoError(t, encoder.Encode(LinearGraph{"1": &node}))
	assert.Contains(t, buf.String(), `"a <red> fox & friends"`)

	escaped, err := json.Marshal(LinearGraph{"1": &node})
	require.NoError(t, err)
	assert.Contains(t, string(escaped), `"a \u003cred\u003e fox \u0026 friends"`)
}

func TestCompareIDs(t *testing.T) {
	t.Parallel()

	assert.Negative(t, CompareIDs("2", "10"))
	assert.Positive(t, CompareIDs("10", "2"))
	assert.Zero(t, CompareIDs("7", "7"))
	assert.Negative(t, CompareIDs("a", "b"))
}
