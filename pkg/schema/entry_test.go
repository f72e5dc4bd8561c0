package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const objectInfoFixture = `{
	"KSampler": {
		"display_name": "KSampler",
		"input": {
			"required": {
				"model": ["MODEL"],
				"seed": ["INT", {"default": 0, "min": 0, "control_after_generate": true}],
				"steps": ["INT", {"default": 20}],
				"cfg": ["FLOAT", {"default": 8.0}],
				"sampler_name": [["euler", "dpmpp_2m"], {}],
				"scheduler": [["normal", "karras"]],
				"positive": ["CONDITIONING"],
				"negative": ["CONDITIONING"],
				"latent_image": ["LATENT"],
				"denoise": ["FLOAT", {"default": 1.0}]
			}
		},
		"input_order": {
			"required": ["model", "seed", "steps", "cfg", "sampler_name", "scheduler", "positive", "negative", "latent_image", "denoise"]
		}
	},
	"LegacyNode": {
		"display_name": "Legacy",
		"input": {
			"required": {
				"zeta": ["STRING", {"default": "z"}],
				"alpha": ["INT"]
			}
		}
	},
	"NoInputs": {
		"display_name": "No Inputs",
		"input": {}
	}
}`

func TestParseObjectInfo(t *testing.T) {
	t.Parallel()

	snapshot, err := ParseObjectInfo([]byte(objectInfoFixture))
	require.NoError(t, err)
	require.Len(t, snapshot, 3)

	sampler, ok := snapshot.Lookup("KSampler")
	require.True(t, ok)
	assert.Equal(t, "KSampler", sampler.DisplayName)
	assert.Equal(t, []string{"model", "seed", "steps", "cfg", "sampler_name", "scheduler", "positive", "negative", "latent_image", "denoise"}, sampler.RequiredOrder)

	seed := sampler.Required["seed"]
	assert.True(t, seed.RegenerateControl)
	assert.True(t, seed.HasDefault)
	assert.InDelta(t, 0.0, seed.Default, 0)

	steps := sampler.Required["steps"]
	assert.False(t, steps.RegenerateControl)
	assert.InDelta(t, 20.0, steps.Default, 0)

	assert.False(t, sampler.Required["model"].HasDefault)
	assert.False(t, sampler.Required["sampler_name"].HasDefault)
	assert.False(t, sampler.Required["scheduler"].HasDefault)

	legacy := snapshot["LegacyNode"]
	assert.Equal(t, []string{"zeta", "alpha"}, legacy.RequiredOrder)
	assert.Equal(t, "z", legacy.Required["zeta"].Default)

	empty := snapshot["NoInputs"]
	assert.Empty(t, empty.RequiredOrder)
	assert.Empty(t, empty.Required)

	_, ok = snapshot.Lookup("Missing")
	assert.False(t, ok)
}

func TestParseObjectInfo_Invalid(t *testing.T) {
	t.Parallel()

	_, err := ParseObjectInfo([]byte(`[]`))
	require.Error(t, err)
}

func TestParseObjectInfo_UnusableEntriesDegrade(t *testing.T) {
	t.Parallel()

	data := []byte(`{
		"KSampler": {
			"display_name": "KSampler",
			"input": {"required": {"seed": ["INT", {"default": 0, "control_after_generate": true}], "steps": ["INT", {"default": 20}]}},
			"input_order": {"required": ["seed", "steps"]}
		},
		"WeirdCustomNode": {"display_name": "Weird", "input": {"required": {"mode": "STRING", "size": ["INT", {"default": 4}]}}},
		"ListRequired": {"display_name": "List", "input": {"required": []}, "input_order": {"required": ["a"]}},
		"NotAnObject": "broken"
	}`)

	snapshot, degraded, err := parseObjectInfo(data)
	require.NoError(t, err)
	require.Len(t, snapshot, 4)
	assert.Len(t, degraded, 2)
	assert.Contains(t, degraded, "ListRequired")
	assert.Contains(t, degraded, "NotAnObject")

	sampler := snapshot["KSampler"]
	assert.Equal(t, []string{"seed", "steps"}, sampler.RequiredOrder)
	assert.True(t, sampler.Required["seed"].RegenerateControl)

	weird := snapshot["WeirdCustomNode"]
	assert.Equal(t, []string{"mode", "size"}, weird.RequiredOrder)
	assert.Equal(t, FieldSpec{}, weird.Required["mode"])
	assert.Equal(t, FieldSpec{Default: float64(4), HasDefault: true}, weird.Required["size"])

	list := snapshot["ListRequired"]
	assert.Equal(t, "List", list.DisplayName)
	assert.Empty(t, list.RequiredOrder)
	assert.Empty(t, list.Required)

	assert.Empty(t, snapshot["NotAnObject"].RequiredOrder)

	public, err := ParseObjectInfo(data)
	require.NoError(t, err)
	assert.Len(t, public, 4)
}
