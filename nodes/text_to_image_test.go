package nodes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/fluxnodes/types"
)

func TestTextToImage_ClassicPayload(t *testing.T) {
	seed := int64(42)
	node := &TextToImage{
		Model:       "flux-pro-1.1",
		Prompt:      "  a lighthouse at dusk  ",
		AspectRatio: "16:9",
		MaxSize:     1024,
		Raw:         true,
		Seed:        &seed,
	}

	require.NoError(t, node.Validate(nil))
	payload, err := node.Payload()
	require.NoError(t, err)

	assert.Equal(t, "a lighthouse at dusk", payload["prompt"], "prompt is trimmed")
	assert.Equal(t, 1024, payload["width"])
	assert.Equal(t, 576, payload["height"])
	assert.Equal(t, true, payload["raw"])
	assert.Equal(t, int64(42), payload["seed"])
	assert.Equal(t, "jpeg", payload["output_format"])
	assert.NotContains(t, payload, "aspect_ratio")
	assert.NotContains(t, payload, "prompt_upsampling")
}

func TestTextToImage_KontextPayload(t *testing.T) {
	node := &TextToImage{
		Model:            "flux-kontext-max",
		Prompt:           "a red fox",
		AspectRatio:      "3:4",
		PromptUpsampling: true,
		OutputFormat:     "png",
	}

	payload, err := node.Payload()
	require.NoError(t, err)

	assert.Equal(t, "3:4", payload["aspect_ratio"])
	assert.Equal(t, true, payload["prompt_upsampling"])
	assert.Equal(t, "png", payload["output_format"])
	assert.NotContains(t, payload, "width")
	assert.NotContains(t, payload, "height")
	assert.NotContains(t, payload, "raw")
	assert.NotContains(t, payload, "seed")
}

func TestTextToImage_Defaults(t *testing.T) {
	node := &TextToImage{Prompt: "x"}
	assert.Equal(t, "flux-pro-1.1", node.Endpoint())

	payload, err := node.Payload()
	require.NoError(t, err)
	assert.Equal(t, 1024, payload["width"])
	assert.Equal(t, 1024, payload["height"])
}

func TestTextToImage_Validate(t *testing.T) {
	node := &TextToImage{}
	err := node.Validate(nil)
	require.Error(t, err)
	assert.Equal(t, types.ErrValidation, types.GetErrorCode(err))
	assert.Contains(t, err.Error(), "prompt")

	// A connected prompt passes validation even when the value is empty.
	assert.NoError(t, node.Validate(Connected{"prompt": true}))

	err = (&TextToImage{Prompt: "x", SafetyTolerance: 9}).Validate(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "safety_tolerance")

	err = (&TextToImage{Prompt: "x", OutputFormat: "webp"}).Validate(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output_format")

	err = (&TextToImage{Prompt: "x", Model: "dall-e-3"}).Validate(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported model")
}

func TestTextToImage_Profile(t *testing.T) {
	p := (&TextToImage{Prompt: "x"}).Profile()
	assert.Equal(t, 120, p.MaxAttempts)
}
