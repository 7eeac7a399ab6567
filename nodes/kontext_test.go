package nodes

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/fluxnodes/types"
)

func TestKontextTextToImage_Payload(t *testing.T) {
	node := &KontextTextToImage{
		Prompt:          "a watercolor harbor",
		AspectRatio:     "21:9",
		SafetyTolerance: 4,
	}

	require.NoError(t, node.Validate(nil))
	assert.Equal(t, "flux-kontext-pro", node.Endpoint())

	payload, err := node.Payload()
	require.NoError(t, err)
	assert.Equal(t, "21:9", payload["aspect_ratio"])
	assert.Equal(t, 4, payload["safety_tolerance"])
	assert.NotContains(t, payload, "width")
}

func TestKontextImageEdit_Payload(t *testing.T) {
	blob := strings.Repeat("QUJDRA==", 200)
	node := &KontextImageEdit{
		Prompt:     "make the car red",
		InputImage: blob,
	}

	require.NoError(t, node.Validate(nil))
	payload, err := node.Payload()
	require.NoError(t, err)
	assert.Equal(t, blob, payload["input_image"])
	assert.NotContains(t, payload, "aspect_ratio", "empty ratio keeps the input ratio")
}

func TestKontextImageEdit_RequiresImage(t *testing.T) {
	node := &KontextImageEdit{Prompt: "make the car red"}
	err := node.Validate(nil)
	require.Error(t, err)
	assert.Equal(t, types.ErrValidation, types.GetErrorCode(err))
	assert.Contains(t, err.Error(), "input image")

	// A connected input image passes.
	assert.NoError(t, node.Validate(Connected{"input_image": true}))
}

func TestKontextImageEdit_LongRunningProfile(t *testing.T) {
	p := (&KontextImageEdit{}).Profile()
	assert.Equal(t, 900, p.MaxAttempts)
}

func TestFluxFill_Payload(t *testing.T) {
	node := &FluxFill{
		Image: strings.Repeat("QQ==", 300),
		Mask:  strings.Repeat("UQ==", 300),
	}

	require.NoError(t, node.Validate(nil))
	payload, err := node.Payload()
	require.NoError(t, err)

	assert.Equal(t, 50, payload["steps"])
	assert.Equal(t, 60, payload["guidance"])
	assert.NotContains(t, payload, "prompt", "prompt is optional for fills")
	assert.Equal(t, "flux-pro-1.0-fill", node.Endpoint())
	assert.Equal(t, 900, node.Profile().MaxAttempts)
}

func TestFluxFill_RequiresMask(t *testing.T) {
	node := &FluxFill{Image: strings.Repeat("QQ==", 300)}
	err := node.Validate(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mask")
}
