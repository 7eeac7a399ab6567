package labs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/fluxnodes/types"
)

func TestResolve_SamplePreferred(t *testing.T) {
	resp := &StatusResponse{
		Status: StatusReady,
		Result: map[string]any{
			"sample":    "https://x/img.png",
			"url":       "https://x/other.png",
			"image_url": "https://x/third.png",
			"seed":      float64(42),
		},
	}

	result, err := Resolve(resp)
	require.NoError(t, err)
	assert.Equal(t, "https://x/img.png", result.AssetURL)
	require.NotNil(t, result.Seed)
	assert.Equal(t, int64(42), *result.Seed)
}

func TestResolve_FieldPriority(t *testing.T) {
	result, err := Resolve(&StatusResponse{
		Status: StatusReady,
		Result: map[string]any{"url": "https://x/alt.png", "image_url": "https://x/third.png"},
	})
	require.NoError(t, err)
	assert.Equal(t, "https://x/alt.png", result.AssetURL)

	result, err = Resolve(&StatusResponse{
		Status: StatusReady,
		Result: map[string]any{"image_url": "https://x/third.png"},
	})
	require.NoError(t, err)
	assert.Equal(t, "https://x/third.png", result.AssetURL)
}

func TestResolve_SeedOptional(t *testing.T) {
	result, err := Resolve(&StatusResponse{
		Status: StatusReady,
		Result: map[string]any{"sample": "https://x/img.png"},
	})
	require.NoError(t, err)
	assert.Nil(t, result.Seed)
}

func TestResolve_SeedZeroSurvives(t *testing.T) {
	result, err := Resolve(&StatusResponse{
		Status: StatusReady,
		Result: map[string]any{"sample": "https://x/img.png", "seed": float64(0)},
	})
	require.NoError(t, err)
	require.NotNil(t, result.Seed)
	assert.Equal(t, int64(0), *result.Seed)
}

func TestResolve_MissingURLEnumeratesKeys(t *testing.T) {
	_, err := Resolve(&StatusResponse{
		Status: StatusReady,
		Result: map[string]any{"seed": float64(7), "duration": 3.2},
	})
	require.Error(t, err)
	assert.Equal(t, types.ErrMissingResult, types.GetErrorCode(err))
	assert.Contains(t, err.Error(), "duration")
	assert.Contains(t, err.Error(), "seed")
}

func TestResolve_EmptyResult(t *testing.T) {
	_, err := Resolve(&StatusResponse{Status: StatusReady})
	require.Error(t, err)
	assert.Equal(t, types.ErrMissingResult, types.GetErrorCode(err))

	_, err = Resolve(nil)
	require.Error(t, err)
	assert.Equal(t, types.ErrMissingResult, types.GetErrorCode(err))
}
