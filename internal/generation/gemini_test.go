package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestContentConfigMapsParameters(t *testing.T) {
	gc := contentConfig(Config{MaxOutputTokens: 300, Temperature: 0.3, TopP: 0.8, TopK: 40})

	assert.Equal(t, int32(300), gc.MaxOutputTokens)
	require.NotNil(t, gc.Temperature)
	assert.InDelta(t, 0.3, *gc.Temperature, 1e-6)
	require.NotNil(t, gc.TopK)
	assert.InDelta(t, 40, *gc.TopK, 1e-6)
	assert.Nil(t, gc.SafetySettings)
	assert.Empty(t, gc.ResponseMIMEType)
}

func TestContentConfigKeepsZeroTemperature(t *testing.T) {
	gc := contentConfig(Config{})

	require.NotNil(t, gc.Temperature)
	assert.Zero(t, *gc.Temperature)
	assert.Nil(t, gc.TopP)
	assert.Nil(t, gc.TopK)
}

func TestContentConfigStructuredOutput(t *testing.T) {
	gc := contentConfig(Config{Schema: &Schema{Properties: []Property{
		{Name: "a", Type: TypeBoolean},
		{Name: "b", Type: TypeString},
	}}})

	assert.Equal(t, "application/json", gc.ResponseMIMEType)
	require.NotNil(t, gc.ResponseSchema)
	assert.Equal(t, genai.TypeObject, gc.ResponseSchema.Type)
	assert.Equal(t, []string{"a", "b"}, gc.ResponseSchema.Required)
	assert.Equal(t, genai.TypeBoolean, gc.ResponseSchema.Properties["a"].Type)
	assert.Equal(t, genai.TypeString, gc.ResponseSchema.Properties["b"].Type)
}

func TestSafetySettings(t *testing.T) {
	assert.Nil(t, safetySettings(SafetyDefault))

	strict := safetySettings(SafetyStrict)
	require.Len(t, strict, len(harmCategories))
	for _, s := range strict {
		assert.Equal(t, genai.HarmBlockThresholdBlockLowAndAbove, s.Threshold)
	}

	relaxed := safetySettings(SafetyRelaxed)
	require.Len(t, relaxed, len(harmCategories))
	assert.Equal(t, genai.HarmBlockThresholdBlockOnlyHigh, relaxed[0].Threshold)
}
