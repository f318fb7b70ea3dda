package api

import (
	"encoding/json/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeTransformer_Success(t *testing.T) {
	data := map[string]string{"id": "tour_123", "name": "The Forest Hiker"}

	result, err := EnvelopeTransformer(nil, "200", data)
	require.NoError(t, err)

	env, ok := result.(*envelope)
	require.True(t, ok)
	assert.Equal(t, envelopeVersion, env.V)
	assert.True(t, env.Success)
	assert.Equal(t, data, env.Data)
	assert.Nil(t, env.Error)
}

func TestEnvelopeTransformer_APIError(t *testing.T) {
	apiErr := &APIError{Code: "NOT_FOUND", Message: "tour not found"}

	result, err := EnvelopeTransformer(nil, "404", apiErr)
	require.NoError(t, err)

	env, ok := result.(*envelope)
	require.True(t, ok)
	assert.Equal(t, envelopeVersion, env.V)
	assert.False(t, env.Success)
	assert.Nil(t, env.Data)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
	assert.Equal(t, "tour not found", env.Error.Message)
}

func TestEnvelopeTransformer_ForeignErrorStatus(t *testing.T) {
	// Non-APIError payloads on error statuses still produce an error
	// envelope so clients never see a bare body.
	result, err := EnvelopeTransformer(nil, "403", map[string]string{"detail": "no"})
	require.NoError(t, err)

	env, ok := result.(*envelope)
	require.True(t, ok)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)
}

func TestEnvelope_WireFormat(t *testing.T) {
	payload, err := json.Marshal(envelope{
		V:       envelopeVersion,
		Success: true,
		Data:    map[string]string{"id": "x"},
	})
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(payload, &raw))
	assert.Contains(t, raw, "v")
	assert.Contains(t, raw, "success")
	assert.Contains(t, raw, "data")
	assert.NotContains(t, raw, "error", "error field must be omitted on success")
}

func TestStatusToCode(t *testing.T) {
	tests := []struct {
		status int
		code   string
	}{
		{400, "VALIDATION"},
		{401, "UNAUTHORIZED"},
		{403, "FORBIDDEN"},
		{404, "NOT_FOUND"},
		{409, "CONFLICT"},
		{422, "VALIDATION"},
		{500, "INTERNAL"},
		{503, "INTERNAL"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.code, statusToCode(tt.status), "status %d", tt.status)
	}
}
