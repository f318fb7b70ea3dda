package api

import (
	"strconv"

	"github.com/danielgtaylor/huma/v2"
)

// envelopeVersion is the response envelope schema version. Bump only with a
// coordinated client release.
const envelopeVersion = 1

// envelope is the uniform JSON wrapper around every API response body.
type envelope struct {
	V       int       `json:"v"`
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

// EnvelopeTransformer wraps every huma response body in the shared envelope.
// Success bodies land in "data", APIError bodies in "error".
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	if apiErr, ok := v.(*APIError); ok {
		return &envelope{
			V:       envelopeVersion,
			Success: false,
			Error:   apiErr,
		}, nil
	}

	code, err := strconv.Atoi(status)
	if err == nil && code >= 400 {
		return &envelope{
			V:       envelopeVersion,
			Success: false,
			Error: &APIError{
				status:  code,
				Code:    statusToCode(code),
				Message: "request failed",
			},
		}, nil
	}

	return &envelope{
		V:       envelopeVersion,
		Success: true,
		Data:    v,
	}, nil
}
