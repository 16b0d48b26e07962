// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"bytes"
	"encoding/json"
)

// IDResponse is returned after creating a resource.
type IDResponse struct {
	ID string `json:"id"`
}

// SuccessResponse represents a generic success response.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse mirrors the body written by middleware.ErrorHandler.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Numeric accepts a JSON number, a numeric string, or anything else.
// It keeps the raw text; non-numeric input later coerces to zero.
type Numeric string

// UnmarshalJSON implements json.Unmarshaler.
func (n *Numeric) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*n = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = Numeric(s)
	case data[0] == '-' || (data[0] >= '0' && data[0] <= '9'):
		*n = Numeric(data)
	default:
		// true, false, objects and arrays are not numbers.
		*n = ""
	}
	return nil
}

// String returns the raw text.
func (n Numeric) String() string {
	return string(n)
}
