// Package types holds the JSON envelopes every API response is wrapped in.
// Success payloads sit under "data", failures under "error", so clients can
// branch on a single key.
package types

type SuccessEnvelope struct {
	Data any `json:"data"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// APIError is the client-facing half of a pkg/errors Error. Details carries
// field-level validation output and is omitted for opaque server failures.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func NewErrorEnvelope(code, message string, details any) ErrorEnvelope {
	return ErrorEnvelope{Error: APIError{Code: code, Message: message, Details: details}}
}
