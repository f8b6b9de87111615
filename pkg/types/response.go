// Package types holds the wire envelopes every API response is wrapped in:
// payloads under "data", failures under "error" with a stable code clients
// can branch on.
package types

// SuccessEnvelope wraps any successful response payload.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the client-facing failure shape. Details carries per-field
// validation messages when present.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
