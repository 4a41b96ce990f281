package types

// SuccessEnvelope wraps every 2xx body served by the catalog API.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the public part of a failed request. Details are only set for
// codes whose metadata allows them.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope carries the request id so clients can quote it when
// reporting a failure.
type ErrorEnvelope struct {
	Error     APIError `json:"error"`
	RequestID string   `json:"requestId,omitempty"`
}
