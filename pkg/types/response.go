package types

// SuccessEnvelope wraps every successful JSON response.
type SuccessEnvelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

// ErrorEnvelope is the body of every error response. Error carries the
// human-readable message; Code and Retryable let clients branch on it.
type ErrorEnvelope struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Code      string `json:"code"`
	Retryable bool   `json:"retryable"`
	Details   any    `json:"details,omitempty"`
}
