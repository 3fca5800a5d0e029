package types

// SuccessEnvelope wraps every 2xx body so clients can unmarshal uniformly.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the public error shape; Details is populated only for codes
// whose metadata allows caller-facing detail.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope wraps every non-2xx body.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// NewErrorEnvelope builds the error body from its parts.
func NewErrorEnvelope(code, message string, details any) ErrorEnvelope {
	return ErrorEnvelope{Error: APIError{Code: code, Message: message, Details: details}}
}
