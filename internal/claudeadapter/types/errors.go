package types

// Claude error types.
const (
	ErrorTypeInvalidRequest  = "invalid_request_error"
	ErrorTypeAuthentication  = "authentication_error"
	ErrorTypePermission      = "permission_error"
	ErrorTypeNotFound        = "not_found_error"
	ErrorTypeRequestTooLarge = "request_too_large"
	ErrorTypeRateLimit       = "rate_limit_error"
	ErrorTypeAPI             = "api_error"
	ErrorTypeOverloaded      = "overloaded_error"
)

// Error is the detail of a Claude error.
type Error struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Error implements the error interface for Error, returning the error message.
func (e *Error) Error() string {
	return e.Message
}

// ErrorResponse is the Claude error envelope: {"type":"error","error":{...}}.
// The same shape is the payload of the "error" SSE event.
type ErrorResponse struct {
	Type string `json:"type"`
	Err  Error  `json:"error"`
}

// NewErrorResponse builds an error envelope.
func NewErrorResponse(errType, message string) *ErrorResponse {
	return &ErrorResponse{
		Type: "error",
		Err:  Error{Type: errType, Message: message},
	}
}

// Error implements the error interface for ErrorResponse, returning the underlying error message.
// This allows ErrorResponse to be used directly in error returns.
func (e *ErrorResponse) Error() string {
	return e.Err.Message
}
