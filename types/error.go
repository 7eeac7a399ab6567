package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the module.
type ErrorCode string

// Job lifecycle error codes.
const (
	// ErrConfig: missing or invalid credential/configuration. Fatal, not retried.
	ErrConfig ErrorCode = "CONFIG_ERROR"
	// ErrRequest: submission or polling HTTP failure (non-2xx outside the
	// transient set). Fatal.
	ErrRequest ErrorCode = "REQUEST_ERROR"
	// ErrProtocol: malformed or unexpected JSON shape from the API. Fatal.
	ErrProtocol ErrorCode = "PROTOCOL_ERROR"
	// ErrTransientHTTP: 5xx/429 during polling. Absorbed by the poller,
	// never surfaces to callers individually.
	ErrTransientHTTP ErrorCode = "TRANSIENT_HTTP"
	// ErrPersistentServer: escalation after repeated consecutive 5xx. Fatal.
	ErrPersistentServer ErrorCode = "PERSISTENT_SERVER_ERROR"
	// ErrModeration: content-policy rejection, carries the reasons. Fatal.
	ErrModeration ErrorCode = "MODERATION"
	// ErrGeneration: upstream reported a generation failure. Fatal.
	ErrGeneration ErrorCode = "GENERATION_FAILED"
	// ErrTimeout: poll attempt budget exhausted. Fatal.
	ErrTimeout ErrorCode = "TIMEOUT"
	// ErrMissingResult: terminal success status but no extractable asset. Fatal.
	ErrMissingResult ErrorCode = "MISSING_RESULT"
)

// Supporting infrastructure error codes.
const (
	ErrValidation ErrorCode = "VALIDATION_ERROR"
	ErrStore      ErrorCode = "STORE_ERROR"
	ErrArtifact   ErrorCode = "ARTIFACT_ERROR"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Endpoint   string    `json:"endpoint,omitempty"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Errorf creates a new Error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the HTTP status code that produced the error.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// WithEndpoint sets the API endpoint (model) the error came from.
func (e *Error) WithEndpoint(endpoint string) *Error {
	e.Endpoint = endpoint
	return e
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error, unwrapping as needed.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return GetErrorCode(err) == code
}
