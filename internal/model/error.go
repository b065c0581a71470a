package model

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode is the machine-readable classification of an upstream failure.
type ErrorCode string

// Error codes carried by APIError.
const (
	CodeNetwork     ErrorCode = "T3_NETWORK_ERROR"
	CodeTimeout     ErrorCode = "T3_TIMEOUT"
	CodeHTTP        ErrorCode = "T3_HTTP_ERROR"
	CodeJSONParse   ErrorCode = "T3_JSON_PARSE_ERROR"
	CodeSchemaParse ErrorCode = "T3_SCHEMA_PARSE_ERROR"
	CodeUnknown     ErrorCode = "T3_UNKNOWN_ERROR"
)

// APIError describes a failed call against the CMS.
// Status and Code are zero for failures detected before a request was sent.
type APIError struct {
	Message   string
	Status    int
	Code      ErrorCode
	RequestID string
	URL       string
	Cause     error
	// Details holds the decoded JSON error body, if the upstream sent one.
	Details any
}

// APIErrorOption sets an optional field on a new APIError.
type APIErrorOption func(*APIError)

// NewAPIError creates an APIError with the given message.
func NewAPIError(message string, opts ...APIErrorOption) *APIError {
	e := &APIError{Message: message}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithStatus sets the HTTP status.
func WithStatus(status int) APIErrorOption {
	return func(e *APIError) { e.Status = status }
}

// WithCode sets the error code.
func WithCode(code ErrorCode) APIErrorOption {
	return func(e *APIError) { e.Code = code }
}

// WithRequestID sets the correlation id.
func WithRequestID(id string) APIErrorOption {
	return func(e *APIError) { e.RequestID = id }
}

// WithURL sets the target URL.
func WithURL(url string) APIErrorOption {
	return func(e *APIError) { e.URL = url }
}

// WithCause sets the wrapped source error.
func WithCause(cause error) APIErrorOption {
	return func(e *APIError) { e.Cause = cause }
}

// WithDetails attaches decoded diagnostic detail.
func WithDetails(details any) APIErrorOption {
	return func(e *APIError) { e.Details = details }
}

func (e *APIError) Error() string {
	switch {
	case e.Code != "" && e.Status != 0:
		return fmt.Sprintf("%s (%s, status %d)", e.Message, e.Code, e.Status)
	case e.Code != "":
		return fmt.Sprintf("%s (%s)", e.Message, e.Code)
	default:
		return e.Message
	}
}

func (e *APIError) Unwrap() error {
	return e.Cause
}

// AsAPIError extracts an APIError from err's chain.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	apiErr, ok := AsAPIError(err)
	return ok && apiErr.Status == http.StatusNotFound
}

// IsServerSide reports whether err means the service is unavailable rather than
// the request being wrong: any 5xx status, timeouts and network failures.
func IsServerSide(err error) bool {
	apiErr, ok := AsAPIError(err)
	if !ok {
		return false
	}
	if apiErr.Status >= http.StatusInternalServerError {
		return true
	}
	return apiErr.Code == CodeTimeout || apiErr.Code == CodeNetwork
}

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
	Retry     bool   `json:"retry,omitempty"`
}

// Error identifiers used in ErrorResponse.Error.
const (
	ErrCodeInvalidJSON   = "INVALID_JSON"
	ErrCodeMissingField  = "MISSING_FIELD"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeUnavailable   = "SERVICE_UNAVAILABLE"
	ErrCodeUnauthorised  = "UNAUTHORIZED"
	ErrCodeInternalError = "INTERNAL_ERROR"
)
