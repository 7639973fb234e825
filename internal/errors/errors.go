package errors

import (
	"fmt"
	"net/http"
)

// ConfigError indicates bad or missing construction parameters, detected
// before any request is dispatched.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}

// NewConfigError creates a new configuration error
func NewConfigError(format string, args ...any) *ConfigError {
	return &ConfigError{Message: fmt.Sprintf(format, args...)}
}

// RequestError indicates a failed API call: either a precondition failure
// caught before dispatch (StatusCode is zero) or a non-success HTTP response.
// The response status and a snippet of the body are kept for diagnostics.
type RequestError struct {
	Message    string
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *RequestError) Error() string {
	if e.StatusCode == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %d %s calling %s %s: %s",
		e.Message, e.StatusCode, http.StatusText(e.StatusCode), e.Method, e.URL, e.Body)
}

// NewRequestError creates a request error for a precondition failure, before
// any network call is made.
func NewRequestError(format string, args ...any) *RequestError {
	return &RequestError{Message: fmt.Sprintf(format, args...)}
}

// NewResponseError creates a request error from a non-success HTTP response.
func NewResponseError(message, method, url string, statusCode int, body string) *RequestError {
	return &RequestError{
		Message:    message,
		Method:     method,
		URL:        url,
		StatusCode: statusCode,
		Body:       body,
	}
}

// AuthenticationError indicates credential rejection or a token missing from
// the authentication response. It is a kind of request failure: Unwrap exposes
// the underlying RequestError so errors.As matches both.
type AuthenticationError struct {
	Reason *RequestError
}

func (e *AuthenticationError) Error() string {
	return e.Reason.Error()
}

func (e *AuthenticationError) Unwrap() error {
	return e.Reason
}

// NewAuthenticationError creates an authentication error from a request error
func NewAuthenticationError(reason *RequestError) *AuthenticationError {
	return &AuthenticationError{Reason: reason}
}

// ParseError indicates a malformed or incomplete policy document.
type ParseError struct {
	// MissingKey is the required top-level key absent from the document,
	// empty when the document failed to decode at all.
	MissingKey string
	Err        error
}

func (e *ParseError) Error() string {
	if e.MissingKey != "" {
		return fmt.Sprintf("policy document missing required key %q", e.MissingKey)
	}
	return fmt.Sprintf("malformed policy document: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewMissingKeyError creates a parse error for an absent required key
func NewMissingKeyError(key string) *ParseError {
	return &ParseError{MissingKey: key}
}

// NewParseError creates a parse error wrapping a decode failure
func NewParseError(err error) *ParseError {
	return &ParseError{Err: err}
}
