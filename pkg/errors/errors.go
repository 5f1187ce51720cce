package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Standard error types
var (
	ErrAuthentication = errors.New("authentication error")
	ErrConfiguration  = errors.New("configuration error")
	ErrRateLimit      = errors.New("rate limit exceeded")
	ErrAPI            = errors.New("API error")
	ErrTransport      = errors.New("transport error")
	ErrValidation     = errors.New("validation error")
	ErrPagination     = errors.New("pagination error")
	ErrDatabase       = errors.New("database error")
	ErrTimeout        = errors.New("timeout")
)

// WrapError wraps an error with a standard error type.
// The result matches both errType and err with errors.Is.
func WrapError(err error, errType error, message string) error {
	return fmt.Errorf("%w: %s: %w", errType, message, err)
}

// GraphQLError is one entry of the top level "errors" list of a response.
type GraphQLError struct {
	Message    string                 `json:"message"`
	Path       []interface{}          `json:"path,omitempty"`
	Extensions map[string]interface{} `json:"extensions,omitempty"`
}

// APIError is returned when the upstream API rejects a request or
// answers with GraphQL level errors.
type APIError struct {
	Kind          error // ErrAPI, ErrRateLimit or ErrAuthentication
	StatusCode    int
	Body          string
	Response      map[string]interface{} // parsed Body, when it was JSON
	GraphQLErrors []GraphQLError
	Message       string
	Cause         error
}

func (e *APIError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if len(e.GraphQLErrors) > 0 {
		msgs := make([]string, 0, len(e.GraphQLErrors))
		for _, ge := range e.GraphQLErrors {
			msgs = append(msgs, ge.Message)
		}
		fmt.Fprintf(&b, ": %s", strings.Join(msgs, "; "))
	} else if e.Body != "" {
		fmt.Fprintf(&b, ": %s", truncate(e.Body, 512))
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Unwrap exposes the kind, ErrAPI and the cause to errors.Is / errors.As.
func (e *APIError) Unwrap() []error {
	errs := []error{ErrAPI}
	if e.Kind != nil && e.Kind != ErrAPI {
		errs = append(errs, e.Kind)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Is provides a convenience wrapper around errors.Is
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As provides a convenience wrapper around errors.As
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New provides a convenience wrapper around errors.New
func New(text string) error {
	return errors.New(text)
}
