// Package apierr defines the error taxonomy shared by the graph and stream
// transports. The root runeq package re-exports these so callers compare
// against a single set of symbols.
package apierr

import (
	"errors"
	"fmt"
)

// ErrNotFound reports that the backend explicitly said the resource does not
// exist. Point lookups wrap it with resource context; callers test with
// errors.Is.
var ErrNotFound = errors.New("resource not found")

// ErrNotInitialized reports that the process-default client was used before
// Initialize installed one.
var ErrNotInitialized = errors.New("runeq is not initialized: call runeq.Initialize before using the default client")

// Error is a non-success backend response. Detail holds the structured error
// from the response body when the API provided one, otherwise the HTTP status
// text.
type Error struct {
	StatusCode int
	Detail     any
}

func (e *Error) Error() string {
	typ := "Error"
	if m, ok := e.Detail.(map[string]any); ok {
		if t, ok := m["type"].(string); ok && t != "" {
			typ = t
		}
	}
	return fmt.Sprintf("%d %s: %v", e.StatusCode, typ, e.Detail)
}

// UsageError is a programming error at the call site, e.g. a filter with zero
// conditions. It is never worth retrying.
type UsageError struct {
	msg string
}

func (e *UsageError) Error() string { return e.msg }

// Usagef builds a *UsageError.
func Usagef(format string, args ...any) *UsageError {
	return &UsageError{msg: fmt.Sprintf(format, args...)}
}

// IsUsage reports whether err is a *UsageError.
func IsUsage(err error) bool {
	var ue *UsageError
	return errors.As(err, &ue)
}
