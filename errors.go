package runeq

import (
	"errors"

	"github.com/runelabs/runeq-go/ident"
	"github.com/runelabs/runeq-go/internal/apierr"
)

// Shared SDK errors are defined in internal/apierr and re-exported here so
// callers compare against a single set of symbols.

// ErrNotFound reports that the backend explicitly said a resource does not
// exist. Test with errors.Is; it is distinct from a generic *APIError.
var ErrNotFound = apierr.ErrNotFound

// ErrNotInitialized reports use of the process-default client before
// Initialize installed one.
var ErrNotInitialized = apierr.ErrNotInitialized

// APIError is any other non-success backend response, carrying the HTTP
// status code and the structured error detail from the response body.
type APIError = apierr.Error

// UsageError is a programming error at the call site (e.g. a filter with no
// conditions). Never retried.
type UsageError = apierr.UsageError

// Usagef builds a *UsageError.
func Usagef(format string, args ...any) *UsageError { return apierr.Usagef(format, args...) }

// IsNotFound reports whether err is (or wraps) ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsAmbiguousID reports whether err is an identifier-ambiguity parse error.
func IsAmbiguousID(err error) bool { return ident.IsAmbiguous(err) }
