package apierror

import (
	"errors"
	"fmt"
)

// Error kinds exposed to API clients in extensions.code
const (
	// MustBeAuthorizedError - the operation requires a viewer and none was present
	MustBeAuthorizedError = "MustBeAuthorizedError"
	// InvalidTokenError - the bearer token could not be verified
	InvalidTokenError = "InvalidTokenError"
	// InternalError - unexpected failure, details are only logged
	InternalError = "InternalError"
)

var defaultMessages = map[string]string{
	MustBeAuthorizedError: "You must be signed in to perform this action",
	InvalidTokenError:     "The access token is invalid or expired",
	InternalError:         "Internal server error",
}

// Error is a client-facing API error identified by its kind.
// Values are immutable; every failure gets a fresh one from New.
type Error struct {
	kind string
}

// New creates an error of the given kind
func New(kind string) *Error {
	return &Error{kind: kind}
}

// Kind returns the error kind
func (e *Error) Kind() string {
	return e.kind
}

// DefaultMessage returns the English message for the kind
func (e *Error) DefaultMessage() string {
	if msg, ok := defaultMessages[e.kind]; ok {
		return msg
	}
	return e.kind
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.kind, e.DefaultMessage())
}

// Is matches any *Error of the same kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.kind == e.kind
}

// KindOf returns the kind of the first *Error in err's chain
func KindOf(err error) (string, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.kind, true
	}
	return "", false
}

// IsKind reports whether err's chain holds an *Error of the given kind
func IsKind(err error, kind string) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
