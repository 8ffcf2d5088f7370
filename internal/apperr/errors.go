// Package apperr defines the error taxonomy shared by the store, the
// reconciler and the HTTP handlers. Callers classify with errors.Is.
package apperr

import "errors"

var (
	// ErrValidation marks malformed input: an unknown stage, an empty
	// required field, a bad priority value.
	ErrValidation = errors.New("validation error")

	// ErrNotFound marks a reference to an application that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrGateway marks a failed or malformed response from the external
	// classifier. It is propagated, never retried, by the callers here.
	ErrGateway = errors.New("classifier gateway error")
)
