// Package common defines the sentinel errors shared by repositories, services
// and the transport layers of pulsekeeper. Callers should use errors.Is to
// match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Caller errors, reported before any store mutation.
	ErrorInvalidInput = errors.New("invalid input")
	ErrorConflict     = errors.New("already exists")
	ErrorNotFound     = errors.New("not found")
	ErrorUnauthorized = errors.New("unauthorized")

	// Role errors on connect and ingest. Both specific causes wrap ErrorInvalidRole.
	ErrorInvalidRole       = errors.New("invalid role")
	ErrorUserRoleMismatch  = fmt.Errorf("%w: account is not a monitored user", ErrorInvalidRole)
	ErrorPartyRoleMismatch = fmt.Errorf("%w: account is not a responsible party", ErrorInvalidRole)

	// ErrorNotConnected is returned when a responsible party reads data of a
	// user it has no edge to.
	ErrorNotConnected = fmt.Errorf("%w: no connection to user", ErrorUnauthorized)

	// ErrorStoreUnavailable covers every store connection or query failure.
	// The underlying cause is joined to it for logging only.
	ErrorStoreUnavailable = errors.New("store unavailable")
)

// StoreError joins ErrorStoreUnavailable with the underlying cause.
func StoreError(cause error) error {
	return errors.Join(ErrorStoreUnavailable, cause)
}
