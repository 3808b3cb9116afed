// Package apperr holds the error taxonomy shared by the resolver, the
// managers and the RPC layer.
//
// Callers add detail by wrapping a sentinel:
//
//	return fmt.Errorf("%w: bot name %q already exists in this realm", apperr.ErrConflict, name)
//
// and the RPC layer classifies with errors.Is. Anything that does not wrap
// one of these sentinels is treated as an internal failure.
package apperr

import "errors"

var (
	// ErrUnauthenticated covers a missing, malformed, expired or mis-signed
	// bearer token. It never says which of those it was.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden is returned when an authenticated account has no grant in
	// the realm it is acting on.
	ErrForbidden = errors.New("permission denied")

	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
	ErrInvalid  = errors.New("invalid argument")

	// ErrInvalidCredentials is a login failure: unknown email, federated-only
	// account or wrong password. The RPC layer reports it as success=false.
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// IsDenied reports whether err belongs to the Forbidden family.
func IsDenied(err error) bool {
	return errors.Is(err, ErrUnauthenticated) || errors.Is(err, ErrForbidden)
}
