package apperr

import (
	"errors"
	"net/http"
)

// Connect protocol error codes used on the wire.
const (
	CodeUnauthenticated   = "unauthenticated"
	CodePermissionDenied  = "permission_denied"
	CodeNotFound          = "not_found"
	CodeAlreadyExists     = "already_exists"
	CodeInvalidArgument   = "invalid_argument"
	CodeResourceExhausted = "resource_exhausted"
	CodeInternal          = "internal"
)

// Classify maps err to its Connect code and HTTP status. Errors outside the
// taxonomy are internal. ErrInvalidCredentials is reported as
// unauthenticated here; the login RPC answers it with success=false before
// it reaches this point.
func Classify(err error) (code string, status int) {
	switch {
	case errors.Is(err, ErrUnauthenticated), errors.Is(err, ErrInvalidCredentials):
		return CodeUnauthenticated, http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return CodePermissionDenied, http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return CodeNotFound, http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return CodeAlreadyExists, http.StatusConflict
	case errors.Is(err, ErrInvalid):
		return CodeInvalidArgument, http.StatusBadRequest
	default:
		return CodeInternal, http.StatusInternalServerError
	}
}
