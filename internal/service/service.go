// Package service holds the account, realm and bot managers. Managers take
// their collaborators through constructors and keep no package state, so a
// test can build one over the in-memory store and a real one runs over
// Postgres with no other change.
package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lalith-99/realmhub/internal/apperr"
	"github.com/lalith-99/realmhub/internal/repository"
)

// newID returns a time-ordered UUIDv7 so primary keys index in insert order.
func newID() (uuid.UUID, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.Nil, fmt.Errorf("generate id: %w", err)
	}
	return id, nil
}

// conflictOr maps a unique violation that slipped past an advisory
// pre-check to ErrConflict with msg. Other errors pass through.
func conflictOr(err error, msg string) error {
	if errors.Is(err, repository.ErrUniqueViolation) {
		return fmt.Errorf("%w: %s", apperr.ErrConflict, msg)
	}
	return err
}

func optionalText(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func parseID(field, s string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s %q is not a valid id", apperr.ErrInvalid, field, s)
	}
	return id, nil
}
