// Package access decides who is calling and which realm they act in.
//
// Every realm-scoped operation goes through Resolver before touching data:
// Authenticate turns a bearer token into an Identity, and ResolveRealm turns
// an Identity plus an optional requested realm into a realm the account is
// provably a member of.
package access

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lalith-99/realmhub/internal/apperr"
	"github.com/lalith-99/realmhub/internal/auth"
	"github.com/lalith-99/realmhub/internal/repository"
)

// Identity is a verified caller. RealmID is the realm scope carried by the
// token, if any; it has not been checked against grants yet.
type Identity struct {
	AccountID uuid.UUID
	RealmID   *uuid.UUID
}

// Access is an Identity whose realm membership has been confirmed.
type Access struct {
	AccountID uuid.UUID
	RealmID   uuid.UUID
}

type Resolver struct {
	tokens *auth.TokenService
	grants repository.GrantRepository
}

func NewResolver(tokens *auth.TokenService, grants repository.GrantRepository) *Resolver {
	return &Resolver{tokens: tokens, grants: grants}
}

// Authenticate verifies an access token. Refresh tokens are rejected.
func (r *Resolver) Authenticate(token string) (Identity, error) {
	if token == "" {
		return Identity{}, fmt.Errorf("%w: missing token", apperr.ErrUnauthenticated)
	}
	claims, err := r.tokens.VerifyKind(token, auth.KindAccess)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: invalid token", apperr.ErrUnauthenticated)
	}
	// Verify has already checked both fields parse.
	accountID, _ := claims.AccountID()
	realmID, _ := claims.Realm()
	return Identity{AccountID: accountID, RealmID: realmID}, nil
}

// ResolveRealm picks the realm an operation runs in:
//
//  1. requested, when given, must be a realm the account holds a grant in;
//  2. otherwise the token's realm scope, checked the same way;
//  3. otherwise the realm of the account's earliest grant.
//
// An explicit realm without a grant is denied even when the account is a
// member of other realms.
//
// Why check the token's realm scope again instead of trusting it? Because
// grants can be revoked while a token is still valid. A scoped token only
// says which realm the caller picked at refresh time, not that the caller
// may still act there. A scope that no longer has a grant is denied rather
// than quietly swapped for the earliest grant: writing into a realm the
// caller did not pick is worse than failing the call.
//
// Why keep the earliest-grant fallback at all? Clients that never pick a
// realm hold exactly one grant, and for them the fallback is the only realm
// there is. Ordering by granted_at keeps the choice stable across calls.
func (r *Resolver) ResolveRealm(ctx context.Context, id Identity, requested *uuid.UUID) (uuid.UUID, error) {
	candidate := requested
	if candidate == nil {
		candidate = id.RealmID
	}

	if candidate != nil {
		ok, err := r.grants.Exists(ctx, id.AccountID, *candidate)
		if err != nil {
			return uuid.Nil, fmt.Errorf("resolve realm: %w", err)
		}
		if !ok {
			return uuid.Nil, fmt.Errorf("%w: no access to realm %s", apperr.ErrForbidden, candidate)
		}
		return *candidate, nil
	}

	first, err := r.grants.FirstRealm(ctx, id.AccountID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("resolve realm: %w", err)
	}
	if first == nil {
		return uuid.Nil, fmt.Errorf("%w: account is not a member of any realm", apperr.ErrForbidden)
	}
	return *first, nil
}

// Authorize is Authenticate followed by ResolveRealm.
func (r *Resolver) Authorize(ctx context.Context, token string, requested *uuid.UUID) (Access, error) {
	id, err := r.Authenticate(token)
	if err != nil {
		return Access{}, err
	}
	realmID, err := r.ResolveRealm(ctx, id, requested)
	if err != nil {
		return Access{}, err
	}
	return Access{AccountID: id.AccountID, RealmID: realmID}, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", fmt.Errorf("%w: expected Authorization: Bearer <token>", apperr.ErrUnauthenticated)
	}
	return strings.TrimSpace(token), nil
}

// ParseRealmID parses an optional realm id from a request. Empty means none.
func ParseRealmID(s string) (*uuid.UUID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("%w: realm_id %q is not a valid id", apperr.ErrInvalid, s)
	}
	return &id, nil
}
