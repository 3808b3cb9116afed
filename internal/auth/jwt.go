package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// AccessTokenTTL is the lifetime of a bearer token.
	AccessTokenTTL = 1 * time.Hour
	// RefreshTokenTTL is the lifetime of the token exchanged at RefreshToken.
	RefreshTokenTTL = 7 * 24 * time.Hour

	issuer = "realmhub"
)

// ErrInvalidToken is the only error Verify returns. Expired, malformed,
// mis-signed and wrong-kind tokens are indistinguishable to the caller.
var ErrInvalidToken = errors.New("invalid token")

// TokenKind separates access tokens from refresh tokens so one cannot be
// replayed as the other.
type TokenKind string

const (
	KindAccess  TokenKind = "access"
	KindRefresh TokenKind = "refresh"
)

// Claims is the payload inside every token.
//
// Subject holds the account id. RealmID is set when the token was issued
// for a specific realm (RefreshToken with realm_id); it is empty otherwise.
type Claims struct {
	Kind    TokenKind `json:"typ"`
	RealmID string    `json:"realm_id,omitempty"`
	jwt.RegisteredClaims
}

// AccountID parses the subject.
func (c *Claims) AccountID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// Realm parses the optional realm scope. It returns nil when the token is
// not realm-scoped.
func (c *Claims) Realm() (*uuid.UUID, error) {
	if c.RealmID == "" {
		return nil, nil
	}
	id, err := uuid.Parse(c.RealmID)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// TokenPair is what Login and RefreshToken hand back.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// TokenService signs and verifies HS256 tokens with one injected secret.
// It holds no mutable state and is safe for concurrent use.
type TokenService struct {
	secret []byte
	now    func() time.Time
}

type TokenOption func(*TokenService)

// WithClock replaces time.Now for issuing and for expiry checks.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) {
		s.now = now
	}
}

func NewTokenService(secret []byte, opts ...TokenOption) *TokenService {
	s := &TokenService{secret: secret, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue creates a signed token for accountID valid for ttl.
func (s *TokenService) Issue(kind TokenKind, accountID uuid.UUID, realmID *uuid.UUID, ttl time.Duration) (string, error) {
	now := s.now()

	claims := Claims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID.String(),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if realmID != nil {
		claims.RealmID = realmID.String()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// IssuePair creates a fresh access token and refresh token carrying the same
// realm scope.
func (s *TokenService) IssuePair(accountID uuid.UUID, realmID *uuid.UUID) (TokenPair, error) {
	access, err := s.Issue(KindAccess, accountID, realmID, AccessTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.Issue(KindRefresh, accountID, realmID, RefreshTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Verify checks signature, algorithm, issuer and expiry. A token that fails
// any check yields ErrInvalidToken and nil claims.
func (s *TokenService) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{},
		func(token *jwt.Token) (any, error) {
			// Reject "none" and asymmetric algorithms before the signature check.
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if _, err := claims.AccountID(); err != nil {
		return nil, ErrInvalidToken
	}
	if _, err := claims.Realm(); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// VerifyKind is Verify plus a check that the token is of the expected kind.
func (s *TokenService) VerifyKind(tokenString string, kind TokenKind) (*Claims, error) {
	claims, err := s.Verify(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Kind != kind {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
