package service

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/lalith-99/realmhub/internal/apperr"
	"github.com/lalith-99/realmhub/internal/auth"
	"github.com/lalith-99/realmhub/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_CreatesActiveUnverifiedAccount(t *testing.T) {
	h := newHarness(t)

	a, err := h.accounts.Register(context.Background(), RegisterInput{
		Email: " alice@example.com ", Username: "alice", Password: "s3cret",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", a.Email)
	assert.True(t, a.IsActive)
	assert.False(t, a.EmailVerified)
	assert.Nil(t, a.LastLoginAt)
	require.NotNil(t, a.PasswordHash)
	assert.NotEqual(t, "s3cret", *a.PasswordHash)
	assert.Equal(t, byte(7), a.ID[6]>>4, "ids are UUIDv7")
}

func TestRegister_RejectsMissingFields(t *testing.T) {
	h := newHarness(t)
	for _, in := range []RegisterInput{
		{Username: "a", Password: "p"},
		{Email: "a@example.com", Password: "p"},
		{Email: "a@example.com", Username: "a"},
		{Email: "   ", Username: "a", Password: "p"},
	} {
		_, err := h.accounts.Register(context.Background(), in)
		assert.ErrorIs(t, err, apperr.ErrInvalid)
	}
}

func TestRegister_DuplicateEmailOrUsername(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.register(t, "alice")

	_, err := h.accounts.Register(ctx, RegisterInput{Email: "alice@example.com", Username: "other", Password: "p"})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, err = h.accounts.Register(ctx, RegisterInput{Email: "other@example.com", Username: "alice", Password: "p"})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	exists, err := h.repos.Accounts.ExistsByEmailOrUsername(ctx, "other@example.com", "other")
	require.NoError(t, err)
	assert.False(t, exists, "no second row")
}

func TestRegister_PasswordTooLong(t *testing.T) {
	h := newHarness(t)

	_, err := h.accounts.Register(context.Background(), RegisterInput{
		Email: "alice@example.com", Username: "alice", Password: strings.Repeat("p", 100),
	})
	assert.ErrorIs(t, err, apperr.ErrInvalid)
	assert.ErrorContains(t, err, "at most 72 bytes")

	_, err = h.accounts.Register(context.Background(), RegisterInput{
		Email: "alice@example.com", Username: "alice", Password: strings.Repeat("p", auth.MaxPasswordBytes),
	})
	assert.NoError(t, err)
}

// Two registrations can both pass the existence check; the loser's insert
// hits the unique index and must still read as a conflict.
func TestRegister_UniqueViolationOnInsertIsConflict(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.store.FailNext("accounts.create", repository.ErrUniqueViolation)

	_, err := h.accounts.Register(ctx, RegisterInput{Email: "alice@example.com", Username: "alice", Password: "p"})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	exists, err := h.repos.Accounts.ExistsByEmailOrUsername(ctx, "alice@example.com", "alice")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestLogin_Success(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.register(t, "alice")

	res, err := h.accounts.Login(ctx, "alice@example.com", "pw-alice")
	require.NoError(t, err)
	assert.Equal(t, id, res.Account.ID)

	claims, err := h.tokens.VerifyKind(res.Tokens.AccessToken, auth.KindAccess)
	require.NoError(t, err)
	sub, err := claims.AccountID()
	require.NoError(t, err)
	assert.Equal(t, id, sub)

	_, err = h.tokens.VerifyKind(res.Tokens.RefreshToken, auth.KindRefresh)
	require.NoError(t, err)

	stored, err := h.repos.Accounts.GetByID(ctx, id)
	require.NoError(t, err)
	assert.NotNil(t, stored.LastLoginAt)
}

func TestLogin_WrongPasswordLeavesLastLogin(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.register(t, "alice")

	res, err := h.accounts.Login(ctx, "alice@example.com", "wrong")
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)
	assert.Nil(t, res)

	stored, err := h.repos.Accounts.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, stored.LastLoginAt)
}

func TestLogin_UnknownEmailAndUsernameLogin(t *testing.T) {
	h := newHarness(t)
	h.register(t, "alice")

	_, err := h.accounts.Login(context.Background(), "ghost@example.com", "pw-alice")
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)

	_, err = h.accounts.Login(context.Background(), "alice", "pw-alice")
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)
}

func TestRefresh(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	alice := h.register(t, "alice")
	bob := h.register(t, "bob")
	aliceRealm := h.realm(t, alice, "alice-co")
	bobRealm := h.realm(t, bob, "bob-co")

	login, err := h.accounts.Login(ctx, "alice@example.com", "pw-alice")
	require.NoError(t, err)

	pair, err := h.accounts.Refresh(ctx, login.Tokens.RefreshToken, "")
	require.NoError(t, err)
	claims, err := h.tokens.VerifyKind(pair.AccessToken, auth.KindAccess)
	require.NoError(t, err)
	realm, err := claims.Realm()
	require.NoError(t, err)
	assert.Nil(t, realm)

	pair, err = h.accounts.Refresh(ctx, login.Tokens.RefreshToken, aliceRealm.String())
	require.NoError(t, err)
	claims, err = h.tokens.VerifyKind(pair.AccessToken, auth.KindAccess)
	require.NoError(t, err)
	realm, err = claims.Realm()
	require.NoError(t, err)
	require.NotNil(t, realm)
	assert.Equal(t, aliceRealm, *realm)

	_, err = h.accounts.Refresh(ctx, login.Tokens.RefreshToken, bobRealm.String())
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = h.accounts.Refresh(ctx, login.Tokens.RefreshToken, "not-a-uuid")
	assert.ErrorIs(t, err, apperr.ErrInvalid)

	_, err = h.accounts.Refresh(ctx, login.Tokens.AccessToken, "")
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

	_, err = h.accounts.Refresh(ctx, "garbage", "")
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}

func TestMe(t *testing.T) {
	h := newHarness(t)
	id := h.register(t, "alice")

	a, err := h.accounts.Me(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "alice", a.Username)

	_, err = h.accounts.Me(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestLogout(t *testing.T) {
	assert.NoError(t, newHarness(t).accounts.Logout(context.Background()))
}
