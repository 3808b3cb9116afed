package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/lalith-99/realmhub/internal/access"
	"github.com/lalith-99/realmhub/internal/auth"
	"github.com/lalith-99/realmhub/internal/repository"
	"github.com/lalith-99/realmhub/internal/repository/memory"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type harness struct {
	store    *memory.Store
	repos    repository.Repositories
	tokens   *auth.TokenService
	resolver *access.Resolver
	accounts *AccountService
	realms   *RealmService
	bots     *BotService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := memory.New()
	repos := store.Repositories()
	tokens := auth.NewTokenService([]byte("service-test-secret"))
	resolver := access.NewResolver(tokens, repos.Grants)
	logger := zap.NewNop()
	return &harness{
		store:    store,
		repos:    repos,
		tokens:   tokens,
		resolver: resolver,
		accounts: NewAccountService(repos, tokens, logger),
		realms:   NewRealmService(repos, store, logger),
		bots:     NewBotService(resolver, repos, store, logger),
	}
}

// register creates an account and returns its id.
func (h *harness) register(t *testing.T, username string) uuid.UUID {
	t.Helper()
	a, err := h.accounts.Register(context.Background(), RegisterInput{
		Email:    username + "@example.com",
		Username: username,
		Password: "pw-" + username,
	})
	require.NoError(t, err)
	return a.ID
}

func (h *harness) realm(t *testing.T, owner uuid.UUID, name string) uuid.UUID {
	t.Helper()
	r, err := h.realms.CreateRealm(context.Background(), owner, CreateRealmInput{Name: name, DisplayName: name})
	require.NoError(t, err)
	return r.ID
}
