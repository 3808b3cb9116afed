package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/lalith-99/realmhub/internal/models"
	"github.com/lalith-99/realmhub/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedAccount(t *testing.T, repos repository.Repositories, name string) *models.Account {
	t.Helper()
	a, err := repos.Accounts.Create(context.Background(), &models.Account{
		ID:       uuid.New(),
		Username: name,
		Email:    name + "@example.com",
		IsActive: true,
	})
	require.NoError(t, err)
	return a
}

func seedRealm(t *testing.T, repos repository.Repositories, owner uuid.UUID, name string) (*models.Realm, *models.Role) {
	t.Helper()
	ctx := context.Background()
	realm, err := repos.Realms.Create(ctx, &models.Realm{ID: uuid.New(), Name: name, DisplayName: name, IsActive: true, CreatedBy: owner})
	require.NoError(t, err)
	role, err := repos.Roles.Create(ctx, &models.Role{ID: uuid.New(), RealmID: realm.ID, Name: models.AdminRoleName})
	require.NoError(t, err)
	require.NoError(t, repos.Grants.Create(ctx, &models.Grant{AccountID: owner, RealmID: realm.ID, RoleID: role.ID}))
	return realm, role
}

func TestAccounts_UniqueEmailAndUsername(t *testing.T) {
	repos := New().Repositories()
	ctx := context.Background()
	seedAccount(t, repos, "alice")

	_, err := repos.Accounts.Create(ctx, &models.Account{ID: uuid.New(), Username: "other", Email: "alice@example.com"})
	assert.ErrorIs(t, err, repository.ErrUniqueViolation)

	_, err = repos.Accounts.Create(ctx, &models.Account{ID: uuid.New(), Username: "alice", Email: "x@example.com"})
	assert.ErrorIs(t, err, repository.ErrUniqueViolation)

	exists, err := repos.Accounts.ExistsByEmailOrUsername(ctx, "nobody@example.com", "alice")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestAccounts_MissingReturnsNil(t *testing.T) {
	repos := New().Repositories()
	a, err := repos.Accounts.GetByID(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, a)

	a, err = repos.Accounts.GetByEmail(context.Background(), "ghost@example.com")
	require.NoError(t, err)
	assert.Nil(t, a)
}

func TestWithinTx_RollsBackOnError(t *testing.T) {
	store := New()
	ctx := context.Background()
	owner := seedAccount(t, store.Repositories(), "owner")

	boom := errors.New("boom")
	err := store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		_, err := repos.Realms.Create(ctx, &models.Realm{ID: uuid.New(), Name: "acme", DisplayName: "Acme", IsActive: true, CreatedBy: owner.ID})
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	exists, err := store.Repositories().Realms.ExistsByName(ctx, "acme")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestWithinTx_CommitsOnSuccess(t *testing.T) {
	store := New()
	ctx := context.Background()
	owner := seedAccount(t, store.Repositories(), "owner")

	err := store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		seedRealm(t, repos, owner.ID, "acme")
		return nil
	})
	require.NoError(t, err)

	realms, err := store.Repositories().Realms.ListForAccount(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, realms, 1)
	assert.Equal(t, "acme", realms[0].Name)
}

func TestFailNext_FiresOnce(t *testing.T) {
	store := New()
	ctx := context.Background()
	owner := seedAccount(t, store.Repositories(), "owner")
	realm, _ := seedRealm(t, store.Repositories(), owner.ID, "acme")

	injected := errors.New("injected")
	store.FailNext("roles.create", injected)

	_, err := store.Repositories().Roles.Create(ctx, &models.Role{ID: uuid.New(), RealmID: realm.ID, Name: "member"})
	assert.ErrorIs(t, err, injected)

	_, err = store.Repositories().Roles.Create(ctx, &models.Role{ID: uuid.New(), RealmID: realm.ID, Name: "member"})
	assert.NoError(t, err)
}

func TestGrants_FirstRealmIsEarliest(t *testing.T) {
	repos := New().Repositories()
	ctx := context.Background()
	owner := seedAccount(t, repos, "owner")

	none, err := repos.Grants.FirstRealm(ctx, owner.ID)
	require.NoError(t, err)
	assert.Nil(t, none)

	first, _ := seedRealm(t, repos, owner.ID, "zeta")
	seedRealm(t, repos, owner.ID, "alpha")

	got, err := repos.Grants.FirstRealm(ctx, owner.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, first.ID, *got)
}

func TestRealms_ListForAccountDistinctAndSorted(t *testing.T) {
	repos := New().Repositories()
	ctx := context.Background()
	owner := seedAccount(t, repos, "owner")
	other := seedAccount(t, repos, "other")

	zeta, _ := seedRealm(t, repos, owner.ID, "zeta")
	seedRealm(t, repos, owner.ID, "alpha")

	member, err := repos.Roles.Create(ctx, &models.Role{ID: uuid.New(), RealmID: zeta.ID, Name: "member"})
	require.NoError(t, err)
	require.NoError(t, repos.Grants.Create(ctx, &models.Grant{AccountID: owner.ID, RealmID: zeta.ID, RoleID: member.ID}))

	realms, err := repos.Realms.ListForAccount(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, realms, 2)
	assert.Equal(t, "alpha", realms[0].Name)
	assert.Equal(t, "zeta", realms[1].Name)

	empty, err := repos.Realms.ListForAccount(ctx, other.ID)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestBots_Constraints(t *testing.T) {
	repos := New().Repositories()
	ctx := context.Background()
	owner := seedAccount(t, repos, "owner")
	realm, _ := seedRealm(t, repos, owner.ID, "acme")

	bridge, err := repos.Bridges.Create(ctx, &models.ChannelBridge{
		ID:           uuid.New(),
		RealmID:      realm.ID,
		Type:         models.BridgeAPI,
		ProviderType: models.ProviderLine,
		ThirdID:      "chan-1",
		ThirdSecret:  "s3cret",
		API:          &models.APICredentials{Endpoint: "https://api.line.me", Version: "v2"},
	})
	require.NoError(t, err)

	_, err = repos.Bots.Create(ctx, &models.Bot{ID: uuid.New(), RealmID: realm.ID, Name: "helper", DisplayName: "Helper"})
	assert.ErrorIs(t, err, repository.ErrCheckViolation)

	missing := uuid.New()
	_, err = repos.Bots.Create(ctx, &models.Bot{ID: uuid.New(), RealmID: realm.ID, Name: "helper", DisplayName: "Helper", APIBridgeID: &missing})
	assert.ErrorIs(t, err, repository.ErrForeignKeyViolation)

	bot, err := repos.Bots.Create(ctx, &models.Bot{ID: uuid.New(), RealmID: realm.ID, Name: "helper", DisplayName: "Helper", APIBridgeID: &bridge.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{}, bot.Capabilities)

	_, err = repos.Bots.Create(ctx, &models.Bot{ID: uuid.New(), RealmID: realm.ID, Name: "helper", DisplayName: "Again", APIBridgeID: &bridge.ID})
	assert.ErrorIs(t, err, repository.ErrUniqueViolation)

	exists, err := repos.Bots.ExistsByName(ctx, realm.ID, "helper", &bot.ID)
	require.NoError(t, err)
	assert.False(t, exists)
}
