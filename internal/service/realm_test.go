package service

import (
	"context"
	"errors"
	"testing"

	"github.com/lalith-99/realmhub/internal/apperr"
	"github.com/lalith-99/realmhub/internal/models"
	"github.com/lalith-99/realmhub/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRealm_CreatesRoleGrantAndPermissions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	alice := h.register(t, "alice")
	bob := h.register(t, "bob")

	realm, err := h.realms.CreateRealm(ctx, alice, CreateRealmInput{Name: "acme", DisplayName: "Acme Corp"})
	require.NoError(t, err)
	assert.Equal(t, "acme", realm.Name)
	assert.Equal(t, "Acme Corp", realm.DisplayName)
	assert.Nil(t, realm.Description)
	assert.True(t, realm.IsActive)
	assert.Equal(t, alice, realm.CreatedBy)

	role := h.store.RoleByName(realm.ID, models.AdminRoleName)
	require.NotNil(t, role)
	require.NotNil(t, role.Description)
	assert.Equal(t, "Administrator role with full access to the realm", *role.Description)

	perms := h.store.PermissionsOf(role.ID)
	assert.Len(t, perms, len(models.ResourceTypes))
	for _, p := range perms {
		assert.Equal(t, realm.ID, p.RealmID)
	}

	member, err := h.repos.Grants.Exists(ctx, alice, realm.ID)
	require.NoError(t, err)
	assert.True(t, member)

	listed, err := h.realms.ListRealms(ctx, alice)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, realm.ID, listed[0].ID)

	listed, err = h.realms.ListRealms(ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestCreateRealm_Description(t *testing.T) {
	h := newHarness(t)
	alice := h.register(t, "alice")

	realm, err := h.realms.CreateRealm(context.Background(), alice, CreateRealmInput{
		Name: "acme", DisplayName: "Acme", Description: "Travel agency",
	})
	require.NoError(t, err)
	require.NotNil(t, realm.Description)
	assert.Equal(t, "Travel agency", *realm.Description)
}

func TestCreateRealm_Validation(t *testing.T) {
	h := newHarness(t)
	alice := h.register(t, "alice")

	_, err := h.realms.CreateRealm(context.Background(), alice, CreateRealmInput{DisplayName: "Acme"})
	assert.ErrorIs(t, err, apperr.ErrInvalid)

	_, err = h.realms.CreateRealm(context.Background(), alice, CreateRealmInput{Name: "acme"})
	assert.ErrorIs(t, err, apperr.ErrInvalid)
}

func TestCreateRealm_DuplicateName(t *testing.T) {
	h := newHarness(t)
	alice := h.register(t, "alice")
	h.realm(t, alice, "acme")

	_, err := h.realms.CreateRealm(context.Background(), alice, CreateRealmInput{Name: "acme", DisplayName: "Again"})
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestCreateRealm_UniqueViolationOnInsertIsConflict(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	alice := h.register(t, "alice")
	h.store.FailNext("realms.create", repository.ErrUniqueViolation)

	_, err := h.realms.CreateRealm(ctx, alice, CreateRealmInput{Name: "acme", DisplayName: "Acme Corp"})
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.ErrorContains(t, err, "realm with name 'acme' already exists")

	listed, err := h.realms.ListRealms(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestCreateRealm_AtomicWhenRoleInsertFails(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	alice := h.register(t, "alice")

	injected := errors.New("role insert failed")
	h.store.FailNext("roles.create", injected)

	_, err := h.realms.CreateRealm(ctx, alice, CreateRealmInput{Name: "acme", DisplayName: "Acme Corp"})
	require.ErrorIs(t, err, injected)

	exists, err := h.repos.Realms.ExistsByName(ctx, "acme")
	require.NoError(t, err)
	assert.False(t, exists, "realm row rolled back")

	first, err := h.repos.Grants.FirstRealm(ctx, alice)
	require.NoError(t, err)
	assert.Nil(t, first, "no grant written")

	// Nothing left behind blocks a retry.
	_, err = h.realms.CreateRealm(ctx, alice, CreateRealmInput{Name: "acme", DisplayName: "Acme Corp"})
	assert.NoError(t, err)
}

func TestCreateRealm_AtomicWhenGrantInsertFails(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	alice := h.register(t, "alice")

	h.store.FailNext("grants.create", errors.New("grant insert failed"))

	_, err := h.realms.CreateRealm(ctx, alice, CreateRealmInput{Name: "acme", DisplayName: "Acme Corp"})
	require.Error(t, err)

	exists, err := h.repos.Realms.ExistsByName(ctx, "acme")
	require.NoError(t, err)
	assert.False(t, exists)
}
