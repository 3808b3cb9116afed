package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/lalith-99/realmhub/internal/models"
)

// Constraint failures reported by the database. The managers translate
// ErrUniqueViolation into a Conflict; it is the authoritative guard against
// two concurrent creations passing the same existence pre-check.
var (
	ErrUniqueViolation     = errors.New("unique constraint violation")
	ErrForeignKeyViolation = errors.New("foreign key violation")
	ErrCheckViolation      = errors.New("check constraint violation")
)

// Lookups return nil, nil when the row does not exist.

type AccountRepository interface {
	// Create inserts a; ID must already be set. CreatedAt/UpdatedAt come back populated.
	Create(ctx context.Context, a *models.Account) (*models.Account, error)

	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)

	// GetByEmail is the login lookup. Username login is not supported.
	GetByEmail(ctx context.Context, email string) (*models.Account, error)

	// ExistsByEmailOrUsername is the advisory registration pre-check.
	ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error)

	// TouchLastLogin stamps last_login_at with the database clock.
	TouchLastLogin(ctx context.Context, id uuid.UUID) error
}

type RealmRepository interface {
	Create(ctx context.Context, r *models.Realm) (*models.Realm, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Realm, error)
	ExistsByName(ctx context.Context, name string) (bool, error)

	// ListForAccount returns each active realm the account holds any role in,
	// once, ordered by name. Returns an empty slice, never nil.
	ListForAccount(ctx context.Context, accountID uuid.UUID) ([]models.Realm, error)
}

type RoleRepository interface {
	Create(ctx context.Context, role *models.Role) (*models.Role, error)
}

type PermissionRepository interface {
	Create(ctx context.Context, p *models.Permission) error
}

// GrantRepository reads and writes account_realm_roles. Membership checks on
// the hot path go through Exists and FirstRealm.
type GrantRepository interface {
	Create(ctx context.Context, g *models.Grant) error

	// Exists reports whether the account holds any role in the realm.
	Exists(ctx context.Context, accountID, realmID uuid.UUID) (bool, error)

	// FirstRealm returns the realm of the account's earliest grant, or nil
	// when the account is not a member of any realm.
	FirstRealm(ctx context.Context, accountID uuid.UUID) (*uuid.UUID, error)
}

type BridgeRepository interface {
	Create(ctx context.Context, b *models.ChannelBridge) (*models.ChannelBridge, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.ChannelBridge, error)
}

type BotRepository interface {
	Create(ctx context.Context, b *models.Bot) (*models.Bot, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Bot, error)

	// ExistsByName checks name uniqueness inside a realm. exclude, when set,
	// is left out of the check so a bot does not collide with itself.
	ExistsByName(ctx context.Context, realmID uuid.UUID, name string, exclude *uuid.UUID) (bool, error)

	ListByRealm(ctx context.Context, realmID uuid.UUID) ([]models.Bot, error)

	// Update writes every mutable column of b and returns the stored row,
	// or nil when no bot with b.ID exists in b.RealmID.
	Update(ctx context.Context, b *models.Bot) (*models.Bot, error)

	Delete(ctx context.Context, id uuid.UUID) error
}

// Repositories is one consistent set of stores. Inside WithinTx every member
// is bound to the same transaction.
type Repositories struct {
	Accounts    AccountRepository
	Realms      RealmRepository
	Roles       RoleRepository
	Permissions PermissionRepository
	Grants      GrantRepository
	Bridges     BridgeRepository
	Bots        BotRepository
}

// Transactor runs fn inside one transaction. It commits when fn returns nil
// and rolls back every write otherwise.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
