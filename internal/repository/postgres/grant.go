package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lalith-99/realmhub/internal/models"
)

type GrantStore struct {
	db DBTX
}

func NewGrantStore(db DBTX) *GrantStore {
	return &GrantStore{db: db}
}

// Create inserts the grant. Granting the same role twice is a no-op.
func (s *GrantStore) Create(ctx context.Context, g *models.Grant) error {
	query := `
		INSERT INTO account_realm_roles (account_id, realm_id, role_id, granted_by, granted_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (account_id, realm_id, role_id) DO NOTHING`

	_, err := s.db.Exec(ctx, query, g.AccountID, g.RealmID, g.RoleID, g.GrantedBy)
	if err != nil {
		return wrapErr("insert grant", err)
	}
	return nil
}

func (s *GrantStore) Exists(ctx context.Context, accountID, realmID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM account_realm_roles
			WHERE account_id = $1 AND realm_id = $2
		)`

	var exists bool
	if err := s.db.QueryRow(ctx, query, accountID, realmID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return exists, nil
}

// FirstRealm breaks granted_at ties by realm id so the fallback is stable.
func (s *GrantStore) FirstRealm(ctx context.Context, accountID uuid.UUID) (*uuid.UUID, error) {
	query := `
		SELECT realm_id
		FROM account_realm_roles
		WHERE account_id = $1
		ORDER BY granted_at, realm_id
		LIMIT 1`

	var realmID uuid.UUID
	if err := s.db.QueryRow(ctx, query, accountID).Scan(&realmID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("first realm: %w", err)
	}
	return &realmID, nil
}
