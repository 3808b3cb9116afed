package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lalith-99/realmhub/internal/models"
)

type RealmStore struct {
	db DBTX
}

func NewRealmStore(db DBTX) *RealmStore {
	return &RealmStore{db: db}
}

const realmColumns = `id, name, display_name, description, is_active, created_by, created_at, updated_at`

func scanRealm(row pgx.Row) (*models.Realm, error) {
	var r models.Realm
	err := row.Scan(
		&r.ID,
		&r.Name,
		&r.DisplayName,
		&r.Description,
		&r.IsActive,
		&r.CreatedBy,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *RealmStore) Create(ctx context.Context, r *models.Realm) (*models.Realm, error) {
	query := `
		INSERT INTO realms (id, name, display_name, description, is_active, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		RETURNING ` + realmColumns

	created, err := scanRealm(s.db.QueryRow(ctx, query,
		r.ID, r.Name, r.DisplayName, r.Description, r.IsActive, r.CreatedBy,
	))
	if err != nil {
		return nil, wrapErr("insert realm", err)
	}
	return created, nil
}

func (s *RealmStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Realm, error) {
	query := `SELECT ` + realmColumns + ` FROM realms WHERE id = $1`

	r, err := scanRealm(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get realm: %w", err)
	}
	return r, nil
}

func (s *RealmStore) ExistsByName(ctx context.Context, name string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM realms WHERE name = $1)`

	var exists bool
	if err := s.db.QueryRow(ctx, query, name).Scan(&exists); err != nil {
		return false, fmt.Errorf("check realm exists: %w", err)
	}
	return exists, nil
}

// ListForAccount filters through a semi-join so an account holding several
// roles in one realm still sees that realm once.
func (s *RealmStore) ListForAccount(ctx context.Context, accountID uuid.UUID) ([]models.Realm, error) {
	query := `
		SELECT ` + realmColumns + `
		FROM realms r
		WHERE r.is_active
		  AND EXISTS (
			SELECT 1 FROM account_realm_roles arr
			WHERE arr.realm_id = r.id AND arr.account_id = $1
		  )
		ORDER BY r.name`

	rows, err := s.db.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("list realms: %w", err)
	}
	defer rows.Close()

	realms := make([]models.Realm, 0)
	for rows.Next() {
		r, err := scanRealm(rows)
		if err != nil {
			return nil, fmt.Errorf("scan realm: %w", err)
		}
		realms = append(realms, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate realms: %w", err)
	}

	return realms, nil
}
