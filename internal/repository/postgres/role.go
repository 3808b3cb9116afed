package postgres

import (
	"context"

	"github.com/lalith-99/realmhub/internal/models"
)

type RoleStore struct {
	db DBTX
}

func NewRoleStore(db DBTX) *RoleStore {
	return &RoleStore{db: db}
}

func (s *RoleStore) Create(ctx context.Context, role *models.Role) (*models.Role, error) {
	query := `
		INSERT INTO roles (id, realm_id, name, description, created_at)
		VALUES ($1, $2, $3, $4, now())
		RETURNING id, realm_id, name, description, created_at`

	var r models.Role
	err := s.db.QueryRow(ctx, query, role.ID, role.RealmID, role.Name, role.Description).Scan(
		&r.ID,
		&r.RealmID,
		&r.Name,
		&r.Description,
		&r.CreatedAt,
	)
	if err != nil {
		return nil, wrapErr("insert role", err)
	}
	return &r, nil
}
