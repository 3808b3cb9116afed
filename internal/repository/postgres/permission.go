package postgres

import (
	"context"

	"github.com/lalith-99/realmhub/internal/models"
)

type PermissionStore struct {
	db DBTX
}

func NewPermissionStore(db DBTX) *PermissionStore {
	return &PermissionStore{db: db}
}

func (s *PermissionStore) Create(ctx context.Context, p *models.Permission) error {
	query := `
		INSERT INTO permissions (id, realm_id, role_id, resource_type, actions, created_at)
		VALUES ($1, $2, $3, $4, $5, now())`

	_, err := s.db.Exec(ctx, query, p.ID, p.RealmID, p.RoleID, string(p.ResourceType), p.Actions)
	if err != nil {
		return wrapErr("insert permission", err)
	}
	return nil
}
