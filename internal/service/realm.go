package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lalith-99/realmhub/internal/apperr"
	"github.com/lalith-99/realmhub/internal/models"
	"github.com/lalith-99/realmhub/internal/repository"
	"go.uber.org/zap"
)

const adminRoleDescription = "Administrator role with full access to the realm"

// adminActions is the action set written for every resource type when a
// realm's admin role is created.
var adminActions = []string{"create", "read", "update", "delete"}

type RealmService struct {
	realms repository.RealmRepository
	tx     repository.Transactor
	logger *zap.Logger
}

func NewRealmService(repos repository.Repositories, tx repository.Transactor, logger *zap.Logger) *RealmService {
	return &RealmService{realms: repos.Realms, tx: tx, logger: logger}
}

// ListRealms returns the active realms the account holds any role in.
func (s *RealmService) ListRealms(ctx context.Context, accountID uuid.UUID) ([]models.Realm, error) {
	return s.realms.ListForAccount(ctx, accountID)
}

type CreateRealmInput struct {
	Name        string
	DisplayName string
	Description string
}

// CreateRealm inserts the realm, its admin role with default permissions and
// the creator's grant of that role in one transaction. Either all of them
// exist afterwards or none do.
func (s *RealmService) CreateRealm(ctx context.Context, accountID uuid.UUID, in CreateRealmInput) (*models.Realm, error) {
	name := strings.TrimSpace(in.Name)
	displayName := strings.TrimSpace(in.DisplayName)
	if name == "" || displayName == "" {
		return nil, fmt.Errorf("%w: name and display_name are required", apperr.ErrInvalid)
	}

	exists, err := s.realms.ExistsByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: realm with name '%s' already exists", apperr.ErrConflict, name)
	}

	var created *models.Realm
	err = s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		realmID, err := newID()
		if err != nil {
			return err
		}
		realm, err := repos.Realms.Create(ctx, &models.Realm{
			ID:          realmID,
			Name:        name,
			DisplayName: displayName,
			Description: optionalText(in.Description),
			IsActive:    true,
			CreatedBy:   accountID,
		})
		if err != nil {
			return err
		}

		roleID, err := newID()
		if err != nil {
			return err
		}
		description := adminRoleDescription
		role, err := repos.Roles.Create(ctx, &models.Role{
			ID:          roleID,
			RealmID:     realm.ID,
			Name:        models.AdminRoleName,
			Description: &description,
		})
		if err != nil {
			return err
		}

		for _, resource := range models.ResourceTypes {
			permID, err := newID()
			if err != nil {
				return err
			}
			if err := repos.Permissions.Create(ctx, &models.Permission{
				ID:           permID,
				RealmID:      realm.ID,
				RoleID:       role.ID,
				ResourceType: resource,
				Actions:      adminActions,
			}); err != nil {
				return err
			}
		}

		grantedBy := accountID
		if err := repos.Grants.Create(ctx, &models.Grant{
			AccountID: accountID,
			RealmID:   realm.ID,
			RoleID:    role.ID,
			GrantedBy: &grantedBy,
		}); err != nil {
			return err
		}

		created = realm
		return nil
	})
	if err != nil {
		return nil, conflictOr(fmt.Errorf("create realm: %w", err), fmt.Sprintf("realm with name '%s' already exists", name))
	}

	s.logger.Info("realm created",
		zap.String("realm_id", created.ID.String()),
		zap.String("name", created.Name),
		zap.String("created_by", accountID.String()),
	)
	return created, nil
}
