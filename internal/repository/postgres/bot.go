package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lalith-99/realmhub/internal/models"
)

type BotStore struct {
	db DBTX
}

func NewBotStore(db DBTX) *BotStore {
	return &BotStore{db: db}
}

const botColumns = `id, realm_id, name, display_name, description,
	api_channel_bridge_id, oauth_channel_bridge_id, is_active, capabilities,
	created_at, updated_at`

func scanBot(row pgx.Row) (*models.Bot, error) {
	var b models.Bot
	err := row.Scan(
		&b.ID,
		&b.RealmID,
		&b.Name,
		&b.DisplayName,
		&b.Description,
		&b.APIBridgeID,
		&b.OAuthBridgeID,
		&b.IsActive,
		&b.Capabilities,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if b.Capabilities == nil {
		b.Capabilities = []string{}
	}
	return &b, nil
}

// capabilitiesArg stores an empty list as NULL.
func capabilitiesArg(c []string) []string {
	if len(c) == 0 {
		return nil
	}
	return c
}

func (s *BotStore) Create(ctx context.Context, b *models.Bot) (*models.Bot, error) {
	query := `
		INSERT INTO bots (id, realm_id, name, display_name, description,
			api_channel_bridge_id, oauth_channel_bridge_id, is_active, capabilities,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
		RETURNING ` + botColumns

	created, err := scanBot(s.db.QueryRow(ctx, query,
		b.ID, b.RealmID, b.Name, b.DisplayName, b.Description,
		b.APIBridgeID, b.OAuthBridgeID, b.IsActive, capabilitiesArg(b.Capabilities),
	))
	if err != nil {
		return nil, wrapErr("insert bot", err)
	}
	return created, nil
}

func (s *BotStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Bot, error) {
	query := `SELECT ` + botColumns + ` FROM bots WHERE id = $1`

	b, err := scanBot(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get bot: %w", err)
	}
	return b, nil
}

func (s *BotStore) ExistsByName(ctx context.Context, realmID uuid.UUID, name string, exclude *uuid.UUID) (bool, error) {
	// $3 is NULL when nothing is excluded; id <> NULL would hide every row.
	query := `
		SELECT EXISTS (
			SELECT 1 FROM bots
			WHERE realm_id = $1 AND name = $2
			  AND ($3::uuid IS NULL OR id <> $3)
		)`

	var exists bool
	if err := s.db.QueryRow(ctx, query, realmID, name, exclude).Scan(&exists); err != nil {
		return false, fmt.Errorf("check bot exists: %w", err)
	}
	return exists, nil
}

func (s *BotStore) ListByRealm(ctx context.Context, realmID uuid.UUID) ([]models.Bot, error) {
	query := `
		SELECT ` + botColumns + `
		FROM bots
		WHERE realm_id = $1
		ORDER BY name`

	rows, err := s.db.Query(ctx, query, realmID)
	if err != nil {
		return nil, fmt.Errorf("list bots: %w", err)
	}
	defer rows.Close()

	bots := make([]models.Bot, 0)
	for rows.Next() {
		b, err := scanBot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bot: %w", err)
		}
		bots = append(bots, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bots: %w", err)
	}

	return bots, nil
}

// Update rewrites every mutable column. realm_id is immutable and part of
// the WHERE clause so a bot can never move between realms.
func (s *BotStore) Update(ctx context.Context, b *models.Bot) (*models.Bot, error) {
	query := `
		UPDATE bots
		SET name = $3,
		    display_name = $4,
		    description = $5,
		    api_channel_bridge_id = $6,
		    oauth_channel_bridge_id = $7,
		    is_active = $8,
		    capabilities = $9,
		    updated_at = now()
		WHERE id = $1 AND realm_id = $2
		RETURNING ` + botColumns

	updated, err := scanBot(s.db.QueryRow(ctx, query,
		b.ID, b.RealmID, b.Name, b.DisplayName, b.Description,
		b.APIBridgeID, b.OAuthBridgeID, b.IsActive, capabilitiesArg(b.Capabilities),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapErr("update bot", err)
	}
	return updated, nil
}

// Delete is idempotent: deleting a missing bot affects zero rows.
func (s *BotStore) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM bots WHERE id = $1`, id); err != nil {
		return wrapErr("delete bot", err)
	}
	return nil
}
