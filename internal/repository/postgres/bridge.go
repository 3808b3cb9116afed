package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lalith-99/realmhub/internal/models"
	"golang.org/x/oauth2"
)

type BridgeStore struct {
	db DBTX
}

func NewBridgeStore(db DBTX) *BridgeStore {
	return &BridgeStore{db: db}
}

const bridgeColumns = `id, realm_id, bridge_type, third_provider_type, third_id, third_secret,
	access_token, refresh_token, token_expiry, oauth_scopes, api_endpoint, api_version,
	created_at, updated_at`

// bridgeRow mirrors the flat channel_bridge row; variant columns are nullable.
type bridgeRow struct {
	models.ChannelBridge
	bridgeType   string
	accessToken  *string
	refreshToken *string
	tokenExpiry  *time.Time
	scopes       []string
	apiEndpoint  *string
	apiVersion   *string
}

func scanBridge(row pgx.Row) (*models.ChannelBridge, error) {
	var r bridgeRow
	err := row.Scan(
		&r.ID,
		&r.RealmID,
		&r.bridgeType,
		&r.ProviderType,
		&r.ThirdID,
		&r.ThirdSecret,
		&r.accessToken,
		&r.refreshToken,
		&r.tokenExpiry,
		&r.scopes,
		&r.apiEndpoint,
		&r.apiVersion,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	b := r.ChannelBridge
	b.Type = models.BridgeType(r.bridgeType)
	switch b.Type {
	case models.BridgeOAuth:
		tok := oauth2.Token{
			AccessToken:  deref(r.accessToken),
			RefreshToken: deref(r.refreshToken),
		}
		if r.tokenExpiry != nil {
			tok.Expiry = *r.tokenExpiry
		}
		b.OAuth = &models.OAuthCredentials{Token: tok, Scopes: r.scopes}
	case models.BridgeAPI:
		b.API = &models.APICredentials{
			Endpoint: deref(r.apiEndpoint),
			Version:  deref(r.apiVersion),
		}
	}
	return &b, nil
}

// Create flattens the variant into its columns; the columns of the other
// variant are written as NULL.
func (s *BridgeStore) Create(ctx context.Context, b *models.ChannelBridge) (*models.ChannelBridge, error) {
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("insert bridge: %w", err)
	}

	var (
		accessToken, refreshToken, apiEndpoint, apiVersion *string
		tokenExpiry                                        *time.Time
		scopes                                             []string
	)
	if b.OAuth != nil {
		accessToken = nullable(b.OAuth.Token.AccessToken)
		refreshToken = nullable(b.OAuth.Token.RefreshToken)
		if !b.OAuth.Token.Expiry.IsZero() {
			expiry := b.OAuth.Token.Expiry
			tokenExpiry = &expiry
		}
		if len(b.OAuth.Scopes) > 0 {
			scopes = b.OAuth.Scopes
		}
	}
	if b.API != nil {
		apiEndpoint = nullable(b.API.Endpoint)
		apiVersion = nullable(b.API.Version)
	}

	query := `
		INSERT INTO channel_bridge (id, realm_id, bridge_type, third_provider_type, third_id, third_secret,
			access_token, refresh_token, token_expiry, oauth_scopes, api_endpoint, api_version,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, now(), now())
		RETURNING ` + bridgeColumns

	created, err := scanBridge(s.db.QueryRow(ctx, query,
		b.ID, b.RealmID, string(b.Type), b.ProviderType, b.ThirdID, b.ThirdSecret,
		accessToken, refreshToken, tokenExpiry, scopes, apiEndpoint, apiVersion,
	))
	if err != nil {
		return nil, wrapErr("insert bridge", err)
	}
	return created, nil
}

func (s *BridgeStore) GetByID(ctx context.Context, id uuid.UUID) (*models.ChannelBridge, error) {
	query := `SELECT ` + bridgeColumns + ` FROM channel_bridge WHERE id = $1`

	b, err := scanBridge(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get bridge: %w", err)
	}
	return b, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
