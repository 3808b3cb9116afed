package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/realmhub/internal/models"
)

// Response messages render absent optional values as "" and timestamps as
// RFC 3339, the way the generated clients expect them.

type accountDTO struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	CreatedAt string `json:"created_at"`
}

func toAccount(a *models.Account) *accountDTO {
	if a == nil {
		return nil
	}
	return &accountDTO{
		ID:        a.ID.String(),
		Email:     a.Email,
		Username:  a.Username,
		CreatedAt: timestamp(a.CreatedAt),
	}
}

type realmDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
	IsActive    bool   `json:"is_active"`
	CreatedAt   string `json:"created_at"`
}

func toRealm(r *models.Realm) *realmDTO {
	if r == nil {
		return nil
	}
	return &realmDTO{
		ID:          r.ID.String(),
		Name:        r.Name,
		DisplayName: r.DisplayName,
		Description: text(r.Description),
		IsActive:    r.IsActive,
		CreatedAt:   timestamp(r.CreatedAt),
	}
}

func toRealms(rs []models.Realm) []realmDTO {
	out := make([]realmDTO, 0, len(rs))
	for i := range rs {
		out = append(out, *toRealm(&rs[i]))
	}
	return out
}

// bridgeDTO never carries the third-party secret or tokens.
type bridgeDTO struct {
	ID                string   `json:"id"`
	BridgeType        string   `json:"bridge_type"`
	ThirdProviderType string   `json:"third_provider_type"`
	ThirdID           string   `json:"third_id"`
	TokenExpiry       string   `json:"token_expiry"`
	OAuthScopes       []string `json:"oauth_scopes"`
	APIEndpoint       string   `json:"api_endpoint"`
	APIVersion        string   `json:"api_version"`
	CreatedAt         string   `json:"created_at"`
	UpdatedAt         string   `json:"updated_at"`
}

func toBridge(b *models.ChannelBridge) *bridgeDTO {
	if b == nil {
		return nil
	}
	out := &bridgeDTO{
		ID:                b.ID.String(),
		BridgeType:        string(b.Type),
		ThirdProviderType: b.ProviderType,
		ThirdID:           b.ThirdID,
		OAuthScopes:       []string{},
		CreatedAt:         timestamp(b.CreatedAt),
		UpdatedAt:         timestamp(b.UpdatedAt),
	}
	if b.OAuth != nil {
		if !b.OAuth.Token.Expiry.IsZero() {
			out.TokenExpiry = timestamp(b.OAuth.Token.Expiry)
		}
		if len(b.OAuth.Scopes) > 0 {
			out.OAuthScopes = b.OAuth.Scopes
		}
	}
	if b.API != nil {
		out.APIEndpoint = b.API.Endpoint
		out.APIVersion = b.API.Version
	}
	return out
}

type botDTO struct {
	ID                   string     `json:"id"`
	RealmID              string     `json:"realm_id"`
	Name                 string     `json:"name"`
	DisplayName          string     `json:"display_name"`
	Description          string     `json:"description"`
	APIChannelBridgeID   string     `json:"api_channel_bridge_id"`
	OAuthChannelBridgeID string     `json:"oauth_channel_bridge_id"`
	APIChannelBridge     *bridgeDTO `json:"api_channel_bridge,omitempty"`
	OAuthChannelBridge   *bridgeDTO `json:"oauth_channel_bridge,omitempty"`
	IsActive             bool       `json:"is_active"`
	Capabilities         []string   `json:"capabilities"`
	CreatedAt            string     `json:"created_at"`
	UpdatedAt            string     `json:"updated_at"`
}

func toBot(b *models.Bot) *botDTO {
	if b == nil {
		return nil
	}
	caps := b.Capabilities
	if caps == nil {
		caps = []string{}
	}
	return &botDTO{
		ID:                   b.ID.String(),
		RealmID:              b.RealmID.String(),
		Name:                 b.Name,
		DisplayName:          b.DisplayName,
		Description:          text(b.Description),
		APIChannelBridgeID:   idText(b.APIBridgeID),
		OAuthChannelBridgeID: idText(b.OAuthBridgeID),
		IsActive:             b.IsActive,
		Capabilities:         caps,
		CreatedAt:            timestamp(b.CreatedAt),
		UpdatedAt:            timestamp(b.UpdatedAt),
	}
}

func toBots(bs []models.Bot) []botDTO {
	out := make([]botDTO, 0, len(bs))
	for i := range bs {
		out = append(out, *toBot(&bs[i]))
	}
	return out
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func text(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func idText(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
