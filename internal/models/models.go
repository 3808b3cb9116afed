package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// Account is a login identity. Accounts are realm-independent: one account
// can hold roles in many realms.
//
// PasswordHash is nil for federated-only accounts; such accounts can never
// log in with a password.
type Account struct {
	ID            uuid.UUID  `json:"id"`
	Username      string     `json:"username"`
	Email         string     `json:"email"`
	PasswordHash  *string    `json:"-"`
	EmailVerified bool       `json:"email_verified"`
	IsActive      bool       `json:"is_active"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
}

// Realm is the tenant boundary. It owns roles, grants, bridges and bots;
// deleting a realm cascades to all of them.
type Realm struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	DisplayName string    `json:"display_name"`
	Description *string   `json:"description,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedBy   uuid.UUID `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AdminRoleName is the role every realm is created with.
const AdminRoleName = "admin"

// Role is a named permission bundle scoped to one realm.
type Role struct {
	ID          uuid.UUID `json:"id"`
	RealmID     uuid.UUID `json:"realm_id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Grant links an account to a role within a realm (account_realm_roles).
// An account is a member of a realm when it holds at least one grant there.
type Grant struct {
	AccountID uuid.UUID  `json:"account_id"`
	RealmID   uuid.UUID  `json:"realm_id"`
	RoleID    uuid.UUID  `json:"role_id"`
	GrantedBy *uuid.UUID `json:"granted_by,omitempty"`
	GrantedAt time.Time  `json:"granted_at"`
}

// ResourceType is what a permission row applies to.
type ResourceType string

const (
	ResourceBot     ResourceType = "bot"
	ResourceTrip    ResourceType = "trip"
	ResourceProfile ResourceType = "profile"
	ResourceChat    ResourceType = "chat"
	ResourceRealm   ResourceType = "realm"
)

// ResourceTypes lists every value accepted by the permissions CHECK constraint.
var ResourceTypes = []ResourceType{ResourceBot, ResourceTrip, ResourceProfile, ResourceChat, ResourceRealm}

// Permission grants a set of actions on one resource type to a role.
type Permission struct {
	ID           uuid.UUID    `json:"id"`
	RealmID      uuid.UUID    `json:"realm_id"`
	RoleID       uuid.UUID    `json:"role_id"`
	ResourceType ResourceType `json:"resource_type"`
	Actions      []string     `json:"actions"`
	CreatedAt    time.Time    `json:"created_at"`
}

// BridgeType tags which credential variant a ChannelBridge carries.
type BridgeType string

const (
	BridgeOAuth BridgeType = "oauth"
	BridgeAPI   BridgeType = "api"
)

// ProviderLine is the only third-party provider the schema accepts today.
const ProviderLine = "line"

// OAuthCredentials is the oauth variant of a bridge.
type OAuthCredentials struct {
	Token  oauth2.Token `json:"-"`
	Scopes []string     `json:"scopes,omitempty"`
}

// APICredentials is the api variant of a bridge.
type APICredentials struct {
	Endpoint string `json:"endpoint,omitempty"`
	Version  string `json:"version,omitempty"`
}

// ChannelBridge is a stored third-party channel credential a bot talks
// through. Exactly one of OAuth and API is set, matching Type.
type ChannelBridge struct {
	ID           uuid.UUID         `json:"id"`
	RealmID      uuid.UUID         `json:"realm_id"`
	Type         BridgeType        `json:"bridge_type"`
	ProviderType string            `json:"third_provider_type"`
	ThirdID      string            `json:"third_id"`
	ThirdSecret  string            `json:"-"`
	OAuth        *OAuthCredentials `json:"oauth,omitempty"`
	API          *APICredentials   `json:"api,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

var ErrBridgeVariant = errors.New("bridge credentials do not match bridge type")

// Validate checks the tagged-union invariant.
func (b *ChannelBridge) Validate() error {
	switch b.Type {
	case BridgeOAuth:
		if b.OAuth == nil || b.API != nil {
			return fmt.Errorf("%w: %s", ErrBridgeVariant, b.Type)
		}
	case BridgeAPI:
		if b.API == nil || b.OAuth != nil {
			return fmt.Errorf("%w: %s", ErrBridgeVariant, b.Type)
		}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrBridgeVariant, b.Type)
	}
	return nil
}

// Bot belongs to one realm and reaches its channel through at most one API
// bridge and at most one OAuth bridge. At least one of the two is always set.
type Bot struct {
	ID            uuid.UUID  `json:"id"`
	RealmID       uuid.UUID  `json:"realm_id"`
	Name          string     `json:"name"`
	DisplayName   string     `json:"display_name"`
	Description   *string    `json:"description,omitempty"`
	APIBridgeID   *uuid.UUID `json:"api_channel_bridge_id,omitempty"`
	OAuthBridgeID *uuid.UUID `json:"oauth_channel_bridge_id,omitempty"`
	IsActive      bool       `json:"is_active"`
	Capabilities  []string   `json:"capabilities"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// HasBridge reports whether the bot satisfies the one-bridge invariant.
func (b *Bot) HasBridge() bool {
	return b.APIBridgeID != nil || b.OAuthBridgeID != nil
}
