package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/realmhub/internal/access"
	"github.com/lalith-99/realmhub/internal/apperr"
	"github.com/lalith-99/realmhub/internal/models"
	"github.com/lalith-99/realmhub/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// BridgeInput describes a channel bridge to create alongside a bot.
// Only the fields of BridgeType's variant may be set.
type BridgeInput struct {
	BridgeType   string
	ProviderType string
	ThirdID      string
	ThirdSecret  string

	AccessToken  string
	RefreshToken string
	TokenExpiry  string // RFC 3339
	OAuthScopes  []string

	APIEndpoint string
	APIVersion  string
}

type CreateBotInput struct {
	RealmID      string
	Name         string
	DisplayName  string
	Description  string
	APIBridge    *BridgeInput
	OAuthBridge  *BridgeInput
	IsActive     *bool // nil means active
	Capabilities []string
}

// BotPatch lists the fields UpdateBot may change. A nil field is left as is.
//
// An empty Name or DisplayName is also left as is. An empty Description
// clears it. A bridge id of "" detaches that bridge and a uuid attaches an
// existing bridge of the caller's realm. A non-nil Capabilities replaces the
// whole list; an empty one clears it.
type BotPatch struct {
	RealmID       string
	Name          *string
	DisplayName   *string
	Description   *string
	APIBridgeID   *string
	OAuthBridgeID *string
	IsActive      *bool
	Capabilities  *[]string
}

// BotDetail is a bot with its bridges loaded.
type BotDetail struct {
	Bot         *models.Bot
	APIBridge   *models.ChannelBridge
	OAuthBridge *models.ChannelBridge
}

type BotService struct {
	resolver *access.Resolver
	realms   repository.RealmRepository
	bots     repository.BotRepository
	bridges  repository.BridgeRepository
	tx       repository.Transactor
	logger   *zap.Logger
}

func NewBotService(resolver *access.Resolver, repos repository.Repositories, tx repository.Transactor, logger *zap.Logger) *BotService {
	return &BotService{
		resolver: resolver,
		realms:   repos.Realms,
		bots:     repos.Bots,
		bridges:  repos.Bridges,
		tx:       tx,
		logger:   logger,
	}
}

func (s *BotService) realm(ctx context.Context, id access.Identity, realmID string) (uuid.UUID, error) {
	requested, err := access.ParseRealmID(realmID)
	if err != nil {
		return uuid.Nil, err
	}
	return s.resolver.ResolveRealm(ctx, id, requested)
}

// ensureActive rejects writes into a deactivated realm. Its bots stay
// readable and deletable.
func (s *BotService) ensureActive(ctx context.Context, realmID uuid.UUID) error {
	realm, err := s.realms.GetByID(ctx, realmID)
	if err != nil {
		return err
	}
	if realm == nil {
		return fmt.Errorf("%w: realm %s", apperr.ErrNotFound, realmID)
	}
	if !realm.IsActive {
		return fmt.Errorf("%w: realm '%s' is inactive", apperr.ErrForbidden, realm.Name)
	}
	return nil
}

// CreateBot inserts the given bridges and then the bot referencing them in
// one transaction.
func (s *BotService) CreateBot(ctx context.Context, id access.Identity, in CreateBotInput) (*models.Bot, error) {
	realmID, err := s.realm(ctx, id, in.RealmID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureActive(ctx, realmID); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	displayName := strings.TrimSpace(in.DisplayName)
	if name == "" || displayName == "" {
		return nil, fmt.Errorf("%w: name and display_name are required", apperr.ErrInvalid)
	}
	if in.APIBridge == nil && in.OAuthBridge == nil {
		return nil, fmt.Errorf("%w: at least one channel bridge (API or OAuth) is required", apperr.ErrInvalid)
	}

	var apiBridge, oauthBridge *models.ChannelBridge
	if in.APIBridge != nil {
		if apiBridge, err = buildBridge(realmID, models.BridgeAPI, in.APIBridge); err != nil {
			return nil, err
		}
	}
	if in.OAuthBridge != nil {
		if oauthBridge, err = buildBridge(realmID, models.BridgeOAuth, in.OAuthBridge); err != nil {
			return nil, err
		}
	}

	exists, err := s.bots.ExistsByName(ctx, realmID, name, nil)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: bot name '%s' already exists in this realm", apperr.ErrConflict, name)
	}

	botID, err := newID()
	if err != nil {
		return nil, err
	}
	bot := &models.Bot{
		ID:           botID,
		RealmID:      realmID,
		Name:         name,
		DisplayName:  displayName,
		Description:  optionalText(in.Description),
		IsActive:     in.IsActive == nil || *in.IsActive,
		Capabilities: in.Capabilities,
	}

	var created *models.Bot
	err = s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		for _, b := range []*models.ChannelBridge{apiBridge, oauthBridge} {
			if b == nil {
				continue
			}
			if _, err := repos.Bridges.Create(ctx, b); err != nil {
				return conflictOr(err, fmt.Sprintf("channel bridge %s/%s is already registered", b.ProviderType, b.ThirdID))
			}
		}
		if apiBridge != nil {
			bot.APIBridgeID = &apiBridge.ID
		}
		if oauthBridge != nil {
			bot.OAuthBridgeID = &oauthBridge.ID
		}

		var err error
		created, err = repos.Bots.Create(ctx, bot)
		return conflictOr(err, fmt.Sprintf("bot name '%s' already exists in this realm", name))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("bot created",
		zap.String("bot_id", created.ID.String()),
		zap.String("realm_id", realmID.String()),
	)
	return created, nil
}

// UpdateBot applies patch to a bot of the caller's realm. A patch that would
// leave the bot without any bridge is rejected and nothing is written.
func (s *BotService) UpdateBot(ctx context.Context, id access.Identity, botID string, patch BotPatch) (*models.Bot, error) {
	bot, err := s.loadOwned(ctx, id, patch.RealmID, botID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureActive(ctx, bot.RealmID); err != nil {
		return nil, err
	}

	if patch.Name != nil {
		if name := strings.TrimSpace(*patch.Name); name != "" && name != bot.Name {
			exists, err := s.bots.ExistsByName(ctx, bot.RealmID, name, &bot.ID)
			if err != nil {
				return nil, err
			}
			if exists {
				return nil, fmt.Errorf("%w: bot name '%s' already exists in this realm", apperr.ErrConflict, name)
			}
			bot.Name = name
		}
	}
	if patch.DisplayName != nil {
		if displayName := strings.TrimSpace(*patch.DisplayName); displayName != "" {
			bot.DisplayName = displayName
		}
	}
	if patch.Description != nil {
		bot.Description = optionalText(*patch.Description)
	}
	if patch.IsActive != nil {
		bot.IsActive = *patch.IsActive
	}
	if patch.Capabilities != nil {
		bot.Capabilities = append([]string{}, (*patch.Capabilities)...)
	}

	if patch.APIBridgeID != nil {
		if bot.APIBridgeID, err = s.attachBridge(ctx, bot.RealmID, models.BridgeAPI, *patch.APIBridgeID); err != nil {
			return nil, err
		}
	}
	if patch.OAuthBridgeID != nil {
		if bot.OAuthBridgeID, err = s.attachBridge(ctx, bot.RealmID, models.BridgeOAuth, *patch.OAuthBridgeID); err != nil {
			return nil, err
		}
	}
	if !bot.HasBridge() {
		return nil, fmt.Errorf("%w: at least one channel bridge (API or OAuth) must remain", apperr.ErrInvalid)
	}

	updated, err := s.bots.Update(ctx, bot)
	if err != nil {
		return nil, conflictOr(err, fmt.Sprintf("bot name '%s' already exists in this realm", bot.Name))
	}
	if updated == nil {
		return nil, fmt.Errorf("%w: bot %s", apperr.ErrNotFound, bot.ID)
	}
	return updated, nil
}

// attachBridge resolves a bridge id from a patch. "" detaches.
func (s *BotService) attachBridge(ctx context.Context, realmID uuid.UUID, kind models.BridgeType, raw string) (*uuid.UUID, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	field := string(kind) + "_channel_bridge_id"
	bridgeID, err := parseID(field, raw)
	if err != nil {
		return nil, err
	}
	bridge, err := s.bridges.GetByID(ctx, bridgeID)
	if err != nil {
		return nil, err
	}
	if bridge == nil || bridge.RealmID != realmID {
		return nil, fmt.Errorf("%w: %s channel bridge %s not found", apperr.ErrInvalid, kind, bridgeID)
	}
	if bridge.Type != kind {
		return nil, fmt.Errorf("%w: channel bridge %s is of type %s, not %s", apperr.ErrInvalid, bridgeID, bridge.Type, kind)
	}
	return &bridgeID, nil
}

// DeleteBot removes a bot of the caller's realm. Its bridges are kept.
func (s *BotService) DeleteBot(ctx context.Context, id access.Identity, realmID, botID string) error {
	bot, err := s.loadOwned(ctx, id, realmID, botID)
	if err != nil {
		return err
	}
	if err := s.bots.Delete(ctx, bot.ID); err != nil {
		return err
	}
	s.logger.Info("bot deleted",
		zap.String("bot_id", bot.ID.String()),
		zap.String("realm_id", bot.RealmID.String()),
	)
	return nil
}

// ListBots returns the bots of the resolved realm ordered by name.
func (s *BotService) ListBots(ctx context.Context, id access.Identity, realmID string) ([]models.Bot, error) {
	realm, err := s.realm(ctx, id, realmID)
	if err != nil {
		return nil, err
	}
	return s.bots.ListByRealm(ctx, realm)
}

// GetBot loads a bot of the caller's realm together with its bridges.
func (s *BotService) GetBot(ctx context.Context, id access.Identity, realmID, botID string) (*BotDetail, error) {
	bot, err := s.loadOwned(ctx, id, realmID, botID)
	if err != nil {
		return nil, err
	}
	detail := &BotDetail{Bot: bot}
	if bot.APIBridgeID != nil {
		if detail.APIBridge, err = s.bridges.GetByID(ctx, *bot.APIBridgeID); err != nil {
			return nil, err
		}
	}
	if bot.OAuthBridgeID != nil {
		if detail.OAuthBridge, err = s.bridges.GetByID(ctx, *bot.OAuthBridgeID); err != nil {
			return nil, err
		}
	}
	return detail, nil
}

// loadOwned resolves the caller's realm and loads the bot, which must live
// in that realm.
func (s *BotService) loadOwned(ctx context.Context, id access.Identity, realmID, botID string) (*models.Bot, error) {
	realm, err := s.realm(ctx, id, realmID)
	if err != nil {
		return nil, err
	}
	parsed, err := parseID("bot id", botID)
	if err != nil {
		return nil, err
	}
	bot, err := s.bots.GetByID(ctx, parsed)
	if err != nil {
		return nil, err
	}
	if bot == nil {
		return nil, fmt.Errorf("%w: bot %s", apperr.ErrNotFound, parsed)
	}
	if bot.RealmID != realm {
		return nil, fmt.Errorf("%w: bot %s belongs to another realm", apperr.ErrForbidden, parsed)
	}
	return bot, nil
}

// buildBridge validates in against the slot it was given for and turns it
// into a bridge row of realmID.
func buildBridge(realmID uuid.UUID, slot models.BridgeType, in *BridgeInput) (*models.ChannelBridge, error) {
	kind := models.BridgeType(strings.TrimSpace(in.BridgeType))
	if kind == "" {
		kind = slot
	}
	if kind != models.BridgeOAuth && kind != models.BridgeAPI {
		return nil, fmt.Errorf("%w: invalid bridge_type %q: must be 'oauth' or 'api'", apperr.ErrInvalid, in.BridgeType)
	}
	if kind != slot {
		return nil, fmt.Errorf("%w: %s channel bridge has bridge_type %q", apperr.ErrInvalid, slot, kind)
	}
	if in.ProviderType != models.ProviderLine {
		return nil, fmt.Errorf("%w: unsupported third_provider_type %q", apperr.ErrInvalid, in.ProviderType)
	}
	if strings.TrimSpace(in.ThirdID) == "" || in.ThirdSecret == "" {
		return nil, fmt.Errorf("%w: third_id and third_secret are required", apperr.ErrInvalid)
	}

	id, err := newID()
	if err != nil {
		return nil, err
	}
	b := &models.ChannelBridge{
		ID:           id,
		RealmID:      realmID,
		Type:         kind,
		ProviderType: in.ProviderType,
		ThirdID:      strings.TrimSpace(in.ThirdID),
		ThirdSecret:  in.ThirdSecret,
	}

	switch kind {
	case models.BridgeOAuth:
		if in.APIEndpoint != "" || in.APIVersion != "" {
			return nil, fmt.Errorf("%w: api fields set on an oauth bridge", apperr.ErrInvalid)
		}
		tok := oauth2.Token{AccessToken: in.AccessToken, RefreshToken: in.RefreshToken}
		if in.TokenExpiry != "" {
			expiry, err := time.Parse(time.RFC3339, in.TokenExpiry)
			if err != nil {
				return nil, fmt.Errorf("%w: token_expiry %q is not an RFC 3339 timestamp", apperr.ErrInvalid, in.TokenExpiry)
			}
			tok.Expiry = expiry.UTC()
		}
		b.OAuth = &models.OAuthCredentials{Token: tok, Scopes: in.OAuthScopes}
	case models.BridgeAPI:
		if in.AccessToken != "" || in.RefreshToken != "" || in.TokenExpiry != "" || len(in.OAuthScopes) > 0 {
			return nil, fmt.Errorf("%w: oauth fields set on an api bridge", apperr.ErrInvalid)
		}
		b.API = &models.APICredentials{Endpoint: in.APIEndpoint, Version: in.APIVersion}
	}
	return b, b.Validate()
}
