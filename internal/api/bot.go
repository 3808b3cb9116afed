package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/realmhub/internal/middleware"
	"github.com/lalith-99/realmhub/internal/observ"
	"github.com/lalith-99/realmhub/internal/service"
	"go.uber.org/zap"
)

// BotHandler serves bot.BotService. Every RPC is authenticated; realm_id
// is optional and falls back to the token's realm, then the caller's first.
type BotHandler struct {
	bots    *service.BotService
	metrics *observ.Metrics
	logger  *zap.Logger
}

func NewBotHandler(bots *service.BotService, metrics *observ.Metrics, logger *zap.Logger) *BotHandler {
	return &BotHandler{bots: bots, metrics: metrics, logger: logger}
}

type channelBridgeInput struct {
	BridgeType        string   `json:"bridge_type"`
	ThirdProviderType string   `json:"third_provider_type"`
	ThirdID           string   `json:"third_id"`
	ThirdSecret       string   `json:"third_secret"`
	AccessToken       string   `json:"access_token"`
	RefreshToken      string   `json:"refresh_token"`
	TokenExpiry       string   `json:"token_expiry"`
	OAuthScopes       []string `json:"oauth_scopes"`
	APIEndpoint       string   `json:"api_endpoint"`
	APIVersion        string   `json:"api_version"`
}

func (in *channelBridgeInput) toService() *service.BridgeInput {
	if in == nil {
		return nil
	}
	return &service.BridgeInput{
		BridgeType:   in.BridgeType,
		ProviderType: in.ThirdProviderType,
		ThirdID:      in.ThirdID,
		ThirdSecret:  in.ThirdSecret,
		AccessToken:  in.AccessToken,
		RefreshToken: in.RefreshToken,
		TokenExpiry:  in.TokenExpiry,
		OAuthScopes:  in.OAuthScopes,
		APIEndpoint:  in.APIEndpoint,
		APIVersion:   in.APIVersion,
	}
}

type createBotRequest struct {
	RealmID            string              `json:"realm_id"`
	Name               string              `json:"name"`
	DisplayName        string              `json:"display_name"`
	Description        string              `json:"description"`
	APIChannelBridge   *channelBridgeInput `json:"api_channel_bridge"`
	OAuthChannelBridge *channelBridgeInput `json:"oauth_channel_bridge"`
	IsActive           *bool               `json:"is_active"`
	Capabilities       []string            `json:"capabilities"`
}

// updateBotRequest uses pointers so an absent field can be told apart from
// an empty one.
type updateBotRequest struct {
	ID                   string    `json:"id"`
	RealmID              string    `json:"realm_id"`
	Name                 *string   `json:"name"`
	DisplayName          *string   `json:"display_name"`
	Description          *string   `json:"description"`
	APIChannelBridgeID   *string   `json:"api_channel_bridge_id"`
	OAuthChannelBridgeID *string   `json:"oauth_channel_bridge_id"`
	IsActive             *bool     `json:"is_active"`
	Capabilities         *[]string `json:"capabilities"`
}

type botRef struct {
	ID      string `json:"id"`
	RealmID string `json:"realm_id"`
}

type listBotsRequest struct {
	RealmID string `json:"realm_id"`
}

type botResponse struct {
	Success bool    `json:"success"`
	Message string  `json:"message"`
	Bot     *botDTO `json:"bot,omitempty"`
}

type deleteBotResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type listBotsResponse struct {
	Bots []botDTO `json:"bots"`
}

type getBotResponse struct {
	Bot *botDTO `json:"bot"`
}

// CreateBot handles POST /bot.BotService/CreateBot
func (h *BotHandler) CreateBot(c *gin.Context) {
	var req createBotRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, h.logger, "create bot", err)
		return
	}

	bot, err := h.bots.CreateBot(c.Request.Context(), middleware.GetIdentity(c), service.CreateBotInput{
		RealmID:      req.RealmID,
		Name:         req.Name,
		DisplayName:  req.DisplayName,
		Description:  req.Description,
		APIBridge:    req.APIChannelBridge.toService(),
		OAuthBridge:  req.OAuthChannelBridge.toService(),
		IsActive:     req.IsActive,
		Capabilities: req.Capabilities,
	})
	h.metrics.BotOperations.WithLabelValues("create", outcome(err)).Inc()
	if err != nil {
		fail(c, h.logger, "create bot", err)
		return
	}
	c.JSON(http.StatusOK, botResponse{Success: true, Message: "Bot created successfully", Bot: toBot(bot)})
}

// UpdateBot handles POST /bot.BotService/UpdateBot
//
// Omitted fields are left unchanged. The two bridge id fields are different:
// omitting one leaves that bridge attached, but sending it as "" detaches it.
// Clients that fill unused fields with empty strings must omit the bridge ids
// instead, or the update detaches the bridge (and is rejected outright when
// it would leave the bot with none).
func (h *BotHandler) UpdateBot(c *gin.Context) {
	var req updateBotRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, h.logger, "update bot", err)
		return
	}

	bot, err := h.bots.UpdateBot(c.Request.Context(), middleware.GetIdentity(c), req.ID, service.BotPatch{
		RealmID:       req.RealmID,
		Name:          req.Name,
		DisplayName:   req.DisplayName,
		Description:   req.Description,
		APIBridgeID:   req.APIChannelBridgeID,
		OAuthBridgeID: req.OAuthChannelBridgeID,
		IsActive:      req.IsActive,
		Capabilities:  req.Capabilities,
	})
	h.metrics.BotOperations.WithLabelValues("update", outcome(err)).Inc()
	if err != nil {
		fail(c, h.logger, "update bot", err)
		return
	}
	c.JSON(http.StatusOK, botResponse{Success: true, Message: "Bot updated successfully", Bot: toBot(bot)})
}

// DeleteBot handles POST /bot.BotService/DeleteBot
func (h *BotHandler) DeleteBot(c *gin.Context) {
	var req botRef
	if err := bindJSON(c, &req); err != nil {
		fail(c, h.logger, "delete bot", err)
		return
	}

	err := h.bots.DeleteBot(c.Request.Context(), middleware.GetIdentity(c), req.RealmID, req.ID)
	h.metrics.BotOperations.WithLabelValues("delete", outcome(err)).Inc()
	if err != nil {
		fail(c, h.logger, "delete bot", err)
		return
	}
	c.JSON(http.StatusOK, deleteBotResponse{Success: true, Message: "Bot deleted successfully"})
}

// ListBots handles POST /bot.BotService/ListBots
func (h *BotHandler) ListBots(c *gin.Context) {
	var req listBotsRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, h.logger, "list bots", err)
		return
	}

	bots, err := h.bots.ListBots(c.Request.Context(), middleware.GetIdentity(c), req.RealmID)
	if err != nil {
		fail(c, h.logger, "list bots", err)
		return
	}
	c.JSON(http.StatusOK, listBotsResponse{Bots: toBots(bots)})
}

// GetBot handles POST /bot.BotService/GetBot. Bridges are included with
// their secrets and tokens left out.
func (h *BotHandler) GetBot(c *gin.Context) {
	var req botRef
	if err := bindJSON(c, &req); err != nil {
		fail(c, h.logger, "get bot", err)
		return
	}

	detail, err := h.bots.GetBot(c.Request.Context(), middleware.GetIdentity(c), req.RealmID, req.ID)
	if err != nil {
		fail(c, h.logger, "get bot", err)
		return
	}
	out := toBot(detail.Bot)
	out.APIChannelBridge = toBridge(detail.APIBridge)
	out.OAuthChannelBridge = toBridge(detail.OAuthBridge)
	c.JSON(http.StatusOK, getBotResponse{Bot: out})
}
