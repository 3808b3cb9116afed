package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/realmhub/internal/apperr"
	"github.com/lalith-99/realmhub/internal/middleware"
	"github.com/lalith-99/realmhub/internal/observ"
	"github.com/lalith-99/realmhub/internal/service"
	"go.uber.org/zap"
)

// AuthHandler serves auth.AuthService. Register, Login, RefreshToken and
// Logout are public; the rest run behind middleware.RequireAuth.
//
// Duplicate accounts, duplicate realms and bad credentials are ordinary
// responses with success=false. Everything else goes out on the error
// channel.
type AuthHandler struct {
	accounts *service.AccountService
	realms   *service.RealmService
	metrics  *observ.Metrics
	logger   *zap.Logger
}

func NewAuthHandler(
	accounts *service.AccountService,
	realms *service.RealmService,
	metrics *observ.Metrics,
	logger *zap.Logger,
) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
		realms:   realms,
		metrics:  metrics,
		logger:   logger,
	}
}

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type registerResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Success      bool        `json:"success"`
	Account      *accountDTO `json:"account,omitempty"`
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
	RealmID      string `json:"realm_id"`
}

type refreshResponse struct {
	Success      bool   `json:"success"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type logoutResponse struct {
	Success bool `json:"success"`
}

type meResponse struct {
	Account *accountDTO `json:"account"`
}

type listRealmsResponse struct {
	Realms []realmDTO `json:"realms"`
}

type createRealmRequest struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
}

type createRealmResponse struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	Realm   *realmDTO `json:"realm,omitempty"`
}

// Register handles POST /auth.AuthService/Register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, h.logger, "register", err)
		return
	}

	_, err := h.accounts.Register(c.Request.Context(), service.RegisterInput{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
	})
	h.metrics.AuthEvents.WithLabelValues("register", outcome(err)).Inc()
	switch {
	case errors.Is(err, apperr.ErrConflict):
		c.JSON(http.StatusOK, registerResponse{Success: false, Message: "Account already exists"})
	case err != nil:
		fail(c, h.logger, "register", err)
	default:
		c.JSON(http.StatusOK, registerResponse{Success: true, Message: "Registration successful"})
	}
}

// Login handles POST /auth.AuthService/Login
//
// An unknown email and a wrong password produce the same response.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, h.logger, "login", err)
		return
	}

	res, err := h.accounts.Login(c.Request.Context(), req.Email, req.Password)
	h.metrics.AuthEvents.WithLabelValues("login", outcome(err)).Inc()
	switch {
	case errors.Is(err, apperr.ErrInvalidCredentials):
		c.JSON(http.StatusOK, loginResponse{Success: false})
	case err != nil:
		fail(c, h.logger, "login", err)
	default:
		c.JSON(http.StatusOK, loginResponse{
			Success:      true,
			Account:      toAccount(res.Account),
			AccessToken:  res.Tokens.AccessToken,
			RefreshToken: res.Tokens.RefreshToken,
		})
	}
}

// RefreshToken handles POST /auth.AuthService/RefreshToken
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req refreshRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, h.logger, "refresh token", err)
		return
	}

	pair, err := h.accounts.Refresh(c.Request.Context(), req.RefreshToken, req.RealmID)
	h.metrics.AuthEvents.WithLabelValues("refresh", outcome(err)).Inc()
	if err != nil {
		fail(c, h.logger, "refresh token", err)
		return
	}
	c.JSON(http.StatusOK, refreshResponse{
		Success:      true,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

// Logout handles POST /auth.AuthService/Logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.accounts.Logout(c.Request.Context()); err != nil {
		fail(c, h.logger, "logout", err)
		return
	}
	c.JSON(http.StatusOK, logoutResponse{Success: true})
}

// Me handles POST /auth.AuthService/Me
func (h *AuthHandler) Me(c *gin.Context) {
	account, err := h.accounts.Me(c.Request.Context(), middleware.GetAccountID(c))
	if err != nil {
		fail(c, h.logger, "me", err)
		return
	}
	c.JSON(http.StatusOK, meResponse{Account: toAccount(account)})
}

// ListRealms handles POST /auth.AuthService/ListRealms
func (h *AuthHandler) ListRealms(c *gin.Context) {
	realms, err := h.realms.ListRealms(c.Request.Context(), middleware.GetAccountID(c))
	if err != nil {
		fail(c, h.logger, "list realms", err)
		return
	}
	c.JSON(http.StatusOK, listRealmsResponse{Realms: toRealms(realms)})
}

// CreateRealm handles POST /auth.AuthService/CreateRealm
//
// The caller becomes the realm's first admin.
func (h *AuthHandler) CreateRealm(c *gin.Context) {
	var req createRealmRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, h.logger, "create realm", err)
		return
	}

	realm, err := h.realms.CreateRealm(c.Request.Context(), middleware.GetAccountID(c), service.CreateRealmInput{
		Name:        req.Name,
		DisplayName: req.DisplayName,
		Description: req.Description,
	})
	switch {
	case errors.Is(err, apperr.ErrConflict):
		c.JSON(http.StatusOK, createRealmResponse{
			Success: false,
			Message: fmt.Sprintf("Realm with name '%s' already exists", strings.TrimSpace(req.Name)),
		})
	case err != nil:
		fail(c, h.logger, "create realm", err)
	default:
		h.metrics.RealmsCreated.Inc()
		c.JSON(http.StatusOK, createRealmResponse{
			Success: true,
			Message: "Realm created successfully",
			Realm:   toRealm(realm),
		})
	}
}

// outcome labels a manager result for metrics. Business rejections are
// kept apart from failures.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, apperr.ErrConflict), errors.Is(err, apperr.ErrInvalidCredentials):
		return "rejected"
	default:
		return observ.Result(err)
	}
}
