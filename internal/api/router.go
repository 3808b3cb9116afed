package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/realmhub/internal/middleware"
	"github.com/lalith-99/realmhub/internal/observ"
	"github.com/lalith-99/realmhub/internal/ratelimit"
	"github.com/lalith-99/realmhub/internal/service"
	"go.uber.org/zap"
)

// Deps is everything the router wires into handlers and middleware.
type Deps struct {
	Accounts *service.AccountService
	Realms   *service.RealmService
	Bots     *service.BotService
	Authn    middleware.Authenticator
	DB       Pinger
	Limiter  ratelimit.Limiter
	Metrics  *observ.Metrics
	Logger   *zap.Logger

	CORSOrigins []string

	// TrustedProxies lists the proxy IPs or CIDRs whose X-Forwarded-For is
	// believed. Empty means the client IP is always the socket peer.
	TrustedProxies []string
}

// NewRouter builds the HTTP surface: the Connect-style RPC paths of
// auth.AuthService and bot.BotService plus /healthz and /metrics.
//
// Why set trusted proxies explicitly? gin trusts every proxy out of the box,
// so ClientIP would return whatever X-Forwarded-For the caller sends. The
// login rate limit is keyed by client IP; a caller rotating that header
// would get a fresh budget on every request.
func NewRouter(d Deps) (*gin.Engine, error) {
	r := gin.New()
	if err := r.SetTrustedProxies(d.TrustedProxies); err != nil {
		return nil, fmt.Errorf("set trusted proxies: %w", err)
	}
	r.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.AccessLog(d.Logger),
		middleware.Metrics(d.Metrics),
		middleware.CORS(d.CORSOrigins),
	)

	health := NewHealthHandler(d.DB, d.Logger)
	r.GET("/healthz", health.Check)
	r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))

	authH := NewAuthHandler(d.Accounts, d.Realms, d.Metrics, d.Logger)
	botH := NewBotHandler(d.Bots, d.Metrics, d.Logger)
	limit := middleware.RateLimit(d.Limiter, d.Metrics, d.Logger)
	requireAuth := middleware.RequireAuth(d.Authn)

	authSvc := r.Group("/auth.AuthService")
	authSvc.POST("/Register", limit, authH.Register)
	authSvc.POST("/Login", limit, authH.Login)
	authSvc.POST("/RefreshToken", limit, authH.RefreshToken)
	authSvc.POST("/Logout", authH.Logout)
	authSvc.POST("/Me", requireAuth, authH.Me)
	authSvc.POST("/ListRealms", requireAuth, authH.ListRealms)
	authSvc.POST("/CreateRealm", requireAuth, authH.CreateRealm)

	botSvc := r.Group("/bot.BotService", requireAuth)
	botSvc.POST("/CreateBot", botH.CreateBot)
	botSvc.POST("/UpdateBot", botH.UpdateBot)
	botSvc.POST("/DeleteBot", botH.DeleteBot)
	botSvc.POST("/ListBots", botH.ListBots)
	botSvc.POST("/GetBot", botH.GetBot)

	return r, nil
}
