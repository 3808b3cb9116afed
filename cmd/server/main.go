package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/realmhub/internal/access"
	"github.com/lalith-99/realmhub/internal/api"
	"github.com/lalith-99/realmhub/internal/auth"
	"github.com/lalith-99/realmhub/internal/config"
	"github.com/lalith-99/realmhub/internal/db"
	"github.com/lalith-99/realmhub/internal/observ"
	"github.com/lalith-99/realmhub/internal/partition"
	"github.com/lalith-99/realmhub/internal/ratelimit"
	"github.com/lalith-99/realmhub/internal/repository"
	"github.com/lalith-99/realmhub/internal/repository/memory"
	"github.com/lalith-99/realmhub/internal/repository/postgres"
	"github.com/lalith-99/realmhub/internal/service"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// backend is the store the services run on, plus what main needs to
// manage it.
type backend struct {
	repos      repository.Repositories
	tx         repository.Transactor
	health     api.Pinger
	maintainer *partition.Maintainer
	close      func()
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := observ.NewMetrics()

	be, err := openBackend(ctx, cfg, metrics, logger)
	if err != nil {
		return err
	}
	defer be.close()

	limiter, closeLimiter, err := newLimiter(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeLimiter()

	tokens := auth.NewTokenService([]byte(cfg.JWTSecret))
	resolver := access.NewResolver(tokens, be.repos.Grants)

	router, err := api.NewRouter(api.Deps{
		Accounts:       service.NewAccountService(be.repos, tokens, logger),
		Realms:         service.NewRealmService(be.repos, be.tx, logger),
		Bots:           service.NewBotService(resolver, be.repos, be.tx, logger),
		Authn:          resolver,
		DB:             be.health,
		Limiter:        limiter,
		Metrics:        metrics,
		Logger:         logger,
		CORSOrigins:    cfg.CORSAllowedOrigins,
		TrustedProxies: cfg.TrustedProxies,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              net.JoinHostPort("0.0.0.0", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting realmhub",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.Env),
			zap.String("store", cfg.StoreDriver),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down", zap.Duration("timeout", cfg.ShutdownTimeout))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	})
	if be.maintainer != nil {
		g.Go(func() error {
			return be.maintainer.Run(gctx, cfg.PartitionSchedule)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("realmhub stopped")
	return nil
}

func openBackend(ctx context.Context, cfg *config.Config, metrics *observ.Metrics, logger *zap.Logger) (*backend, error) {
	if cfg.StoreDriver == config.DriverMemory {
		logger.Warn("using the in-memory store; data is lost on exit")
		store := memory.New()
		return &backend{
			repos:  store.Repositories(),
			tx:     store,
			health: store,
			close:  func() {},
		}, nil
	}

	database, err := db.New(ctx, cfg.DatabaseURL, db.PoolOptions{MaxConns: cfg.DBMaxConns}, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if cfg.AutoMigrate {
		sqlDB := db.SQLDB(database.Pool())
		err := db.Migrate(ctx, sqlDB)
		sqlDB.Close()
		if err != nil {
			database.Close()
			return nil, err
		}
		logger.Info("migrations applied")
	}

	store := postgres.NewStore(database.Pool())
	return &backend{
		repos:      store.Repositories(),
		tx:         store,
		health:     database,
		maintainer: partition.NewMaintainer(database.Pool(), cfg.PartitionMonthsAhead, metrics, logger),
		close:      database.Close,
	}, nil
}

// newLimiter shares budgets across replicas through Redis when REDIS_URL is
// set and keeps them per process otherwise. The Redis window is the time it
// takes to refill a full burst at the configured rate.
func newLimiter(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ratelimit.Limiter, func(), error) {
	if cfg.RedisURL == "" {
		return ratelimit.NewLocal(cfg.RateLimitRPS, cfg.RateLimitBurst), func() {}, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable; rate limiting fails open until it recovers", zap.Error(err))
	}

	window := time.Duration(float64(cfg.RateLimitBurst) / cfg.RateLimitRPS * float64(time.Second))
	if window < time.Second {
		window = time.Second
	}
	closeFn := func() {
		if err := client.Close(); err != nil {
			logger.Warn("close redis client", zap.Error(err))
		}
	}
	return ratelimit.NewRedis(client, cfg.RateLimitBurst, window), closeFn, nil
}
