// Command migrate applies, reverts or lists the schema migrations.
//
//	migrate [up|down|status]
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lalith-99/realmhub/internal/config"
	"github.com/lalith-99/realmhub/internal/db"
	"github.com/lalith-99/realmhub/internal/observ"
	"go.uber.org/zap"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	command := "up"
	if len(args) > 0 {
		command = args[0]
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.New(ctx, cfg.DatabaseURL, db.PoolOptions{MaxConns: 2, MinConns: 1}, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer database.Close()

	sqlDB := db.SQLDB(database.Pool())
	defer sqlDB.Close()

	switch command {
	case "up":
		err = db.Migrate(ctx, sqlDB)
	case "down":
		err = db.Rollback(ctx, sqlDB)
	case "status":
		err = db.Status(ctx, sqlDB)
	default:
		return fmt.Errorf("unknown command %q (want up, down or status)", command)
	}
	if err != nil {
		return err
	}
	logger.Info("migrate finished", zap.String("command", command))
	return nil
}
