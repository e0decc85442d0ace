package cli

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/set-night/invoicedesk"
	"github.com/set-night/invoicedesk/internal/config"
	"github.com/set-night/invoicedesk/internal/events"
	"github.com/set-night/invoicedesk/internal/kv"
	"github.com/set-night/invoicedesk/internal/repository"
	"github.com/set-night/invoicedesk/internal/repository/memory"
	"github.com/set-night/invoicedesk/internal/repository/mysql"
	"github.com/set-night/invoicedesk/internal/repository/postgres"
	"github.com/set-night/invoicedesk/internal/telegram"
)

const kvPrefix = "invoicedesk:"

// loadConfig reads configuration and installs the JSON logger at the
// configured level.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)
	return cfg, nil
}

// openStore connects to the configured database.
func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	opts := repository.PoolOptions{MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns}
	switch cfg.DatabaseDriver {
	case config.DriverPostgres:
		pool, err := repository.NewPool(ctx, cfg.DatabaseURL, opts)
		if err != nil {
			return nil, err
		}
		return postgres.NewStore(pool), nil
	case config.DriverMySQL:
		db, err := repository.OpenMySQL(ctx, cfg.DatabaseURL, opts)
		if err != nil {
			return nil, err
		}
		return mysql.NewStore(db), nil
	case config.DriverMemory:
		slog.Warn("using in-memory store; data is lost on exit")
		return memory.NewStore(), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}
}

// migrate applies the embedded migrations for the configured driver.
func migrate(cfg *config.Config) (uint, error) {
	if cfg.DatabaseDriver == config.DriverMemory {
		return 0, fmt.Errorf("migrations need a SQL database; DATABASE_DRIVER is %q", cfg.DatabaseDriver)
	}
	migrationsFS, err := fs.Sub(invoicedesk.MigrationsFS, "migrations/"+cfg.DatabaseDriver)
	if err != nil {
		return 0, fmt.Errorf("load embedded migrations: %w", err)
	}
	return repository.RunMigrations(cfg.DatabaseURL, migrationsFS)
}

// openKV connects to Redis when REDIS_URL is set and falls back to process
// memory otherwise.
func openKV(ctx context.Context, cfg *config.Config) (kv.Store, error) {
	if cfg.RedisURL == "" {
		return kv.NewMemoryStore(), nil
	}
	store, err := kv.NewRedisStore(ctx, cfg.RedisURL, kvPrefix)
	if err != nil {
		return nil, err
	}
	slog.Info("connected to redis")
	return store, nil
}

// buildPublisher assembles the outbox publishers enabled by cfg. The returned
// func releases their connections.
func buildPublisher(cfg *config.Config) (events.Publisher, func(), error) {
	publishers := events.Fanout{events.LogPublisher{}}
	closers := []func(){}

	if cfg.QueueURL != "" {
		rabbit, err := events.DialRabbit(cfg.QueueURL, cfg.QueueExchange)
		if err != nil {
			return nil, nil, err
		}
		publishers = append(publishers, rabbit)
		closers = append(closers, func() {
			if err := rabbit.Close(); err != nil {
				slog.Warn("close rabbitmq publisher", "error", err)
			}
		})
		slog.Info("rabbitmq publisher enabled", "exchange", cfg.QueueExchange)
	}

	if cfg.TelegramEnabled() {
		notifier, err := telegram.NewBotNotifier(cfg)
		if err != nil {
			return nil, nil, err
		}
		publishers = append(publishers, notifier)
		slog.Info("telegram notifier enabled", "chat_id", cfg.NotifyChatID)
	}

	return publishers, func() {
		for _, c := range closers {
			c()
		}
	}, nil
}
