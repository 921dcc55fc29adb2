// Package chitfund wires the rotating-savings core together: storage,
// caching, metrics, logging, and the fund/payment/bid services. The
// embedding application (web layer, CLI, job runner) constructs an App
// and calls the services; transport, rendering and authentication stay
// on the embedding side, which passes an authenticated caller ID into
// every operation.
package chitfund

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/mkalyan/chitfund/internal/cache"
	"github.com/mkalyan/chitfund/internal/config"
	"github.com/mkalyan/chitfund/internal/service"
	"github.com/mkalyan/chitfund/internal/storage"
	"github.com/mkalyan/chitfund/internal/storage/sqlite"
	"github.com/mkalyan/chitfund/pkg/logging"
)

// App is the assembled chit fund core.
type App struct {
	Funds    *service.FundService
	Payments *service.PaymentService
	Bids     *service.BidService

	store storage.Store
	rdb   *redis.Client
}

// Open builds an App from environment configuration (see
// internal/config): SQLite ledger at DB_PATH, optional Redis view cache
// at REDIS_ADDR, log level from LOG_LEVEL.
func Open(ctx context.Context) (*App, error) {
	cfg := config.Load()
	logging.SetupWithLevel(logging.ParseLevel(cfg.LogLevel))

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ledger storage: %w", err)
	}
	slog.Info("Ledger storage initialized", "database", cfg.DBPath)

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPass,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		slog.Info("View cache enabled", "addr", cfg.RedisAddr, "ttl", cfg.CacheTTL)
	}

	c := cache.New(rdb, cfg.CacheTTL)

	return &App{
		Funds:    service.NewFundService(store, c),
		Payments: service.NewPaymentService(store, c),
		Bids:     service.NewBidService(store, c),
		store:    store,
		rdb:      rdb,
	}, nil
}

// Close releases the ledger and cache connections.
func (a *App) Close() error {
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			slog.Warn("Failed to close redis client", "error", err)
		}
	}
	return a.store.Close()
}
