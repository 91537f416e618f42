// Package bootstrap wires the ledgerd process together from its
// environment: the session factory for the registered database and the
// idempotency backend.
package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"omnia"
	omniaconfig "omnia/config"
	"omnia/internal/config"
	"omnia/internal/ledger"
	"omnia/internal/logx"
	"omnia/internal/redisstore"
	"omnia/pg"
	"omnia/sqlite"
)

// BuildSessionFactory registers DATABASE_URL as the default database,
// connects the matching driver and applies the ledger schema.
func BuildSessionFactory(ctx context.Context, cfg config.Config) (omnia.SessionFactory, func(ctx context.Context) error, func(), error) {
	log := logx.L()
	if cfg.DatabaseURL == "" {
		return nil, nil, nil, fmt.Errorf("DATABASE_URL is required")
	}

	reg := omniaconfig.NewRegistry()
	if err := reg.Register(omniaconfig.Database{Name: "ledger", URL: cfg.DatabaseURL, Default: true}); err != nil {
		return nil, nil, nil, err
	}
	db, err := reg.Get("")
	if err != nil {
		return nil, nil, nil, err
	}

	switch db.Driver {
	case "postgres", "postgresql":
		factory, err := pg.Connect(ctx, db.URL)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := ledger.RunMigrations(ctx, factory); err != nil {
			factory.Close()
			return nil, nil, nil, err
		}
		cleanup := func() {
			log.Info("closing pg")
			factory.Close()
		}
		return factory, factory.Ping, cleanup, nil
	case "sqlite":
		path := strings.TrimPrefix(db.URL, "sqlite://")
		factory, err := sqlite.Open(path)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := ledger.EnsureSQLiteSchema(factory); err != nil {
			_ = factory.Close()
			return nil, nil, nil, err
		}
		cleanup := func() {
			log.Info("closing sqlite")
			_ = factory.Close()
		}
		return factory, factory.Ping, cleanup, nil
	default:
		return nil, nil, nil, fmt.Errorf("no session factory for driver %q", db.Driver)
	}
}

// BuildIdempotency builds the idempotency store (defaults to redis;
// set IDEMPOTENCY_BACKEND=none for the noop store).
func BuildIdempotency(cfg config.Config) (ledger.IdempotencyStore, func(), error) {
	if cfg.IdempotencyBackend != "redis" {
		return ledger.NoopIdempotency{}, func() {}, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	store := redisstore.New(rdb, cfg.RedisTTL)
	cleanup := func() { _ = rdb.Close() }
	return store, cleanup, nil
}
