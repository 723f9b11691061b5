package main

import (
	"context"
	"fmt"
	"log/slog"

	"postcheck/internal/platform/config"
	"postcheck/internal/platform/postgres"
	"postcheck/internal/platform/redis"
	"postcheck/internal/prefix"
	"postcheck/internal/prefix/store/memory"
	prefixpostgres "postcheck/internal/prefix/store/postgres"
	prefixredis "postcheck/internal/prefix/store/redis"
	prefixsqlite "postcheck/internal/prefix/store/sqlite"
)

// openStore builds the registry backend named in cfg. The returned close
// function releases whatever connection the backend holds.
func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (prefix.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Storage.Backend {
	case config.BackendMemory:
		log.Info("using in-memory prefix store")
		return memory.NewInMemory(), noop, nil

	case config.BackendPostgres:
		db, err := postgres.Open(ctx, cfg.Storage.Postgres)
		if err != nil {
			return nil, nil, err
		}
		st := prefixpostgres.NewPostgres(db)
		if err := st.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		log.Info("using postgres prefix store", "driver", cfg.Storage.Postgres.Driver)
		return st, db.Close, nil

	case config.BackendSQLite:
		st, err := prefixsqlite.Open(ctx, cfg.Storage.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		log.Info("using sqlite prefix store", "path", cfg.Storage.SQLite.Path)
		return st, st.Close, nil

	case config.BackendRedis:
		client, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		if client == nil {
			return nil, nil, fmt.Errorf("storage backend %q requires redis.url", config.BackendRedis)
		}
		log.Info("using redis prefix store", "key", cfg.Redis.Key)
		return prefixredis.NewRedis(client.Client, prefixredis.WithKey(cfg.Redis.Key)), client.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
