package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/redis/go-redis/v9"

	rediscache "github.com/custodia-labs/earnings-tldr/internal/adapters/driven/cache/redis"
	"github.com/custodia-labs/earnings-tldr/internal/adapters/driven/config/file"
	"github.com/custodia-labs/earnings-tldr/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/earnings-tldr/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/earnings-tldr/internal/core/domain"
	"github.com/custodia-labs/earnings-tldr/internal/core/ports/driven"
	"github.com/custodia-labs/earnings-tldr/internal/logger"
)

// homeDir resolves the tldr directory. When no home can be found, prompts
// and contracts are read from a scratch directory and ok is false.
func homeDir() (dir string, ok bool) {
	home, err := file.DefaultDir()
	if err != nil {
		logger.Warn("No home directory, settings and bundles last for this run only: %v", err)
		return filepath.Join(os.TempDir(), "tldr"), false
	}
	return home, true
}

// openConfig returns the TOML config store under home, or an in-memory
// store when the directory cannot be used.
func openConfig(home string, persistent bool) driven.ConfigStore {
	if persistent {
		store, err := file.NewConfigStore(home)
		if err == nil {
			return store
		}
		logger.Warn("Config unavailable, settings will not be saved: %v", err)
	}
	return memory.NewConfigStore()
}

// openStorage opens the SQLite store under home. When it cannot be opened,
// bundles are kept in memory and the returned *sqlite.Store is nil.
func openStorage(home string, persistent bool) (driven.BundleStore, *sqlite.Store) {
	if persistent {
		store, err := sqlite.NewStore(filepath.Join(home, "data"))
		if err == nil {
			return store.BundleStore(), store
		}
		logger.Warn("Database unavailable, bundles will not be saved: %v", err)
	}
	return memory.NewBundleStore(), nil
}

// buildIndexCache creates the configured index cache. An unreachable Redis
// disables caching with a warning rather than failing the command. The
// sqlite backend degrades to an in-memory cache when store is nil.
func buildIndexCache(ctx context.Context, cfg domain.CacheSettings, store *sqlite.Store) (driven.IndexCache, func()) {
	noop := func() {}

	switch cfg.Backend {
	case domain.CacheMemory:
		return memory.NewIndexCache(cfg.Capacity, cfg.TTL), noop
	case domain.CacheSQLite:
		if store == nil {
			return memory.NewIndexCache(cfg.Capacity, cfg.TTL), noop
		}
		return store.IndexCache(cfg.TTL), noop
	case domain.CacheRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		cache := rediscache.NewIndexCache(client, cfg.TTL)
		if err := cache.Ping(ctx); err != nil {
			logger.Warn("Index cache disabled: %v", err)
			_ = client.Close()
			return nil, noop
		}
		logger.Debug("Index cache: redis at %s", cfg.RedisAddr)
		return cache, func() { _ = client.Close() }
	default:
		return nil, noop
	}
}
