package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rediscache "github.com/custodia-labs/earnings-tldr/internal/adapters/driven/cache/redis"
	"github.com/custodia-labs/earnings-tldr/internal/adapters/driven/config/file"
	"github.com/custodia-labs/earnings-tldr/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/earnings-tldr/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/earnings-tldr/internal/core/domain"
)

// blockedHome returns a path under a regular file, so no directory can be
// created there.
func blockedHome(t *testing.T) string {
	t.Helper()
	f := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(f, []byte("x"), 0600))
	return filepath.Join(f, "tldr")
}

func TestHomeDir_UsesEnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(file.HomeEnv, dir)

	home, ok := homeDir()
	assert.True(t, ok)
	assert.Equal(t, dir, home)
}

func TestOpenConfig_File(t *testing.T) {
	home := t.TempDir()

	store := openConfig(home, true)
	_, isFile := store.(*file.ConfigStore)
	assert.True(t, isFile)
	assert.Equal(t, filepath.Join(home, "config.toml"), store.Path())
}

func TestOpenConfig_FallsBackToMemory(t *testing.T) {
	tests := []struct {
		name       string
		home       string
		persistent bool
	}{
		{name: "unusable directory", home: blockedHome(t), persistent: true},
		{name: "no home", home: t.TempDir(), persistent: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := openConfig(tt.home, tt.persistent)
			_, isMemory := store.(*memory.ConfigStore)
			require.True(t, isMemory)
			assert.Equal(t, memory.ConfigPath, store.Path())

			require.NoError(t, store.Set("llm.provider", "anthropic"))
			require.NoError(t, store.Save())
			assert.Equal(t, "anthropic", store.GetString("llm.provider"))
		})
	}
}

func TestOpenStorage_SQLite(t *testing.T) {
	bundles, store := openStorage(t.TempDir(), true)
	require.NotNil(t, store)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, bundles.Save(ctx, &domain.AnalysisBundle{ID: "b1", CreatedAt: time.Now()}))
	got, err := bundles.Get(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, "b1", got.ID)
}

func TestOpenStorage_FallsBackToMemory(t *testing.T) {
	bundles, store := openStorage(blockedHome(t), true)
	assert.Nil(t, store)
	_, isMemory := bundles.(*memory.BundleStore)
	require.True(t, isMemory)

	ctx := context.Background()
	require.NoError(t, bundles.Save(ctx, &domain.AnalysisBundle{ID: "b1", CreatedAt: time.Now()}))
	list, err := bundles.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestBuildIndexCache(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		cache, closeCache := buildIndexCache(ctx, domain.CacheSettings{Backend: domain.CacheMemory, Capacity: 4, TTL: time.Hour}, nil)
		defer closeCache()
		_, ok := cache.(*memory.IndexCache)
		assert.True(t, ok)
	})

	t.Run("sqlite", func(t *testing.T) {
		store, err := sqlite.NewStore(t.TempDir())
		require.NoError(t, err)
		defer store.Close()

		cache, closeCache := buildIndexCache(ctx, domain.CacheSettings{Backend: domain.CacheSQLite, TTL: time.Hour}, store)
		defer closeCache()
		_, ok := cache.(*sqlite.IndexCache)
		assert.True(t, ok)
	})

	t.Run("sqlite without database", func(t *testing.T) {
		cache, closeCache := buildIndexCache(ctx, domain.CacheSettings{Backend: domain.CacheSQLite, Capacity: 4, TTL: time.Hour}, nil)
		defer closeCache()
		_, ok := cache.(*memory.IndexCache)
		assert.True(t, ok)
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cache, closeCache := buildIndexCache(ctx, domain.CacheSettings{Backend: domain.CacheRedis, RedisAddr: mr.Addr(), TTL: time.Hour}, nil)
		defer closeCache()
		_, ok := cache.(*rediscache.IndexCache)
		assert.True(t, ok)
	})

	t.Run("unreachable redis disables caching", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()

		cache, closeCache := buildIndexCache(ctx, domain.CacheSettings{Backend: domain.CacheRedis, RedisAddr: addr, TTL: time.Hour}, nil)
		defer closeCache()
		assert.Nil(t, cache)
	})
}
