package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/kasuganosora/codepals/cache"
	"github.com/kasuganosora/codepals/config"
	dbadapter "github.com/kasuganosora/codepals/db"
	"github.com/kasuganosora/codepals/model"
)

// SetupTestDB creates a private in-memory SQLite DB and runs AutoMigrate.
// It requires no external services and is safe to use in parallel tests.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := dbadapter.Open(config.DatabaseConfig{
		Mode: dbadapter.ModeMemory,
	})
	require.NoError(t, err, "SetupTestDB: Open")
	require.NoError(t, model.AutoMigrate(db), "SetupTestDB: AutoMigrate")
	t.Cleanup(func() { _ = dbadapter.Close(db) })
	return db
}

// SetupTestCache creates LocalCache and LocalPubSub (no Redis required).
func SetupTestCache(t *testing.T) (cache.Cache, cache.PubSub) {
	t.Helper()
	cfg := cache.CacheConfig{} // empty RedisAddr → LocalCache
	c, err := cache.NewCache(cfg)
	require.NoError(t, err, "SetupTestCache: NewCache")
	t.Cleanup(func() { _ = c.Close() })
	ps, err := cache.NewPubSub(cfg)
	require.NoError(t, err, "SetupTestCache: NewPubSub")
	return c, ps
}
