package store_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasuganosora/codepals/config"
	"github.com/kasuganosora/codepals/store"
	"github.com/kasuganosora/codepals/testutil"
)

func backends(t *testing.T) map[string]store.Store {
	t.Helper()
	db := testutil.SetupTestDB(t)
	c, _ := testutil.SetupTestCache(t)
	cfg := config.StoreConfig{FileDir: t.TempDir()}
	b := store.Backends{DB: db, Cache: c}

	out := map[string]store.Store{}
	for _, kind := range []string{store.KindDB, store.KindCache, store.KindFile} {
		s, err := store.New(kind, cfg, b)
		require.NoError(t, err, kind)
		out[kind] = s
	}
	return out
}

func TestStore_Contract(t *testing.T) {
	for kind, s := range backends(t) {
		t.Run(kind, func(t *testing.T) {
			ctx := context.Background()

			_, err := s.Get(ctx, "codepals.gameData")
			assert.ErrorIs(t, err, store.ErrNotFound)

			require.NoError(t, s.Set(ctx, "codepals.gameData", []byte(`{"v":1}`)))
			got, err := s.Get(ctx, "codepals.gameData")
			require.NoError(t, err)
			assert.Equal(t, `{"v":1}`, string(got))

			// Overwrite replaces the value.
			require.NoError(t, s.Set(ctx, "codepals.gameData", []byte(`{"v":2}`)))
			got, err = s.Get(ctx, "codepals.gameData")
			require.NoError(t, err)
			assert.Equal(t, `{"v":2}`, string(got))

			require.NoError(t, s.Del(ctx, "codepals.gameData"))
			_, err = s.Get(ctx, "codepals.gameData")
			assert.ErrorIs(t, err, store.ErrNotFound)

			// Deleting a missing key is not an error.
			assert.NoError(t, s.Del(ctx, "codepals.gameData"))
		})
	}
}

func TestNew_Errors(t *testing.T) {
	_, err := store.New("tape", config.StoreConfig{}, store.Backends{})
	assert.Error(t, err)
	_, err = store.New(store.KindDB, config.StoreConfig{}, store.Backends{})
	assert.Error(t, err)
	_, err = store.New(store.KindCache, config.StoreConfig{}, store.Backends{})
	assert.Error(t, err)
	_, err = store.New(store.KindFile, config.StoreConfig{}, store.Backends{})
	assert.Error(t, err)
}

func TestFileStore_KeysStayInsideDir(t *testing.T) {
	dir := t.TempDir()
	s, err := store.NewFileStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "../escape/attempt", []byte("x")))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotContains(t, entries[0].Name(), "/")

	_, err = os.Stat(filepath.Join(filepath.Dir(dir), "escape"))
	assert.True(t, os.IsNotExist(err))
}

func TestFileStore_NoTempLeftovers(t *testing.T) {
	dir := t.TempDir()
	s, err := store.NewFileStore(dir)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Set(context.Background(), "slot", []byte("data")))
	}
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFileStore_CanceledContext(t *testing.T) {
	s, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.Set(ctx, "k", []byte("v")), context.Canceled)
}
