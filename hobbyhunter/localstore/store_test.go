package localstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStores(t *testing.T) {
	ctx := context.Background()

	sqliteStore, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "local.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqliteStore.Close() })

	stores := []struct {
		name  string
		store Store
	}{
		{"memory", NewMemoryStore()},
		{"sqlite", sqliteStore},
	}

	for _, tt := range stores {
		t.Run(tt.name, func(t *testing.T) {
			_, ok, err := tt.store.Get(ctx, TokenKey)
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, tt.store.Set(ctx, TokenKey, "abc"))
			require.NoError(t, tt.store.Set(ctx, TokenKey, "def"))

			v, ok, err := tt.store.Get(ctx, TokenKey)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "def", v)

			require.NoError(t, tt.store.Delete(ctx, TokenKey))
			_, ok, err = tt.store.Get(ctx, TokenKey)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	var overrides map[string]bool
	ok, err := GetJSON(ctx, store, FeatureFlagsKey, &overrides)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, SetJSON(ctx, store, FeatureFlagsKey, map[string]bool{"mock_fallback": false}))

	ok, err = GetJSON(ctx, store, FeatureFlagsKey, &overrides)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, map[string]bool{"mock_fallback": false}, overrides)

	require.NoError(t, store.Set(ctx, FeatureFlagsKey, "{not json"))
	_, err = GetJSON(ctx, store, FeatureFlagsKey, &overrides)
	assert.Error(t, err)
}
