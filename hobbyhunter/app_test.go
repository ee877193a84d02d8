package hobbyhunter

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hobbyhunter/storefront/hobbyhunter/flags"
	"github.com/hobbyhunter/storefront/hobbyhunter/localstore"
	"github.com/hobbyhunter/storefront/hobbyhunter/mockdata"
	"github.com/hobbyhunter/storefront/internal/domain/cards"
)

const sampleConfig = `
environment = "staging"
user = "user-collector"

[log]
level = "DEBUG"

[api]
base_url = "https://api.hobbyhunter.test"
timeout = "3s"
retries = 5

[mock]
latency = false
seed = 42
mode = "strict"
fill = "weighted"

[flags]
use_real_pack_api = true
no_such_flag = true
`

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, "user-collector", cfg.User)
	assert.Equal(t, slog.LevelDebug, cfg.Log.Level)
	assert.Equal(t, "https://api.hobbyhunter.test", cfg.API.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.API.Timeout.Duration)
	assert.Equal(t, 5, cfg.API.Retries)
	assert.Equal(t, 1024, cfg.Cache.Size, "defaults survive a partial file")
	assert.Equal(t, "strict", cfg.Mock.Mode)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.ApplyEnv(lookupFrom(map[string]string{
		EnvAPIBaseURL:                    "https://env.test",
		EnvAPITimeout:                    "250ms",
		EnvAPIRetries:                    "1",
		EnvEnvironment:                   "production",
		EnvLogLevel:                      "warn",
		EnvAnalytics:                     "true",
		flags.UseRealCardAPI.EnvKey():    "true",
		flags.OptimisticUpdates.EnvKey(): "false",
	}))
	require.NoError(t, err)
	assert.Equal(t, "https://env.test", cfg.API.BaseURL)
	assert.Equal(t, 250*time.Millisecond, cfg.API.Timeout.Duration)
	assert.Equal(t, 1, cfg.API.Retries)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, slog.LevelWarn, cfg.Log.Level)

	values := cfg.FlagValues()
	assert.True(t, values[flags.Analytics])
	assert.True(t, values[flags.UseRealCardAPI])
	assert.False(t, values[flags.OptimisticUpdates])

	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad timeout", map[string]string{EnvAPITimeout: "soon"}},
		{"bad retries", map[string]string{EnvAPIRetries: "many"}},
		{"bad level", map[string]string{EnvLogLevel: "loud"}},
		{"bad analytics", map[string]string{EnvAnalytics: "maybe"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			require.Error(t, c.ApplyEnv(lookupFrom(tt.env)))
		})
	}
}

func TestFlagValues_DropsUnknown(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Flags = map[string]bool{"use_real_pack_api": true, "no_such_flag": true}
	values := cfg.FlagValues()
	assert.Equal(t, map[flags.Name]bool{flags.UseRealPackAPI: true}, values)
}

func newTestApp(t *testing.T, store localstore.Store) *App {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Mock.Latency = false
	cfg.Mock.Seed = 7
	cfg.Store.Path = ":memory:"

	app, err := New(context.Background(), cfg, "test", "none", store)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func TestNew_WiresMockBackedServices(t *testing.T) {
	app := newTestApp(t, localstore.NewMemoryStore())
	ctx := context.Background()

	packs, err := app.Services.Store.Packs(ctx)
	require.NoError(t, err)
	assert.Len(t, packs, len(mockdata.Packs()))

	user := app.CurrentUser(ctx)
	assert.Equal(t, "user-demo", user)

	credits, err := app.Services.Wallet.Credits(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), credits)

	browse, pages, err := app.Collection.GetUserCards(ctx, user, cards.Filters{})
	require.NoError(t, err)
	assert.NotEmpty(t, browse)
	assert.GreaterOrEqual(t, pages, 1)

	assert.Nil(t, app.Spaces)
}

func TestNew_SQLiteStorePersistsFlags(t *testing.T) {
	app := newTestApp(t, nil)
	ctx := context.Background()
	require.NoError(t, app.Flags.SetFlag(ctx, flags.ExperimentalMarketplace, true))

	raw, ok, err := app.Store.Get(ctx, localstore.FeatureFlagsKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, raw, string(flags.ExperimentalMarketplace))
}

func TestStart_DebugFlagLowersLevel(t *testing.T) {
	app := newTestApp(t, localstore.NewMemoryStore())
	level := SetupLogger(LogConfig{Level: slog.LevelWarn, NoColor: true}, io.Discard)
	app.Cfg.Log.Level = slog.LevelWarn
	app.Start(level)
	assert.Equal(t, slog.LevelWarn, level.Level())

	ctx := context.Background()
	require.NoError(t, app.Flags.SetFlag(ctx, flags.DebugLogging, true))
	assert.Equal(t, slog.LevelDebug, level.Level())

	require.NoError(t, app.Flags.SetFlag(ctx, flags.DebugLogging, false))
	assert.Equal(t, slog.LevelWarn, level.Level())
}

