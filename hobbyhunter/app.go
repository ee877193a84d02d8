package hobbyhunter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"strings"

	"golang.org/x/time/rate"

	"github.com/hobbyhunter/storefront/hobbyhunter/api"
	"github.com/hobbyhunter/storefront/hobbyhunter/economy/opening"
	"github.com/hobbyhunter/storefront/hobbyhunter/flags"
	"github.com/hobbyhunter/storefront/hobbyhunter/localstore"
	"github.com/hobbyhunter/storefront/hobbyhunter/logger"
	"github.com/hobbyhunter/storefront/hobbyhunter/mockdata"
	"github.com/hobbyhunter/storefront/hobbyhunter/query"
	"github.com/hobbyhunter/storefront/hobbyhunter/repositories"
	"github.com/hobbyhunter/storefront/hobbyhunter/services"
	"github.com/hobbyhunter/storefront/internal/domain/cards"
)

// App wires every layer of the storefront client together.
type App struct {
	Cfg     Config
	Version string
	Commit  string

	Level      *slog.LevelVar
	Store      localstore.Store
	Flags      *flags.Manager
	Client     *api.Client
	State      *mockdata.State
	Generator  *opening.Generator
	Repos      *repositories.Repositories
	Cache      *query.Client
	Refresher  *query.Refresher
	Spaces     *services.SpacesService
	Services   *services.Services
	Collection cards.Service

	closers []io.Closer
	unsub   func()
}

// SetupLogger installs the colored handler as the default logger and returns
// the level it reads so it can be changed at runtime.
func SetupLogger(cfg LogConfig, w io.Writer) *slog.LevelVar {
	level := new(slog.LevelVar)
	level.Set(cfg.Level)
	slog.SetDefault(slog.New(logger.NewHandler(logger.Options{
		Level:   level,
		Writer:  w,
		NoColor: cfg.NoColor,
	})))
	return level
}

// New builds the application. When store is nil a SQLite store is opened at
// cfg.Store.Path (":memory:" keeps nothing on disk).
func New(ctx context.Context, cfg Config, version, commit string, store localstore.Store) (*App, error) {
	a := &App{
		Cfg:     cfg,
		Version: version,
		Commit:  commit,
	}

	if store == nil {
		sqlite, err := localstore.OpenSQLite(ctx, cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, sqlite)
		store = sqlite
	}
	a.Store = store

	flagManager, err := flags.New(ctx, store, flags.WithEnv(cfg.FlagValues()))
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("failed to load feature flags: %w", err)
	}
	a.Flags = flagManager
	for _, w := range flagManager.Validate(cfg.Environment) {
		slog.Warn("Feature flag warning",
			slog.String("type", "sys"),
			slog.String("flag", string(w.Flag)),
			slog.String("message", w.Message))
	}

	a.Client = api.NewClient(api.Options{
		BaseURL:     cfg.API.BaseURL,
		Timeout:     cfg.API.Timeout.Duration,
		MaxAttempts: cfg.API.Retries,
		RateLimit:   rate.Limit(cfg.API.RateLimit),
		Burst:       cfg.API.Burst,
		UserAgent:   "hobbyhunter/" + version,
	})
	a.Client.OnRequest(api.BearerToken(store))
	a.Client.OnError(api.ClearCredentialsOnAuthError(store))

	a.State = mockdata.NewState()
	a.Generator = opening.NewGenerator(a.State.Templates(), generatorOptions(cfg.Mock)...)

	deps := repositories.Deps{
		Client:    a.Client,
		Flags:     flagManager,
		State:     a.State,
		Store:     store,
		Generator: a.Generator,
	}
	if cfg.Mock.Latency {
		deps.Latency = mockdata.DefaultLatency()
		deps.Reveal = mockdata.RevealLatency()
	}
	a.Repos = repositories.New(deps)

	a.Cache, err = query.NewClient(cfg.Cache.Size)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Refresher = query.NewRefresher(a.Cache, query.WithEnabled(func() bool {
		return flagManager.IsEnabled(flags.BackgroundRefresh)
	}))

	var signer services.ImageSigner
	if cfg.Spaces.Enabled() {
		a.Spaces, err = services.NewSpacesService(ctx, services.SpacesConfig{
			Key:       cfg.Spaces.Key,
			Secret:    cfg.Spaces.Secret,
			Region:    cfg.Spaces.Region,
			Bucket:    cfg.Spaces.Bucket,
			Endpoint:  cfg.Spaces.Endpoint,
			CardRoot:  cfg.Spaces.CardRoot,
			URLExpiry: cfg.Spaces.URLExpiry.Duration,
		})
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		signer = a.Spaces
	}

	a.Services = services.New(a.Repos, a.Cache, signer)
	a.Collection = cards.NewService(a.Repos.Cards)

	return a, nil
}

func generatorOptions(cfg MockConfig) []opening.Option {
	var opts []opening.Option
	if strings.EqualFold(cfg.Mode, "strict") {
		opts = append(opts, opening.WithMode(opening.Strict))
	}
	if strings.EqualFold(cfg.Fill, "weighted") {
		opts = append(opts, opening.WithFillMode(opening.FillWeighted))
	}
	if cfg.Seed != 0 {
		opts = append(opts, opening.WithRand(rand.New(rand.NewSource(cfg.Seed))))
	}
	return opts
}

// Start follows the debug_logging flag and starts background refresh.
func (a *App) Start(level *slog.LevelVar) {
	a.Level = level
	base := a.Cfg.Log.Level
	apply := func() {
		if level == nil {
			return
		}
		if a.Flags.IsEnabled(flags.DebugLogging) {
			level.Set(slog.LevelDebug)
		} else {
			level.Set(base)
		}
	}
	apply()
	a.unsub = a.Flags.Subscribe(func(changes []flags.Change) {
		for _, c := range changes {
			if c.Name == flags.DebugLogging {
				apply()
			}
		}
	})

	a.Refresher.Start()
	logger.LogSystem("HobbyHunter client started",
		slog.String("version", a.Version),
		slog.String("commit", a.Commit),
		slog.String("environment", a.Cfg.Environment))
}

// Close stops background work and releases the local store.
func (a *App) Close() error {
	if a.unsub != nil {
		a.unsub()
	}
	if a.Refresher != nil {
		a.Refresher.Stop()
	}

	var errs []error
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// CurrentUser is the signed in user, falling back to the configured one.
func (a *App) CurrentUser(ctx context.Context) string {
	if id, err := a.Repos.Auth.CurrentUserID(ctx); err == nil && id != "" {
		return id
	}
	return a.Cfg.User
}
