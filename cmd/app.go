package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/Ducpm1301/ga-webcs/internal/broadcast"
	"github.com/Ducpm1301/ga-webcs/internal/dashboard"
	"github.com/Ducpm1301/ga-webcs/internal/session"
	"github.com/Ducpm1301/ga-webcs/internal/store"
	"github.com/Ducpm1301/ga-webcs/pkg/bsapi"
)

// appEnv holds the wired application components shared by all commands.
type appEnv struct {
	Store   store.Store
	API     bsapi.Client
	Hub     *broadcast.Hub
	Session *session.Manager
	Watcher *store.Watcher
	View    *dashboard.View
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "webcs.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initApp wires the store, upstream client, selection hub, session
// machine, and watcher. The session watcher is registered but not
// running; commands that need cross-process updates start it.
func initApp(ctx context.Context) (*appEnv, error) {
	if cfg.Upstream.BaseURL == "" {
		return nil, eris.New("upstream base URL is required (WEBCS_UPSTREAM_BASE_URL)")
	}
	if cfg.Upstream.APIKey == "" {
		return nil, eris.New("upstream API key is required (WEBCS_UPSTREAM_API_KEY)")
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}

	api := bsapi.NewClient(cfg.Upstream.BaseURL, cfg.Upstream.APIKey,
		bsapi.WithTimeout(cfg.Upstream.Timeout()),
		bsapi.WithRateLimit(cfg.Upstream.RatePerSec),
		bsapi.WithTokenSource(func() string {
			tok, err := st.Token(context.Background())
			if err != nil {
				zap.L().Warn("read token failed", zap.Error(err))
				return ""
			}
			return tok
		}),
	)

	hub := broadcast.NewHub(st)
	mgr := session.NewManager(api, st, hub, cfg.Upstream.ApplicationCode, cfg.Upstream.Device)

	watcher := store.NewWatcher(st, cfg.Watch.Interval())
	watcher.Subscribe(mgr.HandleStoreEvent)

	return &appEnv{
		Store:   st,
		API:     api,
		Hub:     hub,
		Session: mgr,
		Watcher: watcher,
		View:    dashboard.NewView(api, hub),
	}, nil
}

func (e *appEnv) Close() {
	if err := e.Store.Close(); err != nil {
		zap.L().Warn("close store failed", zap.Error(err))
	}
}
