// Package app wires all quest-keeper subsystems into a running application.
//
// The App struct owns the full lifecycle: [New] creates and connects all
// subsystems, [App.Run] executes the refresh loop and ops HTTP surface, and
// [App.Shutdown] tears everything down in order.
//
// For testing, inject doubles via functional options ([WithCaller],
// [WithPrefs]). When an option is not provided, New creates real
// implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Raven-Six/mnehmos.quest-keeper.game-sub001/internal/config"
	"github.com/Raven-Six/mnehmos.quest-keeper.game-sub001/internal/health"
	"github.com/Raven-Six/mnehmos.quest-keeper.game-sub001/internal/observe"
	"github.com/Raven-Six/mnehmos.quest-keeper.game-sub001/internal/prefs"
	"github.com/Raven-Six/mnehmos.quest-keeper.game-sub001/internal/rpc"
	"github.com/Raven-Six/mnehmos.quest-keeper.game-sub001/internal/rpc/mcpbridge"
	"github.com/Raven-Six/mnehmos.quest-keeper.game-sub001/internal/syncer"
)

const defaultStoragePath = "questkeeper.db"

// App owns every subsystem of the sync layer.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	caller rpc.Caller
	bridge *mcpbridge.Bridge // nil when a caller was injected
	store  *prefs.Store
	sync   *syncer.Syncer

	httpServer *http.Server
}

// Option customises [New].
type Option func(*App)

// WithCaller injects a remote caller, bypassing the MCP bridge. Used in
// tests.
func WithCaller(c rpc.Caller) Option {
	return func(a *App) { a.caller = c }
}

// WithPrefs injects an already-open preferences store. Used in tests.
func WithPrefs(s *prefs.Store) Option {
	return func(a *App) { a.store = s }
}

// New creates and connects all subsystems from cfg. On success the returned
// App is ready for [App.Run].
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{cfg: cfg, logger: logger}
	for _, opt := range opts {
		opt(a)
	}

	if a.caller == nil {
		name := cfg.GameState.Name
		if name == "" {
			name = "game-state"
		}
		bridge, err := mcpbridge.Connect(ctx, mcpbridge.ServerConfig{
			Name:      name,
			Transport: cfg.GameState.Transport,
			Command:   cfg.GameState.Command,
			URL:       cfg.GameState.URL,
			Env:       cfg.GameState.Env,
		})
		if err != nil {
			return nil, fmt.Errorf("app: connect game-state server: %w", err)
		}
		a.bridge = bridge
		a.caller = bridge
	}

	if a.store == nil {
		path := cfg.Storage.Path
		if path == "" {
			path = defaultStoragePath
		}
		store, err := prefs.Open(path)
		if err != nil {
			a.closeBridge()
			return nil, fmt.Errorf("app: open preferences store: %w", err)
		}
		a.store = store
	}

	a.sync = syncer.New(a.caller, syncer.Config{
		RateLimit:   cfg.Sync.RateLimit(),
		Debounce:    cfg.Sync.Debounce(),
		SyncTimeout: cfg.Sync.Timeout(),
		PersistActiveParty: func(partyID string) error {
			return a.store.SaveActiveParty(context.Background(), partyID)
		},
	}, logger, observe.DefaultMetrics())

	// Restore the one scalar that survives restarts. The first Heal pass
	// clears it again if the party no longer exists remotely.
	if partyID, ok, err := a.store.ActiveParty(ctx); err != nil {
		logger.Warn("failed to restore active party", "error", err)
	} else if ok {
		a.sync.Coordinator().RestoreActiveParty(partyID)
		logger.Info("restored active party", "party_id", partyID)
	}

	return a, nil
}

// Syncer returns the sync orchestrator, the read/mutate surface for views.
func (a *App) Syncer() *syncer.Syncer { return a.sync }

// Run performs the initial forced sync, starts the ops HTTP surface, and
// drives the periodic background refresh until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if addr := a.cfg.Server.ListenAddr; addr != "" {
		a.startHTTP(addr)
	}

	a.sync.SyncAll(ctx, true)

	interval := a.cfg.Sync.RefreshInterval()
	if interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			a.sync.RequestSync(false)
		}
	}
}

// startHTTP serves the health probes and the Prometheus metrics bridge.
func (a *App) startHTTP(addr string) {
	checkers := []health.Checker{
		health.Condition("synced", a.sync.Synced, "no sync completed yet"),
		{Name: "prefs", Check: a.store.Ping},
	}
	if a.bridge != nil {
		checkers = append(checkers, health.Checker{Name: "game_state", Check: a.bridge.Ping})
	}

	mux := http.NewServeMux()
	health.New(checkers...).Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	a.httpServer = &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("ops http server failed", "error", err)
		}
	}()
	a.logger.Info("ops http server listening", "addr", addr)
}

// Shutdown tears all subsystems down in order. Safe to call once after Run
// returns.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error

	a.sync.Close()

	if a.httpServer != nil {
		if err := a.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("app: shutdown http server: %w", err))
		}
	}
	if a.bridge != nil {
		if err := a.bridge.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("app: close preferences store: %w", err))
		}
	}

	return errors.Join(errs...)
}

func (a *App) closeBridge() {
	if a.bridge != nil {
		_ = a.bridge.Close()
	}
}
