package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/kvchat/internal/config"
	"github.com/vovakirdan/kvchat/internal/core"
	"github.com/vovakirdan/kvchat/internal/kvstore"
	"github.com/vovakirdan/kvchat/internal/kvstore/memory"
	redisstore "github.com/vovakirdan/kvchat/internal/kvstore/redis"
	"github.com/vovakirdan/kvchat/internal/kvstore/webkv"
	"github.com/vovakirdan/kvchat/internal/state"
	statesqlite "github.com/vovakirdan/kvchat/internal/state/sqlite"
	transporthttp "github.com/vovakirdan/kvchat/internal/transport/http"
)

// App wires the sync engine, local state and the UI gateway together.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	session         *core.Session
	state           state.Store
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	store, err := newStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	logger.Info().Str("backend", cfg.Store.Backend).Msg("remote store initialized")

	st, err := statesqlite.New(cfg.StatePath)
	if err != nil {
		return nil, fmt.Errorf("init state: %w", err)
	}
	logger.Info().Str("state_path", cfg.StatePath).Msg("local state initialized")

	username, err := st.Username(ctx)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("load username: %w", err)
	}
	if username == "" {
		username = cfg.Username
		if err := st.SetUsername(ctx, username); err != nil {
			logger.Warn().Err(err).Msg("failed to persist default username")
		}
	}

	session := core.NewSession(store, username, logger,
		core.WithPollInterval(cfg.Poll.Interval),
		core.WithRequestTimeout(cfg.Poll.RequestTimeout),
	)

	// Land in the default room on first run so a fresh client sees traffic.
	room, err := defaultRoom(ctx, st, cfg)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to resolve default room")
	} else if err := session.SwitchRoom(room); err != nil {
		logger.Warn().Err(err).Int64("room_id", room.ID).Msg("failed to bind default room")
	}

	server := transporthttp.NewServer(session, st, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		session:         session,
		state:           st,
		log:             logger,
	}, nil
}

// Run starts the HTTP gateway and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down gateway")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

// cleanup stops the session and closes local resources.
func (a *App) cleanup() {
	a.session.Close()

	if a.state != nil {
		if err := a.state.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close state store")
		} else {
			a.log.Info().Msg("state store closed")
		}
	}
}

func newStore(ctx context.Context, cfg *config.Config) (kvstore.Store, error) {
	switch cfg.Store.Backend {
	case "memory", "":
		return memory.New(), nil
	case "redis":
		return redisstore.New(ctx, redisstore.Config{
			Addr:      cfg.Store.RedisAddr,
			Password:  cfg.Store.RedisPassword,
			DB:        cfg.Store.RedisDB,
			Namespace: cfg.Store.Namespace,
		})
	case "webkv":
		return webkv.New(webkv.Config{
			BaseURL: cfg.Store.BaseURL,
			Token:   cfg.Store.Token,
			Timeout: cfg.Poll.RequestTimeout,
		})
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// defaultRoom returns the first bookmarked room, seeding the bookmark list
// with the configured default when empty.
func defaultRoom(ctx context.Context, st state.Store, cfg *config.Config) (core.Room, error) {
	rooms, err := st.ListRooms(ctx)
	if err != nil {
		return core.Room{}, err
	}
	if len(rooms) > 0 {
		return core.Room{ID: rooms[0].ID, Title: rooms[0].Title}, nil
	}

	seed := state.SavedRoom{ID: cfg.DefaultRoomID, Title: cfg.DefaultRoomTitle}
	if err := st.SaveRoom(ctx, seed); err != nil {
		return core.Room{}, err
	}
	return core.Room{ID: seed.ID, Title: seed.Title}, nil
}
