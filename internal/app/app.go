package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/murmur/internal/config"
	"github.com/vovakirdan/murmur/internal/core"
	"github.com/vovakirdan/murmur/internal/relay"
	"github.com/vovakirdan/murmur/internal/store"
	"github.com/vovakirdan/murmur/internal/store/postgres"
	"github.com/vovakirdan/murmur/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/murmur/internal/transport/http"
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	typing          *core.TypingTracker
	bridge          *relay.Bridge
	redis           *redis.Client
	store           store.Store
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	logger.Info().Str("driver", cfg.Store.Driver).Msg("database initialized")

	a := &App{
		shutdownTimeout: cfg.ShutdownTimeout,
		store:           st,
		log:             logger,
	}

	a.hub = core.NewHub(logger)
	var pub core.Publisher = a.hub

	if cfg.Relay.RedisAddr != "" {
		a.redis = redis.NewClient(&redis.Options{Addr: cfg.Relay.RedisAddr})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			a.cleanup()
			return nil, fmt.Errorf("connect redis %s: %w", cfg.Relay.RedisAddr, err)
		}
		a.bridge = relay.New(a.hub, a.redis, cfg.Relay.Channel, cfg.Relay.PublishTimeout, logger)
		pub = a.bridge
		logger.Info().Str("redis_addr", cfg.Relay.RedisAddr).Str("channel", cfg.Relay.Channel).Msg("relay enabled")
	}

	history := core.NewHistory(st, cfg.Chat.MaxMessageChars)
	a.typing = core.NewTypingTracker(pub, cfg.Chat.TypingIdleTimeout, logger)
	if a.bridge != nil {
		a.bridge.ObserveTyping(a.typing.Observe)
	}
	chat := core.NewChat(
		core.NewRegistry(cfg.Chat.ClientBuffer, logger),
		a.hub,
		a.typing,
		core.NewPipeline(history, pub, logger),
		history,
	)

	a.server = transporthttp.NewServer(transporthttp.Deps{Chat: chat, Rooms: st}, cfg, logger)
	return a, nil
}

func openStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		return postgres.New(ctx, cfg.DatabaseURL)
	case config.DriverSQLite, "":
		return sqlite.New(cfg.DatabasePath)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// Run starts the HTTP server and background workers and blocks until
// context cancellation or a fatal error.
func (a *App) Run(ctx context.Context) error {
	defer a.cleanup()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.hub.Run(ctx)
		return nil
	})
	g.Go(func() error {
		a.typing.Run(ctx)
		return nil
	})
	if a.bridge != nil {
		g.Go(func() error {
			return a.bridge.Run(ctx)
		})
	}

	g.Go(func() error {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		return a.server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close redis client")
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
