package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flashpaperhq/flashpaper/internal/accounts"
	"github.com/flashpaperhq/flashpaper/internal/avatar"
	"github.com/flashpaperhq/flashpaper/internal/boot"
	"github.com/flashpaperhq/flashpaper/internal/config"
	"github.com/flashpaperhq/flashpaper/internal/db"
	"github.com/flashpaperhq/flashpaper/internal/follow"
	"github.com/flashpaperhq/flashpaper/internal/handlers"
	"github.com/flashpaperhq/flashpaper/internal/logger"
	"github.com/flashpaperhq/flashpaper/internal/server"
	"github.com/flashpaperhq/flashpaper/internal/status"
	"github.com/flashpaperhq/flashpaper/internal/storage"
	"github.com/flashpaperhq/flashpaper/internal/store"
	"github.com/flashpaperhq/flashpaper/internal/webhook"
)

func provideConfig() (config.Config, error) {
	cfgPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideDBConn(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	conn, err := db.Open(ctx, cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			conn.Close()
			return nil
		},
	})
	return conn, nil
}

func provideBlobStorage(cfg config.Config) (storage.Provider, error) {
	return storage.NewFilesystem(cfg.Avatars.Dir)
}

func provideStatusService(log *slog.Logger, st *store.Store, dispatcher *webhook.Dispatcher) *status.Service {
	return status.NewService(log, st, dispatcher)
}

func provideAvatarService(log *slog.Logger, st *store.Store, blobs storage.Provider, cfg config.Config, dispatcher *webhook.Dispatcher) *avatar.Service {
	return avatar.NewService(log, st, blobs, cfg.Avatars.UploadMaxBytes, dispatcher)
}

func provideFollowService(log *slog.Logger, st *store.Store) *follow.Service {
	return follow.NewService(log, st)
}

func provideWebhookService(log *slog.Logger, st *store.Store, cfg config.Config) *webhook.Service {
	return webhook.NewService(log, st, cfg.Webhooks)
}

func provideWebhookDispatcher(log *slog.Logger, st *store.Store, cfg config.Config) *webhook.Dispatcher {
	return webhook.NewDispatcher(log, st, cfg.Webhooks)
}

func provideAccountsService(log *slog.Logger, st *store.Store, blobs storage.Provider) *accounts.Service {
	return accounts.NewService(log, st, blobs)
}

func provideAuthHandler(log *slog.Logger, accountService *accounts.Service, runtimeConfig *boot.RuntimeConfig) *handlers.AuthHandler {
	return handlers.NewAuthHandler(log, accountService, runtimeConfig.JwtSecret, runtimeConfig.JwtExpiresIn)
}

func provideServer(log *slog.Logger, cfg config.Config, runtimeConfig *boot.RuntimeConfig, accountService *accounts.Service, serverHandlers []server.Handler) *server.Server {
	verify := func(ctx context.Context, username, password string) (string, error) {
		account, err := accountService.Verify(ctx, username, password)
		if err != nil {
			return "", err
		}
		return account.Username, nil
	}
	return server.NewServer(log, cfg.Server, runtimeConfig.JwtSecret, verify, serverHandlers...)
}

func startServer(lc fx.Lifecycle, srv *server.Server, log *slog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("server stopped", slog.Any("error", err))
					os.Exit(1)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Stop(ctx)
		},
	})
}

func provideServerHandler(fn any) any {
	return fx.Annotate(
		fn,
		fx.As(new(server.Handler)),
		fx.ResultTags(`group:"server_handlers"`),
	)
}

func main() {
	fx.New(
		fx.Provide(
			provideConfig,
			boot.ProvideRuntimeConfig,
			provideLogger,

			provideDBConn,
			store.New,
			provideBlobStorage,

			provideWebhookDispatcher,
			provideStatusService,
			provideAvatarService,
			provideFollowService,
			provideWebhookService,
			provideAccountsService,

			provideServerHandler(handlers.NewPingHandler),
			provideServerHandler(provideAuthHandler),
			provideServerHandler(handlers.NewStatusHandler),
			provideServerHandler(handlers.NewFollowHandler),
			provideServerHandler(handlers.NewWebhookHandler),
			provideServerHandler(handlers.NewAvatarHandler),

			fx.Annotate(provideServer, fx.ParamTags("", "", "", "", `group:"server_handlers"`)),
		),
		fx.Invoke(
			startServer,
		),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
	).Run()
}
