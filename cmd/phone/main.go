package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/sitex/tgtemplates/internal/adapters/geo"
	"github.com/sitex/tgtemplates/internal/adapters/tg"
	"github.com/sitex/tgtemplates/internal/api"
	"github.com/sitex/tgtemplates/internal/config"
	"github.com/sitex/tgtemplates/internal/dispatch"
	"github.com/sitex/tgtemplates/internal/domain"
	"github.com/sitex/tgtemplates/internal/location"
	"github.com/sitex/tgtemplates/internal/mailbox"
	"github.com/sitex/tgtemplates/internal/mirror"
	"github.com/sitex/tgtemplates/internal/ports"
	"github.com/sitex/tgtemplates/internal/shared"
	"github.com/sitex/tgtemplates/internal/store"
	"github.com/sitex/tgtemplates/internal/watch"
)

const (
	envDev  = "dev"
	envProd = "prod"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := setupLogger(cfg.Env)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Error("redis unreachable", "addr", cfg.Redis.Addr, "error", err)
		os.Exit(1)
	}
	sharedStore := shared.NewRedisStore(rdb, logger)

	repo, err := store.NewJSONTemplateRepo(cfg.BaseDir)
	if err != nil {
		logger.Error("template store init failed", "error", err)
		os.Exit(1)
	}

	hub := watch.NewHub(logger)
	go hub.Run(ctx)

	publisher := mirror.NewPublisher(sharedStore, hub, logger)
	repo.OnMutated(publisher.Publish)

	// Seed the mirror so companion surfaces see the list before the first
	// mutation of this run.
	if templates, err := repo.List(ctx); err != nil {
		logger.Error("template list load failed", "error", err)
	} else {
		publisher.Publish(templates)
	}

	auth, tgc := startTelegram(ctx, cfg, sharedStore, logger)
	defer tgc.Close()

	locator := location.NewOneShot(geo.NewClient(cfg.Geo.URL, cfg.Geo.Timeout, logger))
	resolver := dispatch.NewResolver(auth, repo, tgc, locator, logger)
	refresher := dispatch.NewGroupRefresher(auth, tgc, sharedStore, logger)

	hub.OnSend(func(ctx context.Context, templateID string) error {
		id, err := uuid.Parse(templateID)
		if err != nil {
			return dispatch.ErrTemplateNotFound
		}
		return resolver.Send(ctx, id)
	})

	consumer := mailbox.NewConsumer(sharedStore, resolver, logger)
	poller, err := mailbox.NewPoller(cfg.Mailbox.PollInterval, consumer.Check)
	if err != nil {
		logger.Error("mailbox poller init failed", "error", err)
		os.Exit(1)
	}
	poller.Start()
	defer poller.Stop()

	apiSrv := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: api.Router(api.NewHandler(repo, resolver, refresher, auth, auth, logger)),
	}
	go func() {
		logger.Info("http api listening", "addr", cfg.HTTP.Addr)
		if err := apiSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http api server failed", "error", err)
			cancel()
		}
	}()

	watchMux := http.NewServeMux()
	watchMux.HandleFunc("GET /ws", hub.ServeWS)
	watchSrv := &http.Server{Addr: cfg.Watch.Addr, Handler: watchMux}
	go func() {
		logger.Info("watch hub listening", "addr", cfg.Watch.Addr)
		if err := watchSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("watch hub server failed", "error", err)
			cancel()
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info("shutdown signal received")
	case <-ctx.Done():
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = apiSrv.Shutdown(shutdownCtx)
	_ = watchSrv.Shutdown(shutdownCtx)

	logger.Info("exit")
}

// startTelegram gates the TDLib client on a usable credential pair: config
// first, shared store second. Without one the surfaces stay up but the auth
// state machine reports the configuration error, surfaced once here.
func startTelegram(
	ctx context.Context,
	cfg *config.Config,
	sharedStore *shared.RedisStore,
	logger *slog.Logger,
) (authSurface, ports.TelegramClient) {
	apiID := cfg.Telegram.APIID
	apiHash := cfg.Telegram.APIHash

	if cfg.CredentialsConfigured() {
		if err := sharedStore.StoreCredentials(ctx, apiID, apiHash); err != nil {
			logger.Warn("credential share failed", "error", err)
		}
	} else {
		var err error
		apiID, apiHash, err = sharedStore.Credentials(ctx)
		if err != nil {
			logger.Error("telegram client not started: api credentials missing", "error", err)
			return newUnconfigured(logger)
		}
	}

	svc, err := tg.NewService(apiID, apiHash, cfg.BaseDir, logger)
	if err != nil {
		logger.Error("telegram client init failed", "error", err)
		return newUnconfigured(logger)
	}
	svc.Start()
	return svc.Auth(), svc
}

// authSurface is what the HTTP layer needs from the auth side: the readable
// state machine plus the submit operations.
type authSurface interface {
	ports.AuthStateReader
	ports.AuthSubmitter
}

// unconfigured replaces the Telegram stack when no credential pair exists.
// Every send fails with the configuration error; submits go nowhere.
type unconfigured struct {
	logger *slog.Logger
}

func newUnconfigured(logger *slog.Logger) (authSurface, ports.TelegramClient) {
	u := &unconfigured{logger: logger}
	return u, u
}

func (u *unconfigured) Status() ports.AuthStatus {
	return ports.AuthStatus{State: ports.StateError, Detail: shared.ErrNotConfigured.Error()}
}

func (u *unconfigured) SubmitPhone(string)    { u.logger.Warn("auth submit ignored: client not started") }
func (u *unconfigured) SubmitCode(string)     { u.logger.Warn("auth submit ignored: client not started") }
func (u *unconfigured) SubmitPassword(string) { u.logger.Warn("auth submit ignored: client not started") }

func (u *unconfigured) SendText(context.Context, int64, string) error {
	return shared.ErrNotConfigured
}

func (u *unconfigured) ListGroups(context.Context) ([]domain.Group, error) {
	return nil, shared.ErrNotConfigured
}

func (u *unconfigured) Close() {}

func setupLogger(env string) *slog.Logger {
	var logger *slog.Logger

	switch env {
	case envDev:
		logger = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		logger = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		logger = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return logger
}
