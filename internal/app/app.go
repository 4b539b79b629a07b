package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/permit-prep/internal/admin"
	"github.com/gokatarajesh/permit-prep/internal/attempt"
	"github.com/gokatarajesh/permit-prep/internal/config"
	"github.com/gokatarajesh/permit-prep/internal/explain"
	"github.com/gokatarajesh/permit-prep/internal/logging"
	"github.com/gokatarajesh/permit-prep/internal/practice"
	"github.com/gokatarajesh/permit-prep/internal/question"
	"github.com/gokatarajesh/permit-prep/internal/server"
	"github.com/gokatarajesh/permit-prep/internal/storage/redisstore"
	ws "github.com/gokatarajesh/permit-prep/pkg/http/ws"
)

const redisKeyPrefix = "permit-prep"

// Application aggregates shared infrastructure (DB, cache, HTTP server).
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	pool  *pgxpool.Pool
	redis *redis.Client
	http  *http.Server

	practice  *practice.Service
	hub       *ws.Hub
	evictor   *practice.Evictor
	bgCancels []context.CancelFunc
}

// New bootstraps logger, Postgres, Redis, the practice service and the HTTP server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env, cfg.LogLevel)
	logger.Info().Msg("starting application bootstrap")

	pool, err := pgxpool.New(ctx, cfg.Postgres.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	// Saved sessions expire when abandoned; the edited bank never does.
	progressStore := redisstore.New(redisClient, redisKeyPrefix, cfg.Practice.ProgressTTL)
	bankStore := redisstore.New(redisClient, redisKeyPrefix, 0)

	var explainer explain.Explainer = explain.Unavailable
	if cfg.Explain.APIKey != "" {
		client := explain.NewClient(explain.Config{
			APIKey:  cfg.Explain.APIKey,
			Model:   cfg.Explain.Model,
			BaseURL: cfg.Explain.BaseURL,
			Timeout: cfg.Explain.Timeout,
		}, logger)
		explainer = explain.NewCache(client, explain.NewRedisCacheStore(redisClient), cfg.Explain.CacheTTL, logger)
	} else {
		logger.Warn().Msg("GEMINI_API_KEY not set; explanations will use the fallback text")
	}

	hub := ws.NewHub(logger)
	attempts := attempt.NewRepository(pool)

	practiceSvc := practice.NewService(practice.ServiceConfig{
		Store:          progressStore,
		Source:         question.NewSource(bankStore, logger),
		Explainer:      explainer,
		ExplainTimeout: cfg.Explain.Timeout,
		PassPercent:    cfg.Practice.PassPercent,
		Recorder:       attempts,
		Logger:         logger,
		Notify:         hub.NotifyExplanation,
	})

	tokens := admin.NewTokenManager(admin.TokenConfig{
		Secret: []byte(cfg.Security.JWTSecret),
		TTL:    cfg.Security.TokenTTL,
		Issuer: cfg.Name,
	})
	if cfg.Security.AdminPasswordHash == "" {
		logger.Warn().Msg("ADMIN_PASSWORD_HASH not set; admin login disabled")
	}
	adminHandlers := admin.NewHTTPHandlers(
		admin.CredentialAuthenticator{
			Username:     cfg.Security.AdminUsername,
			PasswordHash: cfg.Security.AdminPasswordHash,
		},
		tokens,
		question.NewCatalog(bankStore, question.NewValidator(), logger),
		logger,
	)

	apiServer := server.NewHTTPServer(cfg, logger, server.Deps{
		Practice:    practiceSvc,
		Attempts:    attempts,
		Admin:       adminHandlers,
		AdminTokens: tokens,
		Hub:         hub,
		Checks: []server.Check{
			{Name: "postgres", Ping: pool.Ping},
			{Name: "redis", Ping: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
		},
	})

	return &Application{
		cfg:       cfg,
		logger:    logger,
		pool:      pool,
		redis:     redisClient,
		http:      apiServer,
		practice:  practiceSvc,
		hub:       hub,
		evictor:   practice.NewEvictor(practiceSvc, cfg.Practice.EvictInterval, cfg.Practice.IdleTimeout, logger),
		bgCancels: make([]context.CancelFunc, 0, 1),
	}, nil
}

// Run starts the HTTP server and waits for termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	a.startBackgroundWorkers(ctx)

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}
	a.hub.CloseAll()

	for _, cancel := range a.bgCancels {
		cancel()
	}

	// In-flight explanations still write back to Redis.
	a.practice.Wait()

	a.pool.Close()
	if err := a.redis.Close(); err != nil {
		a.logger.Error().Err(err).Msg("redis shutdown error")
	}

	a.logger.Info().Msg("shutdown complete")
	return nil
}

func (a *Application) startBackgroundWorkers(ctx context.Context) {
	if a.evictor != nil {
		bgCtx, cancel := context.WithCancel(ctx)
		a.bgCancels = append(a.bgCancels, cancel)
		go func() {
			if err := a.evictor.Run(bgCtx); err != nil && err != context.Canceled {
				a.logger.Warn().Err(err).Msg("session evictor stopped")
			}
		}()
	}
}
