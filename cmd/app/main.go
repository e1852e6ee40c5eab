package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"momo-gateway/internal/config"
	"momo-gateway/internal/domain/model"
	"momo-gateway/internal/domain/ports/adapter"
	"momo-gateway/internal/domain/ports/repository"
	payadapters "momo-gateway/internal/infra/adapters/payment"
	pg "momo-gateway/internal/infra/db/postgres"
	"momo-gateway/internal/infra/logging"
	"momo-gateway/internal/infra/metrics"
	red "momo-gateway/internal/infra/redis"
	"momo-gateway/internal/infra/web"
	"momo-gateway/internal/usecase"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

	// ---- Postgres (payment records) ----
	var payments repository.PaymentRepository
	if cfg.Database.URL != "" {
		pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres")
		}
		defer pool.Close()
		if err := pg.EnsureSchema(ctx, pool); err != nil {
			logger.Fatal().Err(err).Msg("postgres schema")
		}
		payments = pg.NewPaymentRepo(pool)
	} else {
		logger.Warn().Msg("database.url not set; payment records will not be persisted")
	}

	// ---- Redis (idempotency fence) ----
	var idem repository.IdempotencyStore
	if cfg.Redis.URL != "" {
		client, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis")
		}
		defer client.Close()
		idem = red.NewIdempotencyStore(client)
	} else {
		logger.Warn().Msg("redis.url not set; duplicate submissions will not be fenced")
	}

	// ---- Provider adapters ----
	reg := usecase.NewRegistry()
	retry := payadapters.RetryPolicy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   cfg.Retry.BaseDelay,
	}
	if err := registerProviders(reg, cfg, retry, logger); err != nil {
		logger.Fatal().Err(err).Msg("provider setup")
	}
	if len(reg.Providers()) == 0 {
		logger.Fatal().Msg("no provider enabled in config")
	}

	gateway := usecase.NewGatewayUseCase(reg, payments, idem, logger)
	server := web.NewServer(gateway, cfg.Server.APIKey, logger)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("gateway listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown")
	}
}

func registerProviders(reg *usecase.Registry, cfg *config.Config, retry payadapters.RetryPolicy, logger *zerolog.Logger) error {
	type entry struct {
		provider model.Provider
		settings config.ProviderSettings
		build    func(s config.ProviderSettings) (adapter.ProviderAdapter, error)
	}

	entries := []entry{
		{model.ProviderMTN, cfg.Providers.MTN, func(s config.ProviderSettings) (adapter.ProviderAdapter, error) {
			return payadapters.NewMTNAdapter(s.APIKey, s.MerchantCode, s.SecretKey, optionsFor(s))
		}},
		{model.ProviderOrange, cfg.Providers.Orange, func(s config.ProviderSettings) (adapter.ProviderAdapter, error) {
			return payadapters.NewOrangeAdapter(s.APIKey, s.MerchantCode, s.SecretKey, optionsFor(s))
		}},
		{model.ProviderWave, cfg.Providers.Wave, func(s config.ProviderSettings) (adapter.ProviderAdapter, error) {
			return payadapters.NewWaveAdapter(s.APIKey, s.MerchantCode, s.SecretKey, optionsFor(s))
		}},
	}

	for _, e := range entries {
		if !e.settings.Enabled {
			logger.Info().Str("provider", string(e.provider)).Msg("provider disabled, skipping")
			continue
		}
		ad, err := e.build(e.settings)
		if err != nil {
			// A misconfigured provider must not silently accept traffic.
			return err
		}
		reg.Register(e.provider, e.settings.ToProviderConfig(), payadapters.WithBreaker(payadapters.WithRetry(ad, retry)))
		logger.Info().Str("provider", string(e.provider)).Msg("provider registered")
	}
	return nil
}

func optionsFor(s config.ProviderSettings) payadapters.Options {
	return payadapters.Options{
		BaseURL:       s.BaseURL,
		Timeout:       s.Timeout,
		MinAmount:     s.MinAmount,
		WebhookSecret: s.WebhookSecret,
	}
}
