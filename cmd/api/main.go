// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/briangreenhill/arqbot/cache"
	"github.com/briangreenhill/arqbot/internal/chat"
	"github.com/briangreenhill/arqbot/internal/config"
	"github.com/briangreenhill/arqbot/internal/http/routes"
	"github.com/briangreenhill/arqbot/internal/logging"
	"github.com/briangreenhill/arqbot/internal/prompt"
	"github.com/briangreenhill/arqbot/internal/providers"
)

func main() {
	bootstrap := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		bootstrap.Fatal().Err(err).Msg("config error")
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		bootstrap.Fatal().Err(err).Msg("logger error")
	}

	// Environment check
	if missing := cfg.MissingKeys(); len(missing) > 0 {
		logger.Warn().Strs("missing", missing).Msg("missing environment variables, some features will not work")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Cache
	fingerprint, err := cache.ParseFingerprint(cfg.Cache.KeyFingerprint)
	if err != nil {
		logger.Fatal().Err(err).Msg("cache key fingerprint")
	}
	cacheLog := logging.Component(logger, "cache")
	store := cache.NewMemoryStore(
		cache.WithTTL(cfg.Cache.TTL),
		cache.WithMaxEntries(cfg.Cache.MaxEntries),
		cache.WithLogger(cacheLog),
		cache.WithMetrics(cache.NewMetrics(reg)),
	)

	sweepers := cache.StartSweepers(ctx, store, sweeperConfig(cfg), cacheLog)
	defer sweepers.Stop()

	// Chat
	generators := providers.Setup(cfg, logging.Component(logger, "providers"))
	chatLog := logging.Component(logger, "chat")
	svc := chat.NewService(
		cache.NewChatAdapter(store, &cache.KeyGenerator{Fingerprint: fingerprint}, cacheLog),
		generators,
		prompt.NewGenerator(cfg.PromptPath, chatLog),
		chatLog,
	)

	// Router / server
	s := routes.New(routes.ServerOptions{
		Store:    store,
		Chat:     svc,
		Cfg:      *cfg,
		Logger:   logger,
		Gatherer: reg,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", srv.Addr).
			Strs("providers", generators.List()).
			Dur("cache_ttl", store.TTL()).
			Msg("starting api")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("server error")
		}
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func sweeperConfig(cfg *config.Config) cache.SweeperConfig {
	sc := cache.SweeperConfig{
		ExpireInterval:       cfg.Cache.ExpireInterval,
		RefreshInterval:      cfg.Cache.RefreshInterval,
		MaintenanceThreshold: cfg.Cache.MaintenanceThreshold,
	}
	if cfg.Cache.MaintenanceEnabled {
		sc.MaintenanceInterval = cfg.Cache.MaintenanceInterval
	}
	return sc
}
