package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/briangreenhill/arqbot/cache"
	"github.com/briangreenhill/arqbot/internal/chat"
	"github.com/briangreenhill/arqbot/internal/config"
	appmw "github.com/briangreenhill/arqbot/internal/http/middleware"
)

type Server struct {
	Router *chi.Mux
	Store  cache.Store
	Chat   *chat.Service
	Logger zerolog.Logger

	maintenanceThreshold time.Duration
	now                  func() time.Time
}

type ServerOptions struct {
	Store  cache.Store
	Chat   *chat.Service
	Cfg    config.Config
	Logger zerolog.Logger
	// Gatherer serves /metrics when set
	Gatherer prometheus.Gatherer
	// Now defaults to time.Now
	Now func() time.Time
}

func New(opts ServerOptions) *Server {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(hlog.NewHandler(opts.Logger))
	r.Use(hlog.RequestIDHandler("req_id", "X-Request-Id"))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	}))
	r.Use(chimw.Recoverer)

	s := &Server{
		Router:               r,
		Store:                opts.Store,
		Chat:                 opts.Chat,
		Logger:               opts.Logger,
		maintenanceThreshold: opts.Cfg.Cache.MaintenanceThreshold,
		now:                  opts.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.maintenanceThreshold <= 0 {
		s.maintenanceThreshold = cache.DefaultMaintenanceThreshold
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("ok")); err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("error writing health check response")
		}
	})
	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(api chi.Router) {
		api.Post("/chat", s.handleChat)

		api.Group(func(admin chi.Router) {
			admin.Use(appmw.RequireAdminToken(opts.Cfg.AdminToken))
			admin.Get("/cache", s.admin("Failed to get cache statistics", s.handleCacheStats))
			admin.Delete("/cache", s.admin("Failed to clear cache", s.handleCacheClear))
			admin.Post("/cache", s.admin("Failed to perform cache action", s.handleCacheAction))
			admin.Post("/cache/refresh", s.admin("Failed to refresh cache entries", s.handleCacheRefresh))
			admin.Get("/cache/stats", s.admin("Failed to get detailed cache statistics", s.handleCacheDetails))
			admin.Get("/scheduled-tasks/cache-maintenance", s.handleMaintenance)
		})
	})

	if opts.Cfg.AdminToken == "" {
		opts.Logger.Warn().Msg("ADMIN_TOKEN not set, cache administration endpoints are unauthenticated")
	}

	return s
}
