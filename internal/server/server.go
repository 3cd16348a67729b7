// Package server provides the HTTP server and routing for the trade journal.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/journal/internal/config"
	"github.com/aristath/journal/internal/database"
	"github.com/aristath/journal/internal/events"
	"github.com/aristath/journal/internal/modules/journal"
	journalhandlers "github.com/aristath/journal/internal/modules/journal/handlers"
	metricshandlers "github.com/aristath/journal/internal/modules/metrics/handlers"
	"github.com/aristath/journal/internal/modules/snapshots"
	snapshothandlers "github.com/aristath/journal/internal/modules/snapshots/handlers"
	"github.com/aristath/journal/internal/reliability"
)

// Config holds server configuration
type Config struct {
	Log          zerolog.Logger
	JournalDB    *database.DB
	CacheDB      *database.DB
	Config       *config.Config
	Port         int
	DevMode      bool
	EventBus     *events.Bus
	TradeRepo    *journal.TradeRepository
	SnapshotRepo *snapshots.Repository
	QuoteStream  QuoteStreamStatus              // Optional
	QuoteSource  metricshandlers.QuoteSource    // Optional
	CloudBackup  *reliability.CloudBackupService // Optional
}

// QuoteStreamStatus reports quote stream health for the status endpoint
type QuoteStreamStatus interface {
	IsConnected() bool
	IsCacheStale() bool
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	journalDB      *database.DB
	cacheDB        *database.DB
	cfg            *config.Config
	eventBus       *events.Bus
	tradeRepo      *journal.TradeRepository
	snapshotRepo   *snapshots.Repository
	quoteSource    metricshandlers.QuoteSource
	systemHandlers *SystemHandlers
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	systemHandlers := NewSystemHandlers(
		cfg.Log,
		cfg.Config.DataDir,
		cfg.JournalDB,
		cfg.CacheDB,
		cfg.QuoteStream,
		cfg.EventBus,
		cfg.CloudBackup,
	)

	s := &Server{
		router:         chi.NewRouter(),
		log:            cfg.Log.With().Str("component", "server").Logger(),
		journalDB:      cfg.JournalDB,
		cacheDB:        cfg.CacheDB,
		cfg:            cfg.Config,
		eventBus:       cfg.EventBus,
		tradeRepo:      cfg.TradeRepo,
		snapshotRepo:   cfg.SnapshotRepo,
		quoteSource:    cfg.QuoteSource,
		systemHandlers: systemHandlers,
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// SetJobs registers job instances for manual triggering via API
func (s *Server) SetJobs(sheetSync, snapshot, backup Job) {
	s.systemHandlers.SetJobs(sheetSync, snapshot, backup)
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// Timeout
	s.router.Use(middleware.Timeout(60 * time.Second))

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Compress responses
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	// Health check
	s.router.Get("/health", s.handleHealth)

	// API routes
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Unified events stream (SSE)
		eventsStreamHandler := NewEventsStreamHandler(s.eventBus, s.log)
		r.Get("/events/stream", eventsStreamHandler.ServeHTTP)

		// Journal module (trade CRUD)
		journalHandler := journalhandlers.NewHandler(s.tradeRepo, s.log)
		journalHandler.RegisterRoutes(r)

		// Metrics module (computed, read-only)
		metricsHandler := metricshandlers.NewHandler(s.tradeRepo, s.quoteSource, s.log)
		metricsHandler.RegisterRoutes(r)

		// Snapshots module (historical summaries)
		snapshotHandler := snapshothandlers.NewHandler(s.snapshotRepo, s.log)
		snapshotHandler.RegisterRoutes(r)

		// Sheet sync: manual trigger and last-run status
		r.Route("/sync", func(r chi.Router) {
			r.Post("/", s.systemHandlers.HandleTriggerSheetSync)
			r.Get("/status", s.systemHandlers.HandleSyncStatus)
		})

		// Cloud backup archives
		r.Route("/backups", func(r chi.Router) {
			r.Get("/", s.systemHandlers.HandleListBackups)
			r.Post("/", s.systemHandlers.HandleTriggerBackup)
		})

		// System monitoring, job triggers, backups
		r.Route("/system", func(r chi.Router) {
			r.Get("/status", s.systemHandlers.HandleSystemStatus)
			r.Get("/database/stats", s.systemHandlers.HandleDatabaseStats)
			r.Get("/disk", s.systemHandlers.HandleDiskUsage)
			r.Get("/backups", s.systemHandlers.HandleListBackups)

			r.Route("/jobs", func(r chi.Router) {
				r.Post("/sheet-sync", s.systemHandlers.HandleTriggerSheetSync)
				r.Post("/snapshot", s.systemHandlers.HandleTriggerSnapshot)
				r.Post("/backup", s.systemHandlers.HandleTriggerBackup)
			})
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
