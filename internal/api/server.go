package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/terra-clan/task-lobby/internal/catalog"
	"github.com/terra-clan/task-lobby/internal/config"
	"github.com/terra-clan/task-lobby/internal/selection"
	"github.com/terra-clan/task-lobby/internal/storage"
)

// ReadinessCheck reports whether a dependency can serve traffic
type ReadinessCheck func(ctx context.Context) error

// Server represents the HTTP API server
type Server struct {
	config         config.ServerConfig
	router         *chi.Mux
	catalog        *catalog.Service
	selections     *selection.Manager
	stats          selection.StatsSource
	repo           storage.Repository
	authMiddleware *AuthMiddleware
	checks         map[string]ReadinessCheck
}

// NewServer creates a new API server
func NewServer(
	cfg config.ServerConfig,
	catalogService *catalog.Service,
	selections *selection.Manager,
	stats selection.StatsSource,
	repo storage.Repository,
) *Server {
	s := &Server{
		config:         cfg,
		catalog:        catalogService,
		selections:     selections,
		stats:          stats,
		repo:           repo,
		authMiddleware: NewAuthMiddleware(repo),
		checks:         make(map[string]ReadinessCheck),
	}
	s.setupRouter()
	return s
}

// AddReadinessCheck registers an extra dependency for /ready
func (s *Server) AddReadinessCheck(name string, check ReadinessCheck) {
	s.checks[name] = check
}

// Router returns the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRouter configures all routes and middleware
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	origins := s.config.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Request timeout for everything but the lobby socket
	requestTimeout := s.config.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = 60 * time.Second
	}
	timeout := middleware.Timeout(requestTimeout)

	// Health check (outside versioned API - public)
	r.With(timeout).Get("/health", s.handleHealth)
	r.With(timeout).Get("/ready", s.handleReady)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware.Authenticate)

		read := s.authMiddleware.RequirePermission("tasks:read")

		r.Group(func(r chi.Router) {
			r.Use(timeout)

			// Catalog
			r.With(read).Get("/tasks", s.handleListTasks)
			r.With(read).Get("/tasks/{id}", s.handleGetTask)
			r.With(read).Get("/tags", s.handleListTags)
			r.With(read).Get("/grouped", s.handleGrouped)
			r.With(read).Get("/levels/{level}/tasks", s.handleLevelTasks)
			r.With(read).Get("/users/{id}/stats", s.handleUserStats)

			r.Route("/catalog", func(r chi.Router) {
				write := s.authMiddleware.RequirePermission("catalog:write")

				r.With(read).Get("/status", s.handleCatalogStatus)
				r.With(write).Post("/refresh", s.handleCatalogRefresh)
				r.With(write).Put("/tasks", s.handleUpsertTasks)
				r.With(write).Delete("/tasks/{id}", s.handleDeleteTask)
				r.With(write).Put("/tags", s.handleSetTags)
			})
		})

		// Lobby selections
		r.Route("/selections", func(r chi.Router) {
			selRead := s.authMiddleware.RequirePermission("selections:read")
			selWrite := s.authMiddleware.RequirePermission("selections:write")

			r.With(timeout, selWrite).Post("/", s.handleCreateSelection)

			r.Route("/{id}", func(r chi.Router) {
				r.Group(func(r chi.Router) {
					r.Use(timeout)

					r.With(selRead).Get("/", s.handleGetSelection)
					r.With(selRead).Get("/search", s.handleSearchSelection)
					r.With(selWrite).Delete("/", s.handleDeleteSelection)
					r.With(selWrite).Post("/tags/toggle", s.handleToggleTag)
					r.With(selWrite).Post("/task", s.handleChooseTask)
					r.With(selWrite).Post("/random", s.handleChooseRandom)
					r.With(selWrite).Put("/level", s.handleSetLevel)
				})

				// Long-lived stream
				r.With(selWrite).Get("/ws", s.handleLobbyWS)
			})
		})
	})

	s.router = r
}

// loggingMiddleware logs HTTP requests using slog
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			slog.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
				"remote_addr", r.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
