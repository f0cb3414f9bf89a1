package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/terra-clan/jury-engine/internal/campaign"
	"github.com/terra-clan/jury-engine/internal/config"
	"github.com/terra-clan/jury-engine/internal/health"
)

// Server represents the HTTP API server
type Server struct {
	config         config.ServerConfig
	router         *chi.Mux
	manager        campaign.Manager
	checks         *health.Registry
	hub            *Hub
	authMiddleware *AuthMiddleware
	metrics        *httpMetrics
	registry       *prometheus.Registry
}

// NewServer creates a new API server. Metrics are registered on reg and served on /metrics.
func NewServer(
	cfg config.ServerConfig,
	manager campaign.Manager,
	users UserStore,
	checks *health.Registry,
	hub *Hub,
	reg *prometheus.Registry,
) *Server {
	s := &Server{
		config:         cfg,
		manager:        manager,
		checks:         checks,
		hub:            hub,
		authMiddleware: NewAuthMiddleware(users),
		metrics:        newHTTPMetrics(reg, hub),
		registry:       reg,
	}
	s.setupRouter()
	return s
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
	r.Use(s.metrics.middleware)
	r.Use(middleware.Recoverer)

	origins := s.config.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Public
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware.Authenticate)

		// Long-lived; kept out of the request timeout
		r.Get("/events", s.handleEvents)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))

			r.Get("/juror/rounds", s.handleListJurorRounds)

			r.Route("/admin", func(r chi.Router) {
				r.Use(s.authMiddleware.RequireOrganizer)

				r.Get("/rounds", s.handleListAdminRounds)
				r.Post("/organizers", s.handleAddOrganizer)

				r.Post("/campaigns", s.handleCreateCampaign)
				r.Route("/campaigns/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetCampaign)
					r.Put("/", s.handleUpdateCampaign)
					r.Post("/rounds", s.handleCreateRound)
				})

				r.Route("/rounds/{id}", func(r chi.Router) {
					r.Post("/activate", s.handleActivateRound)
					r.Post("/complete", s.handleCompleteRound)
					r.Post("/cancel", s.handleCancelRound)
					r.Put("/tasks", s.handleSetTasks)
				})
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
