// Package api provides the HTTP API server and handlers for the Shelfwise server.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shelfwise/shelfwise-server/internal/search"
	"github.com/shelfwise/shelfwise-server/internal/store"
	"github.com/shelfwise/shelfwise-server/internal/store/sqlite"
)

// Version is reported in the OpenAPI document.
const Version = "1.0.0"

// Stores groups the stores the health check looks at.
// Any of them may be nil in tests.
type Stores struct {
	DB      *sqlite.Store
	Shelves *store.Store
	Index   *search.SearchIndex
}

// Options configures the HTTP middleware stack.
type Options struct {
	CORSAllowedOrigins []string
	RateLimitPerMinute int // per client IP; 0 disables the limit
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	stores   Stores
	services *Services
	router   *chi.Mux
	api      huma.API
	logger   *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(stores Stores, services *Services, opts Options, logger *slog.Logger) *Server {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Link", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	if opts.RateLimitPerMinute > 0 {
		router.Use(rateLimit(opts.RateLimitPerMinute, time.Minute, logger))
	}
	router.Use(requestMetrics)
	router.Use(clientMiddleware)
	router.Use(authMiddleware(services.Auth))

	router.Handle("/metrics", promhttp.Handler())

	humaConfig := huma.DefaultConfig("Shelfwise API", Version)
	humaConfig.Info.Description = "Book catalog, personal shelves and recommendations."
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)

	api := humachi.New(router, humaConfig)
	RegisterErrorHandler()

	s := &Server{
		stores:   stores,
		services: services,
		router:   router,
		api:      api,
		logger:   logger,
	}

	s.registerRoutes()

	return s
}

// registerRoutes registers every huma operation.
func (s *Server) registerRoutes() {
	s.registerHealthRoutes()
	s.registerAuthRoutes()
	s.registerUserRoutes()
	s.registerBookRoutes()
	s.registerShelfRoutes()
	s.registerRecommendationRoutes()
	s.registerProfileRoutes()
	s.registerActivityRoutes()
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API exposes the huma API, used to export the OpenAPI document.
func (s *Server) API() huma.API {
	return s.api
}
