// Package http provides the HTTP API.
package http //nolint:revive // package name conflicts with stdlib but is acceptable in this context

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/geonode/geonode/internal/application"
	"github.com/geonode/geonode/internal/config"
	"github.com/geonode/geonode/internal/ports/input"
)

// Syncer triggers an ingest of the configured object storage.
type Syncer interface {
	TriggerSync(ctx context.Context) (application.SyncResult, error)
}

// Services are the application ports the API serves. Ingest may be nil.
type Services struct {
	Uploads input.Uploader
	Layers  input.LayerCatalog
	Auth    input.Authenticator
	Health  input.HealthChecker
	Ingest  Syncer
}

// Server wraps the HTTP server with application handlers.
type Server struct {
	server  *http.Server
	router  *mux.Router
	uploads input.Uploader
	layers  input.LayerCatalog
	auth    input.Authenticator
	health  input.HealthChecker
	ingest  Syncer
	logger  *slog.Logger
	config  config.ServerConfig
}

// NewServer creates a new HTTP server.
func NewServer(cfg config.ServerConfig, svc Services, logger *slog.Logger) *Server {
	s := &Server{
		uploads: svc.Uploads,
		layers:  svc.Layers,
		auth:    svc.Auth,
		health:  svc.Health,
		ingest:  svc.Ingest,
		logger:  logger,
		config:  cfg,
	}

	s.router = s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Address(),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() *mux.Router {
	r := mux.NewRouter()

	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	if s.config.CORS.Enabled() {
		r.Use(s.corsMiddleware)
	}

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/health/live", s.handleLiveness).Methods(http.MethodGet)
	r.HandleFunc("/health/ready", s.handleReadiness).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/layers/", s.handleListLayers).Methods(http.MethodGet)
	api.HandleFunc("/layers", s.handleListLayers).Methods(http.MethodGet)
	api.HandleFunc("/layers/{id:[0-9]+}/", s.handleGetLayer).Methods(http.MethodGet)
	api.HandleFunc("/layers/{id:[0-9]+}/permissions", s.handleSetPermissions).Methods(http.MethodPut)
	api.HandleFunc("/uploads", s.handleUpload).Methods(http.MethodPost)
	if s.ingest != nil {
		api.HandleFunc("/ingest/sync", s.handleSync).Methods(http.MethodPost)
	}

	r.HandleFunc("/other_rs/links/layers/{layername}", s.handleRSLinks).Methods(http.MethodGet)
	r.HandleFunc("/other_rs/{facettype}", s.handleOtherRS).Methods(http.MethodGet)

	r.HandleFunc("/openapi.json", s.handleOpenAPI).Methods(http.MethodGet)

	return r
}

// Router returns the mux router.
func (s *Server) Router() *mux.Router {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "address", s.config.Address())
	return s.server.ListenAndServe()
}

// StartTLS serves HTTPS with the given TLS configuration.
func (s *Server) StartTLS(tlsConfig *tls.Config) error {
	s.server.TLSConfig = tlsConfig
	s.logger.Info("starting HTTPS server", "address", s.config.Address())
	return s.server.ListenAndServeTLS("", "")
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs incoming requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.statusCode,
			"duration", time.Since(start),
			"remote_addr", r.RemoteAddr,
		)
	})
}

// recoveryMiddleware recovers from panics.
func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error("panic recovered", "error", err, "path", r.URL.Path)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
