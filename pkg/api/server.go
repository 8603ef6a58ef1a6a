package api

import (
	"database/sql"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/schemaflow/schemaflow/pkg/evolution"
	"github.com/schemaflow/schemaflow/pkg/httputil"
	"github.com/schemaflow/schemaflow/pkg/observability"
)

const maxRequestBody = 10 * 1024 * 1024 // 10MB

// Server represents our API server
type Server struct {
	service *evolution.Service
	db      *sql.DB
	router  *mux.Router
	logger  *logrus.Logger
	metrics *observability.Metrics
	checker *observability.HealthChecker
}

// NewServer creates a new API server. The database handle is the migration
// target used by the execute endpoint; it may be nil, in which case execute
// is rejected.
func NewServer(service *evolution.Service, db *sql.DB, logger *logrus.Logger, metrics *observability.Metrics, checker *observability.HealthChecker) *Server {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	s := &Server{
		service: service,
		db:      db,
		router:  mux.NewRouter(),
		logger:  logger,
		metrics: metrics,
		checker: checker,
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	middlewares := []func(http.Handler) http.Handler{
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(s.logger),
		httputil.RecoveryMiddleware(s.logger),
		httputil.MaxBytesMiddleware(maxRequestBody),
	}
	if s.metrics != nil {
		middlewares = append(middlewares, httputil.MetricsMiddleware(s.metrics))
	}
	for _, m := range middlewares {
		s.router.Use(m)
	}

	// Schema operation routes
	s.router.HandleFunc("/api/v1/compare", s.compareSchemas).Methods("POST")
	s.router.HandleFunc("/api/v1/validate", s.validateSchemas).Methods("POST")
	s.router.HandleFunc("/api/v1/plan", s.generatePlan).Methods("POST")
	s.router.HandleFunc("/api/v1/execute", s.executePlan).Methods("POST")
	s.router.HandleFunc("/api/v1/dialects", s.listDialects).Methods("GET")

	// History routes
	s.router.HandleFunc("/api/v1/history/{sourceId}", s.getHistory).Methods("GET")
	s.router.HandleFunc("/api/v1/history/{sourceId}/{version}", s.getHistoryVersion).Methods("GET")

	// Operational routes
	if s.checker != nil {
		s.router.HandleFunc("/health", s.checker.Readiness).Methods("GET")
		s.router.HandleFunc("/health/live", s.checker.Liveness).Methods("GET")
		s.router.HandleFunc("/health/ready", s.checker.Readiness).Methods("GET")
	}
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler()).Methods("GET")
	}
}

// Router returns the configured HTTP handler.
func (s *Server) Router() http.Handler {
	return s.router
}
