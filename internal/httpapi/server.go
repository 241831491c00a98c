// Package httpapi exposes the design session, sweep worker and exporter over
// HTTP under /api/v1.
package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"opticore/internal/catalog"
	"opticore/internal/design"
	"opticore/internal/export"
	"opticore/internal/sweep"
	"opticore/internal/telemetry"
)

// Server bundles the services behind the HTTP surface.
type Server struct {
	session  *design.Service
	worker   *sweep.Worker
	exporter *export.Exporter
	catalog  catalog.Source
	logger   telemetry.Logger

	metricsHandler http.Handler
	rateLimit      rate.Limit
	rateBurst      int
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithLogger sets the request logger.
func WithLogger(l telemetry.Logger) ServerOption {
	return func(s *Server) { s.logger = l }
}

// WithCatalog enables the catalog endpoints.
func WithCatalog(src catalog.Source) ServerOption {
	return func(s *Server) { s.catalog = src }
}

// WithMetricsHandler mounts a /metrics endpoint.
func WithMetricsHandler(h http.Handler) ServerOption {
	return func(s *Server) { s.metricsHandler = h }
}

// WithRateLimit sets the per-IP request budget. Zero disables limiting.
func WithRateLimit(perSecond float64, burst int) ServerOption {
	return func(s *Server) {
		s.rateLimit = rate.Limit(perSecond)
		s.rateBurst = burst
	}
}

// NewServer wires the HTTP surface over the given services.
func NewServer(session *design.Service, worker *sweep.Worker, exporter *export.Exporter, opts ...ServerOption) *Server {
	s := &Server{
		session:  session,
		worker:   worker,
		exporter: exporter,
		logger:   telemetry.NopLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the mux router with all routes and middleware attached.
func (s *Server) Router() *mux.Router {
	root := mux.NewRouter()
	root.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	if s.metricsHandler != nil {
		root.Handle("/metrics", s.metricsHandler).Methods(http.MethodGet)
	}

	api := root.PathPrefix("/api/v1").Subrouter()
	api.Use(requestLogging(s.logger))
	if s.rateLimit > 0 {
		api.Use(NewIPRateLimiter(s.rateLimit, s.rateBurst).Middleware)
	}

	api.HandleFunc("/materials", s.handleListMaterials).Methods(http.MethodGet)
	api.HandleFunc("/materials", s.handleAddMaterial).Methods(http.MethodPost)
	api.HandleFunc("/materials/{name}", s.handleGetMaterial).Methods(http.MethodGet)
	api.HandleFunc("/materials/{name}", s.handleRemoveMaterial).Methods(http.MethodDelete)
	api.HandleFunc("/materials/{name}/index", s.handleMaterialIndex).Methods(http.MethodGet)

	api.HandleFunc("/arrays", s.handleListArrays).Methods(http.MethodGet)
	api.HandleFunc("/arrays", s.handleAddArray).Methods(http.MethodPost)
	api.HandleFunc("/arrays/{name}", s.handleGetArray).Methods(http.MethodGet)
	api.HandleFunc("/arrays/{name}", s.handleRemoveArray).Methods(http.MethodDelete)

	api.HandleFunc("/media", s.handleGetMedia).Methods(http.MethodGet)
	api.HandleFunc("/media", s.handleSetMedia).Methods(http.MethodPut)
	api.HandleFunc("/structure/validate", s.handleValidateStructure).Methods(http.MethodPost)

	api.HandleFunc("/sweeps", s.handleCreateSweep).Methods(http.MethodPost)
	api.HandleFunc("/sweeps", s.handleListSweeps).Methods(http.MethodGet)
	api.HandleFunc("/sweeps/{id}", s.handleGetSweep).Methods(http.MethodGet)
	api.HandleFunc("/sweeps/{id}", s.handleCancelSweep).Methods(http.MethodDelete)
	api.HandleFunc("/sweeps/{id}/result", s.handleSweepResult).Methods(http.MethodGet)
	api.HandleFunc("/sweeps/{id}/exports", s.handleCreateExport).Methods(http.MethodPost)
	api.HandleFunc("/sweeps/{id}/exports", s.handleListExports).Methods(http.MethodGet)
	api.HandleFunc("/sweeps/{id}/exports/{filename}", s.handleDownloadExport).Methods(http.MethodGet)

	api.HandleFunc("/projects", s.handleListProjects).Methods(http.MethodGet)
	api.HandleFunc("/projects/{name}", s.handleSaveProject).Methods(http.MethodPut)
	api.HandleFunc("/projects/{name}", s.handleDeleteProject).Methods(http.MethodDelete)
	api.HandleFunc("/projects/{name}/load", s.handleLoadProject).Methods(http.MethodPost)

	if s.catalog != nil {
		api.HandleFunc("/catalog", s.handleCatalogSearch).Methods(http.MethodGet)
		api.HandleFunc("/catalog/import", s.handleCatalogImport).Methods(http.MethodPost)
	}

	return root
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
