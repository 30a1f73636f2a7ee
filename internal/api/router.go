package api

import (
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/worktrace/worktrace/internal/api/recovery"
	"github.com/worktrace/worktrace/internal/auth"
	"github.com/worktrace/worktrace/internal/config"
	"github.com/worktrace/worktrace/internal/services"
	"github.com/worktrace/worktrace/internal/store"
)

// NewRouter creates the HTTP router with all API routes.
func NewRouter(s store.Store, cfg *config.Config) *mux.Router {
	router := mux.NewRouter()

	// Global middlewares
	router.Use(recovery.Middleware)

	// Domain services
	authorizer := auth.NewStoreAuthorizer(s)
	minInterval := time.Duration(cfg.MinHeartbeatIntervalSeconds) * time.Second
	ingestService := services.NewIngestService(s, authorizer, minInterval, log.With().Str("component", "ingest").Logger())
	accountService := services.NewAccountService(s)
	documentService := services.NewDocumentService(s)
	selectorService := services.NewSelectorAdminService(s)
	projectService := services.NewProjectService(s)
	reportService := services.NewReportService(s, cfg.RetentionDays)

	// Handlers
	healthHandler := NewHealthHandler()
	heartbeatHandler := NewHeartbeatHandler(ingestService)
	accountHandler := NewAccountHandler(accountService)
	documentHandler := NewDocumentHandler(documentService)
	selectorHandler := NewSelectorHandler(selectorService)
	projectHandler := NewProjectHandler(projectService)
	reportHandler := NewReportHandler(reportService)

	// Health and metrics endpoints
	router.HandleFunc("/api/health", healthHandler.CheckHealth).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Collector endpoints
	router.HandleFunc("/api/heartbeats", heartbeatHandler.RecordHeartbeat).Methods("POST")
	router.HandleFunc("/api/selectors", heartbeatHandler.GetSelector).Methods("GET")

	// Account endpoints
	router.HandleFunc("/api/accounts", accountHandler.CreateAccount).Methods("POST")
	router.HandleFunc("/api/accounts/{accountId}", accountHandler.GetAccount).Methods("GET")
	router.HandleFunc("/api/accounts/{accountId}/api-key", accountHandler.RotateAPIKey).Methods("POST")

	// Selector administration
	router.HandleFunc("/api/accounts/{accountId}/selectors", selectorHandler.UpsertSelector).Methods("PUT")
	router.HandleFunc("/api/accounts/{accountId}/selectors", selectorHandler.ListSelectors).Methods("GET")
	router.HandleFunc("/api/selectors/{selectorId}", selectorHandler.DeleteSelector).Methods("DELETE")

	// Document endpoints
	router.HandleFunc("/api/documents", documentHandler.ListDocuments).Methods("GET")
	router.HandleFunc("/api/documents/{documentId}", documentHandler.GetDocument).Methods("GET")
	router.HandleFunc("/api/documents/{documentId}", documentHandler.AssignDocument).Methods("PATCH")
	router.HandleFunc("/api/documents/{documentId}", documentHandler.DeleteDocument).Methods("DELETE")

	// Project endpoints
	router.HandleFunc("/api/accounts/{accountId}/projects", projectHandler.CreateProject).Methods("POST")
	router.HandleFunc("/api/accounts/{accountId}/projects", projectHandler.ListProjects).Methods("GET")
	router.HandleFunc("/api/projects/{projectId}", projectHandler.DeleteProject).Methods("DELETE")

	// Reporting
	router.HandleFunc("/api/accounts/{accountId}/reports/daily", reportHandler.DailyReport).Methods("GET")

	return router
}
