// Package webserver exposes the scan pipeline and history over a small
// REST API. It is transport only; no presentation is rendered here.
package webserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/vtsentry/vtsentry/internal/credstore"
	"github.com/vtsentry/vtsentry/internal/scanner"
	"github.com/vtsentry/vtsentry/internal/storage"
	"github.com/vtsentry/vtsentry/internal/storage/models"
)

// WebServer holds the data needed for handling HTTP requests.
type WebServer struct {
	Orchestrator *scanner.Orchestrator
	Store        storage.ResultStore
	Credentials  credstore.Store
	config       *Config
	Logger       *logrus.Logger
}

// NewWebServer initializes a new WebServer.
func NewWebServer(orchestrator *scanner.Orchestrator, store storage.ResultStore, creds credstore.Store, config *Config, logger *logrus.Logger) *WebServer {
	return &WebServer{
		Orchestrator: orchestrator,
		Store:        store,
		Credentials:  creds,
		config:       config,
		Logger:       logger,
	}
}

// StartWebServer starts the HTTP server.
func StartWebServer(ctx context.Context, ws *WebServer) (*http.Server, error) {
	router := ws.InitRouter()

	corsOptions := cors.Options{
		AllowedOrigins:   ws.config.CorsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
	}
	handler := cors.New(corsOptions).Handler(router)

	server := &http.Server{
		Addr:    ws.config.ListenTo,
		Handler: handler,
		// A synchronous scan holds the request for the submit wait plus
		// two round trips.
		WriteTimeout: 3 * time.Minute,
	}

	go func() {
		ws.Logger.Infof("Server starting on %s", ws.config.ListenTo)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			ws.Logger.Errorf("ListenAndServe(): %v", err)
		}
	}()

	return server, nil
}

// InitRouter initializes the HTTP routes.
func (ws *WebServer) InitRouter() *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()

	if len(ws.config.JWTSecret) > 0 {
		api.Use(ws.authMiddleware)
	}

	api.HandleFunc("/scan", ws.handleScan).Methods(http.MethodPost)
	api.HandleFunc("/history", ws.handleGetHistory).Methods(http.MethodGet)
	api.HandleFunc("/stats", ws.handleGetStats).Methods(http.MethodGet)
	api.HandleFunc("/credential", ws.handleGetCredential).Methods(http.MethodGet)
	api.HandleFunc("/credential", ws.handleSetCredential).Methods(http.MethodPut)

	r.HandleFunc("/health", ws.handleHealth).Methods(http.MethodGet)
	return r
}

type scanRequest struct {
	Path string `json:"path"`
}

// handleScan runs the pipeline synchronously; the caller waits out the
// post-submission delay. A failed scan still returns its record.
func (ws *WebServer) handleScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		writeErrorResponse(w, "A file path is required", http.StatusBadRequest)
		return
	}

	record, err := ws.Orchestrator.Scan(r.Context(), req.Path)
	if err != nil {
		if errors.Is(err, scanner.ErrNotConfigured) {
			writeErrorResponse(w, err.Error(), http.StatusPreconditionFailed)
			return
		}
		ws.Logger.WithError(err).WithField("path", req.Path).Error("Scan pipeline failed")
	}

	writeJSON(w, http.StatusOK, record)
}

// handleGetHistory handles the GET /history endpoint, newest-first with
// pagination.
func (ws *WebServer) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query()
	page, err := strconv.Atoi(query.Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	perPage, err := strconv.Atoi(query.Get("per_page"))
	if err != nil || perPage < 1 {
		perPage = 50
	}

	records, err := ws.Store.Load(ctx)
	if err != nil {
		ws.Logger.WithError(err).Error("Failed to load history")
		writeErrorResponse(w, "Failed to retrieve history", http.StatusInternalServerError)
		return
	}

	total := len(records)
	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}

	response := models.HistoryResponse{
		Records:    records[start:end],
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: (total + perPage - 1) / perPage,
	}
	writeJSON(w, http.StatusOK, response)
}

// handleGetStats handles the GET /stats endpoint.
func (ws *WebServer) handleGetStats(w http.ResponseWriter, r *http.Request) {
	records, err := ws.Store.Load(r.Context())
	if err != nil {
		ws.Logger.WithError(err).Error("Failed to load history")
		writeErrorResponse(w, "Failed to retrieve stats", http.StatusInternalServerError)
		return
	}

	var stats models.StatsResponse
	stats.TotalScans = len(records)
	for _, record := range records {
		switch record.Status {
		case models.StatusThreatDetected:
			stats.ThreatsDetected++
		case models.StatusScanFailed:
			stats.ScansFailed++
		}
	}
	if len(records) > 0 {
		stats.LastScanAt = records[0].Timestamp
	}
	writeJSON(w, http.StatusOK, stats)
}

type credentialRequest struct {
	APIKey string `json:"api_key"`
}

type credentialStatus struct {
	Configured bool `json:"configured"`
}

// handleGetCredential reports whether an API key is configured. The key
// itself is never returned.
func (ws *WebServer) handleGetCredential(w http.ResponseWriter, r *http.Request) {
	key, err := ws.Credentials.Get(r.Context(), credstore.KeyVirusTotalAPIKey)
	if err != nil {
		ws.Logger.WithError(err).Error("Failed to read credential")
		writeErrorResponse(w, "Failed to read credential", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, credentialStatus{Configured: key != ""})
}

// handleSetCredential stores the reputation-service API key.
func (ws *WebServer) handleSetCredential(w http.ResponseWriter, r *http.Request) {
	var req credentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.APIKey == "" {
		writeErrorResponse(w, "An API key is required", http.StatusBadRequest)
		return
	}
	if err := ws.Credentials.Set(r.Context(), credstore.KeyVirusTotalAPIKey, req.APIKey); err != nil {
		ws.Logger.WithError(err).Error("Failed to store credential")
		writeErrorResponse(w, "Failed to store credential", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, credentialStatus{Configured: true})
}

func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logrus.WithError(err).Error("Failed to encode response")
	}
}

func writeErrorResponse(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
