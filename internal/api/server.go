// Package api implements the HTTP surface of the Schulmaterial server.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/schulmaterial/schulmaterial/internal/config"
	"github.com/schulmaterial/schulmaterial/internal/logging"
	"github.com/schulmaterial/schulmaterial/internal/material"
	"github.com/schulmaterial/schulmaterial/internal/metadata/postgres"
	"github.com/schulmaterial/schulmaterial/internal/metrics"
	"github.com/schulmaterial/schulmaterial/internal/storage"
)

// Server holds the HTTP handlers and their dependencies.
type Server struct {
	store         *postgres.Store
	blobs         storage.Backend
	maxUploadSize int64
	acceptVideo   bool
}

// NewServer creates a Server around the catalog store and file backend.
func NewServer(store *postgres.Store, blobs storage.Backend, cfg *config.Config) *Server {
	return &Server{
		store:         store,
		blobs:         blobs,
		maxUploadSize: cfg.MaxUploadSize,
		acceptVideo:   cfg.AcceptVideo,
	}
}

// Handler returns the fully wired HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /materialien", s.handleListMaterials)
	mux.HandleFunc("GET /materialien/{id}", s.handleGetMaterial)
	mux.HandleFunc("POST /upload", s.handleUpload)
	mux.HandleFunc("PUT /materialien/{id}", s.handleUpdateMaterial)
	mux.HandleFunc("POST /update-material", s.handleUpdateMaterialForm)
	mux.HandleFunc("DELETE /materialien/{id}", s.handleDeleteMaterial)
	mux.HandleFunc("GET /download/{id}", s.handleDownload)
	mux.HandleFunc("POST /download-all", s.handleDownloadAll)

	return metrics.Middleware(logging.Middleware(mux))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

func sendJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("encode response", zap.Error(err))
	}
}

func sendError(w http.ResponseWriter, status int, msg string) {
	sendJSON(w, status, errorResponse{Error: msg, Code: status})
}

// sendStoreError maps catalog errors onto HTTP responses.
func sendStoreError(w http.ResponseWriter, err error) {
	var verr *material.ValidationError
	switch {
	case errors.As(err, &verr):
		sendError(w, http.StatusBadRequest, verr.Message)
	case errors.Is(err, material.ErrNotFound):
		sendError(w, http.StatusNotFound, "Material nicht gefunden")
	default:
		sendError(w, http.StatusInternalServerError, "Interner Serverfehler")
	}
}

// pathID parses the {id} path segment.
func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}
