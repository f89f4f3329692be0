package api

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/schulmaterial/schulmaterial/internal/logging"
	"github.com/schulmaterial/schulmaterial/internal/material"
)

// handleListMaterials returns the filtered catalog as a JSON array.
// All filters arrive as query parameters and are ANDed together.
func (s *Server) handleListMaterials(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := material.Filter{
		Klasse:       q.Get("klasse"),
		Fach:         q.Get("fach"),
		Materialform: q.Get("materialform"),
		Thema:        q.Get("thema"),
		Search:       q.Get("search"),
	}

	materials, err := s.store.List(r.Context(), filter)
	if err != nil {
		logging.Error("list materials", zap.Error(err))
		sendStoreError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, materials)
}

func (s *Server) handleGetMaterial(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		sendError(w, http.StatusBadRequest, "Ungültige ID")
		return
	}

	m, err := s.store.Get(r.Context(), id)
	if err != nil {
		sendStoreError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, m)
}

// handleDeleteMaterial removes a material and its stored file. The
// file is removed first; a failing or already absent file never keeps
// the catalog row alive.
func (s *Server) handleDeleteMaterial(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		sendError(w, http.StatusBadRequest, "Ungültige ID")
		return
	}

	m, err := s.store.Get(r.Context(), id)
	if err != nil {
		sendStoreError(w, err)
		return
	}

	if m.DateiPfad != "" {
		if err := s.blobs.DeleteObject(r.Context(), m.DateiPfad); err != nil {
			logging.Warn("delete stored file",
				zap.Int64("id", id),
				zap.String("key", m.DateiPfad),
				zap.Error(err))
		}
	}

	if _, err := s.store.Delete(r.Context(), id); err != nil {
		sendStoreError(w, err)
		return
	}

	logging.Info("material deleted", zap.Int64("id", id), zap.String("titel", m.Titel))
	sendJSON(w, http.StatusOK, map[string]string{"message": "Material erfolgreich gelöscht"})
}

// retireBlob removes a stored file that no catalog row references
// anymore. It runs detached from the request that orphaned the file.
func (s *Server) retireBlob(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.blobs.DeleteObject(ctx, key); err != nil {
		logging.Warn("remove replaced file", zap.String("key", key), zap.Error(err))
	}
}
