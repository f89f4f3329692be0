package api

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"github.com/schulmaterial/schulmaterial/internal/logging"
	"github.com/schulmaterial/schulmaterial/internal/metrics"
)

// handleDownload streams a material's stored file under its original
// filename.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		sendError(w, http.StatusBadRequest, "Ungültige ID")
		return
	}

	m, err := s.store.Get(r.Context(), id)
	if err != nil {
		sendStoreError(w, err)
		metrics.RecordDownload(0, false)
		return
	}
	if m.DateiPfad == "" {
		sendError(w, http.StatusNotFound, "Datei nicht gefunden")
		metrics.RecordDownload(0, false)
		return
	}

	body, size, err := s.blobs.GetObject(r.Context(), m.DateiPfad)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logging.Warn("stored file missing",
				zap.Int64("id", id),
				zap.String("key", m.DateiPfad))
			sendError(w, http.StatusNotFound, "Datei nicht gefunden")
		} else {
			logging.Error("read stored file", zap.Int64("id", id), zap.Error(err))
			sendError(w, http.StatusInternalServerError, "Datei konnte nicht gelesen werden")
		}
		metrics.RecordDownload(0, false)
		return
	}
	defer body.Close()

	name := m.OriginalDateiname
	if name == "" {
		name = m.DateiPfad
	}
	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	}

	n, err := io.Copy(w, body)
	if err != nil {
		// Headers are gone at this point; the aborted transfer only
		// shows up in the logs.
		logging.Warn("download aborted", zap.Int64("id", id), zap.Error(err))
		metrics.RecordDownload(n, false)
		return
	}
	metrics.RecordDownload(n, true)
}
