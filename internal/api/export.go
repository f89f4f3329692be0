package api

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/schulmaterial/schulmaterial/internal/logging"
	"github.com/schulmaterial/schulmaterial/internal/material"
	"github.com/schulmaterial/schulmaterial/internal/metrics"
)

type downloadAllRequest struct {
	Filter material.Filter `json:"filter"`
}

// handleDownloadAll streams a ZIP archive of every stored file whose
// material matches the posted filter. Entries are deflated straight
// onto the response; nothing is buffered or written to disk.
func (s *Server) handleDownloadAll(w http.ResponseWriter, r *http.Request) {
	var req downloadAllRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		sendError(w, http.StatusBadRequest, "Ungültiger Filter")
		metrics.RecordExport(0, false)
		return
	}

	materials, err := s.store.List(r.Context(), req.Filter)
	if err != nil {
		logging.Error("list materials for export", zap.Error(err))
		sendStoreError(w, err)
		metrics.RecordExport(0, false)
		return
	}
	if len(materials) == 0 {
		sendError(w, http.StatusNotFound, "Keine Materialien gefunden")
		metrics.RecordExport(0, false)
		return
	}

	// Check every stored file before the first response byte, so a
	// fully missing archive can still answer with a clean 404.
	entries := materials[:0]
	for _, m := range materials {
		if m.DateiPfad == "" {
			continue
		}
		ok, err := s.blobs.ObjectExists(r.Context(), m.DateiPfad)
		if err != nil || !ok {
			logging.Warn("skipping material with missing file",
				zap.Int64("id", m.ID),
				zap.String("key", m.DateiPfad),
				zap.Error(err))
			continue
		}
		entries = append(entries, m)
	}
	if len(entries) == 0 {
		sendError(w, http.StatusNotFound, "Keine Dateien zum Herunterladen gefunden")
		metrics.RecordExport(0, false)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="materialien.zip"`)

	zw := zip.NewWriter(w)
	used := map[string]int{}
	written := 0

	for _, m := range entries {
		body, _, err := s.blobs.GetObject(r.Context(), m.DateiPfad)
		if err != nil {
			logging.Warn("skipping unreadable file",
				zap.Int64("id", m.ID),
				zap.String("key", m.DateiPfad),
				zap.Error(err))
			continue
		}

		name := m.OriginalDateiname
		if name == "" {
			name = m.DateiPfad
		}
		entry, err := zw.CreateHeader(&zip.FileHeader{
			Name:     uniqueName(used, name),
			Method:   zip.Deflate,
			Modified: m.Datum,
		})
		if err != nil {
			body.Close()
			logging.Warn("export aborted", zap.Error(err))
			metrics.RecordExport(written, false)
			return
		}
		_, err = io.Copy(entry, body)
		body.Close()
		if err != nil {
			logging.Warn("export aborted", zap.Int64("id", m.ID), zap.Error(err))
			metrics.RecordExport(written, false)
			return
		}
		written++
	}

	if err := zw.Close(); err != nil {
		logging.Warn("close zip archive", zap.Error(err))
		metrics.RecordExport(written, false)
		return
	}

	logging.Info("archive exported",
		zap.Int("files", written),
		zap.Bool("filtered", !req.Filter.IsEmpty()))
	metrics.RecordExport(written, true)
}

// uniqueName disambiguates duplicate filenames within one archive by
// appending " (n)" before the extension.
func uniqueName(used map[string]int, name string) string {
	if used[name] == 0 {
		used[name] = 1
		return name
	}
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for {
		n := used[name]
		used[name]++
		candidate := fmt.Sprintf("%s (%d)%s", base, n, ext)
		if used[candidate] == 0 {
			used[candidate] = 1
			return candidate
		}
	}
}
