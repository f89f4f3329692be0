package api

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/schulmaterial/schulmaterial/internal/logging"
	"github.com/schulmaterial/schulmaterial/internal/material"
	"github.com/schulmaterial/schulmaterial/internal/metrics"
	"github.com/schulmaterial/schulmaterial/internal/storage"
)

const (
	// multipartMemory is the in-memory threshold for form parsing;
	// larger uploads spill to disk.
	multipartMemory = 32 << 20

	// maxFormOverhead is the slack allowed on top of the file size
	// limit for the multipart framing and text fields.
	maxFormOverhead = 1 << 20
)

// parseSubmission enforces the size ceiling and parses the multipart
// form of an upload or edit request.
func (s *Server) parseSubmission(w http.ResponseWriter, r *http.Request) error {
	limit := s.maxUploadSize + maxFormOverhead
	if r.ContentLength > limit {
		return errTooLarge
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return errTooLarge
		}
		return fmt.Errorf("parse form: %w", err)
	}
	return nil
}

var errTooLarge = errors.New("upload exceeds size limit")

func (s *Server) tooLargeMessage() string {
	return fmt.Sprintf("Datei ist zu groß (max. %d MB)", s.maxUploadSize>>20)
}

// fieldsFromForm collects the descriptive fields of a submission. A
// supplied creation date must be RFC 3339; anything else leaves Datum
// zero and the defaults take over.
func fieldsFromForm(r *http.Request) material.Fields {
	f := material.Fields{
		Klasse:       r.FormValue("klasse"),
		Fach:         r.FormValue("fach"),
		Materialform: r.FormValue("materialform"),
		Thema:        r.FormValue("thema"),
		Titel:        r.FormValue("titel"),
		Beschreibung: r.FormValue("beschreibung"),
		Autor:        r.FormValue("autor"),
	}
	if v := r.FormValue("datum"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			f.Datum = t
		}
	}
	return f
}

// checkUploadedFile validates type and size of an uploaded file.
func (s *Server) checkUploadedFile(header *multipart.FileHeader) error {
	if header.Size > s.maxUploadSize {
		return errTooLarge
	}
	if !material.AcceptedFile(header.Header.Get("Content-Type"), header.Filename, s.acceptVideo) {
		return &material.ValidationError{Message: "Dieser Dateityp wird nicht unterstützt"}
	}
	return nil
}

// storeUploadedFile copies the file into the storage backend under a
// fresh key and returns that key.
func (s *Server) storeUploadedFile(r *http.Request, file multipart.File, header *multipart.FileHeader) (string, error) {
	key := storage.NewKey(header.Filename)
	if err := s.blobs.PutObject(r.Context(), key, file, header.Size); err != nil {
		return "", fmt.Errorf("store file %s: %w", header.Filename, err)
	}
	return key, nil
}

// handleUpload ingests a new material. The request is a multipart form
// with the descriptive fields and the file under "datei".
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := s.parseSubmission(w, r); err != nil {
		if errors.Is(err, errTooLarge) {
			sendError(w, http.StatusRequestEntityTooLarge, s.tooLargeMessage())
		} else {
			sendError(w, http.StatusBadRequest, "Ungültige Formulardaten")
		}
		metrics.RecordUpload(0, false)
		return
	}

	file, header, err := r.FormFile("datei")
	if err != nil {
		sendError(w, http.StatusBadRequest, "Keine Datei hochgeladen")
		metrics.RecordUpload(0, false)
		return
	}
	defer file.Close()

	fields := fieldsFromForm(r)
	if err := fields.Validate(); err != nil {
		sendStoreError(w, err)
		metrics.RecordUpload(0, false)
		return
	}
	if !s.acceptVideo && fields.Materialform == material.FormVideo {
		sendError(w, http.StatusBadRequest, "Videomaterial ist deaktiviert")
		metrics.RecordUpload(0, false)
		return
	}
	if err := s.checkUploadedFile(header); err != nil {
		if errors.Is(err, errTooLarge) {
			sendError(w, http.StatusRequestEntityTooLarge, s.tooLargeMessage())
		} else {
			sendStoreError(w, err)
		}
		metrics.RecordUpload(0, false)
		return
	}

	key, err := s.storeUploadedFile(r, file, header)
	if err != nil {
		logging.Error("store upload", zap.String("filename", header.Filename), zap.Error(err))
		sendError(w, http.StatusInternalServerError, "Datei konnte nicht gespeichert werden")
		metrics.RecordUpload(0, false)
		return
	}

	fields.DateiPfad = key
	fields.OriginalDateiname = header.Filename

	id, err := s.store.Insert(r.Context(), fields)
	if err != nil {
		// The row never existed, so the stored file is orphaned.
		go s.retireBlob(key)
		logging.Error("insert material", zap.Error(err))
		sendStoreError(w, err)
		metrics.RecordUpload(0, false)
		return
	}

	metrics.RecordUpload(header.Size, true)
	logging.Info("material uploaded",
		zap.Int64("id", id),
		zap.String("titel", fields.Titel),
		zap.String("key", key),
		zap.Int64("size", header.Size))

	sendJSON(w, http.StatusOK, map[string]any{
		"message": "Material erfolgreich hochgeladen",
		"id":      id,
	})
}

// handleUpdateMaterial edits a material addressed by path id.
func (s *Server) handleUpdateMaterial(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		sendError(w, http.StatusBadRequest, "Ungültige ID")
		return
	}
	if err := s.parseSubmission(w, r); err != nil {
		if errors.Is(err, errTooLarge) {
			sendError(w, http.StatusRequestEntityTooLarge, s.tooLargeMessage())
		} else {
			sendError(w, http.StatusBadRequest, "Ungültige Formulardaten")
		}
		return
	}
	s.updateMaterial(w, r, id)
}

// handleUpdateMaterialForm edits a material whose id arrives as a form
// field. The edit page posts here.
func (s *Server) handleUpdateMaterialForm(w http.ResponseWriter, r *http.Request) {
	if err := s.parseSubmission(w, r); err != nil {
		if errors.Is(err, errTooLarge) {
			sendError(w, http.StatusRequestEntityTooLarge, s.tooLargeMessage())
		} else {
			sendError(w, http.StatusBadRequest, "Ungültige Formulardaten")
		}
		return
	}
	id, err := strconv.ParseInt(r.FormValue("id"), 10, 64)
	if err != nil {
		sendError(w, http.StatusBadRequest, "Ungültige ID")
		return
	}
	s.updateMaterial(w, r, id)
}

// updateMaterial applies an edit. The stored file is resolved three
// ways: a new upload replaces it, a round-tripped dateiPfad plus
// originalDateiname keeps the named file, and an absent pair keeps
// whatever the record already references.
func (s *Server) updateMaterial(w http.ResponseWriter, r *http.Request, id int64) {
	existing, err := s.store.Get(r.Context(), id)
	if err != nil {
		sendStoreError(w, err)
		return
	}

	fields := fieldsFromForm(r)
	if fields.Autor == "" {
		fields.Autor = existing.Autor
	}
	if _, ok := r.PostForm["beschreibung"]; !ok {
		fields.Beschreibung = existing.Beschreibung
	}
	if fields.Datum.IsZero() {
		fields.Datum = existing.Datum
	}

	if err := fields.Validate(); err != nil {
		sendStoreError(w, err)
		return
	}
	if !s.acceptVideo && fields.Materialform == material.FormVideo {
		sendError(w, http.StatusBadRequest, "Videomaterial ist deaktiviert")
		return
	}

	var newKey, replacedKey string
	file, header, err := r.FormFile("datei")
	switch {
	case err == nil:
		defer file.Close()
		if err := s.checkUploadedFile(header); err != nil {
			if errors.Is(err, errTooLarge) {
				sendError(w, http.StatusRequestEntityTooLarge, s.tooLargeMessage())
			} else {
				sendStoreError(w, err)
			}
			return
		}
		newKey, err = s.storeUploadedFile(r, file, header)
		if err != nil {
			logging.Error("store replacement file", zap.Int64("id", id), zap.Error(err))
			sendError(w, http.StatusInternalServerError, "Datei konnte nicht gespeichert werden")
			return
		}
		fields.DateiPfad = newKey
		fields.OriginalDateiname = header.Filename
		replacedKey = existing.DateiPfad
	case errors.Is(err, http.ErrMissingFile):
		if pfad, name := r.FormValue("dateiPfad"), r.FormValue("originalDateiname"); pfad != "" && name != "" {
			fields.DateiPfad = pfad
			fields.OriginalDateiname = name
		} else {
			fields.DateiPfad = existing.DateiPfad
			fields.OriginalDateiname = existing.OriginalDateiname
		}
	default:
		sendError(w, http.StatusBadRequest, "Ungültige Formulardaten")
		return
	}

	if err := s.store.Update(r.Context(), id, fields); err != nil {
		if newKey != "" {
			// The row kept its old reference, so the new blob is orphaned.
			go s.retireBlob(newKey)
		}
		sendStoreError(w, err)
		return
	}

	if replacedKey != "" && replacedKey != fields.DateiPfad {
		go s.retireBlob(replacedKey)
	}

	logging.Info("material updated", zap.Int64("id", id), zap.String("titel", fields.Titel))
	sendJSON(w, http.StatusOK, map[string]any{
		"id":      id,
		"changes": 1,
	})
}
