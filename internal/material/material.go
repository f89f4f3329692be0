// Package material defines the Material record shared by the metadata
// store, the blob storage layer and the HTTP handlers, together with
// the error taxonomy used across the pipelines.
package material

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// FormVideo is the reserved Materialform value for video materials.
const FormVideo = "Video"

// DefaultAutor is used when a submission carries no author.
const DefaultAutor = "Unbekannt"

// Material is one catalogued teaching resource. JSON names follow the
// wire contract of the web frontend: lowercase keys except Autor/Datum.
type Material struct {
	ID                int64     `json:"id"`
	Klasse            string    `json:"klasse"`
	Fach              string    `json:"fach"`
	Materialform      string    `json:"materialform"`
	Thema             string    `json:"thema"`
	Titel             string    `json:"titel"`
	Beschreibung      string    `json:"beschreibung"`
	DateiPfad         string    `json:"dateiPfad"`
	OriginalDateiname string    `json:"originalDateiname"`
	Autor             string    `json:"Autor"`
	Datum             time.Time `json:"Datum"`
}

// Fields is the mutable field set of a Material, as resolved by the
// ingest and update pipelines before it reaches the store.
type Fields struct {
	Klasse            string
	Fach              string
	Materialform      string
	Thema             string
	Titel             string
	Beschreibung      string
	DateiPfad         string
	OriginalDateiname string
	Autor             string
	Datum             time.Time
}

// Validate checks the required fields and the file-reference pair
// invariant. It returns a *ValidationError on failure.
func (f *Fields) Validate() error {
	required := []struct{ name, value string }{
		{"titel", f.Titel},
		{"fach", f.Fach},
		{"klasse", f.Klasse},
		{"materialform", f.Materialform},
		{"thema", f.Thema},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &ValidationError{Message: fmt.Sprintf("Pflichtfeld %q fehlt", r.name)}
		}
	}
	if (f.DateiPfad == "") != (f.OriginalDateiname == "") {
		return &ValidationError{Message: "dateiPfad und originalDateiname müssen gemeinsam gesetzt sein"}
	}
	return nil
}

// WithDefaults returns a copy with the author and date defaults applied.
func (f Fields) WithDefaults() Fields {
	if strings.TrimSpace(f.Autor) == "" {
		f.Autor = DefaultAutor
	}
	if f.Datum.IsZero() {
		f.Datum = time.Now()
	}
	return f
}

// Filter holds the AND-combined list predicates. Zero values mean "no
// constraint"; the zero Filter matches everything.
type Filter struct {
	Klasse       string `json:"klasse"`
	Fach         string `json:"fach"`
	Materialform string `json:"materialform"`
	Thema        string `json:"thema"`
	Search       string `json:"search"`
}

// IsEmpty reports whether the filter constrains nothing.
func (f Filter) IsEmpty() bool {
	return f == Filter{}
}

// ErrNotFound is returned when a material row does not exist.
var ErrNotFound = errors.New("material not found")

// ValidationError marks invalid client input. The HTTP layer maps it
// to a 400 response carrying the message.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// acceptedExtensions are the document types the repository takes by
// default, matching the upload form's client-side check.
var acceptedExtensions = map[string]bool{
	".pdf":  true,
	".doc":  true,
	".docx": true,
	".ppt":  true,
	".pptx": true,
	".zip":  true,
}

// videoExtensions extend the accepted set when video materials are
// enabled; images are included for preview thumbnails.
var videoExtensions = map[string]bool{
	".mp4":  true,
	".webm": true,
	".mov":  true,
	".m4v":  true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
}

var acceptedMIMETypes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":     true,
	"application/vnd.ms-powerpoint":                                               true,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation":   true,
	"application/zip":              true,
	"application/x-zip-compressed": true,
}

var videoMIMETypes = map[string]bool{
	"video/mp4":       true,
	"video/webm":      true,
	"video/quicktime": true,
	"image/jpeg":      true,
	"image/png":       true,
	"image/gif":       true,
}

// AcceptedFile reports whether an upload is an allowed content type.
// The declared MIME type decides when present; otherwise the filename
// extension is the fallback, since browsers omit or mislabel types for
// Office documents.
func AcceptedFile(mimeType, filename string, video bool) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	if mimeType != "" && mimeType != "application/octet-stream" {
		if acceptedMIMETypes[mimeType] {
			return true
		}
		if video && videoMIMETypes[mimeType] {
			return true
		}
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if acceptedExtensions[ext] {
		return true
	}
	return video && videoExtensions[ext]
}
