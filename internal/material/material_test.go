package material

import (
	"errors"
	"testing"
	"time"
)

func validFields() Fields {
	return Fields{
		Klasse:       "7",
		Fach:         "Deutsch",
		Materialform: "Arbeitsblatt",
		Thema:        "Gedichte",
		Titel:        "Metrum bestimmen",
	}
}

func TestValidate(t *testing.T) {
	f := validFields()
	if err := f.Validate(); err != nil {
		t.Errorf("valid fields rejected: %v", err)
	}

	for _, missing := range []string{"titel", "fach", "klasse", "materialform", "thema"} {
		f := validFields()
		switch missing {
		case "titel":
			f.Titel = ""
		case "fach":
			f.Fach = "  "
		case "klasse":
			f.Klasse = ""
		case "materialform":
			f.Materialform = ""
		case "thema":
			f.Thema = ""
		}
		err := f.Validate()
		if err == nil {
			t.Errorf("missing %s accepted", missing)
			continue
		}
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("missing %s: expected ValidationError, got %T", missing, err)
		}
	}
}

func TestValidateFilePairInvariant(t *testing.T) {
	f := validFields()
	f.DateiPfad = "abc.pdf"
	if err := f.Validate(); err == nil {
		t.Error("dateiPfad without originalDateiname accepted")
	}

	f = validFields()
	f.OriginalDateiname = "blatt.pdf"
	if err := f.Validate(); err == nil {
		t.Error("originalDateiname without dateiPfad accepted")
	}

	f = validFields()
	f.DateiPfad = "abc.pdf"
	f.OriginalDateiname = "blatt.pdf"
	if err := f.Validate(); err != nil {
		t.Errorf("complete file pair rejected: %v", err)
	}
}

func TestWithDefaults(t *testing.T) {
	f := validFields().WithDefaults()
	if f.Autor != DefaultAutor {
		t.Errorf("Autor = %q", f.Autor)
	}
	if f.Datum.IsZero() {
		t.Error("Datum not defaulted")
	}

	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	f = validFields()
	f.Autor = "Herr Schmidt"
	f.Datum = fixed
	f = f.WithDefaults()
	if f.Autor != "Herr Schmidt" || !f.Datum.Equal(fixed) {
		t.Errorf("defaults overwrote provided values: %q %v", f.Autor, f.Datum)
	}
}

func TestFilterIsEmpty(t *testing.T) {
	if !(Filter{}).IsEmpty() {
		t.Error("zero filter not empty")
	}
	if (Filter{Search: "x"}).IsEmpty() {
		t.Error("filter with search reported empty")
	}
}

func TestAcceptedFile(t *testing.T) {
	cases := []struct {
		name     string
		mime     string
		filename string
		video    bool
		want     bool
	}{
		{"pdf by mime", "application/pdf", "a.bin", false, true},
		{"docx by mime", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", "a", false, true},
		{"mime with params", "application/pdf; charset=binary", "a", false, true},
		{"extension fallback", "application/octet-stream", "folien.PPTX", false, true},
		{"extension fallback no mime", "", "blatt.doc", false, true},
		{"zip", "application/zip", "paket.zip", false, true},
		{"executable", "application/x-msdownload", "setup.exe", false, false},
		{"plain text", "text/plain", "note.txt", false, false},
		{"video disabled", "video/mp4", "film.mp4", false, false},
		{"video enabled", "video/mp4", "film.mp4", true, true},
		{"video ext enabled", "application/octet-stream", "film.webm", true, true},
		{"image with video flag", "image/png", "vorschau.png", true, true},
	}
	for _, tc := range cases {
		if got := AcceptedFile(tc.mime, tc.filename, tc.video); got != tc.want {
			t.Errorf("%s: AcceptedFile(%q, %q, %v) = %v", tc.name, tc.mime, tc.filename, tc.video, got)
		}
	}
}
