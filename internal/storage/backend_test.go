package storage

import (
	"strings"
	"testing"
)

func TestNewKeyCarriesExtension(t *testing.T) {
	key := NewKey("Arbeitsblatt Brüche.PDF")
	if !strings.HasSuffix(key, ".pdf") {
		t.Errorf("key %q missing lowercased extension", key)
	}
	if strings.Contains(key, "Arbeitsblatt") {
		t.Errorf("key %q leaks the original name", key)
	}
}

func TestNewKeyIgnoresPathSegments(t *testing.T) {
	key := NewKey("../../etc/passwd")
	if strings.ContainsAny(key, "/\\") || strings.Contains(key, "..") {
		t.Errorf("key %q contains path segments", key)
	}
}

func TestNewKeyUnique(t *testing.T) {
	a, b := NewKey("x.pdf"), NewKey("x.pdf")
	if a == b {
		t.Error("keys collide")
	}
}

func TestNewKeyOddExtensions(t *testing.T) {
	for _, name := range []string{"", "keine-endung", "datei.verylongextension"} {
		key := NewKey(name)
		if strings.Contains(key, ".") {
			t.Errorf("NewKey(%q) = %q, expected bare key", name, key)
		}
	}
}
