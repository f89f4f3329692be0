package local

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestBackend(t *testing.T) *LocalBackend {
	t.Helper()
	b, err := New(Config{RootPath: t.TempDir(), CreateDirs: true})
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestPutGetRoundTrip(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	content := []byte("arbeitsblatt inhalt")

	if err := b.PutObject(ctx, "abc123.pdf", bytes.NewReader(content), int64(len(content))); err != nil {
		t.Fatalf("put: %v", err)
	}

	body, size, err := b.GetObject(ctx, "abc123.pdf")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer body.Close()
	if size != int64(len(content)) {
		t.Errorf("size = %d, want %d", size, len(content))
	}
	got, _ := io.ReadAll(body)
	if !bytes.Equal(got, content) {
		t.Errorf("content = %q", got)
	}
}

func TestGetMissingObject(t *testing.T) {
	b := newTestBackend(t)
	_, _, err := b.GetObject(context.Background(), "nicht-da.pdf")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("missing object must match fs.ErrNotExist, got %v", err)
	}
}

func TestDeleteObject(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	if err := b.PutObject(ctx, "weg.pdf", strings.NewReader("x"), 1); err != nil {
		t.Fatal(err)
	}
	if err := b.DeleteObject(ctx, "weg.pdf"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	ok, err := b.ObjectExists(ctx, "weg.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("object still exists after delete")
	}

	// Deleting again is not an error.
	if err := b.DeleteObject(ctx, "weg.pdf"); err != nil {
		t.Errorf("second delete: %v", err)
	}
}

func TestObjectExists(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	ok, err := b.ObjectExists(ctx, "fehlt.pdf")
	if err != nil || ok {
		t.Errorf("exists(missing) = %v, %v", ok, err)
	}
	if err := b.PutObject(ctx, "da.pdf", strings.NewReader("x"), 1); err != nil {
		t.Fatal(err)
	}
	ok, err = b.ObjectExists(ctx, "da.pdf")
	if err != nil || !ok {
		t.Errorf("exists(present) = %v, %v", ok, err)
	}
}

func TestRejectsPathEscapingKeys(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	for _, key := range []string{"", "../escape.pdf", "a/b.pdf", `a\b.pdf`, ".."} {
		if err := b.PutObject(ctx, key, strings.NewReader("x"), 1); err == nil {
			t.Errorf("put accepted key %q", key)
		}
		if _, _, err := b.GetObject(ctx, key); err == nil {
			t.Errorf("get accepted key %q", key)
		}
		if err := b.DeleteObject(ctx, key); err == nil {
			t.Errorf("delete accepted key %q", key)
		}
	}
}

func TestPutLeavesNoTempFiles(t *testing.T) {
	root := t.TempDir()
	b, err := New(Config{RootPath: root})
	if err != nil {
		t.Fatal(err)
	}

	if err := b.PutObject(context.Background(), "x.pdf", strings.NewReader("x"), 1); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".schulmaterial-") {
			t.Errorf("leftover temp file %s", e.Name())
		}
	}
	if _, err := os.Stat(filepath.Join(root, "x.pdf")); err != nil {
		t.Errorf("object not written: %v", err)
	}
}

func TestNewRequiresDirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "datei")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := New(Config{RootPath: file}); err == nil {
		t.Error("expected error for non-directory root")
	}
}
