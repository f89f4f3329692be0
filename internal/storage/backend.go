// Package storage defines the Backend interface for stored material
// files and the key scheme under which they are filed.
package storage

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Backend is the interface for material file storage backends.
// Implementations handle raw object I/O (local filesystem, S3, SMB
// mounts). Metadata lives separately in postgres.Store.
type Backend interface {
	// GetObject retrieves an object by key. The returned size is the
	// object's total size when known, 0 otherwise. A missing object
	// yields an error matching fs.ErrNotExist.
	GetObject(ctx context.Context, key string) (io.ReadCloser, int64, error)

	// PutObject uploads content to the given key.
	PutObject(ctx context.Context, key string, body io.Reader, size int64) error

	// DeleteObject removes an object by key. Deleting a key that does
	// not exist is not an error.
	DeleteObject(ctx context.Context, key string) error

	// ObjectExists checks if an object exists at the given key.
	ObjectExists(ctx context.Context, key string) (bool, error)

	// Type returns the backend type identifier ("local", "s3", "smb").
	Type() string

	// Close releases any resources held by the backend.
	Close() error
}

// NewKey returns a fresh storage key for an uploaded file. The key is
// a random UUID carrying the original file extension, so stored names
// never collide and never leak user-controlled path segments.
func NewKey(originalName string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(originalName)))
	if len(ext) > 10 || strings.ContainsAny(ext, "/\\") {
		ext = ""
	}
	return uuid.New().String() + ext
}
