// Package smb provides an SMB/CIFS network share storage backend for
// schools that keep material archives on a Windows file server. The
// share must be pre-mounted on the OS (via mount.cifs or fstab); this
// backend delegates to the local filesystem backend at the mount path.
package smb

import (
	"fmt"

	"github.com/schulmaterial/schulmaterial/internal/storage/local"
)

// Config holds SMB backend settings. Actual I/O uses the MountPath
// where the share is pre-mounted.
type Config struct {
	MountPath string
}

// SMBBackend wraps a LocalBackend at the SMB mount point.
type SMBBackend struct {
	*local.LocalBackend
}

// New creates a new SMB backend from the given config.
func New(cfg Config) (*SMBBackend, error) {
	if cfg.MountPath == "" {
		return nil, fmt.Errorf("mount path is required")
	}

	lb, err := local.New(local.Config{
		RootPath:   cfg.MountPath,
		CreateDirs: true,
	})
	if err != nil {
		return nil, fmt.Errorf("smb backend at %s: %w", cfg.MountPath, err)
	}

	return &SMBBackend{LocalBackend: lb}, nil
}

// Type returns "smb".
func (b *SMBBackend) Type() string { return "smb" }
