// Package storage stores uploaded card media and hands back the opaque
// reference the catalog keeps. Two backends ship: local disk under the
// static uploads directory (the default) and S3-compatible object storage.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Storage saves one uploaded file and returns the reference to store in
// the catalog (a URL or an absolute path under the console's static root).
type Storage interface {
	Save(ctx context.Context, filename string, body io.Reader) (string, error)
}

// Local stores uploads on disk under dir and serves them at urlPrefix.
type Local struct {
	dir       string
	urlPrefix string
}

// NewLocal creates a local-disk storage rooted at dir. Files are exposed
// at urlPrefix (e.g. "/uploads/").
func NewLocal(dir, urlPrefix string) *Local {
	return &Local{dir: dir, urlPrefix: strings.TrimRight(urlPrefix, "/") + "/"}
}

// Save writes the upload under a collision-free name and returns the path
// the console serves it at.
func (l *Local) Save(ctx context.Context, filename string, body io.Reader) (string, error) {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	name := objectName(filename)
	dst, err := os.Create(filepath.Join(l.dir, name))
	if err != nil {
		return "", fmt.Errorf("create upload: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, body); err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("write upload: %w", err)
	}

	return l.urlPrefix + name, nil
}

// objectName builds a uuid-prefixed, sanitized object name so concurrent
// uploads of identically named files never collide.
func objectName(filename string) string {
	base := filepath.Base(filename)
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, base)
	if base == "" || base == "." {
		base = "upload"
	}
	return uuid.NewString() + "_" + base
}
