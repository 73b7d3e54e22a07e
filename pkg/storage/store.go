// Package storage fronts the object store that holds uploaded outlines and
// exams. Two backends exist: an S3-compatible bucket and a local directory whose
// signed URLs are served by this API.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/noah-isme/studyvault-api/pkg/config"
)

// ErrNotFound is returned when a key does not exist in the bucket.
var ErrNotFound = errors.New("storage object not found")

// FolderPlaceholder marks an otherwise empty "folder" prefix.
const FolderPlaceholder = ".emptyFolderPlaceholder"

// ObjectStore is the subset of object storage the portal depends on.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	// SignedURL returns a time-limited public URL, or ErrNotFound when the key is missing.
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// New builds the configured backend.
func New(ctx context.Context, cfg config.StorageConfig) (ObjectStore, error) {
	switch cfg.Driver {
	case config.StorageDriverS3:
		return NewS3Store(ctx, cfg)
	case config.StorageDriverLocal, "":
		signer := NewSignedURLSigner(cfg.SigningSecret, cfg.SignedURLTTL)
		return NewLocalStore(cfg.LocalDir, cfg.Bucket, cfg.PublicBaseURL, signer)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// CleanKey normalises a key: forward slashes, no leading slash, no dot segments.
func CleanKey(key string) string {
	key = strings.ReplaceAll(key, "\\", "/")
	parts := strings.Split(key, "/")
	cleaned := make([]string, 0, len(parts))
	for _, part := range parts {
		if part == "" || part == "." || part == ".." {
			continue
		}
		cleaned = append(cleaned, part)
	}
	return strings.Join(cleaned, "/")
}
