package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalStore persists objects on disk under baseDir/bucket and issues HMAC
// signed URLs that point back at this API.
type LocalStore struct {
	baseDir   string
	bucket    string
	publicURL string
	signer    *SignedURLSigner
}

// NewLocalStore ensures the bucket directory exists and returns a handle.
func NewLocalStore(baseDir, bucket, publicURL string, signer *SignedURLSigner) (*LocalStore, error) {
	if baseDir == "" {
		baseDir = "./storage"
	}
	if bucket == "" {
		bucket = "documents"
	}
	if err := os.MkdirAll(filepath.Join(baseDir, bucket), 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &LocalStore{
		baseDir:   baseDir,
		bucket:    bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
		signer:    signer,
	}, nil
}

// Put streams reader into a temp file beside the target and renames it into
// place. A failed write removes the temp file.
func (s *LocalStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("prepare object directory: %w", err)
	}
	file, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return fmt.Errorf("create object file: %w", err)
	}
	tmp := file.Name()
	if _, err := io.Copy(file, r); err != nil {
		file.Close() //nolint:errcheck
		os.Remove(tmp) //nolint:errcheck
		return fmt.Errorf("write object stream: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp) //nolint:errcheck
		return fmt.Errorf("close object file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp) //nolint:errcheck
		return fmt.Errorf("commit object file: %w", err)
	}
	return nil
}

// Exists reports whether the key is present.
func (s *LocalStore) Exists(ctx context.Context, key string) (bool, error) {
	path, err := s.resolve(key)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat object: %w", err)
	}
	return !info.IsDir(), nil
}

// Delete removes a stored object if present.
func (s *LocalStore) Delete(ctx context.Context, key string) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

// SignedURL issues a token URL served by the files endpoint.
func (s *LocalStore) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if s.signer == nil {
		return "", fmt.Errorf("url signer unavailable")
	}
	exists, err := s.Exists(ctx, key)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", ErrNotFound
	}
	token, _, err := s.signer.Generate(s.bucket, CleanKey(key), ttl)
	if err != nil {
		return "", fmt.Errorf("sign object url: %w", err)
	}
	return fmt.Sprintf("%s/files/%s", s.publicURL, url.PathEscape(token)), nil
}

// OpenSigned validates a token issued by SignedURL and opens the object for streaming.
func (s *LocalStore) OpenSigned(token string) (*os.File, string, error) {
	if s.signer == nil {
		return nil, "", fmt.Errorf("url signer unavailable")
	}
	bucket, key, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, "", err
	}
	if bucket != s.bucket {
		return nil, "", fmt.Errorf("token bucket mismatch")
	}
	path, err := s.resolve(key)
	if err != nil {
		return nil, "", err
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("open object: %w", err)
	}
	return file, key, nil
}

func (s *LocalStore) resolve(key string) (string, error) {
	cleaned := CleanKey(key)
	if cleaned == "" {
		return "", fmt.Errorf("object key required")
	}
	return filepath.Join(s.baseDir, s.bucket, filepath.FromSlash(cleaned)), nil
}
