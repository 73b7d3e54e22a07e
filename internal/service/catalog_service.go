package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/studyvault-api/internal/models"
	appErrors "github.com/noah-isme/studyvault-api/pkg/errors"
)

type catalogStore interface {
	ListAll(ctx context.Context, kind models.ResourceKind) ([]models.CatalogEntry, error)
	FindByID(ctx context.Context, kind models.ResourceKind, id string) (*models.CatalogEntry, error)
	Insert(ctx context.Context, entry *models.CatalogEntry) error
	Vote(ctx context.Context, kind models.ResourceKind, id, userID string, value int) (float64, error)
}

type snapshotCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, pattern string) error
}

// CatalogService serves the full catalog snapshot of a kind, cached in Redis.
type CatalogService struct {
	repo   catalogStore
	cache  snapshotCache
	logger *zap.Logger
	ttl    time.Duration
}

// NewCatalogService constructs the service. cache may be nil.
func NewCatalogService(repo catalogStore, cache snapshotCache, logger *zap.Logger, ttl time.Duration) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{repo: repo, cache: cache, logger: logger, ttl: ttl}
}

func snapshotKey(kind models.ResourceKind) string {
	return fmt.Sprintf("catalog:%s:snapshot", kind)
}

// Snapshot returns every entry of the kind. Cache failures fall back to the database.
func (s *CatalogService) Snapshot(ctx context.Context, kind models.ResourceKind) ([]models.CatalogEntry, error) {
	key := snapshotKey(kind)
	if s.cache != nil {
		var cached []cachedEntry
		hit, err := s.cache.Get(ctx, key, &cached)
		if err == nil && hit {
			return restoreEntries(cached), nil
		}
	}

	entries, err := s.repo.ListAll(ctx, kind)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load catalog")
	}
	if entries == nil {
		entries = []models.CatalogEntry{}
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, cacheableEntries(entries), s.ttl); err != nil {
			s.logger.Warn("catalog snapshot not cached", zap.String("kind", string(kind)), zap.Error(err))
		}
	}
	return entries, nil
}

// Entry looks up a single entry by id.
func (s *CatalogService) Entry(ctx context.Context, kind models.ResourceKind, id string) (models.CatalogEntry, error) {
	entry, err := s.repo.FindByID(ctx, kind, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.CatalogEntry{}, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return models.CatalogEntry{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}
	return *entry, nil
}

// Add inserts a new entry and drops the cached snapshot.
func (s *CatalogService) Add(ctx context.Context, entry *models.CatalogEntry) error {
	if err := s.repo.Insert(ctx, entry); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save document")
	}
	s.Invalidate(ctx, entry.Kind)
	return nil
}

// Vote applies an up or down vote and returns the new score.
func (s *CatalogService) Vote(ctx context.Context, kind models.ResourceKind, id, userID string, value int) (float64, error) {
	if value != 1 && value != -1 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "vote must be 1 or -1")
	}
	if _, err := s.Entry(ctx, kind, id); err != nil {
		return 0, err
	}
	score, err := s.repo.Vote(ctx, kind, id, userID, value)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record vote")
	}
	s.Invalidate(ctx, kind)
	return score, nil
}

// Invalidate drops cached snapshots for the kind.
func (s *CatalogService) Invalidate(ctx context.Context, kind models.ResourceKind) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, fmt.Sprintf("catalog:%s:*", kind)); err != nil {
		s.logger.Warn("catalog cache invalidation failed", zap.String("kind", string(kind)), zap.Error(err))
	}
}

// cachedEntry carries the storage paths that CatalogEntry hides from JSON.
type cachedEntry struct {
	models.CatalogEntry
	FilePath   string   `json:"filePath"`
	LegacyPath *string  `json:"legacyPath,omitempty"`
	Keys       []string `json:"storagePaths"`
}

func cacheableEntries(entries []models.CatalogEntry) []cachedEntry {
	out := make([]cachedEntry, len(entries))
	for i, e := range entries {
		out[i] = cachedEntry{CatalogEntry: e, FilePath: e.FilePath, LegacyPath: e.LegacyPath, Keys: e.StoragePaths}
	}
	return out
}

func restoreEntries(cached []cachedEntry) []models.CatalogEntry {
	out := make([]models.CatalogEntry, len(cached))
	for i, c := range cached {
		entry := c.CatalogEntry
		entry.FilePath = c.FilePath
		entry.LegacyPath = c.LegacyPath
		entry.StoragePaths = c.Keys
		if len(entry.StoragePaths) == 0 {
			entry.StoragePaths = entry.Paths()
		}
		out[i] = entry
	}
	return out
}
