package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studyvault-api/internal/models"
	appErrors "github.com/noah-isme/studyvault-api/pkg/errors"
)

type memoryCacheRepo struct {
	values  map[string][]byte
	deleted []string
	getErr  error
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{values: make(map[string][]byte)}
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	if m.getErr != nil {
		return m.getErr
	}
	raw, ok := m.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.values[key] = raw
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	m.deleted = append(m.deleted, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range m.values {
		if strings.HasPrefix(key, prefix) {
			delete(m.values, key)
		}
	}
	return nil
}

type stubCatalogStore struct {
	entries   []models.CatalogEntry
	listCalls int
	listErr   error
	inserted  []models.CatalogEntry
	insertErr error
	votes     []int
	score     float64
}

func (s *stubCatalogStore) ListAll(ctx context.Context, kind models.ResourceKind) ([]models.CatalogEntry, error) {
	s.listCalls++
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]models.CatalogEntry, 0, len(s.entries))
	for _, e := range s.entries {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *stubCatalogStore) FindByID(ctx context.Context, kind models.ResourceKind, id string) (*models.CatalogEntry, error) {
	for _, e := range s.entries {
		if e.Kind == kind && e.ID == id {
			entry := e
			return &entry, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *stubCatalogStore) Insert(ctx context.Context, entry *models.CatalogEntry) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.inserted = append(s.inserted, *entry)
	s.entries = append(s.entries, *entry)
	return nil
}

func (s *stubCatalogStore) Vote(ctx context.Context, kind models.ResourceKind, id, userID string, value int) (float64, error) {
	s.votes = append(s.votes, value)
	return s.score, nil
}

func outlineStore() *stubCatalogStore {
	legacy := "public/contracts/a.pdf"
	return &stubCatalogStore{entries: []models.CatalogEntry{
		{ID: "o1", Kind: models.KindOutline, Title: "Contracts A", Course: "Contracts", Instructor: "Jane Doe", Year: "2023",
			FilePath: "contracts/a.pdf", LegacyPath: &legacy, StoragePaths: []string{"contracts/a.pdf", legacy}},
		{ID: "x1", Kind: models.KindExam, Title: "Torts Exam", Course: "Torts", Instructor: "Ann Lee", Year: "2020"},
	}, score: 3}
}

func TestCatalogSnapshotIsCachedWithStoragePaths(t *testing.T) {
	store := outlineStore()
	cacheRepo := newMemoryCacheRepo()
	cache := NewCacheService(cacheRepo, nil, "sv", time.Minute, nil, true)
	svc := NewCatalogService(store, cache, nil, time.Minute)

	first, err := svc.Snapshot(context.Background(), models.KindOutline)
	require.NoError(t, err)
	require.Len(t, first, 1)
	require.Contains(t, cacheRepo.values, "sv:catalog:outline:snapshot")

	second, err := svc.Snapshot(context.Background(), models.KindOutline)
	require.NoError(t, err)
	require.Equal(t, 1, store.listCalls)
	require.Equal(t, "o1", second[0].ID)
	require.Equal(t, "contracts/a.pdf", second[0].FilePath)
	require.Equal(t, []string{"contracts/a.pdf", "public/contracts/a.pdf"}, second[0].StoragePaths)
}

func TestCatalogSnapshotFallsBackWhenCacheFails(t *testing.T) {
	store := outlineStore()
	cacheRepo := newMemoryCacheRepo()
	cacheRepo.getErr = errors.New("redis down")
	svc := NewCatalogService(store, NewCacheService(cacheRepo, nil, "", time.Minute, nil, true), nil, time.Minute)

	entries, err := svc.Snapshot(context.Background(), models.KindExam)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, 1, store.listCalls)
}

func TestCatalogSnapshotWrapsStoreError(t *testing.T) {
	svc := NewCatalogService(&stubCatalogStore{listErr: errors.New("boom")}, nil, nil, 0)
	_, err := svc.Snapshot(context.Background(), models.KindOutline)
	require.True(t, errors.Is(err, appErrors.ErrInternal))
}

func TestCatalogVoteInvalidatesSnapshot(t *testing.T) {
	store := outlineStore()
	cacheRepo := newMemoryCacheRepo()
	svc := NewCatalogService(store, NewCacheService(cacheRepo, nil, "sv", time.Minute, nil, true), nil, time.Minute)

	_, err := svc.Snapshot(context.Background(), models.KindOutline)
	require.NoError(t, err)

	score, err := svc.Vote(context.Background(), models.KindOutline, "o1", "u1", 1)
	require.NoError(t, err)
	require.Equal(t, 3.0, score)
	require.Equal(t, []string{"sv:catalog:outline:*"}, cacheRepo.deleted)
	require.NotContains(t, cacheRepo.values, "sv:catalog:outline:snapshot")

	_, err = svc.Vote(context.Background(), models.KindOutline, "o1", "u1", 2)
	require.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.Vote(context.Background(), models.KindOutline, "missing", "u1", -1)
	require.True(t, errors.Is(err, appErrors.ErrNotFound))
	require.Equal(t, []int{1}, store.votes)
}

func TestCatalogAddInvalidatesSnapshot(t *testing.T) {
	store := outlineStore()
	cacheRepo := newMemoryCacheRepo()
	svc := NewCatalogService(store, NewCacheService(cacheRepo, nil, "", time.Minute, nil, true), nil, time.Minute)

	require.NoError(t, svc.Add(context.Background(), &models.CatalogEntry{ID: "o2", Kind: models.KindOutline}))
	require.Equal(t, []string{"catalog:outline:*"}, cacheRepo.deleted)

	entries, err := svc.Snapshot(context.Background(), models.KindOutline)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestCacheServiceDisabledIsAlwaysMiss(t *testing.T) {
	cacheRepo := newMemoryCacheRepo()
	cache := NewCacheService(cacheRepo, nil, "", time.Minute, nil, false)
	require.NoError(t, cache.Set(context.Background(), "k", 1, 0))
	var out int
	hit, err := cache.Get(context.Background(), "k", &out)
	require.NoError(t, err)
	require.False(t, hit)
	require.Empty(t, cacheRepo.values)
}
