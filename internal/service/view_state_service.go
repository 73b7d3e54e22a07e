package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/studyvault-api/internal/models"
	"github.com/noah-isme/studyvault-api/internal/repository"
	appErrors "github.com/noah-isme/studyvault-api/pkg/errors"
)

type viewStateStore interface {
	LoadFilters(ctx context.Context, sessionID string, kind models.ResourceKind) (*models.FilterSelection, error)
	SaveFilters(ctx context.Context, sessionID string, kind models.ResourceKind, selection models.FilterSelection) error
	ClearFilters(ctx context.Context, sessionID string, kind models.ResourceKind) error
	Toggle(ctx context.Context, sessionID string, kind models.ResourceKind, set, id string) (bool, error)
	Members(ctx context.Context, sessionID string, kind models.ResourceKind, set string) ([]string, error)
}

type catalogSnapshotter interface {
	Snapshot(ctx context.Context, kind models.ResourceKind) ([]models.CatalogEntry, error)
}

// ViewStateService owns a browser session's filters, saved set and hidden set,
// and composes them with the catalog into result views.
type ViewStateService struct {
	store         viewStateStore
	catalog       catalogSnapshotter
	logger        *zap.Logger
	shortMaxPages int
}

// NewViewStateService constructs the service.
func NewViewStateService(store viewStateStore, catalog catalogSnapshotter, logger *zap.Logger, shortMaxPages int) *ViewStateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if shortMaxPages <= 0 {
		shortMaxPages = models.DefaultShortFormMaxPages
	}
	return &ViewStateService{store: store, catalog: catalog, logger: logger, shortMaxPages: shortMaxPages}
}

// Filters returns the session's selection reconciled against the current catalog.
func (s *ViewStateService) Filters(ctx context.Context, sessionID string, kind models.ResourceKind) (models.FilterSelection, models.FilterOptions, error) {
	catalog, err := s.catalog.Snapshot(ctx, kind)
	if err != nil {
		return models.FilterSelection{}, models.FilterOptions{}, err
	}
	selection := s.loadSelection(ctx, sessionID, kind, catalog)
	return selection, DeriveFilterOptions(catalog, selection), nil
}

// ApplyFilter runs one filter transition and persists the result.
func (s *ViewStateService) ApplyFilter(ctx context.Context, sessionID string, kind models.ResourceKind, action models.FilterAction) (models.FilterSelection, models.FilterOptions, error) {
	catalog, err := s.catalog.Snapshot(ctx, kind)
	if err != nil {
		return models.FilterSelection{}, models.FilterOptions{}, err
	}
	current := s.loadSelection(ctx, sessionID, kind, catalog)

	next, err := ApplyFilterAction(current, action, catalog)
	if err != nil {
		return current, DeriveFilterOptions(catalog, current), err
	}
	if err := s.store.SaveFilters(ctx, sessionID, kind, next); err != nil {
		return current, DeriveFilterOptions(catalog, current), appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save filters")
	}
	return next, DeriveFilterOptions(catalog, next), nil
}

// ResetFilters restores the default selection.
func (s *ViewStateService) ResetFilters(ctx context.Context, sessionID string, kind models.ResourceKind) error {
	if err := s.store.ClearFilters(ctx, sessionID, kind); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset filters")
	}
	return nil
}

// Search projects the catalog through the session's filters and hidden set.
func (s *ViewStateService) Search(ctx context.Context, sessionID string, kind models.ResourceKind, sortKey models.SortKey) (models.SearchResult, error) {
	catalog, err := s.catalog.Snapshot(ctx, kind)
	if err != nil {
		return models.SearchResult{}, err
	}
	selection := s.loadSelection(ctx, sessionID, kind, catalog)
	hidden := s.memberSet(ctx, sessionID, kind, repository.SetHidden)

	entries := ProjectResults(catalog, selection, sortKey, hidden, s.shortMaxPages)
	return models.SearchResult{
		Kind:      kind,
		Selection: selection,
		Options:   DeriveFilterOptions(catalog, selection),
		Sort:      sortKey,
		Total:     len(entries),
		Groups:    GroupResults(entries, models.TabSearch),
	}, nil
}

// Saved lists the session's saved entries grouped by course.
func (s *ViewStateService) Saved(ctx context.Context, sessionID string, kind models.ResourceKind) (models.SearchResult, error) {
	catalog, err := s.catalog.Snapshot(ctx, kind)
	if err != nil {
		return models.SearchResult{}, err
	}
	saved := s.memberSet(ctx, sessionID, kind, repository.SetSaved)
	entries := ProjectSaved(catalog, saved)
	return models.SearchResult{
		Kind:   kind,
		Sort:   models.SortTitle,
		Total:  len(entries),
		Groups: GroupResults(entries, models.TabSaved),
	}, nil
}

// ToggleSaved flips membership of id in the saved set.
func (s *ViewStateService) ToggleSaved(ctx context.Context, sessionID string, kind models.ResourceKind, id string) (bool, error) {
	return s.toggle(ctx, sessionID, kind, repository.SetSaved, id)
}

// ToggleHidden flips membership of id in the hidden set.
func (s *ViewStateService) ToggleHidden(ctx context.Context, sessionID string, kind models.ResourceKind, id string) (bool, error) {
	return s.toggle(ctx, sessionID, kind, repository.SetHidden, id)
}

func (s *ViewStateService) toggle(ctx context.Context, sessionID string, kind models.ResourceKind, set, id string) (bool, error) {
	catalog, err := s.catalog.Snapshot(ctx, kind)
	if err != nil {
		return false, err
	}
	found := false
	for _, entry := range catalog {
		if entry.ID == id {
			found = true
			break
		}
	}
	if !found {
		return false, appErrors.Clone(appErrors.ErrNotFound, "document not found")
	}

	member, err := s.store.Toggle(ctx, sessionID, kind, set, id)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update "+set+" documents")
	}
	return member, nil
}

// loadSelection falls back to the default when nothing is stored or the store
// is unreachable; stored selections are reconciled before use.
func (s *ViewStateService) loadSelection(ctx context.Context, sessionID string, kind models.ResourceKind, catalog []models.CatalogEntry) models.FilterSelection {
	stored, err := s.store.LoadFilters(ctx, sessionID, kind)
	if err != nil {
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("failed to load stored filters", zap.String("kind", string(kind)), zap.Error(err))
		}
		return models.DefaultFilterSelection()
	}
	return ReconcileFilterSelection(*stored, catalog)
}

func (s *ViewStateService) memberSet(ctx context.Context, sessionID string, kind models.ResourceKind, set string) map[string]struct{} {
	ids, err := s.store.Members(ctx, sessionID, kind, set)
	if err != nil {
		s.logger.Warn("failed to load document set", zap.String("set", set), zap.Error(err))
		return map[string]struct{}{}
	}
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}
