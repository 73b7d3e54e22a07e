package service

import (
	"context"
	"path"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/studyvault-api/internal/models"
	appErrors "github.com/noah-isme/studyvault-api/pkg/errors"
)

// DefaultPane is used when the browser does not name a viewer pane.
const DefaultPane = "main"

const defaultPreviewIdleTTL = 2 * time.Hour

type quotaChecker interface {
	Check(ctx context.Context, userID string, additionalBytes int64) (models.QuotaStatus, error)
}

type documentResolver interface {
	Resolve(ctx context.Context, entry models.CatalogEntry, actor models.Actor, action models.ActivityAction) (models.ResolvedDocument, error)
}

// ViewerKey identifies one viewer pane of one browser session.
type ViewerKey struct {
	BrowserSession string
	Pane           string
}

func (k ViewerKey) normalized() ViewerKey {
	if k.Pane == "" {
		k.Pane = DefaultPane
	}
	return k
}

// PreviewConfig tunes lazy activation.
type PreviewConfig struct {
	VisibilityMarginPx int
	IdleTTL            time.Duration
}

// activator owns a single selection. It resolves at most once and is cancelled
// as soon as its pane selects something else.
type activator struct {
	mu      sync.Mutex
	session models.PreviewSession
	entry   models.CatalogEntry
	actor   models.Actor

	// lastSeen is guarded by PreviewManager.mu.
	lastSeen time.Time

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
	done   chan struct{}
	err    error
}

func (a *activator) snapshot() models.PreviewSession {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := a.session
	if a.session.Quota != nil {
		q := *a.session.Quota
		out.Quota = &q
	}
	return out
}

func (a *activator) update(fn func(s *models.PreviewSession)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	fn(&a.session)
}

// PreviewManager tracks the current selection of every viewer pane and defers
// quota use and URL resolution until the pane reports it is visible.
type PreviewManager struct {
	quota    quotaChecker
	resolver documentResolver
	logger   *zap.Logger
	cfg      PreviewConfig
	now      func() time.Time

	mu      sync.Mutex
	viewers map[ViewerKey]*activator
}

// NewPreviewManager constructs the manager.
func NewPreviewManager(quota quotaChecker, resolver documentResolver, logger *zap.Logger, cfg PreviewConfig) *PreviewManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = defaultPreviewIdleTTL
	}
	return &PreviewManager{
		quota:    quota,
		resolver: resolver,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
		viewers:  make(map[ViewerKey]*activator),
	}
}

// Select makes entry the pane's current document. Any earlier selection of the
// pane is cancelled; nothing is resolved until MarkVisible.
func (m *PreviewManager) Select(ctx context.Context, viewer ViewerKey, entry models.CatalogEntry, actor models.Actor) (models.PreviewSession, error) {
	if err := ctx.Err(); err != nil {
		return models.PreviewSession{}, err
	}
	viewer = viewer.normalized()
	if viewer.BrowserSession == "" {
		return models.PreviewSession{}, appErrors.Clone(appErrors.ErrValidation, "browser session is required")
	}

	renderer := SelectRenderer(entry.FileType)
	state := models.PreviewPending
	message := ""
	if renderer == models.RendererUnsupported {
		state = models.PreviewUnsupported
		message = appErrors.ErrUnsupportedFileType.Message
	}

	actCtx, cancel := context.WithCancel(context.Background())
	now := m.now().UTC()
	act := &activator{
		session: models.PreviewSession{
			ID:        uuid.NewString(),
			EntryID:   entry.ID,
			Kind:      entry.Kind,
			Title:     entry.Title,
			FileType:  entry.FileType,
			Renderer:  renderer,
			State:     state,
			Message:   message,
			MarginPx:  m.cfg.VisibilityMarginPx,
			CreatedAt: now,
		},
		entry:    entry,
		actor:    actor,
		lastSeen: now,
		ctx:      actCtx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	m.mu.Lock()
	previous := m.viewers[viewer]
	m.viewers[viewer] = act
	m.sweepLocked()
	m.mu.Unlock()

	if previous != nil {
		previous.cancel()
		previous.update(func(s *models.PreviewSession) {
			if s.State == models.PreviewPending || s.State == models.PreviewResolving {
				s.State = models.PreviewCancelled
			}
		})
	}

	return act.snapshot(), nil
}

// MarkVisible reports that the pane entered the viewport. The first call runs
// the quota check and resolution; later and concurrent calls share its result.
// A session id that is no longer the pane's selection yields ErrStaleSelection.
func (m *PreviewManager) MarkVisible(ctx context.Context, viewer ViewerKey, sessionID string) (models.PreviewSession, error) {
	act, err := m.current(viewer, sessionID)
	if err != nil {
		return models.PreviewSession{}, err
	}

	act.once.Do(func() {
		act.update(func(s *models.PreviewSession) {
			s.Visible = true
		})
		go m.activate(act)
	})

	select {
	case <-act.done:
	case <-ctx.Done():
		return act.snapshot(), ctx.Err()
	}

	if act.ctx.Err() != nil {
		return models.PreviewSession{}, appErrors.ErrStaleSelection
	}
	return act.snapshot(), act.err
}

// Get returns the current state of a pane's selection.
func (m *PreviewManager) Get(viewer ViewerKey, sessionID string) (models.PreviewSession, error) {
	act, err := m.current(viewer, sessionID)
	if err != nil {
		return models.PreviewSession{}, err
	}
	return act.snapshot(), nil
}

// Release drops the pane's selection, cancelling any in-flight resolution.
func (m *PreviewManager) Release(viewer ViewerKey) {
	viewer = viewer.normalized()
	m.mu.Lock()
	act := m.viewers[viewer]
	delete(m.viewers, viewer)
	m.mu.Unlock()
	if act != nil {
		act.cancel()
	}
}

// Download checks quota for the full file size and signs a URL for any file type.
func (m *PreviewManager) Download(ctx context.Context, entry models.CatalogEntry, actor models.Actor) (models.DownloadGrant, error) {
	status, err := m.quota.Check(ctx, actor.UserID, entry.FileSize)
	if err != nil {
		return models.DownloadGrant{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check usage quota")
	}
	if !status.Allowed {
		return models.DownloadGrant{Quota: status}, appErrors.Clone(appErrors.ErrQuotaExceeded, status.Message)
	}

	doc, err := m.resolver.Resolve(ctx, entry, actor, models.ActivityDownload)
	if err != nil {
		return models.DownloadGrant{Quota: status}, err
	}
	return models.DownloadGrant{
		EntryID:  entry.ID,
		URL:      doc.URL,
		FileName: path.Base(doc.Path),
		Quota:    status,
	}, nil
}

func (m *PreviewManager) current(viewer ViewerKey, sessionID string) (*activator, error) {
	viewer = viewer.normalized()
	m.mu.Lock()
	defer m.mu.Unlock()
	act := m.viewers[viewer]
	if act == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no document selected in this viewer")
	}
	if act.session.ID != sessionID {
		return nil, appErrors.ErrStaleSelection
	}
	act.lastSeen = m.now().UTC()
	return act, nil
}

func (m *PreviewManager) activate(act *activator) {
	defer close(act.done)
	ctx := act.ctx

	if act.session.Renderer == models.RendererUnsupported {
		act.err = appErrors.ErrUnsupportedFileType
		return
	}

	act.update(func(s *models.PreviewSession) { s.State = models.PreviewResolving })

	status, err := m.quota.Check(ctx, act.actor.UserID, act.entry.FileSize)
	if err != nil {
		m.logger.Error("preview quota check failed", zap.String("entry_id", act.entry.ID), zap.Error(err))
		act.err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check usage quota")
		act.update(func(s *models.PreviewSession) {
			s.State = models.PreviewUnavailable
			s.Message = appErrors.ErrDocumentUnavailable.Message
		})
		return
	}
	if !status.Allowed {
		act.err = appErrors.Clone(appErrors.ErrQuotaExceeded, status.Message)
		act.update(func(s *models.PreviewSession) {
			s.State = models.PreviewRejected
			s.Message = status.Message
			s.Quota = &status
		})
		return
	}
	if ctx.Err() != nil {
		act.err = appErrors.ErrStaleSelection
		act.update(func(s *models.PreviewSession) { s.State = models.PreviewCancelled })
		return
	}

	doc, err := m.resolver.Resolve(ctx, act.entry, act.actor, models.ActivityPreview)
	if ctx.Err() != nil {
		act.err = appErrors.ErrStaleSelection
		act.update(func(s *models.PreviewSession) { s.State = models.PreviewCancelled })
		return
	}
	if err != nil {
		act.err = err
		act.update(func(s *models.PreviewSession) {
			s.State = models.PreviewUnavailable
			s.Message = appErrors.FromError(err).Message
			s.Quota = &status
		})
		return
	}

	resolvedAt := m.now().UTC()
	act.update(func(s *models.PreviewSession) {
		s.State = models.PreviewReady
		s.URL = doc.URL
		s.EmbedURL = doc.EmbedURL
		s.Quota = &status
		s.ResolvedAt = &resolvedAt
	})
}

// sweepLocked drops selections not touched within the idle TTL. Callers hold m.mu.
func (m *PreviewManager) sweepLocked() {
	cutoff := m.now().UTC().Add(-m.cfg.IdleTTL)
	for key, act := range m.viewers {
		if act.lastSeen.Before(cutoff) {
			act.cancel()
			delete(m.viewers, key)
		}
	}
}
