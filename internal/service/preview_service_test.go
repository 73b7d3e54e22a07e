package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studyvault-api/internal/models"
	appErrors "github.com/noah-isme/studyvault-api/pkg/errors"
)

type stubQuotaChecker struct {
	status models.QuotaStatus
	err    error
	calls  int32
}

func (s *stubQuotaChecker) Check(ctx context.Context, userID string, additionalBytes int64) (models.QuotaStatus, error) {
	atomic.AddInt32(&s.calls, 1)
	status := s.status
	status.Requested = additionalBytes
	return status, s.err
}

type stubDocumentResolver struct {
	calls   int32
	resolve func(ctx context.Context, entry models.CatalogEntry) (models.ResolvedDocument, error)
}

func (s *stubDocumentResolver) Resolve(ctx context.Context, entry models.CatalogEntry, actor models.Actor, action models.ActivityAction) (models.ResolvedDocument, error) {
	atomic.AddInt32(&s.calls, 1)
	if s.resolve != nil {
		return s.resolve(ctx, entry)
	}
	return models.ResolvedDocument{URL: "https://signed/" + entry.ID, Path: "outlines/" + entry.ID + ".pdf", Renderer: models.RendererNative}, nil
}

func pdfEntry(id string) models.CatalogEntry {
	return models.CatalogEntry{ID: id, Kind: models.KindOutline, Title: "Outline " + id, FileType: models.FileTypePDF, FileSize: 1024}
}

var testViewer = ViewerKey{BrowserSession: "browser-1"}

func TestPreviewSelectDefersWorkUntilVisible(t *testing.T) {
	quota := &stubQuotaChecker{status: models.QuotaStatus{Allowed: true}}
	resolver := &stubDocumentResolver{}
	manager := NewPreviewManager(quota, resolver, nil, PreviewConfig{VisibilityMarginPx: 200})

	session, err := manager.Select(context.Background(), testViewer, pdfEntry("a"), models.Actor{UserID: "u1"})
	require.NoError(t, err)
	require.Equal(t, models.PreviewPending, session.State)
	require.Equal(t, models.RendererNative, session.Renderer)
	require.Equal(t, 200, session.MarginPx)
	require.False(t, session.Visible)
	require.Zero(t, atomic.LoadInt32(&quota.calls))
	require.Zero(t, atomic.LoadInt32(&resolver.calls))

	ready, err := manager.MarkVisible(context.Background(), testViewer, session.ID)
	require.NoError(t, err)
	require.True(t, ready.Visible)
	require.Equal(t, models.PreviewReady, ready.State)
	require.Equal(t, "https://signed/a", ready.URL)
	require.NotNil(t, ready.ResolvedAt)
}

func TestPreviewMarkVisibleResolvesExactlyOnce(t *testing.T) {
	quota := &stubQuotaChecker{status: models.QuotaStatus{Allowed: true}}
	release := make(chan struct{})
	resolver := &stubDocumentResolver{resolve: func(ctx context.Context, entry models.CatalogEntry) (models.ResolvedDocument, error) {
		<-release
		return models.ResolvedDocument{URL: "https://signed/once"}, nil
	}}
	manager := NewPreviewManager(quota, resolver, nil, PreviewConfig{})

	session, err := manager.Select(context.Background(), testViewer, pdfEntry("a"), models.Actor{})
	require.NoError(t, err)

	var wg sync.WaitGroup
	urls := make([]string, 8)
	for i := range urls {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := manager.MarkVisible(context.Background(), testViewer, session.ID)
			if err == nil {
				urls[i] = got.URL
			}
		}(i)
	}
	close(release)
	wg.Wait()

	for _, u := range urls {
		require.Equal(t, "https://signed/once", u)
	}
	require.Equal(t, int32(1), atomic.LoadInt32(&quota.calls))
	require.Equal(t, int32(1), atomic.LoadInt32(&resolver.calls))

	again, err := manager.MarkVisible(context.Background(), testViewer, session.ID)
	require.NoError(t, err)
	require.Equal(t, "https://signed/once", again.URL)
	require.Equal(t, int32(1), atomic.LoadInt32(&resolver.calls))
}

func TestPreviewSupersededSessionIsStale(t *testing.T) {
	manager := NewPreviewManager(&stubQuotaChecker{status: models.QuotaStatus{Allowed: true}}, &stubDocumentResolver{}, nil, PreviewConfig{})

	first, err := manager.Select(context.Background(), testViewer, pdfEntry("a"), models.Actor{})
	require.NoError(t, err)
	second, err := manager.Select(context.Background(), testViewer, pdfEntry("b"), models.Actor{})
	require.NoError(t, err)

	_, err = manager.MarkVisible(context.Background(), testViewer, first.ID)
	require.True(t, errors.Is(err, appErrors.ErrStaleSelection))

	current, err := manager.Get(testViewer, second.ID)
	require.NoError(t, err)
	require.Equal(t, "b", current.EntryID)
	require.Equal(t, models.PreviewPending, current.State)

	other := ViewerKey{BrowserSession: "browser-1", Pane: "side"}
	_, err = manager.Get(other, second.ID)
	require.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestPreviewReselectCancelsInFlightResolution(t *testing.T) {
	started := make(chan struct{})
	resolver := &stubDocumentResolver{resolve: func(ctx context.Context, entry models.CatalogEntry) (models.ResolvedDocument, error) {
		if entry.ID == "a" {
			close(started)
			<-ctx.Done()
			return models.ResolvedDocument{}, ctx.Err()
		}
		return models.ResolvedDocument{URL: "https://signed/" + entry.ID}, nil
	}}
	manager := NewPreviewManager(&stubQuotaChecker{status: models.QuotaStatus{Allowed: true}}, resolver, nil, PreviewConfig{})

	first, err := manager.Select(context.Background(), testViewer, pdfEntry("a"), models.Actor{})
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		_, err := manager.MarkVisible(context.Background(), testViewer, first.ID)
		errCh <- err
	}()
	<-started

	second, err := manager.Select(context.Background(), testViewer, pdfEntry("b"), models.Actor{})
	require.NoError(t, err)

	select {
	case err := <-errCh:
		require.True(t, errors.Is(err, appErrors.ErrStaleSelection))
	case <-time.After(time.Second):
		t.Fatal("superseded resolution was not cancelled")
	}

	ready, err := manager.MarkVisible(context.Background(), testViewer, second.ID)
	require.NoError(t, err)
	require.Equal(t, "https://signed/b", ready.URL)
}

func TestPreviewQuotaRejectionSkipsResolution(t *testing.T) {
	quota := &stubQuotaChecker{status: models.QuotaStatus{Allowed: false, Message: "Monthly preview/download limit reached. You have 0.00 MB remaining this month."}}
	resolver := &stubDocumentResolver{}
	manager := NewPreviewManager(quota, resolver, nil, PreviewConfig{})

	session, err := manager.Select(context.Background(), testViewer, pdfEntry("a"), models.Actor{})
	require.NoError(t, err)

	got, err := manager.MarkVisible(context.Background(), testViewer, session.ID)
	require.True(t, errors.Is(err, appErrors.ErrQuotaExceeded))
	require.Equal(t, models.PreviewRejected, got.State)
	require.Contains(t, got.Message, "MB remaining")
	require.Zero(t, atomic.LoadInt32(&resolver.calls))
}

func TestPreviewUnavailableDocument(t *testing.T) {
	resolver := &stubDocumentResolver{resolve: func(ctx context.Context, entry models.CatalogEntry) (models.ResolvedDocument, error) {
		return models.ResolvedDocument{}, appErrors.ErrDocumentUnavailable
	}}
	manager := NewPreviewManager(&stubQuotaChecker{status: models.QuotaStatus{Allowed: true}}, resolver, nil, PreviewConfig{})

	session, err := manager.Select(context.Background(), testViewer, pdfEntry("a"), models.Actor{})
	require.NoError(t, err)

	got, err := manager.MarkVisible(context.Background(), testViewer, session.ID)
	require.True(t, errors.Is(err, appErrors.ErrDocumentUnavailable))
	require.Equal(t, models.PreviewUnavailable, got.State)
	require.Equal(t, appErrors.ErrDocumentUnavailable.Message, got.Message)
}

func TestPreviewUnsupportedTypeNeverUsesQuota(t *testing.T) {
	quota := &stubQuotaChecker{status: models.QuotaStatus{Allowed: true}}
	manager := NewPreviewManager(quota, &stubDocumentResolver{}, nil, PreviewConfig{})

	entry := pdfEntry("a")
	entry.FileType = "rtf"
	session, err := manager.Select(context.Background(), testViewer, entry, models.Actor{})
	require.NoError(t, err)
	require.Equal(t, models.PreviewUnsupported, session.State)

	_, err = manager.MarkVisible(context.Background(), testViewer, session.ID)
	require.True(t, errors.Is(err, appErrors.ErrUnsupportedFileType))
	require.Zero(t, atomic.LoadInt32(&quota.calls))
}

func TestPreviewDownload(t *testing.T) {
	quota := &stubQuotaChecker{status: models.QuotaStatus{Allowed: true, Remaining: 10}}
	manager := NewPreviewManager(quota, &stubDocumentResolver{}, nil, PreviewConfig{})

	grant, err := manager.Download(context.Background(), pdfEntry("a"), models.Actor{UserID: "u1"})
	require.NoError(t, err)
	require.Equal(t, "https://signed/a", grant.URL)
	require.Equal(t, "a.pdf", grant.FileName)
	require.Equal(t, int64(1024), grant.Quota.Requested)

	quota.status = models.QuotaStatus{Allowed: false, Message: "limit"}
	_, err = manager.Download(context.Background(), pdfEntry("a"), models.Actor{UserID: "u1"})
	require.True(t, errors.Is(err, appErrors.ErrQuotaExceeded))
}

func TestPreviewIdleSweepUsesLastActivity(t *testing.T) {
	manager := NewPreviewManager(&stubQuotaChecker{status: models.QuotaStatus{Allowed: true}}, &stubDocumentResolver{}, nil, PreviewConfig{IdleTTL: 10 * time.Minute})
	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	manager.now = func() time.Time { return clock }

	other := ViewerKey{BrowserSession: "browser-2"}
	session, err := manager.Select(context.Background(), testViewer, pdfEntry("a"), models.Actor{})
	require.NoError(t, err)

	clock = clock.Add(8 * time.Minute)
	_, err = manager.Get(testViewer, session.ID)
	require.NoError(t, err)

	clock = clock.Add(7 * time.Minute)
	_, err = manager.Select(context.Background(), other, pdfEntry("b"), models.Actor{})
	require.NoError(t, err)
	_, err = manager.Get(testViewer, session.ID)
	require.NoError(t, err, "pane touched within the idle window must survive")

	clock = clock.Add(11 * time.Minute)
	_, err = manager.Select(context.Background(), other, pdfEntry("c"), models.Actor{})
	require.NoError(t, err)
	_, err = manager.Get(testViewer, session.ID)
	require.True(t, errors.Is(err, appErrors.ErrNotFound))
}
