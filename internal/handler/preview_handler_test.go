package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studyvault-api/internal/models"
	"github.com/noah-isme/studyvault-api/internal/service"
	appErrors "github.com/noah-isme/studyvault-api/pkg/errors"
)

type entryLookupMock struct {
	entry models.CatalogEntry
	err   error
}

func (m *entryLookupMock) Entry(ctx context.Context, kind models.ResourceKind, id string) (models.CatalogEntry, error) {
	return m.entry, m.err
}

type previewServiceMock struct {
	session      models.PreviewSession
	grant        models.DownloadGrant
	err          error
	lastViewer   service.ViewerKey
	lastActor    models.Actor
	lastID       string
	released     bool
	selectCalled bool
}

func (m *previewServiceMock) Select(ctx context.Context, viewer service.ViewerKey, entry models.CatalogEntry, actor models.Actor) (models.PreviewSession, error) {
	m.selectCalled = true
	m.lastViewer, m.lastActor = viewer, actor
	return m.session, m.err
}

func (m *previewServiceMock) MarkVisible(ctx context.Context, viewer service.ViewerKey, sessionID string) (models.PreviewSession, error) {
	m.lastViewer, m.lastID = viewer, sessionID
	return m.session, m.err
}

func (m *previewServiceMock) Get(viewer service.ViewerKey, sessionID string) (models.PreviewSession, error) {
	m.lastViewer, m.lastID = viewer, sessionID
	return m.session, m.err
}

func (m *previewServiceMock) Release(viewer service.ViewerKey) {
	m.released = true
	m.lastViewer = viewer
}

func (m *previewServiceMock) Download(ctx context.Context, entry models.CatalogEntry, actor models.Actor) (models.DownloadGrant, error) {
	m.lastActor = actor
	return m.grant, m.err
}

type quotaReaderMock struct {
	status    models.QuotaStatus
	lastBytes int64
}

func (m *quotaReaderMock) Check(ctx context.Context, userID string, additionalBytes int64) (models.QuotaStatus, error) {
	m.lastBytes = additionalBytes
	return m.status, nil
}

func entryParams() gin.Params {
	return gin.Params{{Key: "kind", Value: "outline"}, {Key: "id", Value: "o-1"}}
}

func TestPreviewHandlerSelect(t *testing.T) {
	previews := &previewServiceMock{session: models.PreviewSession{ID: "p-1", State: models.PreviewPending}}
	handler := NewPreviewHandler(&entryLookupMock{entry: models.CatalogEntry{ID: "o-1"}}, previews, &quotaReaderMock{})

	c, w := newTestContext(http.MethodPost, "/catalog/outline/o-1/preview?pane=side", nil, entryParams())
	c.Request.Header.Set("User-Agent", "test-agent")
	handler.Select(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.ViewerKey{BrowserSession: "browser-1", Pane: "side"}, previews.lastViewer)
	assert.Equal(t, models.Actor{UserID: "user-1", SessionID: "browser-1", UserAgent: "test-agent"}, previews.lastActor)
}

func TestPreviewHandlerSelectUnknownEntry(t *testing.T) {
	previews := &previewServiceMock{}
	handler := NewPreviewHandler(&entryLookupMock{err: appErrors.ErrNotFound}, previews, &quotaReaderMock{})
	c, w := newTestContext(http.MethodPost, "/catalog/outline/missing/preview", nil, entryParams())
	handler.Select(c)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, previews.selectCalled)
}

func TestPreviewHandlerVisibleReturnsSessionOnRejection(t *testing.T) {
	previews := &previewServiceMock{
		session: models.PreviewSession{ID: "p-1", State: models.PreviewRejected, Message: "limit reached"},
		err:     appErrors.Clone(appErrors.ErrQuotaExceeded, "limit reached"),
	}
	handler := NewPreviewHandler(&entryLookupMock{}, previews, &quotaReaderMock{})

	c, w := newTestContext(http.MethodPost, "/preview/p-1/visible", []byte(`{"pane":"main"}`), gin.Params{{Key: "session", Value: "p-1"}})
	handler.Visible(c)

	require.Equal(t, http.StatusTooManyRequests, w.Code)
	env := decodeEnvelope(t, w)
	assert.Contains(t, string(env["data"]), `"state":"rejected"`)
	assert.Contains(t, string(env["error"]), "QUOTA_EXCEEDED")
	assert.Equal(t, "p-1", previews.lastID)
}

func TestPreviewHandlerVisibleStale(t *testing.T) {
	previews := &previewServiceMock{err: appErrors.ErrStaleSelection}
	handler := NewPreviewHandler(&entryLookupMock{}, previews, &quotaReaderMock{})
	c, w := newTestContext(http.MethodPost, "/preview/old/visible", nil, gin.Params{{Key: "session", Value: "old"}})
	handler.Visible(c)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestPreviewHandlerDownloadUnavailable(t *testing.T) {
	previews := &previewServiceMock{err: appErrors.ErrDocumentUnavailable}
	handler := NewPreviewHandler(&entryLookupMock{entry: models.CatalogEntry{ID: "o-1"}}, previews, &quotaReaderMock{})
	c, w := newTestContext(http.MethodPost, "/catalog/outline/o-1/download", nil, entryParams())
	handler.Download(c)
	require.Equal(t, http.StatusFailedDependency, w.Code)
	assert.Contains(t, w.Body.String(), "please download the file instead")
}

func TestPreviewHandlerQuotaChecksZeroBytes(t *testing.T) {
	quota := &quotaReaderMock{lastBytes: -1, status: models.QuotaStatus{Allowed: true, Limit: 100}}
	handler := NewPreviewHandler(&entryLookupMock{}, &previewServiceMock{}, quota)
	c, w := newTestContext(http.MethodGet, "/quota", nil, nil)
	handler.Quota(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(0), quota.lastBytes)
}

func TestPreviewHandlerRelease(t *testing.T) {
	previews := &previewServiceMock{}
	handler := NewPreviewHandler(&entryLookupMock{}, previews, &quotaReaderMock{})
	c, w := newTestContext(http.MethodDelete, "/preview", nil, nil)
	handler.Release(c)
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.True(t, previews.released)
	assert.Equal(t, "browser-1", previews.lastViewer.BrowserSession)
}
