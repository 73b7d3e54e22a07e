package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studyvault-api/internal/middleware"
	"github.com/noah-isme/studyvault-api/internal/models"
	appErrors "github.com/noah-isme/studyvault-api/pkg/errors"
	"github.com/noah-isme/studyvault-api/pkg/middleware/session"
)

type viewStateServiceMock struct {
	selection   models.FilterSelection
	options     models.FilterOptions
	result      models.SearchResult
	err         error
	lastAction  models.FilterAction
	lastSort    models.SortKey
	lastKind    models.ResourceKind
	lastSession string
	toggledID   string
	member      bool
	resetCalled bool
}

func (m *viewStateServiceMock) Filters(ctx context.Context, sessionID string, kind models.ResourceKind) (models.FilterSelection, models.FilterOptions, error) {
	m.lastSession, m.lastKind = sessionID, kind
	return m.selection, m.options, m.err
}

func (m *viewStateServiceMock) ApplyFilter(ctx context.Context, sessionID string, kind models.ResourceKind, action models.FilterAction) (models.FilterSelection, models.FilterOptions, error) {
	m.lastAction = action
	return m.selection, m.options, m.err
}

func (m *viewStateServiceMock) ResetFilters(ctx context.Context, sessionID string, kind models.ResourceKind) error {
	m.resetCalled = true
	return m.err
}

func (m *viewStateServiceMock) Search(ctx context.Context, sessionID string, kind models.ResourceKind, sortKey models.SortKey) (models.SearchResult, error) {
	m.lastSort, m.lastKind = sortKey, kind
	return m.result, m.err
}

func (m *viewStateServiceMock) Saved(ctx context.Context, sessionID string, kind models.ResourceKind) (models.SearchResult, error) {
	return m.result, m.err
}

func (m *viewStateServiceMock) ToggleSaved(ctx context.Context, sessionID string, kind models.ResourceKind, id string) (bool, error) {
	m.toggledID = id
	return m.member, m.err
}

func (m *viewStateServiceMock) ToggleHidden(ctx context.Context, sessionID string, kind models.ResourceKind, id string) (bool, error) {
	m.toggledID = id
	return m.member, m.err
}

type catalogVoterMock struct {
	score       float64
	err         error
	lastValue   int
	lastUser    string
	invalidated models.ResourceKind
}

func (m *catalogVoterMock) Vote(ctx context.Context, kind models.ResourceKind, id, userID string, value int) (float64, error) {
	m.lastValue, m.lastUser = value, userID
	return m.score, m.err
}

func (m *catalogVoterMock) Invalidate(ctx context.Context, kind models.ResourceKind) {
	m.invalidated = kind
}

func newTestContext(method, target string, body []byte, params gin.Params) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, target, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.Request = req
	c.Params = params
	session.WithValue(c, "browser-1")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{Role: models.RoleAuthenticated, RegisteredClaims: registered("user-1")})
	return c, w
}

func registered(subject string) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{Subject: subject}
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	var env map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestCatalogHandlerSearch(t *testing.T) {
	mockSvc := &viewStateServiceMock{result: models.SearchResult{Kind: models.KindOutline, Total: 2}}
	handler := NewCatalogHandler(mockSvc, &catalogVoterMock{})

	c, w := newTestContext(http.MethodGet, "/catalog/outlines/search?sort=newest", nil, gin.Params{{Key: "kind", Value: "outlines"}})
	handler.Search(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.SortNewest, mockSvc.lastSort)
	assert.Equal(t, models.KindOutline, mockSvc.lastKind)
	assert.Contains(t, w.Body.String(), `"total":2`)
}

func TestCatalogHandlerRejectsUnknownKind(t *testing.T) {
	handler := NewCatalogHandler(&viewStateServiceMock{}, &catalogVoterMock{})
	c, w := newTestContext(http.MethodGet, "/catalog/briefs/search", nil, gin.Params{{Key: "kind", Value: "briefs"}})
	handler.Search(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestCatalogHandlerRequiresBrowserSession(t *testing.T) {
	handler := NewCatalogHandler(&viewStateServiceMock{}, &catalogVoterMock{})
	c, w := newTestContext(http.MethodGet, "/views/exam/filters", nil, gin.Params{{Key: "kind", Value: "exam"}})
	session.WithValue(c, "")
	handler.GetFilters(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCatalogHandlerApplyFilter(t *testing.T) {
	mockSvc := &viewStateServiceMock{selection: models.FilterSelection{Course: "Contracts"}}
	handler := NewCatalogHandler(mockSvc, &catalogVoterMock{})

	c, w := newTestContext(http.MethodPost, "/views/outline/filters", []byte(`{"type":"setCourse","value":"Contracts"}`), gin.Params{{Key: "kind", Value: "outline"}})
	handler.ApplyFilter(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.ActionSetCourse, mockSvc.lastAction.Type)
	assert.Equal(t, "Contracts", mockSvc.lastAction.Value)

	env := decodeEnvelope(t, w)
	var state FilterStateResponse
	require.NoError(t, json.Unmarshal(env["data"], &state))
	assert.Equal(t, "Contracts", state.Selection.Course)
}

func TestCatalogHandlerApplyFilterPropagatesValidation(t *testing.T) {
	mockSvc := &viewStateServiceMock{err: appErrors.Clone(appErrors.ErrValidation, "instructor is not available")}
	handler := NewCatalogHandler(mockSvc, &catalogVoterMock{})

	c, w := newTestContext(http.MethodPost, "/views/outline/filters", []byte(`{"type":"setInstructor","value":"Nobody"}`), gin.Params{{Key: "kind", Value: "outline"}})
	handler.ApplyFilter(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCatalogHandlerResetAndToggle(t *testing.T) {
	mockSvc := &viewStateServiceMock{member: true}
	handler := NewCatalogHandler(mockSvc, &catalogVoterMock{})

	c, w := newTestContext(http.MethodDelete, "/views/outline/filters", nil, gin.Params{{Key: "kind", Value: "outline"}})
	handler.ResetFilters(c)
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.True(t, mockSvc.resetCalled)

	c, w = newTestContext(http.MethodPost, "/saved/outline/o-1/toggle", nil, gin.Params{{Key: "kind", Value: "outline"}, {Key: "id", Value: "o-1"}})
	handler.ToggleSaved(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "o-1", mockSvc.toggledID)
	assert.Contains(t, w.Body.String(), `"member":true`)
}

func TestCatalogHandlerVote(t *testing.T) {
	voter := &catalogVoterMock{score: 4}
	handler := NewCatalogHandler(&viewStateServiceMock{}, voter)

	c, w := newTestContext(http.MethodPost, "/catalog/exam/e-1/votes", []byte(`{"value":-1}`), gin.Params{{Key: "kind", Value: "exam"}, {Key: "id", Value: "e-1"}})
	handler.Vote(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, -1, voter.lastValue)
	assert.Equal(t, "user-1", voter.lastUser)
}

func TestCatalogHandlerInvalidateCache(t *testing.T) {
	voter := &catalogVoterMock{}
	handler := NewCatalogHandler(&viewStateServiceMock{}, voter)
	c, w := newTestContext(http.MethodDelete, "/admin/catalog/exam/cache", nil, gin.Params{{Key: "kind", Value: "exam"}})
	handler.InvalidateCache(c)
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, models.KindExam, voter.invalidated)
}
