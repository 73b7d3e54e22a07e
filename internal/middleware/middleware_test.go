package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studyvault-api/internal/models"
	appErrors "github.com/noah-isme/studyvault-api/pkg/errors"
)

type stubValidator struct {
	claims *models.JWTClaims
	err    error
	seen   string
}

func (s *stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	s.seen = token
	return s.claims, s.err
}

func newTestRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	chain := append(handlers, func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	r.GET("/protected", chain...)
	return r
}

func serve(r *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTMiddleware(t *testing.T) {
	validator := &stubValidator{claims: &models.JWTClaims{Role: models.RoleAuthenticated}}
	r := newTestRouter(JWT(validator))

	assert.Equal(t, http.StatusUnauthorized, serve(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "Basic abc").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "Bearer ").Code)

	w := serve(r, "bearer token-1")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "token-1", validator.seen)

	validator.err = appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	assert.Equal(t, http.StatusUnauthorized, serve(r, "Bearer bad").Code)
}

func TestOptionalJWTNeverBlocks(t *testing.T) {
	validator := &stubValidator{err: appErrors.ErrUnauthorized}
	var attached bool
	r := newTestRouter(OptionalJWT(validator), func(c *gin.Context) {
		_, attached = c.Get(ContextUserKey)
	})
	assert.Equal(t, http.StatusNoContent, serve(r, "Bearer bad").Code)
	assert.False(t, attached)

	validator.err = nil
	validator.claims = &models.JWTClaims{}
	assert.Equal(t, http.StatusNoContent, serve(r, "Bearer good").Code)
	assert.True(t, attached)
}

func TestRequireRoles(t *testing.T) {
	validator := &stubValidator{claims: &models.JWTClaims{Role: models.RoleAuthenticated}}
	r := newTestRouter(JWT(validator), RequireRoles(models.RoleAdmin))
	assert.Equal(t, http.StatusForbidden, serve(r, "Bearer t").Code)

	validator.claims = &models.JWTClaims{Role: models.RoleAdmin}
	assert.Equal(t, http.StatusNoContent, serve(r, "Bearer t").Code)

	anonymous := newTestRouter(RequireRoles(models.RoleAdmin))
	assert.Equal(t, http.StatusUnauthorized, serve(anonymous, "").Code)
}

type recordingObserver struct {
	method, path string
	status       int
}

func (o *recordingObserver) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	o.method, o.path, o.status = method, path, status
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	observer := &recordingObserver{}
	r := newTestRouter()
	r.Use(Metrics(observer))
	r.GET("/docs/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/docs/42", nil))
	require.Equal(t, "/docs/:id", observer.path)
	require.Equal(t, http.StatusOK, observer.status)
}

func TestResponseMeta(t *testing.T) {
	var meta map[string]interface{}
	r := newTestRouter(WithResponseMeta(), func(c *gin.Context) {
		SetMeta(c, "total", 3)
		meta = ExtractMeta(c)
	})
	serve(r, "")
	require.Equal(t, 3, meta["total"])
	require.Contains(t, meta, "processing_time_ms")
}
