package handler

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studyvault-api/pkg/storage"
)

type fileOpenerMock struct {
	path string
	key  string
	err  error
}

func (m *fileOpenerMock) OpenSigned(token string) (*os.File, string, error) {
	if m.err != nil {
		return nil, "", m.err
	}
	f, err := os.Open(m.path)
	return f, m.key, err
}

func TestFileHandlerServe(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "contracts.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o600))

	handler := NewFileHandler(&fileOpenerMock{path: path, key: "outline/contracts/contracts.pdf"})
	c, w := newTestContext(http.MethodGet, "/files/token", nil, gin.Params{{Key: "token", Value: "token"}})
	handler.Serve(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "%PDF-1.4", w.Body.String())
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
}

func TestFileHandlerErrors(t *testing.T) {
	handler := NewFileHandler(&fileOpenerMock{err: storage.ErrNotFound})
	c, w := newTestContext(http.MethodGet, "/files/token", nil, gin.Params{{Key: "token", Value: "token"}})
	handler.Serve(c)
	require.Equal(t, http.StatusNotFound, w.Code)

	handler = NewFileHandler(&fileOpenerMock{err: errors.New("signature mismatch")})
	c, w = newTestContext(http.MethodGet, "/files/token", nil, gin.Params{{Key: "token", Value: "token"}})
	handler.Serve(c)
	require.Equal(t, http.StatusForbidden, w.Code)
}
