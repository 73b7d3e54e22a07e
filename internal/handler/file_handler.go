package handler

import (
	"errors"
	"net/http"
	"os"
	"path"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/studyvault-api/pkg/errors"
	"github.com/noah-isme/studyvault-api/pkg/response"
	"github.com/noah-isme/studyvault-api/pkg/storage"
)

type signedFileOpener interface {
	OpenSigned(token string) (*os.File, string, error)
}

// FileHandler streams objects of the local storage backend behind signed tokens.
type FileHandler struct {
	store signedFileOpener
}

// NewFileHandler builds a new handler.
func NewFileHandler(store signedFileOpener) *FileHandler {
	return &FileHandler{store: store}
}

// Serve godoc
// @Summary Download a stored document through a signed token
// @Tags Files
// @Produce application/octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Router /files/{token} [get]
func (h *FileHandler) Serve(c *gin.Context) {
	file, key, err := h.store.OpenSigned(c.Param("token"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "file not found"))
			return
		}
		response.Error(c, appErrors.Wrap(err, appErrors.ErrForbidden.Code, http.StatusForbidden, "invalid or expired link"))
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read file"))
		return
	}
	c.Header("Content-Disposition", "inline; filename=\""+path.Base(key)+"\"")
	http.ServeContent(c.Writer, c.Request, path.Base(key), info.ModTime(), file)
}
