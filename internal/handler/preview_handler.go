package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/studyvault-api/internal/dto"
	"github.com/noah-isme/studyvault-api/internal/models"
	"github.com/noah-isme/studyvault-api/internal/service"
	appErrors "github.com/noah-isme/studyvault-api/pkg/errors"
	"github.com/noah-isme/studyvault-api/pkg/response"
)

type entryLookup interface {
	Entry(ctx context.Context, kind models.ResourceKind, id string) (models.CatalogEntry, error)
}

type previewService interface {
	Select(ctx context.Context, viewer service.ViewerKey, entry models.CatalogEntry, actor models.Actor) (models.PreviewSession, error)
	MarkVisible(ctx context.Context, viewer service.ViewerKey, sessionID string) (models.PreviewSession, error)
	Get(viewer service.ViewerKey, sessionID string) (models.PreviewSession, error)
	Release(viewer service.ViewerKey)
	Download(ctx context.Context, entry models.CatalogEntry, actor models.Actor) (models.DownloadGrant, error)
}

type quotaReader interface {
	Check(ctx context.Context, userID string, additionalBytes int64) (models.QuotaStatus, error)
}

// PreviewHandler exposes viewer selection, lazy activation, downloads and quota.
type PreviewHandler struct {
	catalog  entryLookup
	previews previewService
	quota    quotaReader
}

// NewPreviewHandler builds a new handler.
func NewPreviewHandler(catalog entryLookup, previews previewService, quota quotaReader) *PreviewHandler {
	return &PreviewHandler{catalog: catalog, previews: previews, quota: quota}
}

// Select godoc
// @Summary Select a document for a viewer pane
// @Description Nothing is resolved until the pane reports visibility.
// @Tags Preview
// @Produce json
// @Param kind path string true "outline or exam"
// @Param id path string true "Document ID"
// @Param pane query string false "Viewer pane"
// @Success 200 {object} response.Envelope
// @Router /catalog/{kind}/{id}/preview [post]
func (h *PreviewHandler) Select(c *gin.Context) {
	entry, actor, ok := h.entryAndActor(c)
	if !ok {
		return
	}
	if _, err := browserSession(c); err != nil {
		response.Error(c, err)
		return
	}
	sess, err := h.previews.Select(c.Request.Context(), viewerKey(c, ""), entry, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, sess)
}

// Visible godoc
// @Summary Report that a viewer pane is visible
// @Description Runs the quota check and resolves the document on first call.
// @Tags Preview
// @Accept json
// @Produce json
// @Param session path string true "Preview session ID"
// @Param payload body dto.PreviewVisibleRequest false "Viewer pane"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 424 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /preview/{session}/visible [post]
func (h *PreviewHandler) Visible(c *gin.Context) {
	var req dto.PreviewVisibleRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid visibility payload"))
			return
		}
	}
	sess, err := h.previews.MarkVisible(c.Request.Context(), viewerKey(c, req.Pane), c.Param("session"))
	if err != nil {
		if sess.ID != "" {
			response.ErrorWithData(c, err, sess)
			return
		}
		response.Error(c, err)
		return
	}
	response.OK(c, sess)
}

// Get godoc
// @Summary Get a preview session
// @Tags Preview
// @Produce json
// @Param session path string true "Preview session ID"
// @Param pane query string false "Viewer pane"
// @Success 200 {object} response.Envelope
// @Router /preview/{session} [get]
func (h *PreviewHandler) Get(c *gin.Context) {
	sess, err := h.previews.Get(viewerKey(c, ""), c.Param("session"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, sess)
}

// Release godoc
// @Summary Close a viewer pane
// @Tags Preview
// @Param pane query string false "Viewer pane"
// @Success 204
// @Router /preview [delete]
func (h *PreviewHandler) Release(c *gin.Context) {
	h.previews.Release(viewerKey(c, ""))
	response.NoContent(c)
}

// Download godoc
// @Summary Issue a download link
// @Tags Preview
// @Produce json
// @Param kind path string true "outline or exam"
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Failure 424 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /catalog/{kind}/{id}/download [post]
func (h *PreviewHandler) Download(c *gin.Context) {
	entry, actor, ok := h.entryAndActor(c)
	if !ok {
		return
	}
	grant, err := h.previews.Download(c.Request.Context(), entry, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, grant)
}

// Quota godoc
// @Summary Current monthly usage
// @Tags Preview
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /quota [get]
func (h *PreviewHandler) Quota(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	status, err := h.quota.Check(c.Request.Context(), actor.UserID, 0)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, status)
}

func (h *PreviewHandler) entryAndActor(c *gin.Context) (models.CatalogEntry, models.Actor, bool) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return models.CatalogEntry{}, models.Actor{}, false
	}
	kind, err := kindParam(c)
	if err != nil {
		response.Error(c, err)
		return models.CatalogEntry{}, models.Actor{}, false
	}
	entry, err := h.catalog.Entry(c.Request.Context(), kind, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return models.CatalogEntry{}, models.Actor{}, false
	}
	return entry, actor, true
}
