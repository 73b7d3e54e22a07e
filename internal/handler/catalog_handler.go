package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/studyvault-api/internal/dto"
	"github.com/noah-isme/studyvault-api/internal/middleware"
	"github.com/noah-isme/studyvault-api/internal/models"
	appErrors "github.com/noah-isme/studyvault-api/pkg/errors"
	"github.com/noah-isme/studyvault-api/pkg/response"
)

type viewStateService interface {
	Filters(ctx context.Context, sessionID string, kind models.ResourceKind) (models.FilterSelection, models.FilterOptions, error)
	ApplyFilter(ctx context.Context, sessionID string, kind models.ResourceKind, action models.FilterAction) (models.FilterSelection, models.FilterOptions, error)
	ResetFilters(ctx context.Context, sessionID string, kind models.ResourceKind) error
	Search(ctx context.Context, sessionID string, kind models.ResourceKind, sortKey models.SortKey) (models.SearchResult, error)
	Saved(ctx context.Context, sessionID string, kind models.ResourceKind) (models.SearchResult, error)
	ToggleSaved(ctx context.Context, sessionID string, kind models.ResourceKind, id string) (bool, error)
	ToggleHidden(ctx context.Context, sessionID string, kind models.ResourceKind, id string) (bool, error)
}

type catalogVoter interface {
	Vote(ctx context.Context, kind models.ResourceKind, id, userID string, value int) (float64, error)
	Invalidate(ctx context.Context, kind models.ResourceKind)
}

// FilterStateResponse pairs the stored selection with the options it leaves open.
type FilterStateResponse struct {
	Selection models.FilterSelection `json:"selection"`
	Options   models.FilterOptions   `json:"options"`
}

// CatalogHandler exposes discovery endpoints for outlines and exams.
type CatalogHandler struct {
	views   viewStateService
	catalog catalogVoter
}

// NewCatalogHandler builds a new handler.
func NewCatalogHandler(views viewStateService, catalog catalogVoter) *CatalogHandler {
	return &CatalogHandler{views: views, catalog: catalog}
}

// Options godoc
// @Summary List selectable filter values
// @Tags Catalog
// @Produce json
// @Param kind path string true "outline or exam"
// @Success 200 {object} response.Envelope
// @Router /catalog/{kind}/options [get]
func (h *CatalogHandler) Options(c *gin.Context) {
	kind, sessionID, ok := h.scope(c)
	if !ok {
		return
	}
	_, options, err := h.views.Filters(c.Request.Context(), sessionID, kind)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, options)
}

// Search godoc
// @Summary Search documents with the stored filters
// @Tags Catalog
// @Produce json
// @Param kind path string true "outline or exam"
// @Param sort query string false "title, newest or rating"
// @Success 200 {object} response.Envelope
// @Router /catalog/{kind}/search [get]
func (h *CatalogHandler) Search(c *gin.Context) {
	kind, sessionID, ok := h.scope(c)
	if !ok {
		return
	}
	result, err := h.views.Search(c.Request.Context(), sessionID, kind, models.ParseSortKey(c.Query("sort")))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "total", result.Total)
	response.OK(c, result, middleware.ExtractMeta(c))
}

// GetFilters godoc
// @Summary Get the stored filter selection
// @Tags Views
// @Produce json
// @Param kind path string true "outline or exam"
// @Success 200 {object} response.Envelope
// @Router /views/{kind}/filters [get]
func (h *CatalogHandler) GetFilters(c *gin.Context) {
	kind, sessionID, ok := h.scope(c)
	if !ok {
		return
	}
	selection, options, err := h.views.Filters(c.Request.Context(), sessionID, kind)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, FilterStateResponse{Selection: selection, Options: options})
}

// ApplyFilter godoc
// @Summary Apply one filter transition
// @Tags Views
// @Accept json
// @Produce json
// @Param kind path string true "outline or exam"
// @Param payload body models.FilterAction true "Filter action"
// @Success 200 {object} response.Envelope
// @Router /views/{kind}/filters [post]
func (h *CatalogHandler) ApplyFilter(c *gin.Context) {
	kind, sessionID, ok := h.scope(c)
	if !ok {
		return
	}
	var action models.FilterAction
	if err := c.ShouldBindJSON(&action); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid filter payload"))
		return
	}
	selection, options, err := h.views.ApplyFilter(c.Request.Context(), sessionID, kind, action)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, FilterStateResponse{Selection: selection, Options: options})
}

// ResetFilters godoc
// @Summary Restore the default filters
// @Tags Views
// @Param kind path string true "outline or exam"
// @Success 204
// @Router /views/{kind}/filters [delete]
func (h *CatalogHandler) ResetFilters(c *gin.Context) {
	kind, sessionID, ok := h.scope(c)
	if !ok {
		return
	}
	if err := h.views.ResetFilters(c.Request.Context(), sessionID, kind); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Saved godoc
// @Summary List saved documents grouped by course
// @Tags Views
// @Produce json
// @Param kind path string true "outline or exam"
// @Success 200 {object} response.Envelope
// @Router /saved/{kind} [get]
func (h *CatalogHandler) Saved(c *gin.Context) {
	kind, sessionID, ok := h.scope(c)
	if !ok {
		return
	}
	result, err := h.views.Saved(c.Request.Context(), sessionID, kind)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// ToggleSaved godoc
// @Summary Save or unsave a document
// @Tags Views
// @Produce json
// @Param kind path string true "outline or exam"
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Router /saved/{kind}/{id}/toggle [post]
func (h *CatalogHandler) ToggleSaved(c *gin.Context) {
	h.toggle(c, h.views.ToggleSaved)
}

// ToggleHidden godoc
// @Summary Hide or unhide a document
// @Tags Views
// @Produce json
// @Param kind path string true "outline or exam"
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Router /hidden/{kind}/{id}/toggle [post]
func (h *CatalogHandler) ToggleHidden(c *gin.Context) {
	h.toggle(c, h.views.ToggleHidden)
}

// Vote godoc
// @Summary Vote a document up or down
// @Tags Catalog
// @Accept json
// @Produce json
// @Param kind path string true "outline or exam"
// @Param id path string true "Document ID"
// @Param payload body dto.VoteRequest true "Vote"
// @Success 200 {object} response.Envelope
// @Router /catalog/{kind}/{id}/votes [post]
func (h *CatalogHandler) Vote(c *gin.Context) {
	kind, err := kindParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid vote payload"))
		return
	}
	id := c.Param("id")
	score, err := h.catalog.Vote(c.Request.Context(), kind, id, claims.UserID(), req.Value)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.VoteResponse{ID: id, Score: score})
}

// InvalidateCache godoc
// @Summary Drop the cached catalog snapshot
// @Tags Admin
// @Param kind path string true "outline or exam"
// @Success 204
// @Router /admin/catalog/{kind}/cache [delete]
func (h *CatalogHandler) InvalidateCache(c *gin.Context) {
	kind, err := kindParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.catalog.Invalidate(c.Request.Context(), kind)
	response.NoContent(c)
}

func (h *CatalogHandler) toggle(c *gin.Context, fn func(ctx context.Context, sessionID string, kind models.ResourceKind, id string) (bool, error)) {
	kind, sessionID, ok := h.scope(c)
	if !ok {
		return
	}
	id := c.Param("id")
	member, err := fn(c.Request.Context(), sessionID, kind, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.ToggleResponse{ID: id, Member: member})
}

func (h *CatalogHandler) scope(c *gin.Context) (models.ResourceKind, string, bool) {
	kind, err := kindParam(c)
	if err != nil {
		response.Error(c, err)
		return "", "", false
	}
	sessionID, err := browserSession(c)
	if err != nil {
		response.Error(c, err)
		return "", "", false
	}
	return kind, sessionID, true
}
