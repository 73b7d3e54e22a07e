package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/studyvault-api/internal/service"
	appErrors "github.com/noah-isme/studyvault-api/pkg/errors"
	"github.com/noah-isme/studyvault-api/pkg/response"
)

type activityExporter interface {
	Export(ctx context.Context, userID, format string) (*service.ActivityExport, error)
}

// ActivityHandler serves the caller's usage history.
type ActivityHandler struct {
	exporter activityExporter
}

// NewActivityHandler builds a new handler.
func NewActivityHandler(exporter activityExporter) *ActivityHandler {
	return &ActivityHandler{exporter: exporter}
}

// Export godoc
// @Summary Export this month's previews and downloads
// @Tags Activity
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /me/activity/export [get]
func (h *ActivityHandler) Export(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	out, err := h.exporter.Export(c.Request.Context(), claims.UserID(), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", out.FileName))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, out.ContentType, out.Content)
}
