package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/studyvault-api/internal/dto"
	"github.com/noah-isme/studyvault-api/internal/models"
	appErrors "github.com/noah-isme/studyvault-api/pkg/errors"
	"github.com/noah-isme/studyvault-api/pkg/response"
)

type uploadService interface {
	Upload(ctx context.Context, kind models.ResourceKind, req dto.UploadDocumentRequest, uploaderID string) (*dto.UploadDocumentResponse, error)
}

// UploadHandler accepts new outlines and exams.
type UploadHandler struct {
	service uploadService
}

// NewUploadHandler builds a new handler.
func NewUploadHandler(service uploadService) *UploadHandler {
	return &UploadHandler{service: service}
}

// Upload godoc
// @Summary Upload an outline or exam
// @Tags Uploads
// @Accept multipart/form-data
// @Produce json
// @Param kind path string true "outline or exam"
// @Param file formData file true "PDF or Word document"
// @Param title formData string true "Title"
// @Param course formData string true "Course"
// @Param instructor formData string true "Instructor"
// @Param year formData string true "Four digit year"
// @Param grade formData string true "DS, H or P"
// @Param page_count formData int false "Page count"
// @Param terms_accepted formData bool true "Upload terms accepted"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /uploads/{kind} [post]
func (h *UploadHandler) Upload(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	kind, err := kindParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.UploadDocumentRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid upload form"))
		return
	}

	header, err := c.FormFile("file")
	if err != nil && !errors.Is(err, http.ErrMissingFile) {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid upload form"))
		return
	}
	if header != nil {
		file, err := header.Open()
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read uploaded file"))
			return
		}
		defer file.Close()
		req.File = file
		req.FileName = header.Filename
		req.FileSize = header.Size
		req.ContentType = header.Header.Get("Content-Type")
	}

	resp, err := h.service.Upload(c.Request.Context(), kind, req, claims.UserID())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, resp)
}
