package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/studyvault-api/internal/dto"
	"github.com/noah-isme/studyvault-api/internal/models"
	appErrors "github.com/noah-isme/studyvault-api/pkg/errors"
	"github.com/noah-isme/studyvault-api/pkg/response"
)

type reviewService interface {
	Create(ctx context.Context, professor string, req dto.CreateReviewRequest, userID string) (*models.ProfessorReview, error)
	Summary(ctx context.Context, professor string) (*models.ReviewSummary, error)
}

// ReviewHandler exposes professor reviews.
type ReviewHandler struct {
	service reviewService
}

// NewReviewHandler builds a new handler.
func NewReviewHandler(service reviewService) *ReviewHandler {
	return &ReviewHandler{service: service}
}

// List godoc
// @Summary List reviews of a professor
// @Tags Reviews
// @Produce json
// @Param professor path string true "Professor name"
// @Success 200 {object} response.Envelope
// @Router /professors/{professor}/reviews [get]
func (h *ReviewHandler) List(c *gin.Context) {
	summary, err := h.service.Summary(c.Request.Context(), c.Param("professor"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, summary)
}

// Create godoc
// @Summary Review a professor
// @Tags Reviews
// @Accept json
// @Produce json
// @Param professor path string true "Professor name"
// @Param payload body dto.CreateReviewRequest true "Review"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /professors/{professor}/reviews [post]
func (h *ReviewHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid review payload"))
		return
	}
	review, err := h.service.Create(c.Request.Context(), c.Param("professor"), req, claims.UserID())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, review)
}
