package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/noah-isme/studyvault-api/internal/dto"
	"github.com/noah-isme/studyvault-api/internal/models"
	"github.com/noah-isme/studyvault-api/internal/repository"
	appErrors "github.com/noah-isme/studyvault-api/pkg/errors"
)

type reviewStore interface {
	Create(ctx context.Context, review *models.ProfessorReview) error
	ListByProfessor(ctx context.Context, professor string) ([]models.ProfessorReview, error)
}

// ReviewService manages professor reviews. Comments are stripped of all markup.
type ReviewService struct {
	repo      reviewStore
	validator *validator.Validate
	policy    *bluemonday.Policy
	logger    *zap.Logger
	now       func() time.Time
}

// NewReviewService constructs the service.
func NewReviewService(repo reviewStore, validate *validator.Validate, logger *zap.Logger) *ReviewService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ReviewService{repo: repo, validator: validate, policy: bluemonday.StrictPolicy(), logger: logger, now: time.Now}
}

// Create stores a review by userID. A second review of the same professor and course is a conflict.
func (s *ReviewService) Create(ctx context.Context, professor string, req dto.CreateReviewRequest, userID string) (*models.ProfessorReview, error) {
	professor = strings.TrimSpace(professor)
	if professor == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "professor is required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}

	review := &models.ProfessorReview{
		ID:         uuid.NewString(),
		Professor:  professor,
		Course:     strings.TrimSpace(req.Course),
		UserID:     userID,
		Rating:     req.Rating,
		Difficulty: req.Difficulty,
		Comment:    strings.TrimSpace(s.policy.Sanitize(req.Comment)),
		CreatedAt:  s.now().UTC(),
	}
	if err := s.repo.Create(ctx, review); err != nil {
		if errors.Is(err, repository.ErrDuplicateReview) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "you have already reviewed this professor for this course")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save review")
	}
	return review, nil
}

// Summary lists a professor's reviews with rounded averages.
func (s *ReviewService) Summary(ctx context.Context, professor string) (*models.ReviewSummary, error) {
	reviews, err := s.repo.ListByProfessor(ctx, strings.TrimSpace(professor))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reviews")
	}
	if reviews == nil {
		reviews = []models.ProfessorReview{}
	}

	summary := &models.ReviewSummary{Professor: professor, Count: len(reviews), Reviews: reviews}
	if len(reviews) == 0 {
		return summary, nil
	}
	var rating, difficulty int
	for _, r := range reviews {
		rating += r.Rating
		difficulty += r.Difficulty
	}
	summary.AverageRating = round1(float64(rating) / float64(len(reviews)))
	summary.AverageDifficulty = round1(float64(difficulty) / float64(len(reviews)))
	return summary, nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
