package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/studyvault-api/internal/models"
)

// ErrDuplicateReview is returned when a user already reviewed the professor for the course.
var ErrDuplicateReview = errors.New("duplicate professor review")

const uniqueViolation = "23505"

// ReviewRepository persists professor reviews.
type ReviewRepository struct {
	db *sqlx.DB
}

// NewReviewRepository constructs the repository.
func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Create inserts a review. The (user_id, professor, course) unique index maps to ErrDuplicateReview.
func (r *ReviewRepository) Create(ctx context.Context, review *models.ProfessorReview) error {
	const query = `INSERT INTO professor_reviews (id, professor, course, user_id, rating, difficulty, comment, created_at)
VALUES (:id, :professor, :course, :user_id, :rating, :difficulty, :comment, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, review); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return ErrDuplicateReview
		}
		return fmt.Errorf("insert professor review: %w", err)
	}
	return nil
}

// ListByProfessor returns reviews newest first.
func (r *ReviewRepository) ListByProfessor(ctx context.Context, professor string) ([]models.ProfessorReview, error) {
	const query = `SELECT id, professor, course, user_id, rating, difficulty, comment, created_at
FROM professor_reviews WHERE professor = $1 ORDER BY created_at DESC`
	var reviews []models.ProfessorReview
	if err := r.db.SelectContext(ctx, &reviews, query, professor); err != nil {
		return nil, fmt.Errorf("list professor reviews: %w", err)
	}
	return reviews, nil
}
