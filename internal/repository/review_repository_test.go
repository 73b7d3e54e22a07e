package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studyvault-api/internal/models"
)

func TestReviewRepositoryCreateMapsDuplicate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReviewRepository(db)

	review := &models.ProfessorReview{ID: "r1", Professor: "Jane Doe", Course: "Contracts", UserID: "u1", Rating: 5, Difficulty: 3, Comment: "clear", CreatedAt: time.Now()}

	mock.ExpectExec("INSERT INTO professor_reviews").WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, repo.Create(context.Background(), review))

	mock.ExpectExec("INSERT INTO professor_reviews").WillReturnError(&pq.Error{Code: "23505"})
	require.ErrorIs(t, repo.Create(context.Background(), review), ErrDuplicateReview)
}

func TestReviewRepositoryListByProfessor(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	rows := sqlmock.NewRows([]string{"id", "professor", "course", "user_id", "rating", "difficulty", "comment", "created_at"}).
		AddRow("r1", "Jane Doe", "Contracts", "u1", 4, 2, "fair", time.Now()).
		AddRow("r2", "Jane Doe", "Torts", "u2", 2, 5, "hard", time.Now())
	mock.ExpectQuery("FROM professor_reviews WHERE professor = \\$1").
		WithArgs("Jane Doe").
		WillReturnRows(rows)

	reviews, err := NewReviewRepository(db).ListByProfessor(context.Background(), "Jane Doe")
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	assert.Equal(t, 5, reviews[1].Difficulty)
}
