package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studyvault-api/internal/models"
)

func TestActivityRepositoryMonthlyUsage(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewActivityRepository(db)

	query := regexp.QuoteMeta("SELECT total_bytes FROM monthly_usage WHERE user_id = $1 AND period_start = date_trunc('month', now())")
	mock.ExpectQuery(query).WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"total_bytes"}).AddRow(int64(1234)))
	mock.ExpectQuery(query).WithArgs("u2").WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(query).WithArgs("u3").WillReturnError(errors.New("connection reset"))

	total, err := repo.MonthlyUsage(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1234), total)

	total, err = repo.MonthlyUsage(context.Background(), "u2")
	require.NoError(t, err)
	assert.Zero(t, total)

	_, err = repo.MonthlyUsage(context.Background(), "u3")
	require.Error(t, err)
}

func TestActivityRepositoryInsertActivity(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO activity_events")).
		WithArgs("e1", "u1", "outline", "o1", "Contracts A", "pdf", int64(2048), "preview", "s1", "ua", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	event := &models.ActivityEvent{
		ID: "e1", UserID: "u1", ResourceType: models.KindOutline, ResourceID: "o1", ResourceTitle: "Contracts A",
		FileType: models.FileTypePDF, FileSize: 2048, Action: models.ActivityPreview, SessionID: "s1", UserAgent: "ua",
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, NewActivityRepository(db).InsertActivity(context.Background(), event))
}

func TestActivityRepositoryListMonthlyActivity(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	rows := sqlmock.NewRows([]string{"id", "user_id", "resource_type", "resource_id", "resource_title", "file_type", "file_size", "action", "session_id", "user_agent", "created_at"}).
		AddRow("e1", "u1", "exam", "x1", "Torts Exam", "pdf", 100, "download", "s1", "ua", time.Now())
	mock.ExpectQuery("FROM activity_events").
		WithArgs("u1", sqlmock.AnyArg()).
		WillReturnRows(rows)

	events, err := NewActivityRepository(db).ListMonthlyActivity(context.Background(), "u1", []models.ActivityAction{models.ActivityPreview, models.ActivityDownload})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.ActivityDownload, events[0].Action)
	assert.Equal(t, models.KindExam, events[0].ResourceType)
}
