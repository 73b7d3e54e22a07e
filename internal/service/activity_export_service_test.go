package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studyvault-api/internal/models"
	appErrors "github.com/noah-isme/studyvault-api/pkg/errors"
)

type stubActivityLister struct {
	events  []models.ActivityEvent
	err     error
	actions []models.ActivityAction
}

func (s *stubActivityLister) ListMonthlyActivity(ctx context.Context, userID string, actions []models.ActivityAction) ([]models.ActivityEvent, error) {
	s.actions = actions
	return s.events, s.err
}

func newActivityExportForTest(lister *stubActivityLister) *ActivityExportService {
	svc := NewActivityExportService(lister, nil, nil, nil)
	svc.now = func() time.Time { return time.Date(2026, time.October, 15, 9, 0, 0, 0, time.UTC) }
	return svc
}

func TestActivityExportCSV(t *testing.T) {
	lister := &stubActivityLister{events: []models.ActivityEvent{
		{ResourceTitle: "Contracts Outline", ResourceType: models.KindOutline, FileType: models.FileTypePDF, FileSize: 2_000_000, Action: models.ActivityDownload, CreatedAt: time.Date(2026, time.October, 3, 12, 30, 0, 0, time.UTC)},
		{ResourceTitle: "Torts Exam", ResourceType: models.KindExam, FileType: models.FileTypeDocx, FileSize: 512 * 1024, Action: models.ActivityPreview, CreatedAt: time.Date(2026, time.October, 2, 8, 0, 0, 0, time.UTC)},
	}}
	out, err := newActivityExportForTest(lister).Export(context.Background(), "user-1", "")
	require.NoError(t, err)
	require.Equal(t, "activity-2026-10.csv", out.FileName)
	require.True(t, strings.HasPrefix(out.ContentType, "text/csv"))

	lines := strings.Split(strings.TrimSpace(string(out.Content)), "\n")
	require.Len(t, lines, 3)
	require.Equal(t, "Date,Action,Kind,Title,Type,Size", lines[0])
	require.Equal(t, "2026-10-03 12:30,download,outline,Contracts Outline,PDF,2.00 MB", lines[1])
	require.Equal(t, []models.ActivityAction{models.ActivityPreview, models.ActivityDownload}, lister.actions)
}

func TestActivityExportPDF(t *testing.T) {
	out, err := newActivityExportForTest(&stubActivityLister{}).Export(context.Background(), "user-1", "PDF")
	require.NoError(t, err)
	require.Equal(t, "application/pdf", out.ContentType)
	require.Equal(t, "activity-2026-10.pdf", out.FileName)
	require.True(t, strings.HasPrefix(string(out.Content), "%PDF-"))
}

func TestActivityExportErrors(t *testing.T) {
	svc := newActivityExportForTest(&stubActivityLister{})
	_, err := svc.Export(context.Background(), "user-1", "xlsx")
	require.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.Export(context.Background(), "", "csv")
	require.True(t, errors.Is(err, appErrors.ErrUnauthorized))

	failing := newActivityExportForTest(&stubActivityLister{err: errors.New("db down")})
	_, err = failing.Export(context.Background(), "user-1", "csv")
	require.True(t, errors.Is(err, appErrors.ErrInternal))
}
