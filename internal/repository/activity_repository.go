package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/studyvault-api/internal/models"
)

// ActivityRepository stores preview and download events and reads the monthly aggregate.
type ActivityRepository struct {
	db *sqlx.DB
}

// NewActivityRepository constructs the repository.
func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// InsertActivity appends one event.
func (r *ActivityRepository) InsertActivity(ctx context.Context, event *models.ActivityEvent) error {
	const query = `INSERT INTO activity_events (id, user_id, resource_type, resource_id, resource_title, file_type, file_size, action, session_id, user_agent, created_at)
VALUES (:id, :user_id, :resource_type, :resource_id, :resource_title, :file_type, :file_size, :action, :session_id, :user_agent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("insert activity event: %w", err)
	}
	return nil
}

// MonthlyUsage returns bytes consumed by the user in the current month. A user
// without a usage row has consumed nothing.
func (r *ActivityRepository) MonthlyUsage(ctx context.Context, userID string) (int64, error) {
	const query = `SELECT total_bytes FROM monthly_usage WHERE user_id = $1 AND period_start = date_trunc('month', now())`
	var total int64
	if err := r.db.GetContext(ctx, &total, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("read monthly usage: %w", err)
	}
	return total, nil
}

// ListMonthlyActivity returns the user's events of the current month, newest first.
func (r *ActivityRepository) ListMonthlyActivity(ctx context.Context, userID string, actions []models.ActivityAction) ([]models.ActivityEvent, error) {
	values := make([]string, len(actions))
	for i, a := range actions {
		values[i] = string(a)
	}
	const query = `SELECT id, user_id, resource_type, resource_id, resource_title, file_type, file_size, action, session_id, user_agent, created_at
FROM activity_events
WHERE user_id = $1 AND created_at >= date_trunc('month', now()) AND action = ANY($2)
ORDER BY created_at DESC`
	var events []models.ActivityEvent
	if err := r.db.SelectContext(ctx, &events, query, userID, pq.Array(values)); err != nil {
		return nil, fmt.Errorf("list monthly activity: %w", err)
	}
	return events, nil
}
