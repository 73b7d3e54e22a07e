package models

import "time"

// ActivityAction is the tracked user action.
type ActivityAction string

const (
	ActivityPreview  ActivityAction = "preview"
	ActivityDownload ActivityAction = "download"
)

// ActivityEvent is one usage row; monthly quota usage is aggregated from these.
type ActivityEvent struct {
	ID            string         `db:"id" json:"id"`
	UserID        string         `db:"user_id" json:"userId"`
	ResourceType  ResourceKind   `db:"resource_type" json:"resourceType"`
	ResourceID    string         `db:"resource_id" json:"resourceId"`
	ResourceTitle string         `db:"resource_title" json:"resourceTitle"`
	FileType      FileType       `db:"file_type" json:"fileType"`
	FileSize      int64          `db:"file_size" json:"fileSize"`
	Action        ActivityAction `db:"action" json:"action"`
	SessionID     string         `db:"session_id" json:"sessionId"`
	UserAgent     string         `db:"user_agent" json:"userAgent"`
	CreatedAt     time.Time      `db:"created_at" json:"createdAt"`
}

// Actor identifies the caller of a tracked operation.
type Actor struct {
	UserID    string
	SessionID string
	UserAgent string
}
