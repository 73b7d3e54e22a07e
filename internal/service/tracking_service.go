package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/studyvault-api/internal/models"
	"github.com/noah-isme/studyvault-api/pkg/jobs"
)

const trackingJobType = "activity_event"

type activityWriter interface {
	InsertActivity(ctx context.Context, event *models.ActivityEvent) error
}

type trackingMetrics interface {
	RecordTrackingEvent(outcome string)
}

type eventQueue interface {
	TryEnqueue(job jobs.Job) error
}

// TrackingService records preview and download activity off the request path.
// Notify never blocks and never surfaces an error; a full buffer drops the event.
type TrackingService struct {
	repo    activityWriter
	queue   eventQueue
	metrics trackingMetrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewTrackingService constructs the tracker. Attach a queue with UseQueue; until
// then events are dropped.
func NewTrackingService(repo activityWriter, metrics trackingMetrics, logger *zap.Logger) *TrackingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrackingService{repo: repo, metrics: metrics, logger: logger, now: time.Now}
}

// UseQueue wires the worker queue that drains events.
func (s *TrackingService) UseQueue(queue eventQueue) {
	s.queue = queue
}

// Notify hands the event to the background workers.
func (s *TrackingService) Notify(event models.ActivityEvent) {
	if s == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.now().UTC()
	}
	if s.queue == nil {
		s.record("dropped")
		s.logger.Warn("activity tracking queue not configured", zap.String("resource_id", event.ResourceID))
		return
	}

	err := s.queue.TryEnqueue(jobs.Job{ID: event.ID, Type: trackingJobType, Payload: event})
	if err != nil {
		s.record("dropped")
		if errors.Is(err, jobs.ErrQueueFull) {
			s.logger.Warn("activity tracking buffer full, event dropped", zap.String("resource_id", event.ResourceID))
			return
		}
		s.logger.Warn("activity tracking enqueue failed", zap.String("resource_id", event.ResourceID), zap.Error(err))
		return
	}
	s.record("queued")
}

// Handle is the queue handler persisting one event.
func (s *TrackingService) Handle(ctx context.Context, job jobs.Job) error {
	event, ok := job.Payload.(models.ActivityEvent)
	if !ok {
		s.record("failed")
		return fmt.Errorf("unexpected tracking payload %T", job.Payload)
	}
	if err := s.repo.InsertActivity(ctx, &event); err != nil {
		s.record("failed")
		return fmt.Errorf("insert activity %s: %w", event.ID, err)
	}
	s.record("stored")
	return nil
}

func (s *TrackingService) record(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordTrackingEvent(outcome)
	}
}
