package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/skillforge/skillforge/internal/domain"
)

// Producer publishes submissions and events to the broker.
type Producer struct {
	conn *Connection
}

// NewProducer creates a new queue producer
func NewProducer(conn *Connection) *Producer {
	return &Producer{conn: conn}
}

// PublishSubmission enqueues a scored submission for processing.
func (p *Producer) PublishSubmission(ctx context.Context, sub *ScoredSubmission) error {
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	if sub.SubmittedAt.IsZero() {
		sub.SubmittedAt = time.Now()
	}

	if err := p.conn.PublishJSON(ctx, SubmissionQueueName, sub); err != nil {
		return fmt.Errorf("failed to publish submission: %w", err)
	}

	slog.Info("published submission",
		"submission_id", sub.ID,
		"user_id", sub.UserID,
		"mission_id", sub.MissionID,
	)

	return nil
}

// PublishSubmissionCompleted publishes the completed-submission event for
// external listeners. It satisfies the orchestrator's publisher
// collaborator.
func (p *Producer) PublishSubmissionCompleted(ctx context.Context, event domain.SubmissionCompletedEvent) error {
	if err := p.conn.PublishJSON(ctx, EventQueueName, event); err != nil {
		return fmt.Errorf("failed to publish submission.completed: %w", err)
	}

	slog.Info("published submission.completed",
		"submission_id", event.SubmissionID,
		"user_id", event.UserID,
		"mission_id", event.MissionID,
		"score", event.Score,
	)

	return nil
}
