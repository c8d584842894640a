//go:build integration

package queue_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"

	"github.com/skillforge/skillforge/internal/domain"
	"github.com/skillforge/skillforge/internal/queue"
)

// setupRabbitMQ creates a RabbitMQ container for testing
func setupRabbitMQ(t *testing.T) (string, func()) {
	ctx := context.Background()

	container, err := rabbitmq.Run(ctx, "rabbitmq:3.12-management")
	if err != nil {
		t.Fatalf("failed to start RabbitMQ container: %v", err)
	}

	amqpURL, err := container.AmqpURL(ctx)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("failed to get AMQP URL: %v", err)
	}

	cleanup := func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return amqpURL, cleanup
}

func TestIntegration_Connection_ConnectAndClose(t *testing.T) {
	amqpURL, cleanup := setupRabbitMQ(t)
	defer cleanup()

	conn, err := queue.NewConnection(amqpURL)
	if err != nil {
		t.Fatalf("failed to create connection: %v", err)
	}

	if !conn.IsConnected() {
		t.Error("expected connection to be active")
	}

	if err := conn.Close(); err != nil {
		t.Errorf("failed to close connection: %v", err)
	}
}

func TestIntegration_Connection_InvalidURL(t *testing.T) {
	_, err := queue.NewConnection("amqp://invalid:5672")
	if err == nil {
		t.Error("expected error for invalid URL")
	}
}

func TestIntegration_Producer_PublishSubmission(t *testing.T) {
	amqpURL, cleanup := setupRabbitMQ(t)
	defer cleanup()

	conn, err := queue.NewConnection(amqpURL)
	if err != nil {
		t.Fatalf("failed to create connection: %v", err)
	}
	defer conn.Close()

	producer := queue.NewProducer(conn)

	sub := &queue.ScoredSubmission{
		UserID:    uuid.New(),
		MissionID: "go-v1/basics/loops",
		Language:  "go",
		Attempts:  1,
		TimeSpent: 120,
		Feedback: &domain.AnalysisResult{
			Success:        true,
			Score:          90,
			StrongConcepts: []string{"loops"},
		},
	}

	ctx := context.Background()

	if err := producer.PublishSubmission(ctx, sub); err != nil {
		t.Fatalf("failed to publish submission: %v", err)
	}
	if sub.ID == uuid.Nil {
		t.Error("expected submission ID to be generated")
	}

	ch := conn.Channel()
	q, err := ch.QueueInspect(queue.SubmissionQueueName)
	if err != nil {
		t.Fatalf("failed to inspect queue: %v", err)
	}

	if q.Messages != 1 {
		t.Errorf("expected 1 message in queue, got %d", q.Messages)
	}
}

func TestIntegration_Producer_PublishSubmissionCompleted(t *testing.T) {
	amqpURL, cleanup := setupRabbitMQ(t)
	defer cleanup()

	conn, err := queue.NewConnection(amqpURL)
	if err != nil {
		t.Fatalf("failed to create connection: %v", err)
	}
	defer conn.Close()

	producer := queue.NewProducer(conn)
	event := domain.NewSubmissionCompletedEvent(
		uuid.New(), "go-v1/basics/loops", uuid.New(), 90, true,
		[]string{"loops"}, nil, domain.DifficultyEasy,
		domain.AnalysisResult{Success: true, Score: 90},
	)

	if err := producer.PublishSubmissionCompleted(context.Background(), event); err != nil {
		t.Fatalf("failed to publish event: %v", err)
	}

	ch := conn.Channel()
	q, err := ch.QueueInspect(queue.EventQueueName)
	if err != nil {
		t.Fatalf("failed to inspect queue: %v", err)
	}

	if q.Messages != 1 {
		t.Errorf("expected 1 event in queue, got %d", q.Messages)
	}
}

func TestIntegration_Consumer_ProcessSubmissions(t *testing.T) {
	amqpURL, cleanup := setupRabbitMQ(t)
	defer cleanup()

	conn, err := queue.NewConnection(amqpURL)
	if err != nil {
		t.Fatalf("failed to create connection: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var received []*queue.ScoredSubmission
	var mu sync.Mutex
	receivedCh := make(chan struct{}, 5)

	handler := func(ctx context.Context, sub *queue.ScoredSubmission) error {
		mu.Lock()
		received = append(received, sub)
		mu.Unlock()

		receivedCh <- struct{}{}
		return nil
	}

	consumer := queue.NewConsumer(conn, handler, queue.ConsumerConfig{
		Workers:  2,
		Prefetch: 1,
	})

	if err := consumer.Start(ctx); err != nil {
		t.Fatalf("failed to start consumer: %v", err)
	}
	defer consumer.Stop()

	producer := queue.NewProducer(conn)
	subCount := 3
	for i := 0; i < subCount; i++ {
		sub := &queue.ScoredSubmission{
			UserID:    uuid.New(),
			MissionID: "go-v1/basics/loops",
			Feedback:  &domain.AnalysisResult{Success: true, Score: 80},
		}
		if err := producer.PublishSubmission(ctx, sub); err != nil {
			t.Fatalf("failed to publish submission %d: %v", i, err)
		}
	}

	for i := 0; i < subCount; i++ {
		select {
		case <-receivedCh:
		case <-ctx.Done():
			t.Fatalf("timeout waiting for submission %d", i)
		}
	}

	mu.Lock()
	if len(received) != subCount {
		t.Errorf("expected %d submissions, got %d", subCount, len(received))
	}
	mu.Unlock()
}

func TestIntegration_Consumer_HandlerErrorDeadLetters(t *testing.T) {
	amqpURL, cleanup := setupRabbitMQ(t)
	defer cleanup()

	conn, err := queue.NewConnection(amqpURL)
	if err != nil {
		t.Fatalf("failed to create connection: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	processedCh := make(chan struct{}, 1)
	handler := func(ctx context.Context, sub *queue.ScoredSubmission) error {
		processedCh <- struct{}{}
		return errors.New("mastery update failed")
	}

	consumer := queue.NewConsumer(conn, handler, queue.DefaultConsumerConfig())
	if err := consumer.Start(ctx); err != nil {
		t.Fatalf("failed to start consumer: %v", err)
	}
	defer consumer.Stop()

	producer := queue.NewProducer(conn)
	sub := &queue.ScoredSubmission{
		UserID:    uuid.New(),
		MissionID: "go-v1/basics/loops",
		Feedback:  &domain.AnalysisResult{Success: true, Score: 80},
	}
	if err := producer.PublishSubmission(ctx, sub); err != nil {
		t.Fatalf("failed to publish submission: %v", err)
	}

	select {
	case <-processedCh:
	case <-ctx.Done():
		t.Fatal("timeout waiting for submission processing")
	}

	// Nacked without requeue: the queue must drain, not loop.
	time.Sleep(200 * time.Millisecond)
	ch := conn.Channel()
	q, err := ch.QueueInspect(queue.SubmissionQueueName)
	if err != nil {
		t.Fatalf("failed to inspect queue: %v", err)
	}
	if q.Messages != 0 {
		t.Errorf("expected 0 messages after dead-letter, got %d", q.Messages)
	}
}
