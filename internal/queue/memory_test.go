package queue

import (
	"context"
	"testing"
)

func TestMemoryQueueDequeueOrdersByPriority(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()

	low := NewJob(JobTypeAnalyze, map[string]interface{}{"job_id": "low"})
	low.Priority = PriorityLow
	high := NewJob(JobTypeAnalyze, map[string]interface{}{"job_id": "high"})
	high.Priority = PriorityHigh

	if err := q.Enqueue(ctx, low); err != nil {
		t.Fatalf("Enqueue low: %v", err)
	}
	if err := q.Enqueue(ctx, high); err != nil {
		t.Fatalf("Enqueue high: %v", err)
	}

	first, err := q.Dequeue(ctx)
	if err != nil {
		t.Fatalf("Dequeue: %v", err)
	}
	if first.Payload["job_id"] != "high" {
		t.Fatalf("expected the high-priority job first, got %v", first.Payload["job_id"])
	}
}

func TestMemoryQueueGetDepth(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()

	q.Enqueue(ctx, NewJob(JobTypeAnalyze, nil))
	q.Enqueue(ctx, NewJob(JobTypeAnalyze, nil))

	depth, err := q.GetDepth(ctx)
	if err != nil {
		t.Fatalf("GetDepth: %v", err)
	}
	if depth != 2 {
		t.Fatalf("depth = %d, want 2", depth)
	}
}

func TestMemoryQueueNackOnFirstAttemptDoesNotRequeue(t *testing.T) {
	// ShouldRetry only returns true once a job's status is Retrying, which
	// MarkFailed sets — so a Nack(requeue=true) on a job still in its
	// first (Running) attempt always takes the fail-and-remove branch.
	q := NewMemoryQueue()
	ctx := context.Background()

	job := NewJob(JobTypeAnalyze, map[string]interface{}{"job_id": "a"})
	job.MaxAttempts = 3
	q.Enqueue(ctx, job)

	dequeued, err := q.Dequeue(ctx)
	if err != nil {
		t.Fatalf("Dequeue: %v", err)
	}

	if err := q.Nack(ctx, dequeued.ID, true); err != nil {
		t.Fatalf("Nack: %v", err)
	}

	depth, err := q.GetDepth(ctx)
	if err != nil {
		t.Fatalf("GetDepth: %v", err)
	}
	if depth != 0 {
		t.Fatalf("depth = %d, want 0", depth)
	}
}

func TestMemoryQueueAckRemovesJob(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()

	job := NewJob(JobTypeAnalyze, map[string]interface{}{"job_id": "a"})
	q.Enqueue(ctx, job)
	dequeued, _ := q.Dequeue(ctx)

	if err := q.Ack(ctx, dequeued.ID); err != nil {
		t.Fatalf("Ack: %v", err)
	}
	if err := q.Ack(ctx, dequeued.ID); err == nil {
		t.Fatal("expected acking an already-acked job to fail")
	}
}

func TestMemoryQueueEnqueueAfterCloseFails(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()

	if err := q.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := q.Enqueue(ctx, NewJob(JobTypeAnalyze, nil)); err == nil {
		t.Fatal("expected Enqueue on a closed queue to fail")
	}
}
