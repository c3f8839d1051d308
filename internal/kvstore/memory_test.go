package kvstore

import (
	"context"
	"testing"

	cserrors "github.com/casestrainer/casestrainer/internal/errors"
	"github.com/casestrainer/casestrainer/pkg/models"
)

func newJob(id string, state models.JobState) *models.Job {
	return &models.Job{
		JobID:       id,
		State:       state,
		UpdateToken: 1,
	}
}

func TestMemoryStoreSaveAndGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	job := newJob("job-1", models.JobQueued)
	if err := s.SaveJob(ctx, job); err != nil {
		t.Fatalf("SaveJob: %v", err)
	}

	got, err := s.GetJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.JobID != "job-1" || got.State != models.JobQueued {
		t.Fatalf("unexpected job: %+v", got)
	}
}

func TestMemoryStoreGetJobNotFound(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.GetJob(context.Background(), "missing")
	if err != cserrors.ErrJobNotFound {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestMemoryStoreUpdateJobRejectsStaleToken(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	job := newJob("job-1", models.JobQueued)
	job.UpdateToken = 1
	if err := s.SaveJob(ctx, job); err != nil {
		t.Fatalf("SaveJob: %v", err)
	}

	job.State = models.JobRunning
	if err := s.UpdateJob(ctx, job, 99); err == nil {
		t.Fatal("expected stale-token write to be rejected")
	}

	if err := s.UpdateJob(ctx, job, 1); err != nil {
		t.Fatalf("expected matching token write to succeed, got %v", err)
	}
}

func TestMemoryStoreListJobsFiltersByState(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	s.SaveJob(ctx, newJob("job-1", models.JobQueued))
	s.SaveJob(ctx, newJob("job-2", models.JobRunning))
	s.SaveJob(ctx, newJob("job-3", models.JobQueued))

	queued, err := s.ListJobs(ctx, JobFilter{State: models.JobQueued})
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(queued) != 2 {
		t.Fatalf("expected 2 queued jobs, got %d", len(queued))
	}
}

func TestMemoryStoreListJobsRespectsLimitAndOffset(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		s.SaveJob(ctx, newJob(string(rune('a'+i)), models.JobQueued))
	}

	page, err := s.ListJobs(ctx, JobFilter{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("expected a page of 2, got %d", len(page))
	}
}

func TestMemoryStoreDeleteJob(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	s.SaveJob(ctx, newJob("job-1", models.JobQueued))
	if err := s.DeleteJob(ctx, "job-1"); err != nil {
		t.Fatalf("DeleteJob: %v", err)
	}
	if _, err := s.GetJob(ctx, "job-1"); err != cserrors.ErrJobNotFound {
		t.Fatalf("expected job to be gone after delete, got err=%v", err)
	}
}

func TestMemoryStoreClaimStaleJobsRespectsMaxAttempts(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	job := newJob("job-1", models.JobRunning)
	job.Attempts = 2
	s.SaveJob(ctx, job)

	claimed, err := s.ClaimStaleJobs(ctx, "worker-1", 2, 10)
	if err != nil {
		t.Fatalf("ClaimStaleJobs: %v", err)
	}
	if len(claimed) != 0 {
		t.Fatalf("expected no jobs claimed once attempts reach maxAttempts, got %d", len(claimed))
	}
}

func TestMemoryStoreClaimStaleJobsClaimsEligibleJob(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	job := newJob("job-1", models.JobRunning)
	job.Attempts = 0
	s.SaveJob(ctx, job)

	claimed, err := s.ClaimStaleJobs(ctx, "worker-1", 3, 10)
	if err != nil {
		t.Fatalf("ClaimStaleJobs: %v", err)
	}
	if len(claimed) != 1 {
		t.Fatalf("expected 1 job claimed, got %d", len(claimed))
	}
	if claimed[0].ClaimedBy != "worker-1" {
		t.Fatalf("expected claimant worker-1, got %q", claimed[0].ClaimedBy)
	}
}
