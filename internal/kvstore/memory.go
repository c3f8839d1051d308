package kvstore

import (
	"context"
	"sync"
	"time"

	cserrors "github.com/casestrainer/casestrainer/internal/errors"
	"github.com/casestrainer/casestrainer/pkg/models"
)

// MemoryStore is an in-memory Store, used by tests and single-process
// deployments.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*models.Job
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]*models.Job)}
}

func (s *MemoryStore) SaveJob(ctx context.Context, job *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *job
	s.jobs[job.JobID] = &cp
	return nil
}

func (s *MemoryStore) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, cserrors.ErrJobNotFound
	}
	cp := *job
	return &cp, nil
}

func (s *MemoryStore) UpdateJob(ctx context.Context, job *models.Job, expectedToken int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.jobs[job.JobID]
	if !ok {
		return cserrors.ErrJobNotFound
	}
	if existing.UpdateToken != expectedToken {
		return cserrors.Internal("stale job write", nil).WithContext("job_id", job.JobID)
	}

	cp := *job
	s.jobs[job.JobID] = &cp
	return nil
}

func (s *MemoryStore) DeleteJob(ctx context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[jobID]; !ok {
		return cserrors.ErrJobNotFound
	}
	delete(s.jobs, jobID)
	return nil
}

func (s *MemoryStore) ListJobs(ctx context.Context, filter JobFilter) ([]*models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*models.Job
	for _, job := range s.jobs {
		if filter.State != "" && job.State != filter.State {
			continue
		}
		cp := *job
		matched = append(matched, &cp)
	}

	start := filter.Offset
	if start > len(matched) {
		start = len(matched)
	}
	end := start + filter.Limit
	if filter.Limit == 0 || end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], nil
}

func (s *MemoryStore) ClaimStaleJobs(ctx context.Context, claimant string, maxAttempts int, limit int) ([]*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var claimed []*models.Job
	for _, job := range s.jobs {
		if len(claimed) >= limit {
			break
		}
		if job.State != models.JobRunning && job.State != models.JobQueued {
			continue
		}
		if job.ClaimExpiresAt != nil && job.ClaimExpiresAt.After(now) {
			continue
		}
		if job.Attempts >= maxAttempts {
			continue
		}

		job.Attempts++
		job.ClaimedBy = claimant
		expires := now.Add(10 * time.Minute)
		job.ClaimExpiresAt = &expires
		job.Touch()

		cp := *job
		claimed = append(claimed, &cp)
	}
	return claimed, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }
func (s *MemoryStore) Close() error                   { return nil }
