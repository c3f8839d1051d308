// Package kvstore implements the KeyValueStore (§6): job persistence at
// jobs/<job_id>, independent of the Cache Layer's verification cache.
package kvstore

import (
	"context"

	"github.com/casestrainer/casestrainer/pkg/models"
)

// Store is the interface the Job Runtime depends on for job persistence.
type Store interface {
	SaveJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, jobID string) (*models.Job, error)

	// UpdateJob performs an optimistic-concurrency write: it fails if the
	// stored record's UpdateToken no longer matches expectedToken, so two
	// concurrent writers (e.g. a worker reporting progress and a cancel
	// request) never silently clobber each other.
	UpdateJob(ctx context.Context, job *models.Job, expectedToken int64) error

	DeleteJob(ctx context.Context, jobID string) error
	ListJobs(ctx context.Context, filter JobFilter) ([]*models.Job, error)

	// ClaimStaleJobs atomically reassigns jobs whose claim has expired
	// (visibility-timeout retry) to a new claimant, returning the claimed
	// records, incrementing their Attempts.
	ClaimStaleJobs(ctx context.Context, claimant string, maxAttempts int, limit int) ([]*models.Job, error)

	Ping(ctx context.Context) error
	Close() error
}

// JobFilter narrows ListJobs, primarily used by the admin CLI's queue
// status command.
type JobFilter struct {
	State  models.JobState
	Limit  int
	Offset int
}
