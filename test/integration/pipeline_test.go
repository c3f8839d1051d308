package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casestrainer/casestrainer/internal/cache"
	"github.com/casestrainer/casestrainer/internal/citationdb"
	"github.com/casestrainer/casestrainer/internal/config"
	"github.com/casestrainer/casestrainer/internal/docloader"
	"github.com/casestrainer/casestrainer/internal/jobs"
	"github.com/casestrainer/casestrainer/internal/kvstore"
	"github.com/casestrainer/casestrainer/internal/queue"
	"github.com/casestrainer/casestrainer/internal/verify"
	"github.com/casestrainer/casestrainer/pkg/models"
)

// TestAnalyzeTextPipeline drives a full Submit -> worker Handler -> Status
// cycle in-process: in-memory store, in-memory queue, in-memory cache, and
// a fake CitationDatabase seeded with one known citation.
func TestAnalyzeTextPipeline(t *testing.T) {
	store := kvstore.NewMemoryStore()
	defer store.Close()

	q := queue.NewMemoryQueue()
	defer q.Close()

	backend := cache.NewMemoryCache(&cache.Config{MaxKeys: 1000, TTL: time.Hour})
	vc := cache.NewVerificationCache(backend)

	db := citationdb.NewFakeClient(100)
	db.Seed("410 U.S. 113", citationdb.LookupResult{
		Found:         true,
		CanonicalName: "Roe v. Wade",
		CanonicalDate: 1973,
		URL:           "https://example.invalid/410us113",
	})

	verifierCfg := config.VerifierConfig{
		RateLimitPerHour: 36000,
		Burst:             10,
		RetryBaseDelay:    time.Millisecond,
		RetryMaxDelay:     10 * time.Millisecond,
		RetryMaxAttempts:  2,
	}
	verifier := verify.New(db, vc, verifierCfg, nil)
	loader := docloader.New(5 * time.Second)

	runtime := jobs.New(store, q, vc, loader, verifier, time.Minute, 10*time.Second, nil, nil)

	ctx := context.Background()
	job, err := runtime.Submit(ctx, models.InputDescriptor{
		Kind: models.InputText,
		Text: "The Court in Roe v. Wade, 410 U.S. 113 (1973), recognized a right to privacy.",
	})
	require.NoError(t, err)
	require.NotEmpty(t, job.JobID)

	qjob, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.Equal(t, job.JobID, qjob.Payload["job_id"])

	err = runtime.Handler(ctx, qjob)
	require.NoError(t, err)

	final, err := runtime.Status(ctx, job.JobID)
	require.NoError(t, err)

	assert.Equal(t, models.JobCompleted, final.State)
	assert.Equal(t, 100, final.Progress)
	require.NotNil(t, final.Result)
	require.Len(t, final.Result.Clusters, 1)
	assert.Equal(t, models.StatusVerified, final.Result.Clusters[0].VerificationStatus)
	require.NotNil(t, final.Result.Clusters[0].CanonicalName)
	assert.Equal(t, "Roe v. Wade", *final.Result.Clusters[0].CanonicalName)
}

// TestAnalyzeEmptyTextRejected verifies Submit validates before a job ever
// reaches the queue.
func TestAnalyzeEmptyTextRejected(t *testing.T) {
	store := kvstore.NewMemoryStore()
	defer store.Close()

	q := queue.NewMemoryQueue()
	defer q.Close()

	backend := cache.NewMemoryCache(&cache.Config{MaxKeys: 100, TTL: time.Hour})
	vc := cache.NewVerificationCache(backend)
	db := citationdb.NewFakeClient(10)
	verifier := verify.New(db, vc, config.VerifierConfig{RateLimitPerHour: 3600, Burst: 5, RetryMaxAttempts: 1}, nil)
	loader := docloader.New(5 * time.Second)
	runtime := jobs.New(store, q, vc, loader, verifier, time.Minute, 10*time.Second, nil, nil)

	_, err := runtime.Submit(context.Background(), models.InputDescriptor{Kind: models.InputText, Text: ""})
	assert.Error(t, err)

	depth, err := q.GetDepth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, depth)
}
