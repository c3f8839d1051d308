package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/casestrainer/casestrainer/internal/cache"
	"github.com/casestrainer/casestrainer/internal/citationdb"
	"github.com/casestrainer/casestrainer/internal/config"
	"github.com/casestrainer/casestrainer/internal/docloader"
	"github.com/casestrainer/casestrainer/internal/kvstore"
	"github.com/casestrainer/casestrainer/internal/queue"
	"github.com/casestrainer/casestrainer/internal/verify"
	"github.com/casestrainer/casestrainer/pkg/models"
)

func newTestRuntime(t *testing.T) (*Runtime, queue.Queue) {
	t.Helper()

	store := kvstore.NewMemoryStore()
	q := queue.NewMemoryQueue()
	backend := cache.NewMemoryCache(&cache.Config{MaxKeys: 1000, TTL: time.Hour})
	vc := cache.NewVerificationCache(backend)
	db := citationdb.NewFakeClient(100)
	verifierCfg := config.VerifierConfig{
		RateLimitPerHour: 36000,
		Burst:            10,
		RetryBaseDelay:   time.Millisecond,
		RetryMaxDelay:    10 * time.Millisecond,
		RetryMaxAttempts: 2,
	}
	verifier := verify.New(db, vc, verifierCfg, nil)
	loader := docloader.New(5 * time.Second)

	return New(store, q, vc, loader, verifier, time.Minute, 10*time.Second, nil, nil), q
}

func runToCompletion(t *testing.T, r *Runtime, q queue.Queue, text string) *models.Job {
	t.Helper()
	ctx := context.Background()

	job, err := r.Submit(ctx, models.InputDescriptor{Kind: models.InputText, Text: text})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	qjob, err := q.Dequeue(ctx)
	if err != nil {
		t.Fatalf("Dequeue: %v", err)
	}
	if err := r.Handler(ctx, qjob); err != nil {
		t.Fatalf("Handler: %v", err)
	}

	got, err := r.Status(ctx, job.JobID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	return got
}

// TestRunPipelineExcludesStatutesFromClustersAndTotal mirrors the §8
// boundary scenario: a statute and a case citation in the same submission
// must produce exactly one cluster (the statute stays in Citations only),
// and metadata.Total must count that one case cluster, with
// Verified+VerifiedByParallel+Unverified+Failed summing back to it.
func TestRunPipelineExcludesStatutesFromClustersAndTotal(t *testing.T) {
	r, q := newTestRuntime(t)
	text := "42 U.S.C. § 1983 and Roe v. Wade, 410 U.S. 113 (1973), both apply."

	job := runToCompletion(t, r, q, text)

	if job.State != models.JobCompleted {
		t.Fatalf("expected job to complete, got state %s (error: %v)", job.State, job.Error)
	}
	if job.Result == nil {
		t.Fatal("expected a non-nil result")
	}

	if len(job.Result.Clusters) != 1 {
		t.Fatalf("expected exactly 1 cluster (statute excluded), got %d", len(job.Result.Clusters))
	}
	for _, c := range job.Result.Clusters {
		for _, occ := range c.Occurrences {
			if occ.Kind != models.KindCase {
				t.Fatalf("statute/regulation occurrence leaked into a cluster: %+v", occ)
			}
		}
	}

	sawStatute := false
	for _, occ := range job.Result.Citations {
		if occ.Kind == models.KindStatute {
			sawStatute = true
		}
	}
	if !sawStatute {
		t.Fatal("expected the statute to still appear in Citations")
	}

	md := job.Result.Metadata
	if md.Total != len(job.Result.Clusters) {
		t.Fatalf("metadata.Total = %d, want %d (len(clusters))", md.Total, len(job.Result.Clusters))
	}
	sum := md.Verified + md.VerifiedByParallel + md.Unverified + md.Failed
	if sum != md.Total {
		t.Fatalf("Verified+VerifiedByParallel+Unverified+Failed = %d, want Total = %d", sum, md.Total)
	}
	if md.StatutesExcluded != 1 {
		t.Fatalf("metadata.StatutesExcluded = %d, want 1", md.StatutesExcluded)
	}
}

// TestRunPipelineCachesExtractionAcrossIdenticalSubmissions exercises §4.7:
// resubmitting byte-identical text must produce the same occurrences,
// names and clusters as the first run, by way of the extraction cache
// rather than by re-running the extractor.
func TestRunPipelineCachesExtractionAcrossIdenticalSubmissions(t *testing.T) {
	r, q := newTestRuntime(t)
	text := "Roe v. Wade, 410 U.S. 113 (1973)."

	first := runToCompletion(t, r, q, text)
	second := runToCompletion(t, r, q, text)

	if first.Result == nil || second.Result == nil {
		t.Fatal("expected both runs to produce a result")
	}
	if len(first.Result.Clusters) != len(second.Result.Clusters) {
		t.Fatalf("cluster count differs across identical resubmissions: %d vs %d",
			len(first.Result.Clusters), len(second.Result.Clusters))
	}
	if len(first.Result.Citations) != len(second.Result.Citations) {
		t.Fatalf("citation count differs across identical resubmissions: %d vs %d",
			len(first.Result.Citations), len(second.Result.Citations))
	}

	key := cache.ExtractionKey(text)
	var cached cachedExtraction
	hit, err := r.cache.GetExtraction(context.Background(), key, &cached)
	if err != nil {
		t.Fatalf("GetExtraction: %v", err)
	}
	if !hit {
		t.Fatal("expected the extraction cache to hold an entry after two identical submissions")
	}
	if len(cached.Clusters) != len(first.Result.Clusters) {
		t.Fatalf("cached cluster count = %d, want %d", len(cached.Clusters), len(first.Result.Clusters))
	}
}
