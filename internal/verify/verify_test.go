package verify

import (
	"context"
	"testing"
	"time"

	"github.com/casestrainer/casestrainer/internal/cache"
	"github.com/casestrainer/casestrainer/internal/citationdb"
	"github.com/casestrainer/casestrainer/internal/config"
	"github.com/casestrainer/casestrainer/pkg/models"
)

func newTestVerifier(t *testing.T, db citationdb.Client) *Verifier {
	t.Helper()
	backend := cache.NewMemoryCache(&cache.Config{MaxKeys: 1000, TTL: time.Hour})
	vc := cache.NewVerificationCache(backend)
	cfg := config.VerifierConfig{
		RateLimitPerHour: 360000,
		Burst:            100,
		RetryBaseDelay:   time.Millisecond,
		RetryMaxDelay:    10 * time.Millisecond,
		RetryMaxAttempts: 2,
	}
	return New(db, vc, cfg, nil)
}

func clusterWithOccurrences(normalized ...string) *models.Cluster {
	var occs []models.CitationOccurrence
	for _, n := range normalized {
		occs = append(occs, models.CitationOccurrence{NormalizedText: n, Kind: models.KindCase})
	}
	return &models.Cluster{ClusterID: "c0", Occurrences: occs}
}

func TestVerifyMarksVerifiedOnPrimaryHit(t *testing.T) {
	db := citationdb.NewFakeClient(10)
	db.Seed("410 U.S. 113", citationdb.LookupResult{Found: true, CanonicalName: "Roe v. Wade", CanonicalDate: 1973})

	v := newTestVerifier(t, db)
	c := clusterWithOccurrences("410 U.S. 113")

	if err := v.Verify(context.Background(), c); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if c.VerificationStatus != models.StatusVerified {
		t.Fatalf("VerificationStatus = %v, want %v", c.VerificationStatus, models.StatusVerified)
	}
	if c.CanonicalName == nil || *c.CanonicalName != "Roe v. Wade" {
		t.Fatalf("CanonicalName = %v, want Roe v. Wade", c.CanonicalName)
	}
}

func TestVerifyFallsThroughToParallelCitation(t *testing.T) {
	db := citationdb.NewFakeClient(10)
	db.Seed("94 S. Ct. 200", citationdb.LookupResult{Found: true, CanonicalName: "Roe v. Wade", CanonicalDate: 1973})

	v := newTestVerifier(t, db)
	c := clusterWithOccurrences("410 U.S. 113", "94 S. Ct. 200")

	if err := v.Verify(context.Background(), c); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if c.VerificationStatus != models.StatusVerifiedByParallel {
		t.Fatalf("VerificationStatus = %v, want %v", c.VerificationStatus, models.StatusVerifiedByParallel)
	}
}

func TestVerifyMarksUnverifiedWhenNoOccurrenceFound(t *testing.T) {
	db := citationdb.NewFakeClient(10)
	v := newTestVerifier(t, db)
	c := clusterWithOccurrences("999 U.S. 1")

	if err := v.Verify(context.Background(), c); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if c.VerificationStatus != models.StatusUnverified {
		t.Fatalf("VerificationStatus = %v, want %v", c.VerificationStatus, models.StatusUnverified)
	}
}

func TestVerifyUsesCacheOnSecondLookup(t *testing.T) {
	db := citationdb.NewFakeClient(1)
	db.Seed("410 U.S. 113", citationdb.LookupResult{Found: true, CanonicalName: "Roe v. Wade"})

	v := newTestVerifier(t, db)

	c1 := clusterWithOccurrences("410 U.S. 113")
	if err := v.Verify(context.Background(), c1); err != nil {
		t.Fatalf("first Verify: %v", err)
	}

	// Quota is now exhausted; a second lookup for the same fingerprint
	// must be served from cache rather than hitting the fake client again.
	c2 := clusterWithOccurrences("410 U.S. 113")
	if err := v.Verify(context.Background(), c2); err != nil {
		t.Fatalf("second Verify should be served from cache, got error: %v", err)
	}
	if c2.VerificationStatus != models.StatusVerified {
		t.Fatalf("VerificationStatus = %v, want %v", c2.VerificationStatus, models.StatusVerified)
	}
}
