// Package verify implements the Verifier (§4.5): cache-first lookup
// against the CitationDatabase, with rate limiting, retry-with-backoff,
// and a circuit breaker, primary-citation-then-parallel-citation fallback.
package verify

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/casestrainer/casestrainer/internal/cache"
	"github.com/casestrainer/casestrainer/internal/citationdb"
	"github.com/casestrainer/casestrainer/internal/config"
	cserrors "github.com/casestrainer/casestrainer/internal/errors"
	"github.com/casestrainer/casestrainer/internal/observability"
	"github.com/casestrainer/casestrainer/pkg/models"
)

// Verifier looks up clusters against a CitationDatabase.Client, following
// the cache-first, rate-limited, retried, circuit-broken contract of §4.5.
type Verifier struct {
	db      citationdb.Client
	cache   *cache.VerificationCache
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	metrics *observability.Metrics

	baseDelay   time.Duration
	maxDelay    time.Duration
	maxAttempts int
}

// New constructs a Verifier. cfg supplies the rate-limit/retry policy;
// metrics may be nil in tests.
func New(db citationdb.Client, vc *cache.VerificationCache, cfg config.VerifierConfig, metrics *observability.Metrics) *Verifier {
	perSecond := float64(cfg.RateLimitPerHour) / 3600.0
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "citationdb",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Verifier{
		db:          db,
		cache:       vc,
		limiter:     rate.NewLimiter(rate.Limit(perSecond), burst),
		breaker:     breaker,
		metrics:     metrics,
		baseDelay:   cfg.RetryBaseDelay,
		maxDelay:    cfg.RetryMaxDelay,
		maxAttempts: cfg.RetryMaxAttempts,
	}
}

// Verify attempts to verify cluster's primary citation, falling through to
// the remaining occurrences in order on a negative, and updates the
// cluster's canonical fields and verification_status in place. A hard
// error on any occurrence's lookup stops the fall-through: the cluster is
// marked failed with the error as its reason and the error is returned.
func (v *Verifier) Verify(ctx context.Context, c *models.Cluster) error {
	for i, occ := range c.Occurrences {
		result, err := v.lookupCached(ctx, occ.NormalizedText)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				c.VerificationStatus = models.StatusUnverified
				c.FailureReason = "cancelled"
				return err
			}
			c.VerificationStatus = models.StatusFailed
			c.FailureReason = err.Error()
			return cserrors.TransientExternal("citation database lookup failed", err)
		}

		if result.Found {
			name := result.CanonicalName
			date := result.CanonicalDate
			url := result.URL
			c.CanonicalName = &name
			c.CanonicalDate = &date
			c.CanonicalURL = &url
			if i == 0 {
				c.VerificationStatus = models.StatusVerified
			} else {
				c.VerificationStatus = models.StatusVerifiedByParallel
			}
			return nil
		}
	}

	c.VerificationStatus = models.StatusUnverified
	return nil
}

// lookupCached is cache-first: a hit short-circuits the database entirely.
// A miss builds under the cache's at-most-one-builder guarantee, so two
// concurrent lookups for the same fingerprint never race the database.
func (v *Verifier) lookupCached(ctx context.Context, normalizedText string) (citationdb.LookupResult, error) {
	fp := cache.Fingerprint(normalizedText)

	entry, err := v.cache.GetOrBuild(ctx, fp, func() (models.CacheEntry, error) {
		result, err := v.lookupWithPolicy(ctx, normalizedText)
		if err != nil {
			return models.CacheEntry{}, err
		}
		return models.CacheEntry{
			Payload:      result,
			Source:       "citationdb",
			VerifiedFlag: result.Found,
		}, nil
	})
	if err != nil {
		return citationdb.LookupResult{}, err
	}

	result, ok := entry.Payload.(citationdb.LookupResult)
	if !ok {
		// A cache hit is decoded from JSON, so its payload arrives as a
		// generic map; round-trip it back into a LookupResult.
		raw, err := json.Marshal(entry.Payload)
		if err != nil {
			return citationdb.LookupResult{}, err
		}
		if err := json.Unmarshal(raw, &result); err != nil {
			return citationdb.LookupResult{}, errors.New("verify: cached payload has unexpected type")
		}
	}
	return result, nil
}

// lookupWithPolicy applies the token bucket, circuit breaker and retry
// policy around a single database call. An authoritative negative (4xx
// other than 429) is a successful result, not an error, so it never trips
// the breaker.
func (v *Verifier) lookupWithPolicy(ctx context.Context, normalizedText string) (citationdb.LookupResult, error) {
	if err := v.limiter.Wait(ctx); err != nil {
		return citationdb.LookupResult{}, err
	}

	start := time.Now()
	out, err := v.breaker.Execute(func() (interface{}, error) {
		return v.retryingLookup(ctx, normalizedText)
	})
	elapsed := time.Since(start)

	if v.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		v.metrics.RecordVerification(status, elapsed)
	}

	if err != nil {
		if v.metrics != nil {
			v.metrics.RecordVerificationError(classifyError(err))
		}
		return citationdb.LookupResult{}, err
	}
	return out.(citationdb.LookupResult), nil
}

// retryingLookup implements the §4.5 retry policy: exponential backoff
// with jitter, base 500ms, cap 8s, up to maxAttempts. 4xx (other than 429)
// is authoritative and stops retrying immediately, returned as a negative
// result rather than an error. 429 drains the bucket and waits at least
// the server's Retry-After before the next attempt.
func (v *Verifier) retryingLookup(ctx context.Context, normalizedText string) (citationdb.LookupResult, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = v.baseDelay
	bo.MaxInterval = v.maxDelay
	bo.Multiplier = 2
	bo.RandomizationFactor = 0.5

	attempts := v.maxAttempts
	if attempts < 1 {
		attempts = 1
	}
	withRetries := backoff.WithMaxRetries(bo, uint64(attempts-1))
	withCtx := backoff.WithContext(withRetries, ctx)

	var result citationdb.LookupResult
	op := func() error {
		r, err := v.db.Lookup(ctx, normalizedText)
		if err == nil {
			result = r
			return nil
		}

		var statusErr *citationdb.StatusError
		if errors.As(err, &statusErr) {
			if statusErr.StatusCode == 429 {
				// Drain the local bucket so other lookups back off too.
				for v.limiter.Allow() {
				}
				if statusErr.RetryAfter > 0 {
					time.Sleep(statusErr.RetryAfter)
				}
				return err
			}
			if statusErr.StatusCode >= 400 && statusErr.StatusCode < 500 {
				result = citationdb.LookupResult{Found: false}
				return nil
			}
		}
		return err
	}

	if err := backoff.Retry(op, withCtx); err != nil {
		return citationdb.LookupResult{}, err
	}
	return result, nil
}

func classifyError(err error) string {
	var statusErr *citationdb.StatusError
	if errors.As(err, &statusErr) {
		if statusErr.StatusCode == 429 {
			return "rate_limited"
		}
		if statusErr.StatusCode >= 500 {
			return "server_error"
		}
		return "client_error"
	}
	return "network"
}
