package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/casestrainer/casestrainer/pkg/models"
)

// Default TTLs per §4.5: unverified results expire quickly so a negative
// lookup gets retried; verified results are kept much longer.
const (
	DefaultUnverifiedTTL = 24 * time.Hour
	DefaultVerifiedTTL   = 30 * 24 * time.Hour
)

const (
	nsVerified   = "verified/"
	nsUnverified = "unverified/"
	nsExtraction = "extraction/"
)

// VerificationCache layers the verified/unverified/extraction namespaces
// and the at-most-one-builder pattern on top of a plain Cache backend.
// Namespaces are disjoint keyspaces so clearing unverified entries can
// never drop a verified result.
type VerificationCache struct {
	backend      Cache
	group        singleflight.Group
	unverifiedTTL time.Duration
	verifiedTTL   time.Duration
}

// NewVerificationCache wraps backend with the Cache Layer's semantics.
func NewVerificationCache(backend Cache) *VerificationCache {
	return &VerificationCache{
		backend:       backend,
		unverifiedTTL: DefaultUnverifiedTTL,
		verifiedTTL:   DefaultVerifiedTTL,
	}
}

// Get looks up a fingerprint, checking the verified namespace first (a
// verified result is never shadowed by a stale unverified one).
func (v *VerificationCache) Get(ctx context.Context, fingerprint string) (models.CacheEntry, bool, error) {
	if entry, ok, err := v.getNamespaced(ctx, nsVerified+fingerprint); ok || err != nil {
		return entry, ok, err
	}
	return v.getNamespaced(ctx, nsUnverified+fingerprint)
}

func (v *VerificationCache) getNamespaced(ctx context.Context, key string) (models.CacheEntry, bool, error) {
	raw, err := v.backend.Get(ctx, key)
	if err == ErrCacheMiss {
		return models.CacheEntry{}, false, nil
	}
	if err != nil {
		return models.CacheEntry{}, false, err
	}

	bytes, ok := raw.([]byte)
	if !ok {
		return models.CacheEntry{}, false, nil
	}
	var entry models.CacheEntry
	if err := json.Unmarshal(bytes, &entry); err != nil {
		return models.CacheEntry{}, false, err
	}
	return entry, true, nil
}

// Store writes a verification result into the namespace its verified flag
// dictates, with that namespace's TTL.
func (v *VerificationCache) Store(ctx context.Context, fingerprint string, entry models.CacheEntry) error {
	entry.SchemaVersion = SchemaVersion
	if entry.StoredAt.IsZero() {
		entry.StoredAt = time.Now()
	}

	bytes, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	if entry.VerifiedFlag {
		return v.backend.Set(ctx, nsVerified+fingerprint, bytes, v.verifiedTTL)
	}
	return v.backend.Set(ctx, nsUnverified+fingerprint, bytes, v.unverifiedTTL)
}

// GetOrBuild implements the at-most-one-builder pattern: concurrent callers
// for the same fingerprint collapse into a single build, via singleflight
// rather than a hand-rolled lock map.
func (v *VerificationCache) GetOrBuild(ctx context.Context, fingerprint string, build func() (models.CacheEntry, error)) (models.CacheEntry, error) {
	if entry, ok, err := v.Get(ctx, fingerprint); err == nil && ok {
		return entry, nil
	}

	result, err, _ := v.group.Do(fingerprint, func() (interface{}, error) {
		if entry, ok, err := v.Get(ctx, fingerprint); err == nil && ok {
			return entry, nil
		}
		entry, err := build()
		if err != nil {
			return models.CacheEntry{}, err
		}
		if storeErr := v.Store(ctx, fingerprint, entry); storeErr != nil {
			return models.CacheEntry{}, storeErr
		}
		return entry, nil
	})
	if err != nil {
		return models.CacheEntry{}, err
	}
	return result.(models.CacheEntry), nil
}

// prefixClearer is implemented by backends that can scope a clear to a
// single namespace (MemoryCache, RedisCache); MultiLevelCache delegates to
// both of its levels.
type prefixClearer interface {
	ClearPrefix(ctx context.Context, prefix string) (int, error)
}

// ClearUnverified removes every entry in the unverified namespace, never
// touching verified entries. Returns the count cleared.
func (v *VerificationCache) ClearUnverified(ctx context.Context) (int, error) {
	clearer, ok := v.backend.(prefixClearer)
	if !ok {
		return 0, fmt.Errorf("cache backend %T does not support namespace-scoped clearing", v.backend)
	}
	return clearer.ClearPrefix(ctx, nsUnverified)
}

// GetExtraction looks up a cached (occurrences, clusters, extracted_names)
// tuple keyed by a hash of the raw source text.
func (v *VerificationCache) GetExtraction(ctx context.Context, textHash string, out interface{}) (bool, error) {
	raw, err := v.backend.Get(ctx, nsExtraction+textHash)
	if err == ErrCacheMiss {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	bytes, ok := raw.([]byte)
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(bytes, out); err != nil {
		return false, err
	}
	return true, nil
}

// StoreExtraction caches an extraction-stage result under a 1-hour TTL —
// long enough to skip re-extraction of identical resubmissions, short
// enough that stale pipeline code changes age out quickly.
func (v *VerificationCache) StoreExtraction(ctx context.Context, textHash string, value interface{}) error {
	bytes, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return v.backend.Set(ctx, nsExtraction+textHash, bytes, time.Hour)
}
