package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// SchemaVersion is bumped whenever CacheEntry payload shapes change, so
// different schema versions never collide under the same fingerprint.
const SchemaVersion = 1

// Fingerprint computes the stable cache key for a normalized citation: a
// hash over the text plus the schema version (§4.7).
func Fingerprint(normalizedText string) string {
	h := sha256.New()
	h.Write([]byte(normalizedText))
	h.Write([]byte{byte(SchemaVersion)})
	return hex.EncodeToString(h.Sum(nil))
}

// ExtractionKey hashes the raw source text for the extraction namespace,
// independent of the citation fingerprint above.
func ExtractionKey(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}
