// Package models holds the data types shared across the citation pipeline:
// occurrences emitted by the extractor, the clusters built from them, and
// the jobs and results that wrap a full pipeline run.
package models

import "time"

// CitationKind classifies a CitationOccurrence for downstream routing.
// Statute and regulation occurrences are carried through extraction but
// never reach clustering or verification.
type CitationKind string

const (
	KindCase       CitationKind = "case"
	KindStatute    CitationKind = "statute"
	KindRegulation CitationKind = "regulation"
	KindUnknown    CitationKind = "unknown"
)

// CitationOccurrence is one textual appearance of a citation in the source,
// with the exact offsets needed to reconstruct its surrounding context.
type CitationOccurrence struct {
	RawText        string       `json:"raw_text"`
	NormalizedText string       `json:"normalized_text"`
	Reporter       string       `json:"reporter,omitempty"`
	Volume         int          `json:"volume,omitempty"`
	Page           int          `json:"page,omitempty"`
	PinCite        *int         `json:"pin_cite,omitempty"`
	StartOffset    int          `json:"start_offset"`
	EndOffset      int          `json:"end_offset"`
	Kind           CitationKind `json:"kind"`

	// Parenthetical marks an occurrence that appeared wholly inside a
	// parenthetical immediately following a preceding citation; it is a
	// clustering candidate but never a case-name extraction anchor.
	Parenthetical bool `json:"parenthetical,omitempty"`

	// SignalPhrase records a detected introductory cue ("see", "citing",
	// "quoting", "compare", "id.", "supra") immediately preceding the
	// occurrence, if any. Used by the isolator and case name extractor to
	// anchor and strip contamination.
	SignalPhrase string `json:"signal_phrase,omitempty"`
}

// Valid reports the offset invariant: start_offset < end_offset.
func (c CitationOccurrence) Valid() bool {
	return c.StartOffset < c.EndOffset
}

// IsolatedContext is the bounded text window used to extract the case name
// for a single occurrence. It is discarded once name extraction completes.
type IsolatedContext struct {
	OccurrenceIndex int    `json:"-"`
	Backward        string `json:"backward"`
	BackwardStart   int    `json:"backward_start"`
	BackwardEnd     int    `json:"backward_end"`
	Forward         string `json:"forward,omitempty"`
	ForwardStart    int    `json:"forward_start,omitempty"`
	ForwardEnd      int    `json:"forward_end,omitempty"`
}

// ExtractedName is the result of case-name extraction for one occurrence.
// A nil CaseName is a valid, non-error result.
type ExtractedName struct {
	CaseName   *string `json:"case_name"`
	Date       *int    `json:"date"`
	Confidence float64 `json:"confidence"`
	PatternID  string  `json:"pattern_id,omitempty"`
}

// VerificationStatus is the outcome of the verifier for a cluster.
type VerificationStatus string

const (
	StatusVerified           VerificationStatus = "verified"
	StatusVerifiedByParallel VerificationStatus = "verified_by_parallel"
	StatusUnverified         VerificationStatus = "unverified"
	StatusFailed             VerificationStatus = "failed"
)

// Cluster is a set of citation occurrences asserted to refer to the same
// case. Statute and regulation occurrences never form clusters.
type Cluster struct {
	ClusterID          string               `json:"cluster_id"`
	Occurrences        []CitationOccurrence `json:"occurrences"`
	ExtractedName      *string              `json:"extracted_name"`
	ExtractedDate      *int                 `json:"extracted_date"`
	CanonicalName      *string              `json:"canonical_name,omitempty"`
	CanonicalDate      *int                 `json:"canonical_date,omitempty"`
	CanonicalURL       *string              `json:"canonical_url,omitempty"`
	VerificationStatus VerificationStatus   `json:"verification_status"`
	FailureReason      string               `json:"failure_reason,omitempty"`
}

// PrimaryCitation is the earliest occurrence by offset, the anchor the
// verifier looks up first.
func (c *Cluster) PrimaryCitation() CitationOccurrence {
	return c.Occurrences[0]
}

// JobResultMetadata carries the pipeline's aggregate counts.
type JobResultMetadata struct {
	Total              int `json:"total"`
	Verified           int `json:"verified"`
	VerifiedByParallel int `json:"verified_by_parallel"`
	Unverified         int `json:"unverified"`
	Failed             int `json:"failed"`
	StatutesExcluded   int `json:"statutes_excluded"`
}

// JobResultTiming carries per-stage elapsed seconds.
type JobResultTiming struct {
	ExtractionSeconds   float64 `json:"extraction_seconds"`
	IsolationSeconds    float64 `json:"isolation_seconds"`
	ClusteringSeconds   float64 `json:"clustering_seconds"`
	VerificationSeconds float64 `json:"verification_seconds"`
}

// JobResult is the aggregated output of a completed pipeline run.
type JobResult struct {
	Clusters  []Cluster            `json:"clusters"`
	Citations []CitationOccurrence `json:"citations"`
	Metadata  JobResultMetadata    `json:"metadata"`
	Timing    JobResultTiming      `json:"timing"`
	Warnings  []string             `json:"warnings,omitempty"`
}

// CacheEntry is the payload stored under a cache fingerprint.
type CacheEntry struct {
	Payload       interface{} `json:"payload"`
	StoredAt      time.Time   `json:"stored_at"`
	Source        string      `json:"source,omitempty"`
	VerifiedFlag  bool        `json:"verified_flag"`
	SchemaVersion int         `json:"schema_version"`
}
