package models

import "time"

// JobState is the pipeline job's lifecycle state.
type JobState string

const (
	JobQueued    JobState = "queued"
	JobRunning   JobState = "running"
	JobCompleted JobState = "completed"
	JobFailed    JobState = "failed"
	JobCancelled JobState = "cancelled"
)

// InputKind describes how the job's source text was obtained.
type InputKind string

const (
	InputText InputKind = "text"
	InputURL  InputKind = "url"
	InputFile InputKind = "file"
)

// InputDescriptor records how the text was obtained, for audit and for the
// DocumentLoader. Text holds the verbatim submission body for Kind ==
// InputText so a worker retrying a claimed job never needs the original
// HTTP request; it is internal to the job record and never echoed back by
// the Submission API's status responses.
type InputDescriptor struct {
	Kind     InputKind `json:"kind"`
	URL      string    `json:"url,omitempty"`
	Name     string    `json:"name,omitempty"`
	SizeHint int       `json:"size_hint,omitempty"`
	Text     string    `json:"text,omitempty"`
}

// Job is a single submission's lifecycle record as persisted in the
// KeyValueStore at jobs/<job_id>.
type Job struct {
	JobID           string           `json:"job_id"`
	InputDescriptor InputDescriptor  `json:"input_descriptor"`
	State           JobState         `json:"state"`
	Progress        int              `json:"progress"`
	CurrentStep     string           `json:"current_step"`
	ETASeconds      int              `json:"eta_seconds"`
	TotalCitations  int              `json:"total_citations"`
	ProcessedCitations int           `json:"processed_citations"`
	Result          *JobResult       `json:"result,omitempty"`
	Error           *JobError        `json:"error,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`

	// Attempts/ClaimedBy/ClaimExpiresAt support the visibility-timeout
	// based retry-at-most-twice policy; not part of the public API
	// response but persisted alongside the record.
	Attempts      int        `json:"attempts"`
	ClaimedBy     string     `json:"claimed_by,omitempty"`
	ClaimExpiresAt *time.Time `json:"claim_expires_at,omitempty"`

	// UpdateToken is the optimistic-concurrency token compared on
	// read-modify-write; it is bumped to UpdatedAt's UnixNano on every
	// successful write.
	UpdateToken int64 `json:"update_token"`
}

// JobErrorKind is the §7 error taxonomy, carried as data (not a Go error
// type) so it survives serialization into the KeyValueStore.
type JobErrorKind string

const (
	ErrKindInput              JobErrorKind = "input_error"
	ErrKindTransientExternal  JobErrorKind = "transient_external_error"
	ErrKindCancelled          JobErrorKind = "cancelled"
	ErrKindStalled            JobErrorKind = "stalled"
	ErrKindInternal           JobErrorKind = "internal"
)

// JobError is the terminal failure cause recorded on a failed job.
type JobError struct {
	Kind    JobErrorKind `json:"kind"`
	Message string       `json:"message"`
}

// NewJob creates a queued job for the given input.
func NewJob(jobID string, descriptor InputDescriptor) *Job {
	now := time.Now()
	return &Job{
		JobID:           jobID,
		InputDescriptor: descriptor,
		State:           JobQueued,
		Progress:        0,
		CurrentStep:     "queued",
		CreatedAt:       now,
		UpdatedAt:       now,
		UpdateToken:     now.UnixNano(),
	}
}

// Touch advances UpdatedAt and the optimistic-concurrency token. Callers
// must still persist the record; this only prepares the new token.
func (j *Job) Touch() {
	j.UpdatedAt = time.Now()
	j.UpdateToken = j.UpdatedAt.UnixNano()
}

// SetProgress applies a monotonic, non-decreasing progress update.
// Out-of-order or regressive updates are dropped rather than applied,
// preserving the §7 invariant that progress never decreases.
func (j *Job) SetProgress(progress int, step string, etaSeconds, totalCitations, processedCitations int) {
	if progress < j.Progress {
		return
	}
	j.Progress = progress
	j.CurrentStep = step
	j.ETASeconds = etaSeconds
	j.TotalCitations = totalCitations
	j.ProcessedCitations = processedCitations
	j.Touch()
}

// CanCancel reports whether cancel() is accepted in the job's current state.
func (j *Job) CanCancel() bool {
	return j.State == JobQueued || j.State == JobRunning
}

// MarkRunning transitions queued -> running.
func (j *Job) MarkRunning() {
	j.State = JobRunning
	j.Touch()
}

// MarkCompleted transitions running -> completed with the final result.
func (j *Job) MarkCompleted(result *JobResult) {
	j.State = JobCompleted
	j.Result = result
	j.Progress = 100
	j.CurrentStep = "completed"
	j.ETASeconds = 0
	j.Touch()
}

// MarkFailed transitions running/queued -> failed with a cause. No
// partial result is attached per §7 propagation rules.
func (j *Job) MarkFailed(kind JobErrorKind, message string) {
	j.State = JobFailed
	j.Error = &JobError{Kind: kind, Message: message}
	j.Result = nil
	j.Touch()
}

// MarkCancelled transitions queued/running -> cancelled. No partial
// clusters are surfaced.
func (j *Job) MarkCancelled() {
	j.State = JobCancelled
	j.Result = nil
	j.Touch()
}
