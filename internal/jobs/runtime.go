// Package jobs implements the Job Runtime (§4.6): submission, status,
// cancellation, and the worker-side pipeline that wires together the
// Extractor, Isolator, Case Name Extractor, Cluster Builder and Verifier
// into one aggregated JobResult per job.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/casestrainer/casestrainer/internal/cache"
	"github.com/casestrainer/casestrainer/internal/casename"
	"github.com/casestrainer/casestrainer/internal/citation"
	"github.com/casestrainer/casestrainer/internal/cluster"
	"github.com/casestrainer/casestrainer/internal/docloader"
	cserrors "github.com/casestrainer/casestrainer/internal/errors"
	"github.com/casestrainer/casestrainer/internal/isolator"
	"github.com/casestrainer/casestrainer/internal/kvstore"
	"github.com/casestrainer/casestrainer/internal/observability"
	"github.com/casestrainer/casestrainer/internal/queue"
	"github.com/casestrainer/casestrainer/internal/verify"
	"github.com/casestrainer/casestrainer/internal/websocket"
	"github.com/casestrainer/casestrainer/pkg/models"
)

// Progress weights per §4.6: extraction 10%, isolation+name extraction
// 20%, clustering 10%, verification 60%.
const (
	weightExtraction  = 10
	weightNaming      = 20
	weightClustering  = 10
	weightVerification = 60
)

// Runtime orchestrates job submission and the pipeline that processes a
// queued job.
type Runtime struct {
	store  kvstore.Store
	queue  queue.Queue
	cache  *cache.VerificationCache
	loader docloader.Loader

	extractor     *citation.Extractor
	isolator      *isolator.Isolator
	nameExtractor *casename.Extractor
	verifier      *verify.Verifier

	logger  *observability.Logger
	metrics *observability.Metrics

	jobTimeout    time.Duration
	stageWatchdog time.Duration

	running sync.Map // job_id -> context.CancelFunc, for cooperative cancellation

	events *websocket.EventEmitter // optional; progress push additive to task_status polling
}

// SetEventEmitter attaches a WebSocket event emitter. Progress and terminal
// events are pushed through it in addition to the normal store writes; a
// nil emitter (the default) means push streaming is simply not wired up.
func (r *Runtime) SetEventEmitter(e *websocket.EventEmitter) {
	r.events = e
}

// New constructs a Runtime. logger/metrics may be nil.
func New(
	store kvstore.Store,
	q queue.Queue,
	vc *cache.VerificationCache,
	loader docloader.Loader,
	verifier *verify.Verifier,
	jobTimeout, stageWatchdogTimeout time.Duration,
	logger *observability.Logger,
	metrics *observability.Metrics,
) *Runtime {
	return &Runtime{
		store:         store,
		queue:         q,
		cache:         vc,
		loader:        loader,
		extractor:     citation.NewExtractor(),
		isolator:      isolator.New(),
		nameExtractor: casename.New(),
		verifier:      verifier,
		logger:        logger,
		metrics:       metrics,
		jobTimeout:    jobTimeout,
		stageWatchdog: stageWatchdogTimeout,
	}
}

// Submit creates a queued job for the given input and enqueues it for a
// worker to pick up. Text submissions are validated synchronously; a
// malformed submission never reaches the queue.
func (r *Runtime) Submit(ctx context.Context, descriptor models.InputDescriptor) (*models.Job, error) {
	if descriptor.Kind == models.InputText && descriptor.Text == "" {
		return nil, cserrors.Input("submission text is empty", cserrors.ErrEmptyText)
	}

	jobID := uuid.New().String()
	job := models.NewJob(jobID, descriptor)

	if err := r.store.SaveJob(ctx, job); err != nil {
		return nil, fmt.Errorf("jobs: save job: %w", err)
	}

	qjob := queue.NewJob(queue.JobTypeAnalyze, map[string]interface{}{"job_id": jobID})
	if err := r.queue.Enqueue(ctx, qjob); err != nil {
		return nil, fmt.Errorf("jobs: enqueue job: %w", err)
	}

	return job, nil
}

// Status returns the current state of a job.
func (r *Runtime) Status(ctx context.Context, jobID string) (*models.Job, error) {
	return r.store.GetJob(ctx, jobID)
}

// Cancel requests cooperative cancellation. If the job is already running
// in this process, its stage context is cancelled immediately; otherwise
// the state transition alone is enough, since a worker that later claims
// it will see state == cancelled before starting the pipeline.
func (r *Runtime) Cancel(ctx context.Context, jobID string) error {
	job, err := r.store.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if !job.CanCancel() {
		return cserrors.Input(fmt.Sprintf("job %s cannot be cancelled from state %s", jobID, job.State), nil)
	}

	expected := job.UpdateToken
	job.MarkCancelled()
	if err := r.store.UpdateJob(ctx, job, expected); err != nil {
		return err
	}

	if cancel, ok := r.running.Load(jobID); ok {
		cancel.(context.CancelFunc)()
	}
	return nil
}

// Handler is the queue.JobHandler the worker pool drives. It loads the
// full job record, runs the pipeline, and persists the terminal state.
func (r *Runtime) Handler(ctx context.Context, qjob *queue.Job) error {
	jobID, _ := qjob.Payload["job_id"].(string)
	if jobID == "" {
		return cserrors.Internal("queue job missing job_id", nil)
	}

	job, err := r.store.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.State == models.JobCancelled {
		return nil // cancelled before a worker claimed it; nothing to do
	}

	stageCtx, cancel := context.WithTimeout(ctx, r.jobTimeout)
	defer cancel()
	r.running.Store(jobID, cancel)
	defer r.running.Delete(jobID)

	wd := newStageWatchdog(r.stageWatchdog, cancel)
	go wd.run(stageCtx)

	expected := job.UpdateToken
	job.MarkRunning()
	if err := r.store.UpdateJob(ctx, job, expected); err != nil {
		return err
	}

	result, pipelineErr := r.runPipeline(stageCtx, job, wd)

	if pipelineErr != nil {
		return r.finish(ctx, job, nil, pipelineErr)
	}
	return r.finish(ctx, job, result, nil)
}

// finish persists the job's terminal state, classifying pipelineErr into
// the §7 taxonomy.
func (r *Runtime) finish(ctx context.Context, job *models.Job, result *models.JobResult, pipelineErr error) error {
	expected := job.UpdateToken

	switch {
	case pipelineErr == nil:
		job.MarkCompleted(result)
		if err := r.store.UpdateJob(ctx, job, expected); err != nil {
			return err
		}
		if r.metrics != nil {
			r.metrics.RecordWorkerJob(job.ClaimedBy, "completed", 0)
		}
		if r.events != nil {
			r.events.EmitJobCompleted(job.JobID, result.Metadata.Total, result.Metadata.Verified)
		}
		return nil

	case job.State == models.JobCancelled:
		// Cancel() already persisted the cancelled state; nothing to do.
		return nil

	default:
		kind, message := classifyPipelineError(pipelineErr)
		if kind == cserrors.KindCancelled {
			job.MarkCancelled()
		} else {
			job.MarkFailed(kind, message)
		}
		if err := r.store.UpdateJob(ctx, job, expected); err != nil {
			return err
		}
		if r.metrics != nil {
			r.metrics.RecordWorkerJob(job.ClaimedBy, "failed", 0)
		}
		if r.events != nil && job.Error != nil {
			r.events.EmitJobFailed(job.JobID, string(job.Error.Kind), job.Error.Message)
		}
		// Transient failures are returned so the queue's retry/DLQ policy
		// applies; terminal ones are already recorded and acked.
		if kind == cserrors.KindTransientExternal {
			return pipelineErr
		}
		return nil
	}
}

func classifyPipelineError(err error) (cserrors.Kind, string) {
	var cserr *cserrors.CaseStrainerError
	if ok := asCaseStrainerError(err, &cserr); ok {
		return cserr.Kind, cserr.Message
	}
	if err == context.DeadlineExceeded {
		return cserrors.KindStalled, "job exceeded its timeout"
	}
	return cserrors.KindInternal, err.Error()
}

func asCaseStrainerError(err error, target **cserrors.CaseStrainerError) bool {
	type unwrapper interface{ Unwrap() error }
	for err != nil {
		if cserr, ok := err.(*cserrors.CaseStrainerError); ok {
			*target = cserr
			return true
		}
		u, ok := err.(unwrapper)
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// cachedExtraction is the §4.7 extraction-namespace payload: everything the
// pipeline computes up to (but not including) verification, keyed by a hash
// of the raw source text so an identical resubmission skips straight to
// the Verifier.
type cachedExtraction struct {
	Occurrences []models.CitationOccurrence `json:"occurrences"`
	Names       []models.ExtractedName      `json:"names"`
	Clusters    []models.Cluster            `json:"clusters"`
}

// runPipeline runs the full leaves-first pipeline: Extractor -> Isolator
// -> Case Name Extractor -> Cluster Builder -> Verifier, reporting
// weighted progress at each stage boundary. Extraction through clustering
// is skipped on a cache hit keyed by the source text (§4.7).
func (r *Runtime) runPipeline(ctx context.Context, job *models.Job, wd *stageWatchdog) (*models.JobResult, error) {
	timing := models.JobResultTiming{}

	text, err := r.loader.Load(ctx, job.InputDescriptor, job.InputDescriptor.Text)
	if err != nil {
		return nil, err
	}

	textHash := cache.ExtractionKey(text)
	var cached cachedExtraction
	hit, err := r.cache.GetExtraction(ctx, textHash, &cached)
	if err != nil {
		return nil, fmt.Errorf("jobs: extraction cache lookup: %w", err)
	}

	var occurrences []models.CitationOccurrence
	var names []models.ExtractedName
	var clusters []models.Cluster

	if hit {
		occurrences = cached.Occurrences
		names = cached.Names
		clusters = cached.Clusters

		if err := r.reportProgress(ctx, job, wd, weightExtraction+weightNaming+weightClustering, "clustering", len(occurrences), len(occurrences)); err != nil {
			return nil, err
		}
		if err := checkCancelled(ctx, wd); err != nil {
			return nil, err
		}
	} else {
		stageStart := time.Now()
		occurrences = r.extractor.Extract(text)
		timing.ExtractionSeconds = time.Since(stageStart).Seconds()
		if err := r.reportProgress(ctx, job, wd, weightExtraction, "extraction", len(occurrences), 0); err != nil {
			return nil, err
		}
		if err := checkCancelled(ctx, wd); err != nil {
			return nil, err
		}

		stageStart = time.Now()
		contexts := r.isolator.Isolate(text, occurrences)
		names = make([]models.ExtractedName, len(contexts))
		for i, ic := range contexts {
			names[i] = r.nameExtractor.Extract(ic)
		}
		timing.IsolationSeconds = time.Since(stageStart).Seconds()
		if err := r.reportProgress(ctx, job, wd, weightExtraction+weightNaming, "case_name_extraction", len(occurrences), len(occurrences)); err != nil {
			return nil, err
		}
		if err := checkCancelled(ctx, wd); err != nil {
			return nil, err
		}

		stageStart = time.Now()
		clusters = cluster.Build(text, occurrences, names)
		timing.ClusteringSeconds = time.Since(stageStart).Seconds()
		if err := r.reportProgress(ctx, job, wd, weightExtraction+weightNaming+weightClustering, "clustering", len(occurrences), len(occurrences)); err != nil {
			return nil, err
		}
		if err := checkCancelled(ctx, wd); err != nil {
			return nil, err
		}

		if err := r.cache.StoreExtraction(ctx, textHash, cachedExtraction{
			Occurrences: occurrences,
			Names:       names,
			Clusters:    clusters,
		}); err != nil {
			return nil, fmt.Errorf("jobs: extraction cache store: %w", err)
		}
	}

	verificationStart := time.Now()
	metadata := models.JobResultMetadata{Total: len(clusters)}
	for _, o := range occurrences {
		if o.Kind != models.KindCase {
			metadata.StatutesExcluded++
		}
	}

	for done := range clusters {
		if err := checkCancelled(ctx, wd); err != nil {
			return nil, err
		}
		if err := r.verifier.Verify(ctx, &clusters[done]); err != nil {
			return nil, err
		}

		switch clusters[done].VerificationStatus {
		case models.StatusVerified:
			metadata.Verified++
		case models.StatusVerifiedByParallel:
			metadata.VerifiedByParallel++
		case models.StatusFailed:
			metadata.Failed++
		default:
			metadata.Unverified++
		}

		progress := weightExtraction + weightNaming + weightClustering +
			int(float64(weightVerification)*float64(done+1)/float64(len(clusters)+1))
		if err := r.reportProgress(ctx, job, wd, progress, "verification", len(clusters), done+1); err != nil {
			return nil, err
		}
	}
	timing.VerificationSeconds = time.Since(verificationStart).Seconds()

	return &models.JobResult{
		Clusters:  clusters,
		Citations: occurrences,
		Metadata:  metadata,
		Timing:    timing,
	}, nil
}

func (r *Runtime) reportProgress(ctx context.Context, job *models.Job, wd *stageWatchdog, progress int, step string, total, processed int) error {
	wd.touch()
	expected := job.UpdateToken
	job.SetProgress(progress, step, estimateETA(progress), total, processed)
	if err := r.store.UpdateJob(ctx, job, expected); err != nil {
		return err
	}
	if r.events != nil {
		r.events.EmitJobProgress(job.JobID, job.Progress, job.CurrentStep, job.ETASeconds)
	}
	return nil
}

// estimateETA is a coarse linear estimate; the Submission API surfaces it
// as advisory only.
func estimateETA(progress int) int {
	if progress >= 100 {
		return 0
	}
	return (100 - progress) / 2
}

func checkCancelled(ctx context.Context, wd *stageWatchdog) error {
	select {
	case <-ctx.Done():
		if wd.isStalled() {
			return cserrors.Stalled("no progress for watchdog interval")
		}
		if ctx.Err() == context.DeadlineExceeded {
			return cserrors.Stalled("job exceeded its timeout")
		}
		return cserrors.Cancelled("job cancelled")
	default:
		return nil
	}
}
