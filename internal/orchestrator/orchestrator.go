package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/songmash/lisbon/internal/analysis"
	"github.com/songmash/lisbon/internal/audio"
	"github.com/songmash/lisbon/internal/planner"
	"github.com/songmash/lisbon/internal/render"
	"github.com/songmash/lisbon/internal/storage"
)

const (
	pollInterval    = time.Second
	publishRetries  = 2
	publishBackoff  = time.Second
	publishTimeout  = 60 * time.Second
	progressFetch   = 0.10
	progressRender  = 0.80 // render stages map into (fetch, renderEnd]
	progressPublish = 0.95
)

// Orchestrator owns the job lifecycle. It is the single writer of the job
// registry; progress queries read concurrently.
type Orchestrator struct {
	db       *storage.DB
	store    storage.ArtifactStore
	renderer *render.Renderer
	logger   *slog.Logger
	workers  int
}

// New wires the orchestrator. workers bounds the number of jobs rendered in
// parallel.
func New(db *storage.DB, store storage.ArtifactStore, renderer *render.Renderer, workers int, logger *slog.Logger) *Orchestrator {
	if workers < 1 {
		workers = 1
	}
	return &Orchestrator{db: db, store: store, renderer: renderer, logger: logger, workers: workers}
}

// Submit validates a render request and enqueues it, returning the job id.
func (o *Orchestrator) Submit(req Request) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	id, err := o.db.CreateJob(req.Stems, req.Plan, req.Mix)
	if err != nil {
		return "", fmt.Errorf("%w: %v", storage.ErrArtifactIO, err)
	}
	o.logger.Info("job queued", "job", id, "recipe", req.Plan.Recipe)
	return id, nil
}

// Job returns the current registry row for a job.
func (o *Orchestrator) Job(id string) (*storage.Job, error) {
	return o.db.GetJob(id)
}

// Run processes queued jobs on the worker pool until ctx is cancelled.
func (o *Orchestrator) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < o.workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			o.workLoop(ctx, worker)
		}(i)
	}
	wg.Wait()
}

func (o *Orchestrator) workLoop(ctx context.Context, worker int) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		job, err := o.db.ClaimJob()
		if err != nil {
			o.logger.Error("claim job failed", "worker", worker, "error", err)
			continue
		}
		if job == nil {
			continue
		}
		o.logger.Info("job claimed", "worker", worker, "job", job.ID)
		o.process(ctx, job)
	}
}

// RunOne claims and processes a single queued job; used by tests. Returns
// false when the queue is empty.
func (o *Orchestrator) RunOne(ctx context.Context) (bool, error) {
	job, err := o.db.ClaimJob()
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}
	o.process(ctx, job)
	return true, nil
}

// process runs one job through fetch, render, master, publish. The temp dir
// is unlinked on every exit path.
func (o *Orchestrator) process(ctx context.Context, job *storage.Job) {
	workDir, err := os.MkdirTemp("", "masher-"+job.ID)
	if err != nil {
		o.fail(job.ID, fmt.Errorf("%w: %v", storage.ErrArtifactIO, err))
		return
	}
	defer os.RemoveAll(workDir)

	var (
		stems RequestStems
		plan  planner.Plan
		mix   render.MixParams
	)
	if err := json.Unmarshal([]byte(job.StemsJSON), &stems); err != nil {
		o.fail(job.ID, fmt.Errorf("%w: %v", ErrInvalidRequest, err))
		return
	}
	if err := json.Unmarshal([]byte(job.PlanJSON), &plan); err != nil {
		o.fail(job.ID, fmt.Errorf("%w: %v", ErrInvalidRequest, err))
		return
	}
	if err := json.Unmarshal([]byte(job.MixJSON), &mix); err != nil {
		o.fail(job.ID, fmt.Errorf("%w: %v", ErrInvalidRequest, err))
		return
	}

	// Fetch stems.
	o.progress(job.ID, 0.01, "fetching stems")
	stemsA, err := o.loadStems(stems.A)
	if err != nil {
		o.fail(job.ID, err)
		return
	}
	stemsB, err := o.loadStems(stems.B)
	if err != nil {
		o.fail(job.ID, err)
		return
	}
	o.progress(job.ID, progressFetch, "stems loaded")
	if o.cancelled(ctx, job.ID) {
		return
	}

	// Render. Each worker renders through its own shallow copy so per-job
	// progress callbacks never race. Stage progress maps into
	// (fetch, renderEnd].
	renderer := *o.renderer
	renderer.Progress = func(stage string, frac float64) {
		p := progressFetch + frac*(progressRender-progressFetch)
		o.progress(job.ID, p, stage)
	}
	result, err := renderer.Render(ctx, stemsA, stemsB, plan, mix)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			o.cancelCleanup(ctx, job.ID)
			return
		}
		o.fail(job.ID, err)
		return
	}
	if o.cancelled(ctx, job.ID) {
		return
	}

	// Stage outputs locally.
	mashupPath := filepath.Join(workDir, "mashup.wav")
	if err := audio.WriteWAV24(mashupPath, result.Mix); err != nil {
		o.fail(job.ID, fmt.Errorf("%w: %v", render.ErrInternalDSP, err))
		return
	}
	descriptor := o.renderer.Describe(plan, mix, time.Now())
	descriptorJSON, err := descriptor.Marshal()
	if err != nil {
		o.fail(job.ID, fmt.Errorf("%w: %v", render.ErrInternalDSP, err))
		return
	}
	projectPath := filepath.Join(workDir, "project.json")
	if err := os.WriteFile(projectPath, descriptorJSON, 0o644); err != nil {
		o.fail(job.ID, fmt.Errorf("%w: %v", storage.ErrArtifactIO, err))
		return
	}
	if o.cancelled(ctx, job.ID) {
		return
	}

	// Publish.
	o.progress(job.ID, progressPublish, "publishing artifacts")
	mashupKey := "mashups/" + job.ID + ".wav"
	projectKey := "projects/" + job.ID + ".json"
	mashupURI, err := o.publish(ctx, job.ID, mashupKey, mashupPath)
	if err != nil {
		o.fail(job.ID, err)
		return
	}
	projectURI, err := o.publish(ctx, job.ID, projectKey, projectPath)
	if err != nil {
		// Partial publish: remove the mashup so failed jobs leave nothing.
		_ = o.store.Delete(ctx, mashupKey)
		_ = o.db.DeleteArtifactsForJob(job.ID)
		o.fail(job.ID, err)
		return
	}

	if err := o.db.CompleteJob(job.ID, mashupURI, projectURI); err != nil {
		o.logger.Error("complete job failed", "job", job.ID, "error", err)
		return
	}
	for _, hint := range result.Hints {
		o.logger.Info("render quality hint", "job", job.ID, "hint", hint)
	}
	o.logger.Info("job completed", "job", job.ID, "mashup", mashupURI)
}

func (o *Orchestrator) loadStems(uris StemURIs) (render.TrackStems, error) {
	stems := render.TrackStems{}
	for _, name := range render.StemNames {
		uri := uris.Get(name)
		if uri == "" {
			continue
		}
		path, err := resolveURI(uri)
		if err != nil {
			return nil, err
		}
		pcm, err := audio.Load(path, o.renderer.SampleRate)
		if err != nil {
			return nil, err
		}
		stems[name] = pcm
	}
	return stems, nil
}

// publish uploads one artifact with bounded retries on transient I/O errors.
// Deterministic failures (write-once violations) are not retried.
func (o *Orchestrator) publish(ctx context.Context, jobID, key, path string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= publishRetries; attempt++ {
		if attempt > 0 {
			backoff := publishBackoff << (attempt - 1)
			o.logger.Warn("retrying artifact publish", "key", key, "attempt", attempt, "backoff", backoff)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}
		putCtx, cancel := context.WithTimeout(ctx, publishTimeout)
		uri, err := o.store.Put(putCtx, key, path)
		cancel()
		if err == nil {
			sha, size, hashErr := storage.HashFile(path)
			if hashErr == nil {
				if recErr := o.db.RecordArtifact(key, jobID, uri, sha, size); recErr != nil {
					o.logger.Warn("artifact index write failed", "key", key, "error", recErr)
				}
			}
			return uri, nil
		}
		if errors.Is(err, storage.ErrArtifactExists) {
			return "", err
		}
		lastErr = err
	}
	return "", lastErr
}

// cancelled checks for cancellation at a stage boundary, cleaning up if so.
func (o *Orchestrator) cancelled(ctx context.Context, jobID string) bool {
	if ctx.Err() == nil {
		return false
	}
	o.cancelCleanup(ctx, jobID)
	return true
}

// cancelCleanup deletes partial outputs and terminates the job cleanly.
func (o *Orchestrator) cancelCleanup(ctx context.Context, jobID string) {
	cleanup, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	_ = o.store.Delete(cleanup, "mashups/"+jobID+".wav")
	_ = o.store.Delete(cleanup, "projects/"+jobID+".json")
	_ = o.db.DeleteArtifactsForJob(jobID)
	if err := o.db.FailJob(jobID, "cancelled"); err != nil {
		o.logger.Error("cancel cleanup failed", "job", jobID, "error", err)
	}
	o.logger.Info("job cancelled", "job", jobID)
}

func (o *Orchestrator) progress(jobID string, p float64, msg string) {
	if err := o.db.UpdateProgress(jobID, p, msg); err != nil {
		o.logger.Warn("progress update failed", "job", jobID, "error", err)
	}
}

func (o *Orchestrator) fail(jobID string, err error) {
	o.logger.Error("job failed", "job", jobID, "error", err)
	if dbErr := o.db.FailJob(jobID, boundMessage(err)); dbErr != nil {
		o.logger.Error("fail update failed", "job", jobID, "error", dbErr)
	}
}

// boundMessage maps errors onto short, path-free user-visible messages.
func boundMessage(err error) string {
	switch {
	case errors.Is(err, audio.ErrInvalidAudio):
		return "invalid audio input"
	case errors.Is(err, analysis.ErrTooShort):
		return "audio input too short"
	case errors.Is(err, planner.ErrUnknownRecipe):
		return "unknown recipe"
	case errors.Is(err, render.ErrMissingStem):
		return "required stem missing"
	case errors.Is(err, storage.ErrArtifactExists):
		return "artifact already published"
	case errors.Is(err, storage.ErrArtifactIO):
		return "artifact storage failure"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid render request"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "internal processing failure"
	}
}
