package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobStatus defines the lifecycle state of a render job. Completed and failed
// are terminal.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// ErrJobNotFound is returned when no job exists for the given id.
var ErrJobNotFound = errors.New("job not found")

// Job is one render job. Only the orchestrator mutates it; progress queries
// read it concurrently.
type Job struct {
	ID          string
	Status      JobStatus
	Progress    float64
	Message     string
	StemsJSON   string
	PlanJSON    string
	MixJSON     string
	MashupURI   string
	ProjectURI  string
	Error       string
	Attempts    int
	MaxAttempts int
	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// CreateJob enqueues a render job and returns its id.
func (d *DB) CreateJob(stems, plan, mix any) (string, error) {
	stemsJSON, err := json.Marshal(stems)
	if err != nil {
		return "", fmt.Errorf("marshal stems: %w", err)
	}
	planJSON, err := json.Marshal(plan)
	if err != nil {
		return "", fmt.Errorf("marshal plan: %w", err)
	}
	mixJSON, err := json.Marshal(mix)
	if err != nil {
		return "", fmt.Errorf("marshal mix params: %w", err)
	}

	id := uuid.NewString()
	_, err = d.db.Exec(`
		INSERT INTO jobs (id, status, stems_json, plan_json, mix_json)
		VALUES (?, ?, ?, ?, ?)
	`, id, string(JobStatusQueued), string(stemsJSON), string(planJSON), string(mixJSON))
	if err != nil {
		return "", fmt.Errorf("insert job: %w", err)
	}
	return id, nil
}

// ClaimJob atomically claims the oldest queued job, marking it processing.
// Returns nil when no job is available.
func (d *DB) ClaimJob() (*Job, error) {
	tx, err := d.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	row := tx.QueryRow(`
		SELECT id, status, progress, message, stems_json, plan_json, mix_json,
		       attempts, max_attempts, created_at
		FROM jobs
		WHERE status = ? AND attempts < max_attempts
		ORDER BY created_at ASC
		LIMIT 1
	`, string(JobStatusQueued))

	job := &Job{}
	var createdAt string
	if err := row.Scan(&job.ID, &job.Status, &job.Progress, &job.Message,
		&job.StemsJSON, &job.PlanJSON, &job.MixJSON,
		&job.Attempts, &job.MaxAttempts, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	job.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)

	now := time.Now()
	_, err = tx.Exec(`
		UPDATE jobs SET status = ?, started_at = ?, attempts = attempts + 1
		WHERE id = ?
	`, string(JobStatusProcessing), now, job.ID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	job.Status = JobStatusProcessing
	job.Attempts++
	job.StartedAt = &now
	return job, nil
}

// UpdateProgress records advisory progress and a short status message.
func (d *DB) UpdateProgress(jobID string, progress float64, message string) error {
	_, err := d.db.Exec(`
		UPDATE jobs SET progress = ?, message = ? WHERE id = ?
	`, progress, message, jobID)
	return err
}

// CompleteJob marks a job completed with its published artifact URIs.
func (d *DB) CompleteJob(jobID, mashupURI, projectURI string) error {
	now := time.Now()
	_, err := d.db.Exec(`
		UPDATE jobs SET status = ?, progress = 1.0, message = 'done',
		       mashup_uri = ?, project_uri = ?, completed_at = ?
		WHERE id = ?
	`, string(JobStatusCompleted), mashupURI, projectURI, now, jobID)
	return err
}

// FailJob marks a job failed with a bounded error message.
func (d *DB) FailJob(jobID, errMsg string) error {
	if len(errMsg) > 500 {
		errMsg = errMsg[:500]
	}
	now := time.Now()
	_, err := d.db.Exec(`
		UPDATE jobs SET status = ?, error = ?, message = ?, completed_at = ?
		WHERE id = ?
	`, string(JobStatusFailed), errMsg, errMsg, now, jobID)
	return err
}

// GetJob fetches a job by id.
func (d *DB) GetJob(jobID string) (*Job, error) {
	row := d.db.QueryRow(`
		SELECT id, status, progress, message, stems_json, plan_json, mix_json,
		       mashup_uri, project_uri, error, attempts, max_attempts, created_at
		FROM jobs WHERE id = ?
	`, jobID)

	job := &Job{}
	var createdAt string
	if err := row.Scan(&job.ID, &job.Status, &job.Progress, &job.Message,
		&job.StemsJSON, &job.PlanJSON, &job.MixJSON,
		&job.MashupURI, &job.ProjectURI, &job.Error,
		&job.Attempts, &job.MaxAttempts, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	job.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return job, nil
}

// RecordArtifact indexes a published artifact under its store key.
func (d *DB) RecordArtifact(key, jobID, uri, sha string, size int64) error {
	_, err := d.db.Exec(`
		INSERT INTO artifacts (key, job_id, uri, size, sha256)
		VALUES (?, ?, ?, ?, ?)
	`, key, jobID, uri, size, sha)
	return err
}

// DeleteArtifactsForJob removes the artifact index rows for a job. Used when
// cancellation deletes partial outputs.
func (d *DB) DeleteArtifactsForJob(jobID string) error {
	_, err := d.db.Exec("DELETE FROM artifacts WHERE job_id = ?", jobID)
	return err
}
