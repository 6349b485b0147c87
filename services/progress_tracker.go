package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/adityarawat/examdesk/model"
	"github.com/adityarawat/examdesk/utils/cache"
)

// TTL configurations for job states
const (
	JobStateTTLSuccess = 1 * time.Hour
	JobStateTTLFailure = 24 * time.Hour
	JobStateTTLPending = 24 * time.Hour
)

// ErrTrackerUnavailable is returned when job state cannot be persisted
// because Redis is not configured. Extraction still runs; only resumable
// status reads are lost.
var ErrTrackerUnavailable = errors.New("progress tracker unavailable: redis not configured")

// ProgressEvent is one progress update of an extraction run, streamed to the
// client over SSE and mirrored into Redis
type ProgressEvent struct {
	Type  string `json:"type"` // "started", "progress", "warning", "complete", "error"
	JobID string `json:"job_id"`

	Progress int    `json:"progress"` // 0-100
	Phase    string `json:"phase"`
	Message  string `json:"message"`

	TotalBatches     int    `json:"total_batches,omitempty"`
	CompletedBatches int    `json:"completed_batches,omitempty"`
	CurrentBatch     int    `json:"current_batch,omitempty"`
	PageRange        string `json:"page_range,omitempty"`

	ErrorMessage string `json:"error_message,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// ProgressTracker keeps extraction job state in Redis so a reconnecting
// client can recover the run's position
type ProgressTracker struct {
	cache *cache.RedisCache
}

// NewProgressTracker creates a new progress tracker instance
func NewProgressTracker(redisCache *cache.RedisCache) *ProgressTracker {
	return &ProgressTracker{cache: redisCache}
}

// CreateJob creates a new extraction job and marks it as active for the user
func (pt *ProgressTracker) CreateJob(ctx context.Context, userID uint, sessionID string) (*model.ImportJob, error) {
	if pt.cache == nil {
		return nil, ErrTrackerUnavailable
	}

	jobID := fmt.Sprintf("%s_%d", sessionID, time.Now().Unix())

	job := &model.ImportJob{
		JobID:        jobID,
		UserID:       userID,
		SessionID:    sessionID,
		Status:       model.ImportJobPending,
		Progress:     0,
		CurrentPhase: "initializing",
		Message:      "Extraction queued",
		StartedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	jobKey := fmt.Sprintf(model.RedisKeyImportJob, jobID)
	if err := pt.cache.SetJSON(ctx, jobKey, job, JobStateTTLPending); err != nil {
		return nil, fmt.Errorf("failed to save job state: %w", err)
	}

	activeKey := fmt.Sprintf(model.RedisKeyActiveImport, userID)
	if err := pt.cache.Set(ctx, activeKey, jobID, JobStateTTLPending); err != nil {
		pt.cache.Delete(ctx, jobKey)
		return nil, fmt.Errorf("failed to mark job as active: %w", err)
	}

	return job, nil
}

// UpdateProgress folds a progress event into the stored job state
func (pt *ProgressTracker) UpdateProgress(ctx context.Context, jobID string, event ProgressEvent) error {
	if pt.cache == nil {
		return ErrTrackerUnavailable
	}

	job, err := pt.GetJob(ctx, jobID)
	if err != nil {
		return err
	}

	job.Progress = event.Progress
	job.CurrentPhase = event.Phase
	job.Message = event.Message
	job.UpdatedAt = time.Now()

	if event.TotalBatches > 0 {
		job.TotalBatches = event.TotalBatches
	}
	if event.CompletedBatches > 0 {
		job.CompletedBatches = event.CompletedBatches
	}

	switch event.Type {
	case "started":
		job.Status = model.ImportJobProcessing
	case "complete":
		job.Status = model.ImportJobCompleted
		now := time.Now()
		job.CompletedAt = &now
	case "error":
		job.Status = model.ImportJobFailed
		job.Error = event.ErrorMessage
		now := time.Now()
		job.CompletedAt = &now
	}

	ttl := JobStateTTLPending
	if job.Status == model.ImportJobCompleted {
		ttl = JobStateTTLSuccess
	} else if job.Status == model.ImportJobFailed {
		ttl = JobStateTTLFailure
	}

	jobKey := fmt.Sprintf(model.RedisKeyImportJob, jobID)
	if err := pt.cache.SetJSON(ctx, jobKey, job, ttl); err != nil {
		return fmt.Errorf("failed to update job state: %w", err)
	}

	if job.Status == model.ImportJobCompleted || job.Status == model.ImportJobFailed {
		activeKey := fmt.Sprintf(model.RedisKeyActiveImport, job.UserID)
		pt.cache.Delete(ctx, activeKey)
	}

	return nil
}

// GetJob retrieves job state from Redis
func (pt *ProgressTracker) GetJob(ctx context.Context, jobID string) (*model.ImportJob, error) {
	if pt.cache == nil {
		return nil, ErrTrackerUnavailable
	}

	jobKey := fmt.Sprintf(model.RedisKeyImportJob, jobID)

	var job model.ImportJob
	if err := pt.cache.GetJSON(ctx, jobKey, &job); err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return nil, fmt.Errorf("job not found or expired: %s", jobID)
		}
		return nil, fmt.Errorf("failed to get job state: %w", err)
	}

	return &job, nil
}

// GetActiveJob returns the active job ID for a user (empty if none)
func (pt *ProgressTracker) GetActiveJob(ctx context.Context, userID uint) (string, error) {
	if pt.cache == nil {
		return "", nil
	}

	activeKey := fmt.Sprintf(model.RedisKeyActiveImport, userID)
	jobID, err := pt.cache.Get(ctx, activeKey)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	return jobID, nil
}

// ClearActiveJob removes the active job reference for a user
func (pt *ProgressTracker) ClearActiveJob(ctx context.Context, userID uint) error {
	if pt.cache == nil {
		return nil
	}

	activeKey := fmt.Sprintf(model.RedisKeyActiveImport, userID)
	return pt.cache.Delete(ctx, activeKey)
}

// CalculateProgress maps a run phase and batch position onto 0-100. The
// extraction phase spans 10-85; normalization and duplicate checking fill the
// remainder.
func CalculateProgress(phase string, completedBatches, totalBatches int) int {
	switch phase {
	case "initializing":
		return 0
	case "extraction":
		if totalBatches == 0 {
			return 10
		}
		increment := 75.0 / float64(totalBatches)
		progress := 10 + int(float64(completedBatches)*increment)
		if progress > 85 {
			progress = 85
		}
		return progress
	case "normalize":
		return 90
	case "duplicates":
		return 95
	case "complete":
		return 100
	default:
		return 0
	}
}
