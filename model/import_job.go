package model

import "time"

// ImportJobStatus represents the status of an import extraction job
type ImportJobStatus string

const (
	ImportJobPending    ImportJobStatus = "pending"
	ImportJobProcessing ImportJobStatus = "processing"
	ImportJobCompleted  ImportJobStatus = "completed"
	ImportJobFailed     ImportJobStatus = "failed"
	ImportJobCancelled  ImportJobStatus = "cancelled"
)

// ImportJob represents the state of an extraction run stored in Redis.
// It mirrors the progress events streamed to the reviewer so a reconnecting
// client can recover the current position.
type ImportJob struct {
	JobID        string          `json:"job_id"`
	UserID       uint            `json:"user_id"`
	SessionID    string          `json:"session_id"`
	Status       ImportJobStatus `json:"status"`
	Progress     int             `json:"progress"`      // 0-100
	CurrentPhase string          `json:"current_phase"` // "rasterize", "extraction", "normalize", "duplicates"
	Message      string          `json:"message"`

	// Batch tracking
	TotalBatches     int `json:"total_batches,omitempty"`
	CompletedBatches int `json:"completed_batches,omitempty"`

	// Error tracking
	Error        string `json:"error,omitempty"`
	ErrorDetails string `json:"error_details,omitempty"`

	// Timestamps
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Redis key patterns for import jobs
const (
	// RedisKeyImportJob stores the full job state as JSON
	// Usage: fmt.Sprintf(RedisKeyImportJob, jobID)
	RedisKeyImportJob = "import:job:%s"

	// RedisKeyActiveImport tracks the active job ID for a user
	// Usage: fmt.Sprintf(RedisKeyActiveImport, userID)
	RedisKeyActiveImport = "import:active:%d"
)
