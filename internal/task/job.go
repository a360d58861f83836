package task

import (
	stdErrors "errors"

	xerrors "SongForge/internal/errors"
	"SongForge/internal/studio"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Job is one queued song generation.
type Job struct {
	ID         string             `json:"id"`
	Request    studio.SongRequest `json:"request"`
	Metadata   map[string]string  `json:"metadata,omitempty"`
	Status     Status             `json:"status"`
	Attempts   int                `json:"attempts"`
	MaxRetries int                `json:"maxRetries"`
	LastError  string             `json:"lastError,omitempty"`
	ErrorCode  string             `json:"errorCode,omitempty"`
	Result     *studio.Song       `json:"result,omitempty"`
	CreatedAt  int64              `json:"createdAt"`
	UpdatedAt  int64              `json:"updatedAt"`
}

// Title is the generated song title, or "" before success.
func (j *Job) Title() string {
	if j == nil || j.Result == nil {
		return ""
	}
	return j.Result.Title
}

// Done reports whether the job reached a final state from the caller's view.
func (j *Job) Done() bool {
	switch j.Status {
	case StatusSucceeded:
		return true
	case StatusFailed:
		return j.Attempts >= j.MaxRetries || !xerrors.AttributesOf(xerrors.Code(j.ErrorCode)).Retryable
	}
	return false
}

const (
	CodeJobNotFound   xerrors.Code = "JOB_NOT_FOUND"
	CodeJobConflict   xerrors.Code = "JOB_CONFLICT"
	CodeJobCompleted  xerrors.Code = "JOB_COMPLETED"
	CodeJobExhausted  xerrors.Code = "JOB_RETRIES_EXHAUSTED"
	CodeJobValidation xerrors.Code = "JOB_VALIDATION_FAILED"
	CodeJobPublish    xerrors.Code = "JOB_PUBLISH_FAILED"
	CodeJobProcessing xerrors.Code = "JOB_PROCESSING_FAILED"
	CodeJobCompensate xerrors.Code = "JOB_COMPENSATION_FAILED"
)

func init() {
	xerrors.Register(CodeJobNotFound, xerrors.Attributes{Message: "job not found", Severity: xerrors.SeverityInfo})
	xerrors.Register(CodeJobConflict, xerrors.Attributes{Message: "job conflict", Severity: xerrors.SeverityWarning})
	xerrors.Register(CodeJobCompleted, xerrors.Attributes{Message: "job already completed", Severity: xerrors.SeverityInfo})
	xerrors.Register(CodeJobExhausted, xerrors.Attributes{Message: "job retries exhausted", Severity: xerrors.SeverityCritical, Alert: true})
	xerrors.Register(CodeJobValidation, xerrors.Attributes{Message: "job validation failed", Severity: xerrors.SeverityInfo})
	xerrors.Register(CodeJobPublish, xerrors.Attributes{Message: "failed to publish job", Severity: xerrors.SeverityCritical, Retryable: true, Alert: true})
	xerrors.Register(CodeJobProcessing, xerrors.Attributes{Message: "job execution failed", Severity: xerrors.SeverityWarning, Retryable: true, Alert: true})
	xerrors.Register(CodeJobCompensate, xerrors.Attributes{Message: "job compensation failed", Severity: xerrors.SeverityCritical, Alert: true})
}

var (
	ErrJobNotFound  = xerrors.New(CodeJobNotFound, "job not found")
	ErrJobConflict  = xerrors.New(CodeJobConflict, "job conflict")
	ErrJobCompleted = xerrors.New(CodeJobCompleted, "job already completed")
	ErrJobExhausted = xerrors.New(CodeJobExhausted, "job retries exhausted")
)

// IsJobError reports whether err is one of the sentinel job errors with code target.
func IsJobError(err error, target xerrors.Code) bool {
	for _, sentinel := range []error{ErrJobNotFound, ErrJobConflict, ErrJobCompleted, ErrJobExhausted} {
		if stdErrors.Is(err, sentinel) {
			return xerrors.CodeOf(sentinel) == target
		}
	}
	return false
}

// IsValidStatus reports whether status is a known state.
func IsValidStatus(status Status) bool {
	switch status {
	case StatusPending, StatusRunning, StatusSucceeded, StatusFailed:
		return true
	default:
		return false
	}
}

func cloneMetadata(metadata map[string]string) map[string]string {
	if metadata == nil {
		return nil
	}
	cloned := make(map[string]string, len(metadata))
	for k, v := range metadata {
		cloned[k] = v
	}
	return cloned
}

func cloneJob(job *Job) *Job {
	clone := *job
	clone.Metadata = cloneMetadata(job.Metadata)
	if job.Result != nil {
		song := *job.Result
		clone.Result = &song
	}
	if job.Request.Params != nil {
		params := *job.Request.Params
		clone.Request.Params = &params
	}
	if job.Request.Sentiment != nil {
		s := *job.Request.Sentiment
		clone.Request.Sentiment = &s
	}
	return &clone
}
