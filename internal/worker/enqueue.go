package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/DukeRupert/loadshare/internal/repository"
	"github.com/google/uuid"
)

// Job type constants - these must match the JobHandler.Type() values
const (
	JobTypeGenerateThumbnail = "generate_thumbnail"
	JobTypePurgeSessions     = "purge_sessions"
)

// Priority constants for job scheduling
const (
	PriorityLow    = 0
	PriorityNormal = 10
	PriorityHigh   = 20
)

// DefaultMaxAttempts is used unless WithMaxAttempts overrides it.
const DefaultMaxAttempts = 3

// GenerateThumbnailPayload is the payload for thumbnail generation jobs.
type GenerateThumbnailPayload struct {
	ImageID uuid.UUID `json:"image_id"`
	LoadID  uuid.UUID `json:"load_id"`
}

// EnqueueOption is a functional option for customizing job enqueue parameters.
type EnqueueOption func(*repository.EnqueueJobParams)

// WithPriority sets the job priority.
func WithPriority(priority int32) EnqueueOption {
	return func(p *repository.EnqueueJobParams) {
		p.Priority = priority
	}
}

// WithMaxAttempts sets the maximum number of attempts.
func WithMaxAttempts(attempts int32) EnqueueOption {
	return func(p *repository.EnqueueJobParams) {
		p.MaxAttempts = attempts
	}
}

// WithDelay schedules the job to run after a delay.
func WithDelay(delay time.Duration) EnqueueOption {
	return func(p *repository.EnqueueJobParams) {
		p.ScheduledAt = p.ScheduledAt.Add(delay)
	}
}

// NewEnqueueParams builds the insert parameters for a job. It is separated
// from EnqueueJob so callers inside a transaction can reuse it.
func NewEnqueueParams(jobType string, payload any, opts ...EnqueueOption) (repository.EnqueueJobParams, error) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return repository.EnqueueJobParams{}, fmt.Errorf("marshal payload: %w", err)
	}

	params := repository.EnqueueJobParams{
		JobType:     jobType,
		Payload:     payloadJSON,
		Priority:    PriorityNormal,
		MaxAttempts: DefaultMaxAttempts,
		ScheduledAt: time.Now(),
	}
	for _, opt := range opts {
		opt(&params)
	}
	return params, nil
}

// EnqueueJob inserts a job of the given type.
func EnqueueJob(ctx context.Context, queries *repository.Queries, jobType string, payload any, opts ...EnqueueOption) (repository.Job, error) {
	params, err := NewEnqueueParams(jobType, payload, opts...)
	if err != nil {
		return repository.Job{}, err
	}

	job, err := queries.EnqueueJob(ctx, params)
	if err != nil {
		return repository.Job{}, fmt.Errorf("enqueue job: %w", err)
	}
	return job, nil
}

// EnqueueGenerateThumbnail schedules thumbnail generation for an uploaded
// load photo.
func EnqueueGenerateThumbnail(ctx context.Context, queries *repository.Queries, loadID, imageID uuid.UUID, opts ...EnqueueOption) (repository.Job, error) {
	payload := GenerateThumbnailPayload{ImageID: imageID, LoadID: loadID}
	return EnqueueJob(ctx, queries, JobTypeGenerateThumbnail, payload, append([]EnqueueOption{WithPriority(PriorityHigh)}, opts...)...)
}

// EnqueuePurgeSessions schedules removal of expired sessions.
func EnqueuePurgeSessions(ctx context.Context, queries *repository.Queries, opts ...EnqueueOption) (repository.Job, error) {
	return EnqueueJob(ctx, queries, JobTypePurgeSessions, struct{}{}, append([]EnqueueOption{WithPriority(PriorityLow)}, opts...)...)
}
