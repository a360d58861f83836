package task

import (
	"context"
	stdErrors "errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	xerrors "SongForge/internal/errors"
	"SongForge/internal/studio"
	"SongForge/pkg/logger"
)

// SubmitRequest asks for an asynchronous song. A non-empty ID makes the
// submission idempotent.
type SubmitRequest struct {
	ID       string             `json:"id,omitempty"`
	Song     studio.SongRequest `json:"song"`
	Metadata map[string]string  `json:"metadata,omitempty"`
}

// Service creates and queries jobs.
type Service struct {
	store      Store
	producer   Producer
	maxRetries int
}

// NewService builds a Service. maxRetries defaults to 3.
func NewService(store Store, producer Producer, maxRetries int) *Service {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Service{store: store, producer: producer, maxRetries: maxRetries}
}

// Submit stores a pending job and publishes its id. Resubmitting a known id
// returns the existing job.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*Job, error) {
	if strings.TrimSpace(req.Song.PresetID) == "" && req.Song.Params == nil {
		return nil, xerrors.New(CodeJobValidation, "song request needs a presetId or params")
	}
	if s.store == nil || s.producer == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "job service not initialized")
	}

	jobID := strings.TrimSpace(req.ID)
	if jobID != "" {
		existing, err := s.store.Get(ctx, jobID)
		if err == nil {
			return existing, nil
		}
		if !stdErrors.Is(err, ErrJobNotFound) {
			return nil, err
		}
	} else {
		jobID = uuid.NewString()
	}

	job := &Job{
		ID:         jobID,
		Request:    req.Song,
		Metadata:   cloneMetadata(req.Metadata),
		Status:     StatusPending,
		MaxRetries: s.maxRetries,
	}
	if err := s.store.Create(ctx, job); err != nil {
		if stdErrors.Is(err, ErrJobConflict) {
			if existing, getErr := s.store.Get(ctx, jobID); getErr == nil {
				return existing, nil
			}
		}
		return nil, err
	}
	if err := s.producer.Publish(ctx, jobID); err != nil {
		logger.L().Error("job publish failed", slog.Any("error", err), slog.String("job_id", jobID))
		wrapped := xerrors.Wrap(CodeJobPublish, err, "publish job to queue")
		_ = s.store.MarkFailed(ctx, jobID, CodeJobPublish, wrapped.Error())
		return nil, wrapped
	}
	logger.Audit().Info("job queued",
		slog.String("job_id", jobID),
		slog.String("preset_id", req.Song.PresetID),
		slog.Int("max_retries", job.MaxRetries),
	)
	return job, nil
}

// Get returns one job.
func (s *Service) Get(ctx context.Context, id string) (*Job, error) {
	if s.store == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "job store not initialized")
	}
	return s.store.Get(ctx, id)
}

// List returns jobs matching opts.
func (s *Service) List(ctx context.Context, opts ...ListOption) ([]*Job, error) {
	if s.store == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "job store not initialized")
	}
	return s.store.List(ctx, BuildListOptions(opts))
}

// Stats aggregates jobs matching opts.
func (s *Service) Stats(ctx context.Context, opts ...ListOption) (Stats, error) {
	if s.store == nil {
		return Stats{}, xerrors.New(xerrors.CodeInitializationFailure, "job store not initialized")
	}
	return s.store.Stats(ctx, BuildListOptions(opts))
}

// Close releases the store and the producer.
func (s *Service) Close() error {
	var errs []error
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}
	if s.producer != nil {
		errs = append(errs, s.producer.Close())
	}
	return stdErrors.Join(errs...)
}

// WaitUntilCompleted polls until the job is done or ctx ends.
func (s *Service) WaitUntilCompleted(ctx context.Context, id string, interval time.Duration) (*Job, error) {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		job, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if job.Done() {
			return job, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
