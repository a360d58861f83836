package task

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"time"

	xerrors "SongForge/internal/errors"
	"SongForge/internal/observability/alerting"
	"SongForge/internal/observability/metrics"
	"SongForge/internal/studio"
	"SongForge/pkg/logger"
)

// Generator produces a song; *studio.Studio satisfies it.
type Generator interface {
	Generate(ctx context.Context, req studio.SongRequest) (*studio.Song, error)
}

// Processor consumes job ids and runs them through a Generator.
type Processor struct {
	generator   Generator
	store       Store
	consumer    Consumer
	producer    Producer
	workerCount int
	logger      *slog.Logger
	recovery    RecoveryHandler
	alerter     alerting.Dispatcher
	metrics     *metrics.Metrics
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithProcessorLogger sets the debug logger.
func WithProcessorLogger(logger *slog.Logger) ProcessorOption {
	return func(p *Processor) {
		p.logger = logger
	}
}

// WithWorkerCount sets the number of consumer goroutines.
func WithWorkerCount(workers int) ProcessorOption {
	return func(p *Processor) {
		if workers > 0 {
			p.workerCount = workers
		}
	}
}

// WithRecoveryHandler installs a compensation strategy for non-retryable failures.
func WithRecoveryHandler(handler RecoveryHandler) ProcessorOption {
	return func(p *Processor) {
		p.recovery = handler
	}
}

// WithAlertDispatcher sends failure alerts.
func WithAlertDispatcher(dispatcher alerting.Dispatcher) ProcessorOption {
	return func(p *Processor) {
		p.alerter = dispatcher
	}
}

// WithProcessorMetrics counts job transitions.
func WithProcessorMetrics(m *metrics.Metrics) ProcessorOption {
	return func(p *Processor) {
		p.metrics = m
	}
}

// NewProcessor builds a Processor with one worker unless configured otherwise.
func NewProcessor(generator Generator, store Store, consumer Consumer, producer Producer, opts ...ProcessorOption) *Processor {
	p := &Processor{
		generator:   generator,
		store:       store,
		consumer:    consumer,
		producer:    producer,
		workerCount: 1,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Start consumes until ctx ends.
func (p *Processor) Start(ctx context.Context) error {
	if p.consumer == nil {
		return xerrors.New(xerrors.CodeInitializationFailure, "job consumer not configured")
	}
	return p.consumer.Consume(ctx, p.workerCount, p.handle)
}

func (p *Processor) handle(ctx context.Context, jobID string) error {
	if p.store == nil || p.generator == nil {
		return xerrors.New(xerrors.CodeInitializationFailure, "job processor not initialized")
	}
	job, err := p.store.Claim(ctx, jobID)
	if err != nil {
		if stdErrors.Is(err, ErrJobNotFound) || stdErrors.Is(err, ErrJobCompleted) || stdErrors.Is(err, ErrJobExhausted) {
			p.logDebug("skipping job", slog.String("job_id", jobID), slog.String("reason", err.Error()))
			return nil
		}
		logger.L().Error("claim job failed", slog.Any("error", err), slog.String("job_id", jobID))
		p.emitAlert(ctx, &Job{ID: jobID}, CodeJobProcessing, err, "claim")
		return err
	}
	p.metrics.ObserveJob(string(StatusRunning))

	song, genErr := p.generator.Generate(ctx, job.Request)
	if genErr != nil {
		return p.handleFailure(ctx, job, genErr)
	}
	return p.complete(ctx, job, song, "job succeeded")
}

// complete stores song; if that fails the job is marked failed and requeued.
func (p *Processor) complete(ctx context.Context, job *Job, song *studio.Song, msg string) error {
	if err := p.store.MarkSucceeded(ctx, job.ID, song); err != nil {
		logger.L().Error("store job result failed", slog.Any("error", err), slog.String("job_id", job.ID))
		if storeErr := p.store.MarkFailed(ctx, job.ID, xerrors.CodeStorageFailure, err.Error()); storeErr != nil {
			return storeErr
		}
		p.metrics.ObserveJob(string(StatusFailed))
		if pubErr := p.producer.Publish(ctx, job.ID); pubErr != nil {
			return xerrors.Wrap(CodeJobPublish, pubErr, fmt.Sprintf("requeue job %s after storage failure", job.ID))
		}
		return nil
	}
	p.metrics.ObserveJob(string(StatusSucceeded))
	attrs := []any{slog.String("job_id", job.ID), slog.Int("attempts", job.Attempts)}
	if song != nil {
		attrs = append(attrs,
			slog.String("title", song.Title),
			slog.String("midi", string(song.Facets.Midi.State)),
			slog.String("image", string(song.Facets.Image.State)),
		)
	}
	logger.Audit().Info(msg, attrs...)
	return nil
}

func (p *Processor) handleFailure(ctx context.Context, job *Job, cause error) error {
	code := xerrors.CodeOf(cause)
	if code == xerrors.CodeUnknown {
		code = CodeJobProcessing
	}
	retryable := xerrors.AttributesOf(code).Retryable
	if e, ok := xerrors.From(cause); ok {
		retryable = e.Retryable()
	}
	terminal := job.Attempts >= job.MaxRetries || !retryable

	if terminal && p.recovery != nil {
		fallback, recErr := p.recovery.Recover(ctx, job, cause)
		switch {
		case recErr != nil:
			wrapped := xerrors.Wrap(CodeJobCompensate, recErr, "job compensation failed")
			logger.L().Error("recovery failed", slog.Any("error", wrapped), slog.String("job_id", job.ID))
			p.emitAlert(ctx, job, CodeJobCompensate, wrapped, "compensate")
		case fallback != nil:
			p.emitAlert(ctx, job, code, cause, "degraded")
			return p.complete(ctx, job, fallback, "job degraded")
		}
	}

	if err := p.store.MarkFailed(ctx, job.ID, code, cause.Error()); err != nil {
		logger.L().Error("mark job failed", slog.Any("error", err), slog.String("job_id", job.ID))
		return err
	}
	p.metrics.ObserveJob(string(StatusFailed))
	logger.Audit().Warn("job failed",
		slog.String("job_id", job.ID),
		slog.Bool("terminal", terminal),
		slog.String("error", cause.Error()),
		slog.String("error_code", string(code)),
		slog.Int("attempts", job.Attempts),
		slog.Int("max_retries", job.MaxRetries),
	)

	stage := "retry"
	if !retryable {
		stage = "non_retryable"
	} else if terminal {
		stage = "terminal"
	}
	p.emitAlert(ctx, job, code, cause, stage)

	if !terminal {
		if err := p.producer.Publish(ctx, job.ID); err != nil {
			return xerrors.Wrap(CodeJobPublish, err, fmt.Sprintf("requeue job %s", job.ID))
		}
		p.logDebug("job requeued", slog.String("job_id", job.ID), slog.Int("attempts", job.Attempts))
	}
	return nil
}

func (p *Processor) logDebug(msg string, attrs ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, attrs...)
	}
}

func (p *Processor) emitAlert(ctx context.Context, job *Job, code xerrors.Code, cause error, stage string) {
	if p.alerter == nil || job == nil {
		return
	}
	attrs := xerrors.AttributesOf(code)
	if !attrs.Alert && stage == "retry" {
		return
	}
	event := alerting.Event{
		Code:       code,
		Message:    attrs.Message,
		Severity:   attrs.Severity,
		JobID:      job.ID,
		Attempts:   job.Attempts,
		MaxRetries: job.MaxRetries,
		Metadata:   map[string]string{"stage": stage},
		OccurredAt: time.Now(),
	}
	if cause != nil {
		event.Message = cause.Error()
	}
	if e, ok := xerrors.From(cause); ok {
		if id := e.Metadata()["plugin_id"]; id != "" {
			event.PluginID = id
		}
	}
	if err := p.alerter.Notify(ctx, event); err != nil {
		logger.L().Error("alert delivery failed", slog.Any("error", err), slog.String("job_id", job.ID), slog.String("stage", stage))
	}
}
