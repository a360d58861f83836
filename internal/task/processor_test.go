package task

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	xerrors "SongForge/internal/errors"
	"SongForge/internal/observability/alerting"
	"SongForge/internal/studio"
)

type fakeGenerator struct {
	processed atomic.Int32
	latency   time.Duration
	// failures returns an error for the n-th call (1-based) or nil.
	failures func(call int32) error
}

func (f *fakeGenerator) Generate(ctx context.Context, req studio.SongRequest) (*studio.Song, error) {
	call := f.processed.Add(1)
	if f.latency > 0 {
		select {
		case <-time.After(f.latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.failures != nil {
		if err := f.failures(call); err != nil {
			return nil, err
		}
	}
	return &studio.Song{Title: "song for " + req.PresetID, Lyrics: "[Verse]\nla"}, nil
}

type recordingAlerter struct {
	mu     sync.Mutex
	events []alerting.Event
}

func (r *recordingAlerter) Notify(_ context.Context, e alerting.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingAlerter) stages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Metadata["stage"]
	}
	return out
}

type fallbackRecovery struct{}

func (fallbackRecovery) Recover(_ context.Context, job *Job, cause error) (*studio.Song, error) {
	return &studio.Song{Title: "fallback", Lyrics: cause.Error()}, nil
}

func startProcessor(t *testing.T, gen Generator, opts ...ProcessorOption) (*Service, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	store := NewMemoryStore()
	queue := NewMemoryQueue(1024)
	processor := NewProcessor(gen, store, queue, queue, opts...)
	go func() {
		if err := processor.Start(ctx); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("processor exited: %v", err)
		}
	}()
	return NewService(store, queue, 3), cancel
}

func TestProcessorHandlesConcurrentJobs(t *testing.T) {
	gen := &fakeGenerator{latency: 5 * time.Millisecond}
	service, cancel := startProcessor(t, gen, WithWorkerCount(8))
	defer cancel()
	ctx := context.Background()

	total := 100
	ids := make([]string, 0, total)
	for i := 0; i < total; i++ {
		job, err := service.Submit(ctx, SubmitRequest{Song: studio.SongRequest{PresetID: fmt.Sprintf("p-%d", i)}})
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
		ids = append(ids, job.ID)
	}

	waitCtx, done := context.WithTimeout(ctx, 5*time.Second)
	defer done()
	for _, id := range ids {
		job, err := service.WaitUntilCompleted(waitCtx, id, 10*time.Millisecond)
		if err != nil {
			t.Fatalf("wait %s: %v", id, err)
		}
		if job.Status != StatusSucceeded || job.Result == nil {
			t.Fatalf("job %s not succeeded: %+v", id, job)
		}
	}
	stats, _ := service.Stats(ctx)
	if stats.Succeeded != total {
		t.Fatalf("expected %d succeeded, got %+v", total, stats)
	}
}

func TestProcessorRetriesRetryableFailures(t *testing.T) {
	gen := &fakeGenerator{failures: func(call int32) error {
		if call < 3 {
			return xerrors.New(xerrors.CodeBackendFailure, "503 from backend")
		}
		return nil
	}}
	alerts := &recordingAlerter{}
	service, cancel := startProcessor(t, gen, WithAlertDispatcher(alerts))
	defer cancel()

	job, err := service.Submit(context.Background(), SubmitRequest{ID: "retry-me", Song: studio.SongRequest{PresetID: "x"}})
	if err != nil {
		t.Fatal(err)
	}
	ctx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	final, err := service.WaitUntilCompleted(ctx, job.ID, 10*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if final.Status != StatusSucceeded || final.Attempts != 3 {
		t.Fatalf("expected success on third attempt, got %+v", final)
	}
	if got := alerts.stages(); len(got) != 2 || got[0] != "retry" {
		t.Fatalf("unexpected alert stages: %v", got)
	}
}

func TestProcessorStopsOnNonRetryableFailure(t *testing.T) {
	gen := &fakeGenerator{failures: func(int32) error {
		return xerrors.New(xerrors.CodeNoActivePlugin, "no active lyrics plugin")
	}}
	alerts := &recordingAlerter{}
	service, cancel := startProcessor(t, gen, WithAlertDispatcher(alerts))
	defer cancel()

	job, _ := service.Submit(context.Background(), SubmitRequest{Song: studio.SongRequest{PresetID: "x"}})
	ctx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	final, err := service.WaitUntilCompleted(ctx, job.ID, 10*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if final.Status != StatusFailed || final.Attempts != 1 || final.ErrorCode != string(xerrors.CodeNoActivePlugin) {
		t.Fatalf("expected single terminal failure, got %+v", final)
	}
	if got := alerts.stages(); len(got) != 1 || got[0] != "non_retryable" {
		t.Fatalf("unexpected alert stages: %v", got)
	}
}

func TestProcessorRecoveryStoresFallback(t *testing.T) {
	gen := &fakeGenerator{failures: func(int32) error {
		return xerrors.New(xerrors.CodeInvalidArgument, "genre is required")
	}}
	service, cancel := startProcessor(t, gen, WithRecoveryHandler(fallbackRecovery{}))
	defer cancel()

	job, _ := service.Submit(context.Background(), SubmitRequest{Song: studio.SongRequest{PresetID: "x"}})
	ctx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	final, err := service.WaitUntilCompleted(ctx, job.ID, 10*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if final.Status != StatusSucceeded || final.Title() != "fallback" {
		t.Fatalf("expected degraded success, got %+v", final)
	}
}
