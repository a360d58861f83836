package task

import "context"

// Handler processes one job id taken from a queue.
type Handler func(ctx context.Context, jobID string) error

// Producer publishes job ids.
type Producer interface {
	Publish(ctx context.Context, jobID string) error
	Close() error
}

// Consumer feeds job ids to a handler with workerCount goroutines until ctx ends.
type Consumer interface {
	Consume(ctx context.Context, workerCount int, handler Handler) error
	Close() error
}

// Queue is both ends of a job queue.
type Queue interface {
	Producer
	Consumer
}
