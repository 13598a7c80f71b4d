package worker

import (
	"context"
	"log/slog"
	"sync"
)

type ProcessFunc[T any] func(ctx context.Context, job T) error

type WorkerPool[T any] struct {
	name       string
	numWorkers int
	jobs       chan T
	processor  ProcessFunc[T]
	wg         sync.WaitGroup
}

func NewWorkerPool[T any](name string, numWorkers int, bufferSize int, processor ProcessFunc[T]) *WorkerPool[T] {
	return &WorkerPool[T]{
		name:       name,
		numWorkers: numWorkers,
		jobs:       make(chan T, bufferSize),
		processor:  processor,
	}
}

func (wp *WorkerPool[T]) Start(ctx context.Context) {
	for i := 1; i <= wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool[T]) worker(ctx context.Context, id int) {
	defer wp.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-wp.jobs:
			if !ok {
				return
			}
			if err := wp.processor(ctx, job); err != nil {
				slog.Warn("job failed", "pool", wp.name, "worker", id, "error", err)
			}
		}
	}
}

// Submit queues a job, blocking while the buffer is full. It gives up when ctx is done.
func (wp *WorkerPool[T]) Submit(ctx context.Context, job T) error {
	select {
	case wp.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending is the number of queued jobs not yet picked up by a worker.
func (wp *WorkerPool[T]) Pending() int {
	return len(wp.jobs)
}

// Stop closes the queue and waits for workers to exit. Unless the workers' ctx is
// done, every queued job is processed first. Submit must not be called after Stop.
func (wp *WorkerPool[T]) Stop() {
	close(wp.jobs)
	wp.wg.Wait()
}
