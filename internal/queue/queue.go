package queue

import (
	"context"
	"errors"
	"sync"
)

// ErrShutdown is returned when processing is attempted after the queue has shut down
var ErrShutdown = errors.New("queue has been shutdown")

// Handler processes a single queued task
type Handler func(ctx context.Context, data interface{}) (interface{}, error)

// Queue is a worker queue with a fixed amount of workers
type Queue struct {
	ctx     context.Context
	queue   chan job
	handler Handler
	workers int
}

type job struct {
	ctx    context.Context
	data   interface{}
	result chan jobResult
}

type jobResult struct {
	result interface{}
	err    error
}

// New creates a new Queue with the specified amount of workers.
// The queue shuts down when the given context is canceled.
func New(ctx context.Context, workers int, handler Handler) *Queue {
	return &Queue{
		ctx:     ctx,
		queue:   make(chan job),
		handler: handler,
		workers: workers,
	}
}

// Run starts the queue workers and blocks until the queue context is canceled
func (q *Queue) Run() {
	var wg sync.WaitGroup

	for i := 0; i < q.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.worker()
		}()
	}

	wg.Wait()
}

func (q *Queue) worker() {
	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.queue:
			result, err := q.handler(job.ctx, job.data)
			job.result <- jobResult{
				result: result,
				err:    err,
			}
		}
	}
}

// Process adds a task to the queue, waits for it to process, and returns the result
func (q *Queue) Process(ctx context.Context, data interface{}) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if q.ctx.Err() != nil {
		return nil, ErrShutdown
	}

	resultChan := make(chan jobResult, 1)

	select {
	case <-q.ctx.Done():
		return nil, ErrShutdown
	case <-ctx.Done():
		return nil, ctx.Err()
	case q.queue <- job{ctx: ctx, data: data, result: resultChan}:
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case result := <-resultChan:
		if result.err != nil {
			return nil, result.err
		}

		return result.result, nil
	}
}
