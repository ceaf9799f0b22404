// Package worker runs background units of work off the webhook's
// acknowledgment path.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/PratikDhanave/sprintbot/internal/logging"
)

// Submission errors. Both mean the task was not accepted.
var (
	ErrQueueFull = errors.New("worker queue full")
	ErrClosed    = errors.New("worker pool closed")
)

// Task is one unit of background work. ID is assigned on submission when empty.
type Task struct {
	ID  string
	Run func(ctx context.Context)
}

// Pool is a fixed set of goroutines draining a bounded queue.
// Tasks run independently; a panicking task is recovered and reported.
type Pool struct {
	queue  chan Task
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewPool starts workers goroutines reading from a queue of the given size.
func NewPool(workers, queueSize int, logger *slog.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		queue:  make(chan Task, queueSize),
		logger: logger.With("component", "worker"),
		ctx:    ctx,
		cancel: cancel,
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.loop()
	}
	return p
}

// Submit enqueues t without blocking and returns the task id.
func (p *Pool) Submit(t Task) (string, error) {
	if t.Run == nil {
		return "", errors.New("task has no run func")
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return "", ErrClosed
	}
	select {
	case p.queue <- t:
		return t.ID, nil
	default:
		return "", ErrQueueFull
	}
}

// Close stops accepting tasks and waits for queued ones to finish.
// If ctx expires first, the context passed to running tasks is cancelled.
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		return ctx.Err()
	}
}

func (p *Pool) loop() {
	defer p.wg.Done()
	for t := range p.queue {
		p.run(t)
	}
}

func (p *Pool) run(t Task) {
	defer func() {
		if r := recover(); r != nil {
			logging.CapturePanic(p.logger, r, "task_id", t.ID)
		}
	}()
	t.Run(p.ctx)
}
