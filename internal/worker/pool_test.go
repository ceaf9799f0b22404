package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PratikDhanave/sprintbot/internal/logging"
)

func TestPool_RunsTasks(t *testing.T) {
	p := NewPool(4, 16, logging.Discard())

	var n atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		if _, err := p.Submit(Task{Run: func(ctx context.Context) {
			defer wg.Done()
			n.Add(1)
		}}); err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
	}
	wg.Wait()

	if n.Load() != 10 {
		t.Fatalf("expected 10 runs, got %d", n.Load())
	}
	if err := p.Close(context.Background()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}

func TestPool_AssignsID(t *testing.T) {
	p := NewPool(1, 1, logging.Discard())
	defer p.Close(context.Background())

	id, err := p.Submit(Task{Run: func(context.Context) {}})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if id == "" {
		t.Fatal("expected generated task id")
	}

	id, err = p.Submit(Task{ID: "fixed", Run: func(context.Context) {}})
	if err != nil && !errors.Is(err, ErrQueueFull) {
		t.Fatalf("Submit() error = %v", err)
	}
	if err == nil && id != "fixed" {
		t.Fatalf("expected caller id to be kept, got %q", id)
	}
}

func TestPool_QueueFull(t *testing.T) {
	p := NewPool(1, 1, logging.Discard())

	release := make(chan struct{})
	started := make(chan struct{})
	if _, err := p.Submit(Task{Run: func(context.Context) {
		close(started)
		<-release
	}}); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	<-started

	// Worker is busy; one slot in the queue.
	if _, err := p.Submit(Task{Run: func(context.Context) {}}); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if _, err := p.Submit(Task{Run: func(context.Context) {}}); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}

	close(release)
	if err := p.Close(context.Background()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}

func TestPool_SubmitAfterClose(t *testing.T) {
	p := NewPool(1, 1, logging.Discard())
	if err := p.Close(context.Background()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := p.Submit(Task{Run: func(context.Context) {}}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	// Closing twice is harmless.
	if err := p.Close(context.Background()); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
}

func TestPool_RecoversPanic(t *testing.T) {
	p := NewPool(1, 4, logging.Discard())

	done := make(chan struct{})
	p.Submit(Task{Run: func(context.Context) { panic("boom") }})
	p.Submit(Task{Run: func(context.Context) { close(done) }})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not survive a panicking task")
	}
	p.Close(context.Background())
}

func TestPool_CloseDeadlineCancelsTasks(t *testing.T) {
	p := NewPool(1, 1, logging.Discard())

	started := make(chan struct{})
	p.Submit(Task{Run: func(ctx context.Context) {
		close(started)
		<-ctx.Done()
	}})
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := p.Close(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
