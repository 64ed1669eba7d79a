package workers_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/quantlane/tradesim/internal/workers"
	"go.uber.org/zap"
)

func TestPoolRunsAllTasks(t *testing.T) {
	pool := workers.NewPool(zap.NewNop(), workers.Config{Name: "test", NumWorkers: 4, QueueSize: 100})
	pool.Start()

	var counter atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		err := pool.SubmitFunc(func() error {
			defer wg.Done()
			counter.Add(1)
			return nil
		})
		if err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
	}
	wg.Wait()
	pool.Stop()

	if counter.Load() != 50 {
		t.Errorf("Expected 50 tasks to run, got %d", counter.Load())
	}
}

func TestPoolStopDrainsQueue(t *testing.T) {
	pool := workers.NewPool(zap.NewNop(), workers.Config{Name: "drain", NumWorkers: 1, QueueSize: 20})
	pool.Start()

	var counter atomic.Int64
	for i := 0; i < 10; i++ {
		if err := pool.SubmitFunc(func() error {
			counter.Add(1)
			return nil
		}); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
	}
	pool.Stop()

	if counter.Load() != 10 {
		t.Errorf("Stop should drain queued tasks, ran %d of 10", counter.Load())
	}
	if pool.IsRunning() {
		t.Error("Pool should report stopped")
	}
}

func TestPoolRejectsAfterStop(t *testing.T) {
	pool := workers.NewPool(zap.NewNop(), workers.Config{Name: "stopped"})
	pool.Start()
	pool.Stop()

	err := pool.SubmitFunc(func() error { return nil })
	if !errors.Is(err, workers.ErrPoolStopped) {
		t.Errorf("Expected ErrPoolStopped, got %v", err)
	}
}

func TestPoolSurvivesPanickingTask(t *testing.T) {
	pool := workers.NewPool(zap.NewNop(), workers.Config{Name: "panic", NumWorkers: 1, QueueSize: 10})
	pool.Start()

	var wg sync.WaitGroup
	wg.Add(2)
	if err := pool.SubmitFunc(func() error {
		defer wg.Done()
		panic("boom")
	}); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	var ran atomic.Bool
	if err := pool.SubmitFunc(func() error {
		defer wg.Done()
		ran.Store(true)
		return nil
	}); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	wg.Wait()
	pool.Stop()

	if !ran.Load() {
		t.Error("Worker should survive a panicking task and keep processing")
	}
}

func TestPoolQueueFull(t *testing.T) {
	pool := workers.NewPool(zap.NewNop(), workers.Config{Name: "full", NumWorkers: 1, QueueSize: 1})
	pool.Start()
	defer pool.Stop()

	block := make(chan struct{})
	defer close(block)

	// First task occupies the worker, second fills the queue.
	if err := pool.SubmitFunc(func() error { <-block; return nil }); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	// Keep trying until the worker has picked up the first task and the
	// queue slot is taken by the second.
	filled := false
	for i := 0; i < 1000; i++ {
		if err := pool.SubmitFunc(func() error { return nil }); errors.Is(err, workers.ErrQueueFull) {
			filled = true
			break
		}
	}
	if !filled {
		t.Error("Expected ErrQueueFull once the queue backed up")
	}
}
