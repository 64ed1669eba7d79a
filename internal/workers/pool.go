// Package workers provides a fixed-size worker pool for parallel
// strategy evaluations.
package workers

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	tasksSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tradesim",
		Subsystem: "workers",
		Name:      "tasks_submitted_total",
		Help:      "Tasks submitted to the pool.",
	}, []string{"pool"})
	tasksCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tradesim",
		Subsystem: "workers",
		Name:      "tasks_completed_total",
		Help:      "Tasks that finished without error.",
	}, []string{"pool"})
	tasksFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tradesim",
		Subsystem: "workers",
		Name:      "tasks_failed_total",
		Help:      "Tasks that returned an error or panicked.",
	}, []string{"pool"})
)

// Task is a unit of work to be processed by the pool.
type Task interface {
	Execute() error
}

// TaskFunc adapts a function to the Task interface.
type TaskFunc func() error

func (f TaskFunc) Execute() error { return f() }

var (
	ErrPoolStopped = &PoolError{Message: "pool is stopped"}
	ErrQueueFull   = &PoolError{Message: "task queue is full"}
)

// PoolError is an error originating from the pool itself.
type PoolError struct {
	Message string
}

func (e *PoolError) Error() string { return e.Message }

// Pool runs submitted tasks on a fixed set of worker goroutines. A task
// that panics is logged and counted as failed; it never takes a worker
// down with it.
type Pool struct {
	name       string
	logger     *zap.Logger
	numWorkers int

	taskQueue chan Task
	wg        sync.WaitGroup
	running   atomic.Bool
}

// Config configures a pool. Zero values fall back to the number of CPUs
// for workers and a queue of the same size.
type Config struct {
	Name       string
	NumWorkers int
	QueueSize  int
}

// NewPool creates a pool. Workers start on Start.
func NewPool(logger *zap.Logger, cfg Config) *Pool {
	if cfg.NumWorkers <= 0 {
		cfg.NumWorkers = runtime.NumCPU()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = cfg.NumWorkers
	}
	if cfg.Name == "" {
		cfg.Name = "default"
	}
	return &Pool{
		name:       cfg.Name,
		logger:     logger.Named("workers"),
		numWorkers: cfg.NumWorkers,
		taskQueue:  make(chan Task, cfg.QueueSize),
	}
}

// Start launches the worker goroutines.
func (p *Pool) Start() {
	if p.running.Swap(true) {
		return
	}
	p.logger.Debug("starting worker pool",
		zap.String("pool", p.name),
		zap.Int("workers", p.numWorkers))

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.run(i)
	}
}

func (p *Pool) run(id int) {
	defer p.wg.Done()
	for task := range p.taskQueue {
		p.execute(id, task)
	}
}

func (p *Pool) execute(id int, task Task) {
	defer func() {
		if r := recover(); r != nil {
			tasksFailed.WithLabelValues(p.name).Inc()
			p.logger.Error("worker recovered from panic",
				zap.Int("worker_id", id),
				zap.Any("panic", r))
		}
	}()

	if err := task.Execute(); err != nil {
		tasksFailed.WithLabelValues(p.name).Inc()
		p.logger.Debug("task failed", zap.Int("worker_id", id), zap.Error(err))
		return
	}
	tasksCompleted.WithLabelValues(p.name).Inc()
}

// Submit enqueues a task without blocking. It fails when the pool is
// stopped or the queue is full.
func (p *Pool) Submit(task Task) error {
	if !p.running.Load() {
		return ErrPoolStopped
	}
	select {
	case p.taskQueue <- task:
		tasksSubmitted.WithLabelValues(p.name).Inc()
		return nil
	default:
		return ErrQueueFull
	}
}

// SubmitFunc submits a function as a task.
func (p *Pool) SubmitFunc(fn func() error) error {
	return p.Submit(TaskFunc(fn))
}

// Stop closes the queue and waits for the workers to drain it. Queued
// tasks still run; whether they do real work is up to the task (tasks
// carrying a cancelled context are expected to return immediately).
func (p *Pool) Stop() {
	if !p.running.Swap(false) {
		return
	}
	close(p.taskQueue)
	p.wg.Wait()
	p.logger.Debug("worker pool stopped", zap.String("pool", p.name))
}

// QueueLength returns the number of queued tasks.
func (p *Pool) QueueLength() int {
	return len(p.taskQueue)
}

// IsRunning reports whether the pool accepts tasks.
func (p *Pool) IsRunning() bool {
	return p.running.Load()
}
