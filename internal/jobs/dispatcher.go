// Package jobs runs onboarding and healing tasks on a bounded worker pool.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sevigo/autoci/internal/config"
	"github.com/sevigo/autoci/internal/core"
)

// DefaultQueueSize is used when the configured queue size is not positive.
const DefaultQueueSize = 100

var (
	// ErrQueueFull is returned by Dispatch when no queue slot is free.
	ErrQueueFull = errors.New("job queue is full")
	// ErrStopped is returned by Dispatch after Stop.
	ErrStopped = errors.New("dispatcher is stopped")
)

// Registry maps each task kind to the job that executes it.
type Registry map[core.TaskKind]core.Job

// NewRegistry registers the onboarding and healing jobs.
func NewRegistry(onboarding *OnboardingJob, healing *HealingJob) Registry {
	return Registry{
		core.TaskOnboarding: onboarding,
		core.TaskHealing:    healing,
	}
}

// dispatcher implements core.JobDispatcher and manages a pool of worker goroutines.
type dispatcher struct {
	jobs       Registry
	jobQueue   chan *core.Task
	maxWorkers int
	wg         sync.WaitGroup
	mu         sync.RWMutex
	stopped    bool
	logger     *slog.Logger
}

// NewDispatcher initializes a dispatcher with a worker pool.
// If MaxWorkers is 0 or negative, it defaults to 1.
func NewDispatcher(cfg *config.PipelineConfig, jobs Registry, logger *slog.Logger) core.JobDispatcher {
	maxWorkers, queueSize := cfg.MaxWorkers, cfg.QueueSize
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	d := &dispatcher{
		jobs:       jobs,
		maxWorkers: maxWorkers,
		jobQueue:   make(chan *core.Task, queueSize),
		logger:     logger,
	}
	d.startWorkers()
	return d
}

func (d *dispatcher) startWorkers() {
	for i := range d.maxWorkers {
		d.wg.Add(1)
		go d.startWorker(i)
	}
}

// startWorker processes tasks from the queue until it's closed.
func (d *dispatcher) startWorker(workerID int) {
	defer d.wg.Done()
	d.logger.Debug("starting worker", "id", workerID)

	for task := range d.jobQueue {
		d.process(workerID, task)
	}

	d.logger.Debug("shutting down worker", "id", workerID)
}

func (d *dispatcher) process(workerID int, task *core.Task) {
	d.logger.Info("worker processing job",
		"worker_id", workerID,
		"kind", task.Kind,
		"repo_id", task.RepositoryID,
	)

	job, ok := d.jobs[task.Kind]
	if !ok {
		d.logger.Error("no job registered for task", "kind", task.Kind)
		return
	}

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("job panicked", "kind", task.Kind, "repo_id", task.RepositoryID, "panic", r)
		}
	}()

	if err := job.Run(context.Background(), task); err != nil {
		d.logger.Error("job failed",
			"kind", task.Kind,
			"repo_id", task.RepositoryID,
			"run_id", task.RunID,
			"error", err,
		)
	}
}

// Dispatch queues a task for processing by a worker.
func (d *dispatcher) Dispatch(_ context.Context, task *core.Task) error {
	if err := validateTask(task); err != nil {
		return err
	}
	if _, ok := d.jobs[task.Kind]; !ok {
		return fmt.Errorf("no job registered for task kind %q", task.Kind)
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		return ErrStopped
	}

	d.logger.Info("queuing job", "kind", task.Kind, "repo_id", task.RepositoryID, "run_id", task.RunID)
	select {
	case d.jobQueue <- task:
		return nil
	default:
		return fmt.Errorf("%w, cannot accept new %s job", ErrQueueFull, task.Kind)
	}
}

// Stop gracefully shuts down the dispatcher, waiting for all workers to finish.
func (d *dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	close(d.jobQueue)
	d.mu.Unlock()

	d.logger.Info("stopping dispatcher and waiting for jobs to finish")
	d.wg.Wait()
	d.logger.Info("all jobs have finished")
}
