package core

import (
	"context"
)

// TaskKind selects the job that handles a task.
type TaskKind string

const (
	TaskOnboarding TaskKind = "onboarding"
	TaskHealing    TaskKind = "healing"
)

// Task is a unit of background work addressed to a repository.
type Task struct {
	Kind         TaskKind
	RepositoryID string
	// RunID is set for healing tasks.
	RunID string
	// Log optionally overrides the stored run log for healing tasks.
	Log string
}

// JobDispatcher defines the contract for a system that can accept and queue
// background tasks for asynchronous processing. This interface decouples the
// task source (an HTTP handler, a webhook, the CLI) from the execution mechanism.
type JobDispatcher interface {
	// Dispatch accepts a Task and queues it for processing.
	// It returns an error if the task cannot be queued, for example, if the
	// queue is full, providing a mechanism for backpressure.
	Dispatch(ctx context.Context, task *Task) error
	// Stop drains the queue and waits for in-flight tasks.
	Stop()
}

// Job represents a single, executable unit of work processed by the dispatcher.
type Job interface {
	Run(ctx context.Context, task *Task) error
}
