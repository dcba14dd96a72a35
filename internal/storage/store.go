// Package storage persists repositories, their CI runs and activity logs.
package storage

import (
	"context"
	"errors"

	"github.com/sevigo/autoci/internal/core"
)

var (
	// ErrNotFound is returned when a repository or run does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a repository with the same full name is already connected.
	ErrAlreadyExists = errors.New("already exists")
)

// DefaultEventLimit caps ListEvents when the caller passes a non-positive limit.
const DefaultEventLimit = 200

// UpdateFunc mutates a repository inside Store.UpdateRepository. Returning an
// error aborts the update and leaves the stored repository unchanged.
type UpdateFunc func(repo *core.Repository) error

// Store defines the interface for all repository persistence.
type Store interface {
	CreateRepository(ctx context.Context, repo *core.Repository) error
	GetRepository(ctx context.Context, id string) (*core.Repository, error)
	FindRepositoryByFullName(ctx context.Context, fullName string) (*core.Repository, error)
	// ListRepositories returns repositories in creation order.
	ListRepositories(ctx context.Context) ([]*core.Repository, error)
	DeleteRepository(ctx context.Context, id string) error

	// UpdateRepository applies fn to the current state of the repository
	// atomically and returns the stored result. Runs are kept newest first.
	UpdateRepository(ctx context.Context, id string, fn UpdateFunc) (*core.Repository, error)

	AppendEvent(ctx context.Context, repoID, message string) (*core.LogEntry, error)
	// ListEvents returns the last limit entries in chronological order.
	ListEvents(ctx context.Context, repoID string, limit int) ([]core.LogEntry, error)
}
