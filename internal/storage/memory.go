package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sevigo/autoci/internal/core"
)

type memoryStore struct {
	mu     sync.RWMutex
	repos  map[string]*core.Repository
	order  []string
	events map[string][]core.LogEntry
	nextID int64
	now    func() time.Time
}

// NewMemoryStore creates a Store that keeps everything in process memory.
// Values are deep-copied on the way in and out.
func NewMemoryStore() Store {
	return &memoryStore{
		repos:  make(map[string]*core.Repository),
		events: make(map[string][]core.LogEntry),
		now:    time.Now,
	}
}

func (s *memoryStore) CreateRepository(_ context.Context, repo *core.Repository) error {
	if err := repo.Validate(); err != nil {
		return fmt.Errorf("invalid repository: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.repos[repo.ID]; ok {
		return fmt.Errorf("repository %s: %w", repo.ID, ErrAlreadyExists)
	}
	for _, existing := range s.repos {
		if strings.EqualFold(existing.FullName, repo.FullName) {
			return fmt.Errorf("repository %s: %w", repo.FullName, ErrAlreadyExists)
		}
	}

	stored := repo.Clone()
	now := s.now()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	sortRuns(stored.PipelineRuns)

	s.repos[stored.ID] = stored
	s.order = append(s.order, stored.ID)
	repo.CreatedAt, repo.UpdatedAt = stored.CreatedAt, stored.UpdatedAt
	return nil
}

func (s *memoryStore) GetRepository(_ context.Context, id string) (*core.Repository, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	repo, ok := s.repos[id]
	if !ok {
		return nil, fmt.Errorf("repository %s: %w", id, ErrNotFound)
	}
	return repo.Clone(), nil
}

func (s *memoryStore) FindRepositoryByFullName(_ context.Context, fullName string) (*core.Repository, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, id := range s.order {
		if strings.EqualFold(s.repos[id].FullName, fullName) {
			return s.repos[id].Clone(), nil
		}
	}
	return nil, fmt.Errorf("repository %s: %w", fullName, ErrNotFound)
}

func (s *memoryStore) ListRepositories(_ context.Context) ([]*core.Repository, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*core.Repository, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.repos[id].Clone())
	}
	return out, nil
}

func (s *memoryStore) DeleteRepository(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.repos[id]; !ok {
		return fmt.Errorf("repository %s: %w", id, ErrNotFound)
	}
	delete(s.repos, id)
	delete(s.events, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *memoryStore) UpdateRepository(_ context.Context, id string, fn UpdateFunc) (*core.Repository, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.repos[id]
	if !ok {
		return nil, fmt.Errorf("repository %s: %w", id, ErrNotFound)
	}

	working := current.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	working.ID = current.ID
	working.CreatedAt = current.CreatedAt
	working.UpdatedAt = s.now()
	sortRuns(working.PipelineRuns)

	s.repos[id] = working
	return working.Clone(), nil
}

func (s *memoryStore) AppendEvent(_ context.Context, repoID, message string) (*core.LogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.repos[repoID]; !ok {
		return nil, fmt.Errorf("repository %s: %w", repoID, ErrNotFound)
	}
	s.nextID++
	entry := core.LogEntry{
		ID:           s.nextID,
		RepositoryID: repoID,
		Message:      message,
		CreatedAt:    s.now(),
	}
	s.events[repoID] = append(s.events[repoID], entry)
	return &entry, nil
}

func (s *memoryStore) ListEvents(_ context.Context, repoID string, limit int) ([]core.LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.repos[repoID]; !ok {
		return nil, fmt.Errorf("repository %s: %w", repoID, ErrNotFound)
	}
	if limit <= 0 {
		limit = DefaultEventLimit
	}
	events := s.events[repoID]
	if len(events) > limit {
		events = events[len(events)-limit:]
	}
	return append([]core.LogEntry{}, events...), nil
}

// sortRuns keeps runs newest first; runs with equal timestamps keep their order.
func sortRuns(runs []core.PipelineRun) {
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
}
