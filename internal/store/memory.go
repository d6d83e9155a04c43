package store

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryResultStore implements ResultStore for tests and for running with
// history disabled.
type InMemoryResultStore struct {
	mu      sync.RWMutex
	results map[string]Result
	now     func() time.Time
}

// NewInMemoryResultStore creates an empty store.
func NewInMemoryResultStore() *InMemoryResultStore {
	return &InMemoryResultStore{results: make(map[string]Result), now: time.Now}
}

// Save stores a copy of r.
func (s *InMemoryResultStore) Save(ctx context.Context, r Result) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}
	if r.Source == "" {
		r.Source = "cli"
	}
	r.Scope = ""
	s.results[r.ID] = cloneResult(r)
	return r.ID, nil
}

// Get returns a copy of the result with id.
func (s *InMemoryResultStore) Get(ctx context.Context, id string) (*Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.results[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	out := cloneResult(r)
	return &out, nil
}

// List returns summaries newest first.
func (s *InMemoryResultStore) List(ctx context.Context, opts ListOptions) ([]Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Summary
	for _, r := range s.results {
		if opts.Scenario != "" && r.Scenario != opts.Scenario {
			continue
		}
		if opts.Source != "" && r.Source != opts.Source {
			continue
		}
		if !opts.Since.IsZero() && r.CreatedAt.Before(opts.Since) {
			continue
		}
		out = append(out, r.Summarize())
	}
	sortNewestFirst(out)
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

// All returns every result oldest first.
func (s *InMemoryResultStore) All(ctx context.Context) ([]Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Result, 0, len(s.results))
	for _, r := range s.results {
		out = append(out, cloneResult(r))
	}
	slices.SortFunc(out, func(a, b Result) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

// Delete removes the result with id.
func (s *InMemoryResultStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.results[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.results, id)
	return nil
}

// Close is a no-op.
func (s *InMemoryResultStore) Close() error {
	return nil
}

func sortNewestFirst(out []Summary) {
	slices.SortFunc(out, func(a, b Summary) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}

func cloneResult(r Result) Result {
	r.Phases = slices.Clone(r.Phases)
	r.Stats.AverageTrajectory = slices.Clone(r.Stats.AverageTrajectory)
	r.Stats.P10Trajectory = slices.Clone(r.Stats.P10Trajectory)
	r.Stats.P90Trajectory = slices.Clone(r.Stats.P90Trajectory)
	return r
}
