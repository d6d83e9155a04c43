package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/nvandessel/phsim/internal/constants"
)

// MultiResultStore reads from a local and a global store and writes to one
// of them. Results are tagged with the scope they were read from.
type MultiResultStore struct {
	local      ResultStore
	global     ResultStore
	writeScope constants.Scope
}

// NewMultiResultStore wraps local and global. writeScope ScopeBoth writes
// locally.
func NewMultiResultStore(local, global ResultStore, writeScope constants.Scope) *MultiResultStore {
	return &MultiResultStore{local: local, global: global, writeScope: writeScope}
}

// OpenMultiResultStore opens SQLite stores under projectRoot/.phsim and
// ~/.phsim.
func OpenMultiResultStore(projectRoot string, writeScope constants.Scope) (*MultiResultStore, error) {
	local, err := NewSQLiteResultStore(LocalPath(projectRoot))
	if err != nil {
		return nil, fmt.Errorf("failed to create local store: %w", err)
	}

	globalDir, err := GlobalPath()
	if err != nil {
		local.Close()
		return nil, err
	}
	global, err := NewSQLiteResultStore(globalDir)
	if err != nil {
		local.Close()
		return nil, fmt.Errorf("failed to create global store: %w", err)
	}

	return NewMultiResultStore(local, global, writeScope), nil
}

func (m *MultiResultStore) writeTarget() ResultStore {
	if m.writeScope == constants.ScopeGlobal {
		return m.global
	}
	return m.local
}

// Save writes r to the write scope.
func (m *MultiResultStore) Save(ctx context.Context, r Result) (string, error) {
	return m.writeTarget().Save(ctx, r)
}

// Get looks in the local store first.
func (m *MultiResultStore) Get(ctx context.Context, id string) (*Result, error) {
	r, err := m.local.Get(ctx, id)
	if err == nil {
		r.Scope = constants.ScopeLocal
		return r, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	r, err = m.global.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	r.Scope = constants.ScopeGlobal
	return r, nil
}

// List merges both stores newest first.
func (m *MultiResultStore) List(ctx context.Context, opts ListOptions) ([]Summary, error) {
	local, err := m.local.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("listing local results: %w", err)
	}
	global, err := m.global.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("listing global results: %w", err)
	}

	out := make([]Summary, 0, len(local)+len(global))
	for _, s := range local {
		s.Scope = constants.ScopeLocal
		out = append(out, s)
	}
	for _, s := range global {
		s.Scope = constants.ScopeGlobal
		out = append(out, s)
	}
	sortNewestFirst(out)
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

// All returns local results followed by global results.
func (m *MultiResultStore) All(ctx context.Context) ([]Result, error) {
	local, err := m.local.All(ctx)
	if err != nil {
		return nil, err
	}
	global, err := m.global.All(ctx)
	if err != nil {
		return nil, err
	}
	for i := range local {
		local[i].Scope = constants.ScopeLocal
	}
	for i := range global {
		global[i].Scope = constants.ScopeGlobal
	}
	return append(local, global...), nil
}

// Delete removes id from whichever store holds it.
func (m *MultiResultStore) Delete(ctx context.Context, id string) error {
	err := m.local.Delete(ctx, id)
	if err == nil || !errors.Is(err, ErrNotFound) {
		return err
	}
	return m.global.Delete(ctx, id)
}

// Close closes both stores.
func (m *MultiResultStore) Close() error {
	return errors.Join(m.local.Close(), m.global.Close())
}

// OpenScoped opens the stores selected by scope. ScopeBoth returns a
// MultiResultStore that writes locally.
func OpenScoped(projectRoot string, scope constants.Scope) (ResultStore, error) {
	switch scope {
	case constants.ScopeLocal:
		return NewSQLiteResultStore(LocalPath(projectRoot))
	case constants.ScopeGlobal:
		dir, err := GlobalPath()
		if err != nil {
			return nil, err
		}
		return NewSQLiteResultStore(dir)
	case constants.ScopeBoth:
		return OpenMultiResultStore(projectRoot, constants.ScopeLocal)
	}
	return nil, fmt.Errorf("invalid scope %q", scope)
}
