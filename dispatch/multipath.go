package dispatch

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// MultiPath serves several Dispatchers, each under its own request path
type MultiPath struct {
	mu          sync.RWMutex
	dispatchers map[string]Dispatcher
}

// NewMultiPath creates a MultiPath without any paths
func NewMultiPath() *MultiPath {
	return &MultiPath{
		dispatchers: map[string]Dispatcher{},
	}
}

// Add serves d under path, replacing any Dispatcher already there
func (m *MultiPath) Add(path string, d Dispatcher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dispatchers[path] = d
}

// Paths returns the sorted served paths
func (m *MultiPath) Paths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	paths := make([]string, 0, len(m.dispatchers))
	for path := range m.dispatchers {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	return paths
}

// Dispatch implements Dispatcher
func (m *MultiPath) Dispatch(ctx context.Context, path string, body []byte) ([]byte, error) {
	m.mu.RLock()
	d, ok := m.dispatchers[path]
	m.mu.RUnlock()

	if !ok {
		return nil, NewInternalError(errors.Errorf("no dispatcher for path %q", path))
	}
	return d.Dispatch(ctx, path, body)
}
