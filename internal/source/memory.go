package source

import (
	"context"
	"sync"

	"github.com/variantd/variantd/internal/flags"
)

// MemorySource is an in-memory implementation of the Source interface.
// It uses a map guarded by an RWMutex and is suitable for development,
// testing, or single-instance deployments.
type MemorySource struct {
	mu    sync.RWMutex
	flags map[string]flags.Flag
}

// NewMemorySource creates an empty in-memory source.
func NewMemorySource() *MemorySource {
	return &MemorySource{flags: make(map[string]flags.Flag)}
}

// GetAllFlags retrieves all flag definitions.
func (m *MemorySource) GetAllFlags(ctx context.Context) ([]flags.Flag, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]flags.Flag, 0, len(m.flags))
	for _, f := range m.flags {
		result = append(result, f)
	}
	return result, nil
}

// GetFlag retrieves a single flag by id.
func (m *MemorySource) GetFlag(ctx context.Context, id string) (*flags.Flag, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	f, ok := m.flags[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &f, nil
}

// UpsertFlag creates or updates a flag definition.
func (m *MemorySource) UpsertFlag(ctx context.Context, flag flags.Flag) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.flags[flag.ID] = flag
	return nil
}

// DeleteFlag removes a flag. Deleting a missing flag is a no-op.
func (m *MemorySource) DeleteFlag(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.flags, id)
	return nil
}

// Close is a no-op for MemorySource.
func (m *MemorySource) Close() error {
	return nil
}
