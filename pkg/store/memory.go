package store

import (
	"fmt"
	"slices"
	"sync"

	"github.com/praetorian-inc/almanac/pkg/types"
)

// MemoryStore implements Store using in-memory data structures.
// Used for ":memory:" paths and in tests.
type MemoryStore struct {
	mu       sync.RWMutex
	almanacs map[string]*types.Almanac  // keyed by digest
	runs     []*types.Answer            // in insertion order
	ranges   map[int64][]types.Interval // keyed by run id
	nextID   int64
}

// NewMemory creates a new in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		almanacs: make(map[string]*types.Almanac),
		runs:     make([]*types.Answer, 0),
		ranges:   make(map[int64][]types.Interval),
	}
}

// AddAlmanac stores an almanac. Idempotent by digest.
func (m *MemoryStore) AddAlmanac(a *types.Almanac) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	digest := a.Digest()
	if _, exists := m.almanacs[digest]; exists {
		return nil
	}
	copied := *a
	m.almanacs[digest] = &copied
	return nil
}

// GetAlmanac retrieves an almanac by digest.
func (m *MemoryStore) GetAlmanac(digest string) (*types.Almanac, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.almanacs[digest]
	if !ok {
		return nil, fmt.Errorf("almanac %s: %w", digest, ErrNotFound)
	}
	copied := *a
	return &copied, nil
}

// AddRun stores a run and assigns its ID.
func (m *MemoryStore) AddRun(ans *types.Answer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.runs {
		if r.Digest == ans.Digest && r.SolvedAt.Equal(ans.SolvedAt) {
			return fmt.Errorf("inserting run: duplicate run for %s at %s", ans.Digest, formatTime(ans.SolvedAt))
		}
	}

	m.nextID++
	ans.ID = m.nextID

	stored := *ans
	stored.Ranges = nil
	m.runs = append(m.runs, &stored)
	m.ranges[ans.ID] = slices.Clone(ans.Ranges)
	return nil
}

// GetRuns retrieves all runs, oldest first, without ranges.
func (m *MemoryStore) GetRuns() ([]*types.Answer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*types.Answer, len(m.runs))
	for i, r := range m.runs {
		copied := *r
		result[i] = &copied
	}
	return result, nil
}

// GetRanges retrieves the final ranges of a run.
func (m *MemoryStore) GetRanges(runID int64) ([]types.Interval, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return slices.Clone(m.ranges[runID]), nil
}

// LatestRun retrieves the most recent run for a digest.
func (m *MemoryStore) LatestRun(digest string) (*types.Answer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.runs) - 1; i >= 0; i-- {
		if m.runs[i].Digest == digest {
			copied := *m.runs[i]
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("run for %s: %w", digest, ErrNotFound)
}

// RunExists checks if a digest has been solved before.
func (m *MemoryStore) RunExists(digest string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, r := range m.runs {
		if r.Digest == digest {
			return true, nil
		}
	}
	return false, nil
}

// Close is a no-op for in-memory store.
func (m *MemoryStore) Close() error {
	return nil
}
