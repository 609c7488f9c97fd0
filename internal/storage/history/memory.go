package history

import (
	"context"
	"sort"
	"sync"

	"github.com/newthinker/swingsim/internal/core"
)

// MemoryStore is an in-memory history store that keeps the newest maxSize records.
type MemoryStore struct {
	records []Record
	maxSize int
	mu      sync.RWMutex
}

// NewMemoryStore creates a new in-memory store with max capacity.
func NewMemoryStore(maxSize int) *MemoryStore {
	if maxSize <= 0 {
		maxSize = 500
	}
	return &MemoryStore{
		records: make([]Record, 0, maxSize),
		maxSize: maxSize,
	}
}

// Save adds a record to the store.
func (m *MemoryStore) Save(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		return core.Errorf(core.ErrStorage, "record id required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.records {
		if m.records[i].ID == rec.ID {
			m.records[i] = rec
			return nil
		}
	}
	m.records = append(m.records, rec)

	// Trim if over capacity (remove oldest)
	if len(m.records) > m.maxSize {
		m.records = m.records[len(m.records)-m.maxSize:]
	}

	return nil
}

// Get retrieves a record by ID.
func (m *MemoryStore) Get(ctx context.Context, id string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := range m.records {
		if m.records[i].ID == id {
			rec := m.records[i]
			return &rec, nil
		}
	}
	return nil, core.Errorf(core.ErrNotFound, "run %s", id)
}

// List returns records matching the filter, newest first.
func (m *MemoryStore) List(ctx context.Context, filter ListFilter) ([]Record, error) {
	m.mu.RLock()
	result := make([]Record, 0)
	for _, rec := range m.records {
		if filter.matches(rec) {
			result = append(result, rec)
		}
	}
	m.mu.RUnlock()

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].StartedAt.After(result[j].StartedAt)
	})

	// Apply offset and limit
	if filter.Offset >= len(result) {
		return []Record{}, nil
	}
	if filter.Offset > 0 {
		result = result[filter.Offset:]
	}

	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}

	return result, nil
}

// Count returns the count of matching records.
func (m *MemoryStore) Count(ctx context.Context, filter ListFilter) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, rec := range m.records {
		if filter.matches(rec) {
			count++
		}
	}
	return count, nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error {
	return nil
}
