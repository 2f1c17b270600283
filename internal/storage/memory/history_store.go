package memory

import (
	"context"
	"sync"

	"slot-parlor/internal/domain"
	"slot-parlor/internal/storage"
)

// DefaultHistoryCapacity retains one simulated year of weeks per machine.
const DefaultHistoryCapacity = 52

// HistoryStore is an in-memory implementation of storage.HistoryStore.
type HistoryStore struct {
	mu       sync.RWMutex
	capacity int
	data     map[int64][]*domain.HistoryEntry // keyed by machine_id, ordered by week ASC
	lastWeek map[int64]int                    // latest week ever appended, survives eviction
}

// NewHistoryStore creates a new in-memory history store.
// A non-positive capacity falls back to DefaultHistoryCapacity.
func NewHistoryStore(capacity int) *HistoryStore {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &HistoryStore{
		capacity: capacity,
		data:     make(map[int64][]*domain.HistoryEntry),
		lastWeek: make(map[int64]int),
	}
}

// Append adds an entry, evicting the oldest once over capacity.
func (s *HistoryStore) Append(_ context.Context, e *domain.HistoryEntry) error {
	if e == nil || e.Week < 1 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if last, ok := s.lastWeek[e.MachineID]; ok {
		if e.Week == last {
			return storage.ErrDuplicateKey
		}
		if e.Week < last {
			return storage.ErrNonMonotonicWeek
		}
	}

	entries := append(s.data[e.MachineID], e.Clone())
	if over := len(entries) - s.capacity; over > 0 {
		// Copy into a fresh slice so evicted entries are released.
		entries = append([]*domain.HistoryEntry(nil), entries[over:]...)
	}
	s.data[e.MachineID] = entries
	s.lastWeek[e.MachineID] = e.Week
	return nil
}

// Latest returns the most recent entry for a machine.
func (s *HistoryStore) Latest(_ context.Context, machineID int64) (*domain.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.data[machineID]
	if len(entries) == 0 {
		return nil, storage.ErrNotFound
	}
	return entries[len(entries)-1].Clone(), nil
}

// GetByMachineID retrieves retained entries for a machine, ordered by week ASC.
func (s *HistoryStore) GetByMachineID(_ context.Context, machineID int64) ([]*domain.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return cloneEntries(s.data[machineID]), nil
}

// Window retrieves the last n retained entries for a machine.
func (s *HistoryStore) Window(_ context.Context, machineID int64, n int) ([]*domain.HistoryEntry, error) {
	if n < 0 {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.data[machineID]
	if n < len(entries) {
		entries = entries[len(entries)-n:]
	}
	return cloneEntries(entries), nil
}

// Capacity returns the maximum retained entries per machine.
func (s *HistoryStore) Capacity() int {
	return s.capacity
}

// Clear drops all entries.
func (s *HistoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = make(map[int64][]*domain.HistoryEntry)
	s.lastWeek = make(map[int64]int)
	return nil
}

func cloneEntries(entries []*domain.HistoryEntry) []*domain.HistoryEntry {
	result := make([]*domain.HistoryEntry, 0, len(entries))
	for _, e := range entries {
		result = append(result, e.Clone())
	}
	return result
}

var _ storage.HistoryStore = (*HistoryStore)(nil)
