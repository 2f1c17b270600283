package memory

import (
	"context"
	"sort"
	"sync"

	"slot-parlor/internal/domain"
	"slot-parlor/internal/storage"
)

type snapshotKey struct {
	sessionID string
	machineID int64
	week      int
}

// HistoryArchive is an in-memory implementation of storage.HistoryArchive.
type HistoryArchive struct {
	mu   sync.RWMutex
	data map[snapshotKey]*domain.WeeklySnapshot
}

// NewHistoryArchive creates a new in-memory history archive.
func NewHistoryArchive() *HistoryArchive {
	return &HistoryArchive{
		data: make(map[snapshotKey]*domain.WeeklySnapshot),
	}
}

// InsertBulk adds snapshots atomically. Fails entire batch on any duplicate.
func (s *HistoryArchive) InsertBulk(_ context.Context, snapshots []*domain.WeeklySnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// First pass: check for duplicates (existing + intra-batch)
	batchKeys := make(map[snapshotKey]struct{}, len(snapshots))
	for _, snap := range snapshots {
		if snap == nil || snap.SessionID == "" {
			return storage.ErrInvalidInput
		}
		k := snapshotKey{snap.SessionID, snap.MachineID, snap.Week}
		if _, exists := s.data[k]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[k]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[k] = struct{}{}
	}

	// Second pass: insert all
	for _, snap := range snapshots {
		copy := *snap
		s.data[snapshotKey{snap.SessionID, snap.MachineID, snap.Week}] = &copy
	}

	return nil
}

// GetBySessionID retrieves all snapshots of a session, ordered by (week, machine_id) ASC.
func (s *HistoryArchive) GetBySessionID(_ context.Context, sessionID string) ([]*domain.WeeklySnapshot, error) {
	return s.collect(func(k snapshotKey) bool {
		return k.sessionID == sessionID
	}), nil
}

// GetByMachineID retrieves one machine's snapshots within a session, ordered by week ASC.
func (s *HistoryArchive) GetByMachineID(_ context.Context, sessionID string, machineID int64) ([]*domain.WeeklySnapshot, error) {
	return s.collect(func(k snapshotKey) bool {
		return k.sessionID == sessionID && k.machineID == machineID
	}), nil
}

func (s *HistoryArchive) collect(match func(snapshotKey) bool) []*domain.WeeklySnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.WeeklySnapshot
	for k, snap := range s.data {
		if match(k) {
			copy := *snap
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Week != result[j].Week {
			return result[i].Week < result[j].Week
		}
		return result[i].MachineID < result[j].MachineID
	})

	return result
}

var _ storage.HistoryArchive = (*HistoryArchive)(nil)
