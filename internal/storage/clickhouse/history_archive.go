package clickhouse

import (
	"context"
	"fmt"

	"slot-parlor/internal/domain"
	"slot-parlor/internal/storage"
)

// HistoryArchive implements storage.HistoryArchive using ClickHouse.
type HistoryArchive struct {
	conn *Conn
}

// NewHistoryArchive creates a new HistoryArchive.
func NewHistoryArchive(conn *Conn) *HistoryArchive {
	return &HistoryArchive{conn: conn}
}

// Compile-time interface check.
var _ storage.HistoryArchive = (*HistoryArchive)(nil)

const snapshotColumns = `
	session_id, machine_id, machine_name, week, score, delta, tier,
	factor_base, factor_ip, factor_spec, factor_release, factor_adjustment
`

// InsertBulk adds snapshots. Fails entire batch on duplicate (session_id, machine_id, week).
// MergeTree does not enforce uniqueness, so duplicates are checked explicitly.
func (s *HistoryArchive) InsertBulk(ctx context.Context, snapshots []*domain.WeeklySnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	type key struct {
		sessionID string
		machineID int64
		week      int
	}
	seen := make(map[key]struct{}, len(snapshots))
	weeks := make(map[string]map[int]struct{})
	for _, snap := range snapshots {
		if snap == nil || snap.SessionID == "" || snap.Week < 1 {
			return storage.ErrInvalidInput
		}
		k := key{snap.SessionID, snap.MachineID, snap.Week}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}

		if weeks[snap.SessionID] == nil {
			weeks[snap.SessionID] = make(map[int]struct{})
		}
		weeks[snap.SessionID][snap.Week] = struct{}{}
	}

	// Check for duplicates against existing rows, one query per (session, week)
	for sessionID, ws := range weeks {
		for week := range ws {
			existing, err := s.machinesAt(ctx, sessionID, week)
			if err != nil {
				return fmt.Errorf("check exists: %w", err)
			}
			for _, machineID := range existing {
				if _, dup := seen[key{sessionID, machineID, week}]; dup {
					return storage.ErrDuplicateKey
				}
			}
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO popularity_history (`+snapshotColumns+`)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, snap := range snapshots {
		err = batch.Append(
			snap.SessionID, snap.MachineID, snap.MachineName, uint32(snap.Week),
			snap.Score, snap.Delta, string(snap.Tier),
			snap.Factors.Base, snap.Factors.IP, snap.Factors.Spec,
			snap.Factors.Release, snap.Factors.Adjustment,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetBySessionID retrieves all snapshots of a session, ordered by (week, machine_id) ASC.
func (s *HistoryArchive) GetBySessionID(ctx context.Context, sessionID string) ([]*domain.WeeklySnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM popularity_history
		WHERE session_id = ?
		ORDER BY week ASC, machine_id ASC
	`

	rows, err := s.conn.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query by session id: %w", err)
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

// GetByMachineID retrieves one machine's snapshots within a session, ordered by week ASC.
func (s *HistoryArchive) GetByMachineID(ctx context.Context, sessionID string, machineID int64) ([]*domain.WeeklySnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM popularity_history
		WHERE session_id = ? AND machine_id = ?
		ORDER BY week ASC
	`

	rows, err := s.conn.Query(ctx, query, sessionID, machineID)
	if err != nil {
		return nil, fmt.Errorf("query by machine id: %w", err)
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

// machinesAt lists machine IDs already archived for a (session, week).
func (s *HistoryArchive) machinesAt(ctx context.Context, sessionID string, week int) ([]int64, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT machine_id FROM popularity_history
		WHERE session_id = ? AND week = ?
	`, sessionID, uint32(week))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// scanSnapshots scans multiple rows.
func scanSnapshots(rows chRows) ([]*domain.WeeklySnapshot, error) {
	var snapshots []*domain.WeeklySnapshot

	for rows.Next() {
		var snap domain.WeeklySnapshot
		var week uint32
		var tier string

		err := rows.Scan(
			&snap.SessionID, &snap.MachineID, &snap.MachineName, &week,
			&snap.Score, &snap.Delta, &tier,
			&snap.Factors.Base, &snap.Factors.IP, &snap.Factors.Spec,
			&snap.Factors.Release, &snap.Factors.Adjustment,
		)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}

		snap.Week = int(week)
		snap.Tier = domain.Tier(tier)
		snapshots = append(snapshots, &snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}

	return snapshots, nil
}
