// Package idhash derives deterministic identifiers for journal records.
package idhash

import (
	"crypto/sha256"
	"fmt"

	"github.com/mr-tron/base58"

	"slot-parlor/internal/domain"
)

// ComputeTradeID computes a deterministic trade_id using SHA256.
// Formula: SHA256(session_id|seq|machine_id|side|week)
// Returns the base58-encoded hash (43 or 44 characters).
func ComputeTradeID(
	sessionID string,
	seq int,
	machineID int64,
	side domain.TradeSide,
	week int,
) string {
	data := fmt.Sprintf("%s|%d|%d|%s|%d",
		sessionID,
		seq,
		machineID,
		string(side),
		week,
	)

	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:])
}

// DecodeTradeID returns the raw 32-byte hash behind a trade_id.
func DecodeTradeID(tradeID string) ([]byte, error) {
	raw, err := base58.Decode(tradeID)
	if err != nil {
		return nil, fmt.Errorf("decode trade id %q: %w", tradeID, err)
	}
	if len(raw) != sha256.Size {
		return nil, fmt.Errorf("decode trade id %q: got %d bytes, want %d", tradeID, len(raw), sha256.Size)
	}
	return raw, nil
}
