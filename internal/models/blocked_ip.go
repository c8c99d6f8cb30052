package models

import "time"

// BlockedIP represents a block placed on a source IP address.
// Rows are never deleted; unblocking is a state transition so the
// audit history stays intact. At most one active (unblocked = false
// and not expired) row exists per IP.
type BlockedIP struct {
	ID             string     `db:"id"`
	IPAddress      string     `db:"ip_address"`
	Reason         string     `db:"reason"`
	FailedAttempts int        `db:"failed_attempts"` // Snapshot at block time
	BlockedAt      time.Time  `db:"blocked_at"`
	BlockedBy      *string    `db:"blocked_by"` // Nil for automatic blocks
	ExpiresAt      *time.Time `db:"expires_at"` // Nil = indefinite
	Unblocked      bool       `db:"unblocked"`
	UnblockedAt    *time.Time `db:"unblocked_at"`
	UnblockedBy    *string    `db:"unblocked_by"`
}

// Active reports whether the block is in force at the given instant.
func (b *BlockedIP) Active(now time.Time) bool {
	return !b.Unblocked && !Expired(b.ExpiresAt, now)
}
