package repositories

import (
	"context"
	"time"

	"github.com/coachdesk/gatehouse/internal/database"
	"github.com/coachdesk/gatehouse/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BlockedIPRepository handles persistence for IP blocks. Rows are only
// ever inserted or transitioned; there is no delete.
type BlockedIPRepository struct {
	pool *pgxpool.Pool
}

func NewBlockedIPRepository(db *database.DB) *BlockedIPRepository {
	return &BlockedIPRepository{pool: db.Pool}
}

const blockedIPColumns = `id, ip_address, reason, failed_attempts, blocked_at,
	blocked_by, expires_at, unblocked, unblocked_at, unblocked_by`

func scanBlockedIPRow(scanner rowScanner) (*models.BlockedIP, error) {
	var b models.BlockedIP

	err := scanner.Scan(
		&b.ID, &b.IPAddress, &b.Reason, &b.FailedAttempts, &b.BlockedAt,
		&b.BlockedBy, &b.ExpiresAt, &b.Unblocked, &b.UnblockedAt, &b.UnblockedBy,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &b, nil
}

// GetCurrentByIP returns the one non-unblocked row for an IP, whether or
// not it has expired. Expiry is the caller's decision; an expired row is
// still the row that gets refreshed on re-block.
func (r *BlockedIPRepository) GetCurrentByIP(ctx context.Context, ip string) (*models.BlockedIP, error) {
	query := `
		SELECT ` + blockedIPColumns + `
		FROM blocked_ips
		WHERE ip_address = $1 AND unblocked = false
		ORDER BY blocked_at DESC
		LIMIT 1
	`

	return scanBlockedIPRow(r.pool.QueryRow(ctx, query, ip))
}

func (r *BlockedIPRepository) Insert(ctx context.Context, block *models.BlockedIP) (*models.BlockedIP, error) {
	block.ID = uuid.New().String()

	query := `
		INSERT INTO blocked_ips (id, ip_address, reason, failed_attempts,
			blocked_at, blocked_by, expires_at, unblocked)
		VALUES ($1, $2, $3, $4, $5, $6, $7, false)
		RETURNING ` + blockedIPColumns

	return scanBlockedIPRow(r.pool.QueryRow(ctx, query,
		block.ID, block.IPAddress, block.Reason, block.FailedAttempts,
		block.BlockedAt, block.BlockedBy, block.ExpiresAt,
	))
}

// Refresh updates an existing block in place: new attempt snapshot,
// refreshed window, updated reason. Re-blocking extends, it does not
// accumulate rows.
func (r *BlockedIPRepository) Refresh(ctx context.Context, id, reason string, failedAttempts int, blockedAt time.Time, blockedBy *string, expiresAt *time.Time) (*models.BlockedIP, error) {
	query := `
		UPDATE blocked_ips
		SET reason = $2, failed_attempts = $3, blocked_at = $4, blocked_by = $5, expires_at = $6
		WHERE id = $1
		RETURNING ` + blockedIPColumns

	return scanBlockedIPRow(r.pool.QueryRow(ctx, query,
		id, reason, failedAttempts, blockedAt, blockedBy, expiresAt,
	))
}

// MarkUnblocked transitions a block to the unblocked state. Returns
// ErrNotFound if the row was already unblocked.
func (r *BlockedIPRepository) MarkUnblocked(ctx context.Context, id, unblockedBy string, at time.Time) error {
	query := `
		UPDATE blocked_ips
		SET unblocked = true, unblocked_at = $2, unblocked_by = $3
		WHERE id = $1 AND unblocked = false
	`

	result, err := r.pool.Exec(ctx, query, id, at, unblockedBy)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// ListByIP returns the full block history for an address, newest first.
func (r *BlockedIPRepository) ListByIP(ctx context.Context, ip string, limit int) ([]*models.BlockedIP, error) {
	query := `
		SELECT ` + blockedIPColumns + `
		FROM blocked_ips
		WHERE ip_address = $1
		ORDER BY blocked_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, ip, limit)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	defer rows.Close()

	blocks := make([]*models.BlockedIP, 0)
	for rows.Next() {
		b, err := scanBlockedIPRow(rows)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}

	return blocks, rows.Err()
}
