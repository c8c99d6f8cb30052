package repositories

import (
	"context"
	"fmt"

	"github.com/coachdesk/gatehouse/internal/database"
	"github.com/coachdesk/gatehouse/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SecurityLogRepository handles the append-only audit trail. There are
// deliberately no update or delete methods.
type SecurityLogRepository struct {
	pool *pgxpool.Pool
}

func NewSecurityLogRepository(db *database.DB) *SecurityLogRepository {
	return &SecurityLogRepository{pool: db.Pool}
}

const securityLogColumns = `id, user_id, event_type, severity, description,
	ip_address, user_agent, metadata, created_at`

func scanSecurityLogRow(scanner rowScanner) (*models.SecurityLog, error) {
	var log models.SecurityLog

	err := scanner.Scan(
		&log.ID, &log.UserID, &log.EventType, &log.Severity, &log.Description,
		&log.IPAddress, &log.UserAgent, &log.Metadata, &log.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &log, nil
}

func scanSecurityLogRows(rows pgx.Rows) ([]*models.SecurityLog, error) {
	defer rows.Close()

	logs := make([]*models.SecurityLog, 0)

	for rows.Next() {
		log, err := scanSecurityLogRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan security log: %w", err)
		}
		logs = append(logs, log)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating security log rows: %w", err)
	}

	return logs, nil
}

// Append writes exactly one new row.
func (r *SecurityLogRepository) Append(ctx context.Context, log *models.SecurityLog) (*models.SecurityLog, error) {
	log.ID = uuid.New().String()

	query := `
		INSERT INTO security_logs (id, user_id, event_type, severity,
			description, ip_address, user_agent, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + securityLogColumns

	result, err := scanSecurityLogRow(r.pool.QueryRow(ctx, query,
		log.ID, log.UserID, log.EventType, log.Severity,
		log.Description, log.IPAddress, log.UserAgent, log.Metadata, log.CreatedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to append security log: %w", err)
	}

	return result, nil
}

// ListByUser retrieves the audit trail for a user, newest first.
func (r *SecurityLogRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.SecurityLog, error) {
	query := `
		SELECT ` + securityLogColumns + `
		FROM security_logs
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query security logs: %w", err)
	}

	return scanSecurityLogRows(rows)
}

// ListByEventType retrieves events of one type, newest first.
func (r *SecurityLogRepository) ListByEventType(ctx context.Context, eventType models.EventType, limit, offset int) ([]*models.SecurityLog, error) {
	query := `
		SELECT ` + securityLogColumns + `
		FROM security_logs
		WHERE event_type = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, eventType, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query security logs: %w", err)
	}

	return scanSecurityLogRows(rows)
}

// CountByUser counts audit rows for a user.
func (r *SecurityLogRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	query := `SELECT COUNT(*) FROM security_logs WHERE user_id = $1`

	var count int64
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count security logs: %w", err)
	}

	return count, nil
}
