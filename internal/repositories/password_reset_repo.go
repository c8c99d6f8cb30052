package repositories

import (
	"context"
	"time"

	"github.com/coachdesk/gatehouse/internal/database"
	"github.com/coachdesk/gatehouse/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PasswordResetRepository handles PasswordResetLog persistence.
type PasswordResetRepository struct {
	pool *pgxpool.Pool
}

func NewPasswordResetRepository(db *database.DB) *PasswordResetRepository {
	return &PasswordResetRepository{pool: db.Pool}
}

const passwordResetColumns = `id, user_id, ip_address, token, expires_at,
	successful, completed_at, created_at`

func scanPasswordResetRow(scanner rowScanner) (*models.PasswordResetLog, error) {
	var p models.PasswordResetLog

	err := scanner.Scan(
		&p.ID, &p.UserID, &p.IPAddress, &p.Token, &p.ExpiresAt,
		&p.Successful, &p.CompletedAt, &p.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &p, nil
}

func (r *PasswordResetRepository) Insert(ctx context.Context, log *models.PasswordResetLog) (*models.PasswordResetLog, error) {
	log.ID = uuid.New().String()

	query := `
		INSERT INTO password_reset_logs (id, user_id, ip_address, token,
			expires_at, successful, completed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, NULL, NULL, $6)
		RETURNING ` + passwordResetColumns

	return scanPasswordResetRow(r.pool.QueryRow(ctx, query,
		log.ID, log.UserID, log.IPAddress, log.Token, log.ExpiresAt, log.CreatedAt,
	))
}

func (r *PasswordResetRepository) GetByToken(ctx context.Context, token string) (*models.PasswordResetLog, error) {
	query := `SELECT ` + passwordResetColumns + ` FROM password_reset_logs WHERE token = $1`
	return scanPasswordResetRow(r.pool.QueryRow(ctx, query, token))
}

// MarkCompleted performs the one-way pending -> consumed transition.
// The successful-IS-NULL guard makes the transition atomic at the store:
// if two completions race, exactly one sees a row affected and the other
// gets ErrNotFound.
func (r *PasswordResetRepository) MarkCompleted(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE password_reset_logs
		SET successful = true, completed_at = $2
		WHERE id = $1 AND successful IS NULL
	`

	result, err := r.pool.Exec(ctx, query, id, at)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// ListByUser returns a user's reset history, newest first.
func (r *PasswordResetRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*models.PasswordResetLog, error) {
	query := `
		SELECT ` + passwordResetColumns + `
		FROM password_reset_logs
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	defer rows.Close()

	logs := make([]*models.PasswordResetLog, 0)
	for rows.Next() {
		p, err := scanPasswordResetRow(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, p)
	}

	return logs, rows.Err()
}
