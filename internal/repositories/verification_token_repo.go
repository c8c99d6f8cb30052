package repositories

import (
	"context"
	"time"

	"github.com/coachdesk/gatehouse/internal/database"
	"github.com/coachdesk/gatehouse/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// VerificationTokenRepository handles the generic single-use token
// records mirrored alongside password reset logs.
type VerificationTokenRepository struct {
	pool *pgxpool.Pool
}

func NewVerificationTokenRepository(db *database.DB) *VerificationTokenRepository {
	return &VerificationTokenRepository{pool: db.Pool}
}

func (r *VerificationTokenRepository) Insert(ctx context.Context, token *models.VerificationToken) error {
	token.ID = uuid.New().String()

	query := `
		INSERT INTO verification_tokens (id, user_id, token, kind, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query,
		token.ID, token.UserID, token.Token, token.Kind, token.ExpiresAt, token.CreatedAt,
	)
	return database.MapPostgresError(err)
}

func (r *VerificationTokenRepository) GetByToken(ctx context.Context, token string, kind models.VerificationTokenKind) (*models.VerificationToken, error) {
	query := `
		SELECT id, user_id, token, kind, expires_at, created_at
		FROM verification_tokens
		WHERE token = $1 AND kind = $2
	`

	var vt models.VerificationToken
	err := r.pool.QueryRow(ctx, query, token, kind).Scan(
		&vt.ID, &vt.UserID, &vt.Token, &vt.Kind, &vt.ExpiresAt, &vt.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &vt, nil
}

// DeleteByToken removes the mirrored record; this is the single-use
// enforcement for any consumer reading verification_tokens directly.
func (r *VerificationTokenRepository) DeleteByToken(ctx context.Context, token string, kind models.VerificationTokenKind) error {
	query := `DELETE FROM verification_tokens WHERE token = $1 AND kind = $2`

	result, err := r.pool.Exec(ctx, query, token, kind)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// DeleteExpired sweeps tokens whose window has passed. Hygiene only;
// validity is always re-checked at read time.
func (r *VerificationTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `DELETE FROM verification_tokens WHERE expires_at <= $1`

	result, err := r.pool.Exec(ctx, query, now)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return result.RowsAffected(), nil
}
