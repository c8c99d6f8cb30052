package repositories

import (
	"context"
	"time"

	"github.com/coachdesk/gatehouse/internal/database"
	"github.com/coachdesk/gatehouse/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{pool: db.Pool}
}

// rowScanner interface for scanning rows (supports both single row and multiple rows)
type rowScanner interface {
	Scan(dest ...interface{}) error
}

const userColumns = `id, email, password_hash, name, failed_login_attempts,
	account_locked, account_locked_reason, account_locked_until,
	login_count, password_changed_at, created_at, updated_at`

// scanUserRow handles nullable fields and populates a User model from a database row
func scanUserRow(scanner rowScanner) (*models.User, error) {
	var user models.User

	err := scanner.Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.Name,
		&user.FailedLoginAttempts, &user.AccountLocked,
		&user.AccountLockedReason, &user.AccountLockedUntil,
		&user.LoginCount, &user.PasswordChangedAt,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUserRow(r.pool.QueryRow(ctx, query, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUserRow(r.pool.QueryRow(ctx, query, email))
}

// IncrementFailedAttempts atomically bumps the failed-attempt counter and
// returns the new value. The increment happens at the store so two
// concurrent failures cannot read-modify-write each other away.
func (r *UserRepository) IncrementFailedAttempts(ctx context.Context, id string, now time.Time) (int, error) {
	query := `
		UPDATE users
		SET failed_login_attempts = failed_login_attempts + 1, updated_at = $2
		WHERE id = $1
		RETURNING failed_login_attempts
	`

	var count int
	if err := r.pool.QueryRow(ctx, query, id, now).Scan(&count); err != nil {
		return 0, database.MapPostgresError(err)
	}
	return count, nil
}

// ResetFailedAttempts zeroes the counter, clears the automatic lockout and
// bumps the login count. The manual lock flag is deliberately untouched.
func (r *UserRepository) ResetFailedAttempts(ctx context.Context, id string, now time.Time) error {
	query := `
		UPDATE users
		SET failed_login_attempts = 0, account_locked_until = NULL,
			login_count = login_count + 1, updated_at = $2
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id, now)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// SetLockedUntil installs (or clears, with nil) the automatic lockout window.
func (r *UserRepository) SetLockedUntil(ctx context.Context, id string, until *time.Time, now time.Time) error {
	query := `UPDATE users SET account_locked_until = $2, updated_at = $3 WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id, until, now)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// SetManualLock flags the account as administratively locked.
func (r *UserRepository) SetManualLock(ctx context.Context, id, reason string, now time.Time) error {
	query := `
		UPDATE users
		SET account_locked = true, account_locked_reason = $2, updated_at = $3
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id, reason, now)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// ClearAllLocks removes both lock axes and zeroes the attempt counter.
func (r *UserRepository) ClearAllLocks(ctx context.Context, id string, now time.Time) error {
	query := `
		UPDATE users
		SET account_locked = false, account_locked_reason = NULL,
			account_locked_until = NULL, failed_login_attempts = 0, updated_at = $2
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id, now)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// UpdatePassword installs a new credential hash, stamps the change time,
// zeroes the attempt counter and lifts any automatic lockout.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, now time.Time) error {
	query := `
		UPDATE users
		SET password_hash = $2, password_changed_at = $3,
			failed_login_attempts = 0, account_locked_until = NULL, updated_at = $3
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id, passwordHash, now)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
