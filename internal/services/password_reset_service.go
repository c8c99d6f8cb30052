package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/coachdesk/gatehouse/internal/clock"
	"github.com/coachdesk/gatehouse/internal/models"
	"github.com/coachdesk/gatehouse/pkg/auth"
)

// PasswordResetStore defines the interface for password reset audit rows.
type PasswordResetStore interface {
	Insert(ctx context.Context, reset *models.PasswordResetLog) (*models.PasswordResetLog, error)
	GetByToken(ctx context.Context, token string) (*models.PasswordResetLog, error)
	MarkCompleted(ctx context.Context, id string, completedAt time.Time) error
	ListByUser(ctx context.Context, userID string, limit int) ([]*models.PasswordResetLog, error)
}

// VerificationTokenStore defines the interface for short-lived
// verification token rows.
type VerificationTokenStore interface {
	Insert(ctx context.Context, token *models.VerificationToken) error
	DeleteByToken(ctx context.Context, token string, kind models.VerificationTokenKind) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// ResetMailer sends the reset link to the user. Implemented by the
// email service; swapped for a recorder in tests.
type ResetMailer interface {
	SendPasswordResetEmail(ctx context.Context, toAddress, token string) error
}

// PasswordResetService issues, verifies and consumes single-use
// password reset tokens.
type PasswordResetService struct {
	users    UserStore
	resets   PasswordResetStore
	tokens   VerificationTokenStore
	events   SecurityRecorder
	mailer   ResetMailer
	clock    clock.Clock
	logger   *slog.Logger
	tokenTTL time.Duration
}

// NewPasswordResetService creates a new PasswordResetService
func NewPasswordResetService(users UserStore, resets PasswordResetStore, tokens VerificationTokenStore, events SecurityRecorder, mailer ResetMailer, clk clock.Clock, logger *slog.Logger, tokenTTL time.Duration) *PasswordResetService {
	if tokenTTL <= 0 {
		tokenTTL = 60 * time.Minute
	}
	return &PasswordResetService{
		users:    users,
		resets:   resets,
		tokens:   tokens,
		events:   events,
		mailer:   mailer,
		clock:    clk,
		logger:   logger,
		tokenTTL: tokenTTL,
	}
}

// CreateResetToken issues a fresh reset token for the account behind
// email and sends it out. An unknown email is a silent success so the
// endpoint cannot be used to enumerate accounts. Outstanding tokens
// for the same user are left alone; each expires or is consumed on its
// own schedule.
func (s *PasswordResetService) CreateResetToken(ctx context.Context, email, ip, userAgent string) error {
	now := s.clock.Now()

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.InfoContext(ctx, "password reset requested for unknown email",
				slog.String("ip_address", ip),
			)
			return nil
		}
		return err
	}

	token, err := auth.GenerateResetToken()
	if err != nil {
		return err
	}

	expiresAt := now.Add(s.tokenTTL)

	if _, err := s.resets.Insert(ctx, &models.PasswordResetLog{
		UserID:    user.ID,
		IPAddress: ip,
		Token:     token,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}); err != nil {
		return err
	}

	if err := s.tokens.Insert(ctx, &models.VerificationToken{
		UserID:    user.ID,
		Token:     token,
		Kind:      models.VerificationKindPasswordReset,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}); err != nil {
		return err
	}

	if err := s.events.LogEvent(ctx, SecurityEvent{
		UserID:      &user.ID,
		Type:        models.EventPasswordResetRequest,
		Severity:    models.SeverityMedium,
		Description: "Password reset requested",
		IPAddress:   &ip,
		UserAgent:   &userAgent,
		Metadata: models.EventMetadata{
			"expires_at": expiresAt,
		},
	}); err != nil {
		return err
	}

	if err := s.mailer.SendPasswordResetEmail(ctx, user.Email, token); err != nil {
		s.logger.ErrorContext(ctx, "failed to send password reset email",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return err
	}

	return nil
}

// VerifyResetToken returns the owning user ID when token is still
// usable, or the empty string otherwise. Missing, expired and
// already-consumed tokens are indistinguishable to the caller.
func (s *PasswordResetService) VerifyResetToken(ctx context.Context, token string) (string, error) {
	reset, err := s.resets.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return "", nil
		}
		return "", err
	}

	if !reset.Consumable(s.clock.Now()) {
		return "", nil
	}

	return reset.UserID, nil
}

// CompleteReset consumes token and installs newPasswordHash for its
// owner. The returned bool reports whether the token was accepted.
// The token is claimed first: once the claim lands no concurrent call
// can consume the same token, and a failure after the claim leaves the
// token burned rather than reusable.
func (s *PasswordResetService) CompleteReset(ctx context.Context, token, newPasswordHash, ip, userAgent string) (bool, error) {
	now := s.clock.Now()

	reset, err := s.resets.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	if !reset.Consumable(now) {
		return false, nil
	}

	if err := s.resets.MarkCompleted(ctx, reset.ID, now); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Lost the race to another completion.
			return false, nil
		}
		return false, err
	}

	if err := s.users.UpdatePassword(ctx, reset.UserID, newPasswordHash, now); err != nil {
		return false, err
	}

	if err := s.tokens.DeleteByToken(ctx, token, models.VerificationKindPasswordReset); err != nil && !errors.Is(err, models.ErrNotFound) {
		return false, err
	}

	s.logger.InfoContext(ctx, "password reset completed",
		slog.String("user_id", reset.UserID),
	)

	if err := s.events.LogEvent(ctx, SecurityEvent{
		UserID:      &reset.UserID,
		Type:        models.EventPasswordResetComplete,
		Severity:    models.SeverityMedium,
		Description: "Password reset completed",
		IPAddress:   &ip,
		UserAgent:   &userAgent,
	}); err != nil {
		return false, err
	}

	return true, nil
}

// ResetHistory returns the most recent reset requests for a user.
func (s *PasswordResetService) ResetHistory(ctx context.Context, userID string, limit int) ([]*models.PasswordResetLog, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.resets.ListByUser(ctx, userID, limit)
}

// PurgeExpiredTokens removes verification token rows past their
// expiry. Run periodically from the cleanup worker; the audit rows in
// password_reset_logs are never touched.
func (s *PasswordResetService) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	return s.tokens.DeleteExpired(ctx, s.clock.Now())
}
