package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/coachdesk/gatehouse/internal/clock"
	"github.com/coachdesk/gatehouse/internal/models"
)

// AccountLockService answers whether an account may currently
// authenticate and handles the administrative lock and unlock paths.
// Automatic lockouts carry an expiry and clear lazily the first time
// they are consulted after it passes. Manual locks have no expiry and
// only an explicit unlock removes them.
type AccountLockService struct {
	users  UserStore
	events SecurityRecorder
	clock  clock.Clock
	logger *slog.Logger
}

// NewAccountLockService creates a new AccountLockService
func NewAccountLockService(users UserStore, events SecurityRecorder, clk clock.Clock, logger *slog.Logger) *AccountLockService {
	return &AccountLockService{
		users:  users,
		events: events,
		clock:  clk,
		logger: logger,
	}
}

// IsAccountLocked reports whether userID is currently barred from
// logging in. An unknown user is simply not locked. An expired
// automatic lockout is cleared on the spot so the stored row catches
// up with the answer.
func (s *AccountLockService) IsAccountLocked(ctx context.Context, userID string) (bool, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	if user.AccountLocked {
		return true, nil
	}

	if user.AccountLockedUntil == nil {
		return false, nil
	}

	now := s.clock.Now()
	if models.Expired(user.AccountLockedUntil, now) {
		if err := s.users.SetLockedUntil(ctx, user.ID, nil, now); err != nil {
			return false, err
		}
		s.logger.InfoContext(ctx, "expired lockout cleared",
			slog.String("user_id", user.ID),
		)
		return false, nil
	}

	return true, nil
}

// LockUserAccount places a manual, non-expiring lock on the account.
func (s *AccountLockService) LockUserAccount(ctx context.Context, userID, reason, lockedBy string) error {
	now := s.clock.Now()

	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return err
	}

	if err := s.users.SetManualLock(ctx, userID, reason, now); err != nil {
		return err
	}

	s.logger.WarnContext(ctx, "account manually locked",
		slog.String("user_id", userID),
		slog.String("locked_by", lockedBy),
		slog.String("reason", reason),
	)

	return s.events.LogEvent(ctx, SecurityEvent{
		UserID:      &userID,
		Type:        models.EventAccountLocked,
		Severity:    models.SeverityHigh,
		Description: "Account manually locked by administrator",
		Metadata: models.EventMetadata{
			"locked_by": lockedBy,
			"reason":    reason,
		},
	})
}

// UnlockUserAccount removes every lock on the account, manual and
// automatic alike, and zeroes the failed-attempt counter so the user
// starts from a clean slate.
func (s *AccountLockService) UnlockUserAccount(ctx context.Context, userID, unlockedBy string) error {
	now := s.clock.Now()

	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return err
	}

	if err := s.users.ClearAllLocks(ctx, userID, now); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "account unlocked",
		slog.String("user_id", userID),
		slog.String("unlocked_by", unlockedBy),
	)

	return s.events.LogEvent(ctx, SecurityEvent{
		UserID:      &userID,
		Type:        models.EventAccountUnlocked,
		Severity:    models.SeverityMedium,
		Description: "Account unlocked by administrator",
		Metadata: models.EventMetadata{
			"unlocked_by": unlockedBy,
		},
	})
}
