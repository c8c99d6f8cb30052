package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/coachdesk/gatehouse/internal/clock"
	"github.com/coachdesk/gatehouse/internal/models"
)

// UserStore defines the interface for user record persistence. Shared
// by the tracker, the lock manager and the reset flow.
type UserStore interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	IncrementFailedAttempts(ctx context.Context, id string, now time.Time) (int, error)
	ResetFailedAttempts(ctx context.Context, id string, now time.Time) error
	SetLockedUntil(ctx context.Context, id string, until *time.Time, now time.Time) error
	SetManualLock(ctx context.Context, id, reason string, now time.Time) error
	ClearAllLocks(ctx context.Context, id string, now time.Time) error
	UpdatePassword(ctx context.Context, id, passwordHash string, now time.Time) error
}

// IPBlocker is the slice of the IP guard the tracker escalates into.
type IPBlocker interface {
	BlockIP(ctx context.Context, params BlockIPParams) error
}

// TrackerConfig holds threshold and escalation configuration.
type TrackerConfig struct {
	MaxFailedAttempts int
	LockoutDuration   time.Duration
	IPBlockDuration   time.Duration
}

// TrackResult is the outcome of recording one failed login.
type TrackResult struct {
	ShouldBlock       bool
	AttemptsRemaining int
}

// LoginTrackerService maintains per-user failed-attempt counters and
// escalates into an account lockout plus IP block when the threshold is
// crossed.
type LoginTrackerService struct {
	users   UserStore
	ipGuard IPBlocker
	events  SecurityRecorder
	clock   clock.Clock
	logger  *slog.Logger
	config  TrackerConfig
}

// NewLoginTrackerService creates a new LoginTrackerService
func NewLoginTrackerService(users UserStore, ipGuard IPBlocker, events SecurityRecorder, clk clock.Clock, logger *slog.Logger, config TrackerConfig) *LoginTrackerService {
	if config.MaxFailedAttempts <= 0 {
		config.MaxFailedAttempts = 5
	}
	if config.LockoutDuration <= 0 {
		config.LockoutDuration = 15 * time.Minute
	}
	if config.IPBlockDuration <= 0 {
		config.IPBlockDuration = 60 * time.Minute
	}
	return &LoginTrackerService{
		users:   users,
		ipGuard: ipGuard,
		events:  events,
		clock:   clk,
		logger:  logger,
		config:  config,
	}
}

// TrackFailedLogin records one failed credential check for identifier.
// Unknown identifiers are logged but never escalate: the absence of an
// account must not behave differently from an early failure against a
// real one, and probing unknown emails cannot consume anyone's attempt
// budget.
func (s *LoginTrackerService) TrackFailedLogin(ctx context.Context, identifier, ip, userAgent string) (TrackResult, error) {
	now := s.clock.Now()

	user, err := s.users.GetByEmail(ctx, identifier)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			if err := s.events.LogEvent(ctx, SecurityEvent{
				Type:        models.EventFailedLogin,
				Severity:    models.SeverityLow,
				Description: "Failed login attempt for non-existent account",
				IPAddress:   &ip,
				UserAgent:   &userAgent,
				Metadata: models.EventMetadata{
					"identifier": identifier,
				},
			}); err != nil {
				return TrackResult{}, err
			}
			return TrackResult{ShouldBlock: false, AttemptsRemaining: s.config.MaxFailedAttempts}, nil
		}
		return TrackResult{}, err
	}

	newCount, err := s.users.IncrementFailedAttempts(ctx, user.ID, now)
	if err != nil {
		return TrackResult{}, err
	}

	shouldBlock := newCount >= s.config.MaxFailedAttempts

	severity := models.SeverityMedium
	if shouldBlock {
		severity = models.SeverityHigh
	}

	if err := s.events.LogEvent(ctx, SecurityEvent{
		UserID:      &user.ID,
		Type:        models.EventFailedLogin,
		Severity:    severity,
		Description: fmt.Sprintf("Failed login attempt %d of %d", newCount, s.config.MaxFailedAttempts),
		IPAddress:   &ip,
		UserAgent:   &userAgent,
		Metadata: models.EventMetadata{
			"failed_attempts": newCount,
		},
	}); err != nil {
		return TrackResult{}, err
	}

	if shouldBlock {
		reason := fmt.Sprintf("Too many failed login attempts (%d)", newCount)

		if err := s.ipGuard.BlockIP(ctx, BlockIPParams{
			IP:             ip,
			Reason:         reason,
			FailedAttempts: newCount,
			Duration:       s.config.IPBlockDuration,
		}); err != nil {
			return TrackResult{}, err
		}

		lockedUntil := now.Add(s.config.LockoutDuration)
		if err := s.users.SetLockedUntil(ctx, user.ID, &lockedUntil, now); err != nil {
			return TrackResult{}, err
		}

		s.logger.WarnContext(ctx, "account locked out",
			slog.String("user_id", user.ID),
			slog.Int("failed_attempts", newCount),
			slog.Time("locked_until", lockedUntil),
		)

		if err := s.events.LogEvent(ctx, SecurityEvent{
			UserID:      &user.ID,
			Type:        models.EventAccountLocked,
			Severity:    models.SeverityHigh,
			Description: reason,
			IPAddress:   &ip,
			Metadata: models.EventMetadata{
				"locked_until":    lockedUntil,
				"failed_attempts": newCount,
			},
		}); err != nil {
			return TrackResult{}, err
		}
	}

	remaining := s.config.MaxFailedAttempts - newCount
	if remaining < 0 {
		remaining = 0
	}

	return TrackResult{ShouldBlock: shouldBlock, AttemptsRemaining: remaining}, nil
}

// ResetFailedAttempts clears the counter and any automatic lockout
// after a successful authentication, and bumps the login count. Called
// exactly once per success, after credential verification and before
// session issuance. A manual lock is deliberately left in place.
func (s *LoginTrackerService) ResetFailedAttempts(ctx context.Context, userID string) error {
	return s.users.ResetFailedAttempts(ctx, userID, s.clock.Now())
}
