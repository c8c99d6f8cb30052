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

// BlockedIPStore defines the interface for IP block persistence
type BlockedIPStore interface {
	GetCurrentByIP(ctx context.Context, ip string) (*models.BlockedIP, error)
	Insert(ctx context.Context, block *models.BlockedIP) (*models.BlockedIP, error)
	Refresh(ctx context.Context, id, reason string, failedAttempts int, blockedAt time.Time, blockedBy *string, expiresAt *time.Time) (*models.BlockedIP, error)
	MarkUnblocked(ctx context.Context, id, unblockedBy string, at time.Time) error
}

// SecurityRecorder is the slice of the security log the other services
// depend on.
type SecurityRecorder interface {
	LogEvent(ctx context.Context, event SecurityEvent) error
}

// BlockIPParams describes one block or re-block request.
type BlockIPParams struct {
	IP             string
	Reason         string
	FailedAttempts int
	Duration       time.Duration // Zero means the configured default
	BlockedBy      *string       // Nil for automatic blocks
}

// IPGuardService maintains the blocked/unblocked state of client IP
// addresses. Expiry is lazy: nothing sweeps expired blocks, every read
// re-derives validity against the clock.
type IPGuardService struct {
	repo            BlockedIPStore
	events          SecurityRecorder
	clock           clock.Clock
	logger          *slog.Logger
	defaultDuration time.Duration
}

// NewIPGuardService creates a new IPGuardService
func NewIPGuardService(repo BlockedIPStore, events SecurityRecorder, clk clock.Clock, logger *slog.Logger, defaultDuration time.Duration) *IPGuardService {
	if defaultDuration <= 0 {
		defaultDuration = 60 * time.Minute
	}
	return &IPGuardService{
		repo:            repo,
		events:          events,
		clock:           clk,
		logger:          logger,
		defaultDuration: defaultDuration,
	}
}

// IsIPBlocked reports whether an active block exists for ip. Read-only
// and side-effect free; safe to call on every inbound request. An
// expired row that was never explicitly unblocked reads as unblocked.
func (s *IPGuardService) IsIPBlocked(ctx context.Context, ip string) (bool, error) {
	block, err := s.repo.GetCurrentByIP(ctx, ip)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	return block.Active(s.clock.Now()), nil
}

// BlockIP places or refreshes a block on ip. Re-blocking an already
// blocked address updates the existing row in place (new attempt
// snapshot, refreshed window) rather than stacking a duplicate, so at
// most one active row exists per IP.
func (s *IPGuardService) BlockIP(ctx context.Context, params BlockIPParams) error {
	now := s.clock.Now()

	duration := params.Duration
	if duration <= 0 {
		duration = s.defaultDuration
	}
	expiresAt := now.Add(duration)

	existing, err := s.repo.GetCurrentByIP(ctx, params.IP)
	switch {
	case err == nil:
		if _, err := s.repo.Refresh(ctx, existing.ID, params.Reason, params.FailedAttempts, now, params.BlockedBy, &expiresAt); err != nil {
			return fmt.Errorf("failed to refresh IP block: %w", err)
		}
		s.logger.InfoContext(ctx, "IP block refreshed",
			slog.String("ip_address", params.IP),
			slog.Time("expires_at", expiresAt),
		)
	case errors.Is(err, models.ErrNotFound):
		block := &models.BlockedIP{
			IPAddress:      params.IP,
			Reason:         params.Reason,
			FailedAttempts: params.FailedAttempts,
			BlockedAt:      now,
			BlockedBy:      params.BlockedBy,
			ExpiresAt:      &expiresAt,
		}
		if _, err := s.repo.Insert(ctx, block); err != nil {
			return fmt.Errorf("failed to insert IP block: %w", err)
		}
		s.logger.WarnContext(ctx, "IP blocked",
			slog.String("ip_address", params.IP),
			slog.String("reason", params.Reason),
			slog.Time("expires_at", expiresAt),
		)
	default:
		return err
	}

	return s.events.LogEvent(ctx, SecurityEvent{
		Type:        models.EventIPBlocked,
		Severity:    models.SeverityHigh,
		Description: fmt.Sprintf("IP address blocked: %s", params.Reason),
		IPAddress:   &params.IP,
		Metadata: models.EventMetadata{
			"failed_attempts": params.FailedAttempts,
			"expires_at":      expiresAt,
		},
	})
}

// BlockIPManually places an administrative block with no automatic
// expiry. An existing active block is refreshed in place and loses its
// expiry, becoming indefinite.
func (s *IPGuardService) BlockIPManually(ctx context.Context, ip, reason, blockedBy string) error {
	now := s.clock.Now()

	existing, err := s.repo.GetCurrentByIP(ctx, ip)
	switch {
	case err == nil:
		if _, err := s.repo.Refresh(ctx, existing.ID, reason, existing.FailedAttempts, now, &blockedBy, nil); err != nil {
			return fmt.Errorf("failed to refresh IP block: %w", err)
		}
	case errors.Is(err, models.ErrNotFound):
		block := &models.BlockedIP{
			IPAddress: ip,
			Reason:    reason,
			BlockedAt: now,
			BlockedBy: &blockedBy,
		}
		if _, err := s.repo.Insert(ctx, block); err != nil {
			return fmt.Errorf("failed to insert IP block: %w", err)
		}
	default:
		return err
	}

	s.logger.WarnContext(ctx, "IP blocked manually",
		slog.String("ip_address", ip),
		slog.String("blocked_by", blockedBy),
		slog.String("reason", reason),
	)

	return s.events.LogEvent(ctx, SecurityEvent{
		Type:        models.EventIPBlocked,
		Severity:    models.SeverityCritical,
		Description: fmt.Sprintf("IP address blocked by administrator: %s", reason),
		IPAddress:   &ip,
		Metadata: models.EventMetadata{
			"blocked_by": blockedBy,
		},
	})
}

// UnblockIP lifts the active block on ip. A no-op, not an error, when
// no active block exists; the IP_UNBLOCKED event is recorded only when
// an actual transition occurred.
func (s *IPGuardService) UnblockIP(ctx context.Context, ip, unblockedBy string) error {
	now := s.clock.Now()

	block, err := s.repo.GetCurrentByIP(ctx, ip)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil
		}
		return err
	}

	if !block.Active(now) {
		return nil
	}

	if err := s.repo.MarkUnblocked(ctx, block.ID, unblockedBy, now); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Lost a race with another unblock; the transition happened
			return nil
		}
		return fmt.Errorf("failed to unblock IP: %w", err)
	}

	s.logger.InfoContext(ctx, "IP unblocked",
		slog.String("ip_address", ip),
		slog.String("unblocked_by", unblockedBy),
	)

	return s.events.LogEvent(ctx, SecurityEvent{
		Type:        models.EventIPUnblocked,
		Severity:    models.SeverityMedium,
		Description: fmt.Sprintf("IP address unblocked by %s", unblockedBy),
		IPAddress:   &ip,
		Metadata: models.EventMetadata{
			"unblocked_by": unblockedBy,
		},
	})
}
