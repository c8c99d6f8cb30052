package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/coachdesk/gatehouse/internal/clock"
	"github.com/coachdesk/gatehouse/internal/models"
)

// SecurityLogStore defines the interface for audit trail persistence
type SecurityLogStore interface {
	Append(ctx context.Context, log *models.SecurityLog) (*models.SecurityLog, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.SecurityLog, error)
	CountByUser(ctx context.Context, userID string) (int64, error)
}

// SecurityEvent is one security-relevant action to be recorded.
type SecurityEvent struct {
	UserID      *string
	Type        models.EventType
	Severity    models.Severity
	Description string
	IPAddress   *string
	UserAgent   *string
	Metadata    models.EventMetadata
}

// SecurityLogService appends immutable audit records, dual-writing to
// slog for operators and to the store for forensic review.
type SecurityLogService struct {
	repo   SecurityLogStore
	clock  clock.Clock
	logger *slog.Logger
}

// NewSecurityLogService creates a new SecurityLogService
func NewSecurityLogService(repo SecurityLogStore, clk clock.Clock, logger *slog.Logger) *SecurityLogService {
	return &SecurityLogService{
		repo:   repo,
		clock:  clk,
		logger: logger,
	}
}

// LogEvent writes exactly one audit row. Storage failures propagate to
// the caller: swallowing them here would let lockout protection degrade
// silently.
func (s *SecurityLogService) LogEvent(ctx context.Context, event SecurityEvent) error {
	if !event.Type.Valid() {
		return fmt.Errorf("unknown event type %q: %w", event.Type, models.ErrBadRequest)
	}
	if !event.Severity.Valid() {
		return fmt.Errorf("unknown severity %q: %w", event.Severity, models.ErrBadRequest)
	}

	log := &models.SecurityLog{
		UserID:      event.UserID,
		EventType:   event.Type,
		Severity:    event.Severity,
		Description: event.Description,
		IPAddress:   event.IPAddress,
		UserAgent:   event.UserAgent,
		Metadata:    event.Metadata,
		CreatedAt:   s.clock.Now(),
	}

	attrs := []any{
		slog.String("event_type", string(event.Type)),
		slog.String("severity", string(event.Severity)),
		slog.String("description", event.Description),
	}
	if event.UserID != nil {
		attrs = append(attrs, slog.String("user_id", *event.UserID))
	}
	if event.IPAddress != nil {
		attrs = append(attrs, slog.String("ip_address", *event.IPAddress))
	}

	switch event.Severity {
	case models.SeverityHigh, models.SeverityCritical:
		s.logger.WarnContext(ctx, "security event", attrs...)
	default:
		s.logger.InfoContext(ctx, "security event", attrs...)
	}

	if _, err := s.repo.Append(ctx, log); err != nil {
		s.logger.ErrorContext(ctx, "failed to persist security event",
			slog.String("event_type", string(event.Type)),
			slog.Any("error", err),
		)
		return err
	}

	return nil
}

// GetUserTrail retrieves the audit trail for a specific user
func (s *SecurityLogService) GetUserTrail(ctx context.Context, userID string, limit, offset int) ([]*models.SecurityLog, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	logs, err := s.repo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get user security trail: %w", err)
	}

	return logs, nil
}

// CountForUser returns the number of audit rows recorded for a user
func (s *SecurityLogService) CountForUser(ctx context.Context, userID string) (int64, error) {
	count, err := s.repo.CountByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to count security logs: %w", err)
	}
	return count, nil
}
