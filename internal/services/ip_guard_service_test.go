package services

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/coachdesk/gatehouse/internal/clock"
	"github.com/coachdesk/gatehouse/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func activeBlock(id, ip string, blockedAt time.Time, ttl time.Duration) *models.BlockedIP {
	expiresAt := blockedAt.Add(ttl)
	return &models.BlockedIP{
		ID:             id,
		IPAddress:      ip,
		Reason:         "Too many failed login attempts (5)",
		FailedAttempts: 5,
		BlockedAt:      blockedAt,
		ExpiresAt:      &expiresAt,
	}
}

func TestIPGuardService_IsIPBlocked_NoRecord(t *testing.T) {
	fixed := clock.NewFixed(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	svc := NewIPGuardService(&MockBlockedIPStore{}, &MockSecurityRecorder{}, fixed, slog.Default(), 60*time.Minute)

	blocked, err := svc.IsIPBlocked(context.Background(), "203.0.113.7")

	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestIPGuardService_IsIPBlocked_ActiveBlock(t *testing.T) {
	fixed := clock.NewFixed(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	mockRepo := &MockBlockedIPStore{
		GetCurrentByIPFunc: func(ctx context.Context, ip string) (*models.BlockedIP, error) {
			return activeBlock("block1", ip, fixed.Now().Add(-10*time.Minute), 60*time.Minute), nil
		},
	}

	svc := NewIPGuardService(mockRepo, &MockSecurityRecorder{}, fixed, slog.Default(), 60*time.Minute)

	blocked, err := svc.IsIPBlocked(context.Background(), "203.0.113.7")

	require.NoError(t, err)
	assert.True(t, blocked)
}

func TestIPGuardService_IsIPBlocked_ExpiredBlock(t *testing.T) {
	fixed := clock.NewFixed(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	mockRepo := &MockBlockedIPStore{
		GetCurrentByIPFunc: func(ctx context.Context, ip string) (*models.BlockedIP, error) {
			return activeBlock("block1", ip, fixed.Now().Add(-2*time.Hour), 60*time.Minute), nil
		},
	}

	svc := NewIPGuardService(mockRepo, &MockSecurityRecorder{}, fixed, slog.Default(), 60*time.Minute)

	blocked, err := svc.IsIPBlocked(context.Background(), "203.0.113.7")

	require.NoError(t, err)
	assert.False(t, blocked, "an expired block no longer applies, with no write needed")
}

func TestIPGuardService_IsIPBlocked_IndefiniteBlock(t *testing.T) {
	fixed := clock.NewFixed(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	mockRepo := &MockBlockedIPStore{
		GetCurrentByIPFunc: func(ctx context.Context, ip string) (*models.BlockedIP, error) {
			admin := "admin42"
			return &models.BlockedIP{
				ID:        "block1",
				IPAddress: ip,
				Reason:    "Known bad actor",
				BlockedAt: fixed.Now().Add(-30 * 24 * time.Hour),
				BlockedBy: &admin,
			}, nil
		},
	}

	svc := NewIPGuardService(mockRepo, &MockSecurityRecorder{}, fixed, slog.Default(), 60*time.Minute)

	blocked, err := svc.IsIPBlocked(context.Background(), "203.0.113.7")

	require.NoError(t, err)
	assert.True(t, blocked, "a block without an expiry holds until explicitly lifted")
}

func TestIPGuardService_BlockIP_NewBlock(t *testing.T) {
	fixed := clock.NewFixed(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	var inserted *models.BlockedIP
	mockRepo := &MockBlockedIPStore{
		InsertFunc: func(ctx context.Context, block *models.BlockedIP) (*models.BlockedIP, error) {
			inserted = block
			block.ID = "block1"
			return block, nil
		},
	}
	recorder := &MockSecurityRecorder{}

	svc := NewIPGuardService(mockRepo, recorder, fixed, slog.Default(), 60*time.Minute)

	err := svc.BlockIP(context.Background(), BlockIPParams{
		IP:             "203.0.113.7",
		Reason:         "Too many failed login attempts (5)",
		FailedAttempts: 5,
		Duration:       60 * time.Minute,
	})

	require.NoError(t, err)
	require.NotNil(t, inserted)
	assert.Equal(t, "203.0.113.7", inserted.IPAddress)
	assert.Equal(t, 5, inserted.FailedAttempts)
	require.NotNil(t, inserted.ExpiresAt)
	assert.Equal(t, fixed.Now().Add(60*time.Minute), *inserted.ExpiresAt)
	assert.False(t, inserted.Unblocked)

	require.Len(t, recorder.Events, 1)
	assert.Equal(t, models.EventIPBlocked, recorder.Events[0].Type)
	assert.Equal(t, models.SeverityHigh, recorder.Events[0].Severity)
}

func TestIPGuardService_BlockIP_RefreshesExistingRow(t *testing.T) {
	fixed := clock.NewFixed(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	existing := activeBlock("block1", "203.0.113.7", fixed.Now().Add(-5*time.Minute), 60*time.Minute)

	var refreshedID string
	var refreshedExpiry *time.Time
	mockRepo := &MockBlockedIPStore{
		GetCurrentByIPFunc: func(ctx context.Context, ip string) (*models.BlockedIP, error) {
			return existing, nil
		},
		RefreshFunc: func(ctx context.Context, id, reason string, failedAttempts int, blockedAt time.Time, blockedBy *string, expiresAt *time.Time) (*models.BlockedIP, error) {
			refreshedID = id
			refreshedExpiry = expiresAt
			return existing, nil
		},
		InsertFunc: func(ctx context.Context, block *models.BlockedIP) (*models.BlockedIP, error) {
			t.Fatal("re-blocking must not insert a second row")
			return nil, nil
		},
	}
	recorder := &MockSecurityRecorder{}

	svc := NewIPGuardService(mockRepo, recorder, fixed, slog.Default(), 60*time.Minute)

	err := svc.BlockIP(context.Background(), BlockIPParams{
		IP:             "203.0.113.7",
		Reason:         "Too many failed login attempts (6)",
		FailedAttempts: 6,
		Duration:       60 * time.Minute,
	})

	require.NoError(t, err)
	assert.Equal(t, "block1", refreshedID)
	require.NotNil(t, refreshedExpiry)
	assert.Equal(t, fixed.Now().Add(60*time.Minute), *refreshedExpiry)

	require.Len(t, recorder.Events, 1)
	assert.Equal(t, models.EventIPBlocked, recorder.Events[0].Type)
}

func TestIPGuardService_BlockIP_DefaultDuration(t *testing.T) {
	fixed := clock.NewFixed(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	var inserted *models.BlockedIP
	mockRepo := &MockBlockedIPStore{
		InsertFunc: func(ctx context.Context, block *models.BlockedIP) (*models.BlockedIP, error) {
			inserted = block
			return block, nil
		},
	}

	svc := NewIPGuardService(mockRepo, &MockSecurityRecorder{}, fixed, slog.Default(), 60*time.Minute)

	err := svc.BlockIP(context.Background(), BlockIPParams{
		IP:             "203.0.113.7",
		Reason:         "Too many failed login attempts (5)",
		FailedAttempts: 5,
	})

	require.NoError(t, err)
	require.NotNil(t, inserted)
	require.NotNil(t, inserted.ExpiresAt)
	assert.Equal(t, fixed.Now().Add(60*time.Minute), *inserted.ExpiresAt)
}

func TestIPGuardService_BlockIPManually_IndefiniteBlock(t *testing.T) {
	fixed := clock.NewFixed(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	var inserted *models.BlockedIP
	mockRepo := &MockBlockedIPStore{
		InsertFunc: func(ctx context.Context, block *models.BlockedIP) (*models.BlockedIP, error) {
			inserted = block
			return block, nil
		},
	}
	recorder := &MockSecurityRecorder{}

	svc := NewIPGuardService(mockRepo, recorder, fixed, slog.Default(), 60*time.Minute)

	err := svc.BlockIPManually(context.Background(), "203.0.113.7", "Known bad actor", "admin42")

	require.NoError(t, err)
	require.NotNil(t, inserted)
	assert.Nil(t, inserted.ExpiresAt, "a manual block has no expiry")
	require.NotNil(t, inserted.BlockedBy)
	assert.Equal(t, "admin42", *inserted.BlockedBy)

	require.Len(t, recorder.Events, 1)
	assert.Equal(t, models.EventIPBlocked, recorder.Events[0].Type)
	assert.Equal(t, models.SeverityCritical, recorder.Events[0].Severity)
}

func TestIPGuardService_UnblockIP_ActiveBlock(t *testing.T) {
	fixed := clock.NewFixed(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	existing := activeBlock("block1", "203.0.113.7", fixed.Now().Add(-5*time.Minute), 60*time.Minute)

	var unblockedID, unblockedBy string
	mockRepo := &MockBlockedIPStore{
		GetCurrentByIPFunc: func(ctx context.Context, ip string) (*models.BlockedIP, error) {
			return existing, nil
		},
		MarkUnblockedFunc: func(ctx context.Context, id, by string, at time.Time) error {
			unblockedID = id
			unblockedBy = by
			return nil
		},
	}
	recorder := &MockSecurityRecorder{}

	svc := NewIPGuardService(mockRepo, recorder, fixed, slog.Default(), 60*time.Minute)

	err := svc.UnblockIP(context.Background(), "203.0.113.7", "admin42")

	require.NoError(t, err)
	assert.Equal(t, "block1", unblockedID)
	assert.Equal(t, "admin42", unblockedBy)

	require.Len(t, recorder.Events, 1)
	assert.Equal(t, models.EventIPUnblocked, recorder.Events[0].Type)
	assert.Equal(t, models.SeverityMedium, recorder.Events[0].Severity)
}

func TestIPGuardService_UnblockIP_NoActiveBlock(t *testing.T) {
	fixed := clock.NewFixed(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	recorder := &MockSecurityRecorder{}

	svc := NewIPGuardService(&MockBlockedIPStore{}, recorder, fixed, slog.Default(), 60*time.Minute)

	err := svc.UnblockIP(context.Background(), "203.0.113.7", "admin42")

	require.NoError(t, err)
	assert.Empty(t, recorder.Events, "a no-op unblock emits no event")
}

func TestIPGuardService_UnblockIP_ExpiredBlock(t *testing.T) {
	fixed := clock.NewFixed(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	mockRepo := &MockBlockedIPStore{
		GetCurrentByIPFunc: func(ctx context.Context, ip string) (*models.BlockedIP, error) {
			return activeBlock("block1", ip, fixed.Now().Add(-2*time.Hour), 60*time.Minute), nil
		},
		MarkUnblockedFunc: func(ctx context.Context, id, by string, at time.Time) error {
			t.Fatal("an expired block needs no transition")
			return nil
		},
	}
	recorder := &MockSecurityRecorder{}

	svc := NewIPGuardService(mockRepo, recorder, fixed, slog.Default(), 60*time.Minute)

	err := svc.UnblockIP(context.Background(), "203.0.113.7", "admin42")

	require.NoError(t, err)
	assert.Empty(t, recorder.Events)
}

func TestIPGuardService_IsIPBlocked_StoreErrorPropagates(t *testing.T) {
	fixed := clock.NewFixed(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	storeErr := errors.New("connection reset")

	mockRepo := &MockBlockedIPStore{
		GetCurrentByIPFunc: func(ctx context.Context, ip string) (*models.BlockedIP, error) {
			return nil, storeErr
		},
	}

	svc := NewIPGuardService(mockRepo, &MockSecurityRecorder{}, fixed, slog.Default(), 60*time.Minute)

	_, err := svc.IsIPBlocked(context.Background(), "203.0.113.7")

	assert.ErrorIs(t, err, storeErr)
}
