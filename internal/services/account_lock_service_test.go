package services

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/coachdesk/gatehouse/internal/clock"
	"github.com/coachdesk/gatehouse/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountLockService_IsAccountLocked_NotLocked(t *testing.T) {
	user := NewTestUser("user123", "user@example.com", "John Doe")
	fixed := clock.NewFixed(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	mockUsers := &MockUserStore{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
	}

	svc := NewAccountLockService(mockUsers, &MockSecurityRecorder{}, fixed, slog.Default())

	locked, err := svc.IsAccountLocked(context.Background(), "user123")

	require.NoError(t, err)
	assert.False(t, locked)
}

func TestAccountLockService_IsAccountLocked_UnknownUser(t *testing.T) {
	fixed := clock.NewFixed(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	svc := NewAccountLockService(&MockUserStore{}, &MockSecurityRecorder{}, fixed, slog.Default())

	locked, err := svc.IsAccountLocked(context.Background(), "ghost")

	require.NoError(t, err)
	assert.False(t, locked)
}

func TestAccountLockService_IsAccountLocked_ActiveLockout(t *testing.T) {
	fixed := clock.NewFixed(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	until := fixed.Now().Add(10 * time.Minute)

	user := NewTestUser("user123", "user@example.com", "John Doe")
	user.AccountLockedUntil = &until

	mockUsers := &MockUserStore{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
		SetLockedUntilFunc: func(ctx context.Context, id string, u *time.Time, now time.Time) error {
			t.Fatal("an active lockout must not be cleared")
			return nil
		},
	}

	svc := NewAccountLockService(mockUsers, &MockSecurityRecorder{}, fixed, slog.Default())

	locked, err := svc.IsAccountLocked(context.Background(), "user123")

	require.NoError(t, err)
	assert.True(t, locked)
}

func TestAccountLockService_IsAccountLocked_ExpiredLockoutClearsLazily(t *testing.T) {
	fixed := clock.NewFixed(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	until := fixed.Now().Add(-1 * time.Minute)

	user := NewTestUser("user123", "user@example.com", "John Doe")
	user.AccountLockedUntil = &until

	var cleared bool
	mockUsers := &MockUserStore{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
		SetLockedUntilFunc: func(ctx context.Context, id string, u *time.Time, now time.Time) error {
			assert.Nil(t, u)
			cleared = true
			return nil
		},
	}

	svc := NewAccountLockService(mockUsers, &MockSecurityRecorder{}, fixed, slog.Default())

	locked, err := svc.IsAccountLocked(context.Background(), "user123")

	require.NoError(t, err)
	assert.False(t, locked)
	assert.True(t, cleared)
}

func TestAccountLockService_IsAccountLocked_LockoutAtExactExpiry(t *testing.T) {
	fixed := clock.NewFixed(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	until := fixed.Now()

	user := NewTestUser("user123", "user@example.com", "John Doe")
	user.AccountLockedUntil = &until

	mockUsers := &MockUserStore{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
	}

	svc := NewAccountLockService(mockUsers, &MockSecurityRecorder{}, fixed, slog.Default())

	locked, err := svc.IsAccountLocked(context.Background(), "user123")

	require.NoError(t, err)
	assert.False(t, locked, "lockout ends the instant the expiry is reached")
}

func TestAccountLockService_IsAccountLocked_ManualLockIgnoresExpiry(t *testing.T) {
	fixed := clock.NewFixed(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	reason := "Suspicious activity"
	user := NewTestUser("user123", "user@example.com", "John Doe")
	user.AccountLocked = true
	user.AccountLockedReason = &reason

	mockUsers := &MockUserStore{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
	}

	svc := NewAccountLockService(mockUsers, &MockSecurityRecorder{}, fixed, slog.Default())

	locked, err := svc.IsAccountLocked(context.Background(), "user123")
	require.NoError(t, err)
	assert.True(t, locked)

	fixed.Advance(48 * time.Hour)

	locked, err = svc.IsAccountLocked(context.Background(), "user123")
	require.NoError(t, err)
	assert.True(t, locked, "manual locks never expire on their own")
}

func TestAccountLockService_LockUserAccount(t *testing.T) {
	fixed := clock.NewFixed(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	user := NewTestUser("user123", "user@example.com", "John Doe")

	var lockedReason string
	mockUsers := &MockUserStore{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
		SetManualLockFunc: func(ctx context.Context, id, reason string, now time.Time) error {
			lockedReason = reason
			return nil
		},
	}
	recorder := &MockSecurityRecorder{}

	svc := NewAccountLockService(mockUsers, recorder, fixed, slog.Default())

	err := svc.LockUserAccount(context.Background(), "user123", "Suspicious activity", "admin42")

	require.NoError(t, err)
	assert.Equal(t, "Suspicious activity", lockedReason)

	require.Len(t, recorder.Events, 1)
	assert.Equal(t, models.EventAccountLocked, recorder.Events[0].Type)
	assert.Equal(t, models.SeverityHigh, recorder.Events[0].Severity)
	assert.Equal(t, "admin42", recorder.Events[0].Metadata["locked_by"])
	assert.Equal(t, "Suspicious activity", recorder.Events[0].Metadata["reason"])
}

func TestAccountLockService_LockUserAccount_UnknownUser(t *testing.T) {
	fixed := clock.NewFixed(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	recorder := &MockSecurityRecorder{}

	svc := NewAccountLockService(&MockUserStore{}, recorder, fixed, slog.Default())

	err := svc.LockUserAccount(context.Background(), "ghost", "reason", "admin42")

	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Empty(t, recorder.Events)
}

func TestAccountLockService_UnlockUserAccount(t *testing.T) {
	fixed := clock.NewFixed(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	user := NewTestUser("user123", "user@example.com", "John Doe")
	user.AccountLocked = true

	var clearedID string
	mockUsers := &MockUserStore{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
		ClearAllLocksFunc: func(ctx context.Context, id string, now time.Time) error {
			clearedID = id
			return nil
		},
	}
	recorder := &MockSecurityRecorder{}

	svc := NewAccountLockService(mockUsers, recorder, fixed, slog.Default())

	err := svc.UnlockUserAccount(context.Background(), "user123", "admin42")

	require.NoError(t, err)
	assert.Equal(t, "user123", clearedID)

	require.Len(t, recorder.Events, 1)
	assert.Equal(t, models.EventAccountUnlocked, recorder.Events[0].Type)
	assert.Equal(t, "admin42", recorder.Events[0].Metadata["unlocked_by"])
}
