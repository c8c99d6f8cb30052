package services

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	internalauth "github.com/coachdesk/gatehouse/internal/auth"
	"github.com/coachdesk/gatehouse/internal/clock"
	"github.com/coachdesk/gatehouse/internal/models"
	pkgauth "github.com/coachdesk/gatehouse/pkg/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthService(users UserStore, ipGuard IPGuard, locks AccountLocker, tracker LoginTracker, recorder *MockSecurityRecorder) *AuthService {
	fixed := clock.NewFixed(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	timing := internalauth.NewTimingDelay(internalauth.TimingConfig{})
	return NewAuthService(users, ipGuard, locks, tracker, &MockTokenIssuer{}, recorder, timing, fixed, slog.Default())
}

func loginRequest() LoginRequest {
	return LoginRequest{
		Email:     "user@example.com",
		Password:  "SecurePassword123",
		IPAddress: "203.0.113.7",
		UserAgent: "test-agent",
	}
}

func TestAuthService_Login_Success(t *testing.T) {
	hash, err := pkgauth.HashPassword("SecurePassword123")
	require.NoError(t, err)

	user := NewTestUserWithPassword("user123", "user@example.com", "John Doe", hash)
	mockUsers := &MockUserStore{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return user, nil
		},
	}
	tracker := &MockLoginTracker{}
	recorder := &MockSecurityRecorder{}

	svc := newAuthService(mockUsers, &MockIPGuard{}, &MockAccountLocker{}, tracker, recorder)

	result, err := svc.Login(context.Background(), loginRequest())

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "test-access-token", result.AccessToken)
	assert.Equal(t, "user123", result.User.ID)

	assert.Equal(t, []string{"user123"}, tracker.ResetCalls, "success clears the failure counter")

	require.Len(t, recorder.Events, 1)
	assert.Equal(t, models.EventSuccessfulLogin, recorder.Events[0].Type)
}

func TestAuthService_Login_BlockedIP(t *testing.T) {
	mockGuard := &MockIPGuard{
		IsIPBlockedFunc: func(ctx context.Context, ip string) (bool, error) {
			return true, nil
		},
	}
	mockUsers := &MockUserStore{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			t.Fatal("a blocked IP is rejected before credentials are read")
			return nil, nil
		},
	}

	svc := newAuthService(mockUsers, mockGuard, &MockAccountLocker{}, &MockLoginTracker{}, &MockSecurityRecorder{})

	result, err := svc.Login(context.Background(), loginRequest())

	assert.Nil(t, result)
	assert.ErrorIs(t, err, models.ErrIPBlocked)
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	hash, err := pkgauth.HashPassword("DifferentPassword456")
	require.NoError(t, err)

	user := NewTestUserWithPassword("user123", "user@example.com", "John Doe", hash)
	mockUsers := &MockUserStore{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return user, nil
		},
	}

	var tracked bool
	tracker := &MockLoginTracker{
		TrackFailedLoginFunc: func(ctx context.Context, identifier, ip, userAgent string) (TrackResult, error) {
			tracked = true
			return TrackResult{ShouldBlock: false, AttemptsRemaining: 4}, nil
		},
	}

	svc := newAuthService(mockUsers, &MockIPGuard{}, &MockAccountLocker{}, tracker, &MockSecurityRecorder{})

	result, err := svc.Login(context.Background(), loginRequest())

	assert.Nil(t, result)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
	assert.True(t, tracked)
	assert.Empty(t, tracker.ResetCalls)
}

func TestAuthService_Login_WrongPasswordTriggersLockout(t *testing.T) {
	hash, err := pkgauth.HashPassword("DifferentPassword456")
	require.NoError(t, err)

	user := NewTestUserWithPassword("user123", "user@example.com", "John Doe", hash)
	mockUsers := &MockUserStore{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return user, nil
		},
	}
	tracker := &MockLoginTracker{
		TrackFailedLoginFunc: func(ctx context.Context, identifier, ip, userAgent string) (TrackResult, error) {
			return TrackResult{ShouldBlock: true, AttemptsRemaining: 0}, nil
		},
	}

	svc := newAuthService(mockUsers, &MockIPGuard{}, &MockAccountLocker{}, tracker, &MockSecurityRecorder{})

	result, err := svc.Login(context.Background(), loginRequest())

	assert.Nil(t, result)
	assert.ErrorIs(t, err, models.ErrAccountLocked)
}

func TestAuthService_Login_UnknownEmail(t *testing.T) {
	var trackedIdentifier string
	tracker := &MockLoginTracker{
		TrackFailedLoginFunc: func(ctx context.Context, identifier, ip, userAgent string) (TrackResult, error) {
			trackedIdentifier = identifier
			return TrackResult{ShouldBlock: false, AttemptsRemaining: 5}, nil
		},
	}

	svc := newAuthService(&MockUserStore{}, &MockIPGuard{}, &MockAccountLocker{}, tracker, &MockSecurityRecorder{})

	result, err := svc.Login(context.Background(), loginRequest())

	assert.Nil(t, result)
	assert.ErrorIs(t, err, models.ErrUnauthorized, "unknown email reads as bad credentials")
	assert.Equal(t, "user@example.com", trackedIdentifier)
}

func TestAuthService_Login_LockedAccount(t *testing.T) {
	hash, err := pkgauth.HashPassword("SecurePassword123")
	require.NoError(t, err)

	user := NewTestUserWithPassword("user123", "user@example.com", "John Doe", hash)
	mockUsers := &MockUserStore{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return user, nil
		},
	}
	mockLocks := &MockAccountLocker{
		IsAccountLockedFunc: func(ctx context.Context, userID string) (bool, error) {
			return true, nil
		},
	}
	tracker := &MockLoginTracker{}
	recorder := &MockSecurityRecorder{}

	svc := newAuthService(mockUsers, &MockIPGuard{}, mockLocks, tracker, recorder)

	result, err := svc.Login(context.Background(), loginRequest())

	assert.Nil(t, result)
	assert.ErrorIs(t, err, models.ErrAccountLocked)
	assert.Empty(t, tracker.ResetCalls, "a rejected login never clears the counter")

	require.Len(t, recorder.Events, 1)
	assert.Equal(t, models.EventFailedLogin, recorder.Events[0].Type)
	assert.Equal(t, models.SeverityHigh, recorder.Events[0].Severity)
}

func TestAuthService_Login_LockedAccountRejectedBeforeCredentialCheck(t *testing.T) {
	user := NewTestUserWithPassword("user123", "user@example.com", "John Doe", "$2a$12$unverifiable.hash")
	mockUsers := &MockUserStore{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return user, nil
		},
	}
	mockLocks := &MockAccountLocker{
		IsAccountLockedFunc: func(ctx context.Context, userID string) (bool, error) {
			return true, nil
		},
	}
	tracker := &MockLoginTracker{
		TrackFailedLoginFunc: func(ctx context.Context, identifier, ip, userAgent string) (TrackResult, error) {
			t.Fatal("a locked account is rejected before the password is compared")
			return TrackResult{}, nil
		},
	}

	svc := newAuthService(mockUsers, &MockIPGuard{}, mockLocks, tracker, &MockSecurityRecorder{})

	req := loginRequest()
	req.Password = "whatever"
	result, err := svc.Login(context.Background(), req)

	assert.Nil(t, result)
	assert.ErrorIs(t, err, models.ErrAccountLocked)
}

func TestAuthService_Login_GuardErrorPropagates(t *testing.T) {
	storeErr := errors.New("connection reset")
	mockGuard := &MockIPGuard{
		IsIPBlockedFunc: func(ctx context.Context, ip string) (bool, error) {
			return false, storeErr
		},
	}

	svc := newAuthService(&MockUserStore{}, mockGuard, &MockAccountLocker{}, &MockLoginTracker{}, &MockSecurityRecorder{})

	result, err := svc.Login(context.Background(), loginRequest())

	assert.Nil(t, result)
	assert.ErrorIs(t, err, storeErr)
}
