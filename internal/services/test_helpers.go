package services

import (
	"context"
	"time"

	"github.com/coachdesk/gatehouse/internal/models"
)

// MockUserStore implements UserStore for testing
type MockUserStore struct {
	GetByIDFunc                 func(ctx context.Context, id string) (*models.User, error)
	GetByEmailFunc              func(ctx context.Context, email string) (*models.User, error)
	IncrementFailedAttemptsFunc func(ctx context.Context, id string, now time.Time) (int, error)
	ResetFailedAttemptsFunc     func(ctx context.Context, id string, now time.Time) error
	SetLockedUntilFunc          func(ctx context.Context, id string, until *time.Time, now time.Time) error
	SetManualLockFunc           func(ctx context.Context, id, reason string, now time.Time) error
	ClearAllLocksFunc           func(ctx context.Context, id string, now time.Time) error
	UpdatePasswordFunc          func(ctx context.Context, id, passwordHash string, now time.Time) error
}

func (m *MockUserStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserStore) IncrementFailedAttempts(ctx context.Context, id string, now time.Time) (int, error) {
	if m.IncrementFailedAttemptsFunc != nil {
		return m.IncrementFailedAttemptsFunc(ctx, id, now)
	}
	return 0, models.ErrInternalServer
}

func (m *MockUserStore) ResetFailedAttempts(ctx context.Context, id string, now time.Time) error {
	if m.ResetFailedAttemptsFunc != nil {
		return m.ResetFailedAttemptsFunc(ctx, id, now)
	}
	return nil
}

func (m *MockUserStore) SetLockedUntil(ctx context.Context, id string, until *time.Time, now time.Time) error {
	if m.SetLockedUntilFunc != nil {
		return m.SetLockedUntilFunc(ctx, id, until, now)
	}
	return nil
}

func (m *MockUserStore) SetManualLock(ctx context.Context, id, reason string, now time.Time) error {
	if m.SetManualLockFunc != nil {
		return m.SetManualLockFunc(ctx, id, reason, now)
	}
	return nil
}

func (m *MockUserStore) ClearAllLocks(ctx context.Context, id string, now time.Time) error {
	if m.ClearAllLocksFunc != nil {
		return m.ClearAllLocksFunc(ctx, id, now)
	}
	return nil
}

func (m *MockUserStore) UpdatePassword(ctx context.Context, id, passwordHash string, now time.Time) error {
	if m.UpdatePasswordFunc != nil {
		return m.UpdatePasswordFunc(ctx, id, passwordHash, now)
	}
	return nil
}

// NewTestUser creates a user populated with sensible defaults for tests
func NewTestUser(id, email, name string) *models.User {
	now := time.Now()
	return &models.User{
		ID:                id,
		Email:             email,
		Name:              name,
		PasswordHash:      "$2a$12$test.hash.placeholder",
		PasswordChangedAt: &now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// NewTestUserWithPassword creates a test user with a specific password hash
func NewTestUserWithPassword(id, email, name, passwordHash string) *models.User {
	user := NewTestUser(id, email, name)
	user.PasswordHash = passwordHash
	return user
}

// MockBlockedIPStore implements BlockedIPStore for testing
type MockBlockedIPStore struct {
	GetCurrentByIPFunc func(ctx context.Context, ip string) (*models.BlockedIP, error)
	InsertFunc         func(ctx context.Context, block *models.BlockedIP) (*models.BlockedIP, error)
	RefreshFunc        func(ctx context.Context, id, reason string, failedAttempts int, blockedAt time.Time, blockedBy *string, expiresAt *time.Time) (*models.BlockedIP, error)
	MarkUnblockedFunc  func(ctx context.Context, id, unblockedBy string, at time.Time) error
}

func (m *MockBlockedIPStore) GetCurrentByIP(ctx context.Context, ip string) (*models.BlockedIP, error) {
	if m.GetCurrentByIPFunc != nil {
		return m.GetCurrentByIPFunc(ctx, ip)
	}
	return nil, models.ErrNotFound
}

func (m *MockBlockedIPStore) Insert(ctx context.Context, block *models.BlockedIP) (*models.BlockedIP, error) {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, block)
	}
	return block, nil
}

func (m *MockBlockedIPStore) Refresh(ctx context.Context, id, reason string, failedAttempts int, blockedAt time.Time, blockedBy *string, expiresAt *time.Time) (*models.BlockedIP, error) {
	if m.RefreshFunc != nil {
		return m.RefreshFunc(ctx, id, reason, failedAttempts, blockedAt, blockedBy, expiresAt)
	}
	return nil, models.ErrInternalServer
}

func (m *MockBlockedIPStore) MarkUnblocked(ctx context.Context, id, unblockedBy string, at time.Time) error {
	if m.MarkUnblockedFunc != nil {
		return m.MarkUnblockedFunc(ctx, id, unblockedBy, at)
	}
	return nil
}

// MockSecurityLogStore implements SecurityLogStore for testing
type MockSecurityLogStore struct {
	AppendFunc      func(ctx context.Context, log *models.SecurityLog) (*models.SecurityLog, error)
	ListByUserFunc  func(ctx context.Context, userID string, limit, offset int) ([]*models.SecurityLog, error)
	CountByUserFunc func(ctx context.Context, userID string) (int64, error)
}

func (m *MockSecurityLogStore) Append(ctx context.Context, log *models.SecurityLog) (*models.SecurityLog, error) {
	if m.AppendFunc != nil {
		return m.AppendFunc(ctx, log)
	}
	return log, nil
}

func (m *MockSecurityLogStore) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.SecurityLog, error) {
	if m.ListByUserFunc != nil {
		return m.ListByUserFunc(ctx, userID, limit, offset)
	}
	return []*models.SecurityLog{}, nil
}

func (m *MockSecurityLogStore) CountByUser(ctx context.Context, userID string) (int64, error) {
	if m.CountByUserFunc != nil {
		return m.CountByUserFunc(ctx, userID)
	}
	return 0, nil
}

// MockSecurityRecorder implements SecurityRecorder for testing. Events
// are collected so tests can assert on what was recorded.
type MockSecurityRecorder struct {
	LogEventFunc func(ctx context.Context, event SecurityEvent) error
	Events       []SecurityEvent
}

func (m *MockSecurityRecorder) LogEvent(ctx context.Context, event SecurityEvent) error {
	m.Events = append(m.Events, event)
	if m.LogEventFunc != nil {
		return m.LogEventFunc(ctx, event)
	}
	return nil
}

// MockPasswordResetStore implements PasswordResetStore for testing
type MockPasswordResetStore struct {
	InsertFunc        func(ctx context.Context, reset *models.PasswordResetLog) (*models.PasswordResetLog, error)
	GetByTokenFunc    func(ctx context.Context, token string) (*models.PasswordResetLog, error)
	MarkCompletedFunc func(ctx context.Context, id string, completedAt time.Time) error
	ListByUserFunc    func(ctx context.Context, userID string, limit int) ([]*models.PasswordResetLog, error)
}

func (m *MockPasswordResetStore) Insert(ctx context.Context, reset *models.PasswordResetLog) (*models.PasswordResetLog, error) {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, reset)
	}
	return reset, nil
}

func (m *MockPasswordResetStore) GetByToken(ctx context.Context, token string) (*models.PasswordResetLog, error) {
	if m.GetByTokenFunc != nil {
		return m.GetByTokenFunc(ctx, token)
	}
	return nil, models.ErrNotFound
}

func (m *MockPasswordResetStore) MarkCompleted(ctx context.Context, id string, completedAt time.Time) error {
	if m.MarkCompletedFunc != nil {
		return m.MarkCompletedFunc(ctx, id, completedAt)
	}
	return nil
}

func (m *MockPasswordResetStore) ListByUser(ctx context.Context, userID string, limit int) ([]*models.PasswordResetLog, error) {
	if m.ListByUserFunc != nil {
		return m.ListByUserFunc(ctx, userID, limit)
	}
	return []*models.PasswordResetLog{}, nil
}

// MockVerificationTokenStore implements VerificationTokenStore for testing
type MockVerificationTokenStore struct {
	InsertFunc        func(ctx context.Context, token *models.VerificationToken) error
	DeleteByTokenFunc func(ctx context.Context, token string, kind models.VerificationTokenKind) error
	DeleteExpiredFunc func(ctx context.Context, now time.Time) (int64, error)
}

func (m *MockVerificationTokenStore) Insert(ctx context.Context, token *models.VerificationToken) error {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, token)
	}
	return nil
}

func (m *MockVerificationTokenStore) DeleteByToken(ctx context.Context, token string, kind models.VerificationTokenKind) error {
	if m.DeleteByTokenFunc != nil {
		return m.DeleteByTokenFunc(ctx, token, kind)
	}
	return nil
}

func (m *MockVerificationTokenStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	if m.DeleteExpiredFunc != nil {
		return m.DeleteExpiredFunc(ctx, now)
	}
	return 0, nil
}

// MockIPBlocker implements IPBlocker for testing
type MockIPBlocker struct {
	BlockIPFunc func(ctx context.Context, params BlockIPParams) error
	Blocked     []BlockIPParams
}

func (m *MockIPBlocker) BlockIP(ctx context.Context, params BlockIPParams) error {
	m.Blocked = append(m.Blocked, params)
	if m.BlockIPFunc != nil {
		return m.BlockIPFunc(ctx, params)
	}
	return nil
}

// MockIPGuard implements IPGuard for testing
type MockIPGuard struct {
	IsIPBlockedFunc func(ctx context.Context, ip string) (bool, error)
}

func (m *MockIPGuard) IsIPBlocked(ctx context.Context, ip string) (bool, error) {
	if m.IsIPBlockedFunc != nil {
		return m.IsIPBlockedFunc(ctx, ip)
	}
	return false, nil
}

// MockAccountLocker implements AccountLocker for testing
type MockAccountLocker struct {
	IsAccountLockedFunc func(ctx context.Context, userID string) (bool, error)
}

func (m *MockAccountLocker) IsAccountLocked(ctx context.Context, userID string) (bool, error) {
	if m.IsAccountLockedFunc != nil {
		return m.IsAccountLockedFunc(ctx, userID)
	}
	return false, nil
}

// MockLoginTracker implements LoginTracker for testing
type MockLoginTracker struct {
	TrackFailedLoginFunc    func(ctx context.Context, identifier, ip, userAgent string) (TrackResult, error)
	ResetFailedAttemptsFunc func(ctx context.Context, userID string) error
	ResetCalls              []string
}

func (m *MockLoginTracker) TrackFailedLogin(ctx context.Context, identifier, ip, userAgent string) (TrackResult, error) {
	if m.TrackFailedLoginFunc != nil {
		return m.TrackFailedLoginFunc(ctx, identifier, ip, userAgent)
	}
	return TrackResult{}, nil
}

func (m *MockLoginTracker) ResetFailedAttempts(ctx context.Context, userID string) error {
	m.ResetCalls = append(m.ResetCalls, userID)
	if m.ResetFailedAttemptsFunc != nil {
		return m.ResetFailedAttemptsFunc(ctx, userID)
	}
	return nil
}

// MockTokenIssuer implements TokenIssuer for testing
type MockTokenIssuer struct {
	GenerateAccessTokenFunc func(userID, email string) (string, error)
}

func (m *MockTokenIssuer) GenerateAccessToken(userID, email string) (string, error) {
	if m.GenerateAccessTokenFunc != nil {
		return m.GenerateAccessTokenFunc(userID, email)
	}
	return "test-access-token", nil
}

// MockResetMailer implements ResetMailer for testing
type MockResetMailer struct {
	SendPasswordResetEmailFunc func(ctx context.Context, toAddress, token string) error
	Sent                       []string
}

func (m *MockResetMailer) SendPasswordResetEmail(ctx context.Context, toAddress, token string) error {
	m.Sent = append(m.Sent, toAddress)
	if m.SendPasswordResetEmailFunc != nil {
		return m.SendPasswordResetEmailFunc(ctx, toAddress, token)
	}
	return nil
}
