package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/coachdesk/gatehouse/internal/auth"
	"github.com/coachdesk/gatehouse/internal/models"
	"github.com/coachdesk/gatehouse/internal/services"
	pkghttp "github.com/coachdesk/gatehouse/pkg/http"
	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithAuthContext adds user claims to request context for testing authenticated endpoints
func WithAuthContext(req *http.Request, userID, email string) *http.Request {
	claims := &models.TokenClaims{
		UserID: userID,
		Email:  email,
		Type:   "access",
	}
	ctx := context.WithValue(req.Context(), auth.UserContextKey, claims)
	return req.WithContext(ctx)
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	contentType := w.Header().Get("Content-Type")
	assert.Equal(t, "application/json", contentType, "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	LoginFunc func(ctx context.Context, req services.LoginRequest) (*services.LoginResult, error)
}

func (m *MockAuthService) Login(ctx context.Context, req services.LoginRequest) (*services.LoginResult, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, req)
	}
	return nil, models.ErrUnauthorized
}

// MockPasswordResetService implements PasswordResetServiceInterface for testing
type MockPasswordResetService struct {
	CreateResetTokenFunc func(ctx context.Context, email, ip, userAgent string) error
	VerifyResetTokenFunc func(ctx context.Context, token string) (string, error)
	CompleteResetFunc    func(ctx context.Context, token, newPasswordHash, ip, userAgent string) (bool, error)
}

func (m *MockPasswordResetService) CreateResetToken(ctx context.Context, email, ip, userAgent string) error {
	if m.CreateResetTokenFunc != nil {
		return m.CreateResetTokenFunc(ctx, email, ip, userAgent)
	}
	return nil
}

func (m *MockPasswordResetService) VerifyResetToken(ctx context.Context, token string) (string, error) {
	if m.VerifyResetTokenFunc != nil {
		return m.VerifyResetTokenFunc(ctx, token)
	}
	return "", nil
}

func (m *MockPasswordResetService) CompleteReset(ctx context.Context, token, newPasswordHash, ip, userAgent string) (bool, error) {
	if m.CompleteResetFunc != nil {
		return m.CompleteResetFunc(ctx, token, newPasswordHash, ip, userAgent)
	}
	return false, nil
}

// MockAccountLockService implements AccountLockServiceInterface for testing
type MockAccountLockService struct {
	IsAccountLockedFunc   func(ctx context.Context, userID string) (bool, error)
	LockUserAccountFunc   func(ctx context.Context, userID, reason, lockedBy string) error
	UnlockUserAccountFunc func(ctx context.Context, userID, unlockedBy string) error
}

func (m *MockAccountLockService) IsAccountLocked(ctx context.Context, userID string) (bool, error) {
	if m.IsAccountLockedFunc != nil {
		return m.IsAccountLockedFunc(ctx, userID)
	}
	return false, nil
}

func (m *MockAccountLockService) LockUserAccount(ctx context.Context, userID, reason, lockedBy string) error {
	if m.LockUserAccountFunc != nil {
		return m.LockUserAccountFunc(ctx, userID, reason, lockedBy)
	}
	return nil
}

func (m *MockAccountLockService) UnlockUserAccount(ctx context.Context, userID, unlockedBy string) error {
	if m.UnlockUserAccountFunc != nil {
		return m.UnlockUserAccountFunc(ctx, userID, unlockedBy)
	}
	return nil
}

// MockIPGuardService implements IPGuardServiceInterface for testing
type MockIPGuardService struct {
	IsIPBlockedFunc     func(ctx context.Context, ip string) (bool, error)
	BlockIPManuallyFunc func(ctx context.Context, ip, reason, blockedBy string) error
	UnblockIPFunc       func(ctx context.Context, ip, unblockedBy string) error
}

func (m *MockIPGuardService) IsIPBlocked(ctx context.Context, ip string) (bool, error) {
	if m.IsIPBlockedFunc != nil {
		return m.IsIPBlockedFunc(ctx, ip)
	}
	return false, nil
}

func (m *MockIPGuardService) BlockIPManually(ctx context.Context, ip, reason, blockedBy string) error {
	if m.BlockIPManuallyFunc != nil {
		return m.BlockIPManuallyFunc(ctx, ip, reason, blockedBy)
	}
	return nil
}

func (m *MockIPGuardService) UnblockIP(ctx context.Context, ip, unblockedBy string) error {
	if m.UnblockIPFunc != nil {
		return m.UnblockIPFunc(ctx, ip, unblockedBy)
	}
	return nil
}

// MockSecurityTrail implements SecurityTrailInterface for testing
type MockSecurityTrail struct {
	GetUserTrailFunc func(ctx context.Context, userID string, limit, offset int) ([]*models.SecurityLog, error)
	CountForUserFunc func(ctx context.Context, userID string) (int64, error)
}

func (m *MockSecurityTrail) GetUserTrail(ctx context.Context, userID string, limit, offset int) ([]*models.SecurityLog, error) {
	if m.GetUserTrailFunc != nil {
		return m.GetUserTrailFunc(ctx, userID, limit, offset)
	}
	return []*models.SecurityLog{}, nil
}

func (m *MockSecurityTrail) CountForUser(ctx context.Context, userID string) (int64, error) {
	if m.CountForUserFunc != nil {
		return m.CountForUserFunc(ctx, userID)
	}
	return 0, nil
}
