package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coachdesk/gatehouse/internal/auth"
)

func newTestTokenManager() *auth.TokenManager {
	return auth.NewTokenManager("test-secret-32-characters-long!!", 15*time.Minute)
}

func protectedHandler(t *testing.T, expectUserID string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := auth.ClaimsFromContext(r.Context())
		require.NoError(t, err)
		assert.Equal(t, expectUserID, claims.UserID)
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddleware_ValidToken(t *testing.T) {
	tm := newTestTokenManager()
	token, err := tm.GenerateAccessToken("user123", "user@example.com")
	require.NoError(t, err)

	handler := auth.Middleware(tm)(protectedHandler(t, "user123"))

	req := httptest.NewRequest(http.MethodGet, "/admin/users/user123/status", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddleware_MissingHeader(t *testing.T) {
	handler := auth.Middleware(newTestTokenManager())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without credentials")
	}))

	req := httptest.NewRequest(http.MethodGet, "/admin/users/user123/status", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddleware_MalformedHeader(t *testing.T) {
	handler := auth.Middleware(newTestTokenManager())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without credentials")
	}))

	req := httptest.NewRequest(http.MethodGet, "/admin/users/user123/status", nil)
	req.Header.Set("Authorization", "Token abc123")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddleware_InvalidToken(t *testing.T) {
	handler := auth.Middleware(newTestTokenManager())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run with a bad token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/admin/users/user123/status", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddleware_WrongSecretRejected(t *testing.T) {
	other := auth.NewTokenManager("a-different-secret-entirely!!!!!", 15*time.Minute)
	token, err := other.GenerateAccessToken("user123", "user@example.com")
	require.NoError(t, err)

	handler := auth.Middleware(newTestTokenManager())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run with a foreign token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/admin/users/user123/status", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTokenManager_RoundTrip(t *testing.T) {
	tm := newTestTokenManager()

	token, err := tm.GenerateAccessToken("user123", "user@example.com")
	require.NoError(t, err)

	claims, err := tm.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "access", claims.Type)
	assert.Equal(t, "user123", claims.UserID)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.NotEmpty(t, claims.ID, "every token carries a unique JTI")
}

func TestTokenManager_ExpiredToken(t *testing.T) {
	tm := auth.NewTokenManager("test-secret-32-characters-long!!", -1*time.Minute)

	token, err := tm.GenerateAccessToken("user123", "user@example.com")
	require.NoError(t, err)

	_, err = tm.ValidateToken(token)
	assert.Error(t, err)
}
