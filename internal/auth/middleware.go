package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/coachdesk/gatehouse/internal/models"
)

// contextKey is a custom type for context keys
type contextKey string

// UserContextKey is the key for storing user claims in context
const UserContextKey contextKey = "user"

// Middleware validates JWT bearer tokens and injects the claims into
// the request context. Role/permission checks stay with the host
// application; this service only establishes who is calling.
func Middleware(tm *TokenManager) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "invalid authorization header format", http.StatusUnauthorized)
				return
			}

			claims, err := tm.ValidateToken(parts[1])
			if err != nil {
				http.Error(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}

			if claims.Type != "access" {
				http.Error(w, "token cannot be used for API access", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext extracts token claims placed by Middleware.
func ClaimsFromContext(ctx context.Context) (*models.TokenClaims, error) {
	claims, ok := ctx.Value(UserContextKey).(*models.TokenClaims)
	if !ok || claims == nil {
		return nil, models.ErrUnauthorized
	}
	return claims, nil
}
