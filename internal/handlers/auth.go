package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/coachdesk/gatehouse/internal/models"
	"github.com/coachdesk/gatehouse/internal/services"
	pkgauth "github.com/coachdesk/gatehouse/pkg/auth"
	pkghttp "github.com/coachdesk/gatehouse/pkg/http"
	pkglogger "github.com/coachdesk/gatehouse/pkg/logger"
)

// AuthServiceInterface defines the interface for login business logic
type AuthServiceInterface interface {
	Login(ctx context.Context, req services.LoginRequest) (*services.LoginResult, error)
}

// PasswordResetServiceInterface defines the interface for the reset flow
type PasswordResetServiceInterface interface {
	CreateResetToken(ctx context.Context, email, ip, userAgent string) error
	VerifyResetToken(ctx context.Context, token string) (string, error)
	CompleteReset(ctx context.Context, token, newPasswordHash, ip, userAgent string) (bool, error)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service  AuthServiceInterface
	resets   PasswordResetServiceInterface
	ipConfig *pkghttp.IPConfig
	logger   *slog.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface, resets PasswordResetServiceInterface, ipConfig *pkghttp.IPConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		service:  service,
		resets:   resets,
		ipConfig: ipConfig,
		logger:   logger,
	}
}

// Request DTOs

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse represents the response body for a successful login
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
}

// ForgotPasswordRequest represents the request body for requesting a reset
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// VerifyResetTokenRequest represents the request body for checking a token
type VerifyResetTokenRequest struct {
	Token string `json:"token" validate:"required"`
}

// VerifyResetTokenResponse reports whether a reset token is usable
type VerifyResetTokenResponse struct {
	Valid bool `json:"valid"`
}

// ResetPasswordRequest represents the request body for completing a reset
type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

// Login handles user login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	result, err := h.service.Login(r.Context(), services.LoginRequest{
		Email:     req.Email,
		Password:  req.Password,
		IPAddress: pkghttp.ExtractClientIP(r, h.ipConfig),
		UserAgent: r.Header.Get("User-Agent"),
	})
	if err != nil {
		switch {
		case errors.Is(err, models.ErrIPBlocked):
			pkghttp.WriteForbidden(w, "Access temporarily blocked")
		case errors.Is(err, models.ErrAccountLocked):
			pkghttp.WriteForbidden(w, "Account is temporarily locked")
		case errors.Is(err, models.ErrUnauthorized):
			pkghttp.WriteUnauthorized(w, "Authentication failed")
		default:
			h.logger.Error("login failed",
				slog.String("email", pkglogger.SanitizedEmail(req.Email)),
				slog.Any("error", err))
			pkghttp.WriteInternalError(w, "An error occurred")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, LoginResponse{
		AccessToken: result.AccessToken,
		UserID:      result.User.ID,
		Email:       result.User.Email,
	})
}

// ForgotPassword handles password reset requests. The response is the
// same whether or not the email maps to an account.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	ipAddress := pkghttp.ExtractClientIP(r, h.ipConfig)
	userAgent := r.Header.Get("User-Agent")

	if err := h.resets.CreateResetToken(r.Context(), req.Email, ipAddress, userAgent); err != nil {
		h.logger.Error("failed to create reset token",
			slog.String("email", pkglogger.SanitizedEmail(req.Email)),
			slog.Any("error", err))
		pkghttp.WriteInternalError(w, "An error occurred")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "If the email exists, a reset link has been sent",
	})
}

// VerifyResetToken reports whether a reset token is still usable
func (h *AuthHandler) VerifyResetToken(w http.ResponseWriter, r *http.Request) {
	var req VerifyResetTokenRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	userID, err := h.resets.VerifyResetToken(r.Context(), req.Token)
	if err != nil {
		h.logger.Error("failed to verify reset token", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "An error occurred")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, VerifyResetTokenResponse{
		Valid: userID != "",
	})
}

// ResetPassword completes a password reset with a valid token
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := pkgauth.ValidatePassword(req.NewPassword); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	hash, err := pkgauth.HashPassword(req.NewPassword)
	if err != nil {
		h.logger.Error("failed to hash password", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "An error occurred")
		return
	}

	ipAddress := pkghttp.ExtractClientIP(r, h.ipConfig)
	userAgent := r.Header.Get("User-Agent")

	ok, err := h.resets.CompleteReset(r.Context(), req.Token, hash, ipAddress, userAgent)
	if err != nil {
		h.logger.Error("failed to complete password reset", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "An error occurred")
		return
	}
	if !ok {
		pkghttp.WriteBadRequest(w, "Invalid or expired reset token")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Password has been reset",
	})
}
