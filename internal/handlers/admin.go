package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/coachdesk/gatehouse/internal/auth"
	"github.com/coachdesk/gatehouse/internal/models"
	pkghttp "github.com/coachdesk/gatehouse/pkg/http"
)

// AccountLockServiceInterface defines the interface for account lock administration
type AccountLockServiceInterface interface {
	IsAccountLocked(ctx context.Context, userID string) (bool, error)
	LockUserAccount(ctx context.Context, userID, reason, lockedBy string) error
	UnlockUserAccount(ctx context.Context, userID, unlockedBy string) error
}

// IPGuardServiceInterface defines the interface for IP block administration
type IPGuardServiceInterface interface {
	IsIPBlocked(ctx context.Context, ip string) (bool, error)
	BlockIPManually(ctx context.Context, ip, reason, blockedBy string) error
	UnblockIP(ctx context.Context, ip, unblockedBy string) error
}

// SecurityTrailInterface defines the interface for reading the audit trail
type SecurityTrailInterface interface {
	GetUserTrail(ctx context.Context, userID string, limit, offset int) ([]*models.SecurityLog, error)
	CountForUser(ctx context.Context, userID string) (int64, error)
}

// AdminHandler handles administrative security endpoints
type AdminHandler struct {
	locks   AccountLockServiceInterface
	ipGuard IPGuardServiceInterface
	trail   SecurityTrailInterface
	logger  *slog.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(locks AccountLockServiceInterface, ipGuard IPGuardServiceInterface, trail SecurityTrailInterface, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		locks:   locks,
		ipGuard: ipGuard,
		trail:   trail,
		logger:  logger,
	}
}

// LockAccountRequest represents the request body for locking an account
type LockAccountRequest struct {
	Reason string `json:"reason" validate:"required,min=3,max=500"`
}

// BlockIPRequest represents the request body for blocking an IP
type BlockIPRequest struct {
	IPAddress string `json:"ip_address" validate:"required,ip"`
	Reason    string `json:"reason" validate:"required,min=3,max=500"`
}

// UnblockIPRequest represents the request body for unblocking an IP
type UnblockIPRequest struct {
	IPAddress string `json:"ip_address" validate:"required,ip"`
}

// AccountStatusResponse reports the lock state of an account
type AccountStatusResponse struct {
	UserID string `json:"user_id"`
	Locked bool   `json:"locked"`
}

// SecurityTrailResponse wraps a page of audit trail entries
type SecurityTrailResponse struct {
	Events []*models.SecurityLog `json:"events"`
	Total  int64                 `json:"total"`
}

func adminID(r *http.Request) string {
	claims, err := auth.ClaimsFromContext(r.Context())
	if err != nil {
		return ""
	}
	return claims.UserID
}

// GetAccountStatus reports whether an account is currently locked
func (h *AdminHandler) GetAccountStatus(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if userID == "" {
		pkghttp.WriteBadRequest(w, "Missing user ID")
		return
	}

	locked, err := h.locks.IsAccountLocked(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to read account status", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "An error occurred")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, AccountStatusResponse{
		UserID: userID,
		Locked: locked,
	})
}

// LockAccount places a manual lock on an account
func (h *AdminHandler) LockAccount(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if userID == "" {
		pkghttp.WriteBadRequest(w, "Missing user ID")
		return
	}

	var req LockAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.locks.LockUserAccount(r.Context(), userID, req.Reason, adminID(r)); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "User not found")
			return
		}
		h.logger.Error("failed to lock account", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "An error occurred")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Account locked",
	})
}

// UnlockAccount removes all locks from an account
func (h *AdminHandler) UnlockAccount(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if userID == "" {
		pkghttp.WriteBadRequest(w, "Missing user ID")
		return
	}

	if err := h.locks.UnlockUserAccount(r.Context(), userID, adminID(r)); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "User not found")
			return
		}
		h.logger.Error("failed to unlock account", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "An error occurred")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Account unlocked",
	})
}

// BlockIP places a manual block on an IP address
func (h *AdminHandler) BlockIP(w http.ResponseWriter, r *http.Request) {
	var req BlockIPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.ipGuard.BlockIPManually(r.Context(), req.IPAddress, req.Reason, adminID(r)); err != nil {
		h.logger.Error("failed to block IP", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "An error occurred")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "IP blocked",
	})
}

// UnblockIP lifts an active block on an IP address
func (h *AdminHandler) UnblockIP(w http.ResponseWriter, r *http.Request) {
	var req UnblockIPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.ipGuard.UnblockIP(r.Context(), req.IPAddress, adminID(r)); err != nil {
		h.logger.Error("failed to unblock IP", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "An error occurred")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "IP unblocked",
	})
}

// GetSecurityTrail returns the audit trail for a user
func (h *AdminHandler) GetSecurityTrail(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if userID == "" {
		pkghttp.WriteBadRequest(w, "Missing user ID")
		return
	}

	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	events, err := h.trail.GetUserTrail(r.Context(), userID, limit, offset)
	if err != nil {
		h.logger.Error("failed to read security trail", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "An error occurred")
		return
	}

	total, err := h.trail.CountForUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to count security trail", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "An error occurred")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, SecurityTrailResponse{
		Events: events,
		Total:  total,
	})
}
