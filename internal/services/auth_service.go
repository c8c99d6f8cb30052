package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	internalauth "github.com/coachdesk/gatehouse/internal/auth"
	"github.com/coachdesk/gatehouse/internal/clock"
	"github.com/coachdesk/gatehouse/internal/models"
	pkgauth "github.com/coachdesk/gatehouse/pkg/auth"
)

// IPGuard is the slice of the IP guard the login path consults.
type IPGuard interface {
	IsIPBlocked(ctx context.Context, ip string) (bool, error)
}

// AccountLocker is the slice of the lock manager the login path consults.
type AccountLocker interface {
	IsAccountLocked(ctx context.Context, userID string) (bool, error)
}

// LoginTracker records failed attempts and clears them on success.
type LoginTracker interface {
	TrackFailedLogin(ctx context.Context, identifier, ip, userAgent string) (TrackResult, error)
	ResetFailedAttempts(ctx context.Context, userID string) error
}

// TokenIssuer signs access tokens for authenticated users.
type TokenIssuer interface {
	GenerateAccessToken(userID, email string) (string, error)
}

// LoginRequest carries the credentials and request context for one
// login attempt.
type LoginRequest struct {
	Email     string
	Password  string
	IPAddress string
	UserAgent string
}

// LoginResult is returned on a successful login.
type LoginResult struct {
	AccessToken string
	User        *models.User
}

// AuthService is the login entry point. It runs the full gauntlet:
// IP block check, credential verification, account lock check,
// failed-attempt tracking, and finally token issuance.
type AuthService struct {
	users   UserStore
	ipGuard IPGuard
	locks   AccountLocker
	tracker LoginTracker
	tokens  TokenIssuer
	events  SecurityRecorder
	timing  *internalauth.TimingDelay
	clock   clock.Clock
	logger  *slog.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(users UserStore, ipGuard IPGuard, locks AccountLocker, tracker LoginTracker, tokens TokenIssuer, events SecurityRecorder, timing *internalauth.TimingDelay, clk clock.Clock, logger *slog.Logger) *AuthService {
	return &AuthService{
		users:   users,
		ipGuard: ipGuard,
		locks:   locks,
		tracker: tracker,
		tokens:  tokens,
		events:  events,
		timing:  timing,
		clock:   clk,
		logger:  logger,
	}
}

// Login authenticates the request. Returns ErrIPBlocked when the
// source address is blocked, ErrAccountLocked when the account is
// locked, and ErrUnauthorized for bad credentials. A locked account is
// rejected before the credential is even checked; the attempt is
// recorded distinctly from a genuine bad-credential failure.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	startTime := time.Now()

	blocked, err := s.ipGuard.IsIPBlocked(ctx, req.IPAddress)
	if err != nil {
		return nil, err
	}
	if blocked {
		s.logger.WarnContext(ctx, "login rejected from blocked IP",
			slog.String("ip_address", req.IPAddress),
		)
		return nil, models.ErrIPBlocked
	}

	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			if _, trackErr := s.tracker.TrackFailedLogin(ctx, req.Email, req.IPAddress, req.UserAgent); trackErr != nil {
				return nil, trackErr
			}
			s.timing.WaitFrom(startTime, false)
			return nil, models.ErrUnauthorized
		}
		return nil, err
	}

	locked, err := s.locks.IsAccountLocked(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if locked {
		if err := s.events.LogEvent(ctx, SecurityEvent{
			UserID:      &user.ID,
			Type:        models.EventFailedLogin,
			Severity:    models.SeverityHigh,
			Description: "Login attempt blocked because the account is locked",
			IPAddress:   &req.IPAddress,
			UserAgent:   &req.UserAgent,
		}); err != nil {
			return nil, err
		}
		return nil, models.ErrAccountLocked
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, req.Password); err != nil {
		result, trackErr := s.tracker.TrackFailedLogin(ctx, req.Email, req.IPAddress, req.UserAgent)
		if trackErr != nil {
			return nil, trackErr
		}
		s.timing.WaitFrom(startTime, false)
		if result.ShouldBlock {
			return nil, models.ErrAccountLocked
		}
		return nil, models.ErrUnauthorized
	}

	if err := s.tracker.ResetFailedAttempts(ctx, user.ID); err != nil {
		return nil, err
	}

	accessToken, err := s.tokens.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	if err := s.events.LogEvent(ctx, SecurityEvent{
		UserID:      &user.ID,
		Type:        models.EventSuccessfulLogin,
		Severity:    models.SeverityLow,
		Description: "Successful login",
		IPAddress:   &req.IPAddress,
		UserAgent:   &req.UserAgent,
	}); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user logged in",
		slog.String("user_id", user.ID),
	)

	s.timing.WaitFrom(startTime, true)

	return &LoginResult{
		AccessToken: accessToken,
		User:        user,
	}, nil
}
