package integration

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	internalauth "github.com/coachdesk/gatehouse/internal/auth"
	"github.com/coachdesk/gatehouse/internal/clock"
	"github.com/coachdesk/gatehouse/internal/services"
)

const (
	TestPassword  = "TestPassword123!"
	TestJWTSecret = "test-jwt-secret-for-integration-tests-only"
)

// TestEmail generates a unique test email so parallel tests never collide
func TestEmail(suffix string) string {
	return fmt.Sprintf("test-%s-%d@example.com", suffix, time.Now().UnixNano())
}

// CapturedEmail holds an outbound reset email recorded by CapturingMailer
type CapturedEmail struct {
	To    string
	Token string
}

// CapturingMailer records reset emails instead of sending them
type CapturingMailer struct {
	mu   sync.Mutex
	Sent []CapturedEmail
}

func (m *CapturingMailer) SendPasswordResetEmail(ctx context.Context, toAddress, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, CapturedEmail{To: toAddress, Token: token})
	return nil
}

// LastEmail returns the most recently captured email, or nil
func (m *CapturingMailer) LastEmail() *CapturedEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Sent) == 0 {
		return nil
	}
	email := m.Sent[len(m.Sent)-1]
	return &email
}

// TestServices bundles fully wired services backed by a real database
type TestServices struct {
	Auth         *services.AuthService
	Tracker      *services.LoginTrackerService
	Locks        *services.AccountLockService
	IPGuard      *services.IPGuardService
	Resets       *services.PasswordResetService
	SecurityLog  *services.SecurityLogService
	Mailer       *CapturingMailer
	TokenManager *internalauth.TokenManager
}

// NewTestServices wires the full service graph against the test database
func NewTestServices(db *TestDB) *TestServices {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clk := clock.System{}

	users, blockedIPs, securityLogs, resets, tokens := InitializeRepositories(db.DB)

	securityLog := services.NewSecurityLogService(securityLogs, clk, logger)
	ipGuard := services.NewIPGuardService(blockedIPs, securityLog, clk, logger, 60*time.Minute)
	tracker := services.NewLoginTrackerService(users, ipGuard, securityLog, clk, logger, services.TrackerConfig{
		MaxFailedAttempts: 5,
		LockoutDuration:   15 * time.Minute,
		IPBlockDuration:   60 * time.Minute,
	})
	locks := services.NewAccountLockService(users, securityLog, clk, logger)

	mailer := &CapturingMailer{}
	resetService := services.NewPasswordResetService(users, resets, tokens, securityLog, mailer, clk, logger, 60*time.Minute)

	tokenManager := internalauth.NewTokenManager(TestJWTSecret, 15*time.Minute)
	timing := internalauth.NewTimingDelay(internalauth.TimingConfig{})
	authService := services.NewAuthService(users, ipGuard, locks, tracker, tokenManager, securityLog, timing, clk, logger)

	return &TestServices{
		Auth:         authService,
		Tracker:      tracker,
		Locks:        locks,
		IPGuard:      ipGuard,
		Resets:       resetService,
		SecurityLog:  securityLog,
		Mailer:       mailer,
		TokenManager: tokenManager,
	}
}
