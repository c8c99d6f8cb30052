package models

import (
	"time"
)

type User struct {
	ID                  string
	Email               string
	PasswordHash        string
	Name                string
	FailedLoginAttempts int
	AccountLocked       bool       // Manual/administrative lock, indefinite
	AccountLockedReason *string    // Set together with AccountLocked
	AccountLockedUntil  *time.Time // Automatic lockout expiration
	LoginCount          int
	PasswordChangedAt   *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}
