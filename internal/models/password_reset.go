package models

import "time"

// PasswordResetLog records one issued reset token and its outcome.
// Successful is a one-way transition: nil (pending) -> true (consumed).
// A token is consumable iff Successful is nil and ExpiresAt is strictly
// in the future.
type PasswordResetLog struct {
	ID          string     `db:"id"`
	UserID      string     `db:"user_id"`
	IPAddress   string     `db:"ip_address"`
	Token       string     `db:"token"`
	ExpiresAt   time.Time  `db:"expires_at"`
	Successful  *bool      `db:"successful"`
	CompletedAt *time.Time `db:"completed_at"`
	CreatedAt   time.Time  `db:"created_at"`
}

// Consumable reports whether the token may still be redeemed at now.
func (p *PasswordResetLog) Consumable(now time.Time) bool {
	return p.Successful == nil && p.ExpiresAt.After(now)
}

// VerificationTokenKind distinguishes token flows sharing the
// verification_tokens table.
type VerificationTokenKind string

const (
	VerificationKindPasswordReset VerificationTokenKind = "password_reset"
)

// VerificationToken is the generic single-use token record mirrored
// alongside a PasswordResetLog. It is deleted outright when the reset
// completes, which is what enforces single use for any other consumer
// expecting this record shape.
type VerificationToken struct {
	ID        string                `db:"id"`
	UserID    string                `db:"user_id"`
	Token     string                `db:"token"`
	Kind      VerificationTokenKind `db:"kind"`
	ExpiresAt time.Time             `db:"expires_at"`
	CreatedAt time.Time             `db:"created_at"`
}
