package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// EventType identifies the kind of security event being recorded.
type EventType string

const (
	EventFailedLogin           EventType = "FAILED_LOGIN"
	EventSuccessfulLogin       EventType = "SUCCESSFUL_LOGIN"
	EventAccountLocked         EventType = "ACCOUNT_LOCKED"
	EventAccountUnlocked       EventType = "ACCOUNT_UNLOCKED"
	EventIPBlocked             EventType = "IP_BLOCKED"
	EventIPUnblocked           EventType = "IP_UNBLOCKED"
	EventPasswordResetRequest  EventType = "PASSWORD_RESET_REQUEST"
	EventPasswordResetComplete EventType = "PASSWORD_RESET_COMPLETE"
)

// Valid reports whether the event type is one of the known constants.
func (e EventType) Valid() bool {
	switch e {
	case EventFailedLogin, EventSuccessfulLogin,
		EventAccountLocked, EventAccountUnlocked,
		EventIPBlocked, EventIPUnblocked,
		EventPasswordResetRequest, EventPasswordResetComplete:
		return true
	}
	return false
}

// Severity ranks how alarming a security event is.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Valid reports whether the severity is one of the known constants.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// SecurityLog is one row of the append-only audit trail. Rows are never
// updated or deleted by this service.
type SecurityLog struct {
	ID          string        `db:"id" json:"id"`
	UserID      *string       `db:"user_id" json:"user_id,omitempty"`
	EventType   EventType     `db:"event_type" json:"event_type"`
	Severity    Severity      `db:"severity" json:"severity"`
	Description string        `db:"description" json:"description"`
	IPAddress   *string       `db:"ip_address" json:"ip_address,omitempty"`
	UserAgent   *string       `db:"user_agent" json:"user_agent,omitempty"`
	Metadata    EventMetadata `db:"metadata" json:"metadata,omitempty"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
}

// EventMetadata holds additional structured context for security events
type EventMetadata map[string]interface{}

// Scan implements sql.Scanner for JSONB
func (em *EventMetadata) Scan(value interface{}) error {
	if value == nil {
		*em = make(EventMetadata)
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return ErrBadRequest
	}

	var m map[string]interface{}
	if err := json.Unmarshal(bytes, &m); err != nil {
		return err
	}
	*em = EventMetadata(m)
	return nil
}

// Value implements driver.Valuer for JSONB
func (em EventMetadata) Value() (driver.Value, error) {
	if em == nil {
		return nil, nil
	}
	return json.Marshal(em)
}
