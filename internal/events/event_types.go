package events

import (
	"time"

	"github.com/clearsight/auth-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered             EventType = "user_registered"
	EventAccountLocked              EventType = "account_locked"
	EventPasswordResetRequested     EventType = "password_reset_requested"
	EventPasswordChanged            EventType = "password_changed"
	EventRefreshTokenRevoked        EventType = "refresh_token_revoked"
	EventDoctorVerificationChanged  EventType = "doctor_verification_changed"
	EventEmailConfirmationRequested EventType = "email_confirmation_requested"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	UserID    string      `json:"user_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// UserRegisteredPayload payload.
type UserRegisteredPayload struct {
	Email    string      `json:"email"`
	Username string      `json:"username"`
	Role     domain.Role `json:"role"`
}

// AccountLockedPayload payload.
type AccountLockedPayload struct {
	Email        string    `json:"email"`
	LockoutUntil time.Time `json:"lockout_until"`
}

// CodeIssuedPayload carries the plaintext code to the delivery handler.
// The code is never persisted; it only lives in this event.
type CodeIssuedPayload struct {
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Code      string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}

// DoctorVerificationChangedPayload payload.
type DoctorVerificationChangedPayload struct {
	OldStatus domain.VerificationStatus `json:"old_status"`
	NewStatus domain.VerificationStatus `json:"new_status"`
	DecidedBy string                    `json:"decided_by"`
}
