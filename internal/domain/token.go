package domain

import "time"

// RefreshToken is a long-lived opaque credential used to obtain a new session
// token without re-entering a password. Tokens are revoked, never deleted,
// except by the housekeeping sweeper once expired.
type RefreshToken struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}

// IsActive reports whether the token can still be redeemed at now.
// A token is active iff it has not been revoked and has not expired.
func (t *RefreshToken) IsActive(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}
