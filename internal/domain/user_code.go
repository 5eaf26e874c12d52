package domain

import "time"

// CodePurpose distinguishes what a stored user code may be redeemed for.
type CodePurpose string

const (
	CodePurposeResetPassword CodePurpose = "reset_password"
	CodePurposeConfirmEmail  CodePurpose = "confirm_email"
)

// UserCode is a short-lived, single-use code tied to an account. Only the
// SHA-256 hex digest of the code is stored; the plaintext is delivered
// out-of-band and never persisted.
type UserCode struct {
	ID        string
	UserID    string
	CodeHash  string
	Purpose   CodePurpose
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}
