package dto

import "time"

// RegisterRequest payload for new accounts.
type RegisterRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse standard response for login and refresh.
type AuthResponse struct {
	Token            string    `json:"token"`
	ExpiresAt        time.Time `json:"expires_at"`
	Username         string    `json:"username"`
	Email            string    `json:"email"`
	Role             string    `json:"role"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// RegisterResponse echoes the created identity.
type RegisterResponse struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// ResetCodeRequest asks for a password reset code.
type ResetCodeRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest redeems a reset code.
type ResetPasswordRequest struct {
	Email            string `json:"email"`
	VerificationCode string `json:"verification_code"`
	NewPassword      string `json:"new_password"`
}

// ChangePasswordRequest for the authenticated path.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ConfirmEmailRequest redeems an email confirmation code.
type ConfirmEmailRequest struct {
	Email            string `json:"email"`
	VerificationCode string `json:"verification_code"`
}

// VerificationDecisionRequest sets a doctor's verification status.
type VerificationDecisionRequest struct {
	Status string `json:"status"`
}
