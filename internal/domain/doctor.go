package domain

import "time"

// VerificationStatus is the doctor approval state gating doctor-only routes.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "Pending"
	VerificationApproved VerificationStatus = "Approved"
	VerificationRejected VerificationStatus = "Rejected"
)

// IsKnownVerificationStatus reports whether s is a recognized status.
func IsKnownVerificationStatus(s string) bool {
	switch VerificationStatus(s) {
	case VerificationPending, VerificationApproved, VerificationRejected:
		return true
	}
	return false
}

// DoctorVerification tracks the review state of a doctor account. A row is
// created with status Pending when an account registers with the Doctor role.
type DoctorVerification struct {
	UserID    string
	Status    VerificationStatus
	DecidedBy *string
	DecidedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}
