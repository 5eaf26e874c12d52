package domain

import "time"

// Role names recognized by the platform. Every account has exactly one
// primary role; additional roles may be granted on top of it.
type Role string

const (
	RolePatient Role = "Patient"
	RoleDoctor  Role = "Doctor"
	RoleAdmin   Role = "Admin"
)

// KnownRoles lists every role the service accepts at registration time.
var KnownRoles = []Role{RolePatient, RoleDoctor, RoleAdmin}

// IsKnownRole reports whether name is a recognized role.
func IsKnownRole(name string) bool {
	for _, r := range KnownRoles {
		if string(r) == name {
			return true
		}
	}
	return false
}

// User is the account record backing authentication. The security stamp is
// an opaque value regenerated on any credential-affecting mutation; session
// tokens embedding an older stamp are rejected.
type User struct {
	ID               string
	FullName         string
	Username         string
	Email            string
	EmailConfirmed   bool
	PasswordHash     string
	SecurityStamp    string
	PrimaryRole      Role
	Roles            []Role
	FailedLoginCount int
	LockoutUntil     *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsLockedOut reports whether the account is inside a lockout window at now.
func (u *User) IsLockedOut(now time.Time) bool {
	return u.LockoutUntil != nil && now.Before(*u.LockoutUntil)
}

// AllRoles returns the primary role followed by any additional roles.
func (u *User) AllRoles() []Role {
	roles := make([]Role, 0, len(u.Roles)+1)
	roles = append(roles, u.PrimaryRole)
	for _, r := range u.Roles {
		if r != u.PrimaryRole {
			roles = append(roles, r)
		}
	}
	return roles
}
