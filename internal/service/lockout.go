package service

import (
	"context"
	"time"

	"github.com/clearsight/auth-service/internal/domain"
	"github.com/clearsight/auth-service/internal/repository"
)

// LockoutGuard tracks failed login attempts and enforces timed lockout.
// The counter and lockout deadline live on the account row, so the state
// survives restarts and is shared across instances.
type LockoutGuard struct {
	users       repository.UserRepository
	maxAttempts int
	window      time.Duration
	now         func() time.Time
}

// NewLockoutGuard constructs the guard.
func NewLockoutGuard(users repository.UserRepository, maxAttempts int, window time.Duration) *LockoutGuard {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if window <= 0 {
		window = 10 * time.Minute
	}
	return &LockoutGuard{users: users, maxAttempts: maxAttempts, window: window, now: time.Now}
}

// RecordFailure increments the failed-attempt counter and, once the
// threshold is reached, locks the account for the configured window and
// zeroes the counter. Returns whether the account is now locked.
func (g *LockoutGuard) RecordFailure(ctx context.Context, user *domain.User) (bool, error) {
	user.FailedLoginCount++
	locked := false
	if user.FailedLoginCount >= g.maxAttempts {
		until := g.now().Add(g.window)
		user.LockoutUntil = &until
		user.FailedLoginCount = 0
		locked = true
	}
	if err := g.users.Update(ctx, user); err != nil {
		return false, err
	}
	return locked, nil
}

// Reset unconditionally clears the counter and any lockout deadline.
// Called on every successful login.
func (g *LockoutGuard) Reset(ctx context.Context, user *domain.User) error {
	if user.FailedLoginCount == 0 && user.LockoutUntil == nil {
		return nil
	}
	user.FailedLoginCount = 0
	user.LockoutUntil = nil
	return g.users.Update(ctx, user)
}

// IsLockedOut reports whether the account is currently locked.
func (g *LockoutGuard) IsLockedOut(user *domain.User) bool {
	return user.IsLockedOut(g.now())
}
