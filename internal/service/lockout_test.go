package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearsight/auth-service/internal/domain"
)

func TestLockoutGuardLocksAtThreshold(t *testing.T) {
	users := newFakeUserRepo()
	user := &domain.User{FullName: "John Doe", Email: "john@example.com"}
	require.NoError(t, users.Create(context.Background(), user))

	guard := NewLockoutGuard(users, 3, 10*time.Minute)

	locked, err := guard.RecordFailure(context.Background(), user)
	require.NoError(t, err)
	assert.False(t, locked)
	assert.Equal(t, 1, user.FailedLoginCount)

	locked, err = guard.RecordFailure(context.Background(), user)
	require.NoError(t, err)
	assert.False(t, locked)

	locked, err = guard.RecordFailure(context.Background(), user)
	require.NoError(t, err)
	assert.True(t, locked)
	require.NotNil(t, user.LockoutUntil)
	// The counter resets when the lock engages; once the window passes the
	// account starts over at zero failures.
	assert.Equal(t, 0, user.FailedLoginCount)
	assert.True(t, guard.IsLockedOut(user))
}

func TestLockoutGuardUnlocksAfterWindow(t *testing.T) {
	users := newFakeUserRepo()
	user := &domain.User{FullName: "John Doe", Email: "john@example.com"}
	require.NoError(t, users.Create(context.Background(), user))

	guard := NewLockoutGuard(users, 1, 10*time.Minute)

	locked, err := guard.RecordFailure(context.Background(), user)
	require.NoError(t, err)
	require.True(t, locked)
	assert.True(t, guard.IsLockedOut(user))

	guard.now = func() time.Time { return time.Now().Add(10*time.Minute + time.Second) }
	assert.False(t, guard.IsLockedOut(user))
}

func TestLockoutGuardResetClearsState(t *testing.T) {
	users := newFakeUserRepo()
	user := &domain.User{FullName: "John Doe", Email: "john@example.com"}
	require.NoError(t, users.Create(context.Background(), user))

	guard := NewLockoutGuard(users, 3, 10*time.Minute)

	_, err := guard.RecordFailure(context.Background(), user)
	require.NoError(t, err)
	require.NoError(t, guard.Reset(context.Background(), user))

	assert.Equal(t, 0, user.FailedLoginCount)
	assert.Nil(t, user.LockoutUntil)

	stored, err := users.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.FailedLoginCount)
}

func TestLockoutGuardDefaults(t *testing.T) {
	guard := NewLockoutGuard(newFakeUserRepo(), 0, 0)
	assert.Equal(t, 3, guard.maxAttempts)
	assert.Equal(t, 10*time.Minute, guard.window)
}
