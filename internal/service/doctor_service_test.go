package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/clearsight/auth-service/internal/auth"
	"github.com/clearsight/auth-service/internal/domain"
	"github.com/clearsight/auth-service/internal/events"
	apperrors "github.com/clearsight/auth-service/pkg/util"
)

func TestDecideApprovesDoctorAndRotatesStamp(t *testing.T) {
	fx := newAuthFixture()
	doctor := registerConfirmed(t, fx, "Jane Smith", "jane@example.com", "password", domain.RoleDoctor)

	svc := NewDoctorService(fx.users, fx.doctors, fx.bus, zap.NewNop())
	require.NoError(t, svc.Decide(context.Background(), doctor.ID, "Approved", "admin-1"))

	verification, err := fx.doctors.GetByUserID(context.Background(), doctor.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.VerificationApproved, verification.Status)
	require.NotNil(t, verification.DecidedBy)
	assert.Equal(t, "admin-1", *verification.DecidedBy)

	updated, err := fx.users.GetByID(context.Background(), doctor.ID)
	require.NoError(t, err)
	assert.NotEqual(t, doctor.SecurityStamp, updated.SecurityStamp)

	event, ok := fx.bus.lastOfType(events.EventDoctorVerificationChanged)
	require.True(t, ok)
	payload, ok := event.Payload.(events.DoctorVerificationChangedPayload)
	require.True(t, ok)
	assert.Equal(t, domain.VerificationPending, payload.OldStatus)
	assert.Equal(t, domain.VerificationApproved, payload.NewStatus)
}

// Tokens issued after the decision carry the new status; tokens issued
// before it stop validating because the stamp rotated.
func TestDecisionReflectsInNewSessionTokens(t *testing.T) {
	fx := newAuthFixture()
	doctor := registerConfirmed(t, fx, "Jane Smith", "jane@example.com", "password", domain.RoleDoctor)

	before, err := fx.svc.Login(context.Background(), "jane@example.com", "password")
	require.NoError(t, err)
	require.True(t, before.Authenticated)

	svc := NewDoctorService(fx.users, fx.doctors, fx.bus, zap.NewNop())
	require.NoError(t, svc.Decide(context.Background(), doctor.ID, "Approved", "admin-1"))

	after, err := fx.svc.Login(context.Background(), "jane@example.com", "password")
	require.NoError(t, err)
	require.True(t, after.Authenticated)

	oldClaims, err := fx.svc.TokenManager().ParseToken(before.Token)
	require.NoError(t, err)
	oldStatus, _ := oldClaims.First(auth.ClaimVerificationStatus)
	assert.Equal(t, string(domain.VerificationPending), oldStatus)

	newClaims, err := fx.svc.TokenManager().ParseToken(after.Token)
	require.NoError(t, err)
	newStatus, _ := newClaims.First(auth.ClaimVerificationStatus)
	assert.Equal(t, string(domain.VerificationApproved), newStatus)

	updated, err := fx.users.GetByID(context.Background(), doctor.ID)
	require.NoError(t, err)
	oldStamp, _ := oldClaims.First(auth.ClaimSecurityStamp)
	assert.NotEqual(t, updated.SecurityStamp, oldStamp)
}

func TestDecideRejectsUnknownStatus(t *testing.T) {
	fx := newAuthFixture()
	doctor := registerConfirmed(t, fx, "Jane Smith", "jane@example.com", "password", domain.RoleDoctor)

	svc := NewDoctorService(fx.users, fx.doctors, fx.bus, zap.NewNop())
	err := svc.Decide(context.Background(), doctor.ID, "Maybe", "admin-1")
	require.Error(t, err)
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
}

func TestDecideUnknownDoctor(t *testing.T) {
	fx := newAuthFixture()

	svc := NewDoctorService(fx.users, fx.doctors, fx.bus, zap.NewNop())
	err := svc.Decide(context.Background(), "no-such-user", "Approved", "admin-1")
	require.Error(t, err)
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "NOT_FOUND", domainErr.Code)
}

func TestDecideSameStatusIsNoOp(t *testing.T) {
	fx := newAuthFixture()
	doctor := registerConfirmed(t, fx, "Jane Smith", "jane@example.com", "password", domain.RoleDoctor)

	svc := NewDoctorService(fx.users, fx.doctors, fx.bus, zap.NewNop())
	require.NoError(t, svc.Decide(context.Background(), doctor.ID, "Pending", "admin-1"))

	updated, err := fx.users.GetByID(context.Background(), doctor.ID)
	require.NoError(t, err)
	assert.Equal(t, doctor.SecurityStamp, updated.SecurityStamp)

	_, ok := fx.bus.lastOfType(events.EventDoctorVerificationChanged)
	assert.False(t, ok)
}
