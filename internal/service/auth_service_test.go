package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/clearsight/auth-service/internal/auth"
	"github.com/clearsight/auth-service/internal/config"
	"github.com/clearsight/auth-service/internal/domain"
	"github.com/clearsight/auth-service/internal/events"
)

func testConfig() config.Config {
	var cfg config.Config
	cfg.Auth = config.AuthConfig{
		JWTSecret:             "test-secret",
		JWTIssuer:             "clearsight-auth",
		JWTAudience:           "clearsight-api",
		AccessTokenTTLMinutes: 60,
		RefreshTokenTTLDays:   10,
		LockoutMaxAttempts:    3,
		LockoutWindowMinutes:  10,
		ResetCodeTTLMinutes:   15,
		ConfirmCodeTTLHours:   24,
		BcryptCost:            bcrypt.MinCost,
	}
	return cfg
}

type authFixture struct {
	svc     *AuthService
	users   *fakeUserRepo
	tokens  *fakeRefreshRepo
	doctors *fakeDoctorRepo
	bus     *recordingDispatcher
}

func newAuthFixture() *authFixture {
	users := newFakeUserRepo()
	tokens := newFakeRefreshRepo()
	doctors := newFakeDoctorRepo()
	bus := &recordingDispatcher{}

	svc := NewAuthService(testConfig(), AuthDependencies{
		UserRepo:         users,
		RefreshTokenRepo: tokens,
		DoctorRepo:       doctors,
		Dispatcher:       bus,
	}, zap.NewNop())

	return &authFixture{svc: svc, users: users, tokens: tokens, doctors: doctors, bus: bus}
}

// registerConfirmed registers an account and marks its email confirmed so
// login tests can get past the confirmation gate.
func registerConfirmed(t *testing.T, fx *authFixture, fullName, email, password string, role domain.Role) *domain.User {
	t.Helper()
	result, err := fx.svc.Register(context.Background(), fullName, email, password, string(role))
	require.NoError(t, err)
	require.Empty(t, result.Message)

	fx.users.users[result.UserID].EmailConfirmed = true
	user, err := fx.users.GetByID(context.Background(), result.UserID)
	require.NoError(t, err)
	return user
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	fx := newAuthFixture()

	first, err := fx.svc.Register(context.Background(), "John Doe", "john@example.com", "pass1234", "Patient")
	require.NoError(t, err)
	assert.Empty(t, first.Message)

	second, err := fx.svc.Register(context.Background(), "Other Person", "john@example.com", "pass1234", "Patient")
	require.NoError(t, err)
	assert.Equal(t, MsgEmailRegistered, second.Message)
}

func TestRegisterRejectsUnknownRole(t *testing.T) {
	fx := newAuthFixture()

	result, err := fx.svc.Register(context.Background(), "John Doe", "john@example.com", "pass1234", "Superuser")
	require.NoError(t, err)
	assert.Equal(t, MsgInvalidRole, result.Message)
}

func TestRegisterSuffixesUsernameOnCollision(t *testing.T) {
	fx := newAuthFixture()

	first, err := fx.svc.Register(context.Background(), "John Doe", "john1@example.com", "pass1234", "Patient")
	require.NoError(t, err)
	assert.Equal(t, "JohnDoe", first.Username)

	second, err := fx.svc.Register(context.Background(), "John Doe", "john2@example.com", "pass1234", "Patient")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^JohnDoe_\d{6}$`), second.Username)
}

func TestRegisterDoctorStartsPending(t *testing.T) {
	fx := newAuthFixture()

	result, err := fx.svc.Register(context.Background(), "Jane Smith", "jane@example.com", "pass1234", "Doctor")
	require.NoError(t, err)
	require.Empty(t, result.Message)

	verification, err := fx.doctors.GetByUserID(context.Background(), result.UserID)
	require.NoError(t, err)
	assert.Equal(t, domain.VerificationPending, verification.Status)

	event, ok := fx.bus.lastOfType(events.EventUserRegistered)
	require.True(t, ok)
	assert.Equal(t, result.UserID, event.UserID)
}

func TestLoginSharesGenericFailureMessage(t *testing.T) {
	fx := newAuthFixture()
	registerConfirmed(t, fx, "John Doe", "john@example.com", "correct-horse", domain.RolePatient)

	unknownEmail, err := fx.svc.Login(context.Background(), "nobody@example.com", "whatever")
	require.NoError(t, err)
	wrongPassword, err := fx.svc.Login(context.Background(), "john@example.com", "wrong-horse")
	require.NoError(t, err)

	assert.False(t, unknownEmail.Authenticated)
	assert.False(t, wrongPassword.Authenticated)
	assert.Equal(t, MsgBadCredentials, unknownEmail.ErrorMessage)
	assert.Equal(t, unknownEmail.ErrorMessage, wrongPassword.ErrorMessage)
}

func TestLoginLocksAfterRepeatedFailures(t *testing.T) {
	fx := newAuthFixture()
	registerConfirmed(t, fx, "John Doe", "john@example.com", "correct-horse", domain.RolePatient)

	for i := 0; i < 2; i++ {
		result, err := fx.svc.Login(context.Background(), "john@example.com", "wrong")
		require.NoError(t, err)
		assert.Equal(t, MsgBadCredentials, result.ErrorMessage)
	}

	third, err := fx.svc.Login(context.Background(), "john@example.com", "wrong")
	require.NoError(t, err)
	assert.Equal(t, MsgAccountLocked, third.ErrorMessage)

	_, ok := fx.bus.lastOfType(events.EventAccountLocked)
	assert.True(t, ok)

	// Even the correct password is refused while the lock holds.
	locked, err := fx.svc.Login(context.Background(), "john@example.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, MsgAccountLocked, locked.ErrorMessage)
}

func TestLockoutExpiresWithWindow(t *testing.T) {
	fx := newAuthFixture()
	registerConfirmed(t, fx, "John Doe", "john@example.com", "correct-horse", domain.RolePatient)

	for i := 0; i < 3; i++ {
		_, err := fx.svc.Login(context.Background(), "john@example.com", "wrong")
		require.NoError(t, err)
	}

	fx.svc.lockout.now = func() time.Time { return time.Now().Add(11 * time.Minute) }

	result, err := fx.svc.Login(context.Background(), "john@example.com", "correct-horse")
	require.NoError(t, err)
	assert.True(t, result.Authenticated)
	assert.NotEmpty(t, result.Token)
}

func TestLoginRequiresConfirmedEmail(t *testing.T) {
	fx := newAuthFixture()
	_, err := fx.svc.Register(context.Background(), "John Doe", "john@example.com", "correct-horse", "Patient")
	require.NoError(t, err)

	result, err := fx.svc.Login(context.Background(), "john@example.com", "correct-horse")
	require.NoError(t, err)
	assert.False(t, result.Authenticated)
	assert.Equal(t, MsgEmailNotConfirmed, result.ErrorMessage)
}

func TestLoginReusesActiveRefreshToken(t *testing.T) {
	fx := newAuthFixture()
	user := registerConfirmed(t, fx, "John Doe", "john@example.com", "correct-horse", domain.RolePatient)

	first, err := fx.svc.Login(context.Background(), "john@example.com", "correct-horse")
	require.NoError(t, err)
	second, err := fx.svc.Login(context.Background(), "john@example.com", "correct-horse")
	require.NoError(t, err)

	assert.Equal(t, first.RefreshToken, second.RefreshToken)
	assert.Equal(t, 1, fx.tokens.activeCount(user.ID))
}

func TestSessionTokenCarriesVerificationStatus(t *testing.T) {
	fx := newAuthFixture()
	user := registerConfirmed(t, fx, "Jane Smith", "jane@example.com", "correct-horse", domain.RoleDoctor)

	result, err := fx.svc.Login(context.Background(), "jane@example.com", "correct-horse")
	require.NoError(t, err)
	require.True(t, result.Authenticated)

	claims, err := fx.svc.TokenManager().ParseToken(result.Token)
	require.NoError(t, err)

	sub, _ := claims.First(auth.ClaimSubject)
	assert.Equal(t, user.ID, sub)
	role, _ := claims.First(auth.ClaimRole)
	assert.Equal(t, string(domain.RoleDoctor), role)
	status, ok := claims.First(auth.ClaimVerificationStatus)
	require.True(t, ok)
	assert.Equal(t, string(domain.VerificationPending), status)
	stamp, _ := claims.First(auth.ClaimSecurityStamp)
	assert.Equal(t, user.SecurityStamp, stamp)
	jti, ok := claims.First(auth.ClaimTokenID)
	require.True(t, ok)
	assert.NotEmpty(t, jti)
	assert.Contains(t, claims.Values(auth.ClaimRoles), string(domain.RoleDoctor))
}

func TestSessionTokenOmitsVerificationStatusForPatients(t *testing.T) {
	fx := newAuthFixture()
	registerConfirmed(t, fx, "John Doe", "john@example.com", "correct-horse", domain.RolePatient)

	result, err := fx.svc.Login(context.Background(), "john@example.com", "correct-horse")
	require.NoError(t, err)

	claims, err := fx.svc.TokenManager().ParseToken(result.Token)
	require.NoError(t, err)

	_, ok := claims.First(auth.ClaimVerificationStatus)
	assert.False(t, ok)
}

func TestRefreshRotatesAndInvalidatesPredecessor(t *testing.T) {
	fx := newAuthFixture()
	user := registerConfirmed(t, fx, "John Doe", "john@example.com", "correct-horse", domain.RolePatient)

	login, err := fx.svc.Login(context.Background(), "john@example.com", "correct-horse")
	require.NoError(t, err)

	refreshed, err := fx.svc.Refresh(context.Background(), login.RefreshToken)
	require.NoError(t, err)
	require.True(t, refreshed.Authenticated)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)
	assert.Equal(t, 1, fx.tokens.activeCount(user.ID))

	// Replaying the rotated token must fail.
	replayed, err := fx.svc.Refresh(context.Background(), login.RefreshToken)
	require.NoError(t, err)
	assert.False(t, replayed.Authenticated)
	assert.Equal(t, MsgInactiveToken, replayed.ErrorMessage)

	// The replacement keeps working.
	next, err := fx.svc.Refresh(context.Background(), refreshed.RefreshToken)
	require.NoError(t, err)
	assert.True(t, next.Authenticated)
}

func TestRefreshRejectsUnknownToken(t *testing.T) {
	fx := newAuthFixture()

	result, err := fx.svc.Refresh(context.Background(), "never-issued")
	require.NoError(t, err)
	assert.False(t, result.Authenticated)
	assert.Equal(t, MsgInvalidToken, result.ErrorMessage)
}

func TestRevokeIsIdempotentlyFalseAfterFirstUse(t *testing.T) {
	fx := newAuthFixture()
	registerConfirmed(t, fx, "John Doe", "john@example.com", "correct-horse", domain.RolePatient)

	login, err := fx.svc.Login(context.Background(), "john@example.com", "correct-horse")
	require.NoError(t, err)

	ok, err := fx.svc.Revoke(context.Background(), login.RefreshToken)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = fx.svc.Revoke(context.Background(), login.RefreshToken)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = fx.svc.Revoke(context.Background(), "never-issued")
	require.NoError(t, err)
	assert.False(t, ok)
}
