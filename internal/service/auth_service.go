package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/clearsight/auth-service/internal/auth"
	"github.com/clearsight/auth-service/internal/config"
	"github.com/clearsight/auth-service/internal/domain"
	"github.com/clearsight/auth-service/internal/events"
	"github.com/clearsight/auth-service/internal/repository"
)

// Stable user-facing failure messages. Unknown email and wrong password
// share one message so login cannot be used to enumerate accounts.
const (
	MsgEmailRegistered   = "Email is already registered!"
	MsgInvalidRole       = "Not Valid Role!"
	MsgBadCredentials    = "Email or Password is incorrect!"
	MsgAccountLocked     = "Your account has been locked due to multiple failed attempts."
	MsgEmailNotConfirmed = "Please confirm your email before logging in."
	MsgInvalidToken      = "Invalid token"
	MsgInactiveToken     = "Inactive token"
)

const usernameSuffixRetries = 10

// RegistrationResult describes the outcome of Register. A non-empty Message
// means the registration was rejected.
type RegistrationResult struct {
	UserID   string
	Email    string
	Username string
	Role     domain.Role
	Message  string
}

// AuthResult describes the outcome of Login and Refresh. Business failures
// set ErrorMessage; only store faults surface as errors.
type AuthResult struct {
	Authenticated    bool
	Token            string
	ExpiresAt        time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
	Username         string
	Email            string
	Role             domain.Role
	ErrorMessage     string
}

// AuthService orchestrates registration, login, session token assembly and
// refresh token lifecycle.
type AuthService struct {
	users      repository.UserRepository
	tokens     repository.RefreshTokenRepository
	doctors    repository.DoctorRepository
	codec      *auth.TokenManager
	lockout    *LockoutGuard
	dispatcher events.Dispatcher
	logger     *zap.Logger
	bcryptCost int
	refreshTTL time.Duration
	now        func() time.Time
}

// AuthDependencies encapsulates repo requirements for the auth service.
type AuthDependencies struct {
	UserRepo         repository.UserRepository
	RefreshTokenRepo repository.RefreshTokenRepository
	DoctorRepo       repository.DoctorRepository
	Dispatcher       events.Dispatcher
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:      deps.UserRepo,
		tokens:     deps.RefreshTokenRepo,
		doctors:    deps.DoctorRepo,
		codec:      auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.JWTAudience, cfg.Auth.AccessTokenTTL()),
		lockout:    NewLockoutGuard(deps.UserRepo, cfg.Auth.LockoutMaxAttempts, cfg.Auth.LockoutWindow()),
		dispatcher: deps.Dispatcher,
		logger:     logger,
		bcryptCost: cfg.Auth.BcryptCost,
		refreshTTL: cfg.Auth.RefreshTokenTTL(),
		now:        time.Now,
	}
}

// Register creates a new account with the requested role. Doctor accounts
// start with a Pending verification record.
func (s *AuthService) Register(ctx context.Context, fullName, email, password, role string) (*RegistrationResult, error) {
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return &RegistrationResult{Message: MsgEmailRegistered}, nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	if !domain.IsKnownRole(role) {
		return &RegistrationResult{Message: MsgInvalidRole}, nil
	}

	username, err := s.generateUsername(ctx, fullName)
	if err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		FullName:      fullName,
		Username:      username,
		Email:         email,
		PasswordHash:  hash,
		SecurityStamp: uuid.NewString(),
		PrimaryRole:   domain.Role(role),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	if err := s.users.AddRole(ctx, user.ID, user.PrimaryRole); err != nil {
		return nil, err
	}

	if user.PrimaryRole == domain.RoleDoctor {
		verification := &domain.DoctorVerification{
			UserID: user.ID,
			Status: domain.VerificationPending,
		}
		if err := s.doctors.Create(ctx, verification); err != nil {
			return nil, err
		}
	}

	s.publish(ctx, events.EventUserRegistered, user.ID, events.UserRegisteredPayload{
		Email:    user.Email,
		Username: user.Username,
		Role:     user.PrimaryRole,
	})

	return &RegistrationResult{
		UserID:   user.ID,
		Email:    user.Email,
		Username: user.Username,
		Role:     user.PrimaryRole,
	}, nil
}

// DeleteAccount removes an account. Used by the registration caller when
// the confirmation message could not be delivered.
func (s *AuthService) DeleteAccount(ctx context.Context, userID string) error {
	return s.users.Delete(ctx, userID)
}

// Login verifies credentials and returns a session token plus a refresh
// token. An existing active refresh token is reused, keeping at most one
// active token per account.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &AuthResult{ErrorMessage: MsgBadCredentials}, nil
		}
		return nil, err
	}

	if s.lockout.IsLockedOut(user) {
		return &AuthResult{ErrorMessage: MsgAccountLocked}, nil
	}

	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		locked, lockErr := s.lockout.RecordFailure(ctx, user)
		if lockErr != nil {
			return nil, lockErr
		}
		if locked {
			s.publish(ctx, events.EventAccountLocked, user.ID, events.AccountLockedPayload{
				Email:        user.Email,
				LockoutUntil: *user.LockoutUntil,
			})
			return &AuthResult{ErrorMessage: MsgAccountLocked}, nil
		}
		return &AuthResult{ErrorMessage: MsgBadCredentials}, nil
	}

	if !user.EmailConfirmed {
		return &AuthResult{ErrorMessage: MsgEmailNotConfirmed}, nil
	}

	if err := s.lockout.Reset(ctx, user); err != nil {
		return nil, err
	}

	token, expiresAt, err := s.CreateSessionToken(ctx, user)
	if err != nil {
		return nil, err
	}

	refresh, err := s.activeOrNewRefreshToken(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return &AuthResult{
		Authenticated:    true,
		Token:            token,
		ExpiresAt:        expiresAt,
		RefreshToken:     refresh.Token,
		RefreshExpiresAt: refresh.ExpiresAt,
		Username:         user.Username,
		Email:            user.Email,
		Role:             user.PrimaryRole,
	}, nil
}

// CreateSessionToken assembles the claim set and signs a session token.
// Claim order: base identity claims, doctor verification status, security
// stamp, token id, then one claim per granted role. Duplicates across the
// sets are permitted; the list is a multiset.
func (s *AuthService) CreateSessionToken(ctx context.Context, user *domain.User) (string, time.Time, error) {
	claims := auth.Claims{}
	claims.Add(auth.ClaimSubject, user.ID)
	claims.Add(auth.ClaimUsername, user.Username)
	claims.Add(auth.ClaimEmail, user.Email)
	claims.Add(auth.ClaimRole, string(user.PrimaryRole))

	if user.PrimaryRole == domain.RoleDoctor {
		verification, err := s.doctors.GetByUserID(ctx, user.ID)
		if err == nil {
			claims.Add(auth.ClaimVerificationStatus, string(verification.Status))
		} else if !errors.Is(err, pgx.ErrNoRows) {
			return "", time.Time{}, err
		}
	}

	claims.Add(auth.ClaimSecurityStamp, user.SecurityStamp)
	claims.Add(auth.ClaimTokenID, uuid.NewString())

	for _, role := range user.AllRoles() {
		claims.Add(auth.ClaimRoles, string(role))
	}

	return s.codec.IssueToken(claims)
}

// Refresh rotates the presented refresh token and issues a new session
// token. Every refresh invalidates the prior refresh token, bounding the
// replay window to one use.
func (s *AuthService) Refresh(ctx context.Context, presented string) (*AuthResult, error) {
	replacement, err := s.newRefreshToken("")
	if err != nil {
		return nil, err
	}

	old, err := s.tokens.Rotate(ctx, presented, replacement)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &AuthResult{ErrorMessage: MsgInvalidToken}, nil
		}
		if errors.Is(err, repository.ErrTokenInactive) {
			return &AuthResult{ErrorMessage: MsgInactiveToken}, nil
		}
		return nil, err
	}

	user, err := s.users.GetByID(ctx, old.UserID)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.CreateSessionToken(ctx, user)
	if err != nil {
		return nil, err
	}

	return &AuthResult{
		Authenticated:    true,
		Token:            token,
		ExpiresAt:        expiresAt,
		RefreshToken:     replacement.Token,
		RefreshExpiresAt: replacement.ExpiresAt,
		Username:         user.Username,
		Email:            user.Email,
		Role:             user.PrimaryRole,
	}, nil
}

// Revoke marks the presented refresh token revoked. Returns false for both
// unknown and already-inactive tokens.
func (s *AuthService) Revoke(ctx context.Context, presented string) (bool, error) {
	err := s.tokens.Revoke(ctx, presented)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, repository.ErrTokenInactive) {
			return false, nil
		}
		return false, err
	}
	s.publish(ctx, events.EventRefreshTokenRevoked, "", nil)
	return true, nil
}

// TokenManager exposes the underlying codec for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.codec
}

// generateUsername strips whitespace from the full name and, on collision,
// appends a random 6-digit suffix until the name is unused.
func (s *AuthService) generateUsername(ctx context.Context, fullName string) (string, error) {
	base := strings.ReplaceAll(strings.TrimSpace(fullName), " ", "")
	candidate := base

	for attempt := 0; attempt < usernameSuffixRetries; attempt++ {
		taken, err := s.users.UsernameExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		suffix, err := rand.Int(rand.Reader, big.NewInt(900_000))
		if err != nil {
			return "", err
		}
		candidate = fmt.Sprintf("%s_%06d", base, suffix.Int64()+100_000)
	}
	return "", fmt.Errorf("could not find a free username for %q", base)
}

// activeOrNewRefreshToken reuses the account's active refresh token when one
// exists, otherwise mints and persists a fresh one.
func (s *AuthService) activeOrNewRefreshToken(ctx context.Context, userID string) (*domain.RefreshToken, error) {
	active, err := s.tokens.GetActiveByUserID(ctx, userID)
	if err == nil {
		return active, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	fresh, err := s.newRefreshToken(userID)
	if err != nil {
		return nil, err
	}
	if err := s.tokens.Create(ctx, fresh); err != nil {
		return nil, err
	}
	return fresh, nil
}

// newRefreshToken mints an opaque token from 32 bytes of CSPRNG output.
func (s *AuthService) newRefreshToken(userID string) (*domain.RefreshToken, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, err
	}
	return &domain.RefreshToken{
		UserID:    userID,
		Token:     base64.StdEncoding.EncodeToString(raw),
		ExpiresAt: s.now().Add(s.refreshTTL),
	}, nil
}

func (s *AuthService) publish(ctx context.Context, eventType events.EventType, userID string, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		UserID:    userID,
		Timestamp: s.now(),
		Payload:   payload,
	})
}
